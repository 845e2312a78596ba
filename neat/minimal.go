package neat

import "github.com/evolution-simulator/evosim/config"

// Input neuron indices of the base sensory layout.
const (
	InEnergy = iota
	InVelocity
	InVelocityAngle
	InRotationalVelocity
	InStomachEmptiness
	InStomachEnergy
	InOrientationPlant
	InDistancePlant
	InPlantSize
	InOrientationMeat
	InDistanceMeat
	InMeatSize
)

// Output neuron indices of the base actuator layout.
const (
	OutAcceleration = iota
	OutAccelerationAngle
	OutRotationalAcceleration
	OutGrowth
	OutBite
	OutDigestion
)

// MinimallyViableGenome builds the seed genome for world-initialization
// creatures: instead of an unconnected genome it wires a handful of survival
// reflexes so generation zero can find food at all.
func MinimallyViableGenome() *Genome {
	cfg := config.Cfg().Environment
	g := NewGenome(cfg.InputNeurons, cfg.OutputNeurons)

	link := func(inIdx, outIdx int, weight float64) {
		in, ok1 := g.InputNeuronID(inIdx)
		out, ok2 := g.OutputNeuronID(outIdx)
		if ok1 && ok2 {
			g.AddLink(NewLink(in, out, weight))
		}
	}

	// Constant forward acceleration and a standing digestion drive.
	link(InEnergy, OutAcceleration, 1)
	link(InEnergy, OutDigestion, 1)
	link(InStomachEnergy, OutDigestion, -1)

	// Steer toward the nearest plant, damped by own rotation.
	link(InOrientationPlant, OutRotationalAcceleration, 1)
	link(InRotationalVelocity, OutRotationalAcceleration, -0.1)

	// Bite when a plant is close: distance feeds a sigmoid gate.
	gate := NewNeuron(KindHidden, 1)
	gate.Activation = ActSigmoid
	g.AddNeuron(gate)
	if in, ok := g.InputNeuronID(InDistancePlant); ok {
		g.AddLink(NewLink(in, gate.ID, -1))
	}
	if out, ok := g.OutputNeuronID(OutBite); ok {
		g.AddLink(NewLink(gate.ID, out, 1))
	}

	return g
}
