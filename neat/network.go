package neat

import (
	"errors"
	"math"
)

// ErrInputSize is returned when Activate receives a value count different
// from the genome's input neuron count.
var ErrInputSize = errors.New("neat: input value count does not match input neurons")

// cyclicGuard drops cyclic-link contributions whose source value magnitude
// exceeds this bound, keeping feedback loops from blowing up to non-finite
// values.
const cyclicGuard = 1e10

// neuronInput is one incoming connection of a feed-forward neuron.
type neuronInput struct {
	source int
	weight float64
}

// ffNeuron is a neuron prepared for activation: its non-cyclic inputs feed
// the current pass, its cyclic inputs are folded into stored between passes.
type ffNeuron struct {
	id           int
	bias         float64
	stored       float64
	inputs       []neuronInput
	cyclicInputs []neuronInput
	activation   Activation
	isOutput     bool
}

// FeedForward is the executable network built from a genome. Neurons are
// ordered by topological layer over non-cyclic active links; cyclic links
// carry the previous activation's values via per-neuron stored state.
type FeedForward struct {
	inputIDs  []int
	outputIDs []int
	neurons   []ffNeuron
	values    map[int]float64
}

// NewFeedForward builds the network for a genome.
func NewFeedForward(g *Genome) *FeedForward {
	layers := layerNeurons(g)

	n := &FeedForward{values: make(map[int]float64, len(g.Neurons))}
	for _, neuron := range layers[0] {
		n.inputIDs = append(n.inputIDs, neuron.ID)
	}
	for _, neuron := range layers[len(layers)-1] {
		n.outputIDs = append(n.outputIDs, neuron.ID)
	}

	outputs := make(map[int]bool, len(n.outputIDs))
	for _, id := range n.outputIDs {
		outputs[id] = true
	}

	for _, layer := range layers {
		for _, neuron := range layer {
			ff := ffNeuron{
				id:         neuron.ID,
				bias:       neuron.Bias,
				activation: neuron.Activation,
				isOutput:   outputs[neuron.ID],
			}
			for _, l := range g.Links {
				if !l.Active || l.Out != neuron.ID {
					continue
				}
				in := neuronInput{source: l.In, weight: l.Weight}
				if l.Cyclic {
					ff.cyclicInputs = append(ff.cyclicInputs, in)
				} else {
					ff.inputs = append(ff.inputs, in)
				}
			}
			n.neurons = append(n.neurons, ff)
		}
	}

	return n
}

// layerNeurons topologically layers a genome's neurons using non-cyclic
// active links. The input neurons form the first layer; hidden neurons join
// a layer once all their feeding neurons are layered; neurons that never
// resolve (possible only in malformed restored genomes) are dumped into a
// final hidden layer; the output layer is forced last.
func layerNeurons(g *Genome) [][]Neuron {
	var layers [][]Neuron
	var inputLayer, outputLayer []Neuron
	active := make(map[int]bool)

	for _, n := range g.Neurons {
		switch n.Kind {
		case KindInput:
			inputLayer = append(inputLayer, n)
			active[n.ID] = true
		case KindOutput:
			outputLayer = append(outputLayer, n)
		}
	}
	layers = append(layers, inputLayer)

	remaining := len(g.Neurons) - len(outputLayer)
	for len(active) < remaining {
		var layer []Neuron
		for _, n := range g.Neurons {
			if n.Kind != KindHidden || active[n.ID] {
				continue
			}
			ready := true
			for _, l := range g.Links {
				if l.Active && !l.Cyclic && l.Out == n.ID && !active[l.In] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, n)
			}
		}

		if len(layer) == 0 {
			// Unresolvable remainder: collect and stop.
			for _, n := range g.Neurons {
				if n.Kind == KindHidden && !active[n.ID] {
					layer = append(layer, n)
					active[n.ID] = true
				}
			}
			layers = append(layers, layer)
			break
		}

		layers = append(layers, layer)
		for _, n := range layer {
			active[n.ID] = true
		}
	}

	layers = append(layers, outputLayer)
	return layers
}

// Activate runs one pass of the network. Input values map to the input
// neurons in insertion order; the returned slice holds the output neurons'
// values in insertion order. Output neurons pass through linearly; every
// other neuron applies its activation function. After the pass each
// neuron's stored value is refreshed from its cyclic inputs so the next
// activation sees this pass's values.
func (n *FeedForward) Activate(inputValues []float64) ([]float64, error) {
	if len(inputValues) != len(n.inputIDs) {
		return nil, ErrInputSize
	}

	values := n.values
	clear(values)
	for i, id := range n.inputIDs {
		values[id] = inputValues[i]
	}

	for i := range n.neurons {
		ff := &n.neurons[i]
		if _, done := values[ff.id]; done {
			continue
		}
		v := ff.stored
		for _, in := range ff.inputs {
			if sv, ok := values[in.source]; ok {
				v += sv * in.weight
			}
		}
		v += ff.bias
		if !ff.isOutput {
			v = activate(ff.activation, v)
		}
		values[ff.id] = v
	}

	for i := range n.neurons {
		ff := &n.neurons[i]
		if len(ff.cyclicInputs) == 0 {
			continue
		}
		stored := 0.0
		for _, in := range ff.cyclicInputs {
			sv := values[in.source]
			if math.Abs(sv) > cyclicGuard || math.IsNaN(sv) {
				continue
			}
			stored += in.weight * sv
		}
		ff.stored = stored
	}

	out := make([]float64, len(n.outputIDs))
	for i, id := range n.outputIDs {
		out[i] = values[id]
	}
	return out, nil
}

// activate applies an activation function.
func activate(a Activation, x float64) float64 {
	switch a {
	case ActSigmoid:
		return 1 / (1 + math.Exp(-x))
	case ActRelu:
		return math.Max(0, x)
	case ActElu:
		if x >= 0 {
			return x
		}
		return math.Exp(x) - 1
	case ActLeakyRelu:
		return math.Max(0.1*x, x)
	case ActBinary:
		if x >= 0 {
			return 1
		}
		return 0
	case ActTanh:
		return math.Tanh(x)
	default:
		return x
	}
}
