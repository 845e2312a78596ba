package sim

import (
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
	"github.com/evolution-simulator/evosim/rng"
	"github.com/evolution-simulator/evosim/systems"
)

// CreatureManager advances creatures each fixed tick and handles egg
// hatching and reproduction pairing.
type CreatureManager struct {
	// Per-worker random streams, persistent across ticks so draws advance.
	// Offset from the food manager's worker index space.
	workers []*rng.Rand
}

// creatureWorkerOffset separates this manager's derived streams from other
// worker pools.
const creatureWorkerOffset = 1 << 16

// workerRands hands out n persistent worker streams.
func (cm *CreatureManager) workerRands(n int) []*rng.Rand {
	for len(cm.workers) < n {
		cm.workers = append(cm.workers, rng.NewWorker(creatureWorkerOffset+len(cm.workers)))
	}
	return cm.workers[:n]
}

// creatureAgingStep is the fixed age increment applied per tick.
const creatureAgingStep = 0.05

// InitializeCreatures populates the world: a Bernoulli roll per point of a
// 2-unit lattice, seeded with the minimally viable genome and heavily
// mutated traits.
func (cm *CreatureManager) InitializeCreatures(d *SimulationData) {
	r := rng.New()
	seed := neat.MinimallyViableGenome()

	for x := 0.0; x < d.Env.Width; x += 2.0 {
		for y := 0.0; y < d.Env.Height; y += 2.0 {
			if !r.Bernoulli(d.Env.CreatureDensity) {
				continue
			}
			traits := mutable.Default()
			for i := 0; i < 40; i++ {
				traits.Mutate(r)
			}
			d.SpawnCreature(seed.Copy(), traits, r.Uniform(0, d.Env.Width),
				r.Uniform(0, d.Env.Height), r.Uniform(-math.Pi, math.Pi), 0)
		}
	}
}

// layRequest is a birth buffered by a worker until the barrier.
type layRequest struct {
	egg  components.GestatingEgg
	x, y float64
}

// growthRequest defers a body-size change out of the sensing phase, where
// other workers still read this entity's body.
type growthRequest struct {
	entity ecs.Entity
	energy float64
}

// creatureWorkerOut collects one worker's structural side effects.
type creatureWorkerOut struct {
	pheromones []systems.PheromoneSpawn
	eggs       []layRequest
	mating     []ecs.Entity
	growth     []growthRequest
}

// UpdateAllCreatures runs one tick of creature behavior:
//  1. eggs age and swell toward hatching size;
//  2. grab chains are aggregated and applied as rigid bodies;
//  3. a physiology pass over worker chunks: energy and health, physics
//     integration, digestion, aging, gestation and the reproduction clocks
//     (each worker touches only its own creatures' components);
//  4. after a barrier, a sensing pass: vision and pheromone queries over
//     the now-quiescent world, network activation and actuation.
//
// Structural side effects (pheromone emissions, laid eggs, growth, mating
// candidates) go to per-worker buffers merged after the final barrier.
func (cm *CreatureManager) UpdateAllCreatures(d *SimulationData, dt float64) {
	eggQuery := d.eggFilter.Query()
	for eggQuery.Next() {
		_, _, body, meta, egg := eggQuery.Get()
		if meta.State != components.Alive {
			continue
		}
		egg.Age += dt
		body.Size = systems.EggSize(egg)
	}

	cm.applyGrabChains(d)

	var entities []ecs.Entity
	query := d.creatureFilter.Query()
	for query.Next() {
		_, _, _, meta, _, _, _ := query.Get()
		if meta.State == components.Alive {
			entities = append(entities, query.Entity())
		}
	}

	numWorkers := runtime.GOMAXPROCS(0)
	outs := make([]creatureWorkerOut, numWorkers)
	if len(entities) > 0 {
		cm.parallelPass(entities, numWorkers, func(worker int, e ecs.Entity, r *rng.Rand) {
			cm.updatePhysiology(d, e, dt, r, &outs[worker])
		})
		cm.parallelPass(entities, numWorkers, func(worker int, e ecs.Entity, r *rng.Rand) {
			cm.updateMind(d, e, dt, r, &outs[worker])
		})
	}

	for i := range outs {
		for _, g := range outs[i].growth {
			if cr := d.creatureMap.Get(g.entity); cr != nil {
				if body := d.bodyMap.Get(g.entity); body != nil {
					systems.Grow(cr, body, g.energy)
				}
			}
		}
		for _, s := range outs[i].pheromones {
			d.SpawnPheromone(s)
		}
		for _, lay := range outs[i].eggs {
			d.SpawnEgg(lay.egg, lay.x, lay.y)
		}
		d.NewReproduce = append(d.NewReproduce, outs[i].mating...)
	}
}

// parallelPass chunks the entity list over workers and waits for the
// barrier. Each worker runs on its own persistent random stream.
func (cm *CreatureManager) parallelPass(entities []ecs.Entity, numWorkers int,
	fn func(worker int, e ecs.Entity, r *rng.Rand)) {

	rands := cm.workerRands(numWorkers)
	chunk := (len(entities) + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := min(start+chunk, len(entities))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(worker, i0, i1 int) {
			defer wg.Done()
			r := rands[worker]
			for _, e := range entities[i0:i1] {
				fn(worker, e, r)
			}
		}(w, start, end)
	}
	wg.Wait()
}

// updatePhysiology advances a creature's body for one tick. Only this
// creature's components are touched, so workers need no synchronization.
func (cm *CreatureManager) updatePhysiology(d *SimulationData, e ecs.Entity, dt float64,
	r *rng.Rand, out *creatureWorkerOut) {

	cr := d.creatureMap.Get(e)
	pos := d.posMap.Get(e)
	rot := d.rotMap.Get(e)
	body := d.bodyMap.Get(e)
	meta := d.metaMap.Get(e)
	kin := d.kinMap.Get(e)
	if cr == nil || pos == nil || rot == nil || body == nil || meta == nil || kin == nil {
		return
	}

	kin.Friction = d.Env.FrictionCoefficient
	kin.StrafingDifficulty = cr.Mutable.StrafingDifficulty

	systems.UpdateMaxEnergy(cr, body.Size)
	if !systems.UpdateEnergy(cr, kin, body.Size, dt) {
		meta.State = components.Dead
		return
	}
	systems.UpdateDigestionDerived(cr, body.Size)

	systems.UpdateGestation(cr, kin, dt)
	systems.Integrate(kin, rot, pos, dt, d.Env.Width, d.Env.Height)

	cr.Age += creatureAgingStep
	systems.SetHealth(cr, body.Size, cr.Health-dt)
	if cr.Health <= 0 {
		meta.State = components.Dead
		return
	}

	if cr.Digestion.EatingCooldown > 0 {
		cr.Digestion.EatingCooldown = math.Max(0, cr.Digestion.EatingCooldown-dt)
	}
	systems.Digest(cr, body.Size, dt)

	systems.UpdateMatingDesire(cr, r)
	if cr.MatingDesire && !cr.WaitingToReproduce {
		cr.WaitingToReproduce = true
		out.mating = append(out.mating, e)
	}

	if systems.CanBirth(cr) {
		egg, err := systems.GiveBirth(cr, kin)
		if err != nil {
			slog.Warn("give_birth_failed", "creature", meta.ID, "err", err)
		} else {
			out.eggs = append(out.eggs, layRequest{egg: egg, x: pos.X, y: pos.Y})
		}
	}
}

// updateMind runs the sensing-and-actuation half once every body has
// settled for the tick.
func (cm *CreatureManager) updateMind(d *SimulationData, e ecs.Entity, dt float64,
	r *rng.Rand, out *creatureWorkerOut) {

	cr := d.creatureMap.Get(e)
	pos := d.posMap.Get(e)
	rot := d.rotMap.Get(e)
	body := d.bodyMap.Get(e)
	meta := d.metaMap.Get(e)
	if cr == nil || pos == nil || rot == nil || body == nil || meta == nil {
		return
	}
	if meta.State != components.Alive {
		return
	}

	cm.think(d, cr, e, *pos, rot.Heading, body, dt, r, out)

	out.pheromones = append(out.pheromones,
		systems.EmitPheromones(cr, *pos, *body, dt, d.Env.Width, d.Env.Height, r)...)
}

// think runs the sensory-decide-actuate cycle: the vision cone query and
// pheromone detection fill the input buffer, the network activates, and the
// outputs drive acceleration, growth, biting and digestion. Module inputs
// and outputs follow the genome's module order after the base layout.
func (cm *CreatureManager) think(d *SimulationData, cr *components.Creature, e ecs.Entity,
	pos components.Position, heading float64, body *components.Body, dt float64,
	r *rng.Rand, out *creatureWorkerOut) {

	kin := d.kinMap.Get(e)
	if kin == nil {
		return
	}

	systems.ProcessVision(cr, e, pos, heading, d.VisionQuery(), r)
	systems.DetectPheromones(cr, pos, *body, d.Grid, d.posMap, d.bodyMap, d.pheromoneMap,
		d.Env.Width, d.Env.Height)

	inputs := cr.NeuronData
	if len(inputs) != cr.Genome.InputCount() {
		inputs = make([]float64, cr.Genome.InputCount())
		cr.NeuronData = inputs
	}

	v := &cr.Vision
	dg := &cr.Digestion
	emptiness := 0.0
	if dg.StomachCapacity > 0 {
		emptiness = 100 * (1 - dg.StomachFullness/dg.StomachCapacity)
	}

	inputs[neat.InEnergy] = cr.Energy
	inputs[neat.InVelocity] = kin.Velocity
	inputs[neat.InVelocityAngle] = kin.VelocityAngle
	inputs[neat.InRotationalVelocity] = kin.RotationalVelocity
	inputs[neat.InStomachEmptiness] = emptiness
	inputs[neat.InStomachEnergy] = dg.PotentialEnergyInStomach
	inputs[neat.InOrientationPlant] = v.OrientationPlant
	inputs[neat.InDistancePlant] = v.DistancePlant
	inputs[neat.InPlantSize] = v.PlantSize
	inputs[neat.InOrientationMeat] = v.OrientationMeat
	inputs[neat.InDistanceMeat] = v.DistanceMeat
	inputs[neat.InMeatSize] = v.MeatSize

	next := config.Cfg().Environment.InputNeurons
	moduleVision := 0
	for _, m := range cr.Genome.Modules {
		switch m.ModuleID {
		case neat.ModuleVision:
			for j := 0; j < 3; j++ {
				idx := moduleVision*3 + j
				if next < len(inputs) && idx < len(v.ModuleInputs) {
					inputs[next] = v.ModuleInputs[idx]
				}
				next++
			}
			moduleVision++
		case neat.ModulePheromone:
			if next < len(inputs) {
				inputs[next] = cr.Pheromones.Densities[m.Type]
			}
			next++
		}
	}

	outputs, err := cr.Brain.Activate(inputs)
	if err != nil {
		slog.Warn("brain_activation_failed", "err", err)
		return
	}
	if len(outputs) < config.Cfg().Environment.OutputNeurons {
		slog.Warn("brain_output_underrun", "got", len(outputs))
		return
	}

	maxForce := cr.Mutable.MaxForce
	kin.Acceleration = math.Tanh(outputs[neat.OutAcceleration]) * maxForce
	kin.AccelerationAngle = math.Tanh(outputs[neat.OutAccelerationAngle]) * math.Pi
	kin.RotationalAcceleration = math.Tanh(outputs[neat.OutRotationalAcceleration]) * maxForce

	if growth := math.Max(math.Tanh(outputs[neat.OutGrowth])*dt, 0); growth > 0 {
		out.growth = append(out.growth, growthRequest{entity: e, energy: growth})
	}

	dg.WantsToBite = outputs[neat.OutBite] > 0.5

	if digest := math.Tanh(outputs[neat.OutDigestion]); digest > 0 {
		systems.AddAcid(cr, digest*config.Cfg().PhysicalConstraints.DDigestionRate*dt)
	}

	outIdx := config.Cfg().Environment.OutputNeurons
	for _, m := range cr.Genome.Modules {
		if m.ModuleID != neat.ModulePheromone {
			continue
		}
		if outIdx < len(outputs) {
			cr.Pheromones.Emissions[m.Type] = math.Max(0, math.Tanh(outputs[outIdx]))
		}
		outIdx++
	}
}

// applyGrabChains treats every grab chain as a rigid body for this tick:
// the chain's aggregate acceleration (from last tick's actuation) is
// written back to every member.
func (cm *CreatureManager) applyGrabChains(d *SimulationData) {
	seen := make(map[ecs.Entity]bool)

	query := d.creatureFilter.Query()
	var grabbing []ecs.Entity
	for query.Next() {
		_, _, _, meta, _, grab, _ := query.Get()
		if meta.State != components.Alive {
			continue
		}
		if grab.HasGrabbed || len(grab.GrabbedBy) > 0 {
			grabbing = append(grabbing, query.Entity())
		}
	}

	for _, e := range grabbing {
		if seen[e] {
			continue
		}
		chain := systems.Chain(e, d.grabMap)
		for _, member := range chain {
			seen[member] = true
		}
		if len(chain) < 2 {
			continue
		}

		st := systems.ComputeChainState(chain, d.posMap, d.bodyMap, d.kinMap, d.rotMap,
			d.Env.Width, d.Env.Height)
		systems.ApplyChainState(chain, st, d.kinMap, d.rotMap)

		for _, member := range chain {
			if grab := d.grabMap.Get(member); grab != nil {
				grab.TotalMass = st.TotalMass
				grab.CenterX = st.CenterX
				grab.CenterY = st.CenterY
				grab.AffectedByGrabbed = true
			}
		}
	}
}

// HatchEggs turns every fully incubated egg into a creature at the egg's
// position. The spent egg is marked dead and leaves the world at the next
// grid refresh.
func (cm *CreatureManager) HatchEggs(d *SimulationData) {
	type hatch struct {
		genome     *neat.Genome
		traits     mutable.Mutable
		generation int
		x, y       float64
	}
	var hatches []hatch

	query := d.eggFilter.Query()
	for query.Next() {
		pos, _, _, meta, egg := query.Get()
		if meta.State != components.Alive || egg.Age < egg.IncubationTime {
			continue
		}
		if err := systems.HatchEgg(egg, meta.State); err != nil {
			slog.Error("hatch_invariant_violation", "egg", meta.ID, "err", err)
			continue
		}
		hatches = append(hatches, hatch{
			genome:     egg.Genome,
			traits:     egg.Mutable,
			generation: egg.Generation,
			x:          pos.X,
			y:          pos.Y,
		})
		meta.State = components.Dead
	}

	for _, h := range hatches {
		d.SpawnCreature(h.genome, h.traits, h.x, h.y, 0, h.generation)
	}
}

// ReproduceCreatures drains the pending-father queue against the
// pending-mother queue: each father mates with the first compatible, ready
// mother. Unmatched candidates roll over to the next tick.
func (cm *CreatureManager) ReproduceCreatures(d *SimulationData, r *rng.Rand) error {
	var notReproduced []ecs.Entity

	for len(d.Reproduce) > 0 {
		father := d.Reproduce[0]
		d.Reproduce = d.Reproduce[1:]

		fatherCr := d.creatureMap.Get(father)
		fatherBody := d.bodyMap.Get(father)
		if fatherCr == nil || fatherBody == nil {
			continue
		}

		paired := false
		var unmatched []ecs.Entity
		for len(d.NewReproduce) > 0 && !paired {
			mother := d.NewReproduce[0]
			d.NewReproduce = d.NewReproduce[1:]

			motherCr := d.creatureMap.Get(mother)
			if motherCr == nil || mother == father {
				continue
			}

			if systems.Compatible(fatherCr, motherCr) &&
				systems.MaleReadyToProcreate(fatherCr) &&
				systems.FemaleReadyToProcreate(motherCr) {
				if err := systems.MateWithMale(fatherCr, motherCr, r); err != nil {
					return err
				}
				systems.MaleAfterMate(fatherCr, fatherBody.Size)
				fatherCr.WaitingToReproduce = false
				motherCr.WaitingToReproduce = false
				paired = true
			} else {
				unmatched = append(unmatched, mother)
			}
		}
		d.NewReproduce = append(unmatched, d.NewReproduce...)

		if !paired {
			notReproduced = append(notReproduced, father)
		}
	}

	// Mothers unmatched this tick become next tick's fathers; unpaired
	// fathers queue again behind them.
	d.Reproduce = append(d.Reproduce, d.NewReproduce...)
	d.Reproduce = append(d.Reproduce, notReproduced...)
	d.NewReproduce = d.NewReproduce[:0]
	return nil
}
