package sim

import (
	"sync"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
	"github.com/evolution-simulator/evosim/systems"
)

// Simulation owns the SimulationData and runs the fixed-step phases. All
// outside access goes through GetSimulationData.
type Simulation struct {
	mu        sync.Mutex
	cond      *sync.Cond
	dataReady bool
	data      *SimulationData
	running   bool

	creatures  CreatureManager
	food       FoodManager
	collisions CollisionManager

	rand *rng.Rand
}

// NewSimulation creates a simulation over the given environment.
func NewSimulation(env *systems.Environment) *Simulation {
	s := &Simulation{
		data:    NewSimulationData(env),
		running: true,
		rand:    rng.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	s.dataReady = true
	return s
}

// GetSimulationData acquires the scoped data accessor; callers must
// Release it.
func (s *Simulation) GetSimulationData() *DataAccessor {
	return acquire(s)
}

// Start initializes the world: food, creatures, and the first grid build.
func (s *Simulation) Start() {
	accessor := s.GetSimulationData()
	defer accessor.Release()
	d := accessor.Data()

	s.food.InitializeFood(d)
	s.creatures.InitializeCreatures(d)
	d.RefreshGrid()
}

// Update is the per-frame (variable dt) hook. All simulation state
// advances in FixedUpdate; nothing happens here.
func (s *Simulation) Update(dt float64) {}

// FixedUpdate advances the world by one constant-length tick. The phase
// order is strict: food update/spawn, grid rebuild, creature update, egg
// hatch, reproduction pairing, collision pass. Each parallel phase
// quiesces before the next begins.
func (s *Simulation) FixedUpdate(dt float64) error {
	accessor := s.GetSimulationData()
	defer accessor.Release()
	d := accessor.Data()

	s.food.UpdateAllFood(d, dt)
	s.food.GenerateMoreFood(d, dt)
	s.agePheromones(d, dt)

	d.RefreshGrid()

	s.creatures.UpdateAllCreatures(d, dt)
	s.creatures.HatchEggs(d)
	if err := s.creatures.ReproduceCreatures(d, s.rand); err != nil {
		return err
	}

	s.collisions.CheckCollisions(d)

	d.WorldTime += dt
	s.recordStatistics(d)
	return nil
}

// agePheromones fades scents out; expired ones leave at the grid refresh.
func (s *Simulation) agePheromones(d *SimulationData, dt float64) {
	lifespan := config.Cfg().Environment.DefaultLifespan

	query := d.pheromoneFilter.Query()
	for query.Next() {
		_, _, meta, scent := query.Get()
		if meta.State != components.Alive {
			continue
		}
		scent.Age += dt
		if scent.Age > lifespan {
			meta.State = components.Dead
		}
	}
}

// recordStatistics appends an aggregate sample when the statistics cadence
// elapses.
func (s *Simulation) recordStatistics(d *SimulationData) {
	if !d.Stats.Due(d.WorldTime) {
		return
	}

	var sizes, energies, velocities, diets, offspring []float64
	query := d.creatureFilter.Query()
	for query.Next() {
		_, _, body, meta, kin, _, cr := query.Get()
		if meta.State != components.Alive {
			continue
		}
		sizes = append(sizes, body.Size)
		energies = append(energies, cr.Energy)
		velocities = append(velocities, kin.Velocity)
		diets = append(diets, cr.Mutable.Diet)
		offspring = append(offspring, float64(cr.OffspringNumber))
	}

	d.Stats.Record(d.WorldTime, sizes, energies, velocities, diets, offspring)
}

// Stop marks the simulation stopped and wakes any accessor waiters.
func (s *Simulation) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.cond.Broadcast()
}
