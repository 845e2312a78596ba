package sim

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
	"github.com/evolution-simulator/evosim/rng"
	"github.com/evolution-simulator/evosim/systems"
)

func TestMain(m *testing.M) {
	config.MustInit("")
	rng.SetSeed(42)
	m.Run()
}

// newTestSim builds a small world with explicit densities.
func newTestSim(w, h, foodDensity, creatureDensity float64) *Simulation {
	env := systems.NewEnvironment(w, h)
	env.SetFoodDensity(foodDensity)
	env.SetCreatureDensity(creatureDensity)
	return NewSimulation(env)
}

func TestEmptyWorld(t *testing.T) {
	s := newTestSim(500, 500, 0, 0)
	s.Start()

	dt := config.Cfg().Engine.FixedUpdateInterval
	for i := 0; i < 100; i++ {
		if err := s.FixedUpdate(dt); err != nil {
			t.Fatalf("FixedUpdate %d: %v", i, err)
		}
	}

	accessor := s.GetSimulationData()
	defer accessor.Release()
	d := accessor.Data()

	if math.Abs(d.WorldTime-100*dt) > 1e-9 {
		t.Errorf("world time = %v, want %v", d.WorldTime, 100*dt)
	}
	if n := d.CreatureCount(); n != 0 {
		t.Errorf("creature count = %d, want 0", n)
	}
	// Zero food density spawns nothing.
	if n := d.FoodCount(); n != 0 {
		t.Errorf("food count = %d, want 0 at zero density", n)
	}
}

func TestFoodSpawnsAtPositiveDensity(t *testing.T) {
	s := newTestSim(500, 500, 0, 0)
	s.Start()

	accessor := s.GetSimulationData()
	// A flat, generous density field.
	accessor.Data().Env.SetFoodDensityFunc(func(x, y float64) float64 { return 0.05 })
	accessor.Release()

	dt := config.Cfg().Engine.FixedUpdateInterval
	for i := 0; i < 200; i++ {
		if err := s.FixedUpdate(dt); err != nil {
			t.Fatalf("FixedUpdate: %v", err)
		}
	}

	accessor = s.GetSimulationData()
	defer accessor.Release()
	if n := accessor.Data().FoodCount(); n == 0 {
		t.Error("no food spawned at positive density")
	}
}

func TestSingleCreatureStarves(t *testing.T) {
	s := newTestSim(400, 400, 0, 0)
	s.Start()

	accessor := s.GetSimulationData()
	d := accessor.Data()
	e := d.SpawnCreature(neat.MinimallyViableGenome(), mutable.Default(), 200, 200, 0, 0)
	startEnergy := d.creatureMap.Get(e).Energy
	accessor.Release()

	dt := config.Cfg().Engine.FixedUpdateInterval
	died := false
	for i := 0; i < 50_000 && !died; i++ {
		if err := s.FixedUpdate(dt); err != nil {
			t.Fatalf("FixedUpdate: %v", err)
		}

		accessor = s.GetSimulationData()
		d = accessor.Data()
		if d.CreatureCount() == 0 {
			died = true
		} else {
			cr := d.creatureMap.Get(e)
			if cr != nil && cr.Energy > startEnergy+1e-9 {
				t.Fatalf("energy grew without food: %v > %v", cr.Energy, startEnergy)
			}
		}
		accessor.Release()
	}
	if !died {
		t.Fatal("creature without food never died")
	}

	// A dead creature drops meat at grid refresh.
	accessor = s.GetSimulationData()
	defer accessor.Release()
	if n := accessor.Data().FoodCount(); n == 0 {
		t.Error("no meat dropped by the dead creature")
	}
}

// matingPair spawns two mature, well-fed clone creatures and returns their
// entities.
func matingPair(d *SimulationData) (father, mother ecs.Entity) {
	genome := neat.MinimallyViableGenome()
	traits := mutable.Default()

	fe := d.SpawnCreature(genome.Copy(), traits, 100, 100, 0, 0)
	me := d.SpawnCreature(genome.Copy(), traits, 120, 100, 0, 0)

	for _, e := range []ecs.Entity{fe, me} {
		cr := d.creatureMap.Get(e)
		cr.Age = cr.MaturityAge + 1
		cr.Male.ReadyToReproduceAt = cr.Age
		cr.Female.ReadyToReproduceAt = cr.Age
		cr.Energy = cr.MaxEnergy * 0.95
	}
	return fe, me
}

func TestReproductionFlow(t *testing.T) {
	s := newTestSim(400, 400, 0, 0)
	s.Start()

	accessor := s.GetSimulationData()
	d := accessor.Data()

	father, mother := matingPair(d)
	d.Reproduce = append(d.Reproduce, father)
	d.NewReproduce = append(d.NewReproduce, mother)

	cm := &CreatureManager{}
	if err := cm.ReproduceCreatures(d, rng.NewSeeded(3)); err != nil {
		t.Fatalf("ReproduceCreatures: %v", err)
	}

	motherCr := d.creatureMap.Get(mother)
	if motherCr.Female.Egg == nil {
		t.Fatal("mother not pregnant after pairing")
	}
	if motherCr.WaitingToReproduce {
		t.Error("waiting flag not cleared after mating")
	}
	accessor.Release()

	dt := config.Cfg().Engine.FixedUpdateInterval

	// Gestation: an external egg entity appears.
	eggAppeared := false
	for i := 0; i < 20_000 && !eggAppeared; i++ {
		if err := s.FixedUpdate(dt); err != nil {
			t.Fatalf("FixedUpdate: %v", err)
		}
		accessor = s.GetSimulationData()
		eggAppeared = accessor.Data().EggCount() > 0
		accessor.Release()
	}
	if !eggAppeared {
		t.Fatal("no egg laid after gestation")
	}

	// Incubation: a third creature hatches.
	hatched := false
	for i := 0; i < 20_000 && !hatched; i++ {
		if err := s.FixedUpdate(dt); err != nil {
			t.Fatalf("FixedUpdate: %v", err)
		}
		accessor = s.GetSimulationData()
		hatched = accessor.Data().CreatureCount() >= 3
		accessor.Release()
	}
	if !hatched {
		t.Fatal("egg never hatched into a creature")
	}
}

func TestGridWrapCollisionFiresOnce(t *testing.T) {
	s := newTestSim(400, 400, 0, 0)
	s.Start()

	accessor := s.GetSimulationData()
	defer accessor.Release()
	d := accessor.Data()

	d.SpawnFood(components.FoodPlant, 399, 200, 2)
	d.SpawnFood(components.FoodPlant, 1, 200, 2)
	d.RefreshGrid()

	cm := &CollisionManager{}
	cm.CheckCollisions(d)

	if got := cm.Collisions(); got != 1 {
		t.Errorf("collision events = %d, want exactly 1", got)
	}
}

func TestWorldInitRespectingDensities(t *testing.T) {
	s := newTestSim(300, 300, 0, 0.002)
	s.Start()

	accessor := s.GetSimulationData()
	defer accessor.Release()
	if n := accessor.Data().CreatureCount(); n == 0 {
		t.Error("no creatures spawned at positive creature density")
	}
}

func TestStatisticsCadence(t *testing.T) {
	s := newTestSim(300, 300, 0, 0)
	s.Start()

	dt := config.Cfg().Engine.FixedUpdateInterval
	ticks := int(3.0/dt) + 1
	for i := 0; i < ticks; i++ {
		if err := s.FixedUpdate(dt); err != nil {
			t.Fatalf("FixedUpdate: %v", err)
		}
	}

	accessor := s.GetSimulationData()
	defer accessor.Release()
	samples := accessor.Data().Stats.Samples
	if len(samples) < 3 {
		t.Errorf("got %d statistics samples over 3s, want >= 3", len(samples))
	}
	for _, sample := range samples {
		if sample.CreatureCount != 0 {
			t.Errorf("empty world sample reports %d creatures", sample.CreatureCount)
		}
	}
}
