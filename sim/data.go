// Package sim owns the simulation state and the fixed-step loop: the
// SimulationData entity store, the managers that advance it each tick, the
// thread-safe data accessor and the real-time engine driver.
package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/geom"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
	"github.com/evolution-simulator/evosim/systems"
	"github.com/evolution-simulator/evosim/telemetry"
)

// SimulationData uniquely owns all world entities and the bookkeeping
// around them. All access goes through the simulation's data accessor;
// entity references are valid only while the accessor is held.
type SimulationData struct {
	Env       *systems.Environment
	Grid      *systems.EntityGrid
	WorldTime float64

	// Pending-father and pending-mother FIFO queues for reproduction
	// pairing.
	Reproduce    []ecs.Entity
	NewReproduce []ecs.Entity

	Stats *telemetry.Series

	world  *ecs.World
	nextID uint64

	creatureMapper *ecs.Map7[components.Position, components.Rotation, components.Body,
		components.Meta, components.Kinematics, components.Grab, components.Creature]
	foodMapper *ecs.Map6[components.Position, components.Rotation, components.Body,
		components.Meta, components.Kinematics, components.Food]
	eggMapper *ecs.Map5[components.Position, components.Rotation, components.Body,
		components.Meta, components.Egg]
	pheromoneMapper *ecs.Map4[components.Position, components.Body,
		components.Meta, components.Pheromone]

	creatureFilter *ecs.Filter7[components.Position, components.Rotation, components.Body,
		components.Meta, components.Kinematics, components.Grab, components.Creature]
	foodFilter *ecs.Filter6[components.Position, components.Rotation, components.Body,
		components.Meta, components.Kinematics, components.Food]
	eggFilter *ecs.Filter5[components.Position, components.Rotation, components.Body,
		components.Meta, components.Egg]
	pheromoneFilter *ecs.Filter4[components.Position, components.Body,
		components.Meta, components.Pheromone]

	posMap       *ecs.Map1[components.Position]
	rotMap       *ecs.Map1[components.Rotation]
	bodyMap      *ecs.Map1[components.Body]
	metaMap      *ecs.Map1[components.Meta]
	kinMap       *ecs.Map1[components.Kinematics]
	grabMap      *ecs.Map1[components.Grab]
	creatureMap  *ecs.Map1[components.Creature]
	foodMap      *ecs.Map1[components.Food]
	eggMap       *ecs.Map1[components.Egg]
	pheromoneMap *ecs.Map1[components.Pheromone]
}

// NewSimulationData creates an empty world over the given environment.
func NewSimulationData(env *systems.Environment) *SimulationData {
	world := ecs.NewWorld()
	cellSize := config.Cfg().Environment.GridCellSize

	d := &SimulationData{
		Env:   env,
		Grid:  systems.NewEntityGrid(env.Width, env.Height, cellSize),
		Stats: telemetry.NewSeries(),
		world: world,

		creatureMapper: ecs.NewMap7[components.Position, components.Rotation, components.Body,
			components.Meta, components.Kinematics, components.Grab, components.Creature](world),
		foodMapper: ecs.NewMap6[components.Position, components.Rotation, components.Body,
			components.Meta, components.Kinematics, components.Food](world),
		eggMapper: ecs.NewMap5[components.Position, components.Rotation, components.Body,
			components.Meta, components.Egg](world),
		pheromoneMapper: ecs.NewMap4[components.Position, components.Body,
			components.Meta, components.Pheromone](world),

		creatureFilter: ecs.NewFilter7[components.Position, components.Rotation, components.Body,
			components.Meta, components.Kinematics, components.Grab, components.Creature](world),
		foodFilter: ecs.NewFilter6[components.Position, components.Rotation, components.Body,
			components.Meta, components.Kinematics, components.Food](world),
		eggFilter: ecs.NewFilter5[components.Position, components.Rotation, components.Body,
			components.Meta, components.Egg](world),
		pheromoneFilter: ecs.NewFilter4[components.Position, components.Body,
			components.Meta, components.Pheromone](world),

		posMap:       ecs.NewMap1[components.Position](world),
		rotMap:       ecs.NewMap1[components.Rotation](world),
		bodyMap:      ecs.NewMap1[components.Body](world),
		metaMap:      ecs.NewMap1[components.Meta](world),
		kinMap:       ecs.NewMap1[components.Kinematics](world),
		grabMap:      ecs.NewMap1[components.Grab](world),
		creatureMap:  ecs.NewMap1[components.Creature](world),
		foodMap:      ecs.NewMap1[components.Food](world),
		eggMap:       ecs.NewMap1[components.Egg](world),
		pheromoneMap: ecs.NewMap1[components.Pheromone](world),
	}
	return d
}

// VisionQuery bundles the lookups the vision system needs.
func (d *SimulationData) VisionQuery() systems.VisionQuery {
	return systems.VisionQuery{
		Grid:        d.Grid,
		PosMap:      d.posMap,
		BodyMap:     d.bodyMap,
		FoodMap:     d.foodMap,
		CreatureMap: d.creatureMap,
		Width:       d.Env.Width,
		Height:      d.Env.Height,
	}
}

// SpawnCreature creates a live creature entity from a genome and trait
// vector. The creature starts at baby size with half-filled health and
// energy pools.
func (d *SimulationData) SpawnCreature(genome *neat.Genome, traits mutable.Mutable,
	x, y, heading float64, generation int) ecs.Entity {

	d.nextID++
	size := traits.BabySize

	pos := components.Position{X: geom.Wrap(x, d.Env.Width), Y: geom.Wrap(y, d.Env.Height)}
	rot := components.Rotation{Heading: geom.NewOrientedAngle(heading).Angle()}
	body := components.Body{Size: size, Hue: traits.Color}
	meta := components.Meta{ID: d.nextID, State: components.Alive}
	kin := components.Kinematics{
		StrafingDifficulty: traits.StrafingDifficulty,
		Friction:           d.Env.FrictionCoefficient,
	}
	grab := components.Grab{}

	cr := components.Creature{
		Genome:     genome,
		Mutable:    traits,
		Brain:      neat.NewFeedForward(genome),
		NeuronData: make([]float64, genome.InputCount()),
		Health:     traits.Integrity * size * size / 2,
		Energy:     traits.EnergyDensity * size * size / 2,
		MaxEnergy:  traits.EnergyDensity * size * size,
		Generation: generation,
	}
	systems.InitReproduction(&cr)
	systems.InitVision(&cr)
	systems.InitPheromoneChannels(&cr)
	systems.UpdateDigestionDerived(&cr, size)

	return d.creatureMapper.NewEntity(&pos, &rot, &body, &meta, &kin, &grab, &cr)
}

// SpawnFood creates a food entity of the given type and size.
func (d *SimulationData) SpawnFood(foodType components.FoodType, x, y, size float64) ecs.Entity {
	env := config.Cfg().Environment
	d.nextID++

	var nutrition, hue float64
	switch foodType {
	case components.FoodPlant:
		nutrition = env.PlantNutritionalValue
		hue = 0.32
	case components.FoodMeat:
		nutrition = env.MeatNutritionalValue
	case components.FoodEgg:
		nutrition = env.EggNutritionalValue
		hue = 0.1
	}

	pos := components.Position{X: geom.Wrap(x, d.Env.Width), Y: geom.Wrap(y, d.Env.Height)}
	rot := components.Rotation{}
	body := components.Body{Size: size, Hue: hue}
	meta := components.Meta{ID: d.nextID, State: components.Alive}
	kin := components.Kinematics{Friction: d.Env.FrictionCoefficient}
	food := components.Food{
		Type:             foodType,
		NutritionalValue: nutrition,
		Lifespan:         env.DefaultLifespan,
	}

	return d.foodMapper.NewEntity(&pos, &rot, &body, &meta, &kin, &food)
}

// SpawnEgg lays a gestating egg as a world entity at the given position.
func (d *SimulationData) SpawnEgg(gestating components.GestatingEgg, x, y float64) ecs.Entity {
	d.nextID++

	egg := components.Egg{
		GestatingEgg:     gestating,
		Health:           gestating.Mutable.Integrity * gestating.Mutable.BabySize,
		NutritionalValue: config.Cfg().Environment.EggNutritionalValue,
	}

	pos := components.Position{X: geom.Wrap(x, d.Env.Width), Y: geom.Wrap(y, d.Env.Height)}
	rot := components.Rotation{}
	body := components.Body{Size: systems.EggSize(&egg), Hue: gestating.Mutable.Color}
	meta := components.Meta{ID: d.nextID, State: components.Alive}

	return d.eggMapper.NewEntity(&pos, &rot, &body, &meta, &egg)
}

// SpawnPheromone places a scent entity in the world.
func (d *SimulationData) SpawnPheromone(s systems.PheromoneSpawn) ecs.Entity {
	d.nextID++

	pos := components.Position{X: s.X, Y: s.Y}
	body := components.Body{Size: s.Size, Hue: float64(s.Channel) / neat.PheromoneChannels}
	meta := components.Meta{ID: d.nextID, State: components.Alive}
	scent := components.Pheromone{Channel: s.Channel}

	return d.pheromoneMapper.NewEntity(&pos, &body, &meta, &scent)
}

// CreatureCount returns the number of live creatures.
func (d *SimulationData) CreatureCount() int {
	n := 0
	query := d.creatureFilter.Query()
	for query.Next() {
		_, _, _, meta, _, _, _ := query.Get()
		if meta.State == components.Alive {
			n++
		}
	}
	return n
}

// FoodCount returns the number of live food entities.
func (d *SimulationData) FoodCount() int {
	n := 0
	query := d.foodFilter.Query()
	for query.Next() {
		_, _, _, meta, _, _ := query.Get()
		if meta.State == components.Alive {
			n++
		}
	}
	return n
}

// EggCount returns the number of live eggs.
func (d *SimulationData) EggCount() int {
	n := 0
	query := d.eggFilter.Query()
	for query.Next() {
		_, _, _, meta, _ := query.Get()
		if meta.State == components.Alive {
			n++
		}
	}
	return n
}

// RefreshGrid is the per-tick cleanup and re-bucketing pass: dead entities
// leave the world (dead creatures drop meat of their size), every survivor
// is placed into exactly one grid cell, and the reproduction queues drop
// dead entries.
func (d *SimulationData) RefreshGrid() {
	type droppedMeat struct {
		x, y, size float64
	}
	var toRemove []ecs.Entity
	var meat []droppedMeat

	query := d.creatureFilter.Query()
	for query.Next() {
		pos, _, body, meta, _, _, _ := query.Get()
		if meta.State == components.Dead {
			toRemove = append(toRemove, query.Entity())
			meat = append(meat, droppedMeat{pos.X, pos.Y, body.Size})
		}
	}

	foodQuery := d.foodFilter.Query()
	for foodQuery.Next() {
		_, _, body, meta, _, _ := foodQuery.Get()
		if meta.State == components.Dead || body.Size <= 0 {
			toRemove = append(toRemove, foodQuery.Entity())
		}
	}

	eggQuery := d.eggFilter.Query()
	for eggQuery.Next() {
		_, _, _, meta, _ := eggQuery.Get()
		if meta.State == components.Dead {
			toRemove = append(toRemove, eggQuery.Entity())
		}
	}

	scentQuery := d.pheromoneFilter.Query()
	for scentQuery.Next() {
		_, _, meta, _ := scentQuery.Get()
		if meta.State == components.Dead {
			toRemove = append(toRemove, scentQuery.Entity())
		}
	}

	for _, e := range toRemove {
		systems.DetachGrabs(e, d.grabMap)
		d.world.RemoveEntity(e)
	}
	for _, m := range meat {
		d.SpawnFood(components.FoodMeat, m.x, m.y, m.size)
	}

	d.Grid.Clear()

	query = d.creatureFilter.Query()
	for query.Next() {
		pos, _, _, _, _, _, _ := query.Get()
		d.Grid.Insert(query.Entity(), pos.X, pos.Y)
	}
	foodQuery = d.foodFilter.Query()
	for foodQuery.Next() {
		pos, _, _, _, _, _ := foodQuery.Get()
		d.Grid.Insert(foodQuery.Entity(), pos.X, pos.Y)
	}
	eggQuery = d.eggFilter.Query()
	for eggQuery.Next() {
		pos, _, _, _, _ := eggQuery.Get()
		d.Grid.Insert(eggQuery.Entity(), pos.X, pos.Y)
	}
	scentQuery = d.pheromoneFilter.Query()
	for scentQuery.Next() {
		pos, _, _, _ := scentQuery.Get()
		d.Grid.Insert(scentQuery.Entity(), pos.X, pos.Y)
	}

	d.Reproduce = d.dropDead(d.Reproduce)
	d.NewReproduce = d.dropDead(d.NewReproduce)
}

// dropDead filters a reproduction queue down to live entities.
func (d *SimulationData) dropDead(queue []ecs.Entity) []ecs.Entity {
	kept := queue[:0]
	for _, e := range queue {
		if !d.world.Alive(e) {
			continue
		}
		meta := d.metaMap.Get(e)
		if meta != nil && meta.State == components.Alive {
			kept = append(kept, e)
		}
	}
	return kept
}
