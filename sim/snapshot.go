package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
)

// Snapshot is the logical world state for persistence and inter-process
// exchange. Entity references are flattened; genomes are embedded in full.
type Snapshot struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	FoodDensity     float64 `json:"food_density"`
	CreatureDensity float64 `json:"creature_density"`

	Food      []FoodRecord     `json:"food"`
	Eggs      []EggRecord      `json:"eggs"`
	Creatures []CreatureRecord `json:"creatures"`
}

// FoodRecord is one serialized food entity.
type FoodRecord struct {
	X                float64              `json:"x_coord"`
	Y                float64              `json:"y_coord"`
	Type             components.FoodType  `json:"type"`
	NutritionalValue float64              `json:"nutritional_value"`
	Size             float64              `json:"size"`
	Orientation      float64              `json:"orientation"`
	State            components.State    `json:"state"`
	Color            float64              `json:"color"`
	Age              float64              `json:"age"`
	Lifespan         float64              `json:"lifespan"`
}

// EggRecord is one serialized egg entity.
type EggRecord struct {
	X              float64         `json:"x_coord"`
	Y              float64         `json:"y_coord"`
	Mutable        mutable.Mutable `json:"mutable"`
	IncubationTime float64         `json:"incubation_time"`
	Health         float64         `json:"health"`
	Age            float64         `json:"age"`
	Generation     int             `json:"generation"`
	Genome         *neat.Genome    `json:"genome"`
}

// CreatureRecord is one serialized creature.
type CreatureRecord struct {
	ID          uint64           `json:"id"`
	X           float64          `json:"x_coord"`
	Y           float64          `json:"y_coord"`
	Size        float64          `json:"size"`
	Orientation float64          `json:"orientation"`
	State       components.State `json:"state"`
	Color       float64          `json:"color"`

	Mutable mutable.Mutable `json:"mutable"`

	Acceleration           float64 `json:"acceleration"`
	AccelerationAngle      float64 `json:"acceleration_angle"`
	RotationalAcceleration float64 `json:"rotational_acceleration"`
	Velocity               float64 `json:"velocity"`
	VelocityAngle          float64 `json:"velocity_angle"`
	RotationalVelocity     float64 `json:"rotational_velocity"`

	Age        float64 `json:"age"`
	Health     float64 `json:"health"`
	Energy     float64 `json:"energy"`
	Generation int     `json:"generation"`

	Genome *neat.Genome `json:"genome"`
}

// TakeSnapshot captures the current world state. Records are emitted in
// canonical ID order.
func TakeSnapshot(d *SimulationData) *Snapshot {
	snap := &Snapshot{
		Width:           d.Env.Width,
		Height:          d.Env.Height,
		FoodDensity:     d.Env.FoodDensityScale,
		CreatureDensity: d.Env.CreatureDensity,
	}

	type orderedFood struct {
		id  uint64
		rec FoodRecord
	}
	var food []orderedFood
	foodQuery := d.foodFilter.Query()
	for foodQuery.Next() {
		pos, rot, body, meta, _, f := foodQuery.Get()
		food = append(food, orderedFood{meta.ID, FoodRecord{
			X: pos.X, Y: pos.Y,
			Type:             f.Type,
			NutritionalValue: f.NutritionalValue,
			Size:             body.Size,
			Orientation:      rot.Heading,
			State:            meta.State,
			Color:            body.Hue,
			Age:              f.Age,
			Lifespan:         f.Lifespan,
		}})
	}
	sort.Slice(food, func(i, j int) bool { return food[i].id < food[j].id })
	for _, f := range food {
		snap.Food = append(snap.Food, f.rec)
	}

	type orderedEgg struct {
		id  uint64
		rec EggRecord
	}
	var eggs []orderedEgg
	eggQuery := d.eggFilter.Query()
	for eggQuery.Next() {
		pos, _, _, meta, egg := eggQuery.Get()
		eggs = append(eggs, orderedEgg{meta.ID, EggRecord{
			X: pos.X, Y: pos.Y,
			Mutable:        egg.Mutable,
			IncubationTime: egg.IncubationTime,
			Health:         egg.Health,
			Age:            egg.Age,
			Generation:     egg.Generation,
			Genome:         egg.Genome,
		}})
	}
	sort.Slice(eggs, func(i, j int) bool { return eggs[i].id < eggs[j].id })
	for _, e := range eggs {
		snap.Eggs = append(snap.Eggs, e.rec)
	}

	query := d.creatureFilter.Query()
	for query.Next() {
		pos, rot, body, meta, kin, _, cr := query.Get()
		snap.Creatures = append(snap.Creatures, CreatureRecord{
			ID: meta.ID,
			X:  pos.X, Y: pos.Y,
			Size:        body.Size,
			Orientation: rot.Heading,
			State:       meta.State,
			Color:       body.Hue,
			Mutable:     cr.Mutable,

			Acceleration:           kin.Acceleration,
			AccelerationAngle:      kin.AccelerationAngle,
			RotationalAcceleration: kin.RotationalAcceleration,
			Velocity:               kin.Velocity,
			VelocityAngle:          kin.VelocityAngle,
			RotationalVelocity:     kin.RotationalVelocity,

			Age:        cr.Age,
			Health:     cr.Health,
			Energy:     cr.Energy,
			Generation: cr.Generation,
			Genome:     cr.Genome,
		})
	}
	sort.Slice(snap.Creatures, func(i, j int) bool {
		return snap.Creatures[i].ID < snap.Creatures[j].ID
	})

	return snap
}

// WriteFile writes the snapshot as indented JSON.
func (s *Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return snap, nil
}

// Apply replaces the world contents with the snapshot's. Restored genomes
// bump the gene ID counters so newly allocated IDs stay unique.
func (s *Snapshot) Apply(d *SimulationData) {
	clearWorld(d)

	d.Env.SetFoodDensity(s.FoodDensity)
	d.Env.SetCreatureDensity(s.CreatureDensity)

	for _, f := range s.Food {
		e := d.SpawnFood(f.Type, f.X, f.Y, f.Size)
		food := d.foodMap.Get(e)
		food.NutritionalValue = f.NutritionalValue
		food.Age = f.Age
		food.Lifespan = f.Lifespan
		body := d.bodyMap.Get(e)
		body.Hue = f.Color
		rot := d.rotMap.Get(e)
		rot.Heading = f.Orientation
		meta := d.metaMap.Get(e)
		meta.State = f.State
	}

	for _, rec := range s.Eggs {
		normalizeGenome(rec.Genome)
		e := d.SpawnEgg(components.GestatingEgg{
			Genome:         rec.Genome,
			Mutable:        rec.Mutable,
			Generation:     rec.Generation,
			Age:            rec.Age,
			IncubationTime: rec.IncubationTime,
		}, rec.X, rec.Y)
		egg := d.eggMap.Get(e)
		egg.Health = rec.Health
	}

	for _, rec := range s.Creatures {
		normalizeGenome(rec.Genome)
		e := d.SpawnCreature(rec.Genome, rec.Mutable, rec.X, rec.Y, rec.Orientation, rec.Generation)

		body := d.bodyMap.Get(e)
		body.Size = rec.Size
		body.Hue = rec.Color
		meta := d.metaMap.Get(e)
		meta.State = rec.State
		// Keep the persisted identity; fresh IDs continue past it.
		meta.ID = rec.ID
		if rec.ID > d.nextID {
			d.nextID = rec.ID
		}

		kin := d.kinMap.Get(e)
		kin.Acceleration = rec.Acceleration
		kin.AccelerationAngle = rec.AccelerationAngle
		kin.RotationalAcceleration = rec.RotationalAcceleration
		kin.Velocity = rec.Velocity
		kin.VelocityAngle = rec.VelocityAngle
		kin.RotationalVelocity = rec.RotationalVelocity

		cr := d.creatureMap.Get(e)
		cr.Age = rec.Age
		cr.Health = rec.Health
		cr.Energy = rec.Energy
	}

	d.RefreshGrid()
}

// clearWorld removes every entity. Entities are collected first so no
// query observes a structural change mid-iteration.
func clearWorld(d *SimulationData) {
	var doomed []ecs.Entity

	creatureQuery := d.creatureFilter.Query()
	for creatureQuery.Next() {
		doomed = append(doomed, creatureQuery.Entity())
	}
	foodQuery := d.foodFilter.Query()
	for foodQuery.Next() {
		doomed = append(doomed, foodQuery.Entity())
	}
	eggQuery := d.eggFilter.Query()
	for eggQuery.Next() {
		doomed = append(doomed, eggQuery.Entity())
	}
	scentQuery := d.pheromoneFilter.Query()
	for scentQuery.Next() {
		doomed = append(doomed, scentQuery.Entity())
	}

	for _, e := range doomed {
		d.world.RemoveEntity(e)
	}

	d.Reproduce = d.Reproduce[:0]
	d.NewReproduce = d.NewReproduce[:0]
	d.Grid.Clear()
}

// normalizeGenome bumps the process-wide gene ID counters past every ID a
// restored genome carries.
func normalizeGenome(g *neat.Genome) {
	if g == nil {
		return
	}
	for _, n := range g.Neurons {
		neat.BumpNeuronID(n.ID)
	}
	for _, l := range g.Links {
		neat.BumpLinkID(l.ID)
	}
}
