package sim

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
	"github.com/evolution-simulator/evosim/systems"
)

func populatedData() *SimulationData {
	env := systems.NewEnvironment(400, 400)
	d := NewSimulationData(env)

	d.SpawnFood(components.FoodPlant, 50, 60, 3)
	d.SpawnFood(components.FoodMeat, 150, 160, 2)

	genome := neat.MinimallyViableGenome()
	traits := mutable.Default()
	d.SpawnCreature(genome.Copy(), traits, 100, 100, 0.5, 1)
	d.SpawnCreature(genome.Copy(), traits, 200, 200, -0.5, 2)

	d.SpawnEgg(components.GestatingEgg{
		Genome:         genome.Copy(),
		Mutable:        traits,
		Generation:     3,
		IncubationTime: 2,
	}, 300, 300)

	d.RefreshGrid()
	return d
}

func TestSnapshotCapturesWorld(t *testing.T) {
	d := populatedData()
	snap := TakeSnapshot(d)

	if len(snap.Creatures) != 2 {
		t.Fatalf("snapshot has %d creatures, want 2", len(snap.Creatures))
	}
	if len(snap.Food) != 2 {
		t.Fatalf("snapshot has %d food, want 2", len(snap.Food))
	}
	if len(snap.Eggs) != 1 {
		t.Fatalf("snapshot has %d eggs, want 1", len(snap.Eggs))
	}

	// Canonical ID order.
	if snap.Creatures[0].ID >= snap.Creatures[1].ID {
		t.Error("creatures not in ID order")
	}

	// Cross-referenced genome IDs resolve within the record.
	for _, cr := range snap.Creatures {
		ids := make(map[int]bool)
		for _, n := range cr.Genome.Neurons {
			ids[n.ID] = true
		}
		for _, l := range cr.Genome.Links {
			if !ids[l.In] || !ids[l.Out] {
				t.Fatalf("link %d references missing neuron", l.ID)
			}
		}
	}
}

func TestSnapshotRoundTripStable(t *testing.T) {
	d := populatedData()
	first := TakeSnapshot(d)

	path := filepath.Join(t.TempDir(), "world.json")
	if err := first.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	fresh := NewSimulationData(systems.NewEnvironment(400, 400))
	loaded.Apply(fresh)

	second := TakeSnapshot(fresh)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("snapshot not byte-stable across load/save:\n%s\n%s", a, b)
	}
}

func TestSnapshotApplyRebuildsState(t *testing.T) {
	d := populatedData()
	snap := TakeSnapshot(d)

	fresh := NewSimulationData(systems.NewEnvironment(400, 400))
	snap.Apply(fresh)

	if n := fresh.CreatureCount(); n != 2 {
		t.Errorf("restored creature count = %d, want 2", n)
	}
	if n := fresh.FoodCount(); n != 2 {
		t.Errorf("restored food count = %d, want 2", n)
	}
	if n := fresh.EggCount(); n != 1 {
		t.Errorf("restored egg count = %d, want 1", n)
	}

	// Restored creatures carry working brains.
	query := fresh.creatureFilter.Query()
	for query.Next() {
		_, _, _, _, _, _, cr := query.Get()
		if cr.Brain == nil {
			t.Fatal("restored creature has no network")
		}
		if _, err := cr.Brain.Activate(make([]float64, cr.Genome.InputCount())); err != nil {
			t.Fatalf("restored brain activation: %v", err)
		}
	}
}
