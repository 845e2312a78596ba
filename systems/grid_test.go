package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/geom"
)

func TestMain(m *testing.M) {
	config.MustInit("")
	m.Run()
}

func TestGridDimensions(t *testing.T) {
	g := NewEntityGrid(1900, 880, 50)
	if g.Cols() != 39 {
		t.Errorf("cols = %d, want ceil(1900/50)+1 = 39", g.Cols())
	}
	if g.Rows() != 19 {
		t.Errorf("rows = %d, want ceil(880/50)+1 = 19", g.Rows())
	}
}

func TestGridInsertAndLookup(t *testing.T) {
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[components.Position](world)

	g := NewEntityGrid(100, 100, 10)
	pos := components.Position{X: 35, Y: 77}
	e := mapper.NewEntity(&pos)

	g.Insert(e, pos.X, pos.Y)

	cell := g.CellOf(pos.X, pos.Y)
	if cell != (geom.Cell{X: 3, Y: 7}) {
		t.Fatalf("CellOf(35,77) = %v, want {3 7}", cell)
	}

	found := 0
	for col := 0; col < g.Cols(); col++ {
		for row := 0; row < g.Rows(); row++ {
			for _, got := range g.At(geom.Cell{X: col, Y: row}) {
				if got == e {
					found++
				}
			}
		}
	}
	if found != 1 {
		t.Errorf("entity appears in %d cells, want exactly 1", found)
	}

	g.Clear()
	if len(g.At(cell)) != 0 {
		t.Error("Clear left entities behind")
	}
}

func TestGridNeighborsWrap(t *testing.T) {
	g := NewEntityGrid(100, 100, 10)

	cells := g.AppendNeighbors(nil, geom.Cell{X: 0, Y: 0}, 1)
	if len(cells) != 9 {
		t.Fatalf("layer-1 neighborhood has %d cells, want 9", len(cells))
	}

	want := map[geom.Cell]bool{}
	for _, c := range cells {
		if c.X < 0 || c.X >= g.Cols() || c.Y < 0 || c.Y >= g.Rows() {
			t.Errorf("neighbor %v out of bounds", c)
		}
		want[c] = true
	}
	// The corner's diagonal neighbor through the wrap.
	if !want[(geom.Cell{X: g.Cols() - 1, Y: g.Rows() - 1})] {
		t.Error("wrap-around diagonal neighbor missing")
	}
	if len(want) != 9 {
		t.Errorf("neighborhood has duplicates: %d unique of 9", len(want))
	}
}

func TestGridAtWrapsIndices(t *testing.T) {
	g := NewEntityGrid(100, 100, 10)
	// Negative and overflowing indices must resolve to valid cells.
	_ = g.At(geom.Cell{X: -1, Y: -1})
	_ = g.At(geom.Cell{X: g.Cols() * 3, Y: g.Rows() * 2})
}
