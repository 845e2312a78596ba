// Package systems implements the simulation subsystems that operate on
// component data: the spatial grid, movement physics, collisions, grab
// chains, vision, digestion, reproduction, pheromones and the environment.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/geom"
)

// EntityGrid buckets live entities into square cells over the toroidal map
// for neighbor queries and collision detection. Cells hold plain entity
// references; the grid owns nothing and is rebuilt every fixed tick.
type EntityGrid struct {
	cellSize float64
	cols     int
	rows     int
	width    float64
	height   float64
	cells    [][]ecs.Entity
}

// NewEntityGrid creates a grid covering the given map size.
func NewEntityGrid(width, height, cellSize float64) *EntityGrid {
	cols := int(math.Ceil(width/cellSize)) + 1
	rows := int(math.Ceil(height/cellSize)) + 1

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &EntityGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Cols returns the number of grid columns.
func (g *EntityGrid) Cols() int { return g.cols }

// Rows returns the number of grid rows.
func (g *EntityGrid) Rows() int { return g.rows }

// CellSize returns the side length of a cell.
func (g *EntityGrid) CellSize() float64 { return g.cellSize }

// Clear empties every cell, keeping capacity.
func (g *EntityGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// CellOf returns the cell containing a map position.
func (g *EntityGrid) CellOf(x, y float64) geom.Cell {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return geom.Cell{X: col, Y: row}
}

// Insert buckets an entity by position.
func (g *EntityGrid) Insert(e ecs.Entity, x, y float64) {
	c := g.CellOf(x, y)
	idx := c.Y*g.cols + c.X
	g.cells[idx] = append(g.cells[idx], e)
}

// WrapCell reduces cell indices modulo the grid dimensions.
func (g *EntityGrid) WrapCell(c geom.Cell) geom.Cell {
	return geom.Cell{
		X: ((c.X % g.cols) + g.cols) % g.cols,
		Y: ((c.Y % g.rows) + g.rows) % g.rows,
	}
}

// At returns the entities bucketed in a cell. Indices wrap toroidally.
func (g *EntityGrid) At(c geom.Cell) []ecs.Entity {
	col := ((c.X % g.cols) + g.cols) % g.cols
	row := ((c.Y % g.rows) + g.rows) % g.rows
	return g.cells[row*g.cols+col]
}

// AppendNeighbors appends every cell within the given layer distance of
// center, wrapping toroidally, and returns the extended slice. The center
// cell itself is included.
func (g *EntityGrid) AppendNeighbors(dst []geom.Cell, center geom.Cell, layer int) []geom.Cell {
	for dy := -layer; dy <= layer; dy++ {
		for dx := -layer; dx <= layer; dx++ {
			col := ((center.X+dx)%g.cols + g.cols) % g.cols
			row := ((center.Y+dy)%g.rows + g.rows) % g.rows
			dst = append(dst, geom.Cell{X: col, Y: row})
		}
	}
	return dst
}
