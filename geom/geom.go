// Package geom provides toroidal geometry primitives for the simulation map.
package geom

import "math"

// Point is a position in map coordinates.
type Point struct {
	X, Y float64
}

// Wrap reduces a coordinate modulo the map extent into [0, max).
func Wrap(v, max float64) float64 {
	v = math.Mod(v, max)
	if v < 0 {
		v += max
	}
	return v
}

// ToroidalDelta returns the shortest-path delta from (x1,y1) to (x2,y2) on a
// torus of the given size. Each component wraps to the nearer image.
func ToroidalDelta(x1, y1, x2, y2, w, h float64) (dx, dy float64) {
	dx = x2 - x1
	dy = y2 - y1

	if dx > w/2 {
		dx -= w
	} else if dx < -w/2 {
		dx += w
	}
	if dy > h/2 {
		dy -= h
	} else if dy < -h/2 {
		dy += h
	}

	return dx, dy
}

// ToroidalDistance returns the distance between two points taking the
// shorter wrap along each axis.
func ToroidalDistance(a, b Point, w, h float64) float64 {
	xDiff := math.Abs(a.X - b.X)
	yDiff := math.Abs(a.Y - b.Y)
	return math.Hypot(math.Min(xDiff, w-xDiff), math.Min(yDiff, h-yDiff))
}

// Dist returns the toroidal distance to another point.
func (p Point) Dist(other Point, w, h float64) float64 {
	return ToroidalDistance(p, other, w, h)
}
