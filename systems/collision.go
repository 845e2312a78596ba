package systems

import (
	"errors"
	"math"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/geom"
)

// ErrZeroCollisionDistance marks two entities at the exact same point; the
// push direction is undefined and the collision is skipped.
var ErrZeroCollisionDistance = errors.New("systems: collision distance is zero")

// Colliding reports whether two circles overlap within the tolerance, using
// toroidal distance.
func Colliding(a, b components.Position, ra, rb, tolerance, w, h float64) bool {
	d := geom.ToroidalDistance(geom.Point{X: a.X, Y: a.Y}, geom.Point{X: b.X, Y: b.Y}, w, h)
	return d < ra+rb+tolerance
}

// ResolveOverlap separates two circles colliding within the tolerance by
// moving the smaller one along the center-to-center axis by the overlap.
// The push lands just past the tolerance band so the pair does not register
// as colliding again this tick. Positions wrap after the push.
func ResolveOverlap(posA *components.Position, sizeA float64, posB *components.Position, sizeB float64, tolerance, w, h float64) error {
	dx, dy := geom.ToroidalDelta(posA.X, posA.Y, posB.X, posB.Y, w, h)
	distance := math.Hypot(dx, dy)
	if distance == 0 {
		return ErrZeroCollisionDistance
	}

	overlap := sizeA + sizeB - distance
	if overlap+tolerance <= 0 {
		return nil
	}
	overlap += 2 * tolerance

	pushX := overlap * dx / distance
	pushY := overlap * dy / distance

	if sizeA > sizeB {
		posB.X = geom.Wrap(posB.X+pushX, w)
		posB.Y = geom.Wrap(posB.Y+pushY, h)
	} else {
		posA.X = geom.Wrap(posA.X-pushX, w)
		posA.Y = geom.Wrap(posA.Y-pushY, h)
	}
	return nil
}
