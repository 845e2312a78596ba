package geom

import "math"

// CellPossiblyInCone is a conservative overlap test between a square grid
// cell and a vision cone. It is used to prune the BFS over grid cells: false
// positives are acceptable, false negatives are not. The slack term accounts
// for the largest entity radius that could overhang a neighboring cell.
func CellPossiblyInCone(cellOrigin Point, cellSize float64, coneCenter Point,
	coneRadius float64, left, right OrientedAngle, slack, eps, w, h float64) bool {

	distance := cellOrigin.Dist(coneCenter, w, h)
	if distance < eps {
		return true
	}

	maxDistanceInCell := math.Sqrt2 * cellSize
	if distance > coneRadius+maxDistanceInCell+slack+eps {
		return false
	}

	cellAngle := AngleBetween(coneCenter, cellOrigin, w, h)
	angleDistance := cellAngle.AngleDistanceToCone(left, right)
	if math.Sin(angleDistance) > (maxDistanceInCell+slack)/distance+eps {
		return false
	}
	return true
}
