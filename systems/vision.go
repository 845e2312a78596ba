package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/geom"
	"github.com/evolution-simulator/evosim/neat"
	"github.com/evolution-simulator/evosim/rng"
)

// InitVision derives the vision cone from the mutable traits: the radius is
// the vision factor and the angle narrows as the radius grows, keeping the
// angle-radius product constant.
func InitVision(cr *components.Creature) {
	pc := config.Cfg().PhysicalConstraints
	cr.Vision.Radius = cr.Mutable.VisionFactor
	cr.Vision.Angle = pc.VisionARRatio / cr.Mutable.VisionFactor
}

// seenEntity is one cone hit during the BFS.
type seenEntity struct {
	entity      ecs.Entity
	distance    float64
	orientation float64
	size        float64
}

// VisionQuery bundles the lookups ProcessVision needs.
type VisionQuery struct {
	Grid        *EntityGrid
	PosMap      *ecs.Map1[components.Position]
	BodyMap     *ecs.Map1[components.Body]
	FoodMap     *ecs.Map1[components.Food]
	CreatureMap *ecs.Map1[components.Creature]
	Width       float64
	Height      float64
}

// ProcessVision runs the cone query for one creature: a BFS over grid
// cells pruned by the conservative cone-overlap test. It fills the vision
// snapshot with the closest plant, the closest meat and one extra target
// per active vision module. When a channel sees nothing its distance falls
// back to the vision radius and its orientation to a random angle inside
// the cone.
func ProcessVision(cr *components.Creature, self ecs.Entity,
	pos components.Position, heading float64, q VisionQuery, r *rng.Rand) {

	eps := config.Cfg().Engine.EPS
	maxFoodSize := config.Cfg().Environment.MaxFoodSize
	cellSize := q.Grid.CellSize()

	center := geom.Point{X: pos.X, Y: pos.Y}
	left := geom.NewOrientedAngle(heading - cr.Vision.Angle/2)
	right := geom.NewOrientedAngle(heading + cr.Vision.Angle/2)

	moduleTargets := 0
	for _, m := range cr.Genome.Modules {
		if m.ModuleID == neat.ModuleVision {
			moduleTargets++
		}
	}

	// Cell budget: the cone's area in cells, padded by the largest entity
	// overhang; the configured budget is the floor.
	pad := 2*math.Sqrt2*cellSize + maxFoodSize
	budget := int(math.Pi * (cr.Vision.Radius + pad) * (cr.Vision.Radius + pad) /
		(cellSize * cellSize))
	if floor := config.Cfg().Engine.MaxCellsToFindFood; budget < floor {
		budget = floor
	}

	var closestPlant, closestMeat *seenEntity
	var extras []seenEntity

	start := q.Grid.CellOf(pos.X, pos.Y)
	queue := []geom.Cell{start}
	visited := map[geom.Cell]bool{start: true}
	processed := 0

	done := func() bool {
		return closestPlant != nil && closestMeat != nil && len(extras) >= moduleTargets
	}

	for len(queue) > 0 && !done() {
		cell := queue[0]
		queue = queue[1:]
		processed++

		for _, e := range q.Grid.At(cell) {
			if e == self {
				continue
			}
			ePos := q.PosMap.Get(e)
			eBody := q.BodyMap.Get(e)
			if ePos == nil || eBody == nil {
				continue
			}

			target := geom.Point{X: ePos.X, Y: ePos.Y}
			direction := geom.AngleBetween(center, target, q.Width, q.Height)
			distance := center.Dist(target, q.Width, q.Height)

			if !inCone(direction, distance, eBody.Size, cr.Vision.Radius, left, right, eps) {
				continue
			}

			seen := seenEntity{
				entity:      e,
				distance:    distance - eBody.Size,
				orientation: geom.NewOrientedAngle(direction.Angle() - heading).Angle(),
				size:        eBody.Size,
			}

			if food := q.FoodMap.Get(e); food != nil {
				switch food.Type {
				case components.FoodPlant:
					if closestPlant == nil || seen.distance < closestPlant.distance {
						s := seen
						closestPlant = &s
					}
				default:
					if closestMeat == nil || seen.distance < closestMeat.distance {
						s := seen
						closestMeat = &s
					}
				}
			} else if q.CreatureMap.Get(e) != nil && len(extras) < moduleTargets {
				extras = append(extras, seen)
			}
		}

		if processed > budget {
			break
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx*dx+dy*dy != 1 {
					continue
				}
				next := q.Grid.WrapCell(geom.Cell{X: cell.X + dx, Y: cell.Y + dy})
				if visited[next] {
					continue
				}
				origin := geom.Point{X: float64(next.X) * cellSize, Y: float64(next.Y) * cellSize}
				if geom.CellPossiblyInCone(origin, cellSize, center, cr.Vision.Radius,
					left, right, maxFoodSize, eps, q.Width, q.Height) {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	v := &cr.Vision
	if closestPlant != nil {
		v.DistancePlant = closestPlant.distance
		v.OrientationPlant = closestPlant.orientation
		v.PlantSize = closestPlant.size
	} else {
		v.DistancePlant = v.Radius
		v.OrientationPlant = r.Uniform(-v.Angle/2, v.Angle/2)
		v.PlantSize = -1
	}
	if closestMeat != nil {
		v.DistanceMeat = closestMeat.distance
		v.OrientationMeat = closestMeat.orientation
		v.MeatSize = closestMeat.size
	} else {
		v.DistanceMeat = v.Radius
		v.OrientationMeat = r.Uniform(-v.Angle/2, v.Angle/2)
		v.MeatSize = -1
	}

	v.ModuleInputs = v.ModuleInputs[:0]
	for i := 0; i < moduleTargets; i++ {
		if i < len(extras) {
			v.ModuleInputs = append(v.ModuleInputs,
				extras[i].distance, extras[i].orientation, extras[i].size)
		} else {
			v.ModuleInputs = append(v.ModuleInputs,
				v.Radius, r.Uniform(-v.Angle/2, v.Angle/2), -1)
		}
	}
}

// inCone reports whether a circle of the given size at distance and
// direction is visible: either its center lies inside the cone within the
// radius, or it straddles a cone edge with its rim still in range.
func inCone(direction geom.OrientedAngle, distance, size, radius float64,
	left, right geom.OrientedAngle, eps float64) bool {

	angleDistance := direction.AngleDistanceToCone(left, right)

	if angleDistance < eps {
		return distance <= radius+size+eps
	}

	onEdge := angleDistance <= math.Pi/2 &&
		distance*math.Sin(angleDistance) <= size+eps
	if onEdge {
		return distance*math.Cos(angleDistance) <= radius+eps
	}
	return false
}
