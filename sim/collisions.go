package sim

import (
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/geom"
	"github.com/evolution-simulator/evosim/systems"
)

// CollisionManager runs the pairwise collision pass over the entity grid.
// Detection is parallelized per grid cell; the mutating dispatch runs under
// a critical section.
type CollisionManager struct {
	// collisions counts dispatched collision events in the last pass.
	collisions int

	// eggDrops buffers food spawns from cracked eggs; entity creation
	// must wait for the detection workers to quiesce.
	eggDrops []foodDrop
}

// foodDrop is a buffered food spawn.
type foodDrop struct {
	x, y, size float64
}

// CheckCollisions scans every grid cell, testing each entity against the
// entities of its neighbor cells within a layer proportional to its size.
// Each colliding pair dispatches once, driven by the entity whose cell is
// being scanned.
func (cm *CollisionManager) CheckCollisions(d *SimulationData) {
	env := config.Cfg().Environment
	cellSize := d.Grid.CellSize()
	tolerance := env.Tolerance

	cols := d.Grid.Cols()
	rows := d.Grid.Rows()
	cells := cols * rows

	numWorkers := runtime.GOMAXPROCS(0)
	chunk := (cells + numWorkers - 1) / numWorkers

	// Neighbor cells wrap over the columns and rows that cover the map; the
	// grid's extra trailing column and row lie past the map edge.
	mapCols := int(math.Ceil(d.Env.Width / cellSize))
	mapRows := int(math.Ceil(d.Env.Height / cellSize))

	var mu sync.Mutex
	count := 0
	// dispatched records each pair handled this pass, in both orders.
	dispatched := make(map[[2]ecs.Entity]bool)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := min(start+chunk, cells)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(i0, i1 int) {
			defer wg.Done()
			var neighbors []geom.Cell

			for i := i0; i < i1; i++ {
				cell := geom.Cell{X: i % cols, Y: i / cols}
				for _, e1 := range d.Grid.At(cell) {
					body1 := d.bodyMap.Get(e1)
					pos1 := d.posMap.Get(e1)
					if body1 == nil || pos1 == nil {
						continue
					}

					layer := int(math.Ceil(2 * body1.Size / cellSize))
					neighbors = neighbors[:0]
					for dy := -layer; dy <= layer; dy++ {
						for dx := -layer; dx <= layer; dx++ {
							neighbors = append(neighbors, geom.Cell{
								X: ((cell.X+dx)%mapCols + mapCols) % mapCols,
								Y: ((cell.Y+dy)%mapRows + mapRows) % mapRows,
							})
						}
					}

					for _, nc := range neighbors {
						for _, e2 := range d.Grid.At(nc) {
							if e1 == e2 {
								continue
							}
							pos2 := d.posMap.Get(e2)
							body2 := d.bodyMap.Get(e2)
							if pos2 == nil || body2 == nil {
								continue
							}
							if !systems.Colliding(*pos1, *pos2, body1.Size, body2.Size,
								tolerance, d.Env.Width, d.Env.Height) {
								continue
							}

							mu.Lock()
							// Re-check under the lock: an earlier dispatch may
							// already have handled or separated the pair.
							pair := [2]ecs.Entity{e1, e2}
							if !dispatched[pair] && systems.Colliding(*pos1, *pos2, body1.Size, body2.Size,
								tolerance, d.Env.Width, d.Env.Height) {
								dispatched[pair] = true
								dispatched[[2]ecs.Entity{e2, e1}] = true
								cm.onCollision(d, e1, e2)
								count++
							}
							mu.Unlock()
						}
					}
				}
			}
		}(start, end)
	}
	wg.Wait()

	for _, drop := range cm.eggDrops {
		d.SpawnFood(components.FoodEgg, drop.x, drop.y, drop.size)
	}
	cm.eggDrops = cm.eggDrops[:0]

	cm.collisions = count
}

// onCollision dispatches on the kinds of the colliding pair. Runs under the
// collision critical section.
func (cm *CollisionManager) onCollision(d *SimulationData, e1, e2 ecs.Entity) {
	cr1 := d.creatureMap.Get(e1)
	cr2 := d.creatureMap.Get(e2)

	// Creature vs food: bite instead of push. Creature vs egg: a hunting
	// creature cracks it, otherwise the egg is pushed like any body.
	if cr1 != nil {
		if food := d.foodMap.Get(e2); food != nil {
			cm.creatureEatsFood(d, e1, cr1, e2, food)
			return
		}
		if egg := d.eggMap.Get(e2); egg != nil && cm.creatureBreaksEgg(d, e1, cr1, e2, egg) {
			return
		}
	}
	if cr2 != nil {
		if food := d.foodMap.Get(e1); food != nil {
			cm.creatureEatsFood(d, e2, cr2, e1, food)
			return
		}
		if egg := d.eggMap.Get(e1); egg != nil && cm.creatureBreaksEgg(d, e2, cr2, e1, egg) {
			return
		}
	}

	// Pheromones are scent markers, not solid bodies.
	if d.pheromoneMap.Get(e1) != nil || d.pheromoneMap.Get(e2) != nil {
		return
	}

	pos1 := d.posMap.Get(e1)
	pos2 := d.posMap.Get(e2)
	body1 := d.bodyMap.Get(e1)
	body2 := d.bodyMap.Get(e2)
	if pos1 == nil || pos2 == nil || body1 == nil || body2 == nil {
		return
	}
	if err := systems.ResolveOverlap(pos1, body1.Size, pos2, body2.Size,
		config.Cfg().Environment.Tolerance, d.Env.Width, d.Env.Height); err != nil {
		slog.Warn("collision_unresolved", "err", err)
	}
}

// creatureEatsFood bites the food if the creature is willing and off
// cooldown. Fully consumed food dies in place.
func (cm *CollisionManager) creatureEatsFood(d *SimulationData, ce ecs.Entity,
	cr *components.Creature, fe ecs.Entity, food *components.Food) {

	meta := d.metaMap.Get(fe)
	body := d.bodyMap.Get(fe)
	if meta == nil || body == nil || meta.State != components.Alive {
		return
	}
	if cr.Digestion.EatingCooldown > 0 || !cr.Digestion.WantsToBite {
		return
	}

	if consumed := systems.Bite(cr, food, body); consumed {
		meta.State = components.Dead
	}
}

// creatureBreaksEgg lets a larger, hunting creature crack an egg; the shell
// becomes an egg-flavored food drop. Returns false when the egg is left
// intact.
func (cm *CollisionManager) creatureBreaksEgg(d *SimulationData, ce ecs.Entity,
	cr *components.Creature, ee ecs.Entity, egg *components.Egg) bool {

	if !cr.Digestion.WantsToBite || cr.Digestion.EatingCooldown > 0 {
		return false
	}

	meta := d.metaMap.Get(ee)
	pos := d.posMap.Get(ee)
	body := d.bodyMap.Get(ee)
	ceBody := d.bodyMap.Get(ce)
	if meta == nil || pos == nil || body == nil || ceBody == nil {
		return false
	}
	if meta.State != components.Alive || ceBody.Size <= body.Size {
		return false
	}

	meta.State = components.Dead
	cm.eggDrops = append(cm.eggDrops, foodDrop{x: pos.X, y: pos.Y, size: body.Size})
	return true
}

// Collisions returns the number of collision events dispatched by the last
// pass.
func (cm *CollisionManager) Collisions() int {
	return cm.collisions
}
