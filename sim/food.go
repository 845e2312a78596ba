package sim

import (
	"math"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
)

// FoodManager spawns plants according to the environment's density field
// and ages every food entity: plants grow, meat rots.
type FoodManager struct {
	// Per-worker random streams, persistent across ticks so draws advance.
	workers []*rng.Rand
	spawn   *rng.Rand
}

// workerRands hands out n persistent worker streams.
func (fm *FoodManager) workerRands(n int) []*rng.Rand {
	for len(fm.workers) < n {
		fm.workers = append(fm.workers, rng.NewWorker(len(fm.workers)))
	}
	return fm.workers[:n]
}

// plantAgingFactor controls how fast a plant's nutrition cap decays.
const plantAgingFactor = 0.002

// InitializeFood seeds the map with the starting plant population.
func (fm *FoodManager) InitializeFood(d *SimulationData) {
	for i := 0; i < 500; i++ {
		fm.GenerateMoreFood(d, 3)
	}
}

// GenerateMoreFood subdivides the map into spawn cells and rolls one plant
// per cell with probability density * area * spawn_rate * dt. Cells are
// processed by a worker pool with per-worker spawn buffers merged at the
// end.
func (fm *FoodManager) GenerateMoreFood(d *SimulationData, dt float64) {
	env := config.Cfg().Environment
	cellSize := env.GridCellSize
	cols := int(d.Env.Width / cellSize)
	rows := int(d.Env.Height / cellSize)
	if cols == 0 || rows == 0 {
		return
	}

	type spawn struct {
		x, y float64
	}
	numWorkers := runtime.GOMAXPROCS(0)
	buffers := make([][]spawn, numWorkers)
	rands := fm.workerRands(numWorkers)

	cells := cols * rows
	chunk := (cells + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := min(start+chunk, cells)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(worker, i0, i1 int) {
			defer wg.Done()
			r := rands[worker]
			for i := i0; i < i1; i++ {
				x := float64(i%cols) * cellSize
				y := float64(i/cols) * cellSize

				density := d.Env.FoodDensity(x, y)
				p := density * cellSize * cellSize * env.FoodSpawnRate * dt
				if r.Bernoulli(p) {
					buffers[worker] = append(buffers[worker], spawn{
						x: x + r.Float64()*cellSize,
						y: y + r.Float64()*cellSize,
					})
				}
			}
		}(w, start, end)
	}
	wg.Wait()

	if fm.spawn == nil {
		fm.spawn = rng.New()
	}
	for _, buf := range buffers {
		for _, s := range buf {
			size := 1 + fm.spawn.Float64()*(env.MaxFoodSize-1)
			d.SpawnFood(components.FoodPlant, s.x, s.y, size)
		}
	}
}

// UpdateAllFood ages every food entity over dt: plant nutrition grows up to
// an age-decaying cap, meat decays linearly and dies below a small negative
// threshold. Entities are collected first, then advanced by worker chunks.
func (fm *FoodManager) UpdateAllFood(d *SimulationData, dt float64) {
	var entities []ecs.Entity
	query := d.foodFilter.Query()
	for query.Next() {
		_, _, _, meta, _, _ := query.Get()
		if meta.State == components.Alive {
			entities = append(entities, query.Entity())
		}
	}
	if len(entities) == 0 {
		return
	}

	numWorkers := runtime.GOMAXPROCS(0)
	chunk := (len(entities) + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := min(start+chunk, len(entities))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(i0, i1 int) {
			defer wg.Done()
			for _, e := range entities[i0:i1] {
				food := d.foodMap.Get(e)
				body := d.bodyMap.Get(e)
				meta := d.metaMap.Get(e)
				if food == nil || body == nil || meta == nil {
					continue
				}
				updateFood(food, body, meta, dt)
			}
		}(start, end)
	}
	wg.Wait()
}

// updateFood advances one food entity.
func updateFood(food *components.Food, body *components.Body, meta *components.Meta, dt float64) {
	env := config.Cfg().Environment

	switch food.Type {
	case components.FoodPlant:
		nutrition := food.NutritionalValue + env.PhotosynthesisFactor*dt
		cap := env.MaxNutritionalValue * math.Exp(-plantAgingFactor*food.Age)
		if nutrition > cap {
			nutrition = cap
		}
		food.Age += dt
		if nutrition < 0.01 {
			meta.State = components.Dead
			return
		}
		food.NutritionalValue = nutrition
		body.Hue = 0.32 + (nutrition/env.PlantNutritionalValue-1)*0.06

	case components.FoodMeat, components.FoodEgg:
		nutrition := food.NutritionalValue - env.RotFactor*dt
		food.Age += dt
		if nutrition < -0.5 {
			meta.State = components.Dead
			return
		}
		food.NutritionalValue = nutrition
		body.Hue = (1 - nutrition/env.MeatNutritionalValue) / 7
	}
}
