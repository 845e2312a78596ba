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

// InitPheromoneChannels derives the creature's active channels from its
// genome: each pheromone brain module binds one channel.
func InitPheromoneChannels(cr *components.Creature) {
	cr.Pheromones = components.PheromoneSense{}
	for _, m := range cr.Genome.Modules {
		if m.ModuleID == neat.ModulePheromone && m.Type >= 0 && m.Type < neat.PheromoneChannels {
			cr.Pheromones.Channels[m.Type] = true
		}
	}
}

// PheromoneSpawn is a pheromone entity waiting to be placed in the world.
type PheromoneSpawn struct {
	Channel int
	X, Y    float64
	Size    float64
}

// EmitPheromones rolls an emission for every channel with positive
// emission drive; the active-channel flags are not consulted. Probability grows with emission, body size and tick
// length; the scent lands near the creature with a spread of its size.
func EmitPheromones(cr *components.Creature, pos components.Position, body components.Body,
	dt, w, h float64, r *rng.Rand) []PheromoneSpawn {

	dEmission := config.Cfg().PhysicalConstraints.DPheromoneEmission

	var spawns []PheromoneSpawn
	for channel := 0; channel < neat.PheromoneChannels; channel++ {
		emission := cr.Pheromones.Emissions[channel]
		if emission <= 0 {
			continue
		}
		if !r.Bernoulli(emission * body.Size * dEmission * dt) {
			continue
		}
		spawns = append(spawns, PheromoneSpawn{
			Channel: channel,
			X:       geom.Wrap(pos.X+r.Normal(0, 1)*body.Size, w),
			Y:       geom.Wrap(pos.Y+r.Normal(0, 1)*body.Size, h),
			Size:    math.Sqrt(body.Size),
		})
	}
	return spawns
}

// DetectPheromones sums the weighted presence of nearby pheromones per
// active channel: distance x scent size x sensitivity, over the grid cells
// within the creature's reach.
func DetectPheromones(cr *components.Creature, pos components.Position, body components.Body,
	grid *EntityGrid,
	posMap *ecs.Map1[components.Position],
	bodyMap *ecs.Map1[components.Body],
	pheromoneMap *ecs.Map1[components.Pheromone],
	w, h float64) {

	sensitivity := config.Cfg().PhysicalConstraints.PheromoneDetectionSensitivity

	cr.Pheromones.Densities = [neat.PheromoneChannels]float64{}

	reach := int(body.Size / grid.CellSize())
	center := grid.CellOf(pos.X, pos.Y)

	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			for _, e := range grid.At(geom.Cell{X: center.X + dx, Y: center.Y + dy}) {
				scent := pheromoneMap.Get(e)
				if scent == nil || !cr.Pheromones.Channels[scent.Channel] {
					continue
				}
				sPos := posMap.Get(e)
				sBody := bodyMap.Get(e)
				if sPos == nil || sBody == nil {
					continue
				}
				distance := geom.ToroidalDistance(
					geom.Point{X: pos.X, Y: pos.Y},
					geom.Point{X: sPos.X, Y: sPos.Y}, w, h)
				cr.Pheromones.Densities[scent.Channel] += distance * sBody.Size * sensitivity
			}
		}
	}
}
