package sim

import (
	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/species"
)

// CreaturePoints returns the clustering view of the live population:
// creature ID to genome, traits and hue. Call while holding the data
// accessor.
func (d *SimulationData) CreaturePoints() map[uint64]species.Point {
	points := make(map[uint64]species.Point)

	query := d.creatureFilter.Query()
	for query.Next() {
		_, _, body, meta, _, _, cr := query.Get()
		if meta.State != components.Alive {
			continue
		}
		points[meta.ID] = species.Point{
			Genome:  cr.Genome,
			Mutable: cr.Mutable,
			Alive:   true,
			Hue:     body.Hue,
		}
	}
	return points
}
