// Package species clusters the population into species with a DBSCAN over
// the combined genome/trait compatibility distance. The cluster runs on its
// own cadence, independent of the simulation tick, and guards its state
// with its own lock.
package species

import (
	"sync"

	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
)

// Noise is the label of unclassified points.
const Noise = 0

// Point is the clustering view of one creature.
type Point struct {
	Genome  *neat.Genome
	Mutable mutable.Mutable
	Alive   bool
	Hue     float64
}

// distance is the clustering metric: genome compatibility plus trait
// compatibility.
func distance(a, b *Point) float64 {
	return a.Genome.Compatibility(b.Genome) + a.Mutable.Compatibility(&b.Mutable)
}

// Cluster is the DBSCAN engine. Dead creatures' points are retained so
// newborn labeling stays continuous across generations.
type Cluster struct {
	mu sync.Mutex

	epsilon float64
	minPts  int

	points        map[uint64]*Point
	species       map[uint64]int
	corePoints    []uint64
	speciesColors map[int]float64
	nextLabel     int
}

// NewCluster creates a cluster with the given density parameters.
func NewCluster(epsilon float64, minPts int) *Cluster {
	return &Cluster{
		epsilon:       epsilon,
		minPts:        minPts,
		points:        make(map[uint64]*Point),
		species:       make(map[uint64]int),
		speciesColors: make(map[int]float64),
	}
}

// Init replaces the point set and runs one full DBSCAN pass.
func (c *Cluster) Init(points map[uint64]Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.points = make(map[uint64]*Point, len(points))
	for id, p := range points {
		point := p
		c.points[id] = &point
	}
	c.run()
}

// AddNewborns labels new creatures against the existing core points: the
// first core point within epsilon donates its label, otherwise the newborn
// is noise.
func (c *Cluster) AddNewborns(newborns map[uint64]Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, p := range newborns {
		if _, known := c.points[id]; known {
			continue
		}
		point := p
		c.points[id] = &point

		label := Noise
		for _, coreID := range c.corePoints {
			core, ok := c.points[coreID]
			if !ok {
				continue
			}
			if distance(&point, core) < c.epsilon {
				label = c.species[coreID]
				break
			}
		}
		c.species[id] = label
	}
}

// SyncAlive reconciles the cluster with the live population in one pass:
// retained points missing from current are marked dead, unknown IDs join as
// newborns labeled against the core points.
func (c *Cluster) SyncAlive(current map[uint64]Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, p := range c.points {
		if !p.Alive {
			continue
		}
		if _, alive := current[id]; !alive {
			p.Alive = false
		}
	}

	for id, p := range current {
		if _, known := c.points[id]; known {
			continue
		}
		point := p
		c.points[id] = &point

		label := Noise
		for _, coreID := range c.corePoints {
			core, ok := c.points[coreID]
			if !ok {
				continue
			}
			if distance(&point, core) < c.epsilon {
				label = c.species[coreID]
				break
			}
		}
		c.species[id] = label
	}
}

// UpdateDeadCreatures marks points dead; they keep their label and stay in
// the point set for label continuity.
func (c *Cluster) UpdateDeadCreatures(dead []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range dead {
		if p, ok := c.points[id]; ok {
			p.Alive = false
		}
	}
}

// Recluster reruns DBSCAN over all retained points.
func (c *Cluster) Recluster() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run()
}

// Species returns a copy of the creature-to-label map.
func (c *Cluster) Species() map[uint64]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[uint64]int, len(c.species))
	for id, label := range c.species {
		out[id] = label
	}
	return out
}

// SpeciesColors returns a copy of the label-to-hue map.
func (c *Cluster) SpeciesColors() map[int]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]float64, len(c.speciesColors))
	for label, hue := range c.speciesColors {
		out[label] = hue
	}
	return out
}

// SpeciesSizes counts the alive points per non-noise label.
func (c *Cluster) SpeciesSizes() map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	sizes := make(map[int]int)
	for id, label := range c.species {
		if label == Noise {
			continue
		}
		if p, ok := c.points[id]; ok && p.Alive {
			sizes[label]++
		}
	}
	return sizes
}

// run is the DBSCAN pass. Caller holds the lock.
func (c *Cluster) run() {
	c.species = make(map[uint64]int, len(c.points))
	c.corePoints = c.corePoints[:0]
	c.nextLabel = 0

	for id := range c.points {
		if _, processed := c.species[id]; processed {
			continue
		}

		neighbors := c.neighbors(id)
		if len(neighbors) < c.minPts {
			c.species[id] = Noise
			continue
		}

		c.nextLabel++
		c.expand(id, neighbors, c.nextLabel)
	}

	c.refreshColors()
}

// neighbors returns every point within epsilon of id, including itself.
func (c *Cluster) neighbors(id uint64) []uint64 {
	center := c.points[id]
	var result []uint64
	for otherID, other := range c.points {
		if distance(center, other) < c.epsilon {
			result = append(result, otherID)
		}
	}
	return result
}

// expand grows a cluster from a core point over density-reachable points.
func (c *Cluster) expand(id uint64, neighbors []uint64, label int) {
	c.species[id] = label
	c.corePoints = append(c.corePoints, id)

	for i := 0; i < len(neighbors); i++ {
		neighborID := neighbors[i]

		if existing, processed := c.species[neighborID]; processed {
			if existing == Noise {
				c.species[neighborID] = label
			}
			continue
		}

		c.species[neighborID] = label

		next := c.neighbors(neighborID)
		if len(next) >= c.minPts {
			c.corePoints = append(c.corePoints, neighborID)
			neighbors = append(neighbors, next...)
		}
	}
}

// refreshColors assigns each label the mean hue of its members. The map is
// rebuilt on every pass; hues from earlier passes are not kept.
func (c *Cluster) refreshColors() {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for id, label := range c.species {
		if label == Noise {
			continue
		}
		if p, ok := c.points[id]; ok {
			sums[label] += p.Hue
			counts[label]++
		}
	}

	colors := make(map[int]float64, len(sums))
	for label, sum := range sums {
		colors[label] = sum / float64(counts[label])
	}
	c.speciesColors = colors
}
