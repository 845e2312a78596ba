package neat

import (
	"math"

	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
)

// Crossover builds an offspring genome gene by gene: every neuron and link
// of the dominant parent is emitted, combined with the recessive parent's
// matching gene when one exists. The offspring inherits the dominant
// parent's modules. An ID present in both parents with different neuron
// kinds is a fatal mismatch.
func Crossover(dominant, recessive *Genome, r *rng.Rand) (*Genome, error) {
	offspring := &Genome{}

	for _, dn := range dominant.Neurons {
		rn, ok := recessive.FindNeuron(dn.ID)
		if !ok {
			offspring.AddNeuron(dn)
			continue
		}
		child, err := CrossoverNeuron(dn, rn, r)
		if err != nil {
			return nil, err
		}
		offspring.AddNeuron(child)
	}

	for _, dl := range dominant.Links {
		var match *Link
		for i := range recessive.Links {
			if recessive.Links[i].ID == dl.ID {
				match = &recessive.Links[i]
				break
			}
		}
		if match == nil {
			offspring.AddLink(dl)
			continue
		}
		child, err := CrossoverLink(dl, *match, r)
		if err != nil {
			return nil, err
		}
		offspring.AddLink(child)
	}

	for _, m := range dominant.Modules {
		offspring.Modules = append(offspring.Modules, copyModule(m))
	}

	return offspring, nil
}

// Compatibility computes the distance between two genomes: a weighted sum of
// the normalized disjoint neuron count, the normalized disjoint link count
// and the mean relative bias/weight difference over shared genes.
func (g *Genome) Compatibility(other *Genome) float64 {
	cfg := config.Cfg().Compatibility

	var relDiff float64
	sharedNeurons := 0
	for _, n := range g.Neurons {
		on, ok := other.FindNeuron(n.ID)
		if !ok {
			continue
		}
		sharedNeurons++
		relDiff += relativeDifference(n.Bias, on.Bias)
	}

	sharedLinks := 0
	for _, l := range g.Links {
		for _, ol := range other.Links {
			if l.ID == ol.ID {
				sharedLinks++
				relDiff += relativeDifference(l.Weight, ol.Weight)
				break
			}
		}
	}

	if shared := sharedNeurons + sharedLinks; shared > 0 {
		relDiff /= float64(shared)
	}

	disjointNeurons := float64(len(g.Neurons) + len(other.Neurons) - 2*sharedNeurons)
	if norm := math.Max(float64(len(g.Neurons)), float64(len(other.Neurons))); norm > 0 {
		disjointNeurons /= norm
	}

	disjointLinks := float64(len(g.Links) + len(other.Links) - 2*sharedLinks)
	if norm := math.Max(float64(len(g.Links)), float64(len(other.Links))); norm > 0 {
		disjointLinks /= norm
	}

	return cfg.WeightSharedNeurons*disjointNeurons +
		cfg.WeightSharedLinks*disjointLinks +
		cfg.AverageWeightSharedLinks*relDiff
}

// relativeDifference is |a-b| / max(|a|,|b|), a value in [0, 2]; zero when
// both inputs are zero.
func relativeDifference(a, b float64) float64 {
	norm := math.Max(math.Abs(a), math.Abs(b))
	if norm == 0 {
		return 0
	}
	return math.Abs(a-b) / norm
}
