package neat

import (
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
)

// Mutate applies each mutation operator independently with its configured
// probability.
func (g *Genome) Mutate(r *rng.Rand) {
	cfg := config.Cfg().Neat

	if r.Bernoulli(cfg.AddNeuronMutationRate) {
		g.MutateAddNeuron(r)
	}
	if r.Bernoulli(cfg.AddLinkMutationRate) {
		g.MutateAddLink(r)
	}
	// Removal operators exist but are not applied here: removing genes can
	// orphan the cyclic flags authored by MutateAddLink.
	if r.Bernoulli(cfg.ChangeWeightMutationRate) {
		g.MutateChangeWeight(r)
	}
	if r.Bernoulli(cfg.ChangeBiasMutationRate) {
		g.MutateChangeBias(r)
	}
	if r.Bernoulli(cfg.ActivationFunctionMutationRate) {
		g.MutateActivationFunction(r)
	}
	if r.Bernoulli(cfg.ModuleActivationMutationRate) {
		g.MutateActivateBrainModule(r)
	}
	if r.Bernoulli(cfg.ModuleDisableMutationRate) {
		g.MutateDisableBrainModule(r)
	}
}

// MutateAddLink inserts a link from a random non-output neuron to a random
// non-input neuron. If the pair is already linked in either direction
// nothing happens. If the new link closes a cycle through non-cyclic links
// it is marked cyclic.
func (g *Genome) MutateAddLink(r *rng.Rand) {
	if len(g.Neurons) == 0 {
		return
	}

	src := r.UniformInt(0, len(g.Neurons)-1)
	for g.Neurons[src].Kind == KindOutput {
		src = r.UniformInt(0, len(g.Neurons)-1)
	}
	dst := r.UniformInt(0, len(g.Neurons)-1)
	for g.Neurons[dst].Kind == KindInput {
		dst = r.UniformInt(0, len(g.Neurons)-1)
	}

	in := g.Neurons[src].ID
	out := g.Neurons[dst].ID
	if g.HasLink(in, out) {
		return
	}

	g.AddLink(NewLink(in, out, 1))
	if g.DetectLoops(g.Neurons[src]) {
		g.Links[len(g.Links)-1].Cyclic = true
	}
}

// MutateAddNeuron splits a random link: the link is disabled and a hidden
// neuron is inserted with a unit-weight link in and the original weight out.
// A cyclic link keeps its flag on the outgoing half.
func (g *Genome) MutateAddNeuron(r *rng.Rand) {
	if len(g.Links) == 0 {
		return
	}

	split := g.Links[r.UniformInt(0, len(g.Links)-1)]
	g.DisableLink(split.ID)

	neuron := NewNeuron(KindHidden, 0)
	g.AddNeuron(neuron)

	g.AddLink(NewLink(split.In, neuron.ID, 1))
	outLink := NewLink(neuron.ID, split.Out, split.Weight)
	outLink.Cyclic = split.Cyclic
	g.AddLink(outLink)
}

// MutateChangeWeight perturbs each link weight with the configured
// per-link probability, clamping to the weight bounds.
func (g *Genome) MutateChangeWeight(r *rng.Rand) {
	cfg := config.Cfg().Neat
	for i := range g.Links {
		if !r.Bernoulli(cfg.WeightMutationRate) {
			continue
		}
		w := g.Links[i].Weight + r.Normal(0, cfg.StandardDeviationWeight)
		if w > cfg.MaxWeight {
			w = cfg.MaxWeight
		} else if w < cfg.MinWeight {
			w = cfg.MinWeight
		}
		g.Links[i].Weight = w
	}
}

// MutateChangeBias perturbs each neuron bias with the configured per-neuron
// probability, clamping to the bias bounds.
func (g *Genome) MutateChangeBias(r *rng.Rand) {
	cfg := config.Cfg().Neat
	for i := range g.Neurons {
		if !r.Bernoulli(cfg.BiasMutationRate) {
			continue
		}
		b := g.Neurons[i].Bias + r.Normal(0, cfg.StandardDeviationWeight)
		if b > cfg.MaxBias {
			b = cfg.MaxBias
		} else if b < cfg.MinBias {
			b = cfg.MinBias
		}
		g.Neurons[i].Bias = b
	}
}

// MutateActivationFunction reassigns a random hidden neuron's activation,
// chosen uniformly from all activation types.
func (g *Genome) MutateActivationFunction(r *rng.Rand) {
	hasHidden := false
	for _, n := range g.Neurons {
		if n.Kind == KindHidden {
			hasHidden = true
			break
		}
	}
	if !hasHidden {
		return
	}

	idx := r.UniformInt(0, len(g.Neurons)-1)
	for g.Neurons[idx].Kind != KindHidden {
		idx = r.UniformInt(0, len(g.Neurons)-1)
	}
	g.Neurons[idx].Activation = Activation(r.UniformInt(0, activationCount-1))
}

// MutateRemoveNeuron removes a random hidden neuron together with its links.
func (g *Genome) MutateRemoveNeuron(r *rng.Rand) {
	var hidden []int
	for _, n := range g.Neurons {
		if n.Kind == KindHidden {
			hidden = append(hidden, n.ID)
		}
	}
	if len(hidden) == 0 {
		return
	}
	g.RemoveNeuron(hidden[r.UniformInt(0, len(hidden)-1)])
}

// MutateRemoveLink removes a random link.
func (g *Genome) MutateRemoveLink(r *rng.Rand) {
	if len(g.Links) == 0 {
		return
	}
	g.RemoveLink(g.Links[r.UniformInt(0, len(g.Links)-1)].ID)
}

// MutateActivateBrainModule instantiates a random available module: its
// input and output neurons are appended to the genome and their IDs and
// starting indices recorded on the instance.
func (g *Genome) MutateActivateBrainModule(r *rng.Rand) {
	template := AvailableModules[r.UniformInt(0, len(AvailableModules)-1)]
	module := copyModule(template)
	if module.ModuleID == ModulePheromone {
		module.Type = r.UniformInt(0, PheromoneChannels-1)
	}

	for i := range module.InputIDs {
		if i == 0 {
			module.FirstInputIndex = g.InputCount()
		}
		n := NewNeuron(KindInput, 0)
		g.AddNeuron(n)
		module.InputIDs[i] = n.ID
	}
	for i := range module.OutputIDs {
		if i == 0 {
			module.FirstOutputIndex = g.OutputCount()
		}
		n := NewNeuron(KindOutput, 0)
		g.AddNeuron(n)
		module.OutputIDs[i] = n.ID
	}

	g.Modules = append(g.Modules, module)
}

// MutateDisableBrainModule removes a random activated module and its neurons.
func (g *Genome) MutateDisableBrainModule(r *rng.Rand) {
	if len(g.Modules) == 0 {
		return
	}

	idx := r.UniformInt(0, len(g.Modules)-1)
	module := g.Modules[idx]
	g.Modules = append(g.Modules[:idx], g.Modules[idx+1:]...)

	for _, id := range module.InputIDs {
		g.RemoveNeuron(id)
	}
	for _, id := range module.OutputIDs {
		g.RemoveNeuron(id)
	}
}
