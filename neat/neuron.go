// Package neat implements the genome representation and feed-forward
// activation used by creature brains: neurons, links, brain modules,
// structural and weight mutations, crossover, the compatibility metric and
// network construction with cyclic-link support.
package neat

import (
	"errors"
	"sync/atomic"

	"github.com/evolution-simulator/evosim/rng"
)

// NeuronKind distinguishes input, hidden and output neurons.
type NeuronKind int

const (
	KindInput NeuronKind = iota
	KindHidden
	KindOutput
)

// Activation selects a neuron's activation function.
type Activation int

const (
	ActSigmoid Activation = iota
	ActRelu
	ActElu
	ActLeakyRelu
	ActBinary
	ActLinear
	ActTanh
)

// activationCount is the number of Activation values.
const activationCount = 7

// Errors raised by crossover on mismatched genes. Reaching them is a bug in
// the caller: crossover pairs genes by ID.
var (
	ErrNeuronIDMismatch   = errors.New("neat: neurons must have the same id")
	ErrNeuronKindMismatch = errors.New("neat: neurons must have the same kind")
	ErrLinkIDMismatch     = errors.New("neat: links must have the same id")
)

// Neuron and link IDs are allocated from process-wide monotonic counters so
// that genes with equal IDs share ancestry across all genomes.
var (
	neuronIDCounter atomic.Int64
	linkIDCounter   atomic.Int64
)

func nextNeuronID() int { return int(neuronIDCounter.Add(1)) }
func nextLinkID() int   { return int(linkIDCounter.Add(1)) }

// BumpNeuronID raises the neuron ID counter to at least id. Called when
// restoring genomes from a snapshot.
func BumpNeuronID(id int) {
	for {
		cur := neuronIDCounter.Load()
		if cur >= int64(id) || neuronIDCounter.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

// BumpLinkID raises the link ID counter to at least id.
func BumpLinkID(id int) {
	for {
		cur := linkIDCounter.Load()
		if cur >= int64(id) || linkIDCounter.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

// Neuron is a single gene of the network graph. ID and Kind are immutable
// after creation; bias, active flag and activation mutate.
type Neuron struct {
	ID         int        `json:"id"`
	Kind       NeuronKind `json:"kind"`
	Bias       float64    `json:"bias"`
	Active     bool       `json:"active"`
	Activation Activation `json:"activation"`
}

// NewNeuron creates a neuron with a freshly allocated ID.
func NewNeuron(kind NeuronKind, bias float64) Neuron {
	return Neuron{
		ID:         nextNeuronID(),
		Kind:       kind,
		Bias:       bias,
		Active:     true,
		Activation: ActLinear,
	}
}

// RestoreNeuron rebuilds a neuron with an explicit ID from persisted state.
func RestoreNeuron(id int, kind NeuronKind, bias float64, active bool, activation Activation) Neuron {
	BumpNeuronID(id)
	return Neuron{ID: id, Kind: kind, Bias: bias, Active: active, Activation: activation}
}

// CrossoverNeuron combines two neurons with matching ID and kind. The bias
// is picked uniformly from either parent; the remaining fields come from a.
func CrossoverNeuron(a, b Neuron, r *rng.Rand) (Neuron, error) {
	if a.ID != b.ID {
		return Neuron{}, ErrNeuronIDMismatch
	}
	if a.Kind != b.Kind {
		return Neuron{}, ErrNeuronKindMismatch
	}

	child := a
	child.Bias = r.ChooseFloat(a.Bias, b.Bias)
	return child, nil
}
