package neat

import "github.com/evolution-simulator/evosim/rng"

// Link is a weighted connection gene between two neurons. The Cyclic flag is
// authored at mutation time: it is true iff inserting the link would
// otherwise close a directed cycle through non-cyclic links. Activation
// treats cyclic links as carrying the previous tick's source value.
type Link struct {
	ID     int     `json:"id"`
	In     int     `json:"in"`
	Out    int     `json:"out"`
	Weight float64 `json:"weight"`
	Active bool    `json:"active"`
	Cyclic bool    `json:"cyclic"`
}

// NewLink creates a link with a freshly allocated ID.
func NewLink(in, out int, weight float64) Link {
	return Link{
		ID:     nextLinkID(),
		In:     in,
		Out:    out,
		Weight: weight,
		Active: true,
	}
}

// RestoreLink rebuilds a link with an explicit ID from persisted state.
func RestoreLink(id, in, out int, weight float64, active, cyclic bool) Link {
	BumpLinkID(id)
	return Link{ID: id, In: in, Out: out, Weight: weight, Active: active, Cyclic: cyclic}
}

// CrossoverLink combines two links with matching IDs. The weight is picked
// uniformly from either parent; the remaining fields come from a.
func CrossoverLink(a, b Link, r *rng.Rand) (Link, error) {
	if a.ID != b.ID {
		return Link{}, ErrLinkIDMismatch
	}

	child := a
	child.Weight = r.ChooseFloat(a.Weight, b.Weight)
	return child, nil
}
