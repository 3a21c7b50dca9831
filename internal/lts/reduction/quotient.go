package reduction

import (
	"github.com/dekarrin/symbane/internal/lts"
	"github.com/dekarrin/symbane/internal/lts/partition"
)

// Quotient builds the LTS whose states are blocks of p and whose
// transitions are the (deduplicated) image of the original transitions
// through p, optionally dropping inert tau self-loops (spec.md §4.3/§6).
func Quotient(l *lts.Lts, p partition.Partition, dropInertSelfLoops bool) *lts.Lts {
	n := l.NumStates()
	raw := make([]lts.RawTransition, 0, l.TransitionCount())
	labels := l.Labels()

	for s := 0; s < n; s++ {
		from := lts.StateIndex(p.BlockNumber(lts.StateIndex(s)))
		for _, tr := range l.Outgoing(lts.StateIndex(s)) {
			to := lts.StateIndex(p.BlockNumber(tr.Target()))
			if dropInertSelfLoops && tr.Label() == lts.TauLabel && from == to {
				continue
			}
			raw = append(raw, lts.RawTransition{From: from, Label: labels[tr.Label()], To: to})
		}
	}

	b := lts.NewBuilder(lts.StateIndex(p.BlockNumber(l.Initial())), lts.NewSliceSource(raw), labels[1:], nil).
		WithStateCount(p.NumOfBlocks())

	out, err := b.Build()
	if err != nil {
		// A quotient of a well-formed Lts over a partition that assigns
		// every state a block in [0, NumOfBlocks) cannot overflow or
		// reference an unknown label; a failure here means the caller
		// passed an inconsistent partition.
		panic("lts/reduction: Quotient produced an invalid Lts: " + err.Error())
	}
	return out
}
