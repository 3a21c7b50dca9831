package reduction

import (
	"sort"

	"github.com/dekarrin/symbane/internal/lts"
	"github.com/dekarrin/symbane/internal/lts/partition"
	"github.com/dekarrin/symbane/internal/util"
)

// Pair is a single (label, target-block) entry of a state's signature.
type Pair struct {
	Label lts.LabelIndex
	Block int
}

func less(a, b Pair) bool {
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.Block < b.Block
}

// Signature is a sorted, deduplicated sequence of (label, target-block)
// pairs summarizing a state's outgoing behavior modulo a partition
// (spec.md §3, §4.5).
type Signature []Pair

func sortDedup(pairs []Pair) Signature {
	sort.Slice(pairs, func(i, j int) bool { return less(pairs[i], pairs[j]) })
	out := pairs[:0:0]
	for i, p := range pairs {
		if i == 0 || p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return Signature(out)
}

// Equal reports whether two signatures have identical contents.
func (s Signature) Equal(o Signature) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// SignatureFn computes the signature of a state under a partition. The two
// variants in this package (StrongSignature, BranchingSignature) and the
// inductive one (SortedBranchingSignature) all have this shape.
type SignatureFn func(l *lts.Lts, s lts.StateIndex, p partition.Partition) Signature

// StrongSignature computes { (a, π(t)) | s -a-> t }, per spec.md §4.5.
func StrongSignature(l *lts.Lts, s lts.StateIndex, p partition.Partition) Signature {
	out := l.Outgoing(s)
	pairs := make([]Pair, 0, len(out))
	for _, tr := range out {
		pairs = append(pairs, Pair{Label: tr.Label(), Block: p.BlockNumber(tr.Target())})
	}
	return sortDedup(pairs)
}

// BranchingSignature computes the branching-bisimulation signature by a
// bounded DFS over tau edges staying inside π(s), per spec.md §4.5:
//
//	{ (a, π(t)) | ∃ tau-path s ⇒ s' -a-> t, every s_i on the path lies in
//	  π(s), and either a != tau or π(s) != π(t) }
func BranchingSignature(l *lts.Lts, s lts.StateIndex, p partition.Partition) Signature {
	ownBlock := p.BlockNumber(s)
	visited := util.NewKeySet[lts.StateIndex]()
	visited.Add(s)
	stack := []lts.StateIndex{s}
	var pairs []Pair

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, tr := range l.Outgoing(cur) {
			target := tr.Target()
			targetBlock := p.BlockNumber(target)

			if tr.Label() == lts.TauLabel && targetBlock == ownBlock {
				// Inert tau within π(s): continue the bounded DFS through
				// it, but it is not itself emitted.
				if !visited.Has(target) {
					visited.Add(target)
					stack = append(stack, target)
				}
				continue
			}
			pairs = append(pairs, Pair{Label: tr.Label(), Block: targetBlock})
		}
	}

	return sortDedup(pairs)
}

// SortedBranchingSignature computes the same multiset equivalence as
// BranchingSignature in one linear sweep, but requires l to be tau-loop-free
// and its states processed in reverse topological order (so that every
// inert-tau successor's signature is already available): for each outgoing
// transition, an inert tau inside π(s) contributes the target's
// already-computed signature; everything else emits (a, π(t)) directly
// (spec.md §4.5).
//
// computed must already hold the final signature for every state that is a
// tau-successor of s within π(s); the caller is responsible for visiting
// states in reverse topological order and populating computed as it goes.
func SortedBranchingSignature(l *lts.Lts, s lts.StateIndex, p partition.Partition, computed map[lts.StateIndex]Signature) Signature {
	ownBlock := p.BlockNumber(s)
	var pairs []Pair

	for _, tr := range l.Outgoing(s) {
		targetBlock := p.BlockNumber(tr.Target())
		if tr.Label() == lts.TauLabel && targetBlock == ownBlock {
			pairs = append(pairs, computed[tr.Target()]...)
			continue
		}
		pairs = append(pairs, Pair{Label: tr.Label(), Block: targetBlock})
	}

	return sortDedup(pairs)
}
