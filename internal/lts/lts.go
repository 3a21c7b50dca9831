// Package lts implements the compact labelled transition system
// representation described in spec.md §3/§4.2: a CSR-style directed
// multigraph with packed 64-bit transitions, a canonical tau label at
// index 0, and a two-pass counting builder.
package lts

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// StateIndex identifies a state. Bounded to 48 bits by the packed
// transition format (spec.md §3).
type StateIndex uint64

// MaxStateIndex is the largest StateIndex representable in the low 48 bits
// of a PackedTransition.
const MaxStateIndex = StateIndex(1<<48 - 1)

// LabelIndex identifies a label by position in an Lts's label sequence.
// Index 0 is always the canonical hidden action (tau).
type LabelIndex uint16

// TauLabel is the canonical hidden-action label index.
const TauLabel LabelIndex = 0

// MaxLabelIndex is the largest LabelIndex representable in the high 16 bits
// of a PackedTransition.
const MaxLabelIndex = LabelIndex(1<<16 - 1)

// PackedTransition packs (label, target) into a single 64-bit word: the
// label occupies the high 16 bits, the target state the low 48 bits. Sort
// order on the packed word is exactly lexicographic (label, then target),
// per spec.md §3's invariant I2.
type PackedTransition uint64

// Pack builds a PackedTransition from a label and target state.
func Pack(label LabelIndex, target StateIndex) PackedTransition {
	return PackedTransition(uint64(label)<<48 | uint64(target)&uint64(MaxStateIndex))
}

// Label extracts the label component.
func (p PackedTransition) Label() LabelIndex {
	return LabelIndex(uint64(p) >> 48)
}

// Target extracts the target-state component.
func (p PackedTransition) Target() StateIndex {
	return StateIndex(uint64(p) & uint64(MaxStateIndex))
}

func (p PackedTransition) String() string {
	return fmt.Sprintf("-%d->%d", p.Label(), p.Target())
}

// RawTransition is the unpacked (from, label, to) triple a TransitionSource
// yields, before it is folded into the CSR layout.
type RawTransition struct {
	From  StateIndex
	Label string
	To    StateIndex
}

// TransitionSource produces a fresh iterator over a graph's raw edges each
// time it is called. Builder.Build calls it exactly twice (once to count
// per-state out-degree, once to fill the transition array), so the source
// must be restartable — it is a factory, not a single-use stream.
type TransitionSource func() TransitionIterator

// TransitionIterator yields raw transitions one at a time. ok is false once
// exhausted.
type TransitionIterator interface {
	Next() (t RawTransition, ok bool)
}

// SliceIterator adapts a pre-built []RawTransition slice (the common case
// for small or already-materialized graphs, e.g. test fixtures and AUT-file
// loaders) into a TransitionIterator.
type SliceIterator struct {
	items []RawTransition
	pos   int
}

// NewSliceSource returns a TransitionSource that replays items on every
// call — a fresh *SliceIterator each time, as TransitionSource requires.
func NewSliceSource(items []RawTransition) TransitionSource {
	return func() TransitionIterator {
		return &SliceIterator{items: items}
	}
}

// Next implements TransitionIterator.
func (it *SliceIterator) Next() (RawTransition, bool) {
	if it.pos >= len(it.items) {
		return RawTransition{}, false
	}
	t := it.items[it.pos]
	it.pos++
	return t, true
}

// Lts is an immutable (after construction) labelled transition system in
// CSR form: index[s] gives the start offset of state s's outgoing slice in
// transitions, index[s+1] its end (spec.md §3, invariant I3).
type Lts struct {
	index       []uint32 // len = numStates+1
	transitions []PackedTransition
	labels      []string // index 0 is always "tau"
	hidden      map[string]bool
	initial     StateIndex
	buildID     uuid.UUID
}

// NumStates returns the number of states.
func (l *Lts) NumStates() int {
	if l == nil {
		return 0
	}
	return len(l.index) - 1
}

// Initial returns the initial state index.
func (l *Lts) Initial() StateIndex {
	return l.initial
}

// Labels returns the label name sequence; index 0 is always "tau".
func (l *Lts) Labels() []string {
	return l.labels
}

// HiddenLabels returns the set of label names that were folded into tau.
func (l *Lts) HiddenLabels() map[string]bool {
	return l.hidden
}

// TransitionCount returns the total number of (deduplicated) transitions.
func (l *Lts) TransitionCount() int {
	return len(l.transitions)
}

// BuildID returns a build-scoped identifier useful for distinguishing
// otherwise-identical-looking Lts values across diagnostic output (not part
// of the structural contract; two Ltses with different BuildIDs may still
// be structurally identical).
func (l *Lts) BuildID() uuid.UUID {
	return l.buildID
}

// Outgoing iterates state s's outgoing (label, target) pairs, ascending by
// packed order, with no duplicates (invariants I2/I3).
func (l *Lts) Outgoing(s StateIndex) []PackedTransition {
	start, end := l.index[s], l.index[s+1]
	return l.transitions[start:end]
}

// OutgoingRange returns the [start, end) element indices of state s's
// outgoing slice in the flat transition array, per spec.md §3's CSR contract.
func (l *Lts) OutgoingRange(s StateIndex) (start, end int) {
	return int(l.index[s]), int(l.index[s+1])
}

// Reorder builds a new Lts whose state i lives at perm[i], remapping every
// transition target and the initial state index (spec.md §4.2's
// reorder_states auxiliary operation).
func (l *Lts) Reorder(perm []StateIndex) *Lts {
	n := l.NumStates()
	raw := make([]RawTransition, 0, len(l.transitions))
	for s := 0; s < n; s++ {
		newFrom := perm[s]
		for _, tr := range l.Outgoing(StateIndex(s)) {
			raw = append(raw, RawTransition{
				From:  newFrom,
				Label: l.labels[tr.Label()],
				To:    perm[tr.Target()],
			})
		}
	}

	b := NewBuilder(perm[l.initial], NewSliceSource(raw), l.labels[1:], hiddenNames(l.hidden))
	b.stateCountHint = n
	out, err := b.Build()
	if err != nil {
		// Reorder cannot introduce new hidden labels or push state/label
		// counts past what the source Lts already satisfied; failure here
		// is a programmer error in the caller-supplied permutation.
		panic(fmt.Sprintf("lts: Reorder produced an invalid Lts: %v", err))
	}
	return out
}

func hiddenNames(h map[string]bool) []string {
	names := make([]string, 0, len(h))
	for n := range h {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
