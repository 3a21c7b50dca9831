package lts

import (
	"sort"

	"github.com/google/uuid"

	"github.com/dekarrin/symbane/internal/symerrors"
)

// Builder constructs an Lts from a TransitionSource plus label metadata,
// implementing the two-pass CSR construction procedure of spec.md §4.2.
type Builder struct {
	initial        StateIndex
	source         TransitionSource
	labels         []string // original label name sequence, NOT including "tau"
	hidden         []string
	stateCountHint int
}

// NewBuilder creates a Builder. labels is the original ordered label-name
// sequence (tau is never included explicitly: it is synthesized); hidden is
// the set of label names to fold into tau.
func NewBuilder(initial StateIndex, source TransitionSource, labels []string, hidden []string) *Builder {
	return &Builder{initial: initial, source: source, labels: labels, hidden: hidden}
}

// WithStateCount gives the builder a hint for the total number of states,
// so that states with no outgoing or incoming transitions past the highest
// referenced index are still accounted for.
func (b *Builder) WithStateCount(n int) *Builder {
	b.stateCountHint = n
	return b
}

// Build runs the two-pass construction and returns the resulting Lts,
// satisfying invariants I1-I3 of spec.md §3.
func (b *Builder) Build() (*Lts, error) {
	hiddenSet := make(map[string]bool, len(b.hidden))
	for _, h := range b.hidden {
		hiddenSet[h] = true
	}

	finalLabels := make([]string, 1, len(b.labels)+1)
	finalLabels[0] = "tau"
	labelIndex := make(map[string]LabelIndex, len(b.labels)+1)
	labelIndex["tau"] = TauLabel
	for _, name := range b.labels {
		if hiddenSet[name] {
			labelIndex[name] = TauLabel
			continue
		}
		if _, ok := labelIndex[name]; ok {
			continue
		}
		labelIndex[name] = LabelIndex(len(finalLabels))
		finalLabels = append(finalLabels, name)
	}
	if len(finalLabels)-1 > int(MaxLabelIndex) {
		return nil, symerrors.StateOverflow("lts: %d labels exceeds packed-representation limit", len(finalLabels))
	}

	// Pass 1: determine state count and per-state out-degree.
	numStates := b.stateCountHint
	if int(b.initial)+1 > numStates {
		numStates = int(b.initial) + 1
	}
	outDegree := map[StateIndex]int{}

	it := b.source()
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		if _, known := labelIndex[t.Label]; !known {
			return nil, symerrors.ParseError("lts: transition from %d references unknown label %q", t.From, t.Label)
		}
		outDegree[t.From]++
		if int(t.From)+1 > numStates {
			numStates = int(t.From) + 1
		}
		if int(t.To)+1 > numStates {
			numStates = int(t.To) + 1
		}
	}
	if numStates-1 > int(MaxStateIndex) {
		return nil, symerrors.StateOverflow("lts: %d states exceeds packed-representation limit", numStates)
	}

	index := make([]uint32, numStates+1)
	for s := 0; s < numStates; s++ {
		index[s+1] = index[s] + uint32(outDegree[StateIndex(s)])
	}
	total := index[numStates]

	transitions := make([]PackedTransition, total)
	cursor := make([]uint32, numStates)
	copy(cursor, index[:numStates])

	// Pass 2: place transitions.
	it = b.source()
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		label := labelIndex[t.Label]
		pos := cursor[t.From]
		transitions[pos] = Pack(label, t.To)
		cursor[t.From]++
	}

	// Sort and dedup each state's slice (I2).
	out := make([]PackedTransition, 0, total)
	newIndex := make([]uint32, numStates+1)
	for s := 0; s < numStates; s++ {
		start, end := index[s], index[s+1]
		slice := transitions[start:end]
		sort.Slice(slice, func(i, j int) bool { return slice[i] < slice[j] })
		dedup := slice[:0:0]
		var last PackedTransition
		for i, tr := range slice {
			if i == 0 || tr != last {
				dedup = append(dedup, tr)
				last = tr
			}
		}
		out = append(out, dedup...)
		newIndex[s+1] = uint32(len(out))
	}

	return &Lts{
		index:       newIndex,
		transitions: out,
		labels:      finalLabels,
		hidden:      hiddenSet,
		initial:     b.initial,
		buildID:     uuid.New(),
	}, nil
}
