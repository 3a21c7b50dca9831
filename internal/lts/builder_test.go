package lts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Builder_HiddenLabelRemap(t *testing.T) {
	// spec.md §8 scenario 2: input labels ["a","b","c"], hidden={"b"};
	// result labels ["tau","a","c"], every transition formerly on "b" now
	// on label index 0.
	raw := []RawTransition{
		{From: 0, Label: "a", To: 1},
		{From: 0, Label: "b", To: 2},
		{From: 1, Label: "c", To: 2},
	}

	b := NewBuilder(0, NewSliceSource(raw), []string{"a", "b", "c"}, []string{"b"})
	out, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"tau", "a", "c"}, out.Labels())

	found := map[PackedTransition]bool{}
	for s := 0; s < out.NumStates(); s++ {
		for _, tr := range out.Outgoing(StateIndex(s)) {
			found[Pack(tr.Label(), tr.Target())] = true
		}
	}
	assert.True(t, found[Pack(0, 2)], "b-labelled transition must now be tau (label 0)")
	assert.True(t, found[Pack(1, 1)], "a-labelled transition keeps relative order")
}

func Test_Builder_OutgoingSortedAndDeduped(t *testing.T) {
	raw := []RawTransition{
		{From: 0, Label: "a", To: 2},
		{From: 0, Label: "a", To: 1},
		{From: 0, Label: "a", To: 1}, // duplicate
	}

	b := NewBuilder(0, NewSliceSource(raw), []string{"a"}, nil)
	out, err := b.Build()
	require.NoError(t, err)

	og := out.Outgoing(0)
	require.Len(t, og, 2)
	assert.Less(t, og[0], og[1])
	assert.Equal(t, StateIndex(1), og[0].Target())
	assert.Equal(t, StateIndex(2), og[1].Target())
}

func Test_Builder_TransitionCount(t *testing.T) {
	raw := []RawTransition{
		{From: 0, Label: "a", To: 1},
		{From: 1, Label: "a", To: 0},
	}
	b := NewBuilder(0, NewSliceSource(raw), []string{"a"}, nil)
	out, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, out.TransitionCount())
}

func Test_Reorder(t *testing.T) {
	raw := []RawTransition{
		{From: 0, Label: "a", To: 1},
	}
	b := NewBuilder(0, NewSliceSource(raw), []string{"a"}, nil)
	out, err := b.Build()
	require.NoError(t, err)

	reordered := out.Reorder([]StateIndex{1, 0})
	assert.Equal(t, StateIndex(1), reordered.Initial())
	og := reordered.Outgoing(1)
	require.Len(t, og, 1)
	assert.Equal(t, StateIndex(0), og[0].Target())
}
