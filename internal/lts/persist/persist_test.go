package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/symbane/internal/lts"
)

func buildSample(t *testing.T) *lts.Lts {
	t.Helper()
	raw := []lts.RawTransition{
		{From: 0, Label: "a", To: 1},
		{From: 0, Label: "b", To: 2},
		{From: 1, Label: "c", To: 2},
	}
	out, err := lts.NewBuilder(0, lts.NewSliceSource(raw), []string{"a", "b", "c"}, []string{"b"}).Build()
	require.NoError(t, err)
	return out
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	st, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func Test_PutGet_RoundTripsStructure(t *testing.T) {
	st := openTemp(t)
	original := buildSample(t)

	require.NoError(t, st.Put("hash-1", original))

	got, ok, err := st.Get("hash-1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, original.Labels(), got.Labels())
	assert.Equal(t, original.Initial(), got.Initial())
	assert.Equal(t, original.NumStates(), got.NumStates())
	assert.Equal(t, original.TransitionCount(), got.TransitionCount())

	for s := 0; s < original.NumStates(); s++ {
		assert.Equal(t, original.Outgoing(lts.StateIndex(s)), got.Outgoing(lts.StateIndex(s)), "state %d", s)
	}
}

func Test_Get_MissingHash(t *testing.T) {
	st := openTemp(t)
	_, ok, err := st.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Put_OverwritesExistingHash(t *testing.T) {
	st := openTemp(t)
	first := buildSample(t)
	require.NoError(t, st.Put("hash-1", first))

	raw := []lts.RawTransition{{From: 0, Label: "x", To: 0}}
	second, err := lts.NewBuilder(0, lts.NewSliceSource(raw), []string{"x"}, nil).Build()
	require.NoError(t, err)
	require.NoError(t, st.Put("hash-1", second))

	got, ok, err := st.Get("hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"tau", "x"}, got.Labels())
}
