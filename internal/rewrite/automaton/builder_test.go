package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
)

func buildRule(t *testing.T, store *aterm.Store, id int, lhsText, rhsText string) *rewrite.Rule {
	t.Helper()
	lhs, err := store.FromString(lhsText)
	require.NoError(t, err)
	rhs, err := store.FromString(rhsText)
	require.NoError(t, err)
	return &rewrite.Rule{ID: id, LHS: lhs, RHS: rhs}
}

func Test_Build_APMA_CompletesAfterTwoSteps(t *testing.T) {
	store := aterm.NewStore()
	rule := buildRule(t, store, 0, "f(a)", "b")

	symbols := []*aterm.Symbol{store.Symbol("f", 1), store.Symbol("a", 0), store.Symbol("b", 0)}
	a, err := Build(store, []*rewrite.Rule{rule}, symbols, APMA)
	require.NoError(t, err)

	require.Len(t, a.States, 2) // state 0, and the state reached after "f" (where "a" completes the rule without a further destination)

	onF := a.Outgoing(0, "f")
	require.NotNil(t, onF)
	assert.Empty(t, onF.Announcements, "f alone doesn't complete the rule")
	require.Len(t, onF.Destinations, 1)

	next := onF.Destinations[0].NextState
	onA := a.Outgoing(next, "a")
	require.NotNil(t, onA)
	require.Len(t, onA.Announcements, 1)
	assert.Equal(t, 0, onA.Announcements[0].Rule.ID)
}

func Test_Build_Full_DoesNotError(t *testing.T) {
	store := aterm.NewStore()
	rule := buildRule(t, store, 0, "f(a)", "b")

	symbols := []*aterm.Symbol{store.Symbol("f", 1), store.Symbol("a", 0), store.Symbol("b", 0)}
	a, err := Build(store, []*rewrite.Rule{rule}, symbols, Full)
	require.NoError(t, err)
	assert.NotEmpty(t, a.States)
	assert.NotEmpty(t, a.String())
}
