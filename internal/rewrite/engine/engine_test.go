package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/dekarrin/symbane/internal/rewrite/automaton"
	"github.com/dekarrin/symbane/internal/rewrite/rectest"
)

// TestMain guards the rewrite engines' cancellation paths: a leaked
// goroutine here would mean pollCancel isn't actually being reached before
// Rewrite returns.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustRule(t *testing.T, store *aterm.Store, id int, lhsText, rhsText string) *rewrite.Rule {
	t.Helper()
	lhs, err := store.FromString(lhsText)
	require.NoError(t, err)
	rhs, err := store.FromString(rhsText)
	require.NoError(t, err)
	return &rewrite.Rule{ID: id, LHS: lhs, RHS: rhs}
}

// peanoRules builds the factorial-via-Peano-arithmetic rule set used by
// both the innermost and the Sabre tests below.
func peanoRules(t *testing.T, store *aterm.Store) ([]*rewrite.Rule, []*aterm.Symbol) {
	t.Helper()
	rules := []*rewrite.Rule{
		mustRule(t, store, 0, "fact(s(N))", "times(s(N),fact(N))"),
		mustRule(t, store, 1, "fact(0)", "s(0)"),
		mustRule(t, store, 2, "plus(0,Y)", "Y"),
		mustRule(t, store, 3, "plus(s(X),Y)", "s(plus(X,Y))"),
		mustRule(t, store, 4, "times(0,Y)", "0"),
		mustRule(t, store, 5, "times(s(X),Y)", "plus(Y,times(X,Y))"),
	}
	symbols := []*aterm.Symbol{
		store.Symbol("fact", 1),
		store.Symbol("s", 1),
		store.Symbol("0", 0),
		store.Symbol("times", 2),
		store.Symbol("plus", 2),
	}
	return rules, symbols
}

func peanoLiteral(store *aterm.Store, n int) *aterm.Term {
	zero, _ := store.Create(store.Symbol("0", 0), nil)
	t := zero
	s := store.Symbol("s", 1)
	for i := 0; i < n; i++ {
		t, _ = store.Create(s, []*aterm.Term{t})
	}
	return t
}

func Test_Innermost_Factorial(t *testing.T) {
	store := aterm.NewStore()
	rules, symbols := peanoRules(t, store)

	a, err := automaton.Build(store, rules, symbols, automaton.APMA)
	require.NoError(t, err)

	subject, err := store.FromString("fact(s(s(s(0))))")
	require.NoError(t, err)

	r := NewInnermostRewriter(store, a)
	result, err := r.Rewrite(context.Background(), subject)
	require.NoError(t, err)

	want := peanoLiteral(store, 6)
	require.Same(t, want, result, "fact(3) should normalize to s^6(0): got %s", result)
}

// factorialRec is the same rule set peanoRules builds, authored as a
// REC-like literal instead of hand-built rewrite.Rule structs.
const factorialRec = `
CONS
    0 :  -> Nat
    s : Nat -> Nat
OPNS
    plus : Nat Nat -> Nat
    times : Nat Nat -> Nat
    fact : Nat -> Nat
VARS
    N, X, Y : Nat
RULES
    fact(s(N)) = times(s(N),fact(N))
    fact(0) = s(0)
    plus(0,Y) = Y
    plus(s(X),Y) = s(plus(X,Y))
    times(0,Y) = 0
    times(s(X),Y) = plus(Y,times(X,Y))
EVAL
    fact(s(s(s(0))))
`

func Test_Innermost_Factorial_FromRecLiteral(t *testing.T) {
	store := aterm.NewStore()

	spec, err := rectest.Parse(factorialRec)
	require.NoError(t, err)

	rules, evalTerms, err := spec.Build(store)
	require.NoError(t, err)
	require.Len(t, evalTerms, 1)

	symbols := []*aterm.Symbol{
		store.Symbol("fact", 1),
		store.Symbol("s", 1),
		store.Symbol("0", 0),
		store.Symbol("times", 2),
		store.Symbol("plus", 2),
	}

	a, err := automaton.Build(store, rules, symbols, automaton.APMA)
	require.NoError(t, err)

	r := NewInnermostRewriter(store, a)
	result, err := r.Rewrite(context.Background(), evalTerms[0])
	require.NoError(t, err)

	want := peanoLiteral(store, 6)
	require.Same(t, want, result, "fact(3) should normalize to s^6(0): got %s", result)
}

// Test_Sabre_Plus_AgreesWithInnermost exercises a Full automaton whose
// match attempts span more than one state: "plus(s(X),Y) -> s(plus(X,Y))"
// only completes after first transitioning on "plus" (state 0) and then on
// "s" at the child position "plus"'s own reduction carries forward (state
// 1). That shift is exactly what distinguishes a rule's LHS root from the
// automaton's current examination anchor once a match has moved past its
// first state.
func Test_Sabre_Plus_AgreesWithInnermost(t *testing.T) {
	store := aterm.NewStore()
	rules := []*rewrite.Rule{
		mustRule(t, store, 0, "plus(0,Y)", "Y"),
		mustRule(t, store, 1, "plus(s(X),Y)", "s(plus(X,Y))"),
	}
	symbols := []*aterm.Symbol{
		store.Symbol("plus", 2),
		store.Symbol("s", 1),
		store.Symbol("0", 0),
	}

	apma, err := automaton.Build(store, rules, symbols, automaton.APMA)
	require.NoError(t, err)
	full, err := automaton.Build(store, rules, symbols, automaton.Full)
	require.NoError(t, err)

	subject, err := store.FromString("plus(s(s(0)),s(0))")
	require.NoError(t, err)

	want := peanoLiteral(store, 3)

	innermost := NewInnermostRewriter(store, apma)
	innerResult, err := innermost.Rewrite(context.Background(), subject)
	require.NoError(t, err)
	require.Same(t, want, innerResult, "plus(2,1) should normalize to s^3(0)")

	sabre := NewSabreRewriter(store, full)
	sabreResult, err := sabre.Rewrite(context.Background(), subject)
	require.NoError(t, err)
	require.Same(t, innerResult, sabreResult, "innermost and Sabre must agree on the normal form")
}

// Test_Sabre_DuplicatingRuleNormalizesSharedSubtermOnce covers the
// duplicating-rule scenario: f(x) -> g(x,x) with a -> b as the only other
// rule. Normalizing f(a) must reduce a to b once, not once per occurrence
// of x in g(x,x) — exercised here by asserting on memo.Misses() instead of
// a raw rewrite-step counter, since both occurrences of x are the same
// hash-consed *aterm.Term pointer once substituted.
func Test_Sabre_DuplicatingRuleNormalizesSharedSubtermOnce(t *testing.T) {
	store := aterm.NewStore()
	rules := []*rewrite.Rule{
		mustRule(t, store, 0, "f(X)", "g(X,X)"),
		mustRule(t, store, 1, "a", "b"),
	}
	symbols := []*aterm.Symbol{
		store.Symbol("f", 1),
		store.Symbol("g", 2),
		store.Symbol("a", 0),
		store.Symbol("b", 0),
	}

	full, err := automaton.Build(store, rules, symbols, automaton.Full)
	require.NoError(t, err)

	subject, err := store.FromString("f(a)")
	require.NoError(t, err)

	want, err := store.FromString("g(b,b)")
	require.NoError(t, err)

	r := NewSabreRewriter(store, full)
	result, err := r.Rewrite(context.Background(), subject)
	require.NoError(t, err)
	require.Same(t, want, result)

	// Exactly two distinct terms are ever normalized: a (-> b, normalized
	// once and reused for both occurrences X takes in g(X,X)) and the
	// top-level f(a) (-> g(b,b)). Without the shared-subterm reuse this
	// would cost a normalization per occurrence of X instead.
	require.Equal(t, 2, r.lastMisses(),
		"shared subterm a should only be normalized once despite appearing twice in g(X,X)'s expansion")
}

func Test_Innermost_DuplicatingRuleNormalizesSharedSubtermOnce(t *testing.T) {
	store := aterm.NewStore()
	rules := []*rewrite.Rule{
		mustRule(t, store, 0, "f(X)", "g(X,X)"),
		mustRule(t, store, 1, "a", "b"),
	}
	symbols := []*aterm.Symbol{
		store.Symbol("f", 1),
		store.Symbol("g", 2),
		store.Symbol("a", 0),
		store.Symbol("b", 0),
	}

	apma, err := automaton.Build(store, rules, symbols, automaton.APMA)
	require.NoError(t, err)

	subject, err := store.FromString("f(a)")
	require.NoError(t, err)

	want, err := store.FromString("g(b,b)")
	require.NoError(t, err)

	r := NewInnermostRewriter(store, apma)
	result, err := r.Rewrite(context.Background(), subject)
	require.NoError(t, err)
	require.Same(t, want, result)
}

func Test_Innermost_RespectsCancellation(t *testing.T) {
	store := aterm.NewStore()
	rules, symbols := peanoRules(t, store)
	a, err := automaton.Build(store, rules, symbols, automaton.APMA)
	require.NoError(t, err)

	subject, err := store.FromString("fact(s(s(s(0))))")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewInnermostRewriter(store, a)
	_, err = r.Rewrite(ctx, subject)
	require.Error(t, err)
}
