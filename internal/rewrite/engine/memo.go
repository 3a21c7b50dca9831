package engine

import "github.com/dekarrin/symbane/internal/aterm"

// memo caches a term's normal form across one top-level Rewrite call. Terms
// are hash-consed (structural equality implies pointer equality, see
// internal/aterm), so two occurrences of the same subterm — the case a
// duplicating rule's right-hand side produces — are the same *aterm.Term
// key; normalizing one populates the cache for the other at no extra cost.
// This is what keeps a duplicating rule like f(x) -> g(x,x) from paying for
// x's normalization twice, without any special-cased rule analysis.
type memo struct {
	cache map[*aterm.Term]*aterm.Term
	misses int
}

func newMemo() *memo {
	return &memo{cache: make(map[*aterm.Term]*aterm.Term)}
}

func (m *memo) get(t *aterm.Term) (*aterm.Term, bool) {
	v, ok := m.cache[t]
	return v, ok
}

func (m *memo) put(t, normal *aterm.Term) {
	m.cache[t] = normal
	m.misses++
}

// Misses reports how many distinct terms were actually normalized (as
// opposed to served from cache). Exposed for tests that assert a shared
// subterm was normalized once, not once per occurrence.
func (m *memo) Misses() int {
	return m.misses
}
