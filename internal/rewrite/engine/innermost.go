package engine

import (
	"context"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/dekarrin/symbane/internal/rewrite/automaton"
)

// InnermostRewriter drives an APMA-mode SetAutomaton to a normal form,
// normalizing children before ever attempting to match their parent.
type InnermostRewriter struct {
	store *aterm.Store
	auto  *automaton.SetAutomaton

	// lastMemo keeps the most recent Rewrite call's cache around so tests in
	// this package can assert on how many distinct terms were actually
	// normalized (memo.Misses), not just the final result.
	lastMemo *memo
}

// NewInnermostRewriter builds a rewriter over auto, which must have been
// built in automaton.APMA mode.
func NewInnermostRewriter(store *aterm.Store, auto *automaton.SetAutomaton) *InnermostRewriter {
	return &InnermostRewriter{store: store, auto: auto}
}

// lastMisses reports how many distinct terms the most recent Rewrite call
// actually normalized, for tests asserting a shared subterm was reduced
// once rather than once per occurrence.
func (r *InnermostRewriter) lastMisses() int {
	if r.lastMemo == nil {
		return 0
	}
	return r.lastMemo.Misses()
}

type instruction interface{ isInstruction() }

// rewriteStep asks for the term currently in slot to be normalized.
type rewriteStep struct{ slot int }

func (rewriteStep) isInstruction() {}

// constructStep assembles original's (already-normalized) children, found
// at childSlots, consults the automaton, and either applies a matching rule
// or stores the assembled term into slot.
type constructStep struct {
	original   *aterm.Term
	symbol     *aterm.Symbol
	isApp      bool
	slot       int
	childSlots []int
}

func (constructStep) isInstruction() {}

// spliceStep copies a rule-firing's (possibly still reducible) replacement
// out of a scratch slot once it has itself been normalized, completing the
// subtree that fired the rule.
type spliceStep struct {
	original *aterm.Term
	from, to int
}

func (spliceStep) isInstruction() {}

// Rewrite normalizes term, returning its normal form. Traversal never
// recurses on the Go call stack: an explicit instruction stack (this
// function's local `stack`) does the depth-first walk, exactly as
// SPEC_FULL.md §3.8 / spec.md §4.9 and §9's "coroutine/recursion avoidance"
// design note require.
func (r *InnermostRewriter) Rewrite(ctx context.Context, term *aterm.Term) (*aterm.Term, error) {
	m := newMemo()
	r.lastMemo = m

	values := map[int]*aterm.Term{}
	nextSlot := 0
	alloc := func(t *aterm.Term) int {
		s := nextSlot
		nextSlot++
		values[s] = t
		return s
	}

	rootSlot := alloc(term)
	stack := []instruction{rewriteStep{slot: rootSlot}}

	for len(stack) > 0 {
		if err := pollCancel(ctx); err != nil {
			return nil, err
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch it := item.(type) {
		case rewriteStep:
			t := values[it.slot]
			if cached, ok := m.get(t); ok {
				values[it.slot] = cached
				continue
			}
			if t.IsVariable() {
				continue
			}
			args := t.Args()
			childSlots := make([]int, len(args))
			for i, a := range args {
				childSlots[i] = alloc(a)
			}
			stack = append(stack, constructStep{
				original: t, symbol: t.Symbol(), isApp: t.IsApplication(),
				slot: it.slot, childSlots: childSlots,
			})
			for i := len(args) - 1; i >= 0; i-- {
				stack = append(stack, rewriteStep{slot: childSlots[i]})
			}

		case constructStep:
			args := make([]*aterm.Term, len(it.childSlots))
			for i, s := range it.childSlots {
				args[i] = values[s]
			}
			var (
				assembled *aterm.Term
				err       error
			)
			if it.isApp {
				assembled, err = r.store.CreateApplication(it.symbol, args)
			} else {
				assembled, err = r.store.Create(it.symbol, args)
			}
			if err != nil {
				return nil, err
			}

			ann, matched, err := r.findMatch(ctx, assembled)
			if err != nil {
				return nil, err
			}
			if !matched {
				values[it.slot] = assembled
				m.put(it.original, assembled)
				continue
			}

			rewritten, err := rewrite.Evaluate(r.store, ann.RHS, assembled)
			if err != nil {
				return nil, err
			}

			resultSlot := alloc(rewritten)
			stack = append(stack, spliceStep{original: it.original, from: resultSlot, to: it.slot})
			stack = append(stack, rewriteStep{slot: resultSlot})

		case spliceStep:
			values[it.to] = values[it.from]
			m.put(it.original, values[it.from])
		}
	}

	return values[rootSlot], nil
}

// findMatch starts at automaton state 0 and follows transitions on the
// function symbol found at each state's label position within subject,
// returning the first announcement (of the first matching transition)
// whose equivalence-class and condition checks pass.
func (r *InnermostRewriter) findMatch(ctx context.Context, subject *aterm.Term) (*automaton.EnhancedAnnouncement, bool, error) {
	stateIdx := 0
	for {
		if err := pollCancel(ctx); err != nil {
			return nil, false, err
		}

		st := r.auto.States[stateIdx]
		target, err := rewrite.GetPosition(subject, st.LabelPosition)
		if err != nil || target.IsVariable() || target.Symbol() == nil {
			return nil, false, nil
		}

		tr := r.auto.Outgoing(stateIdx, target.Symbol().Name())
		if tr == nil {
			return nil, false, nil
		}

		for i := range tr.Announcements {
			ok, err := checkAnnouncement(ctx, r.store, r.Rewrite, tr.Announcements[i], subject)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return &tr.Announcements[i], true, nil
			}
		}

		if len(tr.Destinations) == 0 {
			return nil, false, nil
		}
		stateIdx = tr.Destinations[0].NextState
	}
}
