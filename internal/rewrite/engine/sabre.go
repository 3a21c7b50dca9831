package engine

import (
	"context"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/dekarrin/symbane/internal/rewrite/automaton"
	"github.com/dekarrin/symbane/internal/util"
)

// SabreRewriter drives a Full-mode SetAutomaton to a normal form. Unlike the
// innermost rewriter, a Full automaton can report a match rooted anywhere in
// the subject from a single pass starting at the root, via back-edges to
// state 0 that introduce fresh per-rule goals at every position reached. A
// redex found this way need not have its arguments already in normal form
// (unlike innermost's bottom-up construction order), so firing a duplicating
// rule here pre-normalizes each distinct left-hand-side position its
// right-hand side fetches from before substituting (see
// normalizeFetchedSubterms) rather than getting that for free from
// evaluation order.
type SabreRewriter struct {
	store *aterm.Store
	auto  *automaton.SetAutomaton

	// lastMemo keeps the most recent Rewrite call's cache around so tests in
	// this package can assert on how many distinct terms were actually
	// normalized (memo.Misses), not just the final result.
	lastMemo *memo
}

// NewSabreRewriter builds a rewriter over auto, which must have been built
// in automaton.Full mode.
func NewSabreRewriter(store *aterm.Store, auto *automaton.SetAutomaton) *SabreRewriter {
	return &SabreRewriter{store: store, auto: auto}
}

// lastMisses reports how many distinct terms the most recent Rewrite call
// actually normalized, for tests asserting a shared subterm was reduced
// once rather than once per occurrence.
func (r *SabreRewriter) lastMisses() int {
	if r.lastMemo == nil {
		return 0
	}
	return r.lastMemo.Misses()
}

// configuration is one live thread of the automaton walk. A single rule
// match attempt can span several states as Full-mode construction rebases
// obligations deeper into the subject (see matchgoal.go's rebaseGroup), so
// two distinct subject positions must be tracked separately:
//
//   - root is where the announcement's rule LHS itself starts in subject.
//     EnhancedAnnouncement positions (VariableFetch.LHSPosition,
//     EquivClasses, Conditions) are always relative to root, never to
//     anchor, so root is what gets handed to checkAnnouncement/Evaluate and
//     returned as the redex position to substitute at.
//   - anchor is the current state's own goal-root: state.LabelPosition is
//     relative to anchor, and advances (via Destination.RelativePosition)
//     with every transition taken while continuing the same match attempt.
//
// root and anchor coincide at the start of every fresh match attempt
// (state 0, whether reached by a back-edge or the walk's initial push) and
// can diverge afterward as anchor descends through rebased states.
type configuration struct {
	root   rewrite.Position
	anchor rewrite.Position
	state  int
}

// Rewrite normalizes term to a normal form.
func (r *SabreRewriter) Rewrite(ctx context.Context, term *aterm.Term) (*aterm.Term, error) {
	m := newMemo()
	r.lastMemo = m
	return r.normalize(ctx, term, m)
}

// normalize repeatedly locates one redex with the configuration-stack walk
// (findRedex) and substitutes its reduct, until no redex remains. It only
// ever caches term -> result in m once the loop below has confirmed result
// is a genuine fixpoint (no redex found in it), never a one-step
// intermediate — a cache entry must mean "fully normalized", not "rewritten
// once", or a second occurrence of the same shared subterm could read back
// a stale, still-reducible value.
func (r *SabreRewriter) normalize(ctx context.Context, term *aterm.Term, m *memo) (*aterm.Term, error) {
	if cached, ok := m.get(term); ok {
		return cached, nil
	}

	subject := term
	for {
		if err := pollCancel(ctx); err != nil {
			return nil, err
		}

		redexPos, ann, found, err := r.findRedex(ctx, subject, m)
		if err != nil {
			return nil, err
		}
		if !found {
			m.put(term, subject)
			return subject, nil
		}

		redex, err := rewrite.GetPosition(subject, redexPos)
		if err != nil {
			return nil, err
		}

		normalizedRedex, err := r.normalizeFetchedSubterms(ctx, redex, ann, m)
		if err != nil {
			return nil, err
		}

		replacement, err := rewrite.Evaluate(r.store, ann.RHS, normalizedRedex)
		if err != nil {
			return nil, err
		}

		next, err := rewrite.Substitute(r.store, subject, replacement, redexPos)
		if err != nil {
			return nil, err
		}
		subject = next
	}
}

// normalizeFetchedSubterms is what gives a duplicating rule its delay
// property under Sabre: a non-duplicating rule's fetched subterms are left
// exactly as found (Evaluate will read them as-is), but for a duplicating
// rule, every distinct left-hand-side position its right-hand side fetches
// from (deduplicated — two VariableFetch entries sharing a position is
// exactly what "duplicating" means) gets normalized once and substituted
// back into redex before construction runs. Every occurrence of that
// position in the right-hand side then reads the same, already-normalized
// *aterm.Term pointer, so only the first occurrence ever does real work.
func (r *SabreRewriter) normalizeFetchedSubterms(ctx context.Context, redex *aterm.Term, ann *automaton.EnhancedAnnouncement, m *memo) (*aterm.Term, error) {
	if !ann.Duplicating {
		return redex, nil
	}

	seen := map[string]bool{}
	out := redex
	for _, f := range ann.RHS.VariableFetches {
		key := f.LHSPosition.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		v, err := rewrite.GetPosition(out, f.LHSPosition)
		if err != nil {
			return nil, err
		}

		normal, err := r.normalize(ctx, v, m)
		if err != nil {
			return nil, err
		}

		out, err = rewrite.Substitute(r.store, out, normal, f.LHSPosition)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// findRedex walks the configuration stack from the subject's root, following
// transitions on whatever symbol each state's (goal-root-relative) label
// position finds in subject, until either an announcement's guards are
// satisfied (a redex) or the stack is exhausted (no redex anywhere). When no
// transition was derived at all for the symbol found at a configuration's
// examined position (no rule reacts to it), the walk still fans out to every
// child of that position with a fresh state-0 goal set: a symbol having no
// rule of its own says nothing about whether its children contain a redex.
func (r *SabreRewriter) findRedex(ctx context.Context, subject *aterm.Term, m *memo) (rewrite.Position, *automaton.EnhancedAnnouncement, bool, error) {
	stack := util.NewStack(configuration{root: rewrite.Position{}, anchor: rewrite.Position{}, state: 0})

	for !stack.Empty() {
		if err := pollCancel(ctx); err != nil {
			return nil, nil, false, err
		}

		cfg := stack.Pop()

		st := r.auto.States[cfg.state]
		examinePos := append(append(rewrite.Position{}, cfg.anchor...), st.LabelPosition...)
		target, err := rewrite.GetPosition(subject, examinePos)
		if err != nil || target.IsVariable() || target.Symbol() == nil {
			continue
		}

		tr := r.auto.Outgoing(cfg.state, target.Symbol().Name())
		if tr == nil {
			// No rule reacts to this symbol at all, but that says nothing
			// about its children: fan out fresh per-rule goal sets (a
			// state-0 configuration with root == anchor == the child's own
			// position) to every child of the symbol just examined.
			for i := target.Arity(); i >= 1; i-- {
				childPos := examinePos.Child(i)
				stack.Push(configuration{root: childPos, anchor: childPos, state: 0})
			}
			continue
		}

		if len(tr.Announcements) > 0 {
			rootTerm, err := rewrite.GetPosition(subject, cfg.root)
			if err != nil {
				return nil, nil, false, err
			}
			for i := range tr.Announcements {
				ok, err := checkAnnouncement(ctx, r.store, func(ctx context.Context, t *aterm.Term) (*aterm.Term, error) {
					return r.normalize(ctx, t, m)
				}, tr.Announcements[i], rootTerm)
				if err != nil {
					return nil, nil, false, err
				}
				if ok {
					return cfg.root, &tr.Announcements[i], true, nil
				}
			}
		}

		for _, d := range tr.Destinations {
			newAnchor := append(append(rewrite.Position{}, cfg.anchor...), d.RelativePosition...)
			next := configuration{anchor: newAnchor, state: d.NextState}
			if d.NextState == 0 {
				// A back edge starts a fresh match attempt rooted wherever
				// it lands, the same way the walk's own initial push does.
				next.root = newAnchor
			} else {
				// Continuing the same match attempt: the rule's LHS root
				// doesn't move, only the examination anchor does.
				next.root = cfg.root
			}
			stack.Push(next)
		}
	}
	return nil, nil, false, nil
}
