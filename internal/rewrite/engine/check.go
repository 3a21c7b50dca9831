// Package engine implements the two rewrite drivers: the stack-based
// innermost rewriter over an APMA, and the stack-based Sabre rewriter over
// a Full Set Automaton. See SPEC_FULL.md §3.8/§3.9.
package engine

import (
	"context"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/dekarrin/symbane/internal/rewrite/automaton"
	"github.com/dekarrin/symbane/internal/symerrors"
)

// normalizeFn normalizes a term to its normal form. The Sabre engine passes a
// closure over its normalize method and the current call's memo, so
// condition checks share that cache (see memo.go); the innermost engine
// passes its Rewrite method, which starts a fresh memo for each condition
// side.
type normalizeFn func(ctx context.Context, t *aterm.Term) (*aterm.Term, error)

// checkAnnouncement reports whether ann's equivalence-class and condition
// guards hold against subject, which has already been located at the
// position the transition examined. Condition sides are evaluated then
// normalized via normalize, exactly as spec.md §4.9 describes ("reuse the
// same rewriter recursively on both sides of each condition, then compare
// the normal forms").
func checkAnnouncement(ctx context.Context, store *aterm.Store, normalize normalizeFn, ann automaton.EnhancedAnnouncement, subject *aterm.Term) (bool, error) {
	for _, positions := range ann.EquivClasses {
		first, err := rewrite.GetPosition(subject, positions[0])
		if err != nil {
			return false, err
		}
		for _, p := range positions[1:] {
			v, err := rewrite.GetPosition(subject, p)
			if err != nil {
				return false, err
			}
			if v != first {
				return false, nil
			}
		}
	}

	for _, cond := range ann.Conditions {
		lhsVal, err := rewrite.Evaluate(store, cond.LHS, subject)
		if err != nil {
			return false, err
		}
		lhsNorm, err := normalize(ctx, lhsVal)
		if err != nil {
			return false, err
		}
		rhsVal, err := rewrite.Evaluate(store, cond.RHS, subject)
		if err != nil {
			return false, err
		}
		rhsNorm, err := normalize(ctx, rhsVal)
		if err != nil {
			return false, err
		}
		if (lhsNorm == rhsNorm) != cond.Equal {
			return false, nil
		}
	}
	return true, nil
}

// pollCancel returns a Cancelled error if ctx has been cancelled. Called
// after every popped instruction / transition step, per the cooperative
// cancellation discipline of SPEC_FULL.md §1 / spec.md §5.
func pollCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return symerrors.Cancelled("rewrite cancelled: %v", ctx.Err())
	default:
		return nil
	}
}
