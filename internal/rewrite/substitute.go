package rewrite

import (
	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/symerrors"
)

// GetPosition performs the deterministic descent from t's root to position
// p, returning the subterm found there.
func GetPosition(t *aterm.Term, p Position) (*aterm.Term, error) {
	cur := t
	for depth, idx := range p {
		args := cur.Args()
		if idx < 1 || idx > len(args) {
			return nil, symerrors.InternalInvariantViolation(
				"position %s out of range at depth %d (%d children)", p, depth, len(args))
		}
		cur = args[idx-1]
	}
	return cur, nil
}

// Substitute rebuilds only the spine from t's root to position p with
// newSubterm in place of whatever was there, reusing every other subtree by
// sharing (hash-consing in store guarantees the rebuilt spine nodes are
// themselves interned). Descent and reconstruction are both iterative: the
// spine is bounded by len(p), not by subterm depth, but no frame recurses.
func Substitute(store *aterm.Store, t, newSubterm *aterm.Term, p Position) (*aterm.Term, error) {
	if len(p) == 0 {
		return newSubterm, nil
	}

	spine := make([]*aterm.Term, len(p)+1)
	spine[0] = t
	cur := t
	for depth, idx := range p {
		args := cur.Args()
		if idx < 1 || idx > len(args) {
			return nil, symerrors.InternalInvariantViolation(
				"position %s out of range at depth %d (%d children)", p, depth, len(args))
		}
		cur = args[idx-1]
		spine[depth+1] = cur
	}

	result := newSubterm
	for i := len(p) - 1; i >= 0; i-- {
		parent := spine[i]
		idx := p[i]

		oldArgs := parent.Args()
		newArgs := make([]*aterm.Term, len(oldArgs))
		copy(newArgs, oldArgs)
		newArgs[idx-1] = result

		var err error
		if parent.IsApplication() {
			result, err = store.CreateApplication(parent.Symbol(), newArgs)
		} else {
			result, err = store.Create(parent.Symbol(), newArgs)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
