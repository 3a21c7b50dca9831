package reduction

import (
	"github.com/dekarrin/symbane/internal/lts"
	"github.com/dekarrin/symbane/internal/symerrors"
)

// LabelFilter decides whether a label participates in a filtered graph
// traversal (topological sort, tau-only SCC successors, etc).
type LabelFilter func(lts.LabelIndex) bool

// TauFilter keeps only tau-labelled edges.
func TauFilter(l lts.LabelIndex) bool { return l == lts.TauLabel }

// color states for the iterative DFS used by TopologicalSort.
type color uint8

const (
	white color = iota
	gray
	black
)

// TopologicalSort performs a filtered DFS-based topological sort, returning
// a permutation such that for every kept edge u->v, perm[u] < perm[v] in
// final position (states are assigned decreasing post-order numbers).
// Returns symerrors.CycleDetected if a temporarily-marked (gray) vertex is
// revisited through the filter (spec.md §4.3).
func TopologicalSort(l *lts.Lts, filter LabelFilter) ([]lts.StateIndex, error) {
	n := l.NumStates()
	colors := make([]color, n)
	order := make([]lts.StateIndex, 0, n)

	type frame struct {
		v      lts.StateIndex
		edges  []lts.PackedTransition
		cursor int
	}

	for start := 0; start < n; start++ {
		if colors[start] != white {
			continue
		}

		var stack []*frame
		colors[start] = gray
		stack = append(stack, &frame{v: lts.StateIndex(start), edges: l.Outgoing(lts.StateIndex(start))})

		for len(stack) > 0 {
			top := stack[len(stack)-1]

			advanced := false
			for top.cursor < len(top.edges) {
				tr := top.edges[top.cursor]
				top.cursor++
				if !filter(tr.Label()) {
					continue
				}
				w := tr.Target()
				switch colors[w] {
				case white:
					colors[w] = gray
					stack = append(stack, &frame{v: w, edges: l.Outgoing(w)})
					advanced = true
				case gray:
					return nil, symerrors.CycleDetected("lts: filtered cycle detected through state %d", w)
				case black:
					// already finished, fine
				}
				if advanced {
					break
				}
			}
			if advanced {
				continue
			}

			// All filtered edges explored.
			stack = stack[:len(stack)-1]
			colors[top.v] = black
			order = append(order, top.v)
		}
	}

	// order is in post-order (finish order); a valid topological order for
	// forward edges u->v (u finishes after v, since v is fully explored
	// first) is the REVERSE of finish order.
	perm := make([]lts.StateIndex, n)
	for pos, s := range order {
		rank := lts.StateIndex(len(order) - 1 - pos)
		perm[s] = rank
	}
	return perm, nil
}
