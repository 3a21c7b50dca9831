// Package reduction implements the SCC/topological utilities and the
// signature-refinement bisimulation engine of spec.md §4.3/§4.5/§4.6.
package reduction

import (
	"github.com/dekarrin/symbane/internal/lts"
	"github.com/dekarrin/symbane/internal/lts/partition"
)

// TauSCC computes the tau-SCC decomposition: Tarjan's algorithm filtered to
// hidden-labelled (tau) edges only, returning an indexed partition whose
// blocks are strongly-connected tau components. Implemented iteratively
// with an explicit stack so it handles deep graphs without recursion
// (spec.md §4.3, §9).
func TauSCC(l *lts.Lts) *partition.Indexed {
	n := l.NumStates()
	const unvisited = -1
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	blockOf := make([]int, n)
	for i := range index {
		index[i] = unvisited
		blockOf[i] = -1
	}

	var stack []lts.StateIndex
	nextIndex := 0
	numBlocks := 0

	type frame struct {
		v      lts.StateIndex
		edgeAt int // cursor into the filtered tau-successor list
		succs  []lts.StateIndex
	}

	tauSuccessors := func(s lts.StateIndex) []lts.StateIndex {
		var out []lts.StateIndex
		for _, tr := range l.Outgoing(s) {
			if tr.Label() == lts.TauLabel {
				out = append(out, tr.Target())
			}
		}
		return out
	}

	var callStack []*frame

	for start := 0; start < n; start++ {
		if index[start] != unvisited {
			continue
		}

		callStack = append(callStack, &frame{v: lts.StateIndex(start), succs: tauSuccessors(lts.StateIndex(start))})
		index[start] = nextIndex
		lowlink[start] = nextIndex
		nextIndex++
		stack = append(stack, lts.StateIndex(start))
		onStack[start] = true

		for len(callStack) > 0 {
			top := callStack[len(callStack)-1]

			if top.edgeAt < len(top.succs) {
				w := top.succs[top.edgeAt]
				top.edgeAt++

				if index[w] == unvisited {
					index[w] = nextIndex
					lowlink[w] = nextIndex
					nextIndex++
					stack = append(stack, w)
					onStack[w] = true
					callStack = append(callStack, &frame{v: w, succs: tauSuccessors(w)})
					continue
				} else if onStack[w] {
					if index[w] < lowlink[top.v] {
						lowlink[top.v] = index[w]
					}
				}
				continue
			}

			// All successors explored; pop and propagate lowlink.
			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := callStack[len(callStack)-1]
				if lowlink[top.v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[top.v]
				}
			}

			if lowlink[top.v] == index[top.v] {
				b := numBlocks
				numBlocks++
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					blockOf[w] = b
					if w == top.v {
						break
					}
				}
			}
		}
	}

	return partition.NewIndexedFrom(blockOf, numBlocks)
}
