package partition

import "github.com/dekarrin/symbane/internal/lts"

// Combine returns the partition whose blocks are intersections of a coarser
// outer partition with a finer inner one (spec.md §4.4's combine_partition
// utility), used to compose an SCC quotient with a subsequent refinement.
func Combine(outer, inner Partition, numStates int) *Indexed {
	keyToBlock := make(map[[2]int]int)
	blockOf := make([]int, numStates)

	for s := 0; s < numStates; s++ {
		key := [2]int{outer.BlockNumber(lts.StateIndex(s)), inner.BlockNumber(lts.StateIndex(s))}
		b, ok := keyToBlock[key]
		if !ok {
			b = len(keyToBlock)
			keyToBlock[key] = b
		}
		blockOf[s] = b
	}

	return NewIndexedFrom(blockOf, len(keyToBlock))
}
