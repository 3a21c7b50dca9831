package partition

import "github.com/dekarrin/symbane/internal/lts"

// Block is the enumerable-blocks partition flavor used by the worklist
// refinement engine: beyond the state->block map, it tracks per-element
// "marked" bits and a per-block "any element marked" flag that the engine
// uses as its dirty-block worklist cue (spec.md §4.4, §4.6).
type Block struct {
	blockOf []int
	members [][]lts.StateIndex // members[b] = states currently in block b
	marked  []bool             // per-state mark bit
	dirty   []bool             // per-block "has at least one marked element"
}

// NewBlock creates a Block partition over numStates states, all in block 0,
// with no marks set.
func NewBlock(numStates int) *Block {
	members := make([][]lts.StateIndex, 1)
	members[0] = make([]lts.StateIndex, numStates)
	for i := range members[0] {
		members[0][i] = lts.StateIndex(i)
	}
	blockOf := make([]int, numStates)
	return &Block{
		blockOf: blockOf,
		members: members,
		marked:  make([]bool, numStates),
		dirty:   []bool{false},
	}
}

// BlockNumber returns the block s belongs to.
func (b *Block) BlockNumber(s lts.StateIndex) int {
	return b.blockOf[s]
}

// NumOfBlocks returns the number of blocks.
func (b *Block) NumOfBlocks() int {
	return len(b.members)
}

// NumStates returns the number of states covered.
func (b *Block) NumStates() int {
	return len(b.blockOf)
}

// Members returns the states currently in block idx. Callers must not
// mutate the returned slice.
func (b *Block) Members(idx int) []lts.StateIndex {
	return b.members[idx]
}

// MarkElement marks s as dirty, also marking s's containing block dirty.
func (b *Block) MarkElement(s lts.StateIndex) {
	b.marked[s] = true
	b.dirty[b.blockOf[s]] = true
}

// IsElementMarked reports whether s is currently marked.
func (b *Block) IsElementMarked(s lts.StateIndex) bool {
	return b.marked[s]
}

// HasMarked reports whether block idx has at least one marked element.
func (b *Block) HasMarked(idx int) bool {
	return b.dirty[idx]
}

// ToIndexed produces an immutable Indexed snapshot of the current
// assignment, for use as a stable signature-refinement carrier once
// refinement has converged.
func (b *Block) ToIndexed() *Indexed {
	return NewIndexedFrom(b.blockOf, len(b.members))
}

// PartitionMarkedWith splits the marked subset of block idx by key_fn,
// redistributing marked states into new or reused sub-blocks while leaving
// unmarked states in place, per spec.md §4.4. It returns the indices of
// every block touched (possibly including idx itself), and clears all
// marks processed. keyFn must return the same key for two states only if
// they belong together in the refined partition.
func (b *Block) PartitionMarkedWith(idx int, keyFn func(s lts.StateIndex) int) []int {
	oldMembers := b.members[idx]

	var unmarked []lts.StateIndex
	groups := make(map[int][]lts.StateIndex)
	var groupOrder []int

	for _, s := range oldMembers {
		if !b.marked[s] {
			unmarked = append(unmarked, s)
			continue
		}
		k := keyFn(s)
		if _, seen := groups[k]; !seen {
			groupOrder = append(groupOrder, k)
		}
		groups[k] = append(groups[k], s)
	}

	touched := []int{}

	if len(groups) == 0 {
		// Nothing was marked; block is unchanged.
		b.dirty[idx] = false
		return touched
	}

	if len(unmarked) > 0 {
		// idx's unmarked members still carry the block's unchanged
		// signature; every marked group's signature differs from that (a
		// marked state is a predecessor of something that just moved out
		// of the block), so no marked group may share idx with the
		// unmarked remainder — each one, including what would otherwise be
		// the first, gets its own fresh block.
		b.members[idx] = unmarked
		touched = append(touched, idx)
		for _, k := range groupOrder {
			newIdx := len(b.members)
			members := groups[k]
			b.members = append(b.members, members)
			b.dirty = append(b.dirty, false)
			for _, s := range members {
				b.blockOf[s] = newIdx
			}
			touched = append(touched, newIdx)
		}
	} else {
		// Every member was marked: there is no unmarked remainder whose
		// signature idx must stay distinct from, so idx can be reused for
		// the first group.
		first := groupOrder[0]
		b.members[idx] = groups[first]
		touched = append(touched, idx)
		for _, k := range groupOrder[1:] {
			newIdx := len(b.members)
			members := groups[k]
			b.members = append(b.members, members)
			b.dirty = append(b.dirty, false)
			for _, s := range members {
				b.blockOf[s] = newIdx
			}
			touched = append(touched, newIdx)
		}
	}

	for _, s := range oldMembers {
		b.marked[s] = false
	}
	b.dirty[idx] = false
	for _, t := range touched {
		b.dirty[t] = false
	}

	return touched
}
