// Package partition implements the two partition flavors of spec.md §4.4:
// an indexed state->block map, and a block-list form with per-element
// marking used by the worklist refinement engine.
package partition

import "github.com/dekarrin/symbane/internal/lts"

// Partition is the minimal interface the refinement and quotient code
// needs, shared by both the Indexed and Block flavors (spec.md §9's design
// note: "refinement is generic over any type exposing block_number,
// num_of_blocks").
type Partition interface {
	BlockNumber(s lts.StateIndex) int
	NumOfBlocks() int
}

// Markable is implemented by partition flavors that support the worklist
// refinement algorithm's dirty-block bookkeeping.
type Markable interface {
	Partition
	MarkElement(s lts.StateIndex)
	IsElementMarked(s lts.StateIndex) bool
	HasMarked(block int) bool
}

// Indexed is a dense array-backed state->block map.
type Indexed struct {
	block     []int
	numBlocks int
}

// NewIndexed creates an Indexed partition over numStates states, all
// initially in block 0.
func NewIndexed(numStates int) *Indexed {
	return &Indexed{block: make([]int, numStates), numBlocks: 1}
}

// NewIndexedFrom builds an Indexed partition from an explicit per-state
// block assignment. numBlocks must be the number of distinct block numbers
// used (block numbers are expected to be dense, starting at 0).
func NewIndexedFrom(blockOf []int, numBlocks int) *Indexed {
	cp := make([]int, len(blockOf))
	copy(cp, blockOf)
	return &Indexed{block: cp, numBlocks: numBlocks}
}

// NewIndexedIdentity builds the finest possible Indexed partition over n
// states: every state is its own singleton block. Useful as a baseline
// partition for signature computations that should distinguish every
// state (e.g. comparing two signature functions against each other).
func NewIndexedIdentity(n int) *Indexed {
	blockOf := make([]int, n)
	for i := range blockOf {
		blockOf[i] = i
	}
	return &Indexed{block: blockOf, numBlocks: n}
}

// BlockNumber returns the block s belongs to.
func (p *Indexed) BlockNumber(s lts.StateIndex) int {
	return p.block[s]
}

// SetBlock reassigns s to block b, growing NumOfBlocks if necessary.
func (p *Indexed) SetBlock(s lts.StateIndex, b int) {
	p.block[s] = b
	if b+1 > p.numBlocks {
		p.numBlocks = b + 1
	}
}

// NumOfBlocks returns the number of dense block numbers in use.
func (p *Indexed) NumOfBlocks() int {
	return p.numBlocks
}

// NumStates returns the number of states covered by this partition.
func (p *Indexed) NumStates() int {
	return len(p.block)
}

// Blocks groups every state index by its current block number.
func (p *Indexed) Blocks() [][]lts.StateIndex {
	groups := make([][]lts.StateIndex, p.numBlocks)
	for s, b := range p.block {
		groups[b] = append(groups[b], lts.StateIndex(s))
	}
	return groups
}
