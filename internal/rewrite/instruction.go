package rewrite

import "github.com/dekarrin/symbane/internal/aterm"

// InstructionKind discriminates the four closed instruction variants a
// compiled right-hand side (or condition side) can emit.
type InstructionKind int

const (
	KindConstruct InstructionKind = iota
	KindTerm
	KindRewrite
	KindReturn
)

// Instruction is the tagged-union item of a compiled instruction list.
// Concrete variants are ConstructInstr, TermInstr, RewriteInstr and
// ReturnInstr; the interface exists only to let the engines hold a closed,
// switchable set of item kinds in one slice, the same discrimination
// discipline spec.md's tagged-variant design note asks for.
type Instruction interface {
	Kind() InstructionKind
}

// ConstructInstr assembles symbol(values...) from the scratch-stack slots
// named by ChildSlots (in order) and places the result into Slot.
type ConstructInstr struct {
	Symbol     *aterm.Symbol
	Arity      int
	Slot       int
	ChildSlots []int
}

func (ConstructInstr) Kind() InstructionKind { return KindConstruct }

// TermInstr places a precomputed constant term into Slot.
type TermInstr struct {
	Term *aterm.Term
	Slot int
}

func (TermInstr) Kind() InstructionKind { return KindTerm }

// RewriteInstr marks the subterm at Slot for in-place normalization. Compile
// never emits it, Evaluate skips it, and the engines in
// internal/rewrite/engine do not use it.
type RewriteInstr struct {
	Slot int
}

func (RewriteInstr) Kind() InstructionKind { return KindRewrite }

// ReturnInstr marks the end of a compiled instruction list; the driving
// engine reads the result out of slot 0.
type ReturnInstr struct{}

func (ReturnInstr) Kind() InstructionKind { return KindReturn }

// VariableFetch records that, at rule-application time, the subterm found
// at LHSPosition in the matched subject must be copied into StackIndex
// before the compiled instruction list runs.
type VariableFetch struct {
	LHSPosition Position
	StackIndex  int
}

// CompiledRHS is the output of Compile: a linear instruction list that,
// given the variable fetches populated from a matching substitution,
// constructs the rewritten term without recursion.
type CompiledRHS struct {
	Instructions    []Instruction
	VariableFetches []VariableFetch
	StackSize       int
	Duplicating     bool
}

// Compile walks rhs and produces its CompiledRHS, given the position of
// every left-hand-side variable (lhsPositions, keyed by variable name, as
// returned by VariablePositions). Traversal is iterative — an explicit
// frame stack, never a recursive call per subterm — per the "coroutine/
// recursion avoidance" design discipline this package shares with the
// SCC/topological-sort code in internal/lts/reduction.
//
// Slots are handed out as nodes are first visited, all of a node's children
// at once (the root gets slot 0, so the final result always lands in slot 0),
// while instructions are appended in postorder: a
// Construct for a node is only appended once every child frame below it has
// finished, so by the time it runs, the scratch stack already holds that
// node's children.
func Compile(rhs *aterm.Term, lhsPositions map[string]Position) *CompiledRHS {
	c := &compiler{lhsPositions: lhsPositions}
	c.compile(rhs)
	c.instructions = append(c.instructions, ReturnInstr{})

	return &CompiledRHS{
		Instructions:    c.instructions,
		VariableFetches: c.fetches,
		StackSize:       c.slotCount,
		Duplicating:     hasDuplicateFetch(c.fetches),
	}
}

type compiler struct {
	lhsPositions map[string]Position
	slotCount    int
	instructions []Instruction
	fetches      []VariableFetch
}

func (c *compiler) nextSlot() int {
	s := c.slotCount
	c.slotCount++
	return s
}

type compileFrame struct {
	node       *aterm.Term
	slot       int
	childSlots []int
	nextChild  int
}

func (c *compiler) compile(root *aterm.Term) {
	rootSlot := c.nextSlot()
	stack := []*compileFrame{{node: root, slot: rootSlot}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.node.IsVariable() {
			pos := c.lhsPositions[f.node.VariableName()]
			c.fetches = append(c.fetches, VariableFetch{LHSPosition: pos, StackIndex: f.slot})
			stack = stack[:len(stack)-1]
			continue
		}

		args := f.node.Args()
		if len(args) == 0 {
			c.instructions = append(c.instructions, TermInstr{Term: f.node, Slot: f.slot})
			stack = stack[:len(stack)-1]
			continue
		}

		if f.childSlots == nil {
			f.childSlots = make([]int, len(args))
			for i := range args {
				f.childSlots[i] = c.nextSlot()
			}
		}

		if f.nextChild < len(args) {
			i := f.nextChild
			f.nextChild++
			stack = append(stack, &compileFrame{node: args[i], slot: f.childSlots[i]})
			continue
		}

		c.instructions = append(c.instructions, ConstructInstr{
			Symbol:     f.node.Symbol(),
			Arity:      len(args),
			Slot:       f.slot,
			ChildSlots: f.childSlots,
		})
		stack = stack[:len(stack)-1]
	}
}

// hasDuplicateFetch reports whether two variable fetches share a left-hand-
// side position — the definition of a duplicating rule.
func hasDuplicateFetch(fetches []VariableFetch) bool {
	seen := map[string]bool{}
	for _, f := range fetches {
		k := f.LHSPosition.String()
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}
