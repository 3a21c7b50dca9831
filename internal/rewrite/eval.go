package rewrite

import (
	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/symerrors"
)

// Evaluate runs a compiled right-hand side against a matched subject term:
// it seeds the scratch slots from VariableFetches (reading each fetched
// subterm out of subject via GetPosition), then executes Instructions in
// order, and returns whatever landed in slot 0.
//
// Evaluate never consults the rewrite engines: RewriteInstr entries are
// skipped here. Compile never emits them, and the engines in
// internal/rewrite/engine normalize terms through their own work stacks
// rather than through instructions in a compiled list.
func Evaluate(store *aterm.Store, compiled *CompiledRHS, subject *aterm.Term) (*aterm.Term, error) {
	values := make([]*aterm.Term, compiled.StackSize)

	for _, fetch := range compiled.VariableFetches {
		v, err := GetPosition(subject, fetch.LHSPosition)
		if err != nil {
			return nil, err
		}
		values[fetch.StackIndex] = v
	}

	for _, instr := range compiled.Instructions {
		switch ins := instr.(type) {
		case TermInstr:
			values[ins.Slot] = ins.Term
		case ConstructInstr:
			args := make([]*aterm.Term, ins.Arity)
			for i, slot := range ins.ChildSlots {
				args[i] = values[slot]
			}
			var (
				result *aterm.Term
				err    error
			)
			if ins.Symbol.Arity() != ins.Arity {
				result, err = store.CreateApplication(ins.Symbol, args)
			} else {
				result, err = store.Create(ins.Symbol, args)
			}
			if err != nil {
				return nil, err
			}
			values[ins.Slot] = result
		case RewriteInstr:
			// No-op here; see doc comment.
		case ReturnInstr:
			// Marks end of program; nothing to do.
		default:
			return nil, symerrors.InternalInvariantViolation("unknown instruction kind %v", instr.Kind())
		}
	}

	if compiled.StackSize == 0 {
		return nil, symerrors.InternalInvariantViolation("compiled program has no slot 0")
	}
	return values[0], nil
}
