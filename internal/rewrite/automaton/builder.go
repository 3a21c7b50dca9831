package automaton

import (
	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/dekarrin/symbane/internal/symerrors"
	"github.com/google/uuid"
)

// Build constructs a SetAutomaton from rules over the given function-symbol
// universe, in the requested Mode. Construction is a breadth-first worklist
// over states, deduplicated by their sorted match-goal set (goalSetKey),
// the same interning-by-canonical-key discipline internal/lts's Builder
// uses for its label table.
func Build(store *aterm.Store, rules []*rewrite.Rule, symbols []*aterm.Symbol, mode Mode) (*SetAutomaton, error) {
	initialGoals := make([]MatchGoal, len(rules))
	for i, r := range rules {
		initialGoals[i] = MatchGoal{
			Obligations:  []Obligation{{Pattern: r.LHS, Position: rewrite.Position{}}},
			Announcement: Announcement{Rule: r, Position: rewrite.Position{}, SymbolsSeen: 0},
		}
	}

	b := &builder{
		store:   store,
		mode:    mode,
		symbols: symbols,
		interned: map[string]int{
			goalSetKey(initialGoals): 0,
		},
	}
	b.states = append(b.states, &State{
		Index:         0,
		LabelPosition: rewrite.Position{},
		MatchGoals:    initialGoals,
		Transitions:   map[string]*Transition{},
	})

	queue := []int{0}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		s := b.states[idx]

		for _, sym := range symbols {
			fresh, err := b.deriveTransition(s, sym)
			if err != nil {
				return nil, err
			}
			if fresh != nil {
				queue = append(queue, fresh...)
			}
		}
	}

	return &SetAutomaton{Mode: mode, States: b.states, BuildID: uuid.New()}, nil
}

type builder struct {
	store    *aterm.Store
	mode     Mode
	symbols  []*aterm.Symbol
	states   []*State
	interned map[string]int
}

// deriveTransition computes and records the transition out of s on sym,
// returning any newly-created state indices so the caller can enqueue them.
func (b *builder) deriveTransition(s *State, sym *aterm.Symbol) ([]int, error) {
	lp := s.LabelPosition

	var completed []Announcement
	var carried []MatchGoal

	for _, g := range s.MatchGoals {
		idx, ok := findObligationAt(g.Obligations, lp)
		if !ok {
			// Unchanged: this goal has no obligation at lp, carry it as-is.
			ann := g.Announcement
			if !isTrivialLHS(g.Announcement.Rule) {
				ann.SymbolsSeen++
			}
			carried = append(carried, MatchGoal{Obligations: g.Obligations, Announcement: ann})
			continue
		}

		ob := g.Obligations[idx]
		if ob.Pattern.IsVariable() || ob.Pattern.Symbol() == nil || ob.Pattern.Symbol().Name() != sym.Name() || ob.Pattern.Arity() != sym.Arity() {
			// Discarded: obligation at lp doesn't match this symbol.
			continue
		}

		if len(g.Obligations) == 1 && allChildrenVariables(ob.Pattern) {
			// Completed.
			completed = append(completed, g.Announcement)
			continue
		}

		// Reduced: replace this obligation with one per non-variable child,
		// at the deepened positions.
		next := make([]Obligation, 0, len(g.Obligations)-1+ob.Pattern.Arity())
		for i, o := range g.Obligations {
			if i == idx {
				continue
			}
			next = append(next, o)
		}
		for i, child := range ob.Pattern.Args() {
			if child.IsVariable() {
				continue
			}
			next = append(next, Obligation{Pattern: child, Position: lp.Child(i + 1)})
		}
		sortObligationsByPositionLength(next)
		carried = append(carried, MatchGoal{Obligations: next, Announcement: g.Announcement})
	}

	if len(completed) == 0 && len(carried) == 0 {
		// No goal reacts to this symbol at all: no transition recorded.
		return nil, nil
	}

	enhanced := make([]EnhancedAnnouncement, 0, len(completed))
	for _, ann := range completed {
		e, err := enhance(ann)
		if err != nil {
			return nil, err
		}
		enhanced = append(enhanced, e)
	}

	var destinations []Destination
	var newStates []int

	switch b.mode {
	case APMA:
		if len(carried) > 0 {
			idx, isNew := b.intern(carried)
			destinations = append(destinations, Destination{RelativePosition: rewrite.Position{}, NextState: idx})
			if isNew {
				newStates = append(newStates, idx)
			}
		}
	case Full:
		dests, created, err := b.fullDestinations(carried, lp, sym.Arity())
		if err != nil {
			return nil, err
		}
		destinations = dests
		newStates = created
	default:
		return nil, symerrors.InternalInvariantViolation("unknown automaton mode %d", b.mode)
	}

	s.Transitions[sym.Name()] = &Transition{
		Symbol:        sym.Name(),
		Announcements: enhanced,
		Destinations:  destinations,
	}
	return newStates, nil
}

// fullDestinations implements the Full-mode destination computation:
// partition the carried goal set by position comparability, factor out each
// group's greatest common prefix, then for every child index of the symbol
// either splice fresh per-rule goals into a comparable group or fall back to
// a back edge to the initial state (whose own goal set already is "fresh
// per-rule goals rooted here").
func (b *builder) fullDestinations(carried []MatchGoal, lp rewrite.Position, arity int) ([]Destination, []int, error) {
	groups := partitionGoals(carried)

	type rebased struct {
		gcp   rewrite.Position
		goals []MatchGoal
	}
	rgs := make([]rebased, len(groups))
	for i, g := range groups {
		gcp := groupGCP(g)
		rgs[i] = rebased{gcp: gcp, goals: rebaseGroup(g, gcp)}
	}

	handled := make([]bool, arity)
	for gi := range rgs {
		gcp := rgs[gi].gcp
		if len(gcp) == 0 {
			continue
		}
		i := gcp[0]
		if i >= 1 && i <= arity && !handled[i-1] {
			rgs[gi].goals = append(rgs[gi].goals, freshGoalsRebased(b.rules(), gcp)...)
			handled[i-1] = true
		}
	}

	var destinations []Destination
	var created []int
	for _, rg := range rgs {
		idx, isNew := b.intern(rg.goals)
		destinations = append(destinations, Destination{RelativePosition: rg.gcp, NextState: idx})
		if isNew {
			created = append(created, idx)
		}
	}
	for i := 1; i <= arity; i++ {
		if !handled[i-1] {
			destinations = append(destinations, Destination{RelativePosition: lp.Child(i), NextState: 0})
		}
	}
	return destinations, created, nil
}

// freshGoalsRebased builds one fresh per-rule goal whose single obligation
// sits at the residual position gcp[1:], relative to the destination state
// the rebased group moves to.
func freshGoalsRebased(rules []*rewrite.Rule, gcp rewrite.Position) []MatchGoal {
	residual := gcp[1:]
	out := make([]MatchGoal, len(rules))
	for i, r := range rules {
		out[i] = MatchGoal{
			Obligations:  []Obligation{{Pattern: r.LHS, Position: residual}},
			Announcement: Announcement{Rule: r, Position: rewrite.Position{}, SymbolsSeen: 0},
		}
	}
	return out
}

func (b *builder) rules() []*rewrite.Rule {
	rules := make([]*rewrite.Rule, len(b.states[0].MatchGoals))
	for i, g := range b.states[0].MatchGoals {
		rules[i] = g.Announcement.Rule
	}
	return rules
}

// intern returns the index of the state for goals, creating it if this
// exact sorted match-goal set was never seen before.
func (b *builder) intern(goals []MatchGoal) (int, bool) {
	key := goalSetKey(goals)
	if idx, ok := b.interned[key]; ok {
		return idx, false
	}
	idx := len(b.states)
	b.interned[key] = idx
	b.states = append(b.states, &State{
		Index:         idx,
		LabelPosition: stateLabelPosition(goals),
		MatchGoals:    goals,
		Transitions:   map[string]*Transition{},
	})
	return idx, true
}

func isTrivialLHS(r *rewrite.Rule) bool {
	return r.LHS.IsVariable()
}

// enhance precompiles the equivalence classes, condition instruction lists
// and RHS instruction list for a completed announcement.
func enhance(ann Announcement) (EnhancedAnnouncement, error) {
	allPositions := rewrite.AllVariablePositions(ann.Rule.LHS)
	first := map[string]rewrite.Position{}
	equiv := map[string][]rewrite.Position{}
	for name, positions := range allPositions {
		first[name] = positions[0]
		if len(positions) >= 2 {
			equiv[name] = positions
		}
	}

	rhs := rewrite.Compile(ann.Rule.RHS, first)

	conditions := make([]CompiledCondition, len(ann.Rule.Conditions))
	for i, c := range ann.Rule.Conditions {
		conditions[i] = CompiledCondition{
			LHS:   rewrite.Compile(c.LHS, first),
			RHS:   rewrite.Compile(c.RHS, first),
			Equal: c.Equal,
		}
	}

	return EnhancedAnnouncement{
		Announcement: ann,
		EquivClasses: equiv,
		Conditions:   conditions,
		RHS:          rhs,
		Duplicating:  rhs.Duplicating,
	}, nil
}
