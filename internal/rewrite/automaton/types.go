// Package automaton builds the Set Automaton / Adaptive Pattern Matching
// Automaton (APMA) used by the rewrite engines to locate, in one pass, which
// rule (if any) applies at a given position. See SPEC_FULL.md §3.7.
package automaton

import (
	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/google/uuid"
)

// Mode selects which of the two automaton shapes Build produces.
type Mode int

const (
	// APMA keeps match goals unpartitioned and matches only at the root of
	// a term; used by the innermost rewriter.
	APMA Mode = iota
	// Full partitions the derivative goal set by position comparability and
	// introduces fresh per-rule goals at every child position, letting the
	// Sabre rewriter match anywhere in one traversal.
	Full
)

func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "apma"
}

// Obligation is a pending match requirement: Pattern (a subterm of some
// rule's left-hand side, possibly containing pattern variables) must match
// the subject term found at Position. Position is pattern-local: it names a
// position within the rule's own lhs, not within the subject being rewritten.
type Obligation struct {
	Pattern  *aterm.Term
	Position rewrite.Position
}

// Announcement names the rule that fires once every obligation of its goal
// is discharged. Position is the subject-relative anchor at which this
// particular match attempt began; it is always the root position (Position{})
// for goals built at automaton-construction time; the rewrite engines derive
// the true subject anchor at runtime from their own configuration tracking
// (see internal/rewrite/engine), consistent with the "configuration stack"
// design of the Sabre rewriter.
type Announcement struct {
	Rule        *rewrite.Rule
	Position    rewrite.Position
	SymbolsSeen int
}

// MatchGoal is a set of obligations plus the announcement that fires once
// all of them are discharged.
type MatchGoal struct {
	Obligations  []Obligation
	Announcement Announcement
}

// EnhancedAnnouncement is an Announcement plus the artifacts precompiled at
// automaton-construction time so that firing the rule at runtime never
// revisits the rule's own AST.
type EnhancedAnnouncement struct {
	Announcement

	// EquivClasses holds, for every non-linear (≥2 occurrence) variable in
	// the rule's lhs, every position it occurs at.
	EquivClasses map[string][]rewrite.Position

	Conditions []CompiledCondition
	RHS        *rewrite.CompiledRHS

	// Duplicating reports whether the rule's rhs uses some variable more
	// than once (mirrors RHS.Duplicating; kept alongside for readability at
	// call sites that don't otherwise need the compiled RHS).
	Duplicating bool
}

// CompiledCondition is one of a rule's side conditions, both sides
// precompiled to an instruction list.
type CompiledCondition struct {
	LHS   *rewrite.CompiledRHS
	RHS   *rewrite.CompiledRHS
	Equal bool
}

// Destination names one successor of a transition: NextState to move to,
// and RelativePosition, the offset (relative to the current configuration's
// subject position) the engine must descend to before resuming there. A
// back edge to the initial state (NextState == 0) represents the "introduce
// fresh per-rule goals here" case: state 0 already holds exactly that set.
type Destination struct {
	RelativePosition rewrite.Position
	NextState        int
}

// Transition is one function-symbol-keyed edge out of a State.
type Transition struct {
	Symbol        string
	Announcements []EnhancedAnnouncement
	Destinations  []Destination
}

// State is one Set Automaton / APMA state: the position (pattern-local)
// examined next, the match goals still alive here, and the transitions on
// every function symbol that was derived reaching this state.
type State struct {
	Index         int
	LabelPosition rewrite.Position
	MatchGoals    []MatchGoal
	Transitions   map[string]*Transition
}

// SetAutomaton is the immutable result of Build.
type SetAutomaton struct {
	Mode    Mode
	States  []*State
	BuildID uuid.UUID
}

// Outgoing returns the transition on symbol out of state s, or nil if none
// was derived.
func (a *SetAutomaton) Outgoing(stateIdx int, symbol string) *Transition {
	return a.States[stateIdx].Transitions[symbol]
}
