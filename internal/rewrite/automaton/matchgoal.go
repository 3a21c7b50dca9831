package automaton

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
)

// findObligationAt returns the index of goal's obligation sitting exactly
// at position, if any.
func findObligationAt(obligations []Obligation, position rewrite.Position) (int, bool) {
	for i, ob := range obligations {
		if ob.Position.Equal(position) {
			return i, true
		}
	}
	return -1, false
}

// allChildrenVariables reports whether every child of pattern is a pattern
// variable — the condition for an obligation's discharge to Complete its
// goal (spec.md §4.8: "whose children are all variables at the matching
// position").
func allChildrenVariables(pattern *aterm.Term) bool {
	for _, a := range pattern.Args() {
		if !a.IsVariable() {
			return false
		}
	}
	return true
}

func sortObligationsByPositionLength(obligations []Obligation) {
	sort.SliceStable(obligations, func(i, j int) bool {
		if len(obligations[i].Position) != len(obligations[j].Position) {
			return len(obligations[i].Position) < len(obligations[j].Position)
		}
		return obligations[i].Position.Less(obligations[j].Position)
	})
}

// minObligationPosition returns the shortest (and, among ties, lexically
// smallest) obligation position in a goal — the position this goal is next
// examined at.
func minObligationPosition(g MatchGoal) rewrite.Position {
	if len(g.Obligations) == 0 {
		return rewrite.Position{}
	}
	min := g.Obligations[0].Position
	for _, ob := range g.Obligations[1:] {
		if len(ob.Position) < len(min) || (len(ob.Position) == len(min) && ob.Position.Less(min)) {
			min = ob.Position
		}
	}
	return min
}

// stateLabelPosition computes a state's label position from its surviving
// match goals: the shortest pending obligation position among them, or the
// root position if every goal has already discharged all its obligations
// (a dead end that will never complete further, kept only for structural
// completeness).
func stateLabelPosition(goals []MatchGoal) rewrite.Position {
	best := rewrite.Position(nil)
	for _, g := range goals {
		p := minObligationPosition(g)
		if best == nil || len(p) < len(best) || (len(p) == len(best) && p.Less(best)) {
			best = p
		}
	}
	if best == nil {
		return rewrite.Position{}
	}
	return best
}

// goalSetKey builds a canonical interning key for a match-goal set: states
// are deduplicated by their sorted match-goal set, per SPEC_FULL.md §3.7.
func goalSetKey(goals []MatchGoal) string {
	keys := make([]string, len(goals))
	for i, g := range goals {
		keys[i] = goalKey(g)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func goalKey(g MatchGoal) string {
	var sb strings.Builder
	obs := make([]Obligation, len(g.Obligations))
	copy(obs, g.Obligations)
	sortObligationsByPositionLength(obs)
	for _, ob := range obs {
		fmt.Fprintf(&sb, "%s@%s;", ob.Pattern.String(), ob.Position)
	}
	fmt.Fprintf(&sb, "#rule%d@%s", g.Announcement.Rule.ID, g.Announcement.Position)
	return sb.String()
}

// partitionGoals groups goals into the connected components of the "pending
// positions are comparable (one a prefix of the other)" relation, via a
// simple union-find; two goals in one group need not be directly
// comparable. Used only by Full-mode construction.
func partitionGoals(goals []MatchGoal) [][]MatchGoal {
	n := len(goals)
	if n == 0 {
		return nil
	}
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	positions := make([]rewrite.Position, n)
	for i, g := range goals {
		positions[i] = minObligationPosition(g)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if positions[i].IsPrefixOf(positions[j]) || positions[j].IsPrefixOf(positions[i]) {
				union(i, j)
			}
		}
	}

	groups := map[int][]MatchGoal{}
	var order []int
	for i, g := range goals {
		r := find(i)
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], g)
	}
	out := make([][]MatchGoal, len(order))
	for i, r := range order {
		out[i] = groups[r]
	}
	return out
}

// groupGCP returns the greatest common prefix of every obligation position
// in a partition group.
func groupGCP(group []MatchGoal) rewrite.Position {
	var positions []rewrite.Position
	for _, g := range group {
		for _, ob := range g.Obligations {
			positions = append(positions, ob.Position)
		}
	}
	return rewrite.GCP(positions)
}

// rebaseGroup strips gcp from every obligation position in group, producing
// the residual goal set the destination state is built from.
func rebaseGroup(group []MatchGoal, gcp rewrite.Position) []MatchGoal {
	out := make([]MatchGoal, len(group))
	for i, g := range group {
		obs := make([]Obligation, len(g.Obligations))
		for j, ob := range g.Obligations {
			obs[j] = Obligation{Pattern: ob.Pattern, Position: ob.Position[len(gcp):]}
		}
		out[i] = MatchGoal{Obligations: obs, Announcement: g.Announcement}
	}
	return out
}
