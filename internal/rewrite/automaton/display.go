package automaton

import (
	"fmt"
	"sort"
	"strings"
)

// String renders a textual dump of every state and transition — not a
// graph-layout tool (out of scope), just enough to eyeball a small
// automaton while debugging a rule set.
func (a *SetAutomaton) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SetAutomaton(mode=%s, build=%s, states=%d)\n", a.Mode, a.BuildID, len(a.States))

	for _, s := range a.States {
		fmt.Fprintf(&sb, "  state %d @ %s (%d goals):\n", s.Index, s.LabelPosition, len(s.MatchGoals))

		symbols := make([]string, 0, len(s.Transitions))
		for sym := range s.Transitions {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)

		for _, sym := range symbols {
			tr := s.Transitions[sym]
			fmt.Fprintf(&sb, "    on %s: %d announcement(s)", sym, len(tr.Announcements))
			for _, ann := range tr.Announcements {
				fmt.Fprintf(&sb, " [rule %d]", ann.Rule.ID)
			}
			for _, d := range tr.Destinations {
				fmt.Fprintf(&sb, " -> state %d @+%s", d.NextState, d.RelativePosition)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
