// Package rectest parses a subset of the REC specification format used by
// the original term-rewriting test suites this toolkit's rewrite engines
// were checked against (see _examples/original_source's rec_tests crate).
// It exists only so this toolkit's own test fixtures can be authored as
// REC-like literals instead of hand-built rule structs — it is not a
// general rule-file surface parser (that remains out of scope; see
// spec.md §1's REC/AUT-surface-parser non-goal).
//
// Only the RULES and EVAL sections are actually interpreted: CONS, OPNS,
// and VARS declare symbol arities and variable names, but
// aterm.Store.FromString already distinguishes a variable from a
// constructor application by its leading-uppercase-or-underscore
// convention, so this package skips those sections rather than
// cross-checking declarations against term shape.
package rectest

import (
	"fmt"
	"strings"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/rewrite"
)

// RuleText is one REC rule, still in textual form — callers hand LHS, RHS,
// and each Condition's LHS/RHS to aterm.Store.FromString.
type RuleText struct {
	LHS, RHS   string
	Conditions []ConditionText
}

// ConditionText is one "if"/"and-if" clause. Equality is true for "=",
// false for "<>".
type ConditionText struct {
	LHS, RHS string
	Equality bool
}

// Spec is a parsed REC-subset specification.
type Spec struct {
	Rules []RuleText
	Eval  []string
}

var sectionHeaders = map[string]bool{
	"CONS":  true,
	"OPNS":  true,
	"VARS":  true,
	"RULES": true,
	"EVAL":  true,
}

// Parse parses a REC-subset specification. Recognized section headers
// (CONS, OPNS, VARS, RULES, EVAL) must appear alone on a line; everything
// else is taken as content of whichever section came before it. Lines
// starting with "%" are comments, matching the original format.
func Parse(contents string) (*Spec, error) {
	spec := &Spec{}
	section := ""

	for lineNo, rawLine := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}

		upper := strings.ToUpper(line)
		if sectionHeaders[upper] {
			section = upper
			continue
		}

		switch section {
		case "RULES":
			rule, err := parseRuleLine(line)
			if err != nil {
				return nil, fmt.Errorf("rectest: line %d: %w", lineNo+1, err)
			}
			spec.Rules = append(spec.Rules, rule)
		case "EVAL":
			spec.Eval = append(spec.Eval, line)
		case "CONS", "OPNS", "VARS":
			// Declarations only; arities are re-derived from the rules and
			// eval terms themselves (see package doc).
		default:
			return nil, fmt.Errorf("rectest: line %d: content %q outside any recognized section", lineNo+1, line)
		}
	}

	return spec, nil
}

// parseRuleLine parses "lhs = rhs" or "lhs = rhs if cond (and-if cond)*".
func parseRuleLine(line string) (RuleText, error) {
	body := line
	var condText string
	if idx := strings.Index(line, " if "); idx >= 0 {
		body = line[:idx]
		condText = line[idx+len(" if "):]
	}

	lhs, rhs, err := splitEquation(body, "=")
	if err != nil {
		return RuleText{}, fmt.Errorf("rule body %q: %w", body, err)
	}
	rule := RuleText{LHS: lhs, RHS: rhs}

	if condText != "" {
		for _, clause := range strings.Split(condText, " and-if ") {
			clause = strings.TrimSpace(clause)
			cond, err := parseCondition(clause)
			if err != nil {
				return RuleText{}, fmt.Errorf("condition %q: %w", clause, err)
			}
			rule.Conditions = append(rule.Conditions, cond)
		}
	}

	return rule, nil
}

// parseCondition parses "lhs = rhs" or "lhs <> rhs".
func parseCondition(clause string) (ConditionText, error) {
	if lhs, rhs, err := splitEquation(clause, "<>"); err == nil {
		return ConditionText{LHS: lhs, RHS: rhs, Equality: false}, nil
	}
	lhs, rhs, err := splitEquation(clause, "=")
	if err != nil {
		return ConditionText{}, err
	}
	return ConditionText{LHS: lhs, RHS: rhs, Equality: true}, nil
}

// Build parses every rule and eval term against store, assigning dense IDs
// to the returned rules in file order (the same convention
// cmd/symctl.parseRules uses).
func (spec *Spec) Build(store *aterm.Store) ([]*rewrite.Rule, []*aterm.Term, error) {
	rules := make([]*rewrite.Rule, len(spec.Rules))
	for i, rt := range spec.Rules {
		lhs, err := store.FromString(rt.LHS)
		if err != nil {
			return nil, nil, fmt.Errorf("rectest: rule %d lhs: %w", i, err)
		}
		rhs, err := store.FromString(rt.RHS)
		if err != nil {
			return nil, nil, fmt.Errorf("rectest: rule %d rhs: %w", i, err)
		}

		conds := make([]rewrite.Condition, len(rt.Conditions))
		for j, ct := range rt.Conditions {
			condLHS, err := store.FromString(ct.LHS)
			if err != nil {
				return nil, nil, fmt.Errorf("rectest: rule %d condition %d lhs: %w", i, j, err)
			}
			condRHS, err := store.FromString(ct.RHS)
			if err != nil {
				return nil, nil, fmt.Errorf("rectest: rule %d condition %d rhs: %w", i, j, err)
			}
			conds[j] = rewrite.Condition{LHS: condLHS, RHS: condRHS, Equal: ct.Equality}
		}

		rules[i] = &rewrite.Rule{ID: i, LHS: lhs, RHS: rhs, Conditions: conds}
	}

	evalTerms := make([]*aterm.Term, len(spec.Eval))
	for i, text := range spec.Eval {
		term, err := store.FromString(text)
		if err != nil {
			return nil, nil, fmt.Errorf("rectest: eval term %d: %w", i, err)
		}
		evalTerms[i] = term
	}

	return rules, evalTerms, nil
}

// splitEquation splits text on the first occurrence of op, trimming both
// sides. It is an error for op not to appear, or for either side to be
// empty after trimming.
func splitEquation(text, op string) (lhs, rhs string, err error) {
	idx := strings.Index(text, op)
	if idx < 0 {
		return "", "", fmt.Errorf("missing %q", op)
	}
	lhs = strings.TrimSpace(text[:idx])
	rhs = strings.TrimSpace(text[idx+len(op):])
	if lhs == "" || rhs == "" {
		return "", "", fmt.Errorf("empty side of %q", op)
	}
	return lhs, rhs, nil
}
