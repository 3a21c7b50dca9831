/*
Symctl is a minimal interactive driver for the term-rewriting core: it loads
a subject term and an optional set of rewrite rules, then either normalizes
the term once and prints the result or drops into a readline-driven REPL for
poking at positions and rewriting by hand.

Usage:

	symctl [flags]

The flags are:

	-v, --version
		Print the toolkit version and exit.

	-t, --term TEXT
		The subject term to operate on, e.g. "plus(s(0),s(s(0)))".

	-r, --rule LHS=RHS
		A rewrite rule, given in "lhs=rhs" textual-term form. Can be
		repeated to supply more than one rule.

	-e, --engine NAME
		Which rewrite engine to normalize with: "innermost" or "sabre"
		(default, from internal/config's DefaultConfig).

	-c, --config FILE
		Path to a TOML config file (see internal/config). Unset flags
		above fall back to the loaded config's Engine.

	-i, --interactive
		Drop into a readline REPL instead of normalizing once and exiting.

	-l, --lts FILE
		Path to a transition file ("from label to" triples, one per
		line) to minimize instead of running the term-rewriting mode.
		When set, --term/--rule/--interactive are ignored.

	-H, --lts-hidden LABEL
		A label to fold into tau before minimizing. Can be repeated.
		Only meaningful with --lts.

	-R, --reduce KIND
		Which bisimulation to minimize --lts by: "strong" or
		"branching" (default). Only meaningful with --lts.

	--cache FILE
		Path to a sqlite snapshot cache (internal/lts/persist). When
		set with --lts, a cache hit skips rebuilding and re-minimizing
		the transition file entirely; a miss populates the cache with
		the computed quotient.

Once in the REPL, "get POS" prints the subterm at POS (e.g. "get 1.2"),
"sub POS TEXT" substitutes TEXT at POS, "rewrite" normalizes the current
term with the configured engine, "show" prints the current term, and "quit"
exits. POS uses the dot-separated 1-based child-index form ("1.2"), or "." /
"" for the root.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/dekarrin/symbane/internal/aterm"
	"github.com/dekarrin/symbane/internal/config"
	"github.com/dekarrin/symbane/internal/rewrite"
	"github.com/dekarrin/symbane/internal/rewrite/automaton"
	"github.com/dekarrin/symbane/internal/rewrite/engine"
	"github.com/dekarrin/symbane/internal/version"
)

const (
	exitSuccess = iota
	exitInitError
	exitRuntimeError
)

var (
	returnCode   = exitSuccess
	flagVersion  = pflag.BoolP("version", "v", false, "Print the toolkit version and exit")
	flagTerm     = pflag.StringP("term", "t", "", "The subject term to operate on")
	flagRules    = pflag.StringArrayP("rule", "r", nil, `A rewrite rule as "lhs=rhs"; may be repeated`)
	flagEngine   = pflag.StringP("engine", "e", "", `Rewrite engine to use: "innermost" or "sabre"`)
	flagConfig   = pflag.StringP("config", "c", "", "Path to a TOML config file")
	flagInteract = pflag.BoolP("interactive", "i", false, "Drop into a readline REPL")
	flagLts      = pflag.StringP("lts", "l", "", "Path to a transition file to minimize instead of rewriting a term")
	flagHidden   = pflag.StringArrayP("lts-hidden", "H", nil, "A label to fold into tau before minimizing; may be repeated")
	flagReduce   = pflag.StringP("reduce", "R", "branching", `Bisimulation to minimize --lts by: "strong" or "branching"`)
	flagCache    = pflag.String("cache", "", "Path to a sqlite snapshot cache (internal/lts/persist)")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	cfg := config.DefaultConfig()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: load config: %s\n", err.Error())
			returnCode = exitInitError
			return
		}
		cfg = loaded
	}
	if *flagEngine != "" {
		cfg.Engine = config.Engine(*flagEngine)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = exitInitError
		return
	}

	if *flagLts != "" {
		if err := runLtsReduction(*flagLts, *flagHidden, *flagReduce, *flagCache); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = exitRuntimeError
		}
		return
	}

	if *flagTerm == "" {
		fmt.Fprintln(os.Stderr, "ERROR: --term is required")
		returnCode = exitInitError
		return
	}

	store := aterm.NewStore()
	term, err := store.FromString(*flagTerm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: parse term: %s\n", err.Error())
		returnCode = exitInitError
		return
	}

	rules, err := parseRules(store, *flagRules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: parse rules: %s\n", err.Error())
		returnCode = exitInitError
		return
	}

	sess := &session{store: store, term: term, rules: rules, cfg: cfg}
	if err := sess.buildEngines(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: build automaton: %s\n", err.Error())
		returnCode = exitInitError
		return
	}

	if *flagInteract {
		if err := sess.repl(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = exitRuntimeError
		}
		return
	}

	result, err := sess.rewrite()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: rewrite: %s\n", err.Error())
		returnCode = exitRuntimeError
		return
	}
	fmt.Println(result.String())
}

// parseRules parses each "lhs=rhs" flag value into a rewrite.Rule. IDs are
// assigned densely in flag order, matching the convention
// internal/rewrite/automaton expects (rule.ID used to key compiled
// artifacts).
func parseRules(store *aterm.Store, raw []string) ([]*rewrite.Rule, error) {
	rules := make([]*rewrite.Rule, len(raw))
	for i, r := range raw {
		parts := strings.SplitN(r, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("rule %q: must be in lhs=rhs form", r)
		}
		lhs, err := store.FromString(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("rule %q: lhs: %w", r, err)
		}
		rhs, err := store.FromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("rule %q: rhs: %w", r, err)
		}
		rules[i] = &rewrite.Rule{ID: i, LHS: lhs, RHS: rhs}
	}
	return rules, nil
}

// collectSymbols walks term and every rule's lhs/rhs, in the same
// iterative-stack style as rewrite.AllVariablePositions, gathering every
// distinct function symbol Build needs to know about.
func collectSymbols(term *aterm.Term, rules []*rewrite.Rule) []*aterm.Symbol {
	seen := map[string]*aterm.Symbol{}
	var walk func(roots []*aterm.Term)
	walk = func(roots []*aterm.Term) {
		stack := append([]*aterm.Term{}, roots...)
		for len(stack) > 0 {
			t := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if t.IsVariable() {
				continue
			}
			sym := t.Symbol()
			key := sym.Name() + "/" + strconv.Itoa(sym.Arity())
			if _, ok := seen[key]; !ok {
				seen[key] = sym
			}
			stack = append(stack, t.Args()...)
		}
	}

	roots := []*aterm.Term{term}
	for _, r := range rules {
		roots = append(roots, r.LHS, r.RHS)
		for _, c := range r.Conditions {
			roots = append(roots, c.LHS, c.RHS)
		}
	}
	walk(roots)

	out := make([]*aterm.Symbol, 0, len(seen))
	for _, sym := range seen {
		out = append(out, sym)
	}
	return out
}

// session holds the state a REPL command operates on: the current term, and
// both automata built once up front so "rewrite" never rebuilds them.
type session struct {
	store *aterm.Store
	term  *aterm.Term
	rules []*rewrite.Rule
	cfg   config.Config

	apma *automaton.SetAutomaton
	full *automaton.SetAutomaton
}

func (s *session) buildEngines() error {
	if len(s.rules) == 0 {
		return nil
	}
	symbols := collectSymbols(s.term, s.rules)

	apma, err := automaton.Build(s.store, s.rules, symbols, automaton.APMA)
	if err != nil {
		return fmt.Errorf("build APMA: %w", err)
	}
	s.apma = apma

	full, err := automaton.Build(s.store, s.rules, symbols, automaton.Full)
	if err != nil {
		return fmt.Errorf("build full automaton: %w", err)
	}
	s.full = full
	return nil
}

func (s *session) rewrite() (*aterm.Term, error) {
	if len(s.rules) == 0 {
		return s.term, nil
	}
	ctx := context.Background()
	switch s.cfg.Engine {
	case config.EngineSabre:
		return engine.NewSabreRewriter(s.store, s.full).Rewrite(ctx, s.term)
	default:
		return engine.NewInnermostRewriter(s.store, s.apma).Rewrite(ctx, s.term)
	}
}

func (s *session) repl() error {
	rl, err := readline.NewEx(&readline.Config{Prompt: "symctl> "})
	if err != nil {
		return fmt.Errorf("create readline config: %w", err)
	}
	defer rl.Close()

	fmt.Printf("symbane %s — term: %s (engine: %s)\n", version.Current, s.term.String(), s.cfg.Engine)
	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		cmd := fields[0]
		var rest string
		if len(fields) == 2 {
			rest = strings.TrimSpace(fields[1])
		}

		switch cmd {
		case "quit", "exit":
			return nil
		case "show":
			fmt.Println(s.term.String())
		case "get":
			pos, err := parsePosition(rest)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				continue
			}
			sub, err := rewrite.GetPosition(s.term, pos)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				continue
			}
			fmt.Println(sub.String())
		case "sub":
			subParts := strings.SplitN(rest, " ", 2)
			if len(subParts) != 2 {
				fmt.Fprintln(os.Stderr, "ERROR: usage: sub POS TEXT")
				continue
			}
			pos, err := parsePosition(subParts[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				continue
			}
			newSubterm, err := s.store.FromString(strings.TrimSpace(subParts[1]))
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: parse term: %s\n", err.Error())
				continue
			}
			next, err := rewrite.Substitute(s.store, s.term, newSubterm, pos)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				continue
			}
			s.term = next
			fmt.Println(s.term.String())
		case "rewrite":
			result, err := s.rewrite()
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				continue
			}
			s.term = result
			fmt.Println(s.term.String())
		default:
			fmt.Fprintf(os.Stderr, "ERROR: unknown command %q (try: show, get, sub, rewrite, quit)\n", cmd)
		}
	}
}

// parsePosition parses the REPL's dot-separated 1-based child-index form
// ("1.2", "." or "" for the root) into a rewrite.Position.
func parsePosition(text string) (rewrite.Position, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "." {
		return rewrite.Position{}, nil
	}
	parts := strings.Split(text, ".")
	pos := make(rewrite.Position, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("position %q: %q is not a positive child index", text, p)
		}
		pos[i] = n
	}
	return pos, nil
}
