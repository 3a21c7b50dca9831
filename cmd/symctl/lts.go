package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/dekarrin/symbane/internal/lts"
	"github.com/dekarrin/symbane/internal/lts/persist"
	"github.com/dekarrin/symbane/internal/lts/reduction"
)

// parseLtsFile reads a transition file: one "from label to" triple per line
// (whitespace-separated), blank lines and "#"-prefixed comments ignored. The
// initial state is always 0 — this is a fixture format for driving the
// reduction engines from the CLI, not a general AUT-surface parser (that
// remains out of scope; see internal/rewrite/rectest's package doc for the
// analogous call on the term-rewriting side).
func parseLtsFile(path string) ([]lts.RawTransition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var raw []lts.RawTransition
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: expected \"from label to\", got %q", path, lineNo, line)
		}
		from, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: from state %q: %w", path, lineNo, fields[0], err)
		}
		to, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: to state %q: %w", path, lineNo, fields[2], err)
		}
		raw = append(raw, lts.RawTransition{From: lts.StateIndex(from), Label: fields[1], To: lts.StateIndex(to)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

// collectLabels returns the distinct label names appearing in raw, in first-
// seen order, for handing to lts.NewBuilder.
func collectLabels(raw []lts.RawTransition) []string {
	seen := map[string]bool{}
	var labels []string
	for _, tr := range raw {
		if !seen[tr.Label] {
			seen[tr.Label] = true
			labels = append(labels, tr.Label)
		}
	}
	return labels
}

// ltsContentHash hashes the raw transition file bytes plus the reduction
// kind and hidden-label set, so a cache entry is only ever reused for the
// exact (file contents, hidden labels, reduction) combination that produced
// it. Uses blake2b, matching internal/aterm's own content-hash choice,
// rather than introducing a second hashing scheme for the same concern.
func ltsContentHash(fileBytes []byte, hidden []string, reduce string) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for a non-nil key longer than 64
		// bytes; nil is always accepted.
		panic("lts: blake2b.New256(nil) failed: " + err.Error())
	}
	h.Write(fileBytes)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(hidden, ",")))
	h.Write([]byte{0})
	h.Write([]byte(reduce))
	return hex.EncodeToString(h.Sum(nil))
}

// runLtsReduction loads an LTS from ltsPath, minimizes it per reduceKind
// ("strong" or "branching"), and prints the quotient's transitions. If
// cachePath is set, a cache hit skips both the load-time build and the
// reduction itself; a miss populates the cache with the quotient for next
// time.
func runLtsReduction(ltsPath string, hidden []string, reduceKind, cachePath string) error {
	fileBytes, err := os.ReadFile(ltsPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", ltsPath, err)
	}

	var store *persist.Store
	var hash string
	if cachePath != "" {
		store, err = persist.Open(cachePath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()

		hash = ltsContentHash(fileBytes, hidden, reduceKind)
		if cached, ok, err := store.Get(hash); err != nil {
			return fmt.Errorf("read cache: %w", err)
		} else if ok {
			printLts(cached)
			return nil
		}
	}

	raw, err := parseLtsFile(ltsPath)
	if err != nil {
		return err
	}
	labels := collectLabels(raw)

	source, err := lts.NewBuilder(0, lts.NewSliceSource(raw), labels, hidden).Build()
	if err != nil {
		return fmt.Errorf("build lts: %w", err)
	}

	var quotient *lts.Lts
	switch reduceKind {
	case "strong":
		quotient = reduction.Quotient(source, reduction.StrongBisim(source), false)
	case "branching", "":
		quotient = reduction.Quotient(source, reduction.BranchingBisim(source), true)
	default:
		return fmt.Errorf("unknown --reduce kind %q (want \"strong\" or \"branching\")", reduceKind)
	}

	if store != nil {
		if err := store.Put(hash, quotient); err != nil {
			return fmt.Errorf("write cache: %w", err)
		}
	}

	printLts(quotient)
	return nil
}

func printLts(l *lts.Lts) {
	fmt.Printf("states: %d, initial: %d\n", l.NumStates(), l.Initial())
	labels := l.Labels()
	for s := 0; s < l.NumStates(); s++ {
		for _, tr := range l.Outgoing(lts.StateIndex(s)) {
			fmt.Printf("%d %s %d\n", s, labels[tr.Label()], tr.Target())
		}
	}
}
