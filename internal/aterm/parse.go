package aterm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dekarrin/symbane/internal/symerrors"
)

// foldSymbolName is applied to every parsed symbol name so that textual
// term input is compared in a case-folded form, matching the behavior of
// case-insensitive rule files the external REC-format collaborator may
// produce (spec.md §6 treats the surface rule parser as external; this
// normalization step is the seam the core exposes to it).
var foldSymbolName = cases.Fold(cases.Compact(language.Und))

// FromString parses text in the external textual form `f(a1,...,an)` (a
// bare identifier for arity-0 symbols and variables, nested applications
// for everything else) into a Term, interning every node in s.
//
// A bare identifier with a leading uppercase letter or '_' denotes a
// variable; anything else is a function symbol name. This mirrors the convention used throughout the
// rewrite-rule scenarios in spec.md §8 (e.g. `fact`, `times`, `s`, `0` are
// symbols; `N`, `X` are variables).
func (s *Store) FromString(text string) (*Term, error) {
	p := &termParser{store: s, text: text}
	p.skipSpace()
	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.text) {
		return nil, symerrors.ParseError("unexpected trailing input %q at position %d", p.text[p.pos:], p.pos)
	}
	return t, nil
}

type termParser struct {
	store *Store
	text  string
	pos   int
}

func (p *termParser) skipSpace() {
	for p.pos < len(p.text) && unicode.IsSpace(rune(p.text[p.pos])) {
		p.pos++
	}
}

func (p *termParser) parseTerm() (*Term, error) {
	p.skipSpace()
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.text) && p.text[p.pos] == '(' {
		p.pos++ // consume '('
		var args []*Term
		p.skipSpace()
		if p.pos < len(p.text) && p.text[p.pos] == ')' {
			return nil, symerrors.ParseError("symbol %q applied with empty argument list at position %d", name, p.pos)
		}
		for {
			arg, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.skipSpace()
			if p.pos >= len(p.text) {
				return nil, symerrors.ParseError("unterminated argument list for %q", name)
			}
			if p.text[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.text[p.pos] == ')' {
				p.pos++
				break
			}
			return nil, symerrors.ParseError("expected ',' or ')' at position %d, found %q", p.pos, p.text[p.pos])
		}

		sym := p.store.Symbol(foldSymbolName.String(name), len(args))
		t, err := p.store.Create(sym, args)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	if isVariableName(name) {
		return p.store.CreateVariable(name), nil
	}
	sym := p.store.Symbol(foldSymbolName.String(name), 0)
	return p.store.Create(sym, nil)
}

func (p *termParser) parseIdent() (string, error) {
	start := p.pos
	for p.pos < len(p.text) {
		c := rune(p.text[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '\'' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", symerrors.ParseError("expected identifier at position %d", start)
	}
	return p.text[start:p.pos], nil
}

func isVariableName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0])) || strings.HasPrefix(name, "_")
}
