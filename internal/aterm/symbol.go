package aterm

import "fmt"

// Symbol is a function symbol: a name together with the arity it is always
// applied with. Symbols are interned by the Store exactly like Terms, so
// Symbol equality also reduces to pointer comparison.
type Symbol struct {
	name  string
	arity int
}

// Name returns the symbol's textual name.
func (s *Symbol) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Arity returns the number of arguments the symbol is applied to.
func (s *Symbol) Arity() int {
	if s == nil {
		return 0
	}
	return s.arity
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s/%d", s.name, s.arity)
}

// symbolKey is the hash-cons bucket key for a Symbol.
type symbolKey struct {
	name  string
	arity int
}
