// Package aterm implements the hash-consed term store: the single shared
// owner of all term and symbol nodes used by the LTS label data and by the
// rewrite engine. See SPEC_FULL.md §3.1.
package aterm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dekarrin/symbane/internal/symerrors"
	"golang.org/x/crypto/blake2b"
)

// Store is a hash-consed pool of Terms and Symbols. Structural equality of
// two constructions implies pointer equality of the returned Term, so
// Terms from the same Store can be compared, hashed and used as map keys by
// identity.
//
// A Store is safe for concurrent use: construction and protection-set
// updates are serialized under a single shared/exclusive lock, matching the
// original's single-lock, no-lock-held-across-calls discipline.
type Store struct {
	mu sync.RWMutex

	symbols map[symbolKey]*Symbol
	terms   map[termKey]*Term

	protection map[ProtectionSetID]map[*Term]int // refcount per protected term, per protection set
	nextPSID   ProtectionSetID

	gcThreshold int // number of newly interned nodes since the last GC that triggers an automatic GC inside the create that reaches it
	sinceGC     int
}

// ProtectionSetID names a thread-local protection set registered with a
// Store. The zero value is not a valid ID; obtain one via NewProtectionSet.
type ProtectionSetID uint64

// NewStore creates an empty term Store.
func NewStore() *Store {
	return &Store{
		symbols:     make(map[symbolKey]*Symbol),
		terms:       make(map[termKey]*Term),
		protection:  make(map[ProtectionSetID]map[*Term]int),
		gcThreshold: 1 << 16,
	}
}

// NewProtectionSet registers a new thread-local protection set and returns
// its ID. Every Term returned to a caller should be protected (see Protect)
// under a set the caller owns, so that the Term survives a concurrent GC
// pass run from another goroutine sharing this Store.
func (s *Store) NewProtectionSet() ProtectionSetID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPSID++
	id := s.nextPSID
	s.protection[id] = make(map[*Term]int)
	return id
}

// DropProtectionSet releases every term held by the given protection set.
// It must be called exactly once, when the owning thread is done with the
// Store, mirroring ThreadTermPool's Drop behavior in the original.
func (s *Store) DropProtectionSet(id ProtectionSetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.protection, id)
}

// Protect registers t in the given protection set, incrementing its
// refcount there. It returns t for convenient chaining.
func (s *Store) Protect(id ProtectionSetID, t *Term) *Term {
	if t == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.protection[id]
	if !ok {
		set = make(map[*Term]int)
		s.protection[id] = set
	}
	set[t]++
	return t
}

// Unprotect decrements t's refcount in the given protection set, removing
// it once the count reaches zero.
func (s *Store) Unprotect(id ProtectionSetID, t *Term) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.protection[id]
	if !ok {
		return
	}
	set[t]--
	if set[t] <= 0 {
		delete(set, t)
	}
}

// Symbol creates or returns the existing Symbol for (name, arity).
func (s *Store) Symbol(name string, arity int) *Symbol {
	key := symbolKey{name: name, arity: arity}

	s.mu.RLock()
	if sym, ok := s.symbols[key]; ok {
		s.mu.RUnlock()
		return sym
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sym, ok := s.symbols[key]; ok {
		return sym
	}
	sym := &Symbol{name: name, arity: arity}
	s.symbols[key] = sym
	return sym
}

// Create returns the unique Term for (symbol, args), checked for arity. The
// Term is not automatically protected; callers that intend to hold onto the
// result across further Store calls should Protect it explicitly.
func (s *Store) Create(sym *Symbol, args []*Term) (*Term, error) {
	if sym == nil {
		return nil, fmt.Errorf("aterm: nil symbol")
	}
	if sym.Arity() != len(args) {
		return nil, arityMismatch(sym, len(args))
	}
	return s.intern(kindFunction, sym, args, "")
}

// CreateApplication returns the unique application node `head(args...)`, a
// data-expression application whose first logical argument is the function
// symbol head and whose remaining arguments are data expressions. Unlike
// Create, arity of head is not checked against len(args): an application
// node may apply a symbol to fewer or more arguments than its declared
// arity (partial/curried application), which is why it is a distinct term
// shape from a plain function term.
func (s *Store) CreateApplication(head *Symbol, args []*Term) (*Term, error) {
	if head == nil {
		return nil, fmt.Errorf("aterm: nil application head")
	}
	return s.intern(kindApplication, head, args, "")
}

// CreateVariable returns the unique variable Term with the given name.
func (s *Store) CreateVariable(name string) *Term {
	t, _ := s.intern(kindVariable, nil, nil, name)
	return t
}

func (s *Store) intern(k kind, sym *Symbol, args []*Term, name string) (*Term, error) {
	key := termKey{kind: k, symbol: sym, args: argPointerKey(args), name: name}

	s.mu.RLock()
	if t, ok := s.terms[key]; ok {
		s.mu.RUnlock()
		return t, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.terms[key]; ok {
		return t, nil
	}

	t := &Term{kind: k, symbol: sym, args: args, name: name}
	t.hash = contentHash(t)
	s.terms[key] = t
	s.sinceGC++
	if s.sinceGC >= s.gcThreshold {
		s.gcLocked()
	}
	return t, nil
}

// argPointerKey builds a hash-cons bucket discriminator from the already-
// interned child pointers. Because children are themselves unique per the
// Store's invariant, concatenating their addresses is a sound (if slightly
// verbose) identity key; it avoids needing a separate content hash pass
// over subtrees on every Create call.
func argPointerKey(args []*Term) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, "%p,", a)
	}
	return b.String()
}

// contentHash computes a blake2b-based structural hash for t, cached on the
// Term and exposed through Term.Hash for consumers outside the Store that
// want to group terms without repeatedly re-deriving String(). It is not
// part of the hash-cons key (see argPointerKey).
func contentHash(t *Term) uint64 {
	h, _ := blake2b.New256(nil)
	switch t.kind {
	case kindVariable:
		h.Write([]byte{'V'})
		h.Write([]byte(t.name))
	default:
		if t.kind == kindApplication {
			h.Write([]byte{'A'})
		} else {
			h.Write([]byte{'F'})
		}
		h.Write([]byte(t.symbol.Name()))
		for _, a := range t.args {
			var buf [8]byte
			putUint64(buf[:], a.hash)
			h.Write(buf[:])
		}
	}
	sum := h.Sum(nil)
	return uint64(sum[0])<<56 | uint64(sum[1])<<48 | uint64(sum[2])<<40 | uint64(sum[3])<<32 |
		uint64(sum[4])<<24 | uint64(sum[5])<<16 | uint64(sum[6])<<8 | uint64(sum[7])
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}

// Hash returns t's cached structural hash.
func (t *Term) Hash() uint64 {
	if t == nil {
		return 0
	}
	return t.hash
}

func arityMismatch(sym *Symbol, got int) error {
	return symerrors.ArityMismatch("symbol %s expects %d argument(s), got %d",
		sym.Name(), sym.Arity(), got)
}

// Stats reports live node counts, for diagnostics (spec.md's GC is an
// external collaborator; this internal collector is SPEC_FULL's
// supplement, see SPEC_FULL.md §3.1).
type Stats struct {
	Symbols int
	Terms   int
}

// Stats returns current interning table sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Symbols: len(s.symbols), Terms: len(s.terms)}
}

// GC reclaims any interned term not reachable from any registered
// protection set. It is safe to call concurrently with Create/Symbol calls
// from other goroutines; those calls may briefly block while GC holds the
// exclusive lock.
func (s *Store) GC() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked()
}

// gcLocked is GC's body, split out so intern can fire the automatic GC
// gcThreshold promises once sinceGC reaches it, without recursively
// acquiring the exclusive lock intern already holds.
func (s *Store) gcLocked() {
	live := make(map[*Term]bool)
	for _, set := range s.protection {
		for t := range set {
			markReachable(t, live)
		}
	}

	for key, t := range s.terms {
		if !live[t] {
			delete(s.terms, key)
		}
	}
	s.sinceGC = 0
}

func markReachable(t *Term, live map[*Term]bool) {
	// Explicit stack, not recursion: terms may be arbitrarily deep (see
	// SPEC_FULL.md's "coroutine/recursion avoidance" design note).
	stack := []*Term{t}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || live[n] {
			continue
		}
		live[n] = true
		stack = append(stack, n.args...)
	}
}
