package aterm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_Create_HashConsing(t *testing.T) {
	s := NewStore()

	f := s.Symbol("f", 2)
	a := s.Symbol("a", 0)

	at, err := s.Create(a, nil)
	require.NoError(t, err)

	t1, err := s.Create(f, []*Term{at, at})
	require.NoError(t, err)

	t2, err := s.Create(f, []*Term{at, at})
	require.NoError(t, err)

	assert.Same(t, t1, t2, "structurally equal terms must be the same pointer")
}

func Test_Store_Create_ArityMismatch(t *testing.T) {
	s := NewStore()
	f := s.Symbol("f", 2)
	a := s.Symbol("a", 0)
	at, err := s.Create(a, nil)
	require.NoError(t, err)

	_, err = s.Create(f, []*Term{at})
	assert.Error(t, err)
}

func Test_Store_Symbol_Interned(t *testing.T) {
	s := NewStore()
	s1 := s.Symbol("f", 2)
	s2 := s.Symbol("f", 2)
	s3 := s.Symbol("f", 3)

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, s3)
}

func Test_Store_CreateVariable_Interned(t *testing.T) {
	s := NewStore()
	v1 := s.CreateVariable("X")
	v2 := s.CreateVariable("X")
	v3 := s.CreateVariable("Y")

	assert.Same(t, v1, v2)
	assert.NotSame(t, v1, v3)
	assert.True(t, v1.IsVariable())
}

func Test_Store_GC_KeepsProtected(t *testing.T) {
	s := NewStore()
	ps := s.NewProtectionSet()
	defer s.DropProtectionSet(ps)

	a := s.Symbol("a", 0)
	at, err := s.Create(a, nil)
	require.NoError(t, err)
	s.Protect(ps, at)

	before := s.Stats().Terms
	require.Equal(t, 1, before)

	s.GC()

	after := s.Stats().Terms
	assert.Equal(t, before, after, "protected term must survive GC")
}

func Test_Store_GC_ReclaimsUnprotected(t *testing.T) {
	s := NewStore()
	a := s.Symbol("a", 0)
	_, err := s.Create(a, nil)
	require.NoError(t, err)

	require.Equal(t, 1, s.Stats().Terms)

	s.GC()

	assert.Equal(t, 0, s.Stats().Terms)
}

func Test_FromString(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		expect  string
		wantErr bool
	}{
		{name: "constant", input: "0", expect: "0"},
		{name: "nested application", input: "s(s(0))", expect: "s(s(0))"},
		{name: "variable", input: "fact(N)", expect: "fact(N)"},
		{name: "multi-arg", input: "plus(N,M)", expect: "plus(N,M)"},
		{name: "malformed, missing close paren", input: "plus(N,M", wantErr: true},
		{name: "malformed, empty parens", input: "f()", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			got, err := s.FromString(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, got.String())
		})
	}
}
