package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Position_String(t *testing.T) {
	assert.Equal(t, "ε", Position{}.String())
	assert.Equal(t, "1.2.1", Position{1, 2, 1}.String())
}

func Test_Position_IsPrefixOf(t *testing.T) {
	assert.True(t, Position{1}.IsPrefixOf(Position{1, 2}))
	assert.True(t, Position{}.IsPrefixOf(Position{1, 2}))
	assert.False(t, Position{2}.IsPrefixOf(Position{1, 2}))
	assert.True(t, Position{1, 2}.IsPrefixOf(Position{1, 2}))
}

func Test_Position_Less(t *testing.T) {
	assert.True(t, Position{1}.Less(Position{1, 1}))
	assert.True(t, Position{1, 1}.Less(Position{1, 2}))
	assert.False(t, Position{2}.Less(Position{1, 9}))
}

func Test_GCP(t *testing.T) {
	got := GCP([]Position{{1, 2, 1}, {1, 2, 3}, {1, 2}})
	assert.Equal(t, Position{1, 2}, got)

	assert.Equal(t, Position{}, GCP([]Position{{1}, {2}}))
	assert.Equal(t, Position{}, GCP(nil))
}

func Test_Position_Child(t *testing.T) {
	p := Position{1}
	c := p.Child(2)
	assert.Equal(t, Position{1, 2}, c)
	assert.Equal(t, Position{1}, p, "Child must not mutate the receiver")
}
