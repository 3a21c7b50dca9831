package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/symbane/internal/lts"
)

func writeLtsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.lts")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func Test_ParseLtsFile_SkipsBlankLinesAndComments(t *testing.T) {
	path := writeLtsFile(t, `
# a comment
0 a 1

1 b 0
`)
	raw, err := parseLtsFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, lts.RawTransition{From: 0, Label: "a", To: 1}, raw[0])
	assert.Equal(t, lts.RawTransition{From: 1, Label: "b", To: 0}, raw[1])
}

func Test_ParseLtsFile_RejectsMalformedLine(t *testing.T) {
	path := writeLtsFile(t, "0 a\n")
	_, err := parseLtsFile(path)
	assert.Error(t, err)
}

func Test_CollectLabels_DedupesInFirstSeenOrder(t *testing.T) {
	raw := []lts.RawTransition{
		{From: 0, Label: "b", To: 1},
		{From: 1, Label: "a", To: 2},
		{From: 2, Label: "b", To: 0},
	}
	assert.Equal(t, []string{"b", "a"}, collectLabels(raw))
}

func Test_LtsContentHash_DiffersOnReduceKind(t *testing.T) {
	file := []byte("0 a 1\n")
	strong := ltsContentHash(file, nil, "strong")
	branching := ltsContentHash(file, nil, "branching")
	assert.NotEqual(t, strong, branching)
}

func Test_LtsContentHash_DiffersOnHiddenSet(t *testing.T) {
	file := []byte("0 a 1\n")
	none := ltsContentHash(file, nil, "branching")
	withHidden := ltsContentHash(file, []string{"a"}, "branching")
	assert.NotEqual(t, none, withHidden)
}

func Test_LtsContentHash_StableForSameInput(t *testing.T) {
	file := []byte("0 a 1\n1 b 0\n")
	first := ltsContentHash(file, []string{"a"}, "strong")
	second := ltsContentHash(file, []string{"a"}, "strong")
	assert.Equal(t, first, second)
}
