package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want float64
	}{
		{a: "cozy", b: "cozy", want: 1},
		{a: "kozy", b: "cozy", want: 0.75},
		{a: "", b: "", want: 0},
		{a: "", b: "abcd", want: 0},
		{a: "abcd", b: "", want: 0},
		{a: "abc", b: "xyz", want: 0},
	}
	for _, test := range tests {
		require.InDelta(t, test.want, Similarity(test.a, test.b), 1e-9, "%q vs %q", test.a, test.b)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"sunset", "sunsets"},
		{"a", "ab"},
	}
	for _, pair := range pairs {
		require.Equal(t, Similarity(pair[0], pair[1]), Similarity(pair[1], pair[0]))
	}
}

func TestSimilarityBounds(t *testing.T) {
	score := Similarity("completely", "different")
	require.GreaterOrEqual(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)
}
