package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	require.Zero(t, CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3}))
	require.Zero(t, CosineSimilarity([]float32{1, 2, 3}, []float32{0, 0, 0}))
	require.Zero(t, CosineSimilarity(nil, nil))
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	require.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
}
