package search

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/keepsakehq/keepsake/internal/feed"
	"github.com/keepsakehq/keepsake/plugin/vision"
)

func TestRankByVectorThresholdAndCap(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	queryVector := []float32{1, 0}

	// 50 candidates with cosine scores spread over 0.1..0.9: the unit
	// vector (cos t, sin t) scores exactly cos t against the query.
	var records []*feed.Record
	aboveThreshold := 0
	for i := 0; i < 50; i++ {
		score := 0.1 + 0.8*float64(i)/49.0
		if score >= SemanticThreshold {
			aboveThreshold++
		}
		records = append(records, &feed.Record{
			ID:        fmt.Sprintf("p%d", i),
			Kind:      feed.KindPhoto,
			CreatedAt: base,
			Embedding: []float32{float32(score), sinFromCos(score)},
		})
	}

	matched := RankByVector(records, queryVector)
	want := aboveThreshold
	if want > SemanticLimit {
		want = SemanticLimit
	}
	require.Len(t, matched, want)
	for i := 1; i < len(matched); i++ {
		require.GreaterOrEqual(t, matched[i-1].Score, matched[i].Score)
	}
	for _, scored := range matched {
		require.GreaterOrEqual(t, scored.Score, float64(SemanticThreshold))
	}
}

func sinFromCos(c float64) float32 {
	return float32(math.Sqrt(1 - c*c))
}

func TestRankByVectorSkipsRecordsWithoutEmbedding(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{
		{ID: "p1", Kind: feed.KindPhoto, CreatedAt: base, Embedding: []float32{1, 0}},
		{ID: "n1", Kind: feed.KindNote, CreatedAt: base},
	}
	matched := RankByVector(records, []float32{1, 0})
	require.Len(t, matched, 1)
	require.Equal(t, "p1", matched[0].Record.ID)
}

func TestSemanticMatchEmbedFailureIsSoft(t *testing.T) {
	matcher := NewSemanticMatcher(&vision.MockEmbeddingService{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding service down")
		},
	})
	records := []*feed.Record{
		{ID: "p1", Kind: feed.KindPhoto, Embedding: []float32{1, 0}},
	}
	require.Empty(t, matcher.Match(context.Background(), records, "sunset"))
}

func TestSemanticMatchNilEmbedder(t *testing.T) {
	matcher := NewSemanticMatcher(nil)
	require.Empty(t, matcher.Match(context.Background(), nil, "sunset"))
}
