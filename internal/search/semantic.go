package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/keepsakehq/keepsake/internal/feed"
	"github.com/keepsakehq/keepsake/plugin/vision"
)

const (
	// SemanticThreshold is the minimum cosine similarity kept.
	SemanticThreshold = 0.28
	// SemanticLimit caps the number of semantic results.
	SemanticLimit = 40
)

// SemanticMatcher ranks records by embedding similarity to the query.
type SemanticMatcher struct {
	embedder vision.EmbeddingService
}

// NewSemanticMatcher creates a matcher backed by the given embedding
// service. A nil service disables semantic search.
func NewSemanticMatcher(embedder vision.EmbeddingService) *SemanticMatcher {
	return &SemanticMatcher{embedder: embedder}
}

// Enabled reports whether an embedding service is configured.
func (m *SemanticMatcher) Enabled() bool {
	return m.embedder != nil
}

// EmbedQuery returns the query's embedding vector. Failures are soft:
// the matcher logs and returns nil, and callers treat nil as no
// semantic results.
func (m *SemanticMatcher) EmbedQuery(ctx context.Context, query string) []float32 {
	if m.embedder == nil || query == "" {
		return nil
	}
	queryVector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("failed to embed search query", "error", err)
		return nil
	}
	return queryVector
}

// Match embeds the query and returns records whose embedding scores at
// or above the threshold, best first, capped. Embedding failures are
// soft and yield no results; the caller falls back to text matches.
func (m *SemanticMatcher) Match(ctx context.Context, records []*feed.Record, query string) []ScoredRecord {
	queryVector := m.EmbedQuery(ctx, query)
	if queryVector == nil {
		return nil
	}
	return RankByVector(records, queryVector)
}

// RankByVector scores records with an embedding against the query
// vector and applies the semantic threshold and cap.
func RankByVector(records []*feed.Record, queryVector []float32) []ScoredRecord {
	var matched []ScoredRecord
	for _, record := range records {
		if len(record.Embedding) == 0 {
			continue
		}
		score := CosineSimilarity(queryVector, record.Embedding)
		if score >= SemanticThreshold {
			matched = append(matched, ScoredRecord{Record: record, Score: score})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})
	if len(matched) > SemanticLimit {
		matched = matched[:SemanticLimit]
	}
	return matched
}
