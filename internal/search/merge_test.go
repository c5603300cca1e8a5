package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keepsakehq/keepsake/internal/feed"
)

func ids(records []*feed.Record) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ID)
	}
	return out
}

func TestMergeNoteScoped(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	notes := []*feed.Record{
		noteRecord("n2", base.Add(-time.Hour), "pinned one", true),
		noteRecord("n1", base, "newer", false),
	}
	merged := Merge(MergeInput{
		Query: Query{Mode: ModeNoteScoped},
		Notes: notes,
		// Other lists must be ignored in this mode.
		Substring: []*feed.Record{photoRecord("p1", base, "a photo")},
	})
	require.Equal(t, []string{"n2", "n1"}, ids(merged))
}

func TestMergeExactPhraseIgnoresFuzzyAndSemantic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := photoRecord("p1", base.Add(-time.Hour), "red shoes")
	newer := photoRecord("p2", base, "red shoes again")
	merged := Merge(MergeInput{
		Query:     Query{Mode: ModeExactPhrase},
		Substring: []*feed.Record{older, newer},
		Fuzzy:     []ScoredRecord{{Record: photoRecord("p9", base, "noise"), Score: 1}},
		Semantic:  []ScoredRecord{{Record: photoRecord("p8", base, "noise"), Score: 1}},
	})
	require.Equal(t, []string{"p2", "p1"}, ids(merged))
}

func TestMergeSemanticWinsAndResortsByDate(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := photoRecord("p1", base.Add(-time.Hour), "older but more similar")
	newer := photoRecord("p2", base, "newer but less similar")
	merged := Merge(MergeInput{
		Query: Query{Mode: ModeFreeText},
		Semantic: []ScoredRecord{
			{Record: older, Score: 0.9},
			{Record: newer, Score: 0.5},
		},
		Fuzzy:     []ScoredRecord{{Record: photoRecord("p9", base, "noise"), Score: 1}},
		Substring: []*feed.Record{photoRecord("p8", base, "noise")},
	})
	// Recency, not relevance, governs the final ordering.
	require.Equal(t, []string{"p2", "p1"}, ids(merged))
}

func TestMergeFuzzyUnionSubstringDeduplicates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := photoRecord("a", base, "")
	b := photoRecord("b", base.Add(-time.Hour), "")
	c := photoRecord("c", base.Add(-2*time.Hour), "")
	merged := Merge(MergeInput{
		Query: Query{Mode: ModeFreeText},
		Fuzzy: []ScoredRecord{
			{Record: b, Score: 0.9},
			{Record: a, Score: 0.8},
		},
		Substring: []*feed.Record{a, c},
	})
	require.Equal(t, []string{"a", "b", "c"}, ids(merged))
}

func TestMergeFallsBackToSubstring(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := photoRecord("p1", base.Add(-time.Hour), "")
	newer := photoRecord("p2", base, "")
	merged := Merge(MergeInput{
		Query:     Query{Mode: ModeFreeText},
		Substring: []*feed.Record{older, newer},
	})
	require.Equal(t, []string{"p2", "p1"}, ids(merged))
}

func TestMergeDeterministicOnTies(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Same createdAt everywhere, so the final date sort decides nothing
	// and incoming list order must survive.
	a := photoRecord("a", base, "")
	b := photoRecord("b", base, "")
	c := photoRecord("c", base, "")
	in := MergeInput{
		Query: Query{Mode: ModeFreeText},
		Fuzzy: []ScoredRecord{
			{Record: c, Score: 0.9},
			{Record: a, Score: 0.9},
		},
		Substring: []*feed.Record{b},
	}
	first := Merge(in)
	for i := 0; i < 10; i++ {
		require.Equal(t, ids(first), ids(Merge(in)))
	}
	require.Equal(t, []string{"c", "a", "b"}, ids(first))
}
