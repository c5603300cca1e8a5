package search

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keepsakehq/keepsake/internal/feed"
)

func photoRecord(id string, createdAt time.Time, caption string, tags ...string) *feed.Record {
	return &feed.Record{
		ID:        id,
		Kind:      feed.KindPhoto,
		CreatedAt: createdAt,
		Caption:   caption,
		Tags:      tags,
	}
}

func noteRecord(id string, createdAt time.Time, content string, pinned bool) *feed.Record {
	return &feed.Record{
		ID:        id,
		Kind:      feed.KindNote,
		CreatedAt: createdAt,
		Content:   content,
		Pinned:    pinned,
	}
}

func TestMatchNotes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{
		photoRecord("p1", base, "groceries on the table"),
		noteRecord("n1", base.Add(-time.Hour), "buy groceries", false),
		noteRecord("n2", base, "call the dentist", false),
		noteRecord("n3", base.Add(-2*time.Hour), "groceries for the party", true),
	}

	matched := MatchNotes(records, "groceries")
	require.Len(t, matched, 2)
	// Pinned first, then newest.
	require.Equal(t, "n3", matched[0].ID)
	require.Equal(t, "n1", matched[1].ID)

	all := MatchNotes(records, "")
	require.Len(t, all, 3)
	require.Equal(t, "n3", all[0].ID)
}

func TestMatchExactPhraseWordBoundary(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withBoundary := photoRecord("p1", base, "i love red shoes today")
	withoutBoundary := photoRecord("p2", base, "i love redshoes today")
	records := []*feed.Record{withBoundary, withoutBoundary}

	matched := MatchExactPhrase(records, "red shoes")
	require.Len(t, matched, 1)
	require.Equal(t, "p1", matched[0].ID)
}

func TestMatchExactPhraseEmptyReturnsEverything(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{
		photoRecord("p1", base, "anything"),
		noteRecord("n1", base, "at all", false),
	}
	require.Len(t, MatchExactPhrase(records, ""), 2)
}

func TestMatchExactPhraseEscapesMetacharacters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{photoRecord("p1", base, "cost was 3.50 total")}
	require.Len(t, MatchExactPhrase(records, "3.50"), 1)
	require.Empty(t, MatchExactPhrase(records, "3x50"))
}

func TestMatchExactPhraseDateRenderings(t *testing.T) {
	createdAt := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	records := []*feed.Record{photoRecord("p1", createdAt, "morning walk")}
	require.Len(t, MatchExactPhrase(records, "jan 3, 2026"), 1)
	require.Len(t, MatchExactPhrase(records, "january 3, 2026"), 1)
}

func TestMatchFuzzyShortQuerySkipped(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{photoRecord("p1", base, "ab everywhere", "ab")}
	require.Nil(t, MatchFuzzy(records, "ab"))
}

func TestMatchFuzzyThreshold(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{
		photoRecord("p1", base, "", "cozy", "knit"),
		photoRecord("p2", base, "a kozy evening"),
		photoRecord("p3", base, "industrial machinery"),
	}

	matched := MatchFuzzy(records, "cozy")
	require.Len(t, matched, 2)
	require.Equal(t, "p1", matched[0].Record.ID)
	require.InDelta(t, 1.0, matched[0].Score, 1e-9)
	require.Equal(t, "p2", matched[1].Record.ID)
	require.InDelta(t, 0.75, matched[1].Score, 1e-9)
}

func TestMatchSubstring(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{
		photoRecord("p1", base, "sunset over the bay"),
		photoRecord("p2", base, "city skyline"),
	}
	matched := MatchSubstring(records, "sunset")
	require.Len(t, matched, 1)
	require.Equal(t, "p1", matched[0].ID)
}

func TestMatchFuzzyDeterministicOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var records []*feed.Record
	for i := 0; i < 10; i++ {
		records = append(records, photoRecord(fmt.Sprintf("p%d", i), base, "", "cozy"))
	}
	first := MatchFuzzy(records, "cozy")
	second := MatchFuzzy(records, "cozy")
	require.Equal(t, len(first), len(second))
	for i := range first {
		// All scores tie at 1.0, so snapshot order must be preserved.
		require.Equal(t, first[i].Record.ID, second[i].Record.ID)
		require.Equal(t, records[i].ID, first[i].Record.ID)
	}
}
