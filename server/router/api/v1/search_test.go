package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keepsakehq/keepsake/internal/feed"
	"github.com/keepsakehq/keepsake/internal/search"
	"github.com/keepsakehq/keepsake/store"
)

func TestRecordsAboveThreshold(t *testing.T) {
	results := []*store.PhotoWithScore{
		{Photo: &store.Photo{UID: "p1", CreatedTs: 100, Caption: "a sunset"}, Score: 0.9},
		{Photo: &store.Photo{UID: "p2", CreatedTs: 90}, Score: 0.1},
	}

	records := recordsAboveThreshold(results)
	require.Len(t, records, 1)
	require.Equal(t, "p1", records[0].ID)
	require.Equal(t, "a sunset", records[0].Caption)
}

func TestSemanticCache(t *testing.T) {
	cache := newSemanticCache()

	_, ok := cache.get(1, "sunset")
	require.False(t, ok)

	results := []search.ScoredRecord{{Record: &feed.Record{ID: "p1"}, Score: 0.9}}
	cache.put(1, "sunset", results, nil)

	got, ok := cache.get(1, "sunset")
	require.True(t, ok)
	require.Len(t, got, 1)

	// A different query misses.
	_, ok = cache.get(1, "beach")
	require.False(t, ok)

	// Another user misses.
	_, ok = cache.get(2, "sunset")
	require.False(t, ok)

	// A newer query replaces the cached one.
	cache.put(1, "beach", nil, nil)
	_, ok = cache.get(1, "sunset")
	require.False(t, ok)
}

func TestSemanticCacheExpires(t *testing.T) {
	cache := newSemanticCache()
	cache.put(1, "sunset", []search.ScoredRecord{{Record: &feed.Record{ID: "p1"}, Score: 0.9}}, nil)

	cache.mu.Lock()
	cache.byUser[1].expiresAt = time.Now().Add(-time.Second)
	cache.mu.Unlock()

	_, ok := cache.get(1, "sunset")
	require.False(t, ok)
}

func TestSemanticCacheDiscardsSupersededPut(t *testing.T) {
	cache := newSemanticCache()

	// The newer pass lands first; the superseded one must not replace it.
	cache.put(1, "beach", []search.ScoredRecord{{Record: &feed.Record{ID: "p2"}, Score: 0.8}}, func() bool { return true })
	cache.put(1, "sunset", []search.ScoredRecord{{Record: &feed.Record{ID: "p1"}, Score: 0.9}}, func() bool { return false })

	got, ok := cache.get(1, "beach")
	require.True(t, ok)
	require.Equal(t, "p2", got[0].Record.ID)
	_, ok = cache.get(1, "sunset")
	require.False(t, ok)
}

func TestRebindToViewDropsDeletedRecords(t *testing.T) {
	stale := &feed.Record{ID: "p1"}
	fresh := &feed.Record{ID: "p1", Caption: "a sunset"}
	gone := &feed.Record{ID: "p2"}
	cached := []search.ScoredRecord{
		{Record: stale, Score: 0.9},
		{Record: gone, Score: 0.5},
	}

	rebound := rebindToView(cached, []*feed.Record{fresh})
	require.Len(t, rebound, 1)
	require.Same(t, fresh, rebound[0].Record)
	require.Equal(t, 0.9, rebound[0].Score)
}

func TestConvertRecords(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*feed.Record{
		{
			ID:            "p1",
			Kind:          feed.KindPhoto,
			CreatedAt:     createdAt,
			BlobPath:      "assets/a.jpg",
			ThumbnailPath: "thumbnails/p1.jpg",
			Caption:       "a dog",
			Tags:          []string{"dog"},
		},
		{
			ID:        "n1",
			Kind:      feed.KindNote,
			CreatedAt: createdAt,
			Content:   "hello",
			Pinned:    true,
		},
	}

	responses := convertRecords(records)
	require.Len(t, responses, 2)

	require.Equal(t, "p1", responses[0].UID)
	require.Equal(t, "photo", responses[0].Kind)
	require.Equal(t, "/o/assets/a.jpg", responses[0].URL)
	require.Equal(t, "/o/thumbnails/p1.jpg", responses[0].ThumbnailURL)
	require.False(t, responses[0].Pending)

	require.Equal(t, "n1", responses[1].UID)
	require.Equal(t, "note", responses[1].Kind)
	require.Empty(t, responses[1].URL)
	require.True(t, responses[1].Pinned)
}

func TestConvertRecordsPendingPhoto(t *testing.T) {
	responses := convertRecords([]*feed.Record{
		{ID: "p1", Kind: feed.KindPhoto, CreatedAt: time.Now(), BlobPath: "assets/a.jpg"},
	})
	require.True(t, responses[0].Pending)
}
