package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpsertIdempotent(t *testing.T) {
	snapshot := NewSnapshot()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The same record arriving from realtime push and a poll.
	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: createdAt, Filename: "a.jpg"})
	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: createdAt, Filename: "a.jpg"})

	require.Equal(t, 1, snapshot.Len())
}

func TestUpsertIdempotentUnderConcurrency(t *testing.T) {
	snapshot := NewSnapshot()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: createdAt})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, snapshot.Len())
}

func TestMergeDoesNotRegressFields(t *testing.T) {
	snapshot := NewSnapshot()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snapshot.Upsert(&Record{
		ID:        "p1",
		Kind:      KindPhoto,
		CreatedAt: createdAt,
		Caption:   "a dog",
		Tags:      []string{"dog"},
		Embedding: []float32{0.1, 0.2},
	})
	// A fetch with empty enrichment fields must not erase them.
	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: createdAt})

	record, ok := snapshot.Get("p1")
	require.True(t, ok)
	require.Equal(t, "a dog", record.Caption)
	require.Equal(t, []string{"dog"}, record.Tags)
	require.Len(t, record.Embedding, 2)
	require.False(t, record.Pending())
}

func TestMergeTransitionsOutOfPending(t *testing.T) {
	snapshot := NewSnapshot()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: createdAt})
	record, _ := snapshot.Get("p1")
	require.True(t, record.Pending())

	snapshot.Upsert(&Record{
		ID:        "p1",
		Kind:      KindPhoto,
		CreatedAt: createdAt,
		Caption:   "x",
		Tags:      []string{"y"},
	})
	record, _ = snapshot.Get("p1")
	require.False(t, record.Pending())
	require.Equal(t, "x", record.Caption)
	require.Equal(t, []string{"y"}, record.Tags)
}

func TestDeleteStopsPendingResurrection(t *testing.T) {
	snapshot := NewSnapshot()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: createdAt})
	snapshot.Delete("p1")

	// The pending poll only targets records currently in the snapshot,
	// so a deleted record is no longer a candidate.
	require.Empty(t, snapshot.Pending())
	_, ok := snapshot.Get("p1")
	require.False(t, ok)
}

func TestViewOrdering(t *testing.T) {
	snapshot := NewSnapshot()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: base.Add(-time.Hour)})
	snapshot.Upsert(&Record{ID: "n1", Kind: KindNote, CreatedAt: base, Content: "newest"})
	snapshot.Upsert(&Record{ID: "n2", Kind: KindNote, CreatedAt: base.Add(-2 * time.Hour), Content: "pinned", Pinned: true})

	view := snapshot.View()
	require.Len(t, view, 3)
	require.Equal(t, "n2", view[0].ID)
	require.Equal(t, "n1", view[1].ID)
	require.Equal(t, "p1", view[2].ID)
}

func TestPending(t *testing.T) {
	snapshot := NewSnapshot()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snapshot.Upsert(&Record{ID: "p1", Kind: KindPhoto, CreatedAt: base})
	snapshot.Upsert(&Record{ID: "p2", Kind: KindPhoto, CreatedAt: base, Caption: "done", Tags: []string{"t"}})
	snapshot.Upsert(&Record{ID: "n1", Kind: KindNote, CreatedAt: base})

	pending := snapshot.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, "p1", pending[0].ID)
}
