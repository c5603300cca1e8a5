package feed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keepsakehq/keepsake/internal/profile"
	"github.com/keepsakehq/keepsake/store"
	"github.com/keepsakehq/keepsake/store/db/sqlite"
)

func TestApplyEventInsertAndDelete(t *testing.T) {
	session := &Session{snapshot: NewSnapshot()}

	session.applyEvent(store.Event{
		Type:  store.EventInsert,
		Photo: &store.Photo{UID: "p1", CreatorID: 1, CreatedTs: 100, Filename: "a.jpg"},
	})
	require.Equal(t, 1, session.snapshot.Len())
	require.Equal(t, int64(100), session.lastSeenTs.Load())

	session.applyEvent(store.Event{
		Type:  store.EventDelete,
		Photo: &store.Photo{UID: "p1", CreatorID: 1},
	})
	require.Zero(t, session.snapshot.Len())
}

func TestApplyEventUpdateMerges(t *testing.T) {
	session := &Session{snapshot: NewSnapshot()}

	session.applyEvent(store.Event{
		Type:  store.EventInsert,
		Photo: &store.Photo{UID: "p1", CreatorID: 1, CreatedTs: 100},
	})
	record, _ := session.snapshot.Get("p1")
	require.True(t, record.Pending())

	session.applyEvent(store.Event{
		Type: store.EventUpdate,
		Photo: &store.Photo{
			UID: "p1", CreatorID: 1, CreatedTs: 100,
			Caption: "a dog", Tags: []string{"dog"},
		},
	})
	record, _ = session.snapshot.Get("p1")
	require.False(t, record.Pending())
	require.Equal(t, "a dog", record.Caption)
}

func TestEventAndPollSourcesStayIdempotent(t *testing.T) {
	session := &Session{snapshot: NewSnapshot()}

	// Realtime push and the new-records poll both deliver p1.
	session.applyEvent(store.Event{
		Type:  store.EventInsert,
		Photo: &store.Photo{UID: "p1", CreatorID: 1, CreatedTs: 100},
	})
	session.snapshot.Upsert(FromPhoto(&store.Photo{UID: "p1", CreatorID: 1, CreatedTs: 100}))

	require.Equal(t, 1, session.snapshot.Len())
}

func TestApplyEventNote(t *testing.T) {
	session := &Session{snapshot: NewSnapshot()}

	session.applyEvent(store.Event{
		Type: store.EventInsert,
		Note: &store.Note{UID: "n1", CreatorID: 1, CreatedTs: 50, Content: "hello", Pinned: true},
	})
	record, ok := session.snapshot.Get("n1")
	require.True(t, ok)
	require.Equal(t, KindNote, record.Kind)
	require.True(t, record.Pinned)
	require.False(t, record.Pending())
}

func TestObserveTsMonotonic(t *testing.T) {
	session := &Session{snapshot: NewSnapshot()}
	session.observeTs(100)
	session.observeTs(50)
	require.Equal(t, int64(100), session.lastSeenTs.Load())
	session.observeTs(150)
	require.Equal(t, int64(150), session.lastSeenTs.Load())
}

func TestApplyEventAttachesEmbedding(t *testing.T) {
	session := &Session{snapshot: NewSnapshot()}

	session.applyEvent(store.Event{
		Type:  store.EventInsert,
		Photo: &store.Photo{UID: "p1", CreatorID: 1, CreatedTs: 100},
	})
	session.applyEvent(store.Event{
		Type:      store.EventUpdate,
		Photo:     &store.Photo{UID: "p1", CreatorID: 1, CreatedTs: 100, Caption: "a sunset", Tags: []string{"sunset"}},
		Embedding: []float32{0.6, 0.8},
	})

	record, ok := session.snapshot.Get("p1")
	require.True(t, ok)
	require.False(t, record.Pending())
	require.Equal(t, []float32{0.6, 0.8}, record.Embedding)
}

func newSessionTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	testProfile := &profile.Profile{
		Mode:   "prod",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "feed_test.db"),
	}
	driver, err := sqlite.NewDB(testProfile)
	require.NoError(t, err)

	st := store.New(driver, testProfile)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSessionReceivesEmbeddingAfterEnrichment(t *testing.T) {
	ctx := context.Background()
	st := newSessionTestStore(t)
	user, err := st.CreateUser(ctx, &store.User{Email: "a@example.com", Nickname: "a"})
	require.NoError(t, err)

	session, err := NewSession(ctx, st, user.ID, 50*time.Millisecond)
	require.NoError(t, err)
	defer session.Close()

	photo, err := st.CreatePhoto(ctx, &store.Photo{
		UID: "p1", CreatorID: user.ID, Filename: "a.jpg", BlobPath: "assets/a.jpg",
	})
	require.NoError(t, err)

	// Enrichment writes the photo row first and the vector second. The
	// row update takes the record out of pending, so the vector has to
	// arrive on its own and not via the pending poll.
	caption := "a sunset"
	tags := []string{"sunset"}
	_, err = st.UpdatePhoto(ctx, &store.UpdatePhoto{ID: photo.ID, Caption: &caption, Tags: &tags})
	require.NoError(t, err)
	_, err = st.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{
		PhotoID: photo.ID, Embedding: []float32{0.6, 0.8}, Model: "test",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		record, ok := session.snapshot.Get("p1")
		return ok && !record.Pending() && len(record.Embedding) > 0
	}, 2*time.Second, 20*time.Millisecond)
}
