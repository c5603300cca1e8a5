package store_test

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

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	testProfile := &profile.Profile{
		Mode:   "prod",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "keepsake_test.db"),
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

func createTestUser(t *testing.T, st *store.Store) *store.User {
	t.Helper()
	user, err := st.CreateUser(context.Background(), &store.User{
		Email:    "a@example.com",
		Nickname: "a",
	})
	require.NoError(t, err)
	return user
}

func TestMigrateIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestPhotoLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	photo, err := st.CreatePhoto(ctx, &store.Photo{
		UID:       "photo-1",
		CreatorID: user.ID,
		Filename:  "a.jpg",
		BlobPath:  "assets/a.jpg",
		MimeType:  "image/jpeg",
		Size:      1234,
	})
	require.NoError(t, err)
	require.NotZero(t, photo.ID)
	require.True(t, photo.Pending())

	pending := true
	pendingPhotos, err := st.ListPhotos(ctx, &store.FindPhoto{CreatorID: &user.ID, Pending: &pending})
	require.NoError(t, err)
	require.Len(t, pendingPhotos, 1)

	caption := "a dog on a beach"
	tags := []string{"dog", "beach"}
	updated, err := st.UpdatePhoto(ctx, &store.UpdatePhoto{
		ID:      photo.ID,
		Caption: &caption,
		Tags:    &tags,
	})
	require.NoError(t, err)
	require.False(t, updated.Pending())
	require.Equal(t, tags, updated.Tags)

	pendingPhotos, err = st.ListPhotos(ctx, &store.FindPhoto{CreatorID: &user.ID, Pending: &pending})
	require.NoError(t, err)
	require.Empty(t, pendingPhotos)

	require.NoError(t, st.DeletePhoto(ctx, &store.DeletePhoto{ID: photo.ID}))
	got, err := st.GetPhoto(ctx, &store.FindPhoto{ID: &photo.ID})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestListPhotosCreatedTsSince(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	photo, err := st.CreatePhoto(ctx, &store.Photo{UID: "p1", CreatorID: user.ID, Filename: "a.jpg", BlobPath: "assets/a.jpg"})
	require.NoError(t, err)

	future := time.Now().Add(time.Hour).Unix()
	photos, err := st.ListPhotos(ctx, &store.FindPhoto{CreatorID: &user.ID, CreatedTsSince: &future})
	require.NoError(t, err)
	require.Empty(t, photos)

	// The bound is inclusive so a record sharing its creation second
	// with the newest seen one is still returned.
	photos, err = st.ListPhotos(ctx, &store.FindPhoto{CreatorID: &user.ID, CreatedTsSince: &photo.CreatedTs})
	require.NoError(t, err)
	require.Len(t, photos, 1)

	past := int64(0)
	photos, err = st.ListPhotos(ctx, &store.FindPhoto{CreatorID: &user.ID, CreatedTsSince: &past})
	require.NoError(t, err)
	require.Len(t, photos, 1)
}

func TestNotePinnedOrdering(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	first, err := st.CreateNote(ctx, &store.Note{UID: "n1", CreatorID: user.ID, Content: "older"})
	require.NoError(t, err)
	_, err = st.CreateNote(ctx, &store.Note{UID: "n2", CreatorID: user.ID, Content: "newer"})
	require.NoError(t, err)

	pinned := true
	_, err = st.UpdateNote(ctx, &store.UpdateNote{ID: first.ID, Pinned: &pinned})
	require.NoError(t, err)

	notes, err := st.ListNotes(ctx, &store.FindNote{CreatorID: &user.ID})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "n1", notes[0].UID)
}

func TestPhotoEmbeddingVectorSearch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	vectors := map[string][]float32{
		"p1": {1, 0},
		"p2": {0.6, 0.8},
		"p3": {0, 1},
	}
	for uid, vector := range vectors {
		photo, err := st.CreatePhoto(ctx, &store.Photo{UID: uid, CreatorID: user.ID, Filename: uid + ".jpg", BlobPath: "assets/" + uid + ".jpg"})
		require.NoError(t, err)
		_, err = st.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{
			PhotoID:   photo.ID,
			Embedding: vector,
			Model:     "test-model",
		})
		require.NoError(t, err)
	}

	results, err := st.VectorSearch(ctx, &store.VectorSearchOptions{
		UserID: user.ID,
		Vector: []float32{1, 0},
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "p1", results[0].Photo.UID)
	require.Equal(t, "p2", results[1].Photo.UID)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestEmbeddingDeletedWithPhoto(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	photo, err := st.CreatePhoto(ctx, &store.Photo{UID: "p1", CreatorID: user.ID, Filename: "a.jpg", BlobPath: "assets/a.jpg"})
	require.NoError(t, err)
	_, err = st.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{PhotoID: photo.ID, Embedding: []float32{1, 0}, Model: "test-model"})
	require.NoError(t, err)

	require.NoError(t, st.DeletePhoto(ctx, &store.DeletePhoto{ID: photo.ID}))

	embeddings, err := st.ListPhotoEmbeddings(ctx, &store.FindPhotoEmbedding{PhotoID: &photo.ID})
	require.NoError(t, err)
	require.Empty(t, embeddings)
}

func TestLoginCodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	now := time.Now()
	require.NoError(t, st.UpsertLoginCode(ctx, &store.LoginCode{
		UserID:    user.ID,
		CodeHash:  "hash-1",
		CreatedTs: now.Unix(),
		ExpiresTs: now.Add(10 * time.Minute).Unix(),
	}))

	code, err := st.GetLoginCode(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, code)
	require.Equal(t, "hash-1", code.CodeHash)

	// A reissued code replaces the previous one.
	require.NoError(t, st.UpsertLoginCode(ctx, &store.LoginCode{
		UserID:    user.ID,
		CodeHash:  "hash-2",
		CreatedTs: now.Unix(),
		ExpiresTs: now.Add(10 * time.Minute).Unix(),
	}))
	code, err = st.GetLoginCode(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "hash-2", code.CodeHash)

	require.NoError(t, st.DeleteLoginCode(ctx, user.ID))
	code, err = st.GetLoginCode(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, code)
}

func TestNotifierPublishesWrites(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	subscription := st.Notifier().Subscribe(user.ID)
	defer st.Notifier().Unsubscribe(subscription.ID)

	_, err := st.CreatePhoto(ctx, &store.Photo{UID: "p1", CreatorID: user.ID, Filename: "a.jpg", BlobPath: "assets/a.jpg"})
	require.NoError(t, err)

	select {
	case event := <-subscription.C:
		require.Equal(t, store.EventInsert, event.Type)
		require.NotNil(t, event.Photo)
		require.Equal(t, "p1", event.Photo.UID)
	case <-time.After(time.Second):
		t.Fatal("no insert event received")
	}
}

func TestUpsertPhotoEmbeddingPublishesEvent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st)

	photo, err := st.CreatePhoto(ctx, &store.Photo{UID: "p1", CreatorID: user.ID, Filename: "a.jpg", BlobPath: "assets/a.jpg"})
	require.NoError(t, err)

	subscription := st.Notifier().Subscribe(user.ID)
	defer st.Notifier().Unsubscribe(subscription.ID)

	_, err = st.UpsertPhotoEmbedding(ctx, &store.PhotoEmbedding{
		PhotoID: photo.ID, Embedding: []float32{1, 0}, Model: "test",
	})
	require.NoError(t, err)

	select {
	case event := <-subscription.C:
		require.Equal(t, store.EventUpdate, event.Type)
		require.NotNil(t, event.Photo)
		require.Equal(t, "p1", event.Photo.UID)
		require.Equal(t, []float32{1, 0}, event.Embedding)
	case <-time.After(time.Second):
		t.Fatal("no update event received")
	}
}
