package blob

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.Save("cat.jpg", []byte("jpeg bytes"))
	require.NoError(t, err)
	require.Contains(t, relPath, "cat.jpg")
	require.NotContains(t, relPath, "{")

	file, err := store.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg bytes"), data)
}

func TestSaveAt(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveAt("thumbnails/cat.jpg", []byte("thumb")))
	file, err := store.Open("thumbnails/cat.jpg")
	require.NoError(t, err)
	file.Close()
}

func TestDeleteMissingBlob(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Delete("assets/never-existed.jpg"))
}

func TestOpenMissingBlob(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("assets/never-existed.jpg")
	require.Error(t, err)
}
