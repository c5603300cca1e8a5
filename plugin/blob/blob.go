// Package blob stores photo originals and thumbnails on the local disk.
package blob

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultPathTemplate = "assets/{timestamp}_{filename}"

// Store writes and reads blobs under a root directory. Paths handed out
// are slash-separated and relative to the root, suitable for storing in
// the database and serving under /o/.
type Store struct {
	root         string
	pathTemplate string
}

// NewStore creates a blob store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("blob root directory is required")
	}
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, errors.Wrap(err, "failed to create blob root directory")
	}
	return &Store{
		root:         dir,
		pathTemplate: defaultPathTemplate,
	}, nil
}

// Save writes data under a templated path derived from filename and
// returns the relative path of the stored blob.
func (s *Store) Save(filename string, data []byte) (string, error) {
	internalPath := s.pathTemplate
	if !strings.Contains(internalPath, "{filename}") {
		internalPath = filepath.Join(internalPath, "{filename}")
	}
	internalPath = replacePathTemplate(internalPath, filename)
	internalPath = filepath.ToSlash(internalPath)

	osPath := filepath.Join(s.root, filepath.FromSlash(internalPath))
	if err := os.MkdirAll(filepath.Dir(osPath), os.ModePerm); err != nil {
		return "", errors.Wrap(err, "failed to create blob directory")
	}
	if err := os.WriteFile(osPath, data, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write blob")
	}
	return internalPath, nil
}

// SaveAt writes data at an exact relative path, used for derived blobs
// such as thumbnails that must sit next to their original.
func (s *Store) SaveAt(relPath string, data []byte) error {
	osPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(osPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create blob directory")
	}
	if err := os.WriteFile(osPath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write blob")
	}
	return nil
}

// Open opens the blob at relPath for reading.
func (s *Store) Open(relPath string) (*os.File, error) {
	osPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	file, err := os.Open(osPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, "blob not found")
		}
		return nil, errors.Wrap(err, "failed to open blob")
	}
	return file, nil
}

// Delete removes the blob at relPath. Missing blobs are not an error.
func (s *Store) Delete(relPath string) error {
	osPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := os.Remove(osPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete blob")
	}
	return nil
}

func replacePathTemplate(path, filename string) string {
	t := time.Now()
	path = strings.ReplaceAll(path, "{filename}", filename)
	path = strings.ReplaceAll(path, "{timestamp}", t.Format("20060102150405"))
	path = strings.ReplaceAll(path, "{year}", t.Format("2006"))
	path = strings.ReplaceAll(path, "{month}", t.Format("01"))
	path = strings.ReplaceAll(path, "{day}", t.Format("02"))
	return path
}
