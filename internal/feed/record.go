// Package feed maintains the in-memory snapshot of a user's photos and
// notes and keeps it reconciled with the store across realtime events
// and periodic polls.
package feed

import (
	"strings"
	"time"

	"github.com/keepsakehq/keepsake/store"
)

// Kind discriminates the two record types in the feed.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindNote  Kind = "note"
)

// Record is an immutable feed view of a photo or note. Matchers and
// the API read records; only the snapshot mutates them, by replacement.
type Record struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time

	// Photo fields.
	Filename      string
	BlobPath      string
	ThumbnailPath string
	MimeType      string
	Caption       string
	Tags          []string
	Colors        []string
	ContentType   string
	DomainTags    []string
	VibeTags      []string
	HasPeople     bool
	PeopleCount   int32
	IsScreenshot  bool
	Embedding     []float32

	// Note fields.
	Content string
	Pinned  bool
}

// Pending reports whether a photo still awaits enrichment. A photo is
// pending iff it has no caption and no tags. Notes are never pending.
func (r *Record) Pending() bool {
	return r.Kind == KindPhoto && r.Caption == "" && len(r.Tags) == 0
}

// Haystack concatenates every searchable text field, lower-cased, plus
// two human-readable renderings of the creation date so queries like
// "Jan 3" or "January 2026" hit.
func (r *Record) Haystack() string {
	parts := []string{
		r.Caption,
		r.Content,
		r.ContentType,
		strings.Join(r.Tags, " "),
		strings.Join(r.Colors, " "),
		strings.Join(r.DomainTags, " "),
		strings.Join(r.VibeTags, " "),
	}
	if r.HasPeople {
		parts = append(parts, "people")
	}
	if r.IsScreenshot {
		parts = append(parts, "screenshot")
	}
	parts = append(parts,
		r.CreatedAt.Format("Jan 2, 2006"),
		r.CreatedAt.Format("January 2, 2006"),
	)
	return strings.ToLower(strings.Join(parts, " "))
}

// Tokens flattens the searchable fields into lower-cased words for
// fuzzy scoring. Multi-word fields are split on whitespace.
func (r *Record) Tokens() []string {
	var tokens []string
	appendWords := func(s string) {
		for _, word := range strings.Fields(strings.ToLower(s)) {
			tokens = append(tokens, word)
		}
	}
	appendWords(r.Caption)
	appendWords(r.Content)
	appendWords(r.ContentType)
	for _, list := range [][]string{r.Tags, r.Colors, r.DomainTags, r.VibeTags} {
		for _, item := range list {
			appendWords(item)
		}
	}
	if r.HasPeople {
		tokens = append(tokens, "people")
	}
	if r.IsScreenshot {
		tokens = append(tokens, "screenshot")
	}
	return tokens
}

// FromPhoto converts a store photo into a feed record.
func FromPhoto(photo *store.Photo) *Record {
	return &Record{
		ID:            photo.UID,
		Kind:          KindPhoto,
		CreatedAt:     time.Unix(photo.CreatedTs, 0),
		Filename:      photo.Filename,
		BlobPath:      photo.BlobPath,
		ThumbnailPath: photo.ThumbnailPath,
		MimeType:      photo.MimeType,
		Caption:       photo.Caption,
		Tags:          photo.Tags,
		Colors:        photo.Colors,
		ContentType:   photo.ContentType,
		DomainTags:    photo.DomainTags,
		VibeTags:      photo.VibeTags,
		HasPeople:     photo.HasPeople,
		PeopleCount:   photo.PeopleCount,
		IsScreenshot:  photo.IsScreenshot,
	}
}

// FromNote converts a store note into a feed record.
func FromNote(note *store.Note) *Record {
	return &Record{
		ID:        note.UID,
		Kind:      KindNote,
		CreatedAt: time.Unix(note.CreatedTs, 0),
		Content:   note.Content,
		Pinned:    note.Pinned,
	}
}
