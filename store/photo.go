package store

import "context"

// Photo is an uploaded image owned by a user. The enrichment fields are empty
// until the vision service has analyzed the image; a photo with no caption and
// no tags is considered pending enrichment.
type Photo struct {
	// ID is the system generated unique identifier for the photo.
	ID int32
	// UID is the user visible unique identifier for the photo.
	UID string

	// Standard fields
	CreatorID int32
	CreatedTs int64
	UpdatedTs int64
	RowStatus string

	// File storage
	Filename      string
	BlobPath      string
	ThumbnailPath string
	MimeType      string
	Size          int64

	// Enrichment fields, rewritten wholesale by the vision service.
	Caption      string
	Tags         []string
	Colors       []string
	ContentType  string
	DomainTags   []string
	VibeTags     []string
	HasPeople    bool
	PeopleCount  int32
	IsScreenshot bool
}

// Pending reports whether the photo is still awaiting enrichment. The state
// is derived, never stored: a photo without caption and tags is pending.
func (p *Photo) Pending() bool {
	return p.Caption == "" && len(p.Tags) == 0
}

type FindPhoto struct {
	ID             *int32
	UID            *string
	CreatorID      *int32
	CreatedTsSince *int64
	Pending        *bool
	Limit          *int
	Offset         *int
}

type UpdatePhoto struct {
	ID        int32
	UpdatedTs *int64

	ThumbnailPath *string

	Caption      *string
	Tags         *[]string
	Colors       *[]string
	ContentType  *string
	DomainTags   *[]string
	VibeTags     *[]string
	HasPeople    *bool
	PeopleCount  *int32
	IsScreenshot *bool
}

type DeletePhoto struct {
	ID int32
}

func (s *Store) CreatePhoto(ctx context.Context, create *Photo) (*Photo, error) {
	photo, err := s.driver.CreatePhoto(ctx, create)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(Event{Type: EventInsert, Photo: photo})
	return photo, nil
}

func (s *Store) ListPhotos(ctx context.Context, find *FindPhoto) ([]*Photo, error) {
	return s.driver.ListPhotos(ctx, find)
}

func (s *Store) GetPhoto(ctx context.Context, find *FindPhoto) (*Photo, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListPhotos(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdatePhoto(ctx context.Context, update *UpdatePhoto) (*Photo, error) {
	if err := s.driver.UpdatePhoto(ctx, update); err != nil {
		return nil, err
	}
	photo, err := s.GetPhoto(ctx, &FindPhoto{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if photo != nil {
		s.notifier.Publish(Event{Type: EventUpdate, Photo: photo})
	}
	return photo, nil
}

func (s *Store) DeletePhoto(ctx context.Context, delete *DeletePhoto) error {
	photo, err := s.GetPhoto(ctx, &FindPhoto{ID: &delete.ID})
	if err != nil {
		return err
	}
	if err := s.driver.DeletePhoto(ctx, delete); err != nil {
		return err
	}
	if err := s.driver.DeletePhotoEmbedding(ctx, delete.ID); err != nil {
		return err
	}
	if photo != nil {
		s.notifier.Publish(Event{Type: EventDelete, Photo: photo})
	}
	return nil
}
