package store

import "context"

// Note is a short text record living in the same feed as photos. Pinned notes
// sort ahead of everything else regardless of date; the pin is a presentation
// annotation only and has no effect on search.
type Note struct {
	ID  int32
	UID string

	// Standard fields
	CreatorID int32
	CreatedTs int64
	UpdatedTs int64
	RowStatus string

	// Domain specific fields
	Content string
	Pinned  bool
}

type FindNote struct {
	ID             *int32
	UID            *string
	CreatorID      *int32
	CreatedTsSince *int64
	Pinned         *bool
	Limit          *int
	Offset         *int
}

type UpdateNote struct {
	ID        int32
	UpdatedTs *int64
	Content   *string
	Pinned    *bool
}

type DeleteNote struct {
	ID int32
}

func (s *Store) CreateNote(ctx context.Context, create *Note) (*Note, error) {
	note, err := s.driver.CreateNote(ctx, create)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(Event{Type: EventInsert, Note: note})
	return note, nil
}

func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	return s.driver.ListNotes(ctx, find)
}

func (s *Store) GetNote(ctx context.Context, find *FindNote) (*Note, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListNotes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error) {
	if err := s.driver.UpdateNote(ctx, update); err != nil {
		return nil, err
	}
	note, err := s.GetNote(ctx, &FindNote{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if note != nil {
		s.notifier.Publish(Event{Type: EventUpdate, Note: note})
	}
	return note, nil
}

func (s *Store) DeleteNote(ctx context.Context, delete *DeleteNote) error {
	note, err := s.GetNote(ctx, &FindNote{ID: &delete.ID})
	if err != nil {
		return err
	}
	if err := s.driver.DeleteNote(ctx, delete); err != nil {
		return err
	}
	if note != nil {
		s.notifier.Publish(Event{Type: EventDelete, Note: note})
	}
	return nil
}
