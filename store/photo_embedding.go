package store

import "context"

// PhotoEmbedding represents the vector embedding of a photo.
type PhotoEmbedding struct {
	ID        int32
	PhotoID   int32
	Embedding []float32
	Model     string
	CreatedTs int64
	UpdatedTs int64
}

// FindPhotoEmbedding is the find condition for photo embeddings.
type FindPhotoEmbedding struct {
	PhotoID   *int32
	CreatorID *int32
	Model     *string
}

// PhotoWithScore represents a vector search result with similarity score.
type PhotoWithScore struct {
	Photo *Photo
	Score float32 // cosine similarity in [0,1], higher is more similar
}

// VectorSearchOptions represents the options for vector search.
type VectorSearchOptions struct {
	UserID int32     // required, only search photos of this user
	Vector []float32 // query vector
	Limit  int       // number of results to return, default 10
}

// UpsertPhotoEmbedding inserts or updates a photo embedding. The vector is
// published as an update event: enrichment writes the photo row first and
// the embedding second, and a live subscriber that only saw the row update
// would otherwise never learn about the vector.
func (s *Store) UpsertPhotoEmbedding(ctx context.Context, embedding *PhotoEmbedding) (*PhotoEmbedding, error) {
	upserted, err := s.driver.UpsertPhotoEmbedding(ctx, embedding)
	if err != nil {
		return nil, err
	}
	photo, err := s.GetPhoto(ctx, &FindPhoto{ID: &upserted.PhotoID})
	if err == nil && photo != nil {
		s.notifier.Publish(Event{Type: EventUpdate, Photo: photo, Embedding: upserted.Embedding})
	}
	return upserted, nil
}

// GetPhotoEmbedding gets the embedding of a specific photo.
func (s *Store) GetPhotoEmbedding(ctx context.Context, photoID int32, model string) (*PhotoEmbedding, error) {
	list, err := s.driver.ListPhotoEmbeddings(ctx, &FindPhotoEmbedding{
		PhotoID: &photoID,
		Model:   &model,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListPhotoEmbeddings lists photo embeddings.
func (s *Store) ListPhotoEmbeddings(ctx context.Context, find *FindPhotoEmbedding) ([]*PhotoEmbedding, error) {
	return s.driver.ListPhotoEmbeddings(ctx, find)
}

// DeletePhotoEmbedding deletes a photo embedding.
func (s *Store) DeletePhotoEmbedding(ctx context.Context, photoID int32) error {
	return s.driver.DeletePhotoEmbedding(ctx, photoID)
}

// VectorSearch performs vector similarity search.
func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*PhotoWithScore, error) {
	return s.driver.VectorSearch(ctx, opts)
}
