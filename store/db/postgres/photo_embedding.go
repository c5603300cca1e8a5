package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/store"
)

// UpsertPhotoEmbedding inserts or updates a photo embedding.
func (d *DB) UpsertPhotoEmbedding(ctx context.Context, embedding *store.PhotoEmbedding) (*store.PhotoEmbedding, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO photo_embedding (photo_id, embedding, model, created_ts, updated_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (photo_id, model)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts`

	vector := pgvector.NewVector(embedding.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		embedding.PhotoID,
		vector,
		embedding.Model,
		now,
		now,
	).Scan(
		&embedding.ID,
		&embedding.CreatedTs,
		&embedding.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert photo embedding")
	}
	return embedding, nil
}

// ListPhotoEmbeddings lists photo embeddings.
func (d *DB) ListPhotoEmbeddings(ctx context.Context, find *store.FindPhotoEmbedding) ([]*store.PhotoEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.PhotoID; v != nil {
		where, args = append(where, "e.photo_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Model; v != nil {
		where, args = append(where, "e.model = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "p.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT e.id, e.photo_id, e.embedding, e.model, e.created_ts, e.updated_ts
		FROM photo_embedding e
		JOIN photo p ON p.id = e.photo_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.created_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list photo embeddings")
	}
	defer rows.Close()

	list := []*store.PhotoEmbedding{}
	for rows.Next() {
		var embedding store.PhotoEmbedding
		var vector pgvector.Vector
		if err := rows.Scan(
			&embedding.ID,
			&embedding.PhotoID,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan photo embedding")
		}
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// DeletePhotoEmbedding deletes a photo embedding.
func (d *DB) DeletePhotoEmbedding(ctx context.Context, photoID int32) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM photo_embedding WHERE photo_id = $1", photoID); err != nil {
		return errors.Wrap(err, "failed to delete photo embedding")
	}
	return nil
}

// VectorSearch performs vector similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// ordering by distance ascending yields most similar first.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.PhotoWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			p.id, p.uid, p.creator_id, p.created_ts, p.updated_ts, p.row_status,
			p.filename, p.blob_path, p.thumbnail_path, p.mime_type, p.size,
			p.caption, p.tags, p.colors, p.content_type, p.domain_tags, p.vibe_tags,
			p.has_people, p.people_count, p.is_screenshot,
			1 - (e.embedding <=> $1) AS score
		FROM photo p
		INNER JOIN photo_embedding e ON p.id = e.photo_id
		WHERE p.creator_id = $2
			AND p.row_status = 'NORMAL'
		ORDER BY e.embedding <=> $3
		LIMIT $4`

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query, vector, opts.UserID, vector, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.PhotoWithScore{}
	for rows.Next() {
		var result store.PhotoWithScore
		var photo store.Photo
		var tags, colors, domainTags, vibeTags string
		if err := rows.Scan(
			&photo.ID,
			&photo.UID,
			&photo.CreatorID,
			&photo.CreatedTs,
			&photo.UpdatedTs,
			&photo.RowStatus,
			&photo.Filename,
			&photo.BlobPath,
			&photo.ThumbnailPath,
			&photo.MimeType,
			&photo.Size,
			&photo.Caption,
			&tags,
			&colors,
			&photo.ContentType,
			&domainTags,
			&vibeTags,
			&photo.HasPeople,
			&photo.PeopleCount,
			&photo.IsScreenshot,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		photo.Tags = unmarshalStringList(tags)
		photo.Colors = unmarshalStringList(colors)
		photo.DomainTags = unmarshalStringList(domainTags)
		photo.VibeTags = unmarshalStringList(vibeTags)

		result.Photo = &photo
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
