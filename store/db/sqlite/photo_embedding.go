package sqlite

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/store"
)

// Embeddings are stored as little-endian float32 blobs and similarity is
// computed in Go at query time. This is fine for a personal library (a few
// thousand vectors); PostgreSQL with pgvector does the same work in-database.

func (d *DB) UpsertPhotoEmbedding(ctx context.Context, embedding *store.PhotoEmbedding) (*store.PhotoEmbedding, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO photo_embedding (photo_id, embedding, model, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (photo_id, model)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts`
	if err := d.db.QueryRowContext(ctx, stmt,
		embedding.PhotoID,
		encodeVector(embedding.Embedding),
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

func (d *DB) ListPhotoEmbeddings(ctx context.Context, find *store.FindPhotoEmbedding) ([]*store.PhotoEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.PhotoID; v != nil {
		where, args = append(where, "e.photo_id = ?"), append(args, *v)
	}
	if v := find.Model; v != nil {
		where, args = append(where, "e.model = ?"), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "p.creator_id = ?"), append(args, *v)
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
		var blob []byte
		if err := rows.Scan(
			&embedding.ID,
			&embedding.PhotoID,
			&blob,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan photo embedding")
		}
		embedding.Embedding = decodeVector(blob)
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeletePhotoEmbedding(ctx context.Context, photoID int32) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM photo_embedding WHERE photo_id = ?", photoID); err != nil {
		return errors.Wrap(err, "failed to delete photo embedding")
	}
	return nil
}

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
			e.embedding
		FROM photo p
		JOIN photo_embedding e ON p.id = e.photo_id
		WHERE p.creator_id = ? AND p.row_status = 'NORMAL'`
	rows, err := d.db.QueryContext(ctx, query, opts.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.PhotoWithScore{}
	for rows.Next() {
		var photo store.Photo
		var tags, colors, domainTags, vibeTags string
		var blob []byte
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
			&blob,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		photo.Tags = unmarshalStringList(tags)
		photo.Colors = unmarshalStringList(colors)
		photo.DomainTags = unmarshalStringList(domainTags)
		photo.VibeTags = unmarshalStringList(vibeTags)

		results = append(results, &store.PhotoWithScore{
			Photo: &photo,
			Score: cosineSimilarity(opts.Vector, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
