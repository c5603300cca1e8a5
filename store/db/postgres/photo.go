package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/store"
)

func (d *DB) CreatePhoto(ctx context.Context, create *store.Photo) (*store.Photo, error) {
	fields := []string{"uid", "creator_id", "filename", "blob_path", "thumbnail_path", "mime_type", "size", "caption", "tags", "colors", "content_type", "domain_tags", "vibe_tags", "has_people", "people_count", "is_screenshot"}
	args := []any{
		create.UID,
		create.CreatorID,
		create.Filename,
		create.BlobPath,
		create.ThumbnailPath,
		create.MimeType,
		create.Size,
		create.Caption,
		marshalStringList(create.Tags),
		marshalStringList(create.Colors),
		create.ContentType,
		marshalStringList(create.DomainTags),
		marshalStringList(create.VibeTags),
		create.HasPeople,
		create.PeopleCount,
		create.IsScreenshot,
	}

	stmt := "INSERT INTO photo (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id, created_ts, updated_ts, row_status"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create photo")
	}
	return create, nil
}

func (d *DB) ListPhotos(ctx context.Context, find *store.FindPhoto) ([]*store.Photo, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsSince; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Pending; v != nil {
		if *v {
			where = append(where, "caption = '' AND tags = '[]'")
		} else {
			where = append(where, "NOT (caption = '' AND tags = '[]')")
		}
	}
	where = append(where, "row_status = 'NORMAL'")

	query := `
		SELECT
			id, uid, creator_id, created_ts, updated_ts, row_status,
			filename, blob_path, thumbnail_path, mime_type, size,
			caption, tags, colors, content_type, domain_tags, vibe_tags,
			has_people, people_count, is_screenshot
		FROM photo
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list photos")
	}
	defer rows.Close()

	list := []*store.Photo{}
	for rows.Next() {
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
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan photo")
		}
		photo.Tags = unmarshalStringList(tags)
		photo.Colors = unmarshalStringList(colors)
		photo.DomainTags = unmarshalStringList(domainTags)
		photo.VibeTags = unmarshalStringList(vibeTags)
		list = append(list, &photo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdatePhoto(ctx context.Context, update *store.UpdatePhoto) error {
	set, args := []string{}, []any{}

	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ThumbnailPath; v != nil {
		set, args = append(set, "thumbnail_path = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Caption; v != nil {
		set, args = append(set, "caption = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Tags; v != nil {
		set, args = append(set, "tags = "+placeholder(len(args)+1)), append(args, marshalStringList(*v))
	}
	if v := update.Colors; v != nil {
		set, args = append(set, "colors = "+placeholder(len(args)+1)), append(args, marshalStringList(*v))
	}
	if v := update.ContentType; v != nil {
		set, args = append(set, "content_type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DomainTags; v != nil {
		set, args = append(set, "domain_tags = "+placeholder(len(args)+1)), append(args, marshalStringList(*v))
	}
	if v := update.VibeTags; v != nil {
		set, args = append(set, "vibe_tags = "+placeholder(len(args)+1)), append(args, marshalStringList(*v))
	}
	if v := update.HasPeople; v != nil {
		set, args = append(set, "has_people = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.PeopleCount; v != nil {
		set, args = append(set, "people_count = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsScreenshot; v != nil {
		set, args = append(set, "is_screenshot = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	stmt := "UPDATE photo SET " + strings.Join(set, ", ") + " WHERE id = " + placeholder(len(args)+1)
	args = append(args, update.ID)
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update photo")
	}
	return nil
}

func (d *DB) DeletePhoto(ctx context.Context, delete *store.DeletePhoto) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM photo WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete photo")
	}
	return nil
}
