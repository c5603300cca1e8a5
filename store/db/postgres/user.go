package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `
		INSERT INTO "user" (email, nickname)
		VALUES ($1, $2)
		RETURNING id, created_ts, updated_ts, row_status`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Email,
		create.Nickname,
	).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return create, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Email; v != nil {
		where, args = append(where, "email = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, created_ts, updated_ts, row_status, email, nickname
		FROM "user"
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.CreatedTs,
			&user.UpdatedTs,
			&user.RowStatus,
			&user.Email,
			&user.Nickname,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpsertLoginCode(ctx context.Context, upsert *store.LoginCode) error {
	stmt := `
		INSERT INTO login_code (user_id, code_hash, expires_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_ts = EXCLUDED.expires_ts`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.UserID, upsert.CodeHash, upsert.ExpiresTs); err != nil {
		return errors.Wrap(err, "failed to upsert login code")
	}
	return nil
}

func (d *DB) GetLoginCode(ctx context.Context, userID int32) (*store.LoginCode, error) {
	var code store.LoginCode
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, code_hash, created_ts, expires_ts
		FROM login_code
		WHERE user_id = $1`, userID).Scan(
		&code.UserID,
		&code.CodeHash,
		&code.CreatedTs,
		&code.ExpiresTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get login code")
	}
	return &code, nil
}

func (d *DB) DeleteLoginCode(ctx context.Context, userID int32) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM login_code WHERE user_id = $1", userID); err != nil {
		return errors.Wrap(err, "failed to delete login code")
	}
	return nil
}
