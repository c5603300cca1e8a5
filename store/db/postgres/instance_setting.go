package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/store"
)

func (d *DB) UpsertInstanceSetting(ctx context.Context, upsert *store.InstanceSetting) (*store.InstanceSetting, error) {
	stmt := `
		INSERT INTO instance_setting (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Key, upsert.Value); err != nil {
		return nil, errors.Wrap(err, "failed to upsert instance setting")
	}
	return upsert, nil
}

func (d *DB) GetInstanceSetting(ctx context.Context, key string) (*store.InstanceSetting, error) {
	var setting store.InstanceSetting
	err := d.db.QueryRowContext(ctx, "SELECT key, value FROM instance_setting WHERE key = $1", key).Scan(&setting.Key, &setting.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get instance setting")
	}
	return &setting, nil
}
