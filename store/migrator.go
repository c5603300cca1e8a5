package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/internal/version"
)

// The migration system handles database schema versioning and upgrades.
// The applied schema version is stored in instance_setting.
//
// Fresh installations apply LATEST.sql in one shot. Existing installations
// apply the incremental files between their stored schema version and the
// target version, in order.
//
// Migration files live at store/migration/{driver}/prod/{minor}/NN__description.sql;
// a file's schema version is {minor}.{NN}.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch number
	// and the description in a migration file name, e.g. "1__create_table.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full schema applied to fresh installations.
	LatestSchemaFileName = "LATEST.sql"

	// defaultSchemaVersion is used when no schema version has been recorded.
	defaultSchemaVersion = "0.0.0"
)

// Migrate brings the database schema up to the current version.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}

	targetVersion := version.GetCurrentVersion(s.profile.Mode)

	if !initialized {
		if err := s.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		if _, err := s.UpsertInstanceSetting(ctx, &InstanceSetting{
			Key:   SettingKeySchemaVersion,
			Value: targetVersion,
		}); err != nil {
			return errors.Wrap(err, "failed to record schema version")
		}
		slog.Info("database initialized", "schemaVersion", targetVersion)
		return nil
	}

	currentVersion, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return err
	}

	files, err := s.migrationFilesToApply(currentVersion, targetVersion)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	slog.Info("applying migrations", "from", currentVersion, "to", targetVersion, "count", len(files))
	for _, file := range files {
		buf, err := migrationFS.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file %s", file)
		}
		if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to apply migration file %s", file)
		}
		slog.Info("migration applied", "file", filepath.Base(file))
	}

	if _, err := s.UpsertInstanceSetting(ctx, &InstanceSetting{
		Key:   SettingKeySchemaVersion,
		Value: targetVersion,
	}); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}

func (s *Store) currentSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.GetInstanceSetting(ctx, SettingKeySchemaVersion)
	if err != nil {
		return "", errors.Wrap(err, "failed to read schema version")
	}
	if setting == nil || setting.Value == "" {
		return defaultSchemaVersion, nil
	}
	return setting.Value, nil
}

func (s *Store) applyLatestSchema(ctx context.Context) error {
	path := filepath.Join("migration", s.profile.Driver, LatestSchemaFileName)
	buf, err := migrationFS.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema %s", path)
	}
	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to execute latest schema")
	}
	return nil
}

// migrationFilesToApply lists the embedded incremental migration files whose
// version is greater than current and not greater than target, sorted.
func (s *Store) migrationFilesToApply(currentVersion, targetVersion string) ([]string, error) {
	root := filepath.Join("migration", s.profile.Driver, "prod")
	var files []string
	err := fs.WalkDir(migrationFS, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		fileVersion, err := migrationFileVersion(path)
		if err != nil {
			return err
		}
		if version.IsVersionGreaterThan(fileVersion, currentVersion) &&
			version.IsVersionGreaterOrEqualThan(targetVersion, fileVersion) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk migration files")
	}
	sort.Strings(files)
	return files, nil
}

// migrationFileVersion derives the schema version of a migration file from
// its path, e.g. migration/sqlite/prod/0.3/1__add_vibe_tags.sql -> 0.3.1.
func migrationFileVersion(path string) (string, error) {
	minor := filepath.Base(filepath.Dir(path))
	name := filepath.Base(path)
	parts := strings.SplitN(name, MigrateFileNameSplit, 2)
	if len(parts) != 2 {
		return "", errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, name)
	}
	patch, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", errors.Errorf("migration filename must start with a number: %s", name)
	}
	return fmt.Sprintf("%s.%d", minor, patch), nil
}
