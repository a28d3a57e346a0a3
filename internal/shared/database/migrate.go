package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// NewMigrator opens the migration set at source (e.g. "file://migrations/pipeline")
// against a database URL in the same format Open accepts.
func NewMigrator(source, url string) (*migrate.Migrate, error) {
	m, err := migrate.New(source, migrationURL(url))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. No pending migrations is not an
// error.
func MigrateUp(source, url string) error {
	m, err := NewMigrator(source, url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrationURL maps bare file paths to the sqlite scheme golang-migrate
// expects.
func migrationURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}
	return "sqlite://" + url
}

// MaskURL hides credentials in a database URL for logging
func MaskURL(url string) string {
	if strings.HasPrefix(url, "sqlite://") || !strings.Contains(url, "://") {
		return url
	}
	if len(url) < 20 {
		return "***"
	}
	return url[:20] + "***" + url[len(url)-10:]
}
