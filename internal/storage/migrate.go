package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration stopped halfway and the schema
// needs a manual fix before the record log can be trusted.
var ErrDirtySchema = errors.New("event_records schema is dirty")

// SchemaVersion is the migration level the embedded files bring a database to.
const SchemaVersion uint = 1

// Migrate brings the event_records schema at dbPath up to SchemaVersion and
// returns the version it ended at.
func Migrate(dbPath string, logger *slog.Logger) (uint, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// the migrator closes its own connection when done
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return before, fmt.Errorf("%w at version %d", ErrDirtySchema, before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, fmt.Errorf("apply migrations: %w", err)
	}
	after, _, err := m.Version()
	if err != nil {
		return before, fmt.Errorf("read schema version: %w", err)
	}
	if after != before {
		logger.Info("Migrated record schema", "path", dbPath, "from", before, "to", after)
	}
	return after, nil
}
