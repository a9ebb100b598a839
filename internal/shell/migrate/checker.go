// Package migrate implements database migration readiness checks against
// SQLite databases, backed by golang-migrate.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	gomigrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

// =============================================================================
// SQLite Checker
// =============================================================================

// SQLiteChecker reports how many migrations from a source filesystem have not
// yet been applied to a target SQLite database. It never applies migrations
// itself; the deployment pipeline only needs to know whether the schema is
// current before releasing traffic.
type SQLiteChecker struct {
	migrations fs.FS
	dir        string
	logger     *slog.Logger
}

// NewSQLiteChecker creates a checker over the given migrations filesystem.
// dir is the subdirectory holding the *.sql files (use "." for the root).
func NewSQLiteChecker(migrations fs.FS, dir string, logger *slog.Logger) *SQLiteChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteChecker{
		migrations: migrations,
		dir:        dir,
		logger:     logger.With("component", "migration-checker"),
	}
}

// PendingMigrations opens the database at dsn and counts source migrations
// newer than the applied schema version. A database that has never been
// migrated reports every source migration as pending. A dirty schema is an
// error: a half-applied migration needs operator attention, not a deploy.
func (c *SQLiteChecker) PendingMigrations(ctx context.Context, dsn string) (int, error) {
	if dsn == "" {
		return 0, errors.New("dsn is required")
	}

	src, err := iofs.New(c.migrations, c.dir)
	if err != nil {
		return 0, fmt.Errorf("opening migration source: %w", err)
	}
	defer src.Close()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("connecting to database: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("preparing migration driver: %w", err)
	}

	current, dirty, err := driver.Version()
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema version %d is dirty", current)
	}

	pending, err := countNewer(src, current)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("migration check complete",
		"dsn", dsn,
		"current_version", current,
		"pending", pending,
	)
	return pending, nil
}

// countNewer walks the source driver's version sequence and counts versions
// strictly greater than current. current is -1 for a never-migrated database
// (database.NilVersion).
func countNewer(src source.Driver, current int) (int, error) {
	version, err := src.First()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil // empty source
		}
		return 0, fmt.Errorf("reading migration source: %w", err)
	}

	pending := 0
	for {
		if current < 0 || version > uint(current) {
			pending++
		}
		next, err := src.Next(version)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return pending, nil
			}
			return 0, fmt.Errorf("reading migration source: %w", err)
		}
		version = next
	}
}

// Apply runs all pending migrations against the database at dsn. The rollout
// pipeline never calls this; it exists for operators preparing a target
// database out of band.
func (c *SQLiteChecker) Apply(ctx context.Context, dsn string) error {
	src, err := iofs.New(c.migrations, c.dir)
	if err != nil {
		return fmt.Errorf("opening migration source: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("preparing migration driver: %w", err)
	}

	m, err := gomigrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("preparing migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, gomigrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
