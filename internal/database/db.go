// Package database owns the SQLite connection, its schema migrations and the
// Store that backs the admin directory, message catalog, group registry,
// schedule and conversation states.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/hivebot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// Pragmas applied to every connection unless the path already sets its own.
// Cascading deletes of schedule entries depend on foreign_keys.
var defaultPragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// NewDB opens the SQLite file at path, migrates it to the latest schema and
// returns the pool. A nil logger uses slog.Default.
func NewDB(path string, logger *slog.Logger) (*sqlx.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "database")

	db, err := sqlx.Connect("sqlite", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// One writer at a time; the pool must not hand out a second connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	version, err := migrateUp(db.DB, log)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database after migration error", "error", closeErr)
		}
		return nil, err
	}

	log.Info("Database ready", "path", path, "schema_version", version)
	return db, nil
}

// CloseDB closes the pool and logs the outcome.
func CloseDB(db *sqlx.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", "component", "database", "error", err)
	}
}

// migrateUp applies the embedded migrations and reports the resulting schema version.
func migrateUp(db *sql.DB, log *slog.Logger) (uint, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", target)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debug("Schema is up to date")
	case err != nil:
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	default:
		log.Info("Applied schema migrations")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// dataSourceName appends defaultPragmas to path, keeping any query the caller
// supplied. Paths that already carry a _pragma are used as given.
func dataSourceName(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	params := make([]string, 0, len(defaultPragmas))
	for _, p := range defaultPragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
