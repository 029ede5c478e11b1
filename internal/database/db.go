// Package database owns pushrouter's local state: the SQLite connection, its
// embedded schema, the row models and the Store used by every other package.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/pushrouter/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// Pragmas applied to every connection. Foreign keys keep messages tied to
// known threads and senders; the busy timeout absorbs VACUUM and sync bursts.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// NewDB opens the SQLite file at dbPath and brings its schema up to date.
// The pool holds a single connection: every write goes through it in order.
func NewDB(dbPath string) (*sqlx.DB, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("database path is empty")
	}
	log := slog.Default().With("component", "database", "file", ExtractDBNameFromPath(dbPath))

	db, err := sqlx.Connect("sqlite", connString(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	version, err := migrateUp(db.DB)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database after migration error", "error", closeErr)
		}
		return nil, err
	}

	log.Info("Database ready", "schema_version", version)
	return db, nil
}

// CloseDB closes the pool, logging instead of returning the error so it can
// be deferred.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
		return
	}
	slog.Debug("Database closed")
}

// migrateUp applies the embedded migrations and returns the resulting
// schema version.
func migrateUp(db *sql.DB) (uint, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
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

// connString appends the connection pragmas to dbPath, keeping any query
// parameters the caller already set.
func connString(dbPath string) string {
	params := make([]string, 0, len(connPragmas))
	for _, p := range connPragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

// ExtractDBNameFromPath returns the file part of a plain or file: URI path,
// without query parameters and with percent-escapes decoded.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}
