// Package db applies the schema migrations of the graph store, the lease
// lock table and the run history.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// DefaultMigrationsDir is relative to the working directory of the binary.
const DefaultMigrationsDir = "migrations"

// SourceURL turns a directory into a migrate file source URL.
func SourceURL(dir string) (string, error) {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migrations dir %q: %w", dir, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Ping checks that databaseURL accepts connections before migrating.
func Ping(databaseURL string) error {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Up applies every pending migration. A database that is already current
// is not an error.
func Up(databaseURL, dir string) error {
	if err := Ping(databaseURL); err != nil {
		return err
	}
	src, err := SourceURL(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New(src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("[DB][Up] Failed to close migrator", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at migration %d", version)
	}
	logger.Info("[DB][Up] Database schema is current", "version", version)
	return nil
}
