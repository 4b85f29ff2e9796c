package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// openMigrator wraps a dedicated connection; migrate closes it on m.Close.
func openMigrator(dbPath string) (*migrate.Migrate, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: open %s: %w", dbPath, err)
	}
	target, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: sqlite target: %w", err)
	}
	files, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: embedded files: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", files, "sqlite", target)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return m, nil
}

// RunMigrations applies pending migrations to the database at dbPath and
// reports the schema version it ends on.
func RunMigrations(dbPath string) (uint, error) {
	m, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	switch err := m.Up(); {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
	default:
		return 0, fmt.Errorf("migrations: up: %w", err)
	}

	v, dirty, err := m.Version()
	switch {
	case err != nil:
		return 0, fmt.Errorf("migrations: version: %w", err)
	case dirty:
		return v, fmt.Errorf("migrations: version %d left dirty", v)
	}
	return v, nil
}
