// Package history stores the navigations gerritnav performed in a local
// SQLite database.
package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/gerritnav/internal/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB owns the history database connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if needed) the database at path and migrates it to
// the latest schema. An existing file is copied to path+".bak" first.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	if err := backup(path); err != nil {
		return nil, err
	}

	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := migrateUp(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Debug(log.CatHistory, "history database ready", "path", path)
	return &DB{conn: conn}, nil
}

func backup(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database for backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(path+".bak", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return dst.Close()
}

func migrateUp(conn *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", newMigrateDriver(conn))
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		log.Debug(log.CatHistory, "schema version", "version", version, "dirty", dirty)
	}
	return nil
}

// Repository returns the navigation repository backed by this database.
func (db *DB) Repository() *Repository {
	return newRepository(db.conn)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
