package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

const migrationsTable = "schema_migrations"

// migrateDriver runs golang-migrate migrations over a database/sql
// connection opened with the ncruces driver. The connection belongs to DB;
// Close leaves it open.
type migrateDriver struct {
	conn   *sql.DB
	locked atomic.Bool
}

var _ database.Driver = (*migrateDriver)(nil)

func newMigrateDriver(conn *sql.DB) *migrateDriver {
	return &migrateDriver{conn: conn}
}

func (d *migrateDriver) ensureVersionTable() error {
	_, err := d.conn.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (version INTEGER NOT NULL, dirty INTEGER NOT NULL)`)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", migrationsTable, err)
	}
	return nil
}

func (d *migrateDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("history: migrate driver is created from an open connection")
}

func (d *migrateDriver) Close() error { return nil }

func (d *migrateDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

func (d *migrateDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

func (d *migrateDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	if _, err := d.conn.Exec(string(body)); err != nil {
		return database.Error{OrigErr: err, Query: body}
	}
	return nil
}

func (d *migrateDriver) SetVersion(version int, dirty bool) error {
	if err := d.ensureVersionTable(); err != nil {
		return err
	}

	tx, err := d.conn.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin version update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM ` + migrationsTable); err != nil {
		return fmt.Errorf("failed to clear version: %w", err)
	}
	if version >= 0 || (version == database.NilVersion && dirty) {
		if _, err := tx.Exec(`INSERT INTO `+migrationsTable+` (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			return fmt.Errorf("failed to set version: %w", err)
		}
	}
	return tx.Commit()
}

func (d *migrateDriver) Version() (version int, dirty bool, err error) {
	if err := d.ensureVersionTable(); err != nil {
		return 0, false, err
	}

	err = d.conn.QueryRow(`SELECT version, dirty FROM ` + migrationsTable + ` LIMIT 1`).Scan(&version, &dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.NilVersion, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to read version: %w", err)
	}
	return version, dirty, nil
}

func (d *migrateDriver) Drop() error {
	rows, err := d.conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, name := range tables {
		if _, err := d.conn.Exec(`DROP TABLE IF EXISTS "` + name + `"`); err != nil {
			return fmt.Errorf("failed to drop %s: %w", name, err)
		}
	}
	return nil
}
