// Package testutil provides test utilities for history database setup.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gerritnav/internal/history"
)

// NewHistoryDB opens a migrated history database in a temp directory.
// The database is closed when the test finishes.
func NewHistoryDB(t *testing.T) *history.DB {
	t.Helper()
	return OpenHistoryDB(t, filepath.Join(t.TempDir(), "history.db"))
}

// OpenHistoryDB opens the history database at path, creating it if needed.
func OpenHistoryDB(t *testing.T, path string) *history.DB {
	t.Helper()
	db, err := history.NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
