package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gerritnav/internal/history"
)

// Builder accumulates navigations and records them in order.
type Builder struct {
	t       *testing.T
	repo    *history.Repository
	entries []*history.Entry
}

// NewBuilder creates a builder for the given history database.
func NewBuilder(t *testing.T, db *history.DB) *Builder {
	t.Helper()
	return &Builder{t: t, repo: db.Repository()}
}

// WithNavigation adds a navigation to url with optional configuration.
func (b *Builder) WithNavigation(url string, opts ...EntryOption) *Builder {
	e := defaultEntry(url)
	for _, opt := range opts {
		opt(&e)
	}
	b.entries = append(b.entries, &e)
	return b
}

// Build records all accumulated navigations and returns them with their
// assigned ids.
func (b *Builder) Build() []*history.Entry {
	b.t.Helper()
	ctx := context.Background()
	for _, e := range b.entries {
		require.NoError(b.t, b.repo.Record(ctx, e), "recording %s", e.RequestedURL)
	}
	return b.entries
}
