package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a navigation ended.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one recorded navigation.
type Entry struct {
	ID           uuid.UUID       `json:"id" yaml:"id"`
	RequestedURL string          `json:"requested_url" yaml:"requested_url"`
	CanonicalURL string          `json:"canonical_url,omitempty" yaml:"canonical_url,omitempty"`
	View         string          `json:"view,omitempty" yaml:"view,omitempty"`
	Route        string          `json:"route,omitempty" yaml:"route,omitempty"`
	Outcome      Outcome         `json:"outcome" yaml:"outcome"`
	State        json.RawMessage `json:"state,omitempty" yaml:"-"`
	Redirects    int             `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
}

// ErrEntryNotFound is returned by Find for an unknown id.
var ErrEntryNotFound = errors.New("history entry not found")

const entryColumns = `guid, requested_url, canonical_url, view, route, outcome, state, redirects, created_at`

// Repository reads and writes navigation entries.
type Repository struct {
	db *sql.DB
}

func newRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Record stores e. A missing ID or CreatedAt is filled in on e.
func (r *Repository) Record(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO navigations (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.RequestedURL, nullable(e.CanonicalURL), nullable(e.View), nullable(e.Route),
		string(e.Outcome), nullable(string(e.State)), e.Redirects, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert navigation: %w", err)
	}
	return nil
}

func scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	var (
		e                             Entry
		guid                          string
		canonical, view, route, state sql.NullString
		outcome                       string
		createdAt                     int64
	)
	if err := scanner.Scan(&guid, &e.RequestedURL, &canonical, &view, &route, &outcome, &state, &e.Redirects, &createdAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(guid)
	if err != nil {
		return nil, fmt.Errorf("invalid navigation id %q: %w", guid, err)
	}
	e.ID = id
	e.CanonicalURL = canonical.String
	e.View = view.String
	e.Route = route.String
	e.Outcome = Outcome(outcome)
	if state.Valid {
		e.State = json.RawMessage(state.String)
	}
	e.CreatedAt = time.UnixMilli(createdAt)
	return &e, nil
}

// Recent returns up to limit entries, newest first. A limit of zero or
// less returns every entry.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM navigations ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// RecentForView is Recent restricted to one view.
func (r *Repository) RecentForView(ctx context.Context, view string, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM navigations WHERE view = ? ORDER BY created_at DESC, id DESC`
	args := []any{view}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list navigations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan navigation: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list navigations: %w", err)
	}
	return entries, nil
}

// Find returns the entry with the given id.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM navigations WHERE guid = ?`, id.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find navigation: %w", err)
	}
	return e, nil
}

// Clear deletes every entry and reports how many were removed.
func (r *Repository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM navigations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear navigations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than cutoff.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM navigations WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune navigations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
