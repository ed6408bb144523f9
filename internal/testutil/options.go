package testutil

import (
	"encoding/json"
	"time"

	"github.com/zjrosen/gerritnav/internal/history"
)

// EntryOption configures a navigation during builder setup.
type EntryOption func(*history.Entry)

// defaultEntry returns a resolved navigation whose canonical URL is url.
func defaultEntry(url string) history.Entry {
	return history.Entry{
		RequestedURL: url,
		CanonicalURL: url,
		Outcome:      history.OutcomeResolved,
		CreatedAt:    time.Now(),
	}
}

// Canonical sets the URL the navigation ended at.
func Canonical(url string) EntryOption {
	return func(e *history.Entry) { e.CanonicalURL = url }
}

// View sets the view the navigation resolved to.
func View(view string) EntryOption {
	return func(e *history.Entry) { e.View = view }
}

// Route sets the matched route name.
func Route(route string) EntryOption {
	return func(e *history.Entry) { e.Route = route }
}

// NotFound marks the navigation as unmatched. It clears the view.
func NotFound() EntryOption {
	return func(e *history.Entry) {
		e.Outcome = history.OutcomeNotFound
		e.View = ""
	}
}

// Failed marks the navigation as failed. It clears the canonical URL.
func Failed() EntryOption {
	return func(e *history.Entry) {
		e.Outcome = history.OutcomeFailed
		e.CanonicalURL = ""
		e.View = ""
	}
}

// Redirects sets how many redirects were followed.
func Redirects(n int) EntryOption {
	return func(e *history.Entry) { e.Redirects = n }
}

// State stores v, encoded as JSON, as the published state.
func State(v any) EntryOption {
	return func(e *history.Entry) {
		data, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		e.State = data
	}
}

// At sets the navigation time.
func At(t time.Time) EntryOption {
	return func(e *history.Entry) { e.CreatedAt = t }
}

// Ago sets the navigation time to d before now.
func Ago(d time.Duration) EntryOption {
	return func(e *history.Entry) { e.CreatedAt = time.Now().Add(-d) }
}
