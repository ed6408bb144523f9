package presentation

import (
	"encoding/json"
	"time"

	"github.com/zjrosen/gerritnav/internal/history"
	"github.com/zjrosen/gerritnav/internal/navigation"
	"github.com/zjrosen/gerritnav/internal/router"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// ResultDTO represents one routing result for presentation
type ResultDTO struct {
	URL         string          `json:"url" yaml:"url"`
	Kind        string          `json:"kind" yaml:"kind"`
	Route       string          `json:"route,omitempty" yaml:"route,omitempty"`
	View        string          `json:"view,omitempty" yaml:"view,omitempty"`
	State       viewstate.State `json:"state,omitempty" yaml:"state,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty" yaml:"redirectUrl,omitempty"`
	Lookup      *LookupDTO      `json:"lookup,omitempty" yaml:"lookup,omitempty"`
}

// LookupDTO describes a change URL waiting for its repository.
type LookupDTO struct {
	ChangeNum int    `json:"changeNum" yaml:"changeNum"`
	Rest      string `json:"rest,omitempty" yaml:"rest,omitempty"`
}

// FromRouterResult converts the result of routing url to a DTO.
func FromRouterResult(url string, res router.Result) ResultDTO {
	dto := ResultDTO{
		URL:         url,
		Kind:        res.Kind.String(),
		Route:       res.Route,
		State:       res.State,
		RedirectURL: res.RedirectURL,
	}
	if res.State != nil {
		dto.View = string(res.State.View())
	}
	if res.Kind == router.NeedsLookup {
		dto.Lookup = &LookupDTO{ChangeNum: res.Lookup.ChangeNum, Rest: res.Lookup.Rest}
	}
	return dto
}

// OutcomeDTO represents a finished navigation
type OutcomeDTO struct {
	ID           string          `json:"id" yaml:"id"`
	URL          string          `json:"url" yaml:"url"`
	Status       string          `json:"status" yaml:"status"`
	CanonicalURL string          `json:"canonicalUrl,omitempty" yaml:"canonicalUrl,omitempty"`
	Route        string          `json:"route,omitempty" yaml:"route,omitempty"`
	View         string          `json:"view,omitempty" yaml:"view,omitempty"`
	State        viewstate.State `json:"state,omitempty" yaml:"state,omitempty"`
	Redirects    []string        `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
	TraceID      string          `json:"traceId,omitempty" yaml:"traceId,omitempty"`
}

// FromOutcome converts a navigation outcome to a DTO.
func FromOutcome(o navigation.Outcome) OutcomeDTO {
	return OutcomeDTO{
		ID:           o.ID.String(),
		URL:          o.RequestedURL,
		Status:       string(o.Status),
		CanonicalURL: o.CanonicalURL,
		Route:        o.Route,
		View:         string(o.View),
		State:        o.State,
		Redirects:    o.Redirects,
		Error:        o.Error,
		TraceID:      o.TraceID,
	}
}

// HistoryEntryDTO represents a recorded navigation
type HistoryEntryDTO struct {
	ID           string         `json:"id" yaml:"id"`
	At           string         `json:"at" yaml:"at"`
	URL          string         `json:"url" yaml:"url"`
	Outcome      string         `json:"outcome" yaml:"outcome"`
	CanonicalURL string         `json:"canonicalUrl,omitempty" yaml:"canonicalUrl,omitempty"`
	View         string         `json:"view,omitempty" yaml:"view,omitempty"`
	Route        string         `json:"route,omitempty" yaml:"route,omitempty"`
	Redirects    int            `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	State        map[string]any `json:"state,omitempty" yaml:"state,omitempty"`
}

// FromHistoryEntry converts a history entry to a DTO. The stored state is
// decoded generically so it renders in either format.
func FromHistoryEntry(e *history.Entry) HistoryEntryDTO {
	dto := HistoryEntryDTO{
		ID:           e.ID.String(),
		At:           e.CreatedAt.UTC().Format(time.RFC3339),
		URL:          e.RequestedURL,
		Outcome:      string(e.Outcome),
		CanonicalURL: e.CanonicalURL,
		View:         e.View,
		Route:        e.Route,
		Redirects:    e.Redirects,
	}
	if len(e.State) > 0 {
		var state map[string]any
		if err := json.Unmarshal(e.State, &state); err == nil {
			dto.State = state
		}
	}
	return dto
}

// FromHistoryEntries converts a slice of history entries to DTOs
func FromHistoryEntries(entries []*history.Entry) []HistoryEntryDTO {
	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = FromHistoryEntry(e)
	}
	return dtos
}
