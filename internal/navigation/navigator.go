// Package navigation drives one URL from request to published view state.
// It follows redirects, asks a lookup for the repository of bare change
// URLs, publishes the final state to the view-state stores and records the
// navigation in history.
package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/gerritnav/internal/history"
	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/lookup"
	"github.com/zjrosen/gerritnav/internal/pubsub"
	"github.com/zjrosen/gerritnav/internal/router"
	"github.com/zjrosen/gerritnav/internal/tracing"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// DefaultMaxRedirects bounds redirect chains when no limit is configured.
const DefaultMaxRedirects = 10

var (
	// ErrTooManyRedirects is returned when a redirect chain is longer than
	// the configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNoResolver is returned for a bare change URL when no lookup is
	// configured.
	ErrNoResolver = errors.New("no repository lookup configured")
)

// Status is how a navigation ended.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Outcome describes one navigation.
type Outcome struct {
	ID           uuid.UUID       `json:"id" yaml:"id"`
	RequestedURL string          `json:"requestedUrl" yaml:"requestedUrl"`
	CanonicalURL string          `json:"canonicalUrl,omitempty" yaml:"canonicalUrl,omitempty"`
	Status       Status          `json:"status" yaml:"status"`
	Route        string          `json:"route,omitempty" yaml:"route,omitempty"`
	View         viewstate.View  `json:"view,omitempty" yaml:"view,omitempty"`
	State        viewstate.State `json:"state,omitempty" yaml:"state,omitempty"`
	// Redirects lists every URL navigated to after the requested one.
	Redirects []string `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	// Error is set for StatusFailed.
	Error   string    `json:"error,omitempty" yaml:"error,omitempty"`
	TraceID string    `json:"traceId,omitempty" yaml:"traceId,omitempty"`
	At      time.Time `json:"at" yaml:"at"`
}

// StatePublisher receives the state of every resolved navigation.
type StatePublisher interface {
	Publish(s viewstate.State) error
}

// Recorder stores navigations.
type Recorder interface {
	Record(ctx context.Context, e *history.Entry) error
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithResolver sets the lookup used for change URLs without a repository.
func WithResolver(r lookup.Resolver) Option {
	return func(n *Navigator) { n.resolver = r }
}

// WithRecorder records every navigation.
func WithRecorder(r Recorder) Option {
	return func(n *Navigator) { n.recorder = r }
}

// WithTracer wraps navigations in spans from t.
func WithTracer(t trace.Tracer) Option {
	return func(n *Navigator) { n.tracer = t }
}

// WithMaxRedirects sets the redirect limit. Values below one select
// DefaultMaxRedirects.
func WithMaxRedirects(max int) Option {
	return func(n *Navigator) { n.maxRedirects = max }
}

// Navigator resolves URLs and publishes the resulting states.
type Navigator struct {
	mu     sync.RWMutex
	router *router.Router

	states       StatePublisher
	resolver     lookup.Resolver
	recorder     Recorder
	tracer       trace.Tracer
	maxRedirects int
	broker       *pubsub.Broker[Outcome]
}

// New returns a Navigator routing with r and publishing to states.
func New(r *router.Router, states StatePublisher, opts ...Option) *Navigator {
	n := &Navigator{
		router: r,
		states: states,
		tracer: tracing.Noop().Tracer(),
		broker: pubsub.NewBroker[Outcome](),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.maxRedirects < 1 {
		n.maxRedirects = DefaultMaxRedirects
	}
	return n
}

// Router returns the router in use.
func (n *Navigator) Router() *router.Router {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.router
}

// SetRouter replaces the router. Navigations already running keep the old
// one.
func (n *Navigator) SetRouter(r *router.Router) {
	n.mu.Lock()
	n.router = r
	n.mu.Unlock()
	log.Info(log.CatNav, "Router replaced", "basePath", r.Options().BasePath, "loggedIn", r.Options().LoggedIn)
}

// Subscribe returns navigation outcomes as they complete. Slow subscribers
// miss events.
func (n *Navigator) Subscribe(ctx context.Context) <-chan pubsub.Event[Outcome] {
	return n.broker.Subscribe(ctx)
}

// Close stops delivery to subscribers.
func (n *Navigator) Close() {
	n.broker.Close()
}

// Navigate resolves raw and publishes the resulting state. A URL that no
// route accepts is a StatusNotFound outcome, not an error. Lookup failures
// and redirect loops return an error along with a StatusFailed outcome.
func (n *Navigator) Navigate(ctx context.Context, raw string) (Outcome, error) {
	r := n.Router()
	out := Outcome{
		ID:           uuid.New(),
		RequestedURL: raw,
		At:           time.Now(),
	}

	ctx, span := tracing.Start(ctx, n.tracer, tracing.SpanNavigate,
		attribute.String(tracing.AttrNavID, out.ID.String()),
		attribute.String(tracing.AttrNavURL, raw),
	)
	out.TraceID = tracing.TraceID(ctx)

	err := n.navigate(ctx, r, &out)
	if err != nil {
		out.Status = StatusFailed
		out.Error = err.Error()
	}

	span.SetAttributes(
		attribute.String(tracing.AttrNavOutcome, string(out.Status)),
		attribute.String(tracing.AttrNavRoute, out.Route),
		attribute.String(tracing.AttrNavView, string(out.View)),
		attribute.String(tracing.AttrNavCanonical, out.CanonicalURL),
		attribute.Int(tracing.AttrNavRedirects, len(out.Redirects)),
	)

	n.record(ctx, out)
	tracing.End(span, err)

	n.broker.Publish(pubsub.Navigated, out)
	if err != nil {
		log.ErrorErr(log.CatNav, "Navigation failed", err, "url", raw, "redirects", len(out.Redirects))
	} else {
		log.Debug(log.CatNav, "Navigated", "url", raw, "status", out.Status, "route", out.Route)
	}
	return out, err
}

func (n *Navigator) navigate(ctx context.Context, r *router.Router, out *Outcome) error {
	current := out.RequestedURL
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := r.ResolveURL(current)
		out.Route = res.Route

		switch res.Kind {
		case router.Resolved:
			return n.publish(ctx, r, out, res.State, current)

		case router.NotFound:
			out.Status = StatusNotFound
			out.CanonicalURL = current
			return nil

		case router.Redirect:
			next := res.RedirectURL
			if err := n.follow(ctx, out, current, next, ""); err != nil {
				return err
			}
			current = next

		case router.NeedsLookup:
			project, found, err := n.lookup(ctx, res.Lookup.ChangeNum)
			if err != nil {
				return err
			}
			if !found {
				out.Status = StatusNotFound
				out.CanonicalURL = current
				return nil
			}
			next := r.LookupRedirect(res.Lookup, project)
			if err := n.follow(ctx, out, current, next, project); err != nil {
				return err
			}
			current = next

		default:
			return fmt.Errorf("unexpected routing result %v for %q", res.Kind, current)
		}
	}
}

// follow appends next to the redirect chain, enforcing the limit.
func (n *Navigator) follow(ctx context.Context, out *Outcome, from, to, project string) error {
	if len(out.Redirects) >= n.maxRedirects {
		return fmt.Errorf("%w: stopped after %d at %q", ErrTooManyRedirects, len(out.Redirects), from)
	}
	out.Redirects = append(out.Redirects, to)

	attrs := []attribute.KeyValue{
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String(tracing.AttrNavRoute, out.Route),
	}
	if project != "" {
		attrs = append(attrs, attribute.String(tracing.AttrProject, project))
	}
	trace.SpanFromContext(ctx).AddEvent(tracing.EventRedirectFollowed, trace.WithAttributes(attrs...))
	log.Debug(log.CatNav, "Following redirect", "from", from, "to", to, "route", out.Route)
	return nil
}

// lookup asks the resolver for the repository of changeNum. found is false
// when the change is unknown.
func (n *Navigator) lookup(ctx context.Context, changeNum int) (project string, found bool, err error) {
	if n.resolver == nil {
		return "", false, fmt.Errorf("change %d: %w", changeNum, ErrNoResolver)
	}

	ctx, span := tracing.Start(ctx, n.tracer, tracing.SpanLookup,
		attribute.Int(tracing.AttrChangeNum, changeNum))
	project, err = n.resolver.ProjectFor(ctx, changeNum)
	switch {
	case lookup.IsNotFound(err):
		tracing.End(span, nil)
		log.Info(log.CatLookup, "Change not found", "change", changeNum)
		return "", false, nil
	case err != nil:
		tracing.End(span, err)
		return "", false, fmt.Errorf("looking up change %d: %w", changeNum, err)
	}
	span.SetAttributes(attribute.String(tracing.AttrProject, project))
	tracing.End(span, nil)
	return project, true, nil
}

func (n *Navigator) publish(ctx context.Context, r *router.Router, out *Outcome, s viewstate.State, current string) error {
	if err := n.states.Publish(s); err != nil {
		return fmt.Errorf("publishing %s state: %w", s.View(), err)
	}
	out.Status = StatusResolved
	out.State = s
	out.View = s.View()
	out.CanonicalURL = current
	if u, err := r.Generator().URLFor(s); err == nil {
		out.CanonicalURL = u
	}
	trace.SpanFromContext(ctx).AddEvent(tracing.EventStatePublished,
		trace.WithAttributes(attribute.String(tracing.AttrNavView, string(s.View()))))
	return nil
}

// record writes out to history. Failures are logged; they never fail the
// navigation.
func (n *Navigator) record(ctx context.Context, out Outcome) {
	if n.recorder == nil {
		return
	}
	ctx, span := tracing.Start(ctx, n.tracer, tracing.SpanHistory,
		attribute.String(tracing.AttrNavID, out.ID.String()))

	entry := &history.Entry{
		ID:           out.ID,
		RequestedURL: out.RequestedURL,
		CanonicalURL: out.CanonicalURL,
		View:         string(out.View),
		Route:        out.Route,
		Outcome:      historyOutcome(out.Status),
		Redirects:    len(out.Redirects),
		CreatedAt:    out.At,
	}
	if out.State != nil {
		if data, err := json.Marshal(out.State); err == nil {
			entry.State = data
		}
	}

	err := n.recorder.Record(ctx, entry)
	tracing.End(span, err)
	if err != nil {
		log.ErrorErr(log.CatHistory, "Failed to record navigation", err, "url", out.RequestedURL)
	}
}

func historyOutcome(s Status) history.Outcome {
	switch s {
	case StatusResolved:
		return history.OutcomeResolved
	case StatusNotFound:
		return history.OutcomeNotFound
	default:
		return history.OutcomeFailed
	}
}
