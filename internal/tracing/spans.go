package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrNavURL       = "nav.url"
	AttrNavCanonical = "nav.canonical_url"
	AttrNavView      = "nav.view"
	AttrNavRoute     = "nav.route"
	AttrNavOutcome   = "nav.outcome"
	AttrNavRedirects = "nav.redirects"
	AttrNavID        = "nav.id"

	AttrChangeNum = "change.number"
	AttrProject   = "change.project"

	AttrErrorMessage = "error.message"
)

// Span names.
const (
	SpanNavigate = "navigate"
	SpanResolve  = "router.resolve"
	SpanLookup   = "lookup.project"
	SpanHistory  = "history.record"
)

// Span events.
const (
	EventRedirectFollowed = "redirect.followed"
	EventStatePublished   = "state.published"
)

// Start opens an internal span named name with attrs.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err (if any) as the span status and ends the span.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// TraceID returns the trace id of the span in ctx, or "" when there is no
// recording span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
