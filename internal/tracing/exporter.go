package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// FileExporter writes one JSON object per span, so a trace file can be
// read with jq.
type FileExporter struct {
	mu  sync.Mutex
	w   io.Writer
	c   io.Closer
	enc *json.Encoder
}

var _ sdktrace.SpanExporter = (*FileExporter)(nil)

// NewFileExporter appends spans to path, creating it and its directory.
func NewFileExporter(path string) (*FileExporter, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- path is cleaned above
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	e := NewWriterExporter(f)
	e.c = f
	return e, nil
}

// NewWriterExporter writes spans to w. Shutdown does not close w.
func NewWriterExporter(w io.Writer) *FileExporter {
	return &FileExporter{w: w, enc: json.NewEncoder(w)}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *FileExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.w == nil {
		return fmt.Errorf("trace exporter is shut down")
	}
	for _, span := range spans {
		if err := e.enc.Encode(newSpanRecord(span)); err != nil {
			return fmt.Errorf("encode span: %w", err)
		}
	}
	return nil
}

// Shutdown closes the file. Later exports fail.
func (e *FileExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.w = nil
	if e.c == nil {
		return nil
	}
	err := e.c.Close()
	e.c = nil
	return err
}

// SpanRecord is the JSON form of a span.
type SpanRecord struct {
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_span_id,omitempty"`
	Name       string         `json:"name"`
	Start      time.Time      `json:"start_time"`
	End        time.Time      `json:"end_time"`
	DurationMs float64        `json:"duration_ms"`
	Status     string         `json:"status"`
	StatusMsg  string         `json:"status_message,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Events     []EventRecord  `json:"events,omitempty"`
}

// EventRecord is the JSON form of a span event.
type EventRecord struct {
	Name       string         `json:"name"`
	Time       time.Time      `json:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func attributeMap(kvs []attribute.KeyValue) map[string]any {
	if len(kvs) == 0 {
		return nil
	}
	m := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func statusName(c codes.Code) string {
	switch c {
	case codes.Ok:
		return "OK"
	case codes.Error:
		return "ERROR"
	default:
		return "UNSET"
	}
}

func newSpanRecord(span sdktrace.ReadOnlySpan) SpanRecord {
	sc := span.SpanContext()
	rec := SpanRecord{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		Name:       span.Name(),
		Start:      span.StartTime(),
		End:        span.EndTime(),
		DurationMs: float64(span.EndTime().Sub(span.StartTime()).Microseconds()) / 1000,
		Status:     statusName(span.Status().Code),
		StatusMsg:  span.Status().Description,
		Attributes: attributeMap(span.Attributes()),
	}
	if p := span.Parent(); p.IsValid() {
		rec.ParentID = p.SpanID().String()
	}
	for _, ev := range span.Events() {
		rec.Events = append(rec.Events, EventRecord{
			Name:       ev.Name,
			Time:       ev.Time,
			Attributes: attributeMap(ev.Attributes),
		})
	}
	return rec
}
