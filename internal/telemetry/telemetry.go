// Package telemetry provides the structured-logging, metrics, and tracing
// interfaces used by the dispatcher, plus the DispatchTelemetry snapshot the
// event logger records. The interfaces are intentionally small so tests can
// supply lightweight stubs.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the core.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter/timer/gauge helpers for runtime instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so core code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// DispatchTelemetry captures observability fields collected while handling a
// single injecting tools/call request, feeding both the inject event's
// duration_ms/resolver_cache_hit fields and RecordDispatch.
type DispatchTelemetry struct {
	// DurationMs is the wall-clock time in milliseconds from the start of
	// the injection pipeline to the point the inject event is built. It
	// does not cover frame reading, JSON decoding of the request, or
	// writing the response.
	DurationMs int64
	// ResolverCacheHit records whether the constraint resolver served
	// this request from its memoisation cache.
	ResolverCacheHit bool
	// SelectedConstraints is the number of constraint ids spliced into
	// the response, bounded by max_active_constraints.
	SelectedConstraints int
}

// RecordDispatch feeds one request's DispatchTelemetry into m as a
// duration timer, a cache-hit gauge, and a selected-constraint-count
// counter, independent of whichever Metrics backend (Clue/OTEL in
// production, a stub in tests) is wired in. Safe to call with a nil m.
func RecordDispatch(m Metrics, dt DispatchTelemetry) {
	if m == nil {
		return
	}
	m.RecordTimer("dispatch.duration", time.Duration(dt.DurationMs)*time.Millisecond)
	hit := 0.0
	if dt.ResolverCacheHit {
		hit = 1.0
	}
	m.RecordGauge("dispatch.resolver_cache_hit", hit)
	m.IncCounter("dispatch.selected_constraints", float64(dt.SelectedConstraints))
}
