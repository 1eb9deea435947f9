// Package eventlog emits the structured NDJSON event stream of spec §4.8:
// one JSON object per line describing every inject/pass/error decision.
package eventlog

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/constraintmcp/constraint-mcp/internal/telemetry"
)

// InjectEvent is emitted whenever the injection pipeline selects
// constraints for a response. The telemetry fields carry the dispatcher's
// per-request DispatchTelemetry snapshot (spec §4.8/§5's latency budget).
type InjectEvent struct {
	EventType             string   `json:"event_type"`
	Timestamp             string   `json:"ts"`
	InteractionNumber     int      `json:"interaction_number"`
	Phase                 string   `json:"phase"`
	SelectedConstraintIDs []string `json:"selected_constraint_ids"`
	Reason                string   `json:"reason"`
	DurationMs            int64    `json:"duration_ms"`
	ResolverCacheHit      bool     `json:"resolver_cache_hit"`
}

// PassEvent is emitted whenever the scheduler decides to pass a request
// through unchanged.
type PassEvent struct {
	EventType         string `json:"event_type"`
	Timestamp         string `json:"ts"`
	InteractionNumber int    `json:"interaction_number"`
	Reason            string `json:"reason"`
}

// ErrorEvent is emitted whenever request handling fails in a way that
// should be surfaced for offline analysis.
type ErrorEvent struct {
	EventType         string `json:"event_type"`
	Timestamp         string `json:"ts"`
	InteractionNumber int    `json:"interaction_number"`
	ErrorMessage      string `json:"error_message"`
}

// Logger writes NDJSON events to an opaque sink. When WriteTimeout is
// positive, a write that takes longer than that is abandoned: the event
// counts as dropped and the dropped-event counter is incremented. New
// leaves WriteTimeout at zero, so by default every emit waits for the sink
// however long it blocks, and no event is dropped for blocking.
type Logger struct {
	mu      sync.Mutex
	sink    io.Writer
	dropped uint64
	// WriteTimeout bounds how long a single write may take before the
	// event is considered dropped. Zero disables the timeout (emit waits
	// for the sink write to finish).
	WriteTimeout time.Duration
}

// New constructs a Logger writing to sink.
func New(sink io.Writer) *Logger {
	return &Logger{sink: sink}
}

// Inject emits an inject event, carrying the dispatcher's per-request
// DispatchTelemetry snapshot alongside the selection itself.
func (l *Logger) Inject(now time.Time, interactionNumber int, phase string, selected []string, reason string, dt telemetry.DispatchTelemetry) {
	l.emit(InjectEvent{
		EventType:             "inject",
		Timestamp:             now.UTC().Format(time.RFC3339Nano),
		InteractionNumber:     interactionNumber,
		Phase:                 phase,
		SelectedConstraintIDs: selected,
		Reason:                reason,
		DurationMs:            dt.DurationMs,
		ResolverCacheHit:      dt.ResolverCacheHit,
	})
}

// Pass emits a pass event.
func (l *Logger) Pass(now time.Time, interactionNumber int, reason string) {
	l.emit(PassEvent{
		EventType:         "pass",
		Timestamp:         now.UTC().Format(time.RFC3339Nano),
		InteractionNumber: interactionNumber,
		Reason:            reason,
	})
}

// Error emits an error event.
func (l *Logger) Error(now time.Time, interactionNumber int, message string) {
	l.emit(ErrorEvent{
		EventType:         "error",
		Timestamp:         now.UTC().Format(time.RFC3339Nano),
		InteractionNumber: interactionNumber,
		ErrorMessage:      message,
	})
}

// Dropped reports how many events have been dropped because the sink would
// have blocked.
func (l *Logger) Dropped() uint64 {
	return atomic.LoadUint64(&l.dropped)
}

func (l *Logger) emit(event any) {
	line, err := json.Marshal(event)
	if err != nil {
		atomic.AddUint64(&l.dropped, 1)
		return
	}
	line = append(line, '\n')

	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, _ = l.sink.Write(line)
		close(done)
	}()

	if l.WriteTimeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
	case <-time.After(l.WriteTimeout):
		atomic.AddUint64(&l.dropped, 1)
	}
}
