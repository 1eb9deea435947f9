package eventlog_test

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraintmcp/constraint-mcp/internal/eventlog"
	"github.com/constraintmcp/constraint-mcp/internal/telemetry"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInjectEmitsExpectedShape(t *testing.T) {
	t.Parallel()
	sink := &syncBuffer{}
	logger := eventlog.New(sink)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	dt := telemetry.DispatchTelemetry{DurationMs: 12, ResolverCacheHit: true, SelectedConstraints: 1}
	logger.Inject(now, 7, "red", []string{"tdd.red-first"}, "keyword-match", dt)

	var got eventlog.InjectEvent
	require.NoError(t, json.Unmarshal([]byte(sink.String()), &got))
	assert.Equal(t, "inject", got.EventType)
	assert.Equal(t, 7, got.InteractionNumber)
	assert.Equal(t, "red", got.Phase)
	assert.Equal(t, []string{"tdd.red-first"}, got.SelectedConstraintIDs)
	assert.Equal(t, "keyword-match", got.Reason)
	assert.Equal(t, now.Format(time.RFC3339Nano), got.Timestamp)
	assert.Equal(t, int64(12), got.DurationMs)
	assert.True(t, got.ResolverCacheHit)
}

func TestPassEmitsExpectedShape(t *testing.T) {
	t.Parallel()
	sink := &syncBuffer{}
	logger := eventlog.New(sink)
	now := time.Unix(1000, 0)

	logger.Pass(now, 4, "not-scheduled")

	var got eventlog.PassEvent
	require.NoError(t, json.Unmarshal([]byte(sink.String()), &got))
	assert.Equal(t, "pass", got.EventType)
	assert.Equal(t, 4, got.InteractionNumber)
	assert.Equal(t, "not-scheduled", got.Reason)
}

func TestErrorEmitsExpectedShape(t *testing.T) {
	t.Parallel()
	sink := &syncBuffer{}
	logger := eventlog.New(sink)
	now := time.Unix(2000, 0)

	logger.Error(now, 1, "panic: boom")

	var got eventlog.ErrorEvent
	require.NoError(t, json.Unmarshal([]byte(sink.String()), &got))
	assert.Equal(t, "error", got.EventType)
	assert.Equal(t, "panic: boom", got.ErrorMessage)
}

func TestEachEventIsOneNDJSONLine(t *testing.T) {
	t.Parallel()
	sink := &syncBuffer{}
	logger := eventlog.New(sink)
	now := time.Unix(0, 0)

	logger.Pass(now, 1, "a")
	logger.Pass(now, 2, "b")

	lines := bytes.Split(bytes.TrimRight([]byte(sink.String()), "\n"), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var probe map[string]any
		assert.NoError(t, json.Unmarshal(line, &probe))
	}
}

// blockingWriter never returns from Write until release is closed,
// simulating a stalled sink (e.g. a full pipe) to exercise the
// drop-on-timeout path.
type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestEmitDropsOnWriteTimeout(t *testing.T) {
	t.Parallel()
	w := &blockingWriter{release: make(chan struct{})}
	defer close(w.release)

	logger := eventlog.New(w)
	logger.WriteTimeout = 10 * time.Millisecond

	logger.Pass(time.Unix(0, 0), 1, "stalled")

	assert.Equal(t, uint64(1), logger.Dropped())
}

func TestDroppedStartsAtZero(t *testing.T) {
	t.Parallel()
	logger := eventlog.New(&syncBuffer{})
	assert.Equal(t, uint64(0), logger.Dropped())
}
