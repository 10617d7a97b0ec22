package observe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ternarybob/are/pkg/docmodel"
)

// TraceEmitter writes one JSON object per line (NDJSON) for every lifecycle
// event, auto-augmenting each with {seq, ts, pid, elapsedMs} under the write
// queue so seq cannot skip or race (§4.7, §8: trace monotonicity).
type TraceEmitter struct {
	queue  *writeQueue
	file   *os.File
	seq    int64
	start  time.Time
	pid    int
	closed atomic.Bool
}

// NewTraceEmitter creates an NDJSON trace file at path, truncating any
// prior content.
func NewTraceEmitter(path string) (*TraceEmitter, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &TraceEmitter{
		queue: newWriteQueue(),
		file:  f,
		start: time.Now(),
		pid:   os.Getpid(),
	}, nil
}

// Emit augments ev with seq/ts/pid/elapsedMs and appends it as one NDJSON
// line. Emissions after Finalize are discarded silently (§4.7).
func (t *TraceEmitter) Emit(ev docmodel.TraceEvent) {
	if t.closed.Load() {
		return
	}
	t.queue.enqueue(func() {
		t.seq++
		ev.Seq = t.seq
		ev.TS = time.Now()
		ev.PID = t.pid
		ev.ElapsedMs = time.Since(t.start).Milliseconds()

		line, err := json.Marshal(ev)
		if err != nil {
			return // observability failures are swallowed, never propagated (§7)
		}
		line = append(line, '\n')
		_, _ = t.file.Write(line)
	})
}

// Finalize flushes the write chain and closes the underlying file. Safe to
// call once; further Emit calls are no-ops.
func (t *TraceEmitter) Finalize() error {
	t.closed.Store(true)
	t.queue.close()
	return t.file.Close()
}

// NullTracer discards every event with zero overhead, selected when tracing
// is disabled (§4.7).
type NullTracer struct{}

// Emit is a no-op.
func (NullTracer) Emit(docmodel.TraceEvent) {}

// Finalize is a no-op.
func (NullTracer) Finalize() error { return nil }
