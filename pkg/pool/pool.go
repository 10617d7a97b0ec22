// Package pool implements the shared-iterator worker pool (§4.2): a bounded
// set of workers race to atomically pull the next task from a single cursor,
// honor an optional fail-fast abort, and report settlement records in input
// order regardless of completion order.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/are/pkg/docmodel"
)

// Tracer receives lifecycle trace events. Implementations must not block.
type Tracer interface {
	Emit(docmodel.TraceEvent)
}

// NoopTracer discards every event.
type NoopTracer struct{}

// Emit is a no-op.
func (NoopTracer) Emit(docmodel.TraceEvent) {}

// TaskFunc is a single unit of work. The context is cancelled only by the
// caller, never by the pool itself: in-flight tasks are never interrupted
// by fail-fast (§5, Cancellation semantics).
type TaskFunc func(ctx context.Context) (any, error)

// Options configures one pool run.
type Options struct {
	Concurrency int
	FailFast    bool
	Phase       string
	Tracer      Tracer
	// Labels holds one label per task, same length as the task slice, used
	// in trace events and settlement records.
	Labels []string
}

// Settlement is the outcome of one task, recorded in input order.
type Settlement struct {
	Index    int
	Label    string
	Value    any
	Err      error
	Skipped  bool
	Duration time.Duration
}

// errSkippedFailFast is the sentinel error for tasks that never started
// because the pool had already aborted (§4.2).
var errSkippedFailFast = fmt.Errorf("skipped: pool aborted by an earlier failure")

// workerState models the per-worker lifecycle named in §4.2: idle -> pulling
// -> executing -> reporting -> idle, with a terminal stopped state.
type workerState string

const (
	stateIdle      workerState = "idle"
	statePulling   workerState = "pulling"
	stateExecuting workerState = "executing"
	stateReporting workerState = "reporting"
	stateStopped   workerState = "stopped"
)

// Run executes tasks with bounded concurrency, returning one settlement per
// task in input order. onComplete, if non-nil, is invoked exactly once per
// task — including tasks skipped by fail-fast.
func Run(ctx context.Context, tasks []TaskFunc, opts Options, onComplete func(Settlement)) []Settlement {
	results := make([]Settlement, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = NoopTracer{}
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	tracer.Emit(docmodel.NewTraceEvent(docmodel.TraceEventPhaseStart, map[string]any{
		"phase":       opts.Phase,
		"taskCount":   len(tasks),
		"concurrency": concurrency,
	}))

	var cursor int64 = -1
	var aborted atomic.Bool
	var completed, failed int64

	var wg sync.WaitGroup
	wg.Add(concurrency)

	for w := 0; w < concurrency; w++ {
		workerID := w
		go func() {
			defer wg.Done()
			state := statePulling
			tracer.Emit(docmodel.NewTraceEvent(docmodel.TraceEventWorkerStart, map[string]any{
				"phase":    opts.Phase,
				"workerId": workerID,
			}))

			for {
				idx := int(atomic.AddInt64(&cursor, 1))
				if idx >= len(tasks) {
					state = stateStopped
					break
				}

				label := ""
				if idx < len(opts.Labels) {
					label = opts.Labels[idx]
				}

				if opts.FailFast && aborted.Load() {
					results[idx] = Settlement{Index: idx, Label: label, Err: errSkippedFailFast, Skipped: true}
					atomic.AddInt64(&failed, 1)
					if onComplete != nil {
						onComplete(results[idx])
					}
					continue
				}

				state = stateExecuting
				tracer.Emit(docmodel.NewTraceEvent(docmodel.TraceEventTaskPickup, map[string]any{
					"phase":    opts.Phase,
					"workerId": workerID,
					"index":    idx,
					"label":    label,
				}))

				start := time.Now()
				value, err := tasks[idx](ctx)
				duration := time.Since(start)

				state = stateReporting
				settlement := Settlement{Index: idx, Label: label, Value: value, Err: err, Duration: duration}
				results[idx] = settlement

				if err != nil {
					atomic.AddInt64(&failed, 1)
					if opts.FailFast {
						aborted.Store(true)
					}
				} else {
					atomic.AddInt64(&completed, 1)
				}

				tracer.Emit(docmodel.NewTraceEvent(docmodel.TraceEventTaskDone, map[string]any{
					"phase":      opts.Phase,
					"workerId":   workerID,
					"index":      idx,
					"label":      label,
					"durationMs": duration.Milliseconds(),
					"success":    err == nil,
				}))

				if onComplete != nil {
					onComplete(settlement)
				}
				state = statePulling
			}

			_ = state
			tracer.Emit(docmodel.NewTraceEvent(docmodel.TraceEventWorkerEnd, map[string]any{
				"phase":    opts.Phase,
				"workerId": workerID,
			}))
		}()
	}

	wg.Wait()

	tracer.Emit(docmodel.NewTraceEvent(docmodel.TraceEventPhaseEnd, map[string]any{
		"phase":          opts.Phase,
		"tasksCompleted": atomic.LoadInt64(&completed),
		"tasksFailed":    atomic.LoadInt64(&failed),
	}))

	return results
}
