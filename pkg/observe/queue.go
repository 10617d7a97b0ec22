// Package observe implements the serialized observability emitters (§4.7):
// the progress emitter, the plan checkbox tracker, and the NDJSON trace
// stream. All three share one discipline — a single write-queue goroutine
// per emitter instance drains queued writes strictly in order, so workers
// calling Emit/TaskDone/MarkDone from multiple goroutines never interleave
// writes to the same file. Grounded structurally on pkg/monitor/monitor.go's
// Emit/Subscribe non-blocking-fanout idiom and internal/logger/logger.go's
// writer-configuration pattern for the file sinks.
package observe

import "sync"

// writeQueue is the continuation-chain primitive every emitter embeds: jobs
// enqueued from any goroutine run, in enqueue order, on one dedicated
// goroutine. Observability errors are non-critical (§7), so jobs swallow
// their own failures rather than reporting them back to the caller.
type writeQueue struct {
	jobs chan func()
	wg   sync.WaitGroup
}

func newWriteQueue() *writeQueue {
	q := &writeQueue{jobs: make(chan func(), 256)}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			job()
		}
	}()
	return q
}

// enqueue appends a job to the chain. Safe to call from any goroutine.
func (q *writeQueue) enqueue(job func()) {
	q.jobs <- job
}

// close drains and stops the queue, blocking until every already-enqueued
// job has run.
func (q *writeQueue) close() {
	close(q.jobs)
	q.wg.Wait()
}
