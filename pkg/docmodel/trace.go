package docmodel

import "time"

// TraceEventKind is the discriminated union of lifecycle event kinds (§3).
type TraceEventKind string

const (
	TraceEventPhaseStart        TraceEventKind = "phase:start"
	TraceEventPhaseEnd          TraceEventKind = "phase:end"
	TraceEventWorkerStart       TraceEventKind = "worker:start"
	TraceEventWorkerEnd         TraceEventKind = "worker:end"
	TraceEventTaskPickup        TraceEventKind = "task:pickup"
	TraceEventTaskDone          TraceEventKind = "task:done"
	TraceEventSubprocessSpawn   TraceEventKind = "subprocess:spawn"
	TraceEventSubprocessExit    TraceEventKind = "subprocess:exit"
	TraceEventRetry             TraceEventKind = "retry"
	TraceEventConfigLoaded      TraceEventKind = "config:loaded"
	TraceEventDiscoveryStart    TraceEventKind = "discovery:start"
	TraceEventDiscoveryEnd      TraceEventKind = "discovery:end"
	TraceEventPlanCreated       TraceEventKind = "plan:created"
)

// TraceEvent is one lifecycle transition (§3). Seq, TS, PID, and ElapsedMs
// are filled in by the trace emitter immediately before emission, never by
// the caller, so that seq cannot skip or race.
type TraceEvent struct {
	Kind      TraceEventKind `json:"kind"`
	Seq       int64          `json:"seq"`
	TS        time.Time      `json:"ts"`
	PID       int            `json:"pid"`
	ElapsedMs int64          `json:"elapsedMs"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewTraceEvent creates an event with the given kind and field bag. Seq/TS/
// PID/ElapsedMs are left zero; the emitter fills them in.
func NewTraceEvent(kind TraceEventKind, fields map[string]any) TraceEvent {
	if fields == nil {
		fields = make(map[string]any)
	}
	return TraceEvent{Kind: kind, Fields: fields}
}
