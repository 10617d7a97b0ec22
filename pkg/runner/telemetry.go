package runner

import (
	"sync"

	"github.com/ternarybob/are/pkg/backend"
	"github.com/ternarybob/are/pkg/docmodel"
)

// TelemetryAccumulator is the thread-safe sink the AI-subprocess driver
// appends one entry to per call (§4.3). Satisfies aiexec.Telemetry. A
// caller constructs one and shares it between aiexec.NewDriver and
// Options.Telemetry so the runner can fold driver-only detail (retry
// counts) that a bare Caller response doesn't carry into the RunSummary.
type TelemetryAccumulator struct {
	mu      sync.Mutex
	entries []docmodel.TelemetryEntry
}

// NewTelemetryAccumulator creates an empty accumulator.
func NewTelemetryAccumulator() *TelemetryAccumulator {
	return &TelemetryAccumulator{}
}

// Record appends one telemetry entry. Safe for concurrent callers.
func (t *TelemetryAccumulator) Record(e docmodel.TelemetryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a snapshot copy of everything recorded so far.
func (t *TelemetryAccumulator) Entries() []docmodel.TelemetryEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]docmodel.TelemetryEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// retryCount sums RetryCount across every recorded entry.
func (t *TelemetryAccumulator) retryCount() int {
	total := 0
	for _, e := range t.Entries() {
		total += e.RetryCount
	}
	return total
}

// callStats accumulates the call counts and token totals the runner can
// read directly off every successful backend.Response, independent of
// whether the Caller happens to be a telemetry-recording *aiexec.Driver —
// this keeps RunSummary's call/token totals correct for any Caller
// implementation, including a test fake that never touches telemetry.
type callStats struct {
	mu                  sync.Mutex
	totalCalls          int
	inputTokens         int
	outputTokens        int
	cacheReadTokens     int
	cacheCreationTokens int
	filesRead           map[string]bool
}

func newCallStats() *callStats {
	return &callStats{filesRead: make(map[string]bool)}
}

func (c *callStats) recordCall(resp *backend.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalCalls++
	c.inputTokens += resp.InputTokens
	c.outputTokens += resp.OutputTokens
	c.cacheReadTokens += resp.CacheReadTokens
	c.cacheCreationTokens += resp.CacheCreationTokens
}

func (c *callStats) recordFilesRead(refs []docmodel.FileRef) {
	if len(refs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range refs {
		c.filesRead[f.Path] = true
	}
}

func (c *callStats) uniqueFilesRead() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filesRead)
}
