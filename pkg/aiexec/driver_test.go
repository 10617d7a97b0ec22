package aiexec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/are/pkg/backend"
	"github.com/ternarybob/are/pkg/docmodel"
)

// fakeAdapter drives /bin/sh so the driver's process-spawn path runs for
// real without depending on any actual AI CLI being installed.
type fakeAdapter struct {
	script string
}

func (f *fakeAdapter) Name() string   { return "fake" }
func (f *fakeAdapter) Binary() string { return "/bin/sh" }
func (f *fakeAdapter) IsAvailable() bool {
	return true
}
func (f *fakeAdapter) BuildArgs(_ docmodel.PromptPair, _ backend.CallOptions) []string {
	return []string{"-c", f.script}
}
func (f *fakeAdapter) ResourceEnv(_ backend.ResourceCaps) []string { return nil }
func (f *fakeAdapter) ParseResponse(stdout []byte) (*backend.Response, error) {
	return &backend.Response{Text: string(stdout), Raw: string(stdout)}, nil
}
func (f *fakeAdapter) InstallHint() string { return "n/a" }

type fakeTelemetry struct {
	mu      sync.Mutex
	entries []docmodel.TelemetryEntry
}

func (t *fakeTelemetry) Record(e docmodel.TelemetryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

func baseDriverConfig() Config {
	return Config{
		TimeoutMs:      2000,
		MaxStdoutBytes: 1 << 20,
		Backoff:        BackoffConfig{BaseDelayMs: 10, CapDelayMs: 50, Multiplier: 2, JitterMs: 0, MaxRetries: 2},
		Circuit:        CircuitConfig{SameErrorThreshold: 5, RecoveryTimeout: time.Minute},
		RateLimitPerHr: 36000,
	}
}

func TestDriver_Call_Success(t *testing.T) {
	adapter := &fakeAdapter{script: "echo -n hello"}
	telemetry := &fakeTelemetry{}
	d := NewDriver(adapter, baseDriverConfig(), telemetry)

	resp, err := d.Call(context.Background(), "task:1", docmodel.PromptPair{User: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	require.Len(t, telemetry.entries, 1)
	assert.Equal(t, "task:1", telemetry.entries[0].TaskID)
	assert.Equal(t, 0, telemetry.entries[0].ExitStatus)
}

func TestDriver_Call_NonZeroExitRetriesOnlyWhenRetryable(t *testing.T) {
	adapter := &fakeAdapter{script: "echo 'invalid api key' 1>&2; exit 1"}
	telemetry := &fakeTelemetry{}
	d := NewDriver(adapter, baseDriverConfig(), telemetry)

	_, err := d.Call(context.Background(), "task:2", docmodel.PromptPair{User: "hi"}, nil)
	require.Error(t, err)
	var subErr *ErrSubprocess
	assert.ErrorAs(t, err, &subErr)
	require.Len(t, telemetry.entries, 1)
	assert.Equal(t, 0, telemetry.entries[0].RetryCount) // non-retryable stderr, no retry burned
}

func TestDriver_Call_RetriesOnRateLimitPattern(t *testing.T) {
	adapter := &fakeAdapter{script: "echo 'rate limit exceeded' 1>&2; exit 1"}
	telemetry := &fakeTelemetry{}
	cfg := baseDriverConfig()
	cfg.Backoff.MaxRetries = 2
	d := NewDriver(adapter, cfg, telemetry)

	_, err := d.Call(context.Background(), "task:3", docmodel.PromptPair{User: "hi"}, nil)
	require.Error(t, err)
	var exhausted *ErrRateLimitExhausted
	assert.ErrorAs(t, err, &exhausted)
	if exhausted != nil {
		assert.Equal(t, 2, exhausted.Retries)
	}
	require.Len(t, telemetry.entries, 1)
	assert.Equal(t, 2, telemetry.entries[0].RetryCount)
}

func TestDriver_Call_CLINotFoundWhenUnavailable(t *testing.T) {
	adapter := &unavailableAdapter{fakeAdapter: fakeAdapter{script: "true"}}
	telemetry := &fakeTelemetry{}
	d := NewDriver(adapter, baseDriverConfig(), telemetry)

	_, err := d.Call(context.Background(), "task:4", docmodel.PromptPair{User: "hi"}, nil)
	var notFound *ErrCLINotFound
	assert.ErrorAs(t, err, &notFound)
	assert.Empty(t, telemetry.entries)
}

type unavailableAdapter struct {
	fakeAdapter
}

func (u *unavailableAdapter) IsAvailable() bool { return false }
