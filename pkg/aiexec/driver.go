// Package aiexec implements the AI-subprocess driver (§4.3): spawning the
// selected backend's CLI as a child process, bounding its resource
// footprint and stdout, retrying transient failures with backoff, and
// short-circuiting via a consecutive-same-error breaker and a token-bucket
// rate limiter.
package aiexec

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/are/pkg/backend"
	"github.com/ternarybob/are/pkg/docmodel"
)

// Config bundles the driver's tunables, built from internal/config at
// startup so this package never imports internal/config directly.
type Config struct {
	TimeoutMs      int
	MaxStdoutBytes int64
	Caps           backend.ResourceCaps
	CallOpts       backend.CallOptions
	Backoff        BackoffConfig
	Circuit        CircuitConfig
	RateLimitPerHr int
}

// Telemetry is the thread-safe sink telemetry entries are appended to,
// satisfied by *runner.TelemetryAccumulator in pkg/runner.
type Telemetry interface {
	Record(docmodel.TelemetryEntry)
}

// Driver executes one AI-CLI call per task, applying the shared retry,
// circuit-breaker, and rate-limiting policy across all callers. One Driver
// is shared by every pool worker for a given run.
type Driver struct {
	adapter   backend.Adapter
	cfg       Config
	circuit   *Circuit
	limiter   *RateLimiter
	telemetry Telemetry

	mu sync.Mutex // not locked by Call; Circuit and RateLimiter each guard their own state
}

// NewDriver constructs a driver bound to one backend adapter.
func NewDriver(adapter backend.Adapter, cfg Config, telemetry Telemetry) *Driver {
	return &Driver{
		adapter:   adapter,
		cfg:       cfg,
		circuit:   NewCircuit(cfg.Circuit),
		limiter:   NewRateLimiter(cfg.RateLimitPerHr),
		telemetry: telemetry,
	}
}

// Call runs one prompt pair through the backend CLI, retrying transient
// failures up to cfg.Backoff.MaxRetries times, and records a telemetry
// entry for the call (successful or not) before returning. When the backend
// CLI is not available it returns ErrCLINotFound at once, without recording
// a telemetry entry.
func (d *Driver) Call(ctx context.Context, taskID string, prompts docmodel.PromptPair, filesRead []docmodel.FileRef) (*backend.Response, error) {
	if !d.adapter.IsAvailable() {
		return nil, &ErrCLINotFound{Backend: d.adapter.Name()}
	}

	start := time.Now()
	entry := docmodel.TelemetryEntry{
		TaskID:      taskID,
		Start:       start,
		PromptBytes: len(prompts.System) + len(prompts.User),
		FilesRead:   filesRead,
	}

	args := d.adapter.BuildArgs(prompts, d.cfg.CallOpts)
	env := d.adapter.ResourceEnv(d.cfg.Caps)
	spawn := spawnConfig{TimeoutMs: d.cfg.TimeoutMs, MaxStdoutBytes: d.cfg.MaxStdoutBytes, Env: env}

	var lastErr error
	retries := 0

	for attempt := 0; ; attempt++ {
		if !d.circuit.Allow() {
			lastErr = &ErrRateLimitExhausted{Backend: d.adapter.Name(), Retries: retries, Last: lastErr}
			break
		}
		if err := d.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		result := runOnce(ctx, d.adapter.Name(), d.adapter.Binary(), args, spawn)

		if result.Err != nil {
			d.circuit.RecordError(result.Err.Error())
			lastErr = result.Err
			var overflow *ErrStdoutOverflow
			if errors.As(result.Err, &overflow) || !d.shouldRetry(attempt, "") {
				break // stdout overflow is parse-class and, like parse failures, never retried
			}
			retries++
			if !d.sleepBackoff(ctx, attempt) {
				lastErr = ctx.Err()
				break
			}
			continue
		}

		if result.TimedOut {
			lastErr = &ErrTimeout{Backend: d.adapter.Name(), TimeoutMs: d.cfg.TimeoutMs, Killed: result.Killed}
			d.circuit.RecordError(lastErr.Error())
			break // timeouts are never retried, per §7
		}

		if result.ExitCode != 0 {
			subErr := &ErrSubprocess{Backend: d.adapter.Name(), ExitCode: result.ExitCode, Stderr: result.Stderr}
			d.circuit.RecordError(subErr.Error())
			lastErr = subErr
			if !d.shouldRetry(attempt, result.Stderr) {
				if isRetryable(result.Stderr) {
					lastErr = &ErrRateLimitExhausted{Backend: d.adapter.Name(), Retries: retries, Last: subErr}
				}
				break
			}
			retries++
			if !d.sleepBackoff(ctx, attempt) {
				lastErr = ctx.Err()
				break
			}
			continue
		}

		resp, perr := d.adapter.ParseResponse(result.Stdout)
		if perr != nil {
			d.circuit.RecordError(perr.Error())
			lastErr = perr
			break // parse failures are a distinct non-retried class
		}

		d.circuit.RecordSuccess()
		resp.ExitCode = result.ExitCode
		entry.End = time.Now()
		entry.ResponseBytes = len(resp.Raw)
		entry.Model = resp.Model
		entry.InputTokens = resp.InputTokens
		entry.OutputTokens = resp.OutputTokens
		entry.CacheReadTokens = resp.CacheReadTokens
		entry.CacheCreationTokens = resp.CacheCreationTokens
		entry.DurationMs = time.Since(start).Milliseconds()
		entry.ExitStatus = 0
		entry.RetryCount = retries
		d.telemetry.Record(entry)
		return resp, nil
	}

	entry.End = time.Now()
	entry.DurationMs = time.Since(start).Milliseconds()
	entry.ExitStatus = 1
	entry.RetryCount = retries
	d.telemetry.Record(entry)
	return nil, lastErr
}

// shouldRetry reports whether another attempt should be made, given the
// attempt index just completed and any stderr captured from it.
func (d *Driver) shouldRetry(attempt int, stderr string) bool {
	if attempt >= d.cfg.Backoff.MaxRetries {
		return false
	}
	if stderr == "" {
		return true // spawn-level failure, e.g. transient fork error; retried up to MaxRetries
	}
	return isRetryable(stderr)
}

// sleepBackoff waits the backoff delay for the given attempt, returning
// false if ctx was cancelled first.
func (d *Driver) sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(backoffDelay(d.cfg.Backoff, attempt)):
		return true
	case <-ctx.Done():
		return false
	}
}
