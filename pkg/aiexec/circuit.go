package aiexec

import (
	"sync"
	"time"
)

// CircuitState is the circuit breaker's current mode.
type CircuitState int

const (
	// CircuitClosed means calls proceed normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen means calls are short-circuited without spawning a subprocess.
	CircuitOpen
	// CircuitHalfOpen lets calls through after the recovery timeout until
	// the next recorded success closes the circuit or the next recorded
	// error reopens it. Concurrent calls in this state are not limited to a
	// single probe.
	CircuitHalfOpen
)

// String renders the circuit state for logs and trace fields.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitConfig configures the consecutive-same-error breaker. This is an
// enrichment layered on top of spec.md's literal retry/backoff (§4.3): it
// short-circuits obviously doomed calls — e.g. a misconfigured API key
// producing the identical authentication error on every task — before they
// burn through the retry budget one task at a time.
type CircuitConfig struct {
	// SameErrorThreshold is the number of consecutive identical error
	// messages (across different tasks' calls) before tripping open.
	SameErrorThreshold int
	// RecoveryTimeout is how long the circuit stays open before moving to
	// half-open.
	RecoveryTimeout time.Duration
}

// Circuit is the subprocess driver's consecutive-same-error breaker. Unlike
// pkg/agent's CircuitBreaker (its teacher), it has no notion of "no
// progress" or "output decline" — those are agentic-loop concepts with no
// analog in a stateless per-task AI call.
type Circuit struct {
	mu     sync.Mutex
	config CircuitConfig

	state        CircuitState
	lastError    string
	errorStreak  int
	lastOpenTime time.Time
}

// NewCircuit creates a circuit breaker with the given config, filling in
// defaults for zero fields.
func NewCircuit(config CircuitConfig) *Circuit {
	if config.SameErrorThreshold == 0 {
		config.SameErrorThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 2 * time.Minute
	}
	return &Circuit{config: config, state: CircuitClosed}
}

// Allow reports whether a call may proceed, transitioning open->half-open
// once the recovery timeout has elapsed.
func (c *Circuit) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(c.lastOpenTime) >= c.config.RecoveryTimeout {
			c.state = CircuitHalfOpen
			return true
		}
		return false
	default: // half-open: every call is let through until a result is recorded
		return true
	}
}

// RecordSuccess closes the circuit.
func (c *Circuit) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CircuitClosed
	c.errorStreak = 0
	c.lastError = ""
}

// RecordError records a failed call, tripping the circuit open if the same
// error message repeats SameErrorThreshold times in a row.
func (c *Circuit) RecordError(errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == CircuitHalfOpen {
		c.state = CircuitOpen
		c.lastOpenTime = time.Now()
		return
	}

	if errMsg != "" && errMsg == c.lastError {
		c.errorStreak++
	} else {
		c.errorStreak = 1
		c.lastError = errMsg
	}

	if c.errorStreak >= c.config.SameErrorThreshold {
		c.state = CircuitOpen
		c.lastOpenTime = time.Now()
	}
}

// State returns the current circuit state.
func (c *Circuit) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
