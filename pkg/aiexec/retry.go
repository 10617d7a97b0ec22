package aiexec

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// BackoffConfig mirrors the retry knobs in internal/config.RetryConfig,
// decoupled from the config package so this file has no import cycle.
type BackoffConfig struct {
	BaseDelayMs int
	CapDelayMs  int
	Multiplier  float64
	JitterMs    int
	MaxRetries  int
}

// backoffDelay computes the delay before retry attempt n (0-indexed: n=0 is
// the delay before the first retry), per §4.3: base 1s, cap 8s, multiplier
// 2, additive uniform jitter in [0, 500ms].
func backoffDelay(cfg BackoffConfig, attempt int) time.Duration {
	base := float64(cfg.BaseDelayMs)
	cap := float64(cfg.CapDelayMs)
	delay := base * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > cap {
		delay = cap
	}
	jitter := 0.0
	if cfg.JitterMs > 0 {
		jitter = rand.Float64() * float64(cfg.JitterMs)
	}
	return time.Duration(delay+jitter) * time.Millisecond
}

// retryablePatterns are matched case-insensitively against stderr to decide
// whether a subprocess failure is transient (§4.3).
var retryablePatterns = []string{
	"rate limit",
	"429",
	"too many requests",
	"overloaded",
}

// isRetryable reports whether stderr content matches a known transient
// pattern.
func isRetryable(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
