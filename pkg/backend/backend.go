// Package backend defines the AI-CLI backend-adapter capability set (§4.3,
// §6, §9): availability probe, argument builder, stdout parser, and
// install-hint string. The subprocess driver (pkg/aiexec) depends only on
// this interface, never on any one backend's wire format.
package backend

import (
	"fmt"

	"github.com/ternarybob/are/pkg/docmodel"
)

// CallOptions carries the caller-selected model and any configured extra
// CLI arguments, passed through to BuildArgs unchanged.
type CallOptions struct {
	Model     string
	ExtraArgs []string
}

// ResourceCaps are the three contractual resource bounds injected into
// every child process (§4.3, §6): heap/address-space, internal thread
// pool, and a background-task disabler. Exact environment variable names
// are backend-specific and live in each adapter's ResourceEnv.
type ResourceCaps struct {
	HeapCapMB              int
	ThreadPoolCap          int
	DisableBackgroundTasks bool
}

// Response is the adapter's normalized parse of the child's stdout (§4.3).
type Response struct {
	Text                string
	Model               string
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	DurationMs          int64
	ExitCode            int
	Raw                 string
}

// Adapter is the capability set exposed by one supported AI-CLI family.
// Adding a new backend requires only a new Adapter implementation; the
// subprocess driver does not otherwise depend on any backend's wire format.
type Adapter interface {
	// Name identifies the backend, e.g. "claude" or "gemini".
	Name() string

	// Binary returns the resolved executable path or bare name to exec.
	Binary() string

	// IsAvailable reports whether this backend's CLI can be located and run.
	IsAvailable() bool

	// BuildArgs constructs the argument vector for one invocation, given the
	// prompt pair and call options. The returned slice excludes the program
	// name itself.
	BuildArgs(prompts docmodel.PromptPair, opts CallOptions) []string

	// ResourceEnv renders the three contractual resource caps as
	// "KEY=VALUE" environment variable entries for this backend's CLI.
	ResourceEnv(caps ResourceCaps) []string

	// ParseResponse parses the child's captured stdout into a normalized
	// Response. A parse failure is a distinct, non-retried error class (§7).
	ParseResponse(stdout []byte) (*Response, error)

	// InstallHint is a short human-readable string describing how to install
	// this backend's CLI, surfaced when no backend is available (§7,
	// AI-unavailable).
	InstallHint() string
}

// ErrParse wraps a backend-specific parse failure.
type ErrParse struct {
	Backend string
	Err     error
}

func (e *ErrParse) Error() string {
	return fmt.Sprintf("%s: parse response: %v", e.Backend, e.Err)
}

func (e *ErrParse) Unwrap() error { return e.Err }
