package runner

import (
	"errors"
	"fmt"

	"github.com/ternarybob/are/pkg/aiexec"
	"github.com/ternarybob/are/pkg/backend"
)

// ErrDependencyMissing is the Dependency-missing error kind (§7): a
// directory task whose declared file-task or child-directory-task
// dependency never produced an artifact.
type ErrDependencyMissing struct {
	TaskID  string
	Missing []string
}

func (e *ErrDependencyMissing) Error() string {
	return fmt.Sprintf("%s: %d dependency artifact(s) missing: %v", e.TaskID, len(e.Missing), e.Missing)
}

// ErrWrite is the Write error kind (§7): an I/O failure persisting an
// artifact to disk.
type ErrWrite struct {
	TaskID string
	Err    error
}

func (e *ErrWrite) Error() string {
	return fmt.Sprintf("%s: write failed: %v", e.TaskID, e.Err)
}

func (e *ErrWrite) Unwrap() error { return e.Err }

// failureKind maps a task error to one of §7's machine-readable error-taxonomy
// tags, for the RunSummary's per-task failure entries. Tasks skipped by
// fail-fast are tagged by the caller directly from the settlement's Skipped
// flag rather than through this classifier.
func failureKind(err error) string {
	var (
		cliNotFound *aiexec.ErrCLINotFound
		timeout     *aiexec.ErrTimeout
		exhausted   *aiexec.ErrRateLimitExhausted
		subprocess  *aiexec.ErrSubprocess
		overflow    *aiexec.ErrStdoutOverflow
		parse       *backend.ErrParse
		depMissing  *ErrDependencyMissing
		write       *ErrWrite
	)
	switch {
	case errors.As(err, &cliNotFound):
		return "ai-unavailable"
	case errors.As(err, &timeout):
		return "ai-timeout"
	case errors.As(err, &exhausted):
		return "rate-limit-exhausted"
	case errors.As(err, &overflow), errors.As(err, &parse):
		return "ai-parse"
	case errors.As(err, &subprocess):
		return "ai-subprocess"
	case errors.As(err, &depMissing):
		return "dependency-missing"
	case errors.As(err, &write):
		return "write"
	default:
		return "unknown"
	}
}
