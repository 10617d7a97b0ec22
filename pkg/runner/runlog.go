package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/are/pkg/docmodel"
)

// RunLogEntry is the persisted shape of one run-log file (§6): enough to
// reconstruct a RunSummary plus the invocation metadata the `summary`
// operation reports on.
type RunLogEntry struct {
	RunID     string              `json:"runId"`
	Operation string              `json:"operation"`
	StartedAt time.Time           `json:"startedAt"`
	Summary   docmodel.RunSummary `json:"summary"`
}

// runLogFilePrefix is the filename prefix run-log entries are written
// under, so the retention sweep can distinguish them from unrelated files
// sharing the run-log directory.
const runLogFilePrefix = "run-"

// WriteRunLog persists one run-log entry under dir (typically
// "<dataDir>/runs") and then prunes all but the most recent retain entries,
// newest-first (§4.4, §6). retain <= 0 disables pruning.
func WriteRunLog(dir string, entry RunLogEntry, retain int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run-log dir: %w", err)
	}

	name := fmt.Sprintf("%s%s.json", runLogFilePrefix, entry.RunID)
	path := filepath.Join(dir, name)

	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run log: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}

	if retain > 0 {
		pruneRunLogs(dir, retain)
	}
	return path, nil
}

// pruneRunLogs deletes the oldest run-log files in dir beyond the most
// recent retain, ordered by filename (run IDs are monotonically increasing
// timestamps, so lexicographic order is chronological order).
func pruneRunLogs(dir string, retain int) {
	matches, err := filepath.Glob(filepath.Join(dir, runLogFilePrefix+"*.json"))
	if err != nil {
		return
	}
	sort.Strings(matches)
	if len(matches) <= retain {
		return
	}
	for _, old := range matches[:len(matches)-retain] {
		_ = os.Remove(old) // pruning failures are non-fatal housekeeping
	}
}

// ReadRunLogs loads every run-log entry under dir, sorted oldest-first, for
// the `summary` operation (§6).
func ReadRunLogs(dir string) ([]RunLogEntry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, runLogFilePrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	entries := make([]RunLogEntry, 0, len(matches))
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry RunLogEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// NewRunID builds a lexicographically-sortable run identifier from a
// timestamp, so filenames naturally sort chronologically.
func NewRunID(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z")
}
