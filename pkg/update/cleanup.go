package update

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/are/pkg/docmodel"
)

// CleanupResult reports what DeleteOrphans actually removed from disk, so
// the caller can fold it into the run summary.
type CleanupResult struct {
	Removed []string
	Errors  map[string]error
}

// DeleteOrphans removes the summary artifact (and its annex companion, if
// present) for every orphaned source path, under projectRoot, and forgets
// each from state (§4.5). A missing file is not an error: orphan detection
// and deletion can race a concurrent manual cleanup.
func DeleteOrphans(projectRoot string, orphans []string, state *State) CleanupResult {
	result := CleanupResult{Errors: make(map[string]error)}

	for _, orphan := range orphans {
		summaryPath := filepath.Join(projectRoot, docmodel.SummaryPath(orphan))
		if _, err := os.Stat(summaryPath); err == nil {
			if err := os.Remove(summaryPath); err != nil {
				result.Errors[summaryPath] = err
			} else {
				result.Removed = append(result.Removed, summaryPath)
			}
		}

		annexPath := docmodel.AnnexPath(summaryPath)
		if _, err := os.Stat(annexPath); err == nil {
			if err := os.Remove(annexPath); err != nil {
				result.Errors[annexPath] = err
			} else {
				result.Removed = append(result.Removed, annexPath)
			}
		}

		state.Forget(orphan)
	}

	return result
}
