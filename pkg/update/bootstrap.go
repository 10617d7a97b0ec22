package update

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/are/pkg/artifact"
)

// BootstrapFromArtifacts seeds state by parsing every already-written
// summary artifact's header for the sources it covers, when no persisted
// state file exists yet but summary artifacts are already present on disk
// (e.g. the state file was deleted but the artifacts survived). This keeps
// §4.5's literal "parse its header" contract available even though the
// normal path compares against the faster persisted State cache populated
// at write time.
func BootstrapFromArtifacts(projectRoot string, sourceRelPaths []string) (*State, error) {
	state := NewState()
	for _, relPath := range sourceRelPaths {
		summaryPath := filepath.Join(projectRoot, relPath+".sum")
		raw, err := os.ReadFile(summaryPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		a, err := artifact.ParseSummaryHeader(raw)
		if err != nil {
			continue // an unparseable artifact is treated as absent, not a startup failure
		}
		state.Record(relPath, a.ContentID)
	}
	return state, nil
}
