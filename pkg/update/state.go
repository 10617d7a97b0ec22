// Package update implements the incremental-update planner (§4.5):
// classifying sources into toAnalyze/toSkip/orphans/affectedDirectories by
// comparing content hashes against the previous run's persisted state.
package update

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const stateFileName = "state.json"

// State is the persisted record of each source's content identifier as of
// the last successful run, keyed by project-relative path. Grounded on
// auto-doc's indexer.State (LoadState/IsFileChanged/FileHashes/SaveState),
// trimmed to drop the vector-store/commit-SHA fields that have no analog
// here.
type State struct {
	FileHashes map[string]string `json:"file_hashes"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{FileHashes: make(map[string]string)}
}

// LoadState reads the persisted state from dataDir, returning an empty
// state if no state file exists yet (first run).
func LoadState(dataDir string) (*State, error) {
	path := filepath.Join(dataDir, stateFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.FileHashes == nil {
		s.FileHashes = make(map[string]string)
	}
	return &s, nil
}

// SaveState persists the state to dataDir, creating the directory if needed.
func (s *State) SaveState(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, stateFileName), raw, 0o644)
}

// IsFileChanged reports whether relPath's current content identifier
// differs from (or is absent from) the last recorded one.
func (s *State) IsFileChanged(relPath, contentID string) bool {
	prev, ok := s.FileHashes[relPath]
	return !ok || prev != contentID
}

// Record updates relPath's content identifier after a successful analysis.
func (s *State) Record(relPath, contentID string) {
	s.FileHashes[relPath] = contentID
}

// Forget removes relPath from the state, used when cleaning up orphans.
func (s *State) Forget(relPath string) {
	delete(s.FileHashes, relPath)
}

// Paths returns every path currently tracked in state.
func (s *State) Paths() []string {
	paths := make([]string, 0, len(s.FileHashes))
	for p := range s.FileHashes {
		paths = append(paths, p)
	}
	return paths
}
