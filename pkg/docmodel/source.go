// Package docmodel holds the value objects shared across the plan builder,
// worker pool, subprocess driver, pipeline runner, update planner, and
// writers: source files, artifacts, tasks, plans, and telemetry records.
package docmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// SourceFile is a discovered source path. Content is loaded on demand and
// cached; the content identifier is only valid once Load has succeeded.
type SourceFile struct {
	AbsPath string
	RelPath string

	content   []byte
	loaded    bool
	contentID string
}

// NewSourceFile constructs a source record for a discovered path.
func NewSourceFile(absPath, relPath string) *SourceFile {
	return &SourceFile{AbsPath: absPath, RelPath: relPath}
}

// Load reads the file's bytes (once) and computes its content identifier.
func (s *SourceFile) Load() ([]byte, error) {
	if s.loaded {
		return s.content, nil
	}
	data, err := os.ReadFile(s.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", s.AbsPath, err)
	}
	s.content = data
	s.contentID = ContentIdentifier(data)
	s.loaded = true
	return s.content, nil
}

// ContentID returns the cached content identifier. Load must be called first.
func (s *SourceFile) ContentID() string {
	return s.contentID
}

// Size returns the cached byte length, or 0 if not yet loaded.
func (s *SourceFile) Size() int64 {
	return int64(len(s.content))
}

// ContentIdentifier computes the canonical content identifier: the
// lowercase hex SHA-256 digest of raw bytes.
func ContentIdentifier(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileRef records a source file fed into a prompt, for telemetry.
type FileRef struct {
	Path string
	Size int64
}
