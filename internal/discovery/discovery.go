// Package discovery provides the default file-discovery collaborator the
// core consumes (§1: "the core consumes a list of source-file paths" — file
// discovery itself is out of scope). This is a minimal, gitignore-unaware
// walker good enough to drive cmd/are end to end; a caller embedding the
// engine is free to supply its own list of *docmodel.SourceFile instead.
// Grounded on pkg/index/walker.go's filepath.WalkDir + skip-pattern shape.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/are/pkg/docmodel"
)

// defaultSkipDirs mirrors the teacher's Walker.shouldSkipDir table, plus the
// engine's own hidden data directory so a run never re-documents its own
// run-scoped artifacts.
var defaultSkipDirs = []string{".git", "vendor", "node_modules", ".are"}

// defaultBinaryExts are extensions never worth feeding to the AI as source.
var defaultBinaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true,
	".so": true, ".dylib": true, ".dll": true, ".bin": true, ".woff": true,
	".woff2": true, ".ttf": true, ".mp4": true, ".mp3": true,
}

// Options configures Walk.
type Options struct {
	// ExtraSkipDirs is appended to defaultSkipDirs.
	ExtraSkipDirs []string
	// MaxFileSize skips files larger than this many bytes, 0 = no limit.
	MaxFileSize int64
}

// Walk discovers every non-binary source file under root, returning them as
// *docmodel.SourceFile sorted by relative path for deterministic plan
// construction. Discovered files are not loaded (§3: "content loaded on
// demand"); only AbsPath/RelPath are populated.
func Walk(root string, opts Options) ([]*docmodel.SourceFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(defaultSkipDirs)+len(opts.ExtraSkipDirs))
	for _, d := range defaultSkipDirs {
		skip[d] = true
	}
	for _, d := range opts.ExtraSkipDirs {
		skip[d] = true
	}

	var sources []*docmodel.SourceFile
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal (discovery is best-effort here)
		}
		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if skip[strings.Split(relPath, "/")[0]] {
			return nil
		}
		if defaultBinaryExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if opts.MaxFileSize > 0 {
			info, infoErr := d.Info()
			if infoErr == nil && info.Size() > opts.MaxFileSize {
				return nil
			}
		}
		if looksBinary(path) {
			return nil
		}

		sources = append(sources, docmodel.NewSourceFile(path, relPath))
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].RelPath < sources[j].RelPath })
	return sources, nil
}

// looksBinary sniffs the first 512 bytes for a NUL byte, the same cheap
// heuristic text editors use.
func looksBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
