package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/are/pkg/docmodel"
)

// GeneratorMarker is the exact sentinel identifying engine-owned aggregate
// artifacts (§3, §4.6, GLOSSARY). Its bytes are a compatibility commitment:
// changing them breaks every already-generated aggregate's marker check.
const GeneratorMarker = "<!-- are:generated-aggregate -->"

// WriteAggregate persists a directory aggregate artifact at path, following
// the user-content preservation contract (§4.6):
//
//  1. path does not exist: write body as-is.
//  2. path exists and its first non-empty line is exactly GeneratorMarker:
//     overwrite with body.
//  3. Otherwise: rename the existing file to a "*.local.*" sibling
//     (disambiguated if that sibling already exists), then write
//     "<preserved content>\n---\n<new body>" to path.
func WriteAggregate(path string, a *docmodel.AggregateArtifact) error {
	body := a.Body
	if !strings.HasPrefix(strings.TrimLeft(body, "\n"), GeneratorMarker) {
		body = GeneratorMarker + "\n\n" + body
	}

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return writeScoped(path, body)
	}
	if err != nil {
		return err
	}

	if firstNonEmptyLine(string(existing)) == GeneratorMarker {
		return writeScoped(path, body)
	}

	localPath, err := localSiblingPath(path)
	if err != nil {
		return err
	}
	if err := os.Rename(path, localPath); err != nil {
		return err
	}

	combined := string(existing) + "\n---\n" + body
	return writeScoped(path, combined)
}

// firstNonEmptyLine returns the first line of content with any leading
// whitespace-only lines skipped, trimmed of surrounding whitespace.
func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// localSiblingPath computes the "*.local.*" rename target for path,
// appending a numeric disambiguator if the preferred name is already taken
// (§4.6: "collision policy: if .local already exists, append a numeric
// disambiguator").
func localSiblingPath(path string) (string, error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	candidate := filepath.Join(dir, fmt.Sprintf("%s.local%s", stem, ext))
	if !exists(candidate) {
		return candidate, nil
	}
	for n := 2; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s.local.%d%s", stem, n, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HasGeneratorMarker reports whether an on-disk aggregate artifact at path
// carries the generator marker as its first non-empty line. Used by the
// clean operation to decide whether an aggregate is engine-owned and
// therefore safe to remove.
func HasGeneratorMarker(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return firstNonEmptyLine(string(raw)) == GeneratorMarker
}
