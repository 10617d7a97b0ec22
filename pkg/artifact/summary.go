package artifact

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/are/pkg/docmodel"
)

// WriteSummary persists a summary artifact at path, creating parent
// directories as needed. The file handle is opened and closed within this
// call on every exit path, including error returns.
func WriteSummary(path string, a *docmodel.SummaryArtifact) error {
	return writeScoped(path, MarshalSummary(a))
}

// ReadSummary loads and parses a previously-written summary artifact. It
// returns os.ErrNotExist (wrapped) when the file is absent, so callers can
// distinguish "no artifact yet" from a parse failure.
func ReadSummary(path string) (*docmodel.SummaryArtifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSummaryHeader(raw)
}

// writeScoped opens path for writing, writes content, and guarantees the
// handle is closed before returning — on the success path and on any error
// mid-write — per §4.6's "scoped file handle" requirement.
func writeScoped(path, content string) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return mkErr
		}
	}

	f, openErr := os.Create(path)
	if openErr != nil {
		return openErr
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = f.WriteString(content)
	return err
}
