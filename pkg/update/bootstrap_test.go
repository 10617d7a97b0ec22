package update

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/are/pkg/artifact"
	"github.com/ternarybob/are/pkg/docmodel"
)

func TestBootstrapFromArtifacts_SeedsFromExistingHeaders(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, artifact.WriteSummary(filepath.Join(root, "src", "a.go.sum"), &docmodel.SummaryArtifact{
		GeneratedAt: time.Now(),
		ContentID:   "hash-a",
		Body:        "body",
	}))

	state, err := BootstrapFromArtifacts(root, []string{"src/a.go", "src/missing.go"})
	require.NoError(t, err)

	assert.False(t, state.IsFileChanged("src/a.go", "hash-a"))
	assert.True(t, state.IsFileChanged("src/a.go", "hash-b"))
	assert.True(t, state.IsFileChanged("src/missing.go", "anything"))
}
