package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteOrphans_RemovesSummaryAndAnnex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo.go.sum"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo.go.sum.annex"), []byte("y"), 0o644))

	state := NewState()
	state.Record("foo.go", "abc")

	result := DeleteOrphans(root, []string{"foo.go"}, state)

	assert.NoFileExists(t, filepath.Join(root, "foo.go.sum"))
	assert.NoFileExists(t, filepath.Join(root, "foo.go.sum.annex"))
	assert.Len(t, result.Removed, 2)
	assert.Empty(t, result.Errors)
	assert.NotContains(t, state.Paths(), "foo.go")
}

func TestDeleteOrphans_MissingFileIsNotAnError(t *testing.T) {
	root := t.TempDir()
	state := NewState()

	result := DeleteOrphans(root, []string{"gone.go"}, state)

	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Errors)
}
