package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadState_MissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadState(dir)
	require.NoError(t, err)
	assert.Empty(t, s.FileHashes)
}

func TestState_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewState()
	s.Record("a.go", "hash-a")
	s.Record("b/c.go", "hash-c")
	require.NoError(t, s.SaveState(dir))

	loaded, err := LoadState(dir)
	require.NoError(t, err)
	assert.Equal(t, "hash-a", loaded.FileHashes["a.go"])
	assert.Equal(t, "hash-c", loaded.FileHashes["b/c.go"])

	_, err = os.Stat(filepath.Join(dir, stateFileName))
	assert.NoError(t, err)
}

func TestState_IsFileChanged(t *testing.T) {
	s := NewState()
	s.Record("a.go", "hash1")

	assert.False(t, s.IsFileChanged("a.go", "hash1"))
	assert.True(t, s.IsFileChanged("a.go", "hash2"))
	assert.True(t, s.IsFileChanged("new.go", "anything"))
}

func TestState_ForgetRemovesPath(t *testing.T) {
	s := NewState()
	s.Record("a.go", "hash1")
	s.Forget("a.go")
	assert.True(t, s.IsFileChanged("a.go", "hash1"))
}
