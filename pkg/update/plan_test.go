package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/are/pkg/docmodel"
)

// srcWithContent writes content to a temp file and returns a loaded
// SourceFile, since SourceFile.ContentID is only valid after Load reads
// real bytes from disk.
func srcWithContent(t *testing.T, relPath, content string) *docmodel.SourceFile {
	t.Helper()
	dir := t.TempDir()
	abs := filepath.Join(dir, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))

	src := docmodel.NewSourceFile(abs, relPath)
	_, err := src.Load()
	require.NoError(t, err)
	return src
}

func TestClassify_NewFileGoesToAnalyze(t *testing.T) {
	state := NewState()
	sources := []*docmodel.SourceFile{srcWithContent(t, "a.go", "package a")}

	plan := Classify(sources, state)
	require.Len(t, plan.ToAnalyze, 1)
	assert.Equal(t, "a.go", plan.ToAnalyze[0])
	assert.Empty(t, plan.ToSkip)
}

func TestClassify_UnchangedFileGoesToSkip(t *testing.T) {
	src := srcWithContent(t, "a.go", "package a")
	state := NewState()
	state.Record("a.go", src.ContentID())

	plan := Classify([]*docmodel.SourceFile{src}, state)
	assert.Empty(t, plan.ToAnalyze)
	assert.Equal(t, []string{"a.go"}, plan.ToSkip)
}

func TestClassify_RemovedFileBecomesOrphan(t *testing.T) {
	state := NewState()
	state.Record("gone.go", "old-hash")

	plan := Classify(nil, state)
	assert.Equal(t, []string{"gone.go"}, plan.Orphans)
}

func TestClassify_AffectedDirectoriesSortedDeepestFirst(t *testing.T) {
	state := NewState()
	sources := []*docmodel.SourceFile{
		srcWithContent(t, "a/b/c.go", "x"),
		srcWithContent(t, "a/d.go", "y"),
	}

	plan := Classify(sources, state)
	assert.Equal(t, []string{"a/b", "a", "."}, plan.AffectedDirectories)
}

func TestDetectRenames_PairsHighSimilarityContent(t *testing.T) {
	oldContent := map[string]string{"old/name.go": "package foo\nfunc Bar() {}\nfunc Baz() {}"}
	newContent := map[string]string{"new/name.go": "package foo\nfunc Bar() {}\nfunc Baz() {}\nfunc Qux() {}"}

	renames := DetectRenames([]string{"old/name.go"}, oldContent, []string{"new/name.go"}, newContent)
	require.Len(t, renames, 1)
	assert.Equal(t, "old/name.go", renames[0].From)
	assert.Equal(t, "new/name.go", renames[0].To)
	assert.GreaterOrEqual(t, renames[0].Similarity, RenameThreshold)
}

func TestDetectRenames_NoMatchBelowThreshold(t *testing.T) {
	oldContent := map[string]string{"old.go": "completely different content here"}
	newContent := map[string]string{"new.go": "utterly unrelated text entirely"}

	renames := DetectRenames([]string{"old.go"}, oldContent, []string{"new.go"}, newContent)
	assert.Empty(t, renames)
}
