package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/are/pkg/docmodel"
)

func TestWriteAggregate_NewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGGREGATE.md")

	require.NoError(t, WriteAggregate(path, &docmodel.AggregateArtifact{Body: "hello"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, GeneratorMarker+"\n\nhello", string(raw))
}

func TestWriteAggregate_OverwritesOwnPriorVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGGREGATE.md")

	require.NoError(t, WriteAggregate(path, &docmodel.AggregateArtifact{Body: "first"}))
	require.NoError(t, WriteAggregate(path, &docmodel.AggregateArtifact{Body: "second"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, GeneratorMarker+"\n\nsecond", string(raw))
	assert.NoFileExists(t, filepath.Join(dir, "AGGREGATE.local.md"))
}

func TestWriteAggregate_PreservesUserAuthoredContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGGREGATE.md")
	userContent := "# My Notes\n\nDon't overwrite me.\n"
	require.NoError(t, os.WriteFile(path, []byte(userContent), 0o644))

	require.NoError(t, WriteAggregate(path, &docmodel.AggregateArtifact{Body: "regenerated"}))

	localPath := filepath.Join(dir, "AGGREGATE.local.md")
	localRaw, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, userContent, string(localRaw))

	mainRaw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(mainRaw), userContent)
	assert.Contains(t, string(mainRaw), "regenerated")
	assert.Contains(t, string(mainRaw), "\n---\n")
}

func TestWriteAggregate_DisambiguatesLocalCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "AGGREGATE.md")
	require.NoError(t, os.WriteFile(path, []byte("user v1"), 0o644))
	require.NoError(t, WriteAggregate(path, &docmodel.AggregateArtifact{Body: "regen 1"}))

	// Simulate a fresh user-authored file reappearing at the canonical path.
	require.NoError(t, os.WriteFile(path, []byte("user v2"), 0o644))
	require.NoError(t, WriteAggregate(path, &docmodel.AggregateArtifact{Body: "regen 2"}))

	assert.FileExists(t, filepath.Join(dir, "AGGREGATE.local.md"))
	assert.FileExists(t, filepath.Join(dir, "AGGREGATE.local.2.md"))
}

func TestHasGeneratorMarker(t *testing.T) {
	dir := t.TempDir()
	owned := filepath.Join(dir, "owned.md")
	userAuthored := filepath.Join(dir, "user.md")

	require.NoError(t, WriteAggregate(owned, &docmodel.AggregateArtifact{Body: "x"}))
	require.NoError(t, os.WriteFile(userAuthored, []byte("not generated"), 0o644))

	assert.True(t, HasGeneratorMarker(owned))
	assert.False(t, HasGeneratorMarker(userAuthored))
	assert.False(t, HasGeneratorMarker(filepath.Join(dir, "missing.md")))
}
