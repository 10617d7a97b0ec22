package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/are/internal/config"
	"github.com/ternarybob/are/pkg/artifact"
	"github.com/ternarybob/are/pkg/docmodel"
	"github.com/ternarybob/are/pkg/runner"
)

func setupProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.go"), []byte("package a"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Project.Root = root
	cfg.Project.RootTargets = config.StringSlice{"claude"}
	return cfg
}

func sourcesFor(cfg *config.Config) []*docmodel.SourceFile {
	return []*docmodel.SourceFile{
		docmodel.NewSourceFile(filepath.Join(cfg.Project.Root, "src", "a.go"), "src/a.go"),
	}
}

func newTestEngine(cfg *config.Config) *Engine {
	return &Engine{Config: cfg, Logger: arbor.NewLogger(), Registry: newRegistry(cfg)}
}

func TestDryRun_ReportsTaskCounts(t *testing.T) {
	cfg := setupProject(t)
	eng := newTestEngine(cfg)

	report, err := eng.DryRun(sourcesFor(cfg))
	require.NoError(t, err)

	assert.Equal(t, 1, report.FileTasks)
	assert.Equal(t, 2, report.DirectoryTasks) // src and the project root "."
	assert.Equal(t, 1, report.RootTasks)
	assert.Equal(t, 4, report.EstimatedAICalls)
}

func TestClean_RemovesOwnedArtifactsButKeepsUserEditedAggregate(t *testing.T) {
	cfg := setupProject(t)
	eng := newTestEngine(cfg)
	sources := sourcesFor(cfg)

	summaryPath := filepath.Join(cfg.Project.Root, "src", "a.go.sum")
	require.NoError(t, artifact.WriteSummary(summaryPath, &docmodel.SummaryArtifact{Body: "s"}))

	aggPath := filepath.Join(cfg.Project.Root, "src", docmodel.AggregateFileName)
	require.NoError(t, artifact.WriteAggregate(aggPath, &docmodel.AggregateArtifact{Body: "owned"}))

	rootAggPath := filepath.Join(cfg.Project.Root, docmodel.AggregateFileName)
	require.NoError(t, os.WriteFile(rootAggPath, []byte("not generated by us"), 0o644))

	rootPath := filepath.Join(cfg.Project.Root, "ROOT.claude.md")
	require.NoError(t, artifact.WriteRoot(rootPath, &docmodel.RootArtifact{Body: "root"}))

	removed, err := eng.Clean(sources)
	require.NoError(t, err)

	assert.Contains(t, removed, summaryPath)
	assert.Contains(t, removed, aggPath)
	assert.Contains(t, removed, rootPath)
	assert.NotContains(t, removed, rootAggPath)
	assert.FileExists(t, rootAggPath)
}

func TestSummary_LimitsToMostRecentEntries(t *testing.T) {
	cfg := setupProject(t)
	eng := newTestEngine(cfg)

	runsDir := filepath.Join(cfg.DataDirPath(), "runs")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Hour)
		entry := runner.RunLogEntry{RunID: runner.NewRunID(started), Operation: "generate", StartedAt: started}
		_, err := runner.WriteRunLog(runsDir, entry, 50)
		require.NoError(t, err)
	}

	entries, err := eng.Summary(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].StartedAt.Before(entries[1].StartedAt))
}

func TestBootstrapState_FallsBackToEmptyStateWithoutArtifacts(t *testing.T) {
	cfg := setupProject(t)
	eng := newTestEngine(cfg)

	state := eng.bootstrapState(sourcesFor(cfg))
	assert.Empty(t, state.Paths())
}

func TestPlanLabels_ListsEveryTaskOncePerPhase(t *testing.T) {
	cfg := setupProject(t)
	eng := newTestEngine(cfg)

	execPlan, err := eng.buildPlan(sourcesFor(cfg))
	require.NoError(t, err)

	labels := planLabels(execPlan)
	assert.Len(t, labels, 4) // 1 file + 2 directories + 1 root
	assert.Contains(t, labels, "file:src/a.go")
}
