package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/are/pkg/docmodel"
)

type stubAdapter struct{}

func (stubAdapter) FilePrompts(src *docmodel.SourceFile) docmodel.PromptPair {
	return docmodel.PromptPair{System: "file", User: src.RelPath}
}
func (stubAdapter) DirectoryPrompts(dirRelPath string, depth int) docmodel.PromptPair {
	return docmodel.PromptPair{System: "dir", User: dirRelPath}
}
func (stubAdapter) RootPrompts(target string) docmodel.PromptPair {
	return docmodel.PromptPair{System: "root", User: target}
}

func TestBuild_EmptyProjectProducesRootDirectoryAndRootTasksOnly(t *testing.T) {
	b := NewBuilder("/proj", []string{"claude"}, stubAdapter{})
	p, err := b.Build(nil)
	require.NoError(t, err)

	assert.Empty(t, p.FileTasks, "empty project has no file tasks")
	require.Len(t, p.DirectoryTasks, 1, "empty project still gets one root directory task")
	assert.Equal(t, ".", p.DirectoryTasks[0].Metadata["dirRelPath"])
	require.Len(t, p.RootTasks, 1)
}

func TestBuild_TwoFilesOneDirectory(t *testing.T) {
	b := NewBuilder("/proj", []string{"claude"}, stubAdapter{})
	sources := []*docmodel.SourceFile{
		docmodel.NewSourceFile("/proj/src/a.kt", "src/a.kt"),
		docmodel.NewSourceFile("/proj/src/b.kt", "src/b.kt"),
	}
	p, err := b.Build(sources)
	require.NoError(t, err)

	require.Len(t, p.FileTasks, 2)
	// deepest first: src/ (depth 1) before . (depth 0)
	require.Len(t, p.DirectoryTasks, 2)
	assert.Equal(t, "src", p.DirectoryTasks[0].Metadata["dirRelPath"])
	assert.Equal(t, ".", p.DirectoryTasks[1].Metadata["dirRelPath"])

	srcDirTask := p.DirectoryTasks[0]
	assert.Len(t, srcDirTask.DependsOn, 2, "src/ directory task should depend on both file tasks")

	rootDirTask := p.DirectoryTasks[1]
	assert.Contains(t, rootDirTask.DependsOn, "dir:src", "root directory task depends on its child directory")
}

func TestBuild_DuplicateSourcesCollapsed(t *testing.T) {
	b := NewBuilder("/proj", nil, stubAdapter{})
	sources := []*docmodel.SourceFile{
		docmodel.NewSourceFile("/proj/a.kt", "a.kt"),
		docmodel.NewSourceFile("/proj/a.kt", "a.kt"),
	}
	p, err := b.Build(sources)
	require.NoError(t, err)
	assert.Len(t, p.FileTasks, 1)
}

func TestBuild_RootTasksDependOnAllDirectoryTasks(t *testing.T) {
	b := NewBuilder("/proj", []string{"claude", "cursor"}, stubAdapter{})
	sources := []*docmodel.SourceFile{
		docmodel.NewSourceFile("/proj/src/a/x.kt", "src/a/x.kt"),
		docmodel.NewSourceFile("/proj/src/b/y.kt", "src/b/y.kt"),
	}
	p, err := b.Build(sources)
	require.NoError(t, err)

	require.Len(t, p.RootTasks, 2)
	for _, rt := range p.RootTasks {
		assert.Len(t, rt.DependsOn, len(p.DirectoryTasks))
	}
}

func TestDirectoryGroupsByDepth_DeepestFirst(t *testing.T) {
	b := NewBuilder("/proj", nil, stubAdapter{})
	sources := []*docmodel.SourceFile{
		docmodel.NewSourceFile("/proj/src/a/x.kt", "src/a/x.kt"),
		docmodel.NewSourceFile("/proj/src/b.kt", "src/b.kt"),
	}
	p, err := b.Build(sources)
	require.NoError(t, err)

	groups := p.DirectoryGroupsByDepth()
	require.NotEmpty(t, groups)
	firstGroupDepth := groups[0][0].Depth()
	for _, g := range groups {
		for _, task := range g {
			assert.Equal(t, firstGroupDepth, task.Depth(), "every task within a group shares its depth")
		}
		if len(groups) > 1 {
			firstGroupDepth--
		}
	}
}
