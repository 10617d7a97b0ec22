// Package plan builds an execution plan (§4.1) from a discovery result: the
// project root and an ordered list of source paths. File discovery itself
// is out of scope (§1); this package only turns an already-discovered file
// list into the three-phase task graph described in §3.
package plan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/are/pkg/docmodel"
)

// PromptAdapter supplies the system/user prompt pair for each task kind.
// Prompt template content itself is out of scope (§1); the plan builder
// only needs something that can produce a PromptPair per task.
type PromptAdapter interface {
	FilePrompts(src *docmodel.SourceFile) docmodel.PromptPair
	DirectoryPrompts(dirRelPath string, depth int) docmodel.PromptPair
	RootPrompts(target string) docmodel.PromptPair
}

// Builder turns discovered sources into a materialized ExecutionPlan.
type Builder struct {
	ProjectRoot      string
	RootTargets      []string
	Adapter          PromptAdapter
	ProjectStructure string
}

// NewBuilder constructs a plan builder for one project.
func NewBuilder(projectRoot string, rootTargets []string, adapter PromptAdapter) *Builder {
	return &Builder{
		ProjectRoot: projectRoot,
		RootTargets: rootTargets,
		Adapter:     adapter,
	}
}

// Build constructs the execution plan from a list of source files. Duplicate
// source paths are collapsed. The project root "." always gets a directory
// task, so an empty source list yields one root directory task plus one
// root task per RootTargets entry.
func (b *Builder) Build(sources []*docmodel.SourceFile) (*docmodel.ExecutionPlan, error) {
	dedup := make(map[string]*docmodel.SourceFile, len(sources))
	order := make([]string, 0, len(sources))
	for _, src := range sources {
		if _, ok := dedup[src.RelPath]; !ok {
			order = append(order, src.RelPath)
		}
		dedup[src.RelPath] = src
	}

	plan := &docmodel.ExecutionPlan{}

	// directoryChildren maps a directory's relative path to the relative
	// paths of sources directly within it.
	directoryChildren := make(map[string][]string)
	// allDirs is every ancestor directory (including root) that needs a
	// directory task, keyed by relative path ("." for the project root).
	allDirs := make(map[string]bool)
	allDirs["."] = true

	fileTaskIDs := make(map[string]string) // source rel path -> file task id

	for _, relPath := range order {
		src := dedup[relPath]
		dir := relDir(relPath)
		directoryChildren[dir] = append(directoryChildren[dir], relPath)
		for _, ancestor := range ancestorChain(dir) {
			allDirs[ancestor] = true
		}

		taskID := fmt.Sprintf("file:%s", relPath)
		fileTaskIDs[relPath] = taskID
		outputPath := docmodel.SummaryPath(relPath)
		prompts := b.Adapter.FilePrompts(src)
		task := docmodel.NewTask(taskID, docmodel.TaskKindFile, outputPath, prompts).
			WithMetadata("sourceRelPath", relPath)
		plan.FileTasks = append(plan.FileTasks, task)
	}

	// directoryChildDirs maps a directory to its immediate subdirectories
	// that are themselves in allDirs.
	directoryChildDirs := make(map[string][]string)
	for dir := range allDirs {
		if dir == "." {
			continue
		}
		parent := relDir(dir)
		directoryChildDirs[parent] = append(directoryChildDirs[parent], dir)
	}

	dirList := make([]string, 0, len(allDirs))
	for dir := range allDirs {
		dirList = append(dirList, dir)
	}
	sort.Slice(dirList, func(i, j int) bool {
		di, dj := depthOf(dirList[i]), depthOf(dirList[j])
		if di != dj {
			return di > dj // deepest first
		}
		return dirList[i] < dirList[j] // lexicographic tie-break
	})

	dirTaskIDs := make(map[string]string)
	for _, dir := range dirList {
		dirTaskIDs[dir] = fmt.Sprintf("dir:%s", dir)
	}

	for _, dir := range dirList {
		depth := depthOf(dir)
		taskID := dirTaskIDs[dir]
		prompts := b.Adapter.DirectoryPrompts(dir, depth)
		task := docmodel.NewTask(taskID, docmodel.TaskKindDirectory, aggregateOutputPath(dir), prompts).
			WithMetadata("depth", depth).
			WithMetadata("dirRelPath", dir).
			WithMetadata("childSourcePaths", append([]string(nil), directoryChildren[dir]...))

		for _, childSrc := range directoryChildren[dir] {
			task.WithDependsOn(fileTaskIDs[childSrc])
		}
		for _, childDir := range directoryChildDirs[dir] {
			task.WithDependsOn(dirTaskIDs[childDir])
		}

		plan.DirectoryTasks = append(plan.DirectoryTasks, task)
	}

	allDirTaskIDs := make([]string, 0, len(dirTaskIDs))
	for _, id := range dirTaskIDs {
		allDirTaskIDs = append(allDirTaskIDs, id)
	}
	sort.Strings(allDirTaskIDs)

	for _, target := range b.RootTargets {
		taskID := fmt.Sprintf("root:%s", target)
		prompts := b.Adapter.RootPrompts(target)
		task := docmodel.NewTask(taskID, docmodel.TaskKindRoot, rootOutputPath(target), prompts).
			WithMetadata("target", target).
			WithDependsOn(allDirTaskIDs...)
		plan.RootTasks = append(plan.RootTasks, task)
	}

	return plan, nil
}

// relDir returns the parent directory of a relative path, using "." for
// top-level files.
func relDir(relPath string) string {
	dir := filepath.Dir(relPath)
	if dir == "" {
		return "."
	}
	return dir
}

// ancestorChain returns dir and every ancestor up to and including ".".
func ancestorChain(dir string) []string {
	var chain []string
	for {
		chain = append(chain, dir)
		if dir == "." {
			break
		}
		parent := relDir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return chain
}

// depthOf returns the number of path segments between root ("." => 0) and dir.
func depthOf(dir string) int {
	if dir == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(dir), "/"))
}

func aggregateOutputPath(dir string) string {
	if dir == "." {
		return docmodel.AggregateFileName
	}
	return filepath.Join(dir, docmodel.AggregateFileName)
}

func rootOutputPath(target string) string {
	return fmt.Sprintf("ROOT.%s.md", target)
}
