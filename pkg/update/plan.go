package update

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/are/pkg/docmodel"
)

// Classify compares sources against state and produces the four-set
// classification (§4.5): files whose content changed (or are new) go to
// ToAnalyze, unchanged files go to ToSkip, tracked paths no longer present
// among sources become Orphans, and every ancestor directory of a changed
// or orphaned path is collected into AffectedDirectories, deepest first.
func Classify(sources []*docmodel.SourceFile, state *State) *docmodel.UpdatePlan {
	plan := &docmodel.UpdatePlan{}

	current := make(map[string]bool, len(sources))
	for _, src := range sources {
		current[src.RelPath] = true
		if state.IsFileChanged(src.RelPath, src.ContentID()) {
			plan.ToAnalyze = append(plan.ToAnalyze, src.RelPath)
		} else {
			plan.ToSkip = append(plan.ToSkip, src.RelPath)
		}
	}

	for _, tracked := range state.Paths() {
		if !current[tracked] {
			plan.Orphans = append(plan.Orphans, tracked)
		}
	}

	sort.Strings(plan.ToAnalyze)
	sort.Strings(plan.ToSkip)
	sort.Strings(plan.Orphans)

	plan.AffectedDirectories = affectedDirectories(plan.ToAnalyze, plan.Orphans)
	return plan
}

// affectedDirectories walks the ancestor chain of every path in changed
// (deduping) up to and including the project root ".", returning them
// sorted deepest-first so a depth-grouped aggregation pass can pick them
// up directly.
func affectedDirectories(sets ...[]string) []string {
	seen := make(map[string]bool)
	var dirs []string

	addChain := func(relPath string) {
		dir := filepath.ToSlash(filepath.Dir(relPath))
		for {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
			if dir == "." {
				break
			}
			parent := filepath.ToSlash(filepath.Dir(dir))
			dir = parent
		}
	}

	for _, set := range sets {
		for _, p := range set {
			addChain(p)
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}

func depth(dir string) int {
	if dir == "." {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
