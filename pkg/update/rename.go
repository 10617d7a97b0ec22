package update

import (
	"strings"
)

// RenameThreshold is the minimum content similarity (§9: "rename-awareness
// is optional; a simple heuristic is acceptable") for an orphaned path to
// be treated as a rename of a newly-analyzed path rather than a deletion
// plus a fresh addition.
const RenameThreshold = 0.5

// Rename pairs an orphaned path with the new path it most likely became.
type Rename struct {
	From       string
	To         string
	Similarity float64
}

// DetectRenames compares each orphan's last-known content against each
// newly-analyzed file's current content and pairs them up when similarity
// clears RenameThreshold, picking the best match greedily by descending
// similarity. oldContent supplies each orphan's content as of the last run
// (e.g. loaded from its prior summary artifact); newContent supplies each
// candidate's current content.
func DetectRenames(orphans []string, oldContent map[string]string, candidates []string, newContent map[string]string) []Rename {
	var pairs []renamePair

	for _, orphan := range orphans {
		old, ok := oldContent[orphan]
		if !ok {
			continue
		}
		for _, candidate := range candidates {
			next, ok := newContent[candidate]
			if !ok {
				continue
			}
			sim := similarity(old, next)
			if sim >= RenameThreshold {
				pairs = append(pairs, renamePair{from: orphan, to: candidate, sim: sim})
			}
		}
	}

	// Greedily assign the highest-similarity pairs first, each path used once.
	sortPairsDesc(pairs)
	usedFrom := make(map[string]bool)
	usedTo := make(map[string]bool)
	var renames []Rename
	for _, p := range pairs {
		if usedFrom[p.from] || usedTo[p.to] {
			continue
		}
		usedFrom[p.from] = true
		usedTo[p.to] = true
		renames = append(renames, Rename{From: p.from, To: p.to, Similarity: p.sim})
	}
	return renames
}

type renamePair struct {
	from, to string
	sim      float64
}

func sortPairsDesc(pairs []renamePair) {
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].sim > pairs[j-1].sim; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
}

// similarity computes a line-level Jaccard similarity, a cheap heuristic
// that tolerates reformatting better than a raw byte diff without pulling
// in a full diff library for a best-effort signal.
func similarity(a, b string) float64 {
	la := lineSet(a)
	lb := lineSet(b)
	if len(la) == 0 && len(lb) == 0 {
		return 1
	}
	intersection := 0
	for line := range la {
		if lb[line] {
			intersection++
		}
	}
	union := len(la) + len(lb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func lineSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = true
		}
	}
	return set
}
