package observe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// checkboxItem is one tracked task's rendered line in the plan file.
type checkboxItem struct {
	label string
	done  bool
}

// PlanCheckboxTracker maintains a Markdown file where each task is a
// checkbox, rewritten through the shared write queue on every completion so
// concurrent workers never interleave a partial rewrite (§4.7).
type PlanCheckboxTracker struct {
	queue *writeQueue
	path  string
	title string
	items []checkboxItem
	index map[string]int
}

// NewPlanCheckboxTracker creates a tracker for the given ordered task
// labels and writes the initial all-unchecked file.
func NewPlanCheckboxTracker(path, title string, labels []string) (*PlanCheckboxTracker, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	items := make([]checkboxItem, len(labels))
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		items[i] = checkboxItem{label: label}
		index[label] = i
	}
	t := &PlanCheckboxTracker{queue: newWriteQueue(), path: path, title: title, items: items, index: index}
	t.queue.enqueue(t.writeFile)
	return t, nil
}

// MarkDone ticks label's checkbox and rewrites the file.
func (t *PlanCheckboxTracker) MarkDone(label string) {
	t.queue.enqueue(func() {
		if idx, ok := t.index[label]; ok {
			t.items[idx].done = true
		}
		t.writeFile()
	})
}

func (t *PlanCheckboxTracker) writeFile() {
	var b strings.Builder
	if t.title != "" {
		fmt.Fprintf(&b, "# %s\n\n", t.title)
	}
	for _, it := range t.items {
		box := "[ ]"
		if it.done {
			box = "[x]"
		}
		fmt.Fprintf(&b, "- %s %s\n", box, it.label)
	}
	_ = os.WriteFile(t.path, []byte(b.String()), 0o644) // swallowed: non-critical (§7)
}

// Close flushes any pending rewrites.
func (t *PlanCheckboxTracker) Close() {
	t.queue.close()
}
