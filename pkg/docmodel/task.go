package docmodel

// TaskKind distinguishes the three task shapes in the execution plan.
type TaskKind string

const (
	TaskKindFile      TaskKind = "file"
	TaskKindDirectory TaskKind = "directory"
	TaskKindRoot      TaskKind = "root"
)

// Task is a unit of work in the execution plan (§3). Built via the fluent
// With* methods during plan construction; treated as read-only once the
// plan builder returns it.
type Task struct {
	ID         string
	Kind       TaskKind
	OutputPath string
	DependsOn  []string
	Prompts    PromptPair
	Metadata   map[string]any
}

// NewTask creates a task with no dependencies and an empty metadata bag.
func NewTask(id string, kind TaskKind, outputPath string, prompts PromptPair) *Task {
	return &Task{
		ID:         id,
		Kind:       kind,
		OutputPath: outputPath,
		Prompts:    prompts,
		Metadata:   make(map[string]any),
	}
}

// WithDependsOn appends dependency task IDs and returns the same task.
func (t *Task) WithDependsOn(ids ...string) *Task {
	t.DependsOn = append(t.DependsOn, ids...)
	return t
}

// WithMetadata sets a metadata key and returns the same task.
func (t *Task) WithMetadata(key string, value any) *Task {
	t.Metadata[key] = value
	return t
}

// Depth returns the "depth" metadata key used for directory tasks, or -1
// if unset.
func (t *Task) Depth() int {
	if v, ok := t.Metadata["depth"].(int); ok {
		return v
	}
	return -1
}

// ExecutionPlan is the fully materialized plan output of the plan builder (§3).
type ExecutionPlan struct {
	// FileTasks may be executed in any order.
	FileTasks []*Task
	// DirectoryTasks are sorted by depth descending (deepest first).
	DirectoryTasks []*Task
	// RootTasks execute sequentially, last in the plan.
	RootTasks []*Task
}

// IsEmpty reports whether the plan has no work at all.
func (p *ExecutionPlan) IsEmpty() bool {
	return len(p.FileTasks) == 0 && len(p.DirectoryTasks) == 0 && len(p.RootTasks) == 0
}

// DirectoryGroupsByDepth groups DirectoryTasks by depth, returning groups
// ordered deepest-first as required by Phase 2 (§4.4).
func (p *ExecutionPlan) DirectoryGroupsByDepth() [][]*Task {
	if len(p.DirectoryTasks) == 0 {
		return nil
	}
	var groups [][]*Task
	var current []*Task
	currentDepth := p.DirectoryTasks[0].Depth()
	for _, t := range p.DirectoryTasks {
		if t.Depth() != currentDepth {
			groups = append(groups, current)
			current = nil
			currentDepth = t.Depth()
		}
		current = append(current, t)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// UpdatePlan is the four-set classification produced by the incremental
// update planner (§3, §4.5).
type UpdatePlan struct {
	ToAnalyze           []string
	ToSkip              []string
	Orphans             []string
	AffectedDirectories []string
}
