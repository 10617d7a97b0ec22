// Package runner composes the plan, pool, AI-subprocess driver, and writers
// into the three-phase execution pipeline (§4.4): Phase 1 file analysis,
// Phase 2 depth-grouped directory aggregation, Phase 3 sequential root
// synthesis, then finalization into a RunSummary. Grounded structurally on
// pkg/orchestra/orchestra.go's ExecuteWorkflow phase sequencing, reshaped
// from a single-threaded agent loop into pool-driven concurrent phases.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/are/pkg/artifact"
	"github.com/ternarybob/are/pkg/backend"
	"github.com/ternarybob/are/pkg/docmodel"
	"github.com/ternarybob/are/pkg/observe"
	"github.com/ternarybob/are/pkg/pool"

	"github.com/ternarybob/arbor"
)

// Caller is the subset of *aiexec.Driver the pipeline runner depends on,
// narrowed so tests can substitute a fake without spawning real processes.
type Caller interface {
	Call(ctx context.Context, taskID string, prompts docmodel.PromptPair, filesRead []docmodel.FileRef) (*backend.Response, error)
}

// Validator is a pluggable quality-review collaborator invoked after Phase 3
// finalization (Supplemented Feature S5). The core ships no bundled
// implementations; it only defines the seam a caller can wire in.
type Validator interface {
	Name() string
	Validate(ctx context.Context, projectRoot string, summary *docmodel.RunSummary) ([]docmodel.ValidatorFinding, error)
}

// Emitters bundles the optional observability sinks a run can attach. A nil
// Tracer falls back to a pool.NoopTracer; a nil Progress/Checkbox simply
// skips that sink.
type Emitters struct {
	Tracer   pool.Tracer
	Progress *observe.ProgressEmitter
	Checkbox *observe.PlanCheckboxTracker
}

// Options configures a single pipeline run.
type Options struct {
	ProjectRoot          string
	Concurrency          int
	FailFast             bool
	Emitters             Emitters
	Validators           []Validator
	ValidatorConcurrency int
	Logger               arbor.ILogger
	// Telemetry must be the same accumulator passed to aiexec.NewDriver for
	// this run's Caller, so the runner can read back what the driver
	// recorded when building the RunSummary.
	Telemetry *TelemetryAccumulator
	// SkipFileTasks marks file-task IDs that the incremental-update planner
	// classified as toSkip (§4.5): their artifact on disk is assumed
	// current, so Phase 1 never invokes them, but dependent directory tasks
	// still treat them as satisfied. Nil means "run every file task" (the
	// plain generate operation).
	SkipFileTasks map[string]bool
	// RestrictDirectoryTasks, when non-nil, limits Phase 2 dispatch to this
	// set of directory-task IDs — the update operation's affectedDirectories
	// (§4.5, §6). Directory tasks outside the set are treated as already
	// satisfied from a prior run without being re-invoked.
	RestrictDirectoryTasks map[string]bool
}

// Runner executes an already-built ExecutionPlan against a Caller.
type Runner struct {
	Caller Caller
}

// NewRunner constructs a pipeline runner bound to one AI-subprocess caller.
func NewRunner(caller Caller) *Runner {
	return &Runner{Caller: caller}
}

// Run executes Phase 1, Phase 2, and Phase 3 against plan, finalizing into a
// RunSummary (§4.4). sources must contain one *docmodel.SourceFile per file
// task, keyed by the "sourceRelPath" metadata the plan builder attaches.
func (r *Runner) Run(ctx context.Context, plan *docmodel.ExecutionPlan, sources []*docmodel.SourceFile, opts Options) (*docmodel.RunSummary, error) {
	start := time.Now()

	tracer := opts.Emitters.Tracer
	if tracer == nil {
		tracer = pool.NoopTracer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}

	sourceByRelPath := make(map[string]*docmodel.SourceFile, len(sources))
	for _, s := range sources {
		sourceByRelPath[s.RelPath] = s
	}

	outputPaths := make(map[string]string, len(plan.FileTasks)+len(plan.DirectoryTasks)+len(plan.RootTasks))
	for _, t := range plan.FileTasks {
		outputPaths[t.ID] = t.OutputPath
	}
	for _, t := range plan.DirectoryTasks {
		outputPaths[t.ID] = t.OutputPath
	}
	for _, t := range plan.RootTasks {
		outputPaths[t.ID] = t.OutputPath
	}

	oldArtifacts := preloadOldArtifacts(plan, opts.ProjectRoot)
	stats := newCallStats()
	produced := &sync.Map{}

	var totalSucceeded, totalFailed int
	var filesProcessed, filesFailed, filesSkipped int
	var taskFailures []docmodel.TaskFailure

	recordFailure := func(label string, err error, skipped bool) {
		kind := "skipped"
		if !skipped {
			kind = failureKind(err)
		}
		taskFailures = append(taskFailures, docmodel.TaskFailure{TaskID: label, Kind: kind, Message: err.Error()})
	}

	recordCompletion := func(label string, duration time.Duration, success, skipped bool) {
		if opts.Emitters.Progress != nil {
			opts.Emitters.Progress.TaskDone(label, duration, success)
		}
		if opts.Emitters.Checkbox != nil && success {
			opts.Emitters.Checkbox.MarkDone(label)
		}
		if success {
			totalSucceeded++
		} else if !skipped {
			totalFailed++
		}
	}

	// Phase 1 — file analysis. Tasks the update planner classified as
	// toSkip (§4.5) are never dispatched; they're marked produced directly
	// so dependent directory tasks still see them as satisfied.
	var runTasks []*docmodel.Task
	for _, t := range plan.FileTasks {
		if opts.SkipFileTasks != nil && opts.SkipFileTasks[t.ID] {
			produced.Store(t.ID, true)
			filesSkipped++
			continue
		}
		runTasks = append(runTasks, t)
	}
	fileFuncs := make([]pool.TaskFunc, len(runTasks))
	fileLabels := make([]string, len(runTasks))
	for i, t := range runTasks {
		relPath, _ := t.Metadata["sourceRelPath"].(string)
		src := sourceByRelPath[relPath]
		fileFuncs[i] = r.fileTaskFunc(t, src, oldArtifacts, opts.ProjectRoot, produced, stats, logger)
		fileLabels[i] = t.ID
	}
	fileSettlements := pool.Run(ctx, fileFuncs, pool.Options{
		Concurrency: opts.Concurrency, FailFast: opts.FailFast, Phase: "phase1:file", Tracer: tracer, Labels: fileLabels,
	}, nil)
	for i, s := range fileSettlements {
		success := s.Err == nil
		recordCompletion(fileLabels[i], s.Duration, success, s.Skipped)
		if success {
			filesProcessed++
		} else if s.Skipped {
			filesSkipped++
			recordFailure(fileLabels[i], s.Err, true)
		} else {
			filesFailed++
			logger.Warn().Str("task", fileLabels[i]).Err(s.Err).Msg("file task failed")
			recordFailure(fileLabels[i], s.Err, false)
		}
	}

	// Phase 2 — directory aggregation, depth groups sequential, parallel
	// within. When RestrictDirectoryTasks is set (update operation, §6),
	// directory tasks outside it are assumed current from a prior run and
	// marked produced without being re-invoked.
	for _, group := range plan.DirectoryGroupsByDepth() {
		var runGroup []*docmodel.Task
		for _, t := range group {
			if opts.RestrictDirectoryTasks != nil && !opts.RestrictDirectoryTasks[t.ID] {
				produced.Store(t.ID, true)
				continue
			}
			runGroup = append(runGroup, t)
		}
		if len(runGroup) == 0 {
			continue
		}
		funcs := make([]pool.TaskFunc, len(runGroup))
		labels := make([]string, len(runGroup))
		for i, t := range runGroup {
			funcs[i] = r.dirTaskFunc(t, outputPaths, produced, opts.ProjectRoot, stats)
			labels[i] = t.ID
		}
		settlements := pool.Run(ctx, funcs, pool.Options{
			Concurrency: opts.Concurrency, FailFast: opts.FailFast, Phase: "phase2:directory", Tracer: tracer, Labels: labels,
		}, nil)
		for i, s := range settlements {
			success := s.Err == nil
			recordCompletion(labels[i], s.Duration, success, s.Skipped)
			if success {
				produced.Store(runGroup[i].ID, true)
			} else if !s.Skipped {
				logger.Warn().Str("task", labels[i]).Err(s.Err).Msg("directory task failed")
				recordFailure(labels[i], s.Err, false)
			} else {
				recordFailure(labels[i], s.Err, true)
			}
		}
	}

	// Phase 3 — root synthesis, strictly sequential.
	rootFuncs := make([]pool.TaskFunc, len(plan.RootTasks))
	rootLabels := make([]string, len(plan.RootTasks))
	for i, t := range plan.RootTasks {
		rootFuncs[i] = r.rootTaskFunc(t, outputPaths, produced, opts.ProjectRoot, stats)
		rootLabels[i] = t.ID
	}
	rootSettlements := pool.Run(ctx, rootFuncs, pool.Options{
		Concurrency: 1, FailFast: opts.FailFast, Phase: "phase3:root", Tracer: tracer, Labels: rootLabels,
	}, nil)
	for i, s := range rootSettlements {
		success := s.Err == nil
		recordCompletion(rootLabels[i], s.Duration, success, s.Skipped)
		if !success {
			if !s.Skipped {
				logger.Warn().Str("task", rootLabels[i]).Err(s.Err).Msg("root task failed")
			}
			recordFailure(rootLabels[i], s.Err, s.Skipped)
		}
	}

	summary := &docmodel.RunSummary{
		FilesProcessed:      filesProcessed,
		FilesFailed:         filesFailed,
		FilesSkipped:        filesSkipped,
		TotalAICalls:        stats.totalCalls,
		InputTokens:         stats.inputTokens,
		OutputTokens:        stats.outputTokens,
		CacheReadTokens:     stats.cacheReadTokens,
		CacheCreationTokens: stats.cacheCreationTokens,
		Duration:            time.Since(start),
		UniqueFilesRead:     stats.uniqueFilesRead(),
		ErrorCount:          totalFailed,
		TaskFailures:        taskFailures,
	}
	if opts.Telemetry != nil {
		summary.RetryCount = opts.Telemetry.retryCount()
	}
	summary.ExitClass = exitClass(totalSucceeded, totalFailed)

	if len(opts.Validators) > 0 {
		summary.ValidatorFindings = r.runValidators(ctx, opts.ProjectRoot, summary, opts.Validators, opts.ValidatorConcurrency, tracer)
	}

	return summary, nil
}

// exitClass implements §7's run-exit-class rule.
func exitClass(succeeded, failed int) int {
	if failed == 0 {
		return 0
	}
	if succeeded == 0 {
		return 2
	}
	return 1
}

// preloadOldArtifacts reads every existing summary artifact once before
// Phase 1 dispatch begins (§4.4), so inconsistency detection can compare
// old vs. new content identifiers.
func preloadOldArtifacts(plan *docmodel.ExecutionPlan, projectRoot string) map[string]*docmodel.SummaryArtifact {
	old := make(map[string]*docmodel.SummaryArtifact, len(plan.FileTasks))
	for _, t := range plan.FileTasks {
		relPath, _ := t.Metadata["sourceRelPath"].(string)
		a, err := artifact.ReadSummary(filepath.Join(projectRoot, t.OutputPath))
		if err != nil {
			continue
		}
		old[relPath] = a
	}
	return old
}

// fileTaskFunc builds the Phase 1 closure for one file task (§4.4): load
// source bytes, call the AI driver, write the summary artifact with the
// recomputed content identifier.
func (r *Runner) fileTaskFunc(
	t *docmodel.Task,
	src *docmodel.SourceFile,
	oldArtifacts map[string]*docmodel.SummaryArtifact,
	projectRoot string,
	produced *sync.Map,
	stats *callStats,
	logger arbor.ILogger,
) pool.TaskFunc {
	return func(ctx context.Context) (any, error) {
		if src == nil {
			return nil, fmt.Errorf("%s: no source file bound to task", t.ID)
		}
		if _, err := src.Load(); err != nil {
			return nil, fmt.Errorf("load source: %w", err)
		}

		if old, ok := oldArtifacts[src.RelPath]; ok && old.ContentID != src.ContentID() {
			logger.Debug().Str("path", src.RelPath).Msg("source content changed since last summary artifact")
		}

		filesRead := []docmodel.FileRef{{Path: src.RelPath, Size: src.Size()}}
		resp, err := r.Caller.Call(ctx, t.ID, t.Prompts, filesRead)
		if err != nil {
			return nil, err
		}
		stats.recordCall(resp)
		stats.recordFilesRead(filesRead)

		summary := &docmodel.SummaryArtifact{
			SourceRelPath: src.RelPath,
			GeneratedAt:   time.Now(),
			ContentID:     src.ContentID(),
			Body:          resp.Text,
		}
		outPath := filepath.Join(projectRoot, t.OutputPath)
		if err := artifact.WriteSummary(outPath, summary); err != nil {
			return nil, &ErrWrite{TaskID: t.ID, Err: err}
		}
		produced.Store(t.ID, true)
		return summary, nil
	}
}

// dirTaskFunc builds the Phase 2 closure for one directory task (§4.4):
// verify every declared dependency produced an artifact, read the child
// summary/aggregate bodies, call the driver, write the aggregate artifact.
//
// The plan builder constructs Prompts before any child artifact exists
// (plan construction precedes Phase 1 entirely), so the base prompt pair is
// a template; this closure appends the freshly-read child content to the
// user prompt at execution time, when it actually exists.
func (r *Runner) dirTaskFunc(t *docmodel.Task, outputPaths map[string]string, produced *sync.Map, projectRoot string, stats *callStats) pool.TaskFunc {
	return func(ctx context.Context) (any, error) {
		var missing []string
		var childBodies []string
		for _, depID := range t.DependsOn {
			if _, ok := produced.Load(depID); !ok {
				missing = append(missing, depID)
				continue
			}
			outPath, ok := outputPaths[depID]
			if !ok {
				missing = append(missing, depID)
				continue
			}
			raw, err := os.ReadFile(filepath.Join(projectRoot, outPath))
			if err != nil {
				missing = append(missing, depID)
				continue
			}
			childBodies = append(childBodies, string(raw))
		}
		if len(missing) > 0 {
			return nil, &ErrDependencyMissing{TaskID: t.ID, Missing: missing}
		}

		prompts := t.Prompts
		if len(childBodies) > 0 {
			prompts.User = prompts.User + "\n\n" + strings.Join(childBodies, "\n\n---\n\n")
		}

		resp, err := r.Caller.Call(ctx, t.ID, prompts, nil)
		if err != nil {
			return nil, err
		}
		stats.recordCall(resp)

		dirRelPath, _ := t.Metadata["dirRelPath"].(string)
		aggregate := &docmodel.AggregateArtifact{DirRelPath: dirRelPath, Body: resp.Text}
		outPath := filepath.Join(projectRoot, t.OutputPath)
		if err := artifact.WriteAggregate(outPath, aggregate); err != nil {
			return nil, &ErrWrite{TaskID: t.ID, Err: err}
		}
		return aggregate, nil
	}
}

// rootTaskFunc builds the Phase 3 closure for one root task (§4.4): read
// the full aggregate hierarchy, call the driver, write the root artifact.
func (r *Runner) rootTaskFunc(t *docmodel.Task, outputPaths map[string]string, produced *sync.Map, projectRoot string, stats *callStats) pool.TaskFunc {
	return func(ctx context.Context) (any, error) {
		var missing []string
		var bodies []string
		for _, depID := range t.DependsOn {
			if _, ok := produced.Load(depID); !ok {
				missing = append(missing, depID)
				continue
			}
			outPath, ok := outputPaths[depID]
			if !ok {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(projectRoot, outPath))
			if err != nil {
				missing = append(missing, depID)
				continue
			}
			bodies = append(bodies, string(raw))
		}
		if len(missing) > 0 {
			return nil, &ErrDependencyMissing{TaskID: t.ID, Missing: missing}
		}

		prompts := t.Prompts
		if len(bodies) > 0 {
			prompts.User = prompts.User + "\n\n" + strings.Join(bodies, "\n\n---\n\n")
		}

		resp, err := r.Caller.Call(ctx, t.ID, prompts, nil)
		if err != nil {
			return nil, err
		}
		stats.recordCall(resp)

		target, _ := t.Metadata["target"].(string)
		root := &docmodel.RootArtifact{Target: target, Body: resp.Text}
		outPath := filepath.Join(projectRoot, t.OutputPath)
		if err := artifact.WriteRoot(outPath, root); err != nil {
			return nil, &ErrWrite{TaskID: t.ID, Err: err}
		}
		return root, nil
	}
}

// runValidators invokes every configured validator concurrently at the
// configured concurrency (default 10, per §4.4), collecting every finding.
// A validator error is logged into the finding list rather than aborting
// finalization — validators are an optional, best-effort collaborator.
func (r *Runner) runValidators(ctx context.Context, projectRoot string, summary *docmodel.RunSummary, validators []Validator, concurrency int, tracer pool.Tracer) []docmodel.ValidatorFinding {
	if concurrency <= 0 {
		concurrency = 10
	}
	funcs := make([]pool.TaskFunc, len(validators))
	labels := make([]string, len(validators))
	for i, v := range validators {
		v := v
		funcs[i] = func(ctx context.Context) (any, error) {
			return v.Validate(ctx, projectRoot, summary)
		}
		labels[i] = v.Name()
	}
	settlements := pool.Run(ctx, funcs, pool.Options{
		Concurrency: concurrency, FailFast: false, Phase: "validate", Tracer: tracer, Labels: labels,
	}, nil)

	var findings []docmodel.ValidatorFinding
	for i, s := range settlements {
		if s.Err != nil {
			findings = append(findings, docmodel.ValidatorFinding{
				Validator: labels[i], Passed: false, Message: s.Err.Error(),
			})
			continue
		}
		if fs, ok := s.Value.([]docmodel.ValidatorFinding); ok {
			findings = append(findings, fs...)
		}
	}
	return findings
}
