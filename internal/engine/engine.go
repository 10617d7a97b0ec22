// Package engine composes config, backend selection, the plan builder, the
// AI-subprocess driver, the pipeline runner, the update planner, and the
// observability emitters into the operations a caller drives (§6):
// generate, update, clean, dry-run, and summary. cmd/are, the watch loop
// (internal/watch), and the MCP server (internal/mcpserve) all go through
// this one seam rather than wiring the pipeline themselves.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/are/internal/config"
	"github.com/ternarybob/are/internal/logger"
	"github.com/ternarybob/are/internal/prompts"
	"github.com/ternarybob/are/pkg/aiexec"
	"github.com/ternarybob/are/pkg/artifact"
	"github.com/ternarybob/are/pkg/backend"
	"github.com/ternarybob/are/pkg/docmodel"
	"github.com/ternarybob/are/pkg/observe"
	"github.com/ternarybob/are/pkg/plan"
	"github.com/ternarybob/are/pkg/pool"
	"github.com/ternarybob/are/pkg/runner"
	"github.com/ternarybob/are/pkg/update"

	"github.com/ternarybob/arbor"
)

// Engine binds one project configuration to its resolved backend registry
// and logger, ready to run any of the five operations.
type Engine struct {
	Config   *config.Config
	Logger   arbor.ILogger
	Registry *backend.Registry
}

// New initializes the shared logger singleton (§ ambient stack) and the
// backend registry for cfg.
func New(cfg *config.Config) *Engine {
	log := logger.SetupLogger(cfg)
	return &Engine{Config: cfg, Logger: log, Registry: newRegistry(cfg)}
}

// newRegistry builds the two bundled adapters, applying an explicit
// cli_path override to whichever one backend.name names.
func newRegistry(cfg *config.Config) *backend.Registry {
	claude := &backend.ClaudeCLI{}
	gemini := &backend.GeminiCLI{}
	if cfg.Backend.CLIPath != "" {
		switch cfg.Backend.Name {
		case "claude":
			claude.BinaryPath = cfg.Backend.CLIPath
		case "gemini":
			gemini.BinaryPath = cfg.Backend.CLIPath
		}
	}
	return backend.NewRegistry(claude, gemini)
}

// Result bundles a completed run's summary with the run-log path it was
// persisted under.
type Result struct {
	Summary    *docmodel.RunSummary
	RunLogPath string
}

// Generate runs the full three-phase pipeline over every discovered source
// (§6).
func (e *Engine) Generate(ctx context.Context, sources []*docmodel.SourceFile, validators []runner.Validator) (*Result, error) {
	return e.run(ctx, "generate", sources, nil, nil, validators)
}

// Update runs the incremental-update planner against the previous run's
// persisted state, restricts Phase 1 to the changed/new sources and Phase 2
// to their affected directories (§4.5, §6), then deletes orphaned artifacts
// and persists the refreshed state. Phase 3 always reruns: root synthesis
// has no per-directory restriction to apply.
func (e *Engine) Update(ctx context.Context, sources []*docmodel.SourceFile, validators []runner.Validator) (*Result, *update.CleanupResult, error) {
	dataDir := e.Config.DataDirPath()
	state, err := update.LoadState(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load update state: %w", err)
	}
	if len(state.Paths()) == 0 {
		state = e.bootstrapState(sources)
	}

	for _, src := range sources {
		if _, err := src.Load(); err != nil {
			return nil, nil, fmt.Errorf("load source %s: %w", src.RelPath, err)
		}
	}

	uplan := update.Classify(sources, state)

	skip := make(map[string]bool, len(uplan.ToSkip))
	for _, relPath := range uplan.ToSkip {
		skip[fmt.Sprintf("file:%s", relPath)] = true
	}
	restrict := make(map[string]bool, len(uplan.AffectedDirectories))
	for _, dir := range uplan.AffectedDirectories {
		restrict[fmt.Sprintf("dir:%s", dir)] = true
	}

	result, err := e.run(ctx, "update", sources, skip, restrict, validators)
	if err != nil {
		return nil, nil, err
	}

	cleanup := update.DeleteOrphans(e.Config.Project.Root, uplan.Orphans, state)

	bySource := make(map[string]*docmodel.SourceFile, len(sources))
	for _, src := range sources {
		bySource[src.RelPath] = src
	}
	for _, relPath := range uplan.ToAnalyze {
		if src, ok := bySource[relPath]; ok {
			state.Record(relPath, src.ContentID())
		}
	}

	if err := state.SaveState(dataDir); err != nil {
		return result, &cleanup, fmt.Errorf("save update state: %w", err)
	}
	return result, &cleanup, nil
}

// bootstrapState recovers a usable state when no state file has been
// persisted yet but summary artifacts already exist on disk (§4.5).
func (e *Engine) bootstrapState(sources []*docmodel.SourceFile) *update.State {
	relPaths := make([]string, 0, len(sources))
	for _, s := range sources {
		relPaths = append(relPaths, s.RelPath)
	}
	bootstrapped, err := update.BootstrapFromArtifacts(e.Config.Project.Root, relPaths)
	if err != nil || len(bootstrapped.Paths()) == 0 {
		return update.NewState()
	}
	return bootstrapped
}

// Clean removes every artifact the engine owns outright — per-file
// summaries, annex companions, root artifacts — plus every directory
// aggregate that still carries the generator marker. An aggregate a user
// has edited (and its preserved ".local." sibling) is left untouched
// (§4.6, §6).
func (e *Engine) Clean(sources []*docmodel.SourceFile) ([]string, error) {
	execPlan, err := e.buildPlan(sources)
	if err != nil {
		return nil, err
	}

	var removed []string
	remove := func(relOutPath string) {
		full := filepath.Join(e.Config.Project.Root, relOutPath)
		if err := os.Remove(full); err == nil {
			removed = append(removed, full)
		}
	}

	for _, t := range execPlan.FileTasks {
		remove(t.OutputPath)
		annex := docmodel.AnnexPath(filepath.Join(e.Config.Project.Root, t.OutputPath))
		if err := os.Remove(annex); err == nil {
			removed = append(removed, annex)
		}
	}
	for _, t := range execPlan.DirectoryTasks {
		full := filepath.Join(e.Config.Project.Root, t.OutputPath)
		if artifact.HasGeneratorMarker(full) {
			remove(t.OutputPath)
		}
	}
	for _, t := range execPlan.RootTasks {
		remove(t.OutputPath)
	}

	return removed, nil
}

// DryRun builds the plan and reports its cost estimate without invoking any
// backend (§6).
func (e *Engine) DryRun(sources []*docmodel.SourceFile) (*runner.DryRunReport, error) {
	execPlan, err := e.buildPlan(sources)
	if err != nil {
		return nil, err
	}
	report := runner.Estimate(execPlan)
	return &report, nil
}

// Summary reads the persisted run logs, most recent limit entries
// (0 = all), for the run-log summary supplement (S4).
func (e *Engine) Summary(limit int) ([]runner.RunLogEntry, error) {
	entries, err := runner.ReadRunLogs(filepath.Join(e.Config.DataDirPath(), "runs"))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// buildPlan constructs the execution plan for sources using the default
// prompt adapter, shared by every operation that needs the task graph
// without running it.
func (e *Engine) buildPlan(sources []*docmodel.SourceFile) (*docmodel.ExecutionPlan, error) {
	adapter := prompts.Default{ProjectName: filepath.Base(e.Config.Project.Root)}
	builder := plan.NewBuilder(e.Config.Project.Root, []string(e.Config.Project.RootTargets), adapter)
	execPlan, err := builder.Build(sources)
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}
	return execPlan, nil
}

// run wires a plan, driver, and observability emitters together for one
// invocation of the pipeline runner, shared by Generate and Update.
func (e *Engine) run(
	ctx context.Context,
	operation string,
	sources []*docmodel.SourceFile,
	skipFiles, restrictDirs map[string]bool,
	validators []runner.Validator,
) (*Result, error) {
	started := time.Now()

	adapter, err := e.Registry.Select(e.Config.Backend.Name)
	if err != nil {
		return nil, err
	}

	execPlan, err := e.buildPlan(sources)
	if err != nil {
		return nil, err
	}

	telemetry := runner.NewTelemetryAccumulator()
	driverCfg := aiexec.Config{
		TimeoutMs:      e.Config.Backend.TimeoutMs,
		MaxStdoutBytes: e.Config.Resources.MaxStdoutBytes,
		Caps: backend.ResourceCaps{
			HeapCapMB:              e.Config.Resources.HeapCapMB,
			ThreadPoolCap:          e.Config.Resources.ThreadPoolCap,
			DisableBackgroundTasks: e.Config.Resources.DisableBackgroundTasks,
		},
		CallOpts: backend.CallOptions{
			Model:     e.Config.Backend.Model,
			ExtraArgs: []string(e.Config.Backend.ExtraArgs),
		},
		Backoff: aiexec.BackoffConfig{
			BaseDelayMs: e.Config.Retry.BaseDelayMs,
			CapDelayMs:  e.Config.Retry.CapDelayMs,
			Multiplier:  e.Config.Retry.Multiplier,
			JitterMs:    e.Config.Retry.JitterMs,
			MaxRetries:  e.Config.Retry.MaxRetries,
		},
		RateLimitPerHr: e.Config.Backend.RateLimitPerHour,
	}
	driver := aiexec.NewDriver(adapter, driverCfg, telemetry)

	dataDir := e.Config.DataDirPath()
	runID := runner.NewRunID(started)

	emitters := runner.Emitters{Tracer: pool.NoopTracer{}}
	if e.Config.Engine.TraceEnabled {
		if tracer, err := observe.NewTraceEmitter(filepath.Join(dataDir, "trace", runID+".ndjson")); err == nil {
			emitters.Tracer = tracer
			defer tracer.Finalize()
		} else {
			e.Logger.Warn().Err(err).Msg("failed to open trace emitter, tracing disabled for this run")
		}
	}

	totalTasks := len(execPlan.FileTasks) + len(execPlan.DirectoryTasks) + len(execPlan.RootTasks)
	if progress, err := observe.NewProgressEmitter(filepath.Join(dataDir, "progress.log"), nil, totalTasks); err == nil {
		emitters.Progress = progress
		defer progress.Finalize()
	} else {
		e.Logger.Warn().Err(err).Msg("failed to open progress emitter")
	}

	if checkbox, err := observe.NewPlanCheckboxTracker(filepath.Join(dataDir, "PLAN.md"), fmt.Sprintf("are %s", operation), planLabels(execPlan)); err == nil {
		emitters.Checkbox = checkbox
		defer checkbox.Close()
	} else {
		e.Logger.Warn().Err(err).Msg("failed to open plan checkbox tracker")
	}

	r := runner.NewRunner(driver)
	summary, err := r.Run(ctx, execPlan, sources, runner.Options{
		ProjectRoot:            e.Config.Project.Root,
		Concurrency:            e.Config.ResolveConcurrency(),
		FailFast:               e.Config.Engine.FailFast,
		Emitters:               emitters,
		Validators:             validators,
		ValidatorConcurrency:   e.Config.Engine.ValidatorConcurrency,
		Logger:                 e.Logger,
		Telemetry:              telemetry,
		SkipFileTasks:          skipFiles,
		RestrictDirectoryTasks: restrictDirs,
	})
	if err != nil {
		return nil, err
	}

	entry := runner.RunLogEntry{RunID: runID, Operation: operation, StartedAt: started, Summary: *summary}
	runLogPath, logErr := runner.WriteRunLog(filepath.Join(dataDir, "runs"), entry, e.Config.Artifacts.RunLogRetain)
	if logErr != nil {
		e.Logger.Warn().Err(logErr).Msg("failed to persist run log")
	}

	return &Result{Summary: summary, RunLogPath: runLogPath}, nil
}

// planLabels lists every task ID in the plan's natural phase order, used to
// seed the checkbox tracker before any task has run.
func planLabels(p *docmodel.ExecutionPlan) []string {
	labels := make([]string, 0, len(p.FileTasks)+len(p.DirectoryTasks)+len(p.RootTasks))
	for _, t := range p.FileTasks {
		labels = append(labels, t.ID)
	}
	for _, t := range p.DirectoryTasks {
		labels = append(labels, t.ID)
	}
	for _, t := range p.RootTasks {
		labels = append(labels, t.ID)
	}
	return labels
}
