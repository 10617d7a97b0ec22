// Package main provides the entry point for are, a documentation-generation
// engine that drives an external AI CLI (claude or gemini) over a project's
// source tree in three phases: per-file summaries, per-directory aggregates,
// and root-level synthesis documents.
//
// Usage:
//
//	are [flags] <command> [args]
//
// Commands:
//
//	generate        Run the full pipeline over every discovered source
//	update          Re-run only changed sources and their affected directories
//	clean           Remove engine-owned generated artifacts
//	dry-run         Report the execution plan and its cost estimate, no AI calls
//	summary         Show recent run-log entries
//	mcp             Start an MCP server exposing generate/update/summary over stdio
//	version         Show version information
//	help            Show this help
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/are/internal/config"
	"github.com/ternarybob/are/internal/discovery"
	"github.com/ternarybob/are/internal/engine"
	"github.com/ternarybob/are/internal/mcpserve"
	"github.com/ternarybob/are/internal/statusapi"
	"github.com/ternarybob/are/internal/watch"
	"github.com/ternarybob/are/pkg/docmodel"
)

var version = "dev"

var configPath string

func main() {
	args := os.Args[1:]
	command := ""
	cmdArgs := []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--config=") {
			configPath = strings.TrimPrefix(arg, "--config=")
		} else if arg == "--config" && i+1 < len(args) {
			configPath = args[i+1]
			i++
		} else if command == "" {
			command = arg
		} else {
			cmdArgs = append(cmdArgs, arg)
		}
	}

	if command == "" {
		command = "help"
	}

	var err error
	switch command {
	case "generate":
		err = cmdGenerate(cmdArgs)
	case "update":
		err = cmdUpdate(cmdArgs)
	case "clean":
		err = cmdClean(cmdArgs)
	case "dry-run":
		err = cmdDryRun(cmdArgs)
	case "summary":
		err = cmdSummary(cmdArgs)
	case "mcp":
		err = cmdMCP(cmdArgs)
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`are - AI-driven repository documentation generator

Usage:
  are [flags] <command> [args]

Commands:
  generate          Run the full pipeline over every discovered source
  update            Re-run only changed sources and their affected directories
  clean             Remove engine-owned generated artifacts
  dry-run           Report the execution plan and cost estimate, no AI calls
  summary           Show recent run-log entries
  mcp               Start an MCP server over stdio
  version           Show version information
  help              Show this help

Flags:
  --config PATH   Path to configuration file (default: $ARE_CONFIG, else are.toml in the working directory)

Command flags:
  update --watch                 Keep watching and re-run on settled file changes
  update --debounce-ms N         Debounce window for --watch (default 500)
  generate/update --status-addr  Serve a read-only SSE status endpoint, e.g. 127.0.0.1:4455
  summary --limit N              Limit the number of entries shown (default: all)
  summary --json                 Print the entries as JSON instead of a Markdown table

Examples:
  are generate
  are --config ./are.toml update --watch
  are generate --status-addr 127.0.0.1:4455
  are mcp`)
}

func cmdVersion() {
	fmt.Printf("are version %s\n", version)
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("ARE_CONFIG"); envPath != "" {
		return envPath
	}
	return "are.toml"
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func discoverSources(cfg *config.Config) ([]*docmodel.SourceFile, error) {
	return discovery.Walk(cfg.Project.Root, discovery.Options{})
}

// newStatusServer starts the optional status endpoint if addr is non-empty,
// returning a no-op Emit-capable server otherwise so callers never need a
// nil check.
func newStatusServer(ctx context.Context, addr string) (*statusapi.Server, error) {
	srv := statusapi.NewServer(addr)
	if addr == "" {
		return srv, nil
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("start status server: %w", err)
	}
	fmt.Printf("status endpoint listening on http://%s\n", addr)
	return srv, nil
}

func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	statusAddr := fs.String("status-addr", "", "address to serve the read-only status endpoint on, e.g. 127.0.0.1:4455")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status, err := newStatusServer(ctx, *statusAddr)
	if err != nil {
		return err
	}
	defer status.Stop()

	sources, err := discoverSources(cfg)
	if err != nil {
		return fmt.Errorf("discover sources: %w", err)
	}

	status.Emit(statusapi.NewEvent(statusapi.EventRunStarted).WithData("operation", "generate").WithData("files", len(sources)))
	result, err := eng.Generate(ctx, sources, nil)
	if err != nil {
		status.Emit(statusapi.NewEvent(statusapi.EventRunFailed).WithData("error", err.Error()))
		return err
	}
	status.Emit(statusapi.NewEvent(statusapi.EventRunCompleted).WithData("run_log_path", result.RunLogPath))

	fmt.Printf("processed %d file(s), %d failed, %d skipped; %d AI call(s); run log: %s\n",
		result.Summary.FilesProcessed, result.Summary.FilesFailed, result.Summary.FilesSkipped,
		result.Summary.TotalAICalls, result.RunLogPath)
	if result.Summary.ExitClass != 0 {
		os.Exit(result.Summary.ExitClass)
	}
	return nil
}

func cmdUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	watchMode := fs.Bool("watch", false, "keep watching and re-run update on settled file changes")
	debounceMs := fs.Int("debounce-ms", 500, "debounce window in milliseconds for --watch")
	statusAddr := fs.String("status-addr", "", "address to serve the read-only status endpoint on, e.g. 127.0.0.1:4455")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status, err := newStatusServer(ctx, *statusAddr)
	if err != nil {
		return err
	}
	defer status.Stop()

	lastExitClass := 0
	runOnce := func(ctx context.Context) error {
		sources, err := discoverSources(cfg)
		if err != nil {
			return fmt.Errorf("discover sources: %w", err)
		}
		status.Emit(statusapi.NewEvent(statusapi.EventRunStarted).WithData("operation", "update").WithData("files", len(sources)))
		result, cleanup, err := eng.Update(ctx, sources, nil)
		if err != nil {
			status.Emit(statusapi.NewEvent(statusapi.EventRunFailed).WithData("error", err.Error()))
			return err
		}
		status.Emit(statusapi.NewEvent(statusapi.EventRunCompleted).WithData("run_log_path", result.RunLogPath))
		removed := 0
		if cleanup != nil {
			removed = len(cleanup.Removed)
		}
		fmt.Printf("processed %d file(s), %d failed, %d skipped; removed %d orphan(s); run log: %s\n",
			result.Summary.FilesProcessed, result.Summary.FilesFailed, result.Summary.FilesSkipped,
			removed, result.RunLogPath)
		lastExitClass = result.Summary.ExitClass
		return nil
	}

	if !*watchMode {
		if err := runOnce(ctx); err != nil {
			return err
		}
		if lastExitClass != 0 {
			os.Exit(lastExitClass)
		}
		return nil
	}

	if err := runOnce(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	w, err := watch.New(watch.Options{Root: cfg.Project.Root, DebounceMs: *debounceMs, Logger: eng.Logger})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	fmt.Printf("watching %s for changes (debounce %dms); ctrl-c to stop\n", cfg.Project.Root, *debounceMs)
	return w.Run(ctx, func(ctx context.Context) error {
		return runOnce(ctx)
	})
}

func cmdClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	sources, err := discoverSources(cfg)
	if err != nil {
		return fmt.Errorf("discover sources: %w", err)
	}

	removed, err := eng.Clean(sources)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d artifact(s)\n", len(removed))
	for _, path := range removed {
		fmt.Println(" ", path)
	}
	return nil
}

func cmdDryRun(args []string) error {
	fs := flag.NewFlagSet("dry-run", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	sources, err := discoverSources(cfg)
	if err != nil {
		return fmt.Errorf("discover sources: %w", err)
	}

	report, err := eng.DryRun(sources)
	if err != nil {
		return err
	}
	fmt.Printf("files: %d  directories: %d  root targets: %d\n", report.FileTasks, report.DirectoryTasks, report.RootTasks)
	fmt.Printf("estimated AI calls: %d  estimated tokens: %d\n", report.EstimatedAICalls, report.EstimatedTokens)
	return nil
}

func cmdSummary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "maximum number of recent runs to show (0 = all)")
	asJSON := fs.Bool("json", false, "print the entries as JSON instead of a Markdown table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	entries, err := eng.Summary(*limit)
	if err != nil {
		return err
	}
	if *asJSON {
		raw, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}
	fmt.Print(engine.FormatSummaryMarkdown(entries))
	return nil
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	srv := mcpserve.NewServer(eng)
	return srv.ServeStdio()
}
