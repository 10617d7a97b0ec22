// Package config provides configuration management for the are engine.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shirou/gopsutil/v4/mem"
)

// Config is the root configuration for a generation/update run.
type Config struct {
	Project   ProjectConfig  `toml:"project"`
	Engine    EngineConfig   `toml:"engine"`
	Backend   BackendConfig  `toml:"backend"`
	Resources ResourceConfig `toml:"resources"`
	Retry     RetryConfig    `toml:"retry"`
	Artifacts ArtifactConfig `toml:"artifacts"`
	Logging   LoggingConfig  `toml:"logging"`
}

// ProjectConfig describes the project being documented.
type ProjectConfig struct {
	Root        string      `toml:"root"`
	RootTargets StringSlice `toml:"root_targets"`
}

// EngineConfig controls pipeline-wide behavior.
type EngineConfig struct {
	Concurrency          int  `toml:"concurrency"` // 0 = auto-size, see ResolveConcurrency
	FailFast             bool `toml:"fail_fast"`
	TraceEnabled         bool `toml:"trace_enabled"`
	ValidatorsEnabled    bool `toml:"validators_enabled"`
	ValidatorConcurrency int  `toml:"validator_concurrency"`
}

// BackendConfig selects and configures the AI-CLI backend adapter.
type BackendConfig struct {
	Name             string      `toml:"name"` // "claude", "gemini", or "" for auto-detect
	CLIPath          string      `toml:"cli_path"`
	TimeoutMs        int         `toml:"timeout_ms"`
	ExtraArgs        StringSlice `toml:"extra_args"`
	Model            string      `toml:"model"`
	RateLimitPerHour int         `toml:"rate_limit_per_hour"`
}

// ResourceConfig bounds the AI subprocess's resource footprint.
type ResourceConfig struct {
	HeapCapMB              int   `toml:"heap_cap_mb"`
	ThreadPoolCap          int   `toml:"thread_pool_cap"`
	DisableBackgroundTasks bool  `toml:"disable_background_tasks"`
	MaxStdoutBytes         int64 `toml:"max_stdout_bytes"`
}

// RetryConfig controls the subprocess driver's backoff schedule.
type RetryConfig struct {
	BaseDelayMs int     `toml:"base_delay_ms"`
	CapDelayMs  int     `toml:"cap_delay_ms"`
	Multiplier  float64 `toml:"multiplier"`
	JitterMs    int     `toml:"jitter_ms"`
	MaxRetries  int     `toml:"max_retries"`
}

// ArtifactConfig controls where run-scoped artifacts live and how long they're kept.
type ArtifactConfig struct {
	DataDir       string `toml:"data_dir"` // relative to project root, default ".are"
	RunLogRetain  int    `toml:"run_log_retain"`
	TraceRetain   int    `toml:"trace_retain"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string      `toml:"level"`
	Format     string      `toml:"format"`
	Output     StringSlice `toml:"output"`
	TimeFormat string      `toml:"time_format"`
	MaxSizeMB  int         `toml:"max_size_mb"`
	MaxBackups int         `toml:"max_backups"`
	MaxAgeDays int         `toml:"max_age_days"`
	Compress   bool        `toml:"compress"`
}

// StringSlice unmarshals from either a scalar string or a TOML array.
type StringSlice []string

// UnmarshalTOML implements toml.Unmarshaler for flexible config parsing.
func (s *StringSlice) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*s = []string{v}
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string in array, got %T", item)
			}
			result[i] = str
		}
		*s = result
	default:
		return fmt.Errorf("expected string or array, got %T", data)
	}
	return nil
}

// DefaultConfig returns the default configuration with all values set.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Root:        ".",
			RootTargets: StringSlice{"claude"},
		},
		Engine: EngineConfig{
			Concurrency:          0,
			FailFast:             false,
			TraceEnabled:         false,
			ValidatorsEnabled:    false,
			ValidatorConcurrency: 10,
		},
		Backend: BackendConfig{
			Name:             "",
			TimeoutMs:        120_000,
			RateLimitPerHour: 600,
		},
		Resources: ResourceConfig{
			HeapCapMB:              512,
			ThreadPoolCap:          4,
			DisableBackgroundTasks: true,
			MaxStdoutBytes:         10 * 1024 * 1024,
		},
		Retry: RetryConfig{
			BaseDelayMs: 1000,
			CapDelayMs:  8000,
			Multiplier:  2.0,
			JitterMs:    500,
			MaxRetries:  3,
		},
		Artifacts: ArtifactConfig{
			DataDir:      ".are",
			RunLogRetain: 50,
			TraceRetain:  500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     StringSlice{"console"},
			TimeFormat: "15:04:05.000",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}

// Load reads and parses a TOML config file, expanding environment variables
// and tilde-prefixed paths, then validating the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadFromString(string(raw))
}

// LoadFromString parses TOML config content directly.
func LoadFromString(content string) (*Config, error) {
	cfg := DefaultConfig()
	expanded := os.ExpandEnv(content)
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// expandPaths resolves "~" to the user's home directory in path fields.
func (c *Config) expandPaths() {
	c.Project.Root = expandTilde(c.Project.Root)
	c.Backend.CLIPath = expandTilde(c.Backend.CLIPath)
	c.Artifacts.DataDir = expandTilde(c.Artifacts.DataDir)
}

func expandTilde(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks the configuration for obvious errors.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	if c.Engine.Concurrency != 0 && (c.Engine.Concurrency < 1 || c.Engine.Concurrency > 20) {
		return fmt.Errorf("engine.concurrency must be within [1, 20] or 0 for auto, got %d", c.Engine.Concurrency)
	}
	if c.Backend.TimeoutMs <= 0 {
		return fmt.Errorf("backend.timeout_ms must be positive")
	}
	if c.Resources.HeapCapMB <= 0 {
		return fmt.Errorf("resources.heap_cap_mb must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if c.Artifacts.DataDir == "" {
		return fmt.Errorf("artifacts.data_dir must not be empty")
	}
	return nil
}

// Clone returns a deep copy, so changes to the copy never mutate the original config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Project.RootTargets = append(StringSlice{}, c.Project.RootTargets...)
	clone.Backend.ExtraArgs = append(StringSlice{}, c.Backend.ExtraArgs...)
	clone.Logging.Output = append(StringSlice{}, c.Logging.Output...)
	return &clone
}

// ProjectHash returns a stable identifier for the project root, used to namespace
// any cross-run caches keyed by project.
func (c *Config) ProjectHash() string {
	sum := sha256.Sum256([]byte(c.Project.Root))
	return hex.EncodeToString(sum[:])
}

// DataDirPath returns the absolute path to the hidden run-artifact directory.
func (c *Config) DataDirPath() string {
	if filepath.IsAbs(c.Artifacts.DataDir) {
		return c.Artifacts.DataDir
	}
	return filepath.Join(c.Project.Root, c.Artifacts.DataDir)
}

// perWorkerMemGiB is the assumed memory footprint of one concurrent AI
// subprocess call, used by ResolveConcurrency's memory-based ceiling (§5).
const perWorkerMemGiB = 0.512

// ResolveConcurrency returns the worker count to pass to the pool: the
// explicit engine.concurrency override if set (Validate already rejects
// anything outside [1, 20]), otherwise the auto-sizing formula from §5:
//
//	clamp(cores*5, 2, min(20, floor((totalMemGiB*0.5) / 0.512)))
//
// A memory-stat failure falls back to the cores-only lower bound of 2,
// since a worker count can't safely assume unlimited memory.
func (c *Config) ResolveConcurrency() int {
	if c.Engine.Concurrency != 0 {
		return c.Engine.Concurrency
	}

	cores := runtime.NumCPU()
	byCores := cores * 5

	memCeiling := 2
	if vm, err := mem.VirtualMemory(); err == nil {
		totalGiB := float64(vm.Total) / (1024 * 1024 * 1024)
		memCeiling = int(math.Floor((totalGiB * 0.5) / perWorkerMemGiB))
	}

	ceiling := 20
	if memCeiling < ceiling {
		ceiling = memCeiling
	}

	n := byCores
	if n < 2 {
		n = 2
	}
	if n > ceiling {
		n = ceiling
	}
	if n < 1 {
		n = 1
	}
	return n
}
