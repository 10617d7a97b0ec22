package backend

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/ternarybob/are/pkg/docmodel"
)

// ClaudeCLI adapts the "claude" command-line assistant. Reshaped from
// pkg/llm/anthropic.go's HTTP request/response handling into subprocess
// argv construction and stdout parsing, per §4.3's contract that the driver
// never calls a model API directly.
type ClaudeCLI struct {
	// BinaryPath overrides the resolved executable; empty means "claude"
	// looked up on PATH.
	BinaryPath string
}

// Name returns "claude".
func (c *ClaudeCLI) Name() string { return "claude" }

// IsAvailable reports whether the claude CLI can be located.
func (c *ClaudeCLI) IsAvailable() bool {
	_, err := exec.LookPath(c.resolvedBinary())
	return err == nil
}

func (c *ClaudeCLI) resolvedBinary() string {
	if c.BinaryPath != "" {
		return c.BinaryPath
	}
	return "claude"
}

// BuildArgs constructs the claude CLI's non-interactive print-mode argv.
func (c *ClaudeCLI) BuildArgs(prompts docmodel.PromptPair, opts CallOptions) []string {
	args := []string{"-p", prompts.User, "--output-format", "json"}
	if prompts.System != "" {
		args = append(args, "--system-prompt", prompts.System)
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, opts.ExtraArgs...)
	return args
}

// Binary returns the resolved executable path or name, for the subprocess
// driver to pass to exec.Command.
func (c *ClaudeCLI) Binary() string { return c.resolvedBinary() }

// ResourceEnv renders the claude CLI's resource-cap environment variables.
func (c *ClaudeCLI) ResourceEnv(caps ResourceCaps) []string {
	env := []string{
		"NODE_OPTIONS=--max-old-space-size=" + strconv.Itoa(caps.HeapCapMB),
		"UV_THREADPOOL_SIZE=" + strconv.Itoa(caps.ThreadPoolCap),
	}
	if caps.DisableBackgroundTasks {
		env = append(env, "CLAUDE_CODE_DISABLE_TELEMETRY=1", "DISABLE_BACKGROUND_TASKS=1")
	}
	return env
}

// claudeCLIResponse is the JSON envelope the claude CLI emits in
// --output-format json print mode.
type claudeCLIResponse struct {
	Result string `json:"result"`
	Model  string `json:"model"`
	Usage  struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
	DurationMs int64 `json:"duration_ms"`
	IsError    bool  `json:"is_error"`
}

// ParseResponse parses the claude CLI's JSON stdout into a normalized Response.
func (c *ClaudeCLI) ParseResponse(stdout []byte) (*Response, error) {
	var resp claudeCLIResponse
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return nil, &ErrParse{Backend: c.Name(), Err: err}
	}
	if resp.IsError {
		return nil, &ErrParse{Backend: c.Name(), Err: fmt.Errorf("backend reported is_error=true")}
	}
	return &Response{
		Text:                resp.Result,
		Model:               resp.Model,
		InputTokens:         resp.Usage.InputTokens,
		OutputTokens:        resp.Usage.OutputTokens,
		CacheReadTokens:     resp.Usage.CacheReadInputTokens,
		CacheCreationTokens: resp.Usage.CacheCreationInputTokens,
		DurationMs:          resp.DurationMs,
		Raw:                 string(stdout),
	}, nil
}

// InstallHint describes how to install the claude CLI.
func (c *ClaudeCLI) InstallHint() string {
	return "install the Claude Code CLI: npm install -g @anthropic-ai/claude-code"
}
