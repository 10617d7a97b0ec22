package backend

import (
	"encoding/json"
	"os/exec"
	"strconv"

	"github.com/ternarybob/are/pkg/docmodel"
)

// GeminiCLI adapts the "gemini" command-line assistant. Reshaped from
// pkg/llm/ollama.go's second-backend role (a local/alternate provider
// alongside the primary), but driven as a subprocess rather than an HTTP
// client, per §4.3.
type GeminiCLI struct {
	BinaryPath string
}

// Name returns "gemini".
func (g *GeminiCLI) Name() string { return "gemini" }

// IsAvailable reports whether the gemini CLI can be located.
func (g *GeminiCLI) IsAvailable() bool {
	_, err := exec.LookPath(g.resolvedBinary())
	return err == nil
}

func (g *GeminiCLI) resolvedBinary() string {
	if g.BinaryPath != "" {
		return g.BinaryPath
	}
	return "gemini"
}

// BuildArgs constructs the gemini CLI's non-interactive JSON-output argv.
func (g *GeminiCLI) BuildArgs(prompts docmodel.PromptPair, opts CallOptions) []string {
	prompt := prompts.User
	if prompts.System != "" {
		prompt = prompts.System + "\n\n" + prompts.User
	}
	args := []string{"-p", prompt, "--output-format", "json"}
	if opts.Model != "" {
		args = append(args, "-m", opts.Model)
	}
	args = append(args, opts.ExtraArgs...)
	return args
}

// Binary returns the resolved executable path or name.
func (g *GeminiCLI) Binary() string { return g.resolvedBinary() }

// ResourceEnv renders the gemini CLI's resource-cap environment variables.
func (g *GeminiCLI) ResourceEnv(caps ResourceCaps) []string {
	env := []string{
		"NODE_OPTIONS=--max-old-space-size=" + strconv.Itoa(caps.HeapCapMB),
		"UV_THREADPOOL_SIZE=" + strconv.Itoa(caps.ThreadPoolCap),
	}
	if caps.DisableBackgroundTasks {
		env = append(env, "GEMINI_CLI_DISABLE_TELEMETRY=1")
	}
	return env
}

type geminiCLIResponse struct {
	Response string `json:"response"`
	Stats    struct {
		Models map[string]struct {
			Tokens struct {
				Prompt  int `json:"prompt"`
				Output  int `json:"candidates"`
				Cached  int `json:"cached"`
				Thought int `json:"thoughts"`
			} `json:"tokens"`
		} `json:"models"`
	} `json:"stats"`
}

// ParseResponse parses the gemini CLI's JSON stdout into a normalized Response.
func (g *GeminiCLI) ParseResponse(stdout []byte) (*Response, error) {
	var resp geminiCLIResponse
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return nil, &ErrParse{Backend: g.Name(), Err: err}
	}

	result := &Response{Text: resp.Response, Raw: string(stdout)}
	for model, stats := range resp.Stats.Models {
		result.Model = model
		result.InputTokens += stats.Tokens.Prompt
		result.OutputTokens += stats.Tokens.Output
		result.CacheReadTokens += stats.Tokens.Cached
	}
	return result, nil
}

// InstallHint describes how to install the gemini CLI.
func (g *GeminiCLI) InstallHint() string {
	return "install the Gemini CLI: npm install -g @google/gemini-cli"
}
