package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/are/pkg/docmodel"
)

func TestClaudeCLI_BuildArgs(t *testing.T) {
	c := &ClaudeCLI{}
	args := c.BuildArgs(docmodel.PromptPair{System: "sys", User: "user"}, CallOptions{Model: "sonnet"})
	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "user")
	assert.Contains(t, args, "--system-prompt")
	assert.Contains(t, args, "--model")
	assert.Contains(t, args, "sonnet")
}

func TestClaudeCLI_ParseResponse(t *testing.T) {
	c := &ClaudeCLI{}
	stdout := []byte(`{"result":"hello","model":"claude-sonnet","usage":{"input_tokens":10,"output_tokens":5},"duration_ms":120}`)

	resp, err := c.ParseResponse(stdout)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "claude-sonnet", resp.Model)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 5, resp.OutputTokens)
}

func TestClaudeCLI_ParseResponse_IsErrorFails(t *testing.T) {
	c := &ClaudeCLI{}
	stdout := []byte(`{"result":"","is_error":true}`)
	_, err := c.ParseResponse(stdout)
	assert.Error(t, err)
}

func TestClaudeCLI_ParseResponse_MalformedJSON(t *testing.T) {
	c := &ClaudeCLI{}
	_, err := c.ParseResponse([]byte("not json"))
	require.Error(t, err)
	var parseErr *ErrParse
	assert.ErrorAs(t, err, &parseErr)
}

func TestGeminiCLI_ParseResponse(t *testing.T) {
	g := &GeminiCLI{}
	stdout := []byte(`{"response":"hi","stats":{"models":{"gemini-2.5-pro":{"tokens":{"prompt":3,"candidates":2,"cached":1}}}}}`)

	resp, err := g.ParseResponse(stdout)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
	assert.Equal(t, "gemini-2.5-pro", resp.Model)
	assert.Equal(t, 3, resp.InputTokens)
	assert.Equal(t, 2, resp.OutputTokens)
	assert.Equal(t, 1, resp.CacheReadTokens)
}

func TestRegistry_SelectNamedUnregistered(t *testing.T) {
	r := NewRegistry(&ClaudeCLI{})
	_, err := r.Select("nonexistent")
	assert.Error(t, err)
}

func TestRegistry_SelectAutoDetectNoneAvailable(t *testing.T) {
	r := NewRegistry(&ClaudeCLI{BinaryPath: "/nonexistent/claude-binary"}, &GeminiCLI{BinaryPath: "/nonexistent/gemini-binary"})
	_, err := r.Select("")
	require.Error(t, err)
	var unavailable *ErrUnavailable
	assert.ErrorAs(t, err, &unavailable)
	assert.Len(t, unavailable.Hints, 2)
}
