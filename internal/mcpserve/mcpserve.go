// Package mcpserve exposes generate/update/summary as MCP tools over stdio
// (Supplemented Feature S3), so an MCP-aware AI assistant can drive the
// documentation pipeline directly instead of shelling out to cmd/are.
// Grounded on index/mcp_server.go's NewMCPServer/AddTool/ServeStdio usage
// of github.com/mark3labs/mcp-go, reshaped from code-search tools to the
// three top-level pipeline operations.
package mcpserve

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/are/internal/discovery"
	"github.com/ternarybob/are/internal/engine"
	"github.com/ternarybob/are/pkg/docmodel"
)

// Server wraps an engine.Engine with an MCP tool surface.
type Server struct {
	engine *engine.Engine
	server *server.MCPServer
}

// NewServer builds an MCP server for eng's project, registering the
// generate/update/summary tools.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{engine: eng}

	mcpServer := server.NewMCPServer(
		"are",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("generate",
			mcp.WithDescription("Run the full documentation-generation pipeline over the configured project root."),
		),
		s.handleGenerate,
	)

	mcpServer.AddTool(
		mcp.NewTool("update",
			mcp.WithDescription("Run the incremental update: only changed sources and their affected directories are re-analyzed, and orphaned artifacts are removed."),
		),
		s.handleUpdate,
	)

	mcpServer.AddTool(
		mcp.NewTool("summary",
			mcp.WithDescription("Report the most recent run-log entries for this project."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of recent runs to return (default: 10)")),
		),
		s.handleSummary,
	)
}

func (s *Server) discoverSources() ([]*docmodel.SourceFile, error) {
	return discovery.Walk(s.engine.Config.Project.Root, discovery.Options{})
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := s.discoverSources()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discover sources: %v", err)), nil
	}
	result, err := s.engine.Generate(ctx, sources, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generate failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResult(result)), nil
}

func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := s.discoverSources()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discover sources: %v", err)), nil
	}
	result, cleanup, err := s.engine.Update(ctx, sources, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
	}
	text := formatResult(result)
	if cleanup != nil && len(cleanup.Removed) > 0 {
		text += fmt.Sprintf("\nremoved %d orphaned artifact(s)", len(cleanup.Removed))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)
	entries, err := s.engine.Summary(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}
	return mcp.NewToolResultText(engine.FormatSummaryMarkdown(entries)), nil
}

func formatResult(r *engine.Result) string {
	s := r.Summary
	return fmt.Sprintf("processed %d file(s), %d failed, %d skipped; %d AI call(s); exit class %d",
		s.FilesProcessed, s.FilesFailed, s.FilesSkipped, s.TotalAICalls, s.ExitClass)
}

// ServeStdio blocks, serving MCP tool calls over stdio until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}
