// Package mcp exposes benchmark runs and results as MCP tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/credobench/runner/internal/server"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerResultTools(s, sc)
	registerRunTools(s, sc)
	return nil
}

func registerResultTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// list_runs
	listTool := mcp.NewTool("list_runs",
		mcp.WithDescription("List recent benchmark runs with their scores"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs to return (default: 20)"),
		),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListRuns(ctx, request, sc)
	})

	// get_run
	getRunTool := mcp.NewTool("get_run",
		mcp.WithDescription("Retrieve one benchmark run including its tier scores"),
		mcp.WithNumber("run_id",
			mcp.Required(),
			mcp.Description("ID of the run to retrieve"),
		),
	)
	s.AddTool(getRunTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetRun(ctx, request, sc)
	})

	// get_responses
	getResponsesTool := mcp.NewTool("get_responses",
		mcp.WithDescription("Retrieve the judged responses recorded for a benchmark run"),
		mcp.WithNumber("run_id",
			mcp.Required(),
			mcp.Description("ID of the run whose responses to retrieve"),
		),
		mcp.WithNumber("tier",
			mcp.Description("Restrict to one tier (1-3, optional)"),
		),
	)
	s.AddTool(getResponsesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetResponses(ctx, request, sc)
	})

	// export_run
	exportTool := mcp.NewTool("export_run",
		mcp.WithDescription("Build the validated export document for a completed benchmark run"),
		mcp.WithNumber("run_id",
			mcp.Required(),
			mcp.Description("ID of the run to export"),
		),
		mcp.WithString("output",
			mcp.Description("File name to write the document to, inside the exports directory (optional)"),
		),
	)
	s.AddTool(exportTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleExportRun(ctx, request, sc)
	})
}

func registerRunTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	runTool := mcp.NewTool("run_benchmark",
		mcp.WithDescription("Execute the benchmark against a model and record judged responses"),
		mcp.WithString("model",
			mcp.Required(),
			mcp.Description("Model identifier to test (e.g. 'openai/gpt-4o')"),
		),
		mcp.WithString("backend",
			mcp.Description("Backend serving the model (default: from config)"),
		),
		mcp.WithString("version",
			mcp.Description("Benchmark version to run (default: current published version)"),
		),
		mcp.WithString("judge_model",
			mcp.Description("Model used as judge (default: from config)"),
		),
		mcp.WithString("judge_backend",
			mcp.Description("Backend serving the judge model (default: auto-detected)"),
		),
		mcp.WithBoolean("resume",
			mcp.Description("Resume the newest incomplete run for this model and version"),
		),
		mcp.WithBoolean("draft",
			mcp.Description("Allow draft benchmark versions (results are flagged and never cached)"),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunBenchmark(ctx, request, sc)
	})
}
