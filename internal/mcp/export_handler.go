package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/export"
	"github.com/credobench/runner/internal/server"
)

func handleExportRun(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	runID, err := requireRunID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := export.Build(sc.Store, runID, sc.Version)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build export: %v", err)), nil
	}
	// Validation is advisory; the document is returned either way.
	if findings := export.Validate(doc); len(findings) > 0 {
		slog.Warn("export validation findings",
			"run_id", runID, "findings", strings.Join(findings, "; "))
	}

	data, err := doc.JSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal export: %v", err)), nil
	}

	args := request.GetArguments()
	if output, ok := args["output"].(string); ok && output != "" {
		path, err := resolveExportPath(config.ExportsDir(), output)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to write export: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("export for run %d written to %s", runID, path)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

func resolveExportPath(baseDir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("output name is required")
	}
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve exports directory: %w", err)
	}
	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseAbs, target)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output must be within the exports directory")
	}
	return targetAbs, nil
}
