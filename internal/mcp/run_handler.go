package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/credobench/runner/internal/backend"
	"github.com/credobench/runner/internal/config"
	"github.com/credobench/runner/internal/platform"
	"github.com/credobench/runner/internal/runner"
	"github.com/credobench/runner/internal/server"
)

func handleRunBenchmark(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	model, ok := args["model"].(string)
	if !ok || model == "" {
		return mcp.NewToolResultError("model is required"), nil
	}

	cfg := sc.Config

	backendName, _ := args["backend"].(string)
	if backendName == "" {
		backendName = cfg.Defaults.Backend
	}
	judgeBackend, _ := args["judge_backend"].(string)
	if judgeBackend == "" {
		judgeBackend = cfg.JudgeBackendFor(backendName)
	}
	judgeModel, _ := args["judge_model"].(string)
	if judgeModel == "" {
		judgeModel = cfg.Defaults.JudgeModel
	}
	version, _ := args["version"].(string)
	resume, _ := args["resume"].(bool)
	draft, _ := args["draft"].(bool)

	modelClient, err := newBackendClient(cfg, backendName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer func() {
		if cerr := modelClient.Close(); cerr != nil {
			slog.Warn("failed to close model backend", "error", cerr)
		}
	}()

	judgeClient := modelClient
	if judgeBackend != backendName {
		judgeClient, err = newBackendClient(cfg, judgeBackend)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		defer func() {
			if cerr := judgeClient.Close(); cerr != nil {
				slog.Warn("failed to close judge backend", "error", cerr)
			}
		}()
	}

	platformClient := platform.NewClient(cfg.Platform.APIKey, cfg.Platform.URL)
	defer platformClient.Close()
	cache := platform.NewQuestionCache(sc.CacheDir)

	r := runner.New(platformClient, cache, sc.Store)
	result, err := r.Run(ctx, runner.Options{
		Model:            model,
		Backend:          backendName,
		BenchmarkVersion: version,
		JudgeModel:       judgeModel,
		JudgeBackend:     judgeBackend,
		Resume:           resume,
		Draft:            draft,
		ModelClient:      modelClient,
		JudgeClient:      judgeClient,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("benchmark run failed: %v", err)), nil
	}

	summary := map[string]any{
		"run_id":            result.RunID,
		"model":             result.Model,
		"backend":           result.Backend,
		"benchmark_version": result.BenchmarkVersion,
		"score":             result.Score,
		"tier_scores": map[string]float64{
			"tier1": result.TierScores[1],
			"tier2": result.TierScores[2],
			"tier3": result.TierScores[3],
		},
		"total_questions":   result.TotalQuestions,
		"skipped_on_resume": result.SkippedOnResume,
		"duration_seconds":  int(result.Duration.Seconds()),
		"is_draft":          result.IsDraft,
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func newBackendClient(cfg *config.Config, name string) (backend.Client, error) {
	b := cfg.ResolveBackend(name)
	client, err := backend.New(name, backend.Config{APIKey: b.APIKey, BaseURL: b.BaseURL})
	if err != nil {
		return nil, err
	}
	return client, nil
}
