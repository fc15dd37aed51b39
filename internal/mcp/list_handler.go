package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/credobench/runner/internal/server"
	"github.com/credobench/runner/internal/store"
)

type runInfo struct {
	ID               int64    `json:"id"`
	Model            string   `json:"model"`
	Backend          string   `json:"backend"`
	BenchmarkVersion string   `json:"benchmark_version"`
	JudgeModel       string   `json:"judge_model,omitempty"`
	JudgeBackend     string   `json:"judge_backend,omitempty"`
	Score            *float64 `json:"score"`
	Tier1Score       *float64 `json:"tier1_score"`
	Tier2Score       *float64 `json:"tier2_score"`
	Tier3Score       *float64 `json:"tier3_score"`
	StartedAt        string   `json:"started_at"`
	CompletedAt      string   `json:"completed_at,omitempty"`
	IsDraftTest      bool     `json:"is_draft_test,omitempty"`
}

func toRunInfo(run *store.TestRun) runInfo {
	info := runInfo{
		ID:               run.ID,
		Model:            run.Model,
		Backend:          run.Backend,
		BenchmarkVersion: run.BenchmarkVersion,
		JudgeModel:       run.JudgeModel,
		JudgeBackend:     run.JudgeBackend,
		Score:            run.Score,
		Tier1Score:       run.Tier1Score,
		Tier2Score:       run.Tier2Score,
		Tier3Score:       run.Tier3Score,
		StartedAt:        run.StartedAt.UTC().Format(time.RFC3339),
		IsDraftTest:      run.IsDraftTest,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	return info
}

func handleListRuns(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	limit := 20
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	runs, err := sc.Store.ListRuns(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}

	infos := make([]runInfo, 0, len(runs))
	for i := range runs {
		infos = append(infos, toRunInfo(&runs[i]))
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleGetRun(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	runID, err := requireRunID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run, err := sc.Store.GetRun(runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load run: %v", err)), nil
	}
	if run == nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %d not found", runID)), nil
	}

	data, err := json.MarshalIndent(toRunInfo(run), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal run: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleGetResponses(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	runID, err := requireRunID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responses, err := sc.Store.GetResponses(runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load responses: %v", err)), nil
	}

	args := request.GetArguments()
	if v, ok := args["tier"].(float64); ok {
		tier := int(v)
		filtered := responses[:0]
		for _, resp := range responses {
			if resp.Tier == tier {
				filtered = append(filtered, resp)
			}
		}
		responses = filtered
	}

	type responseInfo struct {
		QuestionID     string `json:"question_id"`
		Tier           int    `json:"tier"`
		Category       string `json:"category,omitempty"`
		ResponseText   string `json:"response_text"`
		Verdict        string `json:"verdict"`
		JudgeReasoning string `json:"judge_reasoning,omitempty"`
		ResponseTimeMs int64  `json:"response_time_ms"`
	}

	infos := make([]responseInfo, 0, len(responses))
	for _, resp := range responses {
		infos = append(infos, responseInfo{
			QuestionID:     resp.QuestionID,
			Tier:           resp.Tier,
			Category:       resp.Category,
			ResponseText:   resp.ResponseText,
			Verdict:        string(resp.Verdict),
			JudgeReasoning: resp.JudgeReasoning,
			ResponseTimeMs: resp.ResponseTimeMs,
		})
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal responses: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func requireRunID(request mcp.CallToolRequest) (int64, error) {
	v, ok := request.GetArguments()["run_id"].(float64)
	if !ok || v <= 0 {
		return 0, fmt.Errorf("run_id is required")
	}
	return int64(v), nil
}
