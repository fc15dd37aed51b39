package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/credobench/runner/internal/judge"
)

// Timestamps are stored as RFC 3339 text so lexical ordering matches
// chronological ordering in SQL.

type runRow struct {
	ID               int64           `db:"id"`
	Model            string          `db:"model"`
	Backend          string          `db:"backend"`
	BenchmarkVersion string          `db:"benchmark_version"`
	JudgeModel       string          `db:"judge_model"`
	JudgeBackend     sql.NullString  `db:"judge_backend"`
	Score            sql.NullFloat64 `db:"score"`
	Tier1Score       sql.NullFloat64 `db:"tier1_score"`
	Tier2Score       sql.NullFloat64 `db:"tier2_score"`
	Tier3Score       sql.NullFloat64 `db:"tier3_score"`
	StartedAt        string          `db:"started_at"`
	CompletedAt      sql.NullString  `db:"completed_at"`
	IsDraftTest      bool            `db:"is_draft_test"`
}

func (r runRow) toRun() (*TestRun, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("run %d has malformed start time %q: %w", r.ID, r.StartedAt, err)
	}

	run := &TestRun{
		ID:               r.ID,
		Model:            r.Model,
		Backend:          r.Backend,
		BenchmarkVersion: r.BenchmarkVersion,
		JudgeModel:       r.JudgeModel,
		JudgeBackend:     r.JudgeBackend.String,
		Score:            nullFloat(r.Score),
		Tier1Score:       nullFloat(r.Tier1Score),
		Tier2Score:       nullFloat(r.Tier2Score),
		Tier3Score:       nullFloat(r.Tier3Score),
		StartedAt:        startedAt,
		IsDraftTest:      r.IsDraftTest,
	}
	if r.CompletedAt.Valid {
		completedAt, err := time.Parse(time.RFC3339Nano, r.CompletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("run %d has malformed completion time %q: %w", r.ID, r.CompletedAt.String, err)
		}
		run.CompletedAt = &completedAt
	}
	return run, nil
}

type responseRow struct {
	ID                int64          `db:"id"`
	TestRunID         int64          `db:"test_run_id"`
	QuestionID        string         `db:"question_id"`
	Tier              int            `db:"tier"`
	Category          sql.NullString `db:"category"`
	ResponseText      string         `db:"response_text"`
	Verdict           string         `db:"verdict"`
	VerdictNormalized string         `db:"verdict_normalized"`
	JudgeReasoning    sql.NullString `db:"judge_reasoning"`
	ReasoningTrace    sql.NullString `db:"reasoning_trace"`
	ResponseTimeMs    sql.NullInt64  `db:"response_time_ms"`
}

func (r responseRow) toResponse() Response {
	return Response{
		ID:                r.ID,
		RunID:             r.TestRunID,
		QuestionID:        r.QuestionID,
		Tier:              r.Tier,
		Category:          r.Category.String,
		Verdict:           judge.Verdict(r.Verdict),
		VerdictNormalized: r.VerdictNormalized,
		ResponseText:      r.ResponseText,
		JudgeReasoning:    r.JudgeReasoning.String,
		ReasoningTrace:    r.ReasoningTrace.String,
		ResponseTimeMs:    r.ResponseTimeMs.Int64,
	}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
