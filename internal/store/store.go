// Package store persists test runs and responses in a local SQLite
// database. Every write commits immediately, so any committed response
// is visible to a later resume even after an abrupt interruption.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/credobench/runner/internal/judge"
)

// TestRun is one benchmark execution against a model.
type TestRun struct {
	ID               int64
	Model            string
	Backend          string
	BenchmarkVersion string
	JudgeModel       string
	JudgeBackend     string
	Score            *float64
	Tier1Score       *float64
	Tier2Score       *float64
	Tier3Score       *float64
	StartedAt        time.Time
	CompletedAt      *time.Time
	IsDraftTest      bool
}

// Completed reports whether the run has been finalized.
func (r *TestRun) Completed() bool {
	return r.CompletedAt != nil
}

// Response is one judged answer within a run.
type Response struct {
	ID                int64
	RunID             int64
	QuestionID        string
	Tier              int
	Category          string
	ResponseText      string
	Verdict           judge.Verdict
	VerdictNormalized string
	JudgeReasoning    string
	ReasoningTrace    string
	ResponseTimeMs    int64
}

// Store wraps the SQLite database holding runs and responses.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS test_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	model TEXT NOT NULL,
	backend TEXT NOT NULL,
	benchmark_version TEXT NOT NULL,
	judge_model TEXT NOT NULL,
	judge_backend TEXT,
	score REAL,
	tier1_score REAL,
	tier2_score REAL,
	tier3_score REAL,
	started_at TEXT NOT NULL,
	completed_at TEXT,
	is_draft_test INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_run_id INTEGER NOT NULL REFERENCES test_runs(id),
	question_id TEXT NOT NULL,
	tier INTEGER NOT NULL,
	category TEXT,
	response_text TEXT NOT NULL,
	verdict TEXT NOT NULL,
	verdict_normalized TEXT NOT NULL,
	judge_reasoning TEXT,
	reasoning_trace TEXT,
	response_time_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_responses_run ON responses(test_run_id);
`

// Open opens (creating if necessary) the results database at path and
// applies schema migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids lock
	// contention between the run loop and concurrent readers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate additively upgrades databases created by older releases. It
// only ever adds nullable or defaulted columns, never rejects a file.
func (s *Store) migrate() error {
	migrations := []struct {
		table  string
		column string
		ddl    string
	}{
		{"test_runs", "judge_backend", "ALTER TABLE test_runs ADD COLUMN judge_backend TEXT"},
		{"test_runs", "is_draft_test", "ALTER TABLE test_runs ADD COLUMN is_draft_test INTEGER NOT NULL DEFAULT 0"},
		{"responses", "reasoning_trace", "ALTER TABLE responses ADD COLUMN reasoning_trace TEXT"},
		{"responses", "verdict_normalized", "ALTER TABLE responses ADD COLUMN verdict_normalized TEXT NOT NULL DEFAULT 'fail'"},
	}

	for _, m := range migrations {
		ok, err := s.hasColumn(m.table, m.column)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.db.Exec(m.ddl); err != nil {
				return fmt.Errorf("adding %s.%s: %w", m.table, m.column, err)
			}
		}
	}
	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	var names []string
	if err := s.db.Select(&names, `SELECT name FROM pragma_table_info(?)`, table); err != nil {
		return false, err
	}
	for _, n := range names {
		if n == column {
			return true, nil
		}
	}
	return false, nil
}

// CreateRunParams describes a new test run.
type CreateRunParams struct {
	Model            string
	Backend          string
	BenchmarkVersion string
	JudgeModel       string
	JudgeBackend     string
	IsDraftTest      bool
}

// CreateRun inserts a new run with the start timestamp set to now and no
// completion timestamp.
func (s *Store) CreateRun(p CreateRunParams) (*TestRun, error) {
	startedAt := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO test_runs (model, backend, benchmark_version, judge_model, judge_backend, started_at, is_draft_test)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Model, p.Backend, p.BenchmarkVersion, p.JudgeModel, nullString(p.JudgeBackend),
		startedAt.UTC().Format(time.RFC3339Nano), p.IsDraftTest,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read run id: %w", err)
	}
	return s.GetRun(id)
}

// AddResponseParams describes one judged answer.
type AddResponseParams struct {
	RunID          int64
	QuestionID     string
	Tier           int
	Category       string
	ResponseText   string
	Verdict        judge.Verdict
	JudgeReasoning string
	ReasoningTrace string
	ResponseTimeMs int64
}

// AddResponse inserts one response row and commits it immediately. The
// pass/partial/fail projection is derived here from the canonical
// verdict.
func (s *Store) AddResponse(p AddResponseParams) (*Response, error) {
	res, err := s.db.Exec(
		`INSERT INTO responses (test_run_id, question_id, tier, category, response_text, verdict, verdict_normalized, judge_reasoning, reasoning_trace, response_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID, p.QuestionID, p.Tier, nullString(p.Category), p.ResponseText,
		string(p.Verdict), p.Verdict.Normalized(), nullString(p.JudgeReasoning),
		nullString(p.ReasoningTrace), p.ResponseTimeMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read response id: %w", err)
	}

	return &Response{
		ID:                id,
		RunID:             p.RunID,
		QuestionID:        p.QuestionID,
		Tier:              p.Tier,
		Category:          p.Category,
		ResponseText:      p.ResponseText,
		Verdict:           p.Verdict,
		VerdictNormalized: p.Verdict.Normalized(),
		JudgeReasoning:    p.JudgeReasoning,
		ReasoningTrace:    p.ReasoningTrace,
		ResponseTimeMs:    p.ResponseTimeMs,
	}, nil
}

// CompleteRun stamps final scores and the completion timestamp in one
// terminal update. A run can only be completed once; completing a
// missing or already-completed run is an error.
func (s *Store) CompleteRun(runID int64, score, tier1, tier2, tier3 float64) error {
	res, err := s.db.Exec(
		`UPDATE test_runs
		 SET score = ?, tier1_score = ?, tier2_score = ?, tier3_score = ?, completed_at = ?
		 WHERE id = ? AND completed_at IS NULL`,
		score, tier1, tier2, tier3, time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found or already completed", runID)
	}
	return nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(id int64) (*TestRun, error) {
	var row runRow
	err := s.db.Get(&row, `SELECT * FROM test_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}
	return row.toRun()
}

// ListRuns returns the most recently started runs, newest first.
func (s *Store) ListRuns(limit int) ([]TestRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []runRow
	err := s.db.Select(&rows, `SELECT * FROM test_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]TestRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// GetResponses returns a run's responses ordered by tier, then insertion
// order.
func (s *Store) GetResponses(runID int64) ([]Response, error) {
	var rows []responseRow
	err := s.db.Select(&rows, `SELECT * FROM responses WHERE test_run_id = ? ORDER BY tier, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses for run %d: %w", runID, err)
	}
	responses := make([]Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.toResponse())
	}
	return responses, nil
}

// GetIncompleteRun returns the most recently started unfinished run for
// a model and benchmark version, or nil when none exists. Resume uses
// this as its checkpoint lookup; it always reads durable state fresh.
func (s *Store) GetIncompleteRun(model, benchmarkVersion string) (*TestRun, error) {
	var row runRow
	err := s.db.Get(&row,
		`SELECT * FROM test_runs
		 WHERE model = ? AND benchmark_version = ? AND completed_at IS NULL
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		model, benchmarkVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find incomplete run: %w", err)
	}
	return row.toRun()
}

// GetAnsweredQuestionIDs returns the set of question ids that already
// have a response in a run.
func (s *Store) GetAnsweredQuestionIDs(runID int64) (map[string]struct{}, error) {
	var ids []string
	err := s.db.Select(&ids, `SELECT question_id FROM responses WHERE test_run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answered questions for run %d: %w", runID, err)
	}
	answered := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		answered[id] = struct{}{}
	}
	return answered, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
