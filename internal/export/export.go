// Package export builds the JSON document submitted to the platform and
// validates it after the fact.
package export

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/credobench/runner/internal/judge"
	"github.com/credobench/runner/internal/scoring"
	"github.com/credobench/runner/internal/store"
)

// FormatVersion identifies the export document layout.
const FormatVersion = "1.0"

// Document is the complete export payload for one run.
type Document struct {
	FormatVersion string           `json:"format_version"`
	TestRun       TestRunInfo      `json:"test_run"`
	Summary       Summary          `json:"summary"`
	Responses     []ResponseRecord `json:"responses"`
	Metadata      Metadata         `json:"metadata"`
}

// TestRunInfo describes the exported run.
type TestRunInfo struct {
	ID               string  `json:"id"`
	Model            string  `json:"model"`
	Backend          string  `json:"backend"`
	BenchmarkVersion string  `json:"benchmark_version"`
	JudgeModel       string  `json:"judge_model"`
	JudgeBackend     *string `json:"judge_backend"`
	CompletedAt      *string `json:"completed_at"`
	IsDraftTest      bool    `json:"is_draft_test"`
}

// WeightsInfo mirrors the tier weights used for the final score.
type WeightsInfo struct {
	Tier1 float64 `json:"tier1"`
	Tier2 float64 `json:"tier2"`
	Tier3 float64 `json:"tier3"`
}

// TierScoreInfo holds one tier's raw and weighted contribution.
type TierScoreInfo struct {
	Raw       float64 `json:"raw"`
	Weighted  float64 `json:"weighted"`
	Questions int     `json:"questions"`
}

// Summary aggregates the run's results.
type Summary struct {
	TotalQuestions int                      `json:"total_questions"`
	Score          float64                  `json:"score"`
	ScoringWeights WeightsInfo              `json:"scoring_weights"`
	TierScores     map[string]TierScoreInfo `json:"tier_scores"`
	VerdictCounts  map[string]int           `json:"verdict_counts"`
}

// ResponseRecord is one judged answer in export form.
type ResponseRecord struct {
	QuestionID        string `json:"question_id"`
	Tier              int    `json:"tier"`
	Category          string `json:"category,omitempty"`
	Response          string `json:"response"`
	Verdict           string `json:"verdict"`
	VerdictNormalized string `json:"verdict_normalized"`
	JudgeReasoning    string `json:"judge_reasoning,omitempty"`
	ReasoningTrace    string `json:"reasoning_trace,omitempty"`
	ResponseTimeMs    int64  `json:"response_time_ms"`
}

// Metadata carries provenance and the tamper-evidence checksum. The
// checksum is an integrity fingerprint only; nothing in this tool
// verifies it against an external source.
type Metadata struct {
	RunnerVersion     string `json:"runner_version"`
	BenchmarkVersion  string `json:"benchmark_version"`
	BenchmarkChecksum string `json:"benchmark_checksum"`
	Timestamp         string `json:"timestamp"`
	ExportSource      string `json:"export_source"`
}

// Build assembles the export document for a run.
func Build(s *store.Store, runID int64, runnerVersion string) (*Document, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("test run #%d not found", runID)
	}

	responses, err := s.GetResponses(runID)
	if err != nil {
		return nil, err
	}

	tallies := map[int]*scoring.TierTally{1: {}, 2: {}, 3: {}}
	records := make([]ResponseRecord, 0, len(responses))
	for _, resp := range responses {
		if tally, ok := tallies[resp.Tier]; ok {
			tally.Add(resp.Verdict)
		}
		records = append(records, ResponseRecord{
			QuestionID:        resp.QuestionID,
			Tier:              resp.Tier,
			Category:          resp.Category,
			Response:          resp.ResponseText,
			Verdict:           string(resp.Verdict),
			VerdictNormalized: resp.VerdictNormalized,
			JudgeReasoning:    resp.JudgeReasoning,
			ReasoningTrace:    resp.ReasoningTrace,
			ResponseTimeMs:    resp.ResponseTimeMs,
		})
	}

	weights := scoring.DefaultWeights()
	tierScores := map[string]TierScoreInfo{}
	for tier := 1; tier <= 3; tier++ {
		raw := storedTierScore(run, tier)
		if raw == nil {
			recomputed := tallies[tier].Score()
			raw = &recomputed
		}
		tierScores[fmt.Sprintf("tier%d", tier)] = TierScoreInfo{
			Raw:       *raw,
			Weighted:  *raw * weights.ForTier(tier),
			Questions: tallies[tier].Total(),
		}
	}

	score := 0.0
	if run.Score != nil {
		score = *run.Score
	}

	checksum, err := responsesChecksum(records)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		FormatVersion: FormatVersion,
		TestRun: TestRunInfo{
			ID:               fmt.Sprintf("local-%d", run.ID),
			Model:            run.Model,
			Backend:          run.Backend,
			BenchmarkVersion: run.BenchmarkVersion,
			JudgeModel:       run.JudgeModel,
			JudgeBackend:     optional(run.JudgeBackend),
			CompletedAt:      completedAt(run),
			IsDraftTest:      run.IsDraftTest,
		},
		Summary: Summary{
			TotalQuestions: len(records),
			Score:          score,
			ScoringWeights: WeightsInfo{Tier1: weights.Tier1, Tier2: weights.Tier2, Tier3: weights.Tier3},
			TierScores:     tierScores,
			VerdictCounts: map[string]int{
				string(judge.VerdictAccepted):    tallies[1].Accepted + tallies[2].Accepted + tallies[3].Accepted,
				string(judge.VerdictCompromised): tallies[1].Compromised + tallies[2].Compromised + tallies[3].Compromised,
				string(judge.VerdictRefused):     tallies[1].Refused + tallies[2].Refused + tallies[3].Refused,
			},
		},
		Responses: records,
		Metadata: Metadata{
			RunnerVersion:     runnerVersion,
			BenchmarkVersion:  run.BenchmarkVersion,
			BenchmarkChecksum: checksum,
			Timestamp:         time.Now().UTC().Format(time.RFC3339),
			ExportSource:      "cli_runner",
		},
	}
	return doc, nil
}

// JSON renders the document as indented JSON.
func (d *Document) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

// responsesChecksum digests the canonical (sorted-key) serialization of
// the responses array.
func responsesChecksum(records []ResponseRecord) (string, error) {
	canonical, err := canonicalJSON(records)
	if err != nil {
		return "", fmt.Errorf("failed to compute responses checksum: %w", err)
	}
	return fmt.Sprintf("sha256:%x", sha256.Sum256(canonical)), nil
}

// canonicalJSON re-marshals a value through generic maps so object keys
// come out sorted regardless of struct field order.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func storedTierScore(run *store.TestRun, tier int) *float64 {
	switch tier {
	case 1:
		return run.Tier1Score
	case 2:
		return run.Tier2Score
	case 3:
		return run.Tier3Score
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func completedAt(run *store.TestRun) *string {
	if run.CompletedAt == nil {
		return nil
	}
	formatted := run.CompletedAt.UTC().Format(time.RFC3339)
	return &formatted
}
