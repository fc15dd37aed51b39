package platform

import (
	"encoding/json"
	"strconv"
)

// Question is a single benchmark question.
type Question struct {
	ID       QuestionID `json:"id"`
	Tier     int        `json:"tier"`
	Category string     `json:"category,omitempty"`
	Content  string     `json:"content"`
}

// QuestionID is a string identifier. The platform historically emitted
// numeric ids, so unmarshalling accepts either form.
type QuestionID string

func (q *QuestionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*q = QuestionID(n.String())
	return nil
}

func (q QuestionID) MarshalJSON() ([]byte, error) {
	// Preserve the numeric form on round trips when the id is numeric.
	if _, err := strconv.ParseInt(string(q), 10, 64); err == nil {
		return []byte(q), nil
	}
	return json.Marshal(string(q))
}

// ScoringWeights is the per-tier weight configuration attached to a
// question set. Weights are fractions that sum to 1.0.
type ScoringWeights struct {
	Tier1 float64 `json:"tier1_weight"`
	Tier2 float64 `json:"tier2_weight"`
	Tier3 float64 `json:"tier3_weight"`
}

// VersionRef identifies the version a question set belongs to. The API
// returns either a bare semantic version string or an object carrying the
// version plus its content checksum.
type VersionRef struct {
	SemanticVersion string `json:"semantic_version"`
	Checksum        string `json:"checksum,omitempty"`
}

func (v *VersionRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.SemanticVersion = s
		return nil
	}
	type versionRef VersionRef
	return json.Unmarshal(data, (*versionRef)(v))
}

// QuestionSet is a complete versioned set of benchmark questions together
// with its scoring configuration and judge prompt templates.
type QuestionSet struct {
	Version       VersionRef        `json:"version"`
	Questions     []Question        `json:"questions"`
	Scoring       *ScoringWeights   `json:"scoring_config,omitempty"`
	JudgePrompts  map[string]string `json:"judge_prompts,omitempty"`
	LegacyPrompts map[string]string `json:"prompts,omitempty"`
	IsDraft       bool              `json:"is_draft,omitempty"`
}

// Prompts returns the judge prompt templates, honouring the legacy
// top-level "prompts" key older platform releases used.
func (s *QuestionSet) Prompts() map[string]string {
	if len(s.JudgePrompts) > 0 {
		return s.JudgePrompts
	}
	return s.LegacyPrompts
}

// ResolveVersion returns the set's semantic version, falling back to the
// version the caller requested when the payload carries none.
func (s *QuestionSet) ResolveVersion(requested string) string {
	if s.Version.SemanticVersion != "" {
		return s.Version.SemanticVersion
	}
	return requested
}

// TierCounts returns the number of questions per tier.
func (s *QuestionSet) TierCounts() map[int]int {
	counts := map[int]int{1: 0, 2: 0, 3: 0}
	for _, q := range s.Questions {
		counts[q.Tier]++
	}
	return counts
}

// QuestionsForTier returns the tier's questions in set order.
func (s *QuestionSet) QuestionsForTier(tier int) []Question {
	var out []Question
	for _, q := range s.Questions {
		if q.Tier == tier {
			out = append(out, q)
		}
	}
	return out
}

// VersionInfo describes one published (or draft) benchmark version.
type VersionInfo struct {
	SemanticVersion string `json:"semantic_version"`
	Status          string `json:"status,omitempty"`
	IsCurrent       bool   `json:"is_current,omitempty"`
	Checksum        string `json:"checksum,omitempty"`
	QuestionCount   int    `json:"question_count,omitempty"`
}

// VersionList is the platform's version catalog.
type VersionList struct {
	Versions []VersionInfo `json:"versions"`
	CachedAt string        `json:"_cached_at,omitempty"`
}

// UserInfo describes the platform account behind an API key.
type UserInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}
