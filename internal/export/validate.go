package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/credobench/runner/internal/judge"
)

// Tier balance targets and tolerance for the published question mix.
var tierPercentages = map[int]float64{1: 0.70, 2: 0.20, 3: 0.10}

const (
	balanceTolerance = 0.01
	scoreTolerance   = 0.5
	weightTolerance  = 0.001
)

// Validate checks a document against the export schema's semantic rules
// and returns the list of violations. It never aborts mid-check; an
// empty result means the document is valid.
func Validate(d *Document) []string {
	var errs []string
	errs = append(errs, validateRequired(d)...)
	errs = append(errs, validateVersionConsistency(d)...)
	errs = append(errs, validateQuestionCounts(d)...)
	errs = append(errs, validateVerdictCounts(d)...)
	errs = append(errs, validateTierDistribution(d)...)
	errs = append(errs, validateTierBalance(d)...)
	errs = append(errs, validateScoreCalculation(d)...)
	errs = append(errs, validateWeightSum(d)...)
	errs = append(errs, validateVerdicts(d)...)
	errs = append(errs, validateQuestionUniqueness(d)...)
	return errs
}

func validateRequired(d *Document) []string {
	var errs []string
	if d.FormatVersion == "" {
		errs = append(errs, "missing required field: format_version")
	}
	if d.TestRun.ID == "" {
		errs = append(errs, "missing required test_run field: id")
	}
	if d.TestRun.Model == "" {
		errs = append(errs, "missing required test_run field: model")
	}
	if d.TestRun.Backend == "" {
		errs = append(errs, "missing required test_run field: backend")
	}
	if d.TestRun.BenchmarkVersion == "" {
		errs = append(errs, "missing required test_run field: benchmark_version")
	}
	if d.TestRun.JudgeModel == "" {
		errs = append(errs, "missing required test_run field: judge_model")
	}
	if d.TestRun.CompletedAt == nil {
		errs = append(errs, "missing required test_run field: completed_at")
	}
	return errs
}

func validateVersionConsistency(d *Document) []string {
	if d.TestRun.BenchmarkVersion != d.Metadata.BenchmarkVersion {
		return []string{"version mismatch between test_run and metadata"}
	}
	return nil
}

func validateQuestionCounts(d *Document) []string {
	if d.Summary.TotalQuestions != len(d.Responses) {
		return []string{fmt.Sprintf(
			"question count mismatch: summary says %d, responses has %d",
			d.Summary.TotalQuestions, len(d.Responses),
		)}
	}
	return nil
}

func validateVerdictCounts(d *Document) []string {
	total := 0
	for _, n := range d.Summary.VerdictCounts {
		total += n
	}
	if total != d.Summary.TotalQuestions {
		return []string{fmt.Sprintf(
			"verdict counts sum to %d, expected %d", total, d.Summary.TotalQuestions,
		)}
	}
	return nil
}

func tierCounts(d *Document) map[int]int {
	counts := map[int]int{1: 0, 2: 0, 3: 0}
	for _, r := range d.Responses {
		if _, ok := counts[r.Tier]; ok {
			counts[r.Tier]++
		}
	}
	return counts
}

func validateTierDistribution(d *Document) []string {
	var errs []string
	counts := tierCounts(d)
	for tier := 1; tier <= 3; tier++ {
		expected := d.Summary.TierScores[fmt.Sprintf("tier%d", tier)].Questions
		if expected != counts[tier] {
			errs = append(errs, fmt.Sprintf(
				"tier %d count mismatch: summary says %d, found %d",
				tier, expected, counts[tier],
			))
		}
	}
	return errs
}

func validateTierBalance(d *Document) []string {
	total := len(d.Responses)
	if total == 0 {
		return []string{"no responses to validate"}
	}

	var errs []string
	counts := tierCounts(d)
	for tier := 1; tier <= 3; tier++ {
		target := tierPercentages[tier]
		actual := float64(counts[tier]) / float64(total)
		if math.Abs(actual-target) > balanceTolerance {
			errs = append(errs, fmt.Sprintf(
				"tier %d balance: %.1f%% (expected %.0f%% ±%.0f%%)",
				tier, actual*100, target*100, balanceTolerance*100,
			))
		}
	}
	return errs
}

func validateScoreCalculation(d *Document) []string {
	w := d.Summary.ScoringWeights
	calculated := d.Summary.TierScores["tier1"].Raw*w.Tier1 +
		d.Summary.TierScores["tier2"].Raw*w.Tier2 +
		d.Summary.TierScores["tier3"].Raw*w.Tier3
	if math.Abs(calculated-d.Summary.Score) > scoreTolerance {
		return []string{fmt.Sprintf(
			"score calculation error: calculated %.2f, reported %.2f",
			calculated, d.Summary.Score,
		)}
	}
	return nil
}

func validateWeightSum(d *Document) []string {
	w := d.Summary.ScoringWeights
	total := w.Tier1 + w.Tier2 + w.Tier3
	if math.Abs(total-1.0) > weightTolerance {
		return []string{fmt.Sprintf("weights must sum to 1.0, got %v", total)}
	}
	return nil
}

func validateVerdicts(d *Document) []string {
	var errs []string
	for i, r := range d.Responses {
		if r.Tier < 1 || r.Tier > 3 {
			errs = append(errs, fmt.Sprintf("response %d: invalid tier %d", i, r.Tier))
		}
		if !judge.Verdict(r.Verdict).Valid() {
			errs = append(errs, fmt.Sprintf(
				"response %d: invalid verdict %q for tier %d", i, r.Verdict, r.Tier,
			))
		}
	}
	return errs
}

func validateQuestionUniqueness(d *Document) []string {
	seen := map[string]int{}
	for _, r := range d.Responses {
		seen[r.QuestionID]++
	}
	var duplicates []string
	for id, n := range seen {
		if n > 1 {
			duplicates = append(duplicates, id)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return []string{fmt.Sprintf("duplicate question ids: %v", duplicates)}
	}
	return nil
}
