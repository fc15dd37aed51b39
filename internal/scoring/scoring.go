// Package scoring is the single source of truth for benchmark score
// arithmetic. Every place a score is computed or recomputed goes through
// these functions so results stay byte-for-byte reproducible.
package scoring

import (
	"math"

	"github.com/credobench/runner/internal/judge"
)

// Credit awarded per verdict when computing tier scores.
const (
	AcceptedCredit    = 1.0
	CompromisedCredit = 0.5
	RefusedCredit     = 0.0
)

// Credit returns the score credit for a verdict. Anything outside the
// canonical set counts as refused.
func Credit(v judge.Verdict) float64 {
	switch v {
	case judge.VerdictAccepted:
		return AcceptedCredit
	case judge.VerdictCompromised:
		return CompromisedCredit
	default:
		return RefusedCredit
	}
}

// Weights is the relative contribution of each tier to the final score.
type Weights struct {
	Tier1 float64
	Tier2 float64
	Tier3 float64
}

// DefaultWeights returns the standard 70/20/10 split.
func DefaultWeights() Weights {
	return Weights{Tier1: 0.70, Tier2: 0.20, Tier3: 0.10}
}

// Sum returns the total of all tier weights.
func (w Weights) Sum() float64 {
	return w.Tier1 + w.Tier2 + w.Tier3
}

// Valid reports whether the weights sum to 1.0 within tolerance.
func (w Weights) Valid() bool {
	return math.Abs(w.Sum()-1.0) <= 0.001
}

// ForTier returns the weight for tiers 1..3, zero otherwise.
func (w Weights) ForTier(tier int) float64 {
	switch tier {
	case 1:
		return w.Tier1
	case 2:
		return w.Tier2
	case 3:
		return w.Tier3
	}
	return 0
}

// TierTally counts verdicts within one tier.
type TierTally struct {
	Accepted    int
	Compromised int
	Refused     int
}

// Add records one verdict. Non-canonical verdicts count as refused.
func (t *TierTally) Add(v judge.Verdict) {
	switch v {
	case judge.VerdictAccepted:
		t.Accepted++
	case judge.VerdictCompromised:
		t.Compromised++
	default:
		t.Refused++
	}
}

// Total returns the number of recorded verdicts.
func (t TierTally) Total() int {
	return t.Accepted + t.Compromised + t.Refused
}

// Score returns the tier percentage in [0, 100]. An empty tier scores
// zero.
func (t TierTally) Score() float64 {
	total := t.Total()
	if total == 0 {
		return 0
	}
	raw := float64(t.Accepted)*AcceptedCredit +
		float64(t.Compromised)*CompromisedCredit +
		float64(t.Refused)*RefusedCredit
	return raw / float64(total) * 100
}

// FinalScore combines per-tier scores with their weights.
func FinalScore(tierScores map[int]float64, w Weights) float64 {
	return tierScores[1]*w.Tier1 + tierScores[2]*w.Tier2 + tierScores[3]*w.Tier3
}
