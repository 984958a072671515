package reliability

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MaxDeltaPerRun bounds how far a single tuner run may move a coefficient.
const MaxDeltaPerRun = 0.02

// RuleFeedback is the aggregated user feedback for one rule.
type RuleFeedback struct {
	RuleID     string
	Helpful    int
	NotHelpful int
}

// Samples returns the total number of feedback entries for the rule.
func (f RuleFeedback) Samples() int {
	return f.Helpful + f.NotHelpful
}

// Precision returns the helpful share as a weighted mean over the votes.
func (f RuleFeedback) Precision() float64 {
	n := f.Samples()
	if n == 0 {
		return 0
	}
	return stat.Mean(
		[]float64{1, 0},
		[]float64{float64(f.Helpful), float64(f.NotHelpful)},
	)
}

// TunerConfig controls the offline reliability tuner.
type TunerConfig struct {
	// MinSamples is the minimum feedback count before a rule is adjusted.
	MinSamples int
}

// DefaultTunerConfig returns default tuner configuration
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		MinSamples: 10,
	}
}

// Tuner nudges base reliability coefficients from feedback.
type Tuner struct {
	base   *Table
	config TunerConfig
}

// NewTuner creates a tuner over the base table (without overrides applied).
func NewTuner(base *Table, config TunerConfig) *Tuner {
	if config.MinSamples <= 0 {
		config.MinSamples = DefaultTunerConfig().MinSamples
	}
	return &Tuner{base: base, config: config}
}

// Propose computes a fresh override set from aggregated feedback. Deltas are
// taken from the base coefficient, never from a previous override, so
// running on unchanged feedback twice yields identical output.
func (t *Tuner) Propose(feedback []RuleFeedback) map[string]float64 {
	// Deterministic order regardless of input ordering.
	sorted := make([]RuleFeedback, len(feedback))
	copy(sorted, feedback)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RuleID < sorted[j].RuleID
	})

	overrides := make(map[string]float64)
	for _, f := range sorted {
		if f.RuleID == "" || f.Samples() < t.config.MinSamples {
			continue
		}

		current := t.base.Reliability(f.RuleID)
		desired := targetCoefficient(f.Precision())

		delta := desired - current
		if delta > MaxDeltaPerRun {
			delta = MaxDeltaPerRun
		}
		if delta < -MaxDeltaPerRun {
			delta = -MaxDeltaPerRun
		}
		if delta == 0 {
			continue
		}

		overrides[f.RuleID] = Clamp(current + delta)
	}

	return overrides
}

// targetCoefficient maps a precision proxy onto the coefficient range.
func targetCoefficient(precision float64) float64 {
	return Clamp(MinCoefficient + precision*(MaxCoefficient-MinCoefficient))
}
