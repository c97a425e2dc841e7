// Package scoring computes quantitative quality metrics for draft injects.
//
// Scores are computed unconditionally for every draft attempt, independent
// of the validation verdict, and feed telemetry plus threshold-based soft
// warnings. Every function here is pure over its inputs; the only state is
// the engine's bounded score history, which is owned by exactly one engine
// instance and passed explicitly — never a process-wide global.
package scoring

import (
	"math"

	"github.com/fyrsmithlabs/scenariod/internal/scenario"
)

// Dimension weights for the overall score.
const (
	weightLogical    = 0.30
	weightCausal     = 0.25
	weightCompliance = 0.15
	weightTemporal   = 0.15
	weightAsset      = 0.15
)

// Quality thresholds applied by the critic to the overall score.
const (
	// ThresholdHard: an overall score below this adds a hard error.
	ThresholdHard = 0.70

	// ThresholdWarn: an overall score below this (but at or above
	// ThresholdHard) adds a warning.
	ThresholdWarn = 0.85
)

// maxHistory caps the engine's rolling score history.
const maxHistory = 100

// significanceWindow is how many recent overall scores the rolling
// significance test compares against.
const significanceWindow = 10

// Interval is a confidence interval around the overall score.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Metrics holds the five dimension scores plus derived statistics for one
// draft attempt.
type Metrics struct {
	Logical     float64  `json:"logical"`
	Causal      float64  `json:"causal"`
	Compliance  float64  `json:"compliance"`
	Temporal    float64  `json:"temporal"`
	Asset       float64  `json:"asset"`
	Overall     float64  `json:"overall"`
	Confidence  Interval `json:"confidence"`
	PValue      float64  `json:"p_value"`
	Significant bool     `json:"significant"`
}

// ComplianceResult reports one standard's requirement coverage for a draft,
// as produced by the critic's registered standard validators.
type ComplianceResult struct {
	Standard string   `json:"standard"`
	Met      []string `json:"met"`
	Missing  []string `json:"missing"`
}

// Engine scores drafts and maintains the rolling score history backing the
// confidence interval and significance test.
type Engine struct {
	history []float64
}

// NewEngine creates a scoring engine with empty history.
func NewEngine() *Engine {
	return &Engine{}
}

// HistoryLen returns how many overall scores the engine has recorded.
func (e *Engine) HistoryLen() int {
	return len(e.history)
}

// Score computes metrics for a draft against the accepted inject history,
// then records the overall score in the engine's rolling history.
func (e *Engine) Score(draft scenario.Inject, history []scenario.Inject, compliance []ComplianceResult) Metrics {
	m := Metrics{
		Logical:    logicalScore(draft, history),
		Causal:     causalScore(draft),
		Compliance: complianceScore(compliance),
		Temporal:   temporalScore(draft, history),
		Asset:      assetScore(draft, history),
	}
	m.Overall = clamp01(weightLogical*m.Logical +
		weightCausal*m.Causal +
		weightCompliance*m.Compliance +
		weightTemporal*m.Temporal +
		weightAsset*m.Asset)

	// n counts this attempt plus prior recorded attempts.
	m.Confidence = confidenceInterval(m.Overall, len(e.history)+1)
	m.PValue, m.Significant = significance(m.Overall, tail(e.history, significanceWindow))

	e.record(m.Overall)
	return m
}

func (e *Engine) record(overall float64) {
	e.history = append(e.history, overall)
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
