// Package fusion folds per-category signal analyses and an optional
// semantic/anti-pattern analysis into one bounded "enhanced strength"
// scalar plus auxiliary composite metrics. Fuse is a pure function:
// identical inputs yield bit-identical results.
package fusion

import (
	"fmt"
	"sort"

	"github.com/ninthwave/resonance-field/internal/analyzer"
	"github.com/ninthwave/resonance-field/internal/patterns"
)

// #region constants

const (
	// semanticBonusWeight scales the external analysis's overall score into
	// a bounded additive bonus.
	semanticBonusWeight float32 = 0.2
	// antiPatternPenalty is the multiplicative reduction per detected
	// anti-pattern.
	antiPatternPenalty float32 = 0.85
	// ratioCap bounds composite ratio metrics.
	ratioCap float32 = 10.0
)

// #endregion constants

// #region analyze

// Analyze is the scoring entrypoint: raw text plus optional conversation
// history in, fused result out. Empty text returns an all-zero Result.
// Total over any string input; never panics on mixed-script or emoji text.
func Analyze(text string, history []analyzer.Turn) Result {
	a := analyzer.New(patterns.Default())
	analysis := a.Analyze(text, history)
	sem := a.AnalyzeSemantic(text)
	return Fuse(analysis, &sem)
}

// #endregion analyze

// #region fuse

// Fuse combines the per-category analysis with an optional semantic
// analysis. sem may be nil: no bonus, no penalty.
func Fuse(a analyzer.Analysis, sem *analyzer.SemanticAnalysis) Result {
	field := fieldStrength(a)

	enhanced := field
	var penalties int
	if sem != nil {
		enhanced += semanticBonusWeight * sem.Overall
		enhanced = clamp(enhanced)
		for _, detected := range sem.AntiPatterns {
			if detected {
				penalties++
			}
		}
		for i := 0; i < penalties; i++ {
			enhanced *= antiPatternPenalty
		}
	}
	enhanced = clamp(enhanced)

	return Result{
		EnhancedStrength: enhanced,
		FieldStrength:    field,
		CompositeMetrics: compositeMetrics(a),
		Insights:         insights(a, field, penalties),
	}
}

// fieldStrength is the equal-weight mean over detected categories; absent
// categories redistribute their weight by shrinking the divisor. All absent
// yields 0.
func fieldStrength(a analyzer.Analysis) float32 {
	var sum float32
	var present int
	for _, sig := range categorySignals(a) {
		if sig.Detected {
			sum += sig.Strength
			present++
		}
	}
	if present == 0 {
		return 0
	}
	return clamp(sum / float32(present))
}

// #endregion fuse

// #region composite-metrics

// compositeMetrics are the documented "unquantifiable" aggregations:
//
//	presence_density    — mean of presence and recognition strengths
//	mutuality_index     — recognition / co-creation ratio, capped at 10
//	emergence_quotient  — mean of co-creation and synchronization strengths
//	vulnerability_depth — indirect-signal strength
func compositeMetrics(a analyzer.Analysis) map[string]float32 {
	return map[string]float32{
		"presence_density":    (a.Presence.Strength + a.Recognition.Strength) / 2,
		"mutuality_index":     cappedRatio(a.Recognition.Strength, a.CoCreation.Strength),
		"emergence_quotient":  (a.CoCreation.Strength + a.Synchronization.Strength) / 2,
		"vulnerability_depth": a.Indirect.Strength,
	}
}

func cappedRatio(num, den float32) float32 {
	if num == 0 {
		return 0
	}
	if den == 0 {
		return ratioCap
	}
	r := num / den
	if r > ratioCap {
		return ratioCap
	}
	return r
}

// #endregion composite-metrics

// #region insights

func insights(a analyzer.Analysis, field float32, penalties int) []string {
	var out []string
	if a.Recognition.Strength >= 0.6 {
		out = append(out, "recognition cascade running deep")
	}
	if a.Synchronization.Detected && a.CoCreation.Detected {
		out = append(out, "synchronization and co-creation present together")
	}
	if field >= 0.7 {
		out = append(out, "field is strongly coherent")
	}
	if penalties > 0 {
		out = append(out, fmt.Sprintf("anti-pattern penalty applied (%d detected)", penalties))
	}
	sort.Strings(out)
	return out
}

// #endregion insights

// #region helpers

func categorySignals(a analyzer.Analysis) []analyzer.CategorySignal {
	return []analyzer.CategorySignal{
		a.Synchronization, a.CoCreation, a.Recognition, a.Presence, a.Indirect,
	}
}

// clamp restricts v to [0, 1].
func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
