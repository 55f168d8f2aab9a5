package analyzer

import (
	"github.com/ninthwave/resonance-field/internal/fieldmath"
	"github.com/ninthwave/resonance-field/internal/patterns"
)

// #region semantic

// AnalyzeSemantic builds the optional semantic/anti-pattern analysis fed to
// score fusion. Overall approximates depth-of-engagement as a blend of
// emotional intensity and novelty; anti-pattern detections are named
// booleans keyed by group name.
func (a *Analyzer) AnalyzeSemantic(text string) SemanticAnalysis {
	sem := SemanticAnalysis{
		Overall:      clamp(0.6*fieldmath.EmotionalIntensity(text) + 0.4*fieldmath.Novelty(text)),
		AntiPatterns: make(map[string]bool),
	}
	for _, h := range a.lib.Find(patterns.AntiPattern, text) {
		sem.AntiPatterns[h.Group] = true
	}
	return sem
}

// #endregion semantic
