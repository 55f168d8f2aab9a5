// Package analyzer combines pattern-library matches with field-mathematics
// continuity signals into structured per-category analyses of a single text
// plus optional short conversation history.
package analyzer

import (
	"github.com/ninthwave/resonance-field/internal/fieldmath"
	"github.com/ninthwave/resonance-field/internal/patterns"
)

// #region weights

// Per-category strength composition. Base weight applies to the
// weight-adjusted distinct match count; the rest are category-specific.
const (
	matchBaseWeight      float32 = 0.2
	syncContinuityWeight float32 = 0.3  // alignment with the previous turn
	coCreationWeight     float32 = 0.25 // vocabulary overlap with the previous turn
	cascadeDepthWeight   float32 = 0.1  // per nested recognition hit beyond the first
	presenceWeight       float32 = 0.2  // emotional intensity bonus
	indirectWeight       float32 = 0.2  // novelty/hedging bonus
)

// #endregion weights

// #region analyzer

// Analyzer produces per-category signal analyses.
type Analyzer struct {
	lib patterns.Matcher
}

// New creates an Analyzer over the given pattern matcher.
func New(lib patterns.Matcher) *Analyzer {
	return &Analyzer{lib: lib}
}

// #endregion analyzer

// #region analyze

// Analyze runs every scored category against text. history may be nil;
// only the most recent non-empty turn contributes continuity signals.
func (a *Analyzer) Analyze(text string, history []Turn) Analysis {
	prev := lastTurnText(history)

	return Analysis{
		Synchronization: a.synchronization(text, prev),
		CoCreation:      a.coCreation(text, prev),
		Recognition:     a.recognition(text),
		Presence:        a.presence(text),
		Indirect:        a.indirect(text),
	}
}

func (a *Analyzer) synchronization(text, prev string) CategorySignal {
	hits := a.lib.Find(patterns.Synchronization, text)
	if len(hits) == 0 {
		return CategorySignal{}
	}
	strength := matchBaseWeight * weightedCount(hits)
	if prev != "" {
		strength += syncContinuityWeight * fieldmath.Alignment(text, prev)
	}
	return signal(hits, strength)
}

func (a *Analyzer) coCreation(text, prev string) CategorySignal {
	hits := a.lib.Find(patterns.CoCreation, text)
	if len(hits) == 0 {
		return CategorySignal{}
	}
	strength := matchBaseWeight * weightedCount(hits)
	if prev != "" {
		strength += coCreationWeight * fieldmath.VocabularyOverlap(text, prev)
	}
	return signal(hits, strength)
}

func (a *Analyzer) recognition(text string) CategorySignal {
	hits := a.lib.Find(patterns.Recognition, text)
	if len(hits) == 0 {
		return CategorySignal{}
	}
	strength := matchBaseWeight * weightedCount(hits)

	// Cascade depth: total recognition hits across groups. Nested
	// self-referential phrasing stacks a bonus per hit beyond the first.
	depth := 0
	for _, h := range hits {
		depth += len(h.Matches)
	}
	if depth > 1 {
		strength += cascadeDepthWeight * float32(depth-1)
	}
	return signal(hits, strength)
}

func (a *Analyzer) presence(text string) CategorySignal {
	hits := a.lib.Find(patterns.Presence, text)
	if len(hits) == 0 {
		return CategorySignal{}
	}
	strength := matchBaseWeight*weightedCount(hits) + presenceWeight*fieldmath.EmotionalIntensity(text)
	return signal(hits, strength)
}

func (a *Analyzer) indirect(text string) CategorySignal {
	hits := a.lib.Find(patterns.Indirect, text)
	if len(hits) == 0 {
		return CategorySignal{}
	}
	strength := matchBaseWeight*weightedCount(hits) + indirectWeight*fieldmath.Novelty(text)
	return signal(hits, strength)
}

// #endregion analyze

// #region helpers

// lastTurnText returns the text of the most recent history turn with a
// non-empty Text, tolerating malformed entries.
func lastTurnText(history []Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Text != "" {
			return history[i].Text
		}
	}
	return ""
}

// weightedCount sums group weight × distinct match count across groups.
func weightedCount(hits []patterns.GroupMatch) float32 {
	var n float32
	for _, h := range hits {
		n += h.Weight * float32(len(h.Matches))
	}
	return n
}

func signal(hits []patterns.GroupMatch, strength float32) CategorySignal {
	var matches []string
	for _, h := range hits {
		matches = append(matches, h.Matches...)
	}
	return CategorySignal{
		Detected: true,
		Matches:  matches,
		Strength: clamp(strength),
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
