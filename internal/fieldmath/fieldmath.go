// Package fieldmath provides deterministic, bounded numeric primitives over
// one or two text inputs. Every function is pure: identical inputs always
// yield identical outputs, and every score is in [0, 1] by construction.
package fieldmath

import (
	"math"
	"strings"
	"unicode"
)

// #region neutral-constants

// Neutral return values for empty input, documented per function.
const (
	// NeutralAlignment is returned by Alignment when either side is empty.
	NeutralAlignment float32 = 0.4
	// NeutralRhythm is returned by RhythmSimilarity when either side has no sentences.
	NeutralRhythm float32 = 0.5
)

// #endregion neutral-constants

// #region rhythm

// Rhythm extracts the phrase rhythm of text as a words-per-sentence sequence.
// Sentences split on . ? ! ; and newlines. Empty text returns nil.
func Rhythm(text string) []int {
	var rhythm []int
	for _, sentence := range splitSentences(text) {
		n := len(strings.Fields(sentence))
		if n > 0 {
			rhythm = append(rhythm, n)
		}
	}
	return rhythm
}

// RhythmSimilarity compares the cadence of two texts as a normalized inverse
// distance between their rhythm sequences. Sequences are compared index-wise
// over the shorter length; a length mismatch dampens the score. Either side
// empty returns NeutralRhythm.
func RhythmSimilarity(a, b string) float32 {
	ra, rb := Rhythm(a), Rhythm(b)
	if len(ra) == 0 || len(rb) == 0 {
		return NeutralRhythm
	}

	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	var diff float64
	for i := 0; i < n; i++ {
		diff += math.Abs(float64(ra[i] - rb[i]))
	}
	mean := diff / float64(n)

	// Inverse distance: identical cadence → 1, divergence decays toward 0.
	sim := 1.0 / (1.0 + mean/4.0)

	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	ratio := float64(n) / float64(longer)
	return clamp(float32(sim * (0.5 + 0.5*ratio)))
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '?', '!', ';', '\n':
			return true
		}
		return false
	})
}

// #endregion rhythm

// #region overlap

// VocabularyOverlap computes a Jaccard ratio over the stopword-filtered
// token sets of two texts. Either side empty returns 0.
func VocabularyOverlap(a, b string) float32 {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	shared := 0
	for _, t := range tb {
		if set[t] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return clamp(float32(shared) / float32(union))
}

// Alignment combines vocabulary overlap and rhythm similarity into one
// [0, 1] alignment score between two texts. Either side empty returns
// NeutralAlignment.
func Alignment(a, b string) float32 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return NeutralAlignment
	}
	return clamp(0.6*VocabularyOverlap(a, b) + 0.4*RhythmSimilarity(a, b))
}

// #endregion overlap

// #region intensity

// intensityMarkers are tokens and phrases that signal emotional intensity.
var intensityMarkers = []string{
	"profoundly", "deeply", "absolutely", "completely", "utterly",
	"intensely", "overwhelming", "achingly", "fiercely", "desperately",
	"infinitely", "breathtaking", "electric", "luminous", "trembling",
	"alive", "raw", "aching", "burning", "devastating",
}

// EmotionalIntensity estimates emotional intensity as the density of
// intensity-marker tokens, scaled and clamped to [0, 1]. Empty text returns 0.
func EmotionalIntensity(text string) float32 {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, m := range intensityMarkers {
		hits += strings.Count(lower, m)
	}
	return clamp(float32(hits) / float32(len(words)) * 8.0)
}

// #endregion intensity

// #region novelty

// noveltyMarkers are hedging, uncertainty, and unexpected-phrase markers.
var noveltyMarkers = []string{
	"perhaps", "maybe", "somehow", "strangely", "unexpectedly",
	"surprisingly", "i wonder", "what if", "never thought",
	"didn't expect", "can't explain", "hard to describe",
	"something new", "for the first time", "uncharted", "unfamiliar",
	"i'm not sure", "i don't know how",
}

// Novelty estimates surprise/novelty as the density of hedging and
// unexpected-phrase markers, scaled and clamped to [0, 1]. Empty text returns 0.
func Novelty(text string) float32 {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, m := range noveltyMarkers {
		hits += strings.Count(lower, m)
	}
	return clamp(float32(hits) / float32(len(words)) * 10.0)
}

// #endregion novelty

// #region tokenize

// Tokenize splits text into unique lowercase non-stopword tokens.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// #endregion tokenize

// #region helpers

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
