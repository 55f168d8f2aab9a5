// Package trigram builds character-trigram frequency vectors and compares
// them with cosine similarity. Vectors are the similarity substrate for
// tendril resonance matching.
package trigram

import (
	"math"
	"sort"
	"strings"
)

// #region vector

// Vector maps each 3-rune window of normalized text to its frequency.
type Vector map[string]float32

// Normalize lowercases text, trims it, and collapses whitespace runs to a
// single space. Interior whitespace is kept so trigrams can span word
// boundaries.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// New builds the trigram frequency vector of text. Text shorter than three
// runes after normalization yields an empty vector.
func New(text string) Vector {
	runes := []rune(Normalize(text))
	v := make(Vector)
	for i := 0; i+3 <= len(runes); i++ {
		v[string(runes[i:i+3])]++
	}
	return v
}

// #endregion vector

// #region cosine

// Cosine computes cosine similarity between two trigram vectors.
// Either vector empty returns 0; the division by zero is guarded.
// Accumulation runs over sorted keys so repeated calls are bit-identical.
func Cosine(a, b Vector) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for _, k := range sortedKeys(a) {
		av := float64(a[k])
		normA += av * av
		if bv, ok := b[k]; ok {
			dot += av * float64(bv)
		}
	}
	for _, k := range sortedKeys(b) {
		bv := float64(b[k])
		normB += bv * bv
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	// Equal vectors must score exactly 1.0; sqrt rounding would drift.
	if dot == normA && dot == normB {
		return 1
	}
	sim := float32(dot / denom)
	if sim > 1 {
		sim = 1
	}
	return sim
}

func sortedKeys(v Vector) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion cosine
