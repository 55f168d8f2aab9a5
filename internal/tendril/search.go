package tendril

import (
	"sort"
	"strings"

	"github.com/ninthwave/resonance-field/internal/fieldmath"
)

// #region search

// Search ranks active tendrils by full-text relevance of their intent text
// against the query: shared non-stopword token ratio plus a small bonus for
// a direct substring hit. Returns at most limit hits, best first.
func (r *Registry) Search(query string, limit int) []SearchHit {
	queryTokens := fieldmath.Tokenize(query)
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if len(queryTokens) == 0 && queryLower == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var hits []SearchHit
	for _, id := range r.sortedIDs() {
		t := r.tendrils[id]
		if t.Archived {
			continue
		}
		score := relevance(queryTokens, queryLower, t.IntentText)
		if score > 0 {
			hits = append(hits, SearchHit{Tendril: *t, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Tendril.ID < hits[j].Tendril.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func relevance(queryTokens []string, queryLower, intentText string) float32 {
	var score float32
	if len(queryTokens) > 0 {
		intentTokens := fieldmath.Tokenize(intentText)
		set := make(map[string]bool, len(intentTokens))
		for _, tok := range intentTokens {
			set[tok] = true
		}
		shared := 0
		for _, tok := range queryTokens {
			if set[tok] {
				shared++
			}
		}
		score = float32(shared) / float32(len(queryTokens))
	}
	if queryLower != "" && strings.Contains(strings.ToLower(intentText), queryLower) {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}
	return score
}

// #endregion search
