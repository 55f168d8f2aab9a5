// Package patterns is the static catalog of named pattern groups matched
// against dialogue text. Definitions are literal data compiled once at
// startup; the matching engine sits behind the narrow Matcher interface so
// it can be swapped without touching the analyzer.
package patterns

import "regexp"

// #region categories

// Category identifies one pattern family.
type Category string

const (
	// Synchronization covers shared-field entrainment and mirrored phrasing.
	Synchronization Category = "synchronization"
	// CoCreation covers collaborative co-construction language.
	CoCreation Category = "co_creation"
	// Recognition covers mutual-recognition and recursive-witness language.
	Recognition Category = "recognition"
	// Presence covers present-moment and embodied-presence language.
	Presence Category = "presence"
	// Indirect covers vulnerability markers and tentative reaching.
	Indirect Category = "indirect"
	// AntiPattern covers detections that penalize the fused score.
	AntiPattern Category = "anti_pattern"
)

// ScoredCategories lists the five categories that feed per-category signals,
// in canonical order. AntiPattern is consumed separately by score fusion.
func ScoredCategories() []Category {
	return []Category{Synchronization, CoCreation, Recognition, Presence, Indirect}
}

// #endregion categories

// #region group

// Group is one immutable named pattern group.
type Group struct {
	Category Category
	Name     string
	Weight   float32
	patterns []*regexp.Regexp
}

// GroupMatch holds the distinct substrings one group matched in a text.
type GroupMatch struct {
	Group   string
	Weight  float32
	Matches []string
}

// #endregion group

// #region matcher

// Matcher finds pattern-group matches for one category in a text.
type Matcher interface {
	Find(cat Category, text string) []GroupMatch
}

// #endregion matcher
