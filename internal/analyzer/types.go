package analyzer

import "time"

// #region turn

// Turn is one prior conversation turn. Entries with missing fields are
// tolerated; an empty Text simply contributes no continuity signal.
type Turn struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// #endregion turn

// #region signals

// CategorySignal is the analysis result for one pattern category.
type CategorySignal struct {
	Detected bool     `json:"detected"`
	Matches  []string `json:"matches"`
	Strength float32  `json:"strength"`
}

// Analysis holds the per-category signals for one text input.
type Analysis struct {
	Synchronization CategorySignal `json:"synchronization"`
	CoCreation      CategorySignal `json:"co_creation"`
	Recognition     CategorySignal `json:"recognition"`
	Presence        CategorySignal `json:"presence"`
	Indirect        CategorySignal `json:"indirect"`
}

// SemanticAnalysis is the optional anti-pattern companion consumed by score
// fusion: an overall score plus named boolean detections.
type SemanticAnalysis struct {
	Overall      float32         `json:"overall"`
	AntiPatterns map[string]bool `json:"anti_patterns"`
}

// #endregion signals
