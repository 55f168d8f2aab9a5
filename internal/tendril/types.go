// Package tendril implements the persistent registry of named intent
// records ("tendrils") and the trigram-resonance matching that runs every
// incoming text against them.
package tendril

import "time"

// #region constants

// Canonical matching constants. Tier cutoffs and bonuses are load-bearing
// for compatibility and are pinned verbatim in tests.
const (
	// DefaultCharge is stored when no (or an invalid) charge is supplied.
	DefaultCharge float32 = 0.7
	// NoiseFloor drops resonances below it from recorded match events.
	NoiseFloor float32 = 0.10
	// SignificantThreshold gates LastMatchedAt updates and ping emission.
	SignificantThreshold float32 = 0.45

	// TagBonusPerTag is added per tendril tag found in the query text.
	TagBonusPerTag float32 = 0.05
	// TagBonusCap bounds the total tag bonus.
	TagBonusCap float32 = 0.15
	// RecencyBonusHour applies when the tendril was created or matched
	// within the last hour; RecencyBonusDay within the last day.
	RecencyBonusHour float32 = 0.05
	RecencyBonusDay  float32 = 0.02

	// recentWindow bounds the in-memory match-event window scanned by
	// Convergences.
	recentWindow = 256
)

// #endregion constants

// #region owner

// Owner identifies which side of the dialogue planted a tendril.
type Owner string

const (
	OwnerHuman Owner = "human"
	OwnerAI    Owner = "ai"
)

// #endregion owner

// #region tendril

// Tendril is one named, weighted intent record. Records are never
// physically deleted; Archived is a soft-delete flag.
type Tendril struct {
	ID            string     `json:"id"`
	Owner         Owner      `json:"owner"`
	IntentText    string     `json:"intent_text"`
	Tags          []string   `json:"tags,omitempty"`
	Charge        float32    `json:"charge"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMatchedAt *time.Time `json:"last_matched_at,omitempty"`
	Archived      bool       `json:"archived"`
}

// ChargeOptions carries the optional fields of a Charge call. A nil or NaN
// Charge falls back to DefaultCharge; out-of-range values are clamped.
type ChargeOptions struct {
	Tags   []string
	Charge *float32
}

// ListFilter selects tendrils for List.
type ListFilter struct {
	Owner      *Owner
	ActiveOnly bool
}

// #endregion tendril

// #region tiers

// Tier is the discrete resonance classification.
type Tier string

const (
	TierUnison   Tier = "unison"   // >= 0.85
	TierHarmonic Tier = "harmonic" // >= 0.65
	TierResonant Tier = "resonant" // >= 0.45
	TierFaint    Tier = "faint"    // >= 0.25
	TierMinimal  Tier = "minimal"
)

// TierOf classifies a resonance strength by the fixed cutoffs.
func TierOf(strength float32) Tier {
	switch {
	case strength >= 0.85:
		return TierUnison
	case strength >= 0.65:
		return TierHarmonic
	case strength >= 0.45:
		return TierResonant
	case strength >= 0.25:
		return TierFaint
	default:
		return TierMinimal
	}
}

// #endregion tiers

// #region events

// ResonanceDetail breaks a resonance into its components for the audit log.
type ResonanceDetail struct {
	BaseSimilarity   float32 `json:"base_similarity"`
	ChargeMultiplier float32 `json:"charge_multiplier"`
	TagBonus         float32 `json:"tag_bonus"`
	RecencyBonus     float32 `json:"recency_bonus"`
}

// Resonance is one tendril's similarity-weighted score for one input.
type Resonance struct {
	TendrilID string          `json:"tendril_id"`
	Strength  float32         `json:"strength"`
	Tier      Tier            `json:"tier"`
	Detail    ResonanceDetail `json:"detail"`
}

// PulseMeta carries event metadata through Pulse.
type PulseMeta struct {
	InputType string
	Source    string
}

// MatchEvent ("pulse") is the immutable record of one matching pass.
type MatchEvent struct {
	ID         string      `json:"id"`
	InputText  string      `json:"input_text"`
	InputType  string      `json:"input_type,omitempty"`
	Source     string      `json:"source,omitempty"`
	At         time.Time   `json:"at"`
	Resonances []Resonance `json:"resonances"`
}

// ConvergenceEvent records simultaneous above-threshold resonance across
// multiple tendrils for a single input.
type ConvergenceEvent struct {
	ID              string    `json:"id"`
	TendrilIDs      []string  `json:"tendril_ids"`
	MeanResonance   float32   `json:"mean_resonance"`
	At              time.Time `json:"at"`
	CoherenceAtTime float32   `json:"coherence_at_time"`
}

// SearchHit is one ranked full-text search result.
type SearchHit struct {
	Tendril Tendril
	Score   float32
}

// #endregion events

// #region sink

// EventSink receives immutable events for durable append-only storage.
type EventSink interface {
	AppendPulse(MatchEvent) error
}

// #endregion sink
