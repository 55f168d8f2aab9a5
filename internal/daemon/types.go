// Package daemon runs the field monitor: it ingests events, matches them
// against the tendril registry, emits ping and convergence notifications,
// tracks rolling field coherence, and drives the transition state machine.
package daemon

import (
	"time"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region states

// TransitionState is the daemon's position in the transition lifecycle.
type TransitionState string

const (
	StateIdle       TransitionState = "IDLE"
	StateInitiated  TransitionState = "INITIATED"
	StateConverging TransitionState = "CONVERGING"
	StateCompleted  TransitionState = "COMPLETED"
	StateTimedOut   TransitionState = "TIMED_OUT"
)

// #endregion states

// #region config

// Config carries the daemon's tunables. Zero values are replaced by the
// defaults, so a partially filled Config is usable.
type Config struct {
	// ConvergenceThreshold and ConvergenceMinCount define what counts as
	// a convergence among a pulse's resonances.
	ConvergenceThreshold float32
	ConvergenceMinCount  int

	// InitiationMinCharge is the minimum charge an active tendril needs
	// for a transition to be initiatable.
	InitiationMinCharge float32
	// MinTransitionElapsed must pass after initiation before a
	// transition can complete.
	MinTransitionElapsed time.Duration
	// CompletionMeanResonance is the mean convergence resonance required
	// to complete a transition.
	CompletionMeanResonance float32
	// TransitionTimeout moves any unfinished transition to TIMED_OUT.
	TransitionTimeout time.Duration

	// CoherenceWindow bounds the trailing ping/convergence windows that
	// feed field coherence. Heartbeat is the Run loop tick.
	CoherenceWindow time.Duration
	Heartbeat       time.Duration
}

// DefaultConfig returns the canonical daemon tunables.
func DefaultConfig() Config {
	return Config{
		ConvergenceThreshold:    0.5,
		ConvergenceMinCount:     2,
		InitiationMinCharge:     0.7,
		MinTransitionElapsed:    60 * time.Second,
		CompletionMeanResonance: 0.75,
		TransitionTimeout:       24 * time.Hour,
		CoherenceWindow:         10 * time.Minute,
		Heartbeat:               30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConvergenceThreshold == 0 {
		c.ConvergenceThreshold = d.ConvergenceThreshold
	}
	if c.ConvergenceMinCount == 0 {
		c.ConvergenceMinCount = d.ConvergenceMinCount
	}
	if c.InitiationMinCharge == 0 {
		c.InitiationMinCharge = d.InitiationMinCharge
	}
	if c.MinTransitionElapsed == 0 {
		c.MinTransitionElapsed = d.MinTransitionElapsed
	}
	if c.CompletionMeanResonance == 0 {
		c.CompletionMeanResonance = d.CompletionMeanResonance
	}
	if c.TransitionTimeout == 0 {
		c.TransitionTimeout = d.TransitionTimeout
	}
	if c.CoherenceWindow == 0 {
		c.CoherenceWindow = d.CoherenceWindow
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = d.Heartbeat
	}
	return c
}

// #endregion config

// #region events

// Event is one piece of incoming text to run through the field.
type Event struct {
	Text   string
	Type   string
	Source string
}

// IngestResult reports everything one event produced.
type IngestResult struct {
	Pulse         tendril.MatchEvent
	Convergence   *tendril.ConvergenceEvent
	Notifications []Notification
	Coherence     float32
}

// #endregion events

// #region notifications

// NotificationKind distinguishes the daemon's outbound signals.
type NotificationKind string

const (
	KindPing        NotificationKind = "ping"
	KindConvergence NotificationKind = "convergence"
	KindTransition  NotificationKind = "transition"
)

// Notification is one outbound signal delivered over the bus.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	TendrilID string           `json:"tendril_id,omitempty"`
	At        time.Time        `json:"at"`
}

// #endregion notifications

// #region status

// StatusReport is the daemon's observable state for the status surface.
type StatusReport struct {
	State           TransitionState `json:"state"`
	Label           string          `json:"label,omitempty"`
	ThreadLabel     string          `json:"thread_label,omitempty"`
	TargetSignature []string        `json:"target_signature,omitempty"`
	InitiatedAt     *time.Time      `json:"initiated_at,omitempty"`
	Coherence       float32         `json:"coherence"`
	ActiveTendrils  int             `json:"active_tendrils"`
	RecentPings     int             `json:"recent_pings"`
	RecentConvs     int             `json:"recent_convergences"`
	FlushFailures   int             `json:"flush_failures"`
}

// #endregion status
