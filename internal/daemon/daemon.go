package daemon

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ninthwave/resonance-field/internal/store"
	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region daemon-struct

// Daemon serializes all field activity under one mutex: event ingestion,
// transition control, heartbeats, and snapshot flushes. The event log and
// snapshot path are optional; with both absent the daemon runs purely in
// memory.
type Daemon struct {
	mu  sync.Mutex
	cfg Config
	reg *tendril.Registry
	log *store.EventLog
	bus *Bus

	snapshotPath string

	state           TransitionState
	label           string
	targetSignature []string
	initiatedAt     *time.Time
	threadLabel     string

	// trailing windows feeding field coherence
	pings        []time.Time
	convergences []time.Time
	// convergences observed since the current transition was initiated
	sinceStart []tendril.ConvergenceEvent

	flushFailures int
	now           func() time.Time
}

// #endregion daemon-struct

// #region constructor

// New builds a daemon around a registry. If snapshotPath names an existing
// snapshot it is restored into the registry and transition machine; a
// corrupt snapshot is a startup error.
func New(cfg Config, reg *tendril.Registry, eventLog *store.EventLog, snapshotPath string) (*Daemon, error) {
	d := &Daemon{
		cfg:          cfg.withDefaults(),
		reg:          reg,
		log:          eventLog,
		bus:          NewBus(),
		snapshotPath: snapshotPath,
		state:        StateIdle,
		now:          time.Now,
	}

	if snapshotPath != "" {
		snap, ok, err := store.LoadSnapshot(snapshotPath)
		if err != nil {
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		if ok {
			d.restore(snap)
		}
	}
	return d, nil
}

func (d *Daemon) restore(snap store.Snapshot) {
	d.reg.Restore(snap.Tendrils)
	if snap.Transition.State != "" {
		d.state = TransitionState(snap.Transition.State)
	}
	d.label = snap.Transition.Label
	d.targetSignature = snap.Transition.TargetSignature
	d.initiatedAt = snap.Transition.InitiatedAt
	d.threadLabel = snap.Transition.ThreadLabel
}

// NewWithClock builds a daemon with an injected clock, for deterministic
// replay runs.
func NewWithClock(cfg Config, reg *tendril.Registry, eventLog *store.EventLog, snapshotPath string, now func() time.Time) (*Daemon, error) {
	d, err := New(cfg, reg, eventLog, snapshotPath)
	if err != nil {
		return nil, err
	}
	d.now = now
	return d, nil
}

// Bus returns the daemon's notification bus for subscribers.
func (d *Daemon) Bus() *Bus { return d.bus }

// Registry returns the underlying tendril registry.
func (d *Daemon) Registry() *tendril.Registry { return d.reg }

// #endregion constructor

// #region ingest

// Ingest runs one event through the field: pulse the registry, emit pings
// for significant resonances, detect convergence, advance the transition
// machine, and flush the snapshot.
func (d *Daemon) Ingest(ev Event) IngestResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UTC()
	pulse := d.reg.Pulse(ev.Text, tendril.PulseMeta{InputType: ev.Type, Source: ev.Source})

	var notes []Notification
	for _, res := range pulse.Resonances {
		if res.Strength >= tendril.SignificantThreshold {
			d.pings = append(d.pings, now)
			notes = append(notes, Notification{
				Kind:      KindPing,
				Message:   fmt.Sprintf("resonance %.2f (%s)", res.Strength, res.Tier),
				TendrilID: res.TendrilID,
				At:        now,
			})
		}
	}

	var conv *tendril.ConvergenceEvent
	if ids, mean, ok := tendril.Converging(pulse, d.cfg.ConvergenceThreshold, d.cfg.ConvergenceMinCount); ok {
		d.convergences = append(d.convergences, now)
		c := tendril.ConvergenceEvent{
			ID:              "cnv-" + uuid.New().String(),
			TendrilIDs:      ids,
			MeanResonance:   mean,
			At:              now,
			CoherenceAtTime: d.coherence(now),
		}
		conv = &c
		notes = append(notes, Notification{
			Kind:    KindConvergence,
			Message: fmt.Sprintf("%d tendrils converging, mean %.2f", len(ids), mean),
			At:      now,
		})
		if d.state == StateInitiated || d.state == StateConverging {
			d.sinceStart = append(d.sinceStart, c)
		}
		if d.log != nil {
			if err := d.log.AppendConvergence(c); err != nil {
				if err = d.log.AppendConvergence(c); err != nil {
					log.Printf("[DAEMON] convergence append failed after retry: %v", err)
				}
			}
		}
	}

	notes = append(notes, d.advanceTransition(now)...)
	d.persist(now)

	for _, n := range notes {
		d.bus.Broadcast(n)
	}
	return IngestResult{
		Pulse:         pulse,
		Convergence:   conv,
		Notifications: notes,
		Coherence:     d.coherence(now),
	}
}

// #endregion ingest

// #region transition

// InitiateTransition arms the transition machine. Only allowed when no
// transition is in flight, and only when at least one active tendril
// carries enough charge to anchor it.
func (d *Daemon) InitiateTransition(label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateIdle, StateCompleted, StateTimedOut:
	default:
		return fmt.Errorf("transition already in progress (%s)", d.state)
	}

	var anchors []tendril.Tendril
	for _, t := range d.reg.List(tendril.ListFilter{ActiveOnly: true}) {
		if t.Charge >= d.cfg.InitiationMinCharge {
			anchors = append(anchors, t)
		}
	}
	if len(anchors) == 0 {
		return fmt.Errorf("no active tendril with charge >= %.2f", d.cfg.InitiationMinCharge)
	}

	tagSet := make(map[string]bool)
	for _, t := range anchors {
		for _, tag := range t.Tags {
			tagSet[tag] = true
		}
	}
	signature := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		signature = append(signature, tag)
	}
	sort.Strings(signature)

	if label == "" {
		if len(signature) > 0 {
			label = strings.Join(signature, "+")
		} else {
			label = "transition"
		}
	}

	now := d.now().UTC()
	d.state = StateInitiated
	d.label = label
	d.targetSignature = signature
	d.initiatedAt = &now
	d.sinceStart = nil

	d.persist(now)
	d.bus.Broadcast(Notification{
		Kind:    KindTransition,
		Message: fmt.Sprintf("transition %q initiated", label),
		At:      now,
	})
	return nil
}

// advanceTransition moves the state machine; callers hold mu.
func (d *Daemon) advanceTransition(now time.Time) []Notification {
	var notes []Notification

	if (d.state == StateInitiated || d.state == StateConverging) &&
		d.initiatedAt != nil && now.Sub(*d.initiatedAt) >= d.cfg.TransitionTimeout {
		label := d.label
		d.state = StateTimedOut
		d.label = ""
		d.targetSignature = nil
		d.initiatedAt = nil
		d.sinceStart = nil
		return append(notes, Notification{
			Kind:    KindTransition,
			Message: fmt.Sprintf("transition %q timed out", label),
			At:      now,
		})
	}

	if d.state == StateInitiated && len(d.sinceStart) >= d.cfg.ConvergenceMinCount {
		d.state = StateConverging
		notes = append(notes, Notification{
			Kind:    KindTransition,
			Message: fmt.Sprintf("transition %q converging", d.label),
			At:      now,
		})
	}

	if d.state == StateConverging && d.initiatedAt != nil &&
		now.Sub(*d.initiatedAt) >= d.cfg.MinTransitionElapsed {
		var sum float32
		for _, c := range d.sinceStart {
			sum += c.MeanResonance
		}
		mean := sum / float32(len(d.sinceStart))
		if mean >= d.cfg.CompletionMeanResonance {
			d.state = StateCompleted
			d.threadLabel = d.label
			d.sinceStart = nil
			notes = append(notes, Notification{
				Kind:    KindTransition,
				Message: fmt.Sprintf("transition %q completed, mean resonance %.2f", d.label, mean),
				At:      now,
			})
		}
	}
	return notes
}

// #endregion transition

// #region heartbeat

// Heartbeat prunes the coherence windows, checks transition timeout, and
// returns the current field coherence. Heartbeat mutates state, so it
// flushes the snapshot like every other mutation path.
func (d *Daemon) Heartbeat() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UTC()
	notes := d.advanceTransition(now)
	d.persist(now)
	for _, n := range notes {
		d.bus.Broadcast(n)
	}
	return d.coherence(now)
}

// coherence blends mean active charge with recent ping and convergence
// activity; callers hold mu.
func (d *Daemon) coherence(now time.Time) float32 {
	d.pings = pruneWindow(d.pings, now.Add(-d.cfg.CoherenceWindow))
	d.convergences = pruneWindow(d.convergences, now.Add(-d.cfg.CoherenceWindow))

	pingFactor := float32(len(d.pings)) / 20
	if pingFactor > 1 {
		pingFactor = 1
	}
	convFactor := float32(len(d.convergences)) / 5
	if convFactor > 1 {
		convFactor = 1
	}

	c := 0.6*d.reg.MeanActiveCharge() + 0.25*pingFactor + 0.15*convFactor
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

func pruneWindow(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:]
}

// #endregion heartbeat

// #region run

// Run drives the heartbeat loop until ctx is cancelled, then flushes a
// final snapshot.
func (d *Daemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.persist(d.now().UTC())
			d.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			d.Heartbeat()
		}
	}
}

// #endregion run

// Flush forces a snapshot write. Used after out-of-band registry
// mutations, e.g. from the CLI.
func (d *Daemon) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.persist(d.now().UTC())
}

// #region status

// Status reports the daemon's observable state.
func (d *Daemon) Status() StatusReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UTC()
	return StatusReport{
		State:           d.state,
		Label:           d.label,
		ThreadLabel:     d.threadLabel,
		TargetSignature: d.targetSignature,
		InitiatedAt:     d.initiatedAt,
		Coherence:       d.coherence(now),
		ActiveTendrils:  d.reg.ActiveCount(),
		RecentPings:     len(d.pings),
		RecentConvs:     len(d.convergences),
		FlushFailures:   d.flushFailures,
	}
}

// #endregion status

// #region persist

// persist flushes the snapshot, retrying once; callers hold mu. The
// in-memory state stays authoritative when the flush fails.
func (d *Daemon) persist(now time.Time) {
	if d.snapshotPath == "" {
		return
	}
	snap := store.Snapshot{
		SavedAt:  now,
		Tendrils: d.reg.Snapshot(),
		Transition: store.TransitionSnapshot{
			State:           string(d.state),
			Label:           d.label,
			TargetSignature: d.targetSignature,
			InitiatedAt:     d.initiatedAt,
			ThreadLabel:     d.threadLabel,
		},
	}
	if err := store.SaveSnapshot(d.snapshotPath, snap); err != nil {
		if err = store.SaveSnapshot(d.snapshotPath, snap); err != nil {
			d.flushFailures++
			log.Printf("[DAEMON] snapshot flush failed after retry: %v", err)
		}
	}
}

// #endregion persist
