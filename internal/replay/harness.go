package replay

import (
	"fmt"
	"time"

	"github.com/ninthwave/resonance-field/internal/daemon"
	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region types

// Result captures the outcome of replaying one event through the field.
type Result struct {
	EventIndex  int
	Text        string
	Resonances  int
	TopStrength float32
	TopTier     tendril.Tier
	Pings       int
	Converged   bool
	Coherence   float32
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Description    string
	TotalEvents    int
	TotalPings     int
	Convergences   int
	FinalCoherence float32
	FinalState     daemon.TransitionState
	Results        []Result
}

// #endregion types

// #region replay

// Replay plants the fixture's tendrils at the run's start time and feeds
// every event through a fresh in-memory daemon at its recorded offset.
// Nothing touches disk; repeated runs over the same fixture produce
// identical summaries.
func Replay(fix *Fixture, cfg daemon.Config) (Summary, error) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	reg := tendril.NewRegistryWithClock(nil, clock)
	d, err := daemon.NewWithClock(cfg, reg, nil, "", clock)
	if err != nil {
		return Summary{}, fmt.Errorf("build daemon: %w", err)
	}

	for _, ft := range fix.Tendrils {
		reg.Charge(ft.IntentText, tendril.Owner(ft.Owner), ft.ToChargeOptions())
	}

	sum := Summary{
		Description: fix.Description,
		TotalEvents: len(fix.Events),
	}
	for i, ev := range fix.Events {
		now = start.Add(time.Duration(ev.OffsetSeconds) * time.Second)
		res := d.Ingest(daemon.Event{Text: ev.Text, Type: ev.Type, Source: ev.Source})

		r := Result{
			EventIndex: i,
			Text:       ev.Text,
			Resonances: len(res.Pulse.Resonances),
			Converged:  res.Convergence != nil,
			Coherence:  res.Coherence,
		}
		if len(res.Pulse.Resonances) > 0 {
			r.TopStrength = res.Pulse.Resonances[0].Strength
			r.TopTier = res.Pulse.Resonances[0].Tier
		}
		for _, n := range res.Notifications {
			if n.Kind == daemon.KindPing {
				r.Pings++
			}
		}
		sum.TotalPings += r.Pings
		if r.Converged {
			sum.Convergences++
		}
		sum.Results = append(sum.Results, r)
	}

	sum.FinalCoherence = d.Heartbeat()
	sum.FinalState = d.Status().State
	return sum, nil
}

// #endregion replay
