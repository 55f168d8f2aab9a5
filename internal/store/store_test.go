package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

func tempLog(t *testing.T) *EventLog {
	t.Helper()
	dir := t.TempDir()
	l, err := NewEventLog(filepath.Join(dir, "field.db"))
	if err != nil {
		t.Fatalf("NewEventLog: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func pulseAt(id string, at time.Time) tendril.MatchEvent {
	return tendril.MatchEvent{
		ID:        id,
		InputText: "input for " + id,
		InputType: "text",
		Source:    "test",
		At:        at,
		Resonances: []tendril.Resonance{
			{TendrilID: "tnd-1", Strength: 0.5, Tier: tendril.TierResonant},
		},
	}
}

func TestAppendPulseRoundTrip(t *testing.T) {
	l := tempLog(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := l.AppendPulse(pulseAt("pls-a", at)); err != nil {
		t.Fatalf("AppendPulse: %v", err)
	}

	got, err := l.RecentPulses(10)
	if err != nil {
		t.Fatalf("RecentPulses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 pulse, got %d", len(got))
	}
	ev := got[0]
	if ev.ID != "pls-a" || ev.InputText != "input for pls-a" || ev.Source != "test" {
		t.Fatalf("round trip mangled event: %+v", ev)
	}
	if !ev.At.Equal(at) {
		t.Fatalf("expected %v, got %v", at, ev.At)
	}
	if len(ev.Resonances) != 1 || ev.Resonances[0].TendrilID != "tnd-1" {
		t.Fatalf("resonances lost: %+v", ev.Resonances)
	}
	if ev.Resonances[0].Tier != tendril.TierResonant {
		t.Fatalf("tier lost: %+v", ev.Resonances[0])
	}
}

func TestRecentPulsesNewestFirst(t *testing.T) {
	l := tempLog(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"pls-1", "pls-2", "pls-3"} {
		if err := l.AppendPulse(pulseAt(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("AppendPulse %s: %v", id, err)
		}
	}

	got, err := l.RecentPulses(2)
	if err != nil {
		t.Fatalf("RecentPulses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pulses, got %d", len(got))
	}
	if got[0].ID != "pls-3" || got[1].ID != "pls-2" {
		t.Fatalf("expected newest first, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestAppendConvergenceArchivesStrongOnes(t *testing.T) {
	l := tempLog(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	weak := tendril.ConvergenceEvent{
		ID: "cnv-weak", TendrilIDs: []string{"tnd-1", "tnd-2"},
		MeanResonance: 0.5, At: at, CoherenceAtTime: 0.3,
	}
	strong := tendril.ConvergenceEvent{
		ID: "cnv-strong", TendrilIDs: []string{"tnd-1", "tnd-3"},
		MeanResonance: 0.9, At: at.Add(time.Minute), CoherenceAtTime: 0.7,
	}
	if err := l.AppendConvergence(weak); err != nil {
		t.Fatalf("AppendConvergence weak: %v", err)
	}
	if err := l.AppendConvergence(strong); err != nil {
		t.Fatalf("AppendConvergence strong: %v", err)
	}

	c, err := l.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c.Convergences != 2 {
		t.Fatalf("expected 2 convergences, got %d", c.Convergences)
	}
	// Only the 0.9 event crosses the 0.80 archive threshold.
	if c.Archived != 1 {
		t.Fatalf("expected 1 archived, got %d", c.Archived)
	}
}

func TestConvergencesSince(t *testing.T) {
	l := tempLog(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"cnv-1", "cnv-2", "cnv-3"} {
		ev := tendril.ConvergenceEvent{
			ID: id, TendrilIDs: []string{"tnd-1", "tnd-2"},
			MeanResonance: 0.6, At: base.Add(time.Duration(i) * time.Hour),
		}
		if err := l.AppendConvergence(ev); err != nil {
			t.Fatalf("AppendConvergence %s: %v", id, err)
		}
	}

	got, err := l.ConvergencesSince(base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ConvergencesSince: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events since cutoff, got %d", len(got))
	}
	if got[0].ID != "cnv-2" || got[1].ID != "cnv-3" {
		t.Fatalf("expected oldest-first cnv-2, cnv-3; got %s, %s", got[0].ID, got[1].ID)
	}
	if len(got[0].TendrilIDs) != 2 {
		t.Fatalf("tendril ids lost: %+v", got[0])
	}
}

func TestRecentConvergencesLimit(t *testing.T) {
	l := tempLog(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := tendril.ConvergenceEvent{
			ID:         "cnv-" + string(rune('a'+i)),
			TendrilIDs: []string{"tnd-1", "tnd-2"},
			At:         base.Add(time.Duration(i) * time.Minute),
		}
		if err := l.AppendConvergence(ev); err != nil {
			t.Fatalf("AppendConvergence: %v", err)
		}
	}
	got, err := l.RecentConvergences(3)
	if err != nil {
		t.Fatalf("RecentConvergences: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0].ID != "cnv-e" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := Snapshot{
		SavedAt: at,
		Tendrils: []tendril.Tendril{{
			ID: "tnd-1", Owner: tendril.OwnerHuman, IntentText: "hold the thread",
			Charge: 0.7, CreatedAt: at, Tags: []string{"thread"},
		}},
		Transition: TransitionSnapshot{
			State:           "CONVERGING",
			Label:           "thread",
			TargetSignature: []string{"thread"},
			InitiatedAt:     &at,
		},
	}
	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, ok, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for existing snapshot")
	}
	if len(got.Tendrils) != 1 || got.Tendrils[0].ID != "tnd-1" {
		t.Fatalf("tendrils lost: %+v", got.Tendrils)
	}
	if got.Transition.State != "CONVERGING" || got.Transition.InitiatedAt == nil {
		t.Fatalf("transition lost: %+v", got.Transition)
	}
	if !got.Transition.InitiatedAt.Equal(at) {
		t.Fatalf("initiated at drifted: %v", got.Transition.InitiatedAt)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, ok, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing file")
	}
}

func TestLoadSnapshotCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := LoadSnapshot(path)
	if err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}

func TestSaveSnapshotOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := SaveSnapshot(path, Snapshot{Transition: TransitionSnapshot{State: "IDLE"}}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := SaveSnapshot(path, Snapshot{Transition: TransitionSnapshot{State: "INITIATED"}}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, ok, err := LoadSnapshot(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Transition.State != "INITIATED" {
		t.Fatalf("expected latest state, got %s", got.Transition.State)
	}
}
