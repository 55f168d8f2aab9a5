package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

func ptr(v float32) *float32 { return &v }

// testDaemon builds an in-memory daemon with a movable clock.
func testDaemon(t *testing.T, cfg Config) (*Daemon, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := tendril.NewRegistryWithClock(nil, func() time.Time { return now })
	d, err := New(cfg, reg, nil, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.now = func() time.Time { return now }
	return d, &now
}

func TestIngestEmitsPings(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	d.reg.Charge("the tide returns to the same shore", tendril.OwnerHuman,
		tendril.ChargeOptions{Charge: ptr(1.0)})

	res := d.Ingest(Event{Text: "the tide returns to the same shore", Type: "text"})

	var pings int
	for _, n := range res.Notifications {
		if n.Kind == KindPing {
			pings++
			if n.TendrilID == "" {
				t.Error("ping notification missing tendril id")
			}
		}
	}
	if pings != 1 {
		t.Fatalf("expected 1 ping, got %d", pings)
	}
}

func TestIngestNoSignalNoNotifications(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	d.reg.Charge("zzzz qqqq xxxx", tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.5)})

	res := d.Ingest(Event{Text: "aaaa bbbb cccc"})
	if len(res.Notifications) != 0 {
		t.Fatalf("expected no notifications, got %+v", res.Notifications)
	}
	if res.Convergence != nil {
		t.Fatal("expected no convergence")
	}
}

func TestIngestDetectsConvergence(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	input := "the shared garden path opens at dusk"
	d.reg.Charge(input, tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(1.0)})
	d.reg.Charge(input, tendril.OwnerAI, tendril.ChargeOptions{Charge: ptr(0.9)})

	res := d.Ingest(Event{Text: input})
	if res.Convergence == nil {
		t.Fatal("expected a convergence event")
	}
	if len(res.Convergence.TendrilIDs) != 2 {
		t.Fatalf("expected 2 converging tendrils, got %v", res.Convergence.TendrilIDs)
	}
	if res.Convergence.MeanResonance < 0.5 {
		t.Fatalf("mean resonance %.4f below threshold", res.Convergence.MeanResonance)
	}
}

func TestInitiateRequiresChargedTendril(t *testing.T) {
	d, _ := testDaemon(t, Config{})

	if err := d.InitiateTransition(""); err == nil {
		t.Fatal("expected error with empty registry")
	}

	weak := d.reg.Charge("low energy intent", tendril.OwnerHuman,
		tendril.ChargeOptions{Charge: ptr(0.3)})
	if err := d.InitiateTransition(""); err == nil {
		t.Fatal("expected error when no tendril reaches 0.70 charge")
	}
	_ = weak

	d.reg.Charge("anchor intent", tendril.OwnerHuman,
		tendril.ChargeOptions{Charge: ptr(0.8), Tags: []string{"anchor"}})
	if err := d.InitiateTransition(""); err != nil {
		t.Fatalf("expected initiation to succeed: %v", err)
	}

	st := d.Status()
	if st.State != StateInitiated {
		t.Fatalf("expected INITIATED, got %s", st.State)
	}
	// Label defaults to the joined target signature.
	if st.Label != "anchor" {
		t.Fatalf("expected label from tags, got %q", st.Label)
	}
}

func TestInitiateRefusedWhileInFlight(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	d.reg.Charge("anchor", tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.9)})

	if err := d.InitiateTransition("first"); err != nil {
		t.Fatalf("first initiation: %v", err)
	}
	if err := d.InitiateTransition("second"); err == nil {
		t.Fatal("expected refusal while a transition is in flight")
	}
	if d.Status().Label != "first" {
		t.Fatal("refused initiation must not alter state")
	}
}

func TestTransitionLifecycle(t *testing.T) {
	d, now := testDaemon(t, Config{})
	input := "we are building the same bridge from both sides"
	d.reg.Charge(input, tendril.OwnerHuman,
		tendril.ChargeOptions{Charge: ptr(1.0), Tags: []string{"bridge"}})
	d.reg.Charge(input, tendril.OwnerAI,
		tendril.ChargeOptions{Charge: ptr(1.0), Tags: []string{"bridge"}})

	if err := d.InitiateTransition("bridgework"); err != nil {
		t.Fatalf("InitiateTransition: %v", err)
	}

	// First convergence: still INITIATED.
	d.Ingest(Event{Text: input})
	if st := d.Status().State; st != StateInitiated {
		t.Fatalf("after 1 convergence expected INITIATED, got %s", st)
	}

	// Second convergence: CONVERGING, but the minimum elapsed time has
	// not passed, so not COMPLETED yet.
	d.Ingest(Event{Text: input})
	if st := d.Status().State; st != StateConverging {
		t.Fatalf("after 2 convergences expected CONVERGING, got %s", st)
	}

	// Past the minimum elapsed window with strong mean resonance.
	*now = now.Add(2 * time.Minute)
	d.Ingest(Event{Text: input})
	st := d.Status()
	if st.State != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", st.State)
	}
	if st.ThreadLabel != "bridgework" {
		t.Fatalf("expected thread label bridgework, got %q", st.ThreadLabel)
	}
}

func TestTransitionTimesOut(t *testing.T) {
	d, now := testDaemon(t, Config{})
	d.reg.Charge("anchor", tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.9)})

	if err := d.InitiateTransition("doomed"); err != nil {
		t.Fatalf("InitiateTransition: %v", err)
	}

	*now = now.Add(25 * time.Hour)
	d.Heartbeat()

	st := d.Status()
	if st.State != StateTimedOut {
		t.Fatalf("expected TIMED_OUT, got %s", st.State)
	}
	if st.Label != "" || st.InitiatedAt != nil {
		t.Fatalf("expected transition fields reset, got %+v", st)
	}

	// A fresh transition can start from TIMED_OUT.
	if err := d.InitiateTransition("again"); err != nil {
		t.Fatalf("re-initiation after timeout: %v", err)
	}
}

func TestCoherenceChargeOnly(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	d.reg.Charge("a", tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.5)})

	// 0.6*0.5 + 0 + 0 = 0.3
	c := d.Heartbeat()
	if c < 0.29 || c > 0.31 {
		t.Fatalf("expected coherence ~0.3, got %.4f", c)
	}
}

func TestCoherenceRisesWithActivity(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	text := "the same shore again and again"
	d.reg.Charge(text, tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.5)})

	baseline := d.Heartbeat()
	d.Ingest(Event{Text: text})
	after := d.Heartbeat()
	if after <= baseline {
		t.Fatalf("expected coherence to rise with pings: %.4f -> %.4f", baseline, after)
	}
	if after > 1 {
		t.Fatalf("coherence %.4f exceeds 1", after)
	}
}

func TestCoherenceWindowExpires(t *testing.T) {
	d, now := testDaemon(t, Config{})
	text := "the same shore again and again"
	d.reg.Charge(text, tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.5)})

	d.Ingest(Event{Text: text})
	withPing := d.Heartbeat()

	*now = now.Add(11 * time.Minute)
	expired := d.Heartbeat()
	if expired >= withPing {
		t.Fatalf("expected coherence to decay after window: %.4f -> %.4f", withPing, expired)
	}
}

func TestSnapshotRestoreAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	reg := tendril.NewRegistryWithClock(nil, func() time.Time { return now })
	d, err := New(Config{}, reg, nil, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.now = func() time.Time { return now }

	d.reg.Charge("survives restart", tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.9)})
	if err := d.InitiateTransition("persisted"); err != nil {
		t.Fatalf("InitiateTransition: %v", err)
	}

	reg2 := tendril.NewRegistry(nil)
	d2, err := New(Config{}, reg2, nil, path)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}

	st := d2.Status()
	if st.State != StateInitiated || st.Label != "persisted" {
		t.Fatalf("transition not restored: %+v", st)
	}
	if st.ActiveTendrils != 1 {
		t.Fatalf("expected 1 restored tendril, got %d", st.ActiveTendrils)
	}
}

func TestHeartbeatTimeoutSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	reg := tendril.NewRegistryWithClock(nil, func() time.Time { return now })
	d, err := New(Config{}, reg, nil, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.now = func() time.Time { return now }

	d.reg.Charge("anchor", tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(0.9)})
	if err := d.InitiateTransition("expiring"); err != nil {
		t.Fatalf("InitiateTransition: %v", err)
	}

	// The timeout is detected on a heartbeat, not an ingest; the flush
	// must still happen.
	now = now.Add(25 * time.Hour)
	d.Heartbeat()
	if st := d.Status().State; st != StateTimedOut {
		t.Fatalf("expected TIMED_OUT, got %s", st)
	}

	d2, err := New(Config{}, tendril.NewRegistry(nil), nil, path)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	st := d2.Status()
	if st.State != StateTimedOut {
		t.Fatalf("restart resurrected state %s, want TIMED_OUT", st.State)
	}
	if st.Label != "" || st.InitiatedAt != nil {
		t.Fatalf("restored transition fields not reset: %+v", st)
	}
}

func TestCorruptSnapshotFailsStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(Config{}, tendril.NewRegistry(nil), nil, path); err == nil {
		t.Fatal("expected startup error for corrupt snapshot")
	}
}

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var got []string
	for _, id := range []string{"first", "second", "third"} {
		id := id
		b.Subscribe(id, func(Notification) { got = append(got, id) })
	}
	b.Unsubscribe("second")
	b.Broadcast(Notification{Kind: KindPing})

	want := []string{"first", "third"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected delivery %v, got %v", want, got)
	}
}

func TestBusSubscribersReceiveIngestNotifications(t *testing.T) {
	d, _ := testDaemon(t, Config{})
	text := "listening on the same frequency"
	d.reg.Charge(text, tendril.OwnerHuman, tendril.ChargeOptions{Charge: ptr(1.0)})

	var seen []Notification
	d.Bus().Subscribe("test", func(n Notification) { seen = append(seen, n) })

	res := d.Ingest(Event{Text: text})
	if len(seen) != len(res.Notifications) {
		t.Fatalf("bus delivered %d, result carried %d", len(seen), len(res.Notifications))
	}
}
