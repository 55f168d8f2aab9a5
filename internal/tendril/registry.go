package tendril

import (
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ninthwave/resonance-field/internal/trigram"
)

// #region registry

// Registry holds all tendrils in memory, guarded by one mutex; mutation is
// serialized. Durable append of match events goes through an optional
// EventSink; a failed append is retried once, then logged, and the
// in-memory state stays authoritative.
type Registry struct {
	mu       sync.Mutex
	tendrils map[string]*Tendril
	vectors  map[string]trigram.Vector // intent-text vectors, keyed by id
	recent   []MatchEvent
	sink     EventSink
	now      func() time.Time
}

// NewRegistry creates an empty registry. sink may be nil (no durable log).
func NewRegistry(sink EventSink) *Registry {
	return &Registry{
		tendrils: make(map[string]*Tendril),
		vectors:  make(map[string]trigram.Vector),
		sink:     sink,
		now:      time.Now,
	}
}

// NewRegistryWithClock creates a registry with an injected clock.
// Used for testing recency bonuses without sleeping.
func NewRegistryWithClock(sink EventSink, now func() time.Time) *Registry {
	r := NewRegistry(sink)
	r.now = now
	return r
}

// #endregion registry

// #region charge

// Charge creates a new tendril. Invalid charge values are clamped or
// defaulted, never rejected; the created record is returned.
func (r *Registry) Charge(intentText string, owner Owner, opts ChargeOptions) Tendril {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &Tendril{
		ID:         "tnd-" + uuid.New().String(),
		Owner:      owner,
		IntentText: intentText,
		Tags:       normalizeTags(opts.Tags),
		Charge:     resolveCharge(opts.Charge),
		CreatedAt:  r.now().UTC(),
	}
	r.tendrils[t.ID] = t
	r.vectors[t.ID] = trigram.New(intentText)
	return *t
}

// resolveCharge clamps a supplied charge; nil or NaN falls back to the default.
func resolveCharge(c *float32) float32 {
	if c == nil || math.IsNaN(float64(*c)) {
		return DefaultCharge
	}
	return clamp(*c)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// #endregion charge

// #region lookup

// Get returns a tendril by id, archived or not. Missing ids report ok=false.
func (r *Registry) Get(id string) (Tendril, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tendrils[id]
	if !ok {
		return Tendril{}, false
	}
	return *t, true
}

// List returns tendrils matching the filter in stable order
// (CreatedAt, then ID).
func (r *Registry) List(filter ListFilter) []Tendril {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Tendril
	for _, t := range r.tendrils {
		if filter.ActiveOnly && t.Archived {
			continue
		}
		if filter.Owner != nil && t.Owner != *filter.Owner {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// #endregion lookup

// #region mutate

// Archive soft-deletes a tendril. Idempotent; false when id is unknown.
// The record stays retrievable by Get and untouched in storage.
func (r *Registry) Archive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tendrils[id]
	if !ok {
		return false
	}
	t.Archived = true
	return true
}

// SetCharge updates a tendril's charge, clamped. False when id is unknown.
func (r *Registry) SetCharge(id string, charge float32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tendrils[id]
	if !ok {
		return false
	}
	t.Charge = clamp(charge)
	return true
}

// #endregion mutate

// #region pulse

// Pulse matches inputText against every active tendril and records one
// immutable MatchEvent holding all resonances above the noise floor.
// Tendrils at or above the significant threshold get LastMatchedAt updated.
func (r *Registry) Pulse(inputText string, meta PulseMeta) MatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	query := trigram.New(inputText)
	queryNorm := trigram.Normalize(inputText)

	var resonances []Resonance
	for _, id := range r.sortedIDs() {
		t := r.tendrils[id]
		if t.Archived {
			continue
		}
		res := r.resonate(t, query, queryNorm, now)
		if res.Strength >= NoiseFloor {
			resonances = append(resonances, res)
		}
	}

	sort.Slice(resonances, func(i, j int) bool {
		if resonances[i].Strength != resonances[j].Strength {
			return resonances[i].Strength > resonances[j].Strength
		}
		return resonances[i].TendrilID < resonances[j].TendrilID
	})

	for _, res := range resonances {
		if res.Strength >= SignificantThreshold {
			at := now
			r.tendrils[res.TendrilID].LastMatchedAt = &at
		}
	}

	event := MatchEvent{
		ID:         "pls-" + uuid.New().String(),
		InputText:  inputText,
		InputType:  meta.InputType,
		Source:     meta.Source,
		At:         now,
		Resonances: resonances,
	}

	r.recent = append(r.recent, event)
	if len(r.recent) > recentWindow {
		r.recent = r.recent[len(r.recent)-recentWindow:]
	}

	if r.sink != nil {
		if err := r.sink.AppendPulse(event); err != nil {
			if err = r.sink.AppendPulse(event); err != nil {
				log.Printf("[REGISTRY] pulse append failed after retry: %v", err)
			}
		}
	}
	return event
}

// resonate computes one tendril's resonance: trigram cosine base times a
// charge multiplier, plus bounded tag and recency bonuses, clamped.
func (r *Registry) resonate(t *Tendril, query trigram.Vector, queryNorm string, now time.Time) Resonance {
	base := trigram.Cosine(query, r.vectors[t.ID])
	chargeMult := 0.5 + t.Charge

	var tagBonus float32
	for _, tag := range t.Tags {
		if strings.Contains(queryNorm, tag) {
			tagBonus += TagBonusPerTag
		}
	}
	if tagBonus > TagBonusCap {
		tagBonus = TagBonusCap
	}

	recency := recencyBonus(t, now)

	strength := clamp(base*chargeMult + tagBonus + recency)
	return Resonance{
		TendrilID: t.ID,
		Strength:  strength,
		Tier:      TierOf(strength),
		Detail: ResonanceDetail{
			BaseSimilarity:   base,
			ChargeMultiplier: chargeMult,
			TagBonus:         tagBonus,
			RecencyBonus:     recency,
		},
	}
}

func recencyBonus(t *Tendril, now time.Time) float32 {
	ref := t.CreatedAt
	if t.LastMatchedAt != nil && t.LastMatchedAt.After(ref) {
		ref = *t.LastMatchedAt
	}
	age := now.Sub(ref)
	switch {
	case age <= time.Hour:
		return RecencyBonusHour
	case age <= 24*time.Hour:
		return RecencyBonusDay
	default:
		return 0
	}
}

// #endregion pulse

// #region convergences

// Convergences scans the recent match-event window for inputs where at
// least minCount distinct tendrils resonate above threshold. The registry
// has no notion of field coherence, so CoherenceAtTime is zero here; the
// daemon fills it on the events it records.
func (r *Registry) Convergences(threshold float32, minCount int) []ConvergenceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ConvergenceEvent
	for _, ev := range r.recent {
		ids, mean, ok := Converging(ev, threshold, minCount)
		if ok {
			out = append(out, ConvergenceEvent{
				ID:            "cnv-" + uuid.New().String(),
				TendrilIDs:    ids,
				MeanResonance: mean,
				At:            ev.At,
			})
		}
	}
	return out
}

// Converging reports whether one match event constitutes a convergence:
// at least minCount distinct tendrils above threshold. Returns the
// qualifying tendril ids and their mean resonance.
func Converging(ev MatchEvent, threshold float32, minCount int) ([]string, float32, bool) {
	if minCount < 1 {
		minCount = 1
	}
	var ids []string
	var sum float32
	for _, res := range ev.Resonances {
		if res.Strength >= threshold {
			ids = append(ids, res.TendrilID)
			sum += res.Strength
		}
	}
	if len(ids) < minCount {
		return nil, 0, false
	}
	return ids, sum / float32(len(ids)), true
}

// #endregion convergences

// #region snapshot

// Snapshot copies all tendril records out for persistence, stable order.
func (r *Registry) Snapshot() []Tendril {
	return r.List(ListFilter{})
}

// Restore replaces the registry contents with persisted records.
func (r *Registry) Restore(tendrils []Tendril) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tendrils = make(map[string]*Tendril, len(tendrils))
	r.vectors = make(map[string]trigram.Vector, len(tendrils))
	for i := range tendrils {
		t := tendrils[i]
		r.tendrils[t.ID] = &t
		r.vectors[t.ID] = trigram.New(t.IntentText)
	}
}

// ActiveCount returns the number of non-archived tendrils.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tendrils {
		if !t.Archived {
			n++
		}
	}
	return n
}

// MeanActiveCharge returns the mean charge across active tendrils, 0 when
// none are active.
func (r *Registry) MeanActiveCharge() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float32
	n := 0
	for _, id := range r.sortedIDs() {
		t := r.tendrils[id]
		if !t.Archived {
			sum += t.Charge
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

// #endregion snapshot

// #region helpers

// sortedIDs returns all tendril ids sorted; callers must hold mu.
func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.tendrils))
	for id := range r.tendrils {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// clamp restricts v to [0, 1].
func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
