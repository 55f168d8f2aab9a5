// Package replay runs recorded event fixtures through the full field
// pipeline in memory, for regression checks and offline analysis of
// tendril and convergence behavior.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string           `json:"description"`
	Tendrils    []FixtureTendril `json:"tendrils"`
	Events      []FixtureEvent   `json:"events"`
}

// FixtureTendril describes one tendril to plant before the run.
type FixtureTendril struct {
	IntentText string   `json:"intent_text"`
	Owner      string   `json:"owner"`
	Tags       []string `json:"tags,omitempty"`
	Charge     *float32 `json:"charge,omitempty"`
}

// FixtureEvent is one recorded input. OffsetSeconds places the event
// relative to the run's start time, so recency and elapsed-time behavior
// replays deterministically.
type FixtureEvent struct {
	Text          string `json:"text"`
	Type          string `json:"type,omitempty"`
	Source        string `json:"source,omitempty"`
	OffsetSeconds int    `json:"offset_seconds"`
}

// #endregion fixture-types

// #region fixture-io

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToChargeOptions converts the fixture fields to registry options.
func (ft *FixtureTendril) ToChargeOptions() tendril.ChargeOptions {
	return tendril.ChargeOptions{Tags: ft.Tags, Charge: ft.Charge}
}

// #endregion fixture-io
