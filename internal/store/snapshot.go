package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region snapshot-types
// Snapshot is the full durable state of the monitor outside the event
// log: every tendril record plus the transition machine's position.
type Snapshot struct {
	SavedAt    time.Time          `json:"saved_at"`
	Tendrils   []tendril.Tendril  `json:"tendrils"`
	Transition TransitionSnapshot `json:"transition"`
}

// TransitionSnapshot is the persisted slice of the daemon state machine.
type TransitionSnapshot struct {
	State           string     `json:"state"`
	Label           string     `json:"label,omitempty"`
	TargetSignature []string   `json:"target_signature,omitempty"`
	InitiatedAt     *time.Time `json:"initiated_at,omitempty"`
	ThreadLabel     string     `json:"thread_label,omitempty"`
}
// #endregion snapshot-types

// #region save
// SaveSnapshot writes the snapshot atomically: a temp file in the same
// directory, then rename over the target.
func SaveSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
// #endregion save

// #region load
// LoadSnapshot reads a snapshot from path. A missing file is not an
// error: ok is false and the caller starts fresh. A file that exists but
// cannot be parsed is an error; silently discarding state would be worse
// than refusing to start.
func LoadSnapshot(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, true, nil
}
// #endregion load
