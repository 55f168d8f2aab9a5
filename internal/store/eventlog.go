// Package store provides durable persistence for the monitor: an
// append-only SQLite event log for pulses and convergences, and an atomic
// JSON snapshot of registry and daemon state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS pulses (
	id              TEXT PRIMARY KEY,
	input_text      TEXT NOT NULL,
	input_type      TEXT,
	source          TEXT,
	resonances_json TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS convergences (
	id              TEXT PRIMARY KEY,
	tendril_ids     TEXT NOT NULL,
	mean_resonance  REAL NOT NULL,
	coherence       REAL NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS convergence_archive (
	id              TEXT PRIMARY KEY,
	tendril_ids     TEXT NOT NULL,
	mean_resonance  REAL NOT NULL,
	coherence       REAL NOT NULL,
	created_at      TEXT NOT NULL,
	archived_at     TEXT NOT NULL
);
`
// #endregion schema

// ArchiveThreshold is the mean resonance at or above which a convergence
// is additionally copied into the long-term archive.
const ArchiveThreshold float32 = 0.80

// #region eventlog-struct
// EventLog is the append-only record of every matching pass and every
// detected convergence. Rows are never updated or deleted.
type EventLog struct {
	db *sql.DB
}
// #endregion eventlog-struct

// #region constructor
// NewEventLog opens a SQLite database and runs migrations.
func NewEventLog(dbPath string) (*EventLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &EventLog{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (l *EventLog) Close() error {
	return l.db.Close()
}
// #endregion close

// #region append-pulse
// AppendPulse records one match event.
func (l *EventLog) AppendPulse(ev tendril.MatchEvent) error {
	resJSON, err := json.Marshal(ev.Resonances)
	if err != nil {
		return fmt.Errorf("marshal resonances: %w", err)
	}
	_, err = l.db.Exec(
		`INSERT INTO pulses (id, input_text, input_type, source, resonances_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.InputText, ev.InputType, ev.Source, string(resJSON),
		ev.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert pulse: %w", err)
	}
	return nil
}
// #endregion append-pulse

// #region append-convergence
// AppendConvergence records one convergence event. Events whose mean
// resonance reaches ArchiveThreshold are also copied into the archive.
func (l *EventLog) AppendConvergence(ev tendril.ConvergenceEvent) error {
	idsJSON, err := json.Marshal(ev.TendrilIDs)
	if err != nil {
		return fmt.Errorf("marshal tendril ids: %w", err)
	}

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO convergences (id, tendril_ids, mean_resonance, coherence, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.ID, string(idsJSON), ev.MeanResonance, ev.CoherenceAtTime,
		ev.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert convergence: %w", err)
	}

	if ev.MeanResonance >= ArchiveThreshold {
		_, err = tx.Exec(
			`INSERT INTO convergence_archive (id, tendril_ids, mean_resonance, coherence, created_at, archived_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, string(idsJSON), ev.MeanResonance, ev.CoherenceAtTime,
			ev.At.Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("archive convergence: %w", err)
		}
	}

	return tx.Commit()
}
// #endregion append-convergence

// #region query-convergences
// RecentConvergences returns the most recent convergence events, newest first.
func (l *EventLog) RecentConvergences(limit int) ([]tendril.ConvergenceEvent, error) {
	rows, err := l.db.Query(
		`SELECT id, tendril_ids, mean_resonance, coherence, created_at
		 FROM convergences ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list convergences: %w", err)
	}
	defer rows.Close()
	return scanConvergences(rows)
}

// ConvergencesSince returns convergence events recorded at or after t,
// oldest first.
func (l *EventLog) ConvergencesSince(t time.Time) ([]tendril.ConvergenceEvent, error) {
	rows, err := l.db.Query(
		`SELECT id, tendril_ids, mean_resonance, coherence, created_at
		 FROM convergences WHERE created_at >= ? ORDER BY created_at ASC`,
		t.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("convergences since: %w", err)
	}
	defer rows.Close()
	return scanConvergences(rows)
}

func scanConvergences(rows *sql.Rows) ([]tendril.ConvergenceEvent, error) {
	var events []tendril.ConvergenceEvent
	for rows.Next() {
		var ev tendril.ConvergenceEvent
		var idsJSON, createdStr string
		if err := rows.Scan(&ev.ID, &idsJSON, &ev.MeanResonance, &ev.CoherenceAtTime, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &ev.TendrilIDs); err != nil {
			return nil, fmt.Errorf("unmarshal tendril ids: %w", err)
		}
		ev.At, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}
// #endregion query-convergences

// #region query-pulses
// RecentPulses returns the most recent match events, newest first.
func (l *EventLog) RecentPulses(limit int) ([]tendril.MatchEvent, error) {
	rows, err := l.db.Query(
		`SELECT id, input_text, input_type, source, resonances_json, created_at
		 FROM pulses ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pulses: %w", err)
	}
	defer rows.Close()

	var events []tendril.MatchEvent
	for rows.Next() {
		var ev tendril.MatchEvent
		var inputType, source sql.NullString
		var resJSON, createdStr string
		if err := rows.Scan(&ev.ID, &ev.InputText, &inputType, &source, &resJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ev.InputType = inputType.String
		ev.Source = source.String
		if err := json.Unmarshal([]byte(resJSON), &ev.Resonances); err != nil {
			return nil, fmt.Errorf("unmarshal resonances: %w", err)
		}
		ev.At, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}
// #endregion query-pulses

// #region counts
// Counts reports totals for the status surface.
type Counts struct {
	Pulses       int `json:"pulses"`
	Convergences int `json:"convergences"`
	Archived     int `json:"archived"`
}

// Counts returns row totals across all three tables.
func (l *EventLog) Counts() (Counts, error) {
	var c Counts
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM pulses`).Scan(&c.Pulses); err != nil {
		return Counts{}, fmt.Errorf("count pulses: %w", err)
	}
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM convergences`).Scan(&c.Convergences); err != nil {
		return Counts{}, fmt.Errorf("count convergences: %w", err)
	}
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM convergence_archive`).Scan(&c.Archived); err != nil {
		return Counts{}, fmt.Errorf("count archive: %w", err)
	}
	return c, nil
}
// #endregion counts
