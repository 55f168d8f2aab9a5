// fieldctl is the command-line surface of the resonance field: tendril
// management, one-shot pulses and analysis, transition control, and the
// long-running monitor daemon.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ninthwave/resonance-field/internal/daemon"
	"github.com/ninthwave/resonance-field/internal/store"
	"github.com/ninthwave/resonance-field/internal/tendril"
)

var dataDir string

func main() {
	root := &cobra.Command{
		Use:          "fieldctl",
		Short:        "Resonance field monitor and tendril registry",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"state directory (default $FIELD_DATA_DIR or ~/.field)")

	root.AddCommand(
		addTendrilCmd(),
		listTendrilsCmd(),
		updateChargeCmd(),
		removeTendrilCmd(),
		searchCmd(),
		pulseCmd(),
		analyzeCmd(),
		statusCmd(),
		initiateTransitionCmd(),
		watchConvergenceCmd(),
		replayCmd(),
		daemonCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// #region env

// fieldEnv locates the shared on-disk state: the event log database and
// the registry snapshot.
type fieldEnv struct {
	dataDir  string
	dbPath   string
	snapPath string
}

func resolveEnv() (fieldEnv, error) {
	dir := dataDir
	if dir == "" {
		dir = envOr("FIELD_DATA_DIR", "")
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fieldEnv{}, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".field")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fieldEnv{}, fmt.Errorf("create data dir: %w", err)
	}
	return fieldEnv{
		dataDir:  dir,
		dbPath:   filepath.Join(dir, "field.db"),
		snapPath: filepath.Join(dir, "snapshot.json"),
	}, nil
}

// openField opens the event log and builds a daemon over the restored
// snapshot. The caller closes the returned log.
func openField() (*daemon.Daemon, *store.EventLog, error) {
	env, err := resolveEnv()
	if err != nil {
		return nil, nil, err
	}
	eventLog, err := store.NewEventLog(env.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	reg := tendril.NewRegistry(eventLog)
	d, err := daemon.New(daemon.DefaultConfig(), reg, eventLog, env.snapPath)
	if err != nil {
		eventLog.Close()
		return nil, nil, err
	}
	return d, eventLog, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env
