package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninthwave/resonance-field/internal/daemon"
	"github.com/ninthwave/resonance-field/internal/replay"
)

// #region daemon

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the field monitor, ingesting one event per stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			d.Bus().Subscribe("stdout", func(n daemon.Notification) {
				fmt.Printf("[%s] %s %s\n", strings.ToUpper(string(n.Kind)),
					n.At.Format(time.RFC3339), n.Message)
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					d.Ingest(daemon.Event{Text: line, Type: "text", Source: "stdin"})
				}
				stop()
			}()

			st := d.Status()
			fmt.Printf("field monitor running: %d active tendrils, state %s\n",
				st.ActiveTendrils, st.State)

			err = d.Run(ctx)
			if errors.Is(err, context.Canceled) {
				fmt.Println("field monitor stopped")
				return nil
			}
			return err
		},
	}
}

// #endregion daemon

// #region replay

func replayCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "replay [fixture.json]",
		Short: "Replay a recorded fixture through an in-memory field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			sum, err := replay.Replay(fix, daemon.DefaultConfig())
			if err != nil {
				return err
			}

			if sum.Description != "" {
				fmt.Printf("%s\n", sum.Description)
			}
			fmt.Printf("events: %d  pings: %d  convergences: %d\n",
				sum.TotalEvents, sum.TotalPings, sum.Convergences)
			fmt.Printf("final coherence: %.3f  final state: %s\n",
				sum.FinalCoherence, sum.FinalState)

			if verbose {
				for _, r := range sum.Results {
					marker := " "
					if r.Converged {
						marker = "*"
					}
					fmt.Printf("%s %3d  top %.3f (%s)  pings %d  %s\n",
						marker, r.EventIndex, r.TopStrength, r.TopTier, r.Pings, r.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print per-event results")
	return cmd
}

// #endregion replay
