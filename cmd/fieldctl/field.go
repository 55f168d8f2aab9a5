package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninthwave/resonance-field/internal/daemon"
	"github.com/ninthwave/resonance-field/internal/fusion"
	"github.com/ninthwave/resonance-field/internal/store"
	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region pulse

func pulseCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "pulse [text]",
		Short: "Run one input through the field and print resonances",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			res := d.Ingest(daemon.Event{
				Text:   strings.Join(args, " "),
				Type:   "text",
				Source: source,
			})
			printPulse(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "event source label")
	return cmd
}

func printPulse(res daemon.IngestResult) {
	if len(res.Pulse.Resonances) == 0 {
		fmt.Println("no resonance above the noise floor")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TENDRIL\tSTRENGTH\tTIER")
	for _, r := range res.Pulse.Resonances {
		fmt.Fprintf(w, "%s\t%.3f\t%s\n", r.TendrilID, r.Strength, r.Tier)
	}
	w.Flush()
	if res.Convergence != nil {
		fmt.Printf("convergence: %d tendrils, mean %.2f\n",
			len(res.Convergence.TendrilIDs), res.Convergence.MeanResonance)
	}
	fmt.Printf("field coherence: %.3f\n", res.Coherence)
}

// #endregion pulse

// #region analyze

func analyzeCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "analyze [text|-]",
		Short: "Score one text through the full analysis pipeline; - reads stdin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			res := fusion.Analyze(text, nil)
			if jsonOutput {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Printf("enhanced strength: %.3f\n", res.EnhancedStrength)
			fmt.Printf("field strength:    %.3f\n", res.FieldStrength)
			for name, v := range res.CompositeMetrics {
				fmt.Printf("  %-20s %.3f\n", name, v)
			}
			for _, insight := range res.Insights {
				fmt.Printf("  - %s\n", insight)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// #endregion analyze

// #region status

func statusCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show field state, coherence, and event totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			st := d.Status()
			counts, err := eventLog.Counts()
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(struct {
					daemon.StatusReport
					Counts interface{} `json:"counts"`
				}{st, counts}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("state:            %s\n", st.State)
			if st.Label != "" {
				fmt.Printf("transition label: %s\n", st.Label)
			}
			if st.ThreadLabel != "" {
				fmt.Printf("thread label:     %s\n", st.ThreadLabel)
			}
			if st.InitiatedAt != nil {
				fmt.Printf("initiated at:     %s\n", st.InitiatedAt.Format(time.RFC3339))
			}
			fmt.Printf("coherence:        %.3f\n", st.Coherence)
			fmt.Printf("active tendrils:  %d\n", st.ActiveTendrils)
			fmt.Printf("pulses logged:    %d\n", counts.Pulses)
			fmt.Printf("convergences:     %d (%d archived)\n", counts.Convergences, counts.Archived)
			if st.FlushFailures > 0 {
				fmt.Printf("flush failures:   %d\n", st.FlushFailures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// #endregion status

// #region watch

func watchConvergenceCmd() *cobra.Command {
	var live bool
	var limit int
	cmd := &cobra.Command{
		Use:   "watch-convergence",
		Short: "Show recent convergences; --live tails new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := resolveEnv()
			if err != nil {
				return err
			}
			eventLog, err := store.NewEventLog(env.dbPath)
			if err != nil {
				return err
			}
			defer eventLog.Close()

			recent, err := eventLog.RecentConvergences(limit)
			if err != nil {
				return err
			}
			for i := len(recent) - 1; i >= 0; i-- {
				printConvergence(recent[i])
			}
			if !live {
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			last := time.Now().UTC()
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					fresh, err := eventLog.ConvergencesSince(last)
					if err != nil {
						return err
					}
					for _, ev := range fresh {
						printConvergence(ev)
						if ev.At.After(last) {
							last = ev.At.Add(time.Nanosecond)
						}
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "keep watching for new convergences")
	cmd.Flags().IntVar(&limit, "limit", 10, "recent convergences to show first")
	return cmd
}

func printConvergence(ev tendril.ConvergenceEvent) {
	fmt.Printf("%s  %d tendrils  mean %.2f  coherence %.2f  [%s]\n",
		ev.At.Format(time.RFC3339), len(ev.TendrilIDs),
		ev.MeanResonance, ev.CoherenceAtTime, strings.Join(ev.TendrilIDs, " "))
}

// #endregion watch
