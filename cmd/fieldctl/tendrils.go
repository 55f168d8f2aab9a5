package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninthwave/resonance-field/internal/tendril"
)

// #region add

func addTendrilCmd() *cobra.Command {
	var owner string
	var tags []string
	var charge float64
	var chargeSet bool

	cmd := &cobra.Command{
		Use:   "add-tendril [intent text]",
		Short: "Plant a new tendril",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			opts := tendril.ChargeOptions{Tags: tags}
			if chargeSet {
				c := float32(charge)
				opts.Charge = &c
			}
			created := d.Registry().Charge(strings.Join(args, " "), tendril.Owner(owner), opts)
			d.Flush()

			fmt.Printf("planted %s (charge %.2f)\n", created.ID, created.Charge)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "human", "tendril owner (human|ai)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags (comma-separated or repeated)")
	cmd.Flags().Float64Var(&charge, "charge", 0, "initial charge [0,1]")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		chargeSet = cmd.Flags().Changed("charge")
	}
	return cmd
}

// #endregion add

// #region list

func listTendrilsCmd() *cobra.Command {
	var all bool
	var owner string

	cmd := &cobra.Command{
		Use:   "list-tendrils",
		Short: "List tendrils",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			filter := tendril.ListFilter{ActiveOnly: !all}
			if owner != "" {
				o := tendril.Owner(owner)
				filter.Owner = &o
			}
			tendrils := d.Registry().List(filter)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOWNER\tCHARGE\tTAGS\tLAST MATCH\tINTENT")
			for _, t := range tendrils {
				last := "never"
				if t.LastMatchedAt != nil {
					last = t.LastMatchedAt.Format(time.RFC3339)
				}
				id := t.ID
				if t.Archived {
					id += " (archived)"
				}
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
					id, t.Owner, t.Charge, strings.Join(t.Tags, ","), last, t.IntentText)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived tendrils")
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	return cmd
}

// #endregion list

// #region update-charge

func updateChargeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-charge [id] [charge]",
		Short: "Set a tendril's charge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			charge, err := strconv.ParseFloat(args[1], 32)
			if err != nil {
				return fmt.Errorf("parse charge %q: %w", args[1], err)
			}
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			if !d.Registry().SetCharge(args[0], float32(charge)) {
				return fmt.Errorf("no tendril %s", args[0])
			}
			d.Flush()
			fmt.Printf("charge of %s set\n", args[0])
			return nil
		},
	}
}

// #endregion update-charge

// #region remove

func removeTendrilCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-tendril [id]",
		Short: "Archive a tendril (soft delete)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			if !d.Registry().Archive(args[0]) {
				return fmt.Errorf("no tendril %s", args[0])
			}
			d.Flush()
			fmt.Printf("archived %s\n", args[0])
			return nil
		},
	}
}

// #endregion remove

// #region search

func searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank active tendrils by intent-text relevance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			hits := d.Registry().Search(strings.Join(args, " "), limit)
			if len(hits) == 0 {
				fmt.Println("no matches")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tID\tINTENT")
			for _, h := range hits {
				fmt.Fprintf(w, "%.2f\t%s\t%s\n", h.Score, h.Tendril.ID, h.Tendril.IntentText)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum hits")
	return cmd
}

// #endregion search
