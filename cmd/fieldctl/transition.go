package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// #region initiate

func initiateTransitionCmd() *cobra.Command {
	var label string
	var confirm bool
	cmd := &cobra.Command{
		Use:   "initiate-transition",
		Short: "Arm the transition state machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, eventLog, err := openField()
			if err != nil {
				return err
			}
			defer eventLog.Close()

			if !confirm {
				fmt.Print("initiate a transition? [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
					fmt.Println("aborted")
					return nil
				}
			}

			if err := d.InitiateTransition(label); err != nil {
				return err
			}
			st := d.Status()
			fmt.Printf("transition %q initiated", st.Label)
			if len(st.TargetSignature) > 0 {
				fmt.Printf(" (signature: %s)", strings.Join(st.TargetSignature, ", "))
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "transition label (defaults to the tag signature)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "skip the confirmation prompt")
	return cmd
}

// #endregion initiate
