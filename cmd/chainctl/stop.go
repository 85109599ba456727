package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/signal"
)

var stopClear bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask the running chain to stop after its current step",
	Long: `Write a stop signal for the chain running in this project. The
runner checks for it between steps, so the current step finishes first.

Use --clear to remove a stale stop signal instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		signals, err := signal.NewManager(chainctlDir())
		if err != nil {
			return fmt.Errorf("opening signal directory: %w", err)
		}
		defer signals.Close()

		if stopClear {
			signals.Clear()
			fmt.Printf("%s stop signal cleared\n", color.GreenString("✓"))
			return nil
		}

		if err := signals.SendStop(); err != nil {
			return err
		}
		fmt.Printf("%s stop requested; the run ends after its current step\n", color.GreenString("✓"))
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolVar(&stopClear, "clear", false, "Remove a pending stop signal")
}
