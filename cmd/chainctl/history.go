package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent chain runs",
	Long: `List recent runs from the project history database, newest first.
Use "chainctl history show <run-id>" for a run's full step record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := state.OpenProject(projectRoot())
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, r := range runs {
			mark := color.GreenString("✓")
			switch r.Status {
			case "failed":
				mark = color.RedString("✗")
			case "stopped":
				mark = color.YellowString("⚠")
			}
			name := r.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%s %s  %-20s %-16s %2d steps  %6d tokens  %s\n",
				mark, r.ID, name, r.Topic, r.Steps, r.TotalTokens,
				r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full step record of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := state.OpenProject(projectRoot())
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer db.Close()

		steps, err := db.GetRunSteps(args[0])
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return fmt.Errorf("run %s not found", args[0])
		}

		for _, s := range steps {
			fmt.Println(color.CyanString("── step %d (%s, %d tokens) ──", s.StepIndex+1, s.Role, s.Tokens))
			fmt.Println(color.New(color.Faint).Sprint(s.Request))
			fmt.Println()
			fmt.Println(s.Result)
			fmt.Println()
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyCmd.AddCommand(historyShowCmd)
}
