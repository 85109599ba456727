package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/backend"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/chain"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/chainfile"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/config"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/fanout"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/tui"
)

var (
	fanoutModels   []string
	fanoutVarFlags []string
	fanoutWorkers  int
	fanoutTUI      bool
	fanoutAll      bool
)

var fanoutCmd = &cobra.Command{
	Use:   "fanout <chain-file>",
	Short: "Run one chain against several models and rank the answers",
	Long: `Run the same chain concurrently against every --model and report
which one produced the best final answer.

Per-model results keep their submission order regardless of which model
finishes first. One model failing does not cancel the others.

Examples:
  chainctl fanout chains/report.yaml --model claude-sonnet-4-20250514 --model claude-opus-4-20250514
  chainctl fanout chains/report.yaml --model a --model b --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runFanout,
}

func init() {
	fanoutCmd.Flags().StringArrayVar(&fanoutModels, "model", nil, "Model to include (repeat for each backend)")
	fanoutCmd.Flags().StringArrayVar(&fanoutVarFlags, "var", nil, "Chain variable as key=value (repeatable)")
	fanoutCmd.Flags().IntVar(&fanoutWorkers, "workers", 0, "Max chains running at once (overrides config)")
	fanoutCmd.Flags().BoolVar(&fanoutTUI, "tui", false, "Show live per-model progress")
	fanoutCmd.Flags().BoolVar(&fanoutAll, "all", false, "Print every model's final answer, not just the winner")
}

func runFanout(cmd *cobra.Command, args []string) error {
	if len(fanoutModels) < 2 {
		return fmt.Errorf("fanout needs at least two --model flags")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ch, err := chainfile.Load(args[0])
	if err != nil {
		return err
	}

	cliVars, err := parseVarFlags(fanoutVarFlags)
	if err != nil {
		return err
	}
	vars := mergeVars(ch.Variables, cliVars)

	handles := make([]backend.Handle, 0, len(fanoutModels))
	for _, model := range fanoutModels {
		client, err := newBackendClient(cfg, model)
		if err != nil {
			return fmt.Errorf("backend %s: %w", model, err)
		}
		handles = append(handles, backend.Handle{ID: model, Backend: client})
	}

	fcfg := fanout.Config{
		MaxWorkers: cfg.Defaults.MaxWorkers,
		ChainOpts: chain.Options{
			MaxAttempts: cfg.Defaults.MaxAttempts,
			BackoffUnit: cfg.Defaults.BackoffUnit,
		},
	}
	if fanoutWorkers > 0 {
		fcfg.MaxWorkers = fanoutWorkers
	}

	ctx := context.Background()

	name := chainName(ch, args[0])

	var res *fanout.Result
	if fanoutTUI {
		res, err = runFanoutTUI(ctx, vars, handles, ch.Steps, "fanout: "+name, fcfg)
	} else {
		fmt.Printf("Fanning %s out to %d models\n\n", name, len(handles))
		res, err = fanout.Run(ctx, vars, handles, ch.Steps, fcfg)
	}
	if err != nil {
		return err
	}

	printFanout(res)
	return nil
}

// runFanoutTUI drives the fan-out behind a live progress display.
func runFanoutTUI(ctx context.Context, vars map[string]string, handles []backend.Handle, steps []string, title string, fcfg fanout.Config) (*fanout.Result, error) {
	names := make([]string, len(handles))
	for i, h := range handles {
		names[i] = h.ID
	}

	program, model := tui.NewProgram(title, names)
	fcfg.OnEvent = func(e fanout.Event) {
		program.Send(tui.EventMsg(e))
	}

	go func() {
		res, err := fanout.Run(ctx, vars, handles, steps, fcfg)
		program.Send(tui.DoneMsg{Result: res, Err: err})
	}()

	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("running progress display: %w", err)
	}
	return model.Result()
}

// printFanout prints the ranking and the winning answer.
func printFanout(res *fanout.Result) {
	for i, name := range res.Names {
		switch {
		case res.Errs[i] != nil:
			fmt.Printf("  %s %-40s %v\n", color.RedString("✗"), name, res.Errs[i])
		case i == res.TopIndex:
			fmt.Printf("  %s %-40s score %.2f  %d tokens  %s\n",
				color.GreenString("✓"), name, res.Scores[i], res.Usage[i].Total(), color.YellowString("← top"))
		default:
			fmt.Printf("  %s %-40s score %.2f  %d tokens\n",
				color.GreenString("✓"), name, res.Scores[i], res.Usage[i].Total())
		}
	}
	fmt.Println()

	if res.TopIndex < 0 {
		fmt.Printf("%s every model failed\n", color.RedString("✗"))
		return
	}

	if fanoutAll {
		for i, results := range res.Results {
			if res.Errs[i] != nil || len(results) == 0 {
				continue
			}
			fmt.Println(color.CyanString("── %s ──", res.Names[i]))
			fmt.Println(results[len(results)-1].String())
			fmt.Println()
		}
	} else {
		fmt.Println(color.CyanString("── %s ──", res.Names[res.TopIndex]))
		fmt.Println(res.Top.String())
	}
}
