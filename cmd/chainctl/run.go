package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/chain"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/chainfile"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/config"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/signal"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/state"
)

var (
	runModel       string
	runVarFlags    []string
	runTopic       string
	runMaxAttempts int
	runBackoff     time.Duration
	runNoSave      bool
	runDebug       bool
	runShowSteps   bool
)

var runCmd = &cobra.Command{
	Use:   "run <chain-file>",
	Short: "Run a prompt chain from a YAML file",
	Long: `Run the steps of a chain file in order against one model.

Each step template may reference chain variables ({{name}}), earlier step
outputs ({{output[-1]}}, {{output[-2].field}}), and stored artifacts
({{artifact:topic:name}}). Step outputs are saved as artifacts under the
chain's topic unless --no-save is given.

Examples:
  chainctl run chains/report.yaml
  chainctl run chains/report.yaml --var topic=mars --model claude-sonnet-4-20250514
  chainctl run chains/report.yaml --steps`,
	Args: cobra.ExactArgs(1),
	RunE: runChain,
}

func init() {
	runCmd.Flags().StringVar(&runModel, "model", "", "Model to use (overrides config)")
	runCmd.Flags().StringArrayVar(&runVarFlags, "var", nil, "Chain variable as key=value (repeatable)")
	runCmd.Flags().StringVar(&runTopic, "topic", "", "Artifact topic (overrides the chain file)")
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "Per-step retry budget (overrides config)")
	runCmd.Flags().DurationVar(&runBackoff, "backoff", 0, "Linear backoff unit between retries (overrides config)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist step outputs as artifacts")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Write a step-level debug log under .chainctl/logs")
	runCmd.Flags().BoolVar(&runShowSteps, "steps", false, "Print every intermediate step result")
}

func runChain(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ch, err := chainfile.Load(args[0])
	if err != nil {
		return err
	}

	cliVars, err := parseVarFlags(runVarFlags)
	if err != nil {
		return err
	}
	vars := mergeVars(ch.Variables, cliVars)

	topic := ch.Topic
	if runTopic != "" {
		topic = runTopic
	}

	client, err := newBackendClient(cfg, runModel)
	if err != nil {
		return err
	}

	opts := chain.Options{
		MaxAttempts: cfg.Defaults.MaxAttempts,
		BackoffUnit: cfg.Defaults.BackoffUnit,
	}
	if runMaxAttempts > 0 {
		opts.MaxAttempts = runMaxAttempts
	}
	if runBackoff > 0 {
		opts.BackoffUnit = runBackoff
	}

	if !runNoSave && topic != "" {
		store, err := openArtifacts(cfg)
		if err != nil {
			return fmt.Errorf("opening artifact store: %w", err)
		}
		opts.Store = store
		opts.Topic = topic
	}

	signals, err := signal.NewManager(chainctlDir())
	if err == nil {
		signals.Clear()
		defer signals.Close()
		opts.Signals = signals
	}

	if runDebug {
		logger := chain.NewDebugLoggerForProject(projectRoot())
		defer logger.Close()
		opts.Logger = logger
	}

	runner := chain.NewRunner(client, opts)

	fmt.Printf("Running %s (%d steps) with %s\n\n", chainName(ch, args[0]), len(ch.Steps), client.Model())

	res, runErr := runner.Run(context.Background(), vars, ch.Steps)

	if res != nil {
		printRun(res, runErr)
		recordRun(res, ch, topic, string(client.Model()), runErr)
	}

	return runErr
}

// chainName falls back to the file path when the chain has no name.
func chainName(ch *chainfile.Chain, path string) string {
	if ch.Name != "" {
		return ch.Name
	}
	return path
}

// printRun prints step results and the run summary.
func printRun(res *chain.RunResult, runErr error) {
	if runShowSteps {
		for i, r := range res.Results {
			fmt.Println(color.CyanString("── step %d (%s) ──", i+1, res.Trace.Entries[i].Role))
			fmt.Println(r.String())
			fmt.Println()
		}
	} else if n := len(res.Results); n > 0 {
		fmt.Println(res.Results[n-1].String())
		fmt.Println()
	}

	switch {
	case runErr == nil:
		fmt.Printf("%s run %s complete (%d steps, %d tokens)\n",
			color.GreenString("✓"), res.RunID, len(res.Results), res.Trace.TotalTokens)
	case errors.Is(runErr, chain.ErrStopped):
		fmt.Printf("%s run %s stopped after %d steps\n",
			color.YellowString("⚠"), res.RunID, len(res.Results))
	default:
		fmt.Printf("%s run %s failed after %d steps: %v\n",
			color.RedString("✗"), res.RunID, len(res.Results), runErr)
	}
}

// recordRun stores the trace in the project history database. History is
// best effort: a failure here never fails the run.
func recordRun(res *chain.RunResult, ch *chainfile.Chain, topic, model string, runErr error) {
	db, err := state.OpenProject(projectRoot())
	if err != nil {
		fmt.Printf("%s run history unavailable: %v\n", color.YellowString("⚠"), err)
		return
	}
	defer db.Close()

	status := "completed"
	switch {
	case errors.Is(runErr, chain.ErrStopped):
		status = "stopped"
	case runErr != nil:
		status = "failed"
	}

	if err := db.RecordRun(res.RunID, ch.Name, topic, model, status, res.Trace); err != nil {
		fmt.Printf("%s recording run history: %v\n", color.YellowString("⚠"), err)
	}
}
