package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "Prompt-chain runner for Claude",
	Long: `chainctl runs prompt chains: ordered prompt templates where each step
can reference earlier outputs, shared variables, and persisted artifacts.

Core capabilities:
- Resolves {{variable}}, {{output[-N]}}, and {{artifact:topic:name}} references
- Coerces model responses into structured JSON where the prompt asks for it
- Retries transient failures with linear backoff
- Fans a chain out across several models and ranks the answers
- Persists step outputs as queryable artifacts under .chainctl/artifacts`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fanoutCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
