package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/artifact"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/config"
)

var artifactShowMeta bool

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Inspect the artifact store",
	Long: `List, read, query, and delete persisted chain outputs.

Artifacts live under .chainctl/artifacts as topic/name JSON pairs and can
be referenced from chain steps as {{artifact:topic:name}}.`,
}

var artifactsListCmd = &cobra.Command{
	Use:   "list [topic]",
	Short: "List topics, or the artifacts of one topic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredStore()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			topics := store.ListTopics()
			if len(topics) == 0 {
				fmt.Println("No artifacts stored.")
				return nil
			}
			for _, topic := range topics {
				fmt.Printf("%s (%d)\n", topic, len(store.ListNames(topic)))
			}
			return nil
		}

		names := store.ListNames(args[0])
		if len(names) == 0 {
			fmt.Printf("No artifacts under topic %q.\n", args[0])
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var artifactsGetCmd = &cobra.Command{
	Use:   "get <topic> <name>",
	Short: "Print one artifact's data as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredStore()
		if err != nil {
			return err
		}

		art, ok := store.GetArtifact(args[0], args[1])
		if !ok {
			return fmt.Errorf("artifact %s:%s not found", args[0], args[1])
		}

		data, err := json.MarshalIndent(art.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding artifact: %w", err)
		}
		fmt.Println(string(data))

		if artifactShowMeta {
			meta, err := json.MarshalIndent(art.Metadata, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding metadata: %w", err)
			}
			fmt.Println(color.CyanString("── metadata ──"))
			fmt.Println(string(meta))
		}
		return nil
	},
}

var artifactsQueryCmd = &cobra.Command{
	Use:   "query <pattern>",
	Short: "List artifact keys matching a wildcard pattern",
	Long: `Match topic:name keys against a pattern where * spans any run of
characters, including separators.

Examples:
  chainctl artifacts query 'mars_report:*'
  chainctl artifacts query '*:planetary_scientist'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredStore()
		if err != nil {
			return err
		}

		keys := store.Query(args[0])
		if len(keys) == 0 {
			fmt.Printf("No artifacts match %q.\n", args[0])
			return nil
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	},
}

var artifactsDeleteCmd = &cobra.Command{
	Use:   "delete <topic> <name>",
	Short: "Delete one artifact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredStore()
		if err != nil {
			return err
		}

		if err := store.Delete(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s:%s\n", color.GreenString("✓"), args[0], args[1])
		return nil
	},
}

func openConfiguredStore() (*artifact.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	store, err := openArtifacts(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}
	return store, nil
}

func init() {
	artifactsGetCmd.Flags().BoolVar(&artifactShowMeta, "meta", false, "Also print the artifact's metadata")

	artifactsCmd.AddCommand(artifactsListCmd)
	artifactsCmd.AddCommand(artifactsGetCmd)
	artifactsCmd.AddCommand(artifactsQueryCmd)
	artifactsCmd.AddCommand(artifactsDeleteCmd)
}
