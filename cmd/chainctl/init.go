package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initForce       bool
	initWithConfig  bool
	initWithExample bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a chainctl project",
	Long: `Initialize a directory for use with chainctl.

This command sets up everything needed to run chains:
  - Creates the .chainctl directory structure (artifacts, logs, signals)
  - Updates .gitignore when the directory is a git repository
  - Optionally creates a .chainctl.yaml template and an example chain

The directory argument is optional and defaults to the current directory.

Examples:
  chainctl init                  # Initialize current directory
  chainctl init ./myproject      # Initialize specific directory
  chainctl init --with-config    # Also create .chainctl.yaml
  chainctl init --with-example   # Also create chains/example.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create a .chainctl.yaml template")
	initCmd.Flags().BoolVar(&initWithExample, "with-example", false, "Create an example chain under chains/")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing chainctl in %s...\n\n", absPath)

	projectDir := filepath.Join(absPath, projectDirName)
	if _, err := os.Stat(projectDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, sub := range []string{"artifacts", "logs", "signals"} {
		if err := os.MkdirAll(filepath.Join(projectDir, sub), 0755); err != nil {
			return fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}
	printStatus("✓", "Created .chainctl directory structure", color.FgGreen)

	if _, err := os.Stat(filepath.Join(absPath, ".git")); err == nil {
		if err := updateGitignore(absPath); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
		printStatus("✓", "Updated .gitignore with chainctl entries", color.FgGreen)
	}

	if initWithConfig {
		if err := createProjectConfig(absPath); err != nil {
			return fmt.Errorf("creating project config: %w", err)
		}
		printStatus("✓", "Created .chainctl.yaml template", color.FgGreen)
	}

	if initWithExample {
		if err := createExampleChain(absPath); err != nil {
			return fmt.Errorf("creating example chain: %w", err)
		}
		printStatus("✓", "Created chains/example.yaml", color.FgGreen)
	}

	fmt.Printf("\n%s chainctl initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Run a chain:")
	if initWithExample {
		fmt.Println("     chainctl run chains/example.yaml")
	} else {
		fmt.Println("     chainctl run your-chain.yaml")
	}
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     chainctl --help")

	return nil
}

// updateGitignore adds chainctl entries to .gitignore if not present.
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	entries := []string{
		".chainctl/logs/",
		".chainctl/signals/",
		".chainctl/history.db*",
	}

	needsUpdate := false
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}

	newContent.WriteString("\n# chainctl\n")
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// createProjectConfig creates a .chainctl.yaml template.
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".chainctl.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil // Already exists, don't overwrite
	}

	template := `# chainctl project configuration
# This file overrides defaults from ~/.config/chainctl/config.yaml

# anthropic:
#   model: claude-sonnet-4-20250514
#   max_tokens: 4096

# defaults:
#   max_attempts: 3
#   backoff_unit: 2s
#   max_workers: 4

# artifacts:
#   dir: .chainctl/artifacts
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// createExampleChain creates chains/example.yaml.
func createExampleChain(repoPath string) error {
	chainsDir := filepath.Join(repoPath, "chains")
	if err := os.MkdirAll(chainsDir, 0755); err != nil {
		return err
	}

	chainPath := filepath.Join(chainsDir, "example.yaml")
	if _, err := os.Stat(chainPath); err == nil {
		return nil
	}

	example := `name: example
topic: moon notes
variables:
  subject: the moon
steps:
  - >-
    You are a planetary scientist. List three interesting facts about
    {{subject}}. Respond in JSON as {"facts": ["..."]}.
  - >-
    You are a teacher. Turn these facts into one short paragraph a
    fifth grader would enjoy: {{output[-1].facts}}
`

	return os.WriteFile(chainPath, []byte(example), 0644)
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
