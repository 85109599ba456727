package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/artifact"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/backend"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/config"
)

const projectDirName = ".chainctl"

// projectRoot returns the directory chainctl treats as the project root.
func projectRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// chainctlDir returns the project-local .chainctl directory.
func chainctlDir() string {
	return filepath.Join(projectRoot(), projectDirName)
}

// openArtifacts opens the configured artifact store, resolving relative
// paths against the project root.
func openArtifacts(cfg *config.Config) (*artifact.Store, error) {
	dir := cfg.Artifacts.Dir
	if dir == "" {
		dir = filepath.Join(projectDirName, "artifacts")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(projectRoot(), dir)
	}
	return artifact.Open(dir)
}

// newBackendClient builds an Anthropic client from the loaded config. The
// model argument, when non-empty, overrides the configured model.
func newBackendClient(cfg *config.Config, model string) (*backend.Client, error) {
	if model == "" {
		model = cfg.Anthropic.Model
	}

	key, err := config.APIKey(cfg)
	if err != nil && !cfg.Anthropic.UseBedrock {
		return nil, err
	}

	return backend.NewClient(backend.ClientConfig{
		Model:         anthropic.Model(model),
		APIKey:        key,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
}

// parseVarFlags turns repeated key=value flags into a variable map.
func parseVarFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// mergeVars overlays CLI variables on top of the chain file's variables.
func mergeVars(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
