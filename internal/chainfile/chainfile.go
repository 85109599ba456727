// Package chainfile loads chain definitions from YAML files: the step
// templates, the variable context, and an optional artifact topic.
package chainfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Chain is a runnable chain definition.
type Chain struct {
	// Name labels the chain in history listings.
	Name string `yaml:"name"`
	// Topic, when set, persists each step's result under this topic.
	Topic string `yaml:"topic"`
	// Variables is the immutable variable context for the run.
	Variables map[string]string `yaml:"variables"`
	// Steps are the ordered request templates.
	Steps []string `yaml:"steps"`
}

// Load reads and validates a chain definition file.
func Load(path string) (*Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a chain definition from YAML bytes.
func Parse(data []byte) (*Chain, error) {
	var c Chain
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse chain file: %w", err)
	}

	if len(c.Steps) == 0 {
		return nil, fmt.Errorf("chain file has no steps")
	}
	for i, step := range c.Steps {
		if step == "" {
			return nil, fmt.Errorf("step %d is empty", i+1)
		}
	}

	return &c, nil
}
