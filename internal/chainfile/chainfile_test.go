package chainfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	data := []byte(`
name: ocean report
topic: Ocean Facts
variables:
  grade: "5"
  subject: the ocean
steps:
  - "You are a teacher. Explain {{subject}} to grade {{grade}}."
  - "Summarize as JSON: {{output[-1]}}"
`)

	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Name != "ocean report" {
		t.Errorf("Name = %q", c.Name)
	}
	if c.Topic != "Ocean Facts" {
		t.Errorf("Topic = %q", c.Topic)
	}
	if c.Variables["grade"] != "5" || c.Variables["subject"] != "the ocean" {
		t.Errorf("Variables = %v", c.Variables)
	}
	if len(c.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(c.Steps))
	}
}

func TestParseRejectsEmptyChains(t *testing.T) {
	if _, err := Parse([]byte("name: empty\n")); err == nil {
		t.Error("chain without steps should fail")
	}
	if _, err := Parse([]byte("steps:\n  - \"ok\"\n  - \"\"\n")); err == nil {
		t.Error("chain with an empty step should fail")
	}
	if _, err := Parse([]byte("steps: [not, {valid")); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	if err := os.WriteFile(path, []byte("steps:\n  - hello\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Steps[0] != "hello" {
		t.Errorf("Steps[0] = %q", c.Steps[0])
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}
