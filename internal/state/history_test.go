package state

import (
	"path/filepath"
	"testing"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleTrace() models.Trace {
	var tr models.Trace
	tr.Add(models.TraceEntry{
		StepIndex: 0,
		Role:      "planetary_scientist",
		Request:   "Describe Mars. Respond in JSON.",
		Result:    models.StructuredResult(map[string]any{"name": "Mars"}),
		Tokens:    15,
	})
	tr.Add(models.TraceEntry{
		StepIndex: 1,
		Role:      "step_2",
		Request:   "Summarize the previous answer.",
		Result:    models.TextResult("Mars is the fourth planet."),
		Tokens:    12,
	})
	return tr
}

func TestRecordAndListRuns(t *testing.T) {
	db := openTestDB(t)

	tr := sampleTrace()
	if err := db.RecordRun("run-1", "planets", "mars", "claude-a", "completed", tr); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}

	r := runs[0]
	if r.ID != "run-1" {
		t.Errorf("ID = %q, want %q", r.ID, "run-1")
	}
	if r.Name != "planets" || r.Topic != "mars" || r.Backend != "claude-a" {
		t.Errorf("got name=%q topic=%q backend=%q", r.Name, r.Topic, r.Backend)
	}
	if r.Status != "completed" {
		t.Errorf("Status = %q, want completed", r.Status)
	}
	if r.Steps != 2 {
		t.Errorf("Steps = %d, want 2", r.Steps)
	}
	if r.TotalTokens != 27 {
		t.Errorf("TotalTokens = %d, want 27", r.TotalTokens)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestGetRunSteps(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordRun("run-1", "planets", "mars", "", "completed", sampleTrace()); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	steps, err := db.GetRunSteps("run-1")
	if err != nil {
		t.Fatalf("GetRunSteps() error = %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}

	if steps[0].Role != "planetary_scientist" {
		t.Errorf("steps[0].Role = %q", steps[0].Role)
	}
	if steps[0].Result != `{"name":"Mars"}` {
		t.Errorf("steps[0].Result = %q", steps[0].Result)
	}
	if steps[1].Result != "Mars is the fourth planet." {
		t.Errorf("steps[1].Result = %q", steps[1].Result)
	}
	if steps[1].Tokens != 12 {
		t.Errorf("steps[1].Tokens = %d, want 12", steps[1].Tokens)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := db.RecordRun(id, "", "", "", "completed", sampleTrace()); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", id, err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2 (limit)", len(runs))
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordRun("run-1", "", "", "", "completed", sampleTrace()); err != nil {
		t.Fatalf("first RecordRun() error = %v", err)
	}
	if err := db.RecordRun("run-1", "", "", "", "completed", sampleTrace()); err == nil {
		t.Error("expected error recording duplicate run id")
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.RecordRun("run-1", "", "mars", "", "completed", sampleTrace()); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db2.Close()

	runs, err := db2.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Topic != "mars" {
		t.Errorf("reloaded runs = %+v, want one run with topic mars", runs)
	}
}
