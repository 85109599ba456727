// Package state provides SQLite-backed run history. Every completed chain
// or fan-out run can be recorded with its trace, and listed later from the
// project database (.chainctl/history.db).
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// DB wraps an SQLite database connection with run-history operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// ProjectDBPath returns the path to the project-local history database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".chainctl", "history.db")
}

// Open opens an SQLite database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// OpenProject opens the project-local history database.
func OpenProject(projectRoot string) (*DB, error) {
	return Open(ProjectDBPath(projectRoot))
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			backend TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			steps INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS run_steps (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			step_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			request TEXT NOT NULL,
			result TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			PRIMARY KEY (run_id, step_index)
		);
	`)
	if err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID          string
	Name        string
	Topic       string
	Backend     string
	Status      string
	Steps       int
	TotalTokens int64
	CreatedAt   time.Time
}

// StepRecord is one persisted trace entry.
type StepRecord struct {
	StepIndex int
	Role      string
	Request   string
	Result    string
	Tokens    int64
}

// RecordRun stores a run summary and its full trace in one transaction.
func (db *DB) RecordRun(runID, name, topic, backendID, status string, trace models.Trace) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, name, topic, backend, status, steps, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, name, topic, backendID, status, trace.Len(), trace.TotalTokens, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, entry := range trace.Entries {
		_, err = tx.Exec(
			`INSERT INTO run_steps (run_id, step_index, role, request, result, tokens)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, entry.StepIndex, entry.Role, entry.Request, entry.Result.String(), entry.Tokens,
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", entry.StepIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(
		`SELECT id, name, topic, backend, status, steps, total_tokens, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.Topic, &r.Backend, &r.Status, &r.Steps, &r.TotalTokens, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := parseTime(createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// GetRunSteps returns the persisted trace of one run in step order.
func (db *DB) GetRunSteps(runID string) ([]StepRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(
		`SELECT step_index, role, request, result, tokens
		 FROM run_steps WHERE run_id = ? ORDER BY step_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var s StepRecord
		if err := rows.Scan(&s.StepIndex, &s.Role, &s.Request, &s.Result, &s.Tokens); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
