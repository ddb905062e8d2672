package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/marktwatch/internal/domain"
)

//go:embed schema.sql
var schema string

// History records a summary of every match cycle
type History struct {
	db *sql.DB
}

// NewHistory opens or creates the history database at dbPath
func NewHistory(dbPath string) (*History, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// RecordCycle stores run and its failures. A missing ID is generated.
func (h *History) RecordCycle(run *domain.CycleRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO cycles (id, started_at, finished_at, entries, accepted) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.StartedAt, run.FinishedAt, run.Entries, run.Accepted,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	for i, f := range run.Failures {
		_, err := tx.Exec(
			"INSERT INTO cycle_failures (cycle_id, seq, keyword, message) VALUES (?, ?, ?, ?)",
			run.ID, i, f.Keyword, f.Message,
		)
		if err != nil {
			return fmt.Errorf("insert cycle failure: %w", err)
		}
	}

	return tx.Commit()
}

// ListCycles returns the most recent cycles first
func (h *History) ListCycles(limit int) ([]domain.CycleRun, error) {
	rows, err := h.db.Query(
		"SELECT id, started_at, finished_at, entries, accepted FROM cycles ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var runs []domain.CycleRun
	for rows.Next() {
		var r domain.CycleRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Entries, &r.Accepted); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}

	for i := range runs {
		failures, err := h.cycleFailures(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Failures = failures
	}

	return runs, nil
}

func (h *History) cycleFailures(cycleID string) ([]domain.CycleFailure, error) {
	rows, err := h.db.Query(
		"SELECT keyword, message FROM cycle_failures WHERE cycle_id = ? ORDER BY seq",
		cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cycle failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.CycleFailure
	for rows.Next() {
		var f domain.CycleFailure
		if err := rows.Scan(&f.Keyword, &f.Message); err != nil {
			return nil, fmt.Errorf("scan cycle failure: %w", err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// Clear deletes all recorded cycles
func (h *History) Clear() error {
	if _, err := h.db.Exec("DELETE FROM cycle_failures; DELETE FROM cycles;"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
