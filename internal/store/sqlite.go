package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore archives run records in SQLite. Each record is kept as JSON
// alongside the columns used for filtering; seq preserves insertion order.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates an archive database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			definition_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_definition ON runs(definition_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put upserts run.
func (s *SQLiteStore) Put(run *orchestrator.PipelineRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("store: run has no id")
	}
	record, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("store: encode run %s: %w", run.ID, err)
	}
	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (id, definition_id, outcome, started_at, completed_at, record)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			completed_at = excluded.completed_at,
			record = excluded.record`,
		run.ID,
		run.DefinitionID,
		string(run.Outcome),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		completed,
		string(record),
	)
	if err != nil {
		return fmt.Errorf("store: upsert run %s: %w", run.ID, err)
	}
	return nil
}

// Get loads the record for id.
func (s *SQLiteStore) Get(id string) (*orchestrator.PipelineRun, error) {
	var record string
	err := s.db.QueryRow(`SELECT record FROM runs WHERE id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run %s: %w", id, err)
	}
	return decodeRun(record)
}

// List returns archived runs matching filter, oldest first.
func (s *SQLiteStore) List(filter orchestrator.RunFilter) (*Page, error) {
	var where []string
	var args []any
	if filter.DefinitionID != "" {
		where = append(where, "definition_id = ?")
		args = append(args, filter.DefinitionID)
	}
	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	afterSeq := int64(0)
	if filter.PageToken != "" {
		err := s.db.QueryRow(`SELECT seq FROM runs WHERE id = ?`, filter.PageToken).Scan(&afterSeq)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: invalid page token %q", filter.PageToken)
		}
		if err != nil {
			return nil, fmt.Errorf("store: resolve page token: %w", err)
		}
	}

	var totalBefore int
	countArgs := append(append([]any(nil), args...), afterSeq)
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`+andClause(cond, "seq <= ?"), countArgs...).Scan(&totalBefore); err != nil {
		return nil, fmt.Errorf("store: count runs: %w", err)
	}

	rows, err := s.db.Query(`SELECT record FROM runs`+andClause(cond, "seq > ?")+` ORDER BY seq`, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var matched []orchestrator.PipelineRun
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		run, err := decodeRun(record)
		if err != nil {
			return nil, err
		}
		matched = append(matched, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return paginate(matched, totalBefore, filter.PageSize), nil
}

// andClause appends extra to an optional WHERE clause.
func andClause(cond, extra string) string {
	if cond == "" {
		return " WHERE " + extra
	}
	return cond + " AND " + extra
}

func decodeRun(record string) (*orchestrator.PipelineRun, error) {
	var run orchestrator.PipelineRun
	if err := json.Unmarshal([]byte(record), &run); err != nil {
		return nil, fmt.Errorf("store: decode run: %w", err)
	}
	return &run, nil
}
