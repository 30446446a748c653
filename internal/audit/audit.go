// Package audit persists discovery runs and chat turns to a local SQLite
// file. The store is write-through: callers record as they go and the
// database is always the durable copy, so a stored run can be replayed into
// its report later without re-searching.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/grant-agency/internal/grantsearch"
)

const schema = `
CREATE TABLE IF NOT EXISTS discovery_runs (
	run_id          TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	completed_at    TEXT NOT NULL,
	queries         TEXT NOT NULL DEFAULT '[]',
	total_found     INTEGER NOT NULL DEFAULT 0,
	total_validated INTEGER NOT NULL DEFAULT 0,
	total_saved     INTEGER NOT NULL DEFAULT 0,
	envelope        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_turns (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	intent          TEXT NOT NULL DEFAULT '',
	profile_updated INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_turns_conversation ON chat_turns(conversation_id, id);
`

type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores one completed discovery run, envelope included.
func (s *Store) RecordRun(ctx context.Context, res grantsearch.DiscoveryResult) error {
	envelope, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal run envelope: %w", err)
	}
	queries, _ := json.Marshal(res.Queries)
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO discovery_runs
			(run_id, started_at, completed_at, queries, total_found, total_validated, total_saved, envelope)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.StartedAt.UTC().Format(time.RFC3339),
		res.CompletedAt.UTC().Format(time.RFC3339),
		string(queries),
		res.TotalFound,
		res.TotalValidated,
		len(res.Saved),
		string(envelope),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	return nil
}

// LoadRun returns the stored envelope for one run.
func (s *Store) LoadRun(ctx context.Context, runID string) (grantsearch.DiscoveryResult, error) {
	var envelope string
	err := s.db.GetContext(ctx, &envelope, `SELECT envelope FROM discovery_runs WHERE run_id = ?`, runID)
	if err == sql.ErrNoRows {
		return grantsearch.DiscoveryResult{}, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return grantsearch.DiscoveryResult{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	var res grantsearch.DiscoveryResult
	if err := json.Unmarshal([]byte(envelope), &res); err != nil {
		return grantsearch.DiscoveryResult{}, fmt.Errorf("decode run %s envelope: %w", runID, err)
	}
	return res, nil
}

// ReplayReport rebuilds the markdown report for a stored run from its
// envelope.
func (s *Store) ReplayReport(ctx context.Context, runID string, now time.Time) (string, error) {
	res, err := s.LoadRun(ctx, runID)
	if err != nil {
		return "", err
	}
	return grantsearch.RenderReport(res, now), nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID          string `db:"run_id" json:"runId"`
	StartedAt      string `db:"started_at" json:"startedAt"`
	CompletedAt    string `db:"completed_at" json:"completedAt"`
	TotalFound     int    `db:"total_found" json:"totalFound"`
	TotalValidated int    `db:"total_validated" json:"totalValidated"`
	TotalSaved     int    `db:"total_saved" json:"totalSaved"`
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RunSummary
	err := s.db.SelectContext(ctx, &runs, `
		SELECT run_id, started_at, completed_at, total_found, total_validated, total_saved
		FROM discovery_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RecordChatTurn appends one conversation turn.
func (s *Store) RecordChatTurn(ctx context.Context, conversationID, role, content, intent string, profileUpdated bool) error {
	updated := 0
	if profileUpdated {
		updated = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_turns (conversation_id, role, content, intent, profile_updated, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, role, content, intent, updated, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record chat turn: %w", err)
	}
	return nil
}
