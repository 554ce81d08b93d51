package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

// Run outcomes.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)

// Run is one recorded validation run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	CommitRange string
	Outcome     string
	Error       string
	Stages      []StageRecord
	Pruned      []string
}

// StageRecord is the stored result of one stage.
type StageRecord struct {
	Stage    string
	Outcome  string
	Reason   string
	Duration time.Duration
}

// RecordRun stores a run with its stage results and pruned modules.
func (db *DB) RecordRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		return errors.New("record run: empty id")
	}
	return db.Transaction(func(tx *sql.Tx) error {
		var finished sql.NullString
		if r.FinishedAt != nil {
			finished = sql.NullString{String: formatTime(*r.FinishedAt), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, started_at, finished_at, commit_range, outcome, error)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.ID, formatTime(r.StartedAt), finished, r.CommitRange, r.Outcome, r.Error)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for i, s := range r.Stages {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stage_results (run_id, position, stage, outcome, reason, duration_ms)
				VALUES (?, ?, ?, ?, ?, ?)
			`, r.ID, i, s.Stage, s.Outcome, s.Reason, s.Duration.Milliseconds())
			if err != nil {
				return fmt.Errorf("insert stage %s: %w", s.Stage, err)
			}
		}

		for _, m := range r.Pruned {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO pruned (run_id, module) VALUES (?, ?)`, r.ID, m); err != nil {
				return fmt.Errorf("insert pruned %s: %w", m, err)
			}
		}
		return nil
	})
}

// ListRuns returns the most recent runs first, without their stage
// results. A limit of zero or less returns all runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, commit_range, outcome, error FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its stage results and pruned modules.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, commit_range, outcome, error FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if r.Stages, err = db.stageRecords(ctx, id); err != nil {
		return nil, err
	}
	if r.Pruned, err = db.prunedModules(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (db *DB) stageRecords(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT stage, outcome, reason, duration_ms FROM stage_results WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var (
			s  StageRecord
			ms int64
		)
		if err := rows.Scan(&s.Stage, &s.Outcome, &s.Reason, &ms); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) prunedModules(ctx context.Context, runID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT module FROM pruned WHERE run_id = ? ORDER BY module`, runID)
	if err != nil {
		return nil, fmt.Errorf("get pruned: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan pruned: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&r.ID, &started, &finished, &r.CommitRange, &r.Outcome, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	r.StartedAt = t
	r.FinishedAt = parseNullableTime(finished)
	return &r, nil
}
