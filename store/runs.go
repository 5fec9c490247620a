package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/coinscrape/article"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunStats is what a finished run recorded.
type RunStats struct {
	Saved      int
	Duplicates int
}

// Run is one row of the run log.
type Run struct {
	ID         uuid.UUID
	Category   string
	Stop       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Stats      RunStats
	Status     string
}

// BeginRun records the start of a scrape and returns its id.
func (s *Store) BeginRun(ctx context.Context, category string, stop article.StopCondition) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO scrape_runs (run_id, category, stop, started_at, status) VALUES (?, ?, ?, ?, ?)",
		id.String(), category, stop.String(), time.Now().UTC(), RunRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, stats RunStats, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scrape_runs
		SET finished_at = ?, articles_saved = ?, duplicates_skipped = ?, status = ?
		WHERE run_id = ?`,
		time.Now().UTC(), stats.Saved, stats.Duplicates, status, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, category, stop, started_at, finished_at,
		       articles_saved, duplicates_skipped, status
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id string
		var finished sql.NullTime
		if err := rows.Scan(&id, &r.Category, &r.Stop, &r.StartedAt, &finished,
			&r.Stats.Saved, &r.Stats.Duplicates, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse run id: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
