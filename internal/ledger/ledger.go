// Package ledger keeps a Postgres history of scheduler runs.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/scheduler"
)

const (
	DefaultRecentLimit = 50
	maxRecentLimit     = 500
)

type Ledger struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open connects to dsn, waiting up to attempts pings for the database to
// come up, and creates the runs table.
func Open(ctx context.Context, dsn string, attempts int, logger *logrus.Logger) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil || i == attempts-1 {
			break
		}
		logger.WithError(err).WithField("attempt", i+1).Info("Waiting for ledger database...")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger database unreachable: %w", err)
	}

	l := New(db, logger)
	if err := l.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}
	logger.Info("Run ledger connected")
	return l, nil
}

// New wraps an open database. The caller owns db.
func New(db *sql.DB, logger *logrus.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

func (l *Ledger) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS job_runs (
			id SERIAL PRIMARY KEY,
			job VARCHAR(64) NOT NULL,
			triggered_by VARCHAR(16) NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			outcome VARCHAR(64) NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_started_at ON job_runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job)`,
	}

	for _, query := range queries {
		if _, err := l.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Record stores one finished run.
func (l *Ledger) Record(ctx context.Context, run scheduler.Run) error {
	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO job_runs (job, triggered_by, started_at, duration_ms, outcome, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.Job, run.Trigger, run.StartedAt.UTC(), run.Duration.Milliseconds(), run.Outcome, runErr,
	)
	if err != nil {
		return fmt.Errorf("record %s run: %w", run.Job, err)
	}
	return nil
}

// Recent returns the latest runs, newest first. An empty job matches all.
func (l *Ledger) Recent(ctx context.Context, job string, limit int) ([]scheduler.Run, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT job, triggered_by, started_at, duration_ms, outcome, COALESCE(error, '')
		 FROM job_runs
		 WHERE ($1 = '' OR job = $1)
		 ORDER BY started_at DESC
		 LIMIT $2`,
		job, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []scheduler.Run{}
	for rows.Next() {
		var (
			run        scheduler.Run
			durationMs int64
		)
		if err := rows.Scan(&run.Job, &run.Trigger, &run.StartedAt, &durationMs, &run.Outcome, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
