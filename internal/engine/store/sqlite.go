package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps a local history of runs and the jobs each one returned.
type SQLiteStore struct {
	db *sql.DB
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID            string  `json:"id"`
	StartedAt     string  `json:"started_at"`
	PlanSource    string  `json:"plan_source"`
	DedupStrategy string  `json:"dedup_strategy"`
	TotalJobs     int     `json:"total_jobs"`
	JobsFound     int     `json:"jobs_found"`
	TotalCost     float64 `json:"total_cost"`
	BudgetLimit   float64 `json:"budget_limit"`
}

// OpenSQLite opens (or creates) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite store: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		started_at     TEXT NOT NULL,
		plan_source    TEXT NOT NULL,
		dedup_strategy TEXT NOT NULL,
		total_jobs     INTEGER NOT NULL,
		jobs_found     INTEGER NOT NULL,
		total_cost     REAL NOT NULL,
		budget_limit   REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS run_groups (
		run_id    TEXT NOT NULL REFERENCES runs(id),
		group_id  TEXT NOT NULL,
		provider  TEXT,
		source    TEXT NOT NULL,
		query     TEXT,
		requested INTEGER NOT NULL,
		found     INTEGER NOT NULL,
		PRIMARY KEY (run_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS run_jobs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL REFERENCES runs(id),
		group_id    TEXT NOT NULL,
		title       TEXT NOT NULL,
		company     TEXT NOT NULL,
		location    TEXT,
		url         TEXT,
		source      TEXT NOT NULL,
		salary      TEXT,
		posted_date TEXT
	)`,
}

func initSQLiteSchema(db *sql.DB) error {
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun writes the run, its groups and its jobs in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, plan_source, dedup_strategy, total_jobs, jobs_found, total_cost, budget_limit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, started.UTC().Format(time.RFC3339), run.PlanSource, run.DedupStrategy,
		run.TotalJobs, run.JobCount(), run.TotalCost, run.BudgetLimit,
	); err != nil {
		return fmt.Errorf("sqlite store: insert run: %w", err)
	}

	for _, g := range run.Groups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_groups (run_id, group_id, provider, source, query, requested, found)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, g.Group, g.Provider, g.Source, g.Query, g.Requested, g.Found,
		); err != nil {
			return fmt.Errorf("sqlite store: insert group %s: %w", g.Group, err)
		}
		for _, j := range g.Jobs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_jobs (run_id, group_id, title, company, location, url, source, salary, posted_date)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, g.Group, j.Title, j.Company, j.Location, j.URL, j.Source, j.SalaryRange, j.PostedDate,
			); err != nil {
				return fmt.Errorf("sqlite store: insert job: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first. A non-positive limit means 20;
// larger limits are capped at 100.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 100)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, plan_source, dedup_strategy, total_jobs, jobs_found, total_cost, budget_limit
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.PlanSource, &r.DedupStrategy,
			&r.TotalJobs, &r.JobsFound, &r.TotalCost, &r.BudgetLimit); err != nil {
			return nil, fmt.Errorf("sqlite store: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}
