package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PostgresStore upserts every job with a URL into a shared jobs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("job store postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}
	return nil
}

const upsertJob = `INSERT INTO jobplan_jobs
	(url, title, company, location, description, source, salary_range, posted_date, group_id, last_run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (url) DO UPDATE SET
		title = EXCLUDED.title,
		company = EXCLUDED.company,
		location = EXCLUDED.location,
		description = EXCLUDED.description,
		source = EXCLUDED.source,
		salary_range = EXCLUDED.salary_range,
		posted_date = EXCLUDED.posted_date,
		group_id = EXCLUDED.group_id,
		last_run_id = EXCLUDED.last_run_id,
		last_seen = now()`

// SaveRun upserts the run's real jobs by URL. Mock and URL-less jobs are skipped.
func (s *PostgresStore) SaveRun(ctx context.Context, run RunRecord) error {
	batch := &pgx.Batch{}
	for _, g := range run.Groups {
		for _, j := range g.Jobs {
			if j.URL == "" || j.Source == engine.SourceMock {
				continue
			}
			batch.Queue(upsertJob, j.URL, j.Title, j.Company, j.Location, j.Description,
				j.Source, j.SalaryRange, j.PostedDate, g.Group, run.ID)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres store: upsert %d jobs: %w", batch.Len(), err)
	}
	slog.Debug("jobs upserted", slog.String("run_id", run.ID), slog.Int("count", batch.Len()))
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
