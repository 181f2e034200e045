// Package postgres mirrors result records and run bookkeeping into Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/markercheck/internal/checker"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "marker_results"

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ResultStore writes one row per result record, tagged with the run id. Run
// start and finish are kept in a companion "<table>_runs" table.
type ResultStore struct {
	pool  execCloser
	table string
	runID uuid.UUID
}

// NewResultStore creates a Postgres-backed ResultStore using the provided config.
func NewResultStore(ctx context.Context, cfg Config, runID uuid.UUID) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ResultStore{pool: pool, table: table, runID: runID}, nil
}

// NewResultStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewResultStoreWithPool(pool execCloser, table string, runID uuid.UUID) (*ResultStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ResultStore{pool: pool, table: name, runID: runID}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the result and run tables when missing.
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	results := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id      UUID        NOT NULL,
	id          TEXT        NOT NULL,
	url         TEXT        NOT NULL,
	status_code INTEGER,
	elapsed_ms  BIGINT,
	label       TEXT        NOT NULL,
	detail      TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, results); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}
	runs := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s_runs (
	run_id      UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	total       INTEGER     NOT NULL,
	completed   INTEGER,
	failed      INTEGER,
	skipped     INTEGER
)`, s.table)
	if _, err := s.pool.Exec(ctx, runs); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// StartRun records the start of the run.
func (s *ResultStore) StartRun(ctx context.Context, startedAt time.Time, total int) error {
	query := fmt.Sprintf(`
INSERT INTO %s_runs (run_id, started_at, total)
VALUES ($1, $2, $3)
ON CONFLICT (run_id) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.runID, startedAt, total); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of the run.
func (s *ResultStore) FinishRun(ctx context.Context, finishedAt time.Time, completed, failed, skipped int) error {
	query := fmt.Sprintf(`
UPDATE %s_runs
SET finished_at = $2, completed = $3, failed = $4, skipped = $5
WHERE run_id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.runID, finishedAt, completed, failed, skipped); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// Append inserts rec.
func (s *ResultStore) Append(ctx context.Context, rec checker.ResultRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("result store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	id,
	url,
	status_code,
	elapsed_ms,
	label,
	detail,
	recorded_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.table)

	args := []any{
		s.runID,
		rec.ID,
		rec.URL,
		rec.StatusCode,
		rec.ElapsedMs,
		string(rec.Label),
		rec.Detail,
		rec.RecordedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert result %s: %w", rec.ID, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
