package migration

import (
	"context"

	"goab/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create ab_runs table", err)
	}

	if err := r.createMetricResultsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create ab_metric_results table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ab_runs (
			id UUID PRIMARY KEY,
			preset VARCHAR(255) NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			metric_count INTEGER NOT NULL,
			config_hash VARCHAR(64) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createMetricResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ab_metric_results (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES ab_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			experiment VARCHAR(255) NOT NULL DEFAULT '',
			metric_name VARCHAR(255) NOT NULL,
			estimator VARCHAR(64) NOT NULL DEFAULT '',
			fingerprint VARCHAR(64) NOT NULL DEFAULT '',
			variant_0 VARCHAR(255) NOT NULL DEFAULT '',
			variant_1 VARCHAR(255) NOT NULL DEFAULT '',
			statistic DOUBLE PRECISION,
			pvalue DOUBLE PRECISION,
			mean_0 DOUBLE PRECISION,
			mean_1 DOUBLE PRECISION,
			n_0 INTEGER NOT NULL DEFAULT 0,
			n_1 INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			error_code VARCHAR(64) NOT NULL DEFAULT ''
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_ab_metric_results_run ON ab_metric_results(run_id, position);
		CREATE INDEX IF NOT EXISTS idx_ab_metric_results_metric ON ab_metric_results(metric_name);
		CREATE INDEX IF NOT EXISTS idx_ab_runs_created ON ab_runs(created_at DESC)
	`)
	return err
}
