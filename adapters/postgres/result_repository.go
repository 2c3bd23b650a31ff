package postgres

import (
	"context"
	"database/sql"
	"time"

	"goab/domain/core"
	"goab/domain/metric"
	"goab/domain/run"
	"goab/internal/errors"
	"goab/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepository implements ports.ResultRepository for PostgreSQL
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

var _ ports.ResultRepository = (*ResultRepository)(nil)

// SaveReport stores the run manifest and every result in one transaction.
func (r *ResultRepository) SaveReport(ctx context.Context, report *run.Report) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ab_runs (id, preset, source, metric_count, config_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, report.RunID.String(), report.Preset, report.Source, report.MetricCount,
		report.ConfigHash.String(), report.CreatedAt.Time())
	if err != nil {
		return errors.DatabaseError("failed to insert run", err)
	}

	for i, res := range report.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ab_metric_results (
				run_id, position, experiment, metric_name, estimator, fingerprint,
				variant_0, variant_1, statistic, pvalue, mean_0, mean_1, n_0, n_1, error, error_code
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`, report.RunID.String(), i, res.Experiment, res.Metric, string(res.Estimator), res.Fingerprint.String(),
			res.Variants[0], res.Variants[1], nullFloat(res.Statistic), nullFloat(res.PValue),
			nullFloat(res.Mean0), nullFloat(res.Mean1), res.N0, res.N1, res.Error, res.ErrorCode)
		if err != nil {
			return errors.DatabaseError("failed to insert result for metric "+res.Metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit run", err)
	}
	return nil
}

type resultRow struct {
	Experiment  string          `db:"experiment"`
	MetricName  string          `db:"metric_name"`
	Estimator   string          `db:"estimator"`
	Fingerprint string          `db:"fingerprint"`
	Variant0    string          `db:"variant_0"`
	Variant1    string          `db:"variant_1"`
	Statistic   sql.NullFloat64 `db:"statistic"`
	PValue      sql.NullFloat64 `db:"pvalue"`
	Mean0       sql.NullFloat64 `db:"mean_0"`
	Mean1       sql.NullFloat64 `db:"mean_1"`
	N0          int             `db:"n_0"`
	N1          int             `db:"n_1"`
	Error       string          `db:"error"`
	ErrorCode   string          `db:"error_code"`
}

// ListByRun returns the results of one run in their original order.
func (r *ResultRepository) ListByRun(ctx context.Context, runID core.RunID) ([]run.MetricResult, error) {
	var rows []resultRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT experiment, metric_name, estimator, fingerprint, variant_0, variant_1,
			statistic, pvalue, mean_0, mean_1, n_0, n_1, error, error_code
		FROM ab_metric_results
		WHERE run_id = $1
		ORDER BY position
	`, runID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to list results", err)
	}

	results := make([]run.MetricResult, len(rows))
	for i, row := range rows {
		results[i] = run.MetricResult{
			Experiment:  row.Experiment,
			Metric:      row.MetricName,
			Estimator:   metric.Estimator(row.Estimator),
			Fingerprint: core.Hash(row.Fingerprint),
			Variants:    [2]string{row.Variant0, row.Variant1},
			Statistic:   floatPtr(row.Statistic),
			PValue:      floatPtr(row.PValue),
			Mean0:       floatPtr(row.Mean0),
			Mean1:       floatPtr(row.Mean1),
			N0:          row.N0,
			N1:          row.N1,
			Error:       row.Error,
			ErrorCode:   row.ErrorCode,
		}
	}
	return results, nil
}

type runRow struct {
	ID          string    `db:"id"`
	Preset      string    `db:"preset"`
	Source      string    `db:"source"`
	MetricCount int       `db:"metric_count"`
	ConfigHash  string    `db:"config_hash"`
	CreatedAt   time.Time `db:"created_at"`
}

// ListRuns returns the most recent runs first, optionally limited
func (r *ResultRepository) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := `
		SELECT id, preset, source, metric_count, config_hash, created_at
		FROM ab_runs
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}

	manifests := make([]run.Manifest, len(rows))
	for i, row := range rows {
		manifests[i] = run.Manifest{
			RunID:       core.RunID(row.ID),
			Preset:      row.Preset,
			Source:      row.Source,
			MetricCount: row.MetricCount,
			ConfigHash:  core.Hash(row.ConfigHash),
			CreatedAt:   core.NewTimestamp(row.CreatedAt),
		}
	}
	return manifests, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
