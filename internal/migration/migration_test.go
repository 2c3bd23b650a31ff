package migration

import (
	"context"
	"errors"
	"testing"

	apperrors "goab/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestRun_CreatesSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ab_runs`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ab_metric_results`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_ab_metric_results_run`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewRunner().Run(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ab_runs`).WillReturnError(errors.New("permission denied"))

	err := NewRunner().Run(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "ab_runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "1.0.0", NewRunner().Version())
}
