package ports

import (
	"context"

	"goab/domain/core"
	"goab/domain/dataset"
	"goab/domain/metric"
	"goab/domain/run"
)

// TableReader loads raw experiment data.
type TableReader interface {
	ReadTable() (*dataset.Table, error)
}

// PresetLoader resolves a named set of metric definitions.
type PresetLoader interface {
	Load(name string) ([]*metric.Definition, error)
}

// ResultRepository persists evaluated runs
type ResultRepository interface {
	SaveReport(ctx context.Context, report *run.Report) error
	ListByRun(ctx context.Context, runID core.RunID) ([]run.MetricResult, error)
	ListRuns(ctx context.Context, limit int) ([]run.Manifest, error)
}
