package ports

import (
	"goab/domain/dataset"
	"goab/domain/metric"
	"goab/domain/stats"
)

// AggregatorPort collapses raw rows to one row per (variant, unit).
type AggregatorPort interface {
	Aggregate(table *dataset.Table, def *metric.Definition) (*dataset.AggregatedTable, error)
}

// LinearizerPort derives the per-unit l_ratio column.
type LinearizerPort interface {
	Linearize(table *dataset.AggregatedTable) (*dataset.LinearizedTable, error)
}

// ExtractorPort reduces a linearized table to the summary an estimator consumes.
type ExtractorPort interface {
	Name() string
	Extract(table *dataset.LinearizedTable) (stats.Statistics, error)
}

// EstimatorPort runs one hypothesis test. Numerical trouble is reported in
// the result, never as a panic or an error return.
type EstimatorPort interface {
	Name() string
	Description() string
	Estimate(st stats.Statistics) stats.EstimatorResult
}
