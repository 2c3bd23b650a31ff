package pipeline

import (
	"context"
	"fmt"
	"strings"

	"goab/adapters/stats/estimators"
	"goab/adapters/stats/extract"
	"goab/domain/dataset"
	"goab/domain/metric"
	"goab/domain/run"
	"goab/internal/aggregation"
	"goab/internal/config"
	apperrors "goab/internal/errors"
	"goab/internal/linearization"
	"goab/internal/logging"
	"goab/ports"

	"golang.org/x/sync/errgroup"
)

// Columns names the raw data columns the evaluator reads.
type Columns struct {
	Variant    string
	Experiment string
}

// Options configures an Evaluator.
type Options struct {
	Columns Columns
	// Strict aborts the whole run on the first configuration or data error
	// instead of recording it on the affected metric.
	Strict   bool
	Workers  int
	EqualVar bool
}

// DefaultOptions mirrors the default environment configuration.
func DefaultOptions() Options {
	return Options{
		Columns:  Columns{Variant: "experiment_variant"},
		Workers:  4,
		EqualVar: true,
	}
}

// OptionsFromConfig builds evaluator options from application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Columns: Columns{
			Variant:    cfg.Columns.Variant,
			Experiment: cfg.Columns.Experiment,
		},
		Strict:   cfg.Pipeline.Strict,
		Workers:  cfg.Pipeline.Workers,
		EqualVar: cfg.Pipeline.EqualVar,
	}
}

// Evaluator runs metric definitions through aggregation, linearization,
// statistics extraction and the estimator. It holds no per-run state and is
// safe for concurrent use.
type Evaluator struct {
	opts       Options
	logger     *logging.Logger
	aggregator ports.AggregatorPort
	linearizer ports.LinearizerPort
}

// New creates an evaluator. A nil logger discards output.
func New(opts Options, logger *logging.Logger) *Evaluator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Evaluator{
		opts:       opts,
		logger:     logger,
		aggregator: aggregation.New(opts.Columns.Variant),
		linearizer: linearization.New(),
	}
}

// Options returns the evaluator configuration.
func (e *Evaluator) Options() Options { return e.opts }

// EvaluateMetric evaluates one metric. Configuration and data precondition
// problems are returned as errors; a failed statistical test is not an
// error and comes back as a result with nil statistic and p-value.
func (e *Evaluator) EvaluateMetric(ctx context.Context, table *dataset.Table, def *metric.Definition) (run.MetricResult, error) {
	if err := ctx.Err(); err != nil {
		return run.MetricResult{}, err
	}

	aggregated, err := e.aggregator.Aggregate(table, def)
	if err != nil {
		return run.MetricResult{}, fmt.Errorf("aggregate %s: %w", def.Name, err)
	}

	linearized, err := e.linearizer.Linearize(aggregated)
	if err != nil {
		return run.MetricResult{}, fmt.Errorf("linearize %s: %w", def.Name, err)
	}

	extractor, err := extract.For(def.Estimator)
	if err != nil {
		return run.MetricResult{}, err
	}
	st, err := extractor.Extract(linearized)
	if err != nil {
		return run.MetricResult{}, fmt.Errorf("extract %s: %w", def.Name, err)
	}

	estimator, err := estimators.New(def.Estimator, estimators.Options{EqualVar: e.opts.EqualVar})
	if err != nil {
		return run.MetricResult{}, err
	}

	res := estimators.Run(estimator, st)
	result := run.NewMetricResult(def, linearized.Variants, st, res)
	if !res.OK() {
		result.ErrorCode = apperrors.CodeFor(res.Failure)
		e.logger.Warn("metric %s: %s produced no result: %v", def.Name, estimator.Name(), res.Failure)
	} else {
		e.logger.Debug("metric %s: %s statistic=%.6g pvalue=%.6g (%s)",
			def.Name, estimator.Name(), res.Statistic, res.PValue, extractor.Name())
	}
	return result, nil
}

// EvaluateAll evaluates every definition against the table with at most
// Workers metrics in flight. Results come back in definition order.
func (e *Evaluator) EvaluateAll(ctx context.Context, table *dataset.Table, defs []*metric.Definition) ([]run.MetricResult, error) {
	results := make([]run.MetricResult, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, def := range defs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := e.EvaluateMetric(gctx, table, def)
			if err == nil {
				results[i] = res
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if e.opts.Strict {
				return fmt.Errorf("metric %s: %w", def.Name, err)
			}
			e.logger.Error("metric %s skipped: %v", def.Name, err)
			results[i] = failedResult(def, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// EvaluateExperiments evaluates every experiment separately when an
// experiment column is configured, otherwise the whole table as one.
// Rows with an empty experiment label are ignored.
func (e *Evaluator) EvaluateExperiments(ctx context.Context, table *dataset.Table, defs []*metric.Definition) ([]run.MetricResult, error) {
	col := strings.TrimSpace(e.opts.Columns.Experiment)
	if col == "" {
		return e.EvaluateAll(ctx, table, defs)
	}

	parts, err := table.PartitionBy(col)
	if err != nil {
		return nil, apperrors.Wrap(err, "partition by experiment")
	}

	var all []run.MetricResult
	for _, part := range parts {
		if strings.TrimSpace(part.Value) == "" {
			continue
		}
		e.logger.Info("evaluating experiment %s (%d rows, %d metrics)", part.Value, part.Table.Len(), len(defs))
		results, err := e.EvaluateAll(ctx, part.Table, defs)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", part.Value, err)
		}
		for i := range results {
			results[i].Experiment = part.Value
		}
		all = append(all, results...)
	}
	return all, nil
}

// Run evaluates a preset against a table and assembles the report.
func (e *Evaluator) Run(ctx context.Context, table *dataset.Table, defs []*metric.Definition, preset, source string) (*run.Report, error) {
	manifest := run.NewManifest(preset, source, defs)
	e.logger.Info("run %s: %d metrics over %d rows", manifest.RunID, len(defs), table.Len())

	results, err := e.EvaluateExperiments(ctx, table, defs)
	if err != nil {
		return nil, err
	}

	report := &run.Report{Manifest: manifest, Results: results}
	if failed := report.Failed(); failed > 0 {
		e.logger.Warn("run %s: %d of %d results without a verdict", manifest.RunID, failed, len(results))
	}
	return report, nil
}

func failedResult(def *metric.Definition, err error) run.MetricResult {
	return run.MetricResult{
		Metric:      def.Name,
		Estimator:   def.Estimator,
		Fingerprint: def.Fingerprint,
		Error:       err.Error(),
		ErrorCode:   apperrors.CodeFor(err),
	}
}
