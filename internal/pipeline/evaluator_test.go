package pipeline

import (
	"context"
	"fmt"
	"math"
	"testing"

	"goab/domain/core"
	"goab/domain/dataset"
	"goab/domain/metric"
	apperrors "goab/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = []string{"experiment", "experiment_variant", "client_id", "clicks", "views", "converted"}

type rowSpec struct {
	experiment, variant, client string
	clicks, views, converted    float64
}

func buildTable(t *testing.T, specs []rowSpec) *dataset.Table {
	t.Helper()
	rows := make([][]string, len(specs))
	for i, s := range specs {
		rows[i] = []string{s.experiment, s.variant, s.client,
			fmt.Sprint(s.clicks), fmt.Sprint(s.views), fmt.Sprint(s.converted)}
	}
	table, err := dataset.NewTable(testColumns, rows)
	require.NoError(t, err)
	return table
}

func definition(t *testing.T, name, estimator, num, numFn, den, denFn string) *metric.Definition {
	t.Helper()
	def, err := metric.Parse(map[string]any{
		"name":        name,
		"estimator":   estimator,
		"numerator":   map[string]any{"aggregation_field": num, "aggregation_function": numFn},
		"denominator": map[string]any{"aggregation_field": den, "aggregation_function": denFn},
	}, metric.DefaultDefaults())
	require.NoError(t, err)
	return def
}

// countTable has clicks [1,1,0,1] in control and [1,0,0,0] in treatment, one row per client.
func countTable(t *testing.T) *dataset.Table {
	var specs []rowSpec
	for i, c := range []float64{1, 1, 0, 1} {
		specs = append(specs, rowSpec{"exp", "0", fmt.Sprintf("a%d", i), c, 1, 0})
	}
	for i, c := range []float64{1, 0, 0, 0} {
		specs = append(specs, rowSpec{"exp", "1", fmt.Sprintf("b%d", i), c, 1, 0})
	}
	return buildTable(t, specs)
}

func newEvaluator(opts Options) *Evaluator {
	return New(opts, nil)
}

func TestEvaluateMetric_CountMetricTTest(t *testing.T) {
	def := definition(t, "clicks_per_user", "t_test", "clicks", "sum", "client_id", "count_distinct")

	res, err := newEvaluator(DefaultOptions()).EvaluateMetric(context.Background(), countTable(t), def)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Error)

	assert.Equal(t, "clicks_per_user", res.Metric)
	assert.Equal(t, [2]string{"0", "1"}, res.Variants)
	assert.InDelta(t, math.Sqrt2, *res.Statistic, 1e-9)
	assert.InDelta(t, 0.20703125, *res.PValue, 1e-9)
	assert.InDelta(t, 0.75, *res.Mean0, 1e-12)
	assert.InDelta(t, 0.25, *res.Mean1, 1e-12)
	assert.Equal(t, 4, res.N0)
	assert.Equal(t, 4, res.N1)
}

func TestEvaluateMetric_PropTest(t *testing.T) {
	var specs []rowSpec
	for i := 0; i < 100; i++ {
		specs = append(specs,
			rowSpec{"exp", "0", fmt.Sprintf("a%d", i), 0, 1, boolFloat(i < 40)},
			rowSpec{"exp", "1", fmt.Sprintf("b%d", i), 0, 1, boolFloat(i < 55)},
		)
	}
	def := definition(t, "conversion", "prop_test", "converted", "sum", "client_id", "count_distinct")

	res, err := newEvaluator(DefaultOptions()).EvaluateMetric(context.Background(), buildTable(t, specs), def)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Error)

	assert.InDelta(t, -0.1542727433268683, *res.Statistic, 1e-9)
	assert.InDelta(t, 0.4386973438427443, *res.PValue, 1e-9)
}

func TestEvaluateMetric_MannWhitney(t *testing.T) {
	table := buildTable(t, []rowSpec{
		{"exp", "0", "a1", 2, 20, 0},
		{"exp", "0", "a2", 4, 20, 0},
		{"exp", "0", "a3", 3, 20, 0},
		{"exp", "1", "b1", 6, 20, 0},
		{"exp", "1", "b2", 5, 20, 0},
		{"exp", "1", "b3", 8, 20, 0},
	})
	def := definition(t, "ctr", "mann_whitney", "clicks", "sum", "views", "sum")

	res, err := newEvaluator(DefaultOptions()).EvaluateMetric(context.Background(), table, def)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Error)

	assert.Equal(t, 0.0, *res.Statistic)
	assert.InDelta(t, 0.1, *res.PValue, 1e-12)
}

func TestEvaluateMetric_RatioMetricIsLinearized(t *testing.T) {
	table := buildTable(t, []rowSpec{
		{"exp", "0", "a1", 2, 4, 0},
		{"exp", "0", "a2", 5, 8, 0},
		{"exp", "0", "a3", 1, 5, 0},
		{"exp", "1", "b1", 9, 10, 0},
		{"exp", "1", "b2", 1, 3, 0},
		{"exp", "1", "b3", 4, 6, 0},
	})
	def := definition(t, "ctr", "t_test", "clicks", "sum", "views", "sum")

	res, err := newEvaluator(DefaultOptions()).EvaluateMetric(context.Background(), table, def)
	require.NoError(t, err)
	require.True(t, res.OK(), res.Error)

	assert.InDelta(t, 8.0/17.0, *res.Mean0, 1e-12)
	assert.InDelta(t, 14.0/19.0, *res.Mean1, 1e-12)
	assert.Greater(t, *res.PValue, 0.0)
	assert.LessOrEqual(t, *res.PValue, 1.0)
}

func TestEvaluateMetric_ZeroVarianceIsNullResult(t *testing.T) {
	var specs []rowSpec
	for i := 0; i < 5; i++ {
		specs = append(specs,
			rowSpec{"exp", "0", fmt.Sprintf("a%d", i), 1, 1, 0},
			rowSpec{"exp", "1", fmt.Sprintf("b%d", i), 1, 1, 0},
		)
	}
	def := definition(t, "clicks", "t_test", "clicks", "sum", "client_id", "count_distinct")

	res, err := newEvaluator(DefaultOptions()).EvaluateMetric(context.Background(), buildTable(t, specs), def)
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Nil(t, res.Statistic)
	assert.Nil(t, res.PValue)
	assert.Equal(t, apperrors.CodeNumerical, res.ErrorCode)
	assert.NotEmpty(t, res.Error)
}

func TestEvaluateMetric_VariantCount(t *testing.T) {
	table := buildTable(t, []rowSpec{
		{"exp", "0", "a1", 1, 1, 0},
		{"exp", "1", "b1", 1, 1, 0},
		{"exp", "2", "c1", 1, 1, 0},
	})
	def := definition(t, "clicks", "t_test", "clicks", "sum", "client_id", "count_distinct")

	_, err := newEvaluator(DefaultOptions()).EvaluateMetric(context.Background(), table, def)
	assert.ErrorIs(t, err, core.ErrVariantCount)
	assert.True(t, core.IsDataError(err))
}

func TestEvaluateAll_OrderAndIsolation(t *testing.T) {
	defs := []*metric.Definition{
		definition(t, "clicks_per_user", "t_test", "clicks", "sum", "client_id", "count_distinct"),
		definition(t, "revenue", "t_test", "revenue", "sum", "client_id", "count_distinct"),
		definition(t, "clicks_mw", "mann_whitney", "clicks", "sum", "client_id", "count_distinct"),
	}

	results, err := newEvaluator(Options{Columns: Columns{Variant: "experiment_variant"}, Workers: 2, EqualVar: true}).
		EvaluateAll(context.Background(), countTable(t), defs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "clicks_per_user", results[0].Metric)
	assert.True(t, results[0].OK())

	assert.Equal(t, "revenue", results[1].Metric)
	assert.False(t, results[1].OK())
	assert.Equal(t, apperrors.CodeDataPrecondition, results[1].ErrorCode)
	assert.Contains(t, results[1].Error, "revenue")

	assert.Equal(t, "clicks_mw", results[2].Metric)
	assert.True(t, results[2].OK())
}

func TestEvaluateAll_StrictAborts(t *testing.T) {
	defs := []*metric.Definition{
		definition(t, "clicks_per_user", "t_test", "clicks", "sum", "client_id", "count_distinct"),
		definition(t, "revenue", "t_test", "revenue", "sum", "client_id", "count_distinct"),
	}
	opts := DefaultOptions()
	opts.Strict = true

	_, err := newEvaluator(opts).EvaluateAll(context.Background(), countTable(t), defs)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestEvaluateAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	defs := []*metric.Definition{definition(t, "clicks", "t_test", "clicks", "sum", "client_id", "count_distinct")}
	_, err := newEvaluator(DefaultOptions()).EvaluateAll(ctx, countTable(t), defs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateExperiments_Partitions(t *testing.T) {
	var specs []rowSpec
	for _, exp := range []string{"exp_b", "exp_a"} {
		for i, c := range []float64{1, 1, 0, 1} {
			specs = append(specs, rowSpec{exp, "0", fmt.Sprintf("%s_a%d", exp, i), c, 1, 0})
		}
		for i, c := range []float64{1, 0, 0, 0} {
			specs = append(specs, rowSpec{exp, "1", fmt.Sprintf("%s_b%d", exp, i), c, 1, 0})
		}
	}
	specs = append(specs, rowSpec{"", "0", "orphan", 1, 1, 0})

	opts := DefaultOptions()
	opts.Columns.Experiment = "experiment"
	defs := []*metric.Definition{definition(t, "clicks", "t_test", "clicks", "sum", "client_id", "count_distinct")}

	results, err := newEvaluator(opts).EvaluateExperiments(context.Background(), buildTable(t, specs), defs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exp_a", results[0].Experiment)
	assert.Equal(t, "exp_b", results[1].Experiment)
	for _, res := range results {
		require.True(t, res.OK())
		assert.InDelta(t, 0.20703125, *res.PValue, 1e-9)
	}
}

func TestRun_BuildsReport(t *testing.T) {
	defs := []*metric.Definition{definition(t, "clicks", "t_test", "clicks", "sum", "client_id", "count_distinct")}

	report, err := newEvaluator(DefaultOptions()).Run(context.Background(), countTable(t), defs, "default", "sample.csv")
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID.String())
	assert.Equal(t, "default", report.Preset)
	assert.Equal(t, 1, report.MetricCount)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, 0, report.Failed())
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
