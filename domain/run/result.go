package run

import (
	"math"

	"goab/domain/core"
	"goab/domain/metric"
	"goab/domain/stats"
)

// MetricResult is the output record for one metric in one experiment.
// Statistic and PValue are nil when the test failed or the metric could not
// be evaluated; Error then says why.
type MetricResult struct {
	Experiment  string           `json:"experiment,omitempty"`
	Metric      string           `json:"metric_name"`
	Estimator   metric.Estimator `json:"estimator,omitempty"`
	Fingerprint core.Hash        `json:"fingerprint,omitempty"`
	Statistic   *float64         `json:"statistic"`
	PValue      *float64         `json:"pvalue"`
	Variants    [2]string        `json:"variants"`
	Mean0       *float64         `json:"mean_0,omitempty"`
	Mean1       *float64         `json:"mean_1,omitempty"`
	N0          int              `json:"n_0"`
	N1          int              `json:"n_1"`
	Error       string           `json:"error,omitempty"`
	ErrorCode   string           `json:"error_code,omitempty"`
}

// NewMetricResult assembles a record from a definition, its statistics and the test outcome.
func NewMetricResult(def *metric.Definition, variants [2]string, st stats.Statistics, res stats.EstimatorResult) MetricResult {
	out := MetricResult{
		Metric:      def.Name,
		Estimator:   def.Estimator,
		Fingerprint: def.Fingerprint,
		Variants:    variants,
		Mean0:       finite(st.Mean0),
		Mean1:       finite(st.Mean1),
		N0:          st.N0,
		N1:          st.N1,
	}
	out.Statistic, out.PValue = res.Values()
	if !res.OK() {
		out.Error = res.Failure.Error()
	}
	return out
}

// OK reports whether the record carries a test verdict.
func (r MetricResult) OK() bool {
	return r.Statistic != nil && r.PValue != nil
}

// Significant reports p < alpha; failed records are never significant.
func (r MetricResult) Significant(alpha float64) bool {
	return r.OK() && *r.PValue < alpha
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ResultColumns is the column order of tabular reports.
var ResultColumns = []string{
	"experiment", "metric_name", "estimator", "statistic", "pvalue",
	"mean_0", "mean_1", "n_0", "n_1", "error",
}

// Cells returns the record in ResultColumns order. Missing numbers are nil.
func (r MetricResult) Cells() []any {
	return []any{
		r.Experiment,
		r.Metric,
		string(r.Estimator),
		deref(r.Statistic),
		deref(r.PValue),
		deref(r.Mean0),
		deref(r.Mean1),
		r.N0,
		r.N1,
		r.Error,
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
