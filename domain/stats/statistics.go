package stats

import (
	"fmt"
	"math"

	"goab/domain/core"
)

// Statistics is the per-variant summary a hypothesis test consumes.
// INVARIANTS:
// - index 0 is the control (reference) variant, index 1 the treatment
// - X and Y are only populated by the per-unit-ratio strategy
// - built fresh for each metric evaluation and never modified afterwards
type Statistics struct {
	Mean0 float64 `json:"mean_0"`
	Mean1 float64 `json:"mean_1"`
	Var0  float64 `json:"var_0"`
	Var1  float64 `json:"var_1"`
	N0    int     `json:"n_0"`
	N1    int     `json:"n_1"`

	// Raw per-unit ratios for rank-based tests
	X []float64 `json:"x,omitempty"`
	Y []float64 `json:"y,omitempty"`
}

// Std0 and Std1 are the standard deviations derived from the variances.
func (s Statistics) Std0() float64 { return math.Sqrt(s.Var0) }
func (s Statistics) Std1() float64 { return math.Sqrt(s.Var1) }

// Lift is the relative change of the treatment mean over control.
func (s Statistics) Lift() float64 {
	if s.Mean0 == 0 {
		return math.NaN()
	}
	return s.Mean1/s.Mean0 - 1
}

// EstimatorResult is either a success carrying (statistic, p-value) or a
// failure carrying the reason the test could not be computed.
type EstimatorResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"pvalue"`
	Failure   error   `json:"-"`
}

// Success builds a result, turning non-finite values into a failure.
func Success(statistic, pvalue float64) EstimatorResult {
	if math.IsNaN(statistic) || math.IsInf(statistic, 0) || math.IsNaN(pvalue) || math.IsInf(pvalue, 0) {
		return Failure(fmt.Errorf("%w: statistic=%v pvalue=%v", core.ErrNonFinite, statistic, pvalue))
	}
	return EstimatorResult{Statistic: statistic, PValue: pvalue}
}

// Failure builds a null result.
func Failure(reason error) EstimatorResult {
	return EstimatorResult{Statistic: math.NaN(), PValue: math.NaN(), Failure: reason}
}

func (r EstimatorResult) OK() bool { return r.Failure == nil }

// Values returns nil pointers for a failed result so callers can emit nulls.
func (r EstimatorResult) Values() (statistic, pvalue *float64) {
	if !r.OK() {
		return nil, nil
	}
	s, p := r.Statistic, r.PValue
	return &s, &p
}
