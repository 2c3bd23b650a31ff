package estimators

import (
	"fmt"
	"math"

	"goab/domain/core"
	"goab/domain/stats"
)

// TTest is the two-sample t-test from summary moments. It needs means,
// variances and unit counts only, never the raw observations.
type TTest struct {
	equalVar bool
}

// NewTTest creates a t-test; equalVar selects the pooled (Student) form, otherwise Welch.
func NewTTest(equalVar bool) *TTest {
	return &TTest{equalVar: equalVar}
}

func (e *TTest) Name() string { return "t_test" }

func (e *TTest) Description() string {
	if e.equalVar {
		return "Student's t-test on linearized ratio metric moments (pooled variance)"
	}
	return "Welch's t-test on linearized ratio metric moments (unequal variances)"
}

// Estimate returns t = (mean_0 - mean_1) / se with a two-sided p-value.
func (e *TTest) Estimate(st stats.Statistics) stats.EstimatorResult {
	n0, n1 := float64(st.N0), float64(st.N1)
	if st.N0 < 2 || st.N1 < 2 {
		return stats.Failure(fmt.Errorf("%w: t-test needs at least 2 units per variant (n_0=%d, n_1=%d)",
			core.ErrInsufficientData, st.N0, st.N1))
	}
	if math.IsNaN(st.Var0) || math.IsNaN(st.Var1) || st.Var0 < 0 || st.Var1 < 0 {
		return stats.Failure(fmt.Errorf("%w: var_0=%v var_1=%v", core.ErrDegenerateVariance, st.Var0, st.Var1))
	}

	var se, df float64
	if e.equalVar {
		df = n0 + n1 - 2
		pooled := ((n0-1)*st.Var0 + (n1-1)*st.Var1) / df
		se = math.Sqrt(pooled * (1/n0 + 1/n1))
	} else {
		a, b := st.Var0/n0, st.Var1/n1
		se = math.Sqrt(a + b)
		// Welch-Satterthwaite degrees of freedom
		df = (a + b) * (a + b) / (a*a/(n0-1) + b*b/(n1-1))
	}

	if se == 0 || math.IsNaN(se) {
		return stats.Failure(fmt.Errorf("%w: standard error is zero", core.ErrDegenerateVariance))
	}

	tStat := (st.Mean0 - st.Mean1) / se
	return stats.Success(tStat, studentTwoSidedPValue(tStat, df))
}
