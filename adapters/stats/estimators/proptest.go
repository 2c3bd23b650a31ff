package estimators

import (
	"fmt"
	"math"

	"goab/domain/core"
	"goab/domain/stats"
)

// PropTest is the two-proportion z-test computed from the proportion strategy's moments.
type PropTest struct{}

func NewPropTest() *PropTest { return &PropTest{} }

func (e *PropTest) Name() string { return "prop_test" }

func (e *PropTest) Description() string {
	return "Two-proportion z-test on Bernoulli variances"
}

// Estimate returns z = (mean_0 - mean_1) / sqrt(var_0 + var_1) and the
// standard normal survival of |z| as p-value.
func (e *PropTest) Estimate(st stats.Statistics) stats.EstimatorResult {
	total := st.Var0 + st.Var1
	if math.IsNaN(total) || total <= 0 {
		return stats.Failure(fmt.Errorf("%w: var_0=%v var_1=%v", core.ErrDegenerateVariance, st.Var0, st.Var1))
	}
	z := (st.Mean0 - st.Mean1) / math.Sqrt(total)
	return stats.Success(z, normalSurvival(math.Abs(z)))
}
