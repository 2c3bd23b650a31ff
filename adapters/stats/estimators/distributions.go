package estimators

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// studentTwoSidedPValue returns P(|T| >= |t|) for Student's t with df degrees of freedom.
func studentTwoSidedPValue(t, df float64) float64 {
	if df <= 0 || math.IsNaN(df) {
		return math.NaN()
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampProbability(2 * tDist.Survival(math.Abs(t)))
}

// normalSurvival returns P(Z >= z) for the standard normal.
func normalSurvival(z float64) float64 {
	return distuv.UnitNormal.Survival(z)
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return p
	}
	return math.Max(0, math.Min(1, p))
}
