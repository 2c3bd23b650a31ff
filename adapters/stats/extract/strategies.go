package extract

import (
	"goab/domain/dataset"
	domainstats "goab/domain/stats"
)

// RatioOfSums is the delta-method strategy behind the t-test: the mean is the
// ratio of sums and the variance is taken over the linearized values.
type RatioOfSums struct{}

func NewRatioOfSums() *RatioOfSums { return &RatioOfSums{} }

func (s *RatioOfSums) Name() string { return "ratio_of_sums" }

func (s *RatioOfSums) Extract(table *dataset.LinearizedTable) (domainstats.Statistics, error) {
	s0, s1, err := summarizeBoth(table)
	if err != nil {
		return domainstats.Statistics{}, err
	}
	return domainstats.Statistics{
		Mean0: s0.ratio(),
		Mean1: s1.ratio(),
		Var0:  s0.variance(),
		Var1:  s1.variance(),
		N0:    s0.n,
		N1:    s1.n,
	}, nil
}

// PerUnitRatio adds the raw per-unit ratios needed by rank tests.
type PerUnitRatio struct {
	base RatioOfSums
}

func NewPerUnitRatio() *PerUnitRatio { return &PerUnitRatio{} }

func (s *PerUnitRatio) Name() string { return "per_unit_ratio" }

func (s *PerUnitRatio) Extract(table *dataset.LinearizedTable) (domainstats.Statistics, error) {
	st, err := s.base.Extract(table)
	if err != nil {
		return domainstats.Statistics{}, err
	}
	st.X = unitRatios(table.Group(0))
	st.Y = unitRatios(table.Group(1))
	return st, nil
}

// unitRatios skips units with a zero denominator, which have no ratio.
func unitRatios(rows []dataset.LinearizedRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Den == 0 {
			continue
		}
		out = append(out, r.Num/r.Den)
	}
	return out
}

// Proportion feeds the two-proportion z-test.
//
// NOTE: the mean divides the ratio of sums by the unit count a second time,
// so for a click-per-view metric it is not the event probability. This is the
// established output of the pipeline and reports depend on it; see DESIGN.md.
type Proportion struct{}

func NewProportion() *Proportion { return &Proportion{} }

func (s *Proportion) Name() string { return "proportion" }

func (s *Proportion) Extract(table *dataset.LinearizedTable) (domainstats.Statistics, error) {
	s0, s1, err := summarizeBoth(table)
	if err != nil {
		return domainstats.Statistics{}, err
	}
	mean0 := s0.ratio() / float64(s0.n)
	mean1 := s1.ratio() / float64(s1.n)
	return domainstats.Statistics{
		Mean0: mean0,
		Mean1: mean1,
		Var0:  ProportionVariance(mean0, s0.n),
		Var1:  ProportionVariance(mean1, s1.n),
		N0:    s0.n,
		N1:    s1.n,
	}, nil
}

// ProportionVariance is the Bernoulli variance of a proportion estimate, p(1-p)/n.
func ProportionVariance(p float64, n int) float64 {
	return p * (1 - p) / float64(n)
}
