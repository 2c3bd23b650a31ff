package extract

import (
	"fmt"

	"goab/domain/core"
	"goab/domain/dataset"
	"goab/domain/metric"
	domainstats "goab/domain/stats"
	"goab/ports"

	"github.com/montanaflynn/stats"
)

// Extractor reduces a linearized table to the summary statistics a test needs.
type Extractor interface {
	Name() string
	Extract(table *dataset.LinearizedTable) (domainstats.Statistics, error)
}

var (
	_ ports.ExtractorPort = (*RatioOfSums)(nil)
	_ ports.ExtractorPort = (*PerUnitRatio)(nil)
	_ ports.ExtractorPort = (*Proportion)(nil)
)

// For returns the reduction strategy that feeds the given estimator.
func For(estimator metric.Estimator) (Extractor, error) {
	switch estimator {
	case metric.EstimatorTTest:
		return NewRatioOfSums(), nil
	case metric.EstimatorMannWhitney:
		return NewPerUnitRatio(), nil
	case metric.EstimatorPropTest:
		return NewProportion(), nil
	}
	return nil, core.NewUnsupportedEstimatorError(string(estimator))
}

// variantSummary holds the sums every strategy starts from.
type variantSummary struct {
	num    float64
	den    float64
	n      int
	lratio []float64
}

func summarize(table *dataset.LinearizedTable, variant int) (variantSummary, error) {
	rows := table.Group(variant)
	if len(rows) == 0 {
		return variantSummary{}, fmt.Errorf("%w: variant %q has no units", core.ErrInsufficientData, table.Variants[variant])
	}

	nums := make(stats.Float64Data, len(rows))
	dens := make(stats.Float64Data, len(rows))
	lratio := make([]float64, len(rows))
	n := 0
	for i, r := range rows {
		nums[i] = r.Num
		dens[i] = r.Den
		lratio[i] = r.LRatio
		n += r.N
	}

	num, err := stats.Sum(nums)
	if err != nil {
		return variantSummary{}, err
	}
	den, err := stats.Sum(dens)
	if err != nil {
		return variantSummary{}, err
	}

	return variantSummary{num: num, den: den, n: n, lratio: lratio}, nil
}

// ratio is the ratio-of-sums point estimate of the variant.
func (v variantSummary) ratio() float64 {
	return v.num / v.den
}

// variance is the sample variance (ddof=1) of l_ratio; NaN for a single unit.
func (v variantSummary) variance() float64 {
	variance, _ := stats.SampleVariance(v.lratio)
	return variance
}

func summarizeBoth(table *dataset.LinearizedTable) (variantSummary, variantSummary, error) {
	if table == nil {
		return variantSummary{}, variantSummary{}, core.ErrEmptyTable
	}
	s0, err := summarize(table, 0)
	if err != nil {
		return variantSummary{}, variantSummary{}, err
	}
	s1, err := summarize(table, 1)
	if err != nil {
		return variantSummary{}, variantSummary{}, err
	}
	return s0, s1, nil
}
