package linearization

import (
	"fmt"
	"math"

	"goab/domain/core"
	"goab/domain/dataset"
)

// Linearizer turns per-unit numerator/denominator pairs into one scalar per
// unit whose mean equals the ratio of sums, so a difference-in-means test is
// valid for ratio metrics:
//
//	L = num - k*den, k = sum(num_0) / sum(den_0)
//
// k is taken from the control variant only and applied to both variants.
type Linearizer struct{}

// New creates a linearizer
func New() *Linearizer {
	return &Linearizer{}
}

// Linearize returns a new table with l_ratio set on every row. When every
// row has den == n the metric is a plain per-unit count and l_ratio is num.
func (l *Linearizer) Linearize(table *dataset.AggregatedTable) (*dataset.LinearizedTable, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, core.ErrEmptyTable
	}
	variants, err := table.VariantPair()
	if err != nil {
		return nil, err
	}

	out := &dataset.LinearizedTable{
		Rows:     make([]dataset.LinearizedRow, len(table.Rows)),
		Variants: variants,
		K:        math.NaN(),
	}

	if isUnitLevel(table.Rows) {
		for i, r := range table.Rows {
			out.Rows[i] = dataset.LinearizedRow{AggregatedRow: r, LRatio: r.Num}
		}
		return out, nil
	}

	k, err := ReferenceRatio(table.Rows, variants[0])
	if err != nil {
		return nil, err
	}
	out.K = k
	for i, r := range table.Rows {
		out.Rows[i] = dataset.LinearizedRow{AggregatedRow: r, LRatio: r.Num - k*r.Den}
	}
	return out, nil
}

// ReferenceRatio computes k = sum(num)/sum(den) over the rows of one variant.
func ReferenceRatio(rows []dataset.AggregatedRow, variant string) (float64, error) {
	var num, den float64
	for _, r := range rows {
		if r.Variant != variant {
			continue
		}
		num += r.Num
		den += r.Den
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: denominator of reference variant %q sums to zero", core.ErrInvalidValue, variant)
	}
	return num / den, nil
}

func isUnitLevel(rows []dataset.AggregatedRow) bool {
	for _, r := range rows {
		if r.Den != float64(r.N) {
			return false
		}
	}
	return true
}
