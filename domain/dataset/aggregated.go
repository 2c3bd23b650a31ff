package dataset

import (
	"math"

	"goab/domain/core"
)

// AggregatedRow is one (variant, unit) group reduced to a numerator and
// denominator. N counts distinct unit ids in the group.
type AggregatedRow struct {
	Variant string  `json:"variant"`
	Unit    string  `json:"unit"`
	Num     float64 `json:"num"`
	Den     float64 `json:"den"`
	N       int     `json:"n"`
}

// AggregatedTable holds one row per (variant, unit), sorted by variant then unit.
type AggregatedTable struct {
	Rows []AggregatedRow `json:"rows"`
}

// Variants returns the distinct variant labels in natural order.
func (t *AggregatedTable) Variants() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Variant]; ok {
			continue
		}
		seen[r.Variant] = struct{}{}
		labels = append(labels, r.Variant)
	}
	SortLabels(labels)
	return labels
}

// VariantPair resolves the control (index 0) and treatment (index 1) labels.
func (t *AggregatedTable) VariantPair() ([2]string, error) {
	labels := t.Variants()
	if len(labels) != 2 {
		return [2]string{}, core.NewVariantCountError(labels)
	}
	return [2]string{labels[0], labels[1]}, nil
}

// LinearizedRow is an aggregated row plus its linearized scalar.
type LinearizedRow struct {
	AggregatedRow
	LRatio float64 `json:"l_ratio"`
}

// LinearizedTable carries exactly two variants. K is the reference ratio used
// for linearization, NaN when the identity path was taken.
type LinearizedTable struct {
	Rows     []LinearizedRow `json:"rows"`
	Variants [2]string       `json:"variants"`
	K        float64         `json:"k"`
}

// Identity reports whether l_ratio was copied from num without linearization.
func (t *LinearizedTable) Identity() bool { return math.IsNaN(t.K) }

// Group returns the rows of variant 0 or 1.
func (t *LinearizedTable) Group(variant int) []LinearizedRow {
	label := t.Variants[variant]
	var out []LinearizedRow
	for _, r := range t.Rows {
		if r.Variant == label {
			out = append(out, r)
		}
	}
	return out
}
