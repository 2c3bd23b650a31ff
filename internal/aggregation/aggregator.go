package aggregation

import (
	"fmt"
	"sort"

	"goab/domain/core"
	"goab/domain/dataset"
	"goab/domain/metric"
)

// Aggregator reduces raw rows to one numerator/denominator pair per
// (variant, unit) using the reducers of a metric definition.
type Aggregator struct {
	variantCol string
}

// New creates an aggregator that reads variant assignment from variantCol.
func New(variantCol string) *Aggregator {
	return &Aggregator{variantCol: variantCol}
}

type groupKey struct {
	variant string
	unit    string
}

type group struct {
	num   []string
	den   []string
	units map[string]struct{}
}

// Aggregate groups table rows by (variant, def.Level) and applies the
// numerator and denominator reducers. Rows with an empty variant or unit are
// dropped, and units without rows never appear in the output. The result is
// sorted by variant, then unit, so it does not depend on input row order.
func (a *Aggregator) Aggregate(table *dataset.Table, def *metric.Definition) (*dataset.AggregatedTable, error) {
	if table == nil || table.Len() == 0 {
		return nil, core.ErrEmptyTable
	}
	if err := table.RequireColumns(append([]string{a.variantCol}, def.RequiredColumns()...)...); err != nil {
		return nil, fmt.Errorf("metric %q: %w", def.Name, err)
	}

	variantIdx, _ := table.ColumnIndex(a.variantCol)
	unitIdx, _ := table.ColumnIndex(def.Level)
	numIdx, _ := table.ColumnIndex(def.Numerator.Field)
	denIdx, _ := table.ColumnIndex(def.Denominator.Field)

	groups := make(map[groupKey]*group)
	for i := 0; i < table.Len(); i++ {
		key := groupKey{variant: table.Cell(i, variantIdx), unit: table.Cell(i, unitIdx)}
		if key.variant == "" || key.unit == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{units: make(map[string]struct{}, 1)}
			groups[key] = g
		}
		g.num = append(g.num, table.Cell(i, numIdx))
		g.den = append(g.den, table.Cell(i, denIdx))
		g.units[key.unit] = struct{}{}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no rows with both %s and %s set", core.ErrEmptyTable, a.variantCol, def.Level)
	}

	rows := make([]dataset.AggregatedRow, 0, len(groups))
	for key, g := range groups {
		num, err := def.Numerator.Function.Apply(g.num)
		if err != nil {
			return nil, fmt.Errorf("metric %q numerator %s: %w", def.Name, def.Numerator.Field, err)
		}
		den, err := def.Denominator.Function.Apply(g.den)
		if err != nil {
			return nil, fmt.Errorf("metric %q denominator %s: %w", def.Name, def.Denominator.Field, err)
		}
		rows = append(rows, dataset.AggregatedRow{
			Variant: key.variant,
			Unit:    key.unit,
			Num:     num,
			Den:     den,
			N:       len(g.units),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if c := dataset.CompareLabels(rows[i].Variant, rows[j].Variant); c != 0 {
			return c < 0
		}
		return dataset.CompareLabels(rows[i].Unit, rows[j].Unit) < 0
	})

	return &dataset.AggregatedTable{Rows: rows}, nil
}
