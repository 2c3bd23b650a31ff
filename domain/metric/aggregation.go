package metric

import (
	"fmt"
	"strconv"
	"strings"

	"goab/domain/core"
)

// Aggregation is the closed set of reducers a metric can apply to a field
// within one (variant, unit) group.
type Aggregation int

const (
	AggregationSum Aggregation = iota + 1
	AggregationCountDistinct
)

var aggregationNames = map[string]Aggregation{
	"sum":            AggregationSum,
	"count_distinct": AggregationCountDistinct,
}

// ParseAggregation resolves a config name to a reducer.
func ParseAggregation(name string) (Aggregation, error) {
	if agg, ok := aggregationNames[strings.TrimSpace(name)]; ok {
		return agg, nil
	}
	return 0, core.NewUnknownAggregationError(name)
}

func (a Aggregation) String() string {
	switch a {
	case AggregationSum:
		return "sum"
	case AggregationCountDistinct:
		return "count_distinct"
	default:
		return fmt.Sprintf("aggregation(%d)", int(a))
	}
}

// Apply reduces the raw cell values of one group. Empty cells are missing
// values and are skipped by both reducers.
func (a Aggregation) Apply(values []string) (float64, error) {
	switch a {
	case AggregationSum:
		return sumValues(values)
	case AggregationCountDistinct:
		return countDistinct(values), nil
	default:
		return 0, core.NewUnknownAggregationError(a.String())
	}
}

func sumValues(values []string) (float64, error) {
	total := 0.0
	for _, raw := range values {
		v, ok, err := ParseNumber(raw)
		if err != nil {
			return 0, err
		}
		if ok {
			total += v
		}
	}
	return total, nil
}

func countDistinct(values []string) float64 {
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	return float64(len(seen))
}

// ParseNumber reads a numeric cell. ok is false for an empty (missing) cell.
// Boolean cells count as 0/1.
func ParseNumber(raw string) (value float64, ok bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, true, nil
		}
		return 0, true, nil
	}
	return 0, false, fmt.Errorf("%w: %q is not numeric", core.ErrInvalidValue, raw)
}
