package aggregation

import (
	"fmt"
	"testing"

	"goab/domain/core"
	"goab/domain/dataset"
	"goab/domain/metric"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var columns = []string{"experiment_variant", "client_id", "session_id", "clicks", "views"}

func mustDefinition(t require.TestingT, numFn, denFn, numField, denField string) *metric.Definition {
	def, err := metric.Parse(map[string]any{
		"name":        "test_metric",
		"numerator":   map[string]any{"aggregation_field": numField, "aggregation_function": numFn},
		"denominator": map[string]any{"aggregation_field": denField, "aggregation_function": denFn},
	}, metric.DefaultDefaults())
	require.NoError(t, err)
	return def
}

func mustTable(t require.TestingT, rows [][]string) *dataset.Table {
	table, err := dataset.NewTable(columns, rows)
	require.NoError(t, err)
	return table
}

func TestAggregate_SumOverSum(t *testing.T) {
	table := mustTable(t, [][]string{
		{"0", "u1", "s1", "1", "3"},
		{"0", "u1", "s2", "2", "4"},
		{"0", "u2", "s3", "0", "1"},
		{"1", "u3", "s4", "5", "5"},
	})
	def := mustDefinition(t, "sum", "sum", "clicks", "views")

	got, err := New("experiment_variant").Aggregate(table, def)
	require.NoError(t, err)

	assert.Equal(t, []dataset.AggregatedRow{
		{Variant: "0", Unit: "u1", Num: 3, Den: 7, N: 1},
		{Variant: "0", Unit: "u2", Num: 0, Den: 1, N: 1},
		{Variant: "1", Unit: "u3", Num: 5, Den: 5, N: 1},
	}, got.Rows)
}

func TestAggregate_CountDistinct(t *testing.T) {
	table := mustTable(t, [][]string{
		{"0", "u1", "s1", "1", ""},
		{"0", "u1", "s1", "1", ""},
		{"0", "u1", "s2", "1", ""},
		{"1", "u2", "s3", "1", ""},
	})
	def := mustDefinition(t, "count_distinct", "count_distinct", "session_id", "client_id")

	got, err := New("experiment_variant").Aggregate(table, def)
	require.NoError(t, err)

	require.Len(t, got.Rows, 2)
	assert.Equal(t, 2.0, got.Rows[0].Num)
	assert.Equal(t, 1.0, got.Rows[0].Den)
	assert.Equal(t, got.Rows[0].Den, float64(got.Rows[0].N))
}

func TestAggregate_DropsRowsWithoutKeys(t *testing.T) {
	table := mustTable(t, [][]string{
		{"0", "u1", "s1", "1", "1"},
		{"", "u2", "s2", "1", "1"},
		{"1", "", "s3", "1", "1"},
		{"1", "u4", "s4", "1", "1"},
	})
	def := mustDefinition(t, "sum", "sum", "clicks", "views")

	got, err := New("experiment_variant").Aggregate(table, def)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 2)
}

func TestAggregate_Errors(t *testing.T) {
	agg := New("experiment_variant")
	def := mustDefinition(t, "sum", "sum", "clicks", "views")

	_, err := agg.Aggregate(mustTable(t, nil), def)
	assert.ErrorIs(t, err, core.ErrEmptyTable)

	missing := mustDefinition(t, "sum", "sum", "revenue", "views")
	_, err = agg.Aggregate(mustTable(t, [][]string{{"0", "u1", "s1", "1", "1"}}), missing)
	assert.ErrorIs(t, err, core.ErrMissingColumn)

	_, err = agg.Aggregate(mustTable(t, [][]string{{"0", "u1", "s1", "many", "1"}}), def)
	assert.ErrorIs(t, err, core.ErrInvalidValue)

	_, err = New("variant").Aggregate(mustTable(t, [][]string{{"0", "u1", "s1", "1", "1"}}), def)
	assert.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	rows := [][]string{{"1", "u2", "s1", "1", "2"}, {"0", "u1", "s2", "3", "4"}}
	table := mustTable(t, rows)
	before, _ := table.Column("client_id")

	_, err := New("experiment_variant").Aggregate(table, mustDefinition(t, "sum", "sum", "clicks", "views"))
	require.NoError(t, err)

	after, _ := table.Column("client_id")
	assert.Equal(t, before, after)
}

// TestAggregate_OrderInvariant permutes the input rows and expects the same row set.
func TestAggregate_OrderInvariant(t *testing.T) {
	def := mustDefinition(t, "sum", "count_distinct", "clicks", "session_id")
	agg := New("experiment_variant")

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(rt, "rows")
		rows := make([][]string, n)
		for i := range rows {
			rows[i] = []string{
				fmt.Sprint(rapid.IntRange(0, 1).Draw(rt, "variant")),
				fmt.Sprintf("u%d", rapid.IntRange(0, 8).Draw(rt, "unit")),
				fmt.Sprintf("s%d", rapid.IntRange(0, 5).Draw(rt, "session")),
				fmt.Sprint(rapid.IntRange(0, 10).Draw(rt, "clicks")),
				"",
			}
		}
		perm := rapid.Permutation(rows).Draw(rt, "perm")

		want, err := agg.Aggregate(mustTable(rt, rows), def)
		if err != nil {
			rt.Fatalf("aggregate: %v", err)
		}
		got, err := agg.Aggregate(mustTable(rt, perm), def)
		if err != nil {
			rt.Fatalf("aggregate permuted: %v", err)
		}

		less := func(a, b dataset.AggregatedRow) bool {
			return a.Variant+"/"+a.Unit < b.Variant+"/"+b.Unit
		}
		if diff := cmp.Diff(want.Rows, got.Rows, cmpopts.SortSlices(less)); diff != "" {
			rt.Fatalf("aggregation depends on row order (-want +got):\n%s", diff)
		}
	})
}
