package dataset

import (
	"fmt"
	"sort"
	"strings"

	"goab/domain/core"
)

// Table is the raw, row-oriented experiment data: one row per event or
// per-user metric record. It is never mutated after construction; every
// pipeline stage derives a new table from it.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable copies columns and rows into an immutable table. Short rows are
// padded with empty (missing) cells; extra cells are an error.
func NewTable(columns []string, rows [][]string) (*Table, error) {
	t := &Table{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]string, len(rows)),
	}

	for i, col := range columns {
		name := strings.TrimSpace(col)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has an empty name", core.ErrInvalidValue, i)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", core.ErrInvalidValue, name)
		}
		t.columns[i] = name
		t.index[name] = i
	}

	for i, row := range rows {
		if len(row) > len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells for %d columns", core.ErrInvalidValue, i, len(row), len(columns))
		}
		cells := make([]string, len(columns))
		copy(cells, row)
		t.rows[i] = cells
	}

	return t, nil
}

// FromRecords builds a table from decoded JSON objects. The column set is the
// sorted union of all keys; absent keys and nulls become missing cells.
func FromRecords(records []map[string]any) (*Table, error) {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = formatCell(rec[col])
		}
		rows[i] = row
	}
	return NewTable(columns, rows)
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; integral values keep an integer spelling
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Columns returns a copy of the column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex resolves a column name to its position.
func (t *Table) ColumnIndex(name string) (int, error) {
	idx, ok := t.index[name]
	if !ok {
		return 0, core.NewMissingColumnError(name)
	}
	return idx, nil
}

// Cell returns the raw value at (row, col).
func (t *Table) Cell(row, col int) string { return t.rows[row][col] }

// Column returns a copy of every value in the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// RequireColumns fails with ErrMissingColumn on the first absent name.
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return core.NewMissingColumnError(name)
		}
	}
	return nil
}

// Partition is the subset of rows sharing one value of a column.
type Partition struct {
	Value string
	Table *Table
}

// PartitionBy splits the table on a column, ordered by natural label order.
// Row order inside each partition is preserved. Rows share the parent's
// cell storage, which is safe because tables are never mutated.
func (t *Table) PartitionBy(column string) ([]Partition, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][][]string)
	for _, row := range t.rows {
		groups[row[idx]] = append(groups[row[idx]], row)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	SortLabels(labels)

	parts := make([]Partition, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, Partition{
			Value: label,
			Table: &Table{columns: t.columns, index: t.index, rows: groups[label]},
		})
	}
	return parts, nil
}
