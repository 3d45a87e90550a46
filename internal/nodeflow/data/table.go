// Package data implements the runtime value containers the interpreter
// executes over: scalar primitives, columnar tables, opaque file blobs and
// serialized models. Every container can report the Schema it conforms to,
// compare structurally, and hash its content.
package data

import (
	"fmt"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
)

// Table is a rectangular columnar store plus its declared column types.
// Cells are typed per column: int64, float64, string, bool or time.Time;
// nil encodes a null. The "_index" column is always present, populated
// 0..n-1.
type Table struct {
	schema *schema.TableSchema
	cols   map[string][]any
	rows   int
}

// NewTable builds a table from a schema and per-column cell slices. Every
// user column declared by the schema must be present with matching length;
// "_index" is generated. Cell values are checked against the column type.
func NewTable(ts *schema.TableSchema, cols map[string][]any) (*Table, error) {
	if ts == nil {
		return nil, fmt.Errorf("table schema is required")
	}

	rows := -1
	for _, c := range ts.UserCols() {
		cells, ok := cols[c.Name]
		if !ok {
			return nil, fmt.Errorf("column %q declared but not provided", c.Name)
		}
		if rows == -1 {
			rows = len(cells)
		} else if len(cells) != rows {
			return nil, fmt.Errorf("column %q has %d cells, want %d", c.Name, len(cells), rows)
		}
		for i, v := range cells {
			if err := checkCell(v, c.Type); err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
		}
	}
	if rows == -1 {
		// Table with no user columns: row count comes from a provided
		// _index column, else zero.
		rows = len(cols[schema.IndexCol])
	}
	for name := range cols {
		if name != schema.IndexCol && !ts.Has(name) {
			return nil, fmt.Errorf("column %q provided but not declared", name)
		}
	}

	t := &Table{schema: ts.Clone(), cols: make(map[string][]any, ts.NumCols()), rows: rows}
	for _, c := range ts.UserCols() {
		cells := make([]any, rows)
		copy(cells, cols[c.Name])
		t.cols[c.Name] = cells
	}
	t.cols[schema.IndexCol] = indexCells(rows)
	return t, nil
}

// MustTable is NewTable that panics on error; for node literals and tests.
func MustTable(ts *schema.TableSchema, cols map[string][]any) *Table {
	t, err := NewTable(ts, cols)
	if err != nil {
		panic(err)
	}
	return t
}

func indexCells(rows int) []any {
	cells := make([]any, rows)
	for i := range cells {
		cells[i] = int64(i)
	}
	return cells
}

func checkCell(v any, ct schema.ColType) error {
	if v == nil {
		return nil // null
	}
	switch ct {
	case schema.ColInt:
		if _, ok := v.(int64); !ok {
			return fmt.Errorf("cell %v (%T) is not int64", v, v)
		}
	case schema.ColFloat:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("cell %v (%T) is not float64", v, v)
		}
	case schema.ColStr:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("cell %v (%T) is not string", v, v)
		}
	case schema.ColBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("cell %v (%T) is not bool", v, v)
		}
	case schema.ColDatetime:
		if _, ok := v.(time.Time); !ok {
			return fmt.Errorf("cell %v (%T) is not time.Time", v, v)
		}
	default:
		return fmt.Errorf("unknown column type %q", ct)
	}
	return nil
}

// ExtractSchema returns the table's schema.
func (t *Table) ExtractSchema() *schema.TableSchema {
	return t.schema.Clone()
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.rows
}

// Col returns the cells of the named column.
func (t *Table) Col(name string) ([]any, bool) {
	cells, ok := t.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(cells))
	copy(out, cells)
	return out, true
}

// Cell returns the value at (row, column).
func (t *Table) Cell(row int, name string) (any, error) {
	cells, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	if row < 0 || row >= t.rows {
		return nil, fmt.Errorf("row %d out of range [0,%d)", row, t.rows)
	}
	return cells[row], nil
}

// AppendCol returns a new table with one column appended. Fails on name
// collision, illegal name, length mismatch or cell type mismatch.
func (t *Table) AppendCol(name string, ct schema.ColType, cells []any) (*Table, error) {
	if len(cells) != t.rows {
		return nil, fmt.Errorf("column %q has %d cells, want %d", name, len(cells), t.rows)
	}
	ns, err := t.schema.AppendCol(name, ct)
	if err != nil {
		return nil, err
	}
	for i, v := range cells {
		if err := checkCell(v, ct); err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
	}

	out := t.clone()
	out.schema = ns
	col := make([]any, len(cells))
	copy(col, cells)
	out.cols[name] = col
	return out, nil
}

// SelectRows returns a new table keeping the rows whose positions are in
// keep, in order. The "_index" column is regenerated 0..n-1.
func (t *Table) SelectRows(keep []int) (*Table, error) {
	for _, i := range keep {
		if i < 0 || i >= t.rows {
			return nil, fmt.Errorf("row %d out of range [0,%d)", i, t.rows)
		}
	}
	out := &Table{schema: t.schema.Clone(), cols: make(map[string][]any, len(t.cols)), rows: len(keep)}
	for _, c := range t.schema.UserCols() {
		src := t.cols[c.Name]
		cells := make([]any, len(keep))
		for j, i := range keep {
			cells[j] = src[i]
		}
		out.cols[c.Name] = cells
	}
	out.cols[schema.IndexCol] = indexCells(len(keep))
	return out, nil
}

// Slice returns rows [lo, hi) as a new table with a regenerated index.
func (t *Table) Slice(lo, hi int) (*Table, error) {
	if lo < 0 || hi > t.rows || lo > hi {
		return nil, fmt.Errorf("slice [%d,%d) out of range for %d rows", lo, hi, t.rows)
	}
	keep := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		keep = append(keep, i)
	}
	return t.SelectRows(keep)
}

// Row returns row i as a single-row table.
func (t *Table) Row(i int) (*Table, error) {
	return t.Slice(i, i+1)
}

// DropCol returns a new table without the named user column.
func (t *Table) DropCol(name string) (*Table, error) {
	if name == schema.IndexCol {
		return nil, fmt.Errorf("cannot drop the %q column", schema.IndexCol)
	}
	if !t.schema.Has(name) {
		return nil, fmt.Errorf("no column %q", name)
	}
	cols := make([]schema.Column, 0, t.schema.NumCols()-2)
	for _, c := range t.schema.UserCols() {
		if c.Name != name {
			cols = append(cols, c)
		}
	}
	ns, err := schema.NewTableSchema(cols)
	if err != nil {
		return nil, err
	}
	cells := make(map[string][]any, len(cols))
	for _, c := range cols {
		cells[c.Name] = t.cols[c.Name]
	}
	return NewTable(ns, cells)
}

// Concat appends the rows of others below t. All tables must share the same
// schema; the result's index is regenerated.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("concat of zero tables")
	}
	base := tables[0].schema
	total := 0
	for _, tb := range tables {
		if !tb.schema.Equal(base) {
			return nil, fmt.Errorf("concat schema mismatch")
		}
		total += tb.rows
	}
	out := &Table{schema: base.Clone(), cols: make(map[string][]any), rows: total}
	for _, c := range base.UserCols() {
		cells := make([]any, 0, total)
		for _, tb := range tables {
			cells = append(cells, tb.cols[c.Name]...)
		}
		out.cols[c.Name] = cells
	}
	out.cols[schema.IndexCol] = indexCells(total)
	return out, nil
}

// RegenerateIndex rewrites the "_index" column to 0..n-1 in place.
func (t *Table) RegenerateIndex() {
	t.cols[schema.IndexCol] = indexCells(t.rows)
}

// Equal is structural: same schema, same cell values in the same positions.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || !t.schema.Equal(o.schema) {
		return false
	}
	for _, c := range t.schema.Cols() {
		a, b := t.cols[c.Name], o.cols[c.Name]
		for i := range a {
			if !cellEqual(a[i], b[i]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok || bok {
		return aok && bok && at.Equal(bt)
	}
	return a == b
}

func (t *Table) clone() *Table {
	out := &Table{schema: t.schema.Clone(), cols: make(map[string][]any, len(t.cols)), rows: t.rows}
	for name, cells := range t.cols {
		cp := make([]any, len(cells))
		copy(cp, cells)
		out.cols[name] = cp
	}
	return out
}
