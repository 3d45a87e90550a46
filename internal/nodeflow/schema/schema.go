// Package schema implements the static type system of the graph
// interpreter: primitive tags, column types, table/file/model schemas, the
// Schema tagged union and the Pattern acceptance predicate ports use.
//
// The interpreter reasons purely in these terms during stage-2 analysis
// before any Data is materialized.
package schema

import (
	"encoding/json"
	"fmt"
)

// Column is one named, typed column of a TableSchema.
type Column struct {
	Name string  `json:"name"`
	Type ColType `json:"type"`
}

// TableSchema is an ordered mapping from column name to column type. The
// reserved "_index" column is always present and always int; user columns
// never start with "_". Order is insertion order and is significant for
// structural equality.
type TableSchema struct {
	cols  []Column
	index map[string]int
}

// NewTableSchema builds a table schema from user columns. The "_index"
// column is prepended automatically when absent. Illegal or duplicate
// names error.
func NewTableSchema(cols []Column) (*TableSchema, error) {
	ts := &TableSchema{index: make(map[string]int)}
	for _, c := range cols {
		if c.Name == IndexCol {
			if c.Type != ColInt {
				return nil, fmt.Errorf("column %q must be int, got %s", IndexCol, c.Type)
			}
			continue
		}
		if err := CheckColName(c.Name, false); err != nil {
			return nil, err
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("column %q has unknown type %q", c.Name, c.Type)
		}
	}

	ts.cols = append(ts.cols, Column{Name: IndexCol, Type: ColInt})
	ts.index[IndexCol] = 0
	for _, c := range cols {
		if c.Name == IndexCol {
			continue
		}
		if _, dup := ts.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		ts.index[c.Name] = len(ts.cols)
		ts.cols = append(ts.cols, c)
	}
	return ts, nil
}

// MustTableSchema is NewTableSchema that panics on error; for literals in
// node definitions and tests.
func MustTableSchema(cols ...Column) *TableSchema {
	ts, err := NewTableSchema(cols)
	if err != nil {
		panic(err)
	}
	return ts
}

// Cols returns the ordered columns including "_index".
func (t *TableSchema) Cols() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// UserCols returns the ordered columns without "_index".
func (t *TableSchema) UserCols() []Column {
	out := make([]Column, 0, len(t.cols)-1)
	for _, c := range t.cols {
		if c.Name != IndexCol {
			out = append(out, c)
		}
	}
	return out
}

// ColNames returns the ordered column names including "_index".
func (t *TableSchema) ColNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the named column exists.
func (t *TableSchema) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// TypeOf returns the column type of name.
func (t *TableSchema) TypeOf(name string) (ColType, bool) {
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.cols[i].Type, true
}

// NumCols returns the column count including "_index".
func (t *TableSchema) NumCols() int {
	return len(t.cols)
}

// AppendCol returns a new schema with one column added at the end. Fails on
// collision or illegal name.
func (t *TableSchema) AppendCol(name string, ct ColType) (*TableSchema, error) {
	if err := CheckColName(name, false); err != nil {
		return nil, err
	}
	if t.Has(name) {
		return nil, fmt.Errorf("column %q already exists", name)
	}
	if !ct.Valid() {
		return nil, fmt.Errorf("column %q has unknown type %q", name, ct)
	}
	out := t.Clone()
	out.index[name] = len(out.cols)
	out.cols = append(out.cols, Column{Name: name, Type: ct})
	return out, nil
}

// Clone returns a deep copy.
func (t *TableSchema) Clone() *TableSchema {
	out := &TableSchema{
		cols:  make([]Column, len(t.cols)),
		index: make(map[string]int, len(t.index)),
	}
	copy(out.cols, t.cols)
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}

// Equal is structural equality: same columns in the same order.
func (t *TableSchema) Equal(o *TableSchema) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.cols) != len(o.cols) {
		return false
	}
	for i := range t.cols {
		if t.cols[i] != o.cols[i] {
			return false
		}
	}
	return true
}

func (t *TableSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.cols)
}

func (t *TableSchema) UnmarshalJSON(data []byte) error {
	var cols []Column
	if err := json.Unmarshal(data, &cols); err != nil {
		return err
	}
	ts, err := NewTableSchema(cols)
	if err != nil {
		return err
	}
	*t = *ts
	return nil
}

// FileSchema describes an opaque file artifact: a format tag (e.g. "csv",
// "png") and, for table-like formats, the table schema of the content.
type FileSchema struct {
	Format string       `json:"format"`
	Table  *TableSchema `json:"table,omitempty"`
}

// Equal is structural equality.
func (f *FileSchema) Equal(o *FileSchema) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Format != o.Format {
		return false
	}
	if (f.Table == nil) != (o.Table == nil) {
		return false
	}
	if f.Table != nil && !f.Table.Equal(o.Table) {
		return false
	}
	return true
}

// ModelSchema describes a trained estimator: its category plus the columns
// it consumes and produces.
type ModelSchema struct {
	Category   ModelCategory      `json:"category"`
	InputCols  map[string]ColType `json:"input_cols"`
	OutputCols map[string]ColType `json:"output_cols"`
}

// Equal is structural equality; column maps compare by value.
func (m *ModelSchema) Equal(o *ModelSchema) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Category != o.Category {
		return false
	}
	return colMapsEqual(m.InputCols, o.InputCols) && colMapsEqual(m.OutputCols, o.OutputCols)
}

func colMapsEqual(a, b map[string]ColType) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Schema is the tagged union describing a Data value's shape: a scalar
// primitive, or a table, file, or model with a nested sub-schema.
type Schema struct {
	Tag   PrimitiveTag `json:"tag"`
	Table *TableSchema `json:"table,omitempty"`
	File  *FileSchema  `json:"file,omitempty"`
	Model *ModelSchema `json:"model,omitempty"`
}

// Scalar builds a schema for one of the five scalar tags.
func Scalar(tag PrimitiveTag) *Schema {
	return &Schema{Tag: tag}
}

// OfTable builds a TABLE schema.
func OfTable(ts *TableSchema) *Schema {
	return &Schema{Tag: TagTable, Table: ts}
}

// OfFile builds a FILE schema.
func OfFile(fs *FileSchema) *Schema {
	return &Schema{Tag: TagFile, File: fs}
}

// OfModel builds a MODEL schema.
func OfModel(ms *ModelSchema) *Schema {
	return &Schema{Tag: TagModel, Model: ms}
}

// Validate checks internal consistency of the union.
func (s *Schema) Validate() error {
	if !s.Tag.Valid() {
		return fmt.Errorf("unknown primitive tag %q", s.Tag)
	}
	switch s.Tag {
	case TagTable:
		if s.Table == nil {
			return fmt.Errorf("table schema missing table definition")
		}
	case TagFile:
		if s.File == nil {
			return fmt.Errorf("file schema missing file definition")
		}
	case TagModel:
		if s.Model == nil {
			return fmt.Errorf("model schema missing model definition")
		}
		if !s.Model.Category.Valid() {
			return fmt.Errorf("unknown model category %q", s.Model.Category)
		}
	}
	return nil
}

// Equal is structural equality over the whole union.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Tag != o.Tag {
		return false
	}
	switch s.Tag {
	case TagTable:
		return s.Table.Equal(o.Table)
	case TagFile:
		return s.File.Equal(o.File)
	case TagModel:
		return s.Model.Equal(o.Model)
	default:
		return true
	}
}

// String renders a compact human-readable form for error messages.
func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	}
	switch s.Tag {
	case TagTable:
		if s.Table == nil {
			return "table<?>"
		}
		cols := ""
		for i, c := range s.Table.UserCols() {
			if i > 0 {
				cols += ", "
			}
			cols += fmt.Sprintf("%s:%s", c.Name, c.Type)
		}
		return fmt.Sprintf("table<%s>", cols)
	case TagFile:
		if s.File == nil {
			return "file<?>"
		}
		return fmt.Sprintf("file<%s>", s.File.Format)
	case TagModel:
		if s.Model == nil {
			return "model<?>"
		}
		return fmt.Sprintf("model<%s>", s.Model.Category)
	default:
		return string(s.Tag)
	}
}
