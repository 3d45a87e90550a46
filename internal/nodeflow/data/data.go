package data

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
)

// File is an opaque, content-addressed artifact with a format tag and an
// optional table schema for table-like formats.
type File struct {
	Format string
	Bytes  []byte
	Table  *schema.TableSchema
}

// Digest returns the sha256 content address of the blob.
func (f *File) Digest() [32]byte {
	return sha256.Sum256(f.Bytes)
}

// Model is a serialized trained estimator plus the schema describing what
// it consumes and produces. The estimator bytes are opaque to the
// interpreter.
type Model struct {
	Schema *schema.ModelSchema
	Bytes  []byte
}

// Data is the runtime tagged union mirroring Schema. Exactly one payload
// field is set, selected by the tag.
type Data struct {
	tag   schema.PrimitiveTag
	i     int64
	f     float64
	s     string
	b     bool
	t     time.Time
	table *Table
	file  *File
	model *Model
}

// Constructors

func Int(v int64) *Data     { return &Data{tag: schema.TagInt, i: v} }
func Float(v float64) *Data { return &Data{tag: schema.TagFloat, f: v} }
func Str(v string) *Data    { return &Data{tag: schema.TagStr, s: v} }
func Bool(v bool) *Data     { return &Data{tag: schema.TagBool, b: v} }
func Datetime(v time.Time) *Data {
	return &Data{tag: schema.TagDatetime, t: v}
}

func OfTable(t *Table) *Data {
	return &Data{tag: schema.TagTable, table: t}
}

func OfFile(f *File) *Data {
	return &Data{tag: schema.TagFile, file: f}
}

func OfModel(m *Model) *Data {
	return &Data{tag: schema.TagModel, model: m}
}

// Tag returns the primitive tag of the value.
func (d *Data) Tag() schema.PrimitiveTag {
	return d.tag
}

// Accessors; each errors when the tag does not match.

func (d *Data) Int() (int64, error) {
	if d.tag != schema.TagInt {
		return 0, fmt.Errorf("data is %s, not int", d.tag)
	}
	return d.i, nil
}

func (d *Data) Float() (float64, error) {
	if d.tag != schema.TagFloat {
		return 0, fmt.Errorf("data is %s, not float", d.tag)
	}
	return d.f, nil
}

// Number widens int data to float64; accepts int and float tags.
func (d *Data) Number() (float64, error) {
	switch d.tag {
	case schema.TagInt:
		return float64(d.i), nil
	case schema.TagFloat:
		return d.f, nil
	}
	return 0, fmt.Errorf("data is %s, not numeric", d.tag)
}

func (d *Data) Str() (string, error) {
	if d.tag != schema.TagStr {
		return "", fmt.Errorf("data is %s, not str", d.tag)
	}
	return d.s, nil
}

func (d *Data) Bool() (bool, error) {
	if d.tag != schema.TagBool {
		return false, fmt.Errorf("data is %s, not bool", d.tag)
	}
	return d.b, nil
}

func (d *Data) Datetime() (time.Time, error) {
	if d.tag != schema.TagDatetime {
		return time.Time{}, fmt.Errorf("data is %s, not datetime", d.tag)
	}
	return d.t, nil
}

func (d *Data) Table() (*Table, error) {
	if d.tag != schema.TagTable {
		return nil, fmt.Errorf("data is %s, not table", d.tag)
	}
	return d.table, nil
}

func (d *Data) File() (*File, error) {
	if d.tag != schema.TagFile {
		return nil, fmt.Errorf("data is %s, not file", d.tag)
	}
	return d.file, nil
}

func (d *Data) Model() (*Model, error) {
	if d.tag != schema.TagModel {
		return nil, fmt.Errorf("data is %s, not model", d.tag)
	}
	return d.model, nil
}

// Scalar returns the raw cell value for scalar data, suitable for storing
// in a table column.
func (d *Data) Scalar() (any, error) {
	switch d.tag {
	case schema.TagInt:
		return d.i, nil
	case schema.TagFloat:
		return d.f, nil
	case schema.TagStr:
		return d.s, nil
	case schema.TagBool:
		return d.b, nil
	case schema.TagDatetime:
		return d.t, nil
	}
	return nil, fmt.Errorf("data is %s, not scalar", d.tag)
}

// FromScalar wraps a table cell value into Data of the given column type.
func FromScalar(v any, ct schema.ColType) (*Data, error) {
	if err := checkCell(v, ct); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("cannot wrap a null cell")
	}
	switch ct {
	case schema.ColInt:
		return Int(v.(int64)), nil
	case schema.ColFloat:
		return Float(v.(float64)), nil
	case schema.ColStr:
		return Str(v.(string)), nil
	case schema.ColBool:
		return Bool(v.(bool)), nil
	case schema.ColDatetime:
		return Datetime(v.(time.Time)), nil
	}
	return nil, fmt.Errorf("unknown column type %q", ct)
}

// ExtractSchema derives the Schema this value conforms to. This is the
// single dispatch point over the union; callers never type-switch on Data
// themselves.
func (d *Data) ExtractSchema() *schema.Schema {
	switch d.tag {
	case schema.TagTable:
		return schema.OfTable(d.table.ExtractSchema())
	case schema.TagFile:
		return schema.OfFile(&schema.FileSchema{Format: d.file.Format, Table: d.file.Table})
	case schema.TagModel:
		return schema.OfModel(d.model.Schema)
	default:
		return schema.Scalar(d.tag)
	}
}

// Equal is structural equality over the union.
func (d *Data) Equal(o *Data) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.tag != o.tag {
		return false
	}
	switch d.tag {
	case schema.TagInt:
		return d.i == o.i
	case schema.TagFloat:
		return d.f == o.f
	case schema.TagStr:
		return d.s == o.s
	case schema.TagBool:
		return d.b == o.b
	case schema.TagDatetime:
		return d.t.Equal(o.t)
	case schema.TagTable:
		return d.table.Equal(o.table)
	case schema.TagFile:
		if d.file.Format != o.file.Format || string(d.file.Bytes) != string(o.file.Bytes) {
			return false
		}
		if (d.file.Table == nil) != (o.file.Table == nil) {
			return false
		}
		return d.file.Table == nil || d.file.Table.Equal(o.file.Table)
	case schema.TagModel:
		return d.model.Schema.Equal(o.model.Schema) && string(d.model.Bytes) == string(o.model.Bytes)
	}
	return false
}

// String renders a short human-readable form for logs and status payloads.
func (d *Data) String() string {
	switch d.tag {
	case schema.TagInt:
		return fmt.Sprintf("%d", d.i)
	case schema.TagFloat:
		return fmt.Sprintf("%g", d.f)
	case schema.TagStr:
		return d.s
	case schema.TagBool:
		return fmt.Sprintf("%t", d.b)
	case schema.TagDatetime:
		return d.t.Format(time.RFC3339)
	case schema.TagTable:
		return fmt.Sprintf("table(%d rows)", d.table.NumRows())
	case schema.TagFile:
		return fmt.Sprintf("file(%s, %d bytes)", d.file.Format, len(d.file.Bytes))
	case schema.TagModel:
		return fmt.Sprintf("model(%s)", d.model.Schema.Category)
	}
	return "<invalid>"
}
