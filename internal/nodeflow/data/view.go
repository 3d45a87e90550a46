package data

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
)

// View is the portable, serializable representation of a Data value used
// when crossing process boundaries (status payloads, the HTTP surface).
//
// Encoding rules:
//   - datetimes serialize as ISO-8601 with timezone offset;
//   - the float specials +Inf, -Inf and NaN serialize as the literal
//     strings "Infinity", "-Infinity", "NaN";
//   - null cells serialize as the out-of-band sentinel NullSentinel;
//   - file and model payloads serialize base64.
type View struct {
	Tag    schema.PrimitiveTag `json:"tag"`
	Value  any                 `json:"value,omitempty"`
	Cols   []schema.Column     `json:"cols,omitempty"`
	Cells  map[string][]any    `json:"cells,omitempty"`
	Format string              `json:"format,omitempty"`
	Blob   string              `json:"blob,omitempty"`
	Model  *schema.ModelSchema `json:"model,omitempty"`
}

const (
	// NullSentinel encodes a null table cell in a view.
	NullSentinel = "\x00null"

	litInf    = "Infinity"
	litNegInf = "-Infinity"
	litNaN    = "NaN"
)

func encodeCell(v any, ct schema.ColType) any {
	if v == nil {
		return NullSentinel
	}
	switch ct {
	case schema.ColFloat:
		return encodeFloat(v.(float64))
	case schema.ColDatetime:
		return v.(time.Time).Format(time.RFC3339Nano)
	default:
		return v
	}
}

func encodeFloat(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return litInf
	case math.IsInf(f, -1):
		return litNegInf
	case math.IsNaN(f):
		return litNaN
	default:
		return f
	}
}

func decodeCell(v any, ct schema.ColType) (any, error) {
	if s, ok := v.(string); ok && s == NullSentinel {
		return nil, nil
	}
	switch ct {
	case schema.ColInt:
		switch n := v.(type) {
		case float64:
			return int64(n), nil
		case int64:
			return n, nil
		case json.Number:
			return n.Int64()
		}
		return nil, fmt.Errorf("cannot decode %v (%T) as int", v, v)
	case schema.ColFloat:
		return decodeFloat(v)
	case schema.ColStr:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("cannot decode %v (%T) as str", v, v)
		}
		return s, nil
	case schema.ColBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("cannot decode %v (%T) as bool", v, v)
		}
		return b, nil
	case schema.ColDatetime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("cannot decode %v (%T) as datetime", v, v)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown column type %q", ct)
}

func decodeFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		switch n {
		case litInf:
			return math.Inf(1), nil
		case litNegInf:
			return math.Inf(-1), nil
		case litNaN:
			return math.NaN(), nil
		}
	}
	return nil, fmt.Errorf("cannot decode %v (%T) as float", v, v)
}

// View renders the portable form of the value.
func (d *Data) View() (*View, error) {
	switch d.tag {
	case schema.TagInt:
		return &View{Tag: d.tag, Value: d.i}, nil
	case schema.TagFloat:
		return &View{Tag: d.tag, Value: encodeFloat(d.f)}, nil
	case schema.TagStr:
		return &View{Tag: d.tag, Value: d.s}, nil
	case schema.TagBool:
		return &View{Tag: d.tag, Value: d.b}, nil
	case schema.TagDatetime:
		return &View{Tag: d.tag, Value: d.t.Format(time.RFC3339Nano)}, nil
	case schema.TagTable:
		cols := d.table.schema.Cols()
		cells := make(map[string][]any, len(cols))
		for _, c := range cols {
			src := d.table.cols[c.Name]
			enc := make([]any, len(src))
			for i, v := range src {
				enc[i] = encodeCell(v, c.Type)
			}
			cells[c.Name] = enc
		}
		return &View{Tag: d.tag, Cols: cols, Cells: cells}, nil
	case schema.TagFile:
		return &View{
			Tag:    d.tag,
			Format: d.file.Format,
			Blob:   base64.StdEncoding.EncodeToString(d.file.Bytes),
			Cols:   fileCols(d.file.Table),
		}, nil
	case schema.TagModel:
		return &View{
			Tag:   d.tag,
			Model: d.model.Schema,
			Blob:  base64.StdEncoding.EncodeToString(d.model.Bytes),
		}, nil
	}
	return nil, fmt.Errorf("invalid data tag %q", d.tag)
}

func fileCols(ts *schema.TableSchema) []schema.Column {
	if ts == nil {
		return nil
	}
	return ts.Cols()
}

// FromView reconstructs a Data value from its portable form.
func FromView(v *View) (*Data, error) {
	switch v.Tag {
	case schema.TagInt:
		cell, err := decodeCell(v.Value, schema.ColInt)
		if err != nil {
			return nil, err
		}
		return Int(cell.(int64)), nil
	case schema.TagFloat:
		cell, err := decodeFloat(v.Value)
		if err != nil {
			return nil, err
		}
		return Float(cell.(float64)), nil
	case schema.TagStr:
		s, ok := v.Value.(string)
		if !ok {
			return nil, fmt.Errorf("str view holds %T", v.Value)
		}
		return Str(s), nil
	case schema.TagBool:
		b, ok := v.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("bool view holds %T", v.Value)
		}
		return Bool(b), nil
	case schema.TagDatetime:
		cell, err := decodeCell(v.Value, schema.ColDatetime)
		if err != nil {
			return nil, err
		}
		return Datetime(cell.(time.Time)), nil
	case schema.TagTable:
		ts, err := schema.NewTableSchema(v.Cols)
		if err != nil {
			return nil, err
		}
		cells := make(map[string][]any)
		for _, c := range ts.UserCols() {
			enc, ok := v.Cells[c.Name]
			if !ok {
				return nil, fmt.Errorf("table view missing column %q", c.Name)
			}
			dec := make([]any, len(enc))
			for i, raw := range enc {
				dec[i], err = decodeCell(raw, c.Type)
				if err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
				}
			}
			cells[c.Name] = dec
		}
		t, err := NewTable(ts, cells)
		if err != nil {
			return nil, err
		}
		return OfTable(t), nil
	case schema.TagFile:
		blob, err := base64.StdEncoding.DecodeString(v.Blob)
		if err != nil {
			return nil, err
		}
		var ts *schema.TableSchema
		if len(v.Cols) > 0 {
			ts, err = schema.NewTableSchema(v.Cols)
			if err != nil {
				return nil, err
			}
		}
		return OfFile(&File{Format: v.Format, Bytes: blob, Table: ts}), nil
	case schema.TagModel:
		blob, err := base64.StdEncoding.DecodeString(v.Blob)
		if err != nil {
			return nil, err
		}
		return OfModel(&Model{Schema: v.Model, Bytes: blob}), nil
	}
	return nil, fmt.Errorf("invalid view tag %q", v.Tag)
}

// FastHash computes a content hash stable across equal values. The hash is
// sha256 over the compact JSON of the canonical view; encoding/json sorts
// map keys so column ordering in the cell map cannot perturb it.
func (d *Data) FastHash() (string, error) {
	view, err := d.View()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// FastHash hashes the table through its Data wrapper.
func (t *Table) FastHash() (string, error) {
	return OfTable(t).FastHash()
}

// FastHash hashes the serialized model bytes plus schema.
func (m *Model) FastHash() (string, error) {
	return OfModel(m).FastHash()
}
