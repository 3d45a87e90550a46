package nodes

import (
	"fmt"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

var datetimeFields = map[string]func(time.Time) int64{
	"year":    func(t time.Time) int64 { return int64(t.Year()) },
	"month":   func(t time.Time) int64 { return int64(t.Month()) },
	"day":     func(t time.Time) int64 { return int64(t.Day()) },
	"hour":    func(t time.Time) int64 { return int64(t.Hour()) },
	"minute":  func(t time.Time) int64 { return int64(t.Minute()) },
	"second":  func(t time.Time) int64 { return int64(t.Second()) },
	"weekday": func(t time.Time) int64 { return int64(t.Weekday()) },
}

// DatetimeField extracts a calendar field from a datetime column into a new
// int column, evaluated in the process default timezone. Nulls stay null.
//
// Parameters:
//   - col:   the datetime column (required)
//   - field: year, month, day, hour, minute, second or weekday (required)
//   - result_col: appended column name (optional)
type DatetimeField struct {
	node.Base
	col       string
	field     string
	resultCol string
}

func newDatetimeField(ctx node.Context) (node.Node, error) {
	return &DatetimeField{Base: node.NewBase(ctx)}, nil
}

func (n *DatetimeField) ValidateParameters() error {
	var err error
	if n.col, err = n.StrParam("col"); err != nil {
		return err
	}
	if n.field, err = n.StrParam("field"); err != nil {
		return err
	}
	if _, ok := datetimeFields[n.field]; !ok {
		return errors.NewParameterError(n.NodeID, "field", fmt.Sprintf("unknown field %q", n.field))
	}
	if n.resultCol, err = n.OptStrParam("result_col", schema.DefaultColName(n.NodeID, n.field)); err != nil {
		return err
	}
	n.SetParam("result_col", n.resultCol)
	if err := schema.CheckColName(n.resultCol, false); err != nil {
		return errors.NewParameterError(n.NodeID, "result_col", err.Error())
	}
	return nil
}

func (n *DatetimeField) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "input plus extracted field column"},
		}
}

func (n *DatetimeField) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	ct, err := requireCol(n.NodeID, ts, "table", n.col)
	if err != nil {
		return nil, err
	}
	if ct != schema.ColDatetime {
		return nil, errors.NewValidationError(n.NodeID,
			fmt.Sprintf("column %q is %s, expected datetime", n.col, ct), "table")
	}
	out, err := ts.AppendCol(n.resultCol, schema.ColInt)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "table")
	}
	return map[string]*schema.Schema{"table": schema.OfTable(out)}, nil
}

func (n *DatetimeField) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}

	loc := time.UTC
	if n.Config != nil {
		loc = n.Config.Location()
	}
	extract := datetimeFields[n.field]

	src, _ := t.Col(n.col)
	cells := make([]any, t.NumRows())
	for i, v := range src {
		tv, ok := v.(time.Time)
		if !ok {
			continue
		}
		cells[i] = extract(tv.In(loc))
	}

	out, err := t.AppendCol(n.resultCol, schema.ColInt, cells)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to append result column", err)
	}
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}
