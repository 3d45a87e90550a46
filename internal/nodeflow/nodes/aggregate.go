package nodes

import (
	"fmt"
	"math"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// Aggregate reduces one numeric column to a scalar on its "value" port.
// Nulls are skipped. "count" counts non-null cells and is always int; "sum",
// "min" and "max" keep the column type; "mean" is always float. Aggregating
// an empty column is an execution failure except for count and sum.
//
// Parameters:
//   - col: the numeric column (required)
//   - op:  sum, mean, min, max or count (required)
type Aggregate struct {
	node.Base
	col string
	op  string
	ct  schema.ColType
}

func newAggregate(ctx node.Context) (node.Node, error) {
	return &Aggregate{Base: node.NewBase(ctx)}, nil
}

func (n *Aggregate) ValidateParameters() error {
	var err error
	if n.col, err = n.StrParam("col"); err != nil {
		return err
	}
	if n.op, err = n.StrParam("op"); err != nil {
		return err
	}
	switch n.op {
	case "sum", "mean", "min", "max", "count":
	default:
		return errors.NewParameterError(n.NodeID, "op", fmt.Sprintf("unknown aggregation %q", n.op))
	}
	return nil
}

func (n *Aggregate) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "value", Description: "the aggregate"},
		}
}

func (n *Aggregate) resultTag() schema.PrimitiveTag {
	switch n.op {
	case "count":
		return schema.TagInt
	case "mean":
		return schema.TagFloat
	}
	return n.ct.ToPrimitiveTag()
}

func (n *Aggregate) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	n.ct, err = numericCol(n.NodeID, ts, "table", n.col)
	if err != nil {
		return nil, err
	}
	return map[string]*schema.Schema{"value": schema.Scalar(n.resultTag())}, nil
}

func (n *Aggregate) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	src, _ := t.Col(n.col)

	var (
		count    int64
		sum      float64
		min, max float64
	)
	for _, v := range src {
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		if count == 0 {
			min, max = f, f
		} else {
			min = math.Min(min, f)
			max = math.Max(max, f)
		}
		count++
		sum += f
	}

	if n.op == "count" {
		return map[string]*data.Data{"value": data.Int(count)}, nil
	}
	if count == 0 && n.op != "sum" {
		return nil, errors.NewExecutionError(n.NodeID,
			fmt.Sprintf("cannot compute %s of column %q: no non-null cells", n.op, n.col))
	}

	var r float64
	switch n.op {
	case "sum":
		r = sum
	case "mean":
		r = sum / float64(count)
	case "min":
		r = min
	case "max":
		r = max
	}

	if n.resultTag() == schema.TagInt {
		return map[string]*data.Data{"value": data.Int(int64(r))}, nil
	}
	return map[string]*data.Data{"value": data.Float(r)}, nil
}
