package nodes

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// ColumnOp combines two numeric columns cell-wise and appends the result as
// a new column. Null in either operand yields null. Two int columns yield
// an int column except for division, which always yields float; a zero
// divisor cell fails the node.
//
// Parameters:
//   - left_col, right_col: operand column names (required)
//   - result_col: appended column name (optional; defaults to
//     "<node id>_result")
type ColumnOp struct {
	node.Base
	op        arithOp
	leftCol   string
	rightCol  string
	resultCol string
	resultCT  schema.ColType
}

func newColumnOp(op arithOp) func(ctx node.Context) (node.Node, error) {
	return func(ctx node.Context) (node.Node, error) {
		return &ColumnOp{Base: node.NewBase(ctx), op: op}, nil
	}
}

func (n *ColumnOp) ValidateParameters() error {
	var err error
	if n.leftCol, err = n.StrParam("left_col"); err != nil {
		return err
	}
	if n.rightCol, err = n.StrParam("right_col"); err != nil {
		return err
	}
	if n.resultCol, err = n.OptStrParam("result_col", schema.DefaultColName(n.NodeID, "result")); err != nil {
		return err
	}
	n.SetParam("result_col", n.resultCol)
	if err := schema.CheckColName(n.resultCol, false); err != nil {
		return errors.NewParameterError(n.NodeID, "result_col", err.Error())
	}
	return nil
}

func (n *ColumnOp) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "input plus result column"},
		}
}

func (n *ColumnOp) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	lct, err := numericCol(n.NodeID, ts, "table", n.leftCol)
	if err != nil {
		return nil, err
	}
	rct, err := numericCol(n.NodeID, ts, "table", n.rightCol)
	if err != nil {
		return nil, err
	}

	n.resultCT = schema.ColFloat
	if lct == schema.ColInt && rct == schema.ColInt && n.op != opDiv {
		n.resultCT = schema.ColInt
	}

	out, err := ts.AppendCol(n.resultCol, n.resultCT)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "table")
	}
	return map[string]*schema.Schema{"table": schema.OfTable(out)}, nil
}

func (n *ColumnOp) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	left, _ := t.Col(n.leftCol)
	right, _ := t.Col(n.rightCol)

	cells := make([]any, t.NumRows())
	for i := range cells {
		if left[i] == nil || right[i] == nil {
			continue // null propagates
		}
		if n.resultCT == schema.ColInt {
			la := left[i].(int64)
			rb := right[i].(int64)
			switch n.op {
			case opAdd:
				cells[i] = la + rb
			case opSub:
				cells[i] = la - rb
			case opMul:
				cells[i] = la * rb
			}
			continue
		}
		lv, _ := asFloat(left[i])
		rv, _ := asFloat(right[i])
		switch n.op {
		case opAdd:
			cells[i] = lv + rv
		case opSub:
			cells[i] = lv - rv
		case opMul:
			cells[i] = lv * rv
		case opDiv:
			if rv == 0 {
				return nil, errors.NewExecutionError(n.NodeID,
					fmt.Sprintf("division by zero at row %d", i))
			}
			cells[i] = lv / rv
		default:
			return nil, errors.NewExecutionError(n.NodeID, fmt.Sprintf("unknown operation %q", n.op))
		}
	}

	out, err := t.AppendCol(n.resultCol, n.resultCT, cells)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to append result column", err)
	}
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}

// columnOpHint suggests numeric columns for the operand parameters.
func columnOpHint(in map[string]*schema.Schema, _ node.Params) map[string]any {
	s, ok := in["table"]
	if !ok || s.Tag != schema.TagTable {
		return nil
	}
	var numeric []string
	for _, c := range s.Table.UserCols() {
		if c.Type == schema.ColInt || c.Type == schema.ColFloat {
			numeric = append(numeric, c.Name)
		}
	}
	return map[string]any{"left_col": numeric, "right_col": numeric}
}
