package nodes

import (
	"fmt"
	"strings"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// StrCase rewrites a string column to upper or lower case into a new
// column. Nulls stay null.
//
// Parameters:
//   - col:  the string column (required)
//   - mode: "upper" or "lower" (required)
//   - result_col: appended column name (optional; defaults to
//     "<node id>_<mode>")
type StrCase struct {
	node.Base
	col       string
	mode      string
	resultCol string
}

func newStrCase(ctx node.Context) (node.Node, error) {
	return &StrCase{Base: node.NewBase(ctx)}, nil
}

func (n *StrCase) ValidateParameters() error {
	var err error
	if n.col, err = n.StrParam("col"); err != nil {
		return err
	}
	if n.mode, err = n.StrParam("mode"); err != nil {
		return err
	}
	if n.mode != "upper" && n.mode != "lower" {
		return errors.NewParameterError(n.NodeID, "mode", fmt.Sprintf("expected upper or lower, got %q", n.mode))
	}
	if n.resultCol, err = n.OptStrParam("result_col", schema.DefaultColName(n.NodeID, n.mode)); err != nil {
		return err
	}
	n.SetParam("result_col", n.resultCol)
	if err := schema.CheckColName(n.resultCol, false); err != nil {
		return errors.NewParameterError(n.NodeID, "result_col", err.Error())
	}
	return nil
}

func (n *StrCase) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "input plus recased column"},
		}
}

func (n *StrCase) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	ct, err := requireCol(n.NodeID, ts, "table", n.col)
	if err != nil {
		return nil, err
	}
	if ct != schema.ColStr {
		return nil, errors.NewValidationError(n.NodeID,
			fmt.Sprintf("column %q is %s, expected str", n.col, ct), "table")
	}
	out, err := ts.AppendCol(n.resultCol, schema.ColStr)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "table")
	}
	return map[string]*schema.Schema{"table": schema.OfTable(out)}, nil
}

func (n *StrCase) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	src, _ := t.Col(n.col)
	cells := make([]any, t.NumRows())
	for i, v := range src {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n.mode == "upper" {
			cells[i] = strings.ToUpper(s)
		} else {
			cells[i] = strings.ToLower(s)
		}
	}
	out, err := t.AppendCol(n.resultCol, schema.ColStr, cells)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to append result column", err)
	}
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}

// ConcatCols joins two string columns with a separator into a new column.
// A null on either side yields null.
//
// Parameters:
//   - left_col, right_col: string columns (required)
//   - sep: separator (optional, default "")
//   - result_col: appended column name (optional)
type ConcatCols struct {
	node.Base
	leftCol   string
	rightCol  string
	sep       string
	resultCol string
}

func newConcatCols(ctx node.Context) (node.Node, error) {
	return &ConcatCols{Base: node.NewBase(ctx)}, nil
}

func (n *ConcatCols) ValidateParameters() error {
	var err error
	if n.leftCol, err = n.StrParam("left_col"); err != nil {
		return err
	}
	if n.rightCol, err = n.StrParam("right_col"); err != nil {
		return err
	}
	if n.sep, err = n.OptStrParam("sep", ""); err != nil {
		return err
	}
	if n.resultCol, err = n.OptStrParam("result_col", schema.DefaultColName(n.NodeID, "concat")); err != nil {
		return err
	}
	n.SetParam("result_col", n.resultCol)
	if err := schema.CheckColName(n.resultCol, false); err != nil {
		return errors.NewParameterError(n.NodeID, "result_col", err.Error())
	}
	return nil
}

func (n *ConcatCols) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "input plus joined column"},
		}
}

func (n *ConcatCols) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	for _, col := range []string{n.leftCol, n.rightCol} {
		ct, err := requireCol(n.NodeID, ts, "table", col)
		if err != nil {
			return nil, err
		}
		if ct != schema.ColStr {
			return nil, errors.NewValidationError(n.NodeID,
				fmt.Sprintf("column %q is %s, expected str", col, ct), "table")
		}
	}
	out, err := ts.AppendCol(n.resultCol, schema.ColStr)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "table")
	}
	return map[string]*schema.Schema{"table": schema.OfTable(out)}, nil
}

func (n *ConcatCols) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	left, _ := t.Col(n.leftCol)
	right, _ := t.Col(n.rightCol)
	cells := make([]any, t.NumRows())
	for i := range cells {
		ls, lok := left[i].(string)
		rs, rok := right[i].(string)
		if lok && rok {
			cells[i] = ls + n.sep + rs
		}
	}
	out, err := t.AppendCol(n.resultCol, schema.ColStr, cells)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to append result column", err)
	}
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}
