package nodes

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// Filter splits a table on a bool column. Rows where the column is true go
// to "true_table", the rest (false or null) to "false_table". Both outputs
// keep the input schema and are re-indexed 0..n-1.
//
// Parameters:
//   - col: the bool column to split on (required)
type Filter struct {
	node.Base
	col string
}

func newFilter(ctx node.Context) (node.Node, error) {
	return &Filter{Base: node.NewBase(ctx)}, nil
}

func (n *Filter) ValidateParameters() error {
	var err error
	n.col, err = n.StrParam("col")
	return err
}

func (n *Filter) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "true_table", Description: "rows where the column is true"},
			{Name: "false_table", Description: "rows where the column is false or null"},
		}
}

func (n *Filter) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	ct, err := requireCol(n.NodeID, ts, "table", n.col)
	if err != nil {
		return nil, err
	}
	if ct != schema.ColBool {
		return nil, errors.NewValidationError(n.NodeID,
			fmt.Sprintf("column %q is %s, expected bool", n.col, ct), "table")
	}
	return map[string]*schema.Schema{
		"true_table":  in["table"],
		"false_table": in["table"],
	}, nil
}

func (n *Filter) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	cells, _ := t.Col(n.col)

	var trues, falses []int
	for i, v := range cells {
		if b, ok := v.(bool); ok && b {
			trues = append(trues, i)
		} else {
			falses = append(falses, i)
		}
	}

	tt, err := t.SelectRows(trues)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "row selection failed", err)
	}
	ft, err := t.SelectRows(falses)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "row selection failed", err)
	}
	return map[string]*data.Data{
		"true_table":  data.OfTable(tt),
		"false_table": data.OfTable(ft),
	}, nil
}
