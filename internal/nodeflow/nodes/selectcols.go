package nodes

import (
	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// SelectCols keeps only the named user columns, in the order given.
// DropCols removes the named user columns. Both re-emit the table with the
// index regenerated through the schema rebuild.
//
// Parameters:
//   - cols: list of user column names (required, non-empty)
type SelectCols struct {
	node.Base
	cols []string
	drop bool
}

func newSelectCols(drop bool) func(ctx node.Context) (node.Node, error) {
	return func(ctx node.Context) (node.Node, error) {
		return &SelectCols{Base: node.NewBase(ctx), drop: drop}, nil
	}
}

func (n *SelectCols) ValidateParameters() error {
	cols, err := strListParam(&n.Base, "cols")
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return errors.NewParameterError(n.NodeID, "cols", "need at least one column name")
	}
	if err := schema.CheckColNames(cols, false); err != nil {
		return errors.NewParameterError(n.NodeID, "cols", err.Error())
	}
	n.cols = cols
	return nil
}

func (n *SelectCols) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "input table", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "reshaped table"},
		}
}

// keepList resolves the parameter against a schema into the surviving user
// columns, in output order.
func (n *SelectCols) keepList(ts *schema.TableSchema) ([]schema.Column, error) {
	for _, c := range n.cols {
		if _, err := requireCol(n.NodeID, ts, "table", c); err != nil {
			return nil, err
		}
	}
	if !n.drop {
		out := make([]schema.Column, 0, len(n.cols))
		for _, name := range n.cols {
			ct, _ := ts.TypeOf(name)
			out = append(out, schema.Column{Name: name, Type: ct})
		}
		return out, nil
	}
	dropped := make(map[string]bool, len(n.cols))
	for _, c := range n.cols {
		dropped[c] = true
	}
	var out []schema.Column
	for _, c := range ts.UserCols() {
		if !dropped[c.Name] {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError(n.NodeID, "dropping every user column", "table")
	}
	return out, nil
}

func (n *SelectCols) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	keep, err := n.keepList(ts)
	if err != nil {
		return nil, err
	}
	out, err := schema.NewTableSchema(keep)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "table")
	}
	return map[string]*schema.Schema{"table": schema.OfTable(out)}, nil
}

func (n *SelectCols) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	keep, err := n.keepList(t.ExtractSchema())
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "column selection failed", err)
	}
	ts, err := schema.NewTableSchema(keep)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "column selection failed", err)
	}
	cols := make(map[string][]any, len(keep))
	for _, c := range keep {
		cells, _ := t.Col(c.Name)
		cols[c.Name] = cells
	}
	out, err := data.NewTable(ts, cols)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "column selection failed", err)
	}
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}
