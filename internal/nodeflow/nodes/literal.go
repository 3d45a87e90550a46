package nodes

import (
	"fmt"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// TableLiteral materializes an inline table on its "table" port.
//
// Parameters:
//   - columns: list of {name, type} objects, in column order
//   - rows:    list of rows, each a list of cells matching the columns;
//     null cells allowed, datetimes as RFC 3339 strings
type TableLiteral struct {
	node.Base
	out *data.Table
}

func newTableLiteral(ctx node.Context) (node.Node, error) {
	return &TableLiteral{Base: node.NewBase(ctx)}, nil
}

func (n *TableLiteral) ValidateParameters() error {
	cols, err := n.columnDefs()
	if err != nil {
		return err
	}

	rawRows, ok := n.Params["rows"]
	if !ok {
		return errors.NewParameterError(n.NodeID, "rows", "required parameter is missing")
	}
	rows, ok := rawRows.([]any)
	if !ok {
		return errors.NewParameterError(n.NodeID, "rows", fmt.Sprintf("expected list of rows, got %T", rawRows))
	}

	store := make(map[string][]any, len(cols))
	for _, c := range cols {
		store[c.Name] = make([]any, 0, len(rows))
	}
	for i, rawRow := range rows {
		row, ok := rawRow.([]any)
		if !ok {
			return errors.NewParameterError(n.NodeID, "rows", fmt.Sprintf("row %d: expected a list, got %T", i, rawRow))
		}
		if len(row) != len(cols) {
			return errors.NewParameterError(n.NodeID, "rows",
				fmt.Sprintf("row %d has %d cells, want %d", i, len(row), len(cols)))
		}
		for j, c := range cols {
			cell, err := coerceCell(row[j], c.Type)
			if err != nil {
				return errors.NewParameterError(n.NodeID, "rows",
					fmt.Sprintf("row %d, column %q: %v", i, c.Name, err))
			}
			store[c.Name] = append(store[c.Name], cell)
		}
	}

	ts, err := schema.NewTableSchema(cols)
	if err != nil {
		return errors.NewParameterError(n.NodeID, "columns", err.Error())
	}
	table, err := data.NewTable(ts, store)
	if err != nil {
		return errors.NewParameterError(n.NodeID, "rows", err.Error())
	}
	n.out = table
	return nil
}

func (n *TableLiteral) columnDefs() ([]schema.Column, error) {
	raw, ok := n.Params["columns"]
	if !ok {
		return nil, errors.NewParameterError(n.NodeID, "columns", "required parameter is missing")
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, errors.NewParameterError(n.NodeID, "columns", "expected a non-empty list of {name, type} objects")
	}

	cols := make([]schema.Column, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.NewParameterError(n.NodeID, "columns", fmt.Sprintf("element %d: expected an object, got %T", i, item))
		}
		name, _ := obj["name"].(string)
		typeName, _ := obj["type"].(string)
		ct := schema.ColType(typeName)
		if name == "" || !ct.Valid() {
			return nil, errors.NewParameterError(n.NodeID, "columns",
				fmt.Sprintf("element %d: need a name and a valid type, got name=%q type=%q", i, name, typeName))
		}
		cols = append(cols, schema.Column{Name: name, Type: ct})
	}
	return cols, nil
}

// coerceCell converts one JSON cell to the internal representation of ct.
func coerceCell(v any, ct schema.ColType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch ct {
	case schema.ColInt:
		f, ok := v.(float64)
		if !ok || f != float64(int64(f)) {
			return nil, fmt.Errorf("expected a whole number, got %v", v)
		}
		return int64(f), nil
	case schema.ColFloat:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", v)
		}
		return f, nil
	case schema.ColStr:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil
	case schema.ColBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a bool, got %T", v)
		}
		return b, nil
	case schema.ColDatetime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected an RFC 3339 string, got %T", v)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime %q: %v", s, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown column type %q", ct)
}

func (n *TableLiteral) PortDef() ([]node.InPort, []node.OutPort) {
	return nil, []node.OutPort{{Name: "table", Description: "the literal table"}}
}

func (n *TableLiteral) InferOutputSchemas(map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	return map[string]*schema.Schema{"table": schema.OfTable(n.out.ExtractSchema())}, nil
}

func (n *TableLiteral) Process(map[string]*data.Data) (map[string]*data.Data, error) {
	return map[string]*data.Data{"table": data.OfTable(n.out)}, nil
}
