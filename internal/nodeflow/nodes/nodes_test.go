package nodes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
)

// construct builds a node through the default registry, so tests exercise
// the same path the interpreter uses, parameter validation included.
func construct(t *testing.T, typeName, id string, params node.Params) *node.Instance {
	t.Helper()
	inst, err := DefaultRegistry().Construct(node.Context{ID: id, Type: typeName, Params: params})
	require.NoError(t, err)
	return inst
}

// run infers schemas from the inputs and executes in one go.
func run(t *testing.T, inst *node.Instance, in map[string]*data.Data) map[string]*data.Data {
	t.Helper()
	schemas := make(map[string]*schema.Schema, len(in))
	for name, d := range in {
		schemas[name] = d.ExtractSchema()
	}
	_, err := inst.InferSchema(schemas)
	require.NoError(t, err)
	out, err := inst.Execute(in)
	require.NoError(t, err)
	return out
}

func numbersTable(t *testing.T) *data.Table {
	t.Helper()
	ts := schema.MustTableSchema(
		schema.Column{Name: "a", Type: schema.ColInt},
		schema.Column{Name: "b", Type: schema.ColFloat},
		schema.Column{Name: "label", Type: schema.ColStr},
	)
	return data.MustTable(ts, map[string][]any{
		"a":     {int64(1), int64(2), nil, int64(4)},
		"b":     {1.5, 0.0, 2.5, nil},
		"label": {"w", "x", "y", "z"},
	})
}
