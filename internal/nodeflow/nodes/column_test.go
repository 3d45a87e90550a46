package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

func TestColumnOpAppendsResult(t *testing.T) {
	in := map[string]*data.Data{"table": data.OfTable(numbersTable(t))}
	inst := construct(t, "ColAdd", "sum", node.Params{"left_col": "a", "right_col": "b"})
	out := run(t, inst, in)

	table, err := out["table"].Table()
	require.NoError(t, err)
	cells, ok := table.Col("sum_result") // default result_col
	require.True(t, ok)
	assert.Equal(t, []any{2.5, 2.0, nil, nil}, cells)

	ct, _ := table.ExtractSchema().TypeOf("sum_result")
	assert.Equal(t, schema.ColFloat, ct) // float operand widens
}

func TestColumnOpIntStaysInt(t *testing.T) {
	ts := schema.MustTableSchema(
		schema.Column{Name: "x", Type: schema.ColInt},
		schema.Column{Name: "y", Type: schema.ColInt},
	)
	table := data.MustTable(ts, map[string][]any{
		"x": {int64(10), int64(20)},
		"y": {int64(3), int64(4)},
	})

	inst := construct(t, "ColMul", "m", node.Params{"left_col": "x", "right_col": "y", "result_col": "xy"})
	out := run(t, inst, map[string]*data.Data{"table": data.OfTable(table)})

	got, err := out["table"].Table()
	require.NoError(t, err)
	cells, _ := got.Col("xy")
	assert.Equal(t, []any{int64(30), int64(80)}, cells)

	// Division always widens, even for two int columns.
	inst = construct(t, "ColDiv", "d", node.Params{"left_col": "x", "right_col": "y", "result_col": "q"})
	out = run(t, inst, map[string]*data.Data{"table": data.OfTable(table)})
	got, err = out["table"].Table()
	require.NoError(t, err)
	ct, _ := got.ExtractSchema().TypeOf("q")
	assert.Equal(t, schema.ColFloat, ct)
}

func TestColumnOpDivByZeroCellFails(t *testing.T) {
	ts := schema.MustTableSchema(
		schema.Column{Name: "x", Type: schema.ColFloat},
		schema.Column{Name: "y", Type: schema.ColFloat},
	)
	table := data.MustTable(ts, map[string][]any{
		"x": {1.0, 2.0},
		"y": {4.0, 0.0},
	})

	inst := construct(t, "ColDiv", "d", node.Params{"left_col": "x", "right_col": "y"})
	schemas := map[string]*schema.Schema{"table": schema.OfTable(table.ExtractSchema())}
	_, err := inst.InferSchema(schemas)
	require.NoError(t, err)
	_, err = inst.Execute(map[string]*data.Data{"table": data.OfTable(table)})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionError(err))
	assert.Equal(t, "d", errors.NodeID(err))
}

func TestColumnOpRejectsMissingOrNonNumericColumn(t *testing.T) {
	in := map[string]*schema.Schema{"table": schema.OfTable(numbersTable(t).ExtractSchema())}

	inst := construct(t, "ColAdd", "n", node.Params{"left_col": "nope", "right_col": "b"})
	_, err := inst.InferSchema(in)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	inst = construct(t, "ColAdd", "n", node.Params{"left_col": "label", "right_col": "b"})
	_, err = inst.InferSchema(in)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestColumnOpRejectsIllegalResultCol(t *testing.T) {
	_, err := DefaultRegistry().Construct(node.Context{
		ID: "n", Type: "ColAdd",
		Params: node.Params{"left_col": "a", "right_col": "b", "result_col": "_hidden"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsParameterError(err))
}

func TestColumnOpHintSuggestsNumericCols(t *testing.T) {
	in := map[string]*schema.Schema{"table": schema.OfTable(numbersTable(t).ExtractSchema())}
	hint := DefaultRegistry().GetHint("ColAdd", in, nil)
	assert.Equal(t, []string{"a", "b"}, hint["left_col"])
}

func TestFilterSplitsAndReindexes(t *testing.T) {
	ts := schema.MustTableSchema(
		schema.Column{Name: "v", Type: schema.ColInt},
		schema.Column{Name: "keep", Type: schema.ColBool},
	)
	table := data.MustTable(ts, map[string][]any{
		"v":    {int64(1), int64(2), int64(3), int64(4)},
		"keep": {true, false, nil, true},
	})

	inst := construct(t, "Filter", "f", node.Params{"col": "keep"})
	out := run(t, inst, map[string]*data.Data{"table": data.OfTable(table)})

	tt, err := out["true_table"].Table()
	require.NoError(t, err)
	ft, err := out["false_table"].Table()
	require.NoError(t, err)

	v, _ := tt.Col("v")
	assert.Equal(t, []any{int64(1), int64(4)}, v)
	v, _ = ft.Col("v")
	assert.Equal(t, []any{int64(2), int64(3)}, v) // null lands on the false side

	idx, _ := tt.Col(schema.IndexCol)
	assert.Equal(t, []any{int64(0), int64(1)}, idx)
	idx, _ = ft.Col(schema.IndexCol)
	assert.Equal(t, []any{int64(0), int64(1)}, idx)
}

func TestSelectAndDropCols(t *testing.T) {
	in := map[string]*data.Data{"table": data.OfTable(numbersTable(t))}

	inst := construct(t, "SelectCols", "s", node.Params{"cols": []any{"label", "a"}})
	out := run(t, inst, in)
	table, err := out["table"].Table()
	require.NoError(t, err)
	assert.Equal(t, []string{schema.IndexCol, "label", "a"}, table.ExtractSchema().ColNames())

	inst = construct(t, "DropCols", "d", node.Params{"cols": []any{"b"}})
	out = run(t, inst, in)
	table, err = out["table"].Table()
	require.NoError(t, err)
	assert.Equal(t, []string{schema.IndexCol, "a", "label"}, table.ExtractSchema().ColNames())
}

func TestDropAllColsIsValidationError(t *testing.T) {
	inst := construct(t, "DropCols", "d", node.Params{"cols": []any{"a", "b", "label"}})
	_, err := inst.InferSchema(map[string]*schema.Schema{
		"table": schema.OfTable(numbersTable(t).ExtractSchema()),
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestAggregate(t *testing.T) {
	in := map[string]*data.Data{"table": data.OfTable(numbersTable(t))}

	tests := []struct {
		op   string
		col  string
		want *data.Data
	}{
		{"sum", "a", data.Int(7)},
		{"count", "a", data.Int(3)}, // null skipped
		{"mean", "b", data.Float(4.0 / 3.0)},
		{"min", "b", data.Float(0.0)},
		{"max", "a", data.Int(4)},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			inst := construct(t, "Aggregate", "agg", node.Params{"col": tt.col, "op": tt.op})
			out := run(t, inst, in)
			assert.True(t, tt.want.Equal(out["value"]), "got %s", out["value"])
		})
	}
}

func TestAggregateOfEmptyColumnFails(t *testing.T) {
	ts := schema.MustTableSchema(schema.Column{Name: "x", Type: schema.ColFloat})
	table := data.MustTable(ts, map[string][]any{"x": {nil, nil}})

	inst := construct(t, "Aggregate", "agg", node.Params{"col": "x", "op": "mean"})
	schemas := map[string]*schema.Schema{"table": schema.OfTable(table.ExtractSchema())}
	_, err := inst.InferSchema(schemas)
	require.NoError(t, err)
	_, err = inst.Execute(map[string]*data.Data{"table": data.OfTable(table)})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionError(err))
}
