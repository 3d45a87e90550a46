package nodes

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// loopBase carries what both halves of every loop-control pair share: the
// pair_id parameter that matches a BEGIN to its END.
type loopBase struct {
	node.Base
	pairID string
	kind   node.LoopKind
}

func (n *loopBase) ValidateParameters() error {
	var err error
	n.pairID, err = n.StrParam("pair_id")
	return err
}

func (n *loopBase) PairID() string {
	return n.pairID
}

func (n *loopBase) Kind() node.LoopKind {
	return n.kind
}

// Process on either half of a pair is a framework violation: the
// interpreter drives loops through Iterations/Accumulate/Finalize.
func (n *loopBase) Process(map[string]*data.Data) (map[string]*data.Data, error) {
	return nil, errors.NewExecutionError(n.NodeID, "loop-control node executed outside a loop interpreter")
}

// tableIterator yields pre-sliced sub-tables one per iteration under a
// fixed port name.
type tableIterator struct {
	port   string
	slices []*data.Table
	pos    int
}

func (it *tableIterator) Next() (map[string]*data.Data, error) {
	if it.pos >= len(it.slices) {
		return nil, nil
	}
	t := it.slices[it.pos]
	it.pos++
	return map[string]*data.Data{it.port: data.OfTable(t)}, nil
}

func (it *tableIterator) Len() int {
	return len(it.slices) - it.pos
}

// concatEnd is the shared END half for the pairs whose per-iteration result
// is a table slice: it concatenates everything the body produced, in
// iteration order, with a regenerated index.
type concatEnd struct {
	loopBase
	inPort string
	ts     *schema.TableSchema
	parts  []*data.Table
}

func (n *concatEnd) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: n.inPort, Description: "per-iteration result", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "all iterations concatenated"},
		}
}

func (n *concatEnd) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, n.inPort)
	if err != nil {
		return nil, err
	}
	n.ts = ts
	return map[string]*schema.Schema{"table": schema.OfTable(ts)}, nil
}

func (n *concatEnd) Accumulate(iteration map[string]*data.Data) error {
	d, ok := iteration[n.inPort]
	if !ok {
		return errors.NewExecutionError(n.NodeID, fmt.Sprintf("iteration produced no %q input", n.inPort))
	}
	t, err := d.Table()
	if err != nil {
		return errors.WrapExecutionError(n.NodeID, "iteration result is not a table", err)
	}
	n.parts = append(n.parts, t)
	return nil
}

func (n *concatEnd) Finalize() (map[string]*data.Data, error) {
	if len(n.parts) == 0 {
		empty, err := emptyTable(n.ts)
		if err != nil {
			return nil, errors.WrapExecutionError(n.NodeID, "failed to build empty result", err)
		}
		return map[string]*data.Data{"table": data.OfTable(empty)}, nil
	}
	out, err := data.Concat(n.parts...)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to concatenate iteration results", err)
	}
	n.parts = nil
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}

func emptyTable(ts *schema.TableSchema) (*data.Table, error) {
	cols := make(map[string][]any, ts.NumCols())
	for _, c := range ts.UserCols() {
		cols[c.Name] = nil
	}
	return data.NewTable(ts, cols)
}

// ForEachRowBegin yields each row of its input table as a single-row table
// on the "row" port.
type ForEachRowBegin struct {
	loopBase
}

func newForEachRowBegin(ctx node.Context) (node.Node, error) {
	return &ForEachRowBegin{loopBase{Base: node.NewBase(ctx), kind: node.LoopForEachRow}}, nil
}

func (n *ForEachRowBegin) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "table to iterate", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "row", Description: "current row as a single-row table"},
		}
}

func (n *ForEachRowBegin) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	if _, err := tableSchemaOf(in, "table"); err != nil {
		return nil, err
	}
	return map[string]*schema.Schema{"row": in["table"]}, nil
}

func (n *ForEachRowBegin) Iterations(in map[string]*data.Data) (node.Iterator, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	slices := make([]*data.Table, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return nil, errors.WrapExecutionError(n.NodeID, "row extraction failed", err)
		}
		slices = append(slices, row)
	}
	return &tableIterator{port: "row", slices: slices}, nil
}

// ForEachRowEnd collects one table per iteration and emits the
// concatenation.
type ForEachRowEnd struct {
	concatEnd
}

func newForEachRowEnd(ctx node.Context) (node.Node, error) {
	return &ForEachRowEnd{concatEnd{
		loopBase: loopBase{Base: node.NewBase(ctx), kind: node.LoopForEachRow},
		inPort:   "row",
	}}, nil
}

// RollingWindowBegin yields successive overlapping windows of its input
// table on the "window" port. A table shorter than the window yields zero
// iterations.
//
// Parameters (besides pair_id):
//   - window: window size, int >= 1 (required)
type RollingWindowBegin struct {
	loopBase
	window int64
}

func newRollingWindowBegin(ctx node.Context) (node.Node, error) {
	return &RollingWindowBegin{loopBase: loopBase{Base: node.NewBase(ctx), kind: node.LoopRollingWindow}}, nil
}

func (n *RollingWindowBegin) ValidateParameters() error {
	if err := n.loopBase.ValidateParameters(); err != nil {
		return err
	}
	var err error
	if n.window, err = n.IntParam("window"); err != nil {
		return err
	}
	if n.window < 1 {
		return errors.NewParameterError(n.NodeID, "window", fmt.Sprintf("window must be >= 1, got %d", n.window))
	}
	return nil
}

func (n *RollingWindowBegin) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "table to slide over", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "window", Description: "current window as a sub-table"},
		}
}

func (n *RollingWindowBegin) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	if _, err := tableSchemaOf(in, "table"); err != nil {
		return nil, err
	}
	return map[string]*schema.Schema{"window": in["table"]}, nil
}

func (n *RollingWindowBegin) Iterations(in map[string]*data.Data) (node.Iterator, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	w := int(n.window)
	var slices []*data.Table
	for i := 0; i+w <= t.NumRows(); i++ {
		win, err := t.Slice(i, i+w)
		if err != nil {
			return nil, errors.WrapExecutionError(n.NodeID, "window extraction failed", err)
		}
		slices = append(slices, win)
	}
	return &tableIterator{port: "window", slices: slices}, nil
}

// RollingWindowEnd collects one table per window and emits the
// concatenation.
type RollingWindowEnd struct {
	concatEnd
}

func newRollingWindowEnd(ctx node.Context) (node.Node, error) {
	return &RollingWindowEnd{concatEnd{
		loopBase: loopBase{Base: node.NewBase(ctx), kind: node.LoopRollingWindow},
		inPort:   "window",
	}}, nil
}

// MapColumnBegin yields, per row, the cell of a target column on "cell" and
// the remainder of the row (target column dropped) on "rest". A null in the
// target column fails the iteration build: scalars have no null form.
//
// Parameters (besides pair_id):
//   - col: the column to map over (required)
type MapColumnBegin struct {
	loopBase
	col string
}

func newMapColumnBegin(ctx node.Context) (node.Node, error) {
	return &MapColumnBegin{loopBase: loopBase{Base: node.NewBase(ctx), kind: node.LoopMapColumn}}, nil
}

func (n *MapColumnBegin) ValidateParameters() error {
	if err := n.loopBase.ValidateParameters(); err != nil {
		return err
	}
	var err error
	n.col, err = n.StrParam("col")
	return err
}

func (n *MapColumnBegin) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "table", Description: "table to map over", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "cell", Description: "current cell of the target column"},
			{Name: "rest", Description: "current row without the target column"},
		}
}

func (n *MapColumnBegin) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	ts, err := tableSchemaOf(in, "table")
	if err != nil {
		return nil, err
	}
	ct, err := requireCol(n.NodeID, ts, "table", n.col)
	if err != nil {
		return nil, err
	}
	if len(ts.UserCols()) < 2 {
		return nil, errors.NewValidationError(n.NodeID,
			"mapping the only user column would leave an empty remainder", "table")
	}

	rest := make([]schema.Column, 0, len(ts.UserCols())-1)
	for _, c := range ts.UserCols() {
		if c.Name != n.col {
			rest = append(rest, c)
		}
	}
	restTS, err := schema.NewTableSchema(rest)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "table")
	}
	return map[string]*schema.Schema{
		"cell": schema.Scalar(ct.ToPrimitiveTag()),
		"rest": schema.OfTable(restTS),
	}, nil
}

func (n *MapColumnBegin) Iterations(in map[string]*data.Data) (node.Iterator, error) {
	t, err := in["table"].Table()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "input is not a table", err)
	}
	ct, _ := t.ExtractSchema().TypeOf(n.col)
	cells, _ := t.Col(n.col)
	rest, err := t.DropCol(n.col)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to drop target column", err)
	}

	maps := make([]map[string]*data.Data, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if cells[i] == nil {
			return nil, errors.NewExecutionError(n.NodeID,
				fmt.Sprintf("column %q has a null at row %d; cells must be non-null to map", n.col, i))
		}
		cell, err := data.FromScalar(cells[i], ct)
		if err != nil {
			return nil, errors.WrapExecutionError(n.NodeID, "cell extraction failed", err)
		}
		row, err := rest.Row(i)
		if err != nil {
			return nil, errors.WrapExecutionError(n.NodeID, "row extraction failed", err)
		}
		maps = append(maps, map[string]*data.Data{"cell": cell, "rest": data.OfTable(row)})
	}
	return &mapIterator{maps: maps}, nil
}

type mapIterator struct {
	maps []map[string]*data.Data
	pos  int
}

func (it *mapIterator) Next() (map[string]*data.Data, error) {
	if it.pos >= len(it.maps) {
		return nil, nil
	}
	m := it.maps[it.pos]
	it.pos++
	return m, nil
}

func (it *mapIterator) Len() int {
	return len(it.maps) - it.pos
}

// MapColumnEnd appends the per-iteration "result" scalar to the "rest" row
// as a fresh column and concatenates the rows.
//
// Parameters (besides pair_id):
//   - result_col: name of the appended column (optional; defaults to
//     "<node id>_result")
type MapColumnEnd struct {
	loopBase
	resultCol string
	resultCT  schema.ColType
	restTS    *schema.TableSchema
	rests     []*data.Table
	results   []any
}

func newMapColumnEnd(ctx node.Context) (node.Node, error) {
	return &MapColumnEnd{loopBase: loopBase{Base: node.NewBase(ctx), kind: node.LoopMapColumn}}, nil
}

func (n *MapColumnEnd) ValidateParameters() error {
	if err := n.loopBase.ValidateParameters(); err != nil {
		return err
	}
	var err error
	if n.resultCol, err = n.OptStrParam("result_col", schema.DefaultColName(n.NodeID, "result")); err != nil {
		return err
	}
	n.SetParam("result_col", n.resultCol)
	if err := schema.CheckColName(n.resultCol, false); err != nil {
		return errors.NewParameterError(n.NodeID, "result_col", err.Error())
	}
	return nil
}

func (n *MapColumnEnd) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "result", Description: "per-iteration result scalar", Accept: schema.AcceptAnyScalar()},
			{Name: "rest", Description: "per-iteration remainder row", Accept: schema.Accept(schema.TagTable)},
		}, []node.OutPort{
			{Name: "table", Description: "remainder rows plus result column"},
		}
}

func (n *MapColumnEnd) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	restTS, err := tableSchemaOf(in, "rest")
	if err != nil {
		return nil, err
	}
	ct, err := in["result"].Tag.ToColType()
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "result")
	}
	out, err := restTS.AppendCol(n.resultCol, ct)
	if err != nil {
		return nil, errors.NewValidationError(n.NodeID, err.Error(), "rest")
	}
	n.resultCT = ct
	n.restTS = restTS
	return map[string]*schema.Schema{"table": schema.OfTable(out)}, nil
}

func (n *MapColumnEnd) Accumulate(iteration map[string]*data.Data) error {
	rd, ok := iteration["rest"]
	if !ok {
		return errors.NewExecutionError(n.NodeID, "iteration produced no \"rest\" input")
	}
	rest, err := rd.Table()
	if err != nil {
		return errors.WrapExecutionError(n.NodeID, "remainder is not a table", err)
	}
	sd, ok := iteration["result"]
	if !ok {
		return errors.NewExecutionError(n.NodeID, "iteration produced no \"result\" input")
	}
	v, err := sd.Scalar()
	if err != nil {
		return errors.WrapExecutionError(n.NodeID, "result is not a scalar", err)
	}
	n.rests = append(n.rests, rest)
	n.results = append(n.results, v)
	return nil
}

func (n *MapColumnEnd) Finalize() (map[string]*data.Data, error) {
	var rows *data.Table
	var err error
	if len(n.rests) == 0 {
		rows, err = emptyTable(n.restTS)
	} else {
		rows, err = data.Concat(n.rests...)
	}
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to concatenate remainder rows", err)
	}
	out, err := rows.AppendCol(n.resultCol, n.resultCT, n.results)
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "failed to append result column", err)
	}
	n.rests, n.results = nil, nil
	return map[string]*data.Data{"table": data.OfTable(out)}, nil
}
