package nodes

import (
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
)

// RegisterAll installs the built-in node library into a registry. Called
// once at startup; panics on duplicate registration like the registry does.
func RegisterAll(r *node.Registry) {
	r.Register(&node.Factory{Type: "Constant", New: newConstant})
	r.Register(&node.Factory{Type: "TableLiteral", New: newTableLiteral})

	r.Register(&node.Factory{Type: "Add", New: newBinaryOp(opAdd)})
	r.Register(&node.Factory{Type: "Sub", New: newBinaryOp(opSub)})
	r.Register(&node.Factory{Type: "Mul", New: newBinaryOp(opMul)})
	r.Register(&node.Factory{Type: "Div", New: newBinaryOp(opDiv)})

	r.Register(&node.Factory{Type: "ColAdd", New: newColumnOp(opAdd), Hint: columnOpHint})
	r.Register(&node.Factory{Type: "ColSub", New: newColumnOp(opSub), Hint: columnOpHint})
	r.Register(&node.Factory{Type: "ColMul", New: newColumnOp(opMul), Hint: columnOpHint})
	r.Register(&node.Factory{Type: "ColDiv", New: newColumnOp(opDiv), Hint: columnOpHint})

	r.Register(&node.Factory{Type: "Filter", New: newFilter})
	r.Register(&node.Factory{Type: "SelectCols", New: newSelectCols(false)})
	r.Register(&node.Factory{Type: "DropCols", New: newSelectCols(true)})

	r.Register(&node.Factory{Type: "StrCase", New: newStrCase})
	r.Register(&node.Factory{Type: "ConcatCols", New: newConcatCols})
	r.Register(&node.Factory{Type: "DatetimeField", New: newDatetimeField})
	r.Register(&node.Factory{Type: "Aggregate", New: newAggregate})

	r.Register(&node.Factory{Type: "ForEachRowBegin", New: newForEachRowBegin})
	r.Register(&node.Factory{Type: "ForEachRowEnd", New: newForEachRowEnd})
	r.Register(&node.Factory{Type: "RollingWindowBegin", New: newRollingWindowBegin})
	r.Register(&node.Factory{Type: "RollingWindowEnd", New: newRollingWindowEnd})
	r.Register(&node.Factory{Type: "MapColumnBegin", New: newMapColumnBegin})
	r.Register(&node.Factory{Type: "MapColumnEnd", New: newMapColumnEnd})
}

// DefaultRegistry builds a registry preloaded with the built-in library.
func DefaultRegistry() *node.Registry {
	r := node.NewRegistry()
	RegisterAll(r)
	return r
}
