package nodes

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

type arithOp string

const (
	opAdd arithOp = "add"
	opSub arithOp = "sub"
	opMul arithOp = "mul"
	opDiv arithOp = "div"
)

// BinaryOp combines two numeric scalars. Two int inputs yield an int except
// for division, which always yields a float; any float input widens the
// result to float. Integer overflow wraps; division by a zero divisor fails
// the node.
type BinaryOp struct {
	node.Base
	op arithOp
}

func newBinaryOp(op arithOp) func(ctx node.Context) (node.Node, error) {
	return func(ctx node.Context) (node.Node, error) {
		return &BinaryOp{Base: node.NewBase(ctx), op: op}, nil
	}
}

func (n *BinaryOp) ValidateParameters() error {
	return nil
}

func (n *BinaryOp) PortDef() ([]node.InPort, []node.OutPort) {
	return []node.InPort{
			{Name: "left", Description: "left operand", Accept: schema.AcceptNumeric()},
			{Name: "right", Description: "right operand", Accept: schema.AcceptNumeric()},
		}, []node.OutPort{
			{Name: "result", Description: "combined value"},
		}
}

func (n *BinaryOp) resultTag(left, right schema.PrimitiveTag) schema.PrimitiveTag {
	if left == schema.TagInt && right == schema.TagInt && n.op != opDiv {
		return schema.TagInt
	}
	return schema.TagFloat
}

func (n *BinaryOp) InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	tag := n.resultTag(in["left"].Tag, in["right"].Tag)
	return map[string]*schema.Schema{"result": schema.Scalar(tag)}, nil
}

func (n *BinaryOp) Process(in map[string]*data.Data) (map[string]*data.Data, error) {
	left, right := in["left"], in["right"]

	if n.resultTag(left.Tag(), right.Tag()) == schema.TagInt {
		a, _ := left.Int()
		b, _ := right.Int()
		var r int64
		switch n.op {
		case opAdd:
			r = a + b
		case opSub:
			r = a - b
		case opMul:
			r = a * b
		}
		return map[string]*data.Data{"result": data.Int(r)}, nil
	}

	a, err := left.Number()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "left operand is not numeric", err)
	}
	b, err := right.Number()
	if err != nil {
		return nil, errors.WrapExecutionError(n.NodeID, "right operand is not numeric", err)
	}

	var r float64
	switch n.op {
	case opAdd:
		r = a + b
	case opSub:
		r = a - b
	case opMul:
		r = a * b
	case opDiv:
		if b == 0 {
			return nil, errors.NewExecutionError(n.NodeID, "division by zero")
		}
		r = a / b
	default:
		return nil, errors.NewExecutionError(n.NodeID, fmt.Sprintf("unknown operation %q", n.op))
	}
	return map[string]*data.Data{"result": data.Float(r)}, nil
}
