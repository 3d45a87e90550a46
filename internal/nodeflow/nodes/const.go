package nodes

import (
	"fmt"
	"time"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// Constant emits a fixed scalar on its "value" port.
//
// Parameters:
//   - value: the scalar (required)
//   - type:  one of int,float,str,bool,datetime (optional; inferred from the
//     JSON value when absent, whole numbers becoming int). Datetime constants
//     require an explicit type and an RFC 3339 value string.
type Constant struct {
	node.Base
	out *data.Data
}

func newConstant(ctx node.Context) (node.Node, error) {
	return &Constant{Base: node.NewBase(ctx)}, nil
}

func (n *Constant) ValidateParameters() error {
	raw, ok := n.Params["value"]
	if !ok {
		return errors.NewParameterError(n.NodeID, "value", "required parameter is missing")
	}

	typeName, err := n.OptStrParam("type", "")
	if err != nil {
		return err
	}

	if typeName == "" {
		switch v := raw.(type) {
		case string:
			typeName = string(schema.ColStr)
		case bool:
			typeName = string(schema.ColBool)
		case float64:
			if v == float64(int64(v)) {
				typeName = string(schema.ColInt)
			} else {
				typeName = string(schema.ColFloat)
			}
		default:
			return errors.NewParameterError(n.NodeID, "value", fmt.Sprintf("unsupported value type %T", raw))
		}
	}

	ct := schema.ColType(typeName)
	if !ct.Valid() {
		return errors.NewParameterError(n.NodeID, "type", fmt.Sprintf("unknown type %q", typeName))
	}

	d, err := coerceScalar(raw, ct)
	if err != nil {
		return errors.NewParameterError(n.NodeID, "value", err.Error())
	}
	n.out = d
	return nil
}

func coerceScalar(raw any, ct schema.ColType) (*data.Data, error) {
	switch ct {
	case schema.ColInt:
		f, ok := raw.(float64)
		if !ok || f != float64(int64(f)) {
			return nil, fmt.Errorf("expected a whole number, got %v", raw)
		}
		return data.Int(int64(f)), nil
	case schema.ColFloat:
		f, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", raw)
		}
		return data.Float(f), nil
	case schema.ColStr:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", raw)
		}
		return data.Str(s), nil
	case schema.ColBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a bool, got %T", raw)
		}
		return data.Bool(b), nil
	case schema.ColDatetime:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected an RFC 3339 string, got %T", raw)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime %q: %v", s, err)
		}
		return data.Datetime(t), nil
	}
	return nil, fmt.Errorf("unknown type %q", ct)
}

func (n *Constant) PortDef() ([]node.InPort, []node.OutPort) {
	return nil, []node.OutPort{{Name: "value", Description: "the constant"}}
}

func (n *Constant) InferOutputSchemas(map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	return map[string]*schema.Schema{"value": n.out.ExtractSchema()}, nil
}

func (n *Constant) Process(map[string]*data.Data) (map[string]*data.Data, error) {
	return map[string]*data.Data{"value": n.out}, nil
}
