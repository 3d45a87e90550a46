package node

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// Instance is the framework wrapper around a constructed Node. It owns the
// cached input/output schemas stage 2 produces and enforces the
// double-ended check at execution time: inputs must match the cached input
// schemas, outputs must match the cached output schemas. Neither side of a
// node's contract can drift between inference and execution.
type Instance struct {
	impl Node

	inSchemas  map[string]*schema.Schema
	outSchemas map[string]*schema.Schema
}

// NewInstance wraps a constructed node.
func NewInstance(impl Node) *Instance {
	return &Instance{impl: impl}
}

func (n *Instance) ID() string {
	return n.impl.ID()
}

func (n *Instance) Type() string {
	return n.impl.Type()
}

// Impl exposes the wrapped node; the interpreter uses it to reach the loop
// begin/end extensions.
func (n *Instance) Impl() Node {
	return n.impl
}

// PortDef returns the wrapped node's port layout.
func (n *Instance) PortDef() ([]InPort, []OutPort) {
	return n.impl.PortDef()
}

// InSchemas returns the cached input schemas (nil before InferSchema).
func (n *Instance) InSchemas() map[string]*schema.Schema {
	return cloneSchemaMap(n.inSchemas)
}

// OutSchemas returns the cached output schemas (nil before InferSchema).
func (n *Instance) OutSchemas() map[string]*schema.Schema {
	return cloneSchemaMap(n.outSchemas)
}

func cloneSchemaMap(m map[string]*schema.Schema) map[string]*schema.Schema {
	if m == nil {
		return nil
	}
	out := make(map[string]*schema.Schema, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// InferSchema validates the given input schemas against the node's input
// port patterns, delegates to InferOutputSchemas and caches both sides.
//
// An input name that matches no declared port is a framework error; a
// missing non-optional port or a schema outside a port's pattern is a
// ValidationError attributed to the node.
func (n *Instance) InferSchema(in map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	inPorts, outPorts := n.impl.PortDef()

	byName := make(map[string]InPort, len(inPorts))
	for _, p := range inPorts {
		byName[p.Name] = p
	}
	for name := range in {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("node %s: unknown input port %q", n.ID(), name)
		}
	}

	var badPorts []string
	for _, p := range inPorts {
		s, connected := in[p.Name]
		if !connected {
			if !p.Optional {
				return nil, errors.NewValidationError(n.ID(),
					fmt.Sprintf("required input port %q is not connected", p.Name), p.Name)
			}
			continue
		}
		if !p.Accept.Contains(s) {
			badPorts = append(badPorts, p.Name)
		}
	}
	if len(badPorts) > 0 {
		return nil, errors.NewValidationError(n.ID(),
			"input schema not accepted by port pattern", badPorts...)
	}

	out, err := n.impl.InferOutputSchemas(in)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]struct{}, len(outPorts))
	for _, p := range outPorts {
		declared[p.Name] = struct{}{}
	}
	for name := range out {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("node %s: inferred schema for undeclared output port %q", n.ID(), name)
		}
	}

	n.inSchemas = cloneSchemaMap(in)
	n.outSchemas = cloneSchemaMap(out)
	return cloneSchemaMap(out), nil
}

// Execute runs the node over materialized inputs. It requires a prior
// InferSchema, re-checks every input against the cached input schema,
// delegates to Process, and re-checks every output against the cached
// output schema. Any mismatch is an ExecutionError.
func (n *Instance) Execute(in map[string]*data.Data) (map[string]*data.Data, error) {
	if n.outSchemas == nil {
		return nil, errors.NewExecutionError(n.ID(), "execute called before schema inference")
	}

	for name, d := range in {
		want, ok := n.inSchemas[name]
		if !ok {
			return nil, errors.NewExecutionError(n.ID(),
				fmt.Sprintf("input %q was not present at inference time", name))
		}
		if got := d.ExtractSchema(); !got.Equal(want) {
			return nil, errors.NewExecutionError(n.ID(),
				fmt.Sprintf("input %q schema drifted: inferred %s, got %s", name, want, got))
		}
	}
	for name := range n.inSchemas {
		if _, ok := in[name]; !ok {
			return nil, errors.NewExecutionError(n.ID(),
				fmt.Sprintf("input %q missing at execution time", name))
		}
	}

	out, err := n.impl.Process(in)
	if err != nil {
		return nil, err
	}

	for name, want := range n.outSchemas {
		d, ok := out[name]
		if !ok {
			return nil, errors.NewExecutionError(n.ID(),
				fmt.Sprintf("output %q missing from process result", name))
		}
		if got := d.ExtractSchema(); !got.Equal(want) {
			return nil, errors.NewExecutionError(n.ID(),
				fmt.Sprintf("output %q schema drifted: inferred %s, got %s", name, want, got))
		}
	}
	for name := range out {
		if _, ok := n.outSchemas[name]; !ok {
			return nil, errors.NewExecutionError(n.ID(),
				fmt.Sprintf("process produced undeclared output %q", name))
		}
	}

	return out, nil
}
