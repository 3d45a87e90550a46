// Package node defines the contract every computation node implements, the
// framework wrappers that enforce it, and the process-wide registry of node
// types.
//
// A node's lifecycle: construction (parameter validation), port definition,
// stage-2 schema inference, stage-3 execution. The framework wrapper pins
// the safety property that execution can never drift from the statically
// inferred schemas.
package node

import (
	"github.com/nodeflow/nodeflow/internal/nodeflow/data"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/config"
)

// Params is the raw parameter map a node is constructed with, as parsed
// from the submitted graph JSON.
type Params map[string]any

// Context carries everything a factory needs to construct a node instance.
type Context struct {
	ID     string
	Type   string
	Params Params
	Config *config.Config // process-wide defaults (e.g. timezone)
}

// InPort declares one input endpoint of a node.
type InPort struct {
	Name        string
	Description string
	Optional    bool
	Accept      schema.Pattern
}

// OutPort declares one output endpoint of a node.
type OutPort struct {
	Name        string
	Description string
}

// Node is the contract all computation nodes implement.
//
// ValidateParameters runs once at construction; it may fill defaults (for
// instance an absent result-column name) and fails with a ParameterError on
// missing or illegal parameters. PortDef is pure and may be called any time
// after construction. InferOutputSchemas maps the schemas on connected
// input ports to output port schemas (stage 2). Process maps input Data to
// one Data per output port (stage 3) and must be pure with respect to its
// inputs.
type Node interface {
	ID() string
	Type() string
	ValidateParameters() error
	PortDef() ([]InPort, []OutPort)
	InferOutputSchemas(in map[string]*schema.Schema) (map[string]*schema.Schema, error)
	Process(in map[string]*data.Data) (map[string]*data.Data, error)
}

// LoopKind distinguishes the loop-control pair families.
type LoopKind string

const (
	LoopForEachRow    LoopKind = "foreach_row"
	LoopRollingWindow LoopKind = "rolling_window"
	LoopMapColumn     LoopKind = "map_column"
)

// Iterator produces the per-iteration input maps a loop body consumes.
// Next returns (nil, nil) when exhausted.
type Iterator interface {
	Next() (map[string]*data.Data, error)
	Len() int
}

// LoopBegin is implemented by the BEGIN half of a loop-control pair. Its
// InferOutputSchemas describes the per-iteration shape seen inside the loop
// body; Iterations builds the runtime iteration driver from the loop's
// outward inputs.
type LoopBegin interface {
	Node
	PairID() string
	Kind() LoopKind
	Iterations(in map[string]*data.Data) (Iterator, error)
}

// LoopEnd is implemented by the END half of a loop-control pair. Process is
// never called on a LoopEnd; instead the interpreter feeds every
// iteration's body outputs through Accumulate and calls Finalize once for
// the loop's outward outputs.
type LoopEnd interface {
	Node
	PairID() string
	Kind() LoopKind
	Accumulate(iteration map[string]*data.Data) error
	Finalize() (map[string]*data.Data, error)
}

// Base carries the identity fields shared by all node implementations.
type Base struct {
	NodeID   string
	NodeType string
	Params   Params
	Config   *config.Config
}

// NewBase builds the shared identity part of a node from its construction
// context.
func NewBase(ctx Context) Base {
	return Base{NodeID: ctx.ID, NodeType: ctx.Type, Params: ctx.Params, Config: ctx.Config}
}

func (b *Base) ID() string {
	return b.NodeID
}

func (b *Base) Type() string {
	return b.NodeType
}
