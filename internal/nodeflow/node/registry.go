package node

import (
	"fmt"
	"sync"

	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
	"github.com/nodeflow/nodeflow/pkg/logger"
)

// HintFunc is the class-level hint surface of a node type: best-effort
// suggestions (e.g. column-name choices) for a UI, callable with incomplete
// params and partial input schemas.
type HintFunc func(in map[string]*schema.Schema, params Params) map[string]any

// Factory describes one registered node type.
type Factory struct {
	// Type is the registry key, unique process-wide.
	Type string

	// New constructs the node. The framework validates parameters as part
	// of construction, so New implementations call ValidateParameters
	// themselves only if they need intermediate state; the registry wrapper
	// always invokes it.
	New func(ctx Context) (Node, error)

	// Hint is optional.
	Hint HintFunc
}

// Registry is the process-wide map from node type name to factory. It is
// populated during startup registration and read-only afterwards, so
// concurrent reads during execution need no coordination beyond the RWMutex.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*Factory
	logger    *logger.Logger
}

// NewRegistry creates an empty node type registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Factory),
		logger:    logger.WithField("component", "node-registry"),
	}
}

// Register adds a node type. Registering the same type twice panics, the
// same way duplicate handler registration does at startup elsewhere in the
// system: it is a programming error, not a runtime condition.
func (r *Registry) Register(f *Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Type == "" || f.New == nil {
		panic(fmt.Sprintf("invalid node factory registration: %+v", f))
	}
	if _, exists := r.factories[f.Type]; exists {
		panic(fmt.Sprintf("node type %q already registered", f.Type))
	}
	r.logger.Debug("registering node type", "type", f.Type)
	r.factories[f.Type] = f
}

// Lookup returns the factory for a type name.
func (r *Registry) Lookup(typeName string) (*Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[typeName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownNodeType, "node type %q", typeName)
	}
	return f, nil
}

// Types returns all registered type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}

// Construct builds a node instance of the given type and unconditionally
// runs its parameter validation. This is the only construction path the
// interpreter uses.
func (r *Registry) Construct(ctx Context) (*Instance, error) {
	if ctx.ID == "" {
		return nil, errors.NewParameterError(ctx.ID, "", "node id must not be empty")
	}

	f, err := r.Lookup(ctx.Type)
	if err != nil {
		return nil, errors.NewParameterError(ctx.ID, "type", fmt.Sprintf("unknown node type %q", ctx.Type))
	}

	impl, err := f.New(ctx)
	if err != nil {
		return nil, err
	}
	if err := impl.ValidateParameters(); err != nil {
		return nil, err
	}
	return NewInstance(impl), nil
}

// GetHint calls a node type's hint function, swallowing every failure.
// Hints are advisory; a panic or error inside a hint must never surface to
// the caller, so the wrapper recovers and returns an empty map.
func (r *Registry) GetHint(typeName string, in map[string]*schema.Schema, params Params) (hint map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("hint panicked, returning empty", "type", typeName, "panic", rec)
			hint = map[string]any{}
		}
	}()

	f, err := r.Lookup(typeName)
	if err != nil || f.Hint == nil {
		return map[string]any{}
	}
	hint = f.Hint(in, params)
	if hint == nil {
		hint = map[string]any{}
	}
	return hint
}
