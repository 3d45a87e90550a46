package node

import (
	"fmt"

	"github.com/nodeflow/nodeflow/pkg/errors"
)

// Typed parameter accessors. JSON numbers arrive as float64; integer
// parameters accept whole floats. All failures are ParameterErrors carrying
// the node id and key.

// StrParam returns a required string parameter.
func (b *Base) StrParam(key string) (string, error) {
	v, ok := b.Params[key]
	if !ok {
		return "", errors.NewParameterError(b.NodeID, key, "required parameter is missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewParameterError(b.NodeID, key, fmt.Sprintf("expected string, got %T", v))
	}
	return s, nil
}

// OptStrParam returns an optional string parameter with a default.
func (b *Base) OptStrParam(key, def string) (string, error) {
	if _, ok := b.Params[key]; !ok {
		return def, nil
	}
	return b.StrParam(key)
}

// IntParam returns a required integer parameter.
func (b *Base) IntParam(key string) (int64, error) {
	v, ok := b.Params[key]
	if !ok {
		return 0, errors.NewParameterError(b.NodeID, key, "required parameter is missing")
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return 0, errors.NewParameterError(b.NodeID, key, fmt.Sprintf("expected integer, got %v", n))
	}
	return 0, errors.NewParameterError(b.NodeID, key, fmt.Sprintf("expected integer, got %T", v))
}

// OptIntParam returns an optional integer parameter with a default.
func (b *Base) OptIntParam(key string, def int64) (int64, error) {
	if _, ok := b.Params[key]; !ok {
		return def, nil
	}
	return b.IntParam(key)
}

// FloatParam returns a required float parameter; integers widen.
func (b *Base) FloatParam(key string) (float64, error) {
	v, ok := b.Params[key]
	if !ok {
		return 0, errors.NewParameterError(b.NodeID, key, "required parameter is missing")
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, errors.NewParameterError(b.NodeID, key, fmt.Sprintf("expected number, got %T", v))
}

// BoolParam returns a required boolean parameter.
func (b *Base) BoolParam(key string) (bool, error) {
	v, ok := b.Params[key]
	if !ok {
		return false, errors.NewParameterError(b.NodeID, key, "required parameter is missing")
	}
	bv, ok := v.(bool)
	if !ok {
		return false, errors.NewParameterError(b.NodeID, key, fmt.Sprintf("expected bool, got %T", v))
	}
	return bv, nil
}

// HasParam reports whether the key was supplied at all.
func (b *Base) HasParam(key string) bool {
	_, ok := b.Params[key]
	return ok
}

// SetParam writes a parameter back; used by ValidateParameters when filling
// defaults so construction stays idempotent.
func (b *Base) SetParam(key string, v any) {
	if b.Params == nil {
		b.Params = make(Params)
	}
	b.Params[key] = v
}
