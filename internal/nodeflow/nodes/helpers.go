package nodes

import (
	"fmt"

	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// strListParam reads a required JSON string-array parameter.
func strListParam(b *node.Base, key string) ([]string, error) {
	v, ok := b.Params[key]
	if !ok {
		return nil, errors.NewParameterError(b.NodeID, key, "required parameter is missing")
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, errors.NewParameterError(b.NodeID, key, fmt.Sprintf("expected list of strings, got %T", v))
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, errors.NewParameterError(b.NodeID, key, fmt.Sprintf("element %d: expected string, got %T", i, item))
		}
		out = append(out, s)
	}
	return out, nil
}

// tableSchemaOf unwraps a table input schema. Port patterns guarantee the
// tag, so a mismatch here is a framework bug, reported plainly.
func tableSchemaOf(in map[string]*schema.Schema, port string) (*schema.TableSchema, error) {
	s, ok := in[port]
	if !ok || s.Tag != schema.TagTable {
		return nil, fmt.Errorf("port %q does not carry a table schema", port)
	}
	return s.Table, nil
}

// requireCol checks that a referenced column exists and returns its type.
func requireCol(nodeID string, ts *schema.TableSchema, port, col string) (schema.ColType, error) {
	ct, ok := ts.TypeOf(col)
	if !ok {
		return "", errors.NewValidationError(nodeID,
			fmt.Sprintf("input table has no column %q", col), port)
	}
	return ct, nil
}

func numericCol(nodeID string, ts *schema.TableSchema, port, col string) (schema.ColType, error) {
	ct, err := requireCol(nodeID, ts, port, col)
	if err != nil {
		return "", err
	}
	if ct != schema.ColInt && ct != schema.ColFloat {
		return "", errors.NewValidationError(nodeID,
			fmt.Sprintf("column %q is %s, expected int or float", col, ct), port)
	}
	return ct, nil
}

// asFloat widens a non-null int or float cell.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
