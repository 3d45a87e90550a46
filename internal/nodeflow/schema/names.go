package schema

import (
	"fmt"
	"strings"
)

// IndexCol is the reserved index column every table carries. It is the only
// legal name with the reserved "_" prefix and is always typed int.
const IndexCol = "_index"

// CheckColName validates a single column name. Blank or whitespace-only
// names are rejected, as is anything starting with "_" unless allowIndex is
// set and the name is exactly the index column.
func CheckColName(name string, allowIndex bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("column name must not be blank")
	}
	if strings.HasPrefix(name, "_") {
		if allowIndex && name == IndexCol {
			return nil
		}
		return fmt.Errorf("column name %q uses the reserved %q prefix", name, "_")
	}
	return nil
}

// CheckColNames validates a batch of column names, including mutual
// uniqueness.
func CheckColNames(names []string, allowIndex bool) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if err := CheckColName(name, allowIndex); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// DefaultColName derives a deterministic column name for a node's generated
// output, e.g. "div3_result". Used when a node's result_col parameter is
// left empty.
func DefaultColName(nodeID, annotation string) string {
	return fmt.Sprintf("%s_%s", nodeID, annotation)
}
