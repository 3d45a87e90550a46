package server

import (
	"github.com/nodeflow/nodeflow/internal/nodeflow/graph"
	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
)

// Example is a canned, ready-to-submit graph for UIs and the nfx client.
type Example struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Graph       graph.Spec `json:"graph"`
}

// Examples returns the built-in example graphs. Each one submits as-is
// through POST /api/run_nodes.
func Examples() []Example {
	return []Example{
		{
			Name:        "arithmetic",
			Description: "Adds two constants.",
			Graph: graph.Spec{
				ProjectID: "examples",
				Nodes: []graph.NodeSpec{
					{ID: "two", Type: "Constant", Params: node.Params{"value": 2}},
					{ID: "five", Type: "Constant", Params: node.Params{"value": 5}},
					{ID: "sum", Type: "Add"},
				},
				Edges: []graph.EdgeSpec{
					{Src: "two", SrcPort: "value", Tar: "sum", TarPort: "left"},
					{Src: "five", SrcPort: "value", Tar: "sum", TarPort: "right"},
				},
			},
		},
		{
			Name:        "per-capita",
			Description: "Divides one table column by another.",
			Graph: graph.Spec{
				ProjectID: "examples",
				Nodes: []graph.NodeSpec{
					{ID: "countries", Type: "TableLiteral", Params: node.Params{
						"columns": []any{
							map[string]any{"name": "country", "type": "str"},
							map[string]any{"name": "gdp", "type": "float"},
							map[string]any{"name": "population", "type": "float"},
						},
						"rows": []any{
							[]any{"A", 50.0, 10.0},
							[]any{"B", 30.0, 10.0},
							[]any{"C", 20.0, 10.0},
						},
					}},
					{ID: "percap", Type: "ColDiv", Params: node.Params{
						"left_col":   "gdp",
						"right_col":  "population",
						"result_col": "gdp_per_capita",
					}},
				},
				Edges: []graph.EdgeSpec{
					{Src: "countries", SrcPort: "table", Tar: "percap", TarPort: "table"},
				},
			},
		},
		{
			Name:        "filter-split",
			Description: "Splits a table on a boolean column.",
			Graph: graph.Spec{
				ProjectID: "examples",
				Nodes: []graph.NodeSpec{
					{ID: "readings", Type: "TableLiteral", Params: node.Params{
						"columns": []any{
							map[string]any{"name": "value", "type": "int"},
							map[string]any{"name": "valid", "type": "bool"},
						},
						"rows": []any{
							[]any{1, true},
							[]any{2, false},
							[]any{3, true},
						},
					}},
					{ID: "split", Type: "Filter", Params: node.Params{"col": "valid"}},
				},
				Edges: []graph.EdgeSpec{
					{Src: "readings", SrcPort: "table", Tar: "split", TarPort: "table"},
				},
			},
		},
		{
			Name:        "foreach-square",
			Description: "Squares a column by iterating over rows.",
			Graph: graph.Spec{
				ProjectID: "examples",
				Nodes: []graph.NodeSpec{
					{ID: "numbers", Type: "TableLiteral", Params: node.Params{
						"columns": []any{map[string]any{"name": "x", "type": "int"}},
						"rows":    []any{[]any{1}, []any{2}, []any{3}},
					}},
					{ID: "begin", Type: "ForEachRowBegin", Params: node.Params{"pair_id": "rows"}},
					{ID: "squared", Type: "ColMul", Params: node.Params{
						"left_col":   "x",
						"right_col":  "x",
						"result_col": "x_squared",
					}},
					{ID: "end", Type: "ForEachRowEnd", Params: node.Params{"pair_id": "rows"}},
				},
				Edges: []graph.EdgeSpec{
					{Src: "numbers", SrcPort: "table", Tar: "begin", TarPort: "table"},
					{Src: "begin", SrcPort: "row", Tar: "squared", TarPort: "table"},
					{Src: "squared", SrcPort: "table", Tar: "end", TarPort: "row"},
				},
			},
		},
	}
}
