package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Hash returns a stable content hash of the graph: node ids, types, params
// and wiring, with submission metadata excluded. Two submissions that differ
// only in project or user produce the same hash.
func (g *Graph) Hash() (string, error) {
	nodes := make([]NodeSpec, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]EdgeSpec, len(g.Edges))
	copy(edges, g.Edges)
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		if a.SrcPort != b.SrcPort {
			return a.SrcPort < b.SrcPort
		}
		if a.Tar != b.Tar {
			return a.Tar < b.Tar
		}
		return a.TarPort < b.TarPort
	})

	// json.Marshal sorts map keys, so params serialize deterministically.
	normalized := struct {
		Nodes []NodeSpec `json:"nodes"`
		Edges []EdgeSpec `json:"edges"`
	}{Nodes: nodes, Edges: edges}

	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to normalize graph for hashing: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
