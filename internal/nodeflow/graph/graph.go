// Package graph models a submitted node graph: the JSON wire form, the
// structural checks that run at parse time, and the execution plan builder
// that collapses loop pairs and produces a topological order.
package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nodeflow/nodeflow/internal/nodeflow/node"
	"github.com/nodeflow/nodeflow/pkg/errors"
)

// NodeSpec is one node of the submitted graph.
type NodeSpec struct {
	ID     string      `json:"id"`
	Type   string      `json:"type"`
	Params node.Params `json:"params"`
}

// EdgeSpec wires a source port to a target port.
type EdgeSpec struct {
	Src     string `json:"src"`
	SrcPort string `json:"src_port"`
	Tar     string `json:"tar"`
	TarPort string `json:"tar_port"`
}

// Meta identifies who submitted the graph.
type Meta struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id,omitempty"`
}

// Spec is the JSON wire form accepted by POST /api/run_nodes.
type Spec struct {
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id,omitempty"`
	Nodes     []NodeSpec `json:"nodes"`
	Edges     []EdgeSpec `json:"edges"`
}

// Graph is a parsed, structurally valid submission. Immutable once built;
// per-node cached schemas live on interpreter-side instances, not here.
type Graph struct {
	Meta  Meta
	Nodes []NodeSpec
	Edges []EdgeSpec

	byID     map[string]*NodeSpec
	inbound  map[string]map[string]EdgeSpec // target id -> target port -> edge
	outbound map[string][]EdgeSpec          // source id -> edges
}

// Parse decodes and structurally validates a graph submission.
func Parse(raw []byte) (*Graph, error) {
	var spec Spec
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if err := dec.Decode(&spec); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidGraph, fmt.Sprintf("malformed graph JSON: %v", err))
	}
	return FromSpec(&spec)
}

// FromSpec validates an already-decoded submission.
func FromSpec(spec *Spec) (*Graph, error) {
	g := &Graph{
		Meta:     Meta{ProjectID: spec.ProjectID, UserID: spec.UserID},
		Nodes:    spec.Nodes,
		Edges:    spec.Edges,
		byID:     make(map[string]*NodeSpec, len(spec.Nodes)),
		inbound:  make(map[string]map[string]EdgeSpec),
		outbound: make(map[string][]EdgeSpec),
	}

	if len(spec.Nodes) == 0 {
		return nil, invalid("graph has no nodes")
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if strings.TrimSpace(n.ID) == "" {
			return nil, invalid("node id must not be empty")
		}
		if n.Type == "" {
			return nil, invalid(fmt.Sprintf("node %q has no type", n.ID))
		}
		if _, dup := g.byID[n.ID]; dup {
			return nil, invalid(fmt.Sprintf("duplicate node id %q", n.ID))
		}
		g.byID[n.ID] = n
	}

	for _, e := range g.Edges {
		if _, ok := g.byID[e.Src]; !ok {
			return nil, invalid(fmt.Sprintf("edge references unknown source node %q", e.Src))
		}
		if _, ok := g.byID[e.Tar]; !ok {
			return nil, invalid(fmt.Sprintf("edge references unknown target node %q", e.Tar))
		}
		if e.SrcPort == "" || e.TarPort == "" {
			return nil, invalid(fmt.Sprintf("edge %s->%s has an empty port name", e.Src, e.Tar))
		}
		ports := g.inbound[e.Tar]
		if ports == nil {
			ports = make(map[string]EdgeSpec)
			g.inbound[e.Tar] = ports
		}
		if _, dup := ports[e.TarPort]; dup {
			return nil, invalid(fmt.Sprintf("input port %s.%s is wired twice", e.Tar, e.TarPort))
		}
		ports[e.TarPort] = e
		g.outbound[e.Src] = append(g.outbound[e.Src], e)
	}

	return g, nil
}

func invalid(msg string) error {
	return errors.Wrap(errors.ErrInvalidGraph, msg)
}

// Node returns the spec of a node by id.
func (g *Graph) Node(id string) (*NodeSpec, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Inbound returns the edges feeding a node, keyed by target port.
func (g *Graph) Inbound(id string) map[string]EdgeSpec {
	out := make(map[string]EdgeSpec, len(g.inbound[id]))
	for port, e := range g.inbound[id] {
		out[port] = e
	}
	return out
}

// Outbound returns the edges leaving a node.
func (g *Graph) Outbound(id string) []EdgeSpec {
	out := make([]EdgeSpec, len(g.outbound[id]))
	copy(out, g.outbound[id])
	return out
}

// NodeIDs returns all node ids, sorted for determinism.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.byID))
	for id := range g.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
