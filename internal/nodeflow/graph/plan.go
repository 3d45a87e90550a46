package graph

import (
	"fmt"
	"sort"
)

// LoopRole tags a node as one half of a loop pair. Roles are supplied by the
// caller, which knows the node types; the graph package stays agnostic of
// node semantics.
type LoopRole struct {
	PairID string
	Kind   string
	Begin  bool
}

// Step is one unit of an execution plan: either a single node or a collapsed
// loop pair that the interpreter drives iteratively.
type Step struct {
	NodeID string
	Loop   *LoopPlan
}

// LoopPlan is a collapsed loop pair with its body planned recursively.
type LoopPlan struct {
	PairID  string
	Kind    string
	BeginID string
	EndID   string
	Body    []Step
}

// Plan is a topologically ordered sequence of steps for the whole graph.
type Plan struct {
	Steps []Step
}

type pair struct {
	id      string
	kind    string
	beginID string
	endID   string
	members map[string]bool // begin, end and everything between
}

// BuildPlan validates loop pairing and nesting, collapses each pair into a
// super node, and returns a deterministic topological ordering. A cycle
// outside of loop pairs, a half pair, or an edge crossing a pair boundary
// all fail the plan.
func BuildPlan(g *Graph, roles map[string]LoopRole) (*Plan, error) {
	pairs, err := discoverPairs(g, roles)
	if err != nil {
		return nil, err
	}
	if err := checkNesting(pairs); err != nil {
		return nil, err
	}

	top := make(map[string]bool, len(g.byID))
	for id := range g.byID {
		top[id] = true
	}
	steps, err := planLevel(g, top, pairs, "")
	if err != nil {
		return nil, err
	}
	return &Plan{Steps: steps}, nil
}

func discoverPairs(g *Graph, roles map[string]LoopRole) (map[string]*pair, error) {
	pairs := make(map[string]*pair)
	for id, role := range roles {
		if role.PairID == "" {
			return nil, invalid(fmt.Sprintf("loop node %q has no pair id", id))
		}
		p := pairs[role.PairID]
		if p == nil {
			p = &pair{id: role.PairID, kind: role.Kind}
			pairs[role.PairID] = p
		}
		if role.Kind != p.kind {
			return nil, invalid(fmt.Sprintf("loop pair %q mixes kinds %q and %q", role.PairID, p.kind, role.Kind))
		}
		if role.Begin {
			if p.beginID != "" {
				return nil, invalid(fmt.Sprintf("loop pair %q has two begin nodes", role.PairID))
			}
			p.beginID = id
		} else {
			if p.endID != "" {
				return nil, invalid(fmt.Sprintf("loop pair %q has two end nodes", role.PairID))
			}
			p.endID = id
		}
	}

	for _, p := range pairs {
		if p.beginID == "" || p.endID == "" {
			return nil, invalid(fmt.Sprintf("loop pair %q is incomplete: needs one begin and one end node", p.id))
		}
		fwd := reach(p.beginID, g.outbound, func(e EdgeSpec) string { return e.Tar })
		back := reach(p.endID, revAdjacency(g), func(e EdgeSpec) string { return e.Tar })
		if !fwd[p.endID] {
			return nil, invalid(fmt.Sprintf("loop pair %q: end node %q is not downstream of begin node %q", p.id, p.endID, p.beginID))
		}
		p.members = make(map[string]bool)
		for id := range fwd {
			if back[id] {
				p.members[id] = true
			}
		}
		if err := checkBoundary(g, p); err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

// reach walks the adjacency from start and returns every node touched,
// start included.
func reach(start string, adj map[string][]EdgeSpec, next func(EdgeSpec) string) map[string]bool {
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range adj[id] {
			n := next(e)
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return seen
}

// revAdjacency builds reversed edges keyed by original target, so that a
// forward walk over it is a backward walk over the graph.
func revAdjacency(g *Graph) map[string][]EdgeSpec {
	rev := make(map[string][]EdgeSpec)
	for _, e := range g.Edges {
		rev[e.Tar] = append(rev[e.Tar], EdgeSpec{Src: e.Tar, SrcPort: e.TarPort, Tar: e.Src, TarPort: e.SrcPort})
	}
	return rev
}

// checkBoundary enforces that data enters a pair only through its begin node
// and leaves only through its end node.
func checkBoundary(g *Graph, p *pair) error {
	for _, e := range g.Edges {
		srcIn, tarIn := p.members[e.Src], p.members[e.Tar]
		if srcIn && !tarIn && e.Src != p.endID {
			return invalid(fmt.Sprintf("edge %s.%s -> %s.%s leaves loop pair %q without passing its end node", e.Src, e.SrcPort, e.Tar, e.TarPort, p.id))
		}
		if tarIn && !srcIn && e.Tar != p.beginID {
			return invalid(fmt.Sprintf("edge %s.%s -> %s.%s enters loop pair %q without passing its begin node", e.Src, e.SrcPort, e.Tar, e.TarPort, p.id))
		}
	}
	return nil
}

// checkNesting requires pair bodies to be disjoint or fully nested.
func checkNesting(pairs map[string]*pair) error {
	ids := make([]string, 0, len(pairs))
	for id := range pairs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			pa, pb := pairs[a], pairs[b]
			overlap, aInB, bInA := 0, true, true
			for id := range pa.members {
				if pb.members[id] {
					overlap++
				} else {
					aInB = false
				}
			}
			for id := range pb.members {
				if !pa.members[id] {
					bInA = false
				}
			}
			if overlap > 0 && !aInB && !bInA {
				return invalid(fmt.Sprintf("loop pairs %q and %q overlap without nesting", a, b))
			}
		}
	}
	return nil
}

// planLevel orders the units of one nesting level: plain nodes plus the
// outermost pairs whose members all belong to this level. inside names the
// enclosing pair for error messages; empty at the top level.
func planLevel(g *Graph, level map[string]bool, pairs map[string]*pair, inside string) ([]Step, error) {
	// A pair belongs to this level when its members are all here and no
	// other pair at this level strictly contains it.
	local := make([]*pair, 0)
	for _, p := range pairs {
		if !subset(p.members, level) {
			continue
		}
		contained := false
		for _, q := range pairs {
			if q == p || !subset(q.members, level) {
				continue
			}
			if subset(p.members, q.members) && len(q.members) > len(p.members) {
				contained = true
				break
			}
		}
		if !contained {
			local = append(local, p)
		}
	}
	sort.Slice(local, func(i, j int) bool { return local[i].id < local[j].id })

	// unitOf maps every node at this level to its planning unit.
	unitOf := make(map[string]string, len(level))
	for id := range level {
		unitOf[id] = id
	}
	for _, p := range local {
		for id := range p.members {
			unitOf[id] = "pair:" + p.id
		}
	}

	units := make(map[string]bool)
	for id := range level {
		units[unitOf[id]] = true
	}

	indeg := make(map[string]int, len(units))
	succ := make(map[string]map[string]bool, len(units))
	for u := range units {
		indeg[u] = 0
	}
	for _, e := range g.Edges {
		us, okS := unitOf[e.Src]
		ut, okT := unitOf[e.Tar]
		if !okS || !okT || us == ut {
			continue
		}
		if succ[us] == nil {
			succ[us] = make(map[string]bool)
		}
		if !succ[us][ut] {
			succ[us][ut] = true
			indeg[ut]++
		}
	}

	var ready []string
	for u, d := range indeg {
		if d == 0 {
			ready = append(ready, u)
		}
	}
	sort.Strings(ready)

	byPairUnit := make(map[string]*pair, len(local))
	for _, p := range local {
		byPairUnit["pair:"+p.id] = p
	}

	steps := make([]Step, 0, len(units))
	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		if p, isPair := byPairUnit[u]; isPair {
			lp, err := planPair(g, p, pairs)
			if err != nil {
				return nil, err
			}
			steps = append(steps, Step{Loop: lp})
		} else {
			steps = append(steps, Step{NodeID: u})
		}
		added := false
		for v := range succ[u] {
			indeg[v]--
			if indeg[v] == 0 {
				ready = append(ready, v)
				added = true
			}
		}
		if added {
			sort.Strings(ready)
		}
	}

	if len(steps) != len(units) {
		where := "graph"
		if inside != "" {
			where = fmt.Sprintf("body of loop pair %q", inside)
		}
		return nil, invalid(fmt.Sprintf("%s contains a cycle", where))
	}
	return steps, nil
}

func planPair(g *Graph, p *pair, pairs map[string]*pair) (*LoopPlan, error) {
	body := make(map[string]bool, len(p.members))
	for id := range p.members {
		if id != p.beginID && id != p.endID {
			body[id] = true
		}
	}
	steps, err := planLevel(g, body, pairs, p.id)
	if err != nil {
		return nil, err
	}
	return &LoopPlan{
		PairID:  p.id,
		Kind:    p.kind,
		BeginID: p.beginID,
		EndID:   p.endID,
		Body:    steps,
	}, nil
}

func subset(a, b map[string]bool) bool {
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}
