package graph

import "github.com/dolthub/swiss"

// Graph is a flat, vector-backed directed graph: nodes are addressed by a
// stable integer index, edges are stored as adjacency lists in insertion
// order. github.com/dolthub/swiss backs the per-caller "seen callees" set
// used to implement spec.md §3's multi-edge dedup invariant.
type Graph struct {
	Nodes []Node
	edges [][]int

	byName map[string]int
	seen   []*swiss.Map[int, struct{}]
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{byName: make(map[string]int)}
}

// Lookup returns the index of the node named name, if one has been
// registered via AddNamedNode (fictitious nodes are never registered by
// name and cannot be found this way).
func (g *Graph) Lookup(name string) (int, bool) {
	idx, ok := g.byName[name]
	return idx, ok
}

// AddNamedNode returns the index of the existing node named name, or
// creates one with the given local stack usage. created reports whether a
// new node was allocated.
func (g *Graph) AddNamedNode(name string, local Local) (idx int, created bool) {
	if idx, ok := g.byName[name]; ok {
		return idx, false
	}
	idx = g.addNode(Node{Name: name, Local: local})
	g.byName[name] = idx
	return idx, true
}

// AddFictitiousNode always allocates a new node (fictitious nodes are never
// deduplicated by name -- each dispatch site or unresolved-indirect-call
// site gets its own).
func (g *Graph) AddFictitiousNode(name string, local Local) int {
	return g.addNode(Node{Name: name, Local: local, Fictitious: true})
}

// AppendNode always allocates a new node carrying n's fields verbatim (name,
// local, max, fictitious), with no name-based dedup. It is used by the
// present package to rebuild a filtered copy of the graph (spec.md §4.6's
// "borrow/own transition" -- the filtered graph is a fresh, standalone
// Graph, not a view over the original).
func (g *Graph) AppendNode(n Node) int {
	return g.addNode(n)
}

func (g *Graph) addNode(n Node) int {
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	g.edges = append(g.edges, nil)
	g.seen = append(g.seen, swiss.NewMap[int, struct{}](4))
	return idx
}

// AddEdge adds an edge from caller to callee, deduplicated per spec.md §3
// ("Multi-edges between the same pair are deduplicated per caller during
// construction"). It reports whether a new edge was added.
func (g *Graph) AddEdge(caller, callee int) bool {
	if _, ok := g.seen[caller].Get(callee); ok {
		return false
	}
	g.seen[caller].Put(callee, struct{}{})
	g.edges[caller] = append(g.edges[caller], callee)
	return true
}

// Successors returns the out-edges of node idx, in insertion order.
func (g *Graph) Successors(idx int) []int {
	return g.edges[idx]
}

// SetLocal refines the local-stack field of node idx (the only mutation the
// graph's lifecycle permits besides adding nodes/edges, per spec.md §3
// "Lifecycle").
func (g *Graph) SetLocal(idx int, local Local) {
	g.Nodes[idx].Local = local
}

// SetMax is called exactly once per node by the solver.
func (g *Graph) SetMax(idx int, max Max) {
	g.Nodes[idx].Max = max
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.Nodes) }
