package stackusage

import "github.com/mna/callstack/lang/graph"

// Solve implements spec.md §4.5 end to end: it computes SCCs, then assigns
// every node's Max in reverse-topological order (the acyclic rule for
// singleton SCCs without a self-loop, the cyclic rule otherwise), mutating g
// in place via graph.Graph.SetMax. If the graph carries no stack-usage
// information at all, Solve leaves every node's Max at its zero value
// (graph.MaxNone) per spec.md §4.5's "missing information" degradation.
func Solve(g *graph.Graph) {
	if !hasAnyLocalInfo(g) {
		return
	}

	for _, scc := range StronglyConnectedComponents(g) {
		if len(scc) > 1 || hasSelfLoop(g, scc[0]) {
			solveCyclic(g, scc)
		} else {
			solveAcyclic(g, scc[0])
		}
	}
}

func hasAnyLocalInfo(g *graph.Graph) bool {
	for i := 0; i < g.Len(); i++ {
		if g.Nodes[i].Local.IsKnown() {
			return true
		}
	}
	return false
}

func hasSelfLoop(g *graph.Graph, v int) bool {
	for _, w := range g.Successors(v) {
		if w == v {
			return true
		}
	}
	return false
}

// lift promotes a node's local stack usage to the two-valued Max domain:
// Exact(n) stays Exact(n); Unknown becomes LowerBound(0) ("Unknown
// contributes 0 to the lower bound", spec.md §4.5).
func lift(local graph.Local) graph.Max {
	if local.IsKnown() {
		return graph.Max{Kind: graph.MaxExact, Bytes: local.Bytes()}
	}
	return graph.Max{Kind: graph.MaxLowerBound, Bytes: 0}
}

// addMax implements the lifted "+" of spec.md §4.5: Exact+Exact=Exact; any
// other combination degrades to LowerBound.
func addMax(a, b graph.Max) graph.Max {
	kind := graph.MaxLowerBound
	if a.Kind == graph.MaxExact && b.Kind == graph.MaxExact {
		kind = graph.MaxExact
	}
	return graph.Max{Kind: kind, Bytes: a.Bytes + b.Bytes}
}

// maxMax implements the lifted "max" of spec.md §4.5: the numeric result is
// the larger of the two payloads; the result degrades to LowerBound if
// either operand is a LowerBound (the true value of a LowerBound operand may
// exceed its reported payload, so picking it as the larger candidate proves
// nothing exact).
func maxMax(a, b graph.Max) graph.Max {
	bytes := a.Bytes
	if b.Bytes > bytes {
		bytes = b.Bytes
	}
	kind := graph.MaxLowerBound
	if a.Kind == graph.MaxExact && b.Kind == graph.MaxExact {
		kind = graph.MaxExact
	}
	return graph.Max{Kind: kind, Bytes: bytes}
}

// solveAcyclic implements spec.md §4.5's acyclic rule for a single node with
// no self-loop: max(v) = local(v) + max_{w in succ(v)} max(w), or
// lift(local(v)) if v has no successors.
func solveAcyclic(g *graph.Graph, v int) {
	succ := g.Successors(v)
	if len(succ) == 0 {
		g.SetMax(v, lift(g.Nodes[v].Local))
		return
	}
	best := g.Nodes[succ[0]].Max
	for _, w := range succ[1:] {
		best = maxMax(best, g.Nodes[w].Max)
	}
	g.SetMax(v, addMax(lift(g.Nodes[v].Local), best))
}

// solveCyclic implements spec.md §4.5's cyclic rule for one SCC.
func solveCyclic(g *graph.Graph, scc []int) {
	inSCC := make(map[int]bool, len(scc))
	for _, v := range scc {
		inSCC[v] = true
	}

	sccLocal := lift(g.Nodes[scc[0]].Local)
	for _, v := range scc[1:] {
		sccLocal = maxMax(sccLocal, lift(g.Nodes[v].Local))
	}
	if sccLocal.Kind == graph.MaxExact && sccLocal.Bytes > 0 {
		sccLocal.Kind = graph.MaxLowerBound
	}

	var outer graph.Max
	haveOuter := false
	for _, v := range scc {
		for _, w := range g.Successors(v) {
			if inSCC[w] {
				continue
			}
			if !haveOuter {
				outer = g.Nodes[w].Max
				haveOuter = true
				continue
			}
			outer = maxMax(outer, g.Nodes[w].Max)
		}
	}

	result := sccLocal
	if haveOuter {
		result = addMax(sccLocal, outer)
	}
	for _, v := range scc {
		g.SetMax(v, result)
	}
}
