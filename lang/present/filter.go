// Package present implements spec.md's "C6 Filter & Presenter" component:
// start-symbol filtering, name de-ambiguation ("dehashing"), and the two
// output modes (table, graph description), each a small struct taking an
// io.Writer and walking the finished graph once.
package present

import (
	"strings"

	"github.com/mna/callstack/lang/demangle"
	"github.com/mna/callstack/lang/graph"
	"github.com/sirupsen/logrus"
)

// Filter implements spec.md §4.6's start filtering: it locates a single
// start node (by exact canonical name, or by unique demangled "name::h"
// prefix match) and rebuilds a fresh graph containing only the nodes
// reachable from it, preserving edges between copied nodes. If no start
// name is given, g is returned unchanged. If the start name cannot be
// resolved to exactly one node, filtering is skipped (a warning is logged,
// per spec.md §7 "multiple matches for a start symbol") and g is returned
// unchanged.
func Filter(g *graph.Graph, start string, dem demangle.Demangler, log *logrus.Logger) *graph.Graph {
	if start == "" {
		return g
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dem == nil {
		dem = demangle.Filter{}
	}

	startIdx, ok := locateStart(g, start, dem)
	if !ok {
		log.Warnf("start symbol %q does not match exactly one node; not filtering", start)
		return g
	}
	return rebuildFrom(g, startIdx)
}

func locateStart(g *graph.Graph, start string, dem demangle.Demangler) (int, bool) {
	if idx, ok := g.Lookup(start); ok {
		return idx, true
	}

	var matches []int
	prefix := start + "::h"
	for i := 0; i < g.Len(); i++ {
		n := g.Nodes[i]
		if n.Fictitious {
			continue
		}
		demangled := dem.Demangle(n.Name)
		if strings.HasPrefix(demangled, prefix) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return 0, false
}

// rebuildFrom performs the depth-first reachability rebuild of spec.md
// §4.6: only nodes reachable from start (inclusive) are copied, along with
// the induced edges between copied nodes.
func rebuildFrom(g *graph.Graph, start int) *graph.Graph {
	reachable := make(map[int]bool)
	var dfs func(v int)
	dfs = func(v int) {
		if reachable[v] {
			return
		}
		reachable[v] = true
		for _, w := range g.Successors(v) {
			dfs(w)
		}
	}
	dfs(start)

	out := graph.New()
	remap := make(map[int]int, len(reachable))
	for i := 0; i < g.Len(); i++ {
		if reachable[i] {
			remap[i] = out.AppendNode(g.Nodes[i])
		}
	}
	for oldIdx, newIdx := range remap {
		for _, w := range g.Successors(oldIdx) {
			if newW, ok := remap[w]; ok {
				out.AddEdge(newIdx, newW)
			}
		}
	}
	return out
}
