package present

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mna/callstack/lang/demangle"
	"github.com/mna/callstack/lang/graph"
	"github.com/mna/callstack/lang/stackusage"
)

// Dot is the "graph description" presenter of spec.md §4.6/§6: a DOT-like
// textual rendering with one cluster subgraph per cycle (an SCC of size > 1,
// or a single node with a self-loop), node labels "name\nmax M\nlocal = L",
// and dashed style for fictitious nodes, written with the same
// Output io.Writer struct shape used throughout this package and
// deterministic, indented textual serialization.
type Dot struct {
	Output    io.Writer
	Demangler demangle.Demangler
}

// WriteTo renders g's graph description to d.Output.
func (d *Dot) WriteTo(g *graph.Graph) error {
	dem := d.Demangler
	if dem == nil {
		dem = demangle.Filter{}
	}
	names := displayNames(g, dem)
	clusterOf := clusterAssignment(g)

	w := &dotWriter{out: d.Output}
	w.printf("digraph callstack {\n")

	clusterIDs := make([]int, 0, len(clusterOf.clusters))
	for id := range clusterOf.clusters {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)
	for _, cluster := range clusterIDs {
		members := clusterOf.clusters[cluster]
		w.printf("  subgraph cluster_%d {\n", cluster)
		w.printf("    label = %s;\n", dotQuote(fmt.Sprintf("scc %d", cluster)))
		for _, idx := range members {
			w.printNode(g, idx, names)
		}
		w.printf("  }\n")
	}
	for idx := 0; idx < g.Len(); idx++ {
		if _, clustered := clusterOf.memberOf[idx]; clustered {
			continue
		}
		w.printNode(g, idx, names)
	}

	for idx := 0; idx < g.Len(); idx++ {
		for _, succ := range g.Successors(idx) {
			w.printf("  n%d -> n%d;\n", idx, succ)
		}
	}

	w.printf("}\n")
	return w.err
}

type dotWriter struct {
	out io.Writer
	err error
}

func (w *dotWriter) printf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}

func (w *dotWriter) printNode(g *graph.Graph, idx int, names []string) {
	n := g.Nodes[idx]
	label := fmt.Sprintf("%s\\nmax %s\\nlocal = %s", names[idx], n.Max.String(), n.Local.String())
	style := ""
	if n.Fictitious {
		style = ", style = dashed"
	}
	w.printf("    n%d [label = %s%s];\n", idx, dotQuote(label), style)
}

// dotQuote wraps s in double quotes for use as a DOT label, escaping only
// embedded double quotes. Unlike fmt's %q verb, it leaves s's own backslash
// escapes (such as the "\n" label-newline sequences printNode builds) alone,
// since %q would double them into an invalid escape.
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// clustering records, for the Dot presenter, which nodes belong to a cycle
// cluster (an SCC of size > 1, or a single node with a self-loop) and which
// cluster each such node is assigned to.
type clustering struct {
	clusters map[int][]int
	memberOf map[int]int
}

func clusterAssignment(g *graph.Graph) clustering {
	c := clustering{clusters: make(map[int][]int), memberOf: make(map[int]int)}
	clusterID := 0
	for _, scc := range stackusage.StronglyConnectedComponents(g) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(g, scc[0])) {
			c.clusters[clusterID] = scc
			for _, v := range scc {
				c.memberOf[v] = clusterID
			}
			clusterID++
		}
	}
	return c
}

func hasSelfLoop(g *graph.Graph, v int) bool {
	for _, w := range g.Successors(v) {
		if w == v {
			return true
		}
	}
	return false
}
