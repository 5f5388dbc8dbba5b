package present

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mna/callstack/lang/demangle"
	"github.com/mna/callstack/lang/graph"
	"github.com/olekukonko/tablewriter"
)

// Table is the "list mode" presenter of spec.md §4.6/§6: one row per node,
// sorted by max stack usage descending (unknown maxes sort last), rendered
// with github.com/olekukonko/tablewriter.
type Table struct {
	Output    io.Writer
	Demangler demangle.Demangler
}

// WriteTo renders g as a table to t.Output.
func (t *Table) WriteTo(g *graph.Graph) error {
	dem := t.Demangler
	if dem == nil {
		dem = demangle.Filter{}
	}
	names := displayNames(g, dem)
	incoming := incomingCounts(g)

	order := make([]int, g.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return maxLess(g.Nodes[order[j]].Max, g.Nodes[order[i]].Max)
	})

	tw := tablewriter.NewWriter(t.Output)
	tw.SetHeader([]string{"#", "name", "local", "max", "in", "out"})
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)

	for _, idx := range order {
		n := g.Nodes[idx]
		tw.Append([]string{
			strconv.Itoa(idx),
			names[idx],
			n.Local.String(),
			n.Max.String(),
			strconv.Itoa(incoming[idx]),
			outgoingSummary(g, idx, names),
		})
	}
	tw.Render()
	return nil
}

// maxLess reports whether a ranks below b (WriteTo sorts row i before row j
// when maxLess(j, i), giving descending order): a smaller numeric payload
// ranks below; Exact and LowerBound of equal payload compare equal; MaxNone
// (unknown) ranks below every known max, so it sorts last.
func maxLess(a, b graph.Max) bool {
	if a.Kind == graph.MaxNone && b.Kind == graph.MaxNone {
		return false
	}
	if a.Kind == graph.MaxNone {
		return true // a sorts after b
	}
	if b.Kind == graph.MaxNone {
		return false
	}
	return a.Bytes < b.Bytes
}

func incomingCounts(g *graph.Graph) []int {
	counts := make([]int, g.Len())
	for i := 0; i < g.Len(); i++ {
		for _, w := range g.Successors(i) {
			counts[w]++
		}
	}
	return counts
}

func outgoingSummary(g *graph.Graph, idx int, names []string) string {
	succ := g.Successors(idx)
	if len(succ) == 0 {
		return ""
	}
	parts := make([]string, len(succ))
	for i, w := range succ {
		parts[i] = names[w]
	}
	return strings.Join(parts, ", ")
}
