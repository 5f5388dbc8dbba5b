package present_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mna/callstack/lang/graph"
	"github.com/mna/callstack/lang/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDotClustersCycleMirrorsE3 builds spec.md §8 scenario E3 (a simple
// two-node cycle with no external successors) and checks that both nodes
// land in the same cluster subgraph.
func TestDotClustersCycleMirrorsE3(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNamedNode("a", graph.ExactLocal(4))
	b, _ := g.AddNamedNode("b", graph.ExactLocal(8))
	g.AddEdge(a, b)
	g.AddEdge(b, a)
	g.SetMax(a, graph.Max{Kind: graph.MaxLowerBound, Bytes: 8})
	g.SetMax(b, graph.Max{Kind: graph.MaxLowerBound, Bytes: 8})

	var buf bytes.Buffer
	d := &present.Dot{Output: &buf}
	require.NoError(t, d.WriteTo(g))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "subgraph cluster_"))
	assert.Contains(t, out, "n0 -> n1;")
	assert.Contains(t, out, "n1 -> n0;")
	assert.Contains(t, out, ">=8")

	clusterStart := strings.Index(out, "subgraph cluster_0 {")
	clusterEnd := strings.Index(out, "\n  }\n")
	require.True(t, clusterStart >= 0 && clusterEnd > clusterStart)
	clusterBody := out[clusterStart:clusterEnd]
	assert.Contains(t, clusterBody, "n0 ")
	assert.Contains(t, clusterBody, "n1 ")
}

// TestDotNonCyclicNodeUnclustered checks a straight chain (no cycle) never
// produces a cluster subgraph, and a fictitious node is rendered dashed.
func TestDotNonCyclicNodeUnclustered(t *testing.T) {
	g := graph.New()
	h, _ := g.AddNamedNode("h", graph.ExactLocal(2))
	fic := g.AddFictitiousNode("$indirect0", graph.UnknownLocal)
	f, _ := g.AddNamedNode("f", graph.ExactLocal(4))
	g.AddEdge(h, fic)
	g.AddEdge(fic, f)
	g.SetMax(f, graph.Max{Kind: graph.MaxExact, Bytes: 4})
	g.SetMax(fic, graph.Max{Kind: graph.MaxLowerBound, Bytes: 4})
	g.SetMax(h, graph.Max{Kind: graph.MaxLowerBound, Bytes: 6})

	var buf bytes.Buffer
	d := &present.Dot{Output: &buf}
	require.NoError(t, d.WriteTo(g))

	out := buf.String()
	assert.NotContains(t, out, "subgraph cluster_")
	assert.Contains(t, out, "style = dashed")
	assert.Contains(t, out, "$indirect0")
}
