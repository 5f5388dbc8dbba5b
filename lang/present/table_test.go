package present_test

import (
	"bytes"
	"testing"

	"github.com/mna/callstack/lang/graph"
	"github.com/mna/callstack/lang/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSortsByMaxDescendingUnknownLast(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNamedNode("a", graph.ExactLocal(4))
	b, _ := g.AddNamedNode("b", graph.ExactLocal(8))
	c, _ := g.AddNamedNode("c", graph.UnknownLocal)
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	g.SetMax(a, graph.Max{Kind: graph.MaxExact, Bytes: 12})
	g.SetMax(b, graph.Max{Kind: graph.MaxExact, Bytes: 8})
	g.SetMax(c, graph.Max{Kind: graph.MaxNone})

	var buf bytes.Buffer
	tbl := &present.Table{Output: &buf}
	require.NoError(t, tbl.WriteTo(g))

	out := buf.String()
	// Search below the header row only: the "name" and "local" headers
	// themselves contain the letters a and c.
	rows := buf.Bytes()[bytes.Index(buf.Bytes(), []byte("out")):]
	posA := bytes.Index(rows, []byte("a"))
	posB := bytes.Index(rows, []byte("b"))
	posC := bytes.Index(rows, []byte("c"))
	assert.True(t, posA < posB, "a (max 12) should sort before b (max 8)")
	assert.True(t, posB < posC, "b (known max) should sort before c (unknown max)")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "8")
}

func TestTableListsFictitiousAndNamedNodes(t *testing.T) {
	g := graph.New()
	f, _ := g.AddNamedNode("f", graph.ExactLocal(4))
	h, _ := g.AddNamedNode("h", graph.ExactLocal(2))
	fic := g.AddFictitiousNode("$indirect0", graph.UnknownLocal)
	g.AddEdge(h, fic)
	g.AddEdge(fic, f)
	g.SetMax(f, graph.Max{Kind: graph.MaxExact, Bytes: 4})
	g.SetMax(fic, graph.Max{Kind: graph.MaxLowerBound, Bytes: 4})
	g.SetMax(h, graph.Max{Kind: graph.MaxLowerBound, Bytes: 6})

	var buf bytes.Buffer
	tbl := &present.Table{Output: &buf}
	require.NoError(t, tbl.WriteTo(g))

	out := buf.String()
	assert.Contains(t, out, "$indirect0")
	assert.Contains(t, out, "f")
	assert.Contains(t, out, "h")
}
