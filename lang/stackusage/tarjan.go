// Package stackusage implements spec.md's "C5 Stack-usage solver": Tarjan's
// strongly-connected-components algorithm feeding the reverse-topological
// max-stack rules of spec.md §4.5.
package stackusage

import "github.com/mna/callstack/lang/graph"

// tarjanFrame simulates one recursive call of Tarjan's algorithm on an
// explicit work stack rather than native recursion -- the call graph of a
// real firmware image can be deep enough that an unbounded native
// recursion would be an availability risk for a CLI tool.
type tarjanFrame struct {
	node     int
	childIdx int
}

// StronglyConnectedComponents returns g's SCCs in the order Tarjan's
// algorithm naturally emits them: every SCC's successors in the condensation
// graph are emitted strictly before the SCC itself, which is exactly the
// reverse-topological processing order spec.md §4.5 requires. It is
// exported so that lang/present can group cycles into cluster subgraphs
// for the graph-description output mode.
func StronglyConnectedComponents(g *graph.Graph) [][]int {
	n := g.Len()
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	var tstack []int // Tarjan's node stack (distinct from the DFS work stack)
	var sccs [][]int
	counter := 0

	for start := 0; start < n; start++ {
		if index[start] != -1 {
			continue
		}

		var work []tarjanFrame
		push := func(v int) {
			index[v] = counter
			low[v] = counter
			counter++
			tstack = append(tstack, v)
			onStack[v] = true
			work = append(work, tarjanFrame{node: v})
		}
		push(start)

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.node
			succ := g.Successors(v)

			if top.childIdx < len(succ) {
				w := succ[top.childIdx]
				top.childIdx++
				switch {
				case index[w] == -1:
					push(w)
				case onStack[w]:
					if index[w] < low[v] {
						low[v] = index[w]
					}
				}
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if low[v] < low[parent.node] {
					low[parent.node] = low[v]
				}
			}
			if low[v] == index[v] {
				var scc []int
				for {
					w := tstack[len(tstack)-1]
					tstack = tstack[:len(tstack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}
	return sccs
}
