package present

import (
	"github.com/mna/callstack/lang/demangle"
	"github.com/mna/callstack/lang/graph"
)

// Dehash strips name's trailing "::hXXXXXXXXXXXXXXXX" hash suffix, if
// present. It is idempotent (spec.md §8 invariant 7): applying it to its own
// output is a no-op.
func Dehash(name string) (short string, stripped bool) {
	return demangle.StripHash(name)
}

// displayNames implements spec.md §4.6's name de-ambiguation: every node's
// demangled name is dehashed for display unless two or more distinct nodes
// share the same dehashed form, in which case the full demangled name is
// shown instead. Fictitious nodes display their literal name unchanged.
func displayNames(g *graph.Graph, dem demangle.Demangler) []string {
	demangled := make([]string, g.Len())
	dehashed := make([]string, g.Len())
	ambiguity := make(map[string]int)

	for i := 0; i < g.Len(); i++ {
		n := g.Nodes[i]
		if n.Fictitious {
			demangled[i] = n.Name
			dehashed[i] = n.Name
			continue
		}
		demangled[i] = dem.Demangle(n.Name)
		if short, ok := Dehash(demangled[i]); ok {
			dehashed[i] = short
			ambiguity[short]++
		} else {
			dehashed[i] = demangled[i]
		}
	}

	out := make([]string, g.Len())
	for i := 0; i < g.Len(); i++ {
		n := g.Nodes[i]
		if n.Fictitious {
			out[i] = n.Name
			continue
		}
		if ambiguity[dehashed[i]] == 1 {
			out[i] = dehashed[i]
		} else {
			out[i] = demangled[i]
		}
	}
	return out
}
