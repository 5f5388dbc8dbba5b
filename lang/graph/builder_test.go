package graph_test

import (
	"testing"

	"github.com/mna/callstack/lang/graph"
	"github.com/mna/callstack/lang/ir"
	"github.com/mna/callstack/lang/symbols"
	"github.com/mna/callstack/lang/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(n int) ir.Signature {
	params := make([]ir.Type, n)
	for i := range params {
		params[i] = ir.Pointer{Elem: ir.Int{Width: 8}}
	}
	return ir.Signature{Params: params}
}

func exe(names map[string]uint64) *symbols.Executable {
	e := &symbols.Executable{Defined: map[uint64]symbols.Defined{}, Undefined: map[string]bool{}}
	for name, addr := range names {
		e.Defined[addr] = symbols.Defined{Addr: addr, Size: 4, Names: []string{name}}
	}
	return e
}

// TestBuildIndirectDispatch mirrors spec.md §8 scenario E5: two defined
// functions f, g share a signature and are called through an indirect-call
// site in h.
func TestBuildIndirectDispatch(t *testing.T) {
	s := sig(1)
	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"f": {Name: "f", Sig: &s},
			"g": {Name: "g", Sig: &s},
			"h": {Name: "h", Sig: &ir.Signature{}, Body: []ir.Statement{ir.IndirectCall{Sig: s}}},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["f"], module.Defines["g"], module.Defines["h"]}

	e := exe(map[string]uint64{"f": 1, "g": 2, "h": 3})
	stack := symbols.StackTable{"f": 4, "g": 12, "h": 2}
	aliases := symbols.Canonicalize(e, stack, nil)

	g, err := graph.Build(graph.Config{
		Module:     module,
		Executable: e,
		Stack:      stack,
		Aliases:    aliases,
		Target:     target.Other,
	})
	require.NoError(t, err)

	hIdx, ok := g.Lookup("h")
	require.True(t, ok)
	succ := g.Successors(hIdx)
	require.Len(t, succ, 1)
	ficIdx := succ[0]
	assert.True(t, g.Nodes[ficIdx].Fictitious)
	assert.Equal(t, uint64(0), g.Nodes[ficIdx].Local.Bytes())

	ficSucc := g.Successors(ficIdx)
	var callees []string
	for _, idx := range ficSucc {
		callees = append(callees, g.Nodes[idx].Name)
	}
	assert.ElementsMatch(t, []string{"f", "g"}, callees)
}

// TestBuildUntypedSymbolsAddsFallbackEdge mirrors spec.md §8 scenario E6.
func TestBuildUntypedSymbolsAddsFallbackEdge(t *testing.T) {
	s := sig(1)
	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"f": {Name: "f", Sig: &s},
			"h": {Name: "h", Sig: &ir.Signature{}, Body: []ir.Statement{ir.IndirectCall{Sig: s}}},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["f"], module.Defines["h"]}

	e := exe(map[string]uint64{"f": 1, "h": 2, "blob": 3})
	stack := symbols.StackTable{"f": 4, "h": 2}
	aliases := symbols.Canonicalize(e, stack, nil)

	g, err := graph.Build(graph.Config{
		Module:     module,
		Executable: e,
		Stack:      stack,
		Aliases:    aliases,
		Target:     target.Other,
	})
	require.NoError(t, err)

	hIdx, _ := g.Lookup("h")
	ficIdx := g.Successors(hIdx)[0]
	ficSucc := g.Successors(ficIdx)

	var sawUnknown bool
	for _, idx := range ficSucc {
		if g.Nodes[idx].Name == "?" && g.Nodes[idx].Fictitious {
			sawUnknown = true
		}
	}
	assert.True(t, sawUnknown)
}

func TestBuildDirectCallEdge(t *testing.T) {
	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"callee": {Name: "callee"},
			"caller": {Name: "caller", Body: []ir.Statement{ir.DirectCall{Name: "callee"}}},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["callee"], module.Defines["caller"]}

	e := exe(map[string]uint64{"callee": 1, "caller": 2})
	stack := symbols.StackTable{"callee": 4, "caller": 8}
	aliases := symbols.Canonicalize(e, stack, nil)

	g, err := graph.Build(graph.Config{
		Module: module, Executable: e, Stack: stack, Aliases: aliases, Target: target.Other,
	})
	require.NoError(t, err)

	callerIdx, _ := g.Lookup("caller")
	calleeIdx, _ := g.Lookup("callee")
	assert.Equal(t, []int{calleeIdx}, g.Successors(callerIdx))
}

func TestBuildUnknownDirectCalleeIsFatal(t *testing.T) {
	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"caller": {Name: "caller", Body: []ir.Statement{ir.DirectCall{Name: "mystery"}}},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["caller"]}

	e := exe(map[string]uint64{"caller": 1})
	stack := symbols.StackTable{"caller": 4}
	aliases := symbols.Canonicalize(e, stack, nil)

	_, err := graph.Build(graph.Config{
		Module: module, Executable: e, Stack: stack, Aliases: aliases, Target: target.Other,
	})
	assert.Error(t, err)
}

// demangler stands in for lang/demangle.Demangler in tests, returning a
// fixed mapping so trait-impl shapes can be asserted without pulling in the
// real mangling scheme.
type demangler map[string]string

func (d demangler) Demangle(mangled string) string {
	if v, ok := d[mangled]; ok {
		return v
	}
	return mangled
}

// TestBuildDynamicTraitDispatch mirrors a trait-object call site: "render"
// takes an erased receiver pointer and dispatches to whichever concrete
// type's "<T as Render>::draw" implementation is actually installed, the
// "object-safe trait method" shape of the glossary rather than a plain
// function-pointer indirect call.
func TestBuildDynamicTraitDispatch(t *testing.T) {
	drawSig := ir.Signature{Params: []ir.Type{ir.Pointer{Elem: ir.Int{Width: 8}}}}
	erasedSig := drawSig.Erase()

	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"circle_draw": {Name: "circle_draw", Sig: &drawSig},
			"render": {
				Name: "render",
				Sig:  &ir.Signature{},
				Body: []ir.Statement{ir.IndirectCall{Sig: erasedSig}},
			},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["circle_draw"], module.Defines["render"]}

	e := exe(map[string]uint64{"circle_draw": 1, "render": 2})
	stack := symbols.StackTable{"circle_draw": 8, "render": 4}
	aliases := symbols.Canonicalize(e, stack, nil)

	dem := demangler{"circle_draw": "<Circle as Render>::draw::h0123456789abcdef"}
	g, err := graph.Build(graph.Config{
		Module: module, Executable: e, Stack: stack, Aliases: aliases,
		Target: target.Other, Demangler: dem,
	})
	require.NoError(t, err)

	renderIdx, _ := g.Lookup("render")
	succ := g.Successors(renderIdx)
	require.Len(t, succ, 1)
	ficIdx := succ[0]
	assert.True(t, g.Nodes[ficIdx].Fictitious)

	ficSucc := g.Successors(ficIdx)
	var callees []string
	for _, idx := range ficSucc {
		callees = append(callees, g.Nodes[idx].Name)
	}
	assert.Equal(t, []string{"circle_draw"}, callees)
}

// TestBuildFormatterCanonicalizationMergesAliasedBuckets mirrors spec.md
// §4.4 phase 5's formatter-signature canonicalization: two formatter
// implementations compiled under different alias names for the same
// "void receiver" shape must dispatch as one merged set, not two separate
// buckets, once a call site names the canonical alias.
func TestBuildFormatterCanonicalizationMergesAliasedBuckets(t *testing.T) {
	formatterParam := ir.Pointer{Elem: ir.Named{Name: "core::fmt::Formatter"}}
	sigA := ir.Signature{
		Params: []ir.Type{ir.Pointer{Elem: ir.Named{Name: "fmt::Void"}}, formatterParam},
		Return: ir.Int{Width: 1},
	}
	sigB := ir.Signature{
		Params: []ir.Type{ir.Pointer{Elem: ir.Named{Name: "other_crate::VoidLike"}}, formatterParam},
		Return: ir.Int{Width: 1},
	}

	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"draw_a": {Name: "draw_a", Sig: &sigA},
			"draw_b": {Name: "draw_b", Sig: &sigB},
			"print_it": {
				Name: "print_it",
				Sig:  &ir.Signature{},
				Body: []ir.Statement{ir.IndirectCall{Sig: sigA}},
			},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["draw_a"], module.Defines["draw_b"], module.Defines["print_it"]}

	e := exe(map[string]uint64{"draw_a": 1, "draw_b": 2, "print_it": 3})
	stack := symbols.StackTable{"draw_a": 8, "draw_b": 8, "print_it": 4}
	aliases := symbols.Canonicalize(e, stack, nil)

	g, err := graph.Build(graph.Config{
		Module: module, Executable: e, Stack: stack, Aliases: aliases, Target: target.Other,
	})
	require.NoError(t, err)

	printIdx, _ := g.Lookup("print_it")
	succ := g.Successors(printIdx)
	require.Len(t, succ, 1)
	ficIdx := succ[0]

	var callees []string
	for _, idx := range g.Successors(ficIdx) {
		callees = append(callees, g.Nodes[idx].Name)
	}
	assert.ElementsMatch(t, []string{"draw_a", "draw_b"}, callees)
}

// TestBuildThumbStackMismatchIsFatal mirrors spec.md §4.4 phase 4's
// reconciliation rule: when the IR reports one exact local stack usage and
// the machine-code analyzer decodes a different one for the same function
// (and the function contains no inline assembly to explain the
// discrepancy), the mismatch is a fatal invariant violation, not a warning.
func TestBuildThumbStackMismatchIsFatal(t *testing.T) {
	// "sub sp, sp, #20" (imm7=5, encoded value * 4 bytes), a single 16-bit
	// Thumb-1 instruction: top 9 bits 0b101100001, imm7 0b0000101.
	code := []byte{0x85, 0xb0}

	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"alloc_frame": {Name: "alloc_frame"},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["alloc_frame"]}

	e := &symbols.Executable{
		Defined: map[uint64]symbols.Defined{
			0x1000: {Addr: 0x1000, Size: uint64(len(code)), Names: []string{"alloc_frame"}},
		},
		Undefined: map[string]bool{},
	}
	// LLVM reports 4 bytes of local stack usage for this function; the
	// decoded "sub sp, sp, #20" disagrees.
	stack := symbols.StackTable{"alloc_frame": 4}
	aliases := symbols.Canonicalize(e, stack, nil)

	_, err := graph.Build(graph.Config{
		Module:     module,
		Executable: e,
		Stack:      stack,
		Aliases:    aliases,
		Target:     target.Thumbv6m,
		Text:       []graph.TextSection{{Addr: 0x1000, Data: code}},
	})
	require.Error(t, err)
}

func TestBuildMemFamilyIntrinsicResolvesExistingSymbol(t *testing.T) {
	module := &ir.Module{
		Defines: map[string]*ir.Define{
			"memcpy": {Name: "memcpy"},
			"caller": {Name: "caller", Body: []ir.Statement{ir.DirectCall{Name: "llvm.memcpy.p0i8.p0i8.i32"}}},
		},
		Declares: map[string]*ir.Declare{},
	}
	module.Items = []ir.Item{module.Defines["memcpy"], module.Defines["caller"]}

	e := exe(map[string]uint64{"memcpy": 1, "caller": 2})
	stack := symbols.StackTable{"memcpy": 0, "caller": 8}
	aliases := symbols.Canonicalize(e, stack, nil)

	g, err := graph.Build(graph.Config{
		Module: module, Executable: e, Stack: stack, Aliases: aliases, Target: target.Other,
	})
	require.NoError(t, err)

	callerIdx, _ := g.Lookup("caller")
	memcpyIdx, _ := g.Lookup("memcpy")
	assert.Equal(t, []int{memcpyIdx}, g.Successors(callerIdx))
}
