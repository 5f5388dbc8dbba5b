package graph

import (
	"fmt"
	"strings"

	"github.com/mna/callstack/lang/callstackerr"
	"github.com/mna/callstack/lang/ir"
)

// phase3 implements spec.md §4.4 phase 3: IR-derived edges.
func (b *builder) phase3() error {
	for _, item := range b.cfg.Module.Items {
		def, ok := item.(*ir.Define)
		if !ok {
			continue
		}
		if !b.cfg.Aliases.Has(def.Name) {
			continue // linker garbage-collected this definition
		}
		canon := b.cfg.Aliases.Canonical(def.Name)
		caller, ok := b.g.Lookup(canon)
		if !ok {
			continue
		}

		for _, stmt := range def.Body {
			if err := b.applyStatement(caller, canon, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) applyStatement(caller int, callerName string, stmt ir.Statement) error {
	switch s := stmt.(type) {
	case ir.InlineAsm:
		if !b.asmFns[callerName] {
			b.asmFns[callerName] = true
			b.log().Warnf("function %q contains inline assembly", callerName)
		}
	case ir.BitcastCall:
		if s.Name == "" {
			return callstackerr.New(callstackerr.Invariant, callerName,
				fmt.Errorf("graph: bitcast call with no recoverable symbol name"))
		}
		idx, _ := b.g.AddNamedNode(s.Name, UnknownLocal)
		b.g.AddEdge(caller, idx)
	case ir.DirectCall:
		return b.applyDirectCall(caller, callerName, s.Name)
	case ir.IndirectCall:
		if s.Sig.HasErasedFirst() {
			b.dynamic.getOrCreate(s.Sig).addCaller(caller)
		} else {
			b.indirect.getOrCreate(s.Sig).addCaller(caller)
		}
	}
	return nil
}

func (b *builder) applyDirectCall(caller int, callerName, name string) error {
	if isIgnoredIntrinsic(name) {
		return nil
	}
	if candidates := memFamilyFor(name); candidates != nil {
		for _, cand := range candidates {
			if idx, ok := b.g.Lookup(cand); ok {
				b.g.AddEdge(caller, idx)
			}
		}
		return nil
	}
	if isLLVMIntrinsic(name) {
		if isOverflowBitcountSaturation(name) {
			if b.llvmSeen.First(name) {
				b.log().Warnf("assuming intrinsic %q lowers directly to machine code", name)
			}
			return nil
		}
		if b.cfg.Target.IsThumb() {
			return nil // deferred to the machine-code analyzer, phase 4
		}
		return callstackerr.New(callstackerr.Invariant, callerName,
			fmt.Errorf("graph: unrecognized llvm intrinsic %q", name))
	}

	if idx, ok := b.resolveName(name); ok {
		b.g.AddEdge(caller, idx)
		return nil
	}
	if b.cfg.Executable.Undefined[name] {
		idx, _ := b.g.AddNamedNode(name, UnknownLocal)
		b.g.AddEdge(caller, idx)
		return nil
	}
	return callstackerr.New(callstackerr.Invariant, callerName,
		fmt.Errorf("graph: unknown callee %q", name))
}

// resolveName resolves name through aliases to an existing node, if one was
// created during phase 2.
func (b *builder) resolveName(name string) (int, bool) {
	if !b.cfg.Aliases.Has(name) {
		return 0, false
	}
	return b.g.Lookup(b.cfg.Aliases.Canonical(name))
}

func isLLVMIntrinsic(name string) bool {
	return strings.HasPrefix(name, "llvm.")
}
