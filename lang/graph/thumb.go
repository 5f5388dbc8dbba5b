package graph

import (
	"fmt"
	"sort"

	"github.com/mna/callstack/lang/armthumb"
	"github.com/mna/callstack/lang/callstackerr"
)

// phase4 implements spec.md §4.4 phase 4: Thumb machine-code augmentation,
// run only for Thumbv6m/Thumbv7m targets.
func (b *builder) phase4() error {
	addrs := make([]uint64, 0, len(b.cfg.Executable.Defined))
	for addr := range b.cfg.Executable.Defined {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		def := b.cfg.Executable.Defined[addr]
		canon, ok := b.addr2name[addr]
		if !ok {
			continue
		}
		idx, ok := b.g.Lookup(canon)
		if !ok {
			continue
		}

		size := armthumb.Sizing(addr, def.Size, b.cfg.Tags)
		code, ok := b.findCode(addr, size)
		if !ok {
			continue // no loadable code for this symbol (e.g. a data alias)
		}

		res := armthumb.Analyze(code, addr, b.cfg.Target.IsV7M())

		if err := b.reconcileLocal(idx, canon, res); err != nil {
			return err
		}
		if b.g.Nodes[idx].Local == UnknownLocal && b.infoSeen.First("local:"+canon) {
			b.log().Warnf("no stack usage information for %q", canon)
		}

		if !b.hasAnyDefine(def.Names) && res.Indirect {
			if b.infoSeen.First("indirect-untyped:" + canon) {
				b.log().Warnf("%q performs an indirect function call with no type information", canon)
			}
			fic := b.g.AddFictitiousNode("?", UnknownLocal)
			b.g.AddEdge(idx, fic)
		}

		for _, off := range res.BLs {
			target := uint64(int64(addr) + int64(off))
			callee, err := b.resolveAddr(target)
			if err != nil {
				return err
			}
			b.g.AddEdge(idx, callee)
		}
		for _, off := range res.Bs {
			target := uint64(int64(addr) + int64(off))
			if target >= addr && target < addr+size {
				continue // intra-function, not a call
			}
			callee, err := b.resolveAddr(target)
			if err != nil {
				return err
			}
			b.g.AddEdge(idx, callee)
		}
	}
	return nil
}

// reconcileLocal applies spec.md §4.4 phase 4's reconciliation rules between
// the IR-reported local stack usage and the machine-code analyzer's result.
func (b *builder) reconcileLocal(idx int, canon string, res armthumb.Result) error {
	local := b.g.Nodes[idx].Local
	switch {
	case local.IsKnown() && res.OurStack != nil:
		if local.Bytes() != *res.OurStack {
			if !b.asmFns[canon] {
				return callstackerr.New(callstackerr.Invariant, canon, fmt.Errorf(
					"graph: LLVM reported %d bytes of stack but machine-code analysis reported %d",
					local.Bytes(), *res.OurStack))
			}
			b.log().Warnf(
				"LLVM reported that %q uses %d bytes of stack but machine-code analysis reported %d; overriding (function uses inline assembly)",
				canon, local.Bytes(), *res.OurStack)
			b.g.SetLocal(idx, ExactLocal(*res.OurStack))
			return nil
		}
	case !local.IsKnown() && res.OurStack != nil:
		b.g.SetLocal(idx, ExactLocal(*res.OurStack))
	case !local.IsKnown() && res.OurStack == nil && !res.ModifiesSP:
		b.g.SetLocal(idx, ExactLocal(0))
	}
	return nil
}

// resolveAddr maps a branch target address to its callee node index via
// addr2name and the alias map, per spec.md §4.4 phase 4. A target with no
// known symbol is an invariant violation (a bug, or a malformed input).
func (b *builder) resolveAddr(addr uint64) (int, error) {
	name, ok := b.addr2name[addr]
	if !ok {
		return 0, callstackerr.New(callstackerr.Invariant, "",
			fmt.Errorf("graph: no symbol at address %#x", addr))
	}
	idx, ok := b.g.Lookup(name)
	if !ok {
		return 0, callstackerr.New(callstackerr.Invariant, name,
			fmt.Errorf("graph: no node for address %#x", addr))
	}
	return idx, nil
}

// hasAnyDefine reports whether any of names has an IR Define, regardless of
// whether its signature was recoverable.
func (b *builder) hasAnyDefine(names []string) bool {
	for _, n := range names {
		if _, ok := b.cfg.Module.Defines[n]; ok {
			return true
		}
	}
	return false
}

// findCode slices out the raw bytes of [addr, addr+size) from the
// configured text sections.
func (b *builder) findCode(addr, size uint64) ([]byte, bool) {
	for _, sec := range b.cfg.Text {
		end := sec.Addr + uint64(len(sec.Data))
		if addr >= sec.Addr && addr+size <= end {
			start := addr - sec.Addr
			return sec.Data[start : start+size], true
		}
	}
	return nil, false
}
