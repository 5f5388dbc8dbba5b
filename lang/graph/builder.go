package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/callstack/lang/callstackerr"
	"github.com/mna/callstack/lang/demangle"
	"github.com/mna/callstack/lang/ir"
	"github.com/mna/callstack/lang/symbols"
	"github.com/mna/callstack/lang/target"
	"github.com/sirupsen/logrus"
)

// TextSection is one loadable code section of the executable, supplied so
// phase 4 can slice out one symbol's raw bytes for the Thumb analyzer.
type TextSection struct {
	Addr uint64
	Data []byte
}

// Config bundles everything Build needs: the merged IR, the ingested
// symbol/stack data, the executable's code sections, and the ambient
// collaborators (demangler, logger), passed explicitly rather than reached
// for as globals.
type Config struct {
	Module     *ir.Module
	Executable *symbols.Executable
	Stack      symbols.StackTable
	Aliases    symbols.Aliases
	Tags       []symbols.AddrTag
	Text       []TextSection
	Target     target.Target
	Demangler  demangle.Demangler
	Logger     *logrus.Logger
}

// builder accumulates cross-phase state for one Build call.
type builder struct {
	cfg Config
	g   *Graph

	defaultMethods map[defaultMethodKey]struct{}
	indirect       *buckets
	dynamic        *buckets
	formatterSet   map[int]struct{}

	addr2name         map[uint64]string
	hasUntypedSymbols bool
	asmFns            map[string]bool

	llvmSeen *callstackerr.WarnSet
	infoSeen *callstackerr.WarnSet
}

func (b *builder) log() *logrus.Logger {
	if b.cfg.Logger != nil {
		return b.cfg.Logger
	}
	return logrus.StandardLogger()
}

// Build runs all five phases of spec.md §4.4 and returns the finished graph.
func Build(cfg Config) (*Graph, error) {
	b := &builder{
		cfg:          cfg,
		g:            New(),
		indirect:     newBuckets(),
		dynamic:      newBuckets(),
		formatterSet: make(map[int]struct{}),
		addr2name:    make(map[uint64]string),
		asmFns:       make(map[string]bool),
		llvmSeen:     callstackerr.NewWarnSet(),
		infoSeen:     callstackerr.NewWarnSet(),
	}
	if cfg.Demangler == nil {
		b.cfg.Demangler = demangle.Filter{}
	}

	b.phase1()
	if err := b.phase2(); err != nil {
		return nil, err
	}
	if err := b.phase3(); err != nil {
		return nil, err
	}
	if b.cfg.Target.IsThumb() {
		if err := b.phase4(); err != nil {
			return nil, err
		}
	}
	if err := b.phase5(); err != nil {
		return nil, err
	}
	return b.g, nil
}

// phase1 implements spec.md §4.4 phase 1.
func (b *builder) phase1() {
	names := make([]string, 0, len(b.cfg.Module.Defines))
	for name := range b.cfg.Module.Defines {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic scan order
	b.defaultMethods = discoverDefaultMethods(names, b.cfg.Demangler)
}

// phase2 implements spec.md §4.4 phase 2: one node per defined executable
// symbol, classified into the Indirect/Dynamic buckets or the formatter set.
func (b *builder) phase2() error {
	addrs := make([]uint64, 0, len(b.cfg.Executable.Defined))
	for addr := range b.cfg.Executable.Defined {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range addrs {
		def := b.cfg.Executable.Defined[addr]
		if len(def.Names) == 0 {
			continue
		}
		canon := b.cfg.Aliases.Canonical(def.Names[0])
		b.addr2name[addr] = canon

		local := UnknownLocal
		if n, ok := b.cfg.Stack[canon]; ok {
			local = ExactLocal(n)
		} else if !b.cfg.Target.IsThumb() && b.infoSeen.First("local:"+canon) {
			b.log().Warnf("no stack usage information for %q", canon)
		}

		idx, created := b.g.AddNamedNode(canon, local)
		if !created {
			continue // already classified via another alias at the same address
		}

		demangled := b.cfg.Demangler.Demangle(canon)
		traitMethod := isTraitMethod(demangled, b.defaultMethods)

		irDefine, irOK := b.findDefine(def.Names)
		switch {
		case irOK:
			if isFormatterShape(*irDefine.Sig) {
				b.formatterSet[idx] = struct{}{}
			}
			if traitMethod && firstParamIsNonFuncPointer(*irDefine.Sig) {
				b.dynamic.getOrCreate(irDefine.Sig.Erase()).addCallee(idx)
			} else {
				b.indirect.getOrCreate(*irDefine.Sig).addCallee(idx)
			}
		default:
			if decl, declOK := b.findDeclare(def.Names); declOK && decl.Sig != nil {
				if traitMethod {
					return callstackerr.New(callstackerr.Invariant, canon,
						fmt.Errorf("graph: undefined trait method"))
				}
				b.indirect.getOrCreate(*decl.Sig).addCallee(idx)
			} else {
				b.hasUntypedSymbols = true
				if b.infoSeen.First("untyped:" + canon) {
					b.log().Warnf("no type information for %q", canon)
				}
			}
		}
	}
	return nil
}

// findDefine returns the Define (if any) reachable from one of names.
func (b *builder) findDefine(names []string) (*ir.Define, bool) {
	for _, n := range names {
		if d, ok := b.cfg.Module.Defines[n]; ok && d.Sig != nil {
			return d, true
		}
	}
	return nil, false
}

func (b *builder) findDeclare(names []string) (*ir.Declare, bool) {
	for _, n := range names {
		if d, ok := b.cfg.Module.Declares[n]; ok {
			return d, true
		}
	}
	return nil, false
}

// firstParamIsNonFuncPointer reports whether sig's first parameter is a
// pointer to something other than a function type, the structural test for
// "object-safe trait method" of spec.md's glossary.
func firstParamIsNonFuncPointer(sig ir.Signature) bool {
	if len(sig.Params) == 0 {
		return false
	}
	ptr, ok := sig.Params[0].(ir.Pointer)
	if !ok {
		return false
	}
	_, isFunc := ptr.Elem.(ir.Func)
	return !isFunc
}

// isFormatterShape reports whether sig matches "(ptr, ptr→FormatterAlias) ->
// i1", the fmt::Formatter-consuming shape of spec.md §4.4 phase 2. The
// second parameter's pointee name is matched loosely (substring "Formatter")
// since, like the first-parameter void alias handled in phase 5, its exact
// mangled spelling can vary across compilations.
func isFormatterShape(sig ir.Signature) bool {
	if len(sig.Params) != 2 {
		return false
	}
	if _, ok := sig.Params[0].(ir.Pointer); !ok {
		return false
	}
	p1, ok := sig.Params[1].(ir.Pointer)
	if !ok {
		return false
	}
	named, ok := p1.Elem.(ir.Named)
	if !ok || !strings.Contains(named.Name, "Formatter") {
		return false
	}
	ret, ok := sig.Return.(ir.Int)
	return ok && ret.Width == 1
}
