package graph

import (
	"sort"
	"strings"

	"github.com/mna/callstack/lang/ir"
)

// phase5 implements spec.md §4.4 phase 5: dispatch expansion for every
// called Indirect and Dynamic bucket.
func (b *builder) phase5() error {
	canonicalVoidAlias := b.canonicalFormatterAlias()

	b.indirect.each(func(bkt *bucket) {
		if !bkt.called {
			return
		}
		sig := bkt.sig
		callees := bkt.calleeList()
		if canonicalVoidAlias != "" && matchesFormatterAlias(sig, canonicalVoidAlias) {
			sig = canonicalFormatterSignature(canonicalVoidAlias, sig)
			callees = b.formatterSetList()
		}
		b.expandBucket(sig, callees, bkt.callerList(), true)
	})

	b.dynamic.each(func(bkt *bucket) {
		if !bkt.called {
			return
		}
		b.expandBucket(bkt.sig, bkt.calleeList(), bkt.callerList(), false)
	})

	return nil
}

// expandBucket creates the fictitious dispatch node for one called bucket
// and wires callers -> fictitious -> callees, per spec.md §4.4 phase 5.
func (b *builder) expandBucket(sig ir.Signature, callees, callers []int, withUntypedFallback bool) {
	if len(callees) == 0 && b.infoSeen.First("emptybucket:"+sig.String()) {
		b.log().Warnf("dispatch bucket %s has zero callees", sig.String())
	}
	label := sig.String() + "*"
	fic := b.g.AddFictitiousNode(label, ExactLocal(0))
	for _, caller := range callers {
		b.g.AddEdge(caller, fic)
	}
	for _, callee := range callees {
		b.g.AddEdge(fic, callee)
	}
	if withUntypedFallback && b.hasUntypedSymbols {
		unknown := b.g.AddFictitiousNode("?", UnknownLocal)
		b.g.AddEdge(fic, unknown)
	}
}

func (b *builder) formatterSetList() []int {
	out := make([]int, 0, len(b.formatterSet))
	for idx := range b.formatterSet {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// canonicalFormatterAlias implements spec.md §4.4 phase 5's formatter-signature
// canonicalization: enumerate every indirect-bucket signature matching the
// formatter shape, collect the distinct first-parameter alias names, and
// choose the canonical one by priority.
func (b *builder) canonicalFormatterAlias() string {
	seen := make(map[string]struct{})
	var candidates []string
	b.indirect.each(func(bkt *bucket) {
		name, ok := formatterReceiverAlias(bkt.sig)
		if !ok {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		candidates = append(candidates, name)
	})
	if len(candidates) == 0 {
		return ""
	}
	for _, c := range candidates {
		if c == "fmt::Void" {
			return c
		}
	}
	sort.Strings(candidates)
	for _, c := range candidates {
		if strings.HasPrefix(c, "core::fmt::Void") {
			return c
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	if b.infoSeen.First("ambiguous-void-alias") {
		b.log().Warnf("multiple candidate formatter-receiver aliases and none match the known prefixes: %v", candidates)
	}
	return ""
}

// formatterReceiverAlias returns the Named alias of sig's first parameter if
// sig matches the formatter shape, per spec.md's "do not hard-code a single
// alias" design note.
func formatterReceiverAlias(sig ir.Signature) (string, bool) {
	if !isFormatterShape(sig) {
		return "", false
	}
	ptr, ok := sig.Params[0].(ir.Pointer)
	if !ok {
		return "", false
	}
	named, ok := ptr.Elem.(ir.Named)
	if !ok {
		return "", false
	}
	return named.Name, true
}

// matchesFormatterAlias reports whether sig is a formatter-shaped signature
// whose first-parameter alias is alias.
func matchesFormatterAlias(sig ir.Signature, alias string) bool {
	name, ok := formatterReceiverAlias(sig)
	return ok && name == alias
}

// canonicalFormatterSignature rewrites sig's first parameter to the chosen
// canonical void alias, per spec.md §4.4 phase 5.
func canonicalFormatterSignature(alias string, sig ir.Signature) ir.Signature {
	params := make([]ir.Type, len(sig.Params))
	copy(params, sig.Params)
	params[0] = ir.Pointer{Elem: ir.Named{Name: alias}}
	return ir.Signature{Params: params, Return: sig.Return}
}
