package graph

import (
	"strings"

	"github.com/mna/callstack/lang/demangle"
)

// defaultMethodKey is a "trait::method" pair recorded by spec.md §4.4 phase
// 1, matched against a default trait method's dehashed demangled name
// (e.g. "crate::module::Trait::method").
type defaultMethodKey = string

// discoverDefaultMethods implements spec.md §4.4 phase 1: scan every
// Define's demangled name for the explicit trait-impl shape
// "<A as B>::method::hHASH" and record the "B::method" pair.
func discoverDefaultMethods(names []string, dem demangle.Demangler) map[defaultMethodKey]struct{} {
	out := make(map[defaultMethodKey]struct{})
	for _, name := range names {
		demangled := dem.Demangle(name)
		if !strings.HasPrefix(demangled, "<") {
			continue
		}
		rhs, ok := splitOnce(demangled, " as ")
		if !ok {
			continue
		}
		trait, rest, ok := cutAt(rhs, ">::")
		if !ok {
			continue
		}
		method, ok := demangle.StripHash(rest)
		if !ok {
			continue
		}
		out[trait+"::"+method] = struct{}{}
	}
	return out
}

// isTraitMethod reports whether a defined symbol's canonical demangled name
// is a trait method: either the explicit "<A as B>::method::hHASH" impl
// shape, or a default-trait-method name whose dehashed form was recorded by
// discoverDefaultMethods (spec.md §4.4 phase 2's "is_trait_method" test).
func isTraitMethod(demangled string, defaultMethods map[defaultMethodKey]struct{}) bool {
	if strings.HasPrefix(demangled, "<") && strings.Contains(demangled, " as ") {
		return true
	}
	dehashed, ok := demangle.StripHash(demangled)
	if !ok {
		return false
	}
	_, found := defaultMethods[dehashed]
	return found
}

func splitOnce(s, sep string) (string, bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return "", false
	}
	return s[i+len(sep):], true
}

func cutAt(s, sep string) (before, after string, ok bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}
