// Package demangle wraps github.com/ianlancetaylor/demangle behind the
// single-method collaborator interface spec.md §1 calls the "external
// name-mangler": the core analyzer consumes demangled names but never
// implements demangling itself.
package demangle

import (
	"regexp"

	"github.com/ianlancetaylor/demangle"
)

// Demangler turns a possibly-mangled symbol name into its demangled,
// human-readable form. Implementations are best-effort: a name that does not
// look mangled is returned unchanged.
type Demangler interface {
	Demangle(mangled string) string
}

// Filter is the default Demangler, backed by
// github.com/ianlancetaylor/demangle's best-effort Filter function.
type Filter struct{}

// Demangle implements Demangler.
func (Filter) Demangle(mangled string) string {
	return demangle.Filter(mangled)
}

// hashSuffixPattern matches the trailing 19-byte Rust symbol-hash suffix
// "::hXXXXXXXXXXXXXXXX" (16 hex digits), per spec.md §4.6 and §8 invariant 7.
var hashSuffixPattern = regexp.MustCompile(`::h[0-9a-f]{16}$`)

// StripHash removes a trailing "::hXXXXXXXXXXXXXXXX" hash suffix from a
// demangled name, if present. ok reports whether a suffix was found and
// stripped; applying StripHash to its own output a second time is a no-op
// (spec.md §8 invariant 7, idempotence of dehashing).
func StripHash(demangled string) (stripped string, ok bool) {
	loc := hashSuffixPattern.FindStringIndex(demangled)
	if loc == nil {
		return demangled, false
	}
	return demangled[:loc[0]], true
}
