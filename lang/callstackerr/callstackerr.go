// Package callstackerr implements the tagged error model of spec.md §7: a
// small Kind enumeration plus a wrapping Error type, using plain wrapped
// errors (no custom stack traces, no error hierarchies).
package callstackerr

import "fmt"

// Kind tags the three fatal error categories of spec.md §7. Non-fatal
// diagnostics ("incomplete information") never become a Kind -- they are
// logged through logrus by the caller instead (see the log method of
// lang/graph's builder).
type Kind int

const (
	// Ingest covers a missing or unreadable IR, object, archive, or
	// executable input.
	Ingest Kind = iota
	// Parse covers malformed IR or ELF content.
	Parse
	// Invariant covers a violated invariant: an unknown callee for a
	// non-llvm.* direct call, a machine-code branch with no symbol at its
	// target address, or an erased-signature mismatch at dispatch expansion.
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Ingest:
		return "ingest"
	case Parse:
		return "parse"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is the fatal-error value returned by the core, per spec.md §7.
// Symbol is best-effort context (the symbol name under analysis when the
// error occurred); it may be empty.
type Error struct {
	Kind    Kind
	Symbol  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Symbol, e.Wrapped)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New wraps err as a Kind error with optional symbol context.
func New(kind Kind, symbol string, err error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Wrapped: err}
}
