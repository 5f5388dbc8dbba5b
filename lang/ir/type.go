// Package ir models the already-parsed intermediate representation that the
// graph builder consumes. The textual IR parser itself is an external
// collaborator (see the compiler package in the original build pipeline) --
// this package only defines the shapes a parser must produce: Items,
// Signatures, Types and Statements. Type equality is structural, not
// pointer-based, so two independently parsed Types compare equal whenever
// their shapes match.
package ir

import (
	"strconv"
	"strings"
)

// A Type is a tagged variant over the handful of shapes the analyzer needs
// to understand: scalar integers, pointers, function types, opaque named
// aliases, and the special "erased" marker used for dynamic-dispatch
// receivers.
type Type interface {
	isType()
	// Equal reports whether t and other describe the same type, structurally.
	Equal(other Type) bool
	String() string
}

// Int is an integer type of the given bit width (e.g. 1 for i1, 32 for i32).
type Int struct {
	Width int
}

func (Int) isType() {}
func (t Int) Equal(other Type) bool {
	o, ok := other.(Int)
	return ok && o.Width == t.Width
}
func (t Int) String() string { return "i" + strconv.Itoa(t.Width) }

// Pointer is a pointer to some other Type.
type Pointer struct {
	Elem Type
}

func (Pointer) isType() {}
func (t Pointer) Equal(other Type) bool {
	o, ok := other.(Pointer)
	return ok && t.Elem.Equal(o.Elem)
}
func (t Pointer) String() string { return "ptr(" + t.Elem.String() + ")" }

// Func is a function type: an ordered parameter list plus an optional
// return type (nil means void).
type Func struct {
	Sig Signature
}

func (Func) isType() {}
func (t Func) Equal(other Type) bool {
	o, ok := other.(Func)
	return ok && t.Sig.Equal(o.Sig)
}
func (t Func) String() string { return "fn" + t.Sig.String() }

// Named is an opaque, by-name type alias, e.g. a struct or enum carried
// through the IR only as its mangled or demangled name.
type Named struct {
	Name string
}

func (Named) isType() {}
func (t Named) Equal(other Type) bool {
	o, ok := other.(Named)
	return ok && o.Name == t.Name
}
func (t Named) String() string { return t.Name }

// Erased is the marker substituted for the receiver type of an object-safe
// trait method when building a Dynamic bucket key (see graph package).
type Erased struct{}

func (Erased) isType() {}
func (Erased) Equal(other Type) bool {
	_, ok := other.(Erased)
	return ok
}
func (Erased) String() string { return "<erased>" }

// Signature is an ordered list of parameter types plus an optional return
// type. Two signatures are equal iff structurally equal.
type Signature struct {
	Params []Type
	Return Type // nil means void
}

// Equal reports whether s and other describe the same signature.
func (s Signature) Equal(other Signature) bool {
	if len(s.Params) != len(other.Params) {
		return false
	}
	for i, p := range s.Params {
		if !p.Equal(other.Params[i]) {
			return false
		}
	}
	if (s.Return == nil) != (other.Return == nil) {
		return false
	}
	if s.Return != nil && !s.Return.Equal(other.Return) {
		return false
	}
	return true
}

// Erase returns a copy of s with its first parameter replaced by the Erased
// marker, used to key the Dynamic dispatch bucket. It panics if s has no
// parameters -- callers must only erase signatures known to have a receiver.
func (s Signature) Erase() Signature {
	if len(s.Params) == 0 {
		panic("ir: cannot erase signature with no parameters")
	}
	params := make([]Type, len(s.Params))
	copy(params, s.Params)
	params[0] = Erased{}
	return Signature{Params: params, Return: s.Return}
}

// HasErasedFirst reports whether the first parameter is already the Erased
// marker -- used to classify an IndirectCall statement's signature as
// targeting the Dynamic bucket rather than the Indirect bucket.
func (s Signature) HasErasedFirst() bool {
	if len(s.Params) == 0 {
		return false
	}
	_, ok := s.Params[0].(Erased)
	return ok
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if s.Return != nil {
		b.WriteString(" -> ")
		b.WriteString(s.Return.String())
	}
	return b.String()
}
