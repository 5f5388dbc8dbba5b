package ir

// Statement is a single instruction inside a Define's body, as seen by the
// graph builder. Only the handful of shapes that affect the call graph are
// modeled; everything else collapses to Other.
type Statement interface {
	isStatement()
}

// DirectCall is a call to a statically named symbol, e.g. "call void @foo".
type DirectCall struct {
	Name string
}

func (DirectCall) isStatement() {}

// IndirectCall is a call through a function-pointer value typed by Sig. If
// Sig's first parameter is the Erased marker, the call targets the Dynamic
// dispatch bucket; otherwise it targets the Indirect bucket.
type IndirectCall struct {
	Sig Signature
}

func (IndirectCall) isStatement() {}

// BitcastCall is a call through a value obtained by casting a direct symbol
// reference to another pointer type before calling it. It is treated as a
// direct edge with best-effort name resolution: Name is the symbol the cast
// was applied to, and may be empty if the builder could not recover it (a
// bug in the source program, per spec, since a bitcast with no underlying
// symbol should not be producible by a real compiler).
type BitcastCall struct {
	Name string
}

func (BitcastCall) isStatement() {}

// InlineAsm represents an inline assembly statement. Text carries the raw
// assembly for diagnostics only; it never contributes an edge.
type InlineAsm struct {
	Text string
}

func (InlineAsm) isStatement() {}

// Label marks a basic-block label; carries no call-graph information.
type Label struct{}

func (Label) isStatement() {}

// Comment is a parsed-but-inert comment line.
type Comment struct{ Text string }

func (Comment) isStatement() {}

// Other is any statement shape not otherwise modeled.
type Other struct{}

func (Other) isStatement() {}
