package ir

// Item is a top-level entry produced by parsing one IR module: a function
// definition, a function declaration, or something the builder does not
// care about.
type Item interface {
	isItem()
}

// Define is a defined function: a name, its signature (when recoverable --
// some compiler-generated symbols lack one) and the sequence of statements
// in its body.
type Define struct {
	Name string
	Sig  *Signature // nil if the parser could not recover a signature
	Body []Statement
}

func (Define) isItem() {}

// Declare is a function declared but not defined in this module (e.g. an
// extern symbol, or a function defined in the other merged module).
type Declare struct {
	Name string
	Sig  *Signature // nil if undeclared with a signature
}

func (Declare) isItem() {}

// Other is any top-level item the builder does not inspect (global
// variables, metadata, etc).
type Other struct{}

func (Other) isItem() {}

// Module is the result of merging the program IR and the compiler-builtins
// IR per the rule in spec.md §4.1: both sets of Defines/Declares are merged
// into name-keyed tables, the builtins entries overriding the program's on
// a name collision (duplicates are not expected in well-formed input, but
// the merge must still pick one deterministically).
type Module struct {
	Defines  map[string]*Define
	Declares map[string]*Declare
	// Items holds every item of the program IR followed by every item of the
	// builtins IR, each in parse order; the graph builder's phase 3 walks it
	// to add each Define's edges (phase 1 scans the Defines map by sorted
	// name instead).
	Items []Item
}

// Merge combines the program module's items with the builtins module's
// items into a single Module, the builtins module taking precedence on
// name collisions.
func Merge(program, builtins []Item) *Module {
	m := &Module{
		Defines:  make(map[string]*Define),
		Declares: make(map[string]*Declare),
	}
	apply := func(items []Item) {
		for _, it := range items {
			switch v := it.(type) {
			case *Define:
				m.Defines[v.Name] = v
				delete(m.Declares, v.Name)
			case *Declare:
				if _, isDefined := m.Defines[v.Name]; !isDefined {
					m.Declares[v.Name] = v
				}
			}
		}
	}
	apply(program)
	apply(builtins)
	m.Items = append(append([]Item{}, program...), builtins...)
	return m
}
