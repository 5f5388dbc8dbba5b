package symbols

import "sort"

// Aliases maps every symbol name (of a defined symbol) to the canonical name
// chosen for its address, per spec.md §3: "a canonical name is chosen per
// address (preferring a name present in the stack-size table, else the
// first non-marker)". The map is injective on canonical names:
// aliases[canon(x)] == canon(x) for every alias x.
type Aliases map[string]string

// Canonicalize chooses one canonical name per address in exe.Defined and
// returns the alias map. It resolves only the address-level ambiguity; the
// per-name ambiguity count of spec.md §4.4 phase 2 (the number of distinct
// canonical names whose demangled form, minus the trailing ::hHASH,
// collides) is not computed here -- the present package counts it at
// display time, once demangling is available.
//
// markerNames are symbol names that should never be chosen as canonical
// even if no stack-table name is present (e.g. compiler-generated mapping
// symbols such as "$t" / "$d" on some targets); ties among the remaining
// names are broken by lexical order for determinism.
func Canonicalize(exe *Executable, stack StackTable, markerNames map[string]bool) Aliases {
	aliases := make(Aliases)
	for _, def := range exe.Defined {
		if len(def.Names) == 0 {
			continue
		}
		names := append([]string{}, def.Names...)
		sort.Strings(names)

		canon := ""
		for _, n := range names {
			if _, ok := stack[n]; ok {
				canon = n
				break
			}
		}
		if canon == "" {
			for _, n := range names {
				if !markerNames[n] {
					canon = n
					break
				}
			}
		}
		if canon == "" {
			canon = names[0]
		}
		for _, n := range names {
			aliases[n] = canon
		}
	}
	return aliases
}

// Canonical returns the canonical name for name, or name itself if it has
// no entry in the alias map (e.g. an undefined symbol, which has no
// address and thus no alias set).
func (a Aliases) Canonical(name string) string {
	if canon, ok := a[name]; ok {
		return canon
	}
	return name
}

// Has reports whether name has a registered alias, i.e. whether it names a
// symbol that survived linking into the final executable.
func (a Aliases) Has(name string) bool {
	_, ok := a[name]
	return ok
}
