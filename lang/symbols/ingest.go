package symbols

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ObjectAnalyzer is the external collaborator of spec.md §4.2 item 1: given
// the raw bytes of a single object file (one translation unit, or one
// archive member), it returns the stack-size table it finds (typically read
// from a ".stack_sizes" section and its relocations). A concrete
// implementation for ELF objects lives in elfanalyzer.go.
type ObjectAnalyzer interface {
	AnalyzeObject(obj []byte) (StackTable, error)
}

// ExecutableAnalyzer is the external collaborator of spec.md §4.2 item 3:
// given the raw bytes of the final linked executable, it returns the
// defined and undefined symbol tables.
type ExecutableAnalyzer interface {
	AnalyzeExecutable(exe []byte) (*Executable, error)
}

// allocatorSentinel identifies archive members that implement the global
// allocator shim; these are skipped when scanning the primary rlib archives
// because the authoritative stack-size entry for them is re-fetched from
// the compiler-builtins archive instead (spec.md §4.2 item 2).
const allocatorSentinel = "alloc_system"

// Ingester runs the object/archive ingest phase described in spec.md §4.2,
// accumulating the authoritative stack table. Log is used for the
// non-fatal, per-member diagnostics required by spec.md §7 ("Analysis
// failure on a single member is logged and yields no entries for that
// member; it does not abort ingest"); it defaults to logrus.StandardLogger()
// when nil.
type Ingester struct {
	Analyzer ObjectAnalyzer
	Log      *logrus.Logger
}

func (in *Ingester) log() *logrus.Logger {
	if in.Log != nil {
		return in.Log
	}
	return logrus.StandardLogger()
}

// IngestObject analyzes a single, already-extracted object file (not an
// archive member) and merges its entries into table.
func (in *Ingester) IngestObject(name string, obj []byte, table StackTable) {
	entries, err := in.Analyzer.AnalyzeObject(obj)
	if err != nil {
		in.log().WithFields(logrus.Fields{"object": name}).Warnf("stack-size analysis failed: %s", err)
		return
	}
	table.Merge(entries)
}

// ArchiveMember is one member of a common-format "ar" archive (".rlib" or
// ".a"), as returned by an archive reader (see ar.go).
type ArchiveMember struct {
	Name string
	Data []byte
}

// IngestArchive iterates the members of an archive and analyzes every
// member ending in ".o", per spec.md §4.2 item 2. When isBuiltins is false
// (a regular, non-compiler-builtins archive), members whose name contains
// the allocator sentinel are skipped -- they are re-fetched from the
// builtins archive instead. When isBuiltins is true, only members whose
// identifier contains builtinsTag are analyzed (the builtins archive
// carries many unrelated object files besides the ones providing
// intrinsics).
func (in *Ingester) IngestArchive(members []ArchiveMember, isBuiltins bool, builtinsTag string, table StackTable) {
	for _, m := range members {
		if !strings.HasSuffix(m.Name, ".o") {
			continue
		}
		if isBuiltins {
			if builtinsTag != "" && !strings.Contains(m.Name, builtinsTag) {
				continue
			}
		} else if strings.Contains(m.Name, allocatorSentinel) {
			continue
		}
		in.IngestObject(m.Name, m.Data, table)
	}
}

// IngestExecutable runs the final-executable analysis of spec.md §4.2 item
// 3, clearing the Thumb mode bit on every defined address when thumb is
// true and normalizing undefined names by stripping any "@@version" suffix.
func IngestExecutable(analyzer ExecutableAnalyzer, exeBytes []byte, thumb bool) (*Executable, error) {
	exe, err := analyzer.AnalyzeExecutable(exeBytes)
	if err != nil {
		return nil, fmt.Errorf("symbols: analyze executable: %w", err)
	}
	if thumb {
		cleared := make(map[uint64]Defined, len(exe.Defined))
		for addr, def := range exe.Defined {
			cleared[ClearThumbBit(addr)] = def
		}
		exe.Defined = cleared
	}
	normalized := make(map[string]bool, len(exe.Undefined))
	for name := range exe.Undefined {
		normalized[NormalizeUndefinedName(name)] = true
	}
	exe.Undefined = normalized
	return exe, nil
}
