package symbols_test

import (
	"fmt"
	"testing"

	"github.com/mna/callstack/lang/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	byName map[string]symbols.StackTable
	fail   map[string]bool
}

func (f fakeAnalyzer) AnalyzeObject(obj []byte) (symbols.StackTable, error) {
	name := string(obj)
	if f.fail[name] {
		return nil, fmt.Errorf("boom: %s", name)
	}
	return f.byName[name], nil
}

func (fakeAnalyzer) AnalyzeExecutable(exe []byte) (*symbols.Executable, error) {
	panic("unused")
}

func TestIngestArchiveSkipsAllocatorSentinelInPrimaryArchive(t *testing.T) {
	analyzer := fakeAnalyzer{byName: map[string]symbols.StackTable{
		"good": {"good::fn": 8},
		"alloc": {"should::not::appear": 4},
	}}
	members := []symbols.ArchiveMember{
		{Name: "good.o", Data: []byte("good")},
		{Name: "alloc_system-1234.o", Data: []byte("alloc")},
		{Name: "README", Data: []byte("not an object")},
	}

	in := &symbols.Ingester{Analyzer: analyzer}
	table := make(symbols.StackTable)
	in.IngestArchive(members, false, "", table)

	assert.Equal(t, symbols.StackTable{"good::fn": 8}, table)
}

func TestIngestArchiveBuiltinsOnlyAnalyzesTaggedMembers(t *testing.T) {
	analyzer := fakeAnalyzer{byName: map[string]symbols.StackTable{
		"tagged":    {"__aeabi_uidiv": 0},
		"untagged":  {"unrelated::fn": 99},
	}}
	members := []symbols.ArchiveMember{
		{Name: "compiler_builtins-abcd.o", Data: []byte("tagged")},
		{Name: "other-abcd.o", Data: []byte("untagged")},
	}

	in := &symbols.Ingester{Analyzer: analyzer}
	table := make(symbols.StackTable)
	in.IngestArchive(members, true, "compiler_builtins", table)

	assert.Equal(t, symbols.StackTable{"__aeabi_uidiv": 0}, table)
}

func TestIngestObjectFailureIsNonFatal(t *testing.T) {
	analyzer := fakeAnalyzer{fail: map[string]bool{"bad": true}}
	in := &symbols.Ingester{Analyzer: analyzer}
	table := make(symbols.StackTable)

	require.NotPanics(t, func() {
		in.IngestObject("bad.o", []byte("bad"), table)
	})
	assert.Empty(t, table)
}
