package symbols

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"
)

// ELFAnalyzer is the concrete ObjectAnalyzer/ExecutableAnalyzer used for the
// ELF-based targets this analyzer supports (Thumb v6M/v7M and generic ELF
// hosts). No available third-party Go library reads the LLVM
// ".stack_sizes" section convention or a static archive's stack-size
// metadata, so this is built directly on the standard library's debug/elf
// package (see DESIGN.md for why this one corner of the ingest pipeline is
// stdlib rather than an ecosystem dependency).
type ELFAnalyzer struct{}

var (
	_ ObjectAnalyzer     = ELFAnalyzer{}
	_ ExecutableAnalyzer = ELFAnalyzer{}
)

const stackSizesSection = ".stack_sizes"

// AnalyzeObject reads the ".stack_sizes" section of a single relocatable
// object file and its paired relocation section, producing a name -> bytes
// stack table. Each entry in ".stack_sizes" is an 8-byte function-address
// field (carried as a relocation against the owning function symbol, since
// the object is not yet linked) immediately followed by a ULEB128-encoded
// stack size, per the LLVM stack-size-section convention.
func (ELFAnalyzer) AnalyzeObject(obj []byte) (StackTable, error) {
	f, err := elf.NewFile(bytes.NewReader(obj))
	if err != nil {
		return nil, fmt.Errorf("symbols: parse object: %w", err)
	}
	defer f.Close()

	table := make(StackTable)
	for _, sec := range f.Sections {
		if sec.Name != stackSizesSection {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("symbols: read %s: %w", stackSizesSection, err)
		}

		relocSymbols, err := relocationSymbolsFor(f, sec)
		if err != nil {
			return nil, err
		}

		off := uint64(0)
		for _, entry := range relocSymbols {
			if entry.offset != off {
				// relocations are expected at the start of every 8-byte+ULEB128
				// record; a mismatch means a record this analyzer cannot decode.
				return nil, fmt.Errorf("symbols: %s: unexpected relocation offset %d (want %d)", stackSizesSection, entry.offset, off)
			}
			if off+8 > uint64(len(data)) {
				return nil, fmt.Errorf("symbols: %s: truncated address field at offset %d", stackSizesSection, off)
			}
			size, n := decodeULEB128(data[off+8:])
			if n == 0 {
				return nil, fmt.Errorf("symbols: %s: truncated stack-size ULEB128 at offset %d", stackSizesSection, off+8)
			}
			table[entry.name] = size
			off += 8 + uint64(n)
		}
	}
	return table, nil
}

type relocSymbol struct {
	offset uint64
	name   string
}

// relocationSymbolsFor returns, in order, the symbol each relocation against
// sec targets together with the byte offset the relocation applies at.
func relocationSymbolsFor(f *elf.File, sec *elf.Section) ([]relocSymbol, error) {
	var relSec *elf.Section
	for _, s := range f.Sections {
		if (s.Type == elf.SHT_RELA || s.Type == elf.SHT_REL) && int(s.Link) < len(f.Sections) {
			// the relocation section's Info field names the section it applies
			// to by index; debug/elf exposes this indirectly through Name
			// matching (".rela"+sec.Name or ".rel"+sec.Name) which is the
			// universal naming convention emitted by LLVM/GNU toolchains.
			if s.Name == ".rela"+sec.Name || s.Name == ".rel"+sec.Name {
				relSec = s
				break
			}
		}
	}
	if relSec == nil {
		return nil, nil
	}
	symbols, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("symbols: read symbol table: %w", err)
	}

	data, err := relSec.Data()
	if err != nil {
		return nil, fmt.Errorf("symbols: read %s: %w", relSec.Name, err)
	}

	var out []relocSymbol
	entsz := 24 // Rela64
	if relSec.Type == elf.SHT_REL {
		entsz = 16 // Rel64
	}
	if f.Class == elf.ELFCLASS32 {
		entsz /= 2
	}
	for i := 0; i+entsz <= len(data); i += entsz {
		var offset uint64
		var symIdx uint32
		if f.Class == elf.ELFCLASS64 {
			offset = binary.LittleEndian.Uint64(data[i:])
			info := binary.LittleEndian.Uint64(data[i+8:])
			symIdx = uint32(info >> 32)
		} else {
			offset = uint64(binary.LittleEndian.Uint32(data[i:]))
			info := binary.LittleEndian.Uint32(data[i+4:])
			symIdx = info >> 8
		}
		if symIdx == 0 || int(symIdx) > len(symbols) {
			continue
		}
		out = append(out, relocSymbol{offset: offset, name: symbols[symIdx-1].Name})
	}
	return out, nil
}

// decodeULEB128 decodes an unsigned LEB128 integer from the start of b,
// returning the value and the number of bytes consumed (0 if b is
// truncated).
func decodeULEB128(b []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, x := range b {
		result |= uint64(x&0x7f) << shift
		if x&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
		if shift >= 64 {
			return 0, 0
		}
	}
	return 0, 0
}

// AnalyzeExecutable reads the defined and undefined symbol tables of the
// final linked ELF executable, per spec.md §4.2 item 3.
func (ELFAnalyzer) AnalyzeExecutable(exeBytes []byte) (*Executable, error) {
	f, err := elf.NewFile(bytes.NewReader(exeBytes))
	if err != nil {
		return nil, fmt.Errorf("symbols: parse executable: %w", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("symbols: read symbol table: %w", err)
	}

	byAddr := make(map[uint64]Defined)
	undefined := make(map[string]bool)
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC && elf.ST_TYPE(s.Info) != elf.STT_OBJECT && elf.ST_TYPE(s.Info) != elf.STT_NOTYPE {
			continue
		}
		if s.Section == elf.SHN_UNDEF {
			undefined[s.Name] = true
			continue
		}
		def := byAddr[s.Value]
		def.Addr = s.Value
		if s.Size > def.Size {
			def.Size = s.Size
		}
		def.Names = append(def.Names, s.Name)
		byAddr[s.Value] = def
	}
	return &Executable{Defined: byAddr, Undefined: undefined}, nil
}

// CodeSection is one loadable, executable section of an ELF file: its load
// address and raw bytes. The graph builder slices a symbol's machine code
// out of whichever CodeSection contains its address (see lang/graph's
// TextSection, the builder-facing copy of this shape).
type CodeSection struct {
	Addr uint64
	Data []byte
}

// ExtractCodeSections returns every section of the executable marked
// allocated and executable (SHF_ALLOC|SHF_EXECINSTR), in file order, for
// the Thumb machine-code analyzer (spec.md §4.3) to slice symbols out of.
func (ELFAnalyzer) ExtractCodeSections(exeBytes []byte) ([]CodeSection, error) {
	f, err := elf.NewFile(bytes.NewReader(exeBytes))
	if err != nil {
		return nil, fmt.Errorf("symbols: parse executable: %w", err)
	}
	defer f.Close()

	var out []CodeSection
	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_EXECINSTR == 0 || sec.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("symbols: read section %s: %w", sec.Name, err)
		}
		out = append(out, CodeSection{Addr: sec.Addr, Data: data})
	}
	return out, nil
}

// AddrTags returns every defined-symbol address in the executable tagged
// Thumb (a function symbol) or Data (anything else), sorted by address, for
// the Thumb analyzer's symbol-size inference (spec.md §4.3) to tell code
// from data when guessing where one symbol's bytes end.
func (ELFAnalyzer) AddrTags(exeBytes []byte) ([]AddrTag, error) {
	f, err := elf.NewFile(bytes.NewReader(exeBytes))
	if err != nil {
		return nil, fmt.Errorf("symbols: parse executable: %w", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("symbols: read symbol table: %w", err)
	}

	tags := make([]AddrTag, 0, len(syms))
	for _, s := range syms {
		if s.Name == "" || s.Section == elf.SHN_UNDEF {
			continue
		}
		tag := Data
		if elf.ST_TYPE(s.Info) == elf.STT_FUNC {
			tag = Thumb
		}
		tags = append(tags, AddrTag{Addr: s.Value, Tag: tag})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Addr < tags[j].Addr })
	return tags, nil
}
