package symbols

import (
	"fmt"
	"strconv"
	"strings"
)

// The standard library has no archive/ar package; ".rlib" and static
// ".a" archives are both the common-format "ar" container, so ReadArchive
// implements the minimal subset needed to recover member names and data:
// the global magic, per-member 60-byte headers, and the GNU extended-name
// table member ("//") that real-world archives use once a member name is
// longer than the 16-byte header field allows.
const arMagic = "!<arch>\n"

// IsArchive reports whether data begins with the "ar" container magic, the
// test the CLI uses to decide whether an input path is a single object file
// or an archive of members.
func IsArchive(data []byte) bool {
	return len(data) >= len(arMagic) && string(data[:len(arMagic)]) == arMagic
}

// ReadArchive parses the members of a common-format ("ar") archive, as used
// for ".a" and ".rlib" static library files. It returns members in file
// order, skipping the special "/" (symbol table) and "//" (long name
// table) housekeeping members -- the long name table's contents are used to
// resolve truncated names but are not returned as a member themselves.
func ReadArchive(data []byte) ([]ArchiveMember, error) {
	if len(data) < len(arMagic) || string(data[:len(arMagic)]) != arMagic {
		return nil, fmt.Errorf("symbols: not an archive (bad magic)")
	}
	data = data[len(arMagic):]

	var longNames string
	var members []ArchiveMember
	for len(data) >= 60 {
		hdr := data[:60]
		data = data[60:]

		name := strings.TrimRight(string(hdr[0:16]), " ")
		sizeField := strings.TrimSpace(string(hdr[48:58]))
		size, err := strconv.ParseInt(sizeField, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("symbols: archive member %q: bad size field %q: %w", name, sizeField, err)
		}
		if size < 0 || int64(len(data)) < size {
			return nil, fmt.Errorf("symbols: archive member %q: truncated (want %d bytes)", name, size)
		}
		body := data[:size]
		data = data[size:]
		if size%2 == 1 && len(data) > 0 {
			data = data[1:] // archives pad members to an even offset
		}

		switch {
		case name == "/" || name == "/SYM64/":
			// symbol table, not a real member.
		case name == "//":
			longNames = string(body)
		case strings.HasPrefix(name, "/"):
			// GNU extended name: "/<offset>" into the long-name table.
			off, err := strconv.Atoi(name[1:])
			if err != nil || off < 0 || off >= len(longNames) {
				return nil, fmt.Errorf("symbols: archive member has bad long-name offset %q", name)
			}
			resolved := longNames[off:]
			if i := strings.IndexAny(resolved, "/\n"); i >= 0 {
				resolved = resolved[:i]
			}
			members = append(members, ArchiveMember{Name: resolved, Data: body})
		default:
			members = append(members, ArchiveMember{Name: strings.TrimSuffix(name, "/"), Data: body})
		}
	}
	return members, nil
}
