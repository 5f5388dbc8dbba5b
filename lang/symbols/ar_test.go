package symbols_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/mna/callstack/lang/symbols"
	"github.com/stretchr/testify/require"
)

// buildArchive assembles a minimal common-format ar archive containing the
// given members, for testing ReadArchive without needing a real .a/.rlib
// fixture on disk.
func buildArchive(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	for name, data := range members {
		header := fmt.Sprintf("%-16s%-12s%-6s%-6s%-8s%-10d`\n", name, "0", "0", "0", "100644", len(data))
		require.Len(t, header, 60)
		buf.WriteString(header)
		buf.Write(data)
		if len(data)%2 == 1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func TestReadArchiveRoundTrip(t *testing.T) {
	raw := buildArchive(t, map[string][]byte{
		"a.o": []byte("object-a"),
		"b.o": []byte("object-bb"),
	})
	members, err := symbols.ReadArchive(raw)
	require.NoError(t, err)
	require.Len(t, members, 2)

	byName := map[string][]byte{}
	for _, m := range members {
		byName[m.Name] = m.Data
	}
	require.Equal(t, "object-a", string(byName["a.o"]))
	require.Equal(t, "object-bb", string(byName["b.o"]))
}

func TestReadArchiveRejectsBadMagic(t *testing.T) {
	_, err := symbols.ReadArchive([]byte("not an archive"))
	require.Error(t, err)
}
