// Package util carries small formatting helpers shared by tests and the
// CLI's debug output.
package util

import (
	"fmt"
	"strings"
)

// DumpByteSlice formats a byte slice in hex with an ASCII gutter, xxd
// style, with the row position printed in hex. Used for dumping raw
// directory structures when debugging image decoding.
func DumpByteSlice(b []byte, bytesPerRow int) string {
	if bytesPerRow <= 0 {
		bytesPerRow = 16
	}
	var out strings.Builder
	for first := 0; first < len(b); first += bytesPerRow {
		fmt.Fprintf(&out, "%08x: ", first)
		var ascii []byte
		for j := first; j < first+bytesPerRow; j++ {
			if j%8 == 0 {
				out.WriteByte(' ')
			}
			switch {
			case j >= len(b):
				out.WriteString("   ")
				ascii = append(ascii, ' ')
			case b[j] < 32 || b[j] > 126:
				fmt.Fprintf(&out, " %02x", b[j])
				ascii = append(ascii, '.')
			default:
				fmt.Fprintf(&out, " %02x", b[j])
				ascii = append(ascii, b[j])
			}
		}
		fmt.Fprintf(&out, "  %s\n", ascii)
	}
	return out.String()
}
