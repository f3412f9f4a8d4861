// Package hexdump renders bytes as fixed-width hex columns followed by their printable ASCII.
package hexdump

import (
	"io"
	"iter"
	"strings"
)

const (
	// BytesPerRow is the number of bytes rendered on one row.
	BytesPerRow = 16

	cellWidth = 3 // "XX "
	hexWidth  = BytesPerRow * cellWidth
	rowWidth  = hexWidth + 1 + BytesPerRow

	hexDigits = "0123456789ABCDEF"
)

// Printable reports whether b is rendered as itself in the ASCII column.
func Printable(b byte) bool {
	return b >= 32 && b <= 126
}

// RowCount returns the number of rows Rows yields for n bytes.
func RowCount(n int) int {
	return (n + BytesPerRow - 1) / BytesPerRow
}

// Row renders up to BytesPerRow bytes as one row.
func Row(chunk []byte) string {
	if len(chunk) > BytesPerRow {
		chunk = chunk[:BytesPerRow]
	}

	var sb strings.Builder
	sb.Grow(rowWidth)
	for _, b := range chunk {
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0F])
		sb.WriteByte(' ')
	}
	// Pad the hex area so the ASCII column lines up on a partial row
	for i := len(chunk); i < BytesPerRow; i++ {
		sb.WriteString("   ")
	}
	sb.WriteByte(' ')
	for _, b := range chunk {
		if Printable(b) {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// Rows yields one row per BytesPerRow bytes of data. The sequence can be ranged over
// any number of times; each pass re-reads data.
func Rows(data []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		for off := 0; off < len(data); off += BytesPerRow {
			end := min(off+BytesPerRow, len(data))
			if !yield(Row(data[off:end])) {
				return
			}
		}
	}
}

// Lines returns all rows of data.
func Lines(data []byte) []string {
	lines := make([]string, 0, RowCount(len(data)))
	for row := range Rows(data) {
		lines = append(lines, row)
	}
	return lines
}

// Write writes each row of data to w, prefixed by indent and terminated by a newline.
func Write(w io.Writer, indent string, data []byte) error {
	for row := range Rows(data) {
		if _, err := io.WriteString(w, indent+row+"\n"); err != nil {
			return err
		}
	}
	return nil
}
