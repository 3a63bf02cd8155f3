package position

import "strings"

// Index precomputes line boundaries of a source text so diagnostics can pull
// out individual lines without rescanning.
type Index struct {
	source string
	// starts[i] is the byte offset of the first byte of line i.
	starts []int
}

func NewIndex(source string) *Index {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{source: source, starts: starts}
}

// LineCount returns the number of lines, counting a trailing fragment
// without a newline as a line.
func (ix *Index) LineCount() int {
	return len(ix.starts)
}

// Line returns the text of the zero-based line n without its newline.
func (ix *Index) Line(n int) string {
	if n < 0 || n >= len(ix.starts) {
		return ""
	}
	start := ix.starts[n]
	end := len(ix.source)
	if n+1 < len(ix.starts) {
		end = ix.starts[n+1]
	}
	return strings.TrimRight(ix.source[start:end], "\r\n")
}

// PointAt resolves a byte offset into a full Point.
func (ix *Index) PointAt(byteOffset int) Point {
	if byteOffset > len(ix.source) {
		byteOffset = len(ix.source)
	}
	if byteOffset < 0 {
		byteOffset = 0
	}
	line := 0
	for line+1 < len(ix.starts) && ix.starts[line+1] <= byteOffset {
		line++
	}
	col := 0
	for _, r := range ix.source[ix.starts[line]:byteOffset] {
		_ = r
		col++
	}
	return Point{
		Byte:  byteOffset,
		Line:  line,
		Col:   col,
		UTF16: ByteToUTF16(ix.source, byteOffset),
	}
}

// EOF returns a Point at the very end of the source.
func (ix *Index) EOF() Point {
	return ix.PointAt(len(ix.source))
}
