// Package position provides the dual-unit span model used by every stage of
// the pipeline. Offsets are tracked simultaneously in bytes (what the lexer
// and parser slice on) and UTF-16 code units (what editors address), along
// with zero-based line and rune-column numbers.
package position

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Point is a single location in source text.
type Point struct {
	// Byte is the byte offset in the UTF-8 source.
	Byte int
	// Line is the zero-based line number.
	Line int
	// Col is the zero-based column, counted in runes.
	Col int
	// UTF16 is the offset in UTF-16 code units, the editor-native unit.
	UTF16 int
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d@%d", p.Line, p.Col, p.Byte)
}

// Before reports whether p precedes other in source order.
func (p Point) Before(other Point) bool {
	return p.Byte < other.Byte
}

// Span is a half-open range [Start, End) in source text.
// Start never exceeds End in any unit; spans are immutable once created.
type Span struct {
	Start Point
	End   Point
}

// NewSpan builds a span, swapping the endpoints if they arrive reversed so
// the ordering invariant always holds.
func NewSpan(start, end Point) Span {
	if end.Byte < start.Byte {
		start, end = end, start
	}
	return Span{Start: start, End: end}
}

// PointSpan is a zero-width span at a single point.
func PointSpan(p Point) Span {
	return Span{Start: p, End: p}
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End.Byte - s.Start.Byte
}

// IsZero reports whether the span is uninitialized.
func (s Span) IsZero() bool {
	return s.Start == Point{} && s.End == Point{}
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(byteOffset int) bool {
	return byteOffset >= s.Start.Byte && byteOffset < s.End.Byte
}

// Overlaps reports whether two spans share at least one byte. Zero-length
// spans overlap when they fall within the other range.
func (s Span) Overlaps(other Span) bool {
	if s.Len() == 0 {
		return s.Start.Byte >= other.Start.Byte && s.Start.Byte <= other.End.Byte
	}
	if other.Len() == 0 {
		return other.Start.Byte >= s.Start.Byte && other.Start.Byte <= s.End.Byte
	}
	return s.Start.Byte < other.End.Byte && other.Start.Byte < s.End.Byte
}

// Text returns the source slice covered by the span.
func (s Span) Text(source string) string {
	start, end := s.Start.Byte, s.End.Byte
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	if start >= end {
		return ""
	}
	return source[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("[%s - %s]", s.Start, s.End)
}

// Tracker advances a Point over source text, keeping every unit in sync.
// The lexer owns one tracker per compile; nothing else mutates points.
type Tracker struct {
	source string
	point  Point
}

func NewTracker(source string) *Tracker {
	return &Tracker{source: source}
}

// Point returns the current location.
func (t *Tracker) Point() Point {
	return t.point
}

// AtEOF reports whether the tracker has consumed the entire source.
func (t *Tracker) AtEOF() bool {
	return t.point.Byte >= len(t.source)
}

// Peek returns the rune at the current position without advancing.
// Invalid UTF-8 yields utf8.RuneError with a width of one byte.
func (t *Tracker) Peek() (rune, int) {
	if t.AtEOF() {
		return 0, 0
	}
	return utf8.DecodeRuneInString(t.source[t.point.Byte:])
}

// Advance consumes one rune, updating byte, UTF-16, line and column units.
func (t *Tracker) Advance() rune {
	r, width := t.Peek()
	if width == 0 {
		return 0
	}
	t.point.Byte += width
	if r == utf8.RuneError && width == 1 {
		// An invalid byte is replaced by U+FFFD downstream, one UTF-16 unit.
		t.point.UTF16++
	} else {
		t.point.UTF16 += utf16.RuneLen(r)
	}
	if r == '\n' {
		t.point.Line++
		t.point.Col = 0
	} else {
		t.point.Col++
	}
	return r
}

// AdvanceBytes consumes runes until the given byte offset is reached.
func (t *Tracker) AdvanceBytes(byteOffset int) {
	for t.point.Byte < byteOffset && !t.AtEOF() {
		t.Advance()
	}
}

// ByteToUTF16 converts a byte offset into a UTF-16 code-unit offset,
// clamping out-of-bounds offsets to the source length.
func ByteToUTF16(source string, byteOffset int) int {
	if byteOffset > len(source) {
		byteOffset = len(source)
	}
	if byteOffset < 0 {
		byteOffset = 0
	}
	n := 0
	for _, r := range source[:byteOffset] {
		n += utf16.RuneLen(r)
	}
	return n
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	return ByteToUTF16(s, len(s))
}
