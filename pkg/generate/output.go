package generate

import (
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/hyper-lang/hyperc/pkg/position"
)

// RangeKind names the sub-language a range belongs to.
type RangeKind string

const (
	RangePython RangeKind = "python"
	RangeHTML   RangeKind = "html"
)

// Mapping relates one generated token back to its source position. Lines
// and columns are zero-based on both sides.
type Mapping struct {
	GenLine int `json:"gen_line"`
	GenCol  int `json:"gen_col"`
	SrcLine int `json:"src_line"`
	SrcCol  int `json:"src_col"`
}

// Range maps a contiguous sub-language span of the source onto the span it
// occupies in the compiled text. Source offsets are bytes, compiled offsets
// are UTF-16 code units (the unit editors address virtual files in).
type Range struct {
	Kind          RangeKind `json:"type"`
	SourceStart   int       `json:"source_start"`
	SourceEnd     int       `json:"source_end"`
	CompiledStart int       `json:"compiled_start"`
	CompiledEnd   int       `json:"compiled_end"`

	// NeedsInjection is false for ranges that map positions without
	// contributing a virtual-file segment.
	NeedsInjection bool `json:"-"`
}

// Injection is one segment of a synthetic sub-language file. The editor
// concatenates prefix + source slice + suffix across all injections of a
// kind to assemble the virtual file.
type Injection struct {
	Kind   RangeKind `json:"type"`
	Start  int       `json:"start"`
	End    int       `json:"end"`
	Prefix string    `json:"prefix"`
	Suffix string    `json:"suffix"`
}

// Output accumulates generated code together with its mapping and range
// tables. Appending is the only mutation, so both tables come out monotonic
// in generated position.
type Output struct {
	buf      strings.Builder
	line     int
	col      int
	utf16Pos int
	mappings []Mapping
	ranges   []Range
}

func NewOutput() *Output {
	return &Output{}
}

// Push appends text that has no source counterpart.
func (o *Output) Push(text string) {
	o.buf.WriteString(text)
	for _, r := range text {
		if r == '\n' {
			o.line++
			o.col = 0
		} else {
			o.col++
		}
	}
	o.utf16Pos += position.UTF16Len(text)
}

// PushMapped appends a source-derived token and records where it landed.
func (o *Output) PushMapped(text string, src position.Point) {
	o.mappings = append(o.mappings, Mapping{
		GenLine: o.line,
		GenCol:  o.col,
		SrcLine: src.Line,
		SrcCol:  src.Col,
	})
	o.Push(text)
}

func (o *Output) Newline() {
	o.Push("\n")
}

// Position is the current length of the output in UTF-16 code units.
func (o *Output) Position() int {
	return o.utf16Pos
}

func (o *Output) AddRange(r Range) {
	o.ranges = append(o.ranges, r)
}

func (o *Output) Finish() (string, []Mapping, []Range) {
	return o.buf.String(), o.mappings, o.ranges
}

// ComputeInjections turns the tracked ranges into editor injections. For
// each sub-language the compiled text between consecutive ranges becomes
// the prefix of the next injection; only the last injection carries the
// trailing compiled text as its suffix, since the editor concatenates
// every prefix, slice and suffix in order.
func ComputeInjections(code string, ranges []Range) []Injection {
	var injections []Injection
	units := utf16.Encode([]rune(code))

	for _, kind := range []RangeKind{RangePython, RangeHTML} {
		var kindRanges []Range
		for _, r := range ranges {
			if r.Kind == kind && r.NeedsInjection {
				kindRanges = append(kindRanges, r)
			}
		}
		if len(kindRanges) == 0 {
			continue
		}
		// Injections address the source file, so order by source position.
		sortRangesBySource(kindRanges)

		prevEnd := 0
		for i, r := range kindRanges {
			suffix := ""
			if i == len(kindRanges)-1 {
				suffix = sliceUTF16(units, r.CompiledEnd, len(units))
			}
			injections = append(injections, Injection{
				Kind:   kind,
				Start:  r.SourceStart,
				End:    r.SourceEnd,
				Prefix: sliceUTF16(units, prevEnd, r.CompiledStart),
				Suffix: suffix,
			})
			prevEnd = r.CompiledEnd
		}
	}
	return injections
}

func sortRangesBySource(ranges []Range) {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].SourceStart < ranges[j].SourceStart
	})
}

func sliceUTF16(units []uint16, start, end int) string {
	if end > len(units) {
		end = len(units)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return ""
	}
	return string(utf16.Decode(units[start:end]))
}
