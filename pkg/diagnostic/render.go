package diagnostic

import (
	"fmt"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/fatih/color"

	"github.com/hyper-lang/hyperc/pkg/position"
)

// styles carries the per-piece styling functions. The plain and emphasized
// renderings share structure and differ only here.
type styles struct {
	errWord func(string) string
	message func(string) string
	arrow   func(string) string
	gutter  func(string) string
	caret   func(string) string
	related func(string) string
	help    func(string) string
}

func plainStyles() styles {
	id := func(s string) string { return s }
	return styles{errWord: id, message: id, arrow: id, gutter: id, caret: id, related: id, help: id}
}

func emphasizedStyles() styles {
	forced := func(attrs ...color.Attribute) func(string) string {
		c := color.New(attrs...)
		c.EnableColor()
		return func(s string) string { return c.Sprint(s) }
	}
	return styles{
		errWord: forced(color.FgRed, color.Bold),
		message: forced(color.Bold),
		arrow:   forced(color.FgBlue, color.Bold),
		gutter:  forced(color.FgBlue, color.Bold),
		caret:   forced(color.FgRed, color.Bold),
		related: forced(color.FgCyan, color.Bold),
		help:    forced(color.FgYellow),
	}
}

// Render formats the error against its source. The filename is only used
// for the location line; pass "<stdin>" or similar when there is no file.
func Render(err *Error, source, filename string, emphasized bool) string {
	st := plainStyles()
	if emphasized {
		st = emphasizedStyles()
	}

	idx := position.NewIndex(source)
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s\n", st.errWord("error"), st.message(err.Message))
	fmt.Fprintf(&b, "  %s %s:%d:%d\n", st.arrow("-->"), filename, err.Span.Start.Line+1, err.Span.Start.Col+1)

	width := gutterWidth(err.Span.Start.Line + 1)
	if err.HasRelated {
		if w := gutterWidth(err.RelatedSpan.Start.Line + 1); w > width {
			width = w
		}
	}

	writeSpanContext(&b, idx, err.Span, width, st.gutter, st.caret, "^", "")

	if err.HasRelated {
		label := err.RelatedLabel
		if label == "" {
			label = "opened here"
		}
		writeSpanContext(&b, idx, err.RelatedSpan, width, st.gutter, st.related, "-", label)
	}

	if err.Help != "" {
		for i, line := range strings.Split(err.Help, "\n") {
			if i == 0 {
				fmt.Fprintf(&b, "   %s %s\n", st.help("= help:"), line)
			} else {
				fmt.Fprintf(&b, "           %s\n", line)
			}
		}
	}

	return b.String()
}

// writeSpanContext emits the quoted source line for a span plus an
// underline row built from the given marker character.
func writeSpanContext(b *strings.Builder, idx *position.Index, span position.Span, width int, gutter, mark func(string) string, marker, label string) {
	if span.Start.Line >= idx.LineCount() {
		return
	}
	line := idx.Line(span.Start.Line)
	lineNum := span.Start.Line + 1

	fmt.Fprintf(b, "%s\n", gutter(fmt.Sprintf("%*s |", width, "")))
	fmt.Fprintf(b, "%s %s\n", gutter(fmt.Sprintf("%*d |", width, lineNum)), line)

	pad := displayWidth(prefixOfLine(line, span.Start.Col))
	length := underlineLength(line, span)

	underline := strings.Repeat(" ", pad) + mark(strings.Repeat(marker, length))
	if label != "" {
		underline += " " + mark(label)
	}
	fmt.Fprintf(b, "%s %s\n", gutter(fmt.Sprintf("%*s |", width, "")), underline)
}

// underlineLength measures the span's extent on its first line, in display
// cells. Multi-line spans underline to the end of the first line.
func underlineLength(line string, span position.Span) int {
	var covered string
	if span.End.Line == span.Start.Line {
		covered = sliceByCols(line, span.Start.Col, span.End.Col)
	} else {
		covered = sliceByCols(line, span.Start.Col, -1)
	}
	if n := displayWidth(covered); n > 0 {
		return n
	}
	return 1
}

// prefixOfLine returns the part of the line before the given rune column.
func prefixOfLine(line string, col int) string {
	return sliceByCols(line, 0, col)
}

// sliceByCols cuts a line between two rune columns. An end of -1 means to
// the end of the line.
func sliceByCols(line string, start, end int) string {
	runes := []rune(line)
	if start > len(runes) {
		start = len(runes)
	}
	if end < 0 || end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// displayWidth counts grapheme clusters, keeping underline alignment stable
// for text where runes and displayed characters disagree.
func displayWidth(s string) int {
	n, err := textseg.TokenCount([]byte(s), textseg.ScanGraphemeClusters)
	if err != nil {
		return len([]rune(s))
	}
	return n
}

func gutterWidth(lineNum int) int {
	w := len(fmt.Sprintf("%d", lineNum))
	if w < 2 {
		return 2
	}
	return w
}
