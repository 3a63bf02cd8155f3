// Package diagnostic defines the single fatal error a compile can produce
// and renders it with source context for terminals and editors.
package diagnostic

import (
	"fmt"

	"github.com/hyper-lang/hyperc/pkg/position"
)

// Kind is the error taxonomy. Every failure a compile can report is one of
// these; there are no warnings and no multi-error results.
type Kind int

const (
	UnclosedElement Kind = iota
	MismatchedTag
	UnclosedExpression
	UnexpectedEOF
	UnexpectedToken
	InvalidControlFlowShape
	DuplicateAttribute
	VoidElementMisuse
	InvalidNesting
	MissingRequiredSeparator
	MixedReturnAndYield
)

var kindNames = map[Kind]string{
	UnclosedElement:          "unclosed-element",
	MismatchedTag:            "mismatched-tag",
	UnclosedExpression:       "unclosed-expression",
	UnexpectedEOF:            "unexpected-eof",
	UnexpectedToken:          "unexpected-token",
	InvalidControlFlowShape:  "invalid-control-flow-shape",
	DuplicateAttribute:       "duplicate-attribute",
	VoidElementMisuse:        "void-element-misuse",
	InvalidNesting:           "invalid-nesting",
	MissingRequiredSeparator: "missing-required-separator",
	MixedReturnAndYield:      "mixed-return-and-yield",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a fatal compile error with a primary span and optionally a
// related span (such as the opening tag of an unclosed element) and a help
// line suggesting a fix.
type Error struct {
	Kind         Kind
	Message      string
	Span         position.Span
	RelatedSpan  position.Span
	HasRelated   bool
	RelatedLabel string
	Help         string
}

func New(kind Kind, span position.Span, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// WithRelated attaches a secondary span, labeled "opened here" unless
// overridden with WithRelatedLabel.
func (e *Error) WithRelated(span position.Span) *Error {
	e.RelatedSpan = span
	e.HasRelated = true
	return e
}

func (e *Error) WithRelatedLabel(label string) *Error {
	e.RelatedLabel = label
	return e
}

func (e *Error) WithHelp(format string, args ...any) *Error {
	e.Help = fmt.Sprintf(format, args...)
	return e
}

func (e *Error) Error() string {
	return e.Message
}
