package lexer

import "github.com/hyper-lang/hyperc/pkg/position"

// Kind classifies a token. Classification is total: input the lexer cannot
// make sense of becomes KindBad, never an error.
type Kind int

const (
	KindEOF Kind = iota
	KindNewline
	KindSeparator
	KindComment
	KindControlStart
	KindControlContinuation
	KindBlockEnd
	KindStatement
	KindDecorator
	KindFragmentStart
	KindText
	KindExpression
	KindEscapedBrace
	KindElementOpen
	KindElementClose
	KindComponentOpen
	KindComponentClose
	KindSlotOpen
	KindSlotClose
	KindBad
)

var kindNames = map[Kind]string{
	KindEOF:                 "eof",
	KindNewline:             "newline",
	KindSeparator:           "separator",
	KindComment:             "comment",
	KindControlStart:        "control-start",
	KindControlContinuation: "control-continuation",
	KindBlockEnd:            "block-end",
	KindStatement:           "statement",
	KindDecorator:           "decorator",
	KindFragmentStart:       "fragment-start",
	KindText:                "text",
	KindExpression:          "expression",
	KindEscapedBrace:        "escaped-brace",
	KindElementOpen:         "element-open",
	KindElementClose:        "element-close",
	KindComponentOpen:       "component-open",
	KindComponentClose:      "component-close",
	KindSlotOpen:            "slot-open",
	KindSlotClose:           "slot-close",
	KindBad:                 "bad",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// AttrValueKind classifies how an attribute inside a tag carries its value.
type AttrValueKind int

const (
	AttrString AttrValueKind = iota
	AttrExpr
	AttrBool
	AttrShorthand
	AttrSpread
	AttrSlotTarget
)

// Attr is a raw attribute as scanned inside an opening tag.
type Attr struct {
	Name    string
	Value   AttrValueKind
	Str     string
	Expr    string
	ExprLoc position.Span
	Loc     position.Span
}

// Token is one lexeme with its exact source slice and dual-unit span.
// Tokens are produced once, in source order, and never mutated.
type Token struct {
	Kind Kind
	Text string
	Loc  position.Span

	// Control lines.
	Keyword string
	Rest    string
	RestLoc position.Span

	// Expressions and statements.
	Code string

	// Tags.
	Tag         string
	TagLoc      position.Span
	Attrs       []Attr
	SelfClosing bool

	// Components, slots, fragments.
	Name    string
	HasName bool
	NameLoc position.Span

	// Escaped braces.
	Brace byte

	// Set when an expression ran out of input before its closing brace.
	Unterminated bool
}

func (t Token) String() string {
	return t.Kind.String() + "(" + t.Text + ")"
}
