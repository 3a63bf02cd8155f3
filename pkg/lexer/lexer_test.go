package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLex_LineClassification(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Kind
	}{
		{
			name:  "separator line",
			input: "---\n",
			want:  []Kind{KindSeparator, KindNewline, KindEOF},
		},
		{
			name:  "comment line",
			input: "# a comment\n",
			want:  []Kind{KindComment, KindNewline, KindEOF},
		},
		{
			name:  "block end",
			input: "end\n",
			want:  []Kind{KindBlockEnd, KindNewline, KindEOF},
		},
		{
			name:  "control start",
			input: "if user.active:\n",
			want:  []Kind{KindControlStart, KindNewline, KindEOF},
		},
		{
			name:  "control continuation",
			input: "else:\n",
			want:  []Kind{KindControlContinuation, KindNewline, KindEOF},
		},
		{
			name:  "fragment start",
			input: "fragment Header:\n",
			want:  []Kind{KindFragmentStart, KindNewline, KindEOF},
		},
		{
			name:  "decorator",
			input: "@cached\n",
			want:  []Kind{KindDecorator, KindNewline, KindEOF},
		},
		{
			name:  "statement by assignment",
			input: "count = 1\n",
			want:  []Kind{KindStatement, KindNewline, KindEOF},
		},
		{
			name:  "prose defaults to text",
			input: "Hello world\n",
			want:  []Kind{KindText, KindNewline, KindEOF},
		},
		{
			name:  "uppercase constant assignment",
			input: "MAX = 10\n",
			want:  []Kind{KindStatement, KindNewline, KindEOF},
		},
		{
			name:  "annotated uppercase constant",
			input: "LIMIT: int = 5\n",
			want:  []Kind{KindStatement, KindNewline, KindEOF},
		},
		{
			name:  "capitalized prose with equals stays text",
			input: "The answer = whatever you want\n",
			want:  []Kind{KindText, KindNewline, KindEOF},
		},
		{
			name:  "keyword without shape is text",
			input: "if you squint\n",
			want:  []Kind{KindText, KindNewline, KindEOF},
		},
		{
			name:  "css at-rule is not a decorator",
			input: "@media (max-width: 600px) {\n",
			want:  []Kind{KindText, KindNewline, KindEOF},
		},
		{
			name:  "blank line",
			input: "\n",
			want:  []Kind{KindNewline, KindEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Lex(tt.input)
			require.Equal(t, tt.want, kinds(toks))
		})
	}
}

func TestLex_ControlKeywords(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantKeyword string
		wantRest    string
	}{
		{"if", "if user.active:\n", "if", "user.active:"},
		{"for", "for item in items:\n", "for", "item in items:"},
		{"async for", "async for item in feed:\n", "async for", "item in feed:"},
		{"async with", "async with session() as s:\n", "async with", "session() as s:"},
		{"try", "try:\n", "try", ""},
		{"def", "def helper(x):\n", "def", "helper(x):"},
		{"trailing comment stripped", "while True:  # spin\n", "while", "True:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Lex(tt.input)
			require.Equal(t, KindControlStart, toks[0].Kind)
			assert.Equal(t, tt.wantKeyword, toks[0].Keyword)
			assert.Equal(t, tt.wantRest, toks[0].Rest)
		})
	}
}

func TestLex_ContentRun(t *testing.T) {
	toks := Lex("Hello {name}, {{literal}}")

	require.Equal(t, []Kind{
		KindText, KindExpression, KindText,
		KindEscapedBrace, KindText, KindEscapedBrace,
		KindEOF,
	}, kinds(toks))

	assert.Equal(t, "Hello ", toks[0].Text)
	assert.Equal(t, "name", toks[1].Code)
	assert.Equal(t, ", ", toks[2].Text)
	assert.Equal(t, byte('{'), toks[3].Brace)
	assert.Equal(t, "literal", toks[4].Text)
	assert.Equal(t, byte('}'), toks[5].Brace)
}

func TestLex_ElementWithAttributes(t *testing.T) {
	toks := Lex(`<a href="/x" {cls} {**rest} disabled>Link</a>`)

	require.Equal(t, []Kind{KindElementOpen, KindText, KindElementClose, KindEOF}, kinds(toks))

	open := toks[0]
	assert.Equal(t, "a", open.Tag)
	assert.False(t, open.SelfClosing)
	require.Len(t, open.Attrs, 4)

	assert.Equal(t, "href", open.Attrs[0].Name)
	assert.Equal(t, AttrString, open.Attrs[0].Value)
	assert.Equal(t, "/x", open.Attrs[0].Str)

	assert.Equal(t, AttrShorthand, open.Attrs[1].Value)
	assert.Equal(t, "cls", open.Attrs[1].Expr)

	assert.Equal(t, AttrSpread, open.Attrs[2].Value)
	assert.Equal(t, "rest", open.Attrs[2].Expr)

	assert.Equal(t, "disabled", open.Attrs[3].Name)
	assert.Equal(t, AttrBool, open.Attrs[3].Value)

	assert.Equal(t, "Link", toks[1].Text)
	assert.Equal(t, "a", toks[2].Tag)
}

func TestLex_SelfClosingElement(t *testing.T) {
	toks := Lex("<br />")
	require.Equal(t, []Kind{KindElementOpen, KindEOF}, kinds(toks))
	assert.True(t, toks[0].SelfClosing)
	assert.Equal(t, "br", toks[0].Tag)
}

func TestLex_ExpressionAttribute(t *testing.T) {
	toks := Lex(`<div class={", ".join(names)}>`)
	require.Equal(t, KindElementOpen, toks[0].Kind)
	require.Len(t, toks[0].Attrs, 1)
	assert.Equal(t, "class", toks[0].Attrs[0].Name)
	assert.Equal(t, AttrExpr, toks[0].Attrs[0].Value)
	assert.Equal(t, `", ".join(names)`, toks[0].Attrs[0].Expr)
}

func TestLex_ComponentTags(t *testing.T) {
	toks := Lex("<{Card} title=\"Hi\">\ninner\n</{Card}>\n")

	require.Equal(t, []Kind{
		KindComponentOpen, KindNewline,
		KindText, KindNewline,
		KindComponentClose, KindNewline,
		KindEOF,
	}, kinds(toks))

	assert.Equal(t, "Card", toks[0].Name)
	require.Len(t, toks[0].Attrs, 1)
	assert.Equal(t, "title", toks[0].Attrs[0].Name)
	assert.Equal(t, "Card", toks[4].Name)
}

func TestLex_SlotTags(t *testing.T) {
	toks := Lex("<{...}>\nfallback\n</{...}>\n")
	require.Equal(t, []Kind{
		KindSlotOpen, KindNewline,
		KindText, KindNewline,
		KindSlotClose, KindNewline,
		KindEOF,
	}, kinds(toks))
	assert.False(t, toks[0].HasName)

	toks = Lex("<{...header}></{...header}>")
	require.Equal(t, []Kind{KindSlotOpen, KindSlotClose, KindEOF}, kinds(toks))
	assert.Equal(t, "header", toks[0].Name)
	assert.True(t, toks[0].HasName)
	assert.Equal(t, "header", toks[1].Name)
}

func TestLex_ChildrenPlaceholder(t *testing.T) {
	toks := Lex("<div>{...}</div>")
	require.Equal(t, []Kind{KindElementOpen, KindExpression, KindElementClose, KindEOF}, kinds(toks))
	assert.Equal(t, "children", toks[1].Code)

	toks = Lex("<div>{...sidebar}</div>")
	assert.Equal(t, "children_sidebar", toks[1].Code)
}

func TestLex_MultilineStatement(t *testing.T) {
	toks := Lex("items = [\n    1,\n    2,\n]\n")
	require.Equal(t, []Kind{KindStatement, KindNewline, KindEOF}, kinds(toks))
	assert.Equal(t, "items = [\n    1,\n    2,\n]", toks[0].Code)
}

func TestLex_MarkupAssignment(t *testing.T) {
	toks := Lex("title = <b>Hi</b>\n")
	require.Equal(t, KindStatement, toks[0].Kind)
	assert.Equal(t, `title = f"""<b>Hi</b>"""`, toks[0].Code)
}

func TestLex_TrailingComment(t *testing.T) {
	toks := Lex("<br />  # note\n")
	require.Equal(t, []Kind{KindElementOpen, KindComment, KindNewline, KindEOF}, kinds(toks))
	assert.Equal(t, "# note", toks[1].Text)

	// A hash inside prose is not a comment.
	toks = Lex("Issue #42\n")
	require.Equal(t, []Kind{KindText, KindNewline, KindEOF}, kinds(toks))
	assert.Equal(t, "Issue #42", toks[0].Text)
}

func TestLex_UnterminatedExpression(t *testing.T) {
	toks := Lex("{1 +")
	require.Equal(t, []Kind{KindExpression, KindEOF}, kinds(toks))
	assert.True(t, toks[0].Unterminated)
}

func TestLex_InlineNamedSlotTags(t *testing.T) {
	toks := Lex("<{...title}><b>T</b></{...title}>\n")

	require.Equal(t, []Kind{
		KindSlotOpen,
		KindElementOpen, KindText, KindElementClose,
		KindSlotClose,
		KindNewline, KindEOF,
	}, kinds(toks))
	assert.Equal(t, "title", toks[0].Name)
	assert.Equal(t, "title", toks[4].Name)
}

func TestLex_TripleQuotedString(t *testing.T) {
	toks := Lex("doc = \"\"\"\n<not a tag>\nend\n\"\"\"\n")

	// Everything between the delimiters passes through as statements,
	// including lines that would otherwise classify as markup or block end.
	require.Equal(t, []Kind{
		KindStatement, KindNewline,
		KindStatement, KindNewline,
		KindStatement, KindNewline,
		KindStatement, KindNewline,
		KindEOF,
	}, kinds(toks))
	assert.Equal(t, "<not a tag>", toks[2].Code)
	assert.Equal(t, "end", toks[4].Code)
}

func TestLex_Positions(t *testing.T) {
	toks := Lex("é {x}")

	require.Equal(t, []Kind{KindText, KindExpression, KindEOF}, kinds(toks))

	expr := toks[1]
	assert.Equal(t, 3, expr.Loc.Start.Byte, "é is two bytes")
	assert.Equal(t, 2, expr.Loc.Start.Col, "é is one rune")
	assert.Equal(t, 2, expr.Loc.Start.UTF16, "é is one code unit")
}

func TestLex_BadLine(t *testing.T) {
	toks := Lex("\xff\xfe\n<p>ok</p>")

	require.Equal(t, KindBad, toks[0].Kind)
	// Lexing is total: the rest of the input still tokenizes.
	require.Equal(t, []Kind{
		KindBad, KindNewline,
		KindElementOpen, KindText, KindElementClose,
		KindEOF,
	}, kinds(toks))
}

func TestLex_Totality(t *testing.T) {
	// No input may panic or drop bytes silently.
	inputs := []string{
		"", "\n", "---", "<", "</", "<{", "</{", "{", "}}", "{{",
		"<div", "if :", "fragment :", "   ", "\t<p>", "a = (",
	}
	for _, in := range inputs {
		toks := Lex(in)
		require.NotEmpty(t, toks)
		require.Equal(t, KindEOF, toks[len(toks)-1].Kind)
	}
}
