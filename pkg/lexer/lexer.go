// Package lexer turns template source into an ordered token stream. Lexing
// is total: every byte of input lands in some token, and input the lexer
// cannot classify becomes a bad token instead of an error. The parser is the
// first stage allowed to reject input.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyper-lang/hyperc/pkg/position"
)

type quoteCtx int

const (
	quoteNone quoteCtx = iota
	quoteSingle
	quoteDouble
)

// Lexer scans one source text line by line. Lines are classified first and
// only content lines are scanned character by character.
type Lexer struct {
	source string
	tr     *position.Tracker

	// Delimiter of the triple-quoted string we are inside, or empty.
	// Lines inside a triple-quoted string pass through as statements.
	inTripleString string
}

// Lex tokenizes the entire source. It never fails.
func Lex(source string) []Token {
	lx := &Lexer{source: source, tr: position.NewTracker(source)}
	var toks []Token
	for !lx.tr.AtEOF() {
		lx.lexLine(&toks)
	}
	toks = append(toks, Token{Kind: KindEOF, Loc: position.PointSpan(lx.tr.Point())})
	return toks
}

func (lx *Lexer) lexLine(toks *[]Token) {
	line := lx.peekLine()
	trimmed := strings.TrimSpace(line)
	trimmedLeft := strings.TrimLeft(line, " \t")

	if !utf8.ValidString(line) {
		start := lx.tr.Point()
		lx.skipToEOL()
		*toks = append(*toks, Token{Kind: KindBad, Text: line, Loc: lx.span(start)})
		lx.consumeNewline(toks)
		return
	}

	if lx.inTripleString != "" {
		start := lx.tr.Point()
		lx.skipToEOL()
		if strings.Contains(line, lx.inTripleString) {
			lx.inTripleString = ""
		}
		*toks = append(*toks, Token{Kind: KindStatement, Text: line, Code: line, Loc: lx.span(start)})
		lx.consumeNewline(toks)
		return
	}

	if trimmed == "" {
		lx.skipToEOL()
		lx.consumeNewline(toks)
		return
	}

	switch {
	case strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''"):
		if delim := openTripleQuote(trimmed); delim != "" {
			lx.inTripleString = delim
		}
		lx.skipIndent()
		start := lx.tr.Point()
		code := lx.consumeToEOL()
		*toks = append(*toks, Token{Kind: KindStatement, Text: code, Code: code, Loc: lx.span(start)})

	case trimmed == "---":
		lx.skipIndent()
		start := lx.tr.Point()
		text := lx.consumeToEOL()
		*toks = append(*toks, Token{Kind: KindSeparator, Text: text, Loc: lx.span(start)})

	case strings.HasPrefix(trimmedLeft, "#"):
		lx.skipIndent()
		start := lx.tr.Point()
		text := lx.consumeToEOL()
		*toks = append(*toks, Token{Kind: KindComment, Text: text, Loc: lx.span(start)})

	case strings.HasPrefix(trimmedLeft, "@") && !strings.Contains(trimmedLeft, "<") && !isCSSAtRule(trimmedLeft):
		lx.skipIndent()
		start := lx.tr.Point()
		code := lx.consumeToEOL()
		*toks = append(*toks, Token{Kind: KindDecorator, Text: code, Code: code, Loc: lx.span(start)})

	case strings.HasPrefix(trimmedLeft, "@") && isCSSAtRule(trimmedLeft):
		// CSS at-rules pass through verbatim; their braces are style
		// syntax, not expressions.
		lx.skipIndent()
		start := lx.tr.Point()
		text := lx.consumeToEOL()
		*toks = append(*toks, Token{Kind: KindText, Text: text, Loc: lx.span(start)})

	case strings.HasPrefix(trimmedLeft, "<{..."):
		lx.skipIndent()
		lx.lexSlotTag(toks, false)

	case strings.HasPrefix(trimmedLeft, "</{..."):
		lx.skipIndent()
		lx.lexSlotTag(toks, true)

	case strings.HasPrefix(trimmedLeft, "<{"):
		lx.skipIndent()
		lx.lexComponentOpen(toks)

	case strings.HasPrefix(trimmedLeft, "</{"):
		lx.skipIndent()
		lx.lexComponentClose(toks)

	case trimmed == "end":
		lx.skipIndent()
		start := lx.tr.Point()
		text := lx.consumeToEOL()
		*toks = append(*toks, Token{Kind: KindBlockEnd, Text: text, Loc: lx.span(start)})

	case strings.HasPrefix(trimmed, "fragment ") && strings.HasSuffix(trimmed, ":"):
		lx.skipIndent()
		start := lx.tr.Point()
		text := lx.consumeToEOL()
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(text), "fragment "), ":"))
		*toks = append(*toks, Token{Kind: KindFragmentStart, Text: text, Name: name, HasName: name != "", Loc: lx.span(start)})

	case isControlStart(trimmed):
		lx.skipIndent()
		lx.lexControl(toks, KindControlStart)

	case isControlContinuation(trimmed):
		lx.skipIndent()
		lx.lexControl(toks, KindControlContinuation)

	case strings.HasPrefix(trimmedLeft, "<"):
		lx.lexContent(toks)

	case isMarkupAssignment(trimmed):
		lx.skipIndent()
		lx.lexMarkupAssignment(toks)

	case isParameterDecl(trimmed) || isHostStatement(trimmed):
		lx.skipIndent()
		lx.lexStatement(toks)

	default:
		lx.lexContent(toks)
	}

	lx.consumeNewline(toks)
}

// lexControl scans a control line into keyword and rest. Compound async
// keywords stay joined so the parser sees a single keyword.
func (lx *Lexer) lexControl(toks *[]Token, kind Kind) {
	start := lx.tr.Point()
	text := lx.consumeToEOL()
	effective := stripTrailingComment(strings.TrimSpace(text))

	var keyword, rest string
	switch {
	case strings.HasPrefix(effective, "async for "):
		keyword, rest = "async for", strings.TrimSpace(effective[len("async for "):])
	case strings.HasPrefix(effective, "async with "):
		keyword, rest = "async with", strings.TrimSpace(effective[len("async with "):])
	case strings.HasPrefix(effective, "async def "):
		keyword, rest = "async def", strings.TrimSpace(effective[len("async def "):])
	default:
		idx := strings.IndexFunc(effective, func(r rune) bool {
			return unicode.IsSpace(r) || r == ':'
		})
		if idx < 0 {
			keyword = effective
		} else {
			keyword = effective[:idx]
			rest = strings.TrimSpace(effective[idx:])
		}
	}
	if rest == ":" {
		rest = ""
	}

	restStart := start
	if i := strings.Index(text, rest); rest != "" && i >= 0 {
		restStart = position.Point{
			Byte:  start.Byte + i,
			Line:  start.Line,
			Col:   start.Col + utf8.RuneCountInString(text[:i]),
			UTF16: start.UTF16 + position.UTF16Len(text[:i]),
		}
	}

	*toks = append(*toks, Token{
		Kind:    kind,
		Text:    text,
		Keyword: keyword,
		Rest:    rest,
		RestLoc: position.NewSpan(restStart, position.Point{
			Byte:  restStart.Byte + len(rest),
			Line:  restStart.Line,
			Col:   restStart.Col + utf8.RuneCountInString(rest),
			UTF16: restStart.UTF16 + position.UTF16Len(rest),
		}),
		Loc: lx.span(start),
	})
}

// lexStatement consumes one host-language statement, joining continuation
// lines while brackets stay open.
func (lx *Lexer) lexStatement(toks *[]Token) {
	start := lx.tr.Point()
	code := lx.consumeToEOL()

	for bracketDepth(code) > 0 && !lx.tr.AtEOF() {
		if lx.atNewline() {
			code += "\n"
			lx.eatNewline()
		}
		for !lx.tr.AtEOF() && !lx.atNewline() {
			r, _ := lx.tr.Peek()
			if r != ' ' && r != '\t' {
				break
			}
			code += string(r)
			lx.tr.Advance()
		}
		if lx.tr.AtEOF() || lx.atNewline() {
			continue
		}
		code += lx.consumeToEOL()
	}

	// A statement like `doc = """` leaves a triple-quoted string open;
	// following lines pass through until the matching delimiter.
	if delim := openTripleQuote(code); delim != "" {
		lx.inTripleString = delim
	}

	*toks = append(*toks, Token{Kind: KindStatement, Text: code, Code: code, Loc: lx.span(start)})
}

// openTripleQuote returns the delimiter of a triple-quoted string the code
// opens without closing, or the empty string.
func openTripleQuote(code string) string {
	open := ""
	for i := 0; i+3 <= len(code); {
		chunk := code[i : i+3]
		switch {
		case open == "" && (chunk == `"""` || chunk == "'''"):
			open = chunk
			i += 3
		case open != "" && chunk == open:
			open = ""
			i += 3
		default:
			i++
		}
	}
	return open
}

// lexMarkupAssignment rewrites `name = <markup>` into an f-string assignment
// so the right-hand side renders like any other template text.
func (lx *Lexer) lexMarkupAssignment(toks *[]Token) {
	start := lx.tr.Point()
	text := lx.consumeToEOL()
	trimmed := strings.TrimSpace(text)

	code := text
	if eq := strings.Index(trimmed, " = "); eq >= 0 {
		left := trimmed[:eq]
		right := strings.TrimSpace(trimmed[eq+3:])
		code = left + ` = f"""` + right + `"""`
	}

	*toks = append(*toks, Token{Kind: KindStatement, Text: text, Code: code, Loc: lx.span(start)})
}

// lexContent scans a content run: literal text, {expr} expressions, escaped
// braces, inline element tags and trailing comments. It stops at end of line
// unless an expression spans lines.
func (lx *Lexer) lexContent(toks *[]Token) {
	ctx := quoteNone
	textStart := lx.tr.Point()
	var buf strings.Builder

	// A trailing comment is only recognized when nothing but whitespace
	// follows the last structural token. Content starts at a boundary.
	afterStructural := true

	flush := func() {
		if buf.Len() > 0 {
			*toks = append(*toks, Token{Kind: KindText, Text: buf.String(), Loc: lx.span(textStart)})
			buf.Reset()
		}
	}

	for !lx.tr.AtEOF() && !lx.atNewline() {
		r, _ := lx.tr.Peek()

		switch {
		case ctx == quoteNone && r == '"':
			buf.WriteRune(r)
			lx.tr.Advance()
			ctx = quoteDouble
			afterStructural = false

		case ctx == quoteDouble && r == '"':
			buf.WriteRune(r)
			lx.tr.Advance()
			ctx = quoteNone

		case ctx == quoteNone && r == '\'':
			buf.WriteRune(r)
			lx.tr.Advance()
			ctx = quoteSingle
			afterStructural = false

		case ctx == quoteSingle && r == '\'':
			buf.WriteRune(r)
			lx.tr.Advance()
			ctx = quoteNone

		case ctx != quoteNone && r == '\\':
			buf.WriteRune(r)
			lx.tr.Advance()
			if next, w := lx.tr.Peek(); w > 0 && next != '\n' {
				buf.WriteRune(next)
				lx.tr.Advance()
			}

		case ctx == quoteNone && r == '#' && afterStructural && buf.Len() > 0 && strings.TrimSpace(buf.String()) == "":
			// Whitespace before a trailing comment is padding, not text.
			buf.Reset()
			start := lx.tr.Point()
			text := lx.consumeToEOL()
			*toks = append(*toks, Token{Kind: KindComment, Text: text, Loc: lx.span(start)})
			return

		case ctx == quoteNone && r == '{' && lx.peekByteAt(1) == '{':
			flush()
			start := lx.tr.Point()
			lx.tr.Advance()
			lx.tr.Advance()
			*toks = append(*toks, Token{Kind: KindEscapedBrace, Text: "{{", Brace: '{', Loc: lx.span(start)})
			textStart = lx.tr.Point()
			afterStructural = true

		case ctx == quoteNone && r == '}' && lx.peekByteAt(1) == '}':
			flush()
			start := lx.tr.Point()
			lx.tr.Advance()
			lx.tr.Advance()
			*toks = append(*toks, Token{Kind: KindEscapedBrace, Text: "}}", Brace: '}', Loc: lx.span(start)})
			textStart = lx.tr.Point()
			afterStructural = true

		case ctx == quoteNone && r == '{':
			flush()
			lx.lexExpression(toks)
			textStart = lx.tr.Point()
			afterStructural = true

		case ctx == quoteNone && r == '<' && lx.isElementOpenAhead():
			flush()
			lx.lexElementOpen(toks)
			textStart = lx.tr.Point()
			afterStructural = true

		case ctx == quoteNone && r == '<' && lx.peekByteAt(1) == '/' && lx.peekByteAt(2) == '{':
			flush()
			if lx.peekByteAt(3) == '.' {
				lx.lexSlotTag(toks, true)
			} else {
				lx.lexComponentClose(toks)
			}
			textStart = lx.tr.Point()
			afterStructural = true

		case ctx == quoteNone && r == '<' && lx.isElementCloseAhead():
			flush()
			lx.lexElementClose(toks)
			textStart = lx.tr.Point()
			afterStructural = true

		default:
			if !unicode.IsSpace(r) {
				afterStructural = false
			}
			buf.WriteRune(r)
			lx.tr.Advance()
		}
	}

	flush()
}

// lexExpression consumes a balanced {expr}, tracking nested braces and
// string literals inside the expression. It may cross line boundaries. An
// expression still open at end of input is marked unterminated.
func (lx *Lexer) lexExpression(toks *[]Token) {
	start := lx.tr.Point()
	lx.tr.Advance() // {

	depth := 1
	inString := false
	var stringChar rune
	var expr strings.Builder

	for !lx.tr.AtEOF() && depth > 0 {
		r, _ := lx.tr.Peek()

		if inString {
			if r == '\\' {
				expr.WriteRune(r)
				lx.tr.Advance()
				if next, w := lx.tr.Peek(); w > 0 {
					expr.WriteRune(next)
					lx.tr.Advance()
				}
				continue
			}
			if r == stringChar {
				inString = false
			}
			expr.WriteRune(r)
			lx.tr.Advance()
			continue
		}

		switch r {
		case '"', '\'':
			inString = true
			stringChar = r
			expr.WriteRune(r)
			lx.tr.Advance()
		case '{':
			depth++
			expr.WriteRune(r)
			lx.tr.Advance()
		case '}':
			depth--
			if depth > 0 {
				expr.WriteRune(r)
			}
			lx.tr.Advance()
		default:
			expr.WriteRune(r)
			lx.tr.Advance()
		}
	}

	// {...} and {...name} are children placeholders, rewritten to the
	// parameter names the generated function receives.
	code := expr.String()
	if trimmed := strings.TrimSpace(code); strings.HasPrefix(trimmed, "...") {
		name := strings.TrimSpace(trimmed[3:])
		if name == "" {
			code = "children"
		} else {
			code = "children_" + name
		}
	}

	*toks = append(*toks, Token{
		Kind:         KindExpression,
		Text:         lx.source[start.Byte:lx.tr.Point().Byte],
		Code:         code,
		Loc:          lx.span(start),
		Unterminated: depth > 0,
	})
}

// lexElementOpen scans `<tag attr...>` or `<tag attr... />`.
func (lx *Lexer) lexElementOpen(toks *[]Token) {
	start := lx.tr.Point()
	lx.tr.Advance() // <

	tagStart := lx.tr.Point()
	tag := lx.consumeWhile(func(r rune) bool {
		return r == '-' || r == '_' || (r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	})
	tagLoc := position.NewSpan(tagStart, lx.tr.Point())

	var attrs []Attr
	for {
		lx.skipInlineWS()
		if lx.tr.AtEOF() || lx.atNewline() {
			break
		}
		r, _ := lx.tr.Peek()

		if r == '/' && lx.peekByteAt(1) == '>' {
			lx.tr.Advance()
			lx.tr.Advance()
			*toks = append(*toks, Token{
				Kind: KindElementOpen, Text: lx.source[start.Byte:lx.tr.Point().Byte],
				Tag: tag, TagLoc: tagLoc, Attrs: attrs, SelfClosing: true, Loc: lx.span(start),
			})
			return
		}
		if r == '>' {
			lx.tr.Advance()
			*toks = append(*toks, Token{
				Kind: KindElementOpen, Text: lx.source[start.Byte:lx.tr.Point().Byte],
				Tag: tag, TagLoc: tagLoc, Attrs: attrs, Loc: lx.span(start),
			})
			return
		}

		if attr, ok := lx.parseAttr(); ok {
			attrs = append(attrs, attr)
		} else {
			lx.tr.Advance()
		}
	}

	// Line ended before `>`. Emit what we have; the parser reports it.
	*toks = append(*toks, Token{
		Kind: KindElementOpen, Text: lx.source[start.Byte:lx.tr.Point().Byte],
		Tag: tag, TagLoc: tagLoc, Attrs: attrs, Loc: lx.span(start),
	})
}

// lexElementClose scans `</tag>`.
func (lx *Lexer) lexElementClose(toks *[]Token) {
	start := lx.tr.Point()
	lx.tr.Advance() // <
	lx.tr.Advance() // /

	tagStart := lx.tr.Point()
	tag := lx.consumeWhile(func(r rune) bool {
		return r == '-' || r == '_' || (r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	})
	tagLoc := position.NewSpan(tagStart, lx.tr.Point())

	for !lx.tr.AtEOF() && !lx.atNewline() {
		if r, _ := lx.tr.Peek(); r == '>' {
			lx.tr.Advance()
			break
		}
		lx.tr.Advance()
	}

	*toks = append(*toks, Token{
		Kind: KindElementClose, Text: lx.source[start.Byte:lx.tr.Point().Byte],
		Tag: tag, TagLoc: tagLoc, Loc: lx.span(start),
	})
}

// lexComponentOpen scans `<{Name} attr...>`. Content after the closing `>`
// on the same line is tokenized as regular content.
func (lx *Lexer) lexComponentOpen(toks *[]Token) {
	start := lx.tr.Point()
	lx.tr.Advance() // <
	lx.tr.Advance() // {

	nameStart := lx.tr.Point()
	name := lx.consumeUntilBrace()
	nameLoc := position.NewSpan(nameStart, lx.tr.Point())
	lx.tr.Advance() // }

	var attrs []Attr
	for {
		lx.skipInlineWS()
		if lx.tr.AtEOF() || lx.atNewline() {
			break
		}
		r, _ := lx.tr.Peek()

		if r == '/' && lx.peekByteAt(1) == '>' {
			lx.tr.Advance()
			lx.tr.Advance()
			*toks = append(*toks, Token{
				Kind: KindComponentOpen, Text: lx.source[start.Byte:lx.tr.Point().Byte],
				Name: name, HasName: true, NameLoc: nameLoc, Attrs: attrs, SelfClosing: true, Loc: lx.span(start),
			})
			return
		}
		if r == '>' {
			lx.tr.Advance()
			*toks = append(*toks, Token{
				Kind: KindComponentOpen, Text: lx.source[start.Byte:lx.tr.Point().Byte],
				Name: name, HasName: true, NameLoc: nameLoc, Attrs: attrs, Loc: lx.span(start),
			})
			if !lx.tr.AtEOF() && !lx.atNewline() {
				lx.lexContent(toks)
			}
			return
		}

		if attr, ok := lx.parseAttr(); ok {
			attrs = append(attrs, attr)
		} else {
			lx.tr.Advance()
		}
	}

	*toks = append(*toks, Token{
		Kind: KindComponentOpen, Text: lx.source[start.Byte:lx.tr.Point().Byte],
		Name: name, HasName: true, NameLoc: nameLoc, Attrs: attrs, Loc: lx.span(start),
	})
}

// lexComponentClose scans `</{Name}>`.
func (lx *Lexer) lexComponentClose(toks *[]Token) {
	start := lx.tr.Point()
	lx.tr.Advance() // <
	lx.tr.Advance() // /
	lx.tr.Advance() // {

	nameStart := lx.tr.Point()
	name := lx.consumeUntilBrace()
	nameLoc := position.NewSpan(nameStart, lx.tr.Point())
	lx.tr.Advance() // }

	for !lx.tr.AtEOF() && !lx.atNewline() {
		if r, _ := lx.tr.Peek(); r == '>' {
			lx.tr.Advance()
			break
		}
		lx.tr.Advance()
	}

	*toks = append(*toks, Token{
		Kind: KindComponentClose, Text: lx.source[start.Byte:lx.tr.Point().Byte],
		Name: name, HasName: true, NameLoc: nameLoc, Loc: lx.span(start),
	})
}

// lexSlotTag scans `<{...}>`, `<{...name}>` and their closing forms.
func (lx *Lexer) lexSlotTag(toks *[]Token, closing bool) {
	start := lx.tr.Point()
	lx.tr.Advance() // <
	if closing {
		lx.tr.Advance() // /
	}
	lx.tr.Advance() // {
	lx.tr.Advance() // .
	lx.tr.Advance() // .
	lx.tr.Advance() // .

	nameStart := lx.tr.Point()
	name := strings.TrimSpace(lx.consumeUntilBrace())
	nameLoc := position.NewSpan(nameStart, lx.tr.Point())
	lx.tr.Advance() // }

	for !lx.tr.AtEOF() && !lx.atNewline() {
		if r, _ := lx.tr.Peek(); r == '>' {
			lx.tr.Advance()
			break
		}
		lx.tr.Advance()
	}

	kind := KindSlotOpen
	if closing {
		kind = KindSlotClose
	}
	*toks = append(*toks, Token{
		Kind: kind, Text: lx.source[start.Byte:lx.tr.Point().Byte],
		Name: name, HasName: name != "", NameLoc: nameLoc, Loc: lx.span(start),
	})
}

// parseAttr scans one attribute inside a tag. Shared between elements and
// components. Returns false when the current character cannot begin one.
func (lx *Lexer) parseAttr() (Attr, bool) {
	r, w := lx.tr.Peek()
	if w == 0 {
		return Attr{}, false
	}

	if r == '{' {
		start := lx.tr.Point()
		lx.tr.Advance() // {

		next, _ := lx.tr.Peek()
		switch {
		case next == '*' && lx.peekByteAt(1) == '*':
			// Spread: {**expr}
			lx.tr.Advance()
			lx.tr.Advance()
			exprStart := lx.tr.Point()
			expr := lx.consumeUntilBrace()
			exprLoc := position.NewSpan(exprStart, lx.tr.Point())
			lx.tr.Advance() // }
			return Attr{Name: "**", Value: AttrSpread, Expr: expr, ExprLoc: exprLoc, Loc: lx.span(start)}, true

		case next == '.':
			// Slot assignment: {...name}
			lx.tr.Advance()
			lx.tr.Advance()
			lx.tr.Advance()
			nameStart := lx.tr.Point()
			name := strings.TrimSpace(lx.consumeUntilBrace())
			nameLoc := position.NewSpan(nameStart, lx.tr.Point())
			lx.tr.Advance() // }
			return Attr{Name: "..." + name, Value: AttrSlotTarget, Str: name, ExprLoc: nameLoc, Loc: lx.span(start)}, true

		default:
			// Shorthand: {name}
			exprStart := lx.tr.Point()
			expr := lx.consumeUntilBrace()
			exprLoc := position.NewSpan(exprStart, lx.tr.Point())
			lx.tr.Advance() // }
			return Attr{Name: expr, Value: AttrShorthand, Expr: expr, ExprLoc: exprLoc, Loc: lx.span(start)}, true
		}
	}

	if unicode.IsLetter(r) || r == '_' || r == '-' || r == '@' || r == ':' {
		start := lx.tr.Point()
		name := lx.consumeWhile(func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '@' || r == ':'
		})

		if eq, _ := lx.tr.Peek(); eq == '=' {
			lx.tr.Advance()

			val, _ := lx.tr.Peek()
			switch val {
			case '{':
				exprStart := lx.tr.Point()
				lx.tr.Advance()
				expr := lx.consumeUntilBrace()
				lx.tr.Advance() // }
				exprLoc := position.NewSpan(exprStart, lx.tr.Point())
				return Attr{Name: name, Value: AttrExpr, Expr: expr, ExprLoc: exprLoc, Loc: lx.span(start)}, true
			case '"':
				lx.tr.Advance()
				str := lx.consumeUntilQuote('"')
				lx.tr.Advance()
				return Attr{Name: name, Value: AttrString, Str: str, Loc: lx.span(start)}, true
			case '\'':
				lx.tr.Advance()
				str := lx.consumeUntilQuote('\'')
				lx.tr.Advance()
				return Attr{Name: name, Value: AttrString, Str: str, Loc: lx.span(start)}, true
			default:
				return Attr{Name: name, Value: AttrBool, Loc: lx.span(start)}, true
			}
		}

		return Attr{Name: name, Value: AttrBool, Loc: lx.span(start)}, true
	}

	return Attr{}, false
}

// isElementOpenAhead reports whether the cursor sits on `<letter`.
func (lx *Lexer) isElementOpenAhead() bool {
	b := lx.peekByteAt(1)
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isElementCloseAhead reports whether the cursor sits on `</letter`.
func (lx *Lexer) isElementCloseAhead() bool {
	if lx.peekByteAt(1) != '/' {
		return false
	}
	b := lx.peekByteAt(2)
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// === low-level cursor helpers ===

func (lx *Lexer) span(start position.Point) position.Span {
	return position.NewSpan(start, lx.tr.Point())
}

func (lx *Lexer) atNewline() bool {
	b := lx.peekByteAt(0)
	return b == '\n' || b == '\r'
}

// peekByteAt returns the byte at the given offset from the cursor, or 0 at
// end of input. Only used for ASCII structure characters.
func (lx *Lexer) peekByteAt(off int) byte {
	i := lx.tr.Point().Byte + off
	if i >= len(lx.source) {
		return 0
	}
	return lx.source[i]
}

func (lx *Lexer) peekLine() string {
	start := lx.tr.Point().Byte
	end := start
	for end < len(lx.source) && lx.source[end] != '\n' && lx.source[end] != '\r' {
		end++
	}
	return lx.source[start:end]
}

func (lx *Lexer) skipIndent() {
	for !lx.tr.AtEOF() {
		if r, _ := lx.tr.Peek(); r == ' ' || r == '\t' {
			lx.tr.Advance()
			continue
		}
		break
	}
}

func (lx *Lexer) skipInlineWS() {
	for !lx.tr.AtEOF() && !lx.atNewline() {
		if r, _ := lx.tr.Peek(); r == ' ' || r == '\t' {
			lx.tr.Advance()
			continue
		}
		break
	}
}

func (lx *Lexer) consumeToEOL() string {
	start := lx.tr.Point().Byte
	lx.skipToEOL()
	return lx.source[start:lx.tr.Point().Byte]
}

func (lx *Lexer) skipToEOL() {
	for !lx.tr.AtEOF() && !lx.atNewline() {
		lx.tr.Advance()
	}
}

// eatNewline consumes a line terminator without emitting a token.
func (lx *Lexer) eatNewline() {
	if r, _ := lx.tr.Peek(); r == '\r' {
		lx.tr.Advance()
	}
	if r, _ := lx.tr.Peek(); r == '\n' {
		lx.tr.Advance()
	}
}

// consumeNewline consumes a line terminator and emits a newline token.
func (lx *Lexer) consumeNewline(toks *[]Token) {
	if !lx.atNewline() {
		return
	}
	start := lx.tr.Point()
	lx.eatNewline()
	*toks = append(*toks, Token{Kind: KindNewline, Text: lx.source[start.Byte:lx.tr.Point().Byte], Loc: lx.span(start)})
}

// consumeUntilBrace consumes up to an unnested closing brace, leaving the
// cursor on the brace itself. Nested braces are passed through.
func (lx *Lexer) consumeUntilBrace() string {
	start := lx.tr.Point().Byte
	depth := 0
	for !lx.tr.AtEOF() {
		r, _ := lx.tr.Peek()
		if r == '{' {
			depth++
		}
		if r == '}' {
			if depth == 0 {
				break
			}
			depth--
		}
		lx.tr.Advance()
	}
	return lx.source[start:lx.tr.Point().Byte]
}

func (lx *Lexer) consumeUntilQuote(quote rune) string {
	start := lx.tr.Point().Byte
	for !lx.tr.AtEOF() {
		if r, _ := lx.tr.Peek(); r == quote {
			break
		}
		lx.tr.Advance()
	}
	return lx.source[start:lx.tr.Point().Byte]
}

func (lx *Lexer) consumeWhile(pred func(rune) bool) string {
	start := lx.tr.Point().Byte
	for !lx.tr.AtEOF() && !lx.atNewline() {
		r, _ := lx.tr.Peek()
		if !pred(r) {
			break
		}
		lx.tr.Advance()
	}
	return lx.source[start:lx.tr.Point().Byte]
}
