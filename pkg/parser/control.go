package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/hyper-lang/hyperc/pkg/ast"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
	"github.com/hyper-lang/hyperc/pkg/lexer"
	"github.com/hyper-lang/hyperc/pkg/position"
)

func (p *parser) parseControl() (ast.Node, *diagnostic.Error) {
	t := p.cur()

	if p.inDecls && p.depth == 0 {
		switch t.Keyword {
		case "def", "async def", "class":
		default:
			return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
				"Control flow is not allowed before the --- separator.").
				WithHelp("Move this block into the body, below the --- separator.")
		}
	}

	switch t.Keyword {
	case "if":
		return p.parseIf()
	case "for", "async for":
		return p.parseFor(t.Keyword == "async for")
	case "while":
		return p.parseWhile()
	case "match":
		return p.parseMatch()
	case "with", "async with":
		return p.parseWith(t.Keyword == "async with")
	case "try":
		return p.parseTry()
	case "def", "async def":
		return p.parseDefinition(ast.DefFunction, t.Keyword)
	case "class":
		return p.parseDefinition(ast.DefClass, t.Keyword)
	default:
		return nil, diagnostic.New(diagnostic.InvalidControlFlowShape, t.Loc,
			"'%s' is not a recognized block keyword.", t.Keyword)
	}
}

func (p *parser) parseIf() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	cond, condLoc := stripColon(t.Rest, t.RestLoc)
	p.pos++

	node := &ast.If{Condition: cond, ConditionLoc: condLoc, Loc: t.Loc}

	then, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	node.Then = then

	for p.atContinuation() {
		c := p.cur()
		switch c.Keyword {
		case "elif":
			elifCond, elifLoc := stripColon(c.Rest, c.RestLoc)
			p.pos++
			body, berr := p.parseBlockBody()
			if berr != nil {
				return nil, berr
			}
			node.Elifs = append(node.Elifs, ast.ElifBranch{Condition: elifCond, ConditionLoc: elifLoc, Body: body})
		case "else":
			p.pos++
			body, berr := p.parseBlockBody()
			if berr != nil {
				return nil, berr
			}
			node.Else = body
			node.HasElse = true
		default:
			return p.finishBlock(node, "if", t.Loc, func(end position.Span) { node.EndLoc = end })
		}
		if node.HasElse {
			break
		}
	}

	return p.finishBlock(node, "if", t.Loc, func(end position.Span) { node.EndLoc = end })
}

func (p *parser) parseFor(async bool) (ast.Node, *diagnostic.Error) {
	t := p.cur()
	rest, restLoc := stripColon(t.Rest, t.RestLoc)

	binding, iterable, ok := strings.Cut(rest, " in ")
	if !ok {
		keyword := "for"
		if async {
			keyword = "async for"
		}
		return nil, diagnostic.New(diagnostic.InvalidControlFlowShape, t.Loc,
			"This doesn't look like a valid %s loop.", keyword).
			WithHelp("Syntax: %s x in items:", keyword)
	}

	iterLoc := position.NewSpan(shiftPoint(restLoc.Start, binding+" in "), restLoc.End)

	p.pos++
	node := &ast.For{
		Binding:     strings.TrimSpace(binding),
		Iterable:    strings.TrimSpace(iterable),
		IterableLoc: iterLoc,
		Async:       async,
		Loc:         t.Loc,
	}

	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	node.Body = body

	keyword := "for"
	if async {
		keyword = "async for"
	}
	return p.finishBlock(node, keyword, t.Loc, func(end position.Span) { node.EndLoc = end })
}

func (p *parser) parseWhile() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	cond, condLoc := stripColon(t.Rest, t.RestLoc)
	p.pos++

	node := &ast.While{Condition: cond, ConditionLoc: condLoc, Loc: t.Loc}
	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	node.Body = body

	return p.finishBlock(node, "while", t.Loc, func(end position.Span) { node.EndLoc = end })
}

func (p *parser) parseMatch() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	expr, exprLoc := stripColon(t.Rest, t.RestLoc)
	p.pos++

	node := &ast.Match{Expr: expr, ExprLoc: exprLoc, Loc: t.Loc}

	p.skipStructural()
	for p.atContinuation() && p.cur().Keyword == "case" {
		c := p.cur()
		pattern, patternLoc := stripColon(c.Rest, c.RestLoc)
		p.pos++

		body, err := p.parseBlockBody()
		if err != nil {
			return nil, err
		}
		node.Cases = append(node.Cases, ast.Case{
			Pattern:    pattern,
			PatternLoc: patternLoc,
			Body:       body,
			Loc:        c.Loc,
		})
		p.skipStructural()
	}

	return p.finishBlock(node, "match", t.Loc, func(end position.Span) { node.EndLoc = end })
}

func (p *parser) parseWith(async bool) (ast.Node, *diagnostic.Error) {
	t := p.cur()
	items, itemsLoc := stripColon(t.Rest, t.RestLoc)
	p.pos++

	node := &ast.With{Items: items, ItemsLoc: itemsLoc, Async: async, Loc: t.Loc}
	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	node.Body = body

	keyword := "with"
	if async {
		keyword = "async with"
	}
	return p.finishBlock(node, keyword, t.Loc, func(end position.Span) { node.EndLoc = end })
}

func (p *parser) parseTry() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	p.pos++

	node := &ast.Try{Loc: t.Loc}
	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	node.Body = body

clauses:
	for p.atContinuation() {
		c := p.cur()
		switch c.Keyword {
		case "except":
			exc, excLoc := stripColon(c.Rest, c.RestLoc)
			p.pos++
			excBody, berr := p.parseBlockBody()
			if berr != nil {
				return nil, berr
			}
			node.Excepts = append(node.Excepts, ast.Except{
				Exception:    exc,
				HasException: exc != "",
				ExceptionLoc: excLoc,
				Body:         excBody,
				Loc:          c.Loc,
			})
		case "else":
			p.pos++
			elseBody, berr := p.parseBlockBody()
			if berr != nil {
				return nil, berr
			}
			node.Else = elseBody
			node.HasElse = true
		case "finally":
			p.pos++
			finallyBody, berr := p.parseBlockBody()
			if berr != nil {
				return nil, berr
			}
			node.Finally = finallyBody
			break clauses
		default:
			break clauses
		}
	}

	return p.finishBlock(node, "try", t.Loc, func(end position.Span) { node.EndLoc = end })
}

func (p *parser) parseDefinition(kind ast.DefinitionKind, keyword string) (ast.Node, *diagnostic.Error) {
	t := p.cur()
	rest := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t.Rest), ":"))
	signature := keyword + " " + rest + ":"

	name := rest
	if i := strings.IndexAny(name, "(:"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)

	p.pos++
	node := &ast.Definition{
		Kind:         kind,
		Signature:    signature,
		SignatureLoc: t.Loc,
		Name:         name,
		Async:        strings.HasPrefix(keyword, "async"),
		Loc:          t.Loc,
	}

	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	node.Body = body
	node.ContainsMarkup = containsMarkup(body)

	endKeyword := "def"
	if kind == ast.DefClass {
		endKeyword = "class"
	}
	endLoc, eerr := p.expectEnd(endKeyword, t.Loc)
	if eerr != nil {
		return nil, eerr
	}
	node.EndLoc = endLoc

	if node.ContainsMarkup && kind == ast.DefFunction {
		if ret := findValueReturn(body); ret != nil {
			return nil, diagnostic.New(diagnostic.MixedReturnAndYield, ret.Loc,
				"This function mixes 'return' with a value and markup output.").
				WithRelated(t.Loc).
				WithRelatedLabel("defined here").
				WithHelp("A markup-producing function is a generator. Use a bare 'return' to exit early.")
		}
	}

	return node, nil
}

// parseBlockBody parses nodes until a block terminator or continuation
// keyword. The terminator itself is left for the caller.
func (p *parser) parseBlockBody() ([]ast.Node, *diagnostic.Error) {
	p.depth++
	defer func() { p.depth-- }()

	var nodes []ast.Node
	lastContent := false

	for !p.atEnd() {
		t := p.cur()
		switch t.Kind {
		case lexer.KindBlockEnd, lexer.KindControlContinuation:
			return nodes, nil

		case lexer.KindNewline:
			p.pos++
			if lastContent {
				nodes = append(nodes, &ast.Text{Content: "\n", Loc: t.Loc})
			}
			continue

		case lexer.KindComment:
			p.pos++
			continue
		}

		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
			lastContent = isContent(node)
		}
	}

	return nodes, nil
}

// finishBlock consumes the required end token and stores its span.
func (p *parser) finishBlock(node ast.Node, keyword string, openLoc position.Span, setEnd func(position.Span)) (ast.Node, *diagnostic.Error) {
	endLoc, err := p.expectEnd(keyword, openLoc)
	if err != nil {
		return nil, err
	}
	setEnd(endLoc)
	return node, nil
}

func (p *parser) expectEnd(keyword string, openLoc position.Span) (position.Span, *diagnostic.Error) {
	if !p.atEnd() && p.cur().Kind == lexer.KindBlockEnd {
		loc := p.cur().Loc
		p.pos++
		return loc, nil
	}
	return position.Span{}, diagnostic.New(diagnostic.UnexpectedEOF, p.eofSpan(),
		"This '%s' block is never closed.", keyword).
		WithRelated(openLoc).
		WithHelp("Close with 'end'")
}

func (p *parser) atContinuation() bool {
	return !p.atEnd() && p.cur().Kind == lexer.KindControlContinuation
}

func (p *parser) skipStructural() {
	for !p.atEnd() {
		switch p.cur().Kind {
		case lexer.KindNewline, lexer.KindComment:
			p.pos++
		default:
			return
		}
	}
}

// checkReturnYieldMix rejects a markup-producing body that also returns a
// value. The body zone compiles to a generator, where a value return is a
// silent data loss.
func checkReturnYieldMix(body []ast.Node, defLoc position.Span, related bool) *diagnostic.Error {
	if !containsMarkup(body) {
		return nil
	}
	ret := findValueReturn(body)
	if ret == nil {
		return nil
	}
	err := diagnostic.New(diagnostic.MixedReturnAndYield, ret.Loc,
		"This template mixes 'return' with a value and markup output.").
		WithHelp("The body compiles to a generator. Use a bare 'return' to exit early.")
	if related {
		err = err.WithRelated(defLoc).WithRelatedLabel("defined here")
	}
	return err
}

func containsMarkup(nodes []ast.Node) bool {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Element, *ast.Component, *ast.Expression, *ast.Slot, *ast.Fragment:
			return true
		case *ast.Text:
			if strings.TrimSpace(v.Content) != "" {
				return true
			}
		case *ast.If:
			if containsMarkup(v.Then) || containsMarkup(v.Else) {
				return true
			}
			for _, e := range v.Elifs {
				if containsMarkup(e.Body) {
					return true
				}
			}
		case *ast.For:
			if containsMarkup(v.Body) {
				return true
			}
		case *ast.While:
			if containsMarkup(v.Body) {
				return true
			}
		case *ast.Match:
			for _, c := range v.Cases {
				if containsMarkup(c.Body) {
					return true
				}
			}
		case *ast.With:
			if containsMarkup(v.Body) {
				return true
			}
		case *ast.Try:
			if containsMarkup(v.Body) || containsMarkup(v.Else) || containsMarkup(v.Finally) {
				return true
			}
			for _, e := range v.Excepts {
				if containsMarkup(e.Body) {
					return true
				}
			}
		}
	}
	return false
}

// findValueReturn locates a `return expr` statement, without descending
// into nested definitions, which have their own generator-ness.
func findValueReturn(nodes []ast.Node) *ast.Statement {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Statement:
			trimmed := strings.TrimSpace(v.Code)
			if rest, ok := strings.CutPrefix(trimmed, "return "); ok && strings.TrimSpace(rest) != "" {
				return v
			}
		case *ast.If:
			if r := findValueReturn(v.Then); r != nil {
				return r
			}
			for _, e := range v.Elifs {
				if r := findValueReturn(e.Body); r != nil {
					return r
				}
			}
			if r := findValueReturn(v.Else); r != nil {
				return r
			}
		case *ast.For:
			if r := findValueReturn(v.Body); r != nil {
				return r
			}
		case *ast.While:
			if r := findValueReturn(v.Body); r != nil {
				return r
			}
		case *ast.Match:
			for _, c := range v.Cases {
				if r := findValueReturn(c.Body); r != nil {
					return r
				}
			}
		case *ast.With:
			if r := findValueReturn(v.Body); r != nil {
				return r
			}
		case *ast.Try:
			if r := findValueReturn(v.Body); r != nil {
				return r
			}
			for _, e := range v.Excepts {
				if r := findValueReturn(e.Body); r != nil {
					return r
				}
			}
			if r := findValueReturn(v.Else); r != nil {
				return r
			}
			if r := findValueReturn(v.Finally); r != nil {
				return r
			}
		}
	}
	return nil
}

// isParameterShaped matches `name: type`, `name: type = default`, `*args:
// tuple` and `**kwargs: dict` lines.
func isParameterShaped(code string) bool {
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, "*") {
		return strings.Contains(trimmed, ":")
	}
	if !strings.Contains(trimmed, ":") {
		return false
	}
	for _, kw := range []string{"if ", "for ", "while ", "match ", "with "} {
		if strings.HasPrefix(trimmed, kw) {
			return false
		}
	}
	colon := strings.Index(trimmed, ":")
	if eq := strings.Index(trimmed, "="); eq >= 0 {
		return colon < eq
	}
	return true
}

// isAnnotatedAssignment distinguishes `count: int = 0`, a complete host
// statement, from a bare parameter declaration like `title: str`.
func isAnnotatedAssignment(code string) bool {
	trimmed := strings.TrimSpace(code)
	colon := strings.Index(trimmed, ":")
	eq := strings.Index(trimmed, "=")
	return colon >= 0 && eq > colon
}

// stripColon removes a trailing colon from a control rest and narrows the
// span to the remaining text.
func stripColon(rest string, loc position.Span) (string, position.Span) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ":"))
	if trimmed == rest {
		return rest, loc
	}
	end := position.Point{
		Byte:  loc.Start.Byte + len(trimmed),
		Line:  loc.Start.Line,
		Col:   loc.Start.Col + utf8.RuneCountInString(trimmed),
		UTF16: loc.Start.UTF16 + position.UTF16Len(trimmed),
	}
	return trimmed, position.NewSpan(loc.Start, end)
}

// shiftPoint advances a point past a prefix string on the same line.
func shiftPoint(p position.Point, prefix string) position.Point {
	return position.Point{
		Byte:  p.Byte + len(prefix),
		Line:  p.Line,
		Col:   p.Col + utf8.RuneCountInString(prefix),
		UTF16: p.UTF16 + position.UTF16Len(prefix),
	}
}
