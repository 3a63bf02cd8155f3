// Package parser builds the template tree from the token stream. Parsing is
// strict: the first violation aborts the compile with a single diagnostic,
// and a successful parse yields a tree whose markup nesting has already
// been validated.
package parser

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyper-lang/hyperc/pkg/ast"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
	"github.com/hyper-lang/hyperc/pkg/lexer"
	"github.com/hyper-lang/hyperc/pkg/position"
)

type openElement struct {
	tag string
	loc position.Span
}

type parser struct {
	toks   []lexer.Token
	pos    int
	source string
	idx    *position.Index

	// inDecls is true while parsing above the --- separator. Files without
	// a separator are all body.
	inDecls      bool
	hasSeparator bool

	// depth counts enclosing blocks and elements. Zero means top level.
	depth int

	elementStack []openElement
}

// Parse lexes and parses one source text. The two zones of the tree are
// split at the first separator line.
func Parse(ctx context.Context, source string) (*ast.Tree, *diagnostic.Error) {
	toks := lexer.Lex(source)

	p := &parser{
		toks:   toks,
		source: source,
		idx:    position.NewIndex(source),
	}
	for _, t := range toks {
		if t.Kind == lexer.KindSeparator {
			p.hasSeparator = true
			break
		}
	}
	p.inDecls = p.hasSeparator

	tree := &ast.Tree{Source: source}
	lastContent := false

	for !p.atEnd() {
		t := p.cur()
		switch t.Kind {
		case lexer.KindSeparator:
			p.inDecls = false
			p.pos++
			lastContent = false
			continue

		case lexer.KindNewline:
			p.pos++
			if !p.inDecls && lastContent {
				tree.Body = append(tree.Body, &ast.Text{Content: "\n", Loc: t.Loc})
			}
			continue

		case lexer.KindComment:
			p.pos++
			continue
		}

		node, err := p.parseNode()
		if err != nil {
			zerolog.Ctx(ctx).Debug().
				Str("kind", err.Kind.String()).
				Int("line", err.Span.Start.Line+1).
				Msg("parse failed")
			return nil, err
		}
		if node == nil {
			continue
		}

		if p.inDecls {
			if derr := p.checkDeclAllowed(node); derr != nil {
				return nil, derr
			}
			tree.Decls = append(tree.Decls, node)
			lastContent = false
		} else {
			tree.Body = append(tree.Body, node)
			lastContent = isContent(node)
		}
	}

	if err := checkReturnYieldMix(tree.Body, position.Span{}, false); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Int("decls", len(tree.Decls)).
		Int("body", len(tree.Body)).
		Msg("parsed template")
	return tree, nil
}

// parseNode dispatches on the current token and returns at most one node.
// Structural tokens handled by the callers (newlines, comments, separator)
// never reach this point.
func (p *parser) parseNode() (ast.Node, *diagnostic.Error) {
	t := p.cur()

	switch t.Kind {
	case lexer.KindText:
		p.pos++
		return &ast.Text{Content: t.Text, Loc: t.Loc}, nil

	case lexer.KindEscapedBrace:
		p.pos++
		return &ast.Text{Content: string(t.Brace), Loc: t.Loc}, nil

	case lexer.KindExpression:
		return p.parseExpression()

	case lexer.KindElementOpen:
		return p.parseElement()

	case lexer.KindComponentOpen:
		return p.parseComponent()

	case lexer.KindSlotOpen:
		return p.parseSlot()

	case lexer.KindControlStart:
		return p.parseControl()

	case lexer.KindFragmentStart:
		return p.parseFragment()

	case lexer.KindStatement:
		return p.parseStatement()

	case lexer.KindDecorator:
		p.pos++
		return &ast.Decorator{Code: strings.TrimSpace(t.Text), Loc: t.Loc}, nil

	case lexer.KindElementClose:
		return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
			"</%s> has nothing to close.", t.Tag)

	case lexer.KindComponentClose:
		return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
			"</{%s}> has nothing to close.", t.Name)

	case lexer.KindSlotClose:
		return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
			"This slot closing tag has nothing to close.")

	case lexer.KindBlockEnd:
		return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
			"'end' closes nothing here.")

	case lexer.KindControlContinuation:
		return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
			"'%s' has no matching block.", t.Keyword)

	case lexer.KindBad:
		return nil, diagnostic.New(diagnostic.UnexpectedToken, t.Loc,
			"This line contains bytes that are not valid UTF-8.")

	default:
		p.pos++
		return nil, nil
	}
}

func (p *parser) parseExpression() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	if t.Unterminated {
		return nil, diagnostic.New(diagnostic.UnclosedExpression, t.Loc,
			"This expression is never closed.").
			WithHelp("Add a closing '}'.")
	}
	p.pos++

	// The lexer rewrites children placeholders to their parameter names.
	code := strings.TrimSpace(t.Code)
	if code == "children" || strings.HasPrefix(code, "children_") {
		name := strings.TrimPrefix(code, "children")
		name = strings.TrimPrefix(name, "_")
		return &ast.Slot{Name: name, HasName: name != "", Loc: t.Loc}, nil
	}

	return &ast.Expression{Expr: t.Code, Escape: true, Loc: t.Loc}, nil
}

func (p *parser) parseElement() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	attrs := convertAttrs(t.Attrs)

	if err := p.checkNesting(t.Tag, t.Loc); err != nil {
		return nil, err
	}
	if !t.SelfClosing && ast.IsVoidElement(t.Tag) {
		return nil, voidElementError(t.Tag, t.Loc)
	}
	if err := checkDuplicateAttrs(attrs); err != nil {
		return nil, err
	}

	p.pos++

	el := &ast.Element{
		Tag:         t.Tag,
		TagLoc:      t.TagLoc,
		Attributes:  attrs,
		SelfClosing: t.SelfClosing,
		Loc:         t.Loc,
	}
	if t.SelfClosing {
		return el, nil
	}

	children, err := p.parseElementChildren(t.Tag, t.Loc)
	if err != nil {
		return nil, err
	}
	el.Children = children
	return el, nil
}

func (p *parser) parseElementChildren(tag string, openLoc position.Span) ([]ast.Node, *diagnostic.Error) {
	p.elementStack = append(p.elementStack, openElement{tag: tag, loc: openLoc})
	p.depth++
	defer func() {
		p.elementStack = p.elementStack[:len(p.elementStack)-1]
		p.depth--
	}()

	var nodes []ast.Node
	lastContent := true // the opening tag itself is content

	for !p.atEnd() {
		t := p.cur()
		switch t.Kind {
		case lexer.KindElementClose:
			if t.Tag != tag {
				return nil, diagnostic.New(diagnostic.MismatchedTag, t.Loc,
					"</%s> doesn't close <%s>.", t.Tag, tag).
					WithRelated(openLoc).
					WithHelp("Close <%s> first with </%s>.", tag, tag)
			}
			p.pos++
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

	return nil, diagnostic.New(diagnostic.UnclosedElement, p.eofSpan(),
		"<%s> is never closed.", tag).
		WithRelated(openLoc).
		WithHelp("Close with </%s> or <%s />", tag, tag)
}

func (p *parser) parseComponent() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	attrs := convertAttrs(t.Attrs)

	if err := checkDuplicateAttrs(attrs); err != nil {
		return nil, err
	}

	p.pos++

	comp := &ast.Component{
		Name:        t.Name,
		NameLoc:     t.NameLoc,
		Attributes:  attrs,
		SelfClosing: t.SelfClosing,
		Loc:         t.Loc,
	}
	if t.SelfClosing {
		return comp, nil
	}

	p.depth++
	defer func() { p.depth-- }()

	lastContent := true
	for !p.atEnd() {
		tok := p.cur()
		switch tok.Kind {
		case lexer.KindComponentClose:
			if tok.Name != t.Name {
				return nil, diagnostic.New(diagnostic.MismatchedTag, tok.Loc,
					"</{%s}> doesn't close <{%s}>.", tok.Name, t.Name).
					WithRelated(t.Loc).
					WithHelp("Close <{%s}> first with </{%s}>.", t.Name, t.Name)
			}
			p.pos++
			return comp, nil

		case lexer.KindNewline:
			p.pos++
			if lastContent {
				comp.Children = append(comp.Children, &ast.Text{Content: "\n", Loc: tok.Loc})
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
			comp.Children = append(comp.Children, node)
			lastContent = isContent(node)
		}
	}

	return nil, diagnostic.New(diagnostic.UnclosedElement, p.eofSpan(),
		"<{%s}> is never closed.", t.Name).
		WithRelated(t.Loc).
		WithHelp("Close with </{%s}> or <{%s} />", t.Name, t.Name)
}

// parseSlot handles slot definition tags. A named slot carries a fallback
// body up to its closing tag; the bare form is a plain placeholder.
func (p *parser) parseSlot() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	p.pos++

	slot := &ast.Slot{Name: t.Name, HasName: t.HasName, Loc: t.Loc}
	if !t.HasName {
		return slot, nil
	}

	p.depth++
	defer func() { p.depth-- }()

	lastContent := true
	for !p.atEnd() {
		tok := p.cur()
		switch tok.Kind {
		case lexer.KindSlotClose:
			if tok.Name != t.Name {
				return nil, diagnostic.New(diagnostic.MismatchedTag, tok.Loc,
					"</{...%s}> doesn't close <{...%s}>.", tok.Name, t.Name).
					WithRelated(t.Loc)
			}
			p.pos++
			return slot, nil

		case lexer.KindNewline:
			p.pos++
			if lastContent {
				slot.Fallback = append(slot.Fallback, &ast.Text{Content: "\n", Loc: tok.Loc})
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
			slot.Fallback = append(slot.Fallback, node)
			lastContent = isContent(node)
		}
	}

	return nil, diagnostic.New(diagnostic.UnclosedElement, p.eofSpan(),
		"<{...%s}> is never closed.", t.Name).
		WithRelated(t.Loc).
		WithHelp("Close with </{...%s}>", t.Name)
}

func (p *parser) parseFragment() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	p.pos++

	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	endLoc, eerr := p.expectEnd("fragment", t.Loc)
	if eerr != nil {
		return nil, eerr
	}

	return &ast.Fragment{Name: t.Name, Body: body, Loc: t.Loc, EndLoc: endLoc}, nil
}

func (p *parser) parseStatement() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	code := t.Code

	if p.inDecls && p.depth == 0 {
		trimmed := strings.TrimSpace(code)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
			p.pos++
			return &ast.Import{Code: trimmed, Loc: t.Loc}, nil
		}
		if isParameterShaped(code) {
			return p.parseParameter()
		}
		p.pos++
		return &ast.Statement{Code: code, Loc: t.Loc}, nil
	}

	// A typed parameter line in a file without a separator is the one case
	// where the zone split cannot be inferred.
	if !p.hasSeparator && p.depth == 0 && isParameterShaped(code) && !isAnnotatedAssignment(code) {
		return nil, diagnostic.New(diagnostic.MissingRequiredSeparator, t.Loc,
			"'%s' declares a parameter, but the file has no --- separator.", strings.TrimSpace(code)).
			WithHelp("Add a line containing only --- after the parameter declarations.")
	}

	p.pos++
	return &ast.Statement{Code: code, Loc: t.Loc}, nil
}

func (p *parser) parseParameter() (ast.Node, *diagnostic.Error) {
	t := p.cur()
	p.pos++

	name, rest, ok := strings.Cut(t.Code, ":")
	if !ok {
		return &ast.Statement{Code: t.Code, Loc: t.Loc}, nil
	}

	param := &ast.Parameter{Name: strings.TrimSpace(name), Loc: t.Loc}
	if typ, def, hasDefault := strings.Cut(rest, "="); hasDefault {
		param.Type = strings.TrimSpace(typ)
		param.Default = strings.TrimSpace(def)
		param.HasDefault = true
	} else {
		param.Type = strings.TrimSpace(rest)
	}
	return param, nil
}

// checkDeclAllowed enforces what may appear above the separator.
func (p *parser) checkDeclAllowed(node ast.Node) *diagnostic.Error {
	switch n := node.(type) {
	case *ast.Import, *ast.Statement, *ast.Parameter, *ast.Definition, *ast.Decorator:
		return nil
	case *ast.If, *ast.For, *ast.While, *ast.Match, *ast.With, *ast.Try:
		return diagnostic.New(diagnostic.UnexpectedToken, node.Span(),
			"Control flow is not allowed before the --- separator.").
			WithHelp("Move this block into the body, below the --- separator.")
	case *ast.Text:
		if strings.TrimSpace(n.Content) == "" {
			return nil
		}
		return declMarkupError(node)
	default:
		return declMarkupError(node)
	}
}

func declMarkupError(node ast.Node) *diagnostic.Error {
	return diagnostic.New(diagnostic.UnexpectedToken, node.Span(),
		"Markup is not allowed before the --- separator.").
		WithHelp("The zone above --- holds imports, parameters and definitions.\nMove this content into the body, below the --- separator.")
}

// checkNesting rejects element combinations browsers would silently
// rewrite: block elements inside <p>, and nested interactive elements.
func (p *parser) checkNesting(tag string, loc position.Span) *diagnostic.Error {
	if len(p.elementStack) == 0 {
		return nil
	}
	parent := p.elementStack[len(p.elementStack)-1]

	if ast.IsAutoCloseElement(parent.tag) && ast.IsBlockElement(tag) {
		return diagnostic.New(diagnostic.InvalidNesting, loc,
			"<%s> cannot appear inside <%s>.", tag, parent.tag).
			WithRelated(parent.loc).
			WithHelp("Browsers silently close <%s> when they encounter <%s>, so this renders\nas <%s></%s><%s>...</%s>, which is probably not what you want.",
				parent.tag, tag, parent.tag, parent.tag, tag, tag)
	}

	if ast.IsInteractiveElement(parent.tag) && ast.IsInteractiveElement(tag) {
		return diagnostic.New(diagnostic.InvalidNesting, loc,
			"<%s> cannot appear inside <%s>.", tag, parent.tag).
			WithRelated(parent.loc).
			WithHelp("Nesting clickable elements is invalid HTML and causes unpredictable behavior across browsers.")
	}

	return nil
}

func voidElementError(tag string, loc position.Span) *diagnostic.Error {
	examples := make([]string, 0, 3)
	for _, e := range []string{"br", "img", "input", "hr", "meta"} {
		if e != tag {
			examples = append(examples, "<"+e+">")
		}
		if len(examples) == 3 {
			break
		}
	}
	return diagnostic.New(diagnostic.VoidElementMisuse, loc,
		"<%s> cannot have content or a closing tag.", tag).
		WithHelp("<%s> is a void element (like %s). Write it as <%s /> instead.",
			tag, strings.Join(examples, ", "), tag)
}

func checkDuplicateAttrs(attrs []ast.Attribute) *diagnostic.Error {
	seen := make(map[string]position.Span)
	for _, attr := range attrs {
		name, ok := attr.NamedKey()
		if !ok {
			continue
		}
		if first, dup := seen[name]; dup {
			return diagnostic.New(diagnostic.DuplicateAttribute, attr.Loc,
				"%q is set twice on this element.", name).
				WithRelated(first).
				WithRelatedLabel("first use")
		}
		seen[name] = attr.Loc
	}
	return nil
}

func convertAttrs(attrs []lexer.Attr) []ast.Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]ast.Attribute, len(attrs))
	for i, a := range attrs {
		conv := ast.Attribute{Name: a.Name, Loc: a.Loc, ExprLoc: a.ExprLoc}
		switch a.Value {
		case lexer.AttrString:
			conv.Kind = ast.AttrStatic
			conv.Value = a.Str
		case lexer.AttrExpr:
			conv.Kind = ast.AttrDynamic
			conv.Expr = a.Expr
		case lexer.AttrBool:
			conv.Kind = ast.AttrBoolean
		case lexer.AttrShorthand:
			conv.Kind = ast.AttrShorthand
			conv.Expr = a.Expr
		case lexer.AttrSpread:
			conv.Kind = ast.AttrSpread
			conv.Expr = a.Expr
		case lexer.AttrSlotTarget:
			conv.Kind = ast.AttrSlotTarget
			conv.Value = a.Str
		}
		out[i] = conv
	}
	return out
}

// isContent reports whether a node belongs to a content run, which decides
// whether the following newline is preserved as text.
func isContent(node ast.Node) bool {
	switch node.(type) {
	case *ast.Text, *ast.Expression, *ast.Element, *ast.Component, *ast.Slot:
		return true
	}
	return false
}

func (p *parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.toks) || p.toks[p.pos].Kind == lexer.KindEOF
}

// eofSpan anchors an end-of-input error at the last meaningful token, not
// at the cursor after the trailing newline, so the reported line is the
// one the reader can see.
func (p *parser) eofSpan() position.Span {
	for i := min(p.pos, len(p.toks)-1); i >= 0; i-- {
		switch p.toks[i].Kind {
		case lexer.KindNewline, lexer.KindEOF:
			continue
		}
		return p.toks[i].Loc
	}
	return position.PointSpan(p.idx.EOF())
}
