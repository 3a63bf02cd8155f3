package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyper-lang/hyperc/pkg/ast"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
)

func mustParse(t *testing.T, source string) *ast.Tree {
	t.Helper()
	tree, err := Parse(context.Background(), source)
	require.Nil(t, err, "unexpected parse error: %v", err)
	return tree
}

func mustFail(t *testing.T, source string) *diagnostic.Error {
	t.Helper()
	tree, err := Parse(context.Background(), source)
	require.NotNil(t, err)
	require.Nil(t, tree)
	return err
}

func TestParse_TwoZones(t *testing.T) {
	tree := mustParse(t, "title: str\ncount: int = 0\n---\n<h1>{title}</h1>")

	require.Len(t, tree.Decls, 2)

	p0, ok := tree.Decls[0].(*ast.Parameter)
	require.True(t, ok)
	assert.Equal(t, "title", p0.Name)
	assert.Equal(t, "str", p0.Type)
	assert.False(t, p0.HasDefault)

	p1 := tree.Decls[1].(*ast.Parameter)
	assert.Equal(t, "count", p1.Name)
	assert.Equal(t, "int", p1.Type)
	assert.Equal(t, "0", p1.Default)
	assert.True(t, p1.HasDefault)

	require.Len(t, tree.Body, 1)
	el, ok := tree.Body[0].(*ast.Element)
	require.True(t, ok)
	assert.Equal(t, "h1", el.Tag)
	require.Len(t, el.Children, 1)
	expr := el.Children[0].(*ast.Expression)
	assert.Equal(t, "title", expr.Expr)
	assert.True(t, expr.Escape)
}

func TestParse_ImportsInDecls(t *testing.T) {
	tree := mustParse(t, "from datetime import date\nimport math\n---\nok")

	require.Len(t, tree.Decls, 2)
	imp := tree.Decls[0].(*ast.Import)
	assert.Equal(t, "from datetime import date", imp.Code)
	assert.IsType(t, &ast.Import{}, tree.Decls[1])
}

func TestParse_MissingRequiredSeparator(t *testing.T) {
	err := mustFail(t, "title: str\n<h1>{title}</h1>")
	assert.Equal(t, diagnostic.MissingRequiredSeparator, err.Kind)
	assert.Contains(t, err.Message, "title: str")
	assert.Contains(t, err.Help, "---")
}

func TestParse_AnnotatedAssignmentIsNotAParameter(t *testing.T) {
	// A full annotated assignment is an ordinary statement, so no
	// separator is required.
	tree := mustParse(t, "count: int = 0\n<p>{count}</p>")
	require.NotEmpty(t, tree.Body)
	assert.IsType(t, &ast.Statement{}, tree.Body[0])
}

func TestParse_DeclZoneRejectsMarkup(t *testing.T) {
	err := mustFail(t, "<h1>Hi</h1>\n---\nbody")
	assert.Equal(t, diagnostic.UnexpectedToken, err.Kind)
	assert.Contains(t, err.Message, "Markup is not allowed")
	assert.Contains(t, err.Help, "below the --- separator")
}

func TestParse_DeclZoneRejectsControlFlow(t *testing.T) {
	err := mustFail(t, "if debug:\nend\n---\nbody")
	assert.Equal(t, diagnostic.UnexpectedToken, err.Kind)
	assert.Contains(t, err.Message, "Control flow is not allowed")
}

func TestParse_DeclZoneAllowsDefinitions(t *testing.T) {
	tree := mustParse(t, "def helper(x):\nreturn x * 2\nend\n---\n<p>{helper(2)}</p>")

	require.Len(t, tree.Decls, 1)
	def := tree.Decls[0].(*ast.Definition)
	assert.Equal(t, ast.DefFunction, def.Kind)
	assert.Equal(t, "helper", def.Name)
	assert.Equal(t, "def helper(x):", def.Signature)
	assert.False(t, def.ContainsMarkup)
	assert.False(t, def.Async)
}

func TestParse_UnclosedElement(t *testing.T) {
	err := mustFail(t, "<div>")

	assert.Equal(t, diagnostic.UnclosedElement, err.Kind)
	assert.Equal(t, "<div> is never closed.", err.Message)
	require.True(t, err.HasRelated)
	assert.Equal(t, 0, err.RelatedSpan.Start.Line)
	assert.Equal(t, "Close with </div> or <div />", err.Help)
}

func TestParse_UnclosedElementSpanIgnoresTrailingNewline(t *testing.T) {
	err := mustFail(t, "<div>\n")

	assert.Equal(t, diagnostic.UnclosedElement, err.Kind)
	// The error points at the open tag's line, not past the newline.
	assert.Equal(t, 0, err.Span.Start.Line)
}

func TestParse_MismatchedTag(t *testing.T) {
	err := mustFail(t, "<div><span></div>")

	assert.Equal(t, diagnostic.MismatchedTag, err.Kind)
	assert.Equal(t, "</div> doesn't close <span>.", err.Message)
	require.True(t, err.HasRelated)
}

func TestParse_StrayCloseTag(t *testing.T) {
	err := mustFail(t, "</div>")
	assert.Equal(t, diagnostic.UnexpectedToken, err.Kind)
}

func TestParse_VoidElementMisuse(t *testing.T) {
	err := mustFail(t, "<br>")

	assert.Equal(t, diagnostic.VoidElementMisuse, err.Kind)
	assert.Equal(t, "<br> cannot have content or a closing tag.", err.Message)
	assert.Contains(t, err.Help, "Write it as <br /> instead.")
}

func TestParse_SelfClosingVoidElement(t *testing.T) {
	tree := mustParse(t, "<br />")
	el := tree.Body[0].(*ast.Element)
	assert.True(t, el.SelfClosing)
	assert.Empty(t, el.Children)
}

func TestParse_DuplicateAttribute(t *testing.T) {
	err := mustFail(t, `<a href="/x" href="/y">link</a>`)

	assert.Equal(t, diagnostic.DuplicateAttribute, err.Kind)
	assert.Equal(t, `"href" is set twice on this element.`, err.Message)
	require.True(t, err.HasRelated)
	assert.Equal(t, "first use", err.RelatedLabel)
	assert.True(t, err.RelatedSpan.Start.Before(err.Span.Start))
}

func TestParse_InvalidNesting(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"block inside p", "<p><div>x</div></p>"},
		{"nested interactive", "<a href=\"/\"><button>x</button></a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mustFail(t, tt.source)
			assert.Equal(t, diagnostic.InvalidNesting, err.Kind)
			assert.True(t, err.HasRelated)
		})
	}
}

func TestParse_UnclosedExpression(t *testing.T) {
	err := mustFail(t, "<p>{1 +")
	assert.Equal(t, diagnostic.UnclosedExpression, err.Kind)
	assert.Equal(t, "Add a closing '}'.", err.Help)
}

func TestParse_IfElifElse(t *testing.T) {
	tree := mustParse(t, "if a:\n<p>one</p>\nelif b:\n<p>two</p>\nelse:\n<p>three</p>\nend")

	require.Len(t, tree.Body, 1)
	n := tree.Body[0].(*ast.If)
	assert.Equal(t, "a", n.Condition)
	require.Len(t, n.Elifs, 1)
	assert.Equal(t, "b", n.Elifs[0].Condition)
	assert.True(t, n.HasElse)
	assert.NotEmpty(t, n.Then)
	assert.NotEmpty(t, n.Else)
	assert.False(t, n.EndLoc.IsZero())
}

func TestParse_UnclosedBlock(t *testing.T) {
	err := mustFail(t, "if a:\n<p>x</p>\n")

	assert.Equal(t, diagnostic.UnexpectedEOF, err.Kind)
	assert.Equal(t, "This 'if' block is never closed.", err.Message)
	require.True(t, err.HasRelated)
	assert.Equal(t, 0, err.RelatedSpan.Start.Line)
	assert.Equal(t, 1, err.Span.Start.Line)
	assert.Equal(t, "Close with 'end'", err.Help)
}

func TestParse_ForLoop(t *testing.T) {
	tree := mustParse(t, "for item in items:\n<li>{item}</li>\nend")

	n := tree.Body[0].(*ast.For)
	assert.Equal(t, "item", n.Binding)
	assert.Equal(t, "items", n.Iterable)
	assert.False(t, n.Async)
}

func TestParse_AsyncFor(t *testing.T) {
	tree := mustParse(t, "async for row in feed:\n<li>{row}</li>\nend")
	n := tree.Body[0].(*ast.For)
	assert.True(t, n.Async)
	assert.Equal(t, "row", n.Binding)
	assert.Equal(t, "feed", n.Iterable)
}

func TestParse_InvalidForShape(t *testing.T) {
	err := mustFail(t, "for item:\nend")
	assert.Equal(t, diagnostic.InvalidControlFlowShape, err.Kind)
	assert.Contains(t, err.Help, "Syntax: for x in items:")
}

func TestParse_MatchCase(t *testing.T) {
	tree := mustParse(t, "match status:\ncase \"ok\":\n<p>fine</p>\ncase _:\n<p>not fine</p>\nend")

	n := tree.Body[0].(*ast.Match)
	assert.Equal(t, "status", n.Expr)
	require.Len(t, n.Cases, 2)
	assert.Equal(t, `"ok"`, n.Cases[0].Pattern)
	assert.Equal(t, "_", n.Cases[1].Pattern)
}

func TestParse_TryExceptFinally(t *testing.T) {
	tree := mustParse(t, "try:\n<p>a</p>\nexcept ValueError as e:\n<p>b</p>\nelse:\n<p>c</p>\nfinally:\n<p>d</p>\nend")

	n := tree.Body[0].(*ast.Try)
	require.Len(t, n.Excepts, 1)
	assert.Equal(t, "ValueError as e", n.Excepts[0].Exception)
	assert.True(t, n.Excepts[0].HasException)
	assert.True(t, n.HasElse)
	assert.NotEmpty(t, n.Finally)
}

func TestParse_WithBlock(t *testing.T) {
	tree := mustParse(t, "with open(path) as f:\n<pre>{f.read()}</pre>\nend")
	n := tree.Body[0].(*ast.With)
	assert.Equal(t, "open(path) as f", n.Items)
	assert.False(t, n.Async)
}

func TestParse_Fragment(t *testing.T) {
	tree := mustParse(t, "fragment Row:\n<tr><td>{name}</td></tr>\nend\n{Row()}")

	frag := tree.Body[0].(*ast.Fragment)
	assert.Equal(t, "Row", frag.Name)
	assert.NotEmpty(t, frag.Body)
	assert.False(t, frag.EndLoc.IsZero())
}

func TestParse_Component(t *testing.T) {
	tree := mustParse(t, "<{Card} title=\"Hi\">\n<p>inner</p>\n</{Card}>")

	comp := tree.Body[0].(*ast.Component)
	assert.Equal(t, "Card", comp.Name)
	require.Len(t, comp.Attributes, 1)
	assert.Equal(t, ast.AttrStatic, comp.Attributes[0].Kind)
	assert.NotEmpty(t, comp.Children)
}

func TestParse_ComponentMismatch(t *testing.T) {
	err := mustFail(t, "<{Card}>\n</{Panel}>")
	assert.Equal(t, diagnostic.MismatchedTag, err.Kind)
}

func TestParse_SlotPlaceholder(t *testing.T) {
	tree := mustParse(t, "<div>{...}</div>")

	el := tree.Body[0].(*ast.Element)
	require.NotEmpty(t, el.Children)
	slot := el.Children[0].(*ast.Slot)
	assert.False(t, slot.HasName)

	tree = mustParse(t, "<div>{...sidebar}</div>")
	slot = tree.Body[0].(*ast.Element).Children[0].(*ast.Slot)
	assert.True(t, slot.HasName)
	assert.Equal(t, "sidebar", slot.Name)
}

func TestParse_NamedSlotWithFallback(t *testing.T) {
	tree := mustParse(t, "<{...header}>\n<h2>Default</h2>\n</{...header}>")

	slot := tree.Body[0].(*ast.Slot)
	assert.True(t, slot.HasName)
	assert.Equal(t, "header", slot.Name)
	assert.NotEmpty(t, slot.Fallback)
}

func TestParse_MixedReturnAndYieldInDefinition(t *testing.T) {
	err := mustFail(t, "def card(x):\n<div>{x}</div>\nreturn x\nend\n---\nok")

	assert.Equal(t, diagnostic.MixedReturnAndYield, err.Kind)
	require.True(t, err.HasRelated)
	assert.Equal(t, "defined here", err.RelatedLabel)
}

func TestParse_BareReturnWithMarkupIsFine(t *testing.T) {
	tree := mustParse(t, "def card(x):\nif not x:\nreturn\nend\n<div>{x}</div>\nend\n---\nok")
	def := tree.Decls[0].(*ast.Definition)
	assert.True(t, def.ContainsMarkup)
}

func TestParse_MixedReturnAndYieldInBody(t *testing.T) {
	err := mustFail(t, "<p>hello</p>\nreturn 1\n")
	assert.Equal(t, diagnostic.MixedReturnAndYield, err.Kind)
}

func TestParse_EscapedBracesBecomeText(t *testing.T) {
	tree := mustParse(t, "<p>{{x}}</p>")

	el := tree.Body[0].(*ast.Element)
	require.Len(t, el.Children, 3)
	assert.Equal(t, "{", el.Children[0].(*ast.Text).Content)
	assert.Equal(t, "x", el.Children[1].(*ast.Text).Content)
	assert.Equal(t, "}", el.Children[2].(*ast.Text).Content)
}

func TestParse_NewlinesInsideMarkupArePreserved(t *testing.T) {
	tree := mustParse(t, "<div>\nhello\n</div>")

	el := tree.Body[0].(*ast.Element)
	var text string
	for _, c := range el.Children {
		if tn, ok := c.(*ast.Text); ok {
			text += tn.Content
		}
	}
	assert.Equal(t, "\nhello\n", text)
}

func TestParse_StrayEnd(t *testing.T) {
	err := mustFail(t, "end\n")
	assert.Equal(t, diagnostic.UnexpectedToken, err.Kind)
}

func TestParse_StrayContinuation(t *testing.T) {
	err := mustFail(t, "else:\n")
	assert.Equal(t, diagnostic.UnexpectedToken, err.Kind)
	assert.Contains(t, err.Message, "'else'")
}
