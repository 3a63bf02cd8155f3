package generate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyper-lang/hyperc/pkg/generate"
	"github.com/hyper-lang/hyperc/pkg/parser"
	"github.com/hyper-lang/hyperc/pkg/transform"
)

func gen(t *testing.T, source string, opts generate.Options) generate.Result {
	t.Helper()
	ctx := context.Background()
	tree, perr := parser.Parse(ctx, source)
	require.Nil(t, perr)
	meta := transform.Analyze(ctx, tree)
	return generate.Generate(ctx, tree, meta, opts)
}

func TestGenerate_HeaderParameterAndEscapedExpression(t *testing.T) {
	source := "title: str\n---\n<h1>{title}</h1>"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "from hyper import component, replace_markers, escape\n")
	require.Contains(t, res.Code, "@component\ndef Render(*, title: str):\n")
	require.Contains(t, res.Code, `yield replace_markers(f"""<h1>‹ESCAPE:{title}›</h1>""")`)
}

func TestGenerate_PureMarkupRoundTrip(t *testing.T) {
	source := "<h1>hello</h1>\n<p>world</p>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "yield \"\"\"<h1>hello</h1>\n<p>world</p>\n\"\"\"")
}

func TestGenerate_PlainLiteralWithoutExpressions(t *testing.T) {
	res := gen(t, "<p>static</p>\n", generate.Options{})
	require.Contains(t, res.Code, `yield """<p>static</p>`)
	require.NotContains(t, res.Code, "replace_markers")
	require.NotContains(t, res.Code, `f"""`)
}

func TestGenerate_FunctionNameOverride(t *testing.T) {
	res := gen(t, "<p>x</p>\n", generate.Options{FunctionName: "user_card"})
	require.Contains(t, res.Code, "def UserCard():")
}

func TestGenerate_ControlFlow(t *testing.T) {
	source := "if user.active:\n    <p>on</p>\nelse:\n    <p>off</p>\nend\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "    if user.active:\n")
	require.Contains(t, res.Code, `        yield """<p>on</p>`)
	require.Contains(t, res.Code, "    else:\n")
	require.Contains(t, res.Code, `        yield """<p>off</p>`)
}

func TestGenerate_EmptyBlockEmitsPass(t *testing.T) {
	res := gen(t, "if flag:\nend\n", generate.Options{})
	require.Contains(t, res.Code, "    if flag:\n        pass\n")
}

func TestGenerate_ForLoop(t *testing.T) {
	source := "for item in items:\n    <li>{item.name}</li>\nend\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "    for item in items:\n")
	require.Contains(t, res.Code, "‹ESCAPE:{item.name}›")
}

func TestGenerate_AsyncForMakesFunctionAsync(t *testing.T) {
	source := "async for row in stream:\n    <li>{row}</li>\nend\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "async def Render(")
	require.Contains(t, res.Code, "    async for row in stream:\n")
}

func TestGenerate_MatchCases(t *testing.T) {
	source := "match status:\ncase \"ok\":\n    <p>fine</p>\ncase _:\n    <p>bad</p>\nend\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "    match status:\n")
	require.Contains(t, res.Code, `        case "ok":`)
	require.Contains(t, res.Code, "        case _:")
}

func TestGenerate_AttributeMarkers(t *testing.T) {
	source := "<div class={names} hidden={show}>x</div>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "class=‹CLASS:{names}›")
	require.Contains(t, res.Code, "hidden=‹BOOL:{show}›")
	require.Contains(t, res.Code, "replace_markers(f\"\"\"")
}

func TestGenerate_SpreadAndShorthandAttributes(t *testing.T) {
	res := gen(t, "<div {**attrs} {disabled}>x</div>\n", generate.Options{})
	require.Contains(t, res.Code, "‹SPREAD:{attrs}›")
	require.Contains(t, res.Code, "disabled=‹BOOL:{disabled}›")
}

func TestGenerate_ReservedWordAttributeExpression(t *testing.T) {
	res := gen(t, "<div class={class}>x</div>\n", generate.Options{})
	require.Contains(t, res.Code, "class=‹CLASS:{_class}›")
}

func TestGenerate_DefaultSlot(t *testing.T) {
	res := gen(t, "<div>\n    {...}\n</div>\n", generate.Options{})

	require.Contains(t, res.Code, "from collections.abc import Iterable\n")
	require.Contains(t, res.Code, "def Render(_content: Iterable[str] | None = None):")
	require.Contains(t, res.Code, "if _content is not None:\n")
	require.Contains(t, res.Code, "yield from _content\n")
}

func TestGenerate_NamedSlotFallback(t *testing.T) {
	source := "<{...header}>\n<h2>default</h2>\n</{...header}>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "def Render(_header_content: Iterable[str] | None = None):")
	require.Contains(t, res.Code, "    if _header_content is not None:\n")
	require.Contains(t, res.Code, "        yield from _header_content\n")
	require.Contains(t, res.Code, "    else:\n")
	require.Contains(t, res.Code, `        yield """<h2>default</h2>`)
}

func TestGenerate_ComponentWithChildren(t *testing.T) {
	source := "<{Card} title=\"Hi\">\n<p>body</p>\n</{Card}>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "    # <{Card}>\n")
	require.Contains(t, res.Code, "    def _card():\n")
	require.Contains(t, res.Code, `        yield """<p>body</p>`)
	require.Contains(t, res.Code, `    yield from Card(_card(), title="Hi")`)
}

func TestGenerate_ComponentWithoutChildren(t *testing.T) {
	res := gen(t, "<{Footer} year={year} />\n", generate.Options{})
	require.Contains(t, res.Code, "    yield from Footer(year=year)\n")
	require.NotContains(t, res.Code, "def _footer():")
}

func TestGenerate_SlotTargetAttribute(t *testing.T) {
	source := "<div {...header}>x</div>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, `<div slot:header>x</div>`)
}

func TestGenerate_ComponentNamedSlotAssignment(t *testing.T) {
	source := "<{Card}>\n<{...title}><b>T</b></{...title}>\n<p>body</p>\n</{Card}>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "    def _title_slot():\n")
	require.Contains(t, res.Code, `        yield """<b>T</b>"""`)
	require.Contains(t, res.Code, "_title_content=_title_slot()")
}

func TestGenerate_FragmentHoisting(t *testing.T) {
	source := "fragment Greeting:\n    <p>{name}</p>\nend\n<{Greeting} />\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "@component\ndef Greeting(name):\n")
	require.Contains(t, res.Code, "    yield from Greeting(name=name)\n")
	require.Less(t, strings.Index(res.Code, "def Greeting"), strings.Index(res.Code, "def Render"))
}

func TestGenerate_FragmentWithoutCaptures(t *testing.T) {
	source := "fragment Rule:\n    <hr />\nend\n<{Rule} />\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "def Rule():\n")
	require.Contains(t, res.Code, "    yield from Rule()\n")
}

func TestGenerate_DeclarationDefinitionWithMarkup(t *testing.T) {
	source := "def badge(kind):\n    <span>{kind}</span>\nend\n---\n<p>x</p>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "@component\ndef badge(kind):\n")
	require.Contains(t, res.Code, "‹ESCAPE:{kind}›")
}

func TestGenerate_PlainDefinitionStaysPlain(t *testing.T) {
	source := "def total(xs):\n    return sum(xs)\nend\n---\n<p>{total(items)}</p>\n"
	res := gen(t, source, generate.Options{})

	require.Contains(t, res.Code, "def total(xs):\n    return sum(xs)\n")
	require.NotContains(t, res.Code, "@component\ndef total")
}

func TestGenerate_ModuleConstantsAndImports(t *testing.T) {
	source := "import json\nMAX = 10\n---\n<p>{MAX}</p>\n"
	res := gen(t, source, generate.Options{})

	require.True(t, strings.HasPrefix(res.Code, "import json\n"))
	require.Contains(t, res.Code, "\nMAX = 10\n")
	require.Less(t, strings.Index(res.Code, "MAX = 10"), strings.Index(res.Code, "@component"))
}

func TestGenerate_ReservedWordStatement(t *testing.T) {
	source := "class = \"btn\"\n<button class={class}>go</button>\n"
	res := gen(t, source, generate.Options{})
	require.Contains(t, res.Code, `_class = "btn"`)
}

func TestGenerate_CustomIndent(t *testing.T) {
	source := "if x:\n    <p>y</p>\nend\n"
	res := gen(t, source, generate.Options{Indent: "  "})

	require.Contains(t, res.Code, "\n  if x:\n")
	require.Contains(t, res.Code, `    yield """<p>y</p>`)
}

func TestGenerate_RuntimeModuleOverride(t *testing.T) {
	source := "<h1>{title}</h1>\n"
	res := gen(t, source, generate.Options{RuntimeModule: "myapp.hyper"})

	require.Contains(t, res.Code, "from myapp.hyper import component, replace_markers, escape\n")
	require.NotContains(t, res.Code, "from hyper import")
}

func TestGenerate_Idempotent(t *testing.T) {
	source := "title: str\n---\n<h1>{title}</h1>\nfor x in xs:\n    <li>{x}</li>\nend\n"
	first := gen(t, source, generate.Options{IncludeInjections: true})
	second := gen(t, source, generate.Options{IncludeInjections: true})

	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Mappings, second.Mappings)
	require.Equal(t, first.Ranges, second.Ranges)
	require.Equal(t, first.Injections, second.Injections)
}

func TestGenerate_MappingsMonotonic(t *testing.T) {
	source := "title: str\n---\n<h1>{title}</h1>\nfor x in xs:\n    <li>{x}</li>\nend\n"
	res := gen(t, source, generate.Options{})

	for i := 1; i < len(res.Mappings); i++ {
		prev, cur := res.Mappings[i-1], res.Mappings[i]
		inOrder := cur.GenLine > prev.GenLine ||
			(cur.GenLine == prev.GenLine && cur.GenCol >= prev.GenCol)
		require.True(t, inOrder, "mapping %d out of order", i)
	}
}

func TestGenerate_RangesWithinBoundsAndDisjoint(t *testing.T) {
	source := "title: str\n---\n<h1>{title}</h1>\n<p>{title.upper()}</p>\n"
	res := gen(t, source, generate.Options{IncludeInjections: true})
	require.NotEmpty(t, res.Ranges)

	for i, r := range res.Ranges {
		require.LessOrEqual(t, 0, r.SourceStart)
		require.LessOrEqual(t, r.SourceStart, r.SourceEnd)
		require.LessOrEqual(t, r.SourceEnd, len(source))
		require.LessOrEqual(t, r.CompiledStart, r.CompiledEnd)
		if i > 0 {
			require.GreaterOrEqual(t, r.CompiledStart, res.Ranges[i-1].CompiledEnd)
		}
	}
}

func TestGenerate_InjectionsReassembleCompiledText(t *testing.T) {
	source := "title: str\n---\n<h1>{title}</h1>\n"
	res := gen(t, source, generate.Options{IncludeInjections: true})
	require.NotEmpty(t, res.Injections)

	var rebuilt strings.Builder
	for _, inj := range res.Injections {
		require.Equal(t, generate.RangePython, inj.Kind)
		rebuilt.WriteString(inj.Prefix)
		rebuilt.WriteString(source[inj.Start:inj.End])
		rebuilt.WriteString(inj.Suffix)
	}
	require.Equal(t, res.Code, rebuilt.String())
}

func TestGenerate_InjectionsOnlyWhenRequested(t *testing.T) {
	source := "<p>{x}</p>\n"
	res := gen(t, source, generate.Options{})
	require.Empty(t, res.Ranges)
	require.Empty(t, res.Injections)
}
