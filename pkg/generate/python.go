// Package generate turns an analyzed tree into Python source plus the
// editor metadata (mappings, sub-language ranges, injections) the tooling
// protocol exposes. Generation is total: any tree the parser accepts
// produces code.
package generate

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyper-lang/hyperc/pkg/ast"
	"github.com/hyper-lang/hyperc/pkg/position"
	"github.com/hyper-lang/hyperc/pkg/transform"
)

// Options control one generation run.
type Options struct {
	// FunctionName overrides the generated function name; it is converted
	// to PascalCase. Empty means "Render".
	FunctionName string

	// IncludeInjections asks for range and injection computation, which
	// editors need and batch compilation skips for speed.
	IncludeInjections bool

	// Indent is the indentation unit for generated code. Empty means four
	// spaces.
	Indent string

	// RuntimeModule is the Python module the helper imports come from.
	// Empty means "hyper".
	RuntimeModule string
}

// Result is the generated artifact.
type Result struct {
	Code       string
	Mappings   []Mapping
	Ranges     []Range
	Injections []Injection
}

// Generate compiles a tree to Python source.
func Generate(ctx context.Context, tree *ast.Tree, meta *transform.Metadata, opts Options) Result {
	indent := opts.Indent
	if indent == "" {
		indent = "    "
	}

	e := &emitter{
		out:    NewOutput(),
		meta:   meta,
		indent: indent,
	}

	var (
		params     []*ast.Parameter
		imports    []*ast.Import
		decorators []*ast.Decorator
		constants  []ast.Node
		defs       []*ast.Definition
	)
	for _, n := range tree.Decls {
		switch node := n.(type) {
		case *ast.Parameter:
			params = append(params, node)
		case *ast.Import:
			imports = append(imports, node)
		case *ast.Decorator:
			decorators = append(decorators, node)
		case *ast.Definition:
			defs = append(defs, node)
		default:
			constants = append(constants, n)
		}
	}

	e.fragments = collectFragments(tree)
	e.fragmentNames = make(map[string]bool, len(e.fragments))
	for _, f := range e.fragments {
		e.fragmentNames[f.Name] = true
	}

	// User imports first, then the runtime imports the body will need.
	for _, imp := range imports {
		e.out.PushMapped(imp.Code, imp.Loc.Start)
		e.out.Newline()
	}
	hasSlots := len(meta.Slots) > 0
	if hasSlots {
		e.out.Push("from collections.abc import Iterable\n")
	}
	e.out.Push("from " + defaulted(opts.RuntimeModule, "hyper") + " import ")
	e.out.Push(strings.Join(runtimeImports(tree, meta), ", "))
	e.out.Push("\n\n\n")

	for _, c := range constants {
		e.emitNode(c, 0)
	}
	if len(constants) > 0 {
		e.out.Push("\n\n")
	}

	for _, frag := range e.fragments {
		e.emitFragmentDef(frag)
		e.out.Push("\n\n")
	}

	for _, def := range defs {
		e.emitModuleDefinition(def)
		e.out.Push("\n\n")
	}

	for _, dec := range decorators {
		e.out.PushMapped(dec.Code, dec.Loc.Start)
		e.out.Newline()
	}
	e.out.Push("@component\n")

	if meta.IsAsync {
		e.out.Push("async def ")
	} else {
		e.out.Push("def ")
	}
	e.out.Push(pascalCase(defaulted(opts.FunctionName, "Render")))
	e.out.Push("(")

	argCount := 0
	if meta.HasDefaultSlot() {
		e.out.Push("_content: Iterable[str] | None = None")
		argCount++
	}
	if len(params) > 0 {
		if argCount > 0 {
			e.out.Push(", *, ")
		} else {
			e.out.Push("*, ")
		}
		for i, p := range params {
			if i > 0 {
				e.out.Push(", ")
			}
			e.pushSpanned(paramText(p), p.Loc)
			argCount++
		}
	}
	for _, name := range meta.NamedSlots() {
		if argCount > 0 {
			e.out.Push(", ")
		}
		e.out.Push("_" + name + "_content: Iterable[str] | None = None")
		argCount++
	}
	e.out.Push("):\n")

	if len(tree.Body) == 0 {
		e.out.Push(indent + "pass\n")
	} else {
		e.emitNodes(tree.Body, 1)
	}

	code, mappings, ranges := e.out.Finish()

	result := Result{Code: code, Mappings: mappings}
	if opts.IncludeInjections {
		result.Ranges = ranges
		result.Injections = ComputeInjections(code, ranges)
	}

	zerolog.Ctx(ctx).Debug().
		Int("lines", strings.Count(code, "\n")).
		Int("mappings", len(mappings)).
		Int("ranges", len(ranges)).
		Bool("injections", opts.IncludeInjections).
		Msg("generated python")
	return result
}

type emitter struct {
	out           *Output
	meta          *transform.Metadata
	indent        string
	fragments     []*ast.Fragment
	fragmentNames map[string]bool
}

func (e *emitter) pad(level int) {
	e.out.Push(strings.Repeat(e.indent, level))
}

// pushSpanned emits a source-derived token, records its mapping, and
// tracks a Python range over it for editor injection.
func (e *emitter) pushSpanned(text string, loc position.Span) {
	start := e.out.Position()
	e.out.PushMapped(text, loc.Start)
	e.out.AddRange(Range{
		Kind:           RangePython,
		SourceStart:    loc.Start.Byte,
		SourceEnd:      loc.End.Byte,
		CompiledStart:  start,
		CompiledEnd:    e.out.Position(),
		NeedsInjection: true,
	})
}

// emitNodes walks siblings, batching runs of combinable nodes into single
// literal yields and emitting everything else as discrete statements.
func (e *emitter) emitNodes(nodes []ast.Node, indent int) {
	i := 0
	for i < len(nodes) {
		if isCombinable(nodes[i]) {
			j := i + 1
			for j < len(nodes) && isCombinable(nodes[j]) {
				j++
			}
			e.emitCombined(nodes[i:j], indent)
			i = j
			continue
		}
		e.emitNode(nodes[i], indent)
		i++
	}
}

// isCombinable reports whether a node can live inside a literal batch.
// Elements qualify only when their whole subtree does; components, slots
// and control flow always break the run.
func isCombinable(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.Text, *ast.Expression:
		return true
	case *ast.Element:
		for _, child := range node.Children {
			if !isCombinable(child) {
				return false
			}
		}
		return true
	}
	return false
}

func nodeHasExpressions(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.Expression:
		return true
	case *ast.Element:
		if attrsHaveExpressions(node.Attributes) {
			return true
		}
		for _, child := range node.Children {
			if nodeHasExpressions(child) {
				return true
			}
		}
	}
	return false
}

func attrsHaveExpressions(attrs []ast.Attribute) bool {
	for _, attr := range attrs {
		switch attr.Kind {
		case ast.AttrStatic, ast.AttrBoolean:
		default:
			return true
		}
	}
	return false
}

// nodeHasMarkers reports whether emitting the node inside a literal will
// produce out-of-band markers that replace_markers must resolve.
func nodeHasMarkers(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.Expression:
		return node.Escape
	case *ast.Element:
		if attrsHaveMarkers(node.Attributes) {
			return true
		}
		for _, child := range node.Children {
			if nodeHasMarkers(child) {
				return true
			}
		}
	}
	return false
}

func attrsHaveMarkers(attrs []ast.Attribute) bool {
	for _, attr := range attrs {
		switch attr.Kind {
		case ast.AttrDynamic:
			if attr.Name == "class" || attr.Name == "style" || ast.IsBooleanAttribute(attr.Name) {
				return true
			}
		case ast.AttrShorthand, ast.AttrSpread:
			return true
		}
	}
	return false
}

// emitCombined flushes one batch as a single yield. Escaping stays
// deferred: marker-bearing batches route through one replace_markers call
// no matter how many markers they contain.
func (e *emitter) emitCombined(nodes []ast.Node, indent int) {
	hasExprs := false
	hasMarkers := false
	for _, n := range nodes {
		hasExprs = hasExprs || nodeHasExpressions(n)
		hasMarkers = hasMarkers || nodeHasMarkers(n)
	}

	e.pad(indent)
	switch {
	case hasMarkers:
		e.out.Push(`yield replace_markers(f"""`)
	case hasExprs:
		e.out.Push(`yield f"""`)
	default:
		e.out.Push(`yield """`)
	}
	for _, n := range nodes {
		e.emitNodeContent(n, hasExprs)
	}
	if hasMarkers {
		e.out.Push(`""")`)
	} else {
		e.out.Push(`"""`)
	}
	e.out.Newline()
}

func (e *emitter) emitNodeContent(n ast.Node, inFString bool) {
	switch node := n.(type) {
	case *ast.Text:
		content := node.Content
		if inFString {
			content = escapeFStringText(content)
		}
		e.out.PushMapped(content, node.Loc.Start)
	case *ast.Expression:
		if !inFString {
			return
		}
		if node.Escape {
			e.out.Push("‹ESCAPE:")
			e.pushSpanned("{"+node.Expr+"}", node.Loc)
			e.out.Push("›")
		} else {
			e.pushSpanned("{"+node.Expr+"}", node.Loc)
		}
	case *ast.Element:
		e.emitElementContent(node, inFString)
	}
}

func (e *emitter) emitElementContent(el *ast.Element, inFString bool) {
	e.out.Push("<")
	e.out.PushMapped(el.Tag, el.TagLoc.Start)
	for _, attr := range el.Attributes {
		e.emitAttrContent(attr, inFString)
	}
	if el.SelfClosing {
		e.out.Push(" />")
		return
	}
	e.out.Push(">")
	for _, child := range el.Children {
		e.emitNodeContent(child, inFString)
	}
	e.out.Push("</" + el.Tag + ">")
}

// emitAttrContent writes one attribute into a literal. Marker kinds wrap
// the expression so the runtime can render class lists, style dicts,
// boolean presence, and dict spreads after values are known.
func (e *emitter) emitAttrContent(attr ast.Attribute, inFString bool) {
	switch attr.Kind {
	case ast.AttrStatic:
		e.out.Push(" " + attr.Name + `="` + attr.Value + `"`)

	case ast.AttrDynamic:
		if !inFString {
			return
		}
		e.out.Push(" " + attr.Name)
		expr := safeVarName(strings.TrimSpace(attr.Expr))
		// ExprLoc covers {expr}; the injected range is the bare expression.
		loc := attr.ExprLoc
		loc.Start.Byte++
		loc.Start.Col++
		loc.End.Byte--
		loc.End.Col--
		switch {
		case attr.Name == "class":
			e.pushMarkerExpr("CLASS", expr, loc)
		case attr.Name == "style":
			e.pushMarkerExpr("STYLE", expr, loc)
		case ast.IsBooleanAttribute(attr.Name):
			e.pushMarkerExpr("BOOL", expr, loc)
		default:
			e.out.Push(`="{`)
			e.pushSpanned(expr, loc)
			e.out.Push(`}"`)
		}

	case ast.AttrBoolean:
		e.out.Push(" " + attr.Name)

	case ast.AttrShorthand:
		if !inFString {
			return
		}
		e.out.Push(" " + attr.Name)
		name := safeVarName(attr.Name)
		switch {
		case attr.Name == "class":
			e.pushMarkerExpr("CLASS", name, attr.ExprLoc)
		case attr.Name == "style":
			e.pushMarkerExpr("STYLE", name, attr.ExprLoc)
		case attr.Name == "data":
			e.pushMarkerExpr("DATA", name, attr.ExprLoc)
		case attr.Name == "aria":
			e.pushMarkerExpr("ARIA", name, attr.ExprLoc)
		case ast.IsBooleanAttribute(attr.Name):
			e.pushMarkerExpr("BOOL", name, attr.ExprLoc)
		default:
			// Generic shorthand expands like a spread so dict values work.
			e.pushMarkerExpr("SPREAD", name, attr.ExprLoc)
		}

	case ast.AttrSpread:
		if !inFString {
			return
		}
		expr := safeVarName(strings.TrimSpace(attr.Expr))
		switch strings.TrimSpace(attr.Expr) {
		case "class":
			e.out.Push(" class")
			e.pushMarkerExpr("CLASS", expr, attr.ExprLoc)
		case "style":
			e.out.Push(" style")
			e.pushMarkerExpr("STYLE", expr, attr.ExprLoc)
		case "data":
			e.out.Push(" data")
			e.pushMarkerExpr("DATA", expr, attr.ExprLoc)
		case "aria":
			e.out.Push(" aria")
			e.pushMarkerExpr("ARIA", expr, attr.ExprLoc)
		default:
			e.out.Push(" ")
			e.pushMarkerKind("SPREAD", expr, attr.ExprLoc)
		}

	case ast.AttrSlotTarget:
		e.out.Push(" slot:" + attr.Value)
	}
}

func (e *emitter) pushMarkerExpr(kind, expr string, loc position.Span) {
	e.out.Push("=")
	e.pushMarkerKind(kind, expr, loc)
}

func (e *emitter) pushMarkerKind(kind, expr string, loc position.Span) {
	e.out.Push("‹" + kind + ":{")
	e.pushSpanned(expr, loc)
	e.out.Push("}›")
}

func (e *emitter) emitNode(n ast.Node, indent int) {
	switch node := n.(type) {
	case *ast.Text, *ast.Expression:
		e.emitCombined([]ast.Node{n}, indent)
	case *ast.Element:
		e.emitElement(node, indent)
	case *ast.Component:
		e.emitComponent(node, indent)
	case *ast.Fragment:
		// Hoisted; the definition site renders nothing.
	case *ast.Slot:
		e.emitSlot(node, indent)
	case *ast.If:
		e.emitIf(node, indent)
	case *ast.For:
		e.emitFor(node, indent)
	case *ast.While:
		e.emitWhile(node, indent)
	case *ast.Match:
		e.emitMatch(node, indent)
	case *ast.With:
		e.emitWith(node, indent)
	case *ast.Try:
		e.emitTry(node, indent)
	case *ast.Statement:
		e.emitStatement(node, indent)
	case *ast.Definition:
		e.emitNestedDefinition(node, indent)
	case *ast.Import:
		e.out.PushMapped(node.Code, node.Loc.Start)
		e.out.Newline()
	case *ast.Decorator:
		e.pad(indent)
		e.out.PushMapped(node.Code, node.Loc.Start)
		e.out.Newline()
	case *ast.Parameter:
		// Parameters surface in the signature, not the body.
	}
}

// emitElement handles elements whose subtree cannot join a literal batch.
// The open tag is still one literal so attribute markers work the same.
func (e *emitter) emitElement(el *ast.Element, indent int) {
	hasExprs := attrsHaveExpressions(el.Attributes)
	hasMarkers := attrsHaveMarkers(el.Attributes)

	e.pad(indent)
	switch {
	case hasMarkers:
		e.out.Push(`yield replace_markers(f"""`)
	case hasExprs:
		e.out.Push(`yield f"""`)
	default:
		e.out.Push(`yield """`)
	}
	e.out.Push("<")
	e.out.PushMapped(el.Tag, el.TagLoc.Start)
	for _, attr := range el.Attributes {
		e.emitAttrContent(attr, true)
	}
	if el.SelfClosing {
		e.out.Push(" />")
	} else {
		e.out.Push(">")
	}
	if hasMarkers {
		e.out.Push(`""")`)
	} else {
		e.out.Push(`"""`)
	}
	e.out.Newline()

	if el.SelfClosing {
		return
	}
	e.emitNodes(el.Children, indent)
	e.pad(indent)
	e.out.Push(`yield "</` + el.Tag + `>"`)
	e.out.Newline()
}

func (e *emitter) emitComponent(c *ast.Component, indent int) {
	// Slot nodes directly under an invocation supply that component's
	// named slots; everything else is default-slot content.
	var namedSlots []*ast.Slot
	var children []ast.Node
	for _, child := range c.Children {
		if slot, ok := child.(*ast.Slot); ok && slot.HasName {
			namedSlots = append(namedSlots, slot)
			continue
		}
		children = append(children, child)
	}
	children = trimBlankText(children)

	for _, slot := range namedSlots {
		e.pad(indent)
		e.out.Push("def _" + slot.Name + "_slot():")
		e.out.Newline()
		e.emitBodyOrPass(slot.Fallback, indent+1)
	}

	funcName := componentFuncName(c.Name)
	hasChildren := len(children) > 0

	if hasChildren {
		e.pad(indent)
		e.out.Push("# <{" + c.Name + "}>")
		e.out.Newline()
		e.pad(indent)
		e.out.Push("def " + funcName + "():")
		e.out.Newline()
		e.emitNodes(children, indent+1)
	}

	e.pad(indent)
	e.out.Push("yield from ")
	e.out.PushMapped(c.Name, c.NameLoc.Start)
	e.out.Push("(")
	argCount := 0
	if hasChildren {
		e.out.Push(funcName + "()")
		argCount++
	}
	for _, attr := range c.Attributes {
		var arg string
		switch attr.Kind {
		case ast.AttrStatic:
			arg = attr.Name + `="` + escapePyString(attr.Value) + `"`
		case ast.AttrDynamic:
			arg = attr.Name + "=" + attr.Expr
		default:
			continue
		}
		if argCount > 0 {
			e.out.Push(", ")
		}
		e.out.Push(arg)
		argCount++
	}
	for _, slot := range namedSlots {
		if argCount > 0 {
			e.out.Push(", ")
		}
		e.out.Push("_" + slot.Name + "_content=_" + slot.Name + "_slot()")
		argCount++
	}
	// Fragment invocations carry their captured variables explicitly.
	if e.fragmentNames[c.Name] {
		for _, v := range e.meta.CapturesFor(c.Name) {
			if argCount > 0 {
				e.out.Push(", ")
			}
			e.out.Push(v + "=" + v)
			argCount++
		}
	}
	e.out.Push(")")
	e.out.Newline()

	if hasChildren {
		e.pad(indent)
		e.out.Push("# </{" + c.Name + "}>")
		e.out.Newline()
	}
}

// emitSlot renders caller-supplied content. The carrier is a generator and
// always truthy, so presence is an explicit None check; the recorded
// default body renders only when nothing was supplied.
func (e *emitter) emitSlot(s *ast.Slot, indent int) {
	slotVar := "_content"
	if s.HasName {
		slotVar = "_" + s.Name + "_content"
	}
	e.pad(indent)
	e.out.Push("if " + slotVar + " is not None:")
	e.out.Newline()
	e.pad(indent + 1)
	e.out.Push("yield from " + slotVar)
	e.out.Newline()
	fallback := trimBlankText(s.Fallback)
	if len(fallback) > 0 {
		e.pad(indent)
		e.out.Push("else:")
		e.out.Newline()
		e.emitNodes(fallback, indent+1)
	}
}

func (e *emitter) emitIf(n *ast.If, indent int) {
	e.pad(indent)
	e.out.Push("if ")
	e.pushSpanned(n.Condition, n.ConditionLoc)
	e.out.Push(":")
	e.out.Newline()
	e.emitBodyOrPass(n.Then, indent+1)

	for _, elif := range n.Elifs {
		e.pad(indent)
		e.out.Push("elif ")
		e.pushSpanned(elif.Condition, elif.ConditionLoc)
		e.out.Push(":")
		e.out.Newline()
		e.emitBodyOrPass(elif.Body, indent+1)
	}

	if n.HasElse {
		e.pad(indent)
		e.out.Push("else:")
		e.out.Newline()
		e.emitBodyOrPass(n.Else, indent+1)
	}
}

func (e *emitter) emitFor(n *ast.For, indent int) {
	e.pad(indent)
	if n.Async {
		e.out.Push("async for ")
	} else {
		e.out.Push("for ")
	}
	e.out.Push(n.Binding)
	e.out.Push(" in ")
	e.pushSpanned(n.Iterable, n.IterableLoc)
	e.out.Push(":")
	e.out.Newline()
	e.emitBodyOrPass(n.Body, indent+1)
}

func (e *emitter) emitWhile(n *ast.While, indent int) {
	e.pad(indent)
	e.out.Push("while ")
	e.pushSpanned(n.Condition, n.ConditionLoc)
	e.out.Push(":")
	e.out.Newline()
	e.emitBodyOrPass(n.Body, indent+1)
}

func (e *emitter) emitMatch(n *ast.Match, indent int) {
	e.pad(indent)
	e.out.Push("match ")
	e.pushSpanned(n.Expr, n.ExprLoc)
	e.out.Push(":")
	e.out.Newline()
	for _, c := range n.Cases {
		e.pad(indent + 1)
		e.out.Push("case ")
		e.pushSpanned(c.Pattern, c.PatternLoc)
		e.out.Push(":")
		e.out.Newline()
		e.emitBodyOrPass(c.Body, indent+2)
	}
}

func (e *emitter) emitWith(n *ast.With, indent int) {
	e.pad(indent)
	if n.Async {
		e.out.Push("async with ")
	} else {
		e.out.Push("with ")
	}
	e.pushSpanned(n.Items, n.ItemsLoc)
	e.out.Push(":")
	e.out.Newline()
	e.emitBodyOrPass(n.Body, indent+1)
}

func (e *emitter) emitTry(n *ast.Try, indent int) {
	e.pad(indent)
	e.out.Push("try:")
	e.out.Newline()
	e.emitBodyOrPass(n.Body, indent+1)

	for _, except := range n.Excepts {
		e.pad(indent)
		e.out.Push("except")
		if except.HasException {
			e.out.Push(" ")
			e.out.PushMapped(except.Exception, except.ExceptionLoc.Start)
		}
		e.out.Push(":")
		e.out.Newline()
		e.emitBodyOrPass(except.Body, indent+1)
	}

	if n.HasElse {
		e.pad(indent)
		e.out.Push("else:")
		e.out.Newline()
		e.emitBodyOrPass(n.Else, indent+1)
	}

	if len(n.Finally) > 0 {
		e.pad(indent)
		e.out.Push("finally:")
		e.out.Newline()
		e.emitBodyOrPass(n.Finally, indent+1)
	}
}

func (e *emitter) emitStatement(n *ast.Statement, indent int) {
	e.pad(indent)
	e.out.PushMapped(safeStatement(n.Code), n.Loc.Start)
	e.out.Newline()
}

func (e *emitter) emitNestedDefinition(n *ast.Definition, indent int) {
	e.pad(indent)
	e.out.PushMapped(n.Signature, n.SignatureLoc.Start)
	e.out.Newline()
	e.emitBodyOrPass(n.Body, indent+1)
}

// emitModuleDefinition places a declarations-zone definition at module
// level. Markup-bearing functions become decorated generator components.
func (e *emitter) emitModuleDefinition(n *ast.Definition) {
	if n.ContainsMarkup && n.Kind == ast.DefFunction {
		e.out.Push("@component\n")
	}
	e.out.PushMapped(n.Signature, n.SignatureLoc.Start)
	e.out.Newline()
	e.emitBodyOrPass(n.Body, 1)
}

func (e *emitter) emitFragmentDef(frag *ast.Fragment) {
	e.out.Push("@component\n")
	e.out.Push("def ")
	e.out.PushMapped(frag.Name, frag.Loc.Start)
	e.out.Push("(")
	for i, v := range e.meta.CapturesFor(frag.Name) {
		if i > 0 {
			e.out.Push(", ")
		}
		e.out.Push(v)
	}
	e.out.Push("):\n")
	e.emitBodyOrPass(frag.Body, 1)
}

func (e *emitter) emitBodyOrPass(nodes []ast.Node, indent int) {
	nodes = trimBlankText(nodes)
	if len(nodes) == 0 {
		e.pad(indent)
		e.out.Push("pass")
		e.out.Newline()
		return
	}
	e.emitNodes(nodes, indent)
}

// trimBlankText drops leading and trailing whitespace-only text nodes so
// bodies that only held layout newlines still emit pass.
func trimBlankText(nodes []ast.Node) []ast.Node {
	start, end := 0, len(nodes)
	for start < end {
		if t, ok := nodes[start].(*ast.Text); ok && strings.TrimSpace(t.Content) == "" {
			start++
			continue
		}
		break
	}
	for end > start {
		if t, ok := nodes[end-1].(*ast.Text); ok && strings.TrimSpace(t.Content) == "" {
			end--
			continue
		}
		break
	}
	return nodes[start:end]
}

// collectFragments gathers fragment definitions in source order, wherever
// they sit in the tree; all of them hoist to module level.
func collectFragments(tree *ast.Tree) []*ast.Fragment {
	var frags []*ast.Fragment
	var walk func(nodes []ast.Node)
	walk = func(nodes []ast.Node) {
		for _, n := range nodes {
			switch node := n.(type) {
			case *ast.Fragment:
				frags = append(frags, node)
				walk(node.Body)
			case *ast.Element:
				walk(node.Children)
			case *ast.Component:
				walk(node.Children)
			case *ast.Slot:
				walk(node.Fallback)
			case *ast.If:
				walk(node.Then)
				for _, elif := range node.Elifs {
					walk(elif.Body)
				}
				walk(node.Else)
			case *ast.For:
				walk(node.Body)
			case *ast.While:
				walk(node.Body)
			case *ast.Match:
				for _, c := range node.Cases {
					walk(c.Body)
				}
			case *ast.With:
				walk(node.Body)
			case *ast.Try:
				walk(node.Body)
				for _, ex := range node.Excepts {
					walk(ex.Body)
				}
				walk(node.Else)
				walk(node.Finally)
			case *ast.Definition:
				walk(node.Body)
			}
		}
	}
	walk(tree.Decls)
	walk(tree.Body)
	return frags
}

// runtimeImports decides the `from hyper import ...` list before emission:
// component always, replace_markers when any literal will carry markers,
// then every helper the analysis recorded.
func runtimeImports(tree *ast.Tree, meta *transform.Metadata) []string {
	imports := []string{"component"}
	if treeNeedsMarkers(tree.Decls) || treeNeedsMarkers(tree.Body) {
		imports = append(imports, "replace_markers")
	}
	return append(imports, meta.Helpers...)
}

func treeNeedsMarkers(nodes []ast.Node) bool {
	for _, n := range nodes {
		switch node := n.(type) {
		case *ast.Expression:
			if node.Escape {
				return true
			}
		case *ast.Element:
			if attrsHaveMarkers(node.Attributes) || treeNeedsMarkers(node.Children) {
				return true
			}
		case *ast.Component:
			if treeNeedsMarkers(node.Children) {
				return true
			}
		case *ast.Fragment:
			if treeNeedsMarkers(node.Body) {
				return true
			}
		case *ast.Slot:
			if treeNeedsMarkers(node.Fallback) {
				return true
			}
		case *ast.If:
			if treeNeedsMarkers(node.Then) || treeNeedsMarkers(node.Else) {
				return true
			}
			for _, elif := range node.Elifs {
				if treeNeedsMarkers(elif.Body) {
					return true
				}
			}
		case *ast.For:
			if treeNeedsMarkers(node.Body) {
				return true
			}
		case *ast.While:
			if treeNeedsMarkers(node.Body) {
				return true
			}
		case *ast.Match:
			for _, c := range node.Cases {
				if treeNeedsMarkers(c.Body) {
					return true
				}
			}
		case *ast.With:
			if treeNeedsMarkers(node.Body) {
				return true
			}
		case *ast.Try:
			if treeNeedsMarkers(node.Body) || treeNeedsMarkers(node.Else) || treeNeedsMarkers(node.Finally) {
				return true
			}
			for _, ex := range node.Excepts {
				if treeNeedsMarkers(ex.Body) {
					return true
				}
			}
		case *ast.Definition:
			if treeNeedsMarkers(node.Body) {
				return true
			}
		}
	}
	return false
}

// safeVarName rewrites Python reserved words the templates are allowed to
// use as attribute shorthands.
func safeVarName(name string) string {
	switch name {
	case "class":
		return "_class"
	case "type":
		return "_type"
	}
	return name
}

// safeStatement rewrites assignments to reserved words the same way.
func safeStatement(code string) string {
	replacer := strings.NewReplacer(
		"class =", "_class =",
		"class=", "_class=",
		"type =", "_type =",
		"type=", "_type=",
	)
	return replacer.Replace(code)
}

func paramText(p *ast.Parameter) string {
	text := p.Name
	if p.Type != "" {
		text += ": " + p.Type
	}
	if p.HasDefault {
		text += " = " + p.Default
	}
	return text
}

// componentFuncName derives the inner content-function name for a
// component invocation: PascalCase to snake_case with a leading underscore.
func componentFuncName(name string) string {
	var b strings.Builder
	b.WriteByte('_')
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func pascalCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func defaulted(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func escapePyString(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\t", `\t`,
	)
	return replacer.Replace(s)
}

// escapeFStringText doubles literal braces so they survive the f-string.
func escapeFStringText(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}
