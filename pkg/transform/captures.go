package transform

import (
	"sort"
	"strings"

	"github.com/hyper-lang/hyperc/pkg/ast"
)

// CaptureAnalysis computes, per fragment, the variables its body reads but
// does not bind. The generator hoists fragments to standalone definitions
// and the captured variables become explicit parameters. Names bound at
// module level of the generated file (imports, declarations-zone
// definitions) stay visible to hoisted fragments and are never captured.
type CaptureAnalysis struct {
	moduleLevel map[string]bool
}

func (*CaptureAnalysis) Name() string { return "capture-analysis" }

func (p *CaptureAnalysis) Enter(n ast.Node, meta *Metadata) bool {
	if p.moduleLevel == nil {
		p.moduleLevel = map[string]bool{}
	}
	switch node := n.(type) {
	case *ast.Import:
		for _, name := range importedNames(node.Code) {
			p.moduleLevel[name] = true
		}
	case *ast.Definition:
		p.moduleLevel[node.Name] = true
	case *ast.Fragment:
		p.moduleLevel[node.Name] = true
		scope := newScope()
		collectNodes(node.Body, scope)
		var free []string
		for _, name := range scope.free() {
			if !p.moduleLevel[name] {
				free = append(free, name)
			}
		}
		meta.Captures = append(meta.Captures, FragmentCapture{
			Fragment: node.Name,
			Vars:     free,
		})
	}
	return true
}

func (*CaptureAnalysis) Exit(ast.Node, *Metadata) {}

// importedNames extracts the names an import statement binds.
func importedNames(stmt string) []string {
	stmt = strings.TrimSpace(stmt)
	var clause string
	if rest, ok := strings.CutPrefix(stmt, "from "); ok {
		_, imported, found := strings.Cut(rest, " import ")
		if !found {
			return nil
		}
		clause = imported
	} else if rest, ok := strings.CutPrefix(stmt, "import "); ok {
		clause = rest
	} else {
		return nil
	}

	var names []string
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if _, alias, ok := strings.Cut(part, " as "); ok {
			part = strings.TrimSpace(alias)
		} else if i := strings.IndexByte(part, '.'); i >= 0 {
			// import a.b binds a
			part = part[:i]
		}
		if isIdentWord(part) {
			names = append(names, part)
		}
	}
	return names
}

// scope tracks referenced and locally-bound identifiers while walking a
// fragment body.
type scope struct {
	refs  map[string]bool
	bound map[string]bool
}

func newScope() *scope {
	return &scope{refs: map[string]bool{}, bound: map[string]bool{}}
}

func (s *scope) free() []string {
	var vars []string
	for name := range s.refs {
		if !s.bound[name] && !pythonAmbient[name] {
			vars = append(vars, name)
		}
	}
	sort.Strings(vars)
	return vars
}

func (s *scope) ref(code string)  { scanIdentifiers(code, s.refs) }
func (s *scope) bind(name string) { s.bound[strings.TrimSpace(name)] = true }

// bindTargets binds every identifier on the left of an `in` or `as`, e.g.
// `i, (k, v)` from `for i, (k, v) in ...`.
func (s *scope) bindTargets(targets string) {
	for _, name := range strings.FieldsFunc(targets, func(r rune) bool {
		return r == ',' || r == '(' || r == ')' || r == '[' || r == ']' || r == ' ' || r == '*'
	}) {
		if isIdentWord(name) {
			s.bind(name)
		}
	}
}

func collectNodes(nodes []ast.Node, s *scope) {
	for _, n := range nodes {
		collectNode(n, s)
	}
}

func collectNode(n ast.Node, s *scope) {
	switch node := n.(type) {
	case *ast.Expression:
		s.ref(node.Expr)
	case *ast.Statement:
		collectStatement(node.Code, s)
	case *ast.Element:
		collectAttrs(node.Attributes, s)
		collectNodes(node.Children, s)
	case *ast.Component:
		s.ref(node.Name)
		collectAttrs(node.Attributes, s)
		collectNodes(node.Children, s)
	case *ast.Fragment:
		collectNodes(node.Body, s)
	case *ast.Slot:
		collectNodes(node.Fallback, s)
	case *ast.If:
		s.ref(node.Condition)
		collectNodes(node.Then, s)
		for _, elif := range node.Elifs {
			s.ref(elif.Condition)
			collectNodes(elif.Body, s)
		}
		collectNodes(node.Else, s)
	case *ast.For:
		s.ref(node.Iterable)
		s.bindTargets(node.Binding)
		collectNodes(node.Body, s)
	case *ast.While:
		s.ref(node.Condition)
		collectNodes(node.Body, s)
	case *ast.Match:
		s.ref(node.Expr)
		for _, c := range node.Cases {
			collectNodes(c.Body, s)
		}
	case *ast.With:
		items, targets, hasAs := strings.Cut(node.Items, " as ")
		s.ref(items)
		if hasAs {
			s.bindTargets(targets)
		}
		collectNodes(node.Body, s)
	case *ast.Try:
		collectNodes(node.Body, s)
		for _, ex := range node.Excepts {
			if ex.HasException {
				exc, target, hasAs := strings.Cut(ex.Exception, " as ")
				s.ref(exc)
				if hasAs {
					s.bindTargets(target)
				}
			}
			collectNodes(ex.Body, s)
		}
		collectNodes(node.Else, s)
		collectNodes(node.Finally, s)
	case *ast.Definition:
		s.bind(node.Name)
	}
}

func collectAttrs(attrs []ast.Attribute, s *scope) {
	for _, attr := range attrs {
		switch attr.Kind {
		case ast.AttrDynamic, ast.AttrSpread:
			s.ref(attr.Expr)
		case ast.AttrShorthand:
			s.ref(attr.Name)
		}
	}
}

// collectStatement separates assignment targets from the value expression
// so `total = total + n` both binds and references total.
func collectStatement(code string, s *scope) {
	code = strings.TrimSpace(code)
	if lhs, rhs, ok := splitAssignment(code); ok {
		s.ref(rhs)
		// name or name: type on the left binds; x.attr or x[i] references
		name, _, _ := strings.Cut(lhs, ":")
		name = strings.TrimSpace(name)
		if isIdentWord(name) {
			s.bind(name)
		} else {
			s.ref(lhs)
		}
		return
	}
	s.ref(code)
}

// splitAssignment finds a top-level `=` that is not a comparison, walrus,
// or augmented-assignment tail.
func splitAssignment(code string) (lhs, rhs string, ok bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(code) && code[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.ContainsAny(string(code[i-1]), "<>!=+-*/%&|^:@") {
				continue
			}
			return code[:i], code[i+1:], true
		}
	}
	return "", "", false
}

func isIdentWord(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// scanIdentifiers collects bare identifiers from a code snippet, skipping
// string literals, attribute access after '.', and keyword-argument names.
func scanIdentifiers(code string, into map[string]bool) {
	i := 0
	var prev byte
	for i < len(code) {
		c := code[i]
		if c == '"' || c == '\'' {
			quote := c
			i++
			for i < len(code) && code[i] != quote {
				if code[i] == '\\' {
					i++
				}
				i++
			}
			i++
			prev = quote
			continue
		}
		if isIdentStart(c) {
			start := i
			for i < len(code) && isIdentByte(code[i]) {
				i++
			}
			word := code[start:i]
			afterDot := prev == '.'
			kwarg := false
			if j := skipSpaces(code, i); j < len(code) && code[j] == '=' &&
				(j+1 >= len(code) || code[j+1] != '=') && (prev == '(' || prev == ',') {
				kwarg = true
			}
			if !afterDot && !kwarg && !pythonKeywords[word] {
				into[word] = true
			}
			prev = code[i-1]
			continue
		}
		if c != ' ' && c != '\t' {
			prev = c
		}
		i++
	}
}

func skipSpaces(code string, i int) int {
	for i < len(code) && (code[i] == ' ' || code[i] == '\t') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true, "match": true, "case": true,
}

// Names a fragment never needs passed in: builtins the templates lean on
// plus the runtime helpers and the implicit children parameters.
var pythonAmbient = map[string]bool{
	"abs": true, "all": true, "any": true, "bool": true, "dict": true,
	"enumerate": true, "filter": true, "float": true, "format": true,
	"frozenset": true, "getattr": true, "hasattr": true, "int": true,
	"isinstance": true, "iter": true, "len": true, "list": true,
	"map": true, "max": true, "min": true, "next": true, "print": true,
	"range": true, "repr": true, "reversed": true, "round": true,
	"set": true, "sorted": true, "str": true, "sum": true, "tuple": true,
	"type": true, "zip": true,
	"escape": true, "safe": true, "render_attr": true, "render_class": true,
	"render_style": true, "render_data": true, "render_aria": true,
	"spread_attrs": true, "replace_markers": true,
	"_content": true, "children": true,
}
