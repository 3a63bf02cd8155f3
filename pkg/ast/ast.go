// Package ast defines the node tree produced by the parser. The tree is a
// strict parent-owns-children structure: nodes hold value slices of their
// children and never point back at their parents.
package ast

import (
	"github.com/hyper-lang/hyperc/pkg/position"
)

// Tree is the parsed form of one template file, split into the declarations
// zone (before the --- separator) and the body zone.
type Tree struct {
	Decls  []Node
	Body   []Node
	Source string
}

// Node is the closed union of tree node kinds.
type Node interface {
	Span() position.Span
	node()
}

// Text is literal markup or prose content.
type Text struct {
	Content string
	Loc     position.Span
}

// Expression is a host-language expression from {...}. Values escape by
// default; safe() wrapping is honored by the runtime escape helper.
type Expression struct {
	Expr   string
	Escape bool
	Loc    position.Span
}

// Element is an HTML element with validated structure.
type Element struct {
	Tag         string
	TagLoc      position.Span
	Attributes  []Attribute
	Children    []Node
	SelfClosing bool
	Loc         position.Span
}

// Component is an invocation of another template: <{Name} ...>.
type Component struct {
	Name        string
	NameLoc     position.Span
	Attributes  []Attribute
	Children    []Node
	SelfClosing bool
	Loc         position.Span
}

// Fragment is a named inline template section. The generator hoists it to a
// standalone definition whose parameters are the free variables the
// analysis pass computed for it.
type Fragment struct {
	Name   string
	Body   []Node
	Loc    position.Span
	EndLoc position.Span
}

// Slot marks where caller-supplied content is rendered. A nil name is the
// default slot. Fallback renders when no content was supplied.
type Slot struct {
	Name     string
	HasName  bool
	Fallback []Node
	Loc      position.Span
}

// If is an if/elif/else chain. EndLoc records the explicit `end` line.
type If struct {
	Condition    string
	ConditionLoc position.Span
	Then         []Node
	Elifs        []ElifBranch
	Else         []Node
	HasElse      bool
	Loc          position.Span
	EndLoc       position.Span
}

type ElifBranch struct {
	Condition    string
	ConditionLoc position.Span
	Body         []Node
}

// For is a (possibly async) for loop over a host-language iterable.
type For struct {
	Binding     string
	Iterable    string
	IterableLoc position.Span
	Body        []Node
	Async       bool
	Loc         position.Span
	EndLoc      position.Span
}

// While is a while loop.
type While struct {
	Condition    string
	ConditionLoc position.Span
	Body         []Node
	Loc          position.Span
	EndLoc       position.Span
}

// Match is a match/case block.
type Match struct {
	Expr    string
	ExprLoc position.Span
	Cases   []Case
	Loc     position.Span
	EndLoc  position.Span
}

type Case struct {
	Pattern    string
	PatternLoc position.Span
	Body       []Node
	Loc        position.Span
}

// With is a (possibly async) context-manager block.
type With struct {
	Items    string
	ItemsLoc position.Span
	Body     []Node
	Async    bool
	Loc      position.Span
	EndLoc   position.Span
}

// Try is a try/except/else/finally block.
type Try struct {
	Body    []Node
	Excepts []Except
	Else    []Node
	HasElse bool
	Finally []Node
	Loc     position.Span
	EndLoc  position.Span
}

type Except struct {
	Exception    string
	HasException bool
	ExceptionLoc position.Span
	Body         []Node
	Loc          position.Span
}

// Statement is an opaque host-language line (or bracket-joined lines)
// passed through verbatim.
type Statement struct {
	Code string
	Loc  position.Span
}

// DefinitionKind distinguishes function and class definitions.
type DefinitionKind int

const (
	DefFunction DefinitionKind = iota
	DefClass
)

// Definition is a declarations-zone def/class. ContainsMarkup is set when
// the body yields markup, which turns the definition into an exported
// component function in generated code.
type Definition struct {
	Kind           DefinitionKind
	Signature      string
	SignatureLoc   position.Span
	Name           string
	Async          bool
	Body           []Node
	ContainsMarkup bool
	Loc            position.Span
	EndLoc         position.Span
}

// Import is an import statement passed through to the top of the output.
type Import struct {
	Code string
	Loc  position.Span
}

// Parameter is a typed top-level parameter declaration in the declarations
// zone: `name: type` or `name: type = default`.
type Parameter struct {
	Name       string
	Type       string
	Default    string
	HasDefault bool
	Loc        position.Span
}

// Decorator is an @... line preceding the generated function.
type Decorator struct {
	Code string
	Loc  position.Span
}

func (n *Text) Span() position.Span       { return n.Loc }
func (n *Expression) Span() position.Span { return n.Loc }
func (n *Element) Span() position.Span    { return n.Loc }
func (n *Component) Span() position.Span  { return n.Loc }
func (n *Fragment) Span() position.Span   { return n.Loc }
func (n *Slot) Span() position.Span       { return n.Loc }
func (n *If) Span() position.Span         { return n.Loc }
func (n *For) Span() position.Span        { return n.Loc }
func (n *While) Span() position.Span      { return n.Loc }
func (n *Match) Span() position.Span      { return n.Loc }
func (n *With) Span() position.Span       { return n.Loc }
func (n *Try) Span() position.Span        { return n.Loc }
func (n *Statement) Span() position.Span  { return n.Loc }
func (n *Definition) Span() position.Span { return n.Loc }
func (n *Import) Span() position.Span     { return n.Loc }
func (n *Parameter) Span() position.Span  { return n.Loc }
func (n *Decorator) Span() position.Span  { return n.Loc }

func (*Text) node()       {}
func (*Expression) node() {}
func (*Element) node()    {}
func (*Component) node()  {}
func (*Fragment) node()   {}
func (*Slot) node()       {}
func (*If) node()         {}
func (*For) node()        {}
func (*While) node()      {}
func (*Match) node()      {}
func (*With) node()       {}
func (*Try) node()        {}
func (*Statement) node()  {}
func (*Definition) node() {}
func (*Import) node()     {}
func (*Parameter) node()  {}
func (*Decorator) node()  {}
