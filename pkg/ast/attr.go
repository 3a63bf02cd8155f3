package ast

import "github.com/hyper-lang/hyperc/pkg/position"

// AttrKind classifies how an attribute value is produced.
type AttrKind int

const (
	// AttrStatic is name="value".
	AttrStatic AttrKind = iota
	// AttrDynamic is name={expr}.
	AttrDynamic
	// AttrBoolean is a bare attribute name.
	AttrBoolean
	// AttrShorthand is {name}, shorthand for name={name}.
	AttrShorthand
	// AttrSpread is {**expr}, expanding a dict into attributes.
	AttrSpread
	// AttrSlotTarget is {...name}, assigning an element to a named slot
	// of the enclosing component.
	AttrSlotTarget
)

// Attribute is one attribute on an element or component tag.
type Attribute struct {
	Kind    AttrKind
	Name    string
	Value   string
	Expr    string
	ExprLoc position.Span
	Loc     position.Span
}

// NamedKey returns the attribute name used for duplicate detection; spread
// and slot-target attributes have no colliding name.
func (a Attribute) NamedKey() (string, bool) {
	switch a.Kind {
	case AttrStatic, AttrDynamic, AttrBoolean, AttrShorthand:
		return a.Name, true
	default:
		return "", false
	}
}
