package transform

import (
	"strings"

	"github.com/hyper-lang/hyperc/pkg/ast"
)

// HelperDetection records which runtime helpers the generated code will
// call, so the generator imports only what it needs.
type HelperDetection struct{}

func (*HelperDetection) Name() string { return "helper-detection" }

func (*HelperDetection) Enter(n ast.Node, meta *Metadata) bool {
	switch node := n.(type) {
	case *ast.Expression:
		if node.Escape {
			meta.AddHelper("escape")
		}
		if strings.Contains(node.Expr, "safe(") {
			meta.AddHelper("safe")
		}
	case *ast.Element:
		detectAttrHelpers(node.Attributes, meta)
	case *ast.Component:
		detectAttrHelpers(node.Attributes, meta)
	}
	return true
}

func (*HelperDetection) Exit(ast.Node, *Metadata) {}

var attrHelpers = []string{
	"render_class", "render_style", "render_attr", "render_data", "render_aria",
}

func detectAttrHelpers(attrs []ast.Attribute, meta *Metadata) {
	for _, attr := range attrs {
		switch attr.Kind {
		case ast.AttrDynamic:
			for _, helper := range attrHelpers {
				if strings.Contains(attr.Expr, helper+"(") {
					meta.AddHelper(helper)
				}
			}
		case ast.AttrSpread:
			if strings.Contains(attr.Expr, "spread_attrs(") {
				meta.AddHelper("spread_attrs")
			}
		}
	}
}

// AsyncDetection flags the component async when anything in the body
// awaits. Nested definitions manage their own async-ness and are skipped.
type AsyncDetection struct{}

func (*AsyncDetection) Name() string { return "async-detection" }

func (*AsyncDetection) Enter(n ast.Node, meta *Metadata) bool {
	switch node := n.(type) {
	case *ast.Definition:
		return false
	case *ast.Expression:
		if containsAwait(node.Expr) {
			meta.IsAsync = true
		}
	case *ast.Statement:
		if containsAwait(node.Code) {
			meta.IsAsync = true
		}
	case *ast.If:
		if containsAwait(node.Condition) {
			meta.IsAsync = true
		}
		for _, elif := range node.Elifs {
			if containsAwait(elif.Condition) {
				meta.IsAsync = true
			}
		}
	case *ast.For:
		if node.Async || containsAwait(node.Iterable) {
			meta.IsAsync = true
		}
	case *ast.While:
		if containsAwait(node.Condition) {
			meta.IsAsync = true
		}
	case *ast.With:
		if node.Async || containsAwait(node.Items) {
			meta.IsAsync = true
		}
	}
	return true
}

func (*AsyncDetection) Exit(ast.Node, *Metadata) {}

func containsAwait(code string) bool {
	return strings.Contains(code, "await ")
}

// SlotDetection collects the slots the template renders, which become
// content parameters on the generated function. Slots inside nested
// definitions belong to those definitions, not the outer signature.
type SlotDetection struct{}

func (*SlotDetection) Name() string { return "slot-detection" }

func (*SlotDetection) Enter(n ast.Node, meta *Metadata) bool {
	switch node := n.(type) {
	case *ast.Definition:
		return false
	case *ast.Slot:
		if node.HasName {
			meta.AddSlot(node.Name)
		} else {
			meta.AddSlot("")
		}
	}
	return true
}

func (*SlotDetection) Exit(ast.Node, *Metadata) {}
