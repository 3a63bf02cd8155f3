// Package transform runs the analysis passes between parsing and code
// generation. Passes walk the tree read-only and accumulate facts into a
// Metadata value; they never rewrite nodes.
package transform

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hyper-lang/hyperc/pkg/ast"
)

// Visitor receives every node during a walk. Enter returning false skips
// the node's children; Exit still runs.
type Visitor interface {
	Enter(n ast.Node, meta *Metadata) bool
	Exit(n ast.Node, meta *Metadata)
}

// Pass is one named analysis over the tree.
type Pass interface {
	Visitor
	Name() string
}

// Analyze runs the standard passes over the tree and returns the collected
// metadata. Pass order is fixed so the metadata slices come out in the same
// order for the same input.
func Analyze(ctx context.Context, tree *ast.Tree) *Metadata {
	meta := NewMetadata()
	passes := []Pass{
		&HelperDetection{},
		&AsyncDetection{},
		&SlotDetection{},
		&CaptureAnalysis{},
	}
	for _, pass := range passes {
		Walk(tree.Decls, pass, meta)
		Walk(tree.Body, pass, meta)
	}
	zerolog.Ctx(ctx).Debug().
		Strs("helpers", meta.Helpers).
		Bool("is_async", meta.IsAsync).
		Int("slots", len(meta.Slots)).
		Int("fragments", len(meta.Captures)).
		Msg("analysis complete")
	return meta
}

// Walk visits nodes depth-first in source order.
func Walk(nodes []ast.Node, v Visitor, meta *Metadata) {
	for _, n := range nodes {
		if v.Enter(n, meta) {
			switch node := n.(type) {
			case *ast.Element:
				Walk(node.Children, v, meta)
			case *ast.Component:
				Walk(node.Children, v, meta)
			case *ast.Fragment:
				Walk(node.Body, v, meta)
			case *ast.Slot:
				Walk(node.Fallback, v, meta)
			case *ast.If:
				Walk(node.Then, v, meta)
				for _, elif := range node.Elifs {
					Walk(elif.Body, v, meta)
				}
				Walk(node.Else, v, meta)
			case *ast.For:
				Walk(node.Body, v, meta)
			case *ast.While:
				Walk(node.Body, v, meta)
			case *ast.Match:
				for _, c := range node.Cases {
					Walk(c.Body, v, meta)
				}
			case *ast.With:
				Walk(node.Body, v, meta)
			case *ast.Try:
				Walk(node.Body, v, meta)
				for _, ex := range node.Excepts {
					Walk(ex.Body, v, meta)
				}
				Walk(node.Else, v, meta)
				Walk(node.Finally, v, meta)
			case *ast.Definition:
				Walk(node.Body, v, meta)
			}
		}
		v.Exit(n, meta)
	}
}
