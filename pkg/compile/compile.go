// Package compile is the one-call entry point for the whole pipeline:
// parse, analyze, generate. Everything downstream (CLI, daemon, watcher)
// goes through Compile so the stages always run in the same order.
package compile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyper-lang/hyperc/pkg/diagnostic"
	"github.com/hyper-lang/hyperc/pkg/generate"
	"github.com/hyper-lang/hyperc/pkg/parser"
	"github.com/hyper-lang/hyperc/pkg/transform"
)

// Options for one compilation.
type Options struct {
	// Name overrides the generated function name.
	Name string

	// IncludeInjections requests range and injection computation. Editors
	// need it; batch compilation skips it for speed.
	IncludeInjections bool

	// Indent is the indentation unit for generated code; empty means four
	// spaces.
	Indent string

	// RuntimeModule overrides the Python module helpers are imported from.
	RuntimeModule string
}

// Compile turns template source into Python source plus editor metadata.
// A non-nil *diagnostic.Error means the source is invalid; no partial
// artifact is produced.
func Compile(ctx context.Context, source string, opts Options) (generate.Result, *diagnostic.Error) {
	start := time.Now()

	tree, perr := parser.Parse(ctx, source)
	if perr != nil {
		zerolog.Ctx(ctx).Debug().
			Str("kind", perr.Kind.String()).
			Str("message", perr.Message).
			Msg("compile failed")
		return generate.Result{}, perr
	}

	meta := transform.Analyze(ctx, tree)
	result := generate.Generate(ctx, tree, meta, generate.Options{
		FunctionName:      opts.Name,
		IncludeInjections: opts.IncludeInjections,
		Indent:            opts.Indent,
		RuntimeModule:     opts.RuntimeModule,
	})

	zerolog.Ctx(ctx).Debug().
		Dur("elapsed", time.Since(start)).
		Int("source_bytes", len(source)).
		Int("compiled_bytes", len(result.Code)).
		Msg("compiled")
	return result, nil
}
