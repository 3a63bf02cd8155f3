package compile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyper-lang/hyperc/pkg/compile"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
)

func TestCompile_Success(t *testing.T) {
	res, err := compile.Compile(context.Background(), "title: str\n---\n<h1>{title}</h1>", compile.Options{})
	require.Nil(t, err)
	require.Contains(t, res.Code, "def Render(*, title: str):")
	require.NotEmpty(t, res.Mappings)
}

func TestCompile_UnclosedElementAtLineOne(t *testing.T) {
	res, err := compile.Compile(context.Background(), "<div>\n", compile.Options{})
	require.NotNil(t, err)
	require.Equal(t, diagnostic.UnclosedElement, err.Kind)
	require.Equal(t, 0, err.Span.Start.Line)
	require.Empty(t, res.Code)
}

func TestCompile_NameAndInjections(t *testing.T) {
	res, err := compile.Compile(context.Background(), "<p>{x}</p>\n", compile.Options{
		Name:              "nav_bar",
		IncludeInjections: true,
	})
	require.Nil(t, err)
	require.Contains(t, res.Code, "def NavBar():")
	require.NotEmpty(t, res.Ranges)
	require.NotEmpty(t, res.Injections)
}

func TestCompile_NoArtifactOnError(t *testing.T) {
	res, err := compile.Compile(context.Background(), "<p>{broken\n", compile.Options{IncludeInjections: true})
	require.NotNil(t, err)
	require.Equal(t, diagnostic.UnclosedExpression, err.Kind)
	require.Empty(t, res.Code)
	require.Empty(t, res.Injections)
}
