package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/hyper-lang/hyperc/pkg/compile"
	"github.com/hyper-lang/hyperc/pkg/daemon"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
	"github.com/hyper-lang/hyperc/pkg/project"
)

type Handler struct {
	stdin      bool
	jsonOutput bool
	injection  bool
	name       string
	configPath string
	check      bool
}

func NewGenerateCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "generate [files or directories]",
		Short: "compile hyper templates to python source",
	}

	cmd.Flags().BoolVar(&me.stdin, "stdin", false, "read one template from stdin, write to stdout")
	cmd.Flags().BoolVar(&me.jsonOutput, "json", false, "emit the result as JSON (stdin mode)")
	cmd.Flags().BoolVar(&me.injection, "injection", false, "include editor ranges and injections")
	cmd.Flags().StringVar(&me.name, "name", "", "override the render function name")
	cmd.Flags().StringVar(&me.configPath, "config", project.ConfigFileName, "project config file")
	cmd.Flags().BoolVar(&me.check, "check", false, "compile without writing output files")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if me.stdin {
			return me.RunStdin(cmd.Context(), os.Stdin, os.Stdout)
		}
		return me.Run(cmd.Context(), afero.NewOsFs(), args)
	}

	return cmd
}

// RunStdin compiles a single template from in and writes the result to
// out. In JSON mode both success and source errors go to out as one
// JSON document, so a supervising process only has to parse stdout.
func (me *Handler) RunStdin(ctx context.Context, in io.Reader, out io.Writer) error {
	source, err := io.ReadAll(in)
	if err != nil {
		return errors.Errorf("reading stdin: %w", err)
	}

	result, cerr := compile.Compile(ctx, string(source), compile.Options{
		Name:              me.name,
		IncludeInjections: me.injection,
	})

	if me.jsonOutput {
		var doc any
		if cerr != nil {
			doc = daemon.ErrorResponse{
				Error:      cerr.Message,
				Kind:       cerr.Kind.String(),
				Diagnostic: diagnostic.Render(cerr, string(source), "<stdin>", false),
			}
		} else {
			doc = daemon.Response{
				Compiled:   result.Code,
				Mappings:   result.Mappings,
				Ranges:     result.Ranges,
				Injections: result.Injections,
			}
		}
		enc := json.NewEncoder(out)
		if err := enc.Encode(doc); err != nil {
			return errors.Errorf("encoding result: %w", err)
		}
		return nil
	}

	if cerr != nil {
		fmt.Fprint(os.Stderr, diagnostic.Render(cerr, string(source), "<stdin>", useColor()))
		return errors.New("compilation failed")
	}
	if _, err := io.WriteString(out, result.Code); err != nil {
		return errors.Errorf("writing output: %w", err)
	}
	return nil
}

// Run compiles the given files and directories. Directories are searched
// for templates per the project config. All failures are reported; one
// bad template does not stop the rest.
func (me *Handler) Run(ctx context.Context, fsys afero.Fs, args []string) error {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	cfg, err := project.Load(fsys, me.configPath)
	if err != nil {
		return err
	}

	files, err := me.collectTargets(fsys, cfg, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no templates found")
	}

	var errs *multierror.Error
	compiled := 0
	for _, file := range files {
		outPath, err := CompileOne(ctx, fsys, cfg, file, me.check)
		if err != nil {
			var cerr *diagnostic.Error
			if errors.As(err, &cerr) {
				source, _ := afero.ReadFile(fsys, file)
				fmt.Fprint(os.Stderr, diagnostic.Render(cerr, string(source), file, useColor()))
			} else {
				log.Error().Err(err).Str("file", file).Msg("compilation failed")
			}
			errs = multierror.Append(errs, errors.Errorf("%s: %w", file, err))
			continue
		}
		compiled++
		if !me.check {
			log.Debug().Str("file", file).Str("output", outPath).Msg("compiled")
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return errors.Errorf("%d of %d templates failed: %w", len(errs.Errors), len(files), err)
	}

	check := color.New(color.FgGreen).Sprint("✓")
	fmt.Fprintf(os.Stderr, "%s compiled %d template(s) in %s\n", check, compiled, formatDuration(time.Since(start)))
	return nil
}

func (me *Handler) collectTargets(fsys afero.Fs, cfg *project.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	for _, arg := range args {
		info, err := fsys.Stat(arg)
		if err != nil {
			return nil, errors.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, filepath.ToSlash(arg))
			continue
		}
		found, err := project.Discover(fsys, arg, cfg)
		if err != nil {
			return nil, err
		}
		for _, rel := range found {
			files = append(files, path.Join(filepath.ToSlash(arg), rel))
		}
	}
	return files, nil
}

// CompileOne compiles one template file and writes its module next to it
// per the project config. The watcher reuses this for incremental builds.
func CompileOne(ctx context.Context, fsys afero.Fs, cfg *project.Config, file string, dryRun bool) (string, error) {
	source, err := afero.ReadFile(fsys, file)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", file, err)
	}

	outPath := cfg.OutputPath(file)
	indent := cfg.Generate.Indent
	if indent == "" {
		indent = project.IndentFor(fsys, outPath)
	}

	result, cerr := compile.Compile(ctx, string(source), compile.Options{
		Name:              functionNameFor(file),
		IncludeInjections: cfg.Generate.Injections,
		Indent:            indent,
		RuntimeModule:     cfg.Generate.Runtime,
	})
	if cerr != nil {
		return "", cerr
	}
	if dryRun {
		return outPath, nil
	}

	if dir := path.Dir(outPath); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fsys, outPath, []byte(result.Code), 0o644); err != nil {
		return "", errors.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// functionNameFor derives the render function name from the file name, so
// card.hyper compiles to def Card. The generator handles the case change.
func functionNameFor(file string) string {
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func useColor() bool {
	return !color.NoColor
}
