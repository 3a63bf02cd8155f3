package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	generatecmd "github.com/hyper-lang/hyperc/cmd/hyperc/generate"
	"github.com/hyper-lang/hyperc/pkg/diagnostic"
	"github.com/hyper-lang/hyperc/pkg/project"
)

type Handler struct {
	configPath string
}

func NewWatchCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "recompile templates as they change",
	}

	cmd.Flags().StringVar(&me.configPath, "config", project.ConfigFileName, "project config file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		return me.Run(cmd.Context(), root)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, root string) error {
	log := zerolog.Ctx(ctx)
	fsys := afero.NewOsFs()

	cfg, err := project.Load(fsys, me.configPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, root); err != nil {
		return err
	}
	log.Info().Str("root", root).Msg("watching for template changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			me.handleEvent(ctx, fsys, cfg, watcher, event)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(werr).Msg("watch error")
		}
	}
}

func (me *Handler) handleEvent(ctx context.Context, fsys afero.Fs, cfg *project.Config, watcher *fsnotify.Watcher, event fsnotify.Event) {
	log := zerolog.Ctx(ctx)

	// New directories need their own watch before anything inside them
	// produces events.
	if event.Has(fsnotify.Create) {
		if info, err := fsys.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(watcher, event.Name); err != nil {
				log.Warn().Err(err).Str("dir", event.Name).Msg("could not watch new directory")
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	file := filepath.ToSlash(event.Name)
	if !strings.HasSuffix(file, ".hyper") {
		return
	}

	outPath, err := generatecmd.CompileOne(ctx, fsys, cfg, file, false)
	if err != nil {
		var cerr *diagnostic.Error
		if errors.As(err, &cerr) {
			source, _ := afero.ReadFile(fsys, file)
			log.Error().Str("file", file).Msg("\n" + diagnostic.Render(cerr, string(source), file, false))
		} else {
			log.Error().Err(err).Str("file", file).Msg("recompile failed")
		}
		return
	}
	log.Info().Str("file", file).Str("output", outPath).Msg("recompiled")
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(p); err != nil {
			return errors.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
