package project

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Discover walks root on fs and returns the template files matched by
// the config's include globs and not excluded, as sorted paths relative
// to root. Glob patterns use doublestar semantics, so "**" crosses
// directory boundaries.
func Discover(fsys afero.Fs, root string, cfg *Config) ([]string, error) {
	var found []string

	err := afero.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := matchesAny(cfg.Templates.Include, rel)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		excluded, err := matchesAny(cfg.Templates.Exclude, rel)
		if err != nil {
			return err
		}
		if excluded {
			return nil
		}

		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, errors.Errorf("bad glob %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
