// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package resource loads application resources from a
// file system.
// Loaders are registered in a Set, which is a plain value
// owned by the application.
package resource

import (
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/internal/logging"
)

// Loader is the interface that defines a resource loader.
type Loader interface {
	// Accepts reports whether the loader handles the
	// file at path. id is path without its extension.
	Accepts(path, id string) bool

	// Load loads the file at path.
	Load(fsys fs.FS, path, id string) error
}

// Set is a collection of loaders.
// The first loader that accepts a file loads it.
type Set struct {
	loaders []Loader
	log     *slog.Logger
}

// NewSet creates a new Set.
// If log is nil, the shared logger is used.
func NewSet(log *slog.Logger, loaders ...Loader) *Set {
	return &Set{
		loaders: append([]Loader(nil), loaders...),
		log:     logging.Or(log),
	}
}

// Add appends l to the set.
func (s *Set) Add(l Loader) { s.loaders = append(s.loaders, l) }

// Load walks fsys and loads every regular file that a
// loader accepts.
// Files that no loader accepts are skipped.
// It returns the number of files loaded.
func (s *Set) Load(fsys fs.FS) (n int, err error) {
	err = fs.WalkDir(fsys, ".", func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !de.Type().IsRegular() {
			return nil
		}
		id := strings.TrimSuffix(p, path.Ext(p))
		for _, l := range s.loaders {
			if !l.Accepts(p, id) {
				continue
			}
			if err := l.Load(fsys, p, id); err != nil {
				return errors.Wrapf(err, "resource: load %s", p)
			}
			s.log.Debug("resource loaded", "path", p, "id", id)
			n++
			return nil
		}
		s.log.Debug("resource skipped", "path", p)
		return nil
	})
	return
}
