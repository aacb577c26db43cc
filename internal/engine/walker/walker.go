// Package walker lists the source files under a set of roots.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigrogerio/daedalus/internal/core/errors"

	"github.com/gobwas/glob"
)

const DefaultSuffix = ".py"

type Options struct {
	// Suffix filters file names; empty means DefaultSuffix.
	Suffix string
	// ExcludeDirs and ExcludeFiles are glob patterns matched against base names.
	ExcludeDirs  []string
	ExcludeFiles []string
}

// Skipped is a path the walk could not enter or read.
type Skipped struct {
	Path string
	Err  error
}

type Result struct {
	Files   []string
	Skipped []Skipped
}

type Walker struct {
	suffix    string
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
}

// New compiles the exclude patterns.
func New(opts Options) (*Walker, error) {
	w := &Walker{suffix: opts.Suffix}
	if w.suffix == "" {
		w.suffix = DefaultSuffix
	}
	var err error
	if w.dirGlobs, err = compile(opts.ExcludeDirs); err != nil {
		return nil, err
	}
	if w.fileGlobs, err = compile(opts.ExcludeFiles); err != nil {
		return nil, err
	}
	return w, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid exclude pattern %q", p))
		}
		out = append(out, g)
	}
	return out, nil
}

// Walk visits every root. Unreadable roots and subtrees are logged, recorded
// in Result.Skipped and left out; the walk fails only when no root could be
// read. Symlinked directories are not followed. File order follows the
// traversal and is not otherwise guaranteed.
func (w *Walker) Walk(ctx context.Context, roots ...string) (Result, error) {
	var res Result
	var firstErr error
	failed := 0
	for _, root := range roots {
		err := w.walkRoot(ctx, root, &res)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		slog.Warn("skipping unreadable root", "path", root, "error", err)
		res.Skipped = append(res.Skipped, Skipped{Path: filepath.Clean(root), Err: err})
		failed++
		if firstErr == nil {
			firstErr = err
		}
	}
	if failed > 0 && failed == len(roots) {
		return res, firstErr
	}
	return res, nil
}

func (w *Walker) walkRoot(ctx context.Context, root string, res *Result) error {
	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "walk root"), errors.CtxPath, root)
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			res.Skipped = append(res.Skipped, Skipped{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		base := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if matchAny(w.dirGlobs, base) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(base, w.suffix) || matchAny(w.fileGlobs, base) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		res.Files = append(res.Files, path)
		return nil
	})
}

// Match reports whether path would be listed by a walk, ignoring its
// parent directories. Watch mode uses it to filter change events.
func (w *Walker) Match(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, w.suffix) && !matchAny(w.fileGlobs, base)
}

// ExcludedDir reports whether a directory base name is excluded.
func (w *Walker) ExcludedDir(path string) bool {
	return matchAny(w.dirGlobs, filepath.Base(path))
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
