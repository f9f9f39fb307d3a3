package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// Walk visits every asset file under the root in lexical order, skipping
// ignored paths. fn receives the absolute path and the part ID (file name
// without the asset extension). Returning fs.SkipAll from fn stops the walk.
// An unreadable directory fails the walk.
func (l *Library) Walk(ctx context.Context, fn func(path, partID string, d fs.DirEntry) error) error {
	return filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if path == l.root {
			return nil
		}

		relPath, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if l.shouldIgnore(relPath, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), l.opts.AssetExtension) {
			return nil
		}

		return fn(path, strings.TrimSuffix(d.Name(), l.opts.AssetExtension), d)
	})
}

// ModifiedSince reports whether any non-ignored directory of the library,
// the root included, changed after t. Adding, removing or renaming an asset
// updates its directory's modification time.
func (l *Library) ModifiedSince(ctx context.Context, t time.Time) (bool, error) {
	modified := false
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != l.root {
			rel, err := filepath.Rel(l.root, path)
			if err != nil {
				return err
			}
			if l.shouldIgnore(filepath.ToSlash(rel), true) {
				return fs.SkipDir
			}
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.ModTime().After(t) {
			modified = true
			return fs.SkipAll
		}
		return nil
	})
	return modified, err
}

// shouldIgnore checks a relative path against the ignore patterns. A
// directory also matches patterns written as "dir/**".
func (l *Library) shouldIgnore(relPath string, isDir bool) bool {
	for _, g := range l.ignore {
		if g.Match(relPath) {
			return true
		}
		if isDir && g.Match(relPath+"/**") {
			return true
		}
	}
	return false
}

// subLibraryOf returns the top-level directory of path when it carries the
// sub-library prefix.
func (l *Library) subLibraryOf(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return ""
	}
	first, _, found := strings.Cut(filepath.ToSlash(rel), "/")
	if !found || !strings.HasPrefix(first, l.opts.SubLibraryPrefix) {
		return ""
	}
	return first
}
