// Package library resolves LDraw part identifiers against an on-disk asset
// library: a directory tree gated by a marker file, holding one asset file per
// part, optionally grouped into prefixed sub-libraries.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Library layout defaults.
const (
	DefaultMarkerFile       = "categories.xml"
	DefaultAssetExtension   = ".obj"
	DefaultSubLibraryPrefix = "L_"
)

var (
	// ErrLibraryNotSet indicates an empty library root.
	ErrLibraryNotSet = errors.New("library not set")

	// ErrIncorrectFolder indicates a root without the marker file.
	ErrIncorrectFolder = errors.New("incorrect folder selected")
)

// Options describes the library layout.
type Options struct {
	MarkerFile       string   // file that must exist directly under the root
	AssetExtension   string   // extension of part assets, with leading dot
	SubLibraryPrefix string   // prefix of sub-library directories
	Ignore           []string // glob patterns (relative, '/'-separated) skipped during walks
}

// DefaultOptions returns the standard library layout.
func DefaultOptions() Options {
	return Options{
		MarkerFile:       DefaultMarkerFile,
		AssetExtension:   DefaultAssetExtension,
		SubLibraryPrefix: DefaultSubLibraryPrefix,
	}
}

// Library is a validated library root. Only Open creates one, so holding a
// *Library means the marker file was present.
type Library struct {
	root   string
	opts   Options
	ignore []glob.Glob
}

// Open validates root and returns a Library.
func Open(root string, opts Options) (*Library, error) {
	if root == "" {
		return nil, ErrLibraryNotSet
	}
	if opts.MarkerFile == "" {
		opts.MarkerFile = DefaultMarkerFile
	}
	if opts.AssetExtension == "" {
		opts.AssetExtension = DefaultAssetExtension
	}
	if opts.SubLibraryPrefix == "" {
		opts.SubLibraryPrefix = DefaultSubLibraryPrefix
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library root: %w", err)
	}

	if !hasMarker(abs, opts.MarkerFile) {
		return nil, fmt.Errorf("%w: requires '%s'", ErrIncorrectFolder, opts.MarkerFile)
	}

	lib := &Library{root: abs, opts: opts}
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		lib.ignore = append(lib.ignore, g)
	}

	return lib, nil
}

// HasMarker reports whether the marker file is still present under the root.
func (l *Library) HasMarker() bool {
	return hasMarker(l.root, l.opts.MarkerFile)
}

func hasMarker(root, marker string) bool {
	info, err := os.Stat(filepath.Join(root, marker))
	return err == nil && !info.IsDir()
}

// Root returns the absolute library root.
func (l *Library) Root() string { return l.root }

// Options returns the layout options the library was opened with.
func (l *Library) Options() Options { return l.opts }

// AssetName returns the file name backing a part ID.
func (l *Library) AssetName(partID string) string {
	return partID + l.opts.AssetExtension
}

// SubLibraries lists the library's sub-libraries.
func (l *Library) SubLibraries() ([]string, error) {
	return ListSubLibraries(l.root, l.opts.SubLibraryPrefix)
}
