// Package session owns the state of one validation-then-import run: the loaded
// document, the library, the part registry and the diagnostics ledger.
// Callers create a Session, drive its stages in order, and Reset it before reuse.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mvp-joe/ldraw-import/internal/diag"
	"github.com/mvp-joe/ldraw-import/internal/ldraw"
	"github.com/mvp-joe/ldraw-import/internal/library"
	"github.com/mvp-joe/ldraw-import/internal/model"
	"github.com/mvp-joe/ldraw-import/internal/registry"
	"github.com/mvp-joe/ldraw-import/internal/storage"
)

// Resolver strategies.
const (
	ResolverWalk  = "walk"
	ResolverIndex = "index"
)

// DefaultLongImportThreshold is the unique-part count above which an import
// is considered long.
const DefaultLongImportThreshold = 50

// Options configures a Session.
type Options struct {
	Library library.Options

	// Resolver is ResolverWalk (default) or ResolverIndex.
	Resolver string

	// IndexPath is the SQLite part index used by ResolverIndex.
	// Empty means an in-memory index rebuilt on every SetLibrary.
	IndexPath string

	// CacheSize bounds the resolver cache. Zero disables caching.
	CacheSize int
	CacheTTL  time.Duration

	// Workers bounds concurrent library lookups during Validate.
	Workers int

	LongImportThreshold int

	// Logger receives debug traces; nil discards them.
	Logger *log.Logger

	// Progress receives resolution callbacks during Validate.
	Progress registry.ProgressReporter
}

// Session is one validation-then-import run. It is not safe for concurrent use.
type Session struct {
	id     string
	opts   Options
	logger *log.Logger

	filePath string
	doc      *ldraw.Document

	libRoot  string
	lib      *library.Library
	resolver library.Resolver
	cached   *library.CachedResolver
	indexDB  *sql.DB

	reg   *registry.Registry
	diags *diag.Collector
}

// New creates an empty session.
func New(opts Options) *Session {
	if opts.Resolver == "" {
		opts.Resolver = ResolverWalk
	}
	if opts.LongImportThreshold <= 0 {
		opts.LongImportThreshold = DefaultLongImportThreshold
	}

	id := uuid.New().String()
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return &Session{
		id:     id,
		opts:   opts,
		logger: logger.With("session", id[:8]),
		reg:    registry.New(),
		diags:  diag.NewCollector(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Diagnostics returns the session's ledger.
func (s *Session) Diagnostics() *diag.Collector { return s.diags }

// Registry returns the session's unique part registry.
func (s *Session) Registry() *registry.Registry { return s.reg }

// FilePath returns the path passed to the last LoadFile.
func (s *Session) FilePath() string { return s.filePath }

// Document returns the loaded document, or nil.
func (s *Session) Document() *ldraw.Document { return s.doc }

// Library returns the opened library, or nil.
func (s *Session) Library() *library.Library { return s.lib }

// Validated reports whether a validation pass completed since the last
// change of file or library.
func (s *Session) Validated() bool { return s.reg.Validated() }

// LoadFile reads and classifies the document at path. A file with no marker
// or reference lines still loads, with a format notice in the results.
func (s *Session) LoadFile(path string) error {
	s.doc = nil
	s.filePath = path
	s.reg.Reset()

	if path == "" {
		return s.setupError(NoFileSelected, MsgNoFileSelected, nil)
	}

	doc, err := ldraw.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.setupError(FileNotFound, MsgFileNotFound, err)
		}
		s.diags.Add(diag.Error, err.Error())
		return err
	}

	s.doc = doc
	if doc.Relevant() > 0 {
		s.diags.Add(diag.Result, MsgFileLoaded)
		if doc.IsMPD() {
			s.diags.Add(diag.Result, MsgFileIsMPD)
		}
	} else {
		s.diags.Add(diag.Result, MsgFileBadFormat)
	}

	s.logger.Debug("loaded document", "path", path, "lines", doc.Len(), "mpd", doc.IsMPD())
	return nil
}

// SetLibrary validates root as the library and prepares the resolver.
func (s *Session) SetLibrary(ctx context.Context, root string) error {
	s.closeResolver()
	s.libRoot = root
	s.lib = nil
	s.reg.Reset()

	lib, err := library.Open(root, s.opts.Library)
	switch {
	case errors.Is(err, library.ErrLibraryNotSet):
		return s.setupError(LibraryNotSet, MsgLibraryNotSet, err)
	case errors.Is(err, library.ErrIncorrectFolder):
		return s.setupError(IncorrectFolder, incorrectFolderMessage(s.markerFile()), err)
	case err != nil:
		s.diags.Add(diag.Error, err.Error())
		return err
	}

	resolver, err := s.newResolver(ctx, lib)
	if err != nil {
		s.closeResolver()
		s.diags.Add(diag.Error, err.Error())
		return err
	}

	s.lib = lib
	s.resolver = resolver
	s.diags.Add(diag.Result, MsgLibraryExists)
	s.logger.Debug("library set", "root", lib.Root(), "resolver", s.opts.Resolver)
	return nil
}

func (s *Session) markerFile() string {
	if s.opts.Library.MarkerFile != "" {
		return s.opts.Library.MarkerFile
	}
	return library.DefaultMarkerFile
}

func (s *Session) newResolver(ctx context.Context, lib *library.Library) (library.Resolver, error) {
	var base library.Resolver
	switch s.opts.Resolver {
	case ResolverWalk:
		base = library.NewWalkResolver(lib)
	case ResolverIndex:
		index, err := s.openIndex(ctx, lib)
		if err != nil {
			return nil, err
		}
		base = library.NewIndexResolver(index)
	default:
		return nil, fmt.Errorf("unknown resolver %q", s.opts.Resolver)
	}

	if s.opts.CacheSize <= 0 {
		return base, nil
	}
	cached, err := library.NewCachedResolver(base, s.opts.CacheSize, s.opts.CacheTTL)
	if err != nil {
		return nil, err
	}
	s.cached = cached
	return cached, nil
}

// openIndex opens the part index and rebuilds it when it is empty, was built
// for another library root, or the library changed since it was built.
func (s *Session) openIndex(ctx context.Context, lib *library.Library) (*storage.PartIndex, error) {
	path := s.opts.IndexPath
	if path == "" {
		path = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	s.indexDB = db

	index := storage.NewPartIndex(db)
	indexedRoot, err := index.LibraryRoot(ctx)
	if err != nil {
		return nil, err
	}
	count, err := index.Count(ctx)
	if err != nil {
		return nil, err
	}
	if indexedRoot == lib.Root() && count > 0 {
		lastIndexed, err := index.LastIndexed(ctx)
		if err != nil {
			return nil, err
		}
		stale, err := lib.ModifiedSince(ctx, lastIndexed)
		if err != nil {
			return nil, err
		}
		if !stale {
			s.logger.Debug("reusing part index", "path", path, "parts", count)
			return index, nil
		}
		s.logger.Debug("part index is stale", "path", path, "last_indexed", lastIndexed)
	}

	n, err := library.BuildIndex(ctx, lib, index, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("built part index", "path", path, "assets", n)
	return index, nil
}

// Refresh discards everything the resolver learned about the library, after
// the library changed on disk. The registry is invalidated; call Validate again.
// When the marker file disappeared, or a previous refresh failed, the library
// is set again from its root, reporting an incorrect folder until the marker
// is back.
func (s *Session) Refresh(ctx context.Context) error {
	if s.libRoot == "" {
		return s.setupError(NotReady, MsgNotReady, nil)
	}
	if s.lib == nil || !s.lib.HasMarker() {
		return s.SetLibrary(ctx, s.libRoot)
	}
	if s.cached != nil {
		s.cached.Invalidate()
	}
	s.reg.Reset()

	if s.indexDB == nil {
		return nil
	}
	n, err := library.BuildIndex(ctx, s.lib, storage.NewPartIndex(s.indexDB), nil)
	if err != nil {
		s.diags.Add(diag.Error, err.Error())
		return err
	}
	s.logger.Debug("rebuilt part index", "assets", n)
	return nil
}

// BeginPass clears the diagnostics ledger ahead of a re-validation pass, so
// errors from an earlier pass do not outlive the conditions that caused them.
func (s *Session) BeginPass() {
	s.diags.Clear()
}

// Validate observes every part reference of the loaded document against the
// library. The registry and the found/missing diagnostics are cleared first,
// so repeated passes yield the same result.
func (s *Session) Validate(ctx context.Context) error {
	if s.doc == nil || s.lib == nil {
		return s.setupError(NotReady, MsgNotReady, nil)
	}

	s.reg.Reset()
	s.diags.ClearCategory(diag.Found)
	s.diags.ClearCategory(diag.Missing)

	err := s.reg.ObserveDocument(ctx, s.doc, s.resolver, s.diags, registry.Options{
		Workers:  s.opts.Workers,
		Progress: s.opts.Progress,
	})
	if err != nil {
		s.diags.Add(diag.Error, err.Error())
		return err
	}

	s.diags.Add(diag.Result, MsgPartsParsed)
	sum := s.reg.Summary()
	s.logger.Debug("validated", "unique", sum.Unique, "found", sum.Found, "missing", sum.Missing)
	return nil
}

// BuildGraph builds the model graph of the validated document.
func (s *Session) BuildGraph() (*model.Graph, error) {
	if s.doc == nil || !s.reg.Validated() {
		return nil, s.setupError(NotReady, MsgNotReady, model.ErrNotValidated)
	}

	g, err := model.Build(s.doc, s.reg)
	if err != nil {
		return nil, err
	}

	for _, id := range g.Models() {
		m := g.Model(id)
		s.logger.Debug("model", "name", m.Name, "line", m.Line, "parts", len(m.Parts), "submodels", len(m.Submodels))
	}
	for _, d := range g.Dropped {
		s.logger.Debug("dropped reference", "model", d.Model, "line", d.Line, "ref", d.Ref, "reason", d.Reason)
	}
	return g, nil
}

// SubLibraries lists the library's sub-libraries; empty when no library is set.
func (s *Session) SubLibraries() ([]string, error) {
	if s.lib == nil {
		return []string{}, nil
	}
	return s.lib.SubLibraries()
}

// Reset clears the document, library, registry and diagnostics.
func (s *Session) Reset() {
	s.closeResolver()
	s.filePath = ""
	s.doc = nil
	s.libRoot = ""
	s.lib = nil
	s.reg.Reset()
	s.diags.Clear()
}

// Close releases the resolver's cache and index.
func (s *Session) Close() error {
	return s.closeResolver()
}

func (s *Session) closeResolver() error {
	s.resolver = nil
	if s.cached != nil {
		s.cached.Close()
		s.cached = nil
	}
	if s.indexDB != nil {
		err := s.indexDB.Close()
		s.indexDB = nil
		return err
	}
	return nil
}

func (s *Session) setupError(kind ErrorKind, msg string, err error) *SetupError {
	s.diags.Add(diag.Error, msg)
	return &SetupError{Kind: kind, Message: msg, Err: err}
}
