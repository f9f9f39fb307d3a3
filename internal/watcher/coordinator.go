package watcher

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// WatchCoordinator re-validates a document whenever the model file or the
// library changes.
type WatchCoordinator struct {
	files       FileWatcher
	pipeline    Pipeline
	modelPath   string
	libraryRoot string
	onPass      func(Pass)
	logger      *log.Logger
}

// NewWatchCoordinator creates a coordinator. modelPath and libraryRoot
// classify changed files; onPass receives the outcome of every pass.
func NewWatchCoordinator(files FileWatcher, pipeline Pipeline, modelPath, libraryRoot string, onPass func(Pass), logger *log.Logger) *WatchCoordinator {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if abs, err := filepath.Abs(modelPath); err == nil {
		modelPath = abs
	}
	if abs, err := filepath.Abs(libraryRoot); err == nil && libraryRoot != "" {
		libraryRoot = abs
	}
	return &WatchCoordinator{
		files:       files,
		pipeline:    pipeline,
		modelPath:   modelPath,
		libraryRoot: libraryRoot,
		onPass:      onPass,
		logger:      logger,
	}
}

// Start begins watching and routing changes to the pipeline.
// Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	if err := c.files.Start(ctx, func(files []string) { c.handleFileChange(ctx, files) }); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.logger.Warn("file watcher stop failed", "error", err)
	}
}

// handleFileChange runs one pass. File watching is paused for its duration
// so changes made meanwhile are batched into the next pass.
func (c *WatchCoordinator) handleFileChange(ctx context.Context, files []string) {
	if len(files) == 0 {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	pass := Pass{Files: files}
	for _, f := range files {
		switch {
		case f == c.modelPath:
			pass.ModelChanged = true
		case c.libraryRoot != "" && within(c.libraryRoot, f):
			pass.LibraryChanged = true
		}
	}
	if !pass.ModelChanged && !pass.LibraryChanged {
		return
	}

	c.logger.Info("change detected", "files", len(files), "model", pass.ModelChanged, "library", pass.LibraryChanged)
	pass.Err = c.run(ctx, pass)
	if pass.Err != nil {
		c.logger.Error("re-validation failed", "error", pass.Err)
	}

	if c.onPass != nil {
		c.onPass(pass)
	}
}

func (c *WatchCoordinator) run(ctx context.Context, pass Pass) error {
	c.pipeline.BeginPass()
	if pass.LibraryChanged {
		if err := c.pipeline.Refresh(ctx); err != nil {
			return err
		}
	}
	if pass.ModelChanged {
		if err := c.pipeline.LoadFile(c.modelPath); err != nil {
			return err
		}
	}
	return c.pipeline.Validate(ctx)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
