package watcher

import "context"

// FileWatcher monitors model and library files for changes with debouncing
// and pause/resume support.
type FileWatcher interface {
	// Start begins watching the configured targets, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Pipeline is the part of a session the coordinator drives after a change.
type Pipeline interface {
	// BeginPass clears what an earlier pass reported.
	BeginPass()

	// LoadFile re-reads the model document.
	LoadFile(path string) error

	// Refresh discards what the resolver knows about the library.
	Refresh(ctx context.Context) error

	// Validate resolves the document's parts against the library.
	Validate(ctx context.Context) error
}

// Pass describes one re-validation triggered by file changes.
type Pass struct {
	Files          []string
	ModelChanged   bool
	LibraryChanged bool
	Err            error
}
