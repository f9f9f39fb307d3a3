package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/ldraw-import/internal/library"
	"github.com/mvp-joe/ldraw-import/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for WatchCoordinator:
// - Every pass starts by clearing what the previous pass reported
// - Model change reloads the file, then validates
// - Library change refreshes the library, then validates
// - Both changed: refresh, reload, validate in that order
// - Unrelated files are ignored
// - Pipeline failures are reported in the pass and stop the pass
// - File watching is paused during a pass
// - Start propagates file watcher start errors; cancellation stops the watcher
// - With a real session, errors of a failed pass (model briefly absent, marker
//   removed) are gone after the next clean pass

type mockFileWatcher struct {
	mu          sync.Mutex
	startErr    error
	callback    func(files []string)
	pauseCount  int
	resumeCount int
	stopCalled  bool
}

func (m *mockFileWatcher) Start(_ context.Context, callback func(files []string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = callback
	return m.startErr
}

func (m *mockFileWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
	return nil
}

func (m *mockFileWatcher) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCount++
}

func (m *mockFileWatcher) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCount++
}

func (m *mockFileWatcher) trigger(files ...string) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	cb(files)
}

type mockPipeline struct {
	mu    sync.Mutex
	calls []string
	fail  string
}

func (p *mockPipeline) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if call == p.fail {
		return errors.New(call + " failed")
	}
	return nil
}

func (p *mockPipeline) BeginPass()                         { p.record("begin") }
func (p *mockPipeline) LoadFile(path string) error         { return p.record("load") }
func (p *mockPipeline) Refresh(ctx context.Context) error  { return p.record("refresh") }
func (p *mockPipeline) Validate(ctx context.Context) error { return p.record("validate") }

type fixture struct {
	files    *mockFileWatcher
	pipeline *mockPipeline
	passes   chan Pass
	model    string
	library  string
	cancel   context.CancelFunc
	done     chan error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		files:    &mockFileWatcher{},
		pipeline: &mockPipeline{},
		passes:   make(chan Pass, 4),
		model:    filepath.Join(dir, "car.mpd"),
		library:  filepath.Join(dir, "lib"),
		done:     make(chan error, 1),
	}
	c := NewWatchCoordinator(f.files, f.pipeline, f.model, f.library, func(p Pass) { f.passes <- p }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		f.files.mu.Lock()
		defer f.files.mu.Unlock()
		return f.files.callback != nil
	}, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

func (f *fixture) pass(t *testing.T) Pass {
	t.Helper()
	select {
	case p := <-f.passes:
		return p
	case <-time.After(time.Second):
		t.Fatal("no pass reported")
		return Pass{}
	}
}

func TestWatchCoordinator_ModelChange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.files.trigger(f.model)

	p := f.pass(t)
	assert.True(t, p.ModelChanged)
	assert.False(t, p.LibraryChanged)
	assert.NoError(t, p.Err)
	assert.Equal(t, []string{"begin", "load", "validate"}, f.pipeline.calls)
	assert.Equal(t, 1, f.files.pauseCount)
	assert.Equal(t, 1, f.files.resumeCount)
}

func TestWatchCoordinator_LibraryChange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.files.trigger(filepath.Join(f.library, "L_Technic", "32523.obj"))

	p := f.pass(t)
	assert.True(t, p.LibraryChanged)
	assert.False(t, p.ModelChanged)
	assert.Equal(t, []string{"begin", "refresh", "validate"}, f.pipeline.calls)
}

func TestWatchCoordinator_BothChanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.files.trigger(f.model, filepath.Join(f.library, "3001.obj"))

	f.pass(t)
	assert.Equal(t, []string{"begin", "refresh", "load", "validate"}, f.pipeline.calls)
}

func TestWatchCoordinator_IgnoresUnrelatedFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.files.trigger(filepath.Join(filepath.Dir(f.model), "other.mpd"), filepath.Join(f.library+"2", "x.obj"))

	select {
	case p := <-f.passes:
		t.Fatalf("unexpected pass: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Empty(t, f.pipeline.calls)
}

func TestWatchCoordinator_PipelineFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.pipeline.fail = "load"
	f.files.trigger(f.model)

	p := f.pass(t)
	require.Error(t, p.Err)
	assert.Contains(t, p.Err.Error(), "load failed")
	assert.Equal(t, []string{"begin", "load"}, f.pipeline.calls, "validation is skipped after a failed reload")
	assert.Equal(t, 1, f.files.resumeCount)
}

func TestWatchCoordinator_StartError(t *testing.T) {
	t.Parallel()

	files := &mockFileWatcher{startErr: errors.New("too many open files")}
	c := NewWatchCoordinator(files, &mockPipeline{}, "m.ldr", "", nil, nil)

	err := c.Start(context.Background())
	assert.EqualError(t, err, "too many open files")
	assert.True(t, files.stopCalled)
}

func TestWatchCoordinator_CancellationStops(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cancel()

	select {
	case err := <-f.done:
		assert.ErrorIs(t, err, context.Canceled)
		f.done <- err
	case <-time.After(time.Second):
		t.Fatal("coordinator did not stop")
	}
	assert.True(t, f.files.stopCalled)
}

func TestWatchCoordinator_ErrorsDoNotOutliveFailedPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	marker := filepath.Join(lib, library.DefaultMarkerFile)
	model := filepath.Join(dir, "car.ldr")
	require.NoError(t, os.MkdirAll(lib, 0755))
	require.NoError(t, os.WriteFile(marker, []byte("<categories/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "3001.obj"), []byte("o 3001\n"), 0644))
	modelText := []byte("1 4 0 0 0 1 0 0 0 1 0 0 0 1 3001.dat\n")
	require.NoError(t, os.WriteFile(model, modelText, 0644))

	s := session.New(session.Options{})
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.LoadFile(model))
	require.NoError(t, s.SetLibrary(ctx, lib))
	require.NoError(t, s.Validate(ctx))

	var passes []Pass
	c := NewWatchCoordinator(&mockFileWatcher{}, s, model, lib, func(p Pass) { passes = append(passes, p) }, nil)
	last := func() Pass {
		require.NotEmpty(t, passes)
		return passes[len(passes)-1]
	}

	// Save by rename: the model is briefly absent.
	require.NoError(t, os.Remove(model))
	c.handleFileChange(ctx, []string{model})
	require.Error(t, last().Err)
	assert.Equal(t, []string{session.MsgFileNotFound}, s.Diagnostics().Errors())

	require.NoError(t, os.WriteFile(model, modelText, 0644))
	c.handleFileChange(ctx, []string{model})
	require.NoError(t, last().Err)
	assert.Empty(t, s.Diagnostics().Errors())
	assert.True(t, s.Diagnostics().Succeeded())

	// Marker removed: the library no longer qualifies.
	require.NoError(t, os.Remove(marker))
	c.handleFileChange(ctx, []string{marker})
	require.Error(t, last().Err)
	assert.True(t, last().LibraryChanged)
	require.Len(t, s.Diagnostics().Errors(), 1)
	assert.Contains(t, s.Diagnostics().Errors()[0], "Incorrect folder selected")

	require.NoError(t, os.WriteFile(marker, []byte("<categories/>"), 0644))
	c.handleFileChange(ctx, []string{marker})
	require.NoError(t, last().Err)
	assert.Empty(t, s.Diagnostics().Errors())
	assert.Equal(t, []string{"3001"}, s.Diagnostics().Found())
}
