package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvp-joe/ldraw-import/internal/diag"
	"github.com/mvp-joe/ldraw-import/internal/library"
	"github.com/mvp-joe/ldraw-import/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Session:
// - LoadFile: empty path, missing file, flat file, MPD file, file with no relevant lines
// - SetLibrary: empty root, root without categories.xml (exactly one error), valid root
// - Validate refuses before file and library are set
// - Validate populates registry and found/missing diagnostics; repeated runs are idempotent
// - BuildGraph refuses before Validate and follows the registry afterwards
// - Index resolver (file-backed and in-memory) agrees with the walk resolver
// - Cached resolver session produces identical results; Refresh picks up new assets
// - Preflight reports long imports and missing parts
// - SubLibraries lists L_ folders; Reset clears everything
// - BeginPass drops errors of an earlier failed pass
// - Refresh reports a removed marker and recovers once it is restored
// - A persistent index is reused while the library is unchanged and rebuilt once it changes
// - An unreadable library directory fails Validate with an error diagnostic

const mpdDoc = `0 FILE Main.ldr
1 16 0 0 0 1 0 0 0 1 0 0 0 1 3001.dat
0 FILE Wheel.ldr
1 16 10 0 0 1 0 0 0 1 0 0 0 1 3001.dat
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// newLibrary creates a valid library root holding the given asset files.
func newLibrary(t *testing.T, assets ...string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, library.DefaultMarkerFile, "<categories/>")
	for _, a := range assets {
		writeFile(t, root, a, "o part\n")
	}
	return root
}

// readySession returns a session with doc loaded and a library holding assets.
func readySession(t *testing.T, opts Options, doc string, assets ...string) *Session {
	t.Helper()
	s := New(opts)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.LoadFile(writeFile(t, t.TempDir(), "model.mpd", doc)))
	require.NoError(t, s.SetLibrary(context.Background(), newLibrary(t, assets...)))
	return s
}

func TestLoadFile_NoFileSelected(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	err := s.LoadFile("")

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, NoFileSelected, setupErr.Kind)
	assert.Equal(t, []string{MsgNoFileSelected}, s.Diagnostics().Errors())
	assert.Nil(t, s.Document())
}

func TestLoadFile_NotFound(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	err := s.LoadFile(filepath.Join(t.TempDir(), "nope.ldr"))

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, FileNotFound, setupErr.Kind)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, []string{MsgFileNotFound}, s.Diagnostics().Errors())
}

func TestLoadFile_Results(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		results []string
		mpd     bool
	}{
		{"flat", "0 Title\n1 16 0 0 0 1 0 0 0 1 0 0 0 1 3001.dat\n", []string{MsgFileLoaded}, false},
		{"mpd", mpdDoc, []string{MsgFileLoaded, MsgFileIsMPD}, true},
		{"no relevant lines", "0 just a comment\n2 24 0 0 0 1 1 1\n", []string{MsgFileBadFormat}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(Options{})
			require.NoError(t, s.LoadFile(writeFile(t, t.TempDir(), "f.ldr", tt.content)))
			assert.Equal(t, tt.results, s.Diagnostics().Results())
			assert.Empty(t, s.Diagnostics().Errors())
			assert.Equal(t, tt.mpd, s.Document().IsMPD())
		})
	}
}

func TestSetLibrary_NotSet(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	err := s.SetLibrary(context.Background(), "")

	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, LibraryNotSet, setupErr.Kind)
	assert.Equal(t, []string{MsgLibraryNotSet}, s.Diagnostics().Errors())
}

func TestSetLibrary_IncorrectFolder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(Options{})
	require.NoError(t, s.LoadFile(writeFile(t, t.TempDir(), "m.mpd", mpdDoc)))

	err := s.SetLibrary(ctx, t.TempDir())
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, IncorrectFolder, setupErr.Kind)
	assert.ErrorIs(t, err, library.ErrIncorrectFolder)

	errs := s.Diagnostics().Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Incorrect folder selected. Requires 'categories.xml'", errs[0])
	assert.Nil(t, s.Library())
	assert.False(t, s.Validated())

	// Later stages refuse to run.
	require.Error(t, s.Validate(ctx))
	assert.False(t, s.Validated())
	_, err = s.BuildGraph()
	assert.ErrorIs(t, err, model.ErrNotValidated)
}

func TestSetLibrary_Exists(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	require.NoError(t, s.SetLibrary(context.Background(), newLibrary(t)))
	assert.Equal(t, []string{MsgLibraryExists}, s.Diagnostics().Results())
	assert.NotNil(t, s.Library())
}

func TestValidate_NotReady(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	require.NoError(t, s.SetLibrary(context.Background(), newLibrary(t)))

	err := s.Validate(context.Background())
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, NotReady, setupErr.Kind)
	assert.Equal(t, []string{MsgNotReady}, s.Diagnostics().Errors())
}

func TestValidateAndBuild_PartFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := readySession(t, Options{}, mpdDoc, "parts/3001.obj")

	_, err := s.BuildGraph()
	require.ErrorIs(t, err, model.ErrNotValidated, "graph requires validation")

	require.NoError(t, s.Validate(ctx))
	assert.True(t, s.Validated())

	p, ok := s.Registry().Lookup("3001")
	require.True(t, ok)
	assert.Equal(t, 2, p.Count)
	assert.True(t, p.Exists)
	assert.True(t, strings.HasSuffix(p.Path, filepath.Join("parts", "3001.obj")))
	assert.Equal(t, []string{"3001"}, s.Diagnostics().Found())
	assert.Empty(t, s.Diagnostics().Missing())

	g, err := s.BuildGraph()
	require.NoError(t, err)
	require.Equal(t, 2, g.NumModels())
	assert.Equal(t, "3001_001", g.PartsOf(0)[0].Name)
	assert.Equal(t, "3001_002", g.PartsOf(1)[0].Name)
}

func TestValidateAndBuild_PartMissing(t *testing.T) {
	t.Parallel()

	s := readySession(t, Options{}, mpdDoc)
	require.NoError(t, s.Validate(context.Background()))

	p, ok := s.Registry().Lookup("3001")
	require.True(t, ok)
	assert.False(t, p.Exists)
	assert.Equal(t, []string{"3001"}, s.Diagnostics().Missing())

	g, err := s.BuildGraph()
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumModels())
	assert.Equal(t, 0, g.NumParts())
}

func TestValidate_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := readySession(t, Options{}, mpdDoc+"1 4 0 0 0 1 0 0 0 1 0 0 0 1 3002.dat\n", "3001.obj")

	require.NoError(t, s.Validate(ctx))
	first := s.Registry().All()
	found, missing := s.Diagnostics().Found(), s.Diagnostics().Missing()

	require.NoError(t, s.Validate(ctx))
	assert.Equal(t, first, s.Registry().All())
	assert.Equal(t, found, s.Diagnostics().Found())
	assert.Equal(t, missing, s.Diagnostics().Missing())
	assert.Equal(t, []string{MsgFileLoaded, MsgFileIsMPD, MsgLibraryExists, MsgPartsParsed, MsgPartsParsed}, s.Diagnostics().Results())
}

func TestValidate_ResolverStrategies(t *testing.T) {
	t.Parallel()

	doc := mpdDoc + "1 4 0 0 0 1 0 0 0 1 0 0 0 1 3002.dat\n1 4 0 0 0 1 0 0 0 1 0 0 0 1 3003.dat\n"
	assets := []string{"a/3001.obj", "L_Technic/3003.obj"}

	tests := []struct {
		name string
		opts func(t *testing.T) Options
	}{
		{"walk", func(t *testing.T) Options { return Options{Resolver: ResolverWalk} }},
		{"walk cached", func(t *testing.T) Options { return Options{Resolver: ResolverWalk, CacheSize: 64} }},
		{"index in memory", func(t *testing.T) Options { return Options{Resolver: ResolverIndex} }},
		{"index file", func(t *testing.T) Options {
			return Options{Resolver: ResolverIndex, IndexPath: filepath.Join(t.TempDir(), "idx", "parts.db"), CacheSize: 16}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := readySession(t, tt.opts(t), doc, assets...)
			require.NoError(t, s.Validate(context.Background()))
			assert.Equal(t, []string{"3001", "3003"}, s.Diagnostics().Found())
			assert.Equal(t, []string{"3002"}, s.Diagnostics().Missing())
		})
	}
}

func TestSetLibrary_UnknownResolver(t *testing.T) {
	t.Parallel()

	s := New(Options{Resolver: "magic"})
	err := s.SetLibrary(context.Background(), newLibrary(t))
	require.Error(t, err)

	var setupErr *SetupError
	assert.False(t, errors.As(err, &setupErr))
	assert.Len(t, s.Diagnostics().Errors(), 1)
	assert.Nil(t, s.Library())
}

func TestRefresh_PicksUpNewAssets(t *testing.T) {
	t.Parallel()

	for _, resolver := range []string{ResolverWalk, ResolverIndex} {
		t.Run(resolver, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := readySession(t, Options{Resolver: resolver, CacheSize: 16}, mpdDoc)
			require.NoError(t, s.Validate(ctx))
			assert.Equal(t, []string{"3001"}, s.Diagnostics().Missing())

			writeFile(t, s.Library().Root(), "3001.obj", "o part\n")

			require.NoError(t, s.Refresh(ctx))
			assert.False(t, s.Validated())
			require.NoError(t, s.Validate(ctx))
			assert.Equal(t, []string{"3001"}, s.Diagnostics().Found())
			assert.Empty(t, s.Diagnostics().Missing())
		})
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var b strings.Builder
	var assets []string
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, "1 16 0 0 0 1 0 0 0 1 0 0 0 1 p%d.dat\n", i)
		assets = append(assets, fmt.Sprintf("p%d.obj", i))
	}

	s := readySession(t, Options{LongImportThreshold: 3}, b.String(), assets...)
	_, err := s.Preflight()
	require.Error(t, err, "preflight requires validation")

	require.NoError(t, s.Validate(ctx))
	concerns, err := s.Preflight()
	require.NoError(t, err)
	require.Len(t, concerns, 1)
	assert.Equal(t, ConcernLongImport, concerns[0].Kind)

	s2 := readySession(t, Options{}, b.String(), assets[:2]...)
	require.NoError(t, s2.Validate(ctx))
	concerns, err = s2.Preflight()
	require.NoError(t, err)
	require.Len(t, concerns, 1)
	assert.Equal(t, ConcernMissingParts, concerns[0].Kind)
	assert.Contains(t, concerns[0].Message, "2 parts")
}

func TestSubLibrariesAndReset(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	libs, err := s.SubLibraries()
	require.NoError(t, err)
	assert.Empty(t, libs)

	root := newLibrary(t, "L_Technic/1.obj", "L_Duplo/2.obj", "other/3.obj")
	require.NoError(t, s.LoadFile(writeFile(t, t.TempDir(), "m.mpd", mpdDoc)))
	require.NoError(t, s.SetLibrary(context.Background(), root))

	libs, err = s.SubLibraries()
	require.NoError(t, err)
	assert.Equal(t, []string{"Duplo", "Technic"}, libs)

	require.NoError(t, s.Validate(context.Background()))
	s.Reset()

	assert.Nil(t, s.Document())
	assert.Nil(t, s.Library())
	assert.False(t, s.Validated())
	assert.Equal(t, 0, s.Registry().Len())
	for _, cat := range []diag.Category{diag.Error, diag.Missing, diag.Found, diag.Result} {
		assert.Equal(t, 0, s.Diagnostics().Count(cat))
	}
	assert.NotEmpty(t, s.ID())
}

func TestBeginPass_ClearsStaleErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(Options{})
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.SetLibrary(ctx, newLibrary(t, "3001.obj")))

	// An editor saving by rename leaves the model briefly absent.
	path := filepath.Join(t.TempDir(), "model.mpd")
	s.BeginPass()
	err := s.LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, []string{MsgFileNotFound}, s.Diagnostics().Errors())

	writeFile(t, filepath.Dir(path), "model.mpd", mpdDoc)
	s.BeginPass()
	require.NoError(t, s.LoadFile(path))
	require.NoError(t, s.Validate(ctx))

	assert.Empty(t, s.Diagnostics().Errors())
	assert.True(t, s.Diagnostics().Succeeded())
}

func TestRefresh_MarkerRemovedAndRestored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := readySession(t, Options{}, mpdDoc, "3001.obj")
	require.NoError(t, s.Validate(ctx))
	root := s.Library().Root()
	marker := filepath.Join(root, library.DefaultMarkerFile)

	require.NoError(t, os.Remove(marker))
	err := s.Refresh(ctx)
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, IncorrectFolder, setupErr.Kind)
	assert.Nil(t, s.Library())
	assert.ErrorAs(t, s.Validate(ctx), &setupErr)
	assert.Equal(t, NotReady, setupErr.Kind)

	writeFile(t, root, library.DefaultMarkerFile, "<categories/>")
	s.BeginPass()
	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.Validate(ctx))
	assert.Equal(t, []string{"3001"}, s.Diagnostics().Found())
	assert.Empty(t, s.Diagnostics().Errors())
}

func TestSetLibrary_PersistentIndexFreshness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := Options{Resolver: ResolverIndex, IndexPath: filepath.Join(t.TempDir(), "parts.db")}
	root := newLibrary(t, "3001.obj")
	model := writeFile(t, t.TempDir(), "model.mpd", mpdDoc+"1 4 0 0 0 1 0 0 0 1 0 0 0 1 3002.dat\n")

	validate := func() *Session {
		s := New(opts)
		t.Cleanup(func() { s.Close() })
		require.NoError(t, s.LoadFile(model))
		require.NoError(t, s.SetLibrary(ctx, root))
		require.NoError(t, s.Validate(ctx))
		return s
	}

	s := validate()
	assert.Equal(t, []string{"3002"}, s.Diagnostics().Missing())
	require.NoError(t, s.Close())

	// Unchanged library: the index is reused even though 3001.obj is gone,
	// because the directory time is set back before the build.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Remove(filepath.Join(root, "3001.obj")))
	require.NoError(t, os.Chtimes(root, past, past))
	s = validate()
	assert.Equal(t, []string{"3001"}, s.Diagnostics().Found())
	require.NoError(t, s.Close())

	// A new asset changes the library, so the index is rebuilt.
	writeFile(t, root, "3002.obj", "o part\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(root, future, future))
	s = validate()
	assert.Equal(t, []string{"3002"}, s.Diagnostics().Found())
	assert.Equal(t, []string{"3001"}, s.Diagnostics().Missing())
}

func TestValidate_UnreadableLibraryDirectory(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	ctx := context.Background()
	s := readySession(t, Options{}, mpdDoc, "locked/3001.obj")
	locked := filepath.Join(s.Library().Root(), "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	require.Error(t, s.Validate(ctx))
	assert.False(t, s.Validated())
	assert.Empty(t, s.Diagnostics().Missing())
	require.Len(t, s.Diagnostics().Errors(), 1)
	assert.Contains(t, s.Diagnostics().Errors()[0], "locked")
}
