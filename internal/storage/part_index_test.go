package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Part Index:
// - Open creates the schema on a new database and reports the schema version
// - Lookup returns false for unknown part IDs
// - Replace stores entries and records the library root
// - Replace keeps the first entry for duplicate part IDs
// - Replace drops entries from a previous build
// - CountBySubLibrary groups counts
// - Index persists across connections
// - LastIndexed is zero before the first build and the build time after

func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	idx := NewPartIndex(db)
	root, err := idx.LibraryRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", root)
}

func TestPartIndex_LookupUnknown(t *testing.T) {
	t.Parallel()

	idx := NewPartIndex(NewTestDB(t))

	path, ok, err := idx.Lookup(context.Background(), "3001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, path)
}

func TestPartIndex_ReplaceAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := NewPartIndex(NewTestDB(t))

	err := idx.Replace(ctx, "/lib", []PartEntry{
		{PartID: "3001", Path: "/lib/L_Bricks/3001.obj", SubLibrary: "L_Bricks"},
		{PartID: "3001", Path: "/lib/L_Other/3001.obj", SubLibrary: "L_Other"},
		{PartID: "3003", Path: "/lib/3003.obj"},
	})
	require.NoError(t, err)

	path, ok, err := idx.Lookup(ctx, "3001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lib/L_Bricks/3001.obj", path)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	root, err := idx.LibraryRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/lib", root)

	counts, err := idx.CountBySubLibrary(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"L_Bricks": 1, "": 1}, counts)
}

func TestPartIndex_ReplaceDropsOldEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := NewPartIndex(NewTestDB(t))

	require.NoError(t, idx.Replace(ctx, "/lib", []PartEntry{{PartID: "3001", Path: "/lib/3001.obj"}}))
	require.NoError(t, idx.Replace(ctx, "/lib", []PartEntry{{PartID: "3003", Path: "/lib/3003.obj"}}))

	_, ok, err := idx.Lookup(ctx, "3001")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = idx.Lookup(ctx, "3003")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPartIndex_PersistsAcrossConnections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, path := NewTestDBFile(t)
	require.NoError(t, NewPartIndex(db).Replace(ctx, "/lib", []PartEntry{{PartID: "3001", Path: "/lib/3001.obj"}}))
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := NewPartIndex(reopened).Lookup(ctx, "3001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lib/3001.obj", got)
}

func TestPartIndex_LastIndexed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := NewPartIndex(NewTestDB(t))

	last, err := idx.LastIndexed(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "never built")

	before := time.Now()
	require.NoError(t, idx.Replace(ctx, "/lib", []PartEntry{{PartID: "3001", Path: "/lib/3001.obj"}}))
	after := time.Now()

	last, err = idx.LastIndexed(ctx)
	require.NoError(t, err)
	assert.False(t, last.Before(before), "last indexed %v before %v", last, before)
	assert.False(t, last.After(after), "last indexed %v after %v", last, after)
}
