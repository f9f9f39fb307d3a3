package library

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/ldraw-import/internal/storage"
)

// Resolution is the outcome of looking up one part ID.
type Resolution struct {
	Found bool
	Path  string // absolute asset path; set iff Found
}

// Resolver finds the asset backing a part ID. A part that is not in the
// library is a Resolution with Found=false, not an error; errors are reserved
// for unexpected I/O failures.
type Resolver interface {
	Resolve(ctx context.Context, partID string) (Resolution, error)
}

// WalkResolver searches the library tree recursively on every lookup and
// returns the first match in lexical walk order.
type WalkResolver struct {
	lib *Library
}

// NewWalkResolver creates a resolver that walks lib for each lookup.
func NewWalkResolver(lib *Library) *WalkResolver {
	return &WalkResolver{lib: lib}
}

// Resolve implements Resolver.
func (r *WalkResolver) Resolve(ctx context.Context, partID string) (Resolution, error) {
	var res Resolution
	err := r.lib.Walk(ctx, func(path, id string, _ fs.DirEntry) error {
		if id != partID {
			return nil
		}
		res = Resolution{Found: true, Path: path}
		return fs.SkipAll
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to search library for %s: %w", partID, err)
	}
	return res, nil
}

// IndexResolver answers lookups from a persistent part index built by BuildIndex.
type IndexResolver struct {
	index *storage.PartIndex
}

// NewIndexResolver creates a resolver backed by index.
func NewIndexResolver(index *storage.PartIndex) *IndexResolver {
	return &IndexResolver{index: index}
}

// Resolve implements Resolver.
func (r *IndexResolver) Resolve(ctx context.Context, partID string) (Resolution, error) {
	path, ok, err := r.index.Lookup(ctx, partID)
	if err != nil {
		return Resolution{}, err
	}
	if !ok {
		return Resolution{}, nil
	}
	return Resolution{Found: true, Path: path}, nil
}

// CachedResolver memoizes another resolver's answers, including misses.
// Errors are not cached.
type CachedResolver struct {
	next  Resolver
	cache otter.Cache[string, Resolution]
}

// NewCachedResolver wraps next with a cache holding up to capacity entries
// for at most ttl (0 means no expiry).
func NewCachedResolver(next Resolver, capacity int, ttl time.Duration) (*CachedResolver, error) {
	builder := otter.MustBuilder[string, Resolution](capacity)
	var (
		cache otter.Cache[string, Resolution]
		err   error
	)
	if ttl > 0 {
		cache, err = builder.WithTTL(ttl).Build()
	} else {
		cache, err = builder.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build resolver cache: %w", err)
	}
	return &CachedResolver{next: next, cache: cache}, nil
}

// Resolve implements Resolver.
func (r *CachedResolver) Resolve(ctx context.Context, partID string) (Resolution, error) {
	if res, ok := r.cache.Get(partID); ok {
		return res, nil
	}
	res, err := r.next.Resolve(ctx, partID)
	if err != nil {
		return Resolution{}, err
	}
	r.cache.Set(partID, res)
	return res, nil
}

// Invalidate drops every cached answer, e.g. after the library changed on disk.
func (r *CachedResolver) Invalidate() {
	r.cache.Clear()
}

// Close releases the cache.
func (r *CachedResolver) Close() {
	r.cache.Close()
}
