// Package registry deduplicates the part identifiers referenced by an LDraw
// document and records, per identifier, its usage count and whether the
// library can back it.
package registry

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/mvp-joe/ldraw-import/internal/diag"
	"github.com/mvp-joe/ldraw-import/internal/ldraw"
	"github.com/mvp-joe/ldraw-import/internal/library"
	"golang.org/x/sync/errgroup"
)

// UniquePart is one distinct part ID referenced by a document.
type UniquePart struct {
	ID     string `json:"id" yaml:"id"`
	Count  int    `json:"count" yaml:"count"`
	Exists bool   `json:"exists" yaml:"exists"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Registry holds the unique parts of one validation pass, in first-seen order.
type Registry struct {
	parts     []UniquePart
	index     map[string]int
	validated bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Observe records one reference to partID. A new ID is resolved against the
// library and a FOUND or MISSING diagnostic is recorded; a known ID only has
// its count incremented.
func (r *Registry) Observe(ctx context.Context, partID string, resolver library.Resolver, diags *diag.Collector) error {
	if i, ok := r.index[partID]; ok {
		r.parts[i].Count++
		return nil
	}

	res, err := resolver.Resolve(ctx, partID)
	if err != nil {
		return err
	}
	r.add(partID, 1, res, diags)
	return nil
}

func (r *Registry) add(partID string, count int, res library.Resolution, diags *diag.Collector) {
	p := UniquePart{ID: partID, Count: count, Exists: res.Found}
	if res.Found {
		p.Path = res.Path
	}
	r.index[partID] = len(r.parts)
	r.parts = append(r.parts, p)

	if diags == nil {
		return
	}
	if res.Found {
		diags.Add(diag.Found, partID)
	} else {
		diags.Add(diag.Missing, partID)
	}
}

// Options tunes ObserveDocument.
type Options struct {
	// Workers bounds concurrent library lookups. Zero means GOMAXPROCS.
	Workers int

	// Progress receives resolution callbacks; nil means none.
	Progress ProgressReporter
}

// ObserveDocument performs a full pass over every part reference of doc.
// Usage counts equal literal occurrence counts. Distinct IDs are resolved
// concurrently, but FOUND/MISSING diagnostics are appended in order of first
// appearance, so the ledger is identical to a sequential pass. On success the
// registry is marked validated.
func (r *Registry) ObserveDocument(ctx context.Context, doc *ldraw.Document, resolver library.Resolver, diags *diag.Collector, opts Options) error {
	progress := opts.Progress
	if progress == nil {
		progress = NoOpProgressReporter{}
	}

	// Count occurrences in document order; ids keeps first-seen order.
	var ids []string
	counts := make(map[string]int)
	for _, id := range doc.PartRefs() {
		if _, seen := r.index[id]; seen {
			r.parts[r.index[id]].Count++
			continue
		}
		if counts[id] == 0 {
			ids = append(ids, id)
		}
		counts[id]++
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	progress.OnResolveStart(len(ids))

	results := make([]library.Resolution, len(ids))
	if len(ids) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(workers, len(ids)))
		for i, id := range ids {
			g.Go(func() error {
				res, err := resolver.Resolve(gctx, id)
				if err != nil {
					return err
				}
				results[i] = res
				progress.OnPartResolved(id, res.Found)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("library lookup failed: %w", err)
		}
	}

	for i, id := range ids {
		r.add(id, counts[id], results[i], diags)
	}
	r.validated = true

	progress.OnResolveComplete(r.summary())
	return nil
}

// Lookup returns the unique part for an ID.
func (r *Registry) Lookup(partID string) (UniquePart, bool) {
	i, ok := r.index[partID]
	if !ok {
		return UniquePart{}, false
	}
	return r.parts[i], true
}

// Resolvable reports whether partID is registered and backed by the library.
func (r *Registry) Resolvable(partID string) bool {
	p, ok := r.Lookup(partID)
	return ok && p.Exists
}

// All returns the unique parts in first-seen order.
func (r *Registry) All() []UniquePart {
	return slices.Clone(r.parts)
}

// Sorted returns the unique parts ordered alphabetically by ID.
func (r *Registry) Sorted() []UniquePart {
	out := r.All()
	slices.SortFunc(out, func(a, b UniquePart) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of unique parts.
func (r *Registry) Len() int { return len(r.parts) }

// Validated reports whether a full ObserveDocument pass completed since the
// last Reset.
func (r *Registry) Validated() bool { return r.validated }

// Reset clears the registry and its validated flag.
func (r *Registry) Reset() {
	r.parts = nil
	r.index = make(map[string]int)
	r.validated = false
}

// Summary aggregates a registry.
type Summary struct {
	Unique     int `json:"unique" yaml:"unique"`
	Found      int `json:"found" yaml:"found"`
	Missing    int `json:"missing" yaml:"missing"`
	References int `json:"references" yaml:"references"`
}

func (r *Registry) summary() Summary {
	var s Summary
	s.Unique = len(r.parts)
	for _, p := range r.parts {
		s.References += p.Count
		if p.Exists {
			s.Found++
		} else {
			s.Missing++
		}
	}
	return s
}

// Summary returns aggregate counts.
func (r *Registry) Summary() Summary { return r.summary() }
