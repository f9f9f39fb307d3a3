package library

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/mvp-joe/ldraw-import/internal/storage"
)

// BuildIndex walks lib once and replaces index's content with every asset
// found. onAsset, if non-nil, is called after each asset is visited.
// Returns the number of assets visited (duplicates included).
func BuildIndex(ctx context.Context, lib *Library, index *storage.PartIndex, onAsset func(partID string)) (int, error) {
	var entries []storage.PartEntry
	err := lib.Walk(ctx, func(path, partID string, d fs.DirEntry) error {
		entry := storage.PartEntry{
			PartID:     partID,
			Path:       path,
			SubLibrary: lib.subLibraryOf(path),
		}
		if info, err := d.Info(); err == nil {
			entry.SizeBytes = info.Size()
		}
		entries = append(entries, entry)
		if onAsset != nil {
			onAsset(partID)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk library: %w", err)
	}

	if err := index.Replace(ctx, lib.Root(), entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
