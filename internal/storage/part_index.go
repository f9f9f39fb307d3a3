package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// PartEntry is one indexed library asset.
type PartEntry struct {
	PartID     string
	Path       string
	SubLibrary string
	SizeBytes  int64
}

// PartIndex stores part_id → path for a library so lookups avoid a
// recursive walk per part.
type PartIndex struct {
	db *sql.DB
}

// NewPartIndex wraps a database that has the schema created.
func NewPartIndex(db *sql.DB) *PartIndex {
	return &PartIndex{db: db}
}

// Replace swaps the whole index content for entries in one transaction.
// The first entry for a given part ID wins, matching walk order semantics.
func (p *PartIndex) Replace(ctx context.Context, libraryRoot string, entries []PartEntry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM parts"); err != nil {
		return fmt.Errorf("failed to clear parts: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		_, err := sq.Insert("parts").
			Columns("part_id", "path", "sub_library", "size_bytes", "indexed_at").
			Values(e.PartID, e.Path, e.SubLibrary, e.SizeBytes, now).
			Options("OR IGNORE").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to write part %s: %w", e.PartID, err)
		}
	}

	for key, value := range map[string]string{"library_root": libraryRoot, "last_indexed": now} {
		if err := setMetadata(ctx, tx, key, value, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit part index: %w", err)
	}
	return nil
}

// Lookup returns the indexed path for a part ID.
func (p *PartIndex) Lookup(ctx context.Context, partID string) (string, bool, error) {
	var path string
	err := sq.Select("path").
		From("parts").
		Where(sq.Eq{"part_id": partID}).
		RunWith(p.db).
		QueryRowContext(ctx).
		Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up part %s: %w", partID, err)
	}
	return path, true, nil
}

// Count returns the number of indexed parts.
func (p *PartIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parts").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count parts: %w", err)
	}
	return n, nil
}

// LibraryRoot returns the library root the index was built from ("" if never built).
func (p *PartIndex) LibraryRoot(ctx context.Context) (string, error) {
	var root string
	err := p.db.QueryRowContext(ctx, "SELECT value FROM index_metadata WHERE key = 'library_root'").Scan(&root)
	if err != nil {
		return "", fmt.Errorf("failed to read library root: %w", err)
	}
	return root, nil
}

// LastIndexed returns when the index was last rebuilt (zero if never).
func (p *PartIndex) LastIndexed(ctx context.Context) (time.Time, error) {
	var value string
	err := p.db.QueryRowContext(ctx, "SELECT value FROM index_metadata WHERE key = 'last_indexed'").Scan(&value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last indexed time: %w", err)
	}
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last indexed time %q: %w", value, err)
	}
	return t, nil
}

// CountBySubLibrary returns part counts grouped by sub-library.
func (p *PartIndex) CountBySubLibrary(ctx context.Context) (map[string]int, error) {
	rows, err := sq.Select("sub_library", "COUNT(*)").
		From("parts").
		GroupBy("sub_library").
		RunWith(p.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sub-libraries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sub-library count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

func setMetadata(ctx context.Context, tx *sql.Tx, key, value, now string) error {
	query := `
		INSERT INTO index_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, key, value, now); err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	return nil
}
