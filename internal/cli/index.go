package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mvp-joe/ldraw-import/internal/library"
	"github.com/mvp-joe/ldraw-import/internal/storage"
	"github.com/spf13/cobra"
)

var outputFlag string

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the persistent part index for the library",
	Long: `Index walks the library once and stores every part asset in a SQLite
index. With library.resolver set to "index", validation then looks parts up
in the index instead of searching the library for each one.

The index is written to --output, library.index_path, or a per-library file
under the global index directory (~/.ldraw/index), in that order.

Examples:
  ldraw index --library ~/ldraw/parts
  ldraw index --output parts.db
`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Index file to write")
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
}

func runIndex(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr())

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	path := outputFlag
	if path == "" {
		path = cfg.Library.IndexPath
	}
	if path == "" {
		return errors.New("no index path: pass --output or set library.index_path")
	}

	lib, err := library.Open(cfg.Library.Root, cfg.LibraryOptions())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	index := storage.NewPartIndex(db)

	progress := NewCLIProgressReporter(cmd.ErrOrStderr(), quietFlag)
	progress.OnIndexStart()
	count, err := library.BuildIndex(ctx, lib, index, progress.OnAssetIndexed)
	if err != nil {
		return err
	}
	progress.OnIndexComplete(count)
	logger.Debug("index written", "path", path, "library", lib.Root())

	if quietFlag {
		return nil
	}

	bySub, err := index.CountBySubLibrary(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(bySub))
	for name := range bySub {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Index: %s\n", path)
	for _, name := range names {
		label := name
		if label == "" {
			label = "(root)"
		}
		fmt.Fprintf(out, "  %-24s %s\n", label, formatNumber(bySub[name]))
	}
	return nil
}
