package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mvp-joe/ldraw-import/internal/config"
	"github.com/mvp-joe/ldraw-import/internal/session"
	"github.com/mvp-joe/ldraw-import/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchFlag bool
	quietFlag bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check that every part a model references exists in the library",
	Long: `Validate loads an .ldr or .mpd file, checks the library root and looks up
every distinct part the file references. The report lists the parts found,
the parts missing and any errors.

Examples:
  # Validate against the configured library
  ldraw validate car.mpd

  # Validate against a specific library
  ldraw validate car.mpd --library ~/ldraw/parts

  # Re-validate whenever the model or the library changes
  ldraw validate car.mpd --watch

With library.resolver set to "index", parts are looked up in the persistent
index built by "ldraw index". The index is rebuilt automatically when any
library folder changed after it was written.
`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-validate when the model or library changes")
	validateCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr())

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	progress := NewCLIProgressReporter(cmd.ErrOrStderr(), quietFlag || watchFlag)
	s := newSession(cfg, logger, progress)
	defer s.Close()

	err = validateFile(ctx, s, args[0], cfg.Library.Root)
	printReport(out, s.Diagnostics())
	if err != nil {
		return err
	}

	if !watchFlag {
		return nil
	}
	return watchAndValidate(ctx, cmd, s, args[0], cfg)
}

// validateFile runs the load, library and validate stages in order.
func validateFile(ctx context.Context, s *session.Session, path, libraryRoot string) error {
	if err := s.LoadFile(path); err != nil {
		return err
	}
	if err := s.SetLibrary(ctx, libraryRoot); err != nil {
		return err
	}
	return s.Validate(ctx)
}

// libraryTarget watches assets and the marker file, so removing or restoring
// the marker starts a pass too.
func libraryTarget(cfg *config.Config) watcher.Target {
	return watcher.Target{
		Dir:        cfg.Library.Root,
		Recursive:  true,
		Extensions: []string{cfg.Library.AssetExtension},
		Names:      []string{cfg.Library.MarkerFile},
	}
}

func watchAndValidate(ctx context.Context, cmd *cobra.Command, s *session.Session, path string, cfg *config.Config) error {
	logger := newLogger(cmd.ErrOrStderr())
	out := cmd.OutOrStdout()
	libraryRoot := cfg.Library.Root

	files, err := watcher.NewFileWatcher([]watcher.Target{
		{Dir: filepath.Dir(path), Extensions: []string{".ldr", ".mpd", ".dat"}},
		libraryTarget(cfg),
	}, watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to watch: %w", err)
	}

	coordinator := watcher.NewWatchCoordinator(files, s, path, libraryRoot, func(p watcher.Pass) {
		fmt.Fprintln(out)
		printReport(out, s.Diagnostics())
	}, logger)

	logger.Info("watching for changes", "model", path, "library", libraryRoot)
	if err := coordinator.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
