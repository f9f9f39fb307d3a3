package cli

import (
	"fmt"

	"github.com/mvp-joe/ldraw-import/internal/library"
	"github.com/spf13/cobra"
)

// librariesCmd represents the libraries command
var librariesCmd = &cobra.Command{
	Use:   "libraries",
	Short: "List the sub-libraries of the library root",
	Long: `Libraries lists the folders directly under the library root whose names
start with the sub-library prefix (L_ by default), without the prefix.`,
	Args: cobra.NoArgs,
	RunE: runLibraries,
}

func init() {
	rootCmd.AddCommand(librariesCmd)
}

func runLibraries(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	lib, err := library.Open(cfg.Library.Root, cfg.LibraryOptions())
	if err != nil {
		return err
	}
	subs, err := lib.SubLibraries()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(subs) == 0 {
		fmt.Fprintln(out, "No sub-libraries found")
		return nil
	}
	for _, name := range subs {
		fmt.Fprintln(out, name)
	}
	return nil
}
