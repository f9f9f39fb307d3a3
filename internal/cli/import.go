package cli

import (
	"errors"

	"github.com/mvp-joe/ldraw-import/internal/report"
	"github.com/mvp-joe/ldraw-import/internal/scene"
	"github.com/spf13/cobra"
)

var errNeedsConfirmation = errors.New("import not confirmed: rerun with --yes to proceed")

var (
	formatFlag string
	scaleFlag  float64
	yesFlag    bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Validate a model and print its assembly plan",
	Long: `Import validates a model, builds its model graph and assembles it into a
scene plan: one import per unique part found in the library, one placement
per part instance and, for multi-part files, one helper per model plus a
placeholder per submodel instance.

Import stops before assembling when the model has many unique parts or
references parts the library lacks, listing what needs confirmation. Pass
--yes to proceed anyway.

Examples:
  # Print the plan as YAML
  ldraw import car.mpd

  # JSON output at 1/25 scale without prompts
  ldraw import car.mpd --format json --scale 0.04 --yes
`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "Output format (yaml or json)")
	importCmd.Flags().Float64Var(&scaleFlag, "scale", 0, "Scale factor applied to translations (default import.scale_factor)")
	importCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Proceed despite long-import or missing-part concerns")
	importCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars")
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	logger := newLogger(errOut)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	scale := cfg.Import.ScaleFactor
	if scaleFlag != 0 {
		scale = scaleFlag
	}

	s := newSession(cfg, logger, NewCLIProgressReporter(errOut, quietFlag))
	defer s.Close()

	if err := validateFile(ctx, s, args[0], cfg.Library.Root); err != nil {
		printReport(errOut, s.Diagnostics())
		return err
	}

	concerns, err := s.Preflight()
	if err != nil {
		return err
	}
	if len(concerns) > 0 && !yesFlag {
		for _, c := range concerns {
			warnColor.Fprintln(errOut, c.Message)
		}
		return errNeedsConfirmation
	}

	g, err := s.BuildGraph()
	if err != nil {
		return err
	}

	rec := scene.NewRecorder()
	if err := scene.Assemble(ctx, g, s.Registry(), rec, s.Diagnostics(), scene.Options{ScaleFactor: scale}); err != nil {
		printReport(errOut, s.Diagnostics())
		return err
	}

	r := report.FromSession(s).WithGraph(g).Refresh(s.Diagnostics())
	r.Concerns = concerns
	r.Plan = rec.Ops()
	logger.Debug("assembly planned", "ops", len(r.Plan), "models", len(r.Models))

	return report.Write(cmd.OutOrStdout(), r, format)
}
