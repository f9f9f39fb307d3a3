package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/mvp-joe/ldraw-import/internal/config"
	"github.com/mvp-joe/ldraw-import/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configDir   string
	libraryFlag string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ldraw",
	Short: "Validate and import LDraw models",
	Long: `ldraw checks LDraw (.ldr) and multi-part (.mpd) model files against a
local part library and assembles them into a scene plan.

The library root is the folder holding categories.xml. Parts are looked up
as {partId}.obj anywhere below it; folders named L_<name> are sub-libraries.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding .ldraw/config.yml (default is the working directory)")
	rootCmd.PersistentFlags().StringVarP(&libraryFlag, "library", "l", "", "library root (overrides library.root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("library.root", rootCmd.PersistentFlags().Lookup("library"))
}

// newLogger returns the CLI logger. Verbose output switches to debug level.
func newLogger(w io.Writer) *log.Logger {
	level := log.InfoLevel
	if viper.GetBool("verbose") {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "ldraw",
		Level:  level,
	})
}

// loadConfig reads the project config, fills gaps from the global config and
// applies the --library flag.
func loadConfig(logger *log.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configDir != "" {
		cfg, err = config.LoadConfigFromDir(configDir)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	if root := viper.GetString("library.root"); root != "" {
		cfg.Library.Root = root
	}

	global, err := config.LoadGlobalConfig()
	if err != nil {
		logger.Warn("ignoring global config", "error", err)
	} else {
		cfg.ApplyGlobal(global)
	}
	return cfg, nil
}

// newSession builds a session from cfg that logs to logger.
func newSession(cfg *config.Config, logger *log.Logger, progress *CLIProgressReporter) *session.Session {
	opts := cfg.ToSessionOptions()
	opts.Logger = logger
	if progress != nil {
		opts.Progress = progress
	}
	return session.New(opts)
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
