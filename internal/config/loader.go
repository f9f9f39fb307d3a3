package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (LDRAW_*)
// 2. Config file (.ldraw/config.yml or .ldraw/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".ldraw")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Replace . with _ in env var names (e.g., LDRAW_LIBRARY_ROOT)
	v.SetEnvPrefix("LDRAW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("library.root")
	v.BindEnv("library.marker_file")
	v.BindEnv("library.asset_extension")
	v.BindEnv("library.sublibrary_prefix")
	v.BindEnv("library.resolver")
	v.BindEnv("library.index_path")
	v.BindEnv("library.cache_size")
	v.BindEnv("library.cache_ttl")

	v.BindEnv("import.scale_factor")
	v.BindEnv("import.long_import_threshold")
	v.BindEnv("import.workers")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("library.root", defaults.Library.Root)
	v.SetDefault("library.marker_file", defaults.Library.MarkerFile)
	v.SetDefault("library.asset_extension", defaults.Library.AssetExtension)
	v.SetDefault("library.sublibrary_prefix", defaults.Library.SubLibraryPrefix)
	v.SetDefault("library.ignore", defaults.Library.Ignore)
	v.SetDefault("library.resolver", defaults.Library.Resolver)
	v.SetDefault("library.index_path", defaults.Library.IndexPath)
	v.SetDefault("library.cache_size", defaults.Library.CacheSize)
	v.SetDefault("library.cache_ttl", defaults.Library.CacheTTL)

	v.SetDefault("import.scale_factor", defaults.Import.ScaleFactor)
	v.SetDefault("import.long_import_threshold", defaults.Import.LongImportThreshold)
	v.SetDefault("import.workers", defaults.Import.Workers)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
