package config

import (
	"time"

	"github.com/mvp-joe/ldraw-import/internal/library"
)

// Config represents the complete ldraw configuration.
// It can be loaded from .ldraw/config.yml with environment variable overrides.
type Config struct {
	Library LibraryConfig `yaml:"library" mapstructure:"library"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
}

// LibraryConfig describes the part library and how lookups are served.
type LibraryConfig struct {
	Root             string        `yaml:"root" mapstructure:"root"`                           // library root; empty falls back to the global config
	MarkerFile       string        `yaml:"marker_file" mapstructure:"marker_file"`             // file that marks a valid root
	AssetExtension   string        `yaml:"asset_extension" mapstructure:"asset_extension"`     // extension of part assets
	SubLibraryPrefix string        `yaml:"sublibrary_prefix" mapstructure:"sublibrary_prefix"` // prefix of sub-library folders
	Ignore           []string      `yaml:"ignore" mapstructure:"ignore"`                       // glob patterns skipped during searches
	Resolver         string        `yaml:"resolver" mapstructure:"resolver"`                   // "walk" or "index"
	IndexPath        string        `yaml:"index_path" mapstructure:"index_path"`               // SQLite part index; empty uses the global index dir
	CacheSize        int           `yaml:"cache_size" mapstructure:"cache_size"`               // resolver cache entries; 0 disables
	CacheTTL         time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`                 // 0 means no expiry
}

// ImportConfig tunes validation and assembly.
type ImportConfig struct {
	ScaleFactor         float64 `yaml:"scale_factor" mapstructure:"scale_factor"`
	LongImportThreshold int     `yaml:"long_import_threshold" mapstructure:"long_import_threshold"`
	Workers             int     `yaml:"workers" mapstructure:"workers"` // 0 means GOMAXPROCS
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			MarkerFile:       library.DefaultMarkerFile,
			AssetExtension:   library.DefaultAssetExtension,
			SubLibraryPrefix: library.DefaultSubLibraryPrefix,
			Ignore:           []string{},
			Resolver:         "walk",
			CacheSize:        4096,
		},
		Import: ImportConfig{
			ScaleFactor:         1.0,
			LongImportThreshold: 50,
		},
	}
}

// LibraryOptions returns the library layout described by the config.
func (c *Config) LibraryOptions() library.Options {
	return library.Options{
		MarkerFile:       c.Library.MarkerFile,
		AssetExtension:   c.Library.AssetExtension,
		SubLibraryPrefix: c.Library.SubLibraryPrefix,
		Ignore:           c.Library.Ignore,
	}
}
