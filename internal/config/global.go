// Package config provides configuration loading for ldraw.
//
// It supports two configuration scopes:
//
// 1. Global Configuration (~/.ldraw/config.yml)
//   - Machine-wide library location
//   - Directory holding persistent part indexes
//   - Loaded via LoadGlobalConfig()
//
// 2. Project Configuration (.ldraw/config.yml)
//   - Library layout, resolver strategy, cache size
//   - Import scale factor and thresholds
//   - Loaded via Load()
//
// Project values win over global ones; ApplyGlobal fills only what the
// project left empty. Environment variables (LDRAW_*) override both files,
// with nested fields joined by underscores (LDRAW_LIBRARY_ROOT).
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// GlobalConfig holds machine-wide settings.
// Loaded from ~/.ldraw/config.yml (not project .ldraw/config.yml).
type GlobalConfig struct {
	Library GlobalLibraryConfig `yaml:"library" mapstructure:"library"`
	Index   GlobalIndexConfig   `yaml:"index" mapstructure:"index"`
}

// GlobalLibraryConfig names the library used when a project sets none.
type GlobalLibraryConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// GlobalIndexConfig holds persistent part index settings.
type GlobalIndexConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // one SQLite file per library root (~/.ldraw/index)
}

// IndexPathFor returns the index file for a library root under Dir.
func (g *GlobalConfig) IndexPathFor(libraryRoot string) string {
	sum := sha256.Sum256([]byte(libraryRoot))
	return filepath.Join(g.Index.Dir, hex.EncodeToString(sum[:8])+".db")
}

// ApplyGlobal fills the library root and index path from g where the
// project config leaves them empty.
func (c *Config) ApplyGlobal(g *GlobalConfig) {
	if g == nil {
		return
	}
	if c.Library.Root == "" {
		c.Library.Root = g.Library.Root
	}
	if c.Library.IndexPath == "" && c.Library.Root != "" && g.Index.Dir != "" {
		root := c.Library.Root
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		c.Library.IndexPath = g.IndexPathFor(root)
	}
}
