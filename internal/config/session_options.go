package config

import (
	"strings"

	"github.com/mvp-joe/ldraw-import/internal/session"
)

// ToSessionOptions converts a Config to session.Options.
func (c *Config) ToSessionOptions() session.Options {
	return session.Options{
		Library:             c.LibraryOptions(),
		Resolver:            strings.ToLower(c.Library.Resolver),
		IndexPath:           c.Library.IndexPath,
		CacheSize:           c.Library.CacheSize,
		CacheTTL:            c.Library.CacheTTL,
		Workers:             c.Import.Workers,
		LongImportThreshold: c.Import.LongImportThreshold,
	}
}
