package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidResolver indicates an unsupported resolver strategy
	ErrInvalidResolver = errors.New("invalid resolver")

	// ErrEmptyMarkerFile indicates a missing library marker file name
	ErrEmptyMarkerFile = errors.New("empty marker file")

	// ErrInvalidExtension indicates an asset extension without a leading dot
	ErrInvalidExtension = errors.New("invalid asset extension")

	// ErrInvalidPrefix indicates an empty sub-library prefix
	ErrInvalidPrefix = errors.New("invalid sub-library prefix")

	// ErrInvalidIgnorePattern indicates an ignore glob that does not compile
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidCacheSettings indicates invalid resolver cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidScale indicates a non-positive scale factor
	ErrInvalidScale = errors.New("invalid scale factor")

	// ErrInvalidThreshold indicates a non-positive long import threshold
	ErrInvalidThreshold = errors.New("invalid long import threshold")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid workers")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateLibrary(&cfg.Library); err != nil {
		errs = append(errs, err)
	}

	if err := validateImport(&cfg.Import); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateLibrary(cfg *LibraryConfig) error {
	var errs []error

	resolver := strings.ToLower(cfg.Resolver)
	if resolver != "walk" && resolver != "index" {
		errs = append(errs, fmt.Errorf("%w: must be 'walk' or 'index', got '%s'", ErrInvalidResolver, cfg.Resolver))
	}

	if strings.TrimSpace(cfg.MarkerFile) == "" {
		errs = append(errs, fmt.Errorf("%w: marker_file is required", ErrEmptyMarkerFile))
	}

	if !strings.HasPrefix(cfg.AssetExtension, ".") || len(cfg.AssetExtension) < 2 {
		errs = append(errs, fmt.Errorf("%w: must start with '.', got '%s'", ErrInvalidExtension, cfg.AssetExtension))
	}

	if cfg.SubLibraryPrefix == "" {
		errs = append(errs, fmt.Errorf("%w: sublibrary_prefix is required", ErrInvalidPrefix))
	}

	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidIgnorePattern, pattern, err))
		}
	}

	// Zero disables caching
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSettings, cfg.CacheSize))
	}
	if cfg.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_ttl cannot be negative, got %s", ErrInvalidCacheSettings, cfg.CacheTTL))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateImport(cfg *ImportConfig) error {
	var errs []error

	if cfg.ScaleFactor <= 0 {
		errs = append(errs, fmt.Errorf("%w: scale_factor must be positive, got %g", ErrInvalidScale, cfg.ScaleFactor))
	}

	if cfg.LongImportThreshold <= 0 {
		errs = append(errs, fmt.Errorf("%w: long_import_threshold must be positive, got %d", ErrInvalidThreshold, cfg.LongImportThreshold))
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
