package config

import (
	"fmt"
	"strings"

	derrors "github.com/bigrogerio/daedalus/internal/core/errors"

	"github.com/gobwas/glob"
)

func invalid(format string, args ...any) error {
	return derrors.New(derrors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	for i, root := range cfg.Scan.Roots {
		if strings.TrimSpace(root) == "" {
			return invalid("scan.roots[%d] must not be empty", i)
		}
	}
	if cfg.Scan.Workers < 1 {
		return invalid("scan.workers must be >= 1, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.Rate < 0 {
		return invalid("scan.rate must be >= 0, got %v", cfg.Scan.Rate)
	}
	if cfg.Scan.Burst < 0 {
		return invalid("scan.burst must be >= 0, got %d", cfg.Scan.Burst)
	}
	for _, p := range cfg.Scan.Exclude.Dirs {
		if _, err := glob.Compile(p); err != nil {
			return invalid("scan.exclude.dirs pattern %q: %v", p, err)
		}
	}
	for _, p := range cfg.Scan.Exclude.Files {
		if _, err := glob.Compile(p); err != nil {
			return invalid("scan.exclude.files pattern %q: %v", p, err)
		}
	}
	return nil
}

func validateResolver(cfg *Config) error {
	for field, value := range map[string]string{
		"resolver.store_base":    cfg.Resolver.StoreBase,
		"resolver.store_method":  cfg.Resolver.StoreMethod,
		"resolver.open_accessor": cfg.Resolver.OpenAccessor,
	} {
		if !isIdentifier(value) {
			return invalid("%s must be a Python identifier, got %q", field, value)
		}
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return invalid("db.path must not be empty when db.enabled is true")
	}
	if cfg.DB.KeepRuns < 0 {
		return invalid("db.keep_runs must be >= 0, got %d", cfg.DB.KeepRuns)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
