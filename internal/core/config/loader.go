package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	derrors "github.com/bigrogerio/daedalus/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load decodes path, fills defaults, applies DAEDALUS_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, derrors.AddContext(derrors.Wrap(err, derrors.CodeFilesystem, "read config"), derrors.CtxPath, path)
	}

	cfg := &Config{Variables: Variables{Env: true}}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, derrors.AddContext(derrors.Wrap(err, derrors.CodeValidationError, "decode config"), derrors.CtxPath, path)
	}
	return finish(cfg)
}

// LoadOrDefault loads path, falling back to DefaultConfig when path is the
// implicit default file and it does not exist.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return finish(&Config{Variables: Variables{Env: true}})
	}
	return nil, err
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)

	if err := validateVersion(cfg); err != nil {
		return nil, err
	}
	if err := validateScan(cfg); err != nil {
		return nil, err
	}
	if err := validateResolver(cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = []string{"."}
	}
	if strings.TrimSpace(cfg.Scan.Suffix) == "" {
		cfg.Scan.Suffix = ".py"
	}
	if cfg.Scan.Exclude.Dirs == nil {
		cfg.Scan.Exclude.Dirs = []string{".git", "__pycache__", ".venv", "venv", "node_modules"}
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 1
	}
	if cfg.Scan.Rate > 0 && cfg.Scan.Burst == 0 {
		cfg.Scan.Burst = 1
	}

	if strings.TrimSpace(cfg.Resolver.StoreBase) == "" {
		cfg.Resolver.StoreBase = "Variable"
	}
	if strings.TrimSpace(cfg.Resolver.StoreMethod) == "" {
		cfg.Resolver.StoreMethod = "get"
	}
	if strings.TrimSpace(cfg.Resolver.OpenAccessor) == "" {
		cfg.Resolver.OpenAccessor = "open"
	}

	if strings.TrimSpace(cfg.Variables.EnvPrefix) == "" {
		cfg.Variables.EnvPrefix = "AIRFLOW_VAR_"
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/daedalus.db"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
