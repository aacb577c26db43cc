// Package config loads daedalus.toml.
package config

import "time"

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "daedalus.toml"

type Config struct {
	Version       int           `toml:"version"`
	Scan          Scan          `toml:"scan"`
	Resolver      Resolver      `toml:"resolver"`
	Variables     Variables     `toml:"variables"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Scan struct {
	Roots   []string `toml:"roots"`
	Suffix  string   `toml:"suffix"`
	Exclude Exclude  `toml:"exclude"`
	// Workers bounds concurrent file analyses; 1 keeps the scan sequential.
	Workers int `toml:"workers"`
	// Rate caps files started per second; 0 disables throttling.
	Rate  float64 `toml:"rate"`
	Burst int     `toml:"burst"`
	// SearchRoot is where imports are mapped to local files. Empty means
	// the first scan root.
	SearchRoot string `toml:"search_root"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Resolver struct {
	StoreBase    string `toml:"store_base"`
	StoreMethod  string `toml:"store_method"`
	OpenAccessor string `toml:"open_accessor"`
}

type Variables struct {
	File      string `toml:"file"`
	Env       bool   `toml:"env"`
	EnvPrefix string `toml:"env_prefix"`
}

type Output struct {
	JSON string `toml:"json"`
	DOT  string `toml:"dot"`
}

type Database struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	// KeepRuns prunes older scan runs after each save; 0 keeps everything.
	KeepRuns int `toml:"keep_runs"`
}

type Observability struct {
	MetricsFile   string `toml:"metrics_file"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	OTLPInsecure  bool   `toml:"otlp_insecure"`
	EnableTracing bool   `toml:"enable_tracing"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// DefaultConfig is the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{Variables: Variables{Env: true}}
	applyDefaults(cfg)
	return cfg
}
