// Package app wires the analyzers into the scan, output and watch workflows.
package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/bigrogerio/daedalus/internal/core/config"
	"github.com/bigrogerio/daedalus/internal/core/ports"
	"github.com/bigrogerio/daedalus/internal/data/history"
	"github.com/bigrogerio/daedalus/internal/engine/graph"
	"github.com/bigrogerio/daedalus/internal/engine/syntax"
	"github.com/bigrogerio/daedalus/internal/engine/varstore"
	"github.com/bigrogerio/daedalus/internal/engine/walker"
	"github.com/bigrogerio/daedalus/internal/shared/util"
)

type App struct {
	Config   *config.Config
	Graph    *graph.Graph
	Analyzer *Analyzer
	Walker   *walker.Walker

	limiter *util.Limiter
	history ports.SnapshotStore

	mu         sync.Mutex
	roots      []string
	searchRoot string
	// results holds the latest analysis of every scanned file keyed by
	// absolute path, so watch mode can skip unchanged content.
	results map[string]history.FileResult

	updateMu sync.RWMutex
	onUpdate func(ports.ScanResult)
}

type Option func(*options)

type options struct {
	store   ports.VariableStore
	history ports.SnapshotStore
	loader  ports.SourceLoader
}

// WithVariableStore replaces the store built from the [variables] section.
func WithVariableStore(store ports.VariableStore) Option {
	return func(o *options) { o.store = store }
}

// WithSnapshotStore replaces the SQLite store opened from the [db] section.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(o *options) { o.history = store }
}

func WithSourceLoader(loader ports.SourceLoader) Option {
	return func(o *options) { o.loader = loader }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	w, err := walker.New(walker.Options{
		Suffix:       cfg.Scan.Suffix,
		ExcludeDirs:  cfg.Scan.Exclude.Dirs,
		ExcludeFiles: cfg.Scan.Exclude.Files,
	})
	if err != nil {
		return nil, err
	}

	if o.store == nil {
		store, err := LoadVariables(cfg.Variables)
		if err != nil {
			return nil, err
		}
		o.store = store
	}
	if o.loader == nil {
		o.loader = syntax.NewLoader()
	}
	if o.history == nil && cfg.DB.Enabled {
		store, err := history.Open(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		o.history = store
	}

	return &App{
		Config:   cfg,
		Graph:    graph.New(),
		Analyzer: NewAnalyzer(o.loader, o.store, cfg.Resolver),
		Walker:   w,
		limiter:  util.NewLimiter(cfg.Scan.Rate, cfg.Scan.Burst),
		history:  o.history,
		results:  make(map[string]history.FileResult),
	}, nil
}

// LoadVariables builds the variable store: the exported file if one is
// configured, overlaid by prefixed environment variables when enabled.
func LoadVariables(cfg config.Variables) (*varstore.Store, error) {
	store := varstore.Empty()
	if cfg.File != "" {
		loaded, err := varstore.Load(cfg.File)
		if err != nil {
			return nil, err
		}
		store = loaded
	}
	if cfg.Env {
		prefix := cfg.EnvPrefix
		if prefix == "" {
			prefix = varstore.DefaultEnvPrefix
		}
		store = store.WithProcessEnvironment(prefix)
	}
	slog.Debug("variable store ready", "file", cfg.File, "count", store.Len(), "keys", store.Keys())
	return store, nil
}

// SearchRoot is the directory imports are mapped against: the configured
// search root, or else the first scan root.
func (a *App) SearchRoot(roots []string) string {
	if a.Config.Scan.SearchRoot != "" {
		if abs, err := filepath.Abs(a.Config.Scan.SearchRoot); err == nil {
			return abs
		}
		return filepath.Clean(a.Config.Scan.SearchRoot)
	}
	if len(roots) == 0 {
		return ""
	}
	return roots[0]
}

// Close releases the snapshot store.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// LatestRun returns the most recent persisted run.
func (a *App) LatestRun(ctx context.Context) (history.Run, error) {
	if a.history == nil {
		return history.Run{}, history.ErrNoRuns
	}
	return a.history.LatestRun(ctx)
}
