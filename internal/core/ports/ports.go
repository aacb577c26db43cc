// Package ports declares the boundaries the app layer depends on.
package ports

import (
	"context"

	"github.com/bigrogerio/daedalus/internal/data/history"
	"github.com/bigrogerio/daedalus/internal/engine/syntax"
)

// SourceLoader turns a file into a syntax tree.
type SourceLoader interface {
	Load(path string) (*syntax.Module, error)
	Parse(path string, src []byte) (*syntax.Module, error)
}

// VariableStore is the read-only variable table consulted by store calls.
type VariableStore interface {
	Lookup(key string) (string, bool)
}

// FileFilter selects which walked or watched paths are analyzed.
type FileFilter interface {
	Match(path string) bool
	ExcludedDir(path string) bool
}

// SnapshotStore abstracts scan-run persistence.
type SnapshotStore interface {
	SaveRun(ctx context.Context, run history.Run) (string, error)
	LatestRun(ctx context.Context) (history.Run, error)
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}

// ScanRequest defines a scan operation request for driving adapters.
type ScanRequest struct {
	Roots []string
}

// ScanResult summarizes a completed scan operation.
type ScanResult struct {
	RunID        string
	FilesScanned int
	Failed       int
	Skipped      int
	Imports      int
	References   int
	Resolved     int
	Unresolved   int
	Cycles       [][]string
	Written      []string
}
