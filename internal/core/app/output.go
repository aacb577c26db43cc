package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bigrogerio/daedalus/internal/core/errors"
	"github.com/bigrogerio/daedalus/internal/core/ports"
	"github.com/bigrogerio/daedalus/internal/shared/observability"
	"github.com/bigrogerio/daedalus/internal/shared/util"
)

// SetUpdateHandler registers a callback run after every publish, including
// the ones triggered by watch mode.
func (a *App) SetUpdateHandler(handler func(ports.ScanResult)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(update ports.ScanResult) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}

// publish writes the configured outputs and persists the run.
func (a *App) publish(ctx context.Context, startedAt time.Time) (string, []string, error) {
	written, err := a.WriteOutputs()
	if err != nil {
		return "", written, err
	}
	runID, err := a.saveRun(ctx, startedAt)
	if err != nil {
		return "", written, err
	}
	if path := a.Config.Observability.MetricsFile; path != "" {
		if err := writeMetrics(path); err != nil {
			return runID, written, err
		}
		written = append(written, path)
	}
	return runID, written, nil
}

// WriteOutputs renders the graph to the configured JSON and DOT paths and
// returns the paths written.
func (a *App) WriteOutputs() ([]string, error) {
	targets := []struct {
		path   string
		render func(io.Writer) error
	}{
		{a.Config.Output.JSON, a.Graph.WriteJSON},
		{a.Config.Output.DOT, a.Graph.WriteDOT},
	}

	var written []string
	for _, target := range targets {
		if target.path == "" {
			continue
		}
		var buf bytes.Buffer
		if err := target.render(&buf); err != nil {
			return written, errors.Wrap(err, errors.CodeInternal, "render output")
		}
		if err := util.WriteFileWithDirs(target.path, buf.Bytes(), 0o644); err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "write output"), errors.CtxPath, target.path)
		}
		written = append(written, target.path)
	}
	return written, nil
}

func (a *App) saveRun(ctx context.Context, startedAt time.Time) (string, error) {
	if a.history == nil {
		return "", nil
	}
	run := a.snapshot(startedAt)
	id, err := a.history.SaveRun(ctx, run)
	if err != nil {
		return "", err
	}
	if keep := a.Config.DB.KeepRuns; keep > 0 {
		pruned, err := a.history.Prune(ctx, keep)
		if err != nil {
			slog.Warn("failed to prune scan runs", "keep", keep, "error", err)
		} else if pruned > 0 {
			slog.Debug("pruned scan runs", "count", pruned)
		}
	}
	slog.Debug("saved scan run", "id", id, "files", len(run.Files))
	return id, nil
}

func writeMetrics(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "create metrics dir"), errors.CtxPath, dir)
		}
	}
	if err := observability.WriteTextfile(path); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "write metrics"), errors.CtxPath, path)
	}
	return nil
}
