package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bigrogerio/daedalus/internal/core/errors"
	"github.com/bigrogerio/daedalus/internal/core/watcher"
	"github.com/bigrogerio/daedalus/internal/data/history"
	"github.com/bigrogerio/daedalus/internal/engine/modmap"
	"github.com/bigrogerio/daedalus/internal/shared/observability"
	"github.com/bigrogerio/daedalus/internal/shared/util"
)

// Watch re-analyzes changed files under the roots of the last scan until ctx
// is done.
func (a *App) Watch(ctx context.Context) error {
	a.mu.Lock()
	roots := append([]string(nil), a.roots...)
	a.mu.Unlock()
	if len(roots) == 0 {
		return errors.New(errors.CodeValidationError, "watch requires a completed scan")
	}

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Walker, func(paths []string) {
		a.HandleChanges(ctx, paths)
	})
	if err != nil {
		return err
	}
	if err := w.Watch(ctx, roots); err != nil {
		_ = w.Close()
		return err
	}
	slog.Info("watching for changes", "roots", roots, "debounce", a.Config.Watch.Debounce)

	<-ctx.Done()
	return w.Close()
}

// HandleChanges re-analyzes paths and republishes the outputs. Files whose
// content fingerprint is unchanged are skipped and deleted files leave the
// graph. It returns the number of files whose results changed.
func (a *App) HandleChanges(ctx context.Context, paths []string) int {
	start := time.Now()
	a.mu.Lock()
	mapper := modmap.New(a.searchRoot)
	a.mu.Unlock()

	changed := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		src, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			if a.forget(mapper, path) {
				changed++
			}
			continue
		}

		var res history.FileResult
		if err != nil {
			res = a.failed(mapper, path, errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "read source"), errors.CtxPath, path))
		} else {
			fingerprint, fpErr := history.Fingerprint(src)
			if fpErr == nil && a.unchanged(path, fingerprint) {
				slog.Debug("content unchanged", "path", path)
				continue
			}
			if err := a.limiter.Wait(ctx, 1); err != nil {
				break
			}
			res = a.processSource(ctx, mapper, path, src)
		}

		a.mu.Lock()
		a.results[path] = res
		a.mu.Unlock()
		changed++
	}

	if changed == 0 {
		return 0
	}
	observability.AnalysisDuration.WithLabelValues("incremental").Observe(time.Since(start).Seconds())

	summary := a.summarize()
	runID, written, err := a.publish(ctx, start)
	if err != nil {
		slog.Error("failed to publish results", "error", err)
	}
	summary.RunID = runID
	summary.Written = written
	a.emitUpdate(summary)
	slog.Info("re-analyzed changes", "changed", changed, "duration", time.Since(start))
	return changed
}

func (a *App) unchanged(path, fingerprint string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, ok := a.results[path]
	return ok && prev.Error == "" && prev.Fingerprint == fingerprint
}

// forget drops a deleted file and reports whether it was known.
func (a *App) forget(mapper *modmap.Mapper, path string) bool {
	a.mu.Lock()
	_, known := a.results[path]
	delete(a.results, path)
	a.mu.Unlock()
	a.Graph.Remove(util.RelativeTo(mapper.Root(), path))
	return known
}
