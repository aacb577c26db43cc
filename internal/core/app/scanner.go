package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bigrogerio/daedalus/internal/core/errors"
	"github.com/bigrogerio/daedalus/internal/core/ports"
	"github.com/bigrogerio/daedalus/internal/data/history"
	"github.com/bigrogerio/daedalus/internal/engine/graph"
	"github.com/bigrogerio/daedalus/internal/engine/modmap"
	"github.com/bigrogerio/daedalus/internal/engine/walker"
	"github.com/bigrogerio/daedalus/internal/shared/observability"
	"github.com/bigrogerio/daedalus/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Scan walks the roots (the configured ones when req.Roots is empty),
// analyzes every matching file and publishes the outputs. Files that fail to
// read or parse are logged and recorded as failed; unreadable roots are
// skipped and the scan aborts only when none can be walked. Cancelling ctx
// stops scheduling new files.
func (a *App) Scan(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Scan")
	defer span.End()
	startedAt := time.Now()

	roots := req.Roots
	if len(roots) == 0 {
		roots = a.Config.Scan.Roots
	}
	roots = util.UniqueRoots(roots)

	listing, err := a.Walker.Walk(ctx, roots...)
	if err != nil {
		span.RecordError(err)
		return ports.ScanResult{}, err
	}
	observability.SkippedPathsTotal.Add(float64(len(listing.Skipped)))
	span.SetAttributes(attribute.Int("files", len(listing.Files)))

	searchRoot := a.SearchRoot(readableRoots(roots, listing.Skipped))
	mapper := modmap.New(searchRoot)
	for _, p := range a.Graph.Paths() {
		a.Graph.Remove(p)
	}

	results := make([]history.FileResult, len(listing.Files))
	scheduled := make([]bool, len(listing.Files))

	workers := a.Config.Scan.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range listing.Files {
		if err := a.limiter.Wait(gctx, 1); err != nil {
			break
		}
		scheduled[i] = true
		g.Go(func() error {
			results[i] = a.processFile(gctx, mapper, path)
			return nil
		})
	}
	_ = g.Wait()

	a.mu.Lock()
	a.roots = roots
	a.searchRoot = searchRoot
	a.results = make(map[string]history.FileResult, len(results))
	for i, res := range results {
		if scheduled[i] {
			a.results[listing.Files[i]] = res
		}
	}
	a.mu.Unlock()

	observability.AnalysisDuration.WithLabelValues("scan").Observe(time.Since(startedAt).Seconds())

	summary := a.summarize()
	summary.Skipped = len(listing.Skipped)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	runID, written, err := a.publish(ctx, startedAt)
	summary.RunID = runID
	summary.Written = written
	if err != nil {
		span.RecordError(err)
		return summary, err
	}

	a.emitUpdate(summary)
	slog.Info("scan complete",
		"files", summary.FilesScanned,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", time.Since(startedAt),
		"heap_mb", util.HeapAllocMB(),
	)
	return summary, nil
}

// readableRoots drops the roots the walk had to skip.
func readableRoots(roots []string, skipped []walker.Skipped) []string {
	failed := make(map[string]bool, len(skipped))
	for _, s := range skipped {
		failed[s.Path] = true
	}
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if !failed[r] {
			out = append(out, r)
		}
	}
	return out
}

// processFile analyzes one file into the graph and returns its stored form.
func (a *App) processFile(ctx context.Context, mapper *modmap.Mapper, path string) history.FileResult {
	src, err := os.ReadFile(path)
	if err != nil {
		err = errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "read source"), errors.CtxPath, path)
		return a.failed(mapper, path, err)
	}
	return a.processSource(ctx, mapper, path, src)
}

func (a *App) processSource(ctx context.Context, mapper *modmap.Mapper, path string, src []byte) history.FileResult {
	_, span := observability.Tracer.Start(ctx, "app.processFile", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	fa, err := a.Analyzer.AnalyzeSource(ctx, path, src)
	if err != nil {
		return a.failed(mapper, path, err)
	}

	rel := util.RelativeTo(mapper.Root(), path)
	a.Graph.Set(entryFor(fa, mapper, rel))
	return fileResult(rel, fa)
}

func (a *App) failed(mapper *modmap.Mapper, path string, err error) history.FileResult {
	slog.Warn("skipping file", "path", path, "error", err)
	rel := util.RelativeTo(mapper.Root(), path)
	a.Graph.Remove(rel)
	return history.FileResult{Path: rel, Error: err.Error()}
}

// entryFor converts an analysis into a graph entry. Paths are relative to the
// mapper root so local import targets and file nodes share one namespace.
func entryFor(fa *FileAnalysis, mapper *modmap.Mapper, rel string) graph.Entry {
	local := make(map[string]string)
	for _, m := range mapper.Map(fa.Path, fa.Imports) {
		if !m.External {
			local[m.Import] = filepath.ToSlash(m.Path)
		}
	}

	var resources []string
	for _, ref := range fa.References {
		if lit, ok := ref.Literal(); ok {
			resources = append(resources, lit)
		}
	}

	return graph.Entry{
		Path:      rel,
		Module:    mapper.ModuleName(fa.Path),
		Imports:   fa.ImportNames(),
		Local:     local,
		Resources: resources,
	}
}

func fileResult(rel string, fa *FileAnalysis) history.FileResult {
	res := history.FileResult{
		Path:        rel,
		Fingerprint: fa.Fingerprint,
		Imports:     fa.ImportNames(),
		Variables:   make(map[string]string, fa.State.Len()),
	}
	for _, ref := range fa.References {
		res.References = append(res.References, ref.String())
	}
	for _, name := range fa.State.Names() {
		v, _ := fa.State.Get(name)
		if v.IsUnresolved() {
			res.Unresolved = append(res.Unresolved, name)
			continue
		}
		res.Variables[name] = v.String()
	}
	return res
}

// summarize counts the current results.
func (a *App) summarize() ports.ScanResult {
	a.mu.Lock()
	var sum ports.ScanResult
	for _, res := range a.results {
		sum.FilesScanned++
		if res.Error != "" {
			sum.Failed++
			continue
		}
		sum.Imports += len(res.Imports)
		sum.References += len(res.References)
		sum.Resolved += len(res.Variables)
		sum.Unresolved += len(res.Unresolved)
	}
	a.mu.Unlock()

	sum.Cycles = a.Graph.Cycles()
	observability.GraphNodes.Set(float64(a.Graph.Len()))
	return sum
}

// snapshot returns the current results as a run, files sorted by path.
func (a *App) snapshot(startedAt time.Time) history.Run {
	a.mu.Lock()
	defer a.mu.Unlock()

	run := history.Run{
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Roots:      append([]string(nil), a.roots...),
		Files:      make([]history.FileResult, 0, len(a.results)),
	}
	for _, res := range a.results {
		run.Files = append(run.Files, res)
	}
	sort.Slice(run.Files, func(i, j int) bool { return run.Files[i].Path < run.Files[j].Path })
	return run
}
