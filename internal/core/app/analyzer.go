package app

import (
	"context"
	"os"
	"time"

	"github.com/bigrogerio/daedalus/internal/core/config"
	"github.com/bigrogerio/daedalus/internal/core/errors"
	"github.com/bigrogerio/daedalus/internal/core/ports"
	"github.com/bigrogerio/daedalus/internal/data/history"
	"github.com/bigrogerio/daedalus/internal/engine/filerefs"
	"github.com/bigrogerio/daedalus/internal/engine/imports"
	"github.com/bigrogerio/daedalus/internal/engine/resolver"
	"github.com/bigrogerio/daedalus/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FileAnalysis is everything extracted from one source file.
type FileAnalysis struct {
	Path        string
	Fingerprint string
	Imports     []imports.Import
	References  []filerefs.Reference
	State       *resolver.State
	Outcomes    []resolver.Outcome
}

// ImportNames returns the deduplicated qualified import names, sorted.
func (fa *FileAnalysis) ImportNames() []string {
	set := make(imports.Set, len(fa.Imports))
	for _, imp := range fa.Imports {
		set.Add(imp.Qualified)
	}
	return set.Sorted()
}

// Analyzer runs the per-file analyses. It keeps no state between files and
// is safe for concurrent use.
type Analyzer struct {
	loader   ports.SourceLoader
	resolver *resolver.Resolver
	accessor string
}

func NewAnalyzer(loader ports.SourceLoader, store ports.VariableStore, cfg config.Resolver) *Analyzer {
	accessor := cfg.OpenAccessor
	if accessor == "" {
		accessor = filerefs.DefaultAccessor
	}
	return &Analyzer{
		loader:   loader,
		resolver: resolver.New(store, resolver.WithStoreAccessor(cfg.StoreBase, cfg.StoreMethod)),
		accessor: accessor,
	}
}

// AnalyzeFile reads path and analyzes its content.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "read source"), errors.CtxPath, path)
	}
	return a.AnalyzeSource(ctx, path, src)
}

// AnalyzeSource analyzes src as the content of path.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, src []byte) (*FileAnalysis, error) {
	_, span := observability.Tracer.Start(ctx, "analyzer.AnalyzeSource", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("bytes", len(src)),
	))
	defer span.End()

	fingerprint, err := history.Fingerprint(src)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeInternal, "fingerprint source")
	}

	start := time.Now()
	mod, err := a.loader.Parse(path, src)
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.IsCode(err, errors.CodeParse) {
			observability.ParseErrorsTotal.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	state, outcomes := a.resolver.Resolve(mod)
	for _, o := range outcomes {
		observability.ResolutionOutcomesTotal.WithLabelValues(string(o.Rule)).Inc()
	}
	observability.FilesAnalyzedTotal.Inc()

	fa := &FileAnalysis{
		Path:        path,
		Fingerprint: fingerprint,
		Imports:     imports.CollectDetailed(mod),
		References:  filerefs.Collect(mod, a.accessor),
		State:       state,
		Outcomes:    outcomes,
	}
	span.SetAttributes(
		attribute.Int("imports", len(fa.Imports)),
		attribute.Int("references", len(fa.References)),
		attribute.Int("resolved", state.Len()),
	)
	return fa, nil
}
