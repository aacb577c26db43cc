package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "daedalus_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	FilesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daedalus_files_analyzed_total",
		Help: "Total number of source files analyzed successfully.",
	})

	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daedalus_parse_errors_total",
		Help: "Total number of source files skipped because they failed to parse.",
	})

	SkippedPathsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daedalus_skipped_paths_total",
		Help: "Total number of unreadable paths skipped while walking.",
	})

	ResolutionOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daedalus_resolution_outcomes_total",
		Help: "Top-level assignments by the resolution rule that handled them.",
	}, []string{"rule"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daedalus_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daedalus_graph_nodes_total",
		Help: "Number of files in the adjacency graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daedalus_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// WriteTextfile dumps the default registry in the node-exporter textfile
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
