package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest outcomes used as the "outcome" label.
const (
	OutcomeAdded   = "added"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	// FilesProcessedTotal counts ingestion attempts by outcome.
	FilesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edumate_files_processed_total",
			Help: "Documents processed",
		},
		[]string{"outcome"},
	)

	// ChunksIndexedTotal counts chunks written to the index.
	ChunksIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edumate_chunks_indexed_total",
			Help: "Chunks indexed",
		},
	)

	// ScanDuration records full scan duration in seconds.
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edumate_scan_duration_seconds",
			Help:    "Scan duration",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	// IndexEntries tracks the number of stored chunks.
	IndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edumate_index_entries",
			Help: "Chunks in the index",
		},
	)

	// SearchesTotal counts topic searches by match kind.
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edumate_searches_total",
			Help: "Topic searches",
		},
		[]string{"kind"},
	)

	// SearchDuration records topic search latency in seconds.
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edumate_search_duration_seconds",
			Help:    "Search duration",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		FilesProcessedTotal,
		ChunksIndexedTotal,
		ScanDuration,
		IndexEntries,
		SearchesTotal,
		SearchDuration,
	)
}

// ObserveFile records one processed document.
func ObserveFile(outcome string, chunks int) {
	FilesProcessedTotal.WithLabelValues(outcome).Inc()
	if chunks > 0 {
		ChunksIndexedTotal.Add(float64(chunks))
	}
}

// ObserveScan records a completed scan and the resulting index size.
func ObserveScan(d time.Duration, entries int) {
	ScanDuration.Observe(d.Seconds())
	IndexEntries.Set(float64(entries))
}

func observeSearch(e QueryEvent) {
	SearchesTotal.WithLabelValues(string(e.Kind)).Inc()
	SearchDuration.Observe(e.Latency.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
