// Package metrics holds the prometheus collectors of the import pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "markport"

var (
	ImportJobsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_jobs_started_total",
		Help:      "Import uploads accepted, by detected format.",
	}, []string{"format"})

	ImportJobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_jobs_finished_total",
		Help:      "Import jobs reaching a terminal status.",
	}, []string{"status"})

	ImportBookmarks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_bookmarks_total",
		Help:      "Bookmarks handled by the import pipeline, by outcome.",
	}, []string{"outcome"})

	DedupListings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dedup_listings_total",
		Help:      "Existing record listings used for deduplication, by mode (normal or fallback).",
	}, []string{"mode"})

	WriteGroups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "write_groups_total",
		Help:      "applyWrites groups submitted, by caller and result.",
	}, []string{"caller", "result"})

	ChunkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "import_chunk_duration_seconds",
		Help:      "Time spent processing one import chunk.",
		Buckets:   prometheus.DefBuckets,
	})

	StaleJobsRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_jobs_removed_total",
		Help:      "Import jobs removed by the stale job sweep.",
	})
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		ImportJobsStarted,
		ImportJobsFinished,
		ImportBookmarks,
		DedupListings,
		WriteGroups,
		ChunkDuration,
		StaleJobsRemoved,
	)
}

func Registry() *prometheus.Registry {
	return registry
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
