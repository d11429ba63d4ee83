// Package metrics provides Prometheus metrics for the portablemedia server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portablemedia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portablemedia_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Content cache metrics
	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablemedia_cache_hits_total",
			Help: "Content cache hits",
		},
	)

	cacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablemedia_cache_misses_total",
			Help: "Content cache misses",
		},
	)

	cacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablemedia_cache_evictions_total",
			Help: "Content cache LRU evictions",
		},
	)

	// Content transfer metrics
	contentBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablemedia_content_bytes_served_total",
			Help: "Total bytes served from the content endpoint",
		},
	)

	contentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portablemedia_content_requests_total",
			Help: "Total number of content requests",
		},
		[]string{"status"},
	)

	// Snapshot metrics
	snapshotNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portablemedia_snapshot_nodes",
			Help: "Number of files/directories in the indexed snapshot",
		},
	)

	indexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portablemedia_index_build_duration_seconds",
			Help:    "Time to index the media root",
			Buckets: prometheus.DefBuckets,
		},
	)

	indexAnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portablemedia_index_anomalies_total",
			Help: "Entries skipped during indexing",
		},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheHit counts a content cache hit.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss counts a content cache miss.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordCacheEviction counts an LRU eviction.
func RecordCacheEviction() {
	cacheEvictionsTotal.Inc()
}

// RecordContentServed records one content response.
func RecordContentServed(bytes int64, ok bool) {
	status := "error"
	if ok {
		status = "success"
		contentBytesServed.Add(float64(bytes))
	}
	contentRequestsTotal.WithLabelValues(status).Inc()
}

// SetSnapshotNodes sets the indexed entry count gauge.
func SetSnapshotNodes(n int) {
	snapshotNodes.Set(float64(n))
}

// ObserveIndexBuild records the duration of an indexing pass.
func ObserveIndexBuild(d time.Duration) {
	indexBuildDuration.Observe(d.Seconds())
}

// RecordIndexAnomaly counts a skipped entry.
func RecordIndexAnomaly() {
	indexAnomaliesTotal.Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
