// Package metrics exposes the Prometheus metrics of the crawler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/matjip/internal/resilience"
)

const namespace = "matjip"

var (
	// ProviderCalls counts external calls by outcome (ok, error, quota).
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "External provider calls by service, operation and outcome",
	}, []string{"service", "operation", "outcome"})

	// ProviderLatency observes external call latency.
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_call_duration_seconds",
		Help:      "External provider call latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"service", "operation"})

	// CacheLookups counts provider cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Provider response cache lookups by result",
	}, []string{"kind", "result"})

	// PipelineNames counts names passing each pipeline stage per region.
	PipelineNames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_names_total",
		Help:      "Names observed at each pipeline stage",
	}, []string{"region", "stage"})

	// PipelineRejects counts rejected names by reason.
	PipelineRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_rejects_total",
		Help:      "Names rejected during resolution by reason",
	}, []string{"region", "reason"})

	// Runs counts finished crawl runs by status.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Crawl runs by final status",
	}, []string{"status"})

	// RunDuration observes crawl run wall time.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Crawl run duration",
		Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
	})

	// StoreBatchSize observes the size of each upsert batch.
	StoreBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_batch_size",
		Help:      "Records per upsert batch",
		Buckets:   []float64{1, 10, 50, 100, 250, 500},
	})

	// StoreFallbacks counts batches that fell back to per-record writes.
	StoreFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_batch_fallbacks_total",
		Help:      "Upsert batches retried one record at a time",
	})
)

// Outcome classifies a call error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case resilience.IsQuota(err):
		return "quota"
	}
	return "error"
}

// ObserveCall records one provider call that started at start.
func ObserveCall(service, operation string, start time.Time, err error) {
	ProviderCalls.WithLabelValues(service, operation, Outcome(err)).Inc()
	ProviderLatency.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
