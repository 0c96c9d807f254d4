package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard
type Metrics struct {
	// Object store fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	FetchDuration prometheus.Histogram

	// Loader cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	SnapshotAge    prometheus.Gauge
	OrphanedAlerts *prometheus.GaugeVec

	// View render metrics
	RendersTotal   *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			FetchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "auditdash_fetches_total",
					Help: "Total number of object store fetches by key",
				},
				[]string{"key"},
			),
			FetchFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "auditdash_fetch_failures_total",
					Help: "Total number of failed object store fetches by key",
				},
				[]string{"key"},
			),
			FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "auditdash_fetch_duration_seconds",
				Help:    "Duration of object store fetches in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			}),

			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "auditdash_cache_hits_total",
				Help: "Total number of loads served from the time-bucketed cache",
			}),
			CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "auditdash_cache_misses_total",
				Help: "Total number of loads that required a fresh fetch",
			}),
			SnapshotAge: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "auditdash_snapshot_age_seconds",
				Help: "Age of the currently cached snapshot in seconds",
			}),
			OrphanedAlerts: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "auditdash_orphaned_alerts",
					Help: "Alert rows whose repository is absent from the repository snapshot",
				},
				[]string{"dataset"},
			),

			RendersTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "auditdash_renders_total",
					Help: "Total number of view renders by view",
				},
				[]string{"view"},
			),
			RenderDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "auditdash_render_duration_seconds",
					Help:    "Duration of view renders in seconds",
					Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
				},
				[]string{"view"},
			),

			SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "auditdash_sessions_active",
				Help: "Number of live dashboard sessions",
			}),
		}
	})
	return metricsInstance
}
