package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vegwatch"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Source refresh metrics.
	RefreshesTotal      prometheus.Counter
	RefreshErrors       prometheus.Counter
	RefreshDuration     prometheus.Histogram
	ObservationsLoaded  prometheus.Gauge
	ObservationsByBand  *prometheus.GaugeVec // labels: severity={critical,moderate,healthy}
	RefreshLoopRunning  prometheus.Gauge
	MapFeaturesRendered prometheus.Histogram
	PersistRetries      *prometheus.CounterVec // labels: store={watchlist,actions}
	PersistFailures     *prometheus.CounterVec // labels: store={watchlist,actions}
	ActionsPublished    *prometheus.CounterVec // labels: outcome={success,error}

	// Place search metrics.
	SearchRequests    *prometheus.CounterVec // labels: outcome={success,error,empty,superseded}
	SearchCache       *prometheus.CounterVec // labels: result={hit,miss}
	SearchAPIDuration prometheus.Histogram
	SearchEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Total observation refresh cycles.",
		}),
		RefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_errors_total",
			Help:      "Refresh cycles whose fetch failed and fell back to an empty collection.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a fetch-classify-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ObservationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations_loaded",
			Help:      "Observations in the current snapshot.",
		}),
		ObservationsByBand: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations_by_severity",
			Help:      "Observations in the current snapshot by severity band.",
		}, []string{"severity"}),
		RefreshLoopRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_loop_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		MapFeaturesRendered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "map_features_rendered",
			Help:      "Features returned per map layer request after density selection.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		PersistRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_retries_total",
			Help:      "Retried writes to the key-value store by store.",
		}, []string{"store"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Writes to the key-value store that failed after all retries.",
		}, []string{"store"}),
		ActionsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_published_total",
			Help:      "Action records forwarded to Kafka by outcome.",
		}, []string{"outcome"}),
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Place search requests by outcome.",
		}, []string{"outcome"}),
		SearchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Place search cache lookups by result.",
		}, []string{"result"}),
		SearchAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SearchEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_enabled",
			Help:      "1 when place search is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RefreshesTotal,
		m.RefreshErrors,
		m.RefreshDuration,
		m.ObservationsLoaded,
		m.ObservationsByBand,
		m.RefreshLoopRunning,
		m.MapFeaturesRendered,
		m.PersistRetries,
		m.PersistFailures,
		m.ActionsPublished,
		m.SearchRequests,
		m.SearchCache,
		m.SearchAPIDuration,
		m.SearchEnabled,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
