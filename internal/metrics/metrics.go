package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the reporting service.
type Metrics struct {
	// Report metrics
	ReportRequests *prometheus.CounterVec
	ReportLatency  *prometheus.HistogramVec
	ReportRows     *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotLoads     prometheus.Counter
	SnapshotFailures  *prometheus.CounterVec
	SnapshotEntities  *prometheus.GaugeVec
	SnapshotVersion   prometheus.Gauge

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Ingestion metrics
	EntitiesIngested *prometheus.CounterVec
	WarehouseEvents  prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ReportRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_requests_total",
				Help:      "Total number of report view requests",
			},
			[]string{"view", "status"},
		),
		ReportLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_latency_seconds",
				Help:      "Report view computation latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"view"},
		),
		ReportRows: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_rows",
				Help:      "Number of rows returned per report view",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"view"},
		),
		SnapshotLoads: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_loads_total",
				Help:      "Total number of successful snapshot rebuilds",
			},
		),
		SnapshotFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_failures_total",
				Help:      "Total number of failed snapshot rebuilds",
			},
			[]string{"reason"},
		),
		SnapshotEntities: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_entities",
				Help:      "Entity counts in the current snapshot",
			},
			[]string{"entity"},
		),
		SnapshotVersion: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_version",
				Help:      "Version of the currently served snapshot",
			},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_hits_total",
				Help:      "Report cache hits",
			},
			[]string{"view"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_misses_total",
				Help:      "Report cache misses",
			},
			[]string{"view"},
		),
		EntitiesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_ingested_total",
				Help:      "Entities accepted through the ingestion endpoints",
			},
			[]string{"entity"},
		),
		WarehouseEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warehouse_events_total",
				Help:      "Tracking events mirrored to the warehouse sink",
			},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"limiter"},
		),
	}
}

// RecordReport records one report request outcome.
func (m *Metrics) RecordReport(view, status string, seconds float64, rows int) {
	if m == nil {
		return
	}
	m.ReportRequests.WithLabelValues(view, status).Inc()
	m.ReportLatency.WithLabelValues(view).Observe(seconds)
	if status == "ok" {
		m.ReportRows.WithLabelValues(view).Observe(float64(rows))
	}
}

// RecordSnapshot records a successful snapshot rebuild.
func (m *Metrics) RecordSnapshot(version int64, influencers, posts, tracking, contracts int) {
	if m == nil {
		return
	}
	m.SnapshotLoads.Inc()
	m.SnapshotVersion.Set(float64(version))
	m.SnapshotEntities.WithLabelValues("influencer").Set(float64(influencers))
	m.SnapshotEntities.WithLabelValues("post").Set(float64(posts))
	m.SnapshotEntities.WithLabelValues("tracking_record").Set(float64(tracking))
	m.SnapshotEntities.WithLabelValues("payout_contract").Set(float64(contracts))
}

// RecordSnapshotFailure records a failed snapshot rebuild.
func (m *Metrics) RecordSnapshotFailure(reason string) {
	if m == nil {
		return
	}
	m.SnapshotFailures.WithLabelValues(reason).Inc()
}

// RecordCache records a cache lookup outcome for a view.
func (m *Metrics) RecordCache(view string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(view).Inc()
	} else {
		m.CacheMisses.WithLabelValues(view).Inc()
	}
}

// RecordIngest records an accepted entity.
func (m *Metrics) RecordIngest(entity string) {
	if m == nil {
		return
	}
	m.EntitiesIngested.WithLabelValues(entity).Inc()
}

// RecordWarehouseEvents records tracking events mirrored to ClickHouse.
func (m *Metrics) RecordWarehouseEvents(n int) {
	if m == nil {
		return
	}
	m.WarehouseEvents.Add(float64(n))
}

// RecordRateLimitHit records a rate-limited request.
func (m *Metrics) RecordRateLimitHit(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(limiter).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
