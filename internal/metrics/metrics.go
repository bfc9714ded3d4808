// Package metrics provides Prometheus metrics for the journey planner server.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	// Planner metrics
	PlannerSearchDuration  *prometheus.HistogramVec
	PlannerOutcomesTotal   *prometheus.CounterVec
	PlannerTierResults     *prometheus.CounterVec
	PlannerPairsEvaluated  prometheus.Histogram
	PlannerBudgetExhausted prometheus.Counter

	// Geocoder metrics
	GeocoderRequestsTotal  *prometheus.CounterVec
	GeocoderCacheHitsTotal prometheus.Counter

	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		logger:   logger,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transit_http_request_duration_seconds",
				Help:    "HTTP request latency distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_db_connections_open",
			Help: "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_db_connections_in_use",
			Help: "Number of database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_db_wait_seconds_total",
			Help: "Total time blocked waiting for a database connection",
		}),

		PlannerSearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transit_planner_search_duration_seconds",
				Help:    "Journey search latency by public operation",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"operation"},
		),
		PlannerOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_planner_outcomes_total",
				Help: "Journey searches by operation and result code",
			},
			[]string{"operation", "outcome"},
		),
		PlannerTierResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_planner_tier_results_total",
				Help: "Itineraries produced by each search tier",
			},
			[]string{"tier"},
		),
		PlannerPairsEvaluated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_planner_candidate_pairs_evaluated",
			Help:    "Candidate stop pairs evaluated per location search",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		PlannerBudgetExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_planner_budget_exhausted_total",
			Help: "Location searches stopped early by the time budget",
		}),
		GeocoderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_geocoder_requests_total",
				Help: "Upstream geocoder requests by HTTP status",
			},
			[]string{"status"},
		),
		GeocoderCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_geocoder_cache_hits_total",
			Help: "Geocoder lookups answered from the shared cache",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
		m.PlannerSearchDuration,
		m.PlannerOutcomesTotal,
		m.PlannerTierResults,
		m.PlannerPairsEvaluated,
		m.PlannerBudgetExhausted,
		m.GeocoderRequestsTotal,
		m.GeocoderCacheHitsTotal,
	)

	return m
}

// ObserveSearch records one public planner call.
func (m *Metrics) ObserveSearch(operation string, duration time.Duration, outcome string) {
	m.PlannerSearchDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.PlannerOutcomesTotal.WithLabelValues(operation, outcome).Inc()
}

// TierResults records the itineraries a tier produced for one stop pair.
func (m *Metrics) TierResults(tier string, count int) {
	if count <= 0 {
		return
	}
	m.PlannerTierResults.WithLabelValues(tier).Add(float64(count))
}

func (m *Metrics) PairsEvaluated(count int) {
	m.PlannerPairsEvaluated.Observe(float64(count))
}

func (m *Metrics) BudgetExhausted() {
	m.PlannerBudgetExhausted.Inc()
}

// GeocoderRequest records an upstream geocoder response status; 0 means the
// request failed before a response.
func (m *Metrics) GeocoderRequest(status int) {
	m.GeocoderRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) GeocoderCacheHit() {
	m.GeocoderCacheHitsTotal.Inc()
}

// StartDBStatsCollector starts a goroutine that periodically copies the
// connection pool statistics of db into the DB gauges. Calling it more than
// once has no effect. Call Shutdown to stop the collector.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add to WaitGroup before exposing cancel to avoid racing Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector goroutine and waits for it to exit.
// It is safe to call multiple times.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
