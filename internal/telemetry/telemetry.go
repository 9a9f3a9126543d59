// Package telemetry exposes the server's Prometheus metrics.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adminapi"

// Snapshot holds the point-in-time values sampled into gauges.
type Snapshot struct {
	APIKeys       int64
	ActiveAPIKeys int64
	DBOpenConns   int
	DBInUse       int
}

// SnapshotFunc is called on every sample to gather current state.
type SnapshotFunc func(ctx context.Context) (Snapshot, error)

// Metrics owns a private registry and every collector the server updates.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gateDecisions  *prometheus.CounterVec
	usageRecords   prometheus.Counter
	usageFailures  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	apiKeys        prometheus.Gauge
	activeAPIKeys  prometheus.Gauge
	dbOpenConns    prometheus.Gauge
	dbInUse        prometheus.Gauge
	sampleFailures prometheus.Counter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Access gate outcomes by identity kind and result.",
		}, []string{"identity", "result"}),
		usageRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_records_total",
			Help:      "API key usage records attempted.",
		}),
		usageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_record_failures_total",
			Help:      "API key usage records that could not be written.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, endpoint id and status.",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint id.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		apiKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_keys",
			Help:      "Stored API keys.",
		}),
		activeAPIKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_keys_active",
			Help:      "Stored API keys that are active.",
		}),
		dbOpenConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open connections in the database pool.",
		}),
		dbInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_in_use_connections",
			Help:      "Database connections currently in use.",
		}),
		sampleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Gauge samples that failed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gateDecisions, m.usageRecords, m.usageFailures,
		m.httpRequests, m.httpDuration,
		m.apiKeys, m.activeAPIKeys, m.dbOpenConns, m.dbInUse, m.sampleFailures,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GateDecision counts one access gate outcome.
func (m *Metrics) GateDecision(identity, result string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(identity, result).Inc()
}

// UsageRecorded counts one usage record write attempt.
func (m *Metrics) UsageRecorded() {
	if m == nil {
		return
	}
	m.usageRecords.Inc()
}

// UsageFailed counts one failed usage record write.
func (m *Metrics) UsageFailed() {
	if m == nil {
		return
	}
	m.usageFailures.Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Sample updates the gauges from fn once.
func (m *Metrics) Sample(ctx context.Context, fn SnapshotFunc) {
	if m == nil || fn == nil {
		return
	}
	s, err := fn(ctx)
	if err != nil {
		m.sampleFailures.Inc()
		return
	}
	m.apiKeys.Set(float64(s.APIKeys))
	m.activeAPIKeys.Set(float64(s.ActiveAPIKeys))
	m.dbOpenConns.Set(float64(s.DBOpenConns))
	m.dbInUse.Set(float64(s.DBInUse))
}

// Start samples fn immediately and then every interval until Shutdown.
// Non-blocking.
func (m *Metrics) Start(fn SnapshotFunc, interval time.Duration) {
	if m == nil || fn == nil || interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.Sample(ctx, fn)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sample(ctx, fn)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the sampling loop.
func (m *Metrics) Shutdown() {
	if m == nil {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
