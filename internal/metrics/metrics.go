// Package metrics exposes Prometheus collectors for imports and HTTP traffic.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/awsl-project/ranstat/internal/domain"
)

// Metrics 所有方法对 nil 接收者安全，未启用指标时传 nil 即可
type Metrics struct {
	registry *prometheus.Registry

	importsTotal      *prometheus.CounterVec
	importRowsTotal   *prometheus.CounterVec
	importDuration    *prometheus.HistogramVec
	eventErrorsTotal  prometheus.Counter
	retentionDeleted  *prometheus.CounterVec
	wsClients         prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates collectors on a private registry, so several instances can coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranstat_imports_total",
			Help: "Imports processed by feed and outcome.",
		}, []string{"feed", "status"}),
		importRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranstat_import_rows_total",
			Help: "Rows seen by imports, by feed and kind (raw, skipped, derived, inserted, updated).",
		}, []string{"feed", "kind"}),
		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ranstat_import_duration_seconds",
			Help:    "Wall time of one import from first byte to commit.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"feed"}),
		eventErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranstat_event_publish_errors_total",
			Help: "Import events that failed to publish.",
		}),
		retentionDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranstat_retention_deleted_rows_total",
			Help: "Rows removed by the retention task, by feed.",
		}, []string{"feed"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ranstat_ws_clients",
			Help: "Connected WebSocket clients.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranstat_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ranstat_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.importsTotal,
		m.importRowsTotal,
		m.importDuration,
		m.eventErrorsTotal,
		m.retentionDeleted,
		m.wsClients,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ImportCompleted records a committed import.
func (m *Metrics) ImportCompleted(s *domain.ImportSummary) {
	if m == nil || s == nil {
		return
	}
	feed := string(s.Feed)
	m.importsTotal.WithLabelValues(feed, "completed").Inc()
	m.importRowsTotal.WithLabelValues(feed, "raw").Add(float64(s.RawRecords))
	m.importRowsTotal.WithLabelValues(feed, "skipped").Add(float64(s.SkippedRecords))
	m.importRowsTotal.WithLabelValues(feed, "derived").Add(float64(s.DerivedRecords))
	m.importRowsTotal.WithLabelValues(feed, "inserted").Add(float64(s.Inserted))
	m.importRowsTotal.WithLabelValues(feed, "updated").Add(float64(s.Updated))
	m.importDuration.WithLabelValues(feed).Observe(float64(s.DurationMs) / 1000)
}

// ImportFailed records an aborted import.
func (m *Metrics) ImportFailed(feed domain.Feed) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(string(feed), "failed").Inc()
}

func (m *Metrics) EventPublishFailed() {
	if m == nil {
		return
	}
	m.eventErrorsTotal.Inc()
}

func (m *Metrics) RetentionDeleted(feed domain.Feed, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.retentionDeleted.WithLabelValues(string(feed)).Add(float64(n))
}

func (m *Metrics) WSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer (WebSocket hijack).
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack 透传给底层 writer，WebSocket 升级需要
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// WrapHandler counts requests and observes latency under a fixed route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
