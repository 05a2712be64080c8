package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration prometheus.Histogram
	rowsTotal    *prometheus.CounterVec
	assessments  *prometheus.CounterVec
	alertsTotal  *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),

		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_scans_total",
				Help: "Total number of scan cycles by source and outcome",
			},
			[]string{"source", "status"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "momentum_scan_duration_seconds",
				Help:    "Scan cycle duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_rows_total",
				Help: "Raw rows seen by the normalizer, by outcome",
			},
			[]string{"source", "outcome"},
		),
		assessments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_assessments_total",
				Help: "Trade assessments produced, by signal",
			},
			[]string{"signal"},
		),
		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_alerts_total",
				Help: "Assessments delivered to notifiers",
			},
			[]string{"notifier", "status"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_source_cache_total",
				Help: "Source cache lookups by result",
			},
			[]string{"source", "result"},
		),
	}

	reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.httpRequestsInFlight,
		r.scansTotal,
		r.scanDuration,
		r.rowsTotal,
		r.assessments,
		r.alertsTotal,
		r.cacheHits,
	)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordScan records a completed scan cycle.
func (r *Registry) RecordScan(source, status string, duration float64) {
	r.scansTotal.WithLabelValues(source, status).Inc()
	r.scanDuration.Observe(duration)
}

// RecordRows counts normalizer outcomes for a source. outcome is "ok" or
// "dropped".
func (r *Registry) RecordRows(source, outcome string, n int) {
	if n <= 0 {
		return
	}
	r.rowsTotal.WithLabelValues(source, outcome).Add(float64(n))
}

// RecordAssessment counts one assessment by signal label.
func (r *Registry) RecordAssessment(signal string) {
	r.assessments.WithLabelValues(signal).Inc()
}

// RecordAlert records a notifier delivery.
func (r *Registry) RecordAlert(notifier, status string) {
	r.alertsTotal.WithLabelValues(notifier, status).Inc()
}

// RecordCache records a source cache hit or miss.
func (r *Registry) RecordCache(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheHits.WithLabelValues(source, result).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
