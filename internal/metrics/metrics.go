// Package metrics exposes Prometheus instrumentation for the proxy,
// extraction and HTTP layers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webacquire"

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing, so tests and the CLI can skip instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	proxyRequests       *prometheus.CounterVec
	proxyDuration       *prometheus.HistogramVec
	extractionRequests  *prometheus.CounterVec
	extractionDuration  *prometheus.HistogramVec
	fanoutItems         *prometheus.HistogramVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry. A private registry
// keeps repeated construction in tests from panicking on duplicate
// registration.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		proxyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_requests_total",
				Help:      "Proxy calls by zone and outcome.",
			},
			[]string{"zone", "outcome"},
		),
		proxyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "proxy_request_duration_seconds",
				Help:      "Proxy call latency in seconds.",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
			},
			[]string{"zone"},
		),
		extractionRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_requests_total",
				Help:      "Structured-extraction calls by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		extractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_request_duration_seconds",
				Help:      "Structured-extraction latency in seconds.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
			},
			[]string{"provider"},
		),
		fanoutItems: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fanout_items",
				Help:      "Items dispatched per acquire call.",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 150},
			},
			[]string{"action"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code.",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.proxyRequests,
		m.proxyDuration,
		m.extractionRequests,
		m.extractionDuration,
		m.fanoutItems,
		m.httpRequests,
		m.httpRequestDuration,
	)

	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveProxy records one proxy call.
func (m *Metrics) ObserveProxy(zone string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(zone, outcome(success)).Inc()
	m.proxyDuration.WithLabelValues(zone).Observe(d.Seconds())
}

// ObserveExtraction records one extraction attempt against a provider.
func (m *Metrics) ObserveExtraction(provider string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.extractionRequests.WithLabelValues(provider, outcome(success)).Inc()
	m.extractionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveFanout records how many items one call dispatched.
func (m *Metrics) ObserveFanout(action string, items int) {
	if m == nil {
		return
	}
	m.fanoutItems.WithLabelValues(action).Observe(float64(items))
}

// Middleware records request counts and latency per matched gin route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
