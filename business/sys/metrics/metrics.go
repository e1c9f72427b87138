// Package metrics constructs the metrics the application will track.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// This holds the single instance of the metrics value needed for
// collecting metrics. The collectors are safe for concurrent use.
var m *metrics

// metrics represents the set of metrics we gather.
type metrics struct {
	registry    *prometheus.Registry
	requests    prometheus.Counter
	errors      prometheus.Counter
	panics      prometheus.Counter
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	streams     prometheus.Gauge
	limitKeys   prometheus.Gauge
}

// init constructs the metrics value that will be used to capture metrics.
// The metrics value is stored in a package level variable since everything
// registered with a prometheus registry must be unique.
func init() {
	m = &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storage_http_requests_total",
			Help: "Number of http requests handled.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storage_http_errors_total",
			Help: "Number of http requests that returned an error.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storage_http_panics_total",
			Help: "Number of http requests that panicked.",
		}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_rpc_calls_total",
			Help: "Number of blockchain rpc calls by method and outcome.",
		}, []string{"method", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storage_rpc_duration_seconds",
			Help:    "Latency of blockchain rpc calls by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storage_event_streams",
			Help: "Number of connected event stream clients.",
		}),
		limitKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storage_ratelimit_keys",
			Help: "Number of client keys tracked by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.errors,
		m.panics,
		m.rpcCalls,
		m.rpcDuration,
		m.streams,
		m.limitKeys,
	)
}

// Handler returns the http handler that exposes the metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AddRequests increments the request count by 1.
func AddRequests() {
	m.requests.Inc()
}

// AddErrors increments the errors count by 1.
func AddErrors() {
	m.errors.Inc()
}

// AddPanics increments the panics count by 1.
func AddPanics() {
	m.panics.Inc()
}

// ObserveRPC records the outcome and latency of a single rpc call.
func ObserveRPC(method string, outcome string, took time.Duration) {
	m.rpcCalls.WithLabelValues(method, outcome).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(took.Seconds())
}

// SetStreams sets the number of connected event stream clients.
func SetStreams(n int) {
	m.streams.Set(float64(n))
}

// SetRateLimitKeys sets the number of client keys tracked by the rate limiter.
func SetRateLimitKeys(n int) {
	m.limitKeys.Set(float64(n))
}
