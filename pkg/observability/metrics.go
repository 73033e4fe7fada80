// Package observability provides Prometheus metrics and an
// instrumenting HTTP transport for the Mavi client.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets suited for video API latencies,
// ranging from 50ms to 120s (uploads and chat streams run long).
var APIBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all backend requests by endpoint and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mavi_requests_total",
			Help: "Total backend requests",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration records backend request duration in seconds by endpoint.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mavi_request_duration_seconds",
			Help:    "Backend request duration",
			Buckets: APIBuckets,
		},
		[]string{"endpoint"},
	)

	// StreamingConnections tracks the number of active chat stream connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mavi_streaming_connections_active",
			Help: "Active chat stream connections",
		},
	)

	// NetworkErrorsTotal counts requests that failed before a response arrived.
	NetworkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mavi_network_errors_total",
			Help: "Network-level request failures",
		},
		[]string{"endpoint"},
	)

	// StreamEventsTotal counts chat stream events delivered to consumers,
	// by event type ("delta" or "error").
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mavi_stream_events_total",
			Help: "Chat stream events delivered",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		NetworkErrorsTotal,
		StreamEventsTotal,
	)
}
