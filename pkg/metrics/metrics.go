// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// StreamDuration tracks end-to-end chat stream duration.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_stream_duration_seconds",
			Help:    "Chat stream duration from draft to terminal event",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// StreamEventsTotal tracks normalized provider events by kind.
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_stream_events_total",
			Help: "Normalized stream events emitted to clients",
		},
		[]string{"provider", "kind"},
	)

	// AdapterParseErrors tracks swallowed per-line parse failures.
	AdapterParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_parse_errors_total",
			Help: "Upstream lines dropped by dialect adapters",
		},
		[]string{"dialect"},
	)

	// ActiveStreams tracks in-flight conversation streams.
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_streams_active",
			Help: "Number of in-flight conversation streams",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// BroadcastChannels tracks registered conversation side channels.
	BroadcastChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_channels_active",
			Help: "Registered conversation broadcast channels",
		},
	)

	// ToolCallsTotal tracks ledger transitions by tool and status.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Tool-call ledger records by final status",
		},
		[]string{"tool", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStream records metrics for one completed chat stream.
func RecordStream(provider, status string, duration float64) {
	StreamDuration.WithLabelValues(provider, status).Observe(duration)
}
