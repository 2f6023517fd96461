package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSEventsTotal       prometheus.CounterVec
	WSMessagesRelayed   prometheus.CounterVec

	// Messaging and notification metrics
	MessagesSentTotal          prometheus.CounterVec
	NotificationsDispatchTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Database metrics
	DatabaseQueryDuration   prometheus.HistogramVec
	DatabaseConnectionsOpen prometheus.GaugeVec

	// Moderation metrics
	PostsFlaggedTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			WSConnectionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections_active",
					Help: "Number of currently open WebSocket connections",
				},
			),
			WSEventsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_events_total",
					Help: "Total number of WebSocket events processed",
				},
				[]string{"event_type", "direction"},
			),
			WSMessagesRelayed: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_relayed_total",
					Help: "Total number of direct messages relayed over WebSocket",
				},
				[]string{"delivery"},
			),

			MessagesSentTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "messages_sent_total",
					Help: "Total number of direct messages persisted",
				},
				[]string{"transport"},
			),
			NotificationsDispatchTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_dispatched_total",
					Help: "Total number of notifications dispatched",
				},
				[]string{"type", "delivery"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			DatabaseQueryDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"query_type", "table"},
			),
			DatabaseConnectionsOpen: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "database_connections_open",
					Help: "Number of currently open database connections",
				},
				[]string{"database"},
			),

			PostsFlaggedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "posts_flagged_total",
					Help: "Total number of posts flagged by content moderation",
				},
				[]string{"reason"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
