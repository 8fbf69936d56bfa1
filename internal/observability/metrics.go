// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// CacheRequests counts cache lookups by key family and result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_cache_requests_total",
		Help: "Cache lookups by key and result (hit, miss, error)",
	}, []string{"key", "result"})

	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DomainEvents counts successful forum actions.
	DomainEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_domain_events_total",
		Help: "Successful forum actions by kind",
	}, []string{"event"})

	// MediaUploads counts stored media files by backend.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_media_uploads_total",
		Help: "Media files stored by backend",
	}, []string{"backend"})

	// MediaUploadBytes counts stored media bytes by backend.
	MediaUploadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_media_upload_bytes_total",
		Help: "Media bytes stored by backend",
	}, []string{"backend"})

	// WebSocketConnections is the gauge of open realtime connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forum_websocket_connections",
		Help: "Number of open WebSocket connections",
	})

	// WebSocketEvents counts events delivered to the hub by type.
	WebSocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_websocket_events_total",
		Help: "Realtime events relayed by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped for slow clients.
	WebSocketBackpressureDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forum_websocket_backpressure_drops_total",
		Help: "Realtime messages dropped because a client send buffer was full",
	})
)

// Domain event labels.
const (
	EventUserRegistered = "user_registered"
	EventUserLoggedIn   = "user_logged_in"
	EventPostCreated    = "post_created"
	EventPostLiked      = "post_liked"
	EventCommentCreated = "comment_created"
)

// RecordDomainEvent increments the counter for event.
func RecordDomainEvent(event string) {
	DomainEvents.WithLabelValues(event).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordUpload records one stored media object of size bytes.
func RecordUpload(backend string, size int64) {
	MediaUploads.WithLabelValues(backend).Inc()
	if size > 0 {
		MediaUploadBytes.WithLabelValues(backend).Add(float64(size))
	}
}
