// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Websocket transport metrics
	WSConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jellywatch_websocket_connected",
			Help: "Whether the Jellyfin websocket is currently connected (1/0)",
		},
	)

	WSReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jellywatch_websocket_reconnects_total",
			Help: "Total number of websocket reconnect attempts",
		},
	)

	WSKeepaliveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jellywatch_websocket_keepalive_failures_total",
			Help: "Total number of keepalive intervals that elapsed without a pong",
		},
	)

	WSEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellywatch_websocket_events_total",
			Help: "Total websocket events received, by message type",
		},
		[]string{"type"},
	)

	DispatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellywatch_dispatch_errors_total",
			Help: "Total event handler failures, by message type",
		},
		[]string{"type"},
	)

	// Session reconciler metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jellywatch_active_sessions",
			Help: "Current number of tracked playback sessions",
		},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellywatch_sessions_ended_total",
			Help: "Total sessions moved to history, by end reason",
		},
		[]string{"reason"}, // "stopped", "poll_debounce", "timeout"
	)

	// Metadata cache metrics
	MetadataCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellywatch_metadata_cache_hits_total",
			Help: "Total metadata cache hits, by layer",
		},
		[]string{"layer"}, // "memory", "disk"
	)

	MetadataCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jellywatch_metadata_cache_misses_total",
			Help: "Total metadata cache misses requiring an upstream fetch",
		},
	)

	// Persistence metrics
	HistoryRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jellywatch_history_rows_total",
			Help: "Total play history rows written",
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jellywatch_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellywatch_duckdb_query_errors_total",
			Help: "Total DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Upstream client metrics
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jellywatch_circuit_breaker_state",
			Help: "Jellyfin client circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jellywatch_upstream_request_duration_seconds",
			Help:    "Duration of Jellyfin REST calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// HTTP API metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jellywatch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// UI hub metrics
	HubClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jellywatch_hub_clients",
			Help: "Current number of connected dashboard websocket clients",
		},
	)

	HubBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jellywatch_hub_broadcasts_total",
			Help: "Total frames broadcast to dashboard clients",
		},
	)
)

// RecordEvent counts one received websocket event.
func RecordEvent(messageType string) {
	WSEventsReceived.WithLabelValues(messageType).Inc()
}

// RecordDispatchError counts one handler failure for an event type.
func RecordDispatchError(messageType string) {
	DispatchErrors.WithLabelValues(messageType).Inc()
}

// RecordDBQuery observes a query and counts its error, if any.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordUpstreamRequest observes one Jellyfin REST call.
func RecordUpstreamRequest(operation string, duration time.Duration) {
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetWSConnected flips the websocket connectivity gauge.
func SetWSConnected(connected bool) {
	if connected {
		WSConnected.Set(1)
	} else {
		WSConnected.Set(0)
	}
}

// RecordSessionEnded counts a session leaving the current table.
func RecordSessionEnded(reason string) {
	SessionsEnded.WithLabelValues(reason).Inc()
}
