// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Channel Metrics
	ChannelMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_channel_messages_total",
			Help: "Messages crossing a host/guest channel",
		},
		[]string{"direction", "type"}, // direction: "in", "out"
	)

	ChannelDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_channel_dropped_total",
			Help: "Messages dropped by a channel endpoint",
		},
		[]string{"reason"}, // "not_ready", "origin", "inbox_full", "closed", "unconnected"
	)

	// Guest SDK Metrics
	GuestRequestTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_guest_request_timeouts_total",
			Help: "Guest requests that received no reply in time",
		},
		[]string{"type"},
	)

	// Host Metrics
	HostEmbeddingsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamebridge_host_embeddings_active",
			Help: "Embedded games currently managed by a host",
		},
	)

	HostMessagesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_host_messages_handled_total",
			Help: "Guest messages processed by the host dispatcher",
		},
		[]string{"type", "result"}, // result: "ok", "error", "ignored", "rate_limited"
	)

	ScoresSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_scores_saved_total",
			Help: "Score save attempts by outcome",
		},
		[]string{"result"}, // "saved", "unauthenticated", "failed"
	)

	// Lobby Metrics
	LobbyOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_lobby_operations_total",
			Help: "Lobby operations by outcome",
		},
		[]string{"operation", "result"},
	)

	StoreTxnConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamebridge_store_txn_conflicts_total",
			Help: "Session store transactions retried after a write conflict",
		},
	)

	// Change Feed Metrics
	ChangefeedPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_changefeed_published_total",
			Help: "Change notifications published",
		},
		[]string{"kind", "result"}, // kind: "changes", "relay"
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamebridge_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_duckdb_query_errors_total",
			Help: "DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_api_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamebridge_api_request_duration_seconds",
			Help:    "HTTP API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Cache Metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"cache", "result"}, // "hit", "miss"
	)

	// WebSocket Metrics
	WebSocketConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gamebridge_websocket_connections",
			Help: "Open websocket connections",
		},
		[]string{"kind"}, // "guest", "observer"
	)

	// Audit Metrics
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_audit_events_total",
			Help: "Audit events accepted for writing",
		},
		[]string{"action", "outcome"},
	)

	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamebridge_audit_dropped_total",
			Help: "Audit events dropped because the write buffer was full",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gamebridge_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebridge_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordChannelMessage counts a message crossing a channel.
func RecordChannelMessage(direction, msgType string) {
	ChannelMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordChannelDrop counts a dropped message.
func RecordChannelDrop(reason string) {
	ChannelDropped.WithLabelValues(reason).Inc()
}

// RecordGuestTimeout counts a guest request that timed out.
func RecordGuestTimeout(msgType string) {
	GuestRequestTimeouts.WithLabelValues(msgType).Inc()
}

// RecordHostMessage counts a dispatched guest message.
func RecordHostMessage(msgType, result string) {
	HostMessagesHandled.WithLabelValues(msgType, result).Inc()
}

// RecordScoreSave counts a score save outcome.
func RecordScoreSave(result string) {
	ScoresSaved.WithLabelValues(result).Inc()
}

// RecordLobbyOperation counts a lobby operation; err selects the result label.
func RecordLobbyOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	LobbyOperations.WithLabelValues(operation, result).Inc()
}

// RecordChangefeedPublish counts a published change notification.
func RecordChangefeedPublish(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ChangefeedPublished.WithLabelValues(kind, result).Inc()
}

// RecordDBQuery records a DuckDB query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache lookup.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordAuditEvent counts an audit event; dropped marks a full buffer.
func RecordAuditEvent(action, outcome string, dropped bool) {
	if dropped {
		AuditDropped.Inc()
		return
	}
	AuditEvents.WithLabelValues(action, outcome).Inc()
}
