// Package metrics exposes the Prometheus instruments for the chess
// server. All collectors are registered via promauto at init time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chess_server"

var (
	// ActiveConnections tracks currently open websocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Number of open websocket connections.",
	})

	// ActiveRooms tracks live rooms partitioned by lifecycle state.
	ActiveRooms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_rooms",
		Help:      "Number of rooms by state.",
	}, []string{"state"})

	// RoomParticipants tracks per-room occupancy by role.
	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "room_participants",
		Help:      "Participants in rooms by role.",
	}, []string{"role"})

	// RequestsTotal counts processed client requests by event and result.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Client requests processed, by event name and result.",
	}, []string{"event", "result"})

	// RequestDuration observes request handling latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Request handling latency by event name.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event"})

	// GamesFinished counts terminal games by outcome.
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_finished_total",
		Help:      "Finished games by terminal status.",
	}, []string{"status"})

	// CircuitBreakerState reports the Redis breaker state (0 closed,
	// 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Redis circuit breaker state: 0=closed 1=half-open 2=open.",
	})

	// CircuitBreakerFailures counts consecutive breaker failures.
	CircuitBreakerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_failures_total",
		Help:      "Total failures observed by the Redis circuit breaker.",
	})
)
