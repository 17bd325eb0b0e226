// Package metrics holds the process Prometheus collectors, registered on the
// default registry and served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Websocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_ws_connections",
			Help: "Current number of websocket connections",
		},
	)

	WSRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_ws_rejected_total",
			Help: "Websocket upgrades rejected before registration",
		},
		[]string{"reason"}, // "origin", "auth", "limit"
	)

	Subscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_subscriptions",
			Help: "Current subscriptions per channel",
		},
		[]string{"channel"},
	)

	// Broadcast metrics
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_broadcast_ticks_total",
			Help: "Broadcast ticks by channel and outcome",
		},
		[]string{"channel", "outcome"}, // "ok", "skipped", "store_unavailable"
	)

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_broadcast_tick_duration_seconds",
			Help:    "Time spent computing and delivering one tick",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"channel"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_broadcast_deliveries_total",
			Help: "Per-connection snapshot deliveries by outcome",
		},
		[]string{"channel", "outcome"}, // "delivered", "failed"
	)

	// AIS feed metrics
	AISRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_ais_requests_total",
			Help: "AIS feed requests by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: "area", "identity"; outcome: "ok", "error", "rejected"
	)

	AISRecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_ais_records_dropped_total",
			Help: "AIS records dropped before display or write-back",
		},
		[]string{"reason"}, // "out_of_range", "outside_bbox"
	)

	AISBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_ais_circuit_breaker_state",
			Help: "AIS circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Store metrics
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_store_errors_total",
			Help: "Failed store calls by operation",
		},
		[]string{"operation"},
	)

	SimulatedUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_simulated_updates_total",
			Help: "Simulated position updates persisted to the store",
		},
		[]string{"path"}, // "refresh", "broadcast"
	)
)

// RecordTick records one broadcast tick.
func RecordTick(channel, outcome string, duration time.Duration) {
	TicksTotal.WithLabelValues(channel, outcome).Inc()
	TickDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

func RecordDelivery(channel string, ok bool) {
	outcome := "delivered"
	if !ok {
		outcome = "failed"
	}
	Deliveries.WithLabelValues(channel, outcome).Inc()
}

func RecordAISRequest(kind, outcome string) {
	AISRequests.WithLabelValues(kind, outcome).Inc()
}

func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}

// SetSubscriptionCounts replaces the per-channel subscription gauges.
func SetSubscriptionCounts(counts map[string]int) {
	for channel, n := range counts {
		Subscriptions.WithLabelValues(channel).Set(float64(n))
	}
}
