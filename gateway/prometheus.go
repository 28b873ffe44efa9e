package gateway

import "github.com/prometheus/client_golang/prometheus"

var (
	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "online_judge_duel",
			Subsystem: "gateway",
			Name:      "connections_total",
			Help:      "Battle websocket connections total.",
		},
		[]string{"reason"},
	)
	connectionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "online_judge_duel",
			Subsystem: "gateway",
			Name:      "connection_duration_seconds",
			Help:      "Battle websocket connection duration in seconds.",
			Buckets:   []float64{1, 10, 60, 300, 600, 1200, 3600},
		},
		[]string{"reason"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "online_judge_duel",
			Subsystem: "gateway",
			Name:      "active_connections",
			Help:      "Battle websocket active connections.",
		},
	)
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "online_judge_duel",
			Subsystem: "gateway",
			Name:      "events_total",
			Help:      "Inbound websocket events total.",
		},
		[]string{"event", "reply"},
	)
	eventDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "online_judge_duel",
			Subsystem: "gateway",
			Name:      "event_duration_seconds",
			Help:      "Inbound websocket event handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		connectionsTotal,
		connectionDurationSeconds,
		activeConnections,
		eventsTotal,
		eventDurationSeconds,
	)
}
