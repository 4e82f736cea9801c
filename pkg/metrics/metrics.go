package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// relay counters, exposed on /metrics beside the default go collectors
var (
	// EventsTotal count inbound ws events by kind
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_total",
		Help: "Inbound websocket events by kind.",
	}, []string{"kind"})

	// DroppedTotal count silently dropped events by reason
	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dropped_events_total",
		Help: "Inbound events dropped without echo, by reason.",
	}, []string{"reason"})

	// BroadcastsTotal count outbound frames actually written
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_outbound_frames_total",
		Help: "Outbound frames written to sessions.",
	})

	// SavesTotal count persistence flushes
	SavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_snapshot_saves_total",
		Help: "Completed persistence flushes.",
	})

	// SaveErrorsTotal count persistence failures
	SaveErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_snapshot_save_errors_total",
		Help: "Failed persistence flushes.",
	})

	// SessionsGauge live connected sessions
	SessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_sessions",
		Help: "Currently connected sessions.",
	})

	// RoomsGauge rooms resident in the store
	RoomsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_rooms",
		Help: "Rooms resident in the in-memory store.",
	})
)
