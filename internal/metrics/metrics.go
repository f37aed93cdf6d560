// Package metrics defines Prometheus metrics for the chat room core,
// registered via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Room metrics
var (
	// RoomConnectedClients tracks the number of sessions currently in the room
	RoomConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_connected_clients",
			Help: "Number of sessions currently registered in the room",
		},
	)

	// RoomJoinsTotal counts admissions into the room
	RoomJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_joins_total",
			Help: "Total sessions admitted into the room",
		},
	)

	// RoomLeavesTotal counts evictions by reason (disconnect, send_failure, shutdown)
	RoomLeavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_leaves_total",
			Help: "Total sessions evicted from the room by reason",
		},
		[]string{"reason"},
	)

	// RoomBroadcastsTotal counts broadcast operations by message type
	RoomBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_broadcasts_total",
			Help: "Total broadcast operations by message type",
		},
		[]string{"type"},
	)

	// RoomBroadcastDuration tracks fan-out duration per broadcast in seconds
	RoomBroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "room_broadcast_duration_seconds",
			Help:    "Broadcast fan-out duration in seconds",
			Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1},
		},
	)

	// RoomSendFailuresTotal counts sends that failed and marked a session for removal
	RoomSendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_send_failures_total",
			Help: "Total failed sends that marked a session for removal",
		},
	)

	// RoomMalformedFramesTotal counts inbound frames rejected as malformed
	RoomMalformedFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_malformed_frames_total",
			Help: "Total inbound frames rejected as malformed",
		},
	)

	// RoomPingsTotal counts application-level ping probes answered
	RoomPingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_pings_total",
			Help: "Total application-level ping probes answered with a pong",
		},
	)

	// RoomCommandChannelDepth tracks the room actor's command queue depth
	RoomCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_command_channel_depth",
			Help: "Current depth of the room actor command channel",
		},
	)

	// RoomPanicsTotal counts panics recovered in the room actor loop
	RoomPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_panics_total",
			Help: "Total panics recovered in the room actor loop",
		},
	)

	// RoomStopTimeoutsTotal counts graceful stops that exceeded their deadline
	RoomStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_stop_timeouts_total",
			Help: "Total graceful stops that exceeded their deadline",
		},
	)
)

// Server metrics
var (
	// ConnectionsRejectedTotal counts connections rejected before admission by cause
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "server_connections_rejected_total",
			Help: "Total WebSocket connections rejected before admission by cause",
		},
		[]string{"cause"},
	)

	// WebSocketMessageSendDuration tracks time spent writing a frame to a client
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "Time spent writing a single frame to a client",
			Buckets: []float64{.0001, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// WebSocketPingFailures counts failed transport-level keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total failed transport-level keepalive pings",
		},
	)
)
