// Package server implements the HTTP server using Echo framework.
//
// Routes: /ws (WebSocket upgrade into the room), /health/live, /health/ready,
// /version, /metrics. The WebSocket handler owns everything that happens
// before the room sees a connection: username validation, origin checking and
// the global connection limit.
package server
