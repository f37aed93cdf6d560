package server

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roomcast/roomcast/internal/metrics"
	"github.com/roomcast/roomcast/internal/platform/connid"
)

// handleWebSocket is the transport boundary of the chat core. Everything the
// room assumes at admission is enforced here: the request is a valid upgrade,
// the username (from the ?username query parameter) is non-empty after
// trimming, and instance capacity has headroom. Only then does the room see
// the connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	username := strings.TrimSpace(c.QueryParam("username"))
	if username == "" {
		metrics.ConnectionsRejectedTotal.WithLabelValues("missing_username").Inc()
		return c.String(400, "username query parameter is required")
	}

	if !s.limiter.Acquire() {
		metrics.ConnectionsRejectedTotal.WithLabelValues("capacity").Inc()
		slog.Warn("Rejecting connection: instance at capacity", "max_connections", s.limiter.Max())
		return c.String(503, "Server at capacity, try again later")
	}
	defer s.limiter.Release()

	ctx := connid.WithID(c.Request().Context(), connid.NewID())

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.ConnectionsRejectedTotal.WithLabelValues("upgrade_failed").Inc()
		slog.WarnContext(ctx, "WebSocket upgrade failed", "error", err)
		return nil
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	if err := s.room.Join(conn, username); err != nil {
		// Connection already closed by the room on a capacity rejection.
		slog.WarnContext(ctx, "Room admission failed", "username", username, "error", err)
		_ = conn.Close()
		return nil
	}

	slog.InfoContext(ctx, "WebSocket connected", "username", username)

	// Read pump: every inbound frame is handed to the room; the loop exits
	// when the transport reports close or error.
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.room.HandleFrame(conn, messageType, data)
	}

	s.room.Leave(conn)
	slog.InfoContext(ctx, "WebSocket disconnected", "username", username)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
