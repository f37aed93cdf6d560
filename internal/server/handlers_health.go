package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roomcast/roomcast/internal/platform/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports ready once the room actor answers queries. A stuck
// or stopped actor times out its command and reports -1.
func (s *Server) handleReadiness(c echo.Context) error {
	clients := s.room.ClientCount()
	if clients < 0 {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "room",
		})
	}

	return c.JSON(200, map[string]any{
		"status":  "ready",
		"clients": clients,
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
