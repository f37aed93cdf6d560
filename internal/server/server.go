package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/roomcast/roomcast/internal/platform/config"
	"github.com/roomcast/roomcast/internal/room"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	room      *room.Room
	limiter   *ConnectionLimiter
	upgrader  websocket.Upgrader
	startTime time.Time
}

func NewServer(cfg *config.Config, chatRoom *room.Room) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		room:      chatRoom,
		limiter:   NewConnectionLimiter(cfg.MaxConnections),
		startTime: time.Now(),
	}

	originCheck := newOriginChecker(cfg.Origins())
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originCheck(r)
		},
	}

	srv.registerRoutes()

	return srv
}

// Start begins listening on the configured port. Blocks until Shutdown.
func (s *Server) Start() error {
	if err := s.echo.Start(":" + s.config.Port); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
