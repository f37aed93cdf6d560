package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/roomcast/roomcast/internal/platform/config"
	"github.com/roomcast/roomcast/internal/platform/logging"
	"github.com/roomcast/roomcast/internal/platform/version"
	"github.com/roomcast/roomcast/internal/room"
	"github.com/roomcast/roomcast/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(cfg *config.Config, srv *server.Server, chatRoom *room.Room) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		chatRoom.Stop()

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	info := version.Get()
	slog.Info("Starting roomcast",
		"version", info.Version,
		"commit", info.Commit,
		"app_env", cfg.AppEnv,
		"port", cfg.Port,
	)

	chatRoom := room.NewRoom(clockwork.NewRealClock(), cfg.MaxClientsPerRoom)
	srv := server.NewServer(cfg, chatRoom)

	done := runGracefulShutdown(cfg, srv, chatRoom)

	if err := srv.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
