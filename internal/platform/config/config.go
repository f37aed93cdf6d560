package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// MaxConnections caps concurrent WebSocket connections per instance.
	MaxConnections int64 `env:"MAX_CONNECTIONS" default:"10000"`
	// MaxClientsPerRoom caps sessions admitted to the room.
	MaxClientsPerRoom int `env:"MAX_CLIENTS_PER_ROOM" default:"500"`
	// MaxMessageSize is the read limit for inbound frames in bytes.
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" default:"4096"`

	// AllowedOrigins is a comma-separated list of origins permitted to open
	// WebSocket connections. "*" allows all.
	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"*"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.MaxClientsPerRoom <= 0 {
		return fmt.Errorf("MAX_CLIENTS_PER_ROOM must be positive, got %d", cfg.MaxClientsPerRoom)
	}
	if cfg.MaxMessageSize < 64 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be at least 64 bytes, got %d", cfg.MaxMessageSize)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", cfg.ShutdownTimeout)
	}
	return nil
}

// Origins returns the parsed allow-list, trimmed and with empty entries dropped.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
