// Package config is the system-wide settings layer. Precedence:
// defaults, then environment variables, then an optional JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings.
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Database  DatabaseConfig  `json:"database"`
	WebSocket WebSocketConfig `json:"websocket"`
	Auth      AuthConfig      `json:"auth"`
	Typing    TypingConfig    `json:"typing"`
}

type HTTPConfig struct {
	Host         string        `json:"host" env:"BAATCHEET_HTTP_HOST"`
	Port         int           `json:"port" env:"BAATCHEET_HTTP_PORT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"BAATCHEET_HTTP_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"BAATCHEET_HTTP_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Path           string        `json:"path" env:"BAATCHEET_DATABASE_PATH"`
	MaxConnections int           `json:"max_connections" env:"BAATCHEET_DATABASE_MAX_CONNECTIONS"`
	Timeout        time.Duration `json:"timeout" env:"BAATCHEET_DATABASE_TIMEOUT"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval" env:"BAATCHEET_WEBSOCKET_PING_INTERVAL"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"BAATCHEET_WEBSOCKET_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"BAATCHEET_WEBSOCKET_WRITE_TIMEOUT"`
	QueueSize    int           `json:"queue_size" env:"BAATCHEET_WEBSOCKET_QUEUE_SIZE"`
}

type AuthConfig struct {
	Secret   string        `json:"secret" env:"BAATCHEET_AUTH_SECRET"`
	Issuer   string        `json:"issuer" env:"BAATCHEET_AUTH_ISSUER"`
	TokenTTL time.Duration `json:"token_ttl" env:"BAATCHEET_AUTH_TOKEN_TTL"`
}

type TypingConfig struct {
	Window time.Duration `json:"window" env:"BAATCHEET_TYPING_WINDOW"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:           "./baatcheet.db",
			MaxConnections: 10,
			Timeout:        30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			QueueSize:    100,
		},
		Auth: AuthConfig{
			Issuer:   "baatcheet",
			TokenTTL: 24 * time.Hour,
		},
		Typing: TypingConfig{
			Window: 3 * time.Second,
		},
	}
}

// Load builds the configuration with precedence file > env > defaults.
// Pass an empty path to skip the file layer.
func Load(filePath string) (*Config, error) {
	cfg := DefaultConfig()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if filePath != "" {
		if err := applyFile(cfg, filePath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with string durations so the JSON file can
// say "30s" instead of nanosecond counts. Zero values leave the
// corresponding setting untouched.
type fileConfig struct {
	HTTP struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"http"`
	Database struct {
		Path           string `json:"path"`
		MaxConnections int    `json:"max_connections"`
		Timeout        string `json:"timeout"`
	} `json:"database"`
	WebSocket struct {
		PingInterval string `json:"ping_interval"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
		QueueSize    int    `json:"queue_size"`
	} `json:"websocket"`
	Auth struct {
		Secret   string `json:"secret"`
		Issuer   string `json:"issuer"`
		TokenTTL string `json:"token_ttl"`
	} `json:"auth"`
	Typing struct {
		Window string `json:"window"`
	} `json:"typing"`
}

// applyFile overlays settings from a JSON file onto cfg.
func applyFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	if fc.HTTP.Host != "" {
		cfg.HTTP.Host = fc.HTTP.Host
	}
	if fc.HTTP.Port > 0 {
		cfg.HTTP.Port = fc.HTTP.Port
	}
	applyDuration(&cfg.HTTP.ReadTimeout, fc.HTTP.ReadTimeout)
	applyDuration(&cfg.HTTP.WriteTimeout, fc.HTTP.WriteTimeout)

	if fc.Database.Path != "" {
		cfg.Database.Path = fc.Database.Path
	}
	if fc.Database.MaxConnections > 0 {
		cfg.Database.MaxConnections = fc.Database.MaxConnections
	}
	applyDuration(&cfg.Database.Timeout, fc.Database.Timeout)

	applyDuration(&cfg.WebSocket.PingInterval, fc.WebSocket.PingInterval)
	applyDuration(&cfg.WebSocket.ReadTimeout, fc.WebSocket.ReadTimeout)
	applyDuration(&cfg.WebSocket.WriteTimeout, fc.WebSocket.WriteTimeout)
	if fc.WebSocket.QueueSize > 0 {
		cfg.WebSocket.QueueSize = fc.WebSocket.QueueSize
	}

	if fc.Auth.Secret != "" {
		cfg.Auth.Secret = fc.Auth.Secret
	}
	if fc.Auth.Issuer != "" {
		cfg.Auth.Issuer = fc.Auth.Issuer
	}
	applyDuration(&cfg.Auth.TokenTTL, fc.Auth.TokenTTL)

	applyDuration(&cfg.Typing.Window, fc.Typing.Window)

	return nil
}

func applyDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.ReadTimeout <= 0 || c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket timeouts must be positive")
	}
	if c.WebSocket.QueueSize <= 0 {
		return fmt.Errorf("WebSocket queue size must be positive")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token TTL must be positive")
	}
	if c.Typing.Window <= 0 {
		return fmt.Errorf("typing window must be positive")
	}
	return nil
}
