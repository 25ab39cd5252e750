package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Typing.Window != 3*time.Second {
		t.Errorf("default typing window = %v, want 3s", cfg.Typing.Window)
	}
	if cfg.WebSocket.QueueSize != 100 {
		t.Errorf("default queue size = %d, want 100", cfg.WebSocket.QueueSize)
	}

	// Defaults alone must not validate: the auth secret has no safe
	// default and must come from the environment or file.
	if err := cfg.Validate(); err == nil {
		t.Error("defaults without an auth secret should not validate")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BAATCHEET_AUTH_SECRET", "test-secret")
	t.Setenv("BAATCHEET_HTTP_PORT", "9090")
	t.Setenv("BAATCHEET_TYPING_WINDOW", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Auth.Secret != "test-secret" {
		t.Errorf("secret not taken from environment")
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Typing.Window != 5*time.Second {
		t.Errorf("typing window = %v, want 5s", cfg.Typing.Window)
	}
	// Untouched settings keep their defaults.
	if cfg.HTTP.Host != "0.0.0.0" {
		t.Errorf("host = %s, want default", cfg.HTTP.Host)
	}
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	t.Setenv("BAATCHEET_AUTH_SECRET", "env-secret")
	t.Setenv("BAATCHEET_HTTP_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"http": {"port": 7070, "read_timeout": "45s"},
		"auth": {"secret": "file-secret"},
		"typing": {"window": "1s"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTP.Port != 7070 {
		t.Errorf("file should override env port, got %d", cfg.HTTP.Port)
	}
	if cfg.Auth.Secret != "file-secret" {
		t.Errorf("file should override env secret, got %s", cfg.Auth.Secret)
	}
	if cfg.HTTP.ReadTimeout != 45*time.Second {
		t.Errorf("read timeout = %v, want 45s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Typing.Window != time.Second {
		t.Errorf("typing window = %v, want 1s", cfg.Typing.Window)
	}
	// Settings the file omits fall through to env/defaults.
	if cfg.WebSocket.QueueSize != 100 {
		t.Errorf("queue size = %d, want default 100", cfg.WebSocket.QueueSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("BAATCHEET_AUTH_SECRET", "s")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Setenv("BAATCHEET_AUTH_SECRET", "s")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Auth.Secret = "s"
		return cfg
	}

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }},
		{"zero queue size", func(c *Config) { c.WebSocket.QueueSize = 0 }},
		{"empty secret", func(c *Config) { c.Auth.Secret = "" }},
		{"zero token TTL", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"zero typing window", func(c *Config) { c.Typing.Window = 0 }},
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config should validate, got %v", err)
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
