package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Client.Timeout != 10*time.Second {
		t.Errorf("expected backend timeout 10s, got %v", cfg.Client.Timeout)
	}
	if cfg.Catalog.RefreshInterval != 30*time.Second {
		t.Errorf("expected catalog refresh 30s, got %v", cfg.Catalog.RefreshInterval)
	}
	if cfg.Seed.Path != "" {
		t.Errorf("expected seeding disabled by default, got %q", cfg.Seed.Path)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BACKEND_TIMEOUT", "2s")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SEED_PATH", "./seed.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Client.Timeout != 2*time.Second {
		t.Errorf("expected backend timeout 2s, got %v", cfg.Client.Timeout)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected text format, got %s", cfg.Logging.Format)
	}
	if cfg.Seed.Path != "./seed.yaml" {
		t.Errorf("expected seed path, got %q", cfg.Seed.Path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"same ports", "GRPC_PORT", "8080"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"no workers", "WORKER_COUNT", "0"},
		{"zero rate limit", "RATE_LIMIT_RPS", "0"},
		{"short catalog refresh", "CATALOG_REFRESH_INTERVAL", "10ms"},
		{"negative timeout", "BACKEND_TIMEOUT", "-1s"},
		{"relative backend url", "BACKEND_URL", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
