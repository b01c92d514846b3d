package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
	Seed      SeedConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
	Client    ClientConfig
}

type GRPCConfig struct {
	Port           int
	HealthInterval time.Duration
}

type ServerConfig struct {
	Host string
	Port int
}

// WorkerConfig sizes the pool that copies saved template links to the
// alerts table.
type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type SeedConfig struct {
	Path string // empty disables seeding
}

type CatalogConfig struct {
	RefreshInterval time.Duration
}

type RateLimitConfig struct {
	RPS   int
	Burst int
}

// ClientConfig is used by alertctl to reach the template backend.
type ClientConfig struct {
	BackendURL string
	Timeout    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		GRPC: GRPCConfig{
			Port:           getEnvInt("GRPC_PORT", 50051),
			HealthInterval: getEnvDuration("GRPC_HEALTH_INTERVAL", 15*time.Second),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 100),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/alert-relationships.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Seed: SeedConfig{
			Path: getEnv("SEED_PATH", ""),
		},
		Catalog: CatalogConfig{
			RefreshInterval: getEnvDuration("CATALOG_REFRESH_INTERVAL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvInt("RATE_LIMIT_RPS", 20),
			Burst: getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Client: ClientConfig{
			BackendURL: getEnv("BACKEND_URL", "http://localhost:8080"),
			Timeout:    getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.GRPC.Port == c.Server.Port {
		return fmt.Errorf("gRPC port must differ from server port")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	if c.RateLimit.RPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 request per second")
	}
	if c.Catalog.RefreshInterval < time.Second {
		return fmt.Errorf("catalog refresh interval must be at least 1 second")
	}
	if c.GRPC.HealthInterval < time.Second {
		return fmt.Errorf("gRPC health interval must be at least 1 second")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if u, err := url.Parse(c.Client.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend URL: %q", c.Client.BackendURL)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
