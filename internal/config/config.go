// Package config provides environment-driven configuration for friendgraph.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string
	APIKey      Secret

	// DatabaseURL selects the Postgres store; empty keeps runs in memory.
	DatabaseURL Secret
	DBMaxConns  int

	// RedisURL enables the friend-list cache in front of the source.
	RedisURL Secret
	CacheTTL time.Duration

	SourceURL       string
	SourceToken     Secret
	SourceRateLimit float64

	MaxNodes       int
	MaxFriends     int
	CrawlWorkers   int
	CrawlTimeout   time.Duration
	CrawlQueueSize int

	TracesExporter string
	OTLPEndpoint   string
}

// LoadDotEnv reads KEY=value pairs from path into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           envOrDefault("PORT", "3030"),
		ListenHost:     envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		APIKey:         Secret(envOrDefault("API_KEY", "")),
		DatabaseURL:    Secret(envOrDefault("DATABASE_URL", "")),
		RedisURL:       Secret(envOrDefault("REDIS_URL", "")),
		SourceURL:      envOrDefault("SOURCE_URL", ""),
		SourceToken:    Secret(envOrDefault("SOURCE_TOKEN", "")),
		TracesExporter: envOrDefault("OTEL_TRACES_EXPORTER", "none"),
		OTLPEndpoint:   envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"DB_MAX_CONNS", 11, &cfg.DBMaxConns},
		{"MAX_NODES", 100, &cfg.MaxNodes},
		{"MAX_FRIENDS", 0, &cfg.MaxFriends},
		{"CRAWL_WORKERS", 4, &cfg.CrawlWorkers},
		{"CRAWL_QUEUE_SIZE", 64, &cfg.CrawlQueueSize},
	}
	for _, v := range ints {
		if *v.dst, err = intEnv(v.key, v.fallback); err != nil {
			return nil, err
		}
	}

	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if cfg.CrawlTimeout, err = durationEnv("CRAWL_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	rl := envOrDefault("SOURCE_RATE_LIMIT", "10")
	if cfg.SourceRateLimit, err = strconv.ParseFloat(rl, 64); err != nil {
		return nil, fmt.Errorf("SOURCE_RATE_LIMIT must be a number, got %q", rl)
	}

	if origins := envOrDefault("CORS_ORIGINS", ""); origins != "" {
		for o := range strings.SplitSeq(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, s)
	}

	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m, got %q", key, s)
	}

	return d, nil
}
