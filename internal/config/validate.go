package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/persistorai/friendgraph/internal/telemetry"
)

func (c *Config) validate() error {
	checks := []func() error{
		c.validateNetwork,
		c.validateCORS,
		c.validateDatabase,
		c.validateRedis,
		c.validateSource,
		c.validateCrawl,
		c.validateTelemetry,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return nil
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	if !isLoopback(dbURL.Hostname()) && dbURL.Query().Get("sslmode") == "disable" {
		return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbURL.Hostname())
	}

	if c.DBMaxConns < 1 || c.DBMaxConns > 100 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 100")
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local runs, 0.0.0.0/:: inside containers.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateRedis() error {
	if c.RedisURL.Value() == "" {
		return nil
	}

	u, err := url.Parse(c.RedisURL.Value())
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		return fmt.Errorf("REDIS_URL must be a redis:// or rediss:// URL")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	return nil
}

func (c *Config) validateSource() error {
	if c.SourceURL != "" {
		u, err := url.ParseRequestURI(c.SourceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("SOURCE_URL must be an http(s) URL, got %q", c.SourceURL)
		}

		if u.Scheme == "http" && !isLoopback(u.Hostname()) && c.SourceToken.Value() != "" {
			return fmt.Errorf("SOURCE_URL must use HTTPS when SOURCE_TOKEN is set for a non-local host")
		}
	}

	if c.SourceRateLimit < 0 {
		return fmt.Errorf("SOURCE_RATE_LIMIT must not be negative")
	}

	return nil
}

func (c *Config) validateCrawl() error {
	if c.MaxNodes < 1 {
		return fmt.Errorf("MAX_NODES must be at least 1")
	}

	if c.MaxFriends < 0 {
		return fmt.Errorf("MAX_FRIENDS must not be negative")
	}

	if c.CrawlWorkers < 1 || c.CrawlWorkers > 16 {
		return fmt.Errorf("CRAWL_WORKERS must be an integer between 1 and 16")
	}

	if c.CrawlTimeout < 0 {
		return fmt.Errorf("CRAWL_TIMEOUT must not be negative")
	}

	if c.CrawlQueueSize < 1 || c.CrawlQueueSize > 10000 {
		return fmt.Errorf("CRAWL_QUEUE_SIZE must be between 1 and 10000")
	}

	return nil
}

func (c *Config) validateTelemetry() error {
	switch c.TracesExporter {
	case telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLP:
		return nil
	default:
		return fmt.Errorf("OTEL_TRACES_EXPORTER must be none, stdout or otlp, got %q", c.TracesExporter)
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
