// Package config loads and validates the environment at startup. The
// process refuses to start on an invalid configuration rather than
// limping along with surprising defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the validated runtime configuration.
type Config struct {
	Port      string
	Env       string // development | production
	ClientURL []string

	RedisURL    string // optional
	DatabaseURL string // optional
	JWTSecret   string // required when DatabaseURL is set

	OTLPEndpoint string // optional, enables tracing

	// APIRateLimit is requests per window per source address on the
	// REST surface.
	APIRateLimit  int64
	APIRateWindow time.Duration

	SpectatorCap int
}

// Production reports whether the server runs with production hardening.
func (c *Config) Production() bool { return c.Env == "production" }

// Load reads and validates the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		Env:           environment(),
		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		APIRateLimit:  100,
		APIRateWindow: 15 * time.Minute,
		SpectatorCap:  50,
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}

	clientURL := getenv("CLIENT_URL", "*")
	for _, origin := range strings.Split(clientURL, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.ClientURL = append(cfg.ClientURL, origin)
		}
	}
	if len(cfg.ClientURL) == 0 {
		return nil, fmt.Errorf("CLIENT_URL must name at least one origin")
	}
	if cfg.Production() {
		for _, origin := range cfg.ClientURL {
			if origin == "*" {
				return nil, fmt.Errorf("CLIENT_URL wildcard is not allowed in production")
			}
		}
	}

	if cfg.DatabaseURL != "" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when DATABASE_URL is set")
	}

	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("API_RATE_LIMIT must be a positive integer, got %q", v)
		}
		cfg.APIRateLimit = n
	}
	if v := os.Getenv("API_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("API_RATE_WINDOW must be a positive duration, got %q", v)
		}
		cfg.APIRateWindow = d
	}
	if v := os.Getenv("SPECTATOR_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("SPECTATOR_CAP must be a positive integer, got %q", v)
		}
		cfg.SpectatorCap = n
	}

	return cfg, nil
}

// environment resolves GO_ENV, honoring NODE_ENV from legacy
// deployments when GO_ENV is unset.
func environment() string {
	if env := os.Getenv("GO_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("NODE_ENV"); env != "" {
		return env
	}
	return "development"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
