// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingRequired is returned by Load when a required key is not set.
var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	BotToken    string
	DatabaseURL string

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	Matching struct {
		MaxDistanceKM    float64
		MinInterestMatch int
	}

	Cache struct {
		Backend string
		TTL     time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Geocoder struct {
		URL       string
		UserAgent string
	}

	HTTPAddr string
	Workers  int
}

// Load reads the configuration from the environment. Numeric values that
// fail to parse fall back to their defaults and are reported through warn.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "matchgogo")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Matching
	cfg.Matching.MaxDistanceKM = getEnvFloat("MAX_DISTANCE_KM", 100)
	cfg.Matching.MinInterestMatch = getEnvInt("MIN_INTEREST_MATCH", 1)

	// Cache
	cfg.Cache.Backend = strings.ToLower(getEnvDefault("CACHE_BACKEND", "memory"))
	cfg.Cache.TTL = time.Duration(getEnvInt("CACHE_TIMEOUT", 300)) * time.Second

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// Geocoder
	cfg.Geocoder.URL = getEnvDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org")
	cfg.Geocoder.UserAgent = getEnvDefault("GEOCODER_USER_AGENT", "matchgogo-bot/1.0")

	cfg.HTTPAddr = getEnvDefault("HTTP_ADDR", ":8080")
	cfg.Workers = getEnvInt("WORKERS", 8)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the required keys and clamps out-of-range values.
func (c *Config) Validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	if c.Matching.MaxDistanceKM <= 0 {
		c.Matching.MaxDistanceKM = 100
	}
	if c.Matching.MinInterestMatch < 0 {
		c.Matching.MinInterestMatch = 1
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 300 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		slog.Warn("unknown CACHE_BACKEND, using memory", "value", c.Cache.Backend)
		c.Cache.Backend = "memory"
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		slog.Warn("CACHE_BACKEND=redis without REDIS_ADDR, using memory")
		c.Cache.Backend = "memory"
	}
	return nil
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer config value, using default", "key", k, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number config value, using default", "key", k, "value", v, "default", def)
		return def
	}
	return f
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
