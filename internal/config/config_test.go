package config_test

import (
	"testing"
	"time"

	"matchgogo/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("MAX_DISTANCE_KM", "")
	t.Setenv("MIN_INTEREST_MATCH", "")
	t.Setenv("CACHE_TIMEOUT", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.BotToken)
	assert.Equal(t, 100.0, cfg.Matching.MaxDistanceKM)
	assert.Equal(t, 1, cfg.Matching.MinInterestMatch)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	require.ErrorIs(t, err, config.ErrMissingRequired)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("MAX_DISTANCE_KM", "far")
	t.Setenv("CACHE_TIMEOUT", "60")
	t.Setenv("WORKERS", "-3")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.Matching.MaxDistanceKM)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1, cfg.Workers)
}

func TestValidate_RedisBackendNeedsAddr(t *testing.T) {
	cfg := &config.Config{BotToken: "t", DatabaseURL: "d"}
	cfg.Cache.Backend = "redis"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Cache.Backend)
}
