package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/advisor")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(10), cfg.DailyQueryLimit)
	assert.Equal(t, int64(200), cfg.MonthlyQueryLimit)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 15*time.Second, cfg.SearchTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/advisor")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DAILY_QUERY_LIMIT", "50")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(50), cfg.DailyQueryLimit)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
