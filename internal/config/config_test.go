package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Engine.Store)
	assert.Equal(t, 5, cfg.Engine.RedeemAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.RedeemBackoff)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "@every 1m", cfg.Scheduler.StatusSweepSpec)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("COUPON_STORE", "Memory")
	t.Setenv("REDEEM_MAX_ATTEMPTS", "9")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("COUPON_CACHE_TTL_SEC", "5")
	t.Setenv("EVAL_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Engine.Store)
	assert.Equal(t, 9, cfg.Engine.RedeemAttempts)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 4, cfg.Engine.Workers)
}
