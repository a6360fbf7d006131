package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEmailSet(t *testing.T) {
	set := parseEmailSet(" Alice@Example.com , bob@example.com ,, ")
	assert.Equal(t, map[string]bool{
		"alice@example.com": true,
		"bob@example.com":   true,
	}, set)

	assert.Empty(t, parseEmailSet(""))
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	// TTL is raised to several refill cycles.
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.Methods["GET"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, "route_query_user", cfg.KeyStrategy)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}
