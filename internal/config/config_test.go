package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("REDIS_ADDRS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := LoadConfig()

	assert.Equal(t, "reservations.events", cfg.KafkaEventsTopic)
	assert.Equal(t, 15*time.Minute, cfg.BasketTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWait)
	assert.Equal(t, 120, cfg.HorizonDays)
	assert.Equal(t, 30, cfg.PublicHorizonDays)
	assert.Equal(t, "trailbuddy:development:", cfg.RedisKeyPrefix)
	assert.False(t, cfg.RedisClusterMode)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092;k3:9092")
	t.Setenv("REDIS_ADDRS", "r1:6379,r2:6379")
	t.Setenv("DEBOUNCE_WAIT", "250ms")
	t.Setenv("HORIZON_DAYS", "60")
	t.Setenv("BASKET_TTL", "not-a-duration")

	cfg := LoadConfig()

	assert.Equal(t, []string{"k1:9092", "k2:9092", "k3:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RedisClusterMode)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWait)
	assert.Equal(t, 60, cfg.HorizonDays)
	assert.Equal(t, 15*time.Minute, cfg.BasketTTL)
	assert.Equal(t, 25, cfg.DatabaseMaxConns)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero horizon", func(c *Config) { c.HorizonDays = 0 }},
		{"negative public horizon", func(c *Config) { c.PublicHorizonDays = -1 }},
		{"zero debounce", func(c *Config) { c.DebounceWait = 0 }},
		{"zero basket ttl", func(c *Config) { c.BasketTTL = 0 }},
		{"no brokers", func(c *Config) { c.KafkaBrokers = nil }},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus_Mons" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := LoadConfig()
	cfg.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
}
