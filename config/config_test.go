package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STRICT_ORDER_TRANSITIONS", "ZONE_VERTEX_RADIUS_KM", "KAFKA_BROKERS", "KAFKA_ENABLED", "TRACE_SAMPLE_RATIO", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Business.StrictOrderTransitions)
	assert.Equal(t, 2.0, cfg.Business.ZoneVertexRadiusKm)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 1.0, cfg.Observ.TraceSampleRatio)
	assert.Empty(t, cfg.Observ.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STRICT_ORDER_TRANSITIONS", "false")
	t.Setenv("ZONE_VERTEX_RADIUS_KM", "3.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.1")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CORS_ORIGINS", "https://admin.example.com,https://shop.example.com")

	cfg := Load()
	assert.False(t, cfg.Business.StrictOrderTransitions)
	assert.Equal(t, 3.5, cfg.Business.ZoneVertexRadiusKm)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Len(t, cfg.Server.CORSOrigins, 2)
	assert.Equal(t, 0.1, cfg.Observ.TraceSampleRatio)
	assert.Equal(t, "warn", cfg.Observ.LogLevel)
}
