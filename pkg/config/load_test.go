package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "eventoolkit.db", cfg.DB.SQLitePath)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, time.Second, cfg.Transport.WebSocket.MinBackoff)
	assert.Equal(t, 30*time.Second, cfg.Transport.WebSocket.MaxBackoff)
	assert.Equal(t, "events", cfg.Transport.Redis.Stream)
	assert.Equal(t, "events:dlq", cfg.Transport.Redis.DLQStream)
	assert.Equal(t, "eventoolkit", cfg.Transport.Kafka.GroupID)
	assert.Equal(t, "events", cfg.Transport.Watermill.Topic)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("TRANSPORT_WEBSOCKET_URL", "ws://localhost:9000/events")
	t.Setenv("TRANSPORT_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("TRANSPORT_WATERMILL_TOPIC", "cli")
	t.Setenv("JOURNAL_ENABLED", "false")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ws://localhost:9000/events", cfg.Transport.WebSocket.URL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Transport.Kafka.Brokers)
	assert.Equal(t, "cli", cfg.Transport.Watermill.Topic)
	assert.False(t, cfg.Journal.Enabled)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", maskValue(""))
	assert.Equal(t, "****", maskValue("secret"))
	assert.Equal(t, "re****6379", maskValue("redis://localhost:6379"))
}
