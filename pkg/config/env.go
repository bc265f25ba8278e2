package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// transportKeys maps each transport to the variable that switches it on.
var transportKeys = []struct {
	name string
	key  string
}{
	{name: "websocket", key: "TRANSPORT_WEBSOCKET_URL"},
	{name: "redis", key: "TRANSPORT_REDIS_URL"},
	{name: "kafka", key: "TRANSPORT_KAFKA_BROKERS"},
}

// LoadEnv loads the .env file of the working directory. Variables already
// set in the environment keep their value. It reports whether a file was
// loaded.
func LoadEnv(logger *slog.Logger) bool {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using system environment variables")
		return false
	}
	logger.Info("Environment variables loaded from .env file")
	return true
}

// IsEnvSet checks if an environment variable is set to a non-blank value
func IsEnvSet(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}

// EnabledTransports lists the transports switched on by the environment.
func EnabledTransports() []string {
	var enabled []string
	for _, t := range transportKeys {
		if IsEnvSet(t.key) {
			enabled = append(enabled, t.name)
		}
	}
	return enabled
}
