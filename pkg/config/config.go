package config

import (
	"time"
)

type DB struct {
	Url        string `envconfig:"URL"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"eventoolkit.db"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[eventoolkit]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// WebSocket configures the websocket reader. It is disabled when URL is empty.
type WebSocket struct {
	URL        string        `envconfig:"URL"`
	MinBackoff time.Duration `envconfig:"MIN_BACKOFF" default:"1s"`
	MaxBackoff time.Duration `envconfig:"MAX_BACKOFF" default:"30s"`
}

// Redis configures the Redis Streams consumer. It is disabled when URL is
// empty.
type Redis struct {
	URL       string        `envconfig:"URL"`
	Stream    string        `envconfig:"STREAM" default:"events"`
	Group     string        `envconfig:"GROUP" default:"eventoolkit"`
	Consumer  string        `envconfig:"CONSUMER" default:"eventoolkit-1"`
	DLQStream string        `envconfig:"DLQ_STREAM" default:"events:dlq"`
	Block     time.Duration `envconfig:"BLOCK" default:"5s"`
}

// Kafka configures the Kafka consumer. It is disabled when Brokers is empty.
type Kafka struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC" default:"events"`
	GroupID string   `envconfig:"GROUP_ID" default:"eventoolkit"`

	SASLUsername string `envconfig:"SASL_USERNAME"`
	SASLPassword string `envconfig:"SASL_PASSWORD"`
}

// Watermill configures the in-process watermill topic the CLI reads from.
type Watermill struct {
	Topic string `envconfig:"TOPIC" default:"events"`
}

type Transport struct {
	WebSocket *WebSocket `envconfig:"WEBSOCKET"`
	Redis     *Redis     `envconfig:"REDIS"`
	Kafka     *Kafka     `envconfig:"KAFKA"`
	Watermill *Watermill `envconfig:"WATERMILL"`
}

type Journal struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Transport *Transport `envconfig:"TRANSPORT"`
	Journal   *Journal   `envconfig:"JOURNAL"`
}
