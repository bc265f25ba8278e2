// Package kafka consumes messages from a Kafka topic through a consumer group
// and hands them to a message handler.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures a Consumer.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string

	// SASL/PLAIN credentials; both empty disables authentication.
	SASLUsername string
	SASLPassword string
}

// Consumer is a transport.Source reading a Kafka topic. An offset is
// committed once its message was handled, whether or not the handler
// accepted it.
type Consumer struct {
	reader  Reader
	handler bridge.MessageHandler
	logger  *slog.Logger
}

// NewReader creates a group reader for cfg.
func NewReader(cfg Config) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: brokers are required")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka consumer: topic and group id are required")
	}
	mechanism, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Dialer: &kafka.Dialer{
			Timeout:       5 * time.Second,
			DualStack:     true,
			SASLMechanism: mechanism,
		},
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0,
	}), nil
}

func saslMechanism(cfg Config) (sasl.Mechanism, error) {
	username := strings.TrimSpace(cfg.SASLUsername)
	password := strings.TrimSpace(cfg.SASLPassword)
	if username == "" && password == "" {
		return nil, nil
	}
	if username == "" || password == "" {
		return nil, errors.New("kafka consumer: sasl username and password are required")
	}
	return plain.Mechanism{Username: username, Password: password}, nil
}

// New creates a consumer handing the messages of reader to handler. The
// consumer owns reader and closes it when Run returns.
func New(reader Reader, handler bridge.MessageHandler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger.With("component", "kafka-consumer"),
	}
}

// Name implements transport.Source.
func (c *Consumer) Name() string { return "kafka" }

// Run reads messages until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Error("failed to close reader", "error", err)
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("kafka consumer: fetch: %w", err)
		}

		log := c.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		if err := c.handler.OnMessage(ctx, string(msg.Value)); err != nil {
			log.Error("failed to handle message", "error", err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka consumer: commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Write publishes raw messages to topic. It is used by producers and tests.
func Write(ctx context.Context, brokers []string, topic string, messages ...string) error {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	defer w.Close() //nolint:errcheck

	msgs := make([]kafka.Message, len(messages))
	for i, m := range messages {
		msgs[i] = kafka.Message{Value: []byte(m), Time: time.Now()}
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", topic, err)
	}
	return nil
}
