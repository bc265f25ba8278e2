// Package redis consumes messages from a Redis stream through a consumer
// group and hands them to a message handler.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/redis/go-redis/v9"
)

// MessageField is the stream entry field holding the raw message.
const MessageField = "event"

// Config configures a Consumer.
type Config struct {
	Stream    string
	Group     string
	Consumer  string
	DLQStream string
	Block     time.Duration
}

// Consumer is a transport.Source reading a Redis stream. Every entry is
// acknowledged once handled; entries the handler rejects are copied to the
// dead letter stream first.
type Consumer struct {
	client  *redis.Client
	cfg     Config
	handler bridge.MessageHandler
	logger  *slog.Logger
}

// Dial connects to the Redis server at url.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis consumer: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis consumer: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis consumer: connection failed: %w", err)
	}
	return client, nil
}

// New creates a consumer reading cfg.Stream with client.
func New(client *redis.Client, cfg Config, handler bridge.MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg.Stream == "" || cfg.Group == "" || cfg.Consumer == "" {
		return nil, errors.New("redis consumer: stream, group, and consumer are required")
	}
	if cfg.DLQStream == "" {
		cfg.DLQStream = cfg.Stream + ":dlq"
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "redis-consumer", "stream", cfg.Stream, "group", cfg.Group),
	}, nil
}

// Name implements transport.Source.
func (c *Consumer) Name() string { return "redis" }

// Run reads the stream until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis consumer: create group: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    10,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("error reading from stream", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				c.handle(ctx, msg)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	log := c.logger.With("msg_id", msg.ID)
	raw, ok := msg.Values[MessageField].(string)
	if !ok {
		log.Warn("entry has no message field")
		c.pushToDLQ(ctx, msg.Values, fmt.Sprintf("missing %q field", MessageField))
	} else if err := c.handler.OnMessage(ctx, raw); err != nil {
		log.Error("failed to handle message", "error", err)
		c.pushToDLQ(ctx, msg.Values, err.Error())
	}

	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		log.Error("failed to acknowledge message", "error", err)
	}
}

func (c *Consumer) pushToDLQ(ctx context.Context, values map[string]any, reason string) {
	entry := make(map[string]any, len(values)+1)
	for k, v := range values {
		entry[k] = v
	}
	entry["error"] = reason
	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.DLQStream, Values: entry}).Err(); err != nil {
		c.logger.Error("failed to push to DLQ", "error", err, "dlq", c.cfg.DLQStream)
		return
	}
	c.logger.Warn("message pushed to DLQ", "dlq", c.cfg.DLQStream)
}

// Add appends a raw message to stream.
func Add(ctx context.Context, client *redis.Client, stream, message string) error {
	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{MessageField: message},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: add to %s: %w", stream, err)
	}
	return nil
}
