// Package watermill hands the messages of a watermill subscription to a
// message handler.
package watermill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/amirasaad/eventoolkit/pkg/factory"
)

// Subscriber is a transport.Source reading one watermill topic.
//
// Messages the factory cannot turn into events are acknowledged and dropped.
// Messages whose handlers fail are nacked so the pub/sub can redeliver them.
type Subscriber struct {
	subscriber message.Subscriber
	topic      string
	handler    bridge.MessageHandler
	logger     *slog.Logger
}

// New creates a subscriber for topic.
func New(sub message.Subscriber, topic string, handler bridge.MessageHandler, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Subscriber{
		subscriber: sub,
		topic:      topic,
		handler:    handler,
		logger:     logger.With("component", "watermill-subscriber", "topic", topic),
	}
}

// GoChannelOption configures the pub/sub created by NewGoChannel.
type GoChannelOption func(*gochannel.Config)

// WithPersistence keeps published messages for subscribers that subscribe
// later.
func WithPersistence() GoChannelOption {
	return func(c *gochannel.Config) { c.Persistent = true }
}

// WithBlockingPublish makes Publish wait until the subscribers acked the
// message.
func WithBlockingPublish() GoChannelOption {
	return func(c *gochannel.Config) { c.BlockPublishUntilSubscriberAck = true }
}

// NewGoChannel creates an in-process pub/sub usable as both the publisher
// and the subscriber side.
func NewGoChannel(logger *slog.Logger, opts ...GoChannelOption) *gochannel.GoChannel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := gochannel.Config{OutputChannelBuffer: 1000}
	for _, opt := range opts {
		opt(&cfg)
	}
	return gochannel.NewGoChannel(cfg, watermill.NewSlogLogger(logger))
}

// Name implements transport.Source.
func (s *Subscriber) Name() string { return "watermill" }

// Run consumes the topic until ctx is cancelled or the subscription closes.
func (s *Subscriber) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("watermill subscriber: subscribe %s: %w", s.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, msg *message.Message) {
	log := s.logger.With("msg_uuid", msg.UUID)
	err := s.handler.OnMessage(ctx, string(msg.Payload))
	if err == nil {
		msg.Ack()
		return
	}

	var creationErr *factory.CreationError
	if errors.As(err, &creationErr) {
		log.Warn("dropping message", "error", err)
		msg.Ack()
		return
	}
	log.Error("failed to handle message", "error", err)
	msg.Nack()
}

// Publish sends a raw message to topic.
func Publish(pub message.Publisher, topic, raw string) error {
	return pub.Publish(topic, message.NewMessage(watermill.NewULID(), []byte(raw)))
}
