// Package bridge connects text message producers to an event publisher.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/amirasaad/eventoolkit/pkg/factory"
)

// MessageHandler receives raw text messages from a transport.
type MessageHandler interface {
	OnMessage(ctx context.Context, message string) error
}

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(ctx context.Context, message string) error

// OnMessage implements MessageHandler.
func (f MessageHandlerFunc) OnMessage(ctx context.Context, message string) error {
	return f(ctx, message)
}

// Publisher is the part of an event publisher the bridge needs.
type Publisher interface {
	Publish(ctx context.Context, e eventbus.Event) error
}

// InputBridge creates an event from each message and publishes it.
type InputBridge struct {
	factory   factory.Factory
	publisher Publisher
	logger    *slog.Logger
}

// Option configures an InputBridge.
type Option func(*InputBridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *InputBridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a bridge from f into publisher.
func New(f factory.Factory, publisher Publisher, opts ...Option) *InputBridge {
	b := &InputBridge{
		factory:   f,
		publisher: publisher,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "input-bridge")
	return b
}

// OnMessage creates an event from message and publishes it. Creation errors
// are returned before anything is published; handler errors are returned as
// the publisher reports them.
func (b *InputBridge) OnMessage(ctx context.Context, message string) error {
	event, err := b.factory.Create(message)
	if err != nil {
		b.logger.Debug("message rejected", "error", err)
		return fmt.Errorf("bridge: %w", err)
	}

	b.logger.Debug("publishing event", "event_type", fmt.Sprintf("%T", event))
	return b.publisher.Publish(ctx, event)
}

// Ensure InputBridge implements the MessageHandler interface.
var _ MessageHandler = (*InputBridge)(nil)
