// Package journal records applied events in the event journal.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/eventoolkit/pkg/eventbus"
)

// ErrUnnamedEvent is returned for events the codec has no wire name for.
var ErrUnnamedEvent = errors.New("journal: event has no registered name")

// Appender stores an encoded event.
type Appender interface {
	Append(ctx context.Context, eventType string, payload []byte) error
}

// AppenderFunc adapts a function to the Appender interface.
type AppenderFunc func(ctx context.Context, eventType string, payload []byte) error

// Append implements Appender.
func (f AppenderFunc) Append(ctx context.Context, eventType string, payload []byte) error {
	return f(ctx, eventType, payload)
}

// Codec maps events to their wire form.
type Codec interface {
	NameOf(e eventbus.Event) (string, bool)
	Encode(e eventbus.Event) ([]byte, error)
}

// Journal encodes events and appends them to the journal. Record is meant to
// run as a side effect of the handler applying the event, so rejected events
// are never written.
type Journal struct {
	codec    Codec
	appender Appender
	logger   *slog.Logger
}

// New creates a journal writing through appender.
func New(codec Codec, appender Appender, logger *slog.Logger) *Journal {
	return &Journal{
		codec:    codec,
		appender: appender,
		logger:   logger.With("handler", "journal.Record"),
	}
}

// Record appends e under its wire name.
func (j *Journal) Record(ctx context.Context, e eventbus.Event) error {
	name, ok := j.codec.NameOf(e)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnnamedEvent, e)
	}
	log := j.logger.With("event_type", name)
	envelope, err := j.codec.Encode(e)
	if err != nil {
		log.Error("failed to encode event", "error", err)
		return err
	}
	if err := j.appender.Append(ctx, name, envelope); err != nil {
		log.Error("failed to append event", "error", err)
		return err
	}
	log.Debug("📝 Event recorded")
	return nil
}
