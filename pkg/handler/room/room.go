// Package room holds the event handlers that keep the chat-room store in
// sync with the room events.
package room

import (
	"context"
	"log/slog"

	"github.com/amirasaad/eventoolkit/pkg/domain/room"
	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/amirasaad/eventoolkit/pkg/store"
)

// SideEffect runs once an event was applied to the room, for example to
// record it in the journal. It does not run for events the room rejected.
type SideEffect func(ctx context.Context, e eventbus.Event) error

func runAfter(ctx context.Context, e eventbus.Event, after []SideEffect) error {
	for _, fn := range after {
		if err := fn(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// HandleUserJoined adds the joining user to the room.
func HandleUserJoined(d store.Dispatcher, logger *slog.Logger, after ...SideEffect) *store.Handler[*room.UserJoined] {
	log := logger.With("handler", "room.HandleUserJoined")
	return store.NewHandler(d,
		store.WithActions(func(e *room.UserJoined) []store.Action {
			return []store.Action{room.AddMember{User: e.User}}
		}),
		store.WithSideEffects(func(ctx context.Context, e *room.UserJoined) error {
			log.Info("👋 User joined", "user", e.User, "event_id", e.ID)
			return runAfter(ctx, e, after)
		}),
	)
}

// HandleUserLeft removes the leaving user from the room.
func HandleUserLeft(d store.Dispatcher, logger *slog.Logger, after ...SideEffect) *store.Handler[*room.UserLeft] {
	log := logger.With("handler", "room.HandleUserLeft")
	return store.NewHandler(d,
		store.WithActions(func(e *room.UserLeft) []store.Action {
			return []store.Action{room.RemoveMember{User: e.User}}
		}),
		store.WithSideEffects(func(ctx context.Context, e *room.UserLeft) error {
			log.Info("🚪 User left", "user", e.User, "event_id", e.ID)
			return runAfter(ctx, e, after)
		}),
	)
}

// HandleMessagePosted appends the message to the room history.
func HandleMessagePosted(d store.Dispatcher, after ...SideEffect) *store.Handler[*room.MessagePosted] {
	return store.NewHandler(d,
		store.WithActions(func(e *room.MessagePosted) []store.Action {
			return []store.Action{room.AppendMessage{Message: room.Message{
				ID:       e.ID,
				User:     e.User,
				Text:     e.Text,
				PostedAt: e.Timestamp,
			}}}
		}),
		store.WithSideEffects(func(ctx context.Context, e *room.MessagePosted) error {
			return runAfter(ctx, e, after)
		}),
	)
}

// Handlers returns the handlers for every room event. The after hooks run, in
// order, for each event the room applied. The caller owns the handlers and
// must keep them reachable while they are subscribed.
func Handlers(d store.Dispatcher, logger *slog.Logger, after ...SideEffect) []eventbus.Handler {
	return []eventbus.Handler{
		HandleUserJoined(d, logger, after...),
		HandleUserLeft(d, logger, after...),
		HandleMessagePosted(d, after...),
	}
}
