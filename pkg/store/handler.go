package store

import (
	"context"
	"fmt"
	"reflect"

	"github.com/amirasaad/eventoolkit/pkg/eventbus"
)

// Handler is an event handler that turns each event into a sequence of
// actions, dispatches them in order and then runs its side effects.
type Handler[E eventbus.Event] struct {
	dispatcher  Dispatcher
	actions     func(e E) []Action
	sideEffects func(ctx context.Context, e E) error
}

// HandlerOption configures a Handler.
type HandlerOption[E eventbus.Event] func(*Handler[E])

// WithActions sets the translation from an event to actions. It should be a
// pure function of the event.
func WithActions[E eventbus.Event](fn func(e E) []Action) HandlerOption[E] {
	return func(h *Handler[E]) { h.actions = fn }
}

// WithSideEffects sets the hook run after the actions were dispatched.
func WithSideEffects[E eventbus.Event](fn func(ctx context.Context, e E) error) HandlerOption[E] {
	return func(h *Handler[E]) { h.sideEffects = fn }
}

// NewHandler creates a handler for events of type E that dispatches to d.
// Without options it dispatches nothing and has no side effects.
func NewHandler[E eventbus.Event](d Dispatcher, opts ...HandlerOption[E]) *Handler[E] {
	h := &Handler[E]{dispatcher: d}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Actions returns the actions for e.
func (h *Handler[E]) Actions(e E) []Action {
	if h.actions == nil {
		return nil
	}
	return h.actions(e)
}

// SideEffects runs the side effects for e.
func (h *Handler[E]) SideEffects(ctx context.Context, e E) error {
	if h.sideEffects == nil {
		return nil
	}
	return h.sideEffects(ctx, e)
}

// EventType implements eventbus.Handler.
func (h *Handler[E]) EventType() reflect.Type {
	return eventbus.TypeOf[E]()
}

// Handle implements eventbus.Handler. The first failing dispatch stops the
// handler before any further action or side effect.
func (h *Handler[E]) Handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(E)
	if !ok {
		return fmt.Errorf("%w: store handler for %s received %T", eventbus.ErrUnexpectedEvent, h.EventType(), event)
	}
	for _, a := range h.Actions(e) {
		if err := h.dispatcher.Dispatch(ctx, a); err != nil {
			return err
		}
	}
	return h.SideEffects(ctx, e)
}

// Ensure Handler implements the eventbus.Handler interface.
var _ eventbus.Handler = (*Handler[eventbus.Event])(nil)
