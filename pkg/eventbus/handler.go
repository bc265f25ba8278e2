package eventbus

import (
	"context"
	"fmt"
	"reflect"
)

// HandlerFunc handles a single event of type E.
type HandlerFunc[E Event] func(ctx context.Context, e E) error

// TypedHandler adapts a HandlerFunc to the Handler interface.
type TypedHandler[E Event] struct {
	fn   HandlerFunc[E]
	name string
}

// NewHandler creates a handler subscribing under TypeOf[E]. Each call returns
// a distinct handler, even for the same function.
func NewHandler[E Event](fn HandlerFunc[E]) *TypedHandler[E] {
	return &TypedHandler[E]{fn: fn, name: fmt.Sprintf("handler[%s]", TypeOf[E]())}
}

// Named sets the name reported by String and used in logs.
func (h *TypedHandler[E]) Named(name string) *TypedHandler[E] {
	h.name = name
	return h
}

// EventType implements Handler.
func (h *TypedHandler[E]) EventType() reflect.Type {
	return TypeOf[E]()
}

// Handle implements Handler.
func (h *TypedHandler[E]) Handle(ctx context.Context, e Event) error {
	ev, ok := e.(E)
	if !ok {
		return fmt.Errorf("%w: %s received %T", ErrUnexpectedEvent, h.name, e)
	}
	if h.fn == nil {
		return nil
	}
	return h.fn(ctx, ev)
}

func (h *TypedHandler[E]) String() string {
	return h.name
}
