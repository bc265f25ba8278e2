// Package eventbus implements an in-process, synchronous event publisher.
//
// Handlers subscribe for exactly one concrete event type and only ever receive
// events whose dynamic type equals it. The publisher does not own its
// handlers: it keeps weak references, so a handler that is no longer
// referenced anywhere else is dropped from the registry once collected.
package eventbus

import (
	"context"
	"reflect"
)

// Event is a marker for any domain event value. The dispatch key of an event
// is its exact dynamic type.
type Event interface{}

// Handler consumes events of a single concrete type.
//
// Handlers are tracked by pointer identity, so implementations must be
// pointers to heap-allocated, non-zero-sized values.
type Handler interface {
	// EventType returns the dispatch key this handler subscribes under. It
	// must not change while the handler is subscribed.
	EventType() reflect.Type
	Handle(ctx context.Context, e Event) error
}

// Bus is the subscription and publishing surface of a Publisher.
type Bus interface {
	Subscribe(h Handler) error
	Unsubscribe(h Handler)
	Publish(ctx context.Context, e Event) error
}

// TypeOf returns the dispatch key for events of type E. E should be the
// concrete type that is published (for example *UserJoined); an interface type
// argument yields a key no event value can ever match.
func TypeOf[E Event]() reflect.Type {
	return reflect.TypeFor[E]()
}

// TypeOfEvent returns the dispatch key of e.
func TypeOfEvent(e Event) reflect.Type {
	return reflect.TypeOf(e)
}

// Ensure Publisher implements the Bus interface.
var _ Bus = (*Publisher)(nil)
