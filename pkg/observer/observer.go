// Package observer binds a fixed group of event handlers to a publisher.
package observer

import (
	"errors"
	"fmt"

	"github.com/amirasaad/eventoolkit/pkg/eventbus"
)

// Subscriber is the part of a publisher the observer delegates to.
type Subscriber interface {
	Subscribe(h eventbus.Handler) error
	Unsubscribe(h eventbus.Handler)
}

// EventsObserver subscribes and unsubscribes its handlers as a unit. It keeps
// strong references to them, which keeps them alive while the observer is.
//
// The observer does not track whether it is observing; every call is
// delegated to the publisher, so Observe and Stop may be mixed freely with
// direct Subscribe and Unsubscribe calls on the same handlers.
type EventsObserver struct {
	handlers  []eventbus.Handler
	publisher Subscriber
}

// New creates an observer for handlers, in the given order.
func New(publisher Subscriber, handlers ...eventbus.Handler) *EventsObserver {
	return &EventsObserver{
		handlers:  append([]eventbus.Handler(nil), handlers...),
		publisher: publisher,
	}
}

// Observe subscribes every handler to the publisher. All handlers are
// attempted; the errors of those that could not be subscribed are joined.
func (o *EventsObserver) Observe() error {
	var errs []error
	for i, h := range o.handlers {
		if err := o.publisher.Subscribe(h); err != nil {
			errs = append(errs, fmt.Errorf("observer: subscribe handler %d (%T): %w", i, h, err))
		}
	}
	return errors.Join(errs...)
}

// Stop unsubscribes every handler from the publisher.
func (o *EventsObserver) Stop() {
	for _, h := range o.handlers {
		o.publisher.Unsubscribe(h)
	}
}

// Handlers returns the observed handlers in order.
func (o *EventsObserver) Handlers() []eventbus.Handler {
	return append([]eventbus.Handler(nil), o.handlers...)
}
