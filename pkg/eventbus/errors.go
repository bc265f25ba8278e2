package eventbus

import "errors"

var (
	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("eventbus: handler is nil")
	// ErrNotPointer is returned when a handler is not a pointer and therefore has no identity.
	ErrNotPointer = errors.New("eventbus: handler must be a pointer")
	// ErrZeroSizeHandler is returned for pointers to zero-sized values, which may share an address.
	ErrZeroSizeHandler = errors.New("eventbus: handler must not point to a zero-sized value")
	// ErrNilEventType is returned when a handler declares no event type.
	ErrNilEventType = errors.New("eventbus: handler declares a nil event type")
	// ErrEventTypeChanged is returned when a subscribed handler declares a different event type.
	ErrEventTypeChanged = errors.New("eventbus: handler event type changed while subscribed")
	// ErrNilEvent is returned when publishing a nil event.
	ErrNilEvent = errors.New("eventbus: event is nil")
	// ErrUnexpectedEvent is returned by typed handlers receiving an event of another type.
	ErrUnexpectedEvent = errors.New("eventbus: unexpected event type")
)
