package factory

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("empty message")
	// ErrMalformedMessage is returned when the input is not a valid envelope.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownEventType is returned when the envelope names an unregistered type.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrInvalidEvent is returned when a decoded event fails validation.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrDuplicateEventType is returned when registering a name twice.
	ErrDuplicateEventType = errors.New("event type already registered")
	// ErrNotPointerEvent is returned when a constructor does not return a pointer to decode into.
	ErrNotPointerEvent = errors.New("event constructor must return a pointer")
	// ErrUnregisteredEvent is returned when encoding an event whose type has no name.
	ErrUnregisteredEvent = errors.New("event type not registered")
)

// CreationError reports why raw input could not be turned into an event.
type CreationError struct {
	// Type is the wire type name, when it could be read.
	Type string
	Raw  string
	Err  error
}

func (e *CreationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("factory: create event: %v", e.Err)
	}
	return fmt.Sprintf("factory: create %q event: %v", e.Type, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}
