// Package factory turns raw text messages into typed events.
//
// Messages are JSON envelopes carrying a wire type name and a payload:
//
//	{"type": "room.user_joined", "payload": {"user": "ada"}}
//
// The type name selects a registered constructor; the payload is decoded into
// the constructed value and validated with its `validate` struct tags.
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// DefaultTypeField is the envelope field holding the wire type name.
	DefaultTypeField = "type"
	// DefaultPayloadField is the envelope field holding the event payload.
	DefaultPayloadField = "payload"
)

// Factory creates events from raw text.
type Factory interface {
	Create(raw string) (eventbus.Event, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(raw string) (eventbus.Event, error)

// Create implements Factory.
func (f FactoryFunc) Create(raw string) (eventbus.Event, error) {
	return f(raw)
}

// Constructor returns a fresh, zero event ready to be decoded into.
type Constructor func() eventbus.Event

// Option configures a Registry.
type Option func(*Registry)

// WithValidator replaces the validator used on decoded events.
func WithValidator(v *validator.Validate) Option {
	return func(r *Registry) { r.validate = v }
}

// WithEnvelopeFields changes the envelope field names.
func WithEnvelopeFields(typeField, payloadField string) Option {
	return func(r *Registry) {
		r.typeField = typeField
		r.payloadField = payloadField
	}
}

// Registry is a Factory backed by a table of wire type names.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	names        map[reflect.Type]string
	validate     *validator.Validate
	typeField    string
	payloadField string
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		names:        make(map[reflect.Type]string),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		typeField:    DefaultTypeField,
		payloadField: DefaultPayloadField,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a constructor under name.
func (r *Registry) Register(name string, ctor Constructor) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("factory: event type name is required")
	}
	if ctor == nil {
		return fmt.Errorf("factory: constructor for %q is nil", name)
	}
	sample := ctor()
	if sample == nil {
		return fmt.Errorf("factory: constructor for %q returned nil", name)
	}
	if reflect.TypeOf(sample).Kind() != reflect.Pointer {
		return fmt.Errorf("factory: %w: constructor for %q returned %T", ErrNotPointerEvent, name, sample)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.constructors[name]; ok {
		return fmt.Errorf("factory: %w: %q", ErrDuplicateEventType, name)
	}
	r.constructors[name] = ctor
	r.names[eventbus.TypeOfEvent(sample)] = name
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// RegisterType registers *T under name. Events created for name are *T.
func RegisterType[T any](r *Registry, name string) error {
	return r.Register(name, func() eventbus.Event { return new(T) })
}

// Create implements Factory.
func (r *Registry) Create(raw string) (eventbus.Event, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &CreationError{Raw: raw, Err: ErrEmptyMessage}
	}
	if !gjson.Valid(raw) {
		return nil, &CreationError{Raw: raw, Err: fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)}
	}

	typeName := gjson.Get(raw, r.typeField)
	if typeName.Type != gjson.String || typeName.Str == "" {
		return nil, &CreationError{Raw: raw, Err: fmt.Errorf("%w: missing %q field", ErrMalformedMessage, r.typeField)}
	}
	name := typeName.Str

	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &CreationError{Type: name, Raw: raw, Err: ErrUnknownEventType}
	}

	event := ctor()
	if payload := gjson.Get(raw, r.payloadField); payload.Exists() && payload.Type != gjson.Null {
		if err := json.Unmarshal([]byte(payload.Raw), event); err != nil {
			return nil, &CreationError{Type: name, Raw: raw, Err: fmt.Errorf("%w: %v", ErrMalformedMessage, err)}
		}
	}

	if err := r.validate.Struct(event); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return nil, &CreationError{Type: name, Raw: raw, Err: fmt.Errorf("%w: %v", ErrInvalidEvent, err)}
		}
	}
	return event, nil
}

// NameOf returns the wire type name registered for the type of e.
func (r *Registry) NameOf(e eventbus.Event) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[eventbus.TypeOfEvent(e)]
	return name, ok
}

// TypeOf returns the event type created for name.
func (r *Registry) TypeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for t, n := range r.names {
		if n == name {
			return t, true
		}
	}
	return nil, false
}

// Encode wraps e in an envelope that Create turns back into an equal event.
func (r *Registry) Encode(e eventbus.Event) ([]byte, error) {
	name, ok := r.NameOf(e)
	if !ok {
		return nil, fmt.Errorf("factory: %w: %T", ErrUnregisteredEvent, e)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("factory: marshal %q payload: %w", name, err)
	}
	envelope, err := sjson.SetBytes([]byte("{}"), r.typeField, name)
	if err != nil {
		return nil, fmt.Errorf("factory: build %q envelope: %w", name, err)
	}
	envelope, err = sjson.SetRawBytes(envelope, r.payloadField, payload)
	if err != nil {
		return nil, fmt.Errorf("factory: build %q envelope: %w", name, err)
	}
	return envelope, nil
}

// Names returns the registered wire type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ensure Registry implements the Factory interface.
var _ Factory = (*Registry)(nil)
