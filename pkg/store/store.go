// Package store provides a reducer-based state container and the event
// handler that translates events into store actions.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ErrNilAction is returned when dispatching a nil action.
var ErrNilAction = errors.New("store: action is nil")

// Action describes a state change.
type Action interface {
	Kind() string
}

// Dispatcher accepts actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Action) error
}

// Reducer returns the state that results from applying a to state. It must
// not mutate state in place.
type Reducer[S any] func(state S, a Action) (S, error)

// Listener is notified after each successful dispatch.
type Listener[S any] func(state S, a Action)

// Store holds a state value that changes only through dispatched actions.
// Dispatches are serialized.
type Store[S any] struct {
	mu        sync.Mutex
	state     S
	reducer   Reducer[S]
	listeners map[uint64]Listener[S]
	nextID    uint64
	logger    *slog.Logger
}

// New creates a store holding initial.
func New[S any](initial S, reducer Reducer[S], logger *slog.Logger) *Store[S] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store[S]{
		state:     initial,
		reducer:   reducer,
		listeners: make(map[uint64]Listener[S]),
		logger:    logger.With("component", "store"),
	}
}

// Dispatch applies a to the state and notifies listeners. A reducer error
// leaves the state unchanged.
func (s *Store[S]) Dispatch(ctx context.Context, a Action) error {
	if a == nil {
		return ErrNilAction
	}

	s.mu.Lock()
	next, err := s.reducer(s.state, a)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("action rejected", "action", a.Kind(), "error", err)
		return fmt.Errorf("store: reduce %s: %w", a.Kind(), err)
	}
	s.state = next
	listeners := make([]Listener[S], 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.logger.Debug("action dispatched", "action", a.Kind())
	for _, l := range listeners {
		l(next, a)
	}
	return nil
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store[S]) Subscribe(l Listener[S]) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Ensure Store implements the Dispatcher interface.
var _ Dispatcher = (*Store[struct{}])(nil)
