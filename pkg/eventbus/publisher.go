package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// subscription records what a handler was subscribed with. The event type is
// frozen at the first Subscribe call.
type subscription struct {
	eventType reflect.Type
	cleanup   runtime.Cleanup
}

// handlerSet is the set of handlers subscribed for one event type.
type handlerSet struct {
	mu       sync.Mutex
	handlers map[handlerRef]struct{}
}

func newHandlerSet() *handlerSet {
	return &handlerSet{handlers: make(map[handlerRef]struct{})}
}

func (s *handlerSet) add(ref handlerRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[ref]; ok {
		return false
	}
	s.handlers[ref] = struct{}{}
	return true
}

func (s *handlerSet) remove(ref handlerRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, ref)
}

// snapshot copies the live members of the set, dropping collected ones.
func (s *handlerSet) snapshot() []Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := make([]Handler, 0, len(s.handlers))
	for ref := range s.handlers {
		h, ok := ref.value()
		if !ok {
			delete(s.handlers, ref)
			continue
		}
		live = append(live, h)
	}
	return live
}

// prune drops collected members and reports which were dropped and how many
// remain.
func (s *handlerSet) prune() (removed []handlerRef, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref := range s.handlers {
		if !ref.alive() {
			delete(s.handlers, ref)
			removed = append(removed, ref)
		}
	}
	return removed, len(s.handlers)
}

func (s *handlerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ref := range s.handlers {
		if ref.alive() {
			n++
		}
	}
	return n
}

func (s *handlerSet) contains(ref handlerRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[ref]
	return ok
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger used for subscription bookkeeping.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Publisher routes each published event to the handlers subscribed for the
// event's exact dynamic type.
//
// Subscribe, Unsubscribe and Publish are safe for concurrent use. Publish
// invokes handlers on the calling goroutine without holding any lock, so a
// handler may subscribe or unsubscribe handlers, or publish further events.
type Publisher struct {
	mu            sync.RWMutex
	sets          map[reflect.Type]*handlerSet
	subscriptions map[handlerRef]subscription
	self          weak.Pointer[Publisher]
	logger        *slog.Logger
}

// NewPublisher creates a publisher with an empty registry.
func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		sets:          make(map[reflect.Type]*handlerSet),
		subscriptions: make(map[handlerRef]subscription),
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "event-publisher")
	p.self = weak.Make(p)
	return p
}

// Subscribe adds h to the handlers for h.EventType(). Subscribing the same
// handler again has no effect.
//
// The publisher keeps only a weak reference to h: callers must retain h for
// as long as it should receive events.
func (p *Publisher) Subscribe(h Handler) error {
	ref, addr, err := newHandlerRef(h)
	if err != nil {
		return err
	}
	eventType := h.EventType()
	if eventType == nil {
		return ErrNilEventType
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if sub, ok := p.subscriptions[ref]; ok {
		if sub.eventType != eventType {
			return fmt.Errorf("%w: subscribed for %s, now declares %s", ErrEventTypeChanged, sub.eventType, eventType)
		}
		return nil
	}

	set, ok := p.sets[eventType]
	if !ok {
		set = newHandlerSet()
		p.sets[eventType] = set
	}
	set.add(ref)
	p.subscriptions[ref] = subscription{
		eventType: eventType,
		cleanup:   runtime.AddCleanup(addr, collectHandler, collected{publisher: p.self, ref: ref}),
	}

	p.logger.Debug("handler subscribed",
		"event_type", eventType.String(),
		"handler", fmt.Sprintf("%T", h),
		"handlers", set.len(),
	)
	return nil
}

// Unsubscribe removes h from the handlers it was subscribed with. It is a
// no-op if h is not subscribed.
func (p *Publisher) Unsubscribe(h Handler) {
	ref, _, err := newHandlerRef(h)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subscriptions[ref]
	if !ok {
		return
	}
	sub.cleanup.Stop()
	p.forget(ref, sub.eventType)

	p.logger.Debug("handler unsubscribed",
		"event_type", sub.eventType.String(),
		"handler", fmt.Sprintf("%T", h),
	)
}

// Publish delivers e to a snapshot of the live handlers subscribed for its
// exact type, one after another on the calling goroutine. Handlers subscribed
// during the call do not receive e; handlers unsubscribed during the call
// still do if they were in the snapshot.
//
// The first handler error is returned as is and the remaining handlers are
// not invoked. Panics are not recovered.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if e == nil {
		return ErrNilEvent
	}

	p.mu.RLock()
	set := p.sets[reflect.TypeOf(e)]
	p.mu.RUnlock()
	if set == nil {
		return nil
	}

	for _, h := range set.snapshot() {
		if err := h.Handle(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Subscribers returns the number of live handlers subscribed for eventType.
func (p *Publisher) Subscribers(eventType reflect.Type) int {
	p.mu.RLock()
	set := p.sets[eventType]
	p.mu.RUnlock()
	if set == nil {
		return 0
	}
	return set.len()
}

// IsSubscribed reports whether h is currently subscribed.
func (p *Publisher) IsSubscribed(h Handler) bool {
	ref, _, err := newHandlerRef(h)
	if err != nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	sub, ok := p.subscriptions[ref]
	if !ok {
		return false
	}
	set := p.sets[sub.eventType]
	return set != nil && set.contains(ref)
}

// Prune removes every collected handler from the registry and returns how
// many were removed. Collected handlers are also removed lazily on publish
// and by a cleanup attached at subscription, so calling Prune is optional.
func (p *Publisher) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for eventType, set := range p.sets {
		removed, remaining := set.prune()
		for _, ref := range removed {
			delete(p.subscriptions, ref)
		}
		if remaining == 0 {
			delete(p.sets, eventType)
		}
		total += len(removed)
	}

	// Snapshots may already have dropped a collected handler from its set
	// while its subscription entry is still waiting for the cleanup.
	for ref, sub := range p.subscriptions {
		if !ref.alive() {
			delete(p.subscriptions, ref)
			if set, ok := p.sets[sub.eventType]; ok && set.len() == 0 {
				delete(p.sets, sub.eventType)
			}
			total++
		}
	}

	if total > 0 {
		p.logger.Debug("pruned collected handlers", "removed", total)
	}
	return total
}

// forget drops a handler from its set and the subscription index. Callers
// must hold p.mu.
func (p *Publisher) forget(ref handlerRef, eventType reflect.Type) {
	delete(p.subscriptions, ref)
	set, ok := p.sets[eventType]
	if !ok {
		return
	}
	set.remove(ref)
	if set.len() == 0 {
		delete(p.sets, eventType)
	}
}

type collected struct {
	publisher weak.Pointer[Publisher]
	ref       handlerRef
}

// collectHandler runs after a subscribed handler has been garbage collected.
func collectHandler(c collected) {
	p := c.publisher.Value()
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subscriptions[c.ref]
	if !ok {
		return
	}
	p.forget(c.ref, sub.eventType)
	p.logger.Debug("collected handler removed", "event_type", sub.eventType.String())
}
