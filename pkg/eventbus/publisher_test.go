package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fooEvent struct {
	Name string
}

type barEvent struct {
	Name string
}

// embeddingEvent embeds fooEvent but is a different dispatch key.
type embeddingEvent struct {
	fooEvent
}

// recordingHandler records every event it receives.
type recordingHandler struct {
	mu        sync.Mutex
	eventType reflect.Type
	received  []Event
	onHandle  func(ctx context.Context, e Event) error
}

func newRecordingHandler(eventType reflect.Type) *recordingHandler {
	return &recordingHandler{eventType: eventType}
}

func (h *recordingHandler) EventType() reflect.Type { return h.eventType }

func (h *recordingHandler) Handle(ctx context.Context, e Event) error {
	h.mu.Lock()
	h.received = append(h.received, e)
	onHandle := h.onHandle
	h.mu.Unlock()
	if onHandle != nil {
		return onHandle(ctx, e)
	}
	return nil
}

func (h *recordingHandler) Received() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event{}, h.received...)
}

// countingHandler counts the *fooEvent values it receives.
type countingHandler struct {
	calls atomic.Int32
}

func (h *countingHandler) EventType() reflect.Type { return TypeOf[*fooEvent]() }

func (h *countingHandler) Handle(context.Context, Event) error {
	h.calls.Add(1)
	return nil
}

// wrappingHandler embeds a countingHandler as its first field, so both share
// an address.
type wrappingHandler struct {
	countingHandler
	outer atomic.Int32
}

func (h *wrappingHandler) Handle(context.Context, Event) error {
	h.outer.Add(1)
	return nil
}

// staticHandler lives in a package-level variable rather than on the heap.
var staticHandler = &countingHandler{}

func newTestPublisher() *Publisher {
	return NewPublisher(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestPublisher_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("handler receives events published after subscribing", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())
		event := &fooEvent{Name: "x"}

		require.NoError(t, p.Subscribe(h))
		require.NoError(t, p.Publish(ctx, event))

		received := h.Received()
		require.Len(t, received, 1)
		assert.Same(t, event, received[0])
	})

	t.Run("subscribing twice delivers once", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())

		for range 3 {
			require.NoError(t, p.Subscribe(h))
		}
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Len(t, h.Received(), 1)
		assert.Equal(t, 1, p.Subscribers(TypeOf[*fooEvent]()))
	})

	t.Run("handler does not receive other event types", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())

		require.NoError(t, p.Subscribe(h))
		require.NoError(t, p.Publish(ctx, &barEvent{Name: "y"}))

		assert.Empty(t, h.Received())
	})

	t.Run("rejects handlers without identity", func(t *testing.T) {
		p := newTestPublisher()
		var nilHandler *recordingHandler

		assert.ErrorIs(t, p.Subscribe(nil), ErrNilHandler)
		assert.ErrorIs(t, p.Subscribe(nilHandler), ErrNilHandler)
		assert.ErrorIs(t, p.Subscribe(valueHandler{}), ErrNotPointer)
		assert.ErrorIs(t, p.Subscribe(&emptyHandler{}), ErrZeroSizeHandler)
	})

	t.Run("rejects nil event type", func(t *testing.T) {
		p := newTestPublisher()

		assert.ErrorIs(t, p.Subscribe(newRecordingHandler(nil)), ErrNilEventType)
	})

	t.Run("package-level handler", func(t *testing.T) {
		p := newTestPublisher()
		before := staticHandler.calls.Load()

		require.NoError(t, p.Subscribe(staticHandler))
		defer p.Unsubscribe(staticHandler)
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Equal(t, before+1, staticHandler.calls.Load())
		assert.True(t, p.IsSubscribed(staticHandler))
	})

	t.Run("embedded handler sharing an address is a distinct subscriber", func(t *testing.T) {
		p := newTestPublisher()
		outer := &wrappingHandler{}
		inner := &outer.countingHandler

		require.NoError(t, p.Subscribe(outer))
		require.NoError(t, p.Subscribe(inner))
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Equal(t, 2, p.Subscribers(TypeOf[*fooEvent]()))
		assert.Equal(t, int32(1), outer.outer.Load())
		assert.Equal(t, int32(1), inner.calls.Load())

		p.Unsubscribe(inner)
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.True(t, p.IsSubscribed(outer))
		assert.False(t, p.IsSubscribed(inner))
		assert.Equal(t, int32(2), outer.outer.Load())
		assert.Equal(t, int32(1), inner.calls.Load())
	})

	t.Run("event type is frozen at subscription", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())
		require.NoError(t, p.Subscribe(h))

		h.eventType = TypeOf[*barEvent]()
		err := p.Subscribe(h)
		require.ErrorIs(t, err, ErrEventTypeChanged)

		require.NoError(t, p.Publish(ctx, &fooEvent{}))
		require.NoError(t, p.Publish(ctx, &barEvent{}))
		assert.Len(t, h.Received(), 1)

		// Unsubscribe uses the frozen type, not the current declaration.
		p.Unsubscribe(h)
		assert.False(t, p.IsSubscribed(h))
		assert.Zero(t, p.Subscribers(TypeOf[*fooEvent]()))
	})
}

type valueHandler struct{ n int }

func (valueHandler) EventType() reflect.Type { return TypeOf[*fooEvent]() }
func (valueHandler) Handle(context.Context, Event) error { return nil }

type emptyHandler struct{}

func (*emptyHandler) EventType() reflect.Type { return TypeOf[*fooEvent]() }
func (*emptyHandler) Handle(context.Context, Event) error { return nil }

func TestPublisher_Unsubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("unsubscribing a handler never subscribed does not panic", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())

		assert.NotPanics(t, func() {
			p.Unsubscribe(h)
			p.Unsubscribe(nil)
			p.Unsubscribe(valueHandler{})
		})
	})

	t.Run("unsubscribed handler no longer receives events", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())

		require.NoError(t, p.Subscribe(h))
		p.Unsubscribe(h)
		assert.NotPanics(t, func() { p.Unsubscribe(h) })
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Empty(t, h.Received())
		assert.False(t, p.IsSubscribed(h))
	})

	t.Run("only the unsubscribed handler stops receiving", func(t *testing.T) {
		p := newTestPublisher()
		a := newRecordingHandler(TypeOf[*fooEvent]())
		b := newRecordingHandler(TypeOf[*fooEvent]())

		require.NoError(t, p.Subscribe(a))
		require.NoError(t, p.Subscribe(b))
		p.Unsubscribe(a)
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Empty(t, a.Received())
		assert.Len(t, b.Received(), 1)
	})

	t.Run("empty sets are removed", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())

		require.NoError(t, p.Subscribe(h))
		p.Unsubscribe(h)

		p.mu.RLock()
		defer p.mu.RUnlock()
		assert.Empty(t, p.sets)
		assert.Empty(t, p.subscriptions)
	})

	t.Run("handler can subscribe again after unsubscribing", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())

		require.NoError(t, p.Subscribe(h))
		p.Unsubscribe(h)
		require.NoError(t, p.Subscribe(h))
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Len(t, h.Received(), 1)
	})
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to every handler of the event type", func(t *testing.T) {
		p := newTestPublisher()
		h1 := newRecordingHandler(TypeOf[*fooEvent]())
		h2 := newRecordingHandler(TypeOf[*fooEvent]())
		h3 := newRecordingHandler(TypeOf[*barEvent]())
		for _, h := range []Handler{h1, h2, h3} {
			require.NoError(t, p.Subscribe(h))
		}

		event := &fooEvent{}
		require.NoError(t, p.Publish(ctx, event))

		assert.Equal(t, []Event{event}, h1.Received())
		assert.Equal(t, []Event{event}, h2.Received())
		assert.Empty(t, h3.Received())
	})

	t.Run("routes by exact type", func(t *testing.T) {
		p := newTestPublisher()
		pointer := newRecordingHandler(TypeOf[*fooEvent]())
		value := newRecordingHandler(TypeOf[fooEvent]())
		for _, h := range []Handler{pointer, value} {
			require.NoError(t, p.Subscribe(h))
		}

		require.NoError(t, p.Publish(ctx, fooEvent{}))
		require.NoError(t, p.Publish(ctx, &embeddingEvent{}))
		require.NoError(t, p.Publish(ctx, embeddingEvent{}))

		assert.Empty(t, pointer.Received())
		assert.Len(t, value.Received(), 1)
	})

	t.Run("interface keys never match", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[Event]())
		require.NoError(t, p.Subscribe(h))

		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Empty(t, h.Received())
	})

	t.Run("publishing without subscribers is a no-op", func(t *testing.T) {
		p := newTestPublisher()

		assert.NoError(t, p.Publish(ctx, &fooEvent{}))
	})

	t.Run("nil event is rejected", func(t *testing.T) {
		p := newTestPublisher()

		assert.ErrorIs(t, p.Publish(ctx, nil), ErrNilEvent)
	})

	t.Run("handler error is returned unchanged", func(t *testing.T) {
		p := newTestPublisher()
		expectedErr := errors.New("handler failed")
		failing := newRecordingHandler(TypeOf[*fooEvent]())
		failing.onHandle = func(context.Context, Event) error { return expectedErr }
		counting := newRecordingHandler(TypeOf[*fooEvent]())
		require.NoError(t, p.Subscribe(failing))
		require.NoError(t, p.Subscribe(counting))

		err := p.Publish(ctx, &fooEvent{})

		require.Error(t, err)
		assert.Same(t, expectedErr, err)
		assert.Len(t, failing.Received(), 1)
		// Delivery stops at the failing handler, so the other one ran at most once.
		assert.LessOrEqual(t, len(counting.Received()), 1)
	})

	t.Run("handler panic propagates", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())
		h.onHandle = func(context.Context, Event) error { panic("boom") }
		require.NoError(t, p.Subscribe(h))

		assert.PanicsWithValue(t, "boom", func() {
			_ = p.Publish(ctx, &fooEvent{})
		})
	})

	t.Run("context is passed to handlers", func(t *testing.T) {
		type ctxKey struct{}
		p := newTestPublisher()
		var got any
		h := NewHandler(func(ctx context.Context, e *fooEvent) error {
			got = ctx.Value(ctxKey{})
			return nil
		})
		require.NoError(t, p.Subscribe(h))

		require.NoError(t, p.Publish(context.WithValue(ctx, ctxKey{}, "value"), &fooEvent{}))

		assert.Equal(t, "value", got)
		runtime.KeepAlive(h)
	})
}

func TestPublisher_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("handler subscribed during publish does not receive the event", func(t *testing.T) {
		p := newTestPublisher()
		late := newRecordingHandler(TypeOf[*fooEvent]())
		early := newRecordingHandler(TypeOf[*fooEvent]())
		early.onHandle = func(context.Context, Event) error {
			return p.Subscribe(late)
		}
		require.NoError(t, p.Subscribe(early))

		first := &fooEvent{Name: "first"}
		require.NoError(t, p.Publish(ctx, first))
		assert.Empty(t, late.Received())

		second := &fooEvent{Name: "second"}
		require.NoError(t, p.Publish(ctx, second))
		assert.Equal(t, []Event{second}, late.Received())
	})

	t.Run("handler unsubscribed during publish still receives the event", func(t *testing.T) {
		p := newTestPublisher()
		victim := newRecordingHandler(TypeOf[*fooEvent]())
		remover := newRecordingHandler(TypeOf[*fooEvent]())
		remover.onHandle = func(context.Context, Event) error {
			p.Unsubscribe(victim)
			return nil
		}
		require.NoError(t, p.Subscribe(victim))
		require.NoError(t, p.Subscribe(remover))

		require.NoError(t, p.Publish(ctx, &fooEvent{}))
		assert.Len(t, victim.Received(), 1)

		require.NoError(t, p.Publish(ctx, &fooEvent{}))
		assert.Len(t, victim.Received(), 1)
	})

	t.Run("handler unsubscribing itself finishes the current delivery", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())
		h.onHandle = func(context.Context, Event) error {
			p.Unsubscribe(h)
			return nil
		}
		require.NoError(t, p.Subscribe(h))

		require.NoError(t, p.Publish(ctx, &fooEvent{}))
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Len(t, h.Received(), 1)
	})

	t.Run("handler may publish further events", func(t *testing.T) {
		p := newTestPublisher()
		bar := newRecordingHandler(TypeOf[*barEvent]())
		foo := newRecordingHandler(TypeOf[*fooEvent]())
		foo.onHandle = func(ctx context.Context, e Event) error {
			return p.Publish(ctx, &barEvent{Name: e.(*fooEvent).Name})
		}
		require.NoError(t, p.Subscribe(foo))
		require.NoError(t, p.Subscribe(bar))

		require.NoError(t, p.Publish(ctx, &fooEvent{Name: "chained"}))

		require.Len(t, bar.Received(), 1)
		assert.Equal(t, "chained", bar.Received()[0].(*barEvent).Name)
	})
}

// subscribeTransient subscribes a handler and drops every reference to it.
//
//go:noinline
func subscribeTransient(t *testing.T, p *Publisher, calls *atomic.Int32) {
	h := NewHandler(func(context.Context, *fooEvent) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, p.Subscribe(h))
	require.NoError(t, p.Publish(context.Background(), &fooEvent{}))
}

func TestPublisher_WeakReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("collected handler is not invoked", func(t *testing.T) {
		p := newTestPublisher()
		var calls atomic.Int32
		subscribeTransient(t, p, &calls)
		require.Equal(t, int32(1), calls.Load())

		require.Eventually(t, func() bool {
			runtime.GC()
			return p.Subscribers(TypeOf[*fooEvent]()) == 0
		}, 5*time.Second, 10*time.Millisecond)

		require.NoError(t, p.Publish(ctx, &fooEvent{}))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("collected handler is removed from the registry", func(t *testing.T) {
		p := newTestPublisher()
		var calls atomic.Int32
		subscribeTransient(t, p, &calls)

		require.Eventually(t, func() bool {
			runtime.GC()
			p.mu.RLock()
			defer p.mu.RUnlock()
			return len(p.subscriptions) == 0 && len(p.sets) == 0
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("retained handler survives collection", func(t *testing.T) {
		p := newTestPublisher()
		h := newRecordingHandler(TypeOf[*fooEvent]())
		require.NoError(t, p.Subscribe(h))

		runtime.GC()
		runtime.GC()
		assert.Zero(t, p.Prune())
		require.NoError(t, p.Publish(ctx, &fooEvent{}))

		assert.Len(t, h.Received(), 1)
		runtime.KeepAlive(h)
	})

	t.Run("prune removes collected handlers", func(t *testing.T) {
		p := newTestPublisher()
		var calls atomic.Int32
		subscribeTransient(t, p, &calls)
		subscribeTransient(t, p, &calls)

		removed := 0
		require.Eventually(t, func() bool {
			runtime.GC()
			removed += p.Prune()
			p.mu.RLock()
			defer p.mu.RUnlock()
			return len(p.subscriptions) == 0
		}, 5*time.Second, 10*time.Millisecond)
		assert.LessOrEqual(t, removed, 2)
	})

	t.Run("publisher is not kept alive by its handlers", func(t *testing.T) {
		h := newRecordingHandler(TypeOf[*fooEvent]())
		collected := make(chan struct{})
		func() {
			p := newTestPublisher()
			require.NoError(t, p.Subscribe(h))
			runtime.AddCleanup(p, func(ch chan struct{}) { close(ch) }, collected)
		}()

		require.Eventually(t, func() bool {
			runtime.GC()
			select {
			case <-collected:
				return true
			default:
				return false
			}
		}, 5*time.Second, 10*time.Millisecond)
		runtime.KeepAlive(h)
	})
}

func TestPublisher_Concurrency(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher()

	var delivered atomic.Int64
	handlers := make([]*TypedHandler[*fooEvent], 16)
	for i := range handlers {
		handlers[i] = NewHandler(func(context.Context, *fooEvent) error {
			delivered.Add(1)
			return nil
		})
	}

	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.NoError(t, p.Subscribe(h))
				if i%2 == 0 {
					p.Unsubscribe(h)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				assert.NoError(t, p.Publish(ctx, &fooEvent{}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(handlers)/2, p.Subscribers(TypeOf[*fooEvent]()))
	for i, h := range handlers {
		assert.Equal(t, i%2 != 0, p.IsSubscribed(h))
	}
}
