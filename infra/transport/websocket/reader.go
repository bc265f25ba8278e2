// Package websocket reads messages from a websocket endpoint and hands them to
// a message handler, reconnecting with exponential backoff.
package websocket

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/gorilla/websocket"
)

const (
	DefaultMinBackoff = 1 * time.Second
	DefaultMaxBackoff = 30 * time.Second

	// stableConnection is how long a connection must last for the backoff to
	// start over.
	stableConnection = time.Minute
)

// Reader is a transport.Source backed by a websocket connection.
type Reader struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	handler    bridge.MessageHandler
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithBackoff sets the reconnect backoff bounds.
func WithBackoff(minBackoff, maxBackoff time.Duration) Option {
	return func(r *Reader) {
		if minBackoff > 0 {
			r.minBackoff = minBackoff
		}
		if maxBackoff >= r.minBackoff {
			r.maxBackoff = maxBackoff
		}
	}
}

// WithHeader sets the headers sent with the handshake.
func WithHeader(header http.Header) Option {
	return func(r *Reader) { r.header = header }
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(r *Reader) { r.dialer = d }
}

// WithLogger sets the reader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a reader for url delivering messages to handler.
func New(url string, handler bridge.MessageHandler, opts ...Option) *Reader {
	r := &Reader{
		url:        url,
		dialer:     websocket.DefaultDialer,
		handler:    handler,
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "websocket-reader", "url", url)
	return r
}

// Name implements transport.Source.
func (r *Reader) Name() string { return "websocket" }

// Run connects and reconnects until ctx is cancelled.
func (r *Reader) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		connStart := time.Now()
		err := r.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(connStart) > stableConnection {
			attempt = 0
		}
		attempt++
		backoff := r.backoff(attempt)
		r.logger.Warn("connection lost, reconnecting", "attempt", attempt, "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

func (r *Reader) backoff(attempt int) time.Duration {
	backoff := time.Duration(float64(r.minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
	return min(backoff, r.maxBackoff)
}

func (r *Reader) connect(ctx context.Context) error {
	conn, _, err := r.dialer.DialContext(ctx, r.url, r.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.url, err)
	}
	defer conn.Close() //nolint:errcheck

	// ReadMessage does not observe ctx; closing the connection unblocks it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	r.logger.Info("🔌 Connected")
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		if err := r.handler.OnMessage(ctx, string(msg)); err != nil {
			r.logger.Error("failed to handle message", "error", err)
		}
	}
}
