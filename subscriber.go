package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// ConnState is the subscriber's view of the websocket.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "disconnected"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// Event is one item on the subscriber's channel. Exactly one of the
// following holds:
//   - Snapshot != nil: a decoded message, to be rendered.
//   - Err is a *DecodeError: a message that failed to decode.
//   - otherwise: a connection state change, with Err set to the
//     transport error when State is StateClosed.
type Event struct {
	Snapshot *Snapshot
	State    ConnState
	Err      error
}

// IsStateChange reports whether the event carries a connection state.
func (e Event) IsStateChange() bool {
	var decodeErr *DecodeError
	return e.Snapshot == nil && !errors.As(e.Err, &decodeErr)
}

// Subscriber owns one inbound websocket and turns its frames into
// Events. It never writes application data to the socket and never
// reconnects.
type Subscriber struct {
	url       string
	header    http.Header
	readLimit int64
	dialer    *websocket.Dialer
	logger    *slog.Logger
	events    chan Event
}

func newSubscriber(cfg *Config, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:       cfg.URL,
		header:    authHeader(cfg.Token),
		readLimit: cfg.ReadLimit,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger,
		events: make(chan Event, cfg.QueueSize),
	}
}

// Events is closed when Run returns. The final StateClosed event is
// delivered whenever the queue has room for it, including after
// cancellation.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Run dials the endpoint and forwards frames until the socket closes or
// ctx is cancelled. The returned error is the transport error, nil on
// cancellation or a normal close frame. Run must be called once.
func (s *Subscriber) Run(ctx context.Context) (err error) {
	defer close(s.events)
	defer func() {
		s.emit(ctx, Event{State: StateClosed, Err: err})
	}()

	s.emit(ctx, Event{State: StateConnecting})
	s.logger.Info("connecting", "url", s.url)

	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", s.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("connected", "url", s.url)
	s.emit(ctx, Event{State: StateConnected})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("producer closed the stream")
				return nil
			}
			return fmt.Errorf("read %s: %w", s.url, err)
		}

		if messageType != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", "type", messageType, "bytes", len(data))
			continue
		}

		snap, err := DecodeSnapshot(data)
		if err != nil {
			s.logger.Warn("dropping malformed message", "error", err)
			s.emit(ctx, Event{Err: err})
			continue
		}
		s.emit(ctx, Event{Snapshot: snap})
	}
}

// emit blocks while the queue is full so no snapshot is dropped; the
// stalled reader leaves flow control to TCP. After cancellation the event
// is still queued when there is room, otherwise it is discarded.
func (s *Subscriber) emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
		return
	default:
	}
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}
