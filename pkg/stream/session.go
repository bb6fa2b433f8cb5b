// Package stream maintains a long-lived WebSocket session with the
// venue's streaming endpoint. A Session owns one connection, tracks the
// caller's desired subscriptions, detects disconnection through a
// heartbeat window, reconnects with bounded backoff, and replays the
// subscription table after every reconnect so consumers observe a single
// ordered sequence of decoded events.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lighter-xyz/lighter-go/pkg/log"
	"github.com/lighter-xyz/lighter-go/pkg/transport"
)

// State is the connection state of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// writeWait bounds every outbound write, control frames included.
const writeWait = 10 * time.Second

// Config configures a Session. All values are plain configuration
// supplied by the caller.
type Config struct {
	// URL is the venue's streaming endpoint (ws:// or wss://).
	URL string
	// Header is attached to the WebSocket handshake, e.g. a bearer token
	// for account channels.
	Header http.Header
	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration
	// HeartbeatTimeout is the liveness window: no inbound activity within
	// it is treated as an unexpected disconnection.
	HeartbeatTimeout time.Duration
	// Reconnect bounds the reconnection loop after an unexpected
	// disconnection. The initial Connect never retries; that policy
	// belongs to the caller.
	Reconnect transport.RetryPolicy
	// EventBuffer is the capacity of the event delivery channel.
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 30 * time.Second
	}
	if c.Reconnect.MaxAttempts <= 0 {
		c.Reconnect = transport.RetryPolicy{
			MaxAttempts: 5,
			BaseDelay:   250 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Jitter:      0.25,
		}
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
	return c
}

// envelope carries either an event or a typed in-stream error to the
// consumer, preserving arrival order.
type envelope struct {
	event Event
	err   error
}

// Session owns one WebSocket connection and its subscription table.
// All methods are safe for concurrent use. The zero value is not usable;
// use NewSession.
type Session struct {
	cfg     Config
	lg      log.Logger
	metrics *Metrics

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	subs        []SubscriptionIntent
	events      chan envelope
	done        chan struct{}
	terminalErr error
	runCancel   context.CancelFunc

	writeMu sync.Mutex
	dropped atomic.Uint64
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger attaches a structured logger. Defaults to a noop logger.
func WithLogger(lg log.Logger) Option {
	return func(s *Session) { s.lg = lg.WithName("stream") }
}

// WithMetrics attaches session metrics. Defaults to none.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// NewSession creates a disconnected Session for the given endpoint.
func NewSession(cfg Config, opts ...Option) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:    cfg,
		lg:     log.NewNoopLogger(),
		events: make(chan envelope, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscriptions returns a copy of the subscription table in insertion
// order.
func (s *Session) Subscriptions() []SubscriptionIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SubscriptionIntent, len(s.subs))
	copy(out, s.subs)
	return out
}

// DroppedFrames returns the number of inbound frames dropped because
// their subscription id was unknown or already unsubscribed.
func (s *Session) DroppedFrames() uint64 {
	return s.dropped.Load()
}

// Connect establishes the WebSocket connection and replays the current
// subscription table in insertion order. It does not retry: initial
// connection policy belongs to the caller. On failure the session stays
// Disconnected.
//
// Connect may be called again on a Closed session to restart it; the
// subscription table is preserved across restarts.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateDisconnected:
	case StateClosed:
		// Restart: fresh delivery channels, stale buffered events dropped.
		s.events = make(chan envelope, s.cfg.EventBuffer)
		s.done = make(chan struct{})
		s.terminalErr = nil
	default:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}

	if err := s.replaySubscriptions(conn); err != nil {
		conn.Close()
		s.setState(StateDisconnected)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.conn = conn
	s.runCancel = cancel
	s.state = StateConnected
	events, done := s.events, s.done
	subCount := len(s.subs)
	s.mu.Unlock()

	s.lg.Info("stream connected", "url", s.cfg.URL, "subscriptions", subCount)
	go s.run(runCtx, conn, events, done)
	return nil
}

// Subscribe adds the intent to the subscription table and, when
// connected, sends the subscribe frame immediately. When not connected
// the table change takes effect on the next successful connect's replay.
// It returns the subscription id, assigning one when the intent left it
// empty. Re-subscribing an existing id replaces its entry in place.
func (s *Session) Subscribe(intent SubscriptionIntent) (string, error) {
	if intent.Channel == "" {
		return "", fmt.Errorf("subscription channel is required")
	}
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}

	s.mu.Lock()
	if idx := s.indexOf(intent.ID); idx >= 0 {
		s.subs[idx] = intent
	} else {
		s.subs = append(s.subs, intent)
	}
	conn, connected := s.conn, s.state == StateConnected
	s.mu.Unlock()

	if !connected {
		return intent.ID, nil
	}

	frame, err := intent.subscribeFrame()
	if err != nil {
		return intent.ID, fmt.Errorf("encoding subscribe params: %w", err)
	}
	if err := s.writeFrame(conn, frame); err != nil {
		// The table already holds the intent; replay covers it after the
		// reconnect this write failure is about to trigger.
		return intent.ID, err
	}

	s.lg.Debug("subscribed", "id", intent.ID, "channel", intent.Channel)
	return intent.ID, nil
}

// Unsubscribe removes the id from the subscription table and, when
// connected, sends the unsubscribe frame. Unsubscribing an unknown id is
// a no-op. The table entry is removed before the wire message is sent, so
// in-flight frames for the id are dropped rather than delivered.
func (s *Session) Unsubscribe(id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
	conn, connected := s.conn, s.state == StateConnected
	s.mu.Unlock()

	if !connected {
		return nil
	}

	err := s.writeFrame(conn, Frame{
		ID:        id,
		Type:      FrameUnsubscribe,
		Timestamp: time.Now().UnixMilli(),
	})
	if err == nil {
		s.lg.Debug("unsubscribed", "id", id)
	}
	return err
}

// NextEvent blocks until the next decoded frame arrives and returns it.
// Error frames and other in-stream errors are returned as typed errors
// without terminating the session. When the session reaches its terminal
// Closed state, buffered events are drained first and every subsequent
// call returns the terminal error. Cancelling ctx stops the wait without
// affecting the session.
func (s *Session) NextEvent(ctx context.Context) (Event, error) {
	s.mu.Lock()
	events, done := s.events, s.done
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case env := <-events:
		return s.consume(env)
	case <-done:
		// Drain buffered events before surfacing the terminal error.
		select {
		case env := <-events:
			return s.consume(env)
		default:
			return Event{}, s.terminalError()
		}
	}
}

// Close transitions the session to its terminal Closed state and closes
// the underlying connection. It is the only caller-driven path to Closed;
// pending NextEvent calls return the terminal error after buffered events
// are drained.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.terminalErr = ErrSessionClosed
	conn, cancel := s.conn, s.runCancel
	s.conn, s.runCancel = nil, nil
	close(s.done)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	s.lg.Info("stream closed")
	return nil
}

func (s *Session) consume(env envelope) (Event, error) {
	if env.err != nil {
		return Event{}, env.err
	}
	s.metrics.countDelivered()
	return env.event, nil
}

func (s *Session) terminalError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalErr != nil {
		return s.terminalErr
	}
	return ErrSessionClosed
}

// run supervises one connection at a time: it pumps the read loop, and on
// unexpected disconnection drives the reconnect path until it succeeds or
// the budget is exhausted.
func (s *Session) run(ctx context.Context, conn *websocket.Conn, events chan envelope, done chan struct{}) {
	for {
		pingCtx, stopPing := context.WithCancel(ctx)
		go s.pingLoop(pingCtx, conn)

		err := s.readLoop(ctx, conn, events, done)
		stopPing()
		conn.Close()

		if ctx.Err() != nil || s.State() == StateClosed {
			return
		}

		s.lg.Warn("stream connection lost", "error", err)
		s.setState(StateReconnecting)

		newConn, rerr := s.reconnect(ctx)
		if rerr != nil {
			s.terminate(rerr, done)
			return
		}
		conn = newConn
	}
}

// reconnect redials with exponential backoff until the attempt ceiling is
// reached, replaying the subscription table after each successful dial.
func (s *Session) reconnect(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Reconnect.MaxAttempts; attempt++ {
		timer := time.NewTimer(s.cfg.Reconnect.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		s.metrics.countReconnect()
		s.setState(StateConnecting)

		conn, err := s.dial(ctx)
		if err != nil {
			lastErr = err
			s.lg.Warn("reconnect attempt failed",
				"attempt", attempt, "maxAttempts", s.cfg.Reconnect.MaxAttempts, "error", err)
			s.setState(StateReconnecting)
			continue
		}

		if err := s.replaySubscriptions(conn); err != nil {
			conn.Close()
			lastErr = err
			s.lg.Warn("subscription replay failed", "attempt", attempt, "error", err)
			s.setState(StateReconnecting)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.state = StateConnected
		s.mu.Unlock()

		s.lg.Info("stream reconnected", "attempt", attempt)
		return conn, nil
	}

	return nil, fmt.Errorf("%w: reconnect budget exhausted after %d attempts: %v",
		ErrSessionClosed, s.cfg.Reconnect.MaxAttempts, lastErr)
}

// terminate moves the session to Closed after the reconnect budget is
// exhausted. The terminal error is surfaced through NextEvent.
func (s *Session) terminate(err error, done chan struct{}) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.terminalErr = err
	s.conn = nil
	close(done)
	s.mu.Unlock()

	s.lg.Error("stream terminated", "error", err)
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout:  s.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, s.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", s.cfg.URL, err)
	}

	// Any inbound activity counts as liveness; protocol pings are
	// answered transparently.
	deadline := func() error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.HeartbeatTimeout))
	}
	_ = deadline()
	conn.SetPongHandler(func(string) error { return deadline() })
	conn.SetPingHandler(func(appData string) error {
		_ = conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		return deadline()
	})
	return conn, nil
}

// replaySubscriptions re-sends every entry of the subscription table in
// insertion order. Subscribing is idempotent on the venue side.
func (s *Session) replaySubscriptions(conn *websocket.Conn) error {
	for _, intent := range s.Subscriptions() {
		frame, err := intent.subscribeFrame()
		if err != nil {
			return fmt.Errorf("encoding subscribe params for %q: %w", intent.Channel, err)
		}
		if err := s.writeFrame(conn, frame); err != nil {
			return fmt.Errorf("replaying subscription %q: %w", intent.Channel, err)
		}
	}
	return nil
}

// readLoop decodes inbound frames and routes them to the consumer until
// the connection fails or the session is stopped.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn, events chan envelope, done chan struct{}) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.HeartbeatTimeout)); err != nil {
			return err
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.metrics.countDecodeError()
			s.lg.Warn("skipping malformed frame", "error", (&DecodeError{Raw: raw, Err: err}).Error())
			continue
		}

		switch frame.Type {
		case FramePing:
			// Application-level liveness probe; answer in kind.
			pong := Frame{ID: frame.ID, Type: FramePong, Timestamp: time.Now().UnixMilli()}
			if err := s.writeFrame(conn, pong); err != nil {
				s.lg.Warn("failed to answer ping", "error", err)
			}

		case FramePong, FrameSubscribed, FrameUnsubscribed:
			// Liveness and acks already refreshed the read deadline.

		case FrameError:
			serverErr := &ServerError{
				SubscriptionID: frame.ID,
				Channel:        frame.Channel,
				Message:        errorFrameMessage(frame.Data),
			}
			if !s.deliver(ctx, events, done, envelope{err: serverErr}) {
				return nil
			}

		default:
			if !s.isSubscribed(frame.ID, frame.Channel) {
				s.dropped.Add(1)
				s.metrics.countDropped()
				s.lg.Debug("dropping frame for unknown subscription",
					"id", frame.ID, "channel", frame.Channel)
				continue
			}

			event := Event{
				SubscriptionID: frame.ID,
				Channel:        frame.Channel,
				Data:           frame.Data,
				Timestamp:      time.UnixMilli(frame.Timestamp),
			}
			if !s.deliver(ctx, events, done, envelope{event: event}) {
				return nil
			}
		}
	}
}

// deliver blocks until the consumer takes the envelope or the session
// stops, preserving frame order. It reports false when the session is
// stopping.
func (s *Session) deliver(ctx context.Context, events chan envelope, done chan struct{}, env envelope) bool {
	select {
	case events <- env:
		return true
	case <-ctx.Done():
		return false
	case <-done:
		return false
	}
}

// pingLoop keeps the connection alive from our side. The interval is a
// third of the heartbeat window so a single lost ping does not trip the
// liveness check.
func (s *Session) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.HeartbeatTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				// Force the read loop to notice the broken connection.
				conn.Close()
				return
			}
		}
	}
}

func (s *Session) writeFrame(conn *websocket.Conn, frame Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// indexOf returns the table index for a subscription id, or -1.
// Callers must hold s.mu.
func (s *Session) indexOf(id string) int {
	for i, sub := range s.subs {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

// isSubscribed reports whether an inbound frame identifier maps to a
// current table entry. Frames without an id match on channel name.
func (s *Session) isSubscribed(id, channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		return s.indexOf(id) >= 0
	}
	for _, sub := range s.subs {
		if sub.Channel == channel {
			return true
		}
	}
	return false
}

// errorFrameMessage extracts a human-readable message from an error
// frame's data, which may be a bare string or {"message": "..."}.
func errorFrameMessage(data json.RawMessage) string {
	if len(data) == 0 {
		return "unknown error"
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return asString
	}

	var asObject struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &asObject); err == nil {
		if asObject.Message != "" {
			return asObject.Message
		}
		if asObject.Error != "" {
			return asObject.Error
		}
	}
	return string(data)
}
