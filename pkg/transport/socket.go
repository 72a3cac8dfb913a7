// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the persistent duplex transport built on
// gorilla/websocket.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/tern/pkg/stream"
)

// =============================================================================
// Connection States
// =============================================================================

// connState tracks the socket lifecycle:
// Idle -> Connecting -> Open -> {Closing, Reconnecting} -> Closed.
type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateOpen
	stateReconnecting
	stateClosing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateReconnecting:
		return "reconnecting"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// =============================================================================
// Configuration
// =============================================================================

// SocketConfig holds configuration for SocketTransport.
//
// # Fields
//
//   - BaseURL: Required. Agent websocket base, e.g. "ws://localhost:8000".
//   - Nonce: Optional. Resume an existing session. When empty the client
//     mints a nonce locally before dialing.
//   - MaxReconnectAttempts: Optional. Bounded retries after an
//     unintended close. Default: 5.
//   - ReconnectDelay: Optional. Base delay; the Nth attempt waits
//     N * ReconnectDelay (linear). Default: 1s.
//   - Logger: Optional. Default: slog.Default().
//   - Dialer: Optional. Default: websocket.DefaultDialer.
type SocketConfig struct {
	BaseURL              string
	Nonce                string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Logger               *slog.Logger
	Dialer               *websocket.Dialer
}

// =============================================================================
// SocketTransport
// =============================================================================

// SocketTransport implements ChatTransport over one persistent duplex
// WebSocket per session.
//
// # Description
//
// Connect dials {BaseURL}/ws/chat/{nonce} and waits for the server's
// session_created handshake. After the handshake a read pump dispatches
// every inbound message by type. Unintended closes trigger bounded
// reconnection with linearly increasing delay; an intentional Close
// suppresses reconnection permanently.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Writes to the socket
// are serialized internally (gorilla permits one concurrent writer).
//
// # Limitations
//
//   - Messages sent while the socket is not open are dropped with a
//     warning; they are never queued.
//   - A transport that has been Closed cannot be reopened.
type SocketTransport struct {
	baseURL      string
	maxAttempts  int
	baseDelay    time.Duration
	logger       *slog.Logger
	dialer       *websocket.Dialer

	mu         sync.Mutex
	state      connState
	conn       *websocket.Conn
	nonce      string
	closed     bool
	attempts   int
	handshake  chan handshakeResult
	dispatcher *Dispatcher
	terminal   chan struct{}

	writeMu sync.Mutex
}

type handshakeResult struct {
	nonce string
	err   error
}

// NewSocketTransport creates a duplex transport. Connect must be called
// before Stream.
func NewSocketTransport(config SocketConfig) *SocketTransport {
	maxAttempts := config.MaxReconnectAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	baseDelay := config.ReconnectDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &SocketTransport{
		baseURL:     config.BaseURL,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
		dialer:      dialer,
		nonce:       config.Nonce,
		state:       stateIdle,
	}
}

// Connect dials the Agent and waits for the session_created handshake.
//
// Idempotent: while a connection is open it returns the current nonce;
// while a connection attempt is in flight it waits for that attempt.
// After Close it fails fast with ErrClosed. If the connection closes
// before the handshake arrives, Connect fails with ErrHandshake and
// does not retry.
func (s *SocketTransport) Connect(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	switch s.state {
	case stateOpen:
		nonce := s.nonce
		s.mu.Unlock()
		return nonce, nil
	case stateConnecting, stateReconnecting:
		pending := s.handshake
		s.mu.Unlock()
		return s.awaitHandshake(ctx, pending)
	}

	s.state = stateConnecting
	pending := make(chan handshakeResult, 1)
	s.handshake = pending
	if s.nonce == "" {
		// No known session: mint the nonce client-side.
		s.nonce = uuid.New().String()
	}
	nonce := s.nonce
	s.mu.Unlock()

	go s.dial(nonce, pending)

	return s.awaitHandshake(ctx, pending)
}

// dial opens the socket and starts the read pump. The handshake channel
// is resolved by the read pump when session_created arrives, or here on
// dial failure.
func (s *SocketTransport) dial(nonce string, pending chan handshakeResult) {
	url := fmt.Sprintf("%s/ws/chat/%s", s.baseURL, nonce)
	s.logger.Debug("dialing agent websocket", "url", url)

	conn, resp, err := s.dialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.mu.Lock()
		s.state = stateIdle
		s.mu.Unlock()
		s.logger.Error("websocket dial failed", "url", url, "error", err)
		pending <- handshakeResult{err: fmt.Errorf("dial agent: %w", err)}
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		pending <- handshakeResult{err: ErrClosed}
		return
	}
	s.conn = conn
	s.mu.Unlock()

	go s.readPump(conn, pending)
}

// awaitHandshake blocks until the pending connect resolves or the
// context is cancelled.
func (s *SocketTransport) awaitHandshake(ctx context.Context, pending chan handshakeResult) (string, error) {
	select {
	case result := <-pending:
		// Re-buffer so concurrent Connect callers observe the result too.
		select {
		case pending <- result:
		default:
		}
		return result.nonce, result.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// readPump consumes inbound messages until the connection drops.
//
// The first message must be session_created; it resolves the pending
// handshake and flips the state to Open. Every message, including the
// handshake, is dispatched to the current dispatcher.
func (s *SocketTransport) readPump(conn *websocket.Conn, pending chan handshakeResult) {
	handshook := false

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.onClose(handshook, pending, err)
			return
		}

		event, decodeErr := stream.DecodeMessage(data)
		if decodeErr != nil {
			// Local recovery: drop the message, keep the connection.
			s.logger.Error("failed to parse websocket message", "error", decodeErr)
			continue
		}

		if event.Type == stream.EventSessionCreated && !handshook {
			handshook = true
			s.mu.Lock()
			if event.Nonce != "" {
				s.nonce = event.Nonce
			}
			s.state = stateOpen
			s.attempts = 0
			nonce := s.nonce
			s.mu.Unlock()
			s.logger.Info("agent session established", "nonce", nonce)
			pending <- handshakeResult{nonce: nonce}
		}

		s.dispatch(event)

		if event.IsTerminal() {
			s.signalTerminal()
		}
	}
}

// onClose handles a dropped connection: resolve a pre-handshake connect
// with ErrHandshake, and schedule reconnection unless the close was
// intentional.
func (s *SocketTransport) onClose(handshook bool, pending chan handshakeResult, cause error) {
	s.mu.Lock()
	intentional := s.closed
	s.conn = nil
	if !intentional {
		s.state = stateIdle
	}
	s.mu.Unlock()

	if !handshook {
		if intentional {
			pending <- handshakeResult{err: ErrClosed}
		} else {
			s.logger.Error("websocket closed before handshake", "error", cause)
			pending <- handshakeResult{err: ErrHandshake}
		}
		return
	}

	if intentional {
		// Expected close; no error logging, no reconnect.
		return
	}

	s.logger.Warn("websocket closed unexpectedly", "error", cause)
	s.signalTerminal()
	s.scheduleReconnect()
}

// scheduleReconnect retries the connection with linearly increasing
// delay, up to the configured bound. Exhaustion gives up silently.
func (s *SocketTransport) scheduleReconnect() {
	s.mu.Lock()
	if s.closed || s.attempts >= s.maxAttempts {
		if s.attempts >= s.maxAttempts {
			s.logger.Info("websocket reconnect attempts exhausted", "attempts", s.attempts)
		}
		s.mu.Unlock()
		return
	}
	s.attempts++
	attempt := s.attempts
	s.state = stateReconnecting
	pending := make(chan handshakeResult, 1)
	s.handshake = pending
	nonce := s.nonce
	s.mu.Unlock()

	delay := s.baseDelay * time.Duration(attempt)
	s.logger.Info("reconnecting to agent", "attempt", attempt, "delay", delay)

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.state = stateConnecting
		s.mu.Unlock()

		s.dial(nonce, pending)

		if _, err := s.awaitHandshake(context.Background(), pending); err != nil {
			s.logger.Error("websocket reconnect failed", "attempt", attempt, "error", err)
			s.scheduleReconnect()
		}
	})
}

// Stream sends one user message over the socket and blocks until a
// terminal event is dispatched or the context is cancelled.
//
// If the socket is not open the message is dropped with a warning and
// Stream returns nil immediately (never queued, never an error).
func (s *SocketTransport) Stream(ctx context.Context, msg stream.Outbound, d *Dispatcher) error {
	s.mu.Lock()
	if s.state != stateOpen || s.conn == nil {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("cannot send, socket not open", "state", state.String())
		return nil
	}
	s.dispatcher = d
	terminal := make(chan struct{}, 1)
	s.terminal = terminal
	s.mu.Unlock()

	msg.Type = "message"
	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	select {
	case <-terminal:
		return nil
	case <-ctx.Done():
		// Cooperative cancellation: the read pump keeps the socket
		// alive for the session; the caller has already stopped caring
		// about this response.
		return nil
	}
}

// StopGeneration sends the stop_generation control message. Best
// effort: a closed socket drops the message with a warning.
func (s *SocketTransport) StopGeneration(_ context.Context, _ string) error {
	s.mu.Lock()
	open := s.state == stateOpen && s.conn != nil
	s.mu.Unlock()
	if !open {
		s.logger.Warn("cannot send stop_generation, socket not open")
		return nil
	}
	if err := s.writeJSON(stream.Outbound{Type: "stop_generation"}); err != nil {
		s.logger.Warn("failed to send stop_generation", "error", err)
	}
	return nil
}

// Connected reports whether the handshake has completed and the socket
// is open.
func (s *SocketTransport) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateOpen && s.conn != nil
}

// Nonce returns the current session nonce (server-assigned after the
// handshake, client-minted before).
func (s *SocketTransport) Nonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce
}

// Close tears the connection down permanently.
//
// Sets the intentional-close flag, which suppresses reconnection and
// close-error logging, and makes subsequent Connect calls fail fast
// with ErrClosed.
func (s *SocketTransport) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = stateClosing
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}

	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
	return nil
}

// writeJSON serializes one outbound message. Gorilla allows a single
// concurrent writer, so writes are funneled through writeMu.
func (s *SocketTransport) writeJSON(msg stream.Outbound) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("socket not open")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// dispatch forwards one event to the current dispatcher, if any.
func (s *SocketTransport) dispatch(event stream.Event) {
	s.mu.Lock()
	d := s.dispatcher
	s.mu.Unlock()
	if d != nil {
		d.Dispatch(event)
	}
}

// signalTerminal wakes the Stream call waiting on the current response.
func (s *SocketTransport) signalTerminal() {
	s.mu.Lock()
	terminal := s.terminal
	s.terminal = nil
	s.mu.Unlock()
	if terminal != nil {
		select {
		case terminal <- struct{}{}:
		default:
		}
	}
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ ChatTransport = (*SocketTransport)(nil)
