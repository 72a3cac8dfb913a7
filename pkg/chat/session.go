// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the session lifecycle controller.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/tern/pkg/core"
	"github.com/AleutianAI/tern/pkg/stream"
	"github.com/AleutianAI/tern/pkg/transport"
)

var (
	// ErrStreamActive is returned by Submit while a response is already
	// in flight. One stream per session at a time.
	ErrStreamActive = errors.New("chat: a response stream is already active")

	// ErrSessionClosed is returned by Submit after Close.
	ErrSessionClosed = errors.New("chat: session closed")
)

// HistoryLoader fetches the persisted message history of a session.
// *core.Client satisfies it.
type HistoryLoader interface {
	SessionMessages(ctx context.Context, nonce string) ([]core.ChatMessage, error)
}

// =============================================================================
// Configuration
// =============================================================================

// SessionConfig holds configuration for a Session.
//
// # Fields
//
//   - Transport: Required. The streaming transport variant to use.
//   - History: Optional. When set together with Nonce, the persisted
//     history is preloaded into the transcript on Start.
//   - Nonce: Optional. Resume an existing session.
//   - UserID: Optional. Attached to outbound messages.
//   - PendingMessage: Optional. Staged text delivered exactly once
//     after the transport is ready.
//   - OnNonceMinted: Optional. Observes a locally minted nonce exactly
//     once, off the streaming path.
//   - Selection: Optional. Content attached to each outbound message.
//   - Logger: Optional. Default: slog.Default().
type SessionConfig struct {
	Transport      transport.ChatTransport
	History        HistoryLoader
	Nonce          string
	UserID         *int
	PendingMessage string
	OnNonceMinted  func(nonce string)
	Selection      *SelectionStore
	Logger         *slog.Logger
}

// =============================================================================
// Session
// =============================================================================

// Session owns everything one conversation needs: the nonce, the
// transcript, the transport, and the content selection.
//
// # Description
//
// Start prepares the transport, preloads persisted history when
// resuming, and delivers a staged pending message. Submit runs one
// response turn end to end: admission control, nonce ensure, the
// transport stream, and the safety-net finalization when the stream
// returns without a terminal event. Stop aborts the in-flight read
// immediately and finalizes optimistically before telling the server.
//
// # Thread Safety
//
// Safe for concurrent use. Submit blocks for the duration of the
// stream; Stop and Close may be called from other goroutines.
type Session struct {
	transport  transport.ChatTransport
	history    HistoryLoader
	nonces     *NonceManager
	transcript *Transcript
	dispatcher *transport.Dispatcher
	selection  *SelectionStore
	userID     *int
	pending    string
	logger     *slog.Logger

	mu           sync.Mutex
	streamCancel context.CancelFunc
	started      bool
	closed       bool
}

// NewSession creates a session around the given transport.
func NewSession(config SessionConfig) *Session {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		transport:  config.Transport,
		history:    config.History,
		nonces:     NewNonceManager(config.Nonce, config.OnNonceMinted),
		transcript: NewTranscript(),
		dispatcher: transport.NewDispatcher(),
		selection:  config.Selection,
		userID:     config.UserID,
		pending:    strings.TrimSpace(config.PendingMessage),
		logger:     logger,
	}

	s.dispatcher.On(stream.EventSessionCreated, func(ev stream.Event) {
		s.nonces.Adopt(ev.Nonce)
	})
	for _, t := range []stream.EventType{
		stream.EventStatus,
		stream.EventChunk,
		stream.EventEnd,
		stream.EventStopped,
		stream.EventError,
	} {
		s.dispatcher.On(t, s.transcript.Apply)
	}

	return s
}

// Start prepares the session for streaming.
//
// The transport connects (a no-op for the request-scoped variant), a
// resumed session's history is preloaded into the transcript, and any
// staged pending message is delivered exactly once, synchronously, now
// that the transport is ready.
//
// Start runs its work at most once: a second call, even from another
// goroutine, is a no-op. A failed connect resets the guard so the
// caller can retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	nonce, err := s.transport.Connect(ctx)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("connect transport: %w", err)
	}
	s.nonces.Adopt(nonce)

	if existing := s.nonces.Current(); existing != "" && s.history != nil {
		if err := s.preloadHistory(ctx, existing); err != nil {
			// A session with no server-side history yet is normal.
			s.logger.Debug("history preload skipped", "nonce", existing, "error", err)
		}
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = ""
	s.mu.Unlock()
	if pending != "" {
		if err := s.Submit(ctx, pending); err != nil {
			return fmt.Errorf("deliver pending message: %w", err)
		}
	}
	return nil
}

// preloadHistory merges the persisted history in as the initial
// transcript.
func (s *Session) preloadHistory(ctx context.Context, nonce string) error {
	history, err := s.history.SessionMessages(ctx, nonce)
	if err != nil {
		return err
	}
	messages := make([]Message, 0, len(history))
	for _, m := range history {
		created, _ := time.Parse(time.RFC3339, m.CreatedAt)
		messages = append(messages, Message{
			ID:        fmt.Sprintf("%d", m.ID),
			Role:      Role(m.Role),
			Content:   m.Content,
			CreatedAt: created,
		})
	}
	s.transcript.Preload(messages)
	s.logger.Info("session history preloaded", "nonce", nonce, "messages", len(messages))
	return nil
}

// Submit runs one response turn and blocks until it finishes.
//
// Admission control: text that trims to empty is a silent no-op, and a
// second Submit while a stream is in flight fails with ErrStreamActive.
func (s *Session) Submit(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.streamCancel != nil {
		s.mu.Unlock()
		return ErrStreamActive
	}
	if !s.transcript.Submit(trimmed) {
		s.mu.Unlock()
		return ErrStreamActive
	}
	streamCtx, cancel := context.WithCancel(ctx)
	s.streamCancel = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.streamCancel = nil
		s.mu.Unlock()
		// Safety net: a stream that ended without a terminal event must
		// not leave the placeholder spinning.
		if s.transcript.FinalizeDangling() {
			s.logger.Warn("stream ended without terminal event")
		}
	}()

	nonce := s.nonces.Ensure()
	msg := stream.Outbound{
		Nonce:      nonce,
		Content:    trimmed,
		ContentIDs: s.selectedIDs(),
		UserID:     s.userID,
	}

	if err := s.transport.Stream(streamCtx, msg, s.dispatcher); err != nil {
		return fmt.Errorf("stream message: %w", err)
	}
	return nil
}

// Stop cancels the in-flight response.
//
// The local read is aborted first and the transcript finalized
// optimistically with the stopped suffix, then the server is told to
// stop, best effort. A Stop with nothing in flight is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.streamCancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	s.transcript.Apply(stream.Event{Type: stream.EventStopped})

	if err := s.transport.StopGeneration(ctx, s.nonces.Current()); err != nil {
		s.logger.Warn("server stop request failed", "error", err)
	}
	return nil
}

// Close cancels any in-flight stream and releases the transport. The
// session cannot be reused afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.streamCancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return s.transport.Close()
}

// Nonce returns the current session nonce, empty before the first
// Submit of a fresh session.
func (s *Session) Nonce() string {
	return s.nonces.Current()
}

// Transcript exposes the session's message state.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Dispatcher exposes the event dispatcher so callers can observe the
// live stream (status lines, chunk rendering) alongside the reducer.
func (s *Session) Dispatcher() *transport.Dispatcher {
	return s.dispatcher
}

// Streaming reports whether a response turn is in flight.
func (s *Session) Streaming() bool {
	return s.transcript.Streaming()
}

func (s *Session) selectedIDs() []int {
	if s.selection == nil {
		return []int{}
	}
	return s.selection.IDs()
}
