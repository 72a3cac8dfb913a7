// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transport provides the ChatTransport contract and its two
// implementations for talking to the Agent streaming service.
//
// Two wire strategies exist:
//
//   - SocketTransport: one persistent duplex WebSocket per session,
//     with a session_created handshake and bounded reconnection.
//   - SSETransport: one HTTP POST per user message, with the response
//     body parsed as a one-way SSE event stream.
//
// Both satisfy the same interface so the session layer is written once.
//
// # Architecture
//
//	Session → ChatTransport Interface → Dispatcher → handlers
//	               ↓                         ↑
//	     SocketTransport / SSETransport → stream.FrameParser
package transport

import (
	"context"
	"errors"

	"github.com/AleutianAI/tern/pkg/stream"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrClosed is returned by Connect after an intentional Close.
	// A closed transport never reopens; create a new one.
	ErrClosed = errors.New("transport: intentionally closed")

	// ErrHandshake is returned when the duplex connection closes before
	// the session_created message arrives.
	ErrHandshake = errors.New("transport: connection closed before session created")
)

// =============================================================================
// ChatTransport Interface
// =============================================================================

// ChatTransport is the single polymorphic contract over both wire
// strategies. The session layer holds one ChatTransport and never
// inspects which variant it is.
//
// # Description
//
// Connect establishes whatever standing state the variant needs and
// returns the session nonce it settled on. For the duplex variant this
// dials the socket and waits for the session_created handshake; for the
// request-scoped variant it is a no-op.
//
// Stream delivers one user message and pumps the resulting events into
// the dispatcher until a terminal event, stream end, or context
// cancellation. Cancellation via ctx is cooperative and is NOT reported
// as an error.
//
// StopGeneration is a best-effort signal to the server; the client's
// own cancellation of the read is the authoritative local stop.
//
// # Thread Safety
//
// Implementations are safe for concurrent use, but callers are expected
// to keep at most one Stream in flight per session (admission control
// lives in the session layer).
type ChatTransport interface {
	// Connect prepares the transport and returns the session nonce.
	// Idempotent while connecting/open; fails fast with ErrClosed after
	// an intentional Close.
	Connect(ctx context.Context) (string, error)

	// Stream sends one user message and dispatches the resulting events
	// until the stream finishes. Context cancellation aborts the read
	// and returns nil.
	Stream(ctx context.Context, msg stream.Outbound, d *Dispatcher) error

	// StopGeneration asks the server to stop the current generation.
	// Best effort: failures are swallowed by implementations.
	StopGeneration(ctx context.Context, nonce string) error

	// Connected reports whether the transport can accept a Stream call.
	// The request-scoped variant is connectionless and always reports
	// true; gate submissions on streaming state, not on Connected.
	Connected() bool

	// Close tears the transport down permanently.
	Close() error
}
