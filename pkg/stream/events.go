// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stream provides typed Agent streaming events and the frame
// parser that decodes them from the wire.
//
// This file contains the event model shared by both transports. The
// duplex (WebSocket) transport delivers whole JSON messages; the
// request-scoped transport delivers SSE frames. Both decode into the
// same Event struct so the rest of the client is transport-agnostic.
package stream

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Event Types
// =============================================================================

// EventType identifies the kind of streaming event sent by the Agent.
type EventType string

const (
	// EventSessionCreated is the duplex handshake message carrying the
	// server-assigned session nonce. Never seen on the SSE transport.
	EventSessionCreated EventType = "session_created"

	// EventStatus is an ephemeral progress message ("Searching...").
	EventStatus EventType = "status"

	// EventChunk is an incremental piece of the assistant response.
	EventChunk EventType = "chunk"

	// EventEnd is the success terminal event carrying the final
	// processed content and source documents.
	EventEnd EventType = "end"

	// EventStopped is the terminal event for user-initiated cancellation.
	EventStopped EventType = "stopped"

	// EventError is the terminal event for server-reported failure.
	EventError EventType = "error"

	// EventHeartbeat keeps intermediary proxies from timing out the
	// connection. It carries no payload and is discarded after being
	// recognized.
	EventHeartbeat EventType = "heartbeat"
)

// IsTerminal returns true for the three events that finalize a
// streaming response: end, stopped, and error.
func (t EventType) IsTerminal() bool {
	return t == EventEnd || t == EventStopped || t == EventError
}

// normalizeEventType maps the duplex wire's long-form event names onto
// the short names used internally. Unknown names pass through unchanged.
func normalizeEventType(name string) EventType {
	switch name {
	case "status_update":
		return EventStatus
	case "stream_chunk":
		return EventChunk
	case "stream_end":
		return EventEnd
	case "generation_stopped":
		return EventStopped
	default:
		return EventType(name)
	}
}

// =============================================================================
// Payload Types
// =============================================================================

// SourceDocument is a document cited by the assistant response.
// Citation markers [N] in the final content refer to the Nth document
// (1-indexed).
type SourceDocument struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Event is the tagged union of everything the Agent can send.
//
// Only the fields matching Type are populated:
//
//	session_created: Nonce
//	status:          Message
//	chunk:           Content
//	end:             ProcessedContent, SourceDocuments
//	stopped:         (none)
//	error:           Message, Code
//	heartbeat:       (none)
//
// Events are ephemeral: they are produced by a transport adapter and
// consumed exactly once by the transcript reducer.
type Event struct {
	Type             EventType        `json:"type"`
	Nonce            string           `json:"nonce,omitempty"`
	Message          string           `json:"message,omitempty"`
	Content          string           `json:"content,omitempty"`
	ProcessedContent string           `json:"processed_content,omitempty"`
	SourceDocuments  []SourceDocument `json:"source_documents,omitempty"`
	Code             string           `json:"code,omitempty"`
}

// IsTerminal reports whether this event finalizes the current response.
func (e Event) IsTerminal() bool {
	return e.Type.IsTerminal()
}

// =============================================================================
// Duplex Message Decoding
// =============================================================================

// DecodeMessage decodes one whole JSON message from the duplex
// transport into an Event. The duplex wire uses long-form type names
// (status_update, stream_chunk, ...) which are normalized here.
//
// Returns an error when the payload is not valid JSON or has no type.
func DecodeMessage(data []byte) (Event, error) {
	var raw struct {
		Type             string           `json:"type"`
		Nonce            string           `json:"nonce"`
		Message          string           `json:"message"`
		Content          string           `json:"content"`
		ProcessedContent string           `json:"processed_content"`
		SourceDocuments  []SourceDocument `json:"source_documents"`
		Code             string           `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decode agent message: %w", err)
	}
	if raw.Type == "" {
		return Event{}, fmt.Errorf("agent message has no type")
	}

	return Event{
		Type:             normalizeEventType(raw.Type),
		Nonce:            raw.Nonce,
		Message:          raw.Message,
		Content:          raw.Content,
		ProcessedContent: raw.ProcessedContent,
		SourceDocuments:  raw.SourceDocuments,
		Code:             raw.Code,
	}, nil
}

// =============================================================================
// Outbound Messages
// =============================================================================

// Outbound is a client-to-Agent message. On the duplex transport it is
// serialized whole (with Type); on the SSE transport the same fields
// minus Type form the POST body. Nonce addresses the session and is
// carried in the URL, never the payload.
type Outbound struct {
	Type       string `json:"type,omitempty"`
	Nonce      string `json:"-"`
	Content    string `json:"content"`
	ContentIDs []int  `json:"content_ids"`
	UserID     *int   `json:"user_id"`
}
