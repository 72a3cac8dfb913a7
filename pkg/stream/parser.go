// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the SSE frame parser.
//
// Single Responsibility:
//
//	The parser ONLY parses. It does not perform I/O, dispatch, or state
//	management beyond the carryover buffer needed to reassemble frames
//	split across network reads.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// =============================================================================
// Frame Parser
// =============================================================================

// FrameParser decodes a raw SSE text stream into Events.
//
// SSE frame format:
//
//	event: chunk\n
//	data: {"content":"Hello"}\n
//	\n
//
// Frames are delimited by a blank line. The parser never assumes a
// frame boundary aligns with a read boundary: any text after the last
// blank line is retained internally and prefixed to the next input.
//
// A FrameParser is stateful and scoped to a single stream. It is not
// safe for concurrent use; each request gets its own parser.
//
// Example:
//
//	p := NewFrameParser(logger)
//	for each network read:
//	    for _, ev := range p.Parse(text) {
//	        dispatch(ev)
//	    }
type FrameParser struct {
	carry  string
	logger *slog.Logger
}

// NewFrameParser creates a parser for one stream. A nil logger falls
// back to slog.Default.
func NewFrameParser(logger *slog.Logger) *FrameParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameParser{logger: logger}
}

// Parse consumes an arbitrarily-sized decoded text fragment and returns
// every complete frame it can decode, in order.
//
// Frame handling:
//   - A frame missing either the event name or the data line is
//     silently dropped (not an error).
//   - A JSON decode failure for one frame is logged and skipped; later
//     frames keep processing. Local recovery, never fatal.
//   - heartbeat frames are recognized and discarded.
func (p *FrameParser) Parse(text string) []Event {
	combined := p.carry + text

	parts := strings.Split(combined, "\n\n")

	// The last part may be an incomplete frame; hold it for next time.
	p.carry = parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	var events []Event
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}

		name, data := splitFrame(part)
		if name == "" || data == "" {
			continue
		}

		if EventType(name) == EventHeartbeat || normalizeEventType(name) == EventHeartbeat {
			continue
		}

		event, err := decodeFramePayload(name, data)
		if err != nil {
			p.logger.Error("failed to parse stream frame",
				"event", name,
				"error", err,
			)
			continue
		}
		events = append(events, event)
	}

	return events
}

// Buffered returns the text currently held as an incomplete frame.
// Useful for diagnostics; a non-empty value at stream end means the
// server closed mid-frame.
func (p *FrameParser) Buffered() string {
	return p.carry
}

// splitFrame extracts the event name and data payload from one frame.
// Unknown field lines (including id:) are tolerated and ignored.
func splitFrame(frame string) (name, data string) {
	for _, line := range strings.Split(frame, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return name, data
}

// decodeFramePayload decodes the JSON data of a named frame. The frame
// name wins over any type field inside the payload.
func decodeFramePayload(name, data string) (Event, error) {
	var raw struct {
		Nonce            string           `json:"nonce"`
		Message          string           `json:"message"`
		Content          string           `json:"content"`
		ProcessedContent string           `json:"processed_content"`
		SourceDocuments  []SourceDocument `json:"source_documents"`
		Code             string           `json:"code"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", name, err)
	}

	return Event{
		Type:             normalizeEventType(name),
		Nonce:            raw.Nonce,
		Message:          raw.Message,
		Content:          raw.Content,
		ProcessedContent: raw.ProcessedContent,
		SourceDocuments:  raw.SourceDocuments,
		Code:             raw.Code,
	}, nil
}
