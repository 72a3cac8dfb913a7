// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the streaming transcript reducer.
package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/AleutianAI/tern/pkg/stream"
)

// stoppedSuffix marks a response the user cut off mid-generation.
const stoppedSuffix = " (stopped)"

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// =============================================================================
// Transcript
// =============================================================================

// Transcript is the ordered message list for one session plus the
// ephemeral streaming state around it.
//
// # Description
//
// Transcript is a reducer: transport events flow in through Apply and
// deterministically update the message list. Two invariants hold at all
// times:
//
//   - At most one message is streaming, and it is always the last.
//   - Chunk order is preserved verbatim; chunks only ever append.
//
// Each response turn is finalized exactly once, whether by a terminal
// event (end, stopped, error) or by the safety net when the transport
// returns without one.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Events for one turn must
// still arrive in wire order (the transports guarantee this).
type Transcript struct {
	mu        sync.Mutex
	messages  []Message
	status    string
	err       string
	streaming bool
	completed bool
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Preload seeds the transcript with persisted history. Used once when
// resuming a session, before any live streaming.
func (t *Transcript) Preload(messages []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append([]Message{}, messages...)
}

// Submit starts a new response turn: it appends the final user message
// and an empty streaming assistant placeholder.
//
// Returns false without mutating anything when a stream is already
// active or the text trims to empty.
func (t *Transcript) Submit(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.streaming {
		return false
	}
	t.messages = append(t.messages, newUserMessage(trimmed), newPlaceholder())
	t.streaming = true
	t.completed = false
	t.err = ""
	t.status = ""
	return true
}

// Apply folds one transport event into the transcript.
//
// Event handling:
//   - status: replaces the ephemeral status line. Only terminal events
//     clear it.
//   - chunk: appends to the last message iff it is a streaming assistant
//     placeholder; otherwise the chunk is dropped.
//   - end: sole success finalization. Citation markers in the processed
//     content are rewritten against the source documents, sources are
//     attached, streaming and status clear.
//   - stopped: finalizes the partial content with the stopped suffix.
//   - error: removes the placeholder when it is still empty, keeps the
//     partial content otherwise; the message becomes the session error.
//
// Terminal events after the turn has already completed are ignored.
func (t *Transcript) Apply(event stream.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Type {
	case stream.EventStatus:
		t.status = event.Message

	case stream.EventChunk:
		last := t.last()
		if last != nil && last.Role == RoleAssistant && last.Streaming {
			last.Content += event.Content
		}

	case stream.EventEnd:
		if t.completed {
			return
		}
		t.completed = true
		content := RewriteCitations(event.ProcessedContent, event.SourceDocuments)
		last := t.last()
		if last != nil && last.Role == RoleAssistant {
			last.Content = content
			last.Sources = event.SourceDocuments
			last.Streaming = false
		}
		t.streaming = false
		t.status = ""

	case stream.EventStopped:
		if t.completed {
			return
		}
		t.completed = true
		last := t.last()
		if last != nil && last.Role == RoleAssistant && last.Streaming {
			last.Content += stoppedSuffix
			last.Streaming = false
		}
		t.streaming = false
		t.status = ""

	case stream.EventError:
		if t.completed {
			return
		}
		t.completed = true
		t.err = event.Message
		t.status = ""
		t.streaming = false
		last := t.last()
		if last != nil && last.Role == RoleAssistant && last.Content == "" {
			t.messages = t.messages[:len(t.messages)-1]
		} else if last != nil {
			last.Streaming = false
		}
	}
}

// FinalizeDangling is the safety net for a transport call that returned
// without delivering a terminal event: it clears the placeholder's
// streaming flag so the transcript never shows a stuck spinner.
//
// Returns true only when it actually finalized; after a terminal event
// it is a no-op, so a turn can never be finalized twice.
func (t *Transcript) FinalizeDangling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed || !t.streaming {
		return false
	}
	t.completed = true
	t.streaming = false
	t.status = ""
	last := t.last()
	if last != nil && last.Role == RoleAssistant && last.Streaming {
		last.Streaming = false
	}
	return true
}

// Messages returns a snapshot copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Streaming reports whether a response turn is in flight.
func (t *Transcript) Streaming() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streaming
}

// Status returns the current ephemeral status line, empty when none.
func (t *Transcript) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the session-level error message. Latest error wins; a new
// Submit clears it.
func (t *Transcript) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// last returns a pointer into the message slice, valid only under the
// lock.
func (t *Transcript) last() *Message {
	if len(t.messages) == 0 {
		return nil
	}
	return &t.messages[len(t.messages)-1]
}

// =============================================================================
// Citation Rewriting
// =============================================================================

// RewriteCitations converts [N] citation markers into markdown links
// against the Nth source document (1-indexed).
//
// [3] with a third source at example.com/doc becomes
// [\[3\]](example.com/doc). Out-of-range markers stay literal. The
// rewrite is idempotent: a replaced marker contains escaped brackets and
// no longer matches the pattern.
func RewriteCitations(content string, sources []stream.SourceDocument) string {
	if len(sources) == 0 {
		return content
	}
	return citationPattern.ReplaceAllStringFunc(content, func(match string) string {
		numStr := match[1 : len(match)-1]
		num, err := strconv.Atoi(numStr)
		if err != nil || num < 1 || num > len(sources) {
			return match
		}
		return fmt.Sprintf(`[\[%d\]](%s)`, num, sources[num-1].Source)
	})
}
