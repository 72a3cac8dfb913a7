// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chat holds the client-side session state: the nonce manager,
// the streaming transcript reducer, the session lifecycle controller,
// and the content selection store.
package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/tern/pkg/stream"
)

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a session transcript.
//
// Streaming is true only while the assistant response is still being
// assembled from chunks; at most one message in a transcript is
// streaming, and it is always the last one.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Sources   []stream.SourceDocument
	Streaming bool
	CreatedAt time.Time
}

func newUserMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// newPlaceholder creates the empty streaming assistant message that
// chunks accumulate into.
func newPlaceholder() Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAssistant,
		Streaming: true,
		CreatedAt: time.Now(),
	}
}
