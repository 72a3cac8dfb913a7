// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the session nonce manager.
package chat

import (
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// NonceManager
// =============================================================================

// NonceManager guards the session identity nonce.
//
// # Description
//
// A session has exactly one nonce. Ensure mints a UUID on first use and
// returns the same value on every later call, no matter how many
// goroutines race on it. An optional OnMinted callback observes the
// mint exactly once, outside the lock, so slow observers (URL pushes,
// persistence) never sit on the streaming path.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type NonceManager struct {
	mu       sync.Mutex
	nonce    string
	onMinted func(nonce string)
}

// NewNonceManager creates a manager. initial may be empty (fresh
// session) or an existing nonce (resumed session). onMinted may be nil.
func NewNonceManager(initial string, onMinted func(nonce string)) *NonceManager {
	return &NonceManager{nonce: initial, onMinted: onMinted}
}

// Ensure returns the session nonce, minting one locally if none exists
// yet. Exactly one mint happens per session; concurrent callers all
// observe the same value.
func (n *NonceManager) Ensure() string {
	n.mu.Lock()
	if n.nonce != "" {
		nonce := n.nonce
		n.mu.Unlock()
		return nonce
	}
	n.nonce = uuid.New().String()
	nonce := n.nonce
	onMinted := n.onMinted
	n.onMinted = nil
	n.mu.Unlock()

	if onMinted != nil {
		onMinted(nonce)
	}
	return nonce
}

// Current returns the nonce without minting. Empty means no nonce has
// been established yet.
func (n *NonceManager) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonce
}

// Adopt records a server-assigned nonce, as delivered by the duplex
// session_created handshake. Adoption is not a mint: OnMinted does not
// fire.
func (n *NonceManager) Adopt(nonce string) {
	if nonce == "" {
		return
	}
	n.mu.Lock()
	n.nonce = nonce
	n.mu.Unlock()
}
