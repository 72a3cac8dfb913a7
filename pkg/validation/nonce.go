// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are
// interpolated into URL paths or WebSocket endpoints. Using these validators
// prevents path traversal and request smuggling through crafted identifiers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// noncePattern matches valid session nonces.
// Allows: letters, digits, hyphens (UUID form), underscores
// Max length: 64 characters
var noncePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,63}$`)

// ValidateNonce validates a session nonce before it is placed in a URL path.
//
// Valid nonces:
//   - 1-64 characters
//   - Letters A-Z, a-z
//   - Digits 0-9
//   - Hyphens (-) as in UUIDs
//   - Underscores (_)
//
// Returns an error if the nonce is invalid.
//
// Example:
//
//	if err := validation.ValidateNonce(nonce); err != nil {
//	    return nil, fmt.Errorf("invalid nonce: %w", err)
//	}
//	// Safe to interpolate into a request path
func ValidateNonce(nonce string) error {
	if nonce == "" {
		return fmt.Errorf("nonce cannot be empty")
	}

	if !noncePattern.MatchString(nonce) {
		return fmt.Errorf("invalid nonce format: %q (must be 1-64 alphanumeric chars, hyphens, or underscores)", nonce)
	}

	return nil
}

// SanitizeNonce trims and validates a session nonce.
// Returns the trimmed nonce if valid, or an error if invalid.
//
// Use this at trust boundaries where the nonce arrives from user input,
// such as CLI arguments:
//
//	nonce, err := validation.SanitizeNonce(args[0])
//	if err != nil {
//	    return err
//	}
func SanitizeNonce(nonce string) (string, error) {
	trimmed := strings.TrimSpace(nonce)
	if err := ValidateNonce(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
