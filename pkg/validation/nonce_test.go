// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"
)

func TestValidateNonce(t *testing.T) {
	valid := []string{
		"b2f7c1e0-9a4d-4f4b-8d2e-1c6a7b3f9e21",
		"n-1",
		"abc",
		"A1_b2",
		strings.Repeat("a", 64),
	}
	for _, nonce := range valid {
		if err := ValidateNonce(nonce); err != nil {
			t.Errorf("ValidateNonce(%q) = %v, want nil", nonce, err)
		}
	}

	invalid := []string{
		"",
		"-leading-hyphen",
		"../../etc/passwd",
		"a/b",
		"a b",
		"n%2e%2e",
		"nonce\n",
		strings.Repeat("a", 65),
	}
	for _, nonce := range invalid {
		if err := ValidateNonce(nonce); err == nil {
			t.Errorf("ValidateNonce(%q) = nil, want error", nonce)
		}
	}
}

func TestSanitizeNonce(t *testing.T) {
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		got, err := SanitizeNonce("  n-42  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "n-42" {
			t.Errorf("got %q, want %q", got, "n-42")
		}
	})

	t.Run("rejects traversal attempts", func(t *testing.T) {
		if _, err := SanitizeNonce("../admin"); err == nil {
			t.Error("expected error for traversal input")
		}
	})
}
