// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Agent.Transport != "websocket" {
		t.Errorf("expected websocket default, got %s", cfg.Agent.Transport)
	}
	if cfg.Agent.ReconnectAttempts != 5 {
		t.Errorf("expected 5 reconnect attempts, got %d", cfg.Agent.ReconnectAttempts)
	}
	if cfg.Agent.ReconnectDelaySeconds != 1 {
		t.Errorf("expected 1s base delay, got %d", cfg.Agent.ReconnectDelaySeconds)
	}
}

func TestTernConfig_Validate(t *testing.T) {
	t.Run("bad transport rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Agent.Transport = "carrier-pigeon"
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for unknown transport")
		}
	})

	t.Run("bad log level rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "loud"
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for unknown level")
		}
	})

	t.Run("missing core url rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Core.BaseURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for empty core url")
		}
	})

	t.Run("excessive reconnect attempts rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Agent.ReconnectAttempts = 100
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for attempts out of range")
		}
	})

	t.Run("sse transport accepted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Agent.Transport = "sse"
		if err := cfg.Validate(); err != nil {
			t.Errorf("sse should validate: %v", err)
		}
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TERN_CORE_URL", "http://override:9000/api/v1")
	t.Setenv("TERN_AGENT_URL", "ws://override:9001")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Core.BaseURL != "http://override:9000/api/v1" {
		t.Errorf("core url not overridden: %s", cfg.Core.BaseURL)
	}
	if cfg.Agent.BaseURL != "ws://override:9001" {
		t.Errorf("agent url not overridden: %s", cfg.Agent.BaseURL)
	}
}
