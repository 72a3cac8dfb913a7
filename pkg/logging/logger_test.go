// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestLogger_FileOutput(t *testing.T) {
	t.Run("writes json entries to the log file", func(t *testing.T) {
		dir := t.TempDir()
		logger := New(Config{
			Level:   LevelInfo,
			LogDir:  dir,
			Service: "tern-test",
			Quiet:   true,
		})

		logger.Info("session started", "nonce", "n-1")
		logger.Debug("filtered out", "nonce", "n-1")
		if err := logger.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		filename := "tern-test_" + time.Now().Format("2006-01-02") + ".log"
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			t.Fatalf("log file not created: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected 1 entry (debug filtered), got %d", len(lines))
		}

		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("file entry is not json: %v", err)
		}
		if entry["msg"] != "session started" {
			t.Errorf("wrong message: %v", entry["msg"])
		}
		if entry["nonce"] != "n-1" {
			t.Errorf("missing attribute: %v", entry)
		}
		if entry["service"] != "tern-test" {
			t.Errorf("missing service attribute: %v", entry)
		}
	})

	t.Run("creates missing log directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "deep", "logs")
		logger := New(Config{LogDir: dir, Service: "tern-test", Quiet: true})
		logger.Info("hello")
		_ = logger.Close()

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) == 0 {
			t.Errorf("log directory not created: %v", err)
		}
	})
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "tern-test", Quiet: true})

	child := logger.With("nonce", "n-9")
	child.Info("child entry")
	_ = logger.Close()

	filename := "tern-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("entry is not json: %v", err)
	}
	if entry["nonce"] != "n-9" {
		t.Errorf("With attribute missing: %v", entry)
	}
}

func TestLogger_Close(t *testing.T) {
	t.Run("close without file is nil", func(t *testing.T) {
		logger := New(Config{Quiet: true})
		if err := logger.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("double close is safe", func(t *testing.T) {
		logger := New(Config{LogDir: t.TempDir(), Service: "tern-test", Quiet: true})
		logger.Info("entry")
		if err := logger.Close(); err != nil {
			t.Fatalf("first close failed: %v", err)
		}
		if err := logger.Close(); err != nil {
			t.Errorf("second close failed: %v", err)
		}
	})
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger.Slog() == nil {
		t.Fatal("default logger has no slog")
	}
	// Must not panic.
	logger.Info("default logger works")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("tilde not expanded: %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("absolute path changed: %q", got)
	}
}
