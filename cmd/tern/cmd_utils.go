// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/tern/cmd/tern/config"
	"github.com/AleutianAI/tern/pkg/chat"
	"github.com/AleutianAI/tern/pkg/core"
	"github.com/AleutianAI/tern/pkg/logging"
	"github.com/AleutianAI/tern/pkg/transport"
)

// newLogger builds the CLI logger from the loaded config.
func newLogger() *logging.Logger {
	cfg := config.Global.Logging
	level := logging.LevelInfo
	switch cfg.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "tern",
		JSON:    cfg.JSON,
	})
}

// newCoreClient builds the Core REST client.
func newCoreClient(logger *logging.Logger) *core.Client {
	client, err := core.NewClient(core.Config{
		BaseURL: config.Global.Core.BaseURL,
		Logger:  logger.Slog(),
	})
	if err != nil {
		log.Fatalf("Error creating core client: %v", err)
	}
	return client
}

// newTransport builds the streaming transport selected by the
// --transport flag, falling back to the configured default.
func newTransport(nonce string, coreClient *core.Client, logger *logging.Logger) transport.ChatTransport {
	variant := transportFlag
	if variant == "" {
		variant = config.Global.Agent.Transport
	}

	switch variant {
	case "sse":
		return transport.NewSSETransport(transport.SSEConfig{
			BaseURL:   config.Global.Core.BaseURL,
			CSRFToken: coreClient.CSRFToken,
			Logger:    logger.Slog(),
		})
	case "websocket", "":
		return transport.NewSocketTransport(transport.SocketConfig{
			BaseURL:              config.Global.Agent.BaseURL,
			Nonce:                nonce,
			MaxReconnectAttempts: config.Global.Agent.ReconnectAttempts,
			ReconnectDelay:       time.Duration(config.Global.Agent.ReconnectDelaySeconds) * time.Second,
			Logger:               logger.Slog(),
		})
	default:
		log.Fatalf("Unknown transport %q (want websocket or sse)", variant)
		return nil
	}
}

// newSelectionStore opens the persisted content selection.
func newSelectionStore() *chat.SelectionStore {
	home, err := os.UserHomeDir()
	if err != nil {
		return chat.NewSelectionStore(nil)
	}
	return chat.NewSelectionStore(&chat.YAMLSelectionPersister{
		Path: filepath.Join(home, ".tern", "selection.yaml"),
	})
}
