// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "github.com/go-playground/validator/v10"

// TernConfig is the persisted CLI configuration, stored at
// ~/.tern/tern.yaml.
type TernConfig struct {
	// Core: the REST service for auth, content, and chat persistence
	Core CoreConfig `yaml:"core"`

	// Agent: the streaming service
	Agent AgentConfig `yaml:"agent"`

	// Logging: level and optional log file directory
	Logging LoggingConfig `yaml:"logging"`
}

type CoreConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"` // e.g. http://localhost:8001/api/v1
}

type AgentConfig struct {
	// BaseURL is the websocket endpoint base, e.g. ws://localhost:8000
	BaseURL string `yaml:"base_url" validate:"required"`

	// Transport selects the streaming strategy.
	Transport string `yaml:"transport" validate:"oneof=websocket sse"`

	// ReconnectAttempts bounds websocket reconnection after an
	// unintended close.
	ReconnectAttempts int `yaml:"reconnect_attempts" validate:"min=0,max=20"`

	// ReconnectDelaySeconds is the base of the linear backoff.
	ReconnectDelaySeconds int `yaml:"reconnect_delay_seconds" validate:"min=0,max=60"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// configValidate is the validator instance for CLI configuration.
var configValidate = validator.New()

// Validate checks the config against its struct tags.
func (c *TernConfig) Validate() error {
	return configValidate.Struct(c)
}

func DefaultConfig() TernConfig {
	return TernConfig{
		Core: CoreConfig{
			BaseURL: "http://localhost:8001/api/v1",
		},
		Agent: AgentConfig{
			BaseURL:               "ws://localhost:8000",
			Transport:             "websocket",
			ReconnectAttempts:     5,
			ReconnectDelaySeconds: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
			JSON:  false,
		},
	}
}
