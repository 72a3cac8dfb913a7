// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the request-scoped transport: one streaming POST
// per user message, with the response body parsed as SSE frames.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/tern/pkg/stream"
	"github.com/AleutianAI/tern/pkg/validation"
)

// =============================================================================
// HTTP Client Interface
// =============================================================================

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	// Do executes one HTTP request.
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// Configuration
// =============================================================================

// SSEConfig holds configuration for SSETransport.
//
// # Fields
//
//   - BaseURL: Required. Core API base, e.g. "http://localhost:8001/api/v1".
//   - Client: Optional. Injected HTTP client. Default: http.DefaultClient.
//   - CSRFToken: Optional. Returns the current CSRF token; attached as
//     X-CSRFToken when non-empty.
//   - Logger: Optional. Default: slog.Default().
type SSEConfig struct {
	BaseURL   string
	Client    HTTPClient
	CSRFToken func() string
	Logger    *slog.Logger
}

// =============================================================================
// SSETransport
// =============================================================================

// SSETransport implements ChatTransport as one HTTP POST per message.
//
// # Description
//
// Each Stream call POSTs the message to {BaseURL}/chat/{nonce}/stream/
// and reads the response body incrementally through a FrameParser scoped
// to that request. There is no standing connection: Connect is a no-op
// and Connected always reports true. Callers gate submission on their
// own streaming state, not on connection state.
//
// # Limitations
//
//   - Server-initiated events between requests are impossible by
//     construction; only the duplex variant can deliver those.
type SSETransport struct {
	baseURL   string
	client    HTTPClient
	csrfToken func() string
	logger    *slog.Logger
}

// NewSSETransport creates a request-scoped transport.
func NewSSETransport(config SSEConfig) *SSETransport {
	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SSETransport{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		client:    client,
		csrfToken: config.CSRFToken,
		logger:    logger,
	}
}

// Connect is a no-op: there is no standing connection to establish.
// The session nonce is minted by the caller and carried per request.
func (s *SSETransport) Connect(_ context.Context) (string, error) {
	return "", nil
}

// Stream POSTs one user message and dispatches the SSE events from the
// response body.
//
// Failure handling mirrors a resilient UI rather than an RPC client:
// HTTP-level failures are converted into a single error event on the
// dispatcher and Stream returns nil, so the caller's transcript shows
// the failure without the session falling over. Only request
// construction errors are returned.
func (s *SSETransport) Stream(ctx context.Context, msg stream.Outbound, d *Dispatcher) error {
	if err := validation.ValidateNonce(msg.Nonce); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	msg.Type = ""
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode stream request: %w", err)
	}

	// Trailing slash matters: the Core redirects bare paths with a 308,
	// which breaks a streaming POST.
	url := fmt.Sprintf("%s/chat/%s/stream/", s.baseURL, msg.Nonce)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.attachCSRF(req)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller cancelled; not a failure.
			return nil
		}
		s.logger.Error("stream request failed", "url", url, "error", err)
		d.Dispatch(stream.Event{Type: stream.EventError, Message: err.Error()})
		return nil
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.Dispatch(errorEventFromResponse(resp))
		return nil
	}
	if resp.Body == nil {
		d.Dispatch(stream.Event{Type: stream.EventError, Message: "no response body"})
		return nil
	}

	parser := stream.NewFrameParser(s.logger)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, event := range parser.Parse(string(buf[:n])) {
				d.Dispatch(event)
			}
		}
		if readErr != nil {
			if readErr == io.EOF || ctx.Err() != nil {
				return nil
			}
			s.logger.Error("stream read failed", "url", url, "error", readErr)
			d.Dispatch(stream.Event{Type: stream.EventError, Message: readErr.Error()})
			return nil
		}
	}
}

// StopGeneration fires a best-effort POST to the stop endpoint.
// Failures are logged and swallowed; the caller's own cancellation of
// the stream read is the authoritative local stop.
func (s *SSETransport) StopGeneration(ctx context.Context, nonce string) error {
	if err := validation.ValidateNonce(nonce); err != nil {
		return fmt.Errorf("stop generation: %w", err)
	}
	url := fmt.Sprintf("%s/chat/%s/stop/", s.baseURL, nonce)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build stop request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.attachCSRF(req)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("stop generation request failed", "nonce", nonce, "error", err)
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// Connected always reports true. The request-scoped variant is
// connectionless; admission control belongs to the session's streaming
// flag.
func (s *SSETransport) Connected() bool {
	return true
}

// Close is a no-op: each request carries its own lifecycle.
func (s *SSETransport) Close() error {
	return nil
}

func (s *SSETransport) attachCSRF(req *http.Request) {
	if s.csrfToken == nil {
		return
	}
	if token := s.csrfToken(); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
}

// errorEventFromResponse converts a non-2xx response into one error
// event. The body is read as text and, when it is JSON, the detail or
// message field wins over the raw text. The HTTP status becomes the
// error code.
func errorEventFromResponse(resp *http.Response) stream.Event {
	message := ""
	if resp.Body != nil {
		body, err := io.ReadAll(resp.Body)
		if err == nil {
			message = string(body)
			var parsed struct {
				Detail  string `json:"detail"`
				Message string `json:"message"`
			}
			if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil {
				if parsed.Detail != "" {
					message = parsed.Detail
				} else if parsed.Message != "" {
					message = parsed.Message
				}
			}
		}
	}
	if message == "" {
		message = resp.Status
	}
	return stream.Event{
		Type:    stream.EventError,
		Message: message,
		Code:    fmt.Sprintf("%d", resp.StatusCode),
	}
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ ChatTransport = (*SSETransport)(nil)
