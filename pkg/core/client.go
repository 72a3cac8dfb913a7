// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the Core REST client.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/AleutianAI/tern/pkg/validation"
)

// csrfCookieName is the cookie the Core sets for CSRF protection. Its
// value is echoed back in the X-CSRFToken header on every non-GET
// request.
const csrfCookieName = "csrftoken"

// ErrUnauthorized is returned when the Core rejects the session cookie.
// Callers should re-authenticate rather than retry.
var ErrUnauthorized = errors.New("core: not authenticated")

// =============================================================================
// Client
// =============================================================================

// HTTPDoer abstracts HTTP execution for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the Core client.
//
// # Fields
//
//   - BaseURL: Required. e.g. "http://localhost:8001/api/v1".
//   - Doer: Optional. Injected HTTP client. Default: an http.Client
//     with a cookie jar, which is what session-cookie auth needs.
//   - Logger: Optional. Default: slog.Default().
type Config struct {
	BaseURL string
	Doer    HTTPDoer
	Logger  *slog.Logger
}

// Client is the typed Core API client.
//
// # Description
//
// The Core authenticates with a session cookie and protects mutations
// with a CSRF token, also delivered as a cookie. The client keeps both
// in its jar and attaches the X-CSRFToken header to every non-GET
// request automatically.
//
// # Thread Safety
//
// Safe for concurrent use.
type Client struct {
	baseURL *url.URL
	doer    HTTPDoer
	jar     http.CookieJar
	logger  *slog.Logger
}

// NewClient creates a Core client.
func NewClient(config Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse core base url: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doer := config.Doer
	var jar http.CookieJar
	if doer == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		doer = &http.Client{Jar: jar}
	} else if hc, ok := doer.(*http.Client); ok {
		jar = hc.Jar
	}

	return &Client{
		baseURL: base,
		doer:    doer,
		jar:     jar,
		logger:  logger,
	}, nil
}

// CSRFToken returns the current csrftoken cookie value, empty when the
// jar has none yet. Exposed so the streaming transport can reuse the
// same token.
func (c *Client) CSRFToken() string {
	if c.jar == nil {
		return ""
	}
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// =============================================================================
// Auth
// =============================================================================

// AuthStatus reports whether the current session cookie is valid, and
// for whom.
func (c *Client) AuthStatus(ctx context.Context) (AuthStatus, error) {
	return request[AuthStatus](c, ctx, http.MethodGet, "/auth/status/", nil)
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := request[struct{}](c, ctx, http.MethodPost, "/auth/logout/", nil)
	return err
}

// =============================================================================
// Users
// =============================================================================

// Me returns the authenticated user's account.
func (c *Client) Me(ctx context.Context) (User, error) {
	return request[User](c, ctx, http.MethodGet, "/users/me/", nil)
}

// UpdateProfile patches the editable profile fields and returns the
// updated account.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	return request[User](c, ctx, http.MethodPatch, "/users/profile/", update)
}

// =============================================================================
// Content
// =============================================================================

// Columns lists the content catalog, paginated. Pages are 1-indexed.
func (c *Client) Columns(ctx context.Context, page int) (Page[Content], error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/content/columns/?page=%d", page)
	return request[Page[Content]](c, ctx, http.MethodGet, path, nil)
}

// Preferred returns the user's preferred content picks.
func (c *Client) Preferred(ctx context.Context) ([]Content, error) {
	return request[[]Content](c, ctx, http.MethodGet, "/content/preferred/", nil)
}

// ContentDetail fetches one content entry with its full text. The Core
// records a view as a side effect.
func (c *Client) ContentDetail(ctx context.Context, id int) (ContentDetail, error) {
	path := fmt.Sprintf("/content/%d/", id)
	return request[ContentDetail](c, ctx, http.MethodGet, path, nil)
}

// Attach records that the given content was attached to a chat message.
func (c *Client) Attach(ctx context.Context, contentIDs []int) error {
	body := map[string][]int{"content_ids": contentIDs}
	_, err := request[struct{}](c, ctx, http.MethodPost, "/content/attachment/", body)
	return err
}

// =============================================================================
// Chat Persistence
// =============================================================================

// History lists the user's chat sessions, paginated, newest first.
func (c *Client) History(ctx context.Context, page int) (Page[ChatSession], error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/chat/history/?page=%d", page)
	return request[Page[ChatSession]](c, ctx, http.MethodGet, path, nil)
}

// SessionMessages returns the full persisted message history of one
// session.
func (c *Client) SessionMessages(ctx context.Context, nonce string) ([]ChatMessage, error) {
	if err := validation.ValidateNonce(nonce); err != nil {
		return nil, fmt.Errorf("session messages: %w", err)
	}
	path := fmt.Sprintf("/chat/%s/messages/", nonce)
	return request[[]ChatMessage](c, ctx, http.MethodGet, path, nil)
}

// DeleteSession removes one session and its messages.
func (c *Client) DeleteSession(ctx context.Context, nonce string) error {
	if err := validation.ValidateNonce(nonce); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	path := fmt.Sprintf("/chat/%s/", nonce)
	_, err := request[struct{}](c, ctx, http.MethodDelete, path, nil)
	return err
}

// =============================================================================
// Request Plumbing
// =============================================================================

// request executes one JSON round trip. Trailing slashes on paths are
// deliberate: the Core redirects bare paths with a 308, which drops
// method and body on some clients.
func request[T any](c *Client, ctx context.Context, method, path string, body any) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return zero, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return zero, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zero, errorFromResponse(method, path, resp)
	}

	if resp.StatusCode == http.StatusNoContent {
		return zero, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if len(data) == 0 {
		return zero, nil
	}
	if err := json.Unmarshal(data, &zero); err != nil {
		return zero, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return zero, nil
}

// errorFromResponse builds an error from a non-2xx response, preferring
// the Core's JSON detail or message field over the raw body.
func errorFromResponse(method, path string, resp *http.Response) error {
	message := resp.Status
	if body, err := io.ReadAll(resp.Body); err == nil && len(body) > 0 {
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
	return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, message)
}
