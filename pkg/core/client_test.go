// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL, Logger: testLogger()})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client, srv
}

func TestClient_AuthStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/status/" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"is_authenticated": true,
			"user":             map[string]any{"id": 9, "email": "k@example.com", "nickname": "kay"},
		})
	}))

	status, err := client.AuthStatus(context.Background())
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}
	if !status.IsAuthenticated || status.User == nil || status.User.ID != 9 {
		t.Errorf("wrong status: %+v", status)
	}
}

func TestClient_CSRF(t *testing.T) {
	var gets, posts []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-CSRFToken")
		switch r.Method {
		case http.MethodGet:
			gets = append(gets, token)
			// Django sets the csrf cookie on the first GET.
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-xyz", Path: "/"})
			_, _ = w.Write([]byte(`{"is_authenticated":false,"user":null}`))
		default:
			posts = append(posts, token)
			_, _ = w.Write([]byte(`{}`))
		}
	}))

	ctx := context.Background()
	if _, err := client.AuthStatus(ctx); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	if len(gets) != 1 || gets[0] != "" {
		t.Errorf("GET must not carry the csrf header: %v", gets)
	}
	if len(posts) != 1 || posts[0] != "tok-xyz" {
		t.Errorf("POST must echo the csrf cookie: %v", posts)
	}
	if got := client.CSRFToken(); got != "tok-xyz" {
		t.Errorf("CSRFToken returned %q", got)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	if _, err := client.Me(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_ErrorDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"nickname taken"}`))
	}))

	_, err := client.Me(context.Background())
	if err == nil || !strings.Contains(err.Error(), "nickname taken") {
		t.Errorf("detail not surfaced: %v", err)
	}
}

func TestClient_History(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/history/" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("wrong page: %s", got)
		}
		_, _ = w.Write([]byte(`{
			"count": 11,
			"next": null,
			"previous": "http://x/chat/history/?page=1",
			"results": [{"id":1,"nonce":"n-1","title":"T","created_at":"c","updated_at":"u","message_count":4}]
		}`))
	}))

	page, err := client.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if page.Count != 11 || len(page.Results) != 1 || page.Results[0].Nonce != "n-1" {
		t.Errorf("wrong page: %+v", page)
	}
	if page.Next != nil || page.Previous == nil {
		t.Errorf("wrong page links: %+v", page)
	}
}

func TestClient_SessionMessages(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/n-7/messages/" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id":1,"role":"user","content":"q","created_at":"c","attached_content_ids":[3],"helpful_document_post_ids":[]},
			{"id":2,"role":"assistant","content":"a","created_at":"c","attached_content_ids":[],"helpful_document_post_ids":[9]}
		]`))
	}))

	messages, err := client.SessionMessages(context.Background(), "n-7")
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].Role != "user" || messages[1].HelpfulDocumentPostIDs[0] != 9 {
		t.Errorf("wrong messages: %+v", messages)
	}
}

func TestClient_DeleteSession(t *testing.T) {
	var method, path string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.DeleteSession(context.Background(), "n-3"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if method != http.MethodDelete || path != "/chat/n-3/" {
		t.Errorf("wrong request: %s %s", method, path)
	}
}

func TestClient_UpdateProfile(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":1,"nickname":"newnick"}`))
	}))

	nick := "newnick"
	user, err := client.UpdateProfile(context.Background(), ProfileUpdate{Nickname: &nick})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if user.Nickname != "newnick" {
		t.Errorf("wrong user: %+v", user)
	}
	if len(body) != 1 || body["nickname"] != "newnick" {
		t.Errorf("nil fields must be omitted from the patch body: %v", body)
	}
}

func TestClient_Attach(t *testing.T) {
	var body map[string][]int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/attachment/" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{}`))
	}))

	if err := client.Attach(context.Background(), []int{4, 8}); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if ids := body["content_ids"]; len(ids) != 2 || ids[0] != 4 || ids[1] != 8 {
		t.Errorf("wrong body: %v", body)
	}
}

func TestClient_Columns(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/columns/" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":5,"title":"Post","view_count":12}]}`))
	}))

	page, err := client.Columns(context.Background(), 0)
	if err != nil {
		t.Fatalf("columns failed: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].ID != 5 || page.Results[0].ViewCount != 12 {
		t.Errorf("wrong results: %+v", page.Results)
	}
}
