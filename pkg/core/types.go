// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package core provides the typed REST client for the Core service:
// auth, user profile, content catalog, and chat session persistence.
package core

// User is an authenticated Core account.
type User struct {
	ID           int     `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Nickname     string  `json:"nickname"`
	ProfileImage *string `json:"profile_image"`
	UserType     string  `json:"user_type"`
	Provider     string  `json:"provider"`
	Mobile       *string `json:"mobile"`
	Information  *string `json:"information"`
	DateJoined   string  `json:"date_joined"`
}

// AuthStatus reports whether the session cookie is valid.
type AuthStatus struct {
	IsAuthenticated bool  `json:"is_authenticated"`
	User            *User `json:"user"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are
// omitted from the PATCH body and left unchanged server-side.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
}

// Content is one catalog entry.
type Content struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Thumbnail   *string `json:"thumbnail"`
	UploadedAt  string  `json:"uploaded_at"`
	ViewCount   int     `json:"view_count"`
}

// ContentDetail is a catalog entry with its full text. Fetching one
// also records a view server-side.
type ContentDetail struct {
	Content
	Text      string  `json:"text"`
	NotionURL *string `json:"notion_url"`
}

// Page is one page of a paginated listing. Next and Previous are
// absolute URLs, nil at the ends of the listing.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ChatSession is a persisted chat session summary.
type ChatSession struct {
	ID           int     `json:"id"`
	Nonce        string  `json:"nonce"`
	Title        *string `json:"title"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	MessageCount int     `json:"message_count"`
}

// ChatMessage is one persisted message in a session's history.
type ChatMessage struct {
	ID                     int    `json:"id"`
	Role                   string `json:"role"`
	Content                string `json:"content"`
	CreatedAt              string `json:"created_at"`
	AttachedContentIDs     []int  `json:"attached_content_ids"`
	HelpfulDocumentPostIDs []int  `json:"helpful_document_post_ids"`
}
