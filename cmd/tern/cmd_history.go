// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tern/pkg/core"
)

func runHistoryCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)

	page, err := client.History(context.Background(), pageFlag)
	if err != nil {
		exitOnCoreError("fetch history", err)
	}

	if len(page.Results) == 0 {
		fmt.Println("No chat sessions yet.")
		return
	}

	fmt.Printf("Sessions (%d total):\n", page.Count)
	for _, s := range page.Results {
		title := "(untitled)"
		if s.Title != nil && *s.Title != "" {
			title = *s.Title
		}
		fmt.Printf("  %s  %-40s  %3d messages  %s\n", s.Nonce, title, s.MessageCount, s.UpdatedAt)
	}
	if page.Next != nil {
		fmt.Printf("\nMore sessions on page %d.\n", pageFlag+1)
	}
}

func runMessagesCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)

	messages, err := client.SessionMessages(context.Background(), args[0])
	if err != nil {
		exitOnCoreError("fetch messages", err)
	}

	for _, m := range messages {
		switch m.Role {
		case "user":
			fmt.Printf("\n> %s\n", m.Content)
		default:
			fmt.Printf("%s\n", m.Content)
		}
	}
}

func runDeleteCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)

	if err := client.DeleteSession(context.Background(), args[0]); err != nil {
		exitOnCoreError("delete session", err)
	}
	fmt.Printf("Deleted session %s\n", args[0])
}

// exitOnCoreError terminates the command with a friendlier message for
// the common unauthenticated case.
func exitOnCoreError(op string, err error) {
	if errors.Is(err, core.ErrUnauthorized) {
		log.Fatalf("Not signed in. Authenticate in the web app first so the session cookie exists.")
	}
	log.Fatalf("Error: %s: %v", op, err)
}
