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
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tern/pkg/chat"
	"github.com/AleutianAI/tern/pkg/validation"
)

func runChatCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()

	coreClient := newCoreClient(logger)
	selection := newSelectionStore()

	nonce := ""
	if len(args) > 0 {
		var err error
		if nonce, err = validation.SanitizeNonce(args[0]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	}

	// Identify the user so messages are attributed server-side. An
	// anonymous session still works.
	var userID *int
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if status, err := coreClient.AuthStatus(ctx); err == nil && status.IsAuthenticated && status.User != nil {
		userID = &status.User.ID
		fmt.Printf("Signed in as %s\n", status.User.Nickname)
	}

	session := chat.NewSession(chat.SessionConfig{
		Transport: newTransport(nonce, coreClient, logger),
		History:   coreClient,
		Nonce:     nonce,
		UserID:    userID,
		Selection: selection,
		OnNonceMinted: func(n string) {
			fmt.Printf("Session: %s\n", n)
		},
		PendingMessage: messageFlag,
		Logger:         logger.Slog(),
	})
	defer func() { _ = session.Close() }()

	printer := newStreamPrinter(os.Stdout)
	detach := printer.attach(session.Dispatcher())
	defer detach()

	// First Ctrl-C stops the in-flight response, second one exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = session.Stop(context.Background())
		<-sigCh
		cancel()
	}()

	if err := session.Start(ctx); err != nil {
		log.Fatalf("Error starting session: %v", err)
	}

	// One-shot mode: the pending message already streamed during Start.
	if messageFlag != "" {
		return
	}

	if nonce != "" {
		printHistory(session)
	}

	if ids := selection.IDs(); len(ids) > 0 {
		fmt.Printf("Attached content: %v\n", ids)
	}
	fmt.Println(`Type a message, "/stop" to cancel a response, "/quit" to exit.`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/stop":
			_ = session.Stop(ctx)
			continue
		}

		if err := session.Submit(ctx, line); err != nil {
			if errors.Is(err, chat.ErrStreamActive) {
				fmt.Println("A response is still streaming; /stop it first.")
				continue
			}
			logger.Error("submit failed", "error", err)
		}
		if msg := session.Transcript().Err(); msg != "" {
			logger.Debug("session error state", "message", msg)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// printHistory renders the preloaded transcript of a resumed session.
func printHistory(session *chat.Session) {
	for _, msg := range session.Transcript().Messages() {
		switch msg.Role {
		case chat.RoleUser:
			fmt.Printf("\n> %s\n", msg.Content)
		case chat.RoleAssistant:
			fmt.Printf("%s\n", msg.Content)
		}
	}
}
