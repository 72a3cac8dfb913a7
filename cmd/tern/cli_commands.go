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
	"github.com/spf13/cobra"
)

// Flags
var (
	transportFlag string // --transport websocket|sse
	pageFlag      int    // --page for paginated listings
	messageFlag   string // --message: send one message and exit
)

var (
	rootCmd = &cobra.Command{
		Use:   "tern",
		Short: "Tern is the terminal client for the Aleutian chat service",
		Long: `Tern talks to the Core (auth, content, chat history) and streams
assistant responses from the Agent over WebSocket or SSE.`,
	}

	chatCmd = &cobra.Command{
		Use:   "chat [nonce]",
		Short: "Start or resume an interactive chat session",
		Long: `Opens an interactive chat. Pass a nonce to resume an existing
session with its history preloaded. While a response is streaming,
/stop cancels it; /quit exits.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runChatCommand,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List your chat sessions",
		Run:   runHistoryCommand,
	}

	messagesCmd = &cobra.Command{
		Use:   "messages <nonce>",
		Short: "Show the persisted messages of one session",
		Args:  cobra.ExactArgs(1),
		Run:   runMessagesCommand,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <nonce>",
		Short: "Delete a chat session and its messages",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteCommand,
	}

	contentCmd = &cobra.Command{
		Use:   "content",
		Short: "Browse and select content to attach to chat messages",
	}

	contentListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the content catalog",
		Run:   runContentListCommand,
	}

	contentShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show one content entry with its full text",
		Args:  cobra.ExactArgs(1),
		Run:   runContentShowCommand,
	}

	contentSelectCmd = &cobra.Command{
		Use:   "select <id>",
		Short: "Toggle a content entry's selection for chat attachment",
		Args:  cobra.ExactArgs(1),
		Run:   runContentSelectCommand,
	}

	contentSelectedCmd = &cobra.Command{
		Use:   "selected",
		Short: "Show the currently selected content IDs",
		Run:   runContentSelectedCommand,
	}

	contentClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Clear the content selection",
		Run:   runContentClearCommand,
	}

	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated account",
		Run:   runWhoamiCommand,
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the server-side session",
		Run:   runLogoutCommand,
	}
)

func init() {
	chatCmd.Flags().StringVar(&transportFlag, "transport", "",
		"Streaming transport: websocket or sse (default from config)")
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "",
		"Send one message, print the response, and exit")
	historyCmd.Flags().IntVar(&pageFlag, "page", 1, "Page number")
	contentListCmd.Flags().IntVar(&pageFlag, "page", 1, "Page number")

	contentCmd.AddCommand(contentListCmd, contentShowCmd, contentSelectCmd,
		contentSelectedCmd, contentClearCmd)
	rootCmd.AddCommand(chatCmd, historyCmd, messagesCmd, deleteCmd,
		contentCmd, whoamiCmd, logoutCmd)
}
