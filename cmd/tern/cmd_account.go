// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func runWhoamiCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)

	status, err := client.AuthStatus(context.Background())
	if err != nil {
		exitOnCoreError("check auth status", err)
	}
	if !status.IsAuthenticated || status.User == nil {
		fmt.Println("Not signed in.")
		return
	}

	u := status.User
	fmt.Printf("%s <%s>\n", u.Name, u.Email)
	fmt.Printf("  nickname: %s\n", u.Nickname)
	fmt.Printf("  provider: %s\n", u.Provider)
	fmt.Printf("  joined:   %s\n", u.DateJoined)
}

func runLogoutCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)

	if err := client.Logout(context.Background()); err != nil {
		exitOnCoreError("logout", err)
	}
	fmt.Println("Signed out.")
}
