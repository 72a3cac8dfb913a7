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
	"log"
	"strconv"

	"github.com/spf13/cobra"
)

func runContentListCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)
	selection := newSelectionStore()

	page, err := client.Columns(context.Background(), pageFlag)
	if err != nil {
		exitOnCoreError("list content", err)
	}

	fmt.Printf("Content (%d total):\n", page.Count)
	for _, c := range page.Results {
		marker := " "
		if selection.IsSelected(c.ID) {
			marker = "*"
		}
		desc := ""
		if c.Description != nil {
			desc = *c.Description
		}
		fmt.Printf("%s %4d  %-40s  %s\n", marker, c.ID, c.Title, desc)
	}
	if page.Next != nil {
		fmt.Printf("\nMore content on page %d.\n", pageFlag+1)
	}
}

func runContentShowCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer func() { _ = logger.Close() }()
	client := newCoreClient(logger)

	id, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("Invalid content id %q", args[0])
	}

	detail, err := client.ContentDetail(context.Background(), id)
	if err != nil {
		exitOnCoreError("fetch content", err)
	}

	fmt.Printf("%s (id %d, %d views)\n\n", detail.Title, detail.ID, detail.ViewCount)
	fmt.Println(detail.Text)
	if detail.NotionURL != nil && *detail.NotionURL != "" {
		fmt.Printf("\nSource: %s\n", *detail.NotionURL)
	}
}

func runContentSelectCommand(cmd *cobra.Command, args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("Invalid content id %q", args[0])
	}

	selection := newSelectionStore()
	if selection.Toggle(id) {
		fmt.Printf("Selected content %d. Selection: %v\n", id, selection.IDs())
	} else {
		fmt.Printf("Deselected content %d. Selection: %v\n", id, selection.IDs())
	}
}

func runContentSelectedCommand(cmd *cobra.Command, args []string) {
	selection := newSelectionStore()
	ids := selection.IDs()
	if len(ids) == 0 {
		fmt.Println("No content selected.")
		return
	}
	fmt.Printf("Selected content: %v\n", ids)
}

func runContentClearCommand(cmd *cobra.Command, args []string) {
	selection := newSelectionStore()
	selection.Clear()
	fmt.Println("Selection cleared.")
}
