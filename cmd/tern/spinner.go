// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a waiting indicator on one terminal line. It is
// restartable: each response turn starts it while the Agent is working
// and stops it when content begins to flow.
type spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func newSpinner(w io.Writer) *spinner {
	return &spinner{w: w}
}

// Start begins the animation with the given message. Starting a running
// spinner just updates the message.
func (s *spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		frame := 0

		for {
			select {
			case <-stop:
				// Clear the spinner line
				fmt.Fprint(s.w, "\r\033[K")
				close(done)
				return
			case <-ticker.C:
				s.mu.Lock()
				message := s.message
				s.mu.Unlock()
				fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[frame], message)
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// UpdateMessage changes the text while the spinner is running.
func (s *spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Safe to call when not
// running.
func (s *spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}
