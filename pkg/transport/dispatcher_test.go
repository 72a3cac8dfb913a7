// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package transport

import (
	"testing"

	"github.com/AleutianAI/tern/pkg/stream"
)

func TestDispatcher(t *testing.T) {
	t.Run("handlers run in registration order", func(t *testing.T) {
		d := NewDispatcher()
		var order []int
		d.On(stream.EventChunk, func(stream.Event) { order = append(order, 1) })
		d.On(stream.EventChunk, func(stream.Event) { order = append(order, 2) })
		d.On(stream.EventChunk, func(stream.Event) { order = append(order, 3) })

		d.Dispatch(stream.Event{Type: stream.EventChunk})

		if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
			t.Errorf("wrong invocation order: %v", order)
		}
	})

	t.Run("only matching type invoked", func(t *testing.T) {
		d := NewDispatcher()
		chunks, errors := 0, 0
		d.On(stream.EventChunk, func(stream.Event) { chunks++ })
		d.On(stream.EventError, func(stream.Event) { errors++ })

		d.Dispatch(stream.Event{Type: stream.EventChunk})
		d.Dispatch(stream.Event{Type: stream.EventChunk})
		d.Dispatch(stream.Event{Type: stream.EventError})

		if chunks != 2 || errors != 1 {
			t.Errorf("expected chunks=2 errors=1, got chunks=%d errors=%d", chunks, errors)
		}
	})

	t.Run("unknown type ignored", func(t *testing.T) {
		d := NewDispatcher()
		d.Dispatch(stream.Event{Type: "mystery"})
	})

	t.Run("unsubscribe removes exactly that handler", func(t *testing.T) {
		d := NewDispatcher()
		first, second := 0, 0
		off := d.On(stream.EventChunk, func(stream.Event) { first++ })
		d.On(stream.EventChunk, func(stream.Event) { second++ })

		d.Dispatch(stream.Event{Type: stream.EventChunk})
		off()
		d.Dispatch(stream.Event{Type: stream.EventChunk})

		if first != 1 {
			t.Errorf("removed handler invoked %d times, want 1", first)
		}
		if second != 2 {
			t.Errorf("remaining handler invoked %d times, want 2", second)
		}
		if d.HandlerCount(stream.EventChunk) != 1 {
			t.Errorf("expected 1 handler left, got %d", d.HandlerCount(stream.EventChunk))
		}
	})

	t.Run("unsubscribe twice is harmless", func(t *testing.T) {
		d := NewDispatcher()
		off := d.On(stream.EventChunk, func(stream.Event) {})
		off()
		off()
		if d.HandlerCount(stream.EventChunk) != 0 {
			t.Errorf("expected 0 handlers, got %d", d.HandlerCount(stream.EventChunk))
		}
	})

	t.Run("registration during dispatch takes effect next event", func(t *testing.T) {
		d := NewDispatcher()
		late := 0
		registered := false
		d.On(stream.EventChunk, func(stream.Event) {
			if !registered {
				registered = true
				d.On(stream.EventChunk, func(stream.Event) { late++ })
			}
		})

		d.Dispatch(stream.Event{Type: stream.EventChunk})
		if late != 0 {
			t.Errorf("handler added mid-dispatch ran on same event")
		}
		d.Dispatch(stream.Event{Type: stream.EventChunk})
		if late != 1 {
			t.Errorf("handler added mid-dispatch did not run on next event, late=%d", late)
		}
	})
}
