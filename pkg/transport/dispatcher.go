// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the typed event dispatcher shared by both
// transport variants.
package transport

import (
	"sync"

	"github.com/AleutianAI/tern/pkg/stream"
)

// Handler consumes one streaming event.
type Handler func(event stream.Event)

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher routes events to handlers registered per event type.
//
// Multiple handlers may be registered for the same type; they are
// invoked in registration order. Registration and removal are safe
// while a dispatch is in progress: Dispatch operates on a snapshot, so
// a handler added or removed mid-dispatch takes effect on the next
// event.
//
// Example:
//
//	d := NewDispatcher()
//	off := d.On(stream.EventChunk, func(ev stream.Event) {
//	    fmt.Print(ev.Content)
//	})
//	defer off()
type Dispatcher struct {
	mu       sync.Mutex
	nextID   int
	handlers map[stream.EventType][]registration
}

type registration struct {
	id int
	fn Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[stream.EventType][]registration),
	}
}

// On registers a handler for one event type and returns a function
// that unregisters exactly that handler.
func (d *Dispatcher) On(t stream.EventType, fn Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[t] = append(d.handlers[t], registration{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		regs := d.handlers[t]
		for i, reg := range regs {
			if reg.id == id {
				d.handlers[t] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers one event to every handler registered for its type,
// in registration order. Unknown types are silently ignored.
func (d *Dispatcher) Dispatch(event stream.Event) {
	d.mu.Lock()
	regs := d.handlers[event.Type]
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	d.mu.Unlock()

	for _, reg := range snapshot {
		reg.fn(event)
	}
}

// HandlerCount returns the number of handlers registered for a type.
func (d *Dispatcher) HandlerCount(t stream.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[t])
}
