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

	"github.com/AleutianAI/tern/pkg/stream"
	"github.com/AleutianAI/tern/pkg/transport"
)

// streamPrinter renders live streaming events to a writer.
//
// Status updates animate on a spinner line, chunks print verbatim as
// they arrive, and the end event prints a sources footer. The
// transcript reducer owns the canonical state; the printer only echoes
// the stream.
type streamPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	wait *spinner
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w, wait: newSpinner(w)}
}

// attach subscribes the printer to a dispatcher and returns a function
// that detaches it.
func (p *streamPrinter) attach(d *transport.Dispatcher) func() {
	offs := []func(){
		d.On(stream.EventStatus, p.onStatus),
		d.On(stream.EventChunk, p.onChunk),
		d.On(stream.EventEnd, p.onEnd),
		d.On(stream.EventStopped, p.onStopped),
		d.On(stream.EventError, p.onError),
	}
	return func() {
		p.wait.Stop()
		for _, off := range offs {
			off()
		}
	}
}

func (p *streamPrinter) onStatus(ev stream.Event) {
	p.wait.Start(ev.Message)
}

func (p *streamPrinter) onChunk(ev stream.Event) {
	p.wait.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, ev.Content)
}

func (p *streamPrinter) onEnd(ev stream.Event) {
	p.wait.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w)
	if len(ev.SourceDocuments) > 0 {
		fmt.Fprintln(p.w, "\nSources:")
		for i, doc := range ev.SourceDocuments {
			fmt.Fprintf(p.w, "%d. %s (%s)\n", i+1, doc.Title, doc.Source)
		}
	}
}

func (p *streamPrinter) onStopped(ev stream.Event) {
	p.wait.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, " (stopped)")
}

func (p *streamPrinter) onError(ev stream.Event) {
	p.wait.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\nError: %s", ev.Message)
	if ev.Code != "" {
		fmt.Fprintf(p.w, " (code %s)", ev.Code)
	}
	fmt.Fprintln(p.w)
}
