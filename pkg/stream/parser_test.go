// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stream

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrameParser_Parse(t *testing.T) {
	t.Run("single complete frame", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		events := p.Parse("event: chunk\ndata: {\"content\":\"Hello\"}\n\n")

		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Type != EventChunk {
			t.Errorf("expected chunk, got %s", events[0].Type)
		}
		if events[0].Content != "Hello" {
			t.Errorf("expected content Hello, got %q", events[0].Content)
		}
	})

	t.Run("multiple frames in one read", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		input := "event: status\ndata: {\"message\":\"Searching\"}\n\n" +
			"event: chunk\ndata: {\"content\":\"A\"}\n\n" +
			"event: chunk\ndata: {\"content\":\"B\"}\n\n"
		events := p.Parse(input)

		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[0].Type != EventStatus || events[1].Content != "A" || events[2].Content != "B" {
			t.Errorf("events decoded out of order: %+v", events)
		}
	})

	t.Run("frame split across reads", func(t *testing.T) {
		p := NewFrameParser(discardLogger())

		events := p.Parse("event: chunk\ndata: {\"cont")
		if len(events) != 0 {
			t.Fatalf("incomplete frame should yield no events, got %d", len(events))
		}
		if p.Buffered() == "" {
			t.Error("expected carryover for incomplete frame")
		}

		events = p.Parse("ent\":\"World\"}\n\n")
		if len(events) != 1 {
			t.Fatalf("expected 1 event after completion, got %d", len(events))
		}
		if events[0].Content != "World" {
			t.Errorf("expected content World, got %q", events[0].Content)
		}
		if p.Buffered() != "" {
			t.Errorf("expected empty carryover, got %q", p.Buffered())
		}
	})

	t.Run("boundary split exactly at delimiter", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		events := p.Parse("event: chunk\ndata: {\"content\":\"X\"}\n")
		if len(events) != 0 {
			t.Fatalf("expected 0 events before delimiter completes, got %d", len(events))
		}
		events = p.Parse("\nevent: chunk\ndata: {\"content\":\"Y\"}\n\n")
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
	})

	t.Run("malformed json skipped, later frames survive", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		input := "event: chunk\ndata: {not json}\n\n" +
			"event: chunk\ndata: {\"content\":\"ok\"}\n\n"
		events := p.Parse(input)

		if len(events) != 1 {
			t.Fatalf("expected bad frame skipped, got %d events", len(events))
		}
		if events[0].Content != "ok" {
			t.Errorf("surviving frame decoded wrong: %+v", events[0])
		}
	})

	t.Run("frame missing event name dropped", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		events := p.Parse("data: {\"content\":\"orphan\"}\n\n")
		if len(events) != 0 {
			t.Errorf("expected drop, got %d events", len(events))
		}
	})

	t.Run("frame missing data dropped", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		events := p.Parse("event: chunk\n\n")
		if len(events) != 0 {
			t.Errorf("expected drop, got %d events", len(events))
		}
	})

	t.Run("heartbeat discarded", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		input := "event: heartbeat\ndata: {}\n\n" +
			"event: chunk\ndata: {\"content\":\"after\"}\n\n"
		events := p.Parse(input)

		if len(events) != 1 {
			t.Fatalf("expected heartbeat discarded, got %d events", len(events))
		}
		if events[0].Content != "after" {
			t.Errorf("wrong surviving event: %+v", events[0])
		}
	})

	t.Run("end frame carries sources and processed content", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		input := "event: end\n" +
			"data: {\"processed_content\":\"Answer [1]\",\"source_documents\":[{\"id\":7,\"title\":\"Doc\",\"source\":\"https://example.com/doc\"}]}\n\n"
		events := p.Parse(input)

		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		ev := events[0]
		if ev.Type != EventEnd {
			t.Errorf("expected end, got %s", ev.Type)
		}
		if ev.ProcessedContent != "Answer [1]" {
			t.Errorf("wrong processed content: %q", ev.ProcessedContent)
		}
		if len(ev.SourceDocuments) != 1 || ev.SourceDocuments[0].Source != "https://example.com/doc" {
			t.Errorf("wrong sources: %+v", ev.SourceDocuments)
		}
	})

	t.Run("id lines tolerated", func(t *testing.T) {
		p := NewFrameParser(discardLogger())
		events := p.Parse("id: 42\nevent: chunk\ndata: {\"content\":\"z\"}\n\n")
		if len(events) != 1 || events[0].Content != "z" {
			t.Errorf("id line broke decoding: %+v", events)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		p := NewFrameParser(nil)
		events := p.Parse("event: chunk\ndata: {\"content\":\"d\"}\n\n")
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
	})
}
