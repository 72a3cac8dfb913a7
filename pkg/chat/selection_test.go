// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"path/filepath"
	"testing"
)

func TestSelectionStore(t *testing.T) {
	t.Run("toggle add remove", func(t *testing.T) {
		s := NewSelectionStore(nil)

		if !s.Toggle(3) {
			t.Error("first toggle should select")
		}
		if !s.IsSelected(3) {
			t.Error("3 should be selected")
		}
		if s.Toggle(3) {
			t.Error("second toggle should deselect")
		}
		if s.IsSelected(3) {
			t.Error("3 should be deselected")
		}

		s.Add(5)
		s.Add(1)
		s.Add(5)
		ids := s.IDs()
		if len(ids) != 2 || ids[0] != 1 || ids[1] != 5 {
			t.Errorf("expected sorted [1 5], got %v", ids)
		}

		s.Remove(5)
		if s.IsSelected(5) {
			t.Error("5 should be removed")
		}
	})

	t.Run("ids never nil", func(t *testing.T) {
		s := NewSelectionStore(nil)
		if s.IDs() == nil {
			t.Error("IDs must return an empty slice, not nil")
		}
	})

	t.Run("clear empties selection", func(t *testing.T) {
		s := NewSelectionStore(nil)
		s.Add(1)
		s.Add(2)
		s.Clear()
		if len(s.IDs()) != 0 {
			t.Errorf("expected empty after clear, got %v", s.IDs())
		}
	})
}

func TestYAMLSelectionPersister(t *testing.T) {
	t.Run("round trip through file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "selection.yaml")
		p := &YAMLSelectionPersister{Path: path}

		s := NewSelectionStore(p)
		s.Add(7)
		s.Add(2)

		restored := NewSelectionStore(&YAMLSelectionPersister{Path: path})
		ids := restored.IDs()
		if len(ids) != 2 || ids[0] != 2 || ids[1] != 7 {
			t.Errorf("expected [2 7] restored, got %v", ids)
		}
	})

	t.Run("missing file is empty selection", func(t *testing.T) {
		p := &YAMLSelectionPersister{Path: filepath.Join(t.TempDir(), "absent.yaml")}
		ids, err := p.Load()
		if err != nil {
			t.Fatalf("missing file should not error: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected empty, got %v", ids)
		}
	})

	t.Run("clear persists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "selection.yaml")
		s := NewSelectionStore(&YAMLSelectionPersister{Path: path})
		s.Add(9)
		s.Clear()

		restored := NewSelectionStore(&YAMLSelectionPersister{Path: path})
		if len(restored.IDs()) != 0 {
			t.Errorf("cleared selection came back: %v", restored.IDs())
		}
	})
}
