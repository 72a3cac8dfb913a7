// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the content selection store.
package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// SelectionStore
// =============================================================================

// SelectionPersister saves and restores the selected content set across
// runs. Implementations must tolerate a missing store on Load.
type SelectionPersister interface {
	Load() ([]int, error)
	Save(ids []int) error
}

// SelectionStore tracks which content the user has attached to the
// conversation. Selected IDs ride along on every outbound message.
//
// Persistence is a side effect delegated to an injected persister; the
// store itself is plain state. A nil persister gives an in-memory
// store.
//
// # Thread Safety
//
// Safe for concurrent use.
type SelectionStore struct {
	mu        sync.Mutex
	selected  map[int]struct{}
	persister SelectionPersister
}

// NewSelectionStore creates a store, restoring any persisted selection.
// Restore failures start the store empty rather than failing the caller.
func NewSelectionStore(persister SelectionPersister) *SelectionStore {
	s := &SelectionStore{
		selected:  make(map[int]struct{}),
		persister: persister,
	}
	if persister != nil {
		if ids, err := persister.Load(); err == nil {
			for _, id := range ids {
				s.selected[id] = struct{}{}
			}
		}
	}
	return s
}

// Toggle flips one content ID's selection and returns the new state.
func (s *SelectionStore) Toggle(id int) bool {
	s.mu.Lock()
	_, on := s.selected[id]
	if on {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	ids := s.idsLocked()
	s.mu.Unlock()

	s.persist(ids)
	return !on
}

// Add selects one content ID. Adding an already selected ID is a no-op.
func (s *SelectionStore) Add(id int) {
	s.mu.Lock()
	s.selected[id] = struct{}{}
	ids := s.idsLocked()
	s.mu.Unlock()
	s.persist(ids)
}

// Remove deselects one content ID.
func (s *SelectionStore) Remove(id int) {
	s.mu.Lock()
	delete(s.selected, id)
	ids := s.idsLocked()
	s.mu.Unlock()
	s.persist(ids)
}

// Clear deselects everything.
func (s *SelectionStore) Clear() {
	s.mu.Lock()
	s.selected = make(map[int]struct{})
	s.mu.Unlock()
	s.persist([]int{})
}

// IsSelected reports whether one content ID is selected.
func (s *SelectionStore) IsSelected(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, on := s.selected[id]
	return on
}

// IDs returns the selected content IDs in ascending order. Never nil,
// so the outbound payload serializes as [] rather than null.
func (s *SelectionStore) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idsLocked()
}

func (s *SelectionStore) idsLocked() []int {
	ids := make([]int, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *SelectionStore) persist(ids []int) {
	if s.persister == nil {
		return
	}
	_ = s.persister.Save(ids)
}

// =============================================================================
// YAML Persister
// =============================================================================

// YAMLSelectionPersister stores the selection as a small yaml file,
// by convention ~/.tern/selection.yaml.
type YAMLSelectionPersister struct {
	Path string
}

type selectionFile struct {
	ContentIDs []int `yaml:"content_ids"`
}

// Load restores the persisted selection. A missing file is an empty
// selection, not an error.
func (p *YAMLSelectionPersister) Load() ([]int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read selection file: %w", err)
	}
	var file selectionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse selection file: %w", err)
	}
	return file.ContentIDs, nil
}

// Save writes the selection, creating the parent directory on first
// use.
func (p *YAMLSelectionPersister) Save(ids []int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create selection dir: %w", err)
	}
	data, err := yaml.Marshal(selectionFile{ContentIDs: ids})
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := os.WriteFile(p.Path, data, 0o644); err != nil {
		return fmt.Errorf("write selection file: %w", err)
	}
	return nil
}

var _ SelectionPersister = (*YAMLSelectionPersister)(nil)
