// Package memory provides an in-process storage adapter for single-instance
// deployments. Nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store implements storage.Adapter on top of plain maps.
type Store struct {
	mu      sync.RWMutex
	values  map[string]json.RawMessage
	indexes map[string]map[string]struct{}
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		values:  make(map[string]json.RawMessage),
		indexes: make(map[string]map[string]struct{}),
	}
}

func (s *Store) Get(_ context.Context, key string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Set(_ context.Context, key string, value any) error {
	// Values go through JSON so that every backend has identical
	// round-trip semantics.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) IndexAdd(_ context.Context, index, member string) error {
	s.mu.Lock()
	set, ok := s.indexes[index]
	if !ok {
		set = make(map[string]struct{})
		s.indexes[index] = set
	}
	set[member] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) IndexGet(_ context.Context, index string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.indexes[index]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members, nil
}

func (s *Store) IndexRemove(_ context.Context, index, member string) error {
	s.mu.Lock()
	if set, ok := s.indexes[index]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.indexes, index)
		}
	}
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
