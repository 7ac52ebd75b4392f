// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package appstore

import (
	"sync"

	"github.com/juju/netcore/core/application"
)

// LocalIDStore assigns application ids from a node-local counter. A
// clustered deployment replaces it with an id store backed by the
// cluster's atomic counter; the assignment contract is the same:
// registering a name twice returns the same id.
type LocalIDStore struct {
	mu    sync.Mutex
	next  uint16
	byName map[string]application.ID
}

// NewLocalIDStore returns an empty id store.
func NewLocalIDStore() *LocalIDStore {
	return &LocalIDStore{byName: make(map[string]application.ID)}
}

// RegisterApplication is part of the IDStore interface.
func (s *LocalIDStore) RegisterApplication(name string) (application.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[name]; ok {
		return id, nil
	}
	s.next++
	id := application.NewID(s.next, name)
	s.byName[name] = id
	return id, nil
}

// GetAppID is part of the IDStore interface.
func (s *LocalIDStore) GetAppID(name string) (application.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[name]
	return id, ok
}
