// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package intentstore provides a single-node implementation of the
// intent store contract: current/pending slots per key, version-
// ordered acceptance, and delegate callbacks on acceptance and write.
// It backs single-node deployments and the engine's tests; clustered
// deployments replace it with a distributed implementation.
package intentstore

import (
	"sync"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/netcore/core/cluster"
	"github.com/juju/netcore/core/intent"
)

var logger = loggo.GetLogger("netcore.store.intentstore")

type entry struct {
	current *intent.Data
	pending *intent.Data
}

// Store implements intent.Store for a single node.
type Store struct {
	versions *intent.VersionSource

	// mastership, when set, scopes the keys this store processes.
	// Without it the store masters every key.
	mastership cluster.Mastership

	mu       sync.Mutex
	entries  map[intent.Key]*entry
	delegate intent.Delegate
}

// NewStore returns an empty store stamping versions from the given
// clock.
func NewStore(clk clock.Clock) *Store {
	return &Store{
		versions: intent.NewVersionSource(clk),
		entries:  make(map[intent.Key]*entry),
	}
}

// NewPartitionedStore returns a store that only accepts keys the
// mastership service assigns to this node.
func NewPartitionedStore(clk clock.Clock, mastership cluster.Mastership) *Store {
	s := NewStore(clk)
	s.mastership = mastership
	return s
}

// SetDelegate is part of the intent.Store interface.
func (s *Store) SetDelegate(delegate intent.Delegate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegate = delegate
}

// IsMaster is part of the intent.Store interface.
func (s *Store) IsMaster(key intent.Key) bool {
	if s.mastership == nil {
		return true
	}
	return s.mastership.IsLocalMaster(key.String())
}

// AddPending is part of the intent.Store interface. The request is
// stamped and accepted only when newer than any pending request for
// the key; the delegate then sees Process and the request event.
func (s *Store) AddPending(data *intent.Data) error {
	if !s.IsMaster(data.Key()) {
		return errors.Annotatef(intent.ErrNotMaster, "%s", data.Key())
	}

	s.mu.Lock()
	if data.Version().IsZero() {
		data.SetVersion(s.versions.Next())
	}
	e := s.entry(data.Key())
	if e.pending != nil && e.pending.Version().NewerThan(data.Version()) {
		s.mu.Unlock()
		logger.Debugf("ignoring superseded request %s", data)
		return nil
	}
	e.pending = data.Copy()
	delegate := s.delegate
	s.mu.Unlock()

	if delegate == nil {
		return nil
	}
	delegate.Process(data.Copy())
	if event, ok := intent.NewEvent(data.State(), data.Intent()); ok {
		delegate.Notify(event)
	}
	return nil
}

// BatchWrite is part of the intent.Store interface. Writes are applied
// in list order; stale writes are dropped; purge writes remove the key.
func (s *Store) BatchWrite(batch []*intent.Data) error {
	type notification struct {
		update *intent.Data
		event  intent.Event
		hasEvt bool
	}
	var pendingNotify []notification

	s.mu.Lock()
	for _, data := range batch {
		e := s.entry(data.Key())
		if e.current != nil && e.current.Version().NewerThan(data.Version()) {
			logger.Debugf("dropping stale write %s", data)
			continue
		}

		if data.State() == intent.PurgeReq {
			delete(s.entries, data.Key())
			pendingNotify = append(pendingNotify, notification{
				update: data.Copy(),
				event:  intent.Event{Type: intent.EventPurged, Intent: data.Intent()},
				hasEvt: true,
			})
			continue
		}

		e.current = data.Copy()
		if e.pending != nil && !e.pending.Version().NewerThan(data.Version()) {
			// The write consumes the request that produced it.
			e.pending = nil
		}
		n := notification{update: data.Copy()}
		if event, ok := intent.NewEvent(data.State(), data.Intent()); ok {
			n.event, n.hasEvt = event, true
		}
		pendingNotify = append(pendingNotify, n)
	}
	delegate := s.delegate
	s.mu.Unlock()

	if delegate == nil {
		return nil
	}
	for _, n := range pendingNotify {
		delegate.OnUpdate(n.update)
		if n.hasEvt {
			delegate.Notify(n.event)
		}
	}
	return nil
}

// GetIntent is part of the intent.Store interface.
func (s *Store) GetIntent(key intent.Key) intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.current != nil {
		return e.current.Intent()
	}
	return nil
}

// GetIntentData is part of the intent.Store interface.
func (s *Store) GetIntentData(key intent.Key) *intent.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.current != nil {
		return e.current.Copy()
	}
	return nil
}

// GetPendingData is part of the intent.Store interface.
func (s *Store) GetPendingData(key intent.Key) *intent.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.pending != nil {
		return e.pending.Copy()
	}
	return nil
}

// GetIntents is part of the intent.Store interface.
func (s *Store) GetIntents() []intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []intent.Intent
	for _, e := range s.entries {
		if e.current != nil {
			out = append(out, e.current.Intent())
		}
	}
	return out
}

// GetIntentCount is part of the intent.Store interface.
func (s *Store) GetIntentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.current != nil {
			n++
		}
	}
	return n
}

// GetIntentState is part of the intent.Store interface. A pending
// request's state wins over the durable state, so observers see
// accepted requests immediately.
func (s *Store) GetIntentState(key intent.Key) intent.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return intent.StateUnknown
	}
	if e.pending != nil {
		return e.pending.State()
	}
	if e.current != nil {
		return e.current.State()
	}
	return intent.StateUnknown
}

// GetInstallableIntents is part of the intent.Store interface.
func (s *Store) GetInstallableIntents(key intent.Key) []intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.current != nil {
		return e.current.Installables()
	}
	return nil
}

// entry returns the slot pair for the key, creating it if necessary.
// Callers hold the lock.
func (s *Store) entry(key intent.Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}
