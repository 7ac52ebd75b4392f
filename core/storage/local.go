// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package storage

import (
	"sync"
)

// LocalMap is a single-node Map. It provides the same observable
// semantics as a distributed map confined to one member: atomic
// conditional updates, monotonically increasing revisions, and
// listener callbacks after every mutation. Listeners run on the
// mutating goroutine, outside the map lock.
type LocalMap[K comparable, V any] struct {
	mu        sync.Mutex
	options   MapOptions[V]
	entries   map[K]*Versioned[V]
	revision  int64
	listeners []MapListener[K, V]
	status    []StatusListener
}

// NewLocalMap returns an empty local map built with the given options.
func NewLocalMap[K comparable, V any](options MapOptions[V]) *LocalMap[K, V] {
	return &LocalMap[K, V]{
		options: options,
		entries: make(map[K]*Versioned[V]),
	}
}

// Get is part of the Map interface.
func (m *LocalMap[K, V]) Get(key K) *Versioned[V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key]
}

// Put is part of the Map interface.
func (m *LocalMap[K, V]) Put(key K, value V) *Versioned[V] {
	m.mu.Lock()
	old := m.entries[key]
	next := m.store(key, value)
	m.mu.Unlock()

	m.notify(eventFor(key, old, next))
	return old
}

// PutIfAbsent is part of the Map interface.
func (m *LocalMap[K, V]) PutIfAbsent(key K, value V) *Versioned[V] {
	m.mu.Lock()
	if existing, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return existing
	}
	next := m.store(key, value)
	m.mu.Unlock()

	m.notify(eventFor(key, nil, next))
	return nil
}

// ComputeIf is part of the Map interface.
func (m *LocalMap[K, V]) ComputeIf(key K, condition func(V, bool) bool, remap func(K, V) V) (*Versioned[V], bool) {
	m.mu.Lock()
	old, exists := m.entries[key]
	if !condition(ValueOrNil(old), exists) {
		m.mu.Unlock()
		return old, false
	}
	next := m.store(key, remap(key, ValueOrNil(old)))
	m.mu.Unlock()

	m.notify(eventFor(key, old, next))
	return next, true
}

// Remove is part of the Map interface.
func (m *LocalMap[K, V]) Remove(key K) *Versioned[V] {
	m.mu.Lock()
	old, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.entries, key)
	m.mu.Unlock()

	m.notify(MapEvent[K, V]{Type: MapRemove, Key: key, OldValue: old})
	return old
}

// Keys is part of the Map interface.
func (m *LocalMap[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Values is part of the Map interface.
func (m *LocalMap[K, V]) Values() []*Versioned[V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make([]*Versioned[V], 0, len(m.entries))
	for _, v := range m.entries {
		values = append(values, v)
	}
	return values
}

// Len is part of the Map interface.
func (m *LocalMap[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Listen is part of the Map interface.
func (m *LocalMap[K, V]) Listen(listener MapListener[K, V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// ListenStatus is part of the Map interface.
func (m *LocalMap[K, V]) ListenStatus(listener StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, listener)
}

// SetStatus notifies status listeners of an availability transition.
// A single-node map becomes active as soon as its owner says so.
func (m *LocalMap[K, V]) SetStatus(status Status) {
	m.mu.Lock()
	listeners := append([]StatusListener(nil), m.status...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(status)
	}
}

func (m *LocalMap[K, V]) store(key K, value V) *Versioned[V] {
	m.revision++
	next := &Versioned[V]{Value: value, Revision: m.revision}
	m.entries[key] = next
	return next
}

func (m *LocalMap[K, V]) notify(event MapEvent[K, V]) {
	m.mu.Lock()
	listeners := append([]MapListener[K, V](nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(event)
	}
}

func eventFor[K comparable, V any](key K, old, next *Versioned[V]) MapEvent[K, V] {
	t := MapInsert
	if old != nil {
		t = MapUpdate
	}
	return MapEvent[K, V]{Type: t, Key: key, OldValue: old, NewValue: next}
}

// LocalTopic is a single-node Topic: published values reach local
// subscribers only, in publication order.
type LocalTopic[T any] struct {
	mu          sync.Mutex
	options     TopicOptions[T]
	subscribers map[int]func(T)
	nextID      int
}

// NewLocalTopic returns a topic built with the given options.
func NewLocalTopic[T any](options TopicOptions[T]) *LocalTopic[T] {
	return &LocalTopic[T]{
		options:     options,
		subscribers: make(map[int]func(T)),
	}
}

// Publish is part of the Topic interface.
func (t *LocalTopic[T]) Publish(value T) {
	t.mu.Lock()
	handlers := make([]func(T), 0, len(t.subscribers))
	for _, h := range t.subscribers {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()
	for _, h := range handlers {
		h(value)
	}
}

// Subscribe is part of the Topic interface.
func (t *LocalTopic[T]) Subscribe(handler func(T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = handler
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}
}
