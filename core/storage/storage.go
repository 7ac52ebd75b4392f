// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package storage defines the replicated-primitive contracts the core
// consumes from the storage service: consistent maps and pub/sub
// topics, with versioned values and cross-version compatibility
// hooks. Distributed implementations live outside the core; LocalMap
// and LocalTopic in this package are single-node implementations.
package storage

import (
	"github.com/juju/version/v2"
)

// Serializer encodes values for replication. The wire format is the
// storage service's concern; the core only threads the serializer
// through to the builders.
type Serializer interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte, value any) error
}

// RevisionType controls how a primitive's values survive a rolling
// upgrade of the cluster.
type RevisionType int

const (
	// RevisionNone keeps values as written.
	RevisionNone RevisionType = iota

	// RevisionPropagate rewrites values through the compatibility
	// function when read by a node running a different version.
	RevisionPropagate
)

// Status is the availability of a distributed primitive.
type Status int

const (
	StatusInactive Status = iota
	StatusActive
	StatusSuspended
)

// Versioned wraps a map value with its revision.
type Versioned[V any] struct {
	Value    V
	Revision int64
}

// ValueOrNil returns the wrapped value, or the zero value for a nil
// wrapper.
func ValueOrNil[V any](v *Versioned[V]) V {
	if v == nil {
		var zero V
		return zero
	}
	return v.Value
}

// MapEventType enumerates consistent-map mutations.
type MapEventType int

const (
	MapInsert MapEventType = iota
	MapUpdate
	MapRemove
)

func (t MapEventType) String() string {
	switch t {
	case MapInsert:
		return "insert"
	case MapUpdate:
		return "update"
	case MapRemove:
		return "remove"
	}
	return "unknown"
}

// MapEvent describes a single consistent-map mutation.
type MapEvent[K comparable, V any] struct {
	Type     MapEventType
	Key      K
	OldValue *Versioned[V]
	NewValue *Versioned[V]
}

// MapListener observes consistent-map mutations. Listeners must hand
// work off promptly; they are called from the map's event path.
type MapListener[K comparable, V any] func(MapEvent[K, V])

// StatusListener observes primitive availability transitions.
type StatusListener func(Status)

// Map is a strongly consistent replicated map.
type Map[K comparable, V any] interface {
	// Get returns the versioned value for the key, or nil.
	Get(key K) *Versioned[V]

	// Put stores the value, returning the previous versioned value or
	// nil.
	Put(key K, value V) *Versioned[V]

	// PutIfAbsent stores the value only when the key is vacant. It
	// returns the existing versioned value, or nil when the put won.
	PutIfAbsent(key K, value V) *Versioned[V]

	// ComputeIf atomically replaces the value when the condition holds
	// for the existing value (exists reports presence). It returns the
	// resulting versioned value and whether a mutation happened.
	ComputeIf(key K, condition func(value V, exists bool) bool, remap func(key K, value V) V) (*Versioned[V], bool)

	// Remove deletes the key, returning the removed versioned value or
	// nil.
	Remove(key K) *Versioned[V]

	// Keys returns a snapshot of the map's keys.
	Keys() []K

	// Values returns a snapshot of the map's versioned values.
	Values() []*Versioned[V]

	// Len returns the number of entries.
	Len() int

	// Listen registers a mutation listener.
	Listen(listener MapListener[K, V])

	// ListenStatus registers an availability listener.
	ListenStatus(listener StatusListener)
}

// Topic is a replicated pub/sub topic with at-least-once delivery to
// every subscribed node.
type Topic[T any] interface {
	// Publish broadcasts the value to all subscribers cluster-wide.
	Publish(value T)

	// Subscribe registers a handler; the returned func unsubscribes.
	Subscribe(handler func(T)) func()
}

// MapOptions carries the builder options a distributed map is created
// with. LocalMap and LocalTopic keep the options they are built with
// but act on none of them; Compatibility is never invoked.
type MapOptions[V any] struct {
	Name          string
	Serializer    Serializer
	Version       version.Number
	Revision      RevisionType
	Compatibility func(value V, v version.Number) V
}

// TopicOptions carries the builder options for a topic.
type TopicOptions[T any] struct {
	Name          string
	Serializer    Serializer
	Version       version.Number
	Revision      RevisionType
	Compatibility func(value T, v version.Number) T
}
