// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package cluster defines the cluster-facing contracts the stores
// consume: peer discovery, unicast request/response messaging, and
// per-key mastership. Implementations live outside the core.
package cluster

import "context"

// NodeID identifies a controller node.
type NodeID string

// Subject names a point-to-point message channel.
type Subject string

// Handler serves requests on a subscribed subject. A nil response is
// transmitted as an empty payload.
type Handler func(payload []byte) ([]byte, error)

// Communicator provides unicast request/response messaging between
// cluster nodes.
type Communicator interface {
	// SendAndReceive sends the payload to the node on the subject and
	// waits for the response, honouring the context deadline.
	SendAndReceive(ctx context.Context, subject Subject, payload []byte, to NodeID) ([]byte, error)

	// Subscribe registers a handler for requests on the subject.
	Subscribe(subject Subject, handler Handler) error

	// Unsubscribe removes the handler for the subject.
	Unsubscribe(subject Subject)
}

// Service exposes the cluster topology.
type Service interface {
	// LocalNode returns the local node's id.
	LocalNode() NodeID

	// Nodes returns all current cluster members, local node included.
	Nodes() []NodeID
}

// Mastership reports which node owns processing for a key.
type Mastership interface {
	// IsLocalMaster reports whether the local node is master for the
	// given key string.
	IsLocalMaster(key string) bool
}
