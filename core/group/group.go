// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package group holds the domain types of the group subsystem: device
// flow groups keyed by application cookies, and the store contract the
// group manager drives.
package group

import (
	"fmt"

	"github.com/juju/netcore/core/application"
)

// DeviceID identifies a network device.
type DeviceID string

// Key is the application cookie naming a group on a device.
type Key string

// Bucket is one forwarding alternative of a group.
type Bucket struct {
	Actions []string
}

// Type is the group's forwarding discipline.
type Type int

const (
	TypeAll Type = iota
	TypeSelect
	TypeIndirect
	TypeFailover
)

// Description carries the parameters a group is created with.
type Description struct {
	DeviceID DeviceID
	AppID    application.ID
	Key      Key
	Type     Type
	Buckets  []Bucket
}

// Group is a group as recorded by the store. Presence in the store
// does not guarantee presence on the device; the ADDED event confirms
// data-plane installation.
type Group struct {
	Description
	ID    uint32
	State GroupState
}

// GroupState tracks a group's installation progress.
type GroupState int

const (
	StatePending GroupState = iota
	StateAdded
	StateRemoving
)

// UpdateType selects how UpdateGroupDescription alters buckets.
type UpdateType int

const (
	UpdateAdd UpdateType = iota
	UpdateRemove
	UpdateSet
)

// EventType enumerates group lifecycle transitions.
type EventType int

const (
	AddRequested EventType = iota
	UpdateRequested
	RemoveRequested
	Added
	Updated
	Removed
	AddFailed
	UpdateFailed
	RemoveFailed
)

func (t EventType) String() string {
	switch t {
	case AddRequested:
		return "GROUP_ADD_REQUESTED"
	case UpdateRequested:
		return "GROUP_UPDATE_REQUESTED"
	case RemoveRequested:
		return "GROUP_REMOVE_REQUESTED"
	case Added:
		return "GROUP_ADDED"
	case Updated:
		return "GROUP_UPDATED"
	case Removed:
		return "GROUP_REMOVED"
	case AddFailed:
		return "GROUP_ADD_FAILED"
	case UpdateFailed:
		return "GROUP_UPDATE_FAILED"
	case RemoveFailed:
		return "GROUP_REMOVE_FAILED"
	}
	return "unknown"
}

// Event describes a single group transition.
type Event struct {
	Type  EventType
	Group *Group
}

// Delegate receives events from the group store.
type Delegate interface {
	Notify(Event)
}

// Store is the group inventory the manager drives. Implementations
// are externally provided.
type Store interface {
	// StoreGroupDescription records a creation request and emits
	// AddRequested.
	StoreGroupDescription(Description)

	// UpdateGroupDescription alters an existing group's buckets.
	UpdateGroupDescription(device DeviceID, oldKey Key, update UpdateType, buckets []Bucket, newKey Key)

	// DeleteGroupDescription records a removal request and emits
	// RemoveRequested.
	DeleteGroupDescription(device DeviceID, key Key)

	// GetGroup returns the group for the cookie, or nil.
	GetGroup(device DeviceID, key Key) *Group

	// GetGroups returns the device's groups.
	GetGroups(device DeviceID) []*Group

	// PurgeGroupEntries drops all groups recorded for the device.
	PurgeGroupEntries(device DeviceID)

	// DeviceInitialAuditCompleted flags whether the first audit of the
	// device's groups has run.
	DeviceInitialAuditCompleted(device DeviceID, completed bool)

	// GroupOperationFailed records a provider failure for the
	// operation.
	GroupOperationFailed(device DeviceID, operation Operation)

	// SetDelegate wires the delegate receiving group events.
	SetDelegate(Delegate)
}

// OperationType selects the data-plane action of an Operation.
type OperationType int

const (
	OperationAdd OperationType = iota
	OperationModify
	OperationDelete
)

// Operation is one data-plane action handed to a provider.
type Operation struct {
	Type    OperationType
	GroupID uint32
	Kind    Type
	Buckets []Bucket
}

func (o Operation) String() string {
	return fmt.Sprintf("op(%d group=%d)", o.Type, o.GroupID)
}
