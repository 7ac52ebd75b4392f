// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent

import (
	"github.com/juju/errors"
)

// ErrNotMaster is returned by store operations when the local node
// does not own the key. Callers skip the operation silently; the
// master node will process it.
const ErrNotMaster = errors.ConstError("not master for intent key")

// Delegate receives callbacks from the store. Process is invoked for
// each newly accepted pending request; Notify for each observable
// state transition; OnUpdate for every write, as a tracking hook.
// Callbacks must not block the store's event goroutine.
type Delegate interface {
	Process(*Data)
	Notify(Event)
	OnUpdate(*Data)
}

// Store is the replicated, partitioned intent map consumed by the
// lifecycle engine. A single master per key performs all processing;
// writes preserve per-key observable ordering.
type Store interface {
	// AddPending accepts a request, stamps its version, and triggers
	// the delegate's Process callback. Returns ErrNotMaster when the
	// local node should ignore the key.
	AddPending(*Data) error

	// GetIntent returns the intent recorded for the key, or nil.
	GetIntent(Key) Intent

	// GetIntentData returns a copy of the current data for the key,
	// or nil.
	GetIntentData(Key) *Data

	// GetPendingData returns a copy of the pending data for the key,
	// or nil when no request awaits processing.
	GetPendingData(Key) *Data

	// GetIntents returns the intents of all current data.
	GetIntents() []Intent

	// GetIntentCount returns the number of keys with current data.
	GetIntentCount() int

	// GetIntentState returns the state of the key's pending request
	// when one exists, and the state of its current data otherwise.
	GetIntentState(Key) State

	// GetInstallableIntents returns the compiled installables recorded
	// for the key.
	GetInstallableIntents(Key) []Intent

	// IsMaster reports whether the local node owns processing for the
	// key.
	IsMaster(Key) bool

	// BatchWrite atomically persists a batch of processed data. Writes
	// preserve list order for per-key observable state.
	BatchWrite([]*Data) error

	// SetDelegate wires the delegate that receives store callbacks.
	SetDelegate(Delegate)
}
