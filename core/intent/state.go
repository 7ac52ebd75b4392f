// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent

// State is the lifecycle state of an intent as recorded in the store.
type State int

// StateUnknown is reported for keys the store has no data for.
const StateUnknown State = -1

const (
	// InstallReq means a submit request has been accepted but not yet
	// processed.
	InstallReq State = iota

	// Compiling means the intent is being compiled into installables.
	Compiling

	// Installing means the compiled installables are being applied to
	// devices.
	Installing

	// Installed means all installables are applied. Terminal.
	Installed

	// WithdrawReq means a withdraw request has been accepted but not
	// yet processed.
	WithdrawReq

	// Withdrawing means the current installables are being removed
	// from devices.
	Withdrawing

	// Withdrawn means all installables are removed. Terminal.
	Withdrawn

	// Failed means compilation or installation failed. Terminal, but
	// eligible for recompilation on topology change.
	Failed

	// PurgeReq means a purge request has been accepted; processing it
	// removes the key from the store entirely.
	PurgeReq

	// Corrupt means installation partially succeeded on an intent that
	// allows partial failure. Terminal, eligible for recompilation.
	Corrupt
)

func (s State) String() string {
	switch s {
	case InstallReq:
		return "INSTALL_REQ"
	case Compiling:
		return "COMPILING"
	case Installing:
		return "INSTALLING"
	case Installed:
		return "INSTALLED"
	case WithdrawReq:
		return "WITHDRAW_REQ"
	case Withdrawing:
		return "WITHDRAWING"
	case Withdrawn:
		return "WITHDRAWN"
	case Failed:
		return "FAILED"
	case PurgeReq:
		return "PURGE_REQ"
	case Corrupt:
		return "CORRUPT"
	}
	return "unknown"
}

// Terminal reports whether the state ends a request's processing: no
// further transitions occur without a new request.
func (s State) Terminal() bool {
	switch s {
	case Installed, Withdrawn, Failed, Corrupt:
		return true
	}
	return false
}
