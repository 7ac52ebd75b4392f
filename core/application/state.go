// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package application

// State is the replicated activation state of an application.
type State int

const (
	// Installed means the application's bits are registered in the
	// cluster but the application is not running.
	Installed State = iota

	// Activated means the application should be running on every node.
	Activated

	// Deactivated means the application was running and has been
	// stopped; its bits remain installed.
	Deactivated
)

func (s State) String() string {
	switch s {
	case Installed:
		return "installed"
	case Activated:
		return "activated"
	case Deactivated:
		return "deactivated"
	}
	return "unknown"
}

// Holder is the envelope replicated in the application map: the
// application itself, its activation state, and any granted
// permissions.
type Holder struct {
	App         *Application
	State       State
	Permissions []string
}

// NewHolder returns a holder for the given application and state.
func NewHolder(app *Application, state State, permissions []string) *Holder {
	return &Holder{App: app, State: state, Permissions: permissions}
}

// WithState returns a copy of the holder in the given state.
func (h *Holder) WithState(state State) *Holder {
	return &Holder{App: h.App, State: state, Permissions: h.Permissions}
}

// WithPermissions returns a copy of the holder carrying the given
// permissions.
func (h *Holder) WithPermissions(permissions []string) *Holder {
	return &Holder{App: h.App, State: h.State, Permissions: permissions}
}
