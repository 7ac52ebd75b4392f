// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package application

// EventType enumerates application lifecycle transitions visible to
// store delegates.
type EventType int

const (
	AppInstalled EventType = iota
	AppActivated
	AppDeactivated
	AppUninstalled
	AppPermissionsChanged
)

func (t EventType) String() string {
	switch t {
	case AppInstalled:
		return "APP_INSTALLED"
	case AppActivated:
		return "APP_ACTIVATED"
	case AppDeactivated:
		return "APP_DEACTIVATED"
	case AppUninstalled:
		return "APP_UNINSTALLED"
	case AppPermissionsChanged:
		return "APP_PERMISSIONS_CHANGED"
	}
	return "unknown"
}

// Event describes a single application state transition.
type Event struct {
	Type EventType
	App  *Application
}

// StoreDelegate receives application events from the store. Callbacks
// are made on the store's event goroutine and must not block.
type StoreDelegate interface {
	Notify(Event)
}
