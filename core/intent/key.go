// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent

import (
	"fmt"
	"hash/fnv"

	"github.com/juju/netcore/core/application"
)

// Key identifies an intent uniquely within the scope of the requesting
// application. Keys come in two flavours: free-form string keys chosen
// by the application, and numeric keys minted from an id generator.
// Both flavours are content-addressable and totally ordered, so that a
// key can name a partition in the replicated intent map.
type Key struct {
	id    string
	appID application.ID
}

// NewKey returns a string-form key scoped by the supplied application.
func NewKey(id string, appID application.ID) Key {
	return Key{id: id, appID: appID}
}

// NewNumericKey returns a numeric-form key scoped by the supplied
// application. Numeric keys are rendered in fixed-width hex so that
// their ordering matches the ordering of the underlying values.
func NewNumericKey(id uint64, appID application.ID) Key {
	return Key{id: fmt.Sprintf("%016x", id), appID: appID}
}

// ID returns the key's identity within its application scope.
func (k Key) ID() string {
	return k.id
}

// AppID returns the application that owns the key.
func (k Key) AppID() application.ID {
	return k.appID
}

// IsZero reports whether the key is the zero value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Hash returns a stable 64-bit digest of the key, used to place the
// key in a partition of the replicated store.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s/%s", k.appID.Name, k.id)
	return h.Sum64()
}

// Compare orders keys first by application, then by identity.
func (k Key) Compare(other Key) int {
	switch {
	case k.appID.Name < other.appID.Name:
		return -1
	case k.appID.Name > other.appID.Name:
		return 1
	case k.id < other.id:
		return -1
	case k.id > other.id:
		return 1
	}
	return 0
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.appID.Name, k.id)
}
