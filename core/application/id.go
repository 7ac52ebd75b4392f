// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package application

import "fmt"

// ID identifies an installed application: a cluster-wide short id
// assigned by the id store, plus the application's unique name.
type ID struct {
	Short uint16
	Name  string
}

// NewID returns an application id for the given short id and name.
func NewID(short uint16, name string) ID {
	return ID{Short: short, Name: name}
}

// IsZero reports whether the id is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) String() string {
	return fmt.Sprintf("%s(%d)", id.Name, id.Short)
}

// CoreName is the name under which the controller core registers
// itself. Explicit user activations are recorded against the core id
// in the requiredBy graph.
const CoreName = "netcore.core"
