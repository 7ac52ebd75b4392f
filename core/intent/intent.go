// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package intent holds the domain types of the intent subsystem: the
// declarative requests applications submit, the mutable data envelope
// the store replicates for each of them, and the store contract the
// lifecycle engine consumes.
package intent

import (
	"github.com/juju/netcore/core/application"
)

// Type tags an intent flavour. Types form a hierarchy: registry
// dispatch for a type that has no direct registration walks the parent
// chain until it finds one.
type Type struct {
	Name   string
	Parent *Type
}

func (t *Type) String() string {
	return t.Name
}

// The built-in intent type hierarchy. High-level connectivity intents
// compile down to installable intents; the installables are what the
// install coordinator hands to device-facing installers.
var (
	TypeConnectivity   = &Type{Name: "connectivity"}
	TypePointToPoint   = &Type{Name: "point-to-point", Parent: TypeConnectivity}
	TypeHostToHost     = &Type{Name: "host-to-host", Parent: TypeConnectivity}
	TypeLinkCollection = &Type{Name: "link-collection", Parent: TypeConnectivity}
	TypeDomain         = &Type{Name: "domain", Parent: TypeConnectivity}

	TypeInstallable = &Type{Name: "installable"}
	TypeFlowRule    = &Type{Name: "flow-rule", Parent: TypeInstallable}
	TypeFlowGroup   = &Type{Name: "flow-group", Parent: TypeInstallable}
	TypeTunnel      = &Type{Name: "tunnel", Parent: TypeInstallable}
)

// ResourceGroup tags intents that draw on a pooled resource
// reservation. The empty group means the intent reserves resources
// under its own key.
type ResourceGroup string

// Constraint narrows how an intent may be compiled or installed.
// Constraints are opaque to the engine except for the ones it
// recognises explicitly.
type Constraint interface {
	// ConstraintName names the constraint kind.
	ConstraintName() string
}

// PartialFailureConstraint marks an intent as tolerating partial
// installation: a failed subset of installables leaves the intent
// CORRUPT rather than FAILED, and topology changes nominate it for
// recompilation.
type PartialFailureConstraint struct{}

// ConstraintName is part of the Constraint interface.
func (PartialFailureConstraint) ConstraintName() string {
	return "partial-failure"
}

// Intent is a declarative request for network behaviour. Intents are
// immutable and content-addressable by key; all mutable processing
// state lives in the Data envelope.
type Intent interface {
	// Key returns the intent's unique key.
	Key() Key

	// AppID returns the application that submitted the intent.
	AppID() application.ID

	// Type returns the intent's type tag.
	Type() *Type

	// ResourceGroup returns the pooled resource tag, or the empty
	// group when the intent accounts for resources alone.
	ResourceGroup() ResourceGroup

	// Constraints returns the intent's constraints.
	Constraints() []Constraint
}

// Installable reports whether the intent is device-ready, i.e. a leaf
// of the compilation tree that an installer can apply directly.
func Installable(i Intent) bool {
	for t := i.Type(); t != nil; t = t.Parent {
		if t == TypeInstallable {
			return true
		}
	}
	return false
}

// AllowsPartialFailure reports whether the intent carries a
// PartialFailureConstraint.
func AllowsPartialFailure(i Intent) bool {
	for _, c := range i.Constraints() {
		if _, ok := c.(PartialFailureConstraint); ok {
			return true
		}
	}
	return false
}
