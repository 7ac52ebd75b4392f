// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"fmt"

	"github.com/juju/netcore/core/application"
	"github.com/juju/netcore/core/intent"
)

var internalAppID = application.NewID(9, "org.test.internal")

// stubIntent backs the white-box registry, accumulator and
// coordinator tests.
type stubIntent struct {
	key   intent.Key
	typ   *intent.Type
	label string
}

func (f *stubIntent) Key() intent.Key                     { return f.key }
func (f *stubIntent) AppID() application.ID               { return f.key.AppID() }
func (f *stubIntent) Type() *intent.Type                  { return f.typ }
func (f *stubIntent) ResourceGroup() intent.ResourceGroup { return "" }
func (f *stubIntent) Constraints() []intent.Constraint    { return nil }

func stub(id string, typ *intent.Type) *stubIntent {
	return &stubIntent{key: intent.NewKey(id, internalAppID), typ: typ}
}

func stubWithLabel(id string, typ *intent.Type, n int) *stubIntent {
	s := stub(id, typ)
	s.label = fmt.Sprintf("%s/%d", id, n)
	return s
}

// stubCompiler adapts a func to the Compiler interface.
type stubCompiler func(intent.Intent, []intent.Intent) ([]intent.Intent, error)

func (f stubCompiler) Compile(i intent.Intent, previous []intent.Intent) ([]intent.Intent, error) {
	return f(i, previous)
}

// stubInstaller records contexts and optionally reports immediately.
type stubInstaller struct {
	apply func(*OperationContext)
}

func (s *stubInstaller) Apply(ctx *OperationContext) {
	s.apply(ctx)
}
