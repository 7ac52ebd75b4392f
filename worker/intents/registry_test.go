// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/netcore/core/intent"
)

type RegistrySuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&RegistrySuite{})

func (s *RegistrySuite) TestLookupExact(c *gc.C) {
	registry := newCompilerRegistry()
	compiler := stubCompiler(func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
		return nil, nil
	})
	registry.register(intent.TypePointToPoint, compiler)

	found, err := registry.lookup(intent.TypePointToPoint)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(found, gc.NotNil)
}

func (s *RegistrySuite) TestLookupWalksParentChain(c *gc.C) {
	registry := newCompilerRegistry()
	compiler := stubCompiler(func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
		return nil, nil
	})
	registry.register(intent.TypeConnectivity, compiler)

	// point-to-point has no direct registration; its parent does.
	found, err := registry.lookup(intent.TypePointToPoint)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(found, gc.NotNil)
}

func (s *RegistrySuite) TestLookupMiss(c *gc.C) {
	registry := newCompilerRegistry()
	_, err := registry.lookup(intent.TypeHostToHost)
	c.Check(errors.Is(err, ErrNoCompiler), jc.IsTrue)
}

func (s *RegistrySuite) TestUnregister(c *gc.C) {
	registry := newCompilerRegistry()
	compiler := stubCompiler(func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
		return nil, nil
	})
	registry.register(intent.TypePointToPoint, compiler)
	registry.unregister(intent.TypePointToPoint)

	_, err := registry.lookup(intent.TypePointToPoint)
	c.Check(errors.Is(err, ErrNoCompiler), jc.IsTrue)
}

func (s *RegistrySuite) TestCompileFlattensInstallables(c *gc.C) {
	registry := newCompilerRegistry()
	registry.register(intent.TypePointToPoint, stubCompiler(
		func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
			return []intent.Intent{
				stubWithLabel(i.Key().ID(), intent.TypeFlowRule, 0),
				stubWithLabel(i.Key().ID(), intent.TypeFlowRule, 1),
			}, nil
		},
	))

	installables, err := registry.compile(stub("a", intent.TypePointToPoint), nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(installables, gc.HasLen, 2)
}

func (s *RegistrySuite) TestCompileRecursesIntermediateIntents(c *gc.C) {
	registry := newCompilerRegistry()
	// point-to-point compiles to a link-collection intermediate, which
	// in turn compiles to flow rules.
	registry.register(intent.TypePointToPoint, stubCompiler(
		func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
			return []intent.Intent{stub(i.Key().ID(), intent.TypeLinkCollection)}, nil
		},
	))
	registry.register(intent.TypeLinkCollection, stubCompiler(
		func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
			return []intent.Intent{stubWithLabel(i.Key().ID(), intent.TypeFlowRule, 0)}, nil
		},
	))

	installables, err := registry.compile(stub("a", intent.TypePointToPoint), nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(installables, gc.HasLen, 1)
	c.Check(installables[0].Type(), gc.Equals, intent.TypeFlowRule)
}

func (s *RegistrySuite) TestCompileDepthBound(c *gc.C) {
	registry := newCompilerRegistry()
	// A compiler that never reaches an installable.
	registry.register(intent.TypeConnectivity, stubCompiler(
		func(i intent.Intent, _ []intent.Intent) ([]intent.Intent, error) {
			return []intent.Intent{stub(i.Key().ID(), intent.TypeHostToHost)}, nil
		},
	))

	_, err := registry.compile(stub("a", intent.TypePointToPoint), nil)
	c.Check(errors.Is(err, ErrCompileDepth), jc.IsTrue)
}

func (s *RegistrySuite) TestCompileMissingCompiler(c *gc.C) {
	registry := newCompilerRegistry()
	_, err := registry.compile(stub("a", intent.TypePointToPoint), nil)
	c.Check(errors.Is(err, ErrNoCompiler), jc.IsTrue)
}

func (s *RegistrySuite) TestInstallerParentChain(c *gc.C) {
	registry := newInstallerRegistry()
	installer := &stubInstaller{apply: func(*OperationContext) {}}
	registry.register(intent.TypeInstallable, installer)

	found, err := registry.lookup(intent.TypeFlowRule)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(found, gc.NotNil)

	registry.unregister(intent.TypeInstallable)
	_, err = registry.lookup(intent.TypeFlowRule)
	c.Check(errors.Is(err, ErrNoInstaller), jc.IsTrue)
}
