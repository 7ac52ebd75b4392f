// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent_test

import (
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/netcore/core/application"
	"github.com/juju/netcore/core/intent"
)

// fakeIntent is a minimal connectivity intent for tests.
type fakeIntent struct {
	key         intent.Key
	typ         *intent.Type
	group       intent.ResourceGroup
	constraints []intent.Constraint
}

func (f *fakeIntent) Key() intent.Key                  { return f.key }
func (f *fakeIntent) AppID() application.ID            { return f.key.AppID() }
func (f *fakeIntent) Type() *intent.Type               { return f.typ }
func (f *fakeIntent) ResourceGroup() intent.ResourceGroup { return f.group }
func (f *fakeIntent) Constraints() []intent.Constraint { return f.constraints }

func newFakeIntent(id string) *fakeIntent {
	return &fakeIntent{
		key: intent.NewKey(id, testAppID),
		typ: intent.TypePointToPoint,
	}
}

type DataSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&DataSuite{})

func (s *DataSuite) TestRequestConstructors(c *gc.C) {
	i := newFakeIntent("a")

	submit := intent.Submit(i)
	c.Check(submit.Request(), gc.Equals, intent.RequestSubmit)
	c.Check(submit.State(), gc.Equals, intent.InstallReq)

	withdraw := intent.Withdraw(i)
	c.Check(withdraw.Request(), gc.Equals, intent.RequestWithdraw)
	c.Check(withdraw.State(), gc.Equals, intent.WithdrawReq)

	purge := intent.Purge(i)
	c.Check(purge.Request(), gc.Equals, intent.RequestPurge)
	c.Check(purge.State(), gc.Equals, intent.PurgeReq)

	c.Check(submit.Key(), gc.Equals, i.Key())
}

func (s *DataSuite) TestNextStateCopies(c *gc.C) {
	data := intent.Submit(newFakeIntent("a"))
	data.SetVersion(intent.Version{Wall: 1, Logical: 1})
	data.SetInstallables([]intent.Intent{newFakeIntent("a/0")})

	next := intent.NextState(data, intent.Installed)
	c.Check(next.State(), gc.Equals, intent.Installed)
	c.Check(next.Version(), gc.Equals, data.Version())
	c.Check(next.Installables(), gc.HasLen, 1)

	// The original is untouched.
	c.Check(data.State(), gc.Equals, intent.InstallReq)
}

func (s *DataSuite) TestCopyIsIndependent(c *gc.C) {
	data := intent.Submit(newFakeIntent("a"))
	data.SetInstallables([]intent.Intent{newFakeIntent("a/0")})

	dup := data.Copy()
	dup.SetState(intent.Failed)
	dup.SetInstallables(nil)

	c.Check(data.State(), gc.Equals, intent.InstallReq)
	c.Check(data.Installables(), gc.HasLen, 1)
}

func (s *DataSuite) TestTerminalStates(c *gc.C) {
	terminal := []intent.State{
		intent.Installed, intent.Withdrawn, intent.Failed, intent.Corrupt,
	}
	for _, state := range terminal {
		c.Check(state.Terminal(), jc.IsTrue, gc.Commentf("%s", state))
	}
	nonTerminal := []intent.State{
		intent.InstallReq, intent.Compiling, intent.Installing,
		intent.WithdrawReq, intent.Withdrawing, intent.PurgeReq,
	}
	for _, state := range nonTerminal {
		c.Check(state.Terminal(), jc.IsFalse, gc.Commentf("%s", state))
	}
}

func (s *DataSuite) TestInstallableWalksTypeChain(c *gc.C) {
	flow := &fakeIntent{key: intent.NewKey("f", testAppID), typ: intent.TypeFlowRule}
	p2p := newFakeIntent("p")
	c.Check(intent.Installable(flow), jc.IsTrue)
	c.Check(intent.Installable(p2p), jc.IsFalse)
}

func (s *DataSuite) TestAllowsPartialFailure(c *gc.C) {
	plain := newFakeIntent("a")
	c.Check(intent.AllowsPartialFailure(plain), jc.IsFalse)

	tolerant := newFakeIntent("b")
	tolerant.constraints = []intent.Constraint{intent.PartialFailureConstraint{}}
	c.Check(intent.AllowsPartialFailure(tolerant), jc.IsTrue)
}

type VersionSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&VersionSuite{})

func (s *VersionSuite) TestNewerThan(c *gc.C) {
	older := intent.Version{Wall: 10, Logical: 5}
	c.Check(intent.Version{Wall: 11, Logical: 1}.NewerThan(older), jc.IsTrue)
	c.Check(intent.Version{Wall: 10, Logical: 6}.NewerThan(older), jc.IsTrue)
	c.Check(intent.Version{Wall: 10, Logical: 5}.NewerThan(older), jc.IsFalse)
	c.Check(intent.Version{Wall: 9, Logical: 9}.NewerThan(older), jc.IsFalse)
}

func (s *VersionSuite) TestSourceMonotonicWithinTick(c *gc.C) {
	clk := testclock.NewClock(time.Unix(1000, 0))
	source := intent.NewVersionSource(clk)

	v1 := source.Next()
	v2 := source.Next()
	c.Check(v2.NewerThan(v1), jc.IsTrue)

	clk.Advance(time.Second)
	v3 := source.Next()
	c.Check(v3.NewerThan(v2), jc.IsTrue)
}

func (s *VersionSuite) TestEventForState(c *gc.C) {
	i := newFakeIntent("a")
	event, ok := intent.NewEvent(intent.Installed, i)
	c.Assert(ok, jc.IsTrue)
	c.Check(event.Type, gc.Equals, intent.EventInstalled)

	_, ok = intent.NewEvent(intent.PurgeReq, i)
	c.Check(ok, jc.IsFalse)
}
