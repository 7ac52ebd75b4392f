// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents_test

import (
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/netcore/core/intent"
	"github.com/juju/netcore/internal/testhelpers"
	"github.com/juju/netcore/store/intentstore"
	"github.com/juju/netcore/worker/intents"
)

type ManagerSuite struct {
	testing.IsolationSuite

	clock     *testclock.Clock
	store     *intentstore.Store
	resources *fakeResources
	manager   *intents.Manager
	events    chan intent.Event
	unsub     func()
}

var _ = gc.Suite(&ManagerSuite{})

func (s *ManagerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.clock = testclock.NewClock(time.Unix(1000, 0))
	s.store = intentstore.NewStore(s.clock)
	s.resources = newFakeResources()
	s.events = make(chan intent.Event, 64)

	manager, err := intents.NewManager(intents.ManagerConfig{
		Store:      s.store,
		Resources:  s.resources,
		Clock:      s.clock,
		NumWorkers: 4,
	})
	c.Assert(err, jc.ErrorIsNil)
	s.manager = manager
	s.unsub = manager.SubscribeEvents(func(event intent.Event) {
		s.events <- event
	})
	s.AddCleanup(func(c *gc.C) {
		s.unsub()
		workertest.CleanKill(c, s.manager)
	})
}

// advanceWindow fires the accumulator's batch window.
func (s *ManagerSuite) advanceWindow(c *gc.C) {
	c.Assert(s.clock.WaitAdvance(50*time.Millisecond, testhelpers.LongWait, 1), jc.ErrorIsNil)
}

// waitEvent consumes events until one of the wanted type arrives,
// returning the types seen on the way, wanted type included.
func (s *ManagerSuite) waitEvent(c *gc.C, want intent.EventType) []intent.EventType {
	var seen []intent.EventType
	timeout := time.After(testhelpers.LongWait)
	for {
		select {
		case event := <-s.events:
			seen = append(seen, event.Type)
			if event.Type == want {
				return seen
			}
		case <-timeout:
			c.Fatalf("timed out waiting for %s, saw %v", want, seen)
		}
	}
}

func (s *ManagerSuite) assertNoEvent(c *gc.C, banned ...intent.EventType) {
	deadline := time.After(testhelpers.ShortWait)
	for {
		select {
		case event := <-s.events:
			for _, b := range banned {
				if event.Type == b {
					c.Fatalf("unexpected event %s", event.Type)
				}
			}
		case <-deadline:
			return
		}
	}
}

func (s *ManagerSuite) install(c *gc.C, i intent.Intent) {
	c.Assert(s.manager.Submit(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventInstalled)
}

func (s *ManagerSuite) succeedingInstaller() *reportingInstaller {
	return &reportingInstaller{manager: s.manager, succeed: true}
}

func (s *ManagerSuite) TestInstallerTimeoutFailsIntent(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, splitCompiler())
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())
	// The tunnel installer never reports.
	s.manager.RegisterInstaller(intent.TypeTunnel, &reportingInstaller{manager: s.manager})

	c.Assert(s.manager.Submit(newIntent("a")), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventInstalling)

	c.Assert(s.clock.WaitAdvance(30*time.Second, testhelpers.LongWait, 1), jc.ErrorIsNil)
	seen := s.waitEvent(c, intent.EventFailed)
	c.Check(seen, jc.DeepEquals, []intent.EventType{intent.EventFailed})

	c.Check(s.store.GetIntentState(intent.NewKey("a", testAppID)), gc.Equals, intent.Failed)
	// Resources stay held on failure.
	c.Check(s.resources.all(), gc.HasLen, 0)
}

func (s *ManagerSuite) TestInstallEventSequence(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(2))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	c.Assert(s.manager.Submit(newIntent("a")), jc.ErrorIsNil)
	s.advanceWindow(c)
	seen := s.waitEvent(c, intent.EventInstalled)
	c.Check(seen, jc.DeepEquals, []intent.EventType{
		intent.EventInstallReq,
		intent.EventCompiling,
		intent.EventInstalling,
		intent.EventInstalled,
	})
}

func (s *ManagerSuite) TestSubmitThenWithdrawLifecycle(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("b")
	s.install(c, i)

	c.Assert(s.manager.Withdraw(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	seen := s.waitEvent(c, intent.EventWithdrawn)
	c.Check(seen, jc.DeepEquals, []intent.EventType{
		intent.EventWithdrawReq,
		intent.EventWithdrawing,
		intent.EventWithdrawn,
	})

	select {
	case consumer := <-s.resources.signal:
		c.Check(consumer, gc.Equals, i.Key().String())
	case <-time.After(testhelpers.LongWait):
		c.Fatalf("resources never released")
	}
}

func (s *ManagerSuite) TestIdenticalResubmitSkipped(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("a")
	s.install(c, i)

	c.Assert(s.manager.Submit(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.assertNoEvent(c, intent.EventInstalling, intent.EventInstalled)
	c.Check(s.manager.GetIntentState(i.Key()), gc.Equals, intent.Installed)
}

func (s *ManagerSuite) TestPurgeRoundTrip(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("a")
	s.install(c, i)

	c.Assert(s.manager.Withdraw(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventWithdrawn)

	c.Assert(s.manager.Purge(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventPurged)

	c.Check(s.manager.GetIntent(i.Key()), gc.IsNil)
	c.Check(s.manager.GetIntentCount(), gc.Equals, 0)
	c.Check(s.resources.all(), jc.DeepEquals, []string{i.Key().String()})
}

func (s *ManagerSuite) TestPurgeInstalledIntent(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("a")
	s.install(c, i)

	// INSTALLED is terminal, so the purge succeeds and removes the
	// intent. Purging a non-terminal current state is not exercised
	// here.
	c.Assert(s.manager.Purge(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventPurged)
	c.Check(s.manager.GetIntent(i.Key()), gc.IsNil)
}

func (s *ManagerSuite) TestResourceGroupReleasedOnLastWithdrawal(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	first := newIntent("a")
	first.group = "grp"
	second := newIntent("b")
	second.group = "grp"
	s.install(c, first)
	s.install(c, second)

	c.Assert(s.manager.Withdraw(first), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventWithdrawn)
	// "b" still holds the group.
	c.Check(s.resources.all(), gc.HasLen, 0)

	c.Assert(s.manager.Withdraw(second), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventWithdrawn)
	select {
	case consumer := <-s.resources.signal:
		c.Check(consumer, gc.Equals, "grp")
	case <-time.After(testhelpers.LongWait):
		c.Fatalf("group resources never released")
	}
}

func (s *ManagerSuite) TestSkipReleaseResourcesOnWithdrawal(c *gc.C) {
	s.manager.SetSkipReleaseResourcesOnWithdrawal(true)
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("a")
	s.install(c, i)
	c.Assert(s.manager.Withdraw(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventWithdrawn)

	c.Check(s.resources.all(), gc.HasLen, 0)
}

func (s *ManagerSuite) TestCompileFailureFailsIntent(c *gc.C) {
	// No compiler registered at all.
	c.Assert(s.manager.Submit(newIntent("a")), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventFailed)
	c.Check(s.manager.GetIntentState(intent.NewKey("a", testAppID)), gc.Equals, intent.Failed)
}

func (s *ManagerSuite) TestCoalescedRequestsKeepNewest(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("a")
	// Submit and withdraw land within one batch window: only the
	// newer withdraw is processed.
	c.Assert(s.manager.Submit(i), jc.ErrorIsNil)
	c.Assert(s.manager.Withdraw(i), jc.ErrorIsNil)
	s.advanceWindow(c)

	s.waitEvent(c, intent.EventWithdrawn)
	s.assertNoEvent(c, intent.EventInstalling, intent.EventInstalled)
	c.Check(s.manager.GetIntentState(i.Key()), gc.Equals, intent.Withdrawn)
}

func (s *ManagerSuite) TestTriggerCompileResubmitsFailed(c *gc.C) {
	// Fail the intent first: nothing is registered.
	i := newIntent("a")
	c.Assert(s.manager.Submit(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventFailed)

	// Topology improves; now everything can compile.
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	s.manager.TriggerCompile(nil, true)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventInstalled)
	c.Check(s.manager.GetIntentState(i.Key()), gc.Equals, intent.Installed)
}

func (s *ManagerSuite) TestTriggerCompileByKey(c *gc.C) {
	i := newIntent("a")
	c.Assert(s.manager.Submit(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventFailed)

	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(1))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	s.manager.TriggerCompile([]intent.Key{i.Key()}, false)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventInstalled)
}

func (s *ManagerSuite) TestPartialFailureCorrupts(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, splitCompiler())
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())
	s.manager.RegisterInstaller(intent.TypeTunnel, &reportingInstaller{manager: s.manager, fail: true})

	i := newIntent("a")
	i.constraints = []intent.Constraint{intent.PartialFailureConstraint{}}
	c.Assert(s.manager.Submit(i), jc.ErrorIsNil)
	s.advanceWindow(c)
	s.waitEvent(c, intent.EventCorrupt)
	c.Check(s.manager.GetIntentState(i.Key()), gc.Equals, intent.Corrupt)
}

func (s *ManagerSuite) TestReads(c *gc.C) {
	s.manager.RegisterCompiler(intent.TypePointToPoint, flowCompiler(2))
	s.manager.RegisterInstaller(intent.TypeFlowRule, s.succeedingInstaller())

	i := newIntent("a")
	s.install(c, i)

	c.Check(s.manager.GetIntent(i.Key()), gc.NotNil)
	c.Check(s.manager.GetIntents(), gc.HasLen, 1)
	c.Check(s.manager.GetIntentsByAppID(testAppID), gc.HasLen, 1)
	c.Check(s.manager.GetIntentCount(), gc.Equals, 1)
	c.Check(s.manager.GetInstallableIntents(i.Key()), gc.HasLen, 2)
	c.Check(s.manager.IsLocal(i.Key()), jc.IsTrue)
}
