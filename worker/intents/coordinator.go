// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/netcore/core/intent"
)

// ErrInstallTimeout is the failure recorded against installers that do
// not report within the coordinator's timeout.
const ErrInstallTimeout = errors.ConstError("installer timed out")

// OperationContext is the unit of work handed to one installer: the
// installables of one type to remove and to apply for a single intent
// key. The installer must call exactly one of the coordinator's
// Success or Failed with this context; reports that arrive after the
// operation has been resolved are ignored.
type OperationContext struct {
	Key         intent.Key
	Type        *intent.Type
	ToUninstall []intent.Intent
	ToInstall   []intent.Intent

	// Errors may be populated by the installer before reporting
	// failure.
	Errors []error

	op *operation
}

// operationOutcome joins the results of all installers involved in one
// intent operation.
type operationOutcome struct {
	err error

	// partial is true when at least one installer succeeded and at
	// least one failed.
	partial bool
}

type operation struct {
	key       intent.Key
	done      chan operationOutcome
	timer     clock.Timer

	mu        sync.Mutex
	remaining int
	succeeded int
	failed    []*OperationContext
	resolved  bool
}

// Coordinator fans an installable batch out to the installers keyed by
// installable type and joins their reports, at most one outcome per
// intent operation.
type Coordinator struct {
	installers *installerRegistry
	clock      clock.Clock
	timeout    time.Duration
}

// NewCoordinator returns a coordinator dispatching through the given
// registry.
func NewCoordinator(installers *installerRegistry, clk clock.Clock, timeout time.Duration) *Coordinator {
	return &Coordinator{installers: installers, clock: clk, timeout: timeout}
}

// bucket collects the per-type slices of one operation.
type bucket struct {
	uninstall []intent.Intent
	install   []intent.Intent
}

// Install dispatches the replacement of toUninstall's installables by
// toInstall's and returns a channel that yields the joined outcome
// exactly once. Either data may be nil.
func (c *Coordinator) Install(toUninstall, toInstall *intent.Data) <-chan operationOutcome {
	var key intent.Key
	buckets := make(map[*intent.Type]*bucket)
	if toUninstall != nil {
		key = toUninstall.Key()
		for _, i := range toUninstall.Installables() {
			b := bucketFor(buckets, i.Type())
			b.uninstall = append(b.uninstall, i)
		}
	}
	if toInstall != nil {
		key = toInstall.Key()
		for _, i := range toInstall.Installables() {
			b := bucketFor(buckets, i.Type())
			b.install = append(b.install, i)
		}
	}

	op := &operation{
		key:       key,
		done:      make(chan operationOutcome, 1),
		remaining: len(buckets),
	}
	if len(buckets) == 0 {
		op.resolve(operationOutcome{})
		return op.done
	}

	op.timer = c.clock.AfterFunc(c.timeout, func() {
		c.timedOut(op)
	})

	for t, b := range buckets {
		ctx := &OperationContext{
			Key:         key,
			Type:        t,
			ToUninstall: b.uninstall,
			ToInstall:   b.install,
			op:          op,
		}
		installer, err := c.installers.lookup(t)
		if err != nil {
			logger.Debugf("no installer for %s installables of %s", t, key)
			c.report(ctx, errors.Trace(err))
			continue
		}
		installer.Apply(ctx)
	}
	return op.done
}

// Success records an installer's successful completion of the context.
func (c *Coordinator) Success(ctx *OperationContext) {
	c.report(ctx, nil)
}

// Failed records an installer's failure for the context.
func (c *Coordinator) Failed(ctx *OperationContext) {
	err := errors.Errorf("installer for %s failed on %s", ctx.Type, ctx.Key)
	if len(ctx.Errors) > 0 {
		err = errors.Annotatef(ctx.Errors[0], "installer for %s failed on %s", ctx.Type, ctx.Key)
	}
	c.report(ctx, err)
}

func (c *Coordinator) report(ctx *OperationContext, err error) {
	op := ctx.op
	op.mu.Lock()
	if op.resolved {
		op.mu.Unlock()
		logger.Debugf("dropping late installer report for %s on %s", ctx.Type, ctx.Key)
		return
	}
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		op.failed = append(op.failed, ctx)
	} else {
		op.succeeded++
	}
	op.remaining--
	finished := op.remaining == 0
	op.mu.Unlock()

	if finished {
		op.resolve(c.joinOutcome(op))
	}
}

func (c *Coordinator) timedOut(op *operation) {
	op.mu.Lock()
	if op.resolved {
		op.mu.Unlock()
		return
	}
	someSucceeded := op.succeeded > 0
	op.mu.Unlock()

	op.resolve(operationOutcome{
		err:     errors.Annotatef(ErrInstallTimeout, "installing %s", op.key),
		partial: someSucceeded,
	})
}

func (c *Coordinator) joinOutcome(op *operation) operationOutcome {
	op.mu.Lock()
	defer op.mu.Unlock()
	if len(op.failed) == 0 {
		return operationOutcome{}
	}
	err := op.failed[0].Errors[0]
	if len(op.failed) > 1 {
		err = errors.Annotatef(err, "and %d other installer failures", len(op.failed)-1)
	}
	return operationOutcome{err: err, partial: op.succeeded > 0}
}

// resolve delivers the outcome exactly once and cancels the timeout.
func (op *operation) resolve(outcome operationOutcome) {
	op.mu.Lock()
	if op.resolved {
		op.mu.Unlock()
		return
	}
	op.resolved = true
	timer := op.timer
	op.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	op.done <- outcome
}

func bucketFor(buckets map[*intent.Type]*bucket, t *intent.Type) *bucket {
	b, ok := buckets[t]
	if !ok {
		b = &bucket{}
		buckets[t] = b
	}
	return b
}
