// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"reflect"

	"github.com/juju/netcore/core/intent"
)

// processor exposes the manager's machinery to the phases: compiler
// dispatch, install dispatch (blocking until the coordinator reports),
// and transient-state notification.
type processor interface {
	compile(i intent.Intent, previous []intent.Intent) ([]intent.Intent, error)
	apply(toUninstall, toInstall *intent.Data) operationOutcome
	transition(state intent.State, i intent.Intent)
}

// phase is a node of the per-intent state machine. Processing an
// intent walks phases until one is final; the final phase yields the
// next durable data for the key, or nil for no write.
type phase interface {
	process() phase
}

// finalPhase ends the walk.
type finalPhase interface {
	phase
	data() *intent.Data
}

// runPhases drives a phase chain to completion.
func runPhases(p phase) *intent.Data {
	for {
		if f, ok := p.(finalPhase); ok {
			return f.data()
		}
		p = p.process()
	}
}

// done is embedded by final phases.
type done struct{}

func (done) process() phase { return nil }

// skipped is the final phase of a stale or redundant request: nothing
// is written and no event is emitted.
type skipped struct{ done }

func (skipped) data() *intent.Data { return nil }

// newInitialPhase branches on the pending request. current may be nil
// for a key never processed before.
func newInitialPhase(proc processor, pending, current *intent.Data) phase {
	return &initial{proc: proc, pending: pending, current: current}
}

type initial struct {
	proc    processor
	pending *intent.Data
	current *intent.Data
}

func (p *initial) process() phase {
	switch p.pending.Request() {
	case intent.RequestSubmit:
		if p.current != nil && !p.pending.Version().NewerThan(p.current.Version()) {
			logger.Debugf("skipping stale request %s", p.pending)
			return skipped{}
		}
		if p.current != nil && p.current.State() == intent.Installed &&
			reflect.DeepEqual(p.current.Intent(), p.pending.Intent()) {
			logger.Debugf("skipping unchanged installed intent %s", p.pending.Key())
			return skipped{}
		}
		return &compiling{proc: p.proc, pending: p.pending, current: p.current}

	case intent.RequestWithdraw:
		if p.current == nil || len(p.current.Installables()) == 0 {
			return &withdrawn{pending: p.pending}
		}
		return &withdrawing{proc: p.proc, pending: p.pending, current: p.current}

	case intent.RequestPurge:
		if p.current == nil {
			logger.Debugf("nothing to purge for %s", p.pending.Key())
			return skipped{}
		}
		if !p.current.State().Terminal() {
			return &failed{pending: p.pending, cause: errNotTerminal(p.current)}
		}
		return &purging{pending: p.pending}
	}
	return &failed{pending: p.pending, cause: errUnknownRequest(p.pending)}
}

// compiling invokes the compiler registry and moves on to installing.
type compiling struct {
	proc    processor
	pending *intent.Data
	current *intent.Data
}

func (p *compiling) process() phase {
	p.proc.transition(intent.Compiling, p.pending.Intent())

	var previous []intent.Intent
	if p.current != nil {
		previous = p.current.Installables()
	}
	installables, err := p.proc.compile(p.pending.Intent(), previous)
	if err != nil {
		return &failed{pending: p.pending, cause: err}
	}
	if p.current != nil && p.current.State() == intent.Installed &&
		reflect.DeepEqual(installables, p.current.Installables()) {
		logger.Debugf("skipping %s: compiled installables unchanged", p.pending.Key())
		return skipped{}
	}
	next := p.pending.Copy()
	next.SetInstallables(installables)
	return &installing{proc: p.proc, pending: next, current: p.current}
}

// installing hands the (uninstall, install) pair to the coordinator
// and suspends until it reports.
type installing struct {
	proc    processor
	pending *intent.Data
	current *intent.Data
}

func (p *installing) process() phase {
	p.proc.transition(intent.Installing, p.pending.Intent())

	var toUninstall *intent.Data
	if p.current != nil && len(p.current.Installables()) > 0 {
		toUninstall = p.current
	}
	outcome := p.proc.apply(toUninstall, p.pending)
	if outcome.err == nil {
		return &installed{pending: p.pending}
	}
	if outcome.partial && intent.AllowsPartialFailure(p.pending.Intent()) {
		return &corrupt{pending: p.pending, cause: outcome.err}
	}
	return &failed{pending: p.pending, cause: outcome.err}
}

// withdrawing dispatches removal of the current installables.
type withdrawing struct {
	proc    processor
	pending *intent.Data
	current *intent.Data
}

func (p *withdrawing) process() phase {
	p.proc.transition(intent.Withdrawing, p.pending.Intent())

	outcome := p.proc.apply(p.current, nil)
	if outcome.err != nil {
		return &failed{pending: p.pending, cause: outcome.err}
	}
	return &withdrawn{pending: p.pending}
}

// purging produces the removal write for a terminal key. The store
// removes the key when it observes the purge write; no current slot
// survives.
type purging struct {
	pending *intent.Data
}

func (p *purging) process() phase {
	return &purged{pending: p.pending}
}

type purged struct {
	done
	pending *intent.Data
}

func (p *purged) data() *intent.Data {
	return intent.NextState(p.pending, intent.PurgeReq)
}

type installed struct {
	done
	pending *intent.Data
}

func (p *installed) data() *intent.Data {
	return intent.NextState(p.pending, intent.Installed)
}

type withdrawn struct {
	done
	pending *intent.Data
}

func (p *withdrawn) data() *intent.Data {
	next := intent.NextState(p.pending, intent.Withdrawn)
	next.SetInstallables(nil)
	return next
}

type failed struct {
	done
	pending *intent.Data
	cause   error
}

func (p *failed) data() *intent.Data {
	next := intent.NextState(p.pending, intent.Failed)
	next.SetError(p.cause)
	return next
}

type corrupt struct {
	done
	pending *intent.Data
	cause   error
}

func (p *corrupt) data() *intent.Data {
	next := intent.NextState(p.pending, intent.Corrupt)
	next.SetError(p.cause)
	return next
}
