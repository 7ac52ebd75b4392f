// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intent

import "fmt"

// Request is the operation a pending Data asks the engine to perform.
type Request int

const (
	RequestSubmit Request = iota
	RequestWithdraw
	RequestPurge
)

func (r Request) String() string {
	switch r {
	case RequestSubmit:
		return "SUBMIT"
	case RequestWithdraw:
		return "WITHDRAW"
	case RequestPurge:
		return "PURGE"
	}
	return "unknown"
}

// Data is the mutable envelope the store replicates for an intent. Two
// slots exist per key: the current data, recording the last durable
// outcome, and the pending data, recording the most recent request
// awaiting processing. Data is mutated only by the phase pipeline of
// the batch that owns it; everyone else works on copies.
type Data struct {
	intent       Intent
	request      Request
	state        State
	version      Version
	installables []Intent
	err          error
}

// Submit returns pending data carrying a submit request for the
// intent.
func Submit(i Intent) *Data {
	return &Data{intent: i, request: RequestSubmit, state: InstallReq}
}

// Withdraw returns pending data carrying a withdraw request for the
// intent.
func Withdraw(i Intent) *Data {
	return &Data{intent: i, request: RequestWithdraw, state: WithdrawReq}
}

// Purge returns pending data carrying a purge request for the intent.
func Purge(i Intent) *Data {
	return &Data{intent: i, request: RequestPurge, state: PurgeReq}
}

// NextState returns a copy of data in the given state. The copy keeps
// the original's request, version and installables.
func NextState(d *Data, state State) *Data {
	next := d.Copy()
	next.state = state
	return next
}

// Intent returns the immutable intent the data wraps.
func (d *Data) Intent() Intent {
	return d.intent
}

// Key returns the intent's key.
func (d *Data) Key() Key {
	return d.intent.Key()
}

// Request returns the operation the data was created for.
func (d *Data) Request() Request {
	return d.request
}

// State returns the data's lifecycle state.
func (d *Data) State() State {
	return d.state
}

// SetState moves the data to the given state. Only the owning phase
// pipeline may call this.
func (d *Data) SetState(state State) {
	d.state = state
}

// Version returns the version the store stamped on acceptance, or the
// zero version for data not yet accepted.
func (d *Data) Version() Version {
	return d.version
}

// SetVersion stamps the data. Only the accepting store may call this.
func (d *Data) SetVersion(v Version) {
	d.version = v
}

// Installables returns the compiled sub-intents.
func (d *Data) Installables() []Intent {
	return d.installables
}

// SetInstallables records the compiled sub-intents.
func (d *Data) SetInstallables(installables []Intent) {
	d.installables = installables
}

// Error returns the failure annotation, if any.
func (d *Data) Error() error {
	return d.err
}

// SetError annotates the data with a failure cause.
func (d *Data) SetError(err error) {
	d.err = err
}

// Copy returns a shallow copy of the data with its own installables
// slice. Intents are immutable, so sharing them is safe.
func (d *Data) Copy() *Data {
	installables := make([]Intent, len(d.installables))
	copy(installables, d.installables)
	return &Data{
		intent:       d.intent,
		request:      d.request,
		state:        d.state,
		version:      d.version,
		installables: installables,
		err:          d.err,
	}
}

func (d *Data) String() string {
	return fmt.Sprintf("%s %s@%s in %s", d.request, d.Key(), d.version, d.state)
}
