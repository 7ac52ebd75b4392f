// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package intents

import (
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/juju/netcore/core/intent"
)

// accumulator coalesces store process callbacks into batches. A batch
// is emitted when the window elapses or the size limit is reached,
// whichever happens first. Requests for the same key within a window
// are deduplicated, keeping only the highest version. At most one
// batch is outstanding: further batches are held until Ready.
type accumulator struct {
	clock   clock.Clock
	window  time.Duration
	limit   int
	execute func([]*intent.Data)

	mu       sync.Mutex
	items    map[intent.Key]*intent.Data
	order    []intent.Key
	timer    clock.Timer
	inFlight bool
}

func newAccumulator(clk clock.Clock, window time.Duration, limit int, execute func([]*intent.Data)) *accumulator {
	return &accumulator{
		clock:   clk,
		window:  window,
		limit:   limit,
		execute: execute,
		items:   make(map[intent.Key]*intent.Data),
	}
}

// Add buffers a pending request for batching.
func (a *accumulator) Add(data *intent.Data) {
	a.mu.Lock()
	key := data.Key()
	if existing, ok := a.items[key]; ok {
		if data.Version().NewerThan(existing.Version()) {
			a.items[key] = data
		}
		a.mu.Unlock()
		return
	}
	a.items[key] = data
	a.order = append(a.order, key)

	if len(a.items) >= a.limit {
		a.fireLocked()
		return
	}
	if a.timer == nil {
		a.timer = a.clock.AfterFunc(a.window, a.windowElapsed)
	}
	a.mu.Unlock()
}

// Ready signals that the previous batch has completed; a held batch,
// if any, is emitted immediately.
func (a *accumulator) Ready() {
	a.mu.Lock()
	a.inFlight = false
	if len(a.items) > 0 {
		a.fireLocked()
		return
	}
	a.mu.Unlock()
}

func (a *accumulator) windowElapsed() {
	a.mu.Lock()
	a.timer = nil
	if len(a.items) == 0 || a.inFlight {
		// A held batch is emitted by Ready.
		a.mu.Unlock()
		return
	}
	a.fireLocked()
}

// fireLocked emits the buffered batch. Called with the lock held;
// releases it.
func (a *accumulator) fireLocked() {
	if a.inFlight {
		a.mu.Unlock()
		return
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	batch := make([]*intent.Data, 0, len(a.order))
	for _, key := range a.order {
		batch = append(batch, a.items[key])
	}
	a.items = make(map[intent.Key]*intent.Data)
	a.order = nil
	a.inFlight = true
	a.mu.Unlock()

	a.execute(batch)
}
