package mapsync

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// debounceTimer is a single-slot cancellable task. Scheduling always cancels
// the task already in the slot, so at most one is ever pending.
type debounceTimer struct {
	clock    clockwork.Clock
	dispatch func(func())

	pending clockwork.Timer
	gen     uint64
}

func newDebounceTimer(clock clockwork.Clock, dispatch func(func())) *debounceTimer {
	return &debounceTimer{clock: clock, dispatch: dispatch}
}

// Schedule replaces any pending task with fn, due after d.
func (t *debounceTimer) Schedule(d time.Duration, fn func()) {
	t.Cancel()
	gen := t.gen
	t.pending = t.clock.AfterFunc(d, func() {
		t.dispatch(func() {
			// A fire that raced with Cancel or a newer Schedule is stale.
			if gen != t.gen || t.pending == nil {
				return
			}
			t.pending = nil
			fn()
		})
	})
}

// Cancel drops the pending task, if any.
func (t *debounceTimer) Cancel() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
}

// Pending reports whether a task is waiting to fire.
func (t *debounceTimer) Pending() bool {
	return t.pending != nil
}
