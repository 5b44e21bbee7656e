package app

import (
	"sync"
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/rs/zerolog/log"
)

// Dispatcher serialises every operation on room state: inbound requests run
// through Do and scheduled callbacks run under the same lock, so no two of
// them ever touch a room at the same time.
type Dispatcher struct {
	mu    sync.Mutex
	clock core.Clock
}

func NewDispatcher(clock core.Clock) *Dispatcher {
	if clock == nil {
		clock = core.SystemClock()
	}
	return &Dispatcher{clock: clock}
}

func (d *Dispatcher) Now() time.Time { return d.clock.Now() }

// Do runs fn exclusively. fn must not call Do again.
func (d *Dispatcher) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.run(fn)
}

// Task is a cancellable scheduled callback. Its fields are guarded by the
// dispatcher lock, so Cancel must be called from dispatched code.
type Task struct {
	timer     core.Timer
	cancelled bool
}

// Cancel stops the task. A callback that already fired but is still waiting
// for the dispatcher will see the flag and do nothing. Safe on nil.
func (t *Task) Cancel() {
	if t == nil || t.cancelled {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *Task) Cancelled() bool { return t == nil || t.cancelled }

// After schedules a one-shot callback. Must be called from dispatched code.
func (d *Dispatcher) After(delay time.Duration, fn func()) *Task {
	t := &Task{}
	t.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if t.cancelled {
			return
		}
		t.cancelled = true
		d.run(fn)
	})
	return t
}

// Every schedules fn at start+period, start+2*period, ... until cancelled.
// Deadlines are anchored to the start so a slow callback does not make the
// schedule drift. Must be called from dispatched code.
func (d *Dispatcher) Every(period time.Duration, fn func()) *Task {
	t := &Task{}
	start := d.clock.Now()
	n := 0
	var arm func()
	arm = func() {
		n++
		delay := start.Add(time.Duration(n) * period).Sub(d.clock.Now())
		if delay < 0 {
			delay = 0
		}
		t.timer = d.clock.AfterFunc(delay, func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if t.cancelled {
				return
			}
			arm()
			d.run(fn)
		})
	}
	arm()
	return t
}

func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.dispatcher").Interface("panic", r).Msg("recovered dispatched callback")
		}
	}()
	fn()
}
