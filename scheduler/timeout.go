package scheduler

import "github.com/tileforge/tilesim/clock"

// Timeout is a dedicated Runnable that throws TimeoutError when the
// scheduler reaches its wake-up time, enforcing a user-supplied cycle
// budget. Removing it from the scheduler (via Scheduler.Remove) cancels
// the timeout.
type Timeout struct {
	at clock.Ticks
}

// NewTimeout returns a Timeout Runnable that will fire at tick at. The
// caller is responsible for pushing it onto a Scheduler.
func NewTimeout(at clock.Ticks) *Timeout {
	return &Timeout{at: at}
}

// Run implements Runnable: it always stops the run loop with
// TimeoutError.
func (t *Timeout) Run(time clock.Ticks) error {
	return TimeoutError{Time: time}
}

// At returns the tick this timeout is scheduled to fire at.
func (t *Timeout) At() clock.Ticks { return t.at }
