package resource

import "github.com/tileforge/tilesim/clock"

// Lock implements a simple mutual-exclusion resource: IN acquires it
// (descheduling the caller if already held), OUT releases it, handing
// ownership straight to the longest-waiting thread if any are queued.
type Lock struct {
	Resource

	held    bool
	waiters []Owner
}

// NewLock returns a free, unheld lock.
func NewLock(id ID) *Lock {
	l := &Lock{}
	l.Init(id)
	return l
}

// Out implements OUT on a lock: releases it, waking the oldest waiter if
// any, otherwise marking it free.
func (l *Lock) Out(owner Owner, value uint32, time clock.Ticks) OpResult {
	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		if time > next.Time() {
			next.SetTime(time)
		}
		next.AdvancePC()
		next.Schedule()
	} else {
		l.held = false
	}
	return Continue
}

// In implements IN on a lock: acquires it if free (returning the lock's
// own resource ID as the value, matching the reference), otherwise
// deschedules the caller onto the wait queue.
func (l *Lock) In(owner Owner, time clock.Ticks) (uint32, OpResult) {
	if !l.held {
		l.held = true
		return uint32(l.ID()), Continue
	}
	l.waiters = append(l.waiters, owner)
	return 0, Deschedule
}

// Held reports whether the lock is currently acquired.
func (l *Lock) Held() bool { return l.held }
