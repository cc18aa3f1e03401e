package resource

import "github.com/tileforge/tilesim/clock"

// Timer is a free-running counter, readable as ticks/CyclesPerTick, with
// an optional COND_AFTER wait condition gating IN until a target value is
// reached.
type Timer struct {
	EventableResource

	after bool
	data  uint32

	pausedIn Owner
}

// NewTimer returns an unconditioned (COND_FULL) timer.
func NewTimer(id ID) *Timer {
	t := &Timer{}
	t.InitEventable(id, t)
	return t
}

func (t *Timer) seeEventEnable(time clock.Ticks) bool {
	if !t.conditionMet(time) {
		return false
	}
	return true
}

func (t *Timer) conditionMet(time clock.Ticks) bool {
	if !t.after {
		return true
	}
	return int32(uint32(time/clock.CyclesPerTick))-int32(t.data) > 0
}

// SetCondition implements SETC COND_FULL/COND_AFTER on a timer.
func (t *Timer) SetCondition(owner Owner, c Condition, time clock.Ticks) bool {
	t.updateOwner(owner)
	switch c {
	case CondFull:
		t.after = false
	case CondAfter:
		t.after = true
	default:
		return false
	}
	return true
}

// SetData implements the timer's target-value write (SETD).
func (t *Timer) SetData(owner Owner, d uint32, time clock.Ticks) bool {
	t.updateOwner(owner)
	t.data = d
	return true
}

// In implements the IN instruction: returns the current tick count,
// descheduling the thread until its COND_AFTER target is reached.
func (t *Timer) In(owner Owner, time clock.Ticks) (uint32, OpResult) {
	t.updateOwner(owner)
	if !t.conditionMet(time) {
		t.pausedIn = owner
		return 0, Deschedule
	}
	return uint32(time / clock.CyclesPerTick), Continue
}

// Out implements the OUT instruction on a timer: illegal, matching the
// real ISA where a timer is an input-only resource.
func (t *Timer) Out(owner Owner, value uint32, time clock.Ticks) OpResult {
	return Illegal
}

// EarliestReadyTime returns the tick at which this timer's current
// condition will next be satisfied, used to schedule a wake-up for a
// descheduled reader.
func (t *Timer) EarliestReadyTime(time clock.Ticks) clock.Ticks {
	if t.conditionMet(time) {
		return time
	}
	wait := int32(t.data+1) - int32(uint32(time/clock.CyclesPerTick))
	return time + clock.Ticks(wait)*clock.CyclesPerTick
}

// Run wakes a paused reader once the condition becomes true; it is the
// Timer's scheduler.Runnable step, invoked at the tick computed by
// EarliestReadyTime.
func (t *Timer) Run(time clock.Ticks) error {
	if !t.conditionMet(time) {
		return nil
	}
	if t.EventsPermitted() {
		t.Event(time)
	}
	if t.pausedIn != nil {
		owner := t.pausedIn
		t.pausedIn = nil
		owner.Take(t, time, t.IsInterruptMode())
	}
	return nil
}

// WakeResource implements WakeSource: a timer always knows when its own
// condition will next become true, and re-invokes itself (Run) there.
func (t *Timer) WakeResource(time clock.Ticks) (Runnable, clock.Ticks, bool) {
	return t, t.EarliestReadyTime(time), true
}

// Cancel abandons a paused reader (used on thread unwind).
func (t *Timer) Cancel() { t.pausedIn = nil }
