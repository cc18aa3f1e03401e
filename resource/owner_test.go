package resource

import "github.com/tileforge/tilesim/clock"

// fakeOwner is a minimal Owner used across the package's tests: it
// records delivered/pending events instead of running a real dispatch
// loop, and tracks the bookkeeping (enabled-resource lists, time, pc)
// that a real thread.Thread would own.
type fakeOwner struct {
	resID ID

	time clock.Ticks
	pc   uint32

	eeble, ieble bool
	ramBase      uint32
	executing    bool
	ssync        bool
	freed        bool

	eventEnabled     []Eventable
	interruptEnabled []Eventable

	taken   []takenEvent
	pending []takenEvent

	rescheduled bool
}

type takenEvent struct {
	res         Eventable
	time        clock.Ticks
	isInterrupt bool
}

func newFakeOwner(num uint8) *fakeOwner {
	return &fakeOwner{resID: ThreadID(num), eeble: true, ieble: true}
}

func (f *fakeOwner) ResourceID() ID { return f.resID }
func (f *fakeOwner) Time() clock.Ticks { return f.time }
func (f *fakeOwner) SetTime(t clock.Ticks) { f.time = t }
func (f *fakeOwner) AdvancePC() { f.pc++ }
func (f *fakeOwner) Schedule() { f.rescheduled = true }
func (f *fakeOwner) SetSSync(v bool) { f.ssync = v }
func (f *fakeOwner) Free() bool { f.freed = true; return true }
func (f *fakeOwner) EEBLE() bool { return f.eeble }
func (f *fakeOwner) IEBLE() bool { return f.ieble }
func (f *fakeOwner) RAMBase() uint32 { return f.ramBase }
func (f *fakeOwner) IsExecuting() bool { return f.executing }

func (f *fakeOwner) AddEventEnabledResource(r Eventable) {
	f.eventEnabled = append(f.eventEnabled, r)
}
func (f *fakeOwner) RemoveEventEnabledResource(r Eventable) {
	f.eventEnabled = removeEventable(f.eventEnabled, r)
}
func (f *fakeOwner) AddInterruptEnabledResource(r Eventable) {
	f.interruptEnabled = append(f.interruptEnabled, r)
}
func (f *fakeOwner) RemoveInterruptEnabledResource(r Eventable) {
	f.interruptEnabled = removeEventable(f.interruptEnabled, r)
}

func (f *fakeOwner) Take(res Eventable, time clock.Ticks, isInterrupt bool) {
	f.taken = append(f.taken, takenEvent{res, time, isInterrupt})
}

func (f *fakeOwner) SetPending(res Eventable, time clock.Ticks, isInterrupt bool) {
	f.pending = append(f.pending, takenEvent{res, time, isInterrupt})
}

func removeEventable(list []Eventable, r Eventable) []Eventable {
	out := list[:0]
	for _, e := range list {
		if e != r {
			out = append(out, e)
		}
	}
	return out
}
