package thread

import (
	"testing"

	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/resource"
)

type fakeParent struct {
	ramBase   uint32
	scheduled []*Thread
	executing *Thread
}

func (f *fakeParent) RAMBase() uint32                { return f.ramBase }
func (f *fakeParent) TargetPC(pc uint32) uint32      { return pc }
func (f *fakeParent) PhysicalAddress(reg uint32) uint32 { return reg }
func (f *fakeParent) IsValidAddress(addr uint32) bool   { return true }
func (f *fakeParent) ScheduleThread(t *Thread)       { f.scheduled = append(f.scheduled, t) }
func (f *fakeParent) ExecutingThread() *Thread       { return f.executing }

func newTestThread() (*Thread, *fakeParent) {
	p := &fakeParent{}
	th := New(resource.ThreadID(0), p)
	th.Alloc(0)
	return th, p
}

func TestThreadAllocSetsDefaults(t *testing.T) {
	th, _ := newTestThread()
	if !th.IsInUse() {
		t.Fatalf("Alloc should mark the thread in use")
	}
	if !th.InSSync() {
		t.Fatalf("Alloc should start ssync true")
	}
}

func TestSRTestAndSet(t *testing.T) {
	var sr StatusRegister
	if sr.Test(EEBLE) {
		t.Fatalf("zero-value SR should have no bits set")
	}
	sr.Set(EEBLE, true)
	if !sr.Test(EEBLE) {
		t.Errorf("EEBLE should be set")
	}
	sr.Set(EEBLE, false)
	if sr.Test(EEBLE) {
		t.Errorf("EEBLE should be cleared")
	}
}

func TestAdvancePCIncrementsBySlot(t *testing.T) {
	th, _ := newTestThread()
	th.SetPC(10)
	th.AdvancePC()
	if th.PC() != 11 {
		t.Errorf("PC = %d, want 11", th.PC())
	}
}

func TestScheduleClearsWaitingAndPausedOn(t *testing.T) {
	th, p := newTestThread()
	th.sr.Set(WAITING, true)
	th.pausedOn = resource.NewTimer(resource.TimerID(0))
	th.Schedule()
	if th.Waiting() {
		t.Errorf("Schedule should clear WAITING")
	}
	if th.PausedOn() != nil {
		t.Errorf("Schedule should clear the recorded pause")
	}
	if len(p.scheduled) != 1 || p.scheduled[0] != th {
		t.Errorf("Schedule should enqueue the thread on the parent")
	}
}

// fakeEventable is a minimal resource.Eventable for exercising Thread's
// event delivery without a concrete Port/Timer/Chanend.
type fakeEventable struct {
	id     resource.ID
	vector uint32
	ev     uint32
	next, prev resource.Eventable
	disabled bool
}

func (e *fakeEventable) ID() resource.ID                         { return e.id }
func (e *fakeEventable) Vector() uint32                          { return e.vector }
func (e *fakeEventable) TruncatedEV(ramBase uint32) uint32       { return e.ev }
func (e *fakeEventable) IsInterruptMode() bool                   { return false }
func (e *fakeEventable) EventDisable(thread resource.Owner)      { e.disabled = true }
func (e *fakeEventable) SeeOwnerEventEnable(time clock.Ticks) bool { return true }
func (e *fakeEventable) Next() resource.Eventable                { return e.next }
func (e *fakeEventable) SetNext(n resource.Eventable)            { e.next = n }
func (e *fakeEventable) Prev() resource.Eventable                { return e.prev }
func (e *fakeEventable) SetPrev(p resource.Eventable)            { e.prev = p }

func TestTakeDeliversEventAndReschedulesWaitingThread(t *testing.T) {
	th, p := newTestThread()
	th.sr.Set(WAITING, true)
	th.SetReg(ED, 0)
	res := &fakeEventable{id: resource.TimerID(0), vector: 0x40, ev: 0x99}

	th.Take(res, 7, false)

	if th.Time() != 7 {
		t.Errorf("Time() = %d, want 7", th.Time())
	}
	if th.PC() != 0x40 {
		t.Errorf("PC() = %#x, want 0x40", th.PC())
	}
	if th.Reg(ED) != 0x99 {
		t.Errorf("ED = %#x, want 0x99", th.Reg(ED))
	}
	if th.EEBLE() {
		t.Errorf("EEBLE should be cleared on event delivery")
	}
	if len(p.scheduled) != 1 {
		t.Errorf("expected the thread to be rescheduled, scheduled = %v", p.scheduled)
	}
}

func TestSetPendingThenTakeEvent(t *testing.T) {
	th, _ := newTestThread()
	res := &fakeEventable{id: resource.TimerID(1), vector: 0x80, ev: 0x55}
	th.SetPending(res, 5, false)
	if !th.HasPendingEvent() {
		t.Fatalf("expected a pending event to be recorded")
	}
	th.TakeEvent()
	if th.HasPendingEvent() {
		t.Errorf("TakeEvent should clear the pending flag")
	}
	if th.PC() != 0x80 {
		t.Errorf("PC() = %#x, want 0x80", th.PC())
	}
}

func TestSetPendingKeepsEarlierDeadline(t *testing.T) {
	th, _ := newTestThread()
	first := &fakeEventable{id: resource.TimerID(1), vector: 0x10}
	second := &fakeEventable{id: resource.TimerID(2), vector: 0x20}
	th.SetPending(first, 5, false)
	th.SetPending(second, 10, false)
	th.TakeEvent()
	if th.PC() != 0x10 {
		t.Errorf("PC() = %#x, want the earlier-deadline event's vector 0x10", th.PC())
	}
}

func TestEventEnabledResourceListAddRemove(t *testing.T) {
	th, _ := newTestThread()
	a := &fakeEventable{id: resource.TimerID(1)}
	b := &fakeEventable{id: resource.TimerID(2)}
	th.AddEventEnabledResource(a)
	th.AddEventEnabledResource(b)
	var seen []resource.ID
	for r := th.eventEnabledResources; r != nil; r = r.Next() {
		seen = append(seen, r.ID())
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 entries, got %v", seen)
	}
	th.RemoveEventEnabledResource(a)
	seen = nil
	for r := th.eventEnabledResources; r != nil; r = r.Next() {
		seen = append(seen, r.ID())
	}
	if len(seen) != 1 || seen[0] != b.ID() {
		t.Errorf("after removing a, expected only b, got %v", seen)
	}
}

func TestClreDisablesEventsAndResources(t *testing.T) {
	th, _ := newTestThread()
	th.sr.Set(EEBLE, true)
	a := &fakeEventable{id: resource.TimerID(1)}
	th.AddEventEnabledResource(a)
	th.Clre()
	if th.EEBLE() {
		t.Errorf("Clre should clear EEBLE")
	}
	if !a.disabled {
		t.Errorf("Clre should disable events on every event-enabled resource")
	}
}

func TestSetSRReportsPendingEventOnNewlyEnabledResource(t *testing.T) {
	th, _ := newTestThread()
	a := &fakeEventable{id: resource.TimerID(1)}
	th.AddEventEnabledResource(a)
	took := th.SetSR(StatusRegister(0).withBit(EEBLE))
	if !took {
		t.Errorf("SetSR should report a pending event from the newly-enabled resource")
	}
}

func (sr StatusRegister) withBit(bit SRBit) StatusRegister {
	sr.Set(bit, true)
	return sr
}
