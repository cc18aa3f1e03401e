package resource

import "testing"

func TestEventEnableDeliversImmediatelyWhenOwnerIdle(t *testing.T) {
	tm := NewTimer(TimerID(0))
	owner := newFakeOwner(0)
	owner.executing = false
	tm.updateOwner(owner)
	tm.SetVector(owner, 0x1000)

	tm.EventEnable(owner)
	if len(owner.taken) != 1 {
		t.Fatalf("expected an immediate Take() when the owner is idle and the condition already holds, got %d", len(owner.taken))
	}
	if owner.taken[0].res != Eventable(tm) {
		t.Errorf("delivered event is not this timer")
	}
}

func TestEventEnableQueuesPendingWhenOwnerExecuting(t *testing.T) {
	tm := NewTimer(TimerID(0))
	owner := newFakeOwner(0)
	owner.executing = true
	tm.updateOwner(owner)

	tm.EventEnable(owner)
	if len(owner.pending) != 1 {
		t.Fatalf("expected a pending event while the owner is executing, got %d", len(owner.pending))
	}
	if len(owner.taken) != 0 {
		t.Errorf("did not expect an immediate Take() while the owner is executing")
	}
}

func TestEventsPermittedRequiresGlobalEnableBit(t *testing.T) {
	tm := NewTimer(TimerID(0))
	owner := newFakeOwner(0)
	owner.eeble = false
	tm.updateOwner(owner)
	tm.EventEnable(owner)
	if tm.EventsPermitted() {
		t.Fatalf("events should not be permitted while the thread's EEBLE bit is clear")
	}
}

func TestEventDisableRemovesFromEnabledList(t *testing.T) {
	tm := NewTimer(TimerID(0))
	owner := newFakeOwner(0)
	tm.updateOwner(owner)
	tm.EventEnable(owner)
	if len(owner.eventEnabled) != 1 {
		t.Fatalf("expected timer to be added to the owner's event-enabled list")
	}
	tm.EventDisable(owner)
	if len(owner.eventEnabled) != 0 {
		t.Fatalf("expected timer to be removed from the owner's event-enabled list")
	}
}

func TestInterruptModeRoutesToInterruptList(t *testing.T) {
	tm := NewTimer(TimerID(0))
	owner := newFakeOwner(0)
	tm.updateOwner(owner)
	tm.SetInterruptMode(owner, true)
	tm.EventEnable(owner)
	if len(owner.interruptEnabled) != 1 {
		t.Fatalf("expected timer in interrupt mode to register on the interrupt-enabled list")
	}
	if len(owner.eventEnabled) != 0 {
		t.Errorf("timer in interrupt mode should not be on the plain event-enabled list")
	}
}
