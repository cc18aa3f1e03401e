package resource

import "testing"

func TestLockAcquireRelease(t *testing.T) {
	l := NewLock(LockID(0))
	a := newFakeOwner(0)
	val, result := l.In(a, 0)
	if result != Continue {
		t.Fatalf("first In() result = %v, want Continue", result)
	}
	if val != uint32(l.ID()) {
		t.Errorf("In() value = %#x, want lock's own id %#x", val, uint32(l.ID()))
	}
	if !l.Held() {
		t.Fatalf("lock should be held")
	}

	b := newFakeOwner(1)
	_, result = l.In(b, 10)
	if result != Deschedule {
		t.Fatalf("second In() result = %v, want Deschedule", result)
	}

	l.Out(a, 0, 20)
	if !b.rescheduled {
		t.Fatalf("expected waiting thread b to be rescheduled on release")
	}
	if b.time != 20 {
		t.Errorf("b.time = %d, want 20 (handoff time)", b.time)
	}
	if b.pc != 1 {
		t.Errorf("b.pc = %d, want 1 (advanced past IN)", b.pc)
	}
	if !l.Held() {
		t.Fatalf("lock should remain held, now by b")
	}
}

func TestLockReleaseWithNoWaitersFreesIt(t *testing.T) {
	l := NewLock(LockID(0))
	a := newFakeOwner(0)
	l.In(a, 0)
	l.Out(a, 0, 5)
	if l.Held() {
		t.Fatalf("lock should be free with no waiters")
	}
}
