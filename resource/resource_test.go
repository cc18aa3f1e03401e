package resource

import "testing"

func TestResourceInUseDefaultsFalse(t *testing.T) {
	var r Resource
	r.Init(LockID(2))
	if r.IsInUse() {
		t.Fatalf("new resource should not be in use")
	}
	r.SetInUse(true)
	if !r.IsInUse() {
		t.Fatalf("expected SetInUse(true) to take effect")
	}
	if got := r.Type(); got != TypeLock {
		t.Errorf("Type() = %v, want TypeLock", got)
	}
	if got := r.Num(); got != 2 {
		t.Errorf("Num() = %d, want 2", got)
	}
}

func TestBaseInOutAreIllegalByDefault(t *testing.T) {
	var b Base
	owner := newFakeOwner(0)
	if _, result := b.In(owner, 0); result != Illegal {
		t.Errorf("Base.In() = %v, want Illegal", result)
	}
	if result := b.Out(owner, 0, 0); result != Illegal {
		t.Errorf("Base.Out() = %v, want Illegal", result)
	}
}

func TestConditionString(t *testing.T) {
	tests := []struct {
		c    Condition
		want string
	}{
		{CondFull, "FULL"},
		{CondAfter, "AFTER"},
		{CondEQ, "EQ"},
		{CondNEQ, "NEQ"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}
