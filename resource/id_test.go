package resource

import "testing"

func TestChanendIDRoundTrip(t *testing.T) {
	id := ChanendID(5, 0x1234)
	if got := id.Type(); got != TypeChanend {
		t.Errorf("Type() = %v, want TypeChanend", got)
	}
	if got := id.Num(); got != 5 {
		t.Errorf("Num() = %d, want 5", got)
	}
	if got := id.Node(); got != 0x1234 {
		t.Errorf("Node() = %#x, want 0x1234", got)
	}
	if !id.IsChanend() || !id.IsChanendOrConfig() {
		t.Errorf("expected chanend id to report IsChanend/IsChanendOrConfig")
	}
}

func TestPortIDWidth(t *testing.T) {
	id := PortID(3, 16)
	if got := id.Type(); got != TypePort {
		t.Errorf("Type() = %v, want TypePort", got)
	}
	if got := id.Width(); got != 16 {
		t.Errorf("Width() = %d, want 16", got)
	}
	if got := id.Num(); got != 3 {
		t.Errorf("Num() = %d, want 3", got)
	}
}

func TestWithNumPreservesOtherFields(t *testing.T) {
	id := ChanendID(1, 7)
	id = id.WithNum(9)
	if got := id.Num(); got != 9 {
		t.Errorf("Num() = %d, want 9", got)
	}
	if got := id.Node(); got != 7 {
		t.Errorf("Node() = %d, want 7 (unchanged)", got)
	}
}

func TestFactoryIDsHaveExpectedType(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		want Type
	}{
		{"timer", TimerID(0), TypeTimer},
		{"sync", SyncID(0), TypeSync},
		{"thread", ThreadID(0), TypeThread},
		{"lock", LockID(0), TypeLock},
		{"clockblock", ClockBlockID(0), TypeClkBlk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Type(); got != tt.want {
				t.Errorf("Type() = %v, want %v", got, tt.want)
			}
		})
	}
}
