package resource

import (
	"testing"

	"github.com/tileforge/tilesim/clock"
)

func TestClockBlockFreeRunningHalfPeriod(t *testing.T) {
	cb := NewClockBlock(ClockBlockID(0))
	if !cb.SetData(newFakeOwner(0), 3, 0) {
		t.Fatalf("SetData should succeed on a stopped clock block")
	}
	if got, want := cb.HalfPeriod(), uint32(3)*uint32(clock.CyclesPerTick/2); got != want {
		t.Errorf("HalfPeriod() = %d, want %d", got, want)
	}
}

func TestClockBlockStartStop(t *testing.T) {
	cb := NewClockBlock(ClockBlockID(0))
	cb.SetData(newFakeOwner(0), 5, 0)
	cb.Start(0)
	if !cb.IsFixedFrequency() {
		t.Fatalf("expected a running, divide-sourced clock block to be fixed-frequency")
	}
	v0 := cb.ValueAt(0)
	cb.Stop(100)
	if cb.IsFixedFrequency() {
		t.Fatalf("a stopped clock block must not report IsFixedFrequency")
	}
	if got := cb.ValueAt(1000); got != cb.ValueAt(100) {
		t.Errorf("stopped clock should hold its last value, got changed from %v", v0)
	}
}

func TestClockBlockSetDataFailsWhileRunning(t *testing.T) {
	cb := NewClockBlock(ClockBlockID(0))
	cb.Start(0)
	if cb.SetData(newFakeOwner(0), 7, 1) {
		t.Errorf("SetData should be refused on a running clock block")
	}
}

func TestClockBlockAttachDetachPort(t *testing.T) {
	cb := NewClockBlock(ClockBlockID(0))
	p := NewPort(PortID(0, 1), 1)
	cb.AttachPort(p)
	if _, ok := cb.ports[p]; !ok {
		t.Fatalf("expected port to be attached")
	}
	cb.DetachPort(p)
	if _, ok := cb.ports[p]; ok {
		t.Fatalf("expected port to be detached")
	}
}
