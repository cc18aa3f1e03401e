package resource

import (
	"testing"

	"github.com/tileforge/tilesim/clock"
)

func newRunningPort(width uint8) (*Port, *ClockBlock) {
	cb := NewClockBlock(ClockBlockID(0))
	cb.SetData(newFakeOwner(0), 1, 0) // halfPeriod = CyclesPerTick/2
	cb.Start(0)
	p := NewPort(PortID(0, width), width)
	p.SetClockBlock(cb)
	owner := newFakeOwner(0)
	p.SetCInUse(owner, true, 0)
	p.SetSamplingEdge(clock.Falling)
	return p, cb
}

func TestPortCounterIncrementsOnFallingEdges(t *testing.T) {
	p, cb := newRunningPort(8)
	owner := newFakeOwner(0)
	p.updateOwner(owner)

	half := clock.Ticks(cb.HalfPeriod())
	end := half * 20
	p.Update(end)
	// Edges occur at every multiple of half starting from `half`; count
	// how many land at or before `end`.
	want := 0
	for e := half; e <= end; e += half {
		want++
	}
	// The iterator's first edge (at `half`) is rising; falling edges are
	// every other one after that.
	wantFalling := want / 2
	if got := int(p.PortCounter()); got != wantFalling {
		t.Errorf("PortCounter() = %d, want %d", got, wantFalling)
	}
}

func TestPortOutputTransferThenInputSeesIt(t *testing.T) {
	p, _ := newRunningPort(8)
	p.SetDirection(DirOutput)
	owner := newFakeOwner(0)
	result := p.Out(owner, 0xAB, 0)
	if result != Continue {
		t.Fatalf("Out() result = %v, want Continue", result)
	}

	p.Update(clock.Ticks(clock.CyclesPerTick) * 4)
	if got := p.PeekPins(); got != 0xAB {
		t.Errorf("PeekPins() = %#x, want 0xab after a falling sampling edge", got)
	}
}

func TestPortConditionEQAgainstData(t *testing.T) {
	p, _ := newRunningPort(8)
	owner := newFakeOwner(0)
	p.SetData(owner, 0x5A, 0)
	p.SetCondition(owner, CondEQ, 0)
	p.SetPins(0x5A)
	p.direction = DirInput
	p.Update(clock.Ticks(clock.CyclesPerTick) * 4)

	val, result := p.In(owner, clock.Ticks(clock.CyclesPerTick)*4)
	if result != Continue {
		t.Fatalf("In() result = %v, want Continue once the word matches data", result)
	}
	if val != 0x5A {
		t.Errorf("In() value = %#x, want 0x5a", val)
	}
}

func TestPortInDeschedulesUntilConditionMet(t *testing.T) {
	p, _ := newRunningPort(8)
	owner := newFakeOwner(0)
	p.SetData(owner, 0x01, 0)
	p.SetCondition(owner, CondEQ, 0)
	p.SetPins(0x00)
	p.direction = DirInput

	_, result := p.In(owner, 0)
	if result != Deschedule {
		t.Fatalf("In() result = %v, want Deschedule when the word doesn't match", result)
	}
}
