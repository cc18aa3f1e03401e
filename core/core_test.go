package core

import (
	"bytes"
	"testing"

	"github.com/tileforge/tilesim/decode"
	"github.com/tileforge/tilesim/resource"
	"github.com/tileforge/tilesim/scheduler"
)

func newTestCore() *Core {
	return New("core0", 0, scheduler.New(), 0, 256)
}

func TestReadWriteByteHalfWord(t *testing.T) {
	c := newTestCore()
	c.WriteByte(0x10, 0xab)
	if got := c.ReadByte(0x10); got != 0xab {
		t.Fatalf("ReadByte = %#x, want 0xab", got)
	}
	c.WriteHalf(0x20, 0x1234)
	if got := c.ReadHalf(0x20); got != 0x1234 {
		t.Fatalf("ReadHalf = %#x, want 0x1234", got)
	}
	c.WriteWord(0x30, 0xdeadbeef)
	if got := c.ReadWord(0x30); got != 0xdeadbeef {
		t.Fatalf("ReadWord = %#x, want 0xdeadbeef", got)
	}
}

func TestLoadSegmentRoundTripsAndRejectsOutOfBounds(t *testing.T) {
	c := newTestCore()
	data := []byte{1, 2, 3, 4, 5}
	if err := c.LoadSegment(0x40, data); err != nil {
		t.Fatalf("LoadSegment: %v", err)
	}
	if got := c.ReadBytes(0x40, len(data)); !bytes.Equal(got, data) {
		t.Fatalf("ReadBytes = %v, want %v", got, data)
	}
	if err := c.LoadSegment(250, make([]byte, 10)); err == nil {
		t.Fatalf("expected an out-of-bounds LoadSegment to fail")
	}
}

func TestWriteBytesRoundTrips(t *testing.T) {
	c := newTestCore()
	want := []byte{9, 8, 7, 6}
	c.WriteBytes(0x50, want)
	if got := c.ReadBytes(0x50, len(want)); !bytes.Equal(got, want) {
		t.Fatalf("ReadBytes = %v, want %v", got, want)
	}
}

func TestInRAMBoundsChecking(t *testing.T) {
	c := newTestCore()
	if !c.InRAM(0, 256) {
		t.Fatalf("InRAM(0, 256) should hold for the whole region")
	}
	if c.InRAM(0, 257) {
		t.Fatalf("InRAM(0, 257) should fail: one byte past RAM")
	}
	if c.InRAM(255, 2) {
		t.Fatalf("InRAM(255, 2) should fail: runs one byte past RAM")
	}
}

func TestSlotIndexIsInverseOfTargetPC(t *testing.T) {
	c := newTestCore()
	for _, addr := range []uint32{0, 2, 40, 254} {
		idx := c.SlotIndex(addr)
		if got := c.TargetPC(idx); got != addr {
			t.Fatalf("TargetPC(SlotIndex(%#x)) = %#x, want %#x", addr, got, addr)
		}
	}
}

func TestBreakpointSetClear(t *testing.T) {
	c := newTestCore()
	c.SetBreakpoint(0x10)
	if !c.breakpoints[0x10] {
		t.Fatalf("expected breakpoint to be armed")
	}
	c.ClearBreakpoint(0x10)
	if c.breakpoints[0x10] {
		t.Fatalf("expected breakpoint to be cleared")
	}
}

func TestWatchpointTrapsOnWrite(t *testing.T) {
	c := newTestCore()
	c.SetWatchpoint(0x60)
	c.WriteByte(0x60, 1)
	if !c.watchHit {
		t.Fatalf("expected a write to a watched address to set watchHit")
	}
}

func TestAllocResourceAndFreeResource(t *testing.T) {
	c := newTestCore()
	id, ok := c.AllocResource(resource.TypeTimer)
	if !ok {
		t.Fatalf("AllocResource(TypeTimer) failed")
	}
	if id.Type() != resource.TypeTimer {
		t.Fatalf("allocated id has type %v, want timer", id.Type())
	}
	if _, ok := c.ResourceByID(id); !ok {
		t.Fatalf("ResourceByID(%v) should find the allocated timer", id)
	}
	if !c.FreeResource(id) {
		t.Fatalf("FreeResource(%v) should succeed", id)
	}
}

func TestAllocPortIsIdempotent(t *testing.T) {
	c := newTestCore()
	p1 := c.AllocPort(3, 8)
	p2 := c.AllocPort(3, 8)
	if p1 != p2 {
		t.Fatalf("AllocPort should return the same *Port for the same (num, width)")
	}
}

func TestSetPSRamBaseResetsCache(t *testing.T) {
	c := newTestCore()
	c.WriteByte(0x10, 0x42)
	c.cache.Slot(8).Opcode = 42
	c.SetPS(resource.PSRamBase, 0)
	if got := c.GetPS(resource.PSRamBase); got != 0 {
		t.Fatalf("GetPS(PSRamBase) = %d, want 0", got)
	}
	if got := c.cache.Slot(8).Opcode; got != decode.Decode {
		t.Fatalf("slot 8 opcode after SetPS(PSRamBase) = %v, want Decode", got)
	}
}
