package thread

import (
	"testing"

	"github.com/tileforge/tilesim/resource"
)

func TestSetCPortInUse(t *testing.T) {
	th, _ := newTestThread()
	p := resource.NewPort(resource.PortID(0, 1), 1)
	if !th.SetC(p, SetCInUseOn, 0) {
		t.Fatalf("SETC in-use-on should succeed on a port")
	}
	if !p.IsInUse() {
		t.Errorf("port should be in use after SETC in-use-on")
	}
}

func TestSetCInUseFailsOnNonPort(t *testing.T) {
	th, _ := newTestThread()
	cb := resource.NewClockBlock(resource.ClockBlockID(0))
	if th.SetC(cb, SetCInUseOn, 0) {
		t.Errorf("SETC in-use should fail on a non-port resource")
	}
}

func TestSetCClockRunStartStop(t *testing.T) {
	th, _ := newTestThread()
	cb := resource.NewClockBlock(resource.ClockBlockID(0))
	if !th.SetC(cb, SetCRunStartR, 0) {
		t.Fatalf("SETC run-start should succeed on a clock block")
	}
	if !th.SetC(cb, SetCRunStopR, 1) {
		t.Fatalf("SETC run-stop should succeed on a clock block")
	}
}

func TestSetCPortType(t *testing.T) {
	th, _ := newTestThread()
	p := resource.NewPort(resource.PortID(0, 1), 1)
	if !th.SetC(p, SetCPortClockPort, 0) {
		t.Fatalf("SETC port-type should succeed on a port")
	}
}

func TestSetCUnknownValueFails(t *testing.T) {
	th, _ := newTestThread()
	p := resource.NewPort(resource.PortID(0, 1), 1)
	if th.SetC(p, 0xdead, 0) {
		t.Errorf("unrecognised SETC value should fail")
	}
}

func TestSetCBufferedRequiresPort(t *testing.T) {
	th, _ := newTestThread()
	tm := resource.NewTimer(resource.TimerID(0))
	if th.SetC(tm, SetCBufBuffers, 0) {
		t.Errorf("SETC buffered should fail on a timer")
	}
}
