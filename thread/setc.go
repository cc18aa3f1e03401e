package thread

import (
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/resource"
)

// SETC operand values, numbered exactly as the reference's internal SETC_*
// enum so any trace/disassembly of a raw SETC instruction's immediate
// lines up with the reference's own output.
const (
	SetCInUseOff = 0x0
	SetCInUseOn  = 0x8

	SetCCondFull  = 0x1
	SetCCondAfter = 0x9
	SetCCondEQ    = 0x11
	SetCCondNEQ   = 0x19

	SetCIEModeEvent     = 0x2
	SetCIEModeInterrupt = 0xa

	SetCRunStopR  = 0x7
	SetCRunStartR = 0xf
	SetCRunClrBuf = 0x17

	SetCMSMaster = 0x1007
	SetCMSSlave  = 0x100f

	SetCBufNoBuffers = 0x2007
	SetCBufBuffers   = 0x200f

	SetCRdyNoReady   = 0x3007
	SetCRdyStrobed   = 0x300f
	SetCRdyHandshake = 0x3017

	SetCPortDataPort  = 0x5007
	SetCPortClockPort = 0x500f
	SetCPortReadyPort = 0x5017
)

func setCCondition(val uint32) (resource.Condition, bool) {
	switch val {
	case SetCCondFull:
		return resource.CondFull, true
	case SetCCondAfter:
		return resource.CondAfter, true
	case SetCCondEQ:
		return resource.CondEQ, true
	case SetCCondNEQ:
		return resource.CondNEQ, true
	default:
		return 0, false
	}
}

func portReadyMode(val uint32) (resource.ReadyMode, bool) {
	switch val {
	case SetCRdyNoReady:
		return resource.ReadyNone, true
	case SetCRdyStrobed:
		return resource.ReadyStrobed, true
	case SetCRdyHandshake:
		return resource.ReadyHandshake, true
	default:
		return 0, false
	}
}

func portType(val uint32) (resource.PortType, bool) {
	switch val {
	case SetCPortDataPort:
		return resource.PortData, true
	case SetCPortClockPort:
		return resource.PortClock, true
	case SetCPortReadyPort:
		return resource.PortReady, true
	default:
		return 0, false
	}
}

// SetC implements the SETC resource-control instruction against res, the
// resource named by the instruction's first operand, decoded already by
// the caller (the dispatch loop looks resources up by ResourceID; that
// lookup belongs to the owning core, not to thread). It returns false
// wherever the reference's Thread::setC would return false, leaving the
// caller to decide whether that becomes an ET_ILLEGAL_RESOURCE trap.
//
// Grounded on Thread.cpp's Thread::setC switch; resource in-use toggling
// (SETC_INUSE_*) is accepted only on a Port, matching
// Resource::setCInUse's not-overridden-elsewhere-false default, and no
// SETC value checks whether the resource is in use.
func (t *Thread) SetC(res any, val uint32, time clock.Ticks) bool {
	if val == SetCInUseOff || val == SetCInUseOn {
		if p, ok := res.(*resource.Port); ok {
			return p.SetCInUse(t, val == SetCInUseOn, time)
		}
		return false
	}

	switch val {
	case SetCIEModeEvent, SetCIEModeInterrupt:
		ev, ok := res.(interface {
			SetInterruptMode(t resource.Owner, enable bool)
		})
		if !ok {
			return false
		}
		ev.SetInterruptMode(t, val == SetCIEModeInterrupt)
		return true

	case SetCCondFull, SetCCondAfter, SetCCondEQ, SetCCondNEQ:
		cond, _ := setCCondition(val)
		setter, ok := res.(interface {
			SetCondition(t resource.Owner, c resource.Condition, time clock.Ticks) bool
		})
		if !ok {
			return false
		}
		return setter.SetCondition(t, cond, time)

	case SetCRunStartR, SetCRunStopR:
		cb, ok := res.(*resource.ClockBlock)
		if !ok {
			return false
		}
		if val == SetCRunStartR {
			cb.Start(time)
		} else {
			cb.Stop(time)
		}
		return true

	case SetCMSMaster, SetCMSSlave:
		p, ok := res.(*resource.Port)
		if !ok {
			return false
		}
		p.SetMasterSlave(val == SetCMSMaster)
		return true

	case SetCBufBuffers, SetCBufNoBuffers:
		p, ok := res.(*resource.Port)
		if !ok {
			return false
		}
		p.SetBuffered(val == SetCBufBuffers, p.Width())
		return true

	case SetCRdyNoReady, SetCRdyStrobed, SetCRdyHandshake:
		p, ok := res.(*resource.Port)
		if !ok {
			return false
		}
		mode, _ := portReadyMode(val)
		p.SetReadyMode(mode)
		return true

	case SetCPortDataPort, SetCPortClockPort, SetCPortReadyPort:
		p, ok := res.(*resource.Port)
		if !ok {
			return false
		}
		pt, _ := portType(val)
		p.SetPortType(pt)
		return true

	default:
		return false
	}
}
