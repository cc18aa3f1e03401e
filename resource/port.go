package resource

import "github.com/tileforge/tilesim/clock"

// Direction is a port's current data direction.
type Direction uint8

const (
	DirInput Direction = iota
	DirOutput
)

// PortType distinguishes a port's role: carrying data, acting as a
// handshake-ready line for another port, or supplying a clock signal to a
// ClockBlock.
type PortType uint8

const (
	PortData PortType = iota
	PortReady
	PortClock
)

// ReadyMode selects how a port's transfers are gated.
type ReadyMode uint8

const (
	ReadyNone ReadyMode = iota
	ReadyStrobed
	ReadyHandshake
)

// Port is a DecodeCache-independent state machine driven by its clock
// block's edges: a data/shift/transfer register triple, a free-running
// 16-bit counter, and the handshake bookkeeping (ready-mode, paused
// thread pointers) needed to exchange words with the outside world one
// clock edge at a time.
type Port struct {
	EventableResource

	width uint8

	clockBlock *ClockBlock
	direction  Direction
	portType   PortType
	masterSlave bool
	readyMode  ReadyMode
	inverted   bool
	buffered   bool

	transferWidth uint8
	samplingEdge  clock.EdgeType

	data      uint32
	condition Condition

	transferReg      uint32
	transferRegValid bool

	shiftReg           uint32
	validShiftRegEntries uint8

	timeReg      uint16
	timeRegValid bool

	portCounter uint16

	readyOut map[*Port]struct{}

	pausedOut  Owner
	pausedIn   Owner
	pausedSync Owner

	lastUpdate clock.Ticks
	pinValue   uint32
}

// NewPort returns an input, unbuffered, 1-bit-transfer data port of the
// given bit width with no clock block attached (held at a constant 0
// until one is).
func NewPort(id ID, width uint8) *Port {
	p := &Port{width: width, transferWidth: 1, readyOut: make(map[*Port]struct{})}
	p.InitEventable(id, p)
	return p
}

// Width returns the port's bit width.
func (p *Port) Width() uint8 { return p.width }

func (p *Port) seeEventEnable(time clock.Ticks) bool {
	return p.conditionMet(p.data)
}

// SetClockBlock attaches the clock block that drives this port's edges.
func (p *Port) SetClockBlock(cb *ClockBlock) {
	if p.clockBlock != nil {
		p.clockBlock.DetachPort(p)
	}
	p.clockBlock = cb
	if cb != nil {
		cb.AttachPort(p)
	}
}

// SetCInUse implements the port in-use toggle: ports are always
// addressable, but turning them "in use" as a data resource resets their
// transfer state and makes them eventable.
func (p *Port) SetCInUse(t Owner, val bool, time clock.Ticks) bool {
	p.EventableSetInUse(t, val)
	if val {
		p.transferRegValid = false
		p.validShiftRegEntries = 0
		p.timeRegValid = false
	}
	return true
}

// SetCondition implements SETC COND on a port.
func (p *Port) SetCondition(t Owner, c Condition, time clock.Ticks) bool {
	p.updateOwner(t)
	p.condition = c
	return true
}

// SetData implements the port's data-register write (also the compare
// value for COND_EQ/COND_NEQ).
func (p *Port) SetData(t Owner, value uint32, time clock.Ticks) bool {
	p.updateOwner(t)
	p.data = value
	return true
}

// SetReady always returns false: a port accepts no ready-in source. A
// ClockBlock records its ready-in signal through SetReadyInValue instead.
func (p *Port) SetReady(Owner, *Port, clock.Ticks) bool { return false }

func (p *Port) conditionMet(word uint32) bool {
	switch p.condition {
	case CondFull:
		return true
	case CondAfter:
		return p.timeRegValid && int16(uint16(p.portCounter)-p.timeReg) > 0
	case CondEQ:
		return word == p.data
	case CondNEQ:
		return word != p.data
	default:
		return false
	}
}

func (p *Port) maskWord(v uint32) uint32 {
	if p.width >= 32 {
		return v
	}
	return v & ((1 << p.width) - 1)
}

// Update advances the port's internal state machine across every clock
// edge after its last-updated time, up to and including time: the portCounter
// increments on every falling edge while the port is an in-use data port,
// and transfers occur on the configured sampling edge subject to
// condition-met and (when buffered) the shift register's fill level.
func (p *Port) Update(time clock.Ticks) {
	if p.clockBlock == nil || !p.IsInUse() || p.portType != PortData {
		p.lastUpdate = time
		return
	}
	it := p.clockBlock.GetEdgeIterator(p.lastUpdate)
	for it.Edge().Time <= time {
		p.applyEdge(it.Edge())
		it = it.Next()
	}
	p.lastUpdate = time
}

func (p *Port) applyEdge(e clock.Edge) {
	if e.Type == clock.Falling {
		p.portCounter++
	}
	if e.Type != p.samplingEdge {
		return
	}
	switch p.direction {
	case DirOutput:
		p.doOutputTransfer(e.Time)
	case DirInput:
		p.doInputTransfer(e.Time)
	}
}

func (p *Port) doOutputTransfer(time clock.Ticks) {
	if p.validShiftRegEntries == 0 {
		return
	}
	p.validShiftRegEntries--
	p.pinValue = p.maskWord(p.shiftReg)
	if p.validShiftRegEntries == 0 && p.transferRegValid {
		p.shiftReg = p.transferReg
		p.validShiftRegEntries = p.transferWidth
		p.transferRegValid = false
		if p.pausedOut != nil {
			owner := p.pausedOut
			p.pausedOut = nil
			owner.Take(p, time, p.IsInterruptMode())
		}
	}
	if p.pausedSync != nil && p.validShiftRegEntries == 0 {
		owner := p.pausedSync
		p.pausedSync = nil
		owner.Take(p, time, p.IsInterruptMode())
	}
}

func (p *Port) doInputTransfer(time clock.Ticks) {
	p.shiftReg = p.pinValue
	if p.pausedIn != nil && p.conditionMet(p.shiftReg) {
		owner := p.pausedIn
		p.pausedIn = nil
		owner.Take(p, time, p.IsInterruptMode())
	}
}

// In implements the IN instruction: reads the current shift-register word
// if the port's condition is met, otherwise deschedules the thread until
// it is.
func (p *Port) In(owner Owner, time clock.Ticks) (uint32, OpResult) {
	p.updateOwner(owner)
	p.Update(time)
	word := p.maskWord(p.shiftReg)
	if p.conditionMet(word) {
		return word, Continue
	}
	p.pausedIn = owner
	return 0, Deschedule
}

// Out implements the OUT instruction: queues value for transfer on the
// next sampling edge, descheduling the thread if the shift register has
// no room.
func (p *Port) Out(owner Owner, value uint32, time clock.Ticks) OpResult {
	p.updateOwner(owner)
	p.Update(time)
	if p.validShiftRegEntries != 0 && p.transferRegValid {
		p.pausedOut = owner
		p.transferReg = value
		return Deschedule
	}
	if p.validShiftRegEntries == 0 {
		p.shiftReg = value
		p.validShiftRegEntries = p.transferWidth
	} else {
		p.transferReg = value
		p.transferRegValid = true
	}
	return Continue
}

// SetPortTime implements the SETPT instruction, arming COND_AFTER against
// the given portCounter target.
func (p *Port) SetPortTime(owner Owner, t uint16) {
	p.updateOwner(owner)
	p.timeReg = t
	p.timeRegValid = true
}

// PortCounter returns the port's free-running 16-bit counter value.
func (p *Port) PortCounter() uint16 { return p.portCounter }

// SetDirection sets the port's data direction.
func (p *Port) SetDirection(d Direction) { p.direction = d }

// SetPortType sets whether the port carries data, acts as a ready line, or
// supplies a clock.
func (p *Port) SetPortType(t PortType) { p.portType = t }

// SetBuffered toggles buffered transfer mode and the associated transfer
// width (1 when unbuffered).
func (p *Port) SetBuffered(buffered bool, transferWidth uint8) {
	p.buffered = buffered
	if !buffered {
		transferWidth = 1
	}
	p.transferWidth = transferWidth
}

// SetMasterSlave sets the port's clock mastership for handshake/strobed
// transfers.
func (p *Port) SetMasterSlave(master bool) { p.masterSlave = master }

// SetReadyMode selects how the port's transfers are gated.
func (p *Port) SetReadyMode(m ReadyMode) { p.readyMode = m }

// SetInverted toggles pin-value inversion.
func (p *Port) SetInverted(inv bool) { p.inverted = inv }

// SetSamplingEdge selects which clock edge samples/drives the port.
func (p *Port) SetSamplingEdge(e clock.EdgeType) { p.samplingEdge = e }

// PeekPins returns the port's current externally-visible pin value
// (post-inversion), without consuming a clock edge.
func (p *Port) PeekPins() uint32 {
	v := p.maskWord(p.pinValue)
	if p.inverted {
		v = p.maskWord(^v)
	}
	return v
}

// SetPins drives value directly onto the port's pins, used by an
// attached input source (e.g. another simulated peripheral) between
// clock edges.
func (p *Port) SetPins(value uint32) { p.pinValue = p.maskWord(value) }

// AddReadyOut attaches another port as a ready-out observer of this one.
func (p *Port) AddReadyOut(out *Port) { p.readyOut[out] = struct{}{} }

// RemoveReadyOut detaches a ready-out observer.
func (p *Port) RemoveReadyOut(out *Port) { delete(p.readyOut, out) }

// isPaused reports whether any thread is currently parked on this port.
func (p *Port) isPaused() bool {
	return p.pausedIn != nil || p.pausedOut != nil || p.pausedSync != nil
}

// WakeResource implements WakeSource: a port's own readiness is driven
// entirely by its clock block's edges (Update, called from applyEdge), so
// the Runnable to re-invoke is the clock block itself, at its next edge
// after time. ok is false if the port is not presently driven by a
// running clock (nothing would ever make it ready).
func (p *Port) WakeResource(time clock.Ticks) (Runnable, clock.Ticks, bool) {
	if p.clockBlock == nil || !p.clockBlock.running || !p.clockBlock.value.IsClock() {
		return nil, 0, false
	}
	return p.clockBlock, p.clockBlock.value.GetNextEdge(time).Time, true
}

// Cancel abandons any paused thread on this port (used when the owning
// thread is killed by MJOIN/exception unwind).
func (p *Port) Cancel() {
	p.pausedIn = nil
	p.pausedOut = nil
	p.pausedSync = nil
}
