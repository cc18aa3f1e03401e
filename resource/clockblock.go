package resource

import "github.com/tileforge/tilesim/clock"

// ClockBlock drives the ports attached to it with a shared Signal: either
// the free-running reference clock, or a divided version of a source
// port's pin value. Stopped, it holds ports at a constant level; running
// with a non-zero divide, it produces a fixed-frequency clock of
// half-period divide*(CyclesPerTick/2).
type ClockBlock struct {
	Resource

	source   *Port
	readyIn  *Port
	divide   uint32
	ports    map[*Port]struct{}
	value    clock.Signal
	running  bool
	readyInValue clock.Signal

	scheduleSelf func(Runnable, clock.Ticks)
}

// SetScheduler installs the callback a clock block uses to re-arm itself
// on the scheduler at its next edge while a port attached to it still has
// a thread parked waiting for that edge. Called once by package core when
// constructing a Core's clock-block pool; without it (e.g. in a unit test
// that exercises a ClockBlock directly) Run still drives attached ports'
// Update but cannot chain itself forward.
func (cb *ClockBlock) SetScheduler(f func(Runnable, clock.Ticks)) { cb.scheduleSelf = f }

// Run drives every attached port's Update up to time (letting a port
// paused on IN/OUT observe edges even though no other thread is touching
// it — see Port.applyEdge, which wakes a paused thread directly once its
// condition is met), then re-arms itself at the next edge if any attached
// port is still waiting. This is the clock block's scheduler.Runnable
// step, first invoked at the tick a paused Port's WakeResource reports.
func (cb *ClockBlock) Run(time clock.Ticks) error {
	for p := range cb.ports {
		p.Update(time)
	}
	if cb.scheduleSelf == nil || !cb.running || !cb.value.IsClock() {
		return nil
	}
	for p := range cb.ports {
		if p.isPaused() {
			cb.scheduleSelf(cb, cb.value.GetNextEdge(time).Time)
			break
		}
	}
	return nil
}

// NewClockBlock returns a stopped clock block sourced from the reference
// clock, identified by id.
func NewClockBlock(id ID) *ClockBlock {
	cb := &ClockBlock{ports: make(map[*Port]struct{})}
	cb.Init(id)
	cb.divide = 1
	return cb
}

// SetSource attaches the clock block to a source port's pin value instead
// of the reference clock.
func (cb *ClockBlock) SetSource(p *Port) { cb.source = p }

// SetSourceRefClock switches the clock block back to the free-running
// reference clock.
func (cb *ClockBlock) SetSourceRefClock() { cb.source = nil }

// SetData implements the SETD divide-rate instruction. The divide is
// rejected (returning false) while the clock is running, matching the
// reference's refusal to change a live clock's rate out from under its
// attached ports.
func (cb *ClockBlock) SetData(t Owner, newDivide uint32, time clock.Ticks) bool {
	if cb.running {
		return false
	}
	cb.divide = newDivide
	return true
}

// IsFixedFrequency reports whether the clock block is currently producing
// a free-running clock (as opposed to being stopped, or tracking an
// arbitrary source signal).
func (cb *ClockBlock) IsFixedFrequency() bool { return cb.running && cb.value.IsClock() }

// HalfPeriod returns the half-period, in ticks, of the fixed-frequency
// clock this block produces when running from a divide.
func (cb *ClockBlock) HalfPeriod() uint32 { return cb.divide * uint32(clock.CyclesPerTick/2) }

// AttachPort adds p to the set of ports driven by this clock block.
func (cb *ClockBlock) AttachPort(p *Port) { cb.ports[p] = struct{}{} }

// DetachPort removes p from the set of ports driven by this clock block.
func (cb *ClockBlock) DetachPort(p *Port) { delete(cb.ports, p) }

// SetValue overrides the clock block's current signal directly (used when
// it is sourced from a port pin rather than free-running).
func (cb *ClockBlock) SetValue(v clock.Signal) { cb.value = v }

// Value returns the clock block's current signal.
func (cb *ClockBlock) Value() clock.Signal { return cb.value }

// ValueAt returns the boolean clock level at time.
func (cb *ClockBlock) ValueAt(time clock.Ticks) bool { return cb.value.GetValue(time) != 0 }

// GetEdgeIterator returns an edge iterator over the clock block's signal
// starting after time.
func (cb *ClockBlock) GetEdgeIterator(time clock.Ticks) clock.EdgeIterator {
	return cb.value.GetEdgeIterator(time)
}

// Start begins the clock: if sourced from the reference clock, anchors a
// free-running Signal of the configured divide at time; if sourced from a
// port, the port drives Value via SetValue on each pin change.
func (cb *ClockBlock) Start(time clock.Ticks) {
	cb.running = true
	if cb.source == nil {
		cb.value = clock.NewClock(time, cb.HalfPeriod())
	}
}

// Stop halts the clock, freezing attached ports at the signal's value at
// time.
func (cb *ClockBlock) Stop(time clock.Ticks) {
	if cb.running {
		cb.value = clock.NewConstant(cb.value.GetValue(time))
	}
	cb.running = false
}

// SetReadyInValue records the ready-in port's current signal, consulted by
// attached ports operating in handshake ready mode.
func (cb *ClockBlock) SetReadyInValue(v clock.Signal) { cb.readyInValue = v }

// ReadyInValue returns the most recently recorded ready-in signal.
func (cb *ClockBlock) ReadyInValue() clock.Signal { return cb.readyInValue }
