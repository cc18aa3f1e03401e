package resource

import "github.com/tileforge/tilesim/clock"

// Owner is the subset of thread.Thread behaviour an EventableResource
// needs in order to track ownership, honour the thread's event/interrupt
// enable bits, and deliver events or interrupts. Defined here (rather than
// imported from package thread) so that resource does not depend on
// thread; thread.Thread implements this interface and resource depends
// only on the interface, never the concrete type.
type Owner interface {
	// ResourceID returns the owning thread's own RES_TYPE_THREAD id.
	ResourceID() ID

	// Time returns the thread's current simulated time.
	Time() clock.Ticks
	// SetTime forces the thread's simulated time forward, used when a
	// resource (lock, synchroniser) hands off control at a time later
	// than the thread's own.
	SetTime(clock.Ticks)
	// AdvancePC steps the thread's pc past the instruction that
	// descheduled it (IN on a lock, SSYNC, ...), so execution resumes
	// after rather than re-issuing it.
	AdvancePC()
	// Schedule re-enqueues the thread onto the scheduler at its current
	// Time.
	Schedule()
	// SetSSync records whether the thread is currently paused inside an
	// SSYNC/MSYNC wait, consulted by the thread's own dispatch loop.
	SetSSync(bool)
	// Free releases the thread's own RES_TYPE_THREAD resource, used when
	// a synchroniser MJOIN kills a child thread.
	Free() bool

	// EEBLE and IEBLE report the thread's event-enable and
	// interrupt-enable status register bits.
	EEBLE() bool
	IEBLE() bool

	// RAMBase returns the owning core's RAM_BASE PS register value, used
	// to reconstruct a truncated event-vector environment.
	RAMBase() uint32

	// IsExecuting reports whether this thread is the one the scheduler is
	// currently running (as opposed to descheduled/waiting).
	IsExecuting() bool

	AddEventEnabledResource(r Eventable)
	RemoveEventEnabledResource(r Eventable)
	AddInterruptEnabledResource(r Eventable)
	RemoveInterruptEnabledResource(r Eventable)

	// Take delivers res's event/interrupt immediately: sets ED from
	// res.TruncatedEV, sets pc to res.Vector(), advances time, and
	// reschedules the thread. Called when the thread is not currently
	// executing.
	Take(res Eventable, time clock.Ticks, isInterrupt bool)

	// SetPending records res's event/interrupt as pending against the
	// thread currently executing; it is taken at the next CheckEvent
	// point (normally instruction retire).
	SetPending(res Eventable, time clock.Ticks, isInterrupt bool)
}

// Eventable is the polymorphic view of an EventableResource that package
// thread's intrusive event/interrupt lists and Owner.Take/SetPending
// operate on.
type Eventable interface {
	ID() ID
	Vector() uint32
	TruncatedEV(ramBase uint32) uint32
	IsInterruptMode() bool

	// EventDisable clears the eventsEnabled flag without touching owner,
	// used when a thread tears down its enabled-resource list wholesale.
	EventDisable(thread Owner)

	// SeeOwnerEventEnable reports whether the resource's event condition
	// is already true at time, without delivering it. The owning thread
	// calls this (never the resource's own package) when re-evaluating
	// its enabled-resource lists after an SR bit flips on, e.g. from
	// SETSR or at thread allocation.
	SeeOwnerEventEnable(time clock.Ticks) bool

	Next() Eventable
	SetNext(e Eventable)
	Prev() Eventable
	SetPrev(e Eventable)
}

// selfEventable is the combination of the public Eventable view and the
// "is the event condition already true" hook each concrete resource
// supplies, standing in for the reference's pure virtual seeEventEnable.
// Both interfaces are implemented by the concrete resource type that
// embeds EventableResource (Port, Timer, Chanend, ...), all of which live
// in this package, so the unexported method is reachable.
type selfEventable interface {
	Eventable
	seeEventEnable(time clock.Ticks) bool
}

// EventableResource is the common base for Port, Timer, Chanend and
// Synchroniser-adjacent resources that can raise an event or interrupt on
// their owning thread: a vector/environment pair, the event and interrupt
// enable flags, the current owner, and the intrusive list links used by
// Owner's enabled-resource lists.
type EventableResource struct {
	Resource

	self selfEventable

	vector        uint32
	ev            uint32
	eventsEnabled bool
	interruptMode bool
	owner         Owner

	next, prev Eventable
}

// InitEventable wires the base's ID and its self-reference (the concrete
// resource embedding this struct, used to reach seeEventEnable). Concrete
// constructors must call this before use.
func (e *EventableResource) InitEventable(id ID, self selfEventable) {
	e.Resource.Init(id)
	e.self = self
}

func (e *EventableResource) Vector() uint32 { return e.vector }

func (e *EventableResource) IsInterruptMode() bool { return e.interruptMode }

// SeeOwnerEventEnable forwards to the concrete resource's seeEventEnable,
// the public wrapper the owning thread uses to test (without delivering)
// whether this resource would currently fire.
func (e *EventableResource) SeeOwnerEventEnable(time clock.Ticks) bool {
	return e.self.seeEventEnable(time)
}

// TruncatedEV returns the environment value to load into ED on event
// delivery. If EV was never set away from the resource's own ID, it is
// returned verbatim; otherwise only its bottom 16 bits survive, OR'd with
// the owning core's RAM_BASE, matching the reference's getTruncatedEV.
func (e *EventableResource) TruncatedEV(ramBase uint32) uint32 {
	if e.ev == uint32(e.ID()) {
		return e.ev
	}
	return (e.ev & 0xffff) | ramBase
}

func (e *EventableResource) Next() Eventable      { return e.next }
func (e *EventableResource) SetNext(n Eventable)  { e.next = n }
func (e *EventableResource) Prev() Eventable      { return e.prev }
func (e *EventableResource) SetPrev(p Eventable)  { e.prev = p }

func (e *EventableResource) Owner() Owner { return e.owner }

func (e *EventableResource) updateOwner(t Owner) {
	if e.owner == t {
		return
	}
	e.updateOwnerAux(t)
}

func (e *EventableResource) updateOwnerAux(t Owner) {
	if e.eventsEnabled {
		if e.interruptMode {
			e.owner.RemoveInterruptEnabledResource(e.self)
			t.AddInterruptEnabledResource(e.self)
		} else {
			e.owner.RemoveEventEnabledResource(e.self)
			t.AddEventEnabledResource(e.self)
		}
	}
	e.owner = t
}

func (e *EventableResource) clearOwner() {
	if e.owner == nil {
		return
	}
	if e.eventsEnabled {
		if e.interruptMode {
			e.owner.RemoveInterruptEnabledResource(e.self)
		} else {
			e.owner.RemoveEventEnabledResource(e.self)
		}
	}
	e.owner = nil
}

// SetVector implements the SETV instruction.
func (e *EventableResource) SetVector(t Owner, v uint32) {
	e.updateOwner(t)
	e.vector = v
}

// SetEV implements the SETEV instruction.
func (e *EventableResource) SetEV(t Owner, ev uint32) {
	e.updateOwner(t)
	e.ev = ev
}

// SetInterruptMode implements the SETC interrupt/event mode switch.
func (e *EventableResource) SetInterruptMode(t Owner, enable bool) {
	e.updateOwner(t)
	if enable == e.interruptMode {
		return
	}
	if e.eventsEnabled {
		if e.interruptMode {
			e.owner.RemoveInterruptEnabledResource(e.self)
			e.owner.AddEventEnabledResource(e.self)
		} else {
			e.owner.RemoveEventEnabledResource(e.self)
			e.owner.AddInterruptEnabledResource(e.self)
		}
	}
	e.interruptMode = enable
	if e.EventsPermitted() && e.self.seeEventEnable(t.Time()) {
		e.Event(t.Time())
	}
}

// EventsPermitted reports whether this resource is currently allowed to
// raise an event or interrupt: it must have an owner, events must be
// enabled on it, and the owner's matching global enable bit (EEBLE for
// events, IEBLE for interrupts) must be set.
func (e *EventableResource) EventsPermitted() bool {
	if e.owner == nil {
		return false
	}
	if !e.eventsEnabled {
		return false
	}
	if e.interruptMode {
		return e.owner.IEBLE()
	}
	return e.owner.EEBLE()
}

// Event raises the resource's event/interrupt: delivered immediately if
// the owner is not currently executing, otherwise marked pending so the
// owner picks it up at its next CheckEvent point. The caller must have
// already verified EventsPermitted.
func (e *EventableResource) Event(time clock.Ticks) {
	if e.owner.IsExecuting() {
		e.owner.SetPending(e.self, time, e.interruptMode)
		return
	}
	e.owner.Take(e.self, time, e.interruptMode)
}

// EventDisable implements the SETC event/interrupt-disable instruction.
func (e *EventableResource) EventDisable(t Owner) {
	if e.eventsEnabled {
		if e.interruptMode {
			e.owner.RemoveInterruptEnabledResource(e.self)
		} else {
			e.owner.RemoveEventEnabledResource(e.self)
		}
	}
	e.eventsEnabled = false
	e.updateOwner(t)
}

// EventEnable implements the EEU/SETC event-enable instruction.
func (e *EventableResource) EventEnable(t Owner) {
	e.updateOwner(t)
	if !e.eventsEnabled {
		if e.interruptMode {
			e.owner.AddInterruptEnabledResource(e.self)
		} else {
			e.owner.AddEventEnabledResource(e.self)
		}
	}
	e.eventsEnabled = true
	if e.EventsPermitted() && e.self.seeEventEnable(e.owner.Time()) {
		e.Event(e.owner.Time())
	}
}

// CheckEvent re-evaluates whether the resource can fire right now. Thread
// dispatch calls this for every event/interrupt-enabled resource it owns
// whenever it becomes the currently-executing thread with events unmasked.
func (e *EventableResource) CheckEvent() bool {
	if e.EventsPermitted() && e.self.seeEventEnable(e.owner.Time()) {
		e.Event(e.owner.Time())
		return true
	}
	return false
}

// EventableSetInUseOn turns the resource on for thread t: resets its
// vector/EV/enable state to power-on defaults and takes ownership.
func (e *EventableResource) EventableSetInUseOn(t Owner) {
	if e.IsInUse() {
		e.clearOwner()
	}
	e.vector = 0
	e.ev = uint32(e.ID())
	e.eventsEnabled = false
	e.interruptMode = false
	e.owner = t
	e.Resource.SetInUse(true)
}

// EventableSetInUseOff turns the resource off, releasing ownership.
func (e *EventableResource) EventableSetInUseOff() {
	if !e.IsInUse() {
		return
	}
	e.clearOwner()
	e.Resource.SetInUse(false)
}

// EventableSetInUse implements the SETC thread-in-use toggle.
func (e *EventableResource) EventableSetInUse(t Owner, val bool) {
	if val {
		e.EventableSetInUseOn(t)
	} else {
		e.EventableSetInUseOff()
	}
}
