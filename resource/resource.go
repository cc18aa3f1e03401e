package resource

import "github.com/tileforge/tilesim/clock"

// Condition is a wait condition a thread can attach to a resource via a
// SETC instruction (COND_FULL etc.).
type Condition uint8

const (
	CondFull Condition = iota
	CondAfter
	CondEQ
	CondNEQ
)

func (c Condition) String() string {
	switch c {
	case CondFull:
		return "FULL"
	case CondAfter:
		return "AFTER"
	case CondEQ:
		return "EQ"
	case CondNEQ:
		return "NEQ"
	default:
		return "UNKNOWN"
	}
}

// OpResult is the outcome of an IN or OUT operation on a resource: either
// it completed (CONTINUE), it blocked the issuing thread (DESCHEDULE), or
// the operation is not legal for this resource in its current state
// (ILLEGAL, which the thread turns into a LINK_ERROR exception).
type OpResult int

const (
	Continue OpResult = iota
	Deschedule
	Illegal
)

// Resource is the state shared by every hardware-managed resource: whether
// it has been allocated (turned on with a SETC/INSHR-style "in use"
// instruction) and its resource ID.
type Resource struct {
	inUse bool
	id    ID
}

// Init sets (or resets) the resource's ID. Concrete resource constructors
// call this once.
func (r *Resource) Init(id ID) { r.id = id }

// IsInUse reports whether the resource is currently allocated.
func (r *Resource) IsInUse() bool { return r.inUse }

// SetInUse updates the in-use flag directly. Most resources instead route
// allocation through Alloc/Free or EventableSetInUse, which also manage
// ownership; this is exposed for resources with simpler on/off
// semantics.
func (r *Resource) SetInUse(val bool) { r.inUse = val }

// ID returns the resource's identifier.
func (r *Resource) ID() ID { return r.id }

// Type returns the resource's type, taken from its ID.
func (r *Resource) Type() Type { return r.id.Type() }

// Num returns the resource's number, taken from its ID.
func (r *Resource) Num() uint8 { return r.id.Num() }

// SetNum updates the number field of the resource's ID.
func (r *Resource) SetNum(v uint8) { r.id = r.id.WithNum(v) }

// SetNode updates the node field of the resource's ID. Valid only for
// chanend and config resources.
func (r *Resource) SetNode(v uint16) { r.id = r.id.WithNode(v) }

// SetWidth updates the width field of the resource's ID. Valid only for
// ports.
func (r *Resource) SetWidth(v uint8) { r.id = r.id.WithWidth(v) }

// TypeName returns a human-readable name for the resource's type, for use
// in diagnostics (link/illegal-resource error messages).
func TypeName(t Type) string {
	switch t {
	case TypePort:
		return "port"
	case TypeTimer:
		return "timer"
	case TypeChanend:
		return "channel end"
	case TypeSync:
		return "synchroniser"
	case TypeThread:
		return "thread"
	case TypeLock:
		return "lock"
	case TypeClkBlk:
		return "clock block"
	case TypePS:
		return "processor state"
	case TypeConfig:
		return "config"
	default:
		return "unknown resource"
	}
}

// Runnable is the scheduler-facing shape of a resource whose own Run
// method needs driving again at a future tick. Defined locally, matching
// scheduler.Runnable's method set exactly, rather than importing package
// scheduler: a resource only ever needs to be handed back to whatever
// pushed it (package core), never to drive the scheduler itself.
type Runnable interface {
	Run(time clock.Ticks) error
}

// WakeSource is implemented by a resource whose paused-thread wakeup
// depends on time passing rather than on a peer thread's own resource
// access: a Timer waiting on its COND_AFTER target, or a Port waiting on
// its driving ClockBlock's next edge. WakeResource reports which
// Runnable the scheduler should invoke, and at which tick, to make
// progress toward the condition the paused thread is waiting on.
// Resources that only ever wake a paused thread directly from a peer's
// own IN/OUT/SSYNC (Chanend, Lock, Synchroniser) do not implement this.
type WakeSource interface {
	WakeResource(time clock.Ticks) (r Runnable, wake clock.Ticks, ok bool)
}

// InOut is the subset of Resource behaviour the thread dispatch loop
// drives directly: the IN/OUT operand-carrying instructions.
type InOut interface {
	In(owner Owner, time clock.Ticks) (value uint32, result OpResult)
	Out(owner Owner, value uint32, time clock.Ticks) OpResult
}

// Base implements InOut's illegal-by-default behaviour so concrete
// resources that don't support IN or OUT need not redeclare it.
type Base struct{ Resource }

func (Base) In(Owner, clock.Ticks) (uint32, OpResult)     { return 0, Illegal }
func (Base) Out(Owner, uint32, clock.Ticks) OpResult      { return Illegal }
func (Base) SetCondition(Owner, Condition, clock.Ticks) bool { return false }
func (Base) SetData(Owner, uint32, clock.Ticks) bool         { return false }
func (Base) Alloc(Owner) bool                                { return false }
func (Base) Free() bool                                      { return false }
func (Base) Cancel()                                         {}
