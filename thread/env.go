package thread

import (
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/resource"
)

// Env is the per-step view of the owning core an instruction handler
// needs: memory access and resource lookup/allocation. Defined here
// (rather than imported from package core, which imports thread for its
// operand and dispatch types) for the same reason resource.Owner is
// defined in package resource: it lets thread depend only on the shape of
// core's behaviour, never on core itself.
type Env interface {
	AddressTranslator

	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, v uint32)
	ReadHalf(addr uint32) uint16
	WriteHalf(addr uint32, v uint16)
	ReadByte(addr uint32) uint8
	WriteByte(addr uint32, v uint8)

	// ResourceByID looks up a resource allocated anywhere visible to this
	// thread (its own core, or another tile's via a routed chanend) by
	// ResourceID, reporting false if none is currently in use under that
	// id.
	ResourceByID(id resource.ID) (any, bool)

	// AllocResource implements GETR: allocate a free resource of the
	// given type, returning its id.
	AllocResource(t resource.Type) (resource.ID, bool)

	// FreeResource implements FREER.
	FreeResource(id resource.ID) bool

	// GetPS/SetPS implement GETPS/SETPS (§6.4): the four named
	// processor-state registers, reached through a distinct namespace
	// from the general-purpose register file.
	GetPS(r resource.PSRegister) uint32
	SetPS(r resource.PSRegister, v uint32)

	// ResolveChanend resolves a chanend's raw SETD destination to a
	// concrete endpoint: a local chanend if dest names one of this core's
	// own, otherwise whatever the core's attached Router (package node)
	// finds by walking the inter-tile fabric. from is the requesting
	// chanend's own id, carried through for diagnostics/future routing
	// decisions. Reports false (→ LINK_ERROR) if nothing answers for dest.
	ResolveChanend(from, dest resource.ID) (resource.ChanEndpoint, bool)

	// ScheduleResource arms r on the scheduler to run again at time, used
	// when a thread deschedules on a resource.WakeSource (a Timer's
	// COND_AFTER target, or a Port's driving clock block) so its wait
	// condition actually gets re-checked instead of sitting forever
	// (§3: EventableResource is one of the two kinds of Runnable the
	// scheduler drives, not just Thread).
	ScheduleResource(r resource.Runnable, time clock.Ticks)
}
