// Package core implements a single tile's processor core: its RAM (code
// and data sharing one byte-addressed region), its self-rewriting decode
// cache, its JIT manager, its fixed pool of hardware-managed resources,
// and the thread dispatch loop that drives them all through the
// scheduler. A core on its own runs a single tile's instruction streams;
// package node wires several cores together through a switch fabric.
package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/decode"
	"github.com/tileforge/tilesim/jit"
	"github.com/tileforge/tilesim/resource"
	"github.com/tileforge/tilesim/scheduler"
	"github.com/tileforge/tilesim/thread"
	"github.com/tileforge/tilesim/trace"
)

// Pool sizes for a core's fixed-size resource arrays. A real xCore tile's
// resource counts are themselves fixed in hardware; these mirror that
// rather than growing dynamically.
const (
	NumThreads      = 8
	NumTimers       = 8
	NumChanends     = 32
	NumSyncs        = 8
	NumLocks        = 8
	NumClockBlocks  = 4
)

// Router resolves a channel end ResourceID that does not belong to this
// core to a destination ChanEndpoint reachable through the switch fabric.
// Implemented by package node; a core with no router attached can still
// run entirely self-contained programs that only ever talk to their own
// chanends.
type Router interface {
	Resolve(from resource.ID, dest resource.ID) (resource.ChanEndpoint, bool)
}

// Core is one tile's processor: RAM, decode cache, JIT manager, resource
// pools and the threads that execute against them.
type Core struct {
	name   string
	number int

	// coreID is this tile's 16-bit address in the node-field namespace a
	// chanend/config ResourceID carries: its owning node's id combined with
	// this core's local number, per §4.6 (set by package node when wiring
	// a Core into a Node; zero for a core running standalone).
	coreID uint16

	sched *scheduler.Scheduler
	trace *trace.Tracer
	router Router

	ramBase uint32
	mem     []byte
	cache   *decode.Cache
	jitMgr  *jit.Manager

	// operandPool backs the compact raw instruction encoding (see
	// encode.go): a decoded instruction's full operand packet, addressed
	// by a single byte index embedded in the 2-byte in-memory encoding.
	operandPool []decode.Operands

	threads      [NumThreads]*thread.Thread
	timers       [NumTimers]*resource.Timer
	chanends     [NumChanends]*resource.Chanend
	syncs        [NumSyncs]*resource.Synchroniser
	locks        [NumLocks]*resource.Lock
	clockBlocks  [NumClockBlocks]*resource.ClockBlock
	ports        map[resource.ID]*resource.Port

	ps map[resource.PSRegister]uint32

	breakpoints map[uint32]bool
	watchpoints map[uint32]bool
	watchHit    bool
	executing   *thread.Thread

	runnables map[*thread.Thread]*threadRunnable
}

// New returns a Core named name whose RAM spans [ramBase, ramBase+ramSize)
// and is driven by sched. ramSize must be a multiple of 2 (decode.Cache's
// halfword granularity).
func New(name string, number int, sched *scheduler.Scheduler, ramBase, ramSize uint32) *Core {
	c := &Core{
		name:    name,
		number:  number,
		sched:   sched,
		ramBase: ramBase,
		mem:     make([]byte, ramSize),
		cache:   decode.New(ramBase, ramSize),
		ports:   make(map[resource.ID]*resource.Port),
		ps:      make(map[resource.PSRegister]uint32),
		breakpoints: make(map[uint32]bool),
		watchpoints: make(map[uint32]bool),
	}
	c.jitMgr = jit.NewManager(int(ramSize/2) + 4)
	c.ps[resource.PSRamBase] = ramBase
	c.ps[resource.PSVectorBase] = ramBase

	c.runnables = make(map[*thread.Thread]*threadRunnable, NumThreads)
	for i := range c.threads {
		c.threads[i] = thread.New(resource.ThreadID(uint8(i)), c)
		c.runnables[c.threads[i]] = &threadRunnable{core: c, thread: c.threads[i]}
	}
	for i := range c.timers {
		c.timers[i] = resource.NewTimer(resource.TimerID(uint8(i)))
	}
	for i := range c.chanends {
		c.chanends[i] = resource.NewChanend(resource.ChanendID(uint8(i), 0))
	}
	for i := range c.syncs {
		c.syncs[i] = resource.NewSynchroniser(resource.SyncID(uint8(i)))
	}
	for i := range c.locks {
		c.locks[i] = resource.NewLock(resource.LockID(uint8(i)))
	}
	for i := range c.clockBlocks {
		c.clockBlocks[i] = resource.NewClockBlock(resource.ClockBlockID(uint8(i)))
		c.clockBlocks[i].SetScheduler(func(r resource.Runnable, t clock.Ticks) { c.sched.Push(r, t) })
	}
	return c
}

// Name returns the core's diagnostic name (e.g. "tile[0]").
func (c *Core) Name() string { return c.name }

// Number returns the core's index within its owning node.
func (c *Core) Number() int { return c.number }

// SetTracer attaches (or clears, with nil) an instruction/event tracer.
func (c *Core) SetTracer(tr *trace.Tracer) { c.trace = tr }

// SetRouter attaches the inter-tile channel router used to resolve
// chanend destinations that do not belong to this core.
func (c *Core) SetRouter(r Router) { c.router = r }

// SetCoreID records this tile's node-field address, assigned by package
// node when the core is wired into a Node.
func (c *Core) SetCoreID(id uint16) { c.coreID = id }

// CoreID returns this tile's node-field address.
func (c *Core) CoreID() uint16 { return c.coreID }

// Scheduler returns the shared scheduler this core's threads and timers
// run on.
func (c *Core) Scheduler() *scheduler.Scheduler { return c.sched }

// Cache returns the core's decode cache, exposed for boot-time image
// loading and tests.
func (c *Core) Cache() *decode.Cache { return c.cache }

// Thread returns the core's thread at index i (0-based).
func (c *Core) Thread(i int) *thread.Thread { return c.threads[i] }

// SetBreakpoint arms a breakpoint at the given byte address.
func (c *Core) SetBreakpoint(addr uint32) { c.breakpoints[addr] = true }

// ClearBreakpoint disarms a breakpoint at the given byte address.
func (c *Core) ClearBreakpoint(addr uint32) { delete(c.breakpoints, addr) }

// SetWatchpoint arms a watchpoint on writes to the given byte address.
func (c *Core) SetWatchpoint(addr uint32) { c.watchpoints[addr] = true }

// ClearWatchpoint disarms a watchpoint at the given byte address.
func (c *Core) ClearWatchpoint(addr uint32) { delete(c.watchpoints, addr) }

// ResumeAfterBreakpoint re-queues t to retry the instruction a breakpoint
// just trapped through the INTERPRET_ONE pseudo-slot (§7), so the retry
// does not immediately re-trip the same breakpoint, then restores normal
// dispatch for the instruction after it.
func (c *Core) ResumeAfterBreakpoint(t *thread.Thread) {
	t.SetPendingPC(t.PC())
	t.SetPC(uint32(c.cache.InterpretOneSlot()))
	c.ScheduleThread(t)
}

// --- thread.Parent ---

func (c *Core) RAMBase() uint32 { return c.ps[resource.PSRamBase] }

// TargetPC converts a decode-cache slot index to the absolute byte
// address it corresponds to, used when capturing SPC on an
// exception/event.
func (c *Core) TargetPC(pc uint32) uint32 { return c.cache.PC(int(pc)) }

// SlotIndex converts an absolute byte address into the decode-cache slot
// index thread.Thread.PC expects, the inverse of TargetPC. Used by
// package boot to schedule a thread at an image's entry point or a fixed
// ROM address, both expressed as byte addresses.
func (c *Core) SlotIndex(addr uint32) uint32 { return uint32(c.cache.Index(addr)) }

// PhysicalAddress resolves a register value already holding an absolute
// byte address (as produced by LDAP) to the address exception/event
// vectoring uses; this core has a single flat region, so the register
// value already is that address.
func (c *Core) PhysicalAddress(reg uint32) uint32 { return reg }

// IsValidAddress reports whether addr names a halfword within this
// core's RAM region.
func (c *Core) IsValidAddress(addr uint32) bool { return c.cache.Contains(addr) }

// ScheduleThread enqueues t on the shared scheduler at its own time. The
// scheduler holds threadRunnable wrappers, never *thread.Thread directly
// (see dispatch.go), so this looks the thread's wrapper up in the core's
// fixed runnables table rather than pushing t itself.
func (c *Core) ScheduleThread(t *thread.Thread) { c.sched.Push(c.runnables[t], t.Time()) }

// ExecutingThread returns the thread this core is currently dispatching,
// or nil between instructions/while another core's thread runs.
func (c *Core) ExecutingThread() *thread.Thread { return c.executing }

// ScheduleResource implements thread.Env: arms r on the shared scheduler
// at time, the same Push the scheduler holds every Thread and Timeout
// through (see ScheduleThread above).
func (c *Core) ScheduleResource(r resource.Runnable, time clock.Ticks) { c.sched.Push(r, time) }

// --- thread.Env ---

// memOffset translates an absolute byte address into this core's own mem
// slice, which is always indexed from 0 regardless of RAM_BASE (§6.4: the
// RAM_BASE processor-state register is settable at runtime via SETPS, so
// c.mem's index and a thread-visible address are not interchangeable once
// it is non-zero — LoadSegment already made this same subtraction).
func (c *Core) memOffset(addr uint32) uint32 { return addr - c.ps[resource.PSRamBase] }

func (c *Core) ReadWord(addr uint32) uint32 {
	off := c.memOffset(addr)
	return uint32(c.mem[off]) | uint32(c.mem[off+1])<<8 |
		uint32(c.mem[off+2])<<16 | uint32(c.mem[off+3])<<24
}

func (c *Core) WriteWord(addr uint32, v uint32) {
	off := c.memOffset(addr)
	c.mem[off] = byte(v)
	c.mem[off+1] = byte(v >> 8)
	c.mem[off+2] = byte(v >> 16)
	c.mem[off+3] = byte(v >> 24)
	c.invalidateRange(addr, 4)
	c.checkWatch(addr, 4)
}

func (c *Core) ReadHalf(addr uint32) uint16 {
	off := c.memOffset(addr)
	return uint16(c.mem[off]) | uint16(c.mem[off+1])<<8
}

func (c *Core) WriteHalf(addr uint32, v uint16) {
	off := c.memOffset(addr)
	c.mem[off] = byte(v)
	c.mem[off+1] = byte(v >> 8)
	c.invalidateRange(addr, 2)
	c.checkWatch(addr, 2)
}

func (c *Core) ReadByte(addr uint32) uint8 { return c.mem[c.memOffset(addr)] }

func (c *Core) WriteByte(addr uint32, v uint8) {
	c.mem[c.memOffset(addr)] = v
	c.invalidateRange(addr, 1)
	c.checkWatch(addr, 1)
}

// checkWatch marks watchHit if any byte in [addr, addr+n) carries a
// watchpoint, so dispatch.go's Run loop can stop the owning thread at the
// current instruction boundary with a WatchpointError.
func (c *Core) checkWatch(addr uint32, n uint32) {
	for a := addr; a < addr+n; a++ {
		if c.watchpoints[a] {
			c.watchHit = true
			return
		}
	}
}

// invalidateRange resets every decode-cache slot and JIT fragment
// touching [addr, addr+n), implementing self-modifying code: a store into
// the code region forces the next execution at that address to re-decode
// from memory, matching the reference's invalidateWord/Short/Byte fast
// path against the decode cache it shares with the interpreter.
func (c *Core) invalidateRange(addr uint32, n uint32) {
	lo := addr &^ 1
	for a := lo; a < addr+n; a += 2 {
		if !c.cache.Contains(a) {
			continue
		}
		idx := uint32(c.cache.Index(a))
		c.cache.Invalidate(a)
		c.jitMgr.Invalidate(idx)
	}
}

// ResourceByID resolves id to the concrete resource it names, searching
// this core's own pools first and, for chanends this core does not own,
// falling through the attached router (set by package node).
func (c *Core) ResourceByID(id resource.ID) (any, bool) {
	switch id.Type() {
	case resource.TypeThread:
		if int(id.Num()) < len(c.threads) {
			return c.threads[id.Num()], true
		}
	case resource.TypeTimer:
		if int(id.Num()) < len(c.timers) {
			return c.timers[id.Num()], true
		}
	case resource.TypeChanend:
		if int(id.Num()) < len(c.chanends) {
			return c.chanends[id.Num()], true
		}
	case resource.TypeSync:
		if int(id.Num()) < len(c.syncs) {
			return c.syncs[id.Num()], true
		}
	case resource.TypeLock:
		if int(id.Num()) < len(c.locks) {
			return c.locks[id.Num()], true
		}
	case resource.TypeClkBlk:
		if int(id.Num()) < len(c.clockBlocks) {
			return c.clockBlocks[id.Num()], true
		}
	case resource.TypePort:
		if p, ok := c.ports[id]; ok {
			return p, true
		}
	}
	return nil, false
}

// ResolveChanend implements thread.Env's chanend-destination resolution
// (§4.6's getChanendDest): a dest naming one of this core's own chanends
// resolves directly; anything else falls through to the attached Router
// (package node), or fails if this core has none (a core running outside
// any Node can only ever talk to its own chanends).
func (c *Core) ResolveChanend(from, dest resource.ID) (resource.ChanEndpoint, bool) {
	if dest.IsChanend() && dest.Node() == c.coreID {
		if int(dest.Num()) < len(c.chanends) {
			return c.chanends[dest.Num()], true
		}
		return nil, false
	}
	if c.router == nil {
		return nil, false
	}
	return c.router.Resolve(from, dest)
}

// AllocResource implements GETR: finds a free (not-in-use) resource of
// the given type in this core's fixed pool and marks it allocated.
func (c *Core) AllocResource(t resource.Type) (resource.ID, bool) {
	switch t {
	case resource.TypeTimer:
		for _, r := range c.timers {
			if !r.IsInUse() {
				r.SetInUse(true)
				return r.ID(), true
			}
		}
	case resource.TypeChanend:
		for _, r := range c.chanends {
			if !r.IsInUse() {
				r.SetInUse(true)
				return r.ID(), true
			}
		}
	case resource.TypeSync:
		for _, r := range c.syncs {
			if !r.IsInUse() {
				r.SetInUse(true)
				return r.ID(), true
			}
		}
	case resource.TypeLock:
		for _, r := range c.locks {
			if !r.IsInUse() {
				r.SetInUse(true)
				return r.ID(), true
			}
		}
	case resource.TypeClkBlk:
		for _, r := range c.clockBlocks {
			if !r.IsInUse() {
				r.SetInUse(true)
				return r.ID(), true
			}
		}
	}
	return 0, false
}

// FreeResource implements FREER: releases the resource named by id back
// to its pool. A resource with bookkeeping of its own to unwind on free
// (Synchroniser) defines Free() bool; every other resource (Timer,
// Chanend, Lock, ClockBlock, Port) has none, so falls back to simply
// clearing its in-use flag.
func (c *Core) FreeResource(id resource.ID) bool {
	v, ok := c.ResourceByID(id)
	if !ok {
		return false
	}
	type freer interface{ Free() bool }
	if f, ok := v.(freer); ok {
		return f.Free()
	}
	type inUseSetter interface{ SetInUse(bool) }
	if s, ok := v.(inUseSetter); ok {
		s.SetInUse(false)
		return true
	}
	return false
}

// AllocPort creates (or returns the existing) port of the given width and
// number, matching the reference's lazily-materialised port table: ports
// are addressed by a (width, num) pair baked into their ID rather than
// drawn from a fixed pool, since a tile's wired-up port set is a property
// of the board, not something GETR allocates at runtime.
func (c *Core) AllocPort(num, width uint8) *resource.Port {
	id := resource.PortID(num, width)
	if p, ok := c.ports[id]; ok {
		return p
	}
	p := resource.NewPort(id, width)
	c.ports[id] = p
	return p
}

func (c *Core) String() string {
	return fmt.Sprintf("core(%s)", c.name)
}

// GetPS reads a processor-state register.
func (c *Core) GetPS(r resource.PSRegister) uint32 { return c.ps[r] }

// SetPS writes a processor-state register. Per §6.4, writing RAM_BASE
// invalidates the decode cache and every compiled JIT fragment: the
// self-modifying-code invariants both maintain are only valid for the
// window they were built against.
func (c *Core) SetPS(r resource.PSRegister, v uint32) {
	c.ps[r] = v
	if r == resource.PSRamBase {
		c.cache.Reset()
		c.jitMgr.InvalidateAll()
	}
}

var _ thread.Parent = (*Core)(nil)
var _ thread.Env = (*Core)(nil)

// RunnableThread is implemented by the scheduler.Runnable values this
// package hands the scheduler (threadRunnable): a package that only sees
// the opaque Runnable interface back from a scheduler.Result (package
// boot, package system) can recover the concrete thread and owning core
// that trapped without this package exposing threadRunnable itself.
type RunnableThread interface {
	Thread() *thread.Thread
	Core() *Core
}

// ThreadOf recovers the thread wrapped by a scheduler.Runnable this
// package produced, or ok=false if r did not come from this package
// (e.g. it is a scheduler.Timeout).
func ThreadOf(r scheduler.Runnable) (*thread.Thread, bool) {
	rt, ok := r.(RunnableThread)
	if !ok {
		return nil, false
	}
	return rt.Thread(), true
}

// CoreOf recovers the Core owning the thread wrapped by a
// scheduler.Runnable this package produced, or ok=false otherwise.
func CoreOf(r scheduler.Runnable) (*Core, bool) {
	rt, ok := r.(RunnableThread)
	if !ok {
		return nil, false
	}
	return rt.Core(), true
}

// RAMSize returns the number of bytes in this core's RAM region.
func (c *Core) RAMSize() uint32 { return uint32(len(c.mem)) }

// InRAM reports whether [addr, addr+n) lies entirely within this core's
// RAM region.
func (c *Core) InRAM(addr, n uint32) bool {
	base := c.ps[resource.PSRamBase]
	if addr < base {
		return false
	}
	end := uint64(addr) + uint64(n)
	return end <= uint64(base)+uint64(len(c.mem))
}

// LoadSegment copies data into RAM starting at addr, bounds-checked
// against this core's RAM region (§6 ELF loader contract: "loads
// PT_LOAD segments whose paddr+memsz lies entirely within core RAM;
// abort simulation with an error otherwise"). Used by package boot's
// ElfStep rather than routing through WriteByte, since priming a fresh
// image has nothing to invalidate yet and no watchpoint should fire
// from the load itself.
func (c *Core) LoadSegment(addr uint32, data []byte) error {
	if !c.InRAM(addr, uint32(len(data))) {
		return errors.Errorf("core %s: segment at %#x size %d does not fit in RAM [%#x, %#x)",
			c.name, addr, len(data), c.ps[resource.PSRamBase], c.ps[resource.PSRamBase]+uint32(len(c.mem)))
	}
	off := addr - c.ps[resource.PSRamBase]
	copy(c.mem[off:], data)
	return nil
}

// ReadBytes reads n bytes starting at addr, for collaborators (the host
// syscall dispatcher, a debugger's readMemory) that need a byte slice
// rather than the fixed-width Read{Byte,Half,Word} accessors.
func (c *Core) ReadBytes(addr uint32, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = c.ReadByte(addr + uint32(i))
	}
	return buf
}

// WriteBytes writes data starting at addr, through WriteByte so decode
// cache invalidation and watchpoints behave exactly as a sequence of
// single-byte stores would.
func (c *Core) WriteBytes(addr uint32, data []byte) {
	for i, b := range data {
		c.WriteByte(addr+uint32(i), b)
	}
}
