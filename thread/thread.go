package thread

import (
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/resource"
)

// Parent is the subset of the owning core's behaviour a Thread needs
// without importing package core (which imports thread): the PS RAM_BASE
// register, pc translation for trace/exception register capture, the
// scheduler's enqueue operation, and "who is currently executing".
type Parent interface {
	RAMBase() uint32
	TargetPC(pc uint32) uint32
	PhysicalAddress(reg uint32) uint32
	IsValidAddress(addr uint32) bool
	ScheduleThread(t *Thread)
	ExecutingThread() *Thread
}

// cancellable is satisfied by every resource a thread may be paused on
// that has a Cancel method (Synchroniser, Timer, Chanend, Port); pausing on
// one and then having the pause cancelled out from under it (a takeEvent
// racing a blocked IN/OUT) must unwind the resource's own wait-queue
// bookkeeping. Lock has no Cancel method, so a pause on a lock is not
// unwound this way.
type cancellable interface{ Cancel() }

type pendingEvent struct {
	res       resource.Eventable
	set       bool
	interrupt bool
	time      clock.Ticks
}

// Thread is one hardware thread's architectural state: its registers, SR,
// program counter, and the bookkeeping needed to take part in the
// event/interrupt model as a resource.Owner.
type Thread struct {
	resource.Resource

	parent Parent

	regs [NumRegisters]uint32
	pc   uint32
	time clock.Ticks
	sr   StatusRegister

	// pendingPc holds the real pc while one of the pseudo dispatch slots
	// (RunJIT/InterpretOne/...) is executing on this thread's behalf.
	pendingPc uint32

	ssync      bool
	sync       *resource.Synchroniser
	pausedOn   cancellable
	pending    pendingEvent

	eventEnabledResources     resource.Eventable
	interruptEnabledResources resource.Eventable
}

// New returns a Thread bound to parent, powered off (not in use).
func New(id resource.ID, parent Parent) *Thread {
	t := &Thread{parent: parent}
	t.Resource.Init(id)
	return t
}

// Reg returns the value of register r.
func (t *Thread) Reg(r Register) uint32 { return t.regs[r] }

// SetReg writes register r.
func (t *Thread) SetReg(r Register, v uint32) { t.regs[r] = v }

// PC returns the thread's cached program counter (a decode-cache slot
// index, valid only while the thread is not the one currently executing;
// the reference's own comment on Thread::pc applies equally here).
func (t *Thread) PC() uint32 { return t.pc }

// SetPC sets the cached program counter.
func (t *Thread) SetPC(pc uint32) { t.pc = pc }

// PendingPC returns the real pc saved while a pseudo dispatch slot
// (RunJIT/InterpretOne/...) runs on this thread's behalf.
func (t *Thread) PendingPC() uint32 { return t.pendingPc }

// SetPendingPC saves pc for later restoration by a pseudo dispatch slot.
func (t *Thread) SetPendingPC(pc uint32) { t.pendingPc = pc }

// SR returns the status register.
func (t *Thread) SR() StatusRegister { return t.sr }

// Waiting reports whether the thread is parked (descheduled, waiting on
// an event or a blocked resource operation).
func (t *Thread) Waiting() bool { return t.sr.Test(WAITING) }

// PausedOn returns the resource the thread is currently blocked on, if
// any (used by the resource's own Cancel-on-timeout bookkeeping).
func (t *Thread) PausedOn() cancellable { return t.pausedOn }

// Alloc powers the thread on at the given time, matching Thread::alloc:
// SSYNC state starts true (a freshly allocated thread is, in effect,
// already synchronised with nobody) and any previous pause is cleared.
func (t *Thread) Alloc(time clock.Ticks) {
	t.Resource.SetInUse(true)
	t.sync = nil
	t.ssync = true
	t.time = time
	t.pausedOn = nil
}

// SetSync records the synchroniser group this thread belongs to for the
// duration of one SYNC/MJOIN; asserting it is unset first matches the
// reference's "Synchroniser set twice" invariant.
func (t *Thread) SetSync(s *resource.Synchroniser) {
	if t.sync != nil {
		panic("synchroniser set twice")
	}
	t.sync = s
}

// Sync returns the thread's current synchroniser group, or nil.
func (t *Thread) Sync() *resource.Synchroniser { return t.sync }

// InSSync reports whether the thread is currently inside an SSYNC/MSYNC
// wait.
func (t *Thread) InSSync() bool { return t.ssync }

// --- resource.Owner ---

func (t *Thread) ResourceID() resource.ID { return t.Resource.ID() }

func (t *Thread) Time() clock.Ticks    { return t.time }
func (t *Thread) SetTime(tm clock.Ticks) { t.time = tm }

// AdvancePC steps the thread past the single-halfword instruction that
// descheduled it, so it resumes after rather than re-issuing it, once
// whatever it was waiting on completes.
func (t *Thread) AdvancePC() { t.pc++ }

// AdvanceTime moves the thread's own clock forward by n ticks, matching
// §3/§4.4's "each normal instruction advances the executing thread's time
// by INSTRUCTION_CYCLES" (and the long-latency variants DIV/REM and the
// RETSP fnop name their own n instead).
func (t *Thread) AdvanceTime(n clock.Ticks) { t.time += n }

// Retire advances past the current instruction and charges it the
// default per-instruction cost in one call, for the common case where an
// opcode handler neither branches nor has a non-default cost.
func (t *Thread) Retire() {
	t.AdvancePC()
	t.AdvanceTime(clock.InstructionTicks)
}

// Schedule re-enqueues the thread at its current Time, matching
// SystemState::schedule: clears WAITING and any recorded pause.
func (t *Thread) Schedule() {
	t.sr.Set(WAITING, false)
	t.pausedOn = nil
	t.parent.ScheduleThread(t)
}

func (t *Thread) SetSSync(v bool) { t.ssync = v }

// Free releases the thread's own RES_TYPE_THREAD resource, used when an
// MJOIN kills a child thread outright.
func (t *Thread) Free() bool {
	t.Resource.SetInUse(false)
	return true
}

func (t *Thread) EEBLE() bool { return t.sr.Test(EEBLE) }
func (t *Thread) IEBLE() bool { return t.sr.Test(IEBLE) }

func (t *Thread) RAMBase() uint32 { return t.parent.RAMBase() }

func (t *Thread) IsExecuting() bool { return t.parent.ExecutingThread() == t }

func (t *Thread) AddEventEnabledResource(r resource.Eventable) {
	addEventable(&t.eventEnabledResources, r)
}
func (t *Thread) RemoveEventEnabledResource(r resource.Eventable) {
	removeEventable(&t.eventEnabledResources, r)
}
func (t *Thread) AddInterruptEnabledResource(r resource.Eventable) {
	addEventable(&t.interruptEnabledResources, r)
}
func (t *Thread) RemoveInterruptEnabledResource(r resource.Eventable) {
	removeEventable(&t.interruptEnabledResources, r)
}

// Take delivers res's event/interrupt to this (currently non-executing)
// thread immediately: cancel whatever it was paused on, reschedule it,
// then latch the event into its registers and pc.
func (t *Thread) Take(res resource.Eventable, time clock.Ticks, isInterrupt bool) {
	t.time = time
	if t.sr.Test(WAITING) {
		if t.pausedOn != nil {
			t.pausedOn.Cancel()
			t.pausedOn = nil
		}
		t.Schedule()
	}
	t.completeEvent(res, isInterrupt)
}

// SetPending records res's event/interrupt as pending against this
// (currently executing) thread; it is taken at the next TakeEvent call,
// normally at instruction retire. A new event replaces an already-pending
// one only if it is due strictly earlier.
func (t *Thread) SetPending(res resource.Eventable, time clock.Ticks, isInterrupt bool) {
	if t.pending.set && t.pending.time <= time {
		return
	}
	t.pending = pendingEvent{res: res, set: true, interrupt: isInterrupt, time: time}
}

// HasPendingEvent reports whether SetPending has queued an event this
// thread has not yet taken.
func (t *Thread) HasPendingEvent() bool { return t.pending.set }

// TakeEvent delivers this thread's own queued pending event, matching the
// dispatch loop's TAKE_EVENT step.
func (t *Thread) TakeEvent() {
	if t.time < t.pending.time {
		t.time = t.pending.time
	}
	t.sr.Set(WAITING, false)
	t.completeEvent(t.pending.res, t.pending.interrupt)
	t.pending.set = false
}

// completeEvent latches an event or interrupt delivery into the thread's
// registers and sets pc to the resource's vector, matching
// SystemState::completeEvent plus EventableResource::completeEvent.
func (t *Thread) completeEvent(res resource.Eventable, interrupt bool) {
	if interrupt {
		t.regs[SSR] = t.sr.Uint32()
		t.regs[SPC] = t.parent.TargetPC(t.pc)
		t.regs[SED] = t.regs[ED]
		t.sr.Set(IEBLE, false)
		t.sr.Set(ININT, true)
		t.sr.Set(INK, true)
	} else {
		t.sr.Set(INENB, false)
	}
	t.sr.Set(EEBLE, false)
	t.regs[ED] = res.TruncatedEV(t.parent.RAMBase())
	t.pc = res.Vector()
}

// SetSR applies a full new SR in one step (the SETSR instruction) and
// reports whether doing so surfaced a pending event the dispatch loop
// must now take via TakeEvent.
func (t *Thread) SetSR(value StatusRegister) bool {
	newlyEnabled := value & (t.sr ^ value)
	t.sr = value
	if !newlyEnabled.Test(EEBLE) && !newlyEnabled.Test(IEBLE) {
		return false
	}
	return t.setSRSlowPath(newlyEnabled)
}

// EnableEvents is the EEU-style convenience used to turn on EEBLE alone.
func (t *Thread) EnableEvents() bool {
	next := t.sr
	next.Set(EEBLE, true)
	return t.SetSR(next)
}

func (t *Thread) setSRSlowPath(enabled StatusRegister) bool {
	if enabled.Test(EEBLE) {
		for r := t.eventEnabledResources; r != nil; r = r.Next() {
			if r.SeeOwnerEventEnable(t.time) {
				return true
			}
		}
	}
	if enabled.Test(IEBLE) {
		for r := t.interruptEnabledResources; r != nil; r = r.Next() {
			if r.SeeOwnerEventEnable(t.time) {
				return true
			}
		}
	}
	return false
}

// Clre implements CLRE: disables events, clears INENB and walks the
// event-enabled list telling every resource on it to forget this thread
// had events enabled (without changing the resource's owner).
func (t *Thread) Clre() {
	t.sr.Set(EEBLE, false)
	t.sr.Set(INENB, false)
	for r := t.eventEnabledResources; r != nil; r = r.Next() {
		r.EventDisable(t)
	}
}

// addEventable and removeEventable implement the reference's intrusive
// EventableResourceList::add/remove against the Next/Prev links every
// Eventable resource carries.
func addEventable(head *resource.Eventable, r resource.Eventable) {
	r.SetNext(*head)
	r.SetPrev(nil)
	if *head != nil {
		(*head).SetPrev(r)
	}
	*head = r
}

func removeEventable(head *resource.Eventable, r resource.Eventable) {
	if r.Prev() != nil {
		r.Prev().SetNext(r.Next())
	} else {
		*head = r.Next()
	}
	if r.Next() != nil {
		r.Next().SetPrev(r.Prev())
	}
}
