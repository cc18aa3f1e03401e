package core

import (
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/decode"
	"github.com/tileforge/tilesim/jit"
	"github.com/tileforge/tilesim/scheduler"
	"github.com/tileforge/tilesim/thread"
)

// jitThreshold is the execution-frequency count that promotes a
// decode-cache slot to a compiled fragment (§4.3: "reference: 128").
const jitThreshold = decode.ExecutionFrequency(128)

// maxFragmentLength bounds how many instructions a single JIT compile
// walks forward before giving up and ending the trace anyway, so a
// branch-free run of straight-line code (which this simulator's
// representative opcode set allows, e.g. a long chain of 3r ops) cannot
// make a single compile pass unbounded.
const maxFragmentLength = 64

// threadRunnable adapts a Thread to scheduler.Runnable: the scheduler
// only ever holds threadRunnables, never *thread.Thread directly, so a
// Thread (which has no Run method of its own — see thread.go) can still
// be "the Runnable a Core drives". One is allocated per thread at Core
// construction and reused for the thread's entire lifetime.
type threadRunnable struct {
	core   *Core
	thread *thread.Thread
}

// Thread returns the underlying thread a threadRunnable wraps, so a
// caller holding a scheduler.Runnable recovered from a
// scheduler.BreakpointError/WatchpointError (e.g. package boot or
// package system) can recover the thread that trapped without package
// core exposing threadRunnable itself. See RunnableThread below.
func (r *threadRunnable) Thread() *thread.Thread { return r.thread }

// Core returns the core that owns this runnable's thread, so a caller
// holding only a scheduler.Runnable can recover which Core to read
// registers/memory from.
func (r *threadRunnable) Core() *Core { return r.core }

// Run implements the dispatch loop of §4.2/§4.3/§4.4: fetch the
// decode-cache slot at the thread's pc, dispatch it, and keep looping
// until the thread blocks on a resource (StepYield), is killed
// (MJOIN's SyncKill path freeing the thread mid-trace), hits a
// breakpoint/watchpoint, or its time slice expires.
func (r *threadRunnable) Run(time clock.Ticks) error {
	c, t := r.core, r.thread
	c.executing = t
	defer func() { c.executing = nil }()

	for {
		idx := int(t.PC())
		if idx < 0 || idx >= c.cache.NumSlots() {
			t.SetPC(t.Exception(c, t.PC(), thread.ExceptionIllegalPC, 0))
			continue
		}

		if addr := c.cache.PC(idx); c.breakpoints[addr] {
			return scheduler.BreakpointError{Time: t.Time(), Thread: r}
		}

		slot := c.cache.Slot(idx)
		var result jit.StepResult

		switch slot.Opcode {
		case decode.Decode:
			c.decodeAt(idx)
			continue

		case decode.IllegalPC, decode.IllegalPCThread:
			t.SetPC(t.Exception(c, t.PC(), thread.ExceptionIllegalPC, 0))
			continue

		case decode.RunJIT:
			start := t.PendingPC()
			frag := c.jitMgr.Lookup(start)
			if frag == nil {
				frag = c.compileFragment(t, start)
			}
			t.SetPC(start)
			result = frag.Run()

		case decode.InterpretOne:
			pc := t.PendingPC()
			t.SetPC(pc)
			one := c.cache.Slot(int(pc))
			result = t.Step(c, thread.Opcode(one.Opcode), one.Operands)

		default:
			op := thread.Opcode(slot.Opcode)
			result = t.Step(c, op, slot.Operands)
			if isBranchCapable(op) {
				if freq := c.cache.Bump(idx); freq == jitThreshold {
					t.SetPendingPC(uint32(idx))
					t.SetPC(uint32(c.cache.RunJITSlot()))
				}
			}
		}

		if c.watchHit {
			c.watchHit = false
			return scheduler.WatchpointError{Time: t.Time(), Thread: r}
		}

		if !t.IsInUse() {
			// MJOIN killed this thread mid-trace (SyncKill): the
			// synchroniser has already disposed of it; the handler has
			// "already managed scheduling" per §4.2, so this Runnable
			// simply stops without re-queuing itself.
			return nil
		}

		if result == jit.StepYield {
			// Deschedule: the resource the thread blocked on owns
			// rescheduling it once its wait condition clears (§5).
			return nil
		}

		if c.sched.HasEarlierThan(t.Time()) {
			t.Schedule()
			return nil
		}
	}
}

// decodeAt runs the decode-cache's first-execution path for the
// real slot at idx: read the raw encoding from memory, resolve it to an
// Opcode/Operands pair, and install it in place of the Decode sentinel
// (§4.3 step 4/5). Control returns to the dispatch loop (END_TRACE) so
// the freshly installed handler runs on the very next iteration.
func (c *Core) decodeAt(idx int) {
	addr := c.cache.PC(idx)
	c.decodeRaw(idx, addr)
}

// isBranchCapable reports whether op is one of the instructions §4.3's
// execution-frequency heuristic counts toward JIT promotion ("after each
// branch-capable instruction").
func isBranchCapable(op thread.Opcode) bool {
	switch op {
	case thread.OpBru, thread.OpBrf, thread.OpBrb, thread.OpBla, thread.OpBl:
		return true
	}
	return false
}

// compileFragment implements §4.5's compilation algorithm against this
// simulator's closure-chain backend (see DESIGN.md/SPEC_FULL.md §4.5):
// walk forward from start decoding (if necessary) and chaining one
// jit.Step per instruction until a branch-capable instruction is
// included or the fragment length bound is hit, then install the result.
func (c *Core) compileFragment(t *thread.Thread, start uint32) *jit.Fragment {
	steps := make([]jit.Step, 0, 8)
	idx := start
	for len(steps) < maxFragmentLength {
		if int(idx) >= c.cache.NumSlots() {
			break
		}
		slot := c.cache.Slot(int(idx))
		if slot.Opcode == decode.Decode {
			c.decodeAt(int(idx))
			slot = c.cache.Slot(int(idx))
		}
		if slot.Opcode < 0 {
			// Ran into a pseudo-slot (illegal PC) while walking forward;
			// stop the trace here rather than compiling across it.
			break
		}
		op := thread.Opcode(slot.Opcode)
		steps = append(steps, t.CompileStep(c, op, slot.Operands))
		idx++
		if isBranchCapable(op) {
			break
		}
	}
	if len(steps) == 0 {
		// Nothing compilable at start (§4.5 step 1: "Abort if length=0");
		// fall back to a fragment that just re-enters normal dispatch.
		steps = append(steps, func() jit.StepResult { return jit.StepEndTrace })
		idx = start + 1
	}
	return c.jitMgr.Install(start, idx-1, steps)
}
