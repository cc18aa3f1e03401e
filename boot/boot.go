// Package boot implements C11: the BootSequencer that assembles a
// runnable image set across one or more tiles. §1 places ELF/XE image
// *parsing* out of scope; this package consumes an already-parsed
// ImageLoader collaborator and owns only the ordering described in
// spec.md §4.7 — {load image, set PC, schedule, run} — plus the
// host-syscall breakpoint wiring (§6.2) that makes a RunStep able to
// service PRINTC/EXIT/... without the interpreter itself knowing
// anything about the host.
//
// Grounded on atari2600.Init (_examples/jmchacon-6502/atari2600/atari2600.go):
// a struct-of-config constructor that validates its inputs and wires
// several sub-components together step by step. A BootSequencer
// generalizes that single "wire it all up, then go" constructor into an
// explicit, re-runnable list of steps, since this spec's boot sequence
// (unlike wiring one VCS) can run in several stages (SPI boot priming
// ROM before RAM, multi-tile images, ...).
package boot

import (
	"github.com/pkg/errors"

	"github.com/tileforge/tilesim/core"
	"github.com/tileforge/tilesim/hostsyscall"
	"github.com/tileforge/tilesim/resource"
	"github.com/tileforge/tilesim/scheduler"
	"github.com/tileforge/tilesim/thread"
)

// Segment is one loadable program segment, as an already-parsed ELF
// loader contract (§6.3) would hand back.
type Segment struct {
	// PAddr is the segment's physical load address.
	PAddr uint32
	Data  []byte
}

// ImageLoader is the external ELF/XE-image collaborator. Parsing the
// image file itself is out of scope (§1/§6.3); this package only needs
// to enumerate the result.
type ImageLoader interface {
	// LoadableSegments returns every PT_LOAD-equivalent segment in load
	// order.
	LoadableSegments() []Segment
	// Entry returns the image's preferred entry address, or ok=false if
	// the image carries none (§6.3: "else ramBase").
	Entry() (addr uint32, ok bool)
	// Symbol resolves a global symbol name to an address, used to find
	// _DoSyscall/_DoException (§4.7). ok=false if the image carries no
	// such symbol (common for a ROM image with no syscall ABI at all).
	Symbol(name string) (addr uint32, ok bool)
}

// bpKind distinguishes the two breakpoint purposes a RunStep installs on
// behalf of an ElfStep, from an ordinary driver-set debugger breakpoint.
type bpKind int

const (
	bpNone bpKind = iota
	bpSyscall
	bpException
)

// Step is one ordered action a Sequencer executes.
type Step interface {
	apply(seq *Sequencer) error
}

// ElfStep loads an image's segments into a core's RAM and/or schedules
// thread 0 at the image's entry point, per §4.7.
type ElfStep struct {
	Core        *core.Core
	Image       ImageLoader
	LoadImage   bool
	UseElfEntry bool

	// entryOverride, when non-nil, replaces UseElfEntry's computed PC —
	// set by SetEntryPointToRom for SPI-boot simulation.
	entryOverride *uint32
}

func (s *ElfStep) apply(seq *Sequencer) error {
	if s.LoadImage {
		for _, seg := range s.Image.LoadableSegments() {
			if err := s.Core.LoadSegment(seg.PAddr, seg.Data); err != nil {
				return errors.Wrap(err, "boot: ElfStep")
			}
		}
		if addr, ok := s.Image.Symbol("_DoSyscall"); ok {
			s.Core.SetBreakpoint(addr)
			seq.setBPKind(s.Core, addr, bpSyscall)
		}
		if addr, ok := s.Image.Symbol("_DoException"); ok {
			s.Core.SetBreakpoint(addr)
			seq.setBPKind(s.Core, addr, bpException)
		}
	}
	if s.UseElfEntry {
		pc := s.Core.RAMBase()
		if s.entryOverride != nil {
			pc = *s.entryOverride
		} else if addr, ok := s.Image.Entry(); ok && s.Core.IsValidAddress(addr) {
			pc = addr
		}
		scheduleThread0(s.Core, pc)
	}
	return nil
}

// ScheduleStep schedules thread 0 on Core at a fixed address, independent
// of any image — e.g. resuming a known ROM routine after a prior stage.
type ScheduleStep struct {
	Core    *core.Core
	Address uint32
}

func (s *ScheduleStep) apply(seq *Sequencer) error {
	scheduleThread0(s.Core, s.Address)
	return nil
}

func scheduleThread0(c *core.Core, addr uint32) {
	t := c.Thread(0)
	t.Alloc(0)
	t.SetPC(c.SlotIndex(addr))
	c.ScheduleThread(t)
}

// RunStep invokes the scheduler's run loop, servicing this sequence's own
// Syscall/Exception breakpoints transparently and returning control to
// the Sequencer only on a genuine stop: the image's required DONE count
// is reached, EXIT is called, an Exception breakpoint reports a fault,
// the queue drains naturally, or any other StopReason (timeout, a
// debugger's own breakpoint/watchpoint) surfaces.
type RunStep struct {
	NumDoneSyscalls int

	doneCount int
}

func (s *RunStep) apply(seq *Sequencer) error {
	res, err := seq.runOne(s)
	seq.lastResult = res
	return err
}

// Sequencer holds an ordered list of boot Steps and the shared state
// (breakpoint classification, syscall dispatcher, per-step DONE count)
// their execution needs.
type Sequencer struct {
	sched      *scheduler.Scheduler
	dispatcher *hostsyscall.Dispatcher
	steps      []Step

	bpKind map[*core.Core]map[uint32]bpKind
	lastResult scheduler.Result
}

// New returns a Sequencer driving sched, dispatching host syscalls
// against fs (nil is fine for ROM-only images that never trap).
func New(sched *scheduler.Scheduler, fs *hostsyscall.FileSystem) *Sequencer {
	return &Sequencer{
		sched:      sched,
		dispatcher: hostsyscall.NewDispatcher(fs),
		bpKind:     make(map[*core.Core]map[uint32]bpKind),
	}
}

// Add appends steps to the sequence.
func (seq *Sequencer) Add(steps ...Step) { seq.steps = append(seq.steps, steps...) }

func (seq *Sequencer) setBPKind(c *core.Core, addr uint32, kind bpKind) {
	m := seq.bpKind[c]
	if m == nil {
		m = make(map[uint32]bpKind)
		seq.bpKind[c] = m
	}
	m[addr] = kind
}

func (seq *Sequencer) kindAt(c *core.Core, addr uint32) bpKind {
	m := seq.bpKind[c]
	if m == nil {
		return bpNone
	}
	return m[addr]
}

// EraseAllButLastImage drops every ElfStep/RunStep pair but the last,
// simulating an SPI-boot image set that only ever primes the final
// stage directly (§4.7 utility pass "eraseAllButLastImage").
func (seq *Sequencer) EraseAllButLastImage() {
	lastElf, lastRun := -1, -1
	for i, s := range seq.steps {
		switch s.(type) {
		case *ElfStep:
			lastElf = i
		case *RunStep:
			lastRun = i
		}
	}
	var kept []Step
	for i, s := range seq.steps {
		switch s.(type) {
		case *ElfStep:
			if i == lastElf {
				kept = append(kept, s)
			}
		case *RunStep:
			if i == lastRun {
				kept = append(kept, s)
			}
		default:
			kept = append(kept, s)
		}
	}
	seq.steps = kept
}

// SetEntryPointToRom re-routes every ElfStep's scheduled PC to its
// core's ROM base (RAMBase, in this single-flat-region model — §9's
// "mirror the if-in-RAM check precisely" policy treats the boot-config
// register, not a separate ROM array, as the authority here) and flips
// the BOOT_CONFIG processor-state bit recording that choice.
func (seq *Sequencer) SetEntryPointToRom() {
	for _, s := range seq.steps {
		es, ok := s.(*ElfStep)
		if !ok {
			continue
		}
		base := es.Core.RAMBase()
		es.entryOverride = &base
		es.Core.SetPS(resource.PSBootConfig, es.Core.GetPS(resource.PSBootConfig)|1)
	}
}

// SetLoadImages(false) disables every ElfStep's RAM-priming pass (images
// are already resident, e.g. re-running after an external loader already
// wrote RAM) while leaving entry-point scheduling intact.
func (seq *Sequencer) SetLoadImages(load bool) {
	for _, s := range seq.steps {
		if es, ok := s.(*ElfStep); ok {
			es.LoadImage = load
		}
	}
}

// Run executes every step in order, returning the scheduler.Result of
// the last RunStep to run (or a zero Result if the sequence held none).
func (seq *Sequencer) Run() (scheduler.Result, error) {
	for _, s := range seq.steps {
		if err := s.apply(seq); err != nil {
			return seq.lastResult, err
		}
		if _, ok := s.(*RunStep); ok && isTerminal(seq.lastResult) {
			return seq.lastResult, nil
		}
	}
	return seq.lastResult, nil
}

// isTerminal reports whether a RunStep's result should end the whole
// sequence rather than fall through to the next step (e.g. a second
// image load for a later boot stage).
func isTerminal(res scheduler.Result) bool {
	switch res.Reason {
	case scheduler.Exit, scheduler.Timeout, scheduler.Breakpoint, scheduler.Watchpoint:
		return true
	default:
		return false
	}
}

// runOne drives the scheduler until a terminal condition for this
// RunStep is reached, transparently resuming past this sequence's own
// Syscall/Exception breakpoints.
func (seq *Sequencer) runOne(s *RunStep) (scheduler.Result, error) {
	for {
		res := seq.sched.Run()
		if res.Reason != scheduler.Breakpoint {
			return res, nil
		}
		t, ok := core.ThreadOf(res.Thread)
		if !ok {
			return res, nil
		}
		c, ok := core.CoreOf(res.Thread)
		if !ok {
			return res, nil
		}
		addr := c.TargetPC(t.PC())
		switch seq.kindAt(c, addr) {
		case bpSyscall:
			exitRes, done, err := seq.serviceSyscall(s, c, t)
			if err != nil {
				return res, err
			}
			if exitRes != nil {
				return *exitRes, nil
			}
			if done {
				return scheduler.Result{Reason: scheduler.NoRunnableThreads, Time: res.Time}, nil
			}
			c.ResumeAfterBreakpoint(t)
		case bpException:
			return res, errors.Errorf(
				"boot: unhandled exception on %s thread %d: et=%d ed=%#x",
				c.Name(), t.ResourceID().Num(), t.Reg(thread.ET), t.Reg(thread.ED))
		default:
			// Not one of ours: a debugger's own breakpoint. Propagate.
			return res, nil
		}
	}
}

// serviceSyscall dispatches one host syscall trapped at _DoSyscall and
// reports whether this RunStep is now complete (EXIT called, or enough
// DONEs seen). For EXIT it also returns the Exit result the RunStep ends
// with.
func (seq *Sequencer) serviceSyscall(s *RunStep, c *core.Core, t *thread.Thread) (*scheduler.Result, bool, error) {
	sel := hostsyscall.Selector(t.Reg(thread.R0))
	exitReq, err := seq.dispatcher.Dispatch(sel, threadRegs{t, c}, coreMem{c})
	if err != nil {
		return nil, false, errors.Wrap(err, "boot: RunStep syscall dispatch")
	}
	if exitReq == nil {
		return nil, false, nil
	}
	if exitReq.IsDone {
		s.doneCount++
		return nil, s.doneCount >= s.NumDoneSyscalls, nil
	}
	// EXIT always ends the RunStep, regardless of DONE count.
	return &scheduler.Result{Reason: scheduler.Exit, Status: exitReq.Status, Time: t.Time()}, true, nil
}

// threadRegs adapts a (*thread.Thread, *core.Core) pair to
// hostsyscall.Registers.
type threadRegs struct {
	t *thread.Thread
	c *core.Core
}

func (r threadRegs) Arg(n int) uint32 {
	switch n {
	case 0:
		return r.t.Reg(thread.R0)
	case 1:
		return r.t.Reg(thread.R1)
	case 2:
		return r.t.Reg(thread.R2)
	case 3:
		return r.t.Reg(thread.R3)
	default:
		return 0
	}
}

func (r threadRegs) SetReturn(v uint32) { r.t.SetReg(thread.R0, v) }

func (r threadRegs) RaiseException(et, ed uint32) {
	newPC := r.t.Exception(r.c, r.t.PC(), thread.ExceptionType(et), ed)
	r.t.SetPC(newPC)
}

// coreMem adapts *core.Core to hostsyscall.Memory.
type coreMem struct{ c *core.Core }

func (m coreMem) ReadBytes(addr uint32, n int) []byte { return m.c.ReadBytes(addr, n) }
func (m coreMem) WriteBytes(addr uint32, data []byte) { m.c.WriteBytes(addr, data) }
