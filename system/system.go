// Package system implements the Driver API (§6): the handful of entry
// points an external debugger/CLI driver uses to assemble a System out
// of Nodes and Cores, load and run firmware, and inspect/mutate
// simulation state between runs. XML config parsing and ELF/XE image
// parsing are both out of scope (§1); this package's Config is the
// programmatic "struct of knobs" such a parser would populate, mirroring
// the teacher's ChipDef/VCSDef "config struct passed to Init" idiom
// (_examples/jmchacon-6502/atari2600/atari2600.go's VCSDef).
package system

import (
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/core"
	"github.com/tileforge/tilesim/node"
	"github.com/tileforge/tilesim/resource"
	"github.com/tileforge/tilesim/scheduler"
	"github.com/tileforge/tilesim/thread"
	"github.com/tileforge/tilesim/trace"
)

// CoreConfig describes one tile's RAM window, the only per-core config
// this package's core.New needs (resource pool sizes are fixed, per
// core.NumThreads et al.).
type CoreConfig struct {
	Name    string
	RAMBase uint32
	RAMSize uint32
}

// LinkConfig wires an XLink from FromNode in the given Direction slot
// (the bit position §4.6's routing walk selects) to ToNode. Links are
// one-directional in this Config; a bidirectional pair needs two
// entries.
type LinkConfig struct {
	FromNode  uint16
	Direction int
	ToNode    uint16
}

// NodeConfig describes one Node: its address, how many of that address's
// bits actually name the node (§4.6), and its Cores in local-number
// order.
type NodeConfig struct {
	ID         uint16
	NumberBits uint8
	Cores      []CoreConfig
}

// Config assembles a whole System: every Node/Core plus the XLink
// topology joining them.
type Config struct {
	Nodes []NodeConfig
	Links []LinkConfig
}

// System is the top-of-tree assembled machine: every Node and Core, the
// single Scheduler driving them all (§5: "all simulation state is owned
// by the System... accessed only from the simulator thread"), and the
// bookkeeping the Driver API needs (last breakpoint/watchpoint thread).
//
// Grounded on atari2600.VCS (_examples/jmchacon-6502/atari2600/atari2600.go)
// as the top-of-tree struct exposing the handful of methods an external
// driver needs without leaking internals.
type System struct {
	sched *scheduler.Scheduler
	net   *node.Network
	nodes []*node.Node

	tracer *trace.Tracer
	lastBreakpointThread *thread.Thread
	lastWatchpointThread *thread.Thread
}

// New assembles a System per cfg.
func New(cfg Config) *System {
	s := &System{sched: scheduler.New(), net: node.NewNetwork()}

	byID := make(map[uint16]*node.Node, len(cfg.Nodes))
	for _, nc := range cfg.Nodes {
		n := node.New(nc.ID, nc.NumberBits)
		n.Attach(s.net)
		for i, cc := range nc.Cores {
			c := core.New(cc.Name, i, s.sched, cc.RAMBase, cc.RAMSize)
			n.AddCore(uint8(i), c)
		}
		s.nodes = append(s.nodes, n)
		byID[nc.ID] = n
	}
	for _, lc := range cfg.Links {
		if n, ok := byID[lc.FromNode]; ok {
			n.SetLink(lc.Direction, lc.ToNode)
		}
	}
	return s
}

// SetTracer attaches tr (or clears it, with nil) to every core in the
// system, wiring C12's optional per-instruction tracer in after
// construction.
func (s *System) SetTracer(tr *trace.Tracer) {
	s.tracer = tr
	for _, n := range s.nodes {
		for _, c := range n.Cores() {
			c.SetTracer(tr)
		}
	}
}

// LookupCore resolves (jtagIndex, coreNum) to a Core: jtagIndex selects a
// Node in Config.Nodes order, coreNum a core local to that node.
func (s *System) LookupCore(jtagIndex, coreNum int) (*core.Core, bool) {
	if jtagIndex < 0 || jtagIndex >= len(s.nodes) {
		return nil, false
	}
	cores := s.nodes[jtagIndex].Cores()
	if coreNum < 0 || coreNum >= len(cores) {
		return nil, false
	}
	return cores[coreNum], true
}

// LookupThread resolves a thread number (0..core.NumThreads) on c.
func (s *System) LookupThread(c *core.Core, num int) (*thread.Thread, bool) {
	if num < 0 || num >= core.NumThreads {
		return nil, false
	}
	return c.Thread(num), true
}

// ThreadIsInUse reports whether t has been allocated (powered on).
func (s *System) ThreadIsInUse(t *thread.Thread) bool { return t.IsInUse() }

// ReadMemory reads n bytes from c's RAM starting at addr.
func (s *System) ReadMemory(c *core.Core, addr uint32, n int) []byte { return c.ReadBytes(addr, n) }

// WriteMemory writes buf into c's RAM starting at addr, invalidating any
// decode-cache/JIT state the write overlaps, exactly as an instruction's
// own store would (§3 DecodeCache invariant).
func (s *System) WriteMemory(c *core.Core, addr uint32, buf []byte) { c.WriteBytes(addr, buf) }

// SetBreakpoint arms a breakpoint at addr on c.
func (s *System) SetBreakpoint(c *core.Core, addr uint32) { c.SetBreakpoint(addr) }

// UnsetBreakpoint disarms a breakpoint at addr on c.
func (s *System) UnsetBreakpoint(c *core.Core, addr uint32) { c.ClearBreakpoint(addr) }

// SetWatchpoint arms a watchpoint on writes to addr on c.
func (s *System) SetWatchpoint(c *core.Core, addr uint32) { c.SetWatchpoint(addr) }

// UnsetWatchpoint disarms a watchpoint at addr on c.
func (s *System) UnsetWatchpoint(c *core.Core, addr uint32) { c.ClearWatchpoint(addr) }

// ReadReg reads one architectural register of t.
func (s *System) ReadReg(t *thread.Thread, r thread.Register) uint32 { return t.Reg(r) }

// WriteReg writes one architectural register of t.
func (s *System) WriteReg(t *thread.Thread, r thread.Register, v uint32) { t.SetReg(r, v) }

// Result is the Driver API's view of a Run call's outcome: scheduler.Result
// with its opaque Runnable resolved to a concrete *thread.Thread.
type Result struct {
	Reason scheduler.StopReason
	Time   clock.Ticks
	// Status is valid when Reason == scheduler.Exit.
	Status int
	// Thread is valid when Reason is scheduler.Breakpoint or
	// scheduler.Watchpoint.
	Thread *thread.Thread
}

// Run drives the scheduler until it stops for one of the reasons §4.1
// enumerates, optionally bounded by maxCycles (0 means unbounded): a
// scheduler.Timeout is pushed at the current time plus maxCycles
// processor cycles and removed again once Run returns, per §4.1's
// "dedicated Timeout Runnable... enforce a user-supplied cycle budget".
func (s *System) Run(maxCycles clock.Ticks) Result {
	var to *scheduler.Timeout
	if maxCycles > 0 {
		to = scheduler.NewTimeout(s.sched.Time() + maxCycles*clock.CyclesPerTick)
		s.sched.Push(to, to.At())
	}
	res := s.sched.Run()
	if to != nil && res.Reason != scheduler.Timeout {
		s.sched.Remove(to)
	}
	return s.resolve(res)
}

func (s *System) resolve(res scheduler.Result) Result {
	out := Result{Reason: res.Reason, Time: res.Time, Status: res.Status}
	if res.Thread == nil {
		return out
	}
	t, ok := core.ThreadOf(res.Thread)
	if !ok {
		return out
	}
	out.Thread = t
	switch res.Reason {
	case scheduler.Breakpoint:
		s.lastBreakpointThread = t
	case scheduler.Watchpoint:
		s.lastWatchpointThread = t
	}
	return out
}

// GetThreadForLastBreakpoint returns the thread that hit the most recent
// breakpoint, or ok=false if none has.
func (s *System) GetThreadForLastBreakpoint() (*thread.Thread, bool) {
	return s.lastBreakpointThread, s.lastBreakpointThread != nil
}

// GetThreadForLastWatchpoint returns the thread that hit the most recent
// watchpoint, or ok=false if none has.
func (s *System) GetThreadForLastWatchpoint() (*thread.Thread, bool) {
	return s.lastWatchpointThread, s.lastWatchpointThread != nil
}

// ResumeAfterBreakpoint re-queues t to retry the trapped instruction
// through the INTERPRET_ONE pseudo-slot (§7: "the caller may resume by
// invoking run again").
func (s *System) ResumeAfterBreakpoint(c *core.Core, t *thread.Thread) {
	c.ResumeAfterBreakpoint(t)
}

// GetPS reads one of c's processor-state registers (§6.4 GETPS).
func (s *System) GetPS(c *core.Core, r resource.PSRegister) uint32 { return c.GetPS(r) }

// SetPS writes one of c's processor-state registers (§6.4 SETPS).
func (s *System) SetPS(c *core.Core, r resource.PSRegister, v uint32) { c.SetPS(r, v) }

// Scheduler exposes the underlying scheduler for package boot's
// BootSequencer to drive directly.
func (s *System) Scheduler() *scheduler.Scheduler { return s.sched }
