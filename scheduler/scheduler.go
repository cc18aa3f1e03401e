// Package scheduler implements the simulator's single discrete-event
// loop: a priority queue of Runnables keyed by wake-up tick, driving the
// whole simulation one Runnable step at a time.
package scheduler

import (
	"container/heap"

	"github.com/tileforge/tilesim/clock"
)

// Runnable is anything the scheduler can drive: a Thread or an
// EventableResource. Run is invoked when the Runnable reaches the front
// of the queue; it may push itself (or others) back with a new wake-up
// time, or return one of the sentinel errors below to stop the run loop.
type Runnable interface {
	// Run executes one scheduler step at the given time (which equals
	// the Runnable's current wake-up time) and returns nil to continue,
	// or one of ExitError/TimeoutError/BreakpointError/WatchpointError
	// to request the scheduler stop.
	Run(time clock.Ticks) error
}

// entry is the heap element: a Runnable plus its current wake-up time
// and heap index (for O(log n) removal).
type entry struct {
	r          Runnable
	wakeUpTime clock.Ticks
	index      int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	return h[i].wakeUpTime < h[j].wakeUpTime
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a min-priority queue of Runnables keyed by wakeUpTime. A
// Runnable occupies at most one queue position at a time; Push removes
// any prior entry for the same Runnable before inserting the new one.
//
// There is exactly one Scheduler per System and it is driven from the
// single simulator thread; no internal locking is performed (§5).
type Scheduler struct {
	h       entryHeap
	byOwner map[Runnable]*entry
	running Runnable
	time    clock.Ticks
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{byOwner: make(map[Runnable]*entry)}
}

// Empty reports whether the queue holds no Runnables.
func (s *Scheduler) Empty() bool { return len(s.h) == 0 }

// Contains reports whether r currently occupies a queue position.
func (s *Scheduler) Contains(r Runnable) bool {
	_, ok := s.byOwner[r]
	return ok
}

// Front returns the Runnable with the earliest wakeUpTime without
// removing it. Panics if the queue is empty.
func (s *Scheduler) Front() Runnable {
	return s.h[0].r
}

// FrontTime returns the earliest wakeUpTime in the queue. Panics if the
// queue is empty.
func (s *Scheduler) FrontTime() clock.Ticks {
	return s.h[0].wakeUpTime
}

// Push inserts r at wake-up time t, first removing any existing queue
// position r held.
func (s *Scheduler) Push(r Runnable, t clock.Ticks) {
	s.Remove(r)
	e := &entry{r: r, wakeUpTime: t}
	heap.Push(&s.h, e)
	s.byOwner[r] = e
}

// Remove takes r out of the queue if present; a no-op otherwise.
func (s *Scheduler) Remove(r Runnable) {
	e, ok := s.byOwner[r]
	if !ok {
		return
	}
	heap.Remove(&s.h, e.index)
	delete(s.byOwner, r)
}

// Pop removes and returns the Runnable with the earliest wakeUpTime.
// Panics if the queue is empty.
func (s *Scheduler) Pop() Runnable {
	r, _ := s.popWithTime()
	return r
}

// Running returns the Runnable currently executing (valid only while
// called from within that Runnable's Run method, e.g. so a resource can
// tell whether it is being accessed by the currently running thread).
func (s *Scheduler) Running() Runnable { return s.running }

// Time returns the time of the most recently popped (or currently
// running) Runnable.
func (s *Scheduler) Time() clock.Ticks { return s.time }

// HasEarlierThan reports whether the queue holds a Runnable whose
// wakeUpTime is strictly less than t. Threads use this to implement
// hasTimeSliceExpired.
func (s *Scheduler) HasEarlierThan(t clock.Ticks) bool {
	if s.Empty() {
		return false
	}
	return s.FrontTime() < t
}

// StopReason enumerates why Run returned control to the caller.
type StopReason int

const (
	// NoRunnableThreads indicates the queue drained naturally.
	NoRunnableThreads StopReason = iota
	Exit
	Timeout
	Breakpoint
	Watchpoint
)

func (s StopReason) String() string {
	switch s {
	case NoRunnableThreads:
		return "NO_RUNNABLE_THREADS"
	case Exit:
		return "EXIT"
	case Timeout:
		return "TIMEOUT"
	case Breakpoint:
		return "BREAKPOINT"
	case Watchpoint:
		return "WATCHPOINT"
	default:
		return "UNKNOWN"
	}
}

// ExitError is thrown by a Runnable (normally via a syscall handler) to
// terminate the run loop with a process exit status.
type ExitError struct {
	Time   clock.Ticks
	Status int
}

func (e ExitError) Error() string { return "scheduler: exit requested" }

// TimeoutError is thrown by the dedicated Timeout Runnable when a
// user-supplied cycle budget is exceeded.
type TimeoutError struct {
	Time clock.Ticks
}

func (e TimeoutError) Error() string { return "scheduler: timeout" }

// BreakpointError is thrown when a breakpoint-swapped opcode is hit.
// Thread is the Runnable (a *thread.Thread) that hit it; kept as the
// Runnable interface here to avoid an import cycle with package thread.
type BreakpointError struct {
	Time   clock.Ticks
	Thread Runnable
}

func (e BreakpointError) Error() string { return "scheduler: breakpoint hit" }

// WatchpointError is thrown when a watched memory location is touched.
type WatchpointError struct {
	Time   clock.Ticks
	Thread Runnable
}

func (e WatchpointError) Error() string { return "scheduler: watchpoint hit" }

// Result is the outcome of a Run call.
type Result struct {
	Reason StopReason
	Time   clock.Ticks
	// Status is valid when Reason == Exit.
	Status int
	// Thread is valid when Reason is Breakpoint or Watchpoint.
	Thread Runnable
}

// Run repeatedly pops the earliest Runnable and invokes its Run method
// until the queue drains or a Runnable requests a stop via one of the
// sentinel error types. Time tracks the latest wake-up time dispatched,
// so a naturally-drained queue reports "time = latest thread time" per
// §4.1.
func (s *Scheduler) Run() Result {
	for !s.Empty() {
		r, t := s.popWithTime()
		s.time = t
		s.running = r
		err := r.Run(t)
		s.running = nil
		if err != nil {
			switch v := err.(type) {
			case ExitError:
				return Result{Reason: Exit, Time: v.Time, Status: v.Status}
			case TimeoutError:
				return Result{Reason: Timeout, Time: v.Time}
			case BreakpointError:
				return Result{Reason: Breakpoint, Time: v.Time, Thread: v.Thread}
			case WatchpointError:
				return Result{Reason: Watchpoint, Time: v.Time, Thread: v.Thread}
			}
		}
	}
	return Result{Reason: NoRunnableThreads, Time: s.time}
}

// popWithTime removes and returns the earliest Runnable along with the
// wakeUpTime it was queued at.
func (s *Scheduler) popWithTime() (Runnable, clock.Ticks) {
	e := heap.Pop(&s.h).(*entry)
	delete(s.byOwner, e.r)
	return e.r, e.wakeUpTime
}
