// Package jit implements the simulator's hot-trace compiler. Backend code
// generation to a native instruction set is explicitly out of scope for
// this simulator core; "compiling" a trace here means composing the
// straight-line run of instruction closures starting at a decode-cache
// slot into a single chained dispatcher, installed in place of the
// per-instruction interpreter steps.
package jit

import lru "github.com/hashicorp/golang-lru/v2"

// StepResult is the control-flow outcome of running one compiled
// instruction step.
type StepResult int

const (
	// StepContinue means the step ran to completion and the fragment
	// should proceed to its next instruction.
	StepContinue StepResult = iota
	// StepEndTrace means the step's instruction may have altered control
	// flow (a branch, an exception, a resource block) and the dispatch
	// loop must stop running this fragment and re-enter normal decoding.
	StepEndTrace
	// StepYield means the step's instruction gave up the remainder of
	// the thread's time slice (e.g. a descheduling IN/OUT); the caller
	// should return to the scheduler rather than continue the fragment.
	StepYield
)

// Step is one instruction's compiled behaviour: mutate thread state as a
// side effect (the closure captures its operands and target Thread) and
// report whether the fragment may safely continue to the next step.
type Step func() StepResult

// compose nests steps into a single chained closure: each step's closure
// tail-calls the next directly rather than looping over a slice, so that
// a fragment's "code" is a concrete call chain the way a compiled native
// trace's basic blocks would be.
func compose(steps []Step) Step {
	if len(steps) == 0 {
		return func() StepResult { return StepEndTrace }
	}
	if len(steps) == 1 {
		return steps[0]
	}
	cur := steps[0]
	next := compose(steps[1:])
	return func() StepResult {
		if r := cur(); r != StepContinue {
			return r
		}
		return next()
	}
}

// Fragment is a compiled hot trace: the chained entry closure plus the
// half-word-address span of decode-cache slots it was compiled from, used
// to invalidate it when any instruction in that span is overwritten.
type Fragment struct {
	id       uint64
	entry    Step
	start    uint32 // first slot index (inclusive)
	end      uint32 // last slot index (inclusive)
	reclaimed bool
}

// Run executes the fragment from its first instruction.
func (f *Fragment) Run() StepResult { return f.entry() }

// Contains reports whether slot index idx falls within the span this
// fragment was compiled from.
func (f *Fragment) Contains(idx uint32) bool { return idx >= f.start && idx <= f.end }

// InvalidationKind records, per decode-cache slot, how much of a
// compiled fragment must be torn down if that slot is overwritten:
// nothing compiled through it, just the fragment starting there, or that
// fragment and the one whose span runs through it from an earlier start.
type InvalidationKind uint8

const (
	InvalidateNone InvalidationKind = iota
	InvalidateCurrent
	InvalidateCurrentAndPrevious
)

// Manager owns every live Fragment for one core: it assigns fragment IDs,
// tracks per-slot invalidation info, and defers actually discarding a
// fragment's closures until the next Install call, mirroring the
// reference's reclaimUnreachableFunctions/functionPtrMap pair. The
// registry is an LRU cache keyed by fragment ID rather than a plain map
// so that a core with a runaway compilation rate (e.g. thrashing code)
// bounds its own memory rather than growing the table unboundedly; the
// eviction callback marks the evicted fragment unreachable exactly as an
// explicit invalidation would.
type Manager struct {
	byPC       map[uint32]*Fragment
	registry   *lru.Cache[uint64, *Fragment]
	invalidation []InvalidationKind
	unreachable []*Fragment
	nextID     uint64
}

// MaxResidentFragments bounds how many compiled fragments a single core
// keeps before the oldest unreferenced ones are evicted.
const MaxResidentFragments = 4096

// NewManager returns a Manager with per-slot invalidation info sized for
// numSlots decode-cache entries.
func NewManager(numSlots int) *Manager {
	m := &Manager{
		byPC:         make(map[uint32]*Fragment),
		invalidation: make([]InvalidationKind, numSlots),
	}
	registry, err := lru.NewWithEvict(MaxResidentFragments, func(id uint64, f *Fragment) {
		if m.byPC[f.start] == f {
			delete(m.byPC, f.start)
		}
		m.markUnreachable(f)
	})
	if err != nil {
		// Only returned for a non-positive size, which MaxResidentFragments
		// never is.
		panic(err)
	}
	m.registry = registry
	return m
}

// Lookup returns the fragment compiled for the slot starting at index, or
// nil if none is compiled (or it has since been invalidated).
func (m *Manager) Lookup(startSlot uint32) *Fragment {
	return m.byPC[startSlot]
}

// Install registers a newly compiled fragment spanning [start, end] and
// indexes it by its start slot so future RunJIT dispatches find it.
func (m *Manager) Install(start, end uint32, steps []Step) *Fragment {
	if len(m.unreachable) > 0 {
		m.reclaimUnreachable()
	}
	f := &Fragment{id: m.nextID, entry: compose(steps), start: start, end: end}
	m.nextID++
	m.byPC[start] = f
	m.registry.Add(f.id, f)
	for i := start; i <= end; i++ {
		if i == start && m.invalidation[i] == InvalidateNone {
			m.invalidation[i] = InvalidateCurrent
		} else {
			m.invalidation[i] = InvalidateCurrentAndPrevious
		}
	}
	return f
}

// Invalidate tears down every fragment whose span covers slot idx,
// matching the reference's per-opcode invalidationInfo check on a
// memory write: INVALIDATE_CURRENT clears the fragment that starts at
// idx (if any); INVALIDATE_CURRENT_AND_PREVIOUS also walks fragments
// whose span merely passes through idx.
func (m *Manager) Invalidate(idx uint32) {
	switch m.invalidation[idx] {
	case InvalidateNone:
		return
	case InvalidateCurrent:
		if f, ok := m.byPC[idx]; ok {
			m.remove(idx, f)
		}
	case InvalidateCurrentAndPrevious:
		for start, f := range m.byPC {
			if f.Contains(idx) {
				m.remove(start, f)
			}
		}
	}
	m.invalidation[idx] = InvalidateNone
}

// InvalidateAll tears down every fragment currently installed, used when
// a core's RAM_BASE processor-state register is rewritten and the whole
// decode cache (and therefore everything compiled against it) is reset.
func (m *Manager) InvalidateAll() {
	for start, f := range m.byPC {
		m.remove(start, f)
	}
	for i := range m.invalidation {
		m.invalidation[i] = InvalidateNone
	}
}

func (m *Manager) remove(start uint32, f *Fragment) {
	delete(m.byPC, start)
	m.registry.Remove(f.id)
	m.markUnreachable(f)
}

func (m *Manager) markUnreachable(f *Fragment) {
	m.unreachable = append(m.unreachable, f)
}

// reclaimUnreachable drops the closures for every fragment marked
// unreachable since the last Install, freeing them for garbage
// collection. Go has no LLVMFreeMachineCodeForFunction equivalent to
// call; clearing the last reference is enough for the fragment's
// closures to become collectible.
func (m *Manager) reclaimUnreachable() {
	for _, f := range m.unreachable {
		f.reclaimed = true
		f.entry = nil
	}
	m.unreachable = m.unreachable[:0]
}

// Resident reports how many fragments are currently installed, for tests
// and diagnostics.
func (m *Manager) Resident() int { return len(m.byPC) }
