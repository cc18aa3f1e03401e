// Package decode implements the simulator's self-rewriting decode cache:
// a PC-indexed array of dispatch slots that starts out pointing at a
// shared "decode me" handler and is rewritten in place, one instruction
// at a time, as each address is first executed.
package decode

// Operands is the fixed-size operand packet every opcode handler
// receives. It mirrors the reference's 12-byte union: three 32-bit words,
// or (for the byte-operand-heavy 0r/1r/2r/l-form categories) six
// individually addressable bytes packed two to a word.
type Operands struct {
	Ops [3]uint32
}

// Byte returns operand byte i (0-5), read from the low or high half of
// Ops[i/2] matching the reference union's little-endian byte layout.
func (o *Operands) Byte(i int) uint8 {
	w := o.Ops[i/2]
	if i%2 == 0 {
		return uint8(w)
	}
	return uint8(w >> 8)
}

// SetByte writes operand byte i (0-5).
func (o *Operands) SetByte(i int, v uint8) {
	shift := uint((i % 2) * 8)
	mask := uint32(0xff) << shift
	o.Ops[i/2] = (o.Ops[i/2] &^ mask) | (uint32(v) << shift)
}

// ExecutionFrequency counts how many times a slot has retired, used by
// the JIT manager to pick hot-trace compilation candidates.
type ExecutionFrequency int32

// MinExecutionFrequency marks a slot that must never be considered for
// JIT compilation (e.g. one that belongs to a trace already compiled, or
// one pinned by a breakpoint).
const MinExecutionFrequency = ExecutionFrequency(-1 << 31)

// Opcode is the dispatch tag a slot carries: for the common case this is
// a real instruction opcode; the four Illegal*/RunJIT/InterpretOne values
// below are pseudo-opcodes used to communicate control-flow decisions
// back to the thread's dispatch loop without a branch on every step.
type Opcode int32

const (
	// Decode is the opcode every slot starts out holding: "this address
	// has never been executed; decode the raw instruction at PC, rewrite
	// this slot in place, then dispatch to the result."
	Decode Opcode = 0
	// IllegalPC is dispatched when execution reaches a halfword address
	// one past the end of the owning memory region.
	IllegalPC Opcode = -1
	// RunJIT is dispatched when a slot's execution frequency has crossed
	// the JIT manager's hot-trace threshold and a compiled fragment is
	// available to run instead of the interpreter.
	RunJIT Opcode = -2
	// InterpretOne is dispatched to force exactly one instruction to run
	// through the plain interpreter even though a compiled fragment
	// exists for it (single-stepping under a debugger).
	InterpretOne Opcode = -3
	// IllegalPCThread is IllegalPC's reschedule-time counterpart: checked
	// when a descheduled thread is about to resume, rather than from
	// inside the live dispatch loop, so a thread that was parked on an
	// address that became illegal (e.g. after a memory remap) is caught
	// before it runs instead of after.
	IllegalPCThread Opcode = -4
)

// Slot is one entry in the decode cache: the cached opcode, its decoded
// operand packet, and its execution-frequency counter.
type Slot struct {
	Opcode    Opcode
	Operands  Operands
	Frequency ExecutionFrequency
}

// Cache is the decode cache for a single contiguous memory region (a
// core's RAM or ROM): one Slot per halfword of addressable memory, plus
// four pseudo-slots trailing the real ones for IllegalPC, RunJIT,
// InterpretOne and IllegalPCThread. PC values are converted to slot
// indices by the owning core (pc >> 1, after subtracting the region's
// base address).
type Cache struct {
	slots []Slot
	base  uint32
	size  uint32
}

// New returns a Cache sized for a memory region of size bytes starting at
// base, with every real slot initialised to Decode.
func New(base, size uint32) *Cache {
	numSlots := size/2 + 4
	c := &Cache{
		slots: make([]Slot, numSlots),
		base:  base,
		size:  size,
	}
	for i := range c.slots[:size/2] {
		c.slots[i].Opcode = Decode
	}
	c.slots[c.illegalPCIndex()] = Slot{Opcode: IllegalPC, Frequency: MinExecutionFrequency}
	c.slots[c.runJITIndex()] = Slot{Opcode: RunJIT, Frequency: MinExecutionFrequency}
	c.slots[c.interpretOneIndex()] = Slot{Opcode: InterpretOne, Frequency: MinExecutionFrequency}
	c.slots[c.illegalPCThreadIndex()] = Slot{Opcode: IllegalPCThread, Frequency: MinExecutionFrequency}
	return c
}

// Base returns the byte address this cache's slot 0 corresponds to.
func (c *Cache) Base() uint32 { return c.base }

// NumSlots returns the total slot count, including the four trailing
// pseudo-slots. Used by the dispatch loop to bounds-check a pc before
// indexing, so a branch target that escapes the window is caught as
// ET_ILLEGAL_PC rather than panicking on an out-of-range slice index.
func (c *Cache) NumSlots() int { return len(c.slots) }

// Reset rewinds every real slot back to Decode, used when the owning
// core's RAM_BASE processor-state register is rewritten: the self-modifying
// -code invariants the cache maintains are only valid for the window it
// was built against, so a base-address change invalidates the lot rather
// than attempting to slide cached entries to a new address range.
func (c *Cache) Reset() {
	for i := range c.slots[:c.size/2] {
		c.slots[i] = Slot{Opcode: Decode}
	}
}

// Size returns the memory region's size in bytes.
func (c *Cache) Size() uint32 { return c.size }

func (c *Cache) lastRealIndex() int { return int(c.size/2) - 1 }

func (c *Cache) illegalPCIndex() int       { return c.lastRealIndex() + 1 }
func (c *Cache) runJITIndex() int          { return c.lastRealIndex() + 2 }
func (c *Cache) interpretOneIndex() int    { return c.lastRealIndex() + 3 }
func (c *Cache) illegalPCThreadIndex() int { return c.lastRealIndex() + 4 }

// Contains reports whether byte address pc falls within this cache's
// region.
func (c *Cache) Contains(pc uint32) bool {
	return pc >= c.base && pc < c.base+c.size
}

// Index converts a byte address within this cache's region to a slot
// index. The caller must have checked Contains(pc) (or be deliberately
// indexing one past the end to reach IllegalPC).
func (c *Cache) Index(pc uint32) int { return int((pc - c.base) / 2) }

// PC converts a slot index back to its byte address.
func (c *Cache) PC(index int) uint32 { return c.base + uint32(index)*2 }

// Slot returns a pointer to the slot at index, so callers can both read
// and rewrite it in place (the defining feature of a self-rewriting
// decode cache).
func (c *Cache) Slot(index int) *Slot { return &c.slots[index] }

// IllegalPCSlot, RunJITSlot, InterpretOneSlot and IllegalPCThreadSlot
// return the indices of this cache's four pseudo-slots.
func (c *Cache) IllegalPCSlot() int       { return c.illegalPCIndex() }
func (c *Cache) RunJITSlot() int          { return c.runJITIndex() }
func (c *Cache) InterpretOneSlot() int    { return c.interpretOneIndex() }
func (c *Cache) IllegalPCThreadSlot() int { return c.illegalPCThreadIndex() }

// Invalidate resets the slot at pc back to Decode, forcing the next
// execution at that address to re-decode from memory. Used when a STW
// writes into code, or when the JIT manager retires a compiled fragment.
func (c *Cache) Invalidate(pc uint32) {
	idx := c.Index(pc)
	c.slots[idx] = Slot{Opcode: Decode}
}

// Bump increments the execution-frequency counter for the slot at index,
// saturating rather than wrapping, and returns the new value.
func (c *Cache) Bump(index int) ExecutionFrequency {
	s := &c.slots[index]
	if s.Frequency == MinExecutionFrequency {
		return s.Frequency
	}
	if s.Frequency < ExecutionFrequency(1<<30) {
		s.Frequency++
	}
	return s.Frequency
}
