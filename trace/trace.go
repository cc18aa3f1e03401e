// Package trace implements the simulator's optional per-instruction
// tracer (C12): a cheap opt-in diagnostic channel threaded through the
// components that want it, rather than a structured logging framework.
// The gating discipline (check the tracer for nil, then print) mirrors
// the teacher's Debug-bool-gated log.Printf calls; register-dump
// formatting is delegated to github.com/davecgh/go-spew, the same
// library the teacher's own tests use for on-failure state dumps.
package trace

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/tileforge/tilesim/clock"
)

// Tracer emits per-instruction trace lines and register-write
// annotations to an output sink. A nil *Tracer is always safe to call
// methods on (every method no-ops), so callers need not guard every
// call site the way the teacher guards every log.Printf with "if
// c.Debug".
type Tracer struct {
	out      io.Writer
	dumpRegs bool
}

// New returns a Tracer writing to out. If dumpRegs is set, Instruction
// additionally appends a spew.Sdump of the register-write annotation
// value passed to it.
func New(out io.Writer, dumpRegs bool) *Tracer {
	return &Tracer{out: out, dumpRegs: dumpRegs}
}

// Instruction logs one retired instruction: the owning core/thread
// identifier, the time it retired, its symbolic name (as resolved by an
// external symbol-info collaborator, or the bare pc if none), and
// (optionally) a register-write annotation value.
func (t *Tracer) Instruction(core string, thread int, time clock.Ticks, pc uint32, mnemonic string, regWrite any) {
	if t == nil {
		return
	}
	fmt.Fprintf(t.out, "[%s.%d@%d] %#08x %s\n", core, thread, time, pc, mnemonic)
	if t.dumpRegs && regWrite != nil {
		spew.Fdump(t.out, regWrite)
	}
}

// Event logs a resource event/interrupt delivery.
func (t *Tracer) Event(core string, thread int, time clock.Ticks, resourceName string, vector uint32) {
	if t == nil {
		return
	}
	fmt.Fprintf(t.out, "[%s.%d@%d] event from %s -> vector %#08x\n", core, thread, time, resourceName, vector)
}

// Exception logs a processor exception being raised.
func (t *Tracer) Exception(core string, thread int, time clock.Ticks, et, ed uint32) {
	if t == nil {
		return
	}
	fmt.Fprintf(t.out, "[%s.%d@%d] exception et=%d ed=%#x\n", core, thread, time, et, ed)
}

// Symbols is the optional symbol-info collaborator (C12's "symbol info"
// half): resolving a byte address to a human name for trace output.
// Left as an injected interface rather than an ELF-symbol-table reader,
// since ELF parsing is out of scope (§1/§6).
type Symbols interface {
	Resolve(addr uint32) (name string, ok bool)
}

// NoSymbols is a Symbols that never resolves anything.
type NoSymbols struct{}

func (NoSymbols) Resolve(uint32) (string, bool) { return "", false }

// Mnemonic returns the name syms resolves addr to, if it resolves,
// otherwise addr as a bare hex address.
func Mnemonic(syms Symbols, addr uint32) string {
	if syms == nil {
		return fmt.Sprintf("%#08x", addr)
	}
	if name, ok := syms.Resolve(addr); ok {
		return name
	}
	return fmt.Sprintf("%#08x", addr)
}
