// Package thread implements the per-hardware-thread execution state
// machine: registers, status bits, event/interrupt delivery, the
// resource-control (SETC) instruction family, and the representative
// instruction semantics that drive the decode cache and JIT fragments.
package thread

// Register names one of the 23 architectural registers, in the exact
// order the reference enumerates them (dump order and register-number
// encoding both depend on it).
type Register int

const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	CP
	DP
	SP
	LR
	ET
	ED
	KEP
	KSP
	SPC
	SED
	SSR
	NumRegisters
)

var registerNames = [NumRegisters]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10", "r11",
	"cp", "dp", "sp", "lr", "et", "ed", "kep", "ksp", "spc", "sed", "ssr",
}

// String returns the register's assembly mnemonic, or "?" if out of range.
func (r Register) String() string {
	if r < 0 || int(r) >= len(registerNames) {
		return "?"
	}
	return registerNames[r]
}
