package thread

// ExceptionType is the reason code latched into ET when a thread traps,
// numbered exactly as the reference's ExceptionType enum so trace output
// and ET register values match.
type ExceptionType uint32

const (
	ExceptionLinkError         ExceptionType = 1
	ExceptionIllegalPC         ExceptionType = 2
	ExceptionIllegalInstruction ExceptionType = 3
	ExceptionIllegalResource   ExceptionType = 4
	ExceptionLoadStore         ExceptionType = 5
	ExceptionIllegalPS         ExceptionType = 6
	ExceptionArithmetic        ExceptionType = 7
	ExceptionECall             ExceptionType = 8
	ExceptionResourceDep       ExceptionType = 9
	ExceptionKCall             ExceptionType = 15
)

func (e ExceptionType) String() string {
	switch e {
	case ExceptionLinkError:
		return "LINK_ERROR"
	case ExceptionIllegalPC:
		return "ILLEGAL_PC"
	case ExceptionIllegalInstruction:
		return "ILLEGAL_INSTRUCTION"
	case ExceptionIllegalResource:
		return "ILLEGAL_RESOURCE"
	case ExceptionLoadStore:
		return "LOAD_STORE"
	case ExceptionIllegalPS:
		return "ILLEGAL_PS"
	case ExceptionArithmetic:
		return "ARITHMETIC"
	case ExceptionECall:
		return "ECALL"
	case ExceptionResourceDep:
		return "RESOURCE_DEP"
	case ExceptionKCall:
		return "KCALL"
	default:
		return "Unknown"
	}
}

// kcallVectorOffset is added to the KEP-relative target pc for a KCALL
// trap only; every other exception type vectors straight to KEP.
const kcallVectorOffset = 64

// TargetPCFunc and AddressTranslator let Exception() compute the new pc
// without thread importing core: targetPC converts a (possibly pending)
// halfword pc into the address a debugger/trace would report, and
// physicalAddress resolves a register value (KEP) to this thread's
// memory-relative byte address.
type AddressTranslator interface {
	TargetPC(pc uint32) uint32
	PhysicalAddress(reg uint32) uint32
	IsValidAddress(addr uint32) bool
}

// Exception latches exception state into the thread's kernel-entry
// registers and returns the halfword slot index execution should resume
// at (the kernel entry point, KEP, possibly offset for a KCALL).
//
// Grounded on InstructionHelpers.cpp's exception(): SSR/SPC/SED capture
// the pre-trap state, INK is forced on and EEBLE/IEBLE are forced off so
// the handler itself cannot be interrupted, and the new pc is KEP
// (+64 bytes for ET_KCALL) translated through the owning memory
// region.
func (t *Thread) Exception(translator AddressTranslator, pc uint32, et ExceptionType, ed uint32) uint32 {
	sed := t.regs[ED]
	spc := translator.TargetPC(pc)
	ssr := t.sr.Uint32()

	t.regs[SSR] = ssr
	t.regs[SPC] = spc
	t.regs[SED] = sed
	t.sr.Set(INK, true)
	t.sr.Set(EEBLE, false)
	t.sr.Set(IEBLE, false)
	t.regs[ET] = uint32(et)
	t.regs[ED] = ed

	newPC := translator.PhysicalAddress(t.regs[KEP])
	if et == ExceptionKCall {
		newPC += kcallVectorOffset
	}
	if newPC&1 != 0 || !translator.IsValidAddress(newPC) {
		panic("unable to handle exception: invalid kep")
	}
	return newPC >> 1
}
