package resource

// PSRegister identifies one of the processor-state registers reachable
// through GETPS/SETPS (RES_TYPE_PS), as opposed to the general-purpose
// register file.
type PSRegister uint32

const (
	// PSVectorBase holds the base address event/interrupt vectors are
	// relative to.
	PSVectorBase PSRegister = 0x10b
	// PSRamBase holds the base address of the core's RAM region, used to
	// reconstruct truncated event environments (see
	// EventableResource.TruncatedEV).
	PSRamBase PSRegister = 0x00b
	// PSBootConfig holds configuration read by the boot sequencer.
	PSBootConfig PSRegister = 0x30b
	// PSBootStatus holds the outcome of the last boot operation.
	PSBootStatus PSRegister = 0x40b
)

func (r PSRegister) String() string {
	switch r {
	case PSVectorBase:
		return "VECTOR_BASE"
	case PSRamBase:
		return "RAM_BASE"
	case PSBootConfig:
		return "BOOT_CONFIG"
	case PSBootStatus:
		return "BOOT_STATUS"
	default:
		return "UNKNOWN_PS"
	}
}
