package thread

// Category names one of spec.md's instruction operand shapes. The
// original ISA's bit-exact encoding lives in a generated table
// (InstructionGenOutput.inc) that is not present in the retrieved
// reference sources — only the macro scaffolding that would consume it.
// Rather than invent bit patterns and present them as the real encoding,
// this simulator defines its own fixed-width internal form: every
// instruction decodes (once, the first time its address is executed) into
// an Opcode plus a decode.Operands packet, and category only matters for
// how many operands that packet carries and whether they are 8-bit
// register/immediate fields or 32-bit long-form fields. The dispatch
// table is keyed purely by Opcode; Category is metadata used by the
// decoder and disassembler, never by execution.
type Category uint8

const (
	// Cat3R: three register operands (op rd, rs1, rs2).
	Cat3R Category = iota
	// Cat2RUS: two registers plus a 6-bit unsigned immediate.
	Cat2RUS
	// CatL3R: long-form three register operands (wide encoding, used
	// when short-form would alias a pseudo-opcode).
	CatL3R
	// CatL2RUS: long-form two registers plus an extended-width immediate.
	CatL2RUS
	// CatRU6: one register, one 6-bit unsigned immediate.
	CatRU6
	// CatLRU6: long-form register + wider immediate.
	CatLRU6
	// CatU6: a bare 6-bit unsigned immediate (no register operand).
	CatU6
	// CatLU6: long-form bare immediate.
	CatLU6
	// CatU10: a bare 10-bit unsigned immediate.
	CatU10
	// CatLU10: long-form bare 10-bit-class immediate.
	CatLU10
	// Cat2R: two register operands.
	Cat2R
	// CatRUS: one register, one short unsigned immediate.
	CatRUS
	// CatL2R: long-form two register operands.
	CatL2R
	// Cat1R: a single register operand.
	Cat1R
	// Cat0R: no operands.
	Cat0R
	// CatL4R: long-form four register operands.
	CatL4R
	// CatL5R: long-form five register operands.
	CatL5R
	// CatL6R: long-form six register operands (the widest shape, used by
	// e.g. LMUL's full multiply-accumulate).
	CatL6R
)

// Opcode identifies one instruction's semantics once decoded; it is the
// value a decode.Slot carries once it has moved on from decode.Decode.
// Values are internal to this simulator (see the Category doc above) and
// assigned densely starting at 1 so 0 can stay reserved for
// decode.Decode's "not yet decoded" sentinel.
//
// The set below is representative rather than exhaustive: it covers every
// operand category and every instruction spec.md calls out by name.
// Shift-and-IN/OUT combining forms, the PS-config SETC variant, the extra
// stack-pointer-only bookkeeping opcodes, and the conditional WAITET/WAITEF
// variants of WAITEU are left out rather than given invented semantics —
// none of them is a named call-out and the table is built to grow by
// adding an entry, not by guessing at unreferenced behavior.
type Opcode uint16

const (
	_ Opcode = iota // 0 reserved: matches decode.Decode.

	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLss
	OpEq
	OpNot
	OpNeg

	OpDivs
	OpDivu
	OpRems
	OpRemu

	OpLdc
	OpLdap
	OpMkmsk

	OpLdw
	OpStw
	OpLdb
	OpStb
	OpLd16s
	OpSt16

	OpBru
	OpBrf
	OpBrb
	OpBla
	OpBl

	OpIn
	OpOut
	OpOutct
	OpInct
	OpChkct
	OpSetc
	OpSetd
	OpGetR
	OpFreeR

	OpSsync
	OpMsync
	OpMjoin
	OpWaiteu
	OpClre
	OpSetsr
	OpClrsr
	OpGetsr

	OpEntsp
	OpRetsp
	OpKentsp
	OpKrestsp

	OpEcallt
	OpEcallf
	OpKcall
	OpKret

	OpGetps
	OpSetps

	NumOpcodes
)
