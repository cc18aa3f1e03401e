package thread

import (
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/decode"
	"github.com/tileforge/tilesim/jit"
	"github.com/tileforge/tilesim/resource"
)

// instrFunc is one opcode's semantics: read operands from ops (already
// decoded into registers/immediates per the opcode's Category), mutate t
// and/or memory through env, and report the fragment control-flow outcome
// a compiled JIT trace needs (see package jit).
type instrFunc func(t *Thread, env Env, ops decode.Operands) jit.StepResult

// opcodeTable is the dispatch table every decoded Opcode resolves
// through. It is data (map[Opcode]instrFunc), not a type switch, for
// exactly the reason the teacher's cpu.go processOpcode switch is not:
// growing the instruction set is adding a table entry, never touching
// dispatch itself.
var opcodeTable = map[Opcode]instrFunc{
	OpAdd: execAdd,
	OpSub: execSub,
	OpAnd: execAnd,
	OpOr:  execOr,
	OpXor: execXor,
	OpShl: execShl,
	OpShr: execShr,
	OpLss: execLss,
	OpEq:  execEq,
	OpNot: execNot,
	OpNeg: execNeg,

	OpDivs: execDivs,
	OpDivu: execDivu,
	OpRems: execRems,
	OpRemu: execRemu,

	OpLdc:   execLdc,
	OpLdap:  execLdap,
	OpMkmsk: execMkmsk,

	OpLdw:   execLdw,
	OpStw:   execStw,
	OpLdb:   execLdb,
	OpStb:   execStb,
	OpLd16s: execLd16s,
	OpSt16:  execSt16,

	OpBru: execBru,
	OpBrf: execBrf,
	OpBrb: execBrb,
	OpBla: execBla,
	OpBl:  execBl,

	OpIn:    execIn,
	OpOut:   execOut,
	OpOutct: execOutct,
	OpInct:  execInct,
	OpChkct: execChkct,
	OpSetc:  execSetcOp,
	OpSetd:  execSetd,
	OpGetR:  execGetR,
	OpFreeR: execFreeR,

	OpSsync:  execSsync,
	OpMsync:  execMsync,
	OpMjoin:  execMjoin,
	OpWaiteu: execWaiteu,
	OpClre:   execClre,
	OpSetsr:  execSetsr,
	OpClrsr:  execClrsr,
	OpGetsr:  execGetsr,

	OpEntsp:  execEntsp,
	OpRetsp:  execRetsp,
	OpKentsp: execKentsp,
	OpKrestsp: execKrestsp,

	OpEcallt: execEcallt,
	OpEcallf: execEcallf,
	OpKcall:  execKcall,
	OpKret:   execKret,

	OpGetps: execGetps,
	OpSetps: execSetps,
}

// Step decodes op against the table and runs it. Used both by the plain
// interpreter (one call per instruction) and, indirectly, by the JIT
// manager: CompileStep wraps the same call as a jit.Step closure so a
// compiled trace's chained dispatcher and the interpreter execute the
// exact same semantics.
func (t *Thread) Step(env Env, op Opcode, ops decode.Operands) jit.StepResult {
	fn, ok := opcodeTable[op]
	if !ok {
		return t.raiseException(env, ExceptionIllegalInstruction, 0)
	}
	return fn(t, env, ops)
}

// CompileStep returns a jit.Step closure for one already-decoded
// instruction, for the JIT manager to chain into a Fragment.
func (t *Thread) CompileStep(env Env, op Opcode, ops decode.Operands) jit.Step {
	return func() jit.StepResult { return t.Step(env, op, ops) }
}

func (t *Thread) raiseException(env Env, et ExceptionType, ed uint32) jit.StepResult {
	t.pc = t.Exception(env, t.pc, et, ed)
	return jit.StepEndTrace
}

func reg3(ops decode.Operands) (a, b, c Register) {
	return Register(ops.Byte(0)), Register(ops.Byte(1)), Register(ops.Byte(2))
}

// --- arithmetic / logic (3r, l3r) ---

func execAdd(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	t.SetReg(rd, t.Reg(a)+t.Reg(b))
	t.Retire()
	return jit.StepContinue
}

func execSub(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	t.SetReg(rd, t.Reg(a)-t.Reg(b))
	t.Retire()
	return jit.StepContinue
}

func execAnd(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	t.SetReg(rd, t.Reg(a)&t.Reg(b))
	t.Retire()
	return jit.StepContinue
}

func execOr(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	t.SetReg(rd, t.Reg(a)|t.Reg(b))
	t.Retire()
	return jit.StepContinue
}

func execXor(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	t.SetReg(rd, t.Reg(a)^t.Reg(b))
	t.Retire()
	return jit.StepContinue
}

// execShl and execShr implement a shift-count-of-32-or-more-yields-zero
// rule (the XS1 ISA's defined behaviour for out-of-range shifts, rather
// than the undefined behaviour a native >> by >=width would give in C).
func execShl(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	shift := t.Reg(b)
	var result uint32
	if shift < 32 {
		result = t.Reg(a) << shift
	}
	t.SetReg(rd, result)
	t.Retire()
	return jit.StepContinue
}

func execShr(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	shift := t.Reg(b)
	var result uint32
	if shift < 32 {
		result = t.Reg(a) >> shift
	}
	t.SetReg(rd, result)
	t.Retire()
	return jit.StepContinue
}

func execLss(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	result := uint32(0)
	if int32(t.Reg(a)) < int32(t.Reg(b)) {
		result = 1
	}
	t.SetReg(rd, result)
	t.Retire()
	return jit.StepContinue
}

func execEq(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	result := uint32(0)
	if t.Reg(a) == t.Reg(b) {
		result = 1
	}
	t.SetReg(rd, result)
	t.Retire()
	return jit.StepContinue
}

func execNot(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd := Register(ops.Byte(0))
	a := Register(ops.Byte(1))
	t.SetReg(rd, ^t.Reg(a))
	t.Retire()
	return jit.StepContinue
}

func execNeg(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd := Register(ops.Byte(0))
	a := Register(ops.Byte(1))
	t.SetReg(rd, uint32(-int32(t.Reg(a))))
	t.Retire()
	return jit.StepContinue
}

// --- division/remainder: both named arithmetic-exception cases (divide
// by zero, and signed MinInt32/-1 overflow) raise ET_ARITHMETIC. ---

func execDivs(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	x, y := int32(t.Reg(a)), int32(t.Reg(b))
	if y == 0 || (x == -(1<<31) && y == -1) {
		return t.raiseException(env, ExceptionArithmetic, 0)
	}
	t.SetReg(rd, uint32(x/y))
	t.AdvancePC()
	t.AdvanceTime(clock.DivRemTicks)
	return jit.StepContinue
}

func execDivu(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	x, y := t.Reg(a), t.Reg(b)
	if y == 0 {
		return t.raiseException(env, ExceptionArithmetic, 0)
	}
	t.SetReg(rd, x/y)
	t.AdvancePC()
	t.AdvanceTime(clock.DivRemTicks)
	return jit.StepContinue
}

func execRems(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	x, y := int32(t.Reg(a)), int32(t.Reg(b))
	if y == 0 || (x == -(1<<31) && y == -1) {
		return t.raiseException(env, ExceptionArithmetic, 0)
	}
	t.SetReg(rd, uint32(x%y))
	t.AdvancePC()
	t.AdvanceTime(clock.DivRemTicks)
	return jit.StepContinue
}

func execRemu(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, a, b := reg3(ops)
	x, y := t.Reg(a), t.Reg(b)
	if y == 0 {
		return t.raiseException(env, ExceptionArithmetic, 0)
	}
	t.SetReg(rd, x%y)
	t.AdvancePC()
	t.AdvanceTime(clock.DivRemTicks)
	return jit.StepContinue
}

// --- constants (ru6/lru6, u10/lu10) ---

func execLdc(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd := Register(ops.Byte(0))
	t.SetReg(rd, uint32(ops.Byte(1)))
	t.Retire()
	return jit.StepContinue
}

// execLdap loads an address constant already resolved (at decode time) to
// an absolute byte address, carried in the long-form word operand.
func execLdap(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd := Register(ops.Byte(0))
	t.SetReg(rd, ops.Ops[1])
	t.Retire()
	return jit.StepContinue
}

func execMkmsk(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd, widthReg, _ := reg3(ops)
	width := t.Reg(widthReg)
	var mask uint32
	if width >= 32 {
		mask = ^uint32(0)
	} else if width > 0 {
		mask = (uint32(1) << width) - 1
	}
	t.SetReg(rd, mask)
	t.Retire()
	return jit.StepContinue
}

// --- load/store (2rus) ---

func execLdw(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, base := Register(ops.Byte(0)), Register(ops.Byte(1))
	offset := uint32(ops.Byte(2))
	t.SetReg(rd, env.ReadWord(t.Reg(base)+offset*4))
	t.Retire()
	return jit.StepContinue
}

func execStw(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rs, base := Register(ops.Byte(0)), Register(ops.Byte(1))
	offset := uint32(ops.Byte(2))
	env.WriteWord(t.Reg(base)+offset*4, t.Reg(rs))
	t.Retire()
	return jit.StepContinue
}

func execLdb(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, base := Register(ops.Byte(0)), Register(ops.Byte(1))
	offset := uint32(ops.Byte(2))
	t.SetReg(rd, uint32(env.ReadByte(t.Reg(base)+offset)))
	t.Retire()
	return jit.StepContinue
}

func execStb(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rs, base := Register(ops.Byte(0)), Register(ops.Byte(1))
	offset := uint32(ops.Byte(2))
	env.WriteByte(t.Reg(base)+offset, uint8(t.Reg(rs)))
	t.Retire()
	return jit.StepContinue
}

func execLd16s(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, base := Register(ops.Byte(0)), Register(ops.Byte(1))
	offset := uint32(ops.Byte(2))
	v := env.ReadHalf(t.Reg(base) + offset*2)
	t.SetReg(rd, uint32(int32(int16(v))))
	t.Retire()
	return jit.StepContinue
}

func execSt16(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rs, base := Register(ops.Byte(0)), Register(ops.Byte(1))
	offset := uint32(ops.Byte(2))
	env.WriteHalf(t.Reg(base)+offset*2, uint16(t.Reg(rs)))
	t.Retire()
	return jit.StepContinue
}

// --- branches: every branch ends a JIT trace (mayBranch), so the
// decode-cache/core dispatch loop re-enters normal fetch at the new pc,
// which naturally resolves to IllegalPC if it lands outside the region. ---

func execBru(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	t.pc = t.pc + ops.Ops[0]
	t.AdvanceTime(clock.InstructionTicks)
	return jit.StepEndTrace
}

func execBrf(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	cond := Register(ops.Byte(0))
	delta := ops.Ops[1]
	if t.Reg(cond) == 0 {
		t.pc += delta
		t.AdvanceTime(clock.InstructionTicks)
	} else {
		t.Retire()
	}
	return jit.StepEndTrace
}

func execBrb(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	cond := Register(ops.Byte(0))
	delta := ops.Ops[1]
	if t.Reg(cond) != 0 {
		t.pc -= delta
		t.AdvanceTime(clock.InstructionTicks)
	} else {
		t.Retire()
	}
	return jit.StepEndTrace
}

func execBla(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	target := Register(ops.Byte(0))
	t.SetReg(LR, t.pc+1)
	t.pc = t.Reg(target)
	t.AdvanceTime(clock.InstructionTicks)
	return jit.StepEndTrace
}

func execBl(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	t.SetReg(LR, t.pc+1)
	t.pc = t.pc + ops.Ops[0]
	t.AdvanceTime(clock.InstructionTicks)
	return jit.StepEndTrace
}

// --- resource in/out: the three-way OpResult a descheduling IN/OUT can
// return on every resource type (port/timer/chanend/lock/synchroniser). ---

func execIn(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, resReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	io, ok := res.(resource.InOut)
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	val, result := io.In(t, t.Time())
	switch result {
	case resource.Illegal:
		return t.raiseException(env, ExceptionIllegalResource, 0)
	case resource.Deschedule:
		t.deschedule(env, res)
		return jit.StepYield
	default:
		t.SetReg(rd, val)
		t.Retire()
		return jit.StepContinue
	}
}

func execOut(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	resReg, valReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	io, ok := res.(resource.InOut)
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	if ch, isChanend := res.(*resource.Chanend); isChanend && ch.Dest() == nil && ch.DestID() != 0 {
		dest, ok := env.ResolveChanend(ch.ID(), ch.DestID())
		if !ok {
			return t.raiseException(env, ExceptionLinkError, 0)
		}
		ch.SetDest(dest)
	}
	switch io.Out(t, t.Reg(valReg), t.Time()) {
	case resource.Illegal:
		return t.raiseException(env, ExceptionIllegalResource, 0)
	case resource.Deschedule:
		t.deschedule(env, res)
		return jit.StepYield
	default:
		t.Retire()
		return jit.StepContinue
	}
}

// execOutct implements OUTCT: sends a control (CT_END-family) token
// whose value is taken from a register, rather than a plain data byte, completing
// the inct/outct/chkct control-token family alongside the generic data
// OpIn/OpOut above.
func execOutct(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	resReg, valReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	ch, ok := res.(*resource.Chanend)
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	if ch.Dest() == nil && ch.DestID() != 0 {
		dest, ok := env.ResolveChanend(ch.ID(), ch.DestID())
		if !ok {
			return t.raiseException(env, ExceptionLinkError, 0)
		}
		ch.SetDest(dest)
	}
	tok := resource.Token{Kind: resource.TokenCTEnd, Value: uint8(t.Reg(valReg))}
	if ch.SendToken(t, tok, t.Time()) == resource.Illegal {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	t.Retire()
	return jit.StepContinue
}

// execInct implements INCT: receives the next token, requiring it be a
// control token.
func execInct(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, resReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	ch, ok := res.(*resource.Chanend)
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	val, result := ch.InControl(t, t.Time())
	switch result {
	case resource.Illegal:
		return t.raiseException(env, ExceptionIllegalResource, 0)
	case resource.Deschedule:
		t.deschedule(env, res)
		return jit.StepYield
	default:
		t.SetReg(rd, val)
		t.Retire()
		return jit.StepContinue
	}
}

// execChkct implements CHKCT: a non-consuming test of whether the queue's
// head token is a control token matching the given value, descheduling
// only if the queue is currently empty.
func execChkct(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, resReg, valReg := reg3(ops)
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	ch, ok := res.(*resource.Chanend)
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	val, result := ch.CheckControl(t, t.Reg(valReg), t.Time())
	if result == resource.Deschedule {
		t.deschedule(env, res)
		return jit.StepYield
	}
	t.SetReg(rd, val)
	t.Retire()
	return jit.StepContinue
}

// deschedule parks the thread on a resource that just returned
// OpResult.Deschedule from In/Out: the resource itself is responsible for
// calling Schedule() (directly, or via the owner's Owner.Take/SetPending
// path) once its condition becomes satisfiable. If res is a
// resource.WakeSource (a Timer or a Port), its wake-up depends on time
// passing rather than on a peer thread touching it, so the resource it
// names must also be armed on the scheduler here (§5).
func (t *Thread) deschedule(env Env, res any) {
	if c, ok := res.(cancellable); ok {
		t.pausedOn = c
	}
	t.sr.Set(WAITING, true)
	if w, ok := res.(resource.WakeSource); ok {
		if r, wake, ok := w.WakeResource(t.time); ok {
			env.ScheduleResource(r, wake)
		}
	}
}

func execSetcOp(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	resReg, valReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	if !t.SetC(res, t.Reg(valReg), t.Time()) {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	t.Retire()
	return jit.StepContinue
}

func execSetd(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	resReg, valReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	res, ok := env.ResourceByID(resource.ID(t.Reg(resReg)))
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	setter, ok := res.(interface {
		SetData(t resource.Owner, v uint32, time clock.Ticks) bool
	})
	if !ok {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	if !setter.SetData(t, t.Reg(valReg), t.Time()) {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	t.Retire()
	return jit.StepContinue
}

func execGetR(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, typeReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	id, ok := env.AllocResource(resource.Type(t.Reg(typeReg)))
	if !ok {
		t.SetReg(rd, 0)
		t.Retire()
		return jit.StepContinue
	}
	t.SetReg(rd, uint32(id))
	t.Retire()
	return jit.StepContinue
}

func execFreeR(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	resReg := Register(ops.Byte(0))
	if !env.FreeResource(resource.ID(t.Reg(resReg))) {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	t.Retire()
	return jit.StepContinue
}

// --- processor-state registers (§6.4) ---

func execGetps(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	rd, psReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	t.SetReg(rd, env.GetPS(resource.PSRegister(t.Reg(psReg))))
	t.Retire()
	return jit.StepContinue
}

func execSetps(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	psReg, valReg := Register(ops.Byte(0)), Register(ops.Byte(1))
	env.SetPS(resource.PSRegister(t.Reg(psReg)), t.Reg(valReg))
	t.Retire()
	return jit.StepContinue
}

// --- synchronisation ---

func execSsync(t *Thread, env Env, _ decode.Operands) jit.StepResult {
	return t.runSync(env, false)
}

func execMsync(t *Thread, env Env, _ decode.Operands) jit.StepResult {
	return t.runSync(env, true)
}

func (t *Thread) runSync(env Env, isMaster bool) jit.StepResult {
	sync := t.Sync()
	if sync == nil {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	switch sync.Sync(t, isMaster) {
	case resource.SyncContinue:
		t.Retire()
		return jit.StepContinue
	case resource.SyncDeschedule:
		t.sr.Set(WAITING, true)
		return jit.StepYield
	default: // SyncKill
		t.Free()
		return jit.StepEndTrace
	}
}

func execMjoin(t *Thread, env Env, _ decode.Operands) jit.StepResult {
	sync := t.Sync()
	if sync == nil {
		return t.raiseException(env, ExceptionIllegalResource, 0)
	}
	switch sync.MJoin(t) {
	case resource.SyncContinue:
		t.Retire()
		return jit.StepContinue
	case resource.SyncDeschedule:
		t.sr.Set(WAITING, true)
		return jit.StepYield
	default:
		t.Free()
		return jit.StepEndTrace
	}
}

func execWaiteu(t *Thread, _ Env, _ decode.Operands) jit.StepResult {
	if t.HasPendingEvent() {
		t.AdvanceTime(clock.InstructionTicks)
		t.TakeEvent()
		return jit.StepEndTrace
	}
	t.sr.Set(WAITING, true)
	return jit.StepYield
}

func execClre(t *Thread, _ Env, _ decode.Operands) jit.StepResult {
	t.Clre()
	t.Retire()
	return jit.StepContinue
}

func execSetsr(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	bits := StatusRegister(ops.Byte(0))
	took := t.SetSR(t.sr | bits)
	t.Retire()
	if took {
		t.TakeEvent()
		return jit.StepEndTrace
	}
	return jit.StepContinue
}

func execClrsr(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	bits := StatusRegister(ops.Byte(0))
	t.SetSR(t.sr &^ bits)
	t.Retire()
	return jit.StepContinue
}

func execGetsr(t *Thread, _ Env, ops decode.Operands) jit.StepResult {
	rd := Register(ops.Byte(0))
	t.SetReg(rd, uint32(t.sr))
	t.Retire()
	return jit.StepContinue
}

// --- stack frame bookkeeping ---

func execEntsp(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	n := uint32(ops.Byte(0))
	sp := t.Reg(SP) - n*4
	env.WriteWord(sp, t.Reg(LR))
	t.SetReg(SP, sp)
	t.Retire()
	return jit.StepContinue
}

func execRetsp(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	n := uint32(ops.Byte(0))
	sp := t.Reg(SP)
	lr := env.ReadWord(sp)
	t.SetReg(SP, sp+n*4)
	t.SetReg(LR, lr)
	t.pc = lr
	t.AdvanceTime(clock.InstructionTicks + clock.FnopTicks)
	return jit.StepEndTrace
}

func execKentsp(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	n := uint32(ops.Byte(0))
	ksp := t.Reg(KSP) - n*4
	env.WriteWord(ksp, t.Reg(SPC))
	t.SetReg(KSP, ksp)
	t.Retire()
	return jit.StepContinue
}

func execKrestsp(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	n := uint32(ops.Byte(0))
	ksp := t.Reg(KSP)
	spc := env.ReadWord(ksp)
	t.SetReg(KSP, ksp+n*4)
	t.SetReg(SPC, spc)
	t.Retire()
	return jit.StepContinue
}

// --- exceptions / kernel entry ---

func execEcallt(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	cond := Register(ops.Byte(0))
	if t.Reg(cond) != 0 {
		return t.raiseException(env, ExceptionECall, 0)
	}
	t.Retire()
	return jit.StepContinue
}

func execEcallf(t *Thread, env Env, ops decode.Operands) jit.StepResult {
	cond := Register(ops.Byte(0))
	if t.Reg(cond) == 0 {
		return t.raiseException(env, ExceptionECall, 0)
	}
	t.Retire()
	return jit.StepContinue
}

func execKcall(t *Thread, env Env, _ decode.Operands) jit.StepResult {
	return t.raiseException(env, ExceptionKCall, 0)
}

func execKret(t *Thread, _ Env, _ decode.Operands) jit.StepResult {
	t.sr = StatusRegister(t.Reg(SSR))
	t.pc = t.Reg(SPC)
	t.SetReg(ED, t.Reg(SED))
	t.AdvanceTime(clock.InstructionTicks)
	return jit.StepEndTrace
}
