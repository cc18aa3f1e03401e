package core

import "github.com/tileforge/tilesim/decode"

// Raw instruction encoding.
//
// No bit-exact ISA table survives in the retrieved reference sources
// (see thread/encoding.go), so this simulator invents its own: every
// instruction occupies exactly one decode-cache halfword (2 bytes),
// matching thread.Thread.AdvancePC's plain pc++ and letting a STW/STH
// into code memory alias the same byte addresses decode.Cache indexes.
//
// A halfword's two bytes are {opcode byte, operand-pool index byte}: the
// opcode identifies which thread.Opcode to dispatch, and the operand byte
// indexes into the core's own operandPool for the instruction's full
// decode.Operands packet. This is the same trick real constant-pool
// designs use (xCore's own LDWCP loads from a literal pool for exactly
// the case where an immediate doesn't fit inline) rather than trying to
// cram three register fields and wide immediates into 16 bits directly.

// InternOperands records ops in the core's operand pool (reusing an
// existing identical entry if one exists, to keep the pool from growing
// unboundedly across repeated encodes of the same instruction shape) and
// returns its index.
func (c *Core) InternOperands(ops decode.Operands) uint8 {
	for i, o := range c.operandPool {
		if o == ops {
			return uint8(i)
		}
	}
	if len(c.operandPool) >= 256 {
		// The pool is exhausted; reuse slot 0 rather than silently
		// corrupting an unrelated instruction's operands with an
		// out-of-range index.
		c.operandPool[0] = ops
		return 0
	}
	c.operandPool = append(c.operandPool, ops)
	return uint8(len(c.operandPool) - 1)
}

// EncodeInstruction returns the 2-byte raw encoding of op/ops, writable
// directly into a core's RAM (e.g. by the boot loader or a self-modifying
// store built in a test).
func (c *Core) EncodeInstruction(op uint16, ops decode.Operands) [2]byte {
	idx := c.InternOperands(ops)
	return [2]byte{byte(op), idx}
}

// decodeRaw reads the 2-byte raw encoding at byte address addr and
// resolves it to an opcode and operand packet, populating the decode
// cache slot at idx in place. Called only from the Decode pseudo-opcode
// dispatch case, the first time a given address is reached.
func (c *Core) decodeRaw(idx int, addr uint32) {
	off := c.memOffset(addr)
	opByte := c.mem[off]
	argByte := c.mem[off+1]
	ops := decode.Operands{}
	if int(argByte) < len(c.operandPool) {
		ops = c.operandPool[argByte]
	}
	slot := c.cache.Slot(idx)
	slot.Opcode = decode.Opcode(opByte)
	slot.Operands = ops
}
