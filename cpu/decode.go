package cpu

import (
	"lr35902/pins"
	"lr35902/register"
)

// The GBZ80 opcode space decomposes into five bitfields, following the
// well-known x/z/y/p/q table (shared by every Z80-family decoder,
// including the reference this engine is grounded on):
//
//	x = opcode[7:6]   z = opcode[2:0]   y = opcode[5:3]
//	p = y[2:1]        q = y[0]
func decodeFields(opcode byte) (x, z, y, p, q byte) {
	x = opcode >> 6
	z = opcode & 7
	y = (opcode >> 3) & 7
	p = y >> 1
	q = y & 1
	return
}

// execute runs the instruction whose opcode was just fetched (PC already
// points past it) to completion, yielding once per remaining M-cycle, and
// returns the CpuInput delivered on the last such yield.
func (c *CPU) execute(opcode byte, in pins.CpuInput) pins.CpuInput {
	c.LastOpcode = opcode
	c.LastMnemonic = mnemonics[opcode]
	x, z, y, p, q := decodeFields(opcode)

	switch x {
	case 0:
		return c.executeX0(z, y, p, q, in)
	case 1:
		return c.executeX1(z, y, in)
	case 2:
		return c.executeX2(z, y, in)
	case 3:
		return c.executeX3(z, y, p, q, in)
	}
	panic("unreachable")
}

func (c *CPU) executeX0(z, y, p, q byte, in pins.CpuInput) pins.CpuInput {
	switch z {
	case 0:
		switch {
		case y == 0: // NOP
			return in
		case y == 1: // LD (nn),SP
			lo, hi, in2 := c.fetch16(in)
			addr := uint16(hi)<<8 | uint16(lo)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Write, Addr: addr, Data: byte(c.Reg.SP)}, false)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Write, Addr: addr + 1, Data: byte(c.Reg.SP >> 8)}, false)
			return in2
		case y == 2: // STOP: aliased to HALT, consumes the padding byte
			in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.PC++
			c.Reg.Halted = true
			return in2
		case y == 3: // JR d
			d, in2 := c.fetch8(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.PC = uint16(int32(c.Reg.PC) + int32(int8(d)))
			return in2
		default: // JR cc, d
			d, in2 := c.fetch8(in)
			if !c.condition(y - 4) {
				return in2
			}
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.PC = uint16(int32(c.Reg.PC) + int32(int8(d)))
			return in2
		}
	case 1:
		if q == 0 { // LD rp[p], nn
			lo, hi, in2 := c.fetch16(in)
			c.setRP(p, uint16(hi)<<8|uint16(lo))
			return in2
		}
		// ADD HL, rp[p]
		in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
		c.addHL16(c.getRP(p))
		return in2
	case 2:
		addr := c.indirectAddr(p)
		if q == 0 {
			return c.yield(pins.CpuOutput{Kind: pins.Write, Addr: addr, Data: c.Reg.A}, false)
		}
		in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: addr}, false)
		c.Reg.A = in2.Data
		return in2
	case 3:
		in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
		if q == 0 {
			c.setRP(p, c.getRP(p)+1)
		} else {
			c.setRP(p, c.getRP(p)-1)
		}
		return in2
	case 4:
		v, in2 := c.readR8(y, in)
		return c.writeR8(y, c.inc8(v), in2)
	case 5:
		v, in2 := c.readR8(y, in)
		return c.writeR8(y, c.dec8(v), in2)
	case 6:
		n, in2 := c.fetch8(in)
		return c.writeR8(y, n, in2)
	case 7:
		return c.executeAccumulatorOp(y, in)
	}
	panic("unreachable")
}

// indirectAddr resolves the (BC)/(DE)/(HL+)/(HL-) address forms, advancing
// HL where the form requires it.
func (c *CPU) indirectAddr(p byte) uint16 {
	switch p {
	case 0:
		return c.Reg.BC()
	case 1:
		return c.Reg.DE()
	case 2:
		hl := c.Reg.HL()
		c.Reg.SetHL(hl + 1)
		return hl
	case 3:
		hl := c.Reg.HL()
		c.Reg.SetHL(hl - 1)
		return hl
	}
	panic("unreachable")
}

func (c *CPU) executeAccumulatorOp(y byte, in pins.CpuInput) pins.CpuInput {
	switch y {
	case 0:
		c.Reg.A = c.rotateShift(rlc, c.Reg.A)
		c.Reg.SetFlag(register.FlagZero, false)
	case 1:
		c.Reg.A = c.rotateShift(rrc, c.Reg.A)
		c.Reg.SetFlag(register.FlagZero, false)
	case 2:
		c.Reg.A = c.rotateShift(rl, c.Reg.A)
		c.Reg.SetFlag(register.FlagZero, false)
	case 3:
		c.Reg.A = c.rotateShift(rr, c.Reg.A)
		c.Reg.SetFlag(register.FlagZero, false)
	case 4:
		c.daa()
	case 5:
		c.Reg.A = ^c.Reg.A
		c.Reg.SetFlag(register.FlagNegative, true)
		c.Reg.SetFlag(register.FlagHalfCarry, true)
	case 6:
		c.Reg.SetFlag(register.FlagNegative, false)
		c.Reg.SetFlag(register.FlagHalfCarry, false)
		c.Reg.SetFlag(register.FlagCarry, true)
	case 7:
		c.Reg.SetFlag(register.FlagNegative, false)
		c.Reg.SetFlag(register.FlagHalfCarry, false)
		c.Reg.SetFlag(register.FlagCarry, !c.Reg.Flag(register.FlagCarry))
	}
	return in
}

func (c *CPU) executeX1(z, y byte, in pins.CpuInput) pins.CpuInput {
	if z == 6 && y == 6 {
		c.Reg.Halted = true
		return in
	}
	v, in2 := c.readR8(z, in)
	return c.writeR8(y, v, in2)
}

func (c *CPU) executeX2(z, y byte, in pins.CpuInput) pins.CpuInput {
	v, in2 := c.readR8(z, in)
	c.alu(aluOp(y), v)
	return in2
}

func (c *CPU) executeX3(z, y, p, q byte, in pins.CpuInput) pins.CpuInput {
	switch z {
	case 0:
		switch {
		case y <= 3: // RET cc
			in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			if !c.condition(y) {
				return in2
			}
			return c.ret(in2)
		case y == 4: // LDH (n),A
			n, _ := c.fetch8(in)
			return c.yield(pins.CpuOutput{Kind: pins.Write, Addr: 0xFF00 + uint16(n), Data: c.Reg.A}, false)
		case y == 5: // ADD SP,d
			d, in2 := c.fetch8(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.SP = c.addSP8(int8(d))
			return in2
		case y == 6: // LDH A,(n)
			n, in2 := c.fetch8(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: 0xFF00 + uint16(n)}, false)
			c.Reg.A = in2.Data
			return in2
		default: // y == 7: LD HL,SP+d
			d, in2 := c.fetch8(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.SetHL(c.addSP8(int8(d)))
			return in2
		}
	case 1:
		if q == 0 { // POP rp2[p]
			lo, hi, in2 := c.pop(in)
			c.setRP2(p, uint16(hi)<<8|uint16(lo))
			return in2
		}
		switch p {
		case 0: // RET
			return c.ret(in)
		case 1: // RETI
			c.Reg.IME = true
			return c.ret(in)
		case 2: // JP HL
			c.Reg.PC = c.Reg.HL()
			return in
		default: // LD SP,HL
			in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.SP = c.Reg.HL()
			return in2
		}
	case 2:
		switch {
		case y <= 3: // JP cc,nn
			lo, hi, in2 := c.fetch16(in)
			if !c.condition(y) {
				return in2
			}
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.PC = uint16(hi)<<8 | uint16(lo)
			return in2
		case y == 4: // LD (0xFF00+C),A
			return c.yield(pins.CpuOutput{Kind: pins.Write, Addr: 0xFF00 + uint16(c.Reg.C), Data: c.Reg.A}, false)
		case y == 5: // LD (nn),A
			lo, hi, _ := c.fetch16(in)
			return c.yield(pins.CpuOutput{Kind: pins.Write, Addr: uint16(hi)<<8 | uint16(lo), Data: c.Reg.A}, false)
		case y == 6: // LD A,(0xFF00+C)
			in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: 0xFF00 + uint16(c.Reg.C)}, false)
			c.Reg.A = in2.Data
			return in2
		default: // LD A,(nn)
			lo, hi, in2 := c.fetch16(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: uint16(hi)<<8 | uint16(lo)}, false)
			c.Reg.A = in2.Data
			return in2
		}
	case 3:
		switch y {
		case 0: // JP nn
			lo, hi, in2 := c.fetch16(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			c.Reg.PC = uint16(hi)<<8 | uint16(lo)
			return in2
		case 1: // CB prefix
			cbOp, in2 := c.fetch8(in)
			return c.executeCB(cbOp, in2)
		case 6: // DI
			c.Reg.IME = false
			return in
		case 7: // EI: set immediately (spec's documented simplification,
			// no one-instruction deferral / HALT bug modeled)
			c.Reg.IME = true
			return in
		default:
			c.illegalOpcode(mnemonicOpcode(3, z, y))
			return in
		}
	case 4:
		if y > 3 {
			c.illegalOpcode(mnemonicOpcode(3, z, y))
			return in
		}
		lo, hi, in2 := c.fetch16(in)
		if !c.condition(y) {
			return in2
		}
		in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
		return c.call(uint16(hi)<<8|uint16(lo), in2)
	case 5:
		if q == 0 { // PUSH rp2[p]
			v := c.getRP2(p)
			in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			return c.push(byte(v>>8), byte(v), in2)
		}
		if p == 0 { // CALL nn
			lo, hi, in2 := c.fetch16(in)
			in2 = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
			return c.call(uint16(hi)<<8|uint16(lo), in2)
		}
		c.illegalOpcode(mnemonicOpcode(3, z, y))
		return in
	case 6:
		n, in2 := c.fetch8(in)
		c.alu(aluOp(y), n)
		return in2
	default: // z == 7: RST y*8
		in2 := c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
		return c.call(uint16(y)*8, in2)
	}
}

func mnemonicOpcode(x, z, y byte) byte {
	return x<<6 | y<<3 | z
}

// fetch8 reads one immediate byte at PC and advances PC.
func (c *CPU) fetch8(in pins.CpuInput) (byte, pins.CpuInput) {
	in = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
	c.Reg.PC++
	return in.Data, in
}

// fetch16 reads a little-endian 16-bit immediate at PC, low byte first.
func (c *CPU) fetch16(in pins.CpuInput) (lo, hi byte, out pins.CpuInput) {
	lo, in = c.fetch8(in)
	hi, in = c.fetch8(in)
	return lo, hi, in
}

func (c *CPU) pop(in pins.CpuInput) (lo, hi byte, out pins.CpuInput) {
	in = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.SP}, false)
	lo = in.Data
	c.Reg.SP++
	in = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.SP}, false)
	hi = in.Data
	c.Reg.SP++
	return lo, hi, in
}

func (c *CPU) push(hi, lo byte, in pins.CpuInput) pins.CpuInput {
	c.Reg.SP--
	in = c.yield(pins.CpuOutput{Kind: pins.Write, Addr: c.Reg.SP, Data: hi}, false)
	c.Reg.SP--
	in = c.yield(pins.CpuOutput{Kind: pins.Write, Addr: c.Reg.SP, Data: lo}, false)
	return in
}

func (c *CPU) ret(in pins.CpuInput) pins.CpuInput {
	lo, hi, _ := c.pop(in)
	c.Reg.PC = uint16(hi)<<8 | uint16(lo)
	return c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.PC}, false)
}

func (c *CPU) call(target uint16, in pins.CpuInput) pins.CpuInput {
	in = c.push(byte(c.Reg.PC>>8), byte(c.Reg.PC), in)
	c.Reg.PC = target
	return in
}

func (c *CPU) condition(y byte) bool {
	switch y {
	case 0:
		return !c.Reg.Flag(register.FlagZero)
	case 1:
		return c.Reg.Flag(register.FlagZero)
	case 2:
		return !c.Reg.Flag(register.FlagCarry)
	default:
		return c.Reg.Flag(register.FlagCarry)
	}
}

// readR8/writeR8 implement the shared 8-register index used throughout the
// x0/x1/x2 tables: B,C,D,E,H,L,(HL),A. Index 6, (HL), is the only one that
// costs a bus cycle.
func (c *CPU) readR8(idx byte, in pins.CpuInput) (byte, pins.CpuInput) {
	switch idx {
	case 0:
		return c.Reg.B, in
	case 1:
		return c.Reg.C, in
	case 2:
		return c.Reg.D, in
	case 3:
		return c.Reg.E, in
	case 4:
		return c.Reg.H, in
	case 5:
		return c.Reg.L, in
	case 6:
		in = c.yield(pins.CpuOutput{Kind: pins.Read, Addr: c.Reg.HL()}, false)
		return in.Data, in
	default:
		return c.Reg.A, in
	}
}

func (c *CPU) writeR8(idx byte, v byte, in pins.CpuInput) pins.CpuInput {
	switch idx {
	case 0:
		c.Reg.B = v
	case 1:
		c.Reg.C = v
	case 2:
		c.Reg.D = v
	case 3:
		c.Reg.E = v
	case 4:
		c.Reg.H = v
	case 5:
		c.Reg.L = v
	case 6:
		in = c.yield(pins.CpuOutput{Kind: pins.Write, Addr: c.Reg.HL(), Data: v}, false)
	default:
		c.Reg.A = v
	}
	return in
}

func (c *CPU) getRP(p byte) uint16 {
	switch p {
	case 0:
		return c.Reg.BC()
	case 1:
		return c.Reg.DE()
	case 2:
		return c.Reg.HL()
	default:
		return c.Reg.SP
	}
}

func (c *CPU) setRP(p byte, v uint16) {
	switch p {
	case 0:
		c.Reg.SetBC(v)
	case 1:
		c.Reg.SetDE(v)
	case 2:
		c.Reg.SetHL(v)
	default:
		c.Reg.SP = v
	}
}

func (c *CPU) getRP2(p byte) uint16 {
	switch p {
	case 0:
		return c.Reg.BC()
	case 1:
		return c.Reg.DE()
	case 2:
		return c.Reg.HL()
	default:
		return c.Reg.AF()
	}
}

func (c *CPU) setRP2(p byte, v uint16) {
	switch p {
	case 0:
		c.Reg.SetBC(v)
	case 1:
		c.Reg.SetDE(v)
	case 2:
		c.Reg.SetHL(v)
	default:
		c.Reg.SetAF(v)
	}
}
