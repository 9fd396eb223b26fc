package cpu

import (
	"lr35902/pins"
	"lr35902/register"
)

var cbRotateOps = [8]rotateOp{rlc, rrc, rl, rr, sla, sra, swap, srl}

// executeCB decodes a CB-prefixed opcode: x=0 rotate/shift, x=1 BIT,
// x=2 RES, x=3 SET, each against register r[z] (or (HL) when z==6).
func (c *CPU) executeCB(opcode byte, in pins.CpuInput) pins.CpuInput {
	x := opcode >> 6
	z := opcode & 7
	y := (opcode >> 3) & 7
	c.LastMnemonic = cbMnemonics[opcode]

	v, in2 := c.readR8(z, in)

	switch x {
	case 0:
		return c.writeR8(z, c.rotateShift(cbRotateOps[y], v), in2)
	case 1:
		c.Reg.SetFlag(register.FlagZero, v&(1<<y) == 0)
		c.Reg.SetFlag(register.FlagNegative, false)
		c.Reg.SetFlag(register.FlagHalfCarry, true)
		return in2
	case 2:
		return c.writeR8(z, v&^(1<<y), in2)
	default: // x == 3: SET
		return c.writeR8(z, v|(1<<y), in2)
	}
}
