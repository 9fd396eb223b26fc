package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lr35902/pins"
	"lr35902/register"
)

// harness is a flat 64KB RAM wired directly to a CPU's pins, used to drive
// whole instructions across the engine's M-cycle boundary in tests. It is
// deliberately minimal: the real bus fabric (cartridge, PPU mapping, timer)
// is out of this core's scope and lives with the host.
//
// A read's data reaches the CPU with the following Step, so an instruction's
// effects become visible one Step after its last M-cycle; the tests below
// run that one extra cycle (the "+1") before asserting on them.
type harness struct {
	cpu *CPU
	ram [0x10000]byte
	ifr byte
	ier byte
}

func newHarness() *harness {
	return &harness{cpu: New()}
}

func (h *harness) run(t *testing.T, cycles int) []pins.TickYield {
	t.Helper()
	outs := make([]pins.TickYield, 0, cycles)
	in := pins.CpuInput{IF: h.ifr, IE: h.ier}
	for i := 0; i < cycles; i++ {
		out, err := h.cpu.Step(in)
		if err != nil {
			t.Fatalf("cpu error: %v", err)
		}
		outs = append(outs, out)
		if out.Pins.Kind == pins.Write {
			h.ram[out.Pins.Addr] = out.Pins.Data
			if out.Pins.Addr == 0xFF0F {
				h.ifr = out.Pins.Data
			}
		}
		in = pins.CpuInput{Data: h.ram[out.Pins.Addr], IF: h.ifr, IE: h.ier}
	}
	return outs
}

func TestAddFlags(t *testing.T) {
	h := newHarness()
	h.ram[0] = 0x3E // LD A,n
	h.ram[1] = 0x0F
	h.ram[2] = 0xC6 // ADD A,n
	h.ram[3] = 0x01
	h.run(t, 2+2+1)

	assert.Equal(t, byte(0x10), h.cpu.Reg.A)
	assert.True(t, h.cpu.Reg.Flag(register.FlagHalfCarry))
	assert.False(t, h.cpu.Reg.Flag(register.FlagZero))
	assert.False(t, h.cpu.Reg.Flag(register.FlagCarry))
	assert.Equal(t, byte(0), h.cpu.Reg.F&0x0F, "low nibble of F always zero")
}

func TestDAAAfterBCDAdd(t *testing.T) {
	h := newHarness()
	h.ram[0] = 0x3E // LD A,0x45
	h.ram[1] = 0x45
	h.ram[2] = 0xC6 // ADD A,0x38
	h.ram[3] = 0x38
	h.ram[4] = 0x27 // DAA
	h.run(t, 2+2+1+1)

	assert.Equal(t, byte(0x83), h.cpu.Reg.A)
	assert.False(t, h.cpu.Reg.Flag(register.FlagCarry))
	assert.False(t, h.cpu.Reg.Flag(register.FlagHalfCarry))
}

func TestAddHL16(t *testing.T) {
	h := newHarness()
	h.ram[0] = 0x01 // LD BC,0x0001
	h.ram[1] = 0x01
	h.ram[2] = 0x00
	h.ram[3] = 0x21 // LD HL,0x0FFF
	h.ram[4] = 0xFF
	h.ram[5] = 0x0F
	h.ram[6] = 0x09 // ADD HL,BC
	h.run(t, 3+3+2+1)

	assert.Equal(t, uint16(0x1000), h.cpu.Reg.HL())
	assert.True(t, h.cpu.Reg.Flag(register.FlagHalfCarry))
	assert.False(t, h.cpu.Reg.Flag(register.FlagCarry))
	assert.False(t, h.cpu.Reg.Flag(register.FlagNegative))
}

func TestInterruptDispatch(t *testing.T) {
	h := newHarness()
	h.cpu.Reg.PC = 0x0100
	h.cpu.Reg.SP = 0xFFFE
	h.cpu.Reg.IME = true
	h.ifr = 0x01
	h.ier = 0x01

	outs := h.run(t, 5)

	assert.Equal(t, pins.Write, outs[0].Pins.Kind)
	assert.Equal(t, uint16(0xFF0F), outs[0].Pins.Addr)
	assert.Equal(t, byte(0), outs[0].Pins.Data, "VBlank IF bit cleared")

	assert.Equal(t, byte(0x01), h.ram[0xFFFD], "pushed PC high byte")
	assert.Equal(t, byte(0x00), h.ram[0xFFFC], "pushed PC low byte")

	assert.Equal(t, uint16(0x0040), h.cpu.Reg.PC, "jumped to VBlank vector")
	assert.Equal(t, uint16(0xFFFC), h.cpu.Reg.SP)
	assert.False(t, h.cpu.Reg.IME)
}

func TestHaltExitsWithoutDispatchWhenIMEOff(t *testing.T) {
	h := newHarness()
	h.cpu.Reg.Halted = true
	h.cpu.Reg.IME = false
	h.cpu.Reg.PC = 0x10
	h.ram[0x10] = 0x00 // NOP
	h.ifr = 0x01
	h.ier = 0x01

	h.run(t, 1+1)

	assert.False(t, h.cpu.Reg.Halted)
	assert.Equal(t, uint16(0x11), h.cpu.Reg.PC, "NOP fetched and PC advanced")
}

func TestHaltIdlesWhileNoInterruptPending(t *testing.T) {
	h := newHarness()
	h.cpu.Reg.Halted = true
	h.cpu.Reg.PC = 0x20

	h.run(t, 3)

	assert.True(t, h.cpu.Reg.Halted)
	assert.Equal(t, uint16(0x20), h.cpu.Reg.PC, "PC does not advance while halted")
}

func TestCBBitRES(t *testing.T) {
	h := newHarness()
	h.ram[0] = 0x3E // LD A,0xFF
	h.ram[1] = 0xFF
	h.ram[2] = 0xCB // BIT 7,A
	h.ram[3] = 0x7F
	h.ram[4] = 0xCB // RES 0,A
	h.ram[5] = 0x87
	h.run(t, 2+2+2+1)

	assert.False(t, h.cpu.Reg.Flag(register.FlagZero), "BIT 7 on 0xFF is set, Zero clear")
	assert.Equal(t, byte(0xFE), h.cpu.Reg.A)
}

func TestStackPushPop(t *testing.T) {
	h := newHarness()
	h.cpu.Reg.SP = 0xFFFE
	h.cpu.Reg.SetBC(0xBEEF)
	h.ram[0] = 0xC5 // PUSH BC
	h.ram[1] = 0xD1 // POP DE
	h.run(t, 4+3+1)

	assert.Equal(t, uint16(0xBEEF), h.cpu.Reg.DE())
	assert.Equal(t, uint16(0xFFFE), h.cpu.Reg.SP)
}
