package testbus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lr35902/cpu"
	"lr35902/ppu"
)

// TestInterruptWakesHaltedCPUAndDispatches exercises the CPU, the bus's
// IF/IE routing, and the interrupt-dispatch sequence together: a halted
// CPU should idle until IF gains a bit also set in IE, then vector to
// 0x40 and push its resume address.
func TestInterruptWakesHaltedCPUAndDispatches(t *testing.T) {
	b := New()
	c := cpu.New()
	c.Reg.IME = true
	c.Reg.SP = 0xFFFE
	b.FakeRAM[0] = 0x76 // HALT
	b.IE = 0x01

	for i := 0; i < 2; i++ { // fetch HALT, then execute it
		_, err := b.Tick(c)
		assert.NoError(t, err)
	}
	assert.True(t, c.Reg.Halted)

	for i := 0; i < 3; i++ {
		b.Tick(c)
	}
	assert.True(t, c.Reg.Halted, "stays halted while IF is clear")

	b.IF = 0x01 // raise VBlank
	for i := 0; i < 5; i++ {
		b.Tick(c)
	}

	assert.False(t, c.Reg.Halted)
	assert.False(t, c.Reg.IME)
	assert.Equal(t, uint16(0x40), c.Reg.PC)
	assert.Equal(t, byte(0), b.IF&0x01, "dispatch clears the serviced IF bit")
	assert.Equal(t, uint16(0xFFFC), c.Reg.SP)
	assert.Equal(t, byte(0x01), b.FakeRAM[0xFFFC], "pushed return address low byte")
	assert.Equal(t, byte(0x00), b.FakeRAM[0xFFFD], "pushed return address high byte")
}

// TestDMACompletesWhileCPUKeepsExecuting shows OAM DMA and CPU instruction
// execution advancing independently on the shared bus: the CPU keeps
// stepping through NOPs every M-cycle the whole time DMA is in flight.
func TestDMACompletesWhileCPUKeepsExecuting(t *testing.T) {
	b := New()
	c := cpu.New()

	for i := 0; i < 0xA0; i++ {
		b.FakeRAM[0xC000+i] = byte(i + 1)
	}
	// program is implicitly 200 NOPs: FakeRAM zero-value is opcode 0x00.
	b.PPU.StartDMA(0xC0)

	const ticks = 200
	for i := 0; i < ticks; i++ {
		_, err := b.Tick(c)
		assert.NoError(t, err)
	}

	assert.False(t, b.PPU.DMAActive(), "DMA finished well within 200 M-cycles")
	assert.Equal(t, uint16(ticks-1), c.Reg.PC, "CPU fetched one NOP per M-cycle throughout; the last is executed on the next tick")
	for i := 0; i < 0xA0; i++ {
		assert.Equal(t, byte(i+1), b.PPU.OAM[i])
	}
}

// TestBackgroundScanlineRendersWithCPUTickingConcurrently checks that the
// PPU renders a recognizable pixel while the CPU (halted, idling on the
// bus) is ticked through the same Bus.Tick loop.
func TestBackgroundScanlineRendersWithCPUTickingConcurrently(t *testing.T) {
	b := New()
	b.PPU.VRAM[0] = 0xFF // tile 0, row 0: color index 1 across the row
	b.PPU.VRAM[1] = 0x00
	b.PPU.BGP = 0xE4
	b.PPU.LCDC = ppu.LCDCEnable | ppu.LCDCBGEnable | ppu.LCDCBGTileDataArea

	c := cpu.New()
	b.FakeRAM[0] = 0x76 // HALT

	for i := 0; i < 114; i++ { // one scanline's worth of M-cycles
		b.Tick(c)
	}

	assert.Equal(t, ppu.COLORS[1], b.PPU.Back.At(0, 0))
	assert.True(t, c.Reg.Halted)
}
