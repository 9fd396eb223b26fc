// Package testbus is a minimal bus fabric used only to drive integration
// tests across the CPU and PPU: spec.md places the real bus fabric,
// cartridge mapper, and WRAM/HRAM chip selection out of this module's
// scope, but exercising end-to-end scenarios (an interrupt firing mid-DMA,
// a background-only scanline) needs something to route
// CpuOutput/CpuInput and PPU.PerformIO/ClockDMA against. This is adapted
// from the teacher's mem.Bus (a flat FakeRam array), extended to route
// VRAM/OAM/LCD addresses to a PPU and to own the IF/IE registers the CPU
// samples every cycle.
package testbus

import (
	"lr35902/cpu"
	"lr35902/pins"
	"lr35902/ppu"
)

// Bus is a flat 64KB address space with PPU-mapped regions routed to an
// attached ppu.PPU. WRAM/HRAM/everything else reads and writes FakeRAM
// directly, standing in for the cartridge and work/high RAM this module
// does not implement.
type Bus struct {
	FakeRAM [0x10000]byte
	PPU     *ppu.PPU

	IF, IE byte

	pendingCPURead *uint16
	pendingDMARead *uint16
}

// New builds a Bus with its own PPU attached.
func New() *Bus {
	return &Bus{PPU: ppu.New()}
}

func (b *Bus) isPPUMapped(addr uint16) bool {
	return (addr >= 0x8000 && addr <= 0x9FFF) ||
		(addr >= 0xFE00 && addr <= 0xFE9F) ||
		(addr >= 0xFF40 && addr <= 0xFF4B)
}

func (b *Bus) read(addr uint16) byte {
	switch {
	case addr == 0xFF0F:
		return b.IF
	case addr == 0xFFFF:
		return b.IE
	case b.isPPUMapped(addr):
		return b.PPU.PerformIO(addr, false, 0)
	default:
		return b.FakeRAM[addr]
	}
}

func (b *Bus) write(addr uint16, v byte) {
	switch {
	case addr == 0xFF0F:
		b.IF = v
	case addr == 0xFFFF:
		b.IE = v
	case b.isPPUMapped(addr):
		b.PPU.PerformIO(addr, true, v)
	default:
		b.FakeRAM[addr] = v
	}
}

// Tick advances the CPU by one M-cycle, applying its previous request to
// this bus and handing back the response, then clocks OAM DMA (if one is
// armed) and advances the PPU by 4 dots. Per spec.md's documented open
// question, the CPU's own reads are not blocked while DMA is active; the
// host deciding what a CPU-issued read sees during DMA is out of this
// bus's concern too; OAM writes route through DMA, not the CPU output.
func (b *Bus) Tick(c *cpu.CPU) (pins.TickYield, error) {
	in := pins.CpuInput{IF: b.IF, IE: b.IE, OAMDMAOwned: b.PPU.DMAActive()}
	if b.pendingCPURead != nil {
		in.Data = b.read(*b.pendingCPURead)
	}

	out, err := c.Step(in)
	if err != nil {
		return out, err
	}

	if out.Pins.Kind == pins.Write {
		b.write(out.Pins.Addr, out.Pins.Data)
		b.pendingCPURead = nil
	} else {
		addr := out.Pins.Addr
		b.pendingCPURead = &addr
	}

	b.clockDMA()
	b.IF |= b.PPU.PendingIF()
	b.PPU.AdvanceDots(4)
	return out, nil
}

func (b *Bus) clockDMA() {
	if !b.PPU.DMAActive() {
		b.pendingDMARead = nil
		return
	}
	var in pins.CpuInput
	if b.pendingDMARead != nil {
		in.Data = b.FakeRAM[*b.pendingDMARead]
	}
	req := b.PPU.ClockDMA(in)
	if req.Kind == pins.Read {
		addr := req.Addr
		b.pendingDMARead = &addr
	} else {
		b.pendingDMARead = nil
	}
}
