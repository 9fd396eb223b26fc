package ppu

// PerformIO routes a CPU-issued memory access that falls in VRAM, OAM, or
// the LCD's 0xFF40..0xFF4B register block. The host's bus fabric decides
// which addresses reach here at all (spec.md §1 leaves address decoding
// to the bus); PerformIO only implements what happens once one does,
// mirroring the original's perform_io.
func (p *PPU) PerformIO(addr uint16, write bool, data byte) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		i := addr - 0x8000
		if write {
			p.VRAM[i] = data
		}
		return p.VRAM[i]

	case addr >= 0xFE00 && addr <= 0xFE9F:
		i := addr - 0xFE00
		if write {
			p.OAM[i] = data
		}
		return p.OAM[i]

	case addr == 0xFF40:
		if write {
			p.LCDC = LCDC(data)
		}
		return byte(p.LCDC)

	case addr == 0xFF41:
		if write {
			// mode bits and LYC_EQUALS_LY are hardware-controlled and
			// not writable; only the four interrupt-enable bits are.
			p.STAT = (p.STAT & 0x87) | STAT(data&0x78)
		}
		return byte(p.STAT) | 0x80

	case addr == 0xFF42:
		if write {
			p.SCY = data
		}
		return p.SCY

	case addr == 0xFF43:
		if write {
			p.SCX = data
		}
		return p.SCX

	case addr == 0xFF44:
		return p.LY // read-only

	case addr == 0xFF45:
		if write {
			p.LYC = data
			p.updateLYCFlag()
		}
		return p.LYC

	case addr == 0xFF46:
		if write {
			p.StartDMA(data)
		}
		if p.dma.state != dmaInactive {
			return byte(p.dma.srcBase >> 8)
		}
		return 0

	case addr == 0xFF47:
		if write {
			p.BGP = data
		}
		return p.BGP

	case addr == 0xFF48:
		if write {
			p.OBP0 = data
		}
		return p.OBP0

	case addr == 0xFF49:
		if write {
			p.OBP1 = data
		}
		return p.OBP1

	case addr == 0xFF4A:
		if write {
			p.WY = data
		}
		return p.WY

	case addr == 0xFF4B:
		if write {
			p.WX = data
		}
		return p.WX
	}
	return 0xFF
}
