package ppu

import "lr35902/pins"

// dmaState is the OAM DMA controller's tagged union, grounded on the
// original's DmaState: Inactive, ActiveFirstRead{src_base}, Active{current}.
type dmaState int

const (
	dmaInactive dmaState = iota
	dmaActiveFirstRead
	dmaActive
)

type dmaControl struct {
	state   dmaState
	srcBase uint16
	current uint16
}

// StartDMA arms the controller: srcHighByte is the value written to
// 0xFF46, which becomes the high byte of a 0xXX00 source address. The
// first call to ClockDMA after this issues the first source read.
func (p *PPU) StartDMA(srcHighByte byte) {
	p.dma.state = dmaActiveFirstRead
	p.dma.srcBase = uint16(srcHighByte) << 8
}

// DMAActive reports whether a transfer is in flight.
func (p *PPU) DMAActive() bool { return p.dma.state != dmaInactive }

// ClockDMA drives the OAM DMA controller by exactly one M-cycle, sharing
// the CPU's pin vocabulary: in carries the bus's response to the
// CpuOutput ClockDMA returned on the previous call, and the return value
// is this cycle's request. It panics if called while inactive, mirroring
// the original's unreachable!() on a DMA clock with nothing armed: DMA
// owns the bus output pins for its duration, the caller must not drive it
// when DMAActive is false.
func (p *PPU) ClockDMA(in pins.CpuInput) pins.CpuOutput {
	switch p.dma.state {
	case dmaInactive:
		panic("ppu: ClockDMA called while DMA is inactive")
	case dmaActiveFirstRead:
		p.dma.current = p.dma.srcBase
		p.dma.state = dmaActive
		return pins.CpuOutput{Kind: pins.Read, Addr: p.dma.current}
	default: // dmaActive
		addr := byte(p.dma.current - p.dma.srcBase)
		p.OAM[addr] = in.Data
		p.dma.current++
		if p.dma.current-p.dma.srcBase >= 0xA0 {
			p.dma.state = dmaInactive
			return pins.CpuOutput{}
		}
		return pins.CpuOutput{Kind: pins.Read, Addr: p.dma.current}
	}
}
