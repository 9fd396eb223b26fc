package ppu

import "fmt"

// PPU is the scanline/pixel-FIFO rendering engine. Like cpu.CPU, it is
// driven by a dedicated goroutine synchronized over an unbuffered channel
// pair, the idiomatic Go analogue of the stackful coroutine it is
// grounded on: AdvanceDots resumes the goroutine for exactly as many dots
// as requested, and the goroutine suspends at every dot boundary the
// original yields at.
type PPU struct {
	LCDC LCDC
	STAT STAT
	SCY, SCX byte
	LY, LYC  byte
	WY, WX   byte
	BGP, OBP0, OBP1 byte

	VRAM [0x2000]byte
	OAM  [0xA0]byte

	Front, Back *Frame

	dma dmaControl

	windowLineCounter int
	wyPassed          bool
	scanBuffer        []OamEntry
	dotsInLine        int

	vblankIRQPending bool
	statIRQPending   bool
	statLineLatched  bool

	tick chan struct{}
	done chan struct{}
}

// New builds a PPU with LCDC at its power-on default and starts its
// driver goroutine.
func New() *PPU {
	p := &PPU{
		LCDC:  LCDCDefault,
		Front: &Frame{},
		Back:  &Frame{},
		tick:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// AdvanceDots resumes the scanline pipeline for n dots (a caller ticking
// once per M-cycle passes 4).
func (p *PPU) AdvanceDots(n int) {
	for i := 0; i < n; i++ {
		p.tick <- struct{}{}
		<-p.done
	}
}

// dotYield reports the current dot done, then blocks for the tick that
// grants the next one. The goroutine therefore only runs between receiving
// a tick and sending its done, never alongside the caller, so whatever
// state tickDot's caller wrote before calling dotYield is exactly what's
// visible to whoever receives done.
func (p *PPU) dotYield() {
	p.done <- struct{}{}
	<-p.tick
}

// tickDot charges one dot. dotsInLine (and any phase transition the
// caller applied just before this call) must already reflect the
// post-dot state, since dotYield reports done as soon as it is called.
func (p *PPU) tickDot() {
	p.dotsInLine++
	p.dotYield()
}

func (p *PPU) run() {
	<-p.tick // the first dot's tick; dotYield takes every later one
	for {
		p.renderFrame()
	}
}

// renderFrame drives all 154 scanlines of one frame. Every transition
// that must be visible exactly at a given dot (mode changes, LY
// advancing, the frame swap) is applied immediately before the tickDot
// call for that dot, not after the phase that produced it returns --
// code after a tickDot call only runs once the next dot's tick arrives,
// so trailing code would be charged to the following dot.
func (p *PPU) renderFrame() {
	p.windowLineCounter = 0
	p.wyPassed = false
	p.LY = 0
	p.updateLYCFlag()
	p.setMode(Mode2OAM)

	for line := 0; line < 154; line++ {
		p.dotsInLine = 0
		if line < ScreenHeight {
			p.oamScan()
			p.drawScanline()
		}
		for p.dotsInLine < 455 {
			p.tickDot()
		}
		p.advanceLine(line)
		p.tickDot()
	}
}

// advanceLine sets up the state for the line after line, charged to
// line's final dot so it is visible as soon as that dot's tickDot call
// reports done.
func (p *PPU) advanceLine(line int) {
	next := (line + 1) % 154
	p.LY = byte(next)
	p.updateLYCFlag()
	switch {
	case next == ScreenHeight:
		p.setMode(Mode1VBlank)
		p.vblankIRQPending = true
		p.swapFrames()
	case next < ScreenHeight:
		p.setMode(Mode2OAM)
	}
}

// oam returns the decoded entry at OAM index i (0..39), panicking out of
// range exactly as the original's PpuState::oam.
func (p *PPU) oam(i int) OamEntry {
	if i < 0 || i >= 40 {
		panic(fmt.Sprintf("ppu: OAM index %d out of range", i))
	}
	base := i * 4
	return OamEntry{
		Ypos:  p.OAM[base],
		Xpos:  p.OAM[base+1],
		Tile:  p.OAM[base+2],
		Flags: OamEntryFlags(p.OAM[base+3]),
	}
}

// OAMEntry is the exported accessor a debugger or test can call between
// AdvanceDots calls.
func (p *PPU) OAMEntry(i int) OamEntry { return p.oam(i) }

func (p *PPU) spriteHeight() int {
	if p.LCDC.Has(LCDCOBJSize) {
		return 16
	}
	return 8
}

// oamScan builds the up to 10-entry sprite buffer for the current
// scanline, in OAM index order, padding any unused slots with the
// xpos:255 sentinel the draw phase uses to skip them. 80 dots total,
// two dots charged per OAM entry examined. Mode3Draw is set just before
// the scan's last dot so it's visible the instant that dot reports done,
// rather than after oamScan returns to its caller.
func (p *PPU) oamScan() {
	p.scanBuffer = p.scanBuffer[:0]
	height := p.spriteHeight()
	for i := 0; i < 40; i++ {
		entry := p.oam(i)
		if len(p.scanBuffer) < 10 {
			top := int(entry.Ypos) - 16
			ly := int(p.LY)
			if ly >= top && ly < top+height {
				p.scanBuffer = append(p.scanBuffer, entry)
			}
		}
		p.tickDot()
		if i == 39 {
			p.setMode(Mode3Draw)
		}
		p.tickDot()
	}
	for len(p.scanBuffer) < 10 {
		p.scanBuffer = append(p.scanBuffer, OamEntry{Xpos: 255})
	}
}

func (p *PPU) updateLYCFlag() {
	p.STAT.SetValue(STATLYCEqualsLY, p.LY == p.LYC)
	p.refreshStatLine()
}

func (p *PPU) setMode(m STAT) {
	p.STAT.SetMode(m)
	p.refreshStatLine()
}

// refreshStatLine recomputes the OR of every enabled STAT interrupt
// source and latches a pending IRQ on the rising edge, matching the
// original's update_stat_interrupt.
func (p *PPU) refreshStatLine() {
	line := (p.STAT.Has(STATLYCIntEnable) && p.STAT.Has(STATLYCEqualsLY)) ||
		(p.STAT.Has(STATOAMIntEnable) && p.STAT.Mode() == Mode2OAM) ||
		(p.STAT.Has(STATHBlankIntEnable) && p.STAT.Mode() == Mode0HBlank) ||
		(p.STAT.Has(STATVBlankIntEnable) && p.STAT.Mode() == Mode1VBlank)

	if line && !p.statLineLatched {
		p.statIRQPending = true
	}
	p.statLineLatched = line
}

// PendingIF returns the interrupt-flag bits (bit 0 VBlank, bit 1 LCD
// STAT) the PPU wants ORed into IF since the last call, clearing its own
// latches. The IF register itself is owned by the host, per spec.
func (p *PPU) PendingIF() byte {
	var bits byte
	if p.vblankIRQPending {
		bits |= 0x01
		p.vblankIRQPending = false
	}
	if p.statIRQPending {
		bits |= 0x02
		p.statIRQPending = false
	}
	return bits
}

func (p *PPU) swapFrames() {
	p.Front, p.Back = p.Back, p.Front
}

// SetValue sets or clears bit exactly as FRegister::set_value does for F.
func (s *STAT) SetValue(bit STAT, v bool) {
	if v {
		*s |= bit
	} else {
		*s &^= bit
	}
}
