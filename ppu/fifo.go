package ppu

// pixel is one entry of the BG/window pixel FIFO: a 2-bit color index plus
// enough provenance to resolve the palette and the sprite/BG priority
// mix when it reaches the head of the FIFO.
type pixel struct {
	color      byte
	palette    byte // 0: BGP, 1: OBP0, 2: OBP1
	isSprite   bool
	bgPriority bool // OAM BG_PRIORITY: BG color 1-3 drawn over this sprite pixel
}

// drawScanline runs the BG/window fetcher and sprite fetcher against the
// pixel FIFO for one scanline, pushing one pixel into Back per dot while
// the FIFO holds pixels (an empty FIFO costs an 8-dot tile-row fetch, and
// each of the SCX%8 discarded pixels costs a dot without being pushed),
// and dispatching sprites from scanBuffer (built by oamScan) as the
// output column reaches each one's x position.
func (p *PPU) drawScanline() {
	if p.LY == p.WY {
		p.wyPassed = true
	}

	var fifo []pixel
	fetchX := 0
	lcdX := 0
	discard := int(p.SCX % 8)
	usingWindow := false
	windowUsedThisLine := false

	for lcdX < ScreenWidth {
		if !usingWindow && p.LCDC.Has(LCDCWindowEnable) && p.wyPassed &&
			lcdX+7 >= int(p.WX) {
			usingWindow = true
			windowUsedThisLine = true
			fifo = fifo[:0]
			fetchX = 0
		}

		if p.LCDC.Has(LCDCOBJEnable) {
			p.dispatchSprites(lcdX, &fifo)
		}

		if len(fifo) == 0 {
			row := p.fetchBGTileRow(fetchX, usingWindow)
			fifo = append(fifo, row[:]...)
			fetchX++
			for i := 0; i < 8; i++ {
				p.tickDot()
			}
			continue
		}

		px := fifo[0]
		fifo = fifo[1:]
		if discard > 0 {
			discard--
			p.tickDot()
			continue
		}
		p.Back.Set(lcdX, int(p.LY), COLORS[p.mixPixel(px)])
		lcdX++
		if lcdX == ScreenWidth {
			// charged to this scanline's last dot so Mode0HBlank is
			// visible the instant it reports done, not after
			// drawScanline returns to its caller.
			p.setMode(Mode0HBlank)
		}
		p.tickDot()
	}

	if windowUsedThisLine {
		p.windowLineCounter++
	}
}

// mixPixel resolves a FIFO pixel to a palette-mapped color index through
// BGP, OBP0 or OBP1. Sprite/BG priority is not decided here: it was
// already applied when dispatchSprites overlaid the sprite row, where a
// BG_PRIORITY sprite pixel yields to a non-zero BG/window color.
func (p *PPU) mixPixel(px pixel) byte {
	if !p.LCDC.Has(LCDCBGEnable) && !px.isSprite {
		return 0
	}
	var palette byte
	switch px.palette {
	case 1:
		palette = p.OBP0
	case 2:
		palette = p.OBP1
	default:
		palette = p.BGP
	}
	return (palette >> (px.color * 2)) & 0x3
}

// fetchBGTileRow fetches the 8 pixels of one BG or window tile row at
// fetcher column fetchX, resolving tile map area, signed/unsigned tile
// data addressing, and (for the window) the per-frame window line
// counter rather than LY+SCY.
func (p *PPU) fetchBGTileRow(fetchX int, usingWindow bool) [8]pixel {
	var tileMapBase uint16
	var row int
	if usingWindow {
		if p.LCDC.Has(LCDCWindowTileMapArea) {
			tileMapBase = 0x1C00
		} else {
			tileMapBase = 0x1800
		}
		row = p.windowLineCounter
	} else {
		if p.LCDC.Has(LCDCBGTileMapArea) {
			tileMapBase = 0x1C00
		} else {
			tileMapBase = 0x1800
		}
		row = (int(p.LY) + int(p.SCY)) & 0xFF
	}

	col := fetchX & 0x1F
	tileRow := (row / 8) & 0x1F
	tileIndex := p.VRAM[tileMapBase+uint16(tileRow*32+col)]

	var tileAddr uint16
	if p.LCDC.Has(LCDCBGTileDataArea) {
		tileAddr = uint16(tileIndex) * 16
	} else {
		tileAddr = uint16(0x1000 + int(int8(tileIndex))*16)
	}
	lineInTile := row % 8
	lo := p.VRAM[tileAddr+uint16(lineInTile)*2]
	hi := p.VRAM[tileAddr+uint16(lineInTile)*2+1]

	var out [8]pixel
	for b := 0; b < 8; b++ {
		bit := 7 - b
		color := ((hi>>bit)&1)<<1 | (lo>>bit)&1
		out[b] = pixel{color: color}
	}
	return out
}

// dispatchSprites finds every sprite in scanBuffer (in OAM-index order,
// first match wins exactly as the original's `.find`) whose visible span
// has reached lcdX, fetches its 8-pixel row, overlays it onto the head
// of fifo, and marks it consumed (xpos:255) so it fires only once.
func (p *PPU) dispatchSprites(lcdX int, fifo *[]pixel) {
	for i := range p.scanBuffer {
		s := p.scanBuffer[i]
		if s.Xpos == 255 {
			continue
		}
		if int(s.Xpos)-8 > lcdX {
			continue
		}
		for len(*fifo) < 8 {
			*fifo = append(*fifo, pixel{color: 0})
		}
		row := p.fetchSpriteRow(s)
		for b := 0; b < 8 && b < len(*fifo); b++ {
			if row[b].color == 0 {
				continue
			}
			existing := (*fifo)[b]
			if existing.isSprite {
				continue // earlier (lower OAM index) sprite already claimed this pixel
			}
			if row[b].bgPriority && existing.color != 0 {
				continue // BG/window color wins over a BG-priority sprite
			}
			(*fifo)[b] = row[b]
		}
		p.scanBuffer[i].Xpos = 255
		for d := 0; d < 6; d++ {
			p.tickDot()
		}
	}
}

// fetchSpriteRow fetches one sprite's 8-pixel row, honoring Y/X flip and
// the tall-sprite (8x16) tile-index LSB rule.
func (p *PPU) fetchSpriteRow(s OamEntry) [8]pixel {
	height := p.spriteHeight()
	line := int(p.LY) - (int(s.Ypos) - 16)
	if s.Flags.Has(OamYFlip) {
		line = height - 1 - line
	}
	tile := s.Tile
	if height == 16 {
		tile &^= 1
		if line >= 8 {
			tile |= 1
			line -= 8
		}
	}
	tileAddr := uint16(tile) * 16
	lo := p.VRAM[tileAddr+uint16(line)*2]
	hi := p.VRAM[tileAddr+uint16(line)*2+1]

	palette := byte(1)
	if s.Flags.Has(OamPaletteOBP1) {
		palette = 2
	}

	var out [8]pixel
	for b := 0; b < 8; b++ {
		bit := 7 - b
		if s.Flags.Has(OamXFlip) {
			bit = b
		}
		color := ((hi>>bit)&1)<<1 | (lo>>bit)&1
		out[b] = pixel{
			color:      color,
			palette:    palette,
			isSprite:   true,
			bgPriority: s.Flags.Has(OamBGPriority),
		}
	}
	return out
}
