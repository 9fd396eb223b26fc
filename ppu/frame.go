package ppu

// ScreenWidth and ScreenHeight are the DMG LCD's fixed dimensions.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Frame is a completed back/front buffer. Indexing convention: use At/Set
// with (x, y); the backing array is row-major [y][x] for cache-friendly
// scanline writes.
type Frame [ScreenHeight][ScreenWidth]uint32

func (f *Frame) At(x, y int) uint32     { return f[y][x] }
func (f *Frame) Set(x, y int, c uint32) { f[y][x] = c }

// COLORS is the fixed DMG 4-shade palette that BGP/OBP0/OBP1 indices are
// resolved through, lightest to darkest, as opaque RGBA.
var COLORS = [4]uint32{
	0xFFFFFFFF,
	0xFFAAAAAA,
	0xFF555555,
	0xFF000000,
}
