// Package debugtui is an interactive terminal inspector for the CPU/PPU
// engine, driven one M-cycle at a time over a testbus.Bus. It mirrors the
// teacher's cpu.Debug: a bubbletea model that ticks on keypress and renders
// a page-table memory dump, register/flag status, and PPU status alongside
// the opcode and mnemonic of the instruction that last completed its fetch
// cycle and a spew dump of the register file.
package debugtui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"lr35902/cpu"
	"lr35902/register"
	"lr35902/testbus"
)

type model struct {
	bus *testbus.Bus
	cpu *cpu.CPU

	offset uint16 // page-table scroll anchor, centered on PC
	prevPC uint16
	ticks  int
	error  error
}

// Init performs no startup command; the program and register state are
// expected to already be loaded onto bus/cpu by the caller of Run.
func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case " ", "j":
			m.prevPC = m.cpu.Reg.PC
			m.offset = m.cpu.Reg.PC - (m.cpu.Reg.PC % 16)
			_, err := m.bus.Tick(m.cpu)
			m.ticks++
			if err != nil {
				m.error = err
				return m, tea.Quit
			}
		case "J":
			for i := 0; i < 114; i++ { // one scanline's worth of M-cycles
				m.prevPC = m.cpu.Reg.PC
				if _, err := m.bus.Tick(m.cpu); err != nil {
					m.error = err
					return m, tea.Quit
				}
				m.ticks++
			}
			m.offset = m.cpu.Reg.PC - (m.cpu.Reg.PC % 16)
		}
	}
	return m, nil
}

func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04x | ", start)
	for i := 0; i < 16; i++ {
		addr := start + uint16(i)
		b := m.bus.FakeRAM[addr]
		if addr == m.cpu.Reg.PC {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) pageTable() string {
	header := "page | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}
	lines := []string{header}
	for p := -2; p <= 2; p++ {
		lines = append(lines, m.renderPage(m.offset+uint16(p*16)))
	}
	return strings.Join(lines, "\n")
}

func (m model) cpuStatus() string {
	r := m.cpu.Reg
	var flags string
	for _, set := range []bool{
		r.Flag(register.FlagZero),
		r.Flag(register.FlagNegative),
		r.Flag(register.FlagHalfCarry),
		r.Flag(register.FlagCarry),
	} {
		if set {
			flags += "/ "
		} else {
			flags += "  "
		}
	}
	return fmt.Sprintf(`
PC: %04x (%04x)
SP: %04x
 A: %02x   F: %02x
 B: %02x   C: %02x
 D: %02x   E: %02x
 H: %02x   L: %02x
IME: %v  HALT: %v  ticks: %d
Z N H C
%s`,
		r.PC, m.prevPC, r.SP,
		r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L,
		r.IME, r.Halted, m.ticks, flags)
}

func (m model) ppuStatus() string {
	p := m.bus.PPU
	return fmt.Sprintf(`
LY: %3d  LYC: %3d
mode: %d
LCDC: %08b
STAT: %08b
SCY: %3d  SCX: %3d
WY:  %3d  WX:  %3d
BGP: %02x  OBP0: %02x  OBP1: %02x
DMA active: %v`,
		p.LY, p.LYC, p.STAT.Mode(), byte(p.LCDC), byte(p.STAT),
		p.SCY, p.SCX, p.WY, p.WX, p.BGP, p.OBP0, p.OBP1, p.DMAActive())
}

func (m model) View() string {
	top := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.pageTable(),
		m.cpuStatus(),
		m.ppuStatus(),
	)
	errLine := ""
	if m.error != nil {
		errLine = "error: " + m.error.Error()
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		top,
		"",
		fmt.Sprintf("last opcode %#02x (%s)", m.cpu.LastOpcode, m.cpu.LastMnemonic),
		spew.Sdump(m.cpu.Reg),
		errLine,
		"j: step one M-cycle  J: step one scanline  q: quit",
	)
}

// Run loads program into bus's flat address space at offset, seeds the
// CPU's PC, and starts the interactive TUI. Ticking, not loading, drives
// everything past this point: OAM DMA and PPU timing run exactly as they
// would under any other caller of Bus.Tick.
func Run(bus *testbus.Bus, c *cpu.CPU, program []byte, offset uint16) {
	copy(bus.FakeRAM[offset:], program)
	c.Reg.PC = offset

	m, err := tea.NewProgram(model{bus: bus, cpu: c, offset: offset}).Run()
	if err != nil {
		panic(err)
	}
	final := m.(model)
	if final.error != nil {
		fmt.Println("error:", final.error)
	}
}
