package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairRoundTrip(t *testing.T) {
	var f File
	f.SetAF(0x12FF)
	assert.Equal(t, byte(0x12), f.A)
	assert.Equal(t, byte(0xF0), f.F, "low nibble of F must mask to zero")
	assert.Equal(t, uint16(0x12F0), f.AF())

	f.SetBC(0xBEEF)
	assert.Equal(t, uint16(0xBEEF), f.BC())

	f.SetDE(0xCAFE)
	assert.Equal(t, uint16(0xCAFE), f.DE())

	f.SetHL(0x1234)
	assert.Equal(t, uint16(0x1234), f.HL())
}

func TestFlags(t *testing.T) {
	var f File
	f.SetFlag(FlagZero, true)
	f.SetFlag(FlagCarry, true)
	assert.True(t, f.Flag(FlagZero))
	assert.True(t, f.Flag(FlagCarry))
	assert.False(t, f.Flag(FlagNegative))
	assert.Equal(t, byte(0), f.F&0x0F, "low nibble always zero")

	f.SetFlag(FlagZero, false)
	assert.False(t, f.Flag(FlagZero))
}

func TestSetFMasksLowNibble(t *testing.T) {
	var f File
	f.SetF(0xFF)
	assert.Equal(t, byte(0xF0), f.F)
}
