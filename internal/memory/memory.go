// Package memory implements the flat 64KB address space the 6502 core
// runs against, together with program and image loaders.
package memory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Size is the size of the 6502 address space.
const Size = 0x10000

// Memory map regions
const (
	ZeroPageStart = 0x0000
	ZeroPageEnd   = 0x00FF
	StackStart    = 0x0100
	StackEnd      = 0x01FF

	// Interrupt vectors, each a little-endian pointer
	NMIVector   = 0xFFFA
	ResetVector = 0xFFFC
	IRQVector   = 0xFFFE
)

// Memory is a byte-addressable 64KB RAM. Every address is readable and
// writable; there is no mirroring and no memory-mapped I/O.
type Memory struct {
	ram [Size]uint8
}

// New creates zero-filled memory.
func New() *Memory {
	return &Memory{}
}

// Read reads a byte from the given address
func (m *Memory) Read(address uint16) uint8 {
	return m.ram[address]
}

// Write writes a byte to the given address
func (m *Memory) Write(address uint16, value uint8) {
	m.ram[address] = value
}

// ReadWord reads a little-endian 16-bit value. The high byte of $FFFF
// comes from $0000.
func (m *Memory) ReadWord(address uint16) uint16 {
	return uint16(m.ram[address+1])<<8 | uint16(m.ram[address])
}

// SetVector stores target at one of the interrupt vectors.
func (m *Memory) SetVector(vector, target uint16) {
	m.ram[vector] = uint8(target)
	m.ram[vector+1] = uint8(target >> 8)
}

// LoadProgram copies data into memory starting at origin.
func (m *Memory) LoadProgram(origin uint16, data []byte) error {
	if int(origin)+len(data) > Size {
		return errors.Errorf("program of %d bytes at $%04X runs past $FFFF", len(data), origin)
	}
	copy(m.ram[origin:], data)
	return nil
}

// LoadHex parses text with ParseHex and loads the bytes at origin.
func (m *Memory) LoadHex(origin uint16, text string) error {
	data, err := ParseHex(text)
	if err != nil {
		return err
	}
	return errors.WithMessagef(m.LoadProgram(origin, data), "load hex at $%04X", origin)
}

// ParseHex parses whitespace- or comma-separated hex bytes such as
// "A9 01 8D 00 02". A "$" or "0x" prefix on a byte is accepted.
func ParseHex(text string) ([]byte, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})

	data := make([]byte, 0, len(fields))
	for i, field := range fields {
		digits := strings.TrimPrefix(strings.TrimPrefix(field, "$"), "0x")
		if len(digits) == 0 || len(digits) > 2 {
			return nil, errors.Errorf("byte %d: %q is not a hex byte", i, field)
		}
		value, err := strconv.ParseUint(digits, 16, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "byte %d", i)
		}
		data = append(data, byte(value))
	}
	return data, nil
}

// Dump returns a copy of the whole address space.
func (m *Memory) Dump() []byte {
	image := make([]byte, Size)
	copy(image, m.ram[:])
	return image
}

// LoadImage replaces the whole address space with image.
func (m *Memory) LoadImage(image []byte) error {
	if len(image) != Size {
		return errors.Errorf("memory image is %d bytes, want %d", len(image), Size)
	}
	copy(m.ram[:], image)
	return nil
}

// Clear zeroes every byte.
func (m *Memory) Clear() {
	m.ram = [Size]uint8{}
}

// FillPowerUpPattern fills the low 2KB with the semi-random pattern NES
// work RAM shows after power-up. Programs that wrongly rely on zeroed RAM
// behave differently under it.
func (m *Memory) FillPowerUpPattern() {
	for i := 0; i < 0x800; i++ {
		switch {
		case i < 0x100:
			// alternating $00/$FF
			m.ram[i] = uint8(0xFF * (i % 2))
		case i < 0x200:
			if i%16 < 2 {
				m.ram[i] = 0xFF
			} else {
				m.ram[i] = 0x00
			}
		case i < 0x300:
			// checkerboard
			if (i/8)%2 == (i%8)/4 {
				m.ram[i] = 0xAA
			} else {
				m.ram[i] = 0x55
			}
		default:
			m.ram[i] = [4]uint8{0x00, 0xFF, 0xAA, 0x55}[i%4]
		}
	}
}

// Region names the part of the memory map address falls in.
func Region(address uint16) string {
	switch {
	case address <= ZeroPageEnd:
		return "zeropage"
	case address <= StackEnd:
		return "stack"
	case address >= NMIVector:
		return "vectors"
	}
	return fmt.Sprintf("page $%02X", address>>8)
}
