// Package disasm renders 6502 machine code as assembly text using the
// decode table of package cpu.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"nescore/internal/cpu"
)

// Line is one disassembled instruction, or one data byte when the
// opcode at Address is undocumented and the listing is lenient.
type Line struct {
	Address uint16
	Bytes   []byte
	Inst    cpu.Instruction
	Illegal bool
	Text    string
}

// Options control how Disassemble treats bytes it cannot decode.
type Options struct {
	// Lenient emits ".byte $XX" for undocumented opcodes and truncated
	// instructions instead of failing.
	Lenient bool
}

// DecodeAt disassembles the instruction at pc.
func DecodeAt(mem cpu.Reader, pc uint16) (Line, error) {
	opcode := mem.Read(pc)
	inst, err := cpu.Decode(opcode)
	if err != nil {
		return Line{Address: pc, Bytes: []byte{opcode}, Illegal: true, Text: dataByte(opcode)},
			errors.Wrapf(err, "disasm: $%04X", pc)
	}

	raw := make([]byte, inst.Bytes)
	for i := range raw {
		raw[i] = mem.Read(pc + uint16(i))
	}
	return Line{
		Address: pc,
		Bytes:   raw,
		Inst:    inst,
		Text:    Format(inst, raw, pc),
	}, nil
}

// Disassemble decodes code as if loaded at origin, one instruction after
// another.
func Disassemble(code []byte, origin uint16, opts Options) ([]Line, error) {
	if int(origin)+len(code) > 0x10000 {
		return nil, errors.Errorf("disasm: %d bytes at $%04X run past $FFFF", len(code), origin)
	}

	mem := codeReader{code: code, origin: origin}
	var lines []Line
	for offset := 0; offset < len(code); {
		pc := origin + uint16(offset)

		line, err := DecodeAt(mem, pc)
		if err == nil && offset+len(line.Bytes) > len(code) {
			err = errors.Errorf("disasm: $%04X: %s needs %d bytes, %d left",
				pc, line.Inst.Mnemonic, len(line.Bytes), len(code)-offset)
			line = Line{Address: pc, Bytes: []byte{code[offset]}, Illegal: true, Text: dataByte(code[offset])}
		}
		if err != nil && !opts.Lenient {
			return lines, err
		}

		lines = append(lines, line)
		offset += len(line.Bytes)
	}
	return lines, nil
}

// codeReader exposes a byte slice at an origin. Reads outside it return 0.
type codeReader struct {
	code   []byte
	origin uint16
}

func (r codeReader) Read(address uint16) uint8 {
	i := int(address) - int(r.origin)
	if i < 0 || i >= len(r.code) {
		return 0
	}
	return r.code[i]
}

func dataByte(b byte) string {
	return fmt.Sprintf(".byte $%02X", b)
}

// Format renders inst with its operand bytes. raw holds the whole
// encoding, opcode first, and pc is the opcode address.
func Format(inst cpu.Instruction, raw []byte, pc uint16) string {
	name := inst.Mnemonic.String()

	var lo, hi byte
	if len(raw) > 1 {
		lo = raw[1]
	}
	if len(raw) > 2 {
		hi = raw[2]
	}
	word := uint16(hi)<<8 | uint16(lo)

	switch inst.Mode {
	case cpu.Implied:
		return name
	case cpu.Accumulator:
		return name + " A"
	case cpu.Immediate:
		return fmt.Sprintf("%s #$%02X", name, lo)
	case cpu.ZeroPage:
		return fmt.Sprintf("%s $%02X", name, lo)
	case cpu.ZeroPageX:
		return fmt.Sprintf("%s $%02X,X", name, lo)
	case cpu.ZeroPageY:
		return fmt.Sprintf("%s $%02X,Y", name, lo)
	case cpu.Relative:
		target := pc + 2 + uint16(int8(lo))
		return fmt.Sprintf("%s $%04X", name, target)
	case cpu.Absolute:
		return fmt.Sprintf("%s $%04X", name, word)
	case cpu.AbsoluteX:
		return fmt.Sprintf("%s $%04X,X", name, word)
	case cpu.AbsoluteY:
		return fmt.Sprintf("%s $%04X,Y", name, word)
	case cpu.Indirect:
		return fmt.Sprintf("%s ($%04X)", name, word)
	case cpu.IndexedIndirect:
		return fmt.Sprintf("%s ($%02X,X)", name, lo)
	case cpu.IndirectIndexed:
		return fmt.Sprintf("%s ($%02X),Y", name, lo)
	}
	return name
}

// hexBytes renders raw as "A9 01   " padded to the widest encoding.
func hexBytes(raw []byte) string {
	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%-8s", strings.Join(parts, " "))
}

// String renders the line as it appears in a listing.
func (l Line) String() string {
	return fmt.Sprintf("$%04X  %s  %s", l.Address, hexBytes(l.Bytes), l.Text)
}

// Write prints a listing, one line per instruction.
func Write(w io.Writer, lines []Line) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return errors.Wrap(err, "disasm: write listing")
		}
	}
	return nil
}

// FormatTrace renders an executed instruction with the registers it saw,
// in the column layout common to 6502 trace logs.
func FormatTrace(e cpu.TraceEntry) string {
	text := Format(e.Inst, e.Raw, e.PC)
	return fmt.Sprintf("%04X  %s  %-14s A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d (+%d)",
		e.PC, hexBytes(e.Raw), text, e.A, e.X, e.Y, e.P, e.SP, e.Total, e.Cycles)
}
