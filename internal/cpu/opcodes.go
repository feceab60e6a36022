package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// CyclePolicy describes how the base cycle count of an instruction may be
// perturbed at execution time. It is data; AccountCycles interprets it.
type CyclePolicy uint8

const (
	// NoAdjust means the base cycle count is final.
	NoAdjust CyclePolicy = iota
	// PageBoundaryCrossed adds one cycle when operand resolution crosses
	// a page.
	PageBoundaryCrossed
	// BranchTaken adds one cycle when the branch is taken and one more
	// when its target lies on another page.
	BranchTaken
)

func (p CyclePolicy) String() string {
	switch p {
	case NoAdjust:
		return "none"
	case PageBoundaryCrossed:
		return "page-crossed"
	case BranchTaken:
		return "branch-taken"
	}
	return fmt.Sprintf("CyclePolicy(%d)", uint8(p))
}

// Instruction describes a decoded 6502 opcode.
type Instruction struct {
	Opcode   uint8
	Mnemonic Mnemonic
	Mode     AddressingMode
	Bytes    uint8 // encoded length, opcode included
	Cycles   uint8 // base cycle count
	Policy   CyclePolicy
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %s (0x%02X, %d bytes, %d cycles, %s)",
		i.Mnemonic, i.Mode, i.Opcode, i.Bytes, i.Cycles, i.Policy)
}

// ErrIllegalOpcode is matched by every IllegalOpcodeError.
var ErrIllegalOpcode = errors.New("illegal opcode")

// IllegalOpcodeError reports a byte that has no documented instruction.
type IllegalOpcodeError struct {
	Opcode uint8
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode $%02X", e.Opcode)
}

func (e *IllegalOpcodeError) Is(target error) bool {
	return target == ErrIllegalOpcode
}

type opcodeEntry struct {
	mnemonic Mnemonic
	mode     AddressingMode
	bytes    uint8
	cycles   uint8
	policy   CyclePolicy
}

// Decode returns the descriptor for opcode. Undocumented opcodes yield an
// *IllegalOpcodeError and a zero Instruction.
func Decode(opcode uint8) (Instruction, error) {
	e := &opcodeTable[opcode]
	if e.bytes == 0 {
		return Instruction{}, &IllegalOpcodeError{Opcode: opcode}
	}
	return Instruction{
		Opcode:   opcode,
		Mnemonic: e.mnemonic,
		Mode:     e.mode,
		Bytes:    e.bytes,
		Cycles:   e.cycles,
		Policy:   e.policy,
	}, nil
}

// MustDecode is like Decode but panics on an illegal opcode.
func MustDecode(opcode uint8) Instruction {
	inst, err := Decode(opcode)
	if err != nil {
		panic(err.Error())
	}
	return inst
}

// IsLegal reports whether opcode is a documented instruction.
func IsLegal(opcode uint8) bool {
	return opcodeTable[opcode].bytes != 0
}

// LegalOpcodes returns every documented opcode in ascending order.
func LegalOpcodes() []uint8 {
	ops := make([]uint8, 0, 151)
	for i := range opcodeTable {
		if opcodeTable[i].bytes != 0 {
			ops = append(ops, uint8(i))
		}
	}
	return ops
}

func init() {
	if err := checkTable(&opcodeTable); err != nil {
		panic(err)
	}
}

// checkTable verifies that every entry's length matches its mode and that
// cycle policies only appear where they can apply.
func checkTable(table *[256]opcodeEntry) error {
	for i := range table {
		e := &table[i]
		if e.bytes == 0 {
			continue
		}
		if e.bytes != e.mode.Length() {
			return errors.Errorf("opcode $%02X: %s %s is %d bytes, mode needs %d",
				i, e.mnemonic, e.mode, e.bytes, e.mode.Length())
		}
		switch e.policy {
		case BranchTaken:
			if !e.mnemonic.IsBranch() || e.mode != Relative {
				return errors.Errorf("opcode $%02X: %s tagged %s", i, e.mnemonic, e.policy)
			}
		case PageBoundaryCrossed:
			if !e.mode.CanCrossPage() || e.mode == Relative {
				return errors.Errorf("opcode $%02X: %s %s tagged %s", i, e.mnemonic, e.mode, e.policy)
			}
		}
		if e.mnemonic.IsBranch() && e.policy != BranchTaken {
			return errors.Errorf("opcode $%02X: branch %s tagged %s", i, e.mnemonic, e.policy)
		}
	}
	return nil
}

// opcodeTable is the documented NMOS 6502 instruction set. Entries left at
// their zero value are undocumented opcodes.
var opcodeTable = [256]opcodeEntry{
	// 0x00-0x0F
	0x00: {BRK, Implied, 1, 7, NoAdjust},
	0x01: {ORA, IndexedIndirect, 2, 6, NoAdjust},
	0x05: {ORA, ZeroPage, 2, 3, NoAdjust},
	0x06: {ASL, ZeroPage, 2, 5, NoAdjust},
	0x08: {PHP, Implied, 1, 3, NoAdjust},
	0x09: {ORA, Immediate, 2, 2, NoAdjust},
	0x0A: {ASL, Accumulator, 1, 2, NoAdjust},
	0x0D: {ORA, Absolute, 3, 4, NoAdjust},
	0x0E: {ASL, Absolute, 3, 6, NoAdjust},

	// 0x10-0x1F
	0x10: {BPL, Relative, 2, 2, BranchTaken},
	0x11: {ORA, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0x15: {ORA, ZeroPageX, 2, 4, NoAdjust},
	0x16: {ASL, ZeroPageX, 2, 6, NoAdjust},
	0x18: {CLC, Implied, 1, 2, NoAdjust},
	0x19: {ORA, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0x1D: {ORA, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0x1E: {ASL, AbsoluteX, 3, 7, NoAdjust},

	// 0x20-0x2F
	0x20: {JSR, Absolute, 3, 6, NoAdjust},
	0x21: {AND, IndexedIndirect, 2, 6, NoAdjust},
	0x24: {BIT, ZeroPage, 2, 3, NoAdjust},
	0x25: {AND, ZeroPage, 2, 3, NoAdjust},
	0x26: {ROL, ZeroPage, 2, 5, NoAdjust},
	0x28: {PLP, Implied, 1, 4, NoAdjust},
	0x29: {AND, Immediate, 2, 2, NoAdjust},
	0x2A: {ROL, Accumulator, 1, 2, NoAdjust},
	0x2C: {BIT, Absolute, 3, 4, NoAdjust},
	0x2D: {AND, Absolute, 3, 4, NoAdjust},
	0x2E: {ROL, Absolute, 3, 6, NoAdjust},

	// 0x30-0x3F
	0x30: {BMI, Relative, 2, 2, BranchTaken},
	0x31: {AND, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0x35: {AND, ZeroPageX, 2, 4, NoAdjust},
	0x36: {ROL, ZeroPageX, 2, 6, NoAdjust},
	0x38: {SEC, Implied, 1, 2, NoAdjust},
	0x39: {AND, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0x3D: {AND, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0x3E: {ROL, AbsoluteX, 3, 7, NoAdjust},

	// 0x40-0x4F
	0x40: {RTI, Implied, 1, 6, NoAdjust},
	0x41: {EOR, IndexedIndirect, 2, 6, NoAdjust},
	0x45: {EOR, ZeroPage, 2, 3, NoAdjust},
	0x46: {LSR, ZeroPage, 2, 5, NoAdjust},
	0x48: {PHA, Implied, 1, 3, NoAdjust},
	0x49: {EOR, Immediate, 2, 2, NoAdjust},
	0x4A: {LSR, Accumulator, 1, 2, NoAdjust},
	0x4C: {JMP, Absolute, 3, 3, NoAdjust},
	0x4D: {EOR, Absolute, 3, 4, NoAdjust},
	0x4E: {LSR, Absolute, 3, 6, NoAdjust},

	// 0x50-0x5F
	0x50: {BVC, Relative, 2, 2, BranchTaken},
	0x51: {EOR, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0x55: {EOR, ZeroPageX, 2, 4, NoAdjust},
	0x56: {LSR, ZeroPageX, 2, 6, NoAdjust},
	0x58: {CLI, Implied, 1, 2, NoAdjust},
	0x59: {EOR, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0x5D: {EOR, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0x5E: {LSR, AbsoluteX, 3, 7, NoAdjust},

	// 0x60-0x6F
	0x60: {RTS, Implied, 1, 6, NoAdjust},
	0x61: {ADC, IndexedIndirect, 2, 6, NoAdjust},
	0x65: {ADC, ZeroPage, 2, 3, NoAdjust},
	0x66: {ROR, ZeroPage, 2, 5, NoAdjust},
	0x68: {PLA, Implied, 1, 4, NoAdjust},
	0x69: {ADC, Immediate, 2, 2, NoAdjust},
	0x6A: {ROR, Accumulator, 1, 2, NoAdjust},
	0x6C: {JMP, Indirect, 3, 5, NoAdjust},
	0x6D: {ADC, Absolute, 3, 4, NoAdjust},
	0x6E: {ROR, Absolute, 3, 6, NoAdjust},

	// 0x70-0x7F
	0x70: {BVS, Relative, 2, 2, BranchTaken},
	0x71: {ADC, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0x75: {ADC, ZeroPageX, 2, 4, NoAdjust},
	0x76: {ROR, ZeroPageX, 2, 6, NoAdjust},
	0x78: {SEI, Implied, 1, 2, NoAdjust},
	0x79: {ADC, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0x7D: {ADC, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0x7E: {ROR, AbsoluteX, 3, 7, NoAdjust},

	// 0x80-0x8F
	0x81: {STA, IndexedIndirect, 2, 6, NoAdjust},
	0x84: {STY, ZeroPage, 2, 3, NoAdjust},
	0x85: {STA, ZeroPage, 2, 3, NoAdjust},
	0x86: {STX, ZeroPage, 2, 3, NoAdjust},
	0x88: {DEY, Implied, 1, 2, NoAdjust},
	0x8A: {TXA, Implied, 1, 2, NoAdjust},
	0x8C: {STY, Absolute, 3, 4, NoAdjust},
	0x8D: {STA, Absolute, 3, 4, NoAdjust},
	0x8E: {STX, Absolute, 3, 4, NoAdjust},

	// 0x90-0x9F
	0x90: {BCC, Relative, 2, 2, BranchTaken},
	0x91: {STA, IndirectIndexed, 2, 6, NoAdjust},
	0x94: {STY, ZeroPageX, 2, 4, NoAdjust},
	0x95: {STA, ZeroPageX, 2, 4, NoAdjust},
	0x96: {STX, ZeroPageY, 2, 4, NoAdjust},
	0x98: {TYA, Implied, 1, 2, NoAdjust},
	0x99: {STA, AbsoluteY, 3, 5, NoAdjust},
	0x9A: {TXS, Implied, 1, 2, NoAdjust},
	0x9D: {STA, AbsoluteX, 3, 5, NoAdjust},

	// 0xA0-0xAF
	0xA0: {LDY, Immediate, 2, 2, NoAdjust},
	0xA1: {LDA, IndexedIndirect, 2, 6, NoAdjust},
	0xA2: {LDX, Immediate, 2, 2, NoAdjust},
	0xA4: {LDY, ZeroPage, 2, 3, NoAdjust},
	0xA5: {LDA, ZeroPage, 2, 3, NoAdjust},
	0xA6: {LDX, ZeroPage, 2, 3, NoAdjust},
	0xA8: {TAY, Implied, 1, 2, NoAdjust},
	0xA9: {LDA, Immediate, 2, 2, NoAdjust},
	0xAA: {TAX, Implied, 1, 2, NoAdjust},
	0xAC: {LDY, Absolute, 3, 4, NoAdjust},
	0xAD: {LDA, Absolute, 3, 4, NoAdjust},
	0xAE: {LDX, Absolute, 3, 4, NoAdjust},

	// 0xB0-0xBF
	0xB0: {BCS, Relative, 2, 2, BranchTaken},
	0xB1: {LDA, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0xB4: {LDY, ZeroPageX, 2, 4, NoAdjust},
	0xB5: {LDA, ZeroPageX, 2, 4, NoAdjust},
	0xB6: {LDX, ZeroPageY, 2, 4, NoAdjust},
	0xB8: {CLV, Implied, 1, 2, NoAdjust},
	0xB9: {LDA, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0xBA: {TSX, Implied, 1, 2, NoAdjust},
	0xBC: {LDY, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0xBD: {LDA, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0xBE: {LDX, AbsoluteY, 3, 4, PageBoundaryCrossed},

	// 0xC0-0xCF
	0xC0: {CPY, Immediate, 2, 2, NoAdjust},
	0xC1: {CMP, IndexedIndirect, 2, 6, NoAdjust},
	0xC4: {CPY, ZeroPage, 2, 3, NoAdjust},
	0xC5: {CMP, ZeroPage, 2, 3, NoAdjust},
	0xC6: {DEC, ZeroPage, 2, 5, NoAdjust},
	0xC8: {INY, Implied, 1, 2, NoAdjust},
	0xC9: {CMP, Immediate, 2, 2, NoAdjust},
	0xCA: {DEX, Implied, 1, 2, NoAdjust},
	0xCC: {CPY, Absolute, 3, 4, NoAdjust},
	0xCD: {CMP, Absolute, 3, 4, NoAdjust},
	0xCE: {DEC, Absolute, 3, 6, NoAdjust},

	// 0xD0-0xDF
	0xD0: {BNE, Relative, 2, 2, BranchTaken},
	0xD1: {CMP, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0xD5: {CMP, ZeroPageX, 2, 4, NoAdjust},
	0xD6: {DEC, ZeroPageX, 2, 6, NoAdjust},
	0xD8: {CLD, Implied, 1, 2, NoAdjust},
	0xD9: {CMP, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0xDD: {CMP, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0xDE: {DEC, AbsoluteX, 3, 7, NoAdjust},

	// 0xE0-0xEF
	0xE0: {CPX, Immediate, 2, 2, NoAdjust},
	0xE1: {SBC, IndexedIndirect, 2, 6, NoAdjust},
	0xE4: {CPX, ZeroPage, 2, 3, NoAdjust},
	0xE5: {SBC, ZeroPage, 2, 3, NoAdjust},
	0xE6: {INC, ZeroPage, 2, 5, NoAdjust},
	0xE8: {INX, Implied, 1, 2, NoAdjust},
	0xE9: {SBC, Immediate, 2, 2, NoAdjust},
	0xEA: {NOP, Implied, 1, 2, NoAdjust},
	0xEC: {CPX, Absolute, 3, 4, NoAdjust},
	0xED: {SBC, Absolute, 3, 4, NoAdjust},
	0xEE: {INC, Absolute, 3, 6, NoAdjust},

	// 0xF0-0xFF
	0xF0: {BEQ, Relative, 2, 2, BranchTaken},
	0xF1: {SBC, IndirectIndexed, 2, 5, PageBoundaryCrossed},
	0xF5: {SBC, ZeroPageX, 2, 4, NoAdjust},
	0xF6: {INC, ZeroPageX, 2, 6, NoAdjust},
	0xF8: {SED, Implied, 1, 2, NoAdjust},
	0xF9: {SBC, AbsoluteY, 3, 4, PageBoundaryCrossed},
	0xFD: {SBC, AbsoluteX, 3, 4, PageBoundaryCrossed},
	0xFE: {INC, AbsoluteX, 3, 7, NoAdjust},
}
