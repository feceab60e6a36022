package cpu

// Addressing modes
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

var addressingModeNames = [...]string{
	Implied:         "implied",
	Accumulator:     "accumulator",
	Immediate:       "immediate",
	ZeroPage:        "zeropage",
	ZeroPageX:       "zeropage,X",
	ZeroPageY:       "zeropage,Y",
	Relative:        "relative",
	Absolute:        "absolute",
	AbsoluteX:       "absolute,X",
	AbsoluteY:       "absolute,Y",
	Indirect:        "indirect",
	IndexedIndirect: "(indirect,X)",
	IndirectIndexed: "(indirect),Y",
}

func (m AddressingMode) String() string {
	if m >= 0 && int(m) < len(addressingModeNames) {
		return addressingModeNames[m]
	}
	return "unknown"
}

// Length returns the total encoded length of an instruction using this
// mode, opcode byte included.
func (m AddressingMode) Length() uint8 {
	return m.OperandBytes() + 1
}

// OperandBytes returns the number of bytes following the opcode.
func (m AddressingMode) OperandBytes() uint8 {
	switch m {
	case Implied, Accumulator:
		return 0
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	default:
		return 1
	}
}

// CanCrossPage reports whether resolving an operand in this mode can
// cross a page boundary in a way that affects timing.
func (m AddressingMode) CanCrossPage() bool {
	switch m {
	case AbsoluteX, AbsoluteY, IndirectIndexed, Relative:
		return true
	}
	return false
}

const (
	zeroPageMask = 0xFF
	pageMask     = 0xFF00
)

// Reader is the read half of the memory bus. Operand resolution only ever
// reads.
type Reader interface {
	Read(address uint16) uint8
}

// Operand is the result of resolving an instruction's addressing mode.
type Operand struct {
	// Address is the effective address. For Immediate it is the address of
	// the literal byte; for Relative it is the branch target. Implied and
	// Accumulator leave it zero.
	Address uint16
	// Next is the address of the instruction that follows.
	Next uint16
	// PageCrossed is set when indexing moved the effective address into
	// another page (absolute indexed, (zp),Y) or, for Relative, when the
	// branch target lies on a different page than Next.
	PageCrossed bool
}

// samePage reports whether a and b share the same high byte.
func samePage(a, b uint16) bool {
	return a&pageMask == b&pageMask
}

// Resolve computes the effective operand of the instruction whose opcode
// sits at pc, using the given index registers. It issues only reads.
func Resolve(mem Reader, mode AddressingMode, pc uint16, x, y uint8) Operand {
	op := Operand{Next: pc + uint16(mode.Length())}

	switch mode {
	case Implied, Accumulator:
		return op

	case Immediate:
		op.Address = pc + 1

	case ZeroPage:
		op.Address = uint16(mem.Read(pc + 1))

	case ZeroPageX:
		op.Address = uint16(mem.Read(pc+1) + x) // uint8 add wraps in page 0

	case ZeroPageY:
		op.Address = uint16(mem.Read(pc+1) + y)

	case Relative:
		offset := int8(mem.Read(pc + 1))
		op.Address = uint16(int32(op.Next) + int32(offset))
		op.PageCrossed = !samePage(op.Next, op.Address)

	case Absolute:
		op.Address = readWord(mem, pc+1)

	case AbsoluteX:
		base := readWord(mem, pc+1)
		op.Address = base + uint16(x)
		op.PageCrossed = !samePage(base, op.Address)

	case AbsoluteY:
		base := readWord(mem, pc+1)
		op.Address = base + uint16(y)
		op.PageCrossed = !samePage(base, op.Address)

	case Indirect:
		ptr := readWord(mem, pc+1)
		op.Address = readWordPageWrapped(mem, ptr)

	case IndexedIndirect:
		ptr := mem.Read(pc+1) + x
		op.Address = readWordZeroPage(mem, ptr)

	case IndirectIndexed:
		base := readWordZeroPage(mem, mem.Read(pc+1))
		op.Address = base + uint16(y)
		op.PageCrossed = !samePage(base, op.Address)
	}

	return op
}

func readWord(mem Reader, address uint16) uint16 {
	low := uint16(mem.Read(address))
	high := uint16(mem.Read(address + 1))
	return high<<8 | low
}

// readWordZeroPage reads a pointer stored in page 0; the high byte of a
// pointer at $FF comes from $00.
func readWordZeroPage(mem Reader, ptr uint8) uint16 {
	low := uint16(mem.Read(uint16(ptr)))
	high := uint16(mem.Read(uint16(ptr + 1)))
	return high<<8 | low
}

// readWordPageWrapped reproduces the JMP ($xxFF) bug: the high byte is
// fetched from the start of the same page instead of the next one.
func readWordPageWrapped(mem Reader, ptr uint16) uint16 {
	low := uint16(mem.Read(ptr))
	hiAddr := ptr&pageMask | (ptr+1)&zeroPageMask
	high := uint16(mem.Read(hiAddr))
	return high<<8 | low
}
