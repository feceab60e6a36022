// Package cpu decodes and times MOS 6502 instructions and drives a 6502
// core over a 64KB memory bus.
package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// CPU constants
const (
	// Stack base address
	stackBase = 0x0100
	// Status register bit masks
	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01
	// Interrupt vectors
	resetVector = 0xFFFC
	irqVector   = 0xFFFE

	resetCycles   = 7
	illegalCycles = 2
)

// MemoryInterface defines the interface for CPU memory access
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// TraceEntry describes one executed instruction. Register values are the
// ones seen before the instruction ran.
type TraceEntry struct {
	PC      uint16
	Raw     []uint8
	Inst    Instruction
	Operand Operand
	Cycles  uint64

	A, X, Y, SP uint8
	P           uint8
	Total       uint64 // cycle counter before the instruction
}

// CPU represents the 6502 processor used in the NES
type CPU struct {
	// Registers
	A  uint8  // Accumulator
	X  uint8  // X register
	Y  uint8  // Y register
	SP uint8  // Stack pointer
	PC uint16 // Program counter

	// Status register flags
	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal mode
	B bool // Break
	V bool // Overflow
	N bool // Negative

	memory MemoryInterface
	cycles uint64

	// decimalMode makes ADC/SBC honour the D flag. The NES 2A03 has BCD
	// arithmetic wired off, so it defaults to false.
	decimalMode bool

	tracer  func(TraceEntry)
	stalled bool
}

// New creates a new CPU instance
func New(memory MemoryInterface) *CPU {
	return &CPU{
		memory: memory,
		SP:     0xFD,
	}
}

// Reset puts the registers in their power-up state and loads PC from the
// reset vector. The sequence costs 7 cycles.
func (cpu *CPU) Reset() {
	cpu.A, cpu.X, cpu.Y = 0, 0, 0
	cpu.SP = 0xFD
	cpu.SetStatusByte(unusedMask | iFlagMask)
	cpu.PC = cpu.readWord(resetVector)
	cpu.cycles = resetCycles
	cpu.stalled = false
}

// SetDecimalMode enables binary-coded decimal ADC/SBC while D is set.
func (cpu *CPU) SetDecimalMode(enable bool) {
	cpu.decimalMode = enable
}

// DecimalMode reports whether BCD arithmetic is enabled.
func (cpu *CPU) DecimalMode() bool {
	return cpu.decimalMode
}

// SetTracer installs fn to be called after every executed instruction.
// A nil fn disables tracing.
func (cpu *CPU) SetTracer(fn func(TraceEntry)) {
	cpu.tracer = fn
}

// Cycles returns the total number of cycles executed since Reset.
func (cpu *CPU) Cycles() uint64 {
	return cpu.cycles
}

// Stalled reports whether the last instruction left PC where it was, as a
// JMP to itself or a taken branch to itself does.
func (cpu *CPU) Stalled() bool {
	return cpu.stalled
}

// Step executes a single instruction and returns the cycles it took.
// An undocumented opcode leaves the CPU untouched and returns an error
// matching ErrIllegalOpcode.
func (cpu *CPU) Step() (uint64, error) {
	pc := cpu.PC
	opcode := cpu.memory.Read(pc)

	inst, err := Decode(opcode)
	if err != nil {
		return 0, errors.Wrapf(err, "cpu: decode at $%04X", pc)
	}

	var entry TraceEntry
	if cpu.tracer != nil {
		entry = cpu.traceEntry(pc, inst)
	}

	op := Resolve(cpu.memory, inst.Mode, pc, cpu.X, cpu.Y)
	cpu.PC = op.Next

	taken := cpu.execute(inst, op)

	out := CycleOutcome{BranchTaken: taken}
	if inst.Mode == Relative {
		out.BranchPageCrossed = op.PageCrossed
	} else {
		out.PageCrossed = op.PageCrossed
	}
	cycles := AccountCycles(inst, out)
	cpu.cycles += cycles
	cpu.stalled = cpu.PC == pc

	if cpu.tracer != nil {
		entry.Operand = op
		entry.Cycles = cycles
		cpu.tracer(entry)
	}

	return cycles, nil
}

// SkipIllegal steps over the byte at PC as if it were a one-byte, two-cycle
// NOP. Hosts that choose to tolerate undocumented opcodes call it after
// Step reported one.
func (cpu *CPU) SkipIllegal() uint64 {
	cpu.PC++
	cpu.cycles += illegalCycles
	return illegalCycles
}

func (cpu *CPU) traceEntry(pc uint16, inst Instruction) TraceEntry {
	raw := make([]uint8, inst.Bytes)
	for i := range raw {
		raw[i] = cpu.memory.Read(pc + uint16(i))
	}
	return TraceEntry{
		PC:    pc,
		Raw:   raw,
		Inst:  inst,
		A:     cpu.A,
		X:     cpu.X,
		Y:     cpu.Y,
		SP:    cpu.SP,
		P:     cpu.GetStatusByte(),
		Total: cpu.cycles,
	}
}

func (cpu *CPU) readWord(address uint16) uint16 {
	low := uint16(cpu.memory.Read(address))
	high := uint16(cpu.memory.Read(address + 1))
	return high<<8 | low
}

// Stack operations
func (cpu *CPU) push(value uint8) {
	cpu.memory.Write(stackBase+uint16(cpu.SP), value)
	cpu.SP--
}

func (cpu *CPU) pop() uint8 {
	cpu.SP++
	return cpu.memory.Read(stackBase + uint16(cpu.SP))
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.push(uint8(value >> 8))
	cpu.push(uint8(value))
}

func (cpu *CPU) popWord() uint16 {
	low := uint16(cpu.pop())
	high := uint16(cpu.pop())
	return high<<8 | low
}

// setZN sets Zero and Negative flags based on value
func (cpu *CPU) setZN(value uint8) {
	cpu.Z = value == 0
	cpu.N = value&nFlagMask != 0
}

// GetStatusByte returns the status register as a byte. Bit 5 always reads
// as set.
func (cpu *CPU) GetStatusByte() uint8 {
	status := uint8(unusedMask)
	for _, f := range cpu.flagBits() {
		if *f.flag {
			status |= f.mask
		}
	}
	return status
}

// SetStatusByte sets the status register from a byte
func (cpu *CPU) SetStatusByte(status uint8) {
	for _, f := range cpu.flagBits() {
		*f.flag = status&f.mask != 0
	}
}

type flagBit struct {
	mask uint8
	flag *bool
}

func (cpu *CPU) flagBits() [7]flagBit {
	return [7]flagBit{
		{nFlagMask, &cpu.N},
		{vFlagMask, &cpu.V},
		{bFlagMask, &cpu.B},
		{dFlagMask, &cpu.D},
		{iFlagMask, &cpu.I},
		{zFlagMask, &cpu.Z},
		{cFlagMask, &cpu.C},
	}
}

// FlagsString renders a status byte as NV-BDIZC with '-' for clear bits.
func FlagsString(status uint8) string {
	const letters = "NV-BDIZC"
	out := []byte("--------")
	for i := 0; i < 8; i++ {
		if i != 2 && status&(0x80>>i) != 0 {
			out[i] = letters[i]
		}
	}
	return string(out)
}

// State is a copy of the register file and cycle counter.
type State struct {
	A      uint8  `json:"a"`
	X      uint8  `json:"x"`
	Y      uint8  `json:"y"`
	SP     uint8  `json:"sp"`
	PC     uint16 `json:"pc"`
	P      uint8  `json:"p"`
	Cycles uint64 `json:"cycles"`
}

// Snapshot returns the current register state.
func (cpu *CPU) Snapshot() State {
	return State{
		A:      cpu.A,
		X:      cpu.X,
		Y:      cpu.Y,
		SP:     cpu.SP,
		PC:     cpu.PC,
		P:      cpu.GetStatusByte(),
		Cycles: cpu.cycles,
	}
}

// Restore loads a state captured by Snapshot.
func (cpu *CPU) Restore(s State) {
	cpu.A, cpu.X, cpu.Y = s.A, s.X, s.Y
	cpu.SP = s.SP
	cpu.PC = s.PC
	cpu.SetStatusByte(s.P)
	cpu.cycles = s.Cycles
	cpu.stalled = false
}

func (cpu *CPU) String() string {
	return fmt.Sprintf("PC=$%04X A=$%02X X=$%02X Y=$%02X SP=$%02X %s CYC=%d",
		cpu.PC, cpu.A, cpu.X, cpu.Y, cpu.SP, FlagsString(cpu.GetStatusByte()), cpu.cycles)
}
