package cpu

import (
	"testing"
)

// AddressingModeTest represents a test case for operand resolution
type AddressingModeTest struct {
	Name            string
	Mode            AddressingMode
	PC              uint16
	X, Y            uint8
	Memory          map[uint16]uint8
	ExpectedAddress uint16
	ExpectedNext    uint16
	PageBoundary    bool
}

func (test AddressingModeTest) run(t *testing.T) {
	t.Helper()
	mem := NewMockMemory()
	for addr, value := range test.Memory {
		mem.data[addr] = value
	}

	op := Resolve(mem, test.Mode, test.PC, test.X, test.Y)

	if op.Address != test.ExpectedAddress {
		t.Errorf("address = $%04X, want $%04X", op.Address, test.ExpectedAddress)
	}
	if op.Next != test.ExpectedNext {
		t.Errorf("next = $%04X, want $%04X", op.Next, test.ExpectedNext)
	}
	if op.PageCrossed != test.PageBoundary {
		t.Errorf("page crossed = %v, want %v", op.PageCrossed, test.PageBoundary)
	}
	for addr, count := range mem.writeCount {
		t.Errorf("resolution wrote $%04X %d times", addr, count)
	}
}

func TestResolve(t *testing.T) {
	tests := []AddressingModeTest{
		{
			Name:         "Implied",
			Mode:         Implied,
			PC:           0x8000,
			ExpectedNext: 0x8001,
		},
		{
			Name:         "Accumulator",
			Mode:         Accumulator,
			PC:           0x8000,
			ExpectedNext: 0x8001,
		},
		{
			Name:            "Immediate",
			Mode:            Immediate,
			PC:              0x8000,
			Memory:          map[uint16]uint8{0x8001: 0x42},
			ExpectedAddress: 0x8001,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "ZeroPage",
			Mode:            ZeroPage,
			PC:              0x8000,
			Memory:          map[uint16]uint8{0x8001: 0x80},
			ExpectedAddress: 0x0080,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "ZeroPageX",
			Mode:            ZeroPageX,
			PC:              0x8000,
			X:               0x05,
			Memory:          map[uint16]uint8{0x8001: 0x80},
			ExpectedAddress: 0x0085,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "ZeroPageX_Wrap",
			Mode:            ZeroPageX,
			PC:              0x8000,
			X:               0x10,
			Memory:          map[uint16]uint8{0x8001: 0xF8},
			ExpectedAddress: 0x0008,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "ZeroPageY_Wrap",
			Mode:            ZeroPageY,
			PC:              0x8000,
			Y:               0x02,
			Memory:          map[uint16]uint8{0x8001: 0xFF},
			ExpectedAddress: 0x0001,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "Absolute",
			Mode:            Absolute,
			PC:              0x8000,
			Memory:          map[uint16]uint8{0x8001: 0x34, 0x8002: 0x12},
			ExpectedAddress: 0x1234,
			ExpectedNext:    0x8003,
		},
		{
			Name:            "AbsoluteX_NoCross",
			Mode:            AbsoluteX,
			PC:              0x8000,
			X:               0x01,
			Memory:          map[uint16]uint8{0x8001: 0x00, 0x8002: 0x20},
			ExpectedAddress: 0x2001,
			ExpectedNext:    0x8003,
		},
		{
			Name:            "AbsoluteX_Cross",
			Mode:            AbsoluteX,
			PC:              0x8000,
			X:               0x01,
			Memory:          map[uint16]uint8{0x8001: 0xFF, 0x8002: 0x20},
			ExpectedAddress: 0x2100,
			ExpectedNext:    0x8003,
			PageBoundary:    true,
		},
		{
			Name:            "AbsoluteY_Cross",
			Mode:            AbsoluteY,
			PC:              0x8000,
			Y:               0xFF,
			Memory:          map[uint16]uint8{0x8001: 0x80, 0x8002: 0x30},
			ExpectedAddress: 0x317F,
			ExpectedNext:    0x8003,
			PageBoundary:    true,
		},
		{
			Name:            "AbsoluteY_WrapAddressSpace",
			Mode:            AbsoluteY,
			PC:              0x8000,
			Y:               0x02,
			Memory:          map[uint16]uint8{0x8001: 0xFF, 0x8002: 0xFF},
			ExpectedAddress: 0x0001,
			ExpectedNext:    0x8003,
			PageBoundary:    true,
		},
		{
			Name:            "Indirect",
			Mode:            Indirect,
			PC:              0x8000,
			Memory:          map[uint16]uint8{0x8001: 0x20, 0x8002: 0x30, 0x3020: 0xCD, 0x3021: 0xAB},
			ExpectedAddress: 0xABCD,
			ExpectedNext:    0x8003,
		},
		{
			// JMP ($30FF) takes its high byte from $3000, not $3100
			Name:            "Indirect_PageWrapBug",
			Mode:            Indirect,
			PC:              0x8000,
			Memory:          map[uint16]uint8{0x8001: 0xFF, 0x8002: 0x30, 0x30FF: 0x80, 0x3000: 0x40, 0x3100: 0x50},
			ExpectedAddress: 0x4080,
			ExpectedNext:    0x8003,
		},
		{
			Name:            "IndexedIndirect",
			Mode:            IndexedIndirect,
			PC:              0x8000,
			X:               0x04,
			Memory:          map[uint16]uint8{0x8001: 0x20, 0x0024: 0x74, 0x0025: 0x20},
			ExpectedAddress: 0x2074,
			ExpectedNext:    0x8002,
		},
		{
			// ($FF,X) with X=2 reads its pointer from $01/$02
			Name:            "IndexedIndirect_ZeroPageWrap",
			Mode:            IndexedIndirect,
			PC:              0x8000,
			X:               0x02,
			Memory:          map[uint16]uint8{0x8001: 0xFF, 0x0001: 0x00, 0x0002: 0x04, 0x0101: 0xEE, 0x0102: 0xEE},
			ExpectedAddress: 0x0400,
			ExpectedNext:    0x8002,
		},
		{
			// Pointer at $FF takes its high byte from $00
			Name:            "IndexedIndirect_PointerWrap",
			Mode:            IndexedIndirect,
			PC:              0x8000,
			X:               0x00,
			Memory:          map[uint16]uint8{0x8001: 0xFF, 0x00FF: 0x34, 0x0000: 0x12, 0x0100: 0x99},
			ExpectedAddress: 0x1234,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "IndirectIndexed_NoCross",
			Mode:            IndirectIndexed,
			PC:              0x8000,
			Y:               0x10,
			Memory:          map[uint16]uint8{0x8001: 0x86, 0x0086: 0x28, 0x0087: 0x40},
			ExpectedAddress: 0x4038,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "IndirectIndexed_Cross",
			Mode:            IndirectIndexed,
			PC:              0x8000,
			Y:               0x01,
			Memory:          map[uint16]uint8{0x8001: 0x86, 0x0086: 0xFF, 0x0087: 0x40},
			ExpectedAddress: 0x4100,
			ExpectedNext:    0x8002,
			PageBoundary:    true,
		},
		{
			Name:            "IndirectIndexed_PointerWrap",
			Mode:            IndirectIndexed,
			PC:              0x8000,
			Y:               0x00,
			Memory:          map[uint16]uint8{0x8001: 0xFF, 0x00FF: 0x00, 0x0000: 0x60, 0x0100: 0x99},
			ExpectedAddress: 0x6000,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "Relative_Forward",
			Mode:            Relative,
			PC:              0x8000,
			Memory:          map[uint16]uint8{0x8001: 0x10},
			ExpectedAddress: 0x8012,
			ExpectedNext:    0x8002,
		},
		{
			Name:            "Relative_Backward",
			Mode:            Relative,
			PC:              0x8010,
			Memory:          map[uint16]uint8{0x8011: 0xF0},
			ExpectedAddress: 0x8002,
			ExpectedNext:    0x8012,
		},
		{
			// The crossing is measured from the following instruction
			Name:            "Relative_CrossForward",
			Mode:            Relative,
			PC:              0x80F0,
			Memory:          map[uint16]uint8{0x80F1: 0x20},
			ExpectedAddress: 0x8112,
			ExpectedNext:    0x80F2,
			PageBoundary:    true,
		},
		{
			Name:            "Relative_CrossBackward",
			Mode:            Relative,
			PC:              0x8100,
			Memory:          map[uint16]uint8{0x8101: 0xFA},
			ExpectedAddress: 0x80FC,
			ExpectedNext:    0x8102,
			PageBoundary:    true,
		},
		{
			// Instruction ends on the page boundary: next is $8100
			Name:            "Relative_NextOnNewPage",
			Mode:            Relative,
			PC:              0x80FE,
			Memory:          map[uint16]uint8{0x80FF: 0x05},
			ExpectedAddress: 0x8105,
			ExpectedNext:    0x8100,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, test.run)
	}
}

func TestOperandBytes(t *testing.T) {
	for mode := Implied; mode <= IndirectIndexed; mode++ {
		if mode.Length() != mode.OperandBytes()+1 {
			t.Errorf("%s: length %d, operand bytes %d", mode, mode.Length(), mode.OperandBytes())
		}
	}
}

// TestJMPIndirectPageWrap runs JMP ($30FF) on the CPU.
func TestJMPIndirectPageWrap(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	helper.LoadProgram(0x8000, 0x6C, 0xFF, 0x30)
	helper.Memory.SetBytes(0x30FF, 0x80)
	helper.Memory.SetBytes(0x3000, 0x40)
	helper.Memory.SetBytes(0x3100, 0x50)

	cycles := helper.Run(t, 1)

	if helper.CPU.PC != 0x4080 {
		t.Errorf("PC = $%04X, want $4080 (high byte from $3000)", helper.CPU.PC)
	}
	if cycles != 5 {
		t.Errorf("JMP indirect took %d cycles, want 5", cycles)
	}
}

// TestIndexedIndirectZeroPageWrap runs LDA ($FF,X) with X=2.
func TestIndexedIndirectZeroPageWrap(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.SetupResetVector(0x8000)
	// LDX #$02; LDA ($FF,X)
	helper.LoadProgram(0x8000, 0xA2, 0x02, 0xA1, 0xFF)
	helper.Memory.SetBytes(0x0001, 0x00, 0x04)
	helper.Memory.SetBytes(0x0101, 0x00, 0x05)
	helper.Memory.SetBytes(0x0400, 0x77)
	helper.Memory.SetBytes(0x0500, 0x88)

	cycles := helper.Run(t, 2)

	if helper.CPU.A != 0x77 {
		t.Errorf("A = $%02X, want $77 (pointer read from $01)", helper.CPU.A)
	}
	if cycles != 2+6 {
		t.Errorf("took %d cycles, want 8", cycles)
	}
}
