package cpu

// execute applies the effect of inst. PC already points past the
// instruction. It reports whether a branch was taken.
func (cpu *CPU) execute(inst Instruction, op Operand) bool {
	switch inst.Mnemonic {
	// Load/store
	case LDA:
		cpu.A = cpu.load(inst, op)
		cpu.setZN(cpu.A)
	case LDX:
		cpu.X = cpu.load(inst, op)
		cpu.setZN(cpu.X)
	case LDY:
		cpu.Y = cpu.load(inst, op)
		cpu.setZN(cpu.Y)
	case STA:
		cpu.memory.Write(op.Address, cpu.A)
	case STX:
		cpu.memory.Write(op.Address, cpu.X)
	case STY:
		cpu.memory.Write(op.Address, cpu.Y)

	// Arithmetic and logic
	case ADC:
		cpu.adc(cpu.load(inst, op))
	case SBC:
		cpu.sbc(cpu.load(inst, op))
	case AND:
		cpu.A &= cpu.load(inst, op)
		cpu.setZN(cpu.A)
	case ORA:
		cpu.A |= cpu.load(inst, op)
		cpu.setZN(cpu.A)
	case EOR:
		cpu.A ^= cpu.load(inst, op)
		cpu.setZN(cpu.A)
	case BIT:
		value := cpu.load(inst, op)
		cpu.N = value&nFlagMask != 0
		cpu.V = value&vFlagMask != 0
		cpu.Z = cpu.A&value == 0
	case CMP:
		cpu.compare(cpu.A, cpu.load(inst, op))
	case CPX:
		cpu.compare(cpu.X, cpu.load(inst, op))
	case CPY:
		cpu.compare(cpu.Y, cpu.load(inst, op))

	// Shifts and rotates, memory or accumulator
	case ASL:
		value := cpu.load(inst, op)
		cpu.C = value&0x80 != 0
		cpu.modify(inst, op, value<<1)
	case LSR:
		value := cpu.load(inst, op)
		cpu.C = value&0x01 != 0
		cpu.modify(inst, op, value>>1)
	case ROL:
		value := cpu.load(inst, op)
		result := value << 1
		if cpu.C {
			result |= 0x01
		}
		cpu.C = value&0x80 != 0
		cpu.modify(inst, op, result)
	case ROR:
		value := cpu.load(inst, op)
		result := value >> 1
		if cpu.C {
			result |= 0x80
		}
		cpu.C = value&0x01 != 0
		cpu.modify(inst, op, result)

	// Increments and decrements
	case INC:
		cpu.modify(inst, op, cpu.load(inst, op)+1)
	case DEC:
		cpu.modify(inst, op, cpu.load(inst, op)-1)
	case INX:
		cpu.X++
		cpu.setZN(cpu.X)
	case DEX:
		cpu.X--
		cpu.setZN(cpu.X)
	case INY:
		cpu.Y++
		cpu.setZN(cpu.Y)
	case DEY:
		cpu.Y--
		cpu.setZN(cpu.Y)

	// Transfers
	case TAX:
		cpu.X = cpu.A
		cpu.setZN(cpu.X)
	case TXA:
		cpu.A = cpu.X
		cpu.setZN(cpu.A)
	case TAY:
		cpu.Y = cpu.A
		cpu.setZN(cpu.Y)
	case TYA:
		cpu.A = cpu.Y
		cpu.setZN(cpu.A)
	case TSX:
		cpu.X = cpu.SP
		cpu.setZN(cpu.X)
	case TXS:
		cpu.SP = cpu.X

	// Stack
	case PHA:
		cpu.push(cpu.A)
	case PHP:
		cpu.push(cpu.GetStatusByte() | bFlagMask)
	case PLA:
		cpu.A = cpu.pop()
		cpu.setZN(cpu.A)
	case PLP:
		cpu.pullStatus()

	// Flags
	case CLC:
		cpu.C = false
	case SEC:
		cpu.C = true
	case CLI:
		cpu.I = false
	case SEI:
		cpu.I = true
	case CLV:
		cpu.V = false
	case CLD:
		cpu.D = false
	case SED:
		cpu.D = true

	// Control flow
	case JMP:
		cpu.PC = op.Address
	case JSR:
		cpu.pushWord(cpu.PC - 1)
		cpu.PC = op.Address
	case RTS:
		cpu.PC = cpu.popWord() + 1
	case RTI:
		cpu.pullStatus()
		cpu.PC = cpu.popWord()
	case BRK:
		// BRK skips a padding byte: the return address is opcode+2.
		cpu.pushWord(cpu.PC + 1)
		cpu.push(cpu.GetStatusByte() | bFlagMask)
		cpu.I = true
		cpu.PC = cpu.readWord(irqVector)
	case NOP:

	case BCC, BCS, BEQ, BMI, BNE, BPL, BVC, BVS:
		if cpu.branchCondition(inst.Mnemonic) {
			cpu.PC = op.Address
			return true
		}
	}
	return false
}

// load fetches the instruction's operand value.
func (cpu *CPU) load(inst Instruction, op Operand) uint8 {
	if inst.Mode == Accumulator {
		return cpu.A
	}
	return cpu.memory.Read(op.Address)
}

// modify writes back a read-modify-write result and updates Z/N.
func (cpu *CPU) modify(inst Instruction, op Operand, value uint8) {
	if inst.Mode == Accumulator {
		cpu.A = value
	} else {
		cpu.memory.Write(op.Address, value)
	}
	cpu.setZN(value)
}

func (cpu *CPU) compare(register, value uint8) {
	cpu.C = register >= value
	cpu.setZN(register - value)
}

// pullStatus pops P. B has no storage in the register and is dropped.
func (cpu *CPU) pullStatus() {
	cpu.SetStatusByte(cpu.pop())
	cpu.B = false
}

func (cpu *CPU) branchCondition(m Mnemonic) bool {
	switch m {
	case BCC:
		return !cpu.C
	case BCS:
		return cpu.C
	case BNE:
		return !cpu.Z
	case BEQ:
		return cpu.Z
	case BPL:
		return !cpu.N
	case BMI:
		return cpu.N
	case BVC:
		return !cpu.V
	case BVS:
		return cpu.V
	}
	return false
}

func (cpu *CPU) carry() uint8 {
	if cpu.C {
		return 1
	}
	return 0
}

func (cpu *CPU) adc(value uint8) {
	if cpu.decimalMode && cpu.D {
		cpu.adcDecimal(value)
		return
	}
	result := uint16(cpu.A) + uint16(value) + uint16(cpu.carry())
	// Overflow when both inputs share a sign the result does not.
	cpu.V = (cpu.A^uint8(result))&(value^uint8(result))&0x80 != 0
	cpu.C = result > 0xFF
	cpu.A = uint8(result)
	cpu.setZN(cpu.A)
}

func (cpu *CPU) sbc(value uint8) {
	if cpu.decimalMode && cpu.D {
		cpu.sbcDecimal(value)
		return
	}
	cpu.adc(value ^ 0xFF)
}

// adcDecimal adds two packed BCD bytes. V is computed from the binary sum
// as NMOS parts do.
func (cpu *CPU) adcDecimal(value uint8) {
	binary := uint16(cpu.A) + uint16(value) + uint16(cpu.carry())
	cpu.V = (cpu.A^uint8(binary))&(value^uint8(binary))&0x80 != 0

	lo := int(cpu.A&0x0F) + int(value&0x0F) + int(cpu.carry())
	hi := int(cpu.A>>4) + int(value>>4)
	if lo > 9 {
		lo += 6
	}
	if lo > 0x0F {
		hi++
	}
	if hi > 9 {
		hi += 6
	}
	cpu.C = hi > 0x0F
	cpu.A = uint8(hi<<4 | lo&0x0F)
	cpu.setZN(cpu.A)
}

func (cpu *CPU) sbcDecimal(value uint8) {
	borrow := 1 - int(cpu.carry())
	binary := int(cpu.A) - int(value) - borrow
	cpu.V = (cpu.A^value)&(cpu.A^uint8(binary))&0x80 != 0

	lo := int(cpu.A&0x0F) - int(value&0x0F) - borrow
	hi := int(cpu.A>>4) - int(value>>4)
	if lo < 0 {
		lo -= 6
		hi--
	}
	if hi < 0 {
		hi -= 6
	}
	cpu.C = binary >= 0
	cpu.A = uint8(hi<<4 | lo&0x0F)
	cpu.setZN(cpu.A)
}
