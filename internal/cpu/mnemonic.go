package cpu

// Mnemonic identifies the operation family of an instruction. Opcodes that
// differ only in addressing mode share a Mnemonic.
type Mnemonic uint8

const (
	ADC Mnemonic = iota // add with carry
	AND                 // and (with accumulator)
	ASL                 // arithmetic shift left
	BCC                 // branch on carry clear
	BCS                 // branch on carry set
	BEQ                 // branch on equal (zero set)
	BIT                 // bit test
	BMI                 // branch on minus (negative set)
	BNE                 // branch on not equal (zero clear)
	BPL                 // branch on plus (negative clear)
	BRK                 // break / interrupt
	BVC                 // branch on overflow clear
	BVS                 // branch on overflow set
	CLC                 // clear carry
	CLD                 // clear decimal
	CLI                 // clear interrupt disable
	CLV                 // clear overflow
	CMP                 // compare (with accumulator)
	CPX                 // compare with X
	CPY                 // compare with Y
	DEC                 // decrement
	DEX                 // decrement X
	DEY                 // decrement Y
	EOR                 // exclusive or (with accumulator)
	INC                 // increment
	INX                 // increment X
	INY                 // increment Y
	JMP                 // jump
	JSR                 // jump subroutine
	LDA                 // load accumulator
	LDX                 // load X
	LDY                 // load Y
	LSR                 // logical shift right
	NOP                 // no operation
	ORA                 // or with accumulator
	PHA                 // push accumulator
	PHP                 // push processor status
	PLA                 // pull accumulator
	PLP                 // pull processor status
	ROL                 // rotate left
	ROR                 // rotate right
	RTI                 // return from interrupt
	RTS                 // return from subroutine
	SBC                 // subtract with carry
	SEC                 // set carry
	SED                 // set decimal
	SEI                 // set interrupt disable
	STA                 // store accumulator
	STX                 // store X
	STY                 // store Y
	TAX                 // transfer accumulator to X
	TAY                 // transfer accumulator to Y
	TSX                 // transfer stack pointer to X
	TXA                 // transfer X to accumulator
	TXS                 // transfer X to stack pointer
	TYA                 // transfer Y to accumulator

	mnemonicCount
)

var mnemonicNames = [mnemonicCount]string{
	"ADC", "AND", "ASL", "BCC", "BCS", "BEQ", "BIT", "BMI",
	"BNE", "BPL", "BRK", "BVC", "BVS", "CLC", "CLD", "CLI",
	"CLV", "CMP", "CPX", "CPY", "DEC", "DEX", "DEY", "EOR",
	"INC", "INX", "INY", "JMP", "JSR", "LDA", "LDX", "LDY",
	"LSR", "NOP", "ORA", "PHA", "PHP", "PLA", "PLP", "ROL",
	"ROR", "RTI", "RTS", "SBC", "SEC", "SED", "SEI", "STA",
	"STX", "STY", "TAX", "TAY", "TSX", "TXA", "TXS", "TYA",
}

func (m Mnemonic) String() string {
	if m < mnemonicCount {
		return mnemonicNames[m]
	}
	return "???"
}

// IsBranch reports whether m is one of the eight conditional branches.
func (m Mnemonic) IsBranch() bool {
	switch m {
	case BCC, BCS, BEQ, BMI, BNE, BPL, BVC, BVS:
		return true
	}
	return false
}
