// Package programs holds small hand-assembled 6502 programs used for
// demonstrations and as end-to-end fixtures.
package programs

import (
	"sort"

	"github.com/pkg/errors"
)

// DefaultOrigin is where samples are loaded unless a program says otherwise.
const DefaultOrigin = 0x0600

// Program is a named machine-code listing in hex text form.
type Program struct {
	Name        string
	Description string
	Origin      uint16
	Hex         string

	// Steps is the number of instructions a straight-line listing runs.
	// Zero when the count depends on the data.
	Steps int

	// Entry is where execution starts when it is not Origin, and Setup
	// holds the caller stub and data a subroutine listing needs.
	Entry uint16
	Setup []Segment
}

// Segment is extra hex text loaded at Origin alongside a program.
type Segment struct {
	Origin uint16
	Hex    string
}

// Start returns the address execution begins at.
func (p Program) Start() uint16 {
	if p.Entry != 0 {
		return p.Entry
	}
	return p.Origin
}

var samples = map[string]Program{
	"tolower": {
		Name:        "tolower",
		Description: "copy a NUL-terminated string from ($80) to ($82), lowering A-Z",
		Origin:      DefaultOrigin,
		// LDY #$00; loop: LDA ($80),Y; BEQ done; CMP #'A'; BCC skip;
		// CMP #'Z'+1; BCS skip; ORA #$20; skip: STA ($82),Y; INY; BNE loop;
		// SEC; RTS; done: STA ($82),Y; CLC; RTS
		Hex: "A0 00 B1 80 F0 11 C9 41 90 06 C9 5B B0 02 09 20 " +
			"91 82 C8 D0 ED 38 60 91 82 18 60",
		Entry: 0x0500,
		Setup: []Segment{
			// JSR tolower; JMP *
			{Origin: 0x0500, Hex: "20 00 06 4C 03 05"},
			// source $0300, destination $0400
			{Origin: 0x0080, Hex: "00 03 00 04"},
			// "Hello, World", 0
			{Origin: 0x0300, Hex: "48 65 6C 6C 6F 2C 20 57 6F 72 6C 64 00"},
		},
	},
	"hello": {
		Name:        "hello",
		Description: "store three colour bytes at $0200-$0202",
		Origin:      DefaultOrigin,
		// LDA #$01; STA $0200; LDA #$05; STA $0201; LDA #$08; STA $0202
		Hex:   "a9 01 8d 00 02 a9 05 8d 01 02 a9 08 8d 02 02",
		Steps: 6,
	},
	"stack": {
		Name:        "stack",
		Description: "push $8C and $AB, then pull both back",
		Origin:      DefaultOrigin,
		// LDA #$8C; PHA; LDA #$AB; PHA; PLA; PLA; NOP
		Hex:   "A9 8C 48 A9 AB 48 68 68 EA",
		Steps: 7,
	},
	"adc": {
		Name:        "adc",
		Description: "add 9+2 in binary, then again with the decimal flag set",
		Origin:      DefaultOrigin,
		// CLD; LDA #$09; CLC; ADC #$02; SED; LDA #$09; CLC; ADC #$02
		Hex:   "D8 A9 09 18 69 02 F8 A9 09 18 69 02",
		Steps: 8,
	},
}

// Lookup returns the sample with the given name.
func Lookup(name string) (Program, error) {
	p, ok := samples[name]
	if !ok {
		return Program{}, errors.Errorf("unknown sample program %q", name)
	}
	return p, nil
}

// Names lists the sample programs in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
