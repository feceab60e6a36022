package cpu

// CycleOutcome carries the runtime facts discovered while resolving and
// executing an instruction that its cycle policy may depend on.
type CycleOutcome struct {
	PageCrossed       bool // operand resolution crossed a page
	BranchTaken       bool // branch condition was true
	BranchPageCrossed bool // branch target is on a different page than the next instruction
}

// AccountCycles returns the cycles charged for inst given the outcome of
// its execution. It is pure.
//
//	NoAdjust:            base
//	PageBoundaryCrossed: base, +1 when a page was crossed
//	BranchTaken:         base when not taken, +1 when taken, +2 when taken to another page
func AccountCycles(inst Instruction, out CycleOutcome) uint64 {
	cycles := uint64(inst.Cycles)

	switch inst.Policy {
	case PageBoundaryCrossed:
		if out.PageCrossed {
			cycles++
		}
	case BranchTaken:
		if out.BranchTaken {
			cycles++
			if out.BranchPageCrossed {
				cycles++
			}
		}
	}

	return cycles
}
