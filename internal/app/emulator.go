package app

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/cpu"
	"nescore/internal/disasm"
	"nescore/internal/memory"
)

// ErrStepLimit is returned by Run when the program was expected to stall
// but hit the step or cycle limit first.
var ErrStepLimit = errors.New("step limit reached")

// StopReason tells why Run returned.
type StopReason int

const (
	StopNone StopReason = iota
	StopStepLimit
	StopCycleLimit
	StopStalled
	StopIllegal
	StopCancelled
	StopError
	StopProgramEnd
)

func (r StopReason) String() string {
	switch r {
	case StopStepLimit:
		return "step limit"
	case StopCycleLimit:
		return "cycle limit"
	case StopStalled:
		return "stalled"
	case StopIllegal:
		return "illegal opcode"
	case StopCancelled:
		return "cancelled"
	case StopError:
		return "error"
	case StopProgramEnd:
		return "end of program"
	}
	return "none"
}

// RunResult summarises one call to Run.
type RunResult struct {
	Steps   int
	Cycles  uint64
	Skipped int
	Reason  StopReason
	State   cpu.State
	Elapsed time.Duration
}

// Emulator drives the CPU one instruction at a time under the limits and
// policies of the configuration.
type Emulator struct {
	cpu    *cpu.CPU
	config *Config
	logger *log.Logger

	steps     int
	skipped   int
	mnemonics map[cpu.Mnemonic]int

	// programEnd is the address just past a straight-line program
	programEnd    uint16
	hasProgramEnd bool

	emulationTime time.Duration
}

// EmulatorStats contains totals since the last Reset
type EmulatorStats struct {
	Steps         int            `json:"steps"`
	Cycles        uint64         `json:"cycles"`
	Skipped       int            `json:"skipped"`
	EmulationTime time.Duration  `json:"emulation_time"`
	Mnemonics     map[string]int `json:"mnemonics"`
}

// NewEmulator creates an emulator and installs its tracer on c.
func NewEmulator(c *cpu.CPU, config *Config, logger *log.Logger) *Emulator {
	e := &Emulator{
		cpu:       c,
		config:    config,
		logger:    logger,
		mnemonics: make(map[cpu.Mnemonic]int),
	}
	c.SetTracer(e.trace)
	return e
}

func (e *Emulator) trace(entry cpu.TraceEntry) {
	e.mnemonics[entry.Inst.Mnemonic]++
	if e.config.Debug.Trace {
		e.logger.Printf("[CPU_TRACE] %s", disasm.FormatTrace(entry))
	}
}

// SetProgramEnd makes Run stop without error once PC reaches end. It is
// for listings that run off their last byte instead of looping.
func (e *Emulator) SetProgramEnd(end uint16) {
	e.programEnd, e.hasProgramEnd = end, true
}

// ClearProgramEnd removes the end set by SetProgramEnd.
func (e *Emulator) ClearProgramEnd() {
	e.programEnd, e.hasProgramEnd = 0, false
}

// Reset clears the counters. The CPU itself is reset by the caller.
func (e *Emulator) Reset() {
	e.steps = 0
	e.skipped = 0
	e.mnemonics = make(map[cpu.Mnemonic]int)
	e.emulationTime = 0
}

// StepInstruction executes one instruction. An undocumented opcode is
// logged, then skipped or returned depending on the configured policy.
func (e *Emulator) StepInstruction() error {
	pc := e.cpu.PC
	if _, err := e.cpu.Step(); err != nil {
		var illegal *cpu.IllegalOpcodeError
		if !errors.As(err, &illegal) {
			return err
		}
		e.logger.Printf("[APP_WARNING] illegal opcode $%02X at $%04X (%s)", illegal.Opcode, pc, memory.Region(pc))
		if e.config.Emulation.IllegalOpcode != IllegalSkip {
			return err
		}
		e.cpu.SkipIllegal()
		e.skipped++
	}
	e.steps++
	return nil
}

// Run executes instructions until the program ends or stalls, a limit is
// hit, an undocumented opcode halts it or ctx is done.
func (e *Emulator) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	startCycles := e.cpu.Cycles()
	startSkipped := e.skipped
	emu := e.config.Emulation

	result := RunResult{}
	var err error

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Reason, err = StopCancelled, ctxErr
			break
		}
		if e.hasProgramEnd && e.cpu.PC == e.programEnd {
			result.Reason = StopProgramEnd
			break
		}
		if result.Steps >= emu.MaxSteps {
			result.Reason = StopStepLimit
			break
		}
		if emu.MaxCycles > 0 && e.cpu.Cycles()-startCycles >= emu.MaxCycles {
			result.Reason = StopCycleLimit
			break
		}

		if stepErr := e.StepInstruction(); stepErr != nil {
			result.Reason, err = StopError, stepErr
			if errors.Is(stepErr, cpu.ErrIllegalOpcode) {
				result.Reason = StopIllegal
			}
			break
		}
		result.Steps++

		if emu.StopOnStall && e.cpu.Stalled() {
			result.Reason = StopStalled
			break
		}
	}

	if emu.StopOnStall && (result.Reason == StopStepLimit || result.Reason == StopCycleLimit) {
		err = errors.Wrapf(ErrStepLimit, "no stall after %d instructions (%s)", result.Steps, result.Reason)
	}

	elapsed := time.Since(start)
	e.emulationTime += elapsed

	result.Cycles = e.cpu.Cycles() - startCycles
	result.Skipped = e.skipped - startSkipped
	result.State = e.cpu.Snapshot()
	result.Elapsed = elapsed
	return result, err
}

// GetStats returns totals since the last Reset.
func (e *Emulator) GetStats() EmulatorStats {
	mnemonics := make(map[string]int, len(e.mnemonics))
	for m, n := range e.mnemonics {
		mnemonics[m.String()] = n
	}
	return EmulatorStats{
		Steps:         e.steps,
		Cycles:        e.cpu.Cycles(),
		Skipped:       e.skipped,
		EmulationTime: e.emulationTime,
		Mnemonics:     mnemonics,
	}
}

// TopMnemonics returns up to n mnemonics ordered by how often they ran.
func (s EmulatorStats) TopMnemonics(n int) []string {
	names := make([]string, 0, len(s.Mnemonics))
	for name := range s.Mnemonics {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Mnemonics[names[i]] != s.Mnemonics[names[j]] {
			return s.Mnemonics[names[i]] > s.Mnemonics[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
