package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/disasm"
	"nescore/internal/memory"
	"nescore/internal/programs"
)

// Application owns the machine, its configuration and the run loop.
type Application struct {
	config *Config

	memory   *memory.Memory
	cpu      *cpu.CPU
	emulator *Emulator
	states   *StateManager

	logger  *log.Logger
	logFile *os.File

	// Loaded program
	program string
	origin  uint16
	code    []byte
	loaded  bool
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates an application from a config file. A config that
// fails to load is reported and replaced by defaults.
func NewApplication(configPath string) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
			config = NewConfig()
		}
	}
	return NewApplicationWithConfig(config)
}

// NewApplicationWithConfig creates an application from an in-memory config.
func NewApplicationWithConfig(config *Config) (*Application, error) {
	if err := config.validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validation", Err: err}
	}

	app := &Application{config: config}
	if err := app.initializeComponents(); err != nil {
		return nil, &ApplicationError{Component: "initialization", Operation: "component setup", Err: err}
	}
	return app, nil
}

func (app *Application) initializeComponents() error {
	app.logger = log.New(os.Stderr, "", log.LstdFlags)
	if path := app.config.Debug.LogFile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Wrap(err, "failed to create log directory")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
		app.logFile = f
		app.logger.SetOutput(f)
	}

	app.memory = memory.New()
	app.cpu = cpu.New(app.memory)
	app.cpu.SetDecimalMode(app.config.Emulation.DecimalMode)
	app.emulator = NewEmulator(app.cpu, app.config, app.logger)
	app.states = NewStateManager(app.config.Paths.States)
	return nil
}

// SetLogOutput redirects application and trace logging.
func (app *Application) SetLogOutput(w io.Writer) {
	app.logger.SetOutput(w)
}

func (app *Application) debugf(format string, args ...interface{}) {
	if app.config.Debug.EnableLogging {
		app.logger.Printf("[APP_DEBUG] "+format, args...)
	}
}

// LoadProgram loads the program the configuration names: a sample, inline
// hex or a binary file.
func (app *Application) LoadProgram() error {
	p := app.config.Program

	var (
		name string
		data []byte
		err  error
	)
	switch {
	case p.Sample != "":
		var sample programs.Program
		if sample, err = programs.Lookup(p.Sample); err == nil {
			return app.LoadSample(sample)
		}
	case p.Hex != "":
		name = "inline"
		data, err = memory.ParseHex(p.Hex)
	case p.File != "":
		name = p.File
		if data, err = os.ReadFile(p.File); err == nil && cartridge.IsINES(data) {
			return app.LoadCartridge(name, data)
		}
	default:
		err = errors.New("no program configured: set program.hex, program.file or program.sample")
	}
	if err != nil {
		return &ApplicationError{Component: "loader", Operation: "program load", Err: err}
	}

	return app.LoadBytes(name, app.config.Origin(), data)
}

// image is a program ready to be placed in memory.
type image struct {
	name      string
	origin    uint16
	data      []byte
	start     uint16
	setVector bool
	straight  bool
	setup     []programs.Segment
}

// LoadBytes places data at origin, points the reset vector at it when so
// configured and resets the CPU.
func (app *Application) LoadBytes(name string, origin uint16, data []byte) error {
	return app.place(image{
		name:      name,
		origin:    origin,
		data:      data,
		start:     origin,
		setVector: app.config.Program.SetResetVector,
	})
}

// LoadSample loads a built-in program with its setup segments. A
// straight-line sample ends when PC leaves its last byte.
func (app *Application) LoadSample(p programs.Program) error {
	data, err := memory.ParseHex(p.Hex)
	if err != nil {
		return &ApplicationError{Component: "loader", Operation: "sample load", Err: err}
	}
	return app.place(image{
		name:      p.Name,
		origin:    p.Origin,
		data:      data,
		start:     p.Start(),
		setVector: app.config.Program.SetResetVector,
		straight:  p.Steps > 0,
		setup:     p.Setup,
	})
}

// LoadCartridge maps the PRG-ROM of an iNES image at $8000. The image's
// own reset vector is used unless program.entry overrides it.
func (app *Application) LoadCartridge(name string, data []byte) error {
	cart, err := cartridge.LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return &ApplicationError{Component: "loader", Operation: "cartridge load", Err: err}
	}
	view, err := cart.NROM()
	if err != nil {
		return &ApplicationError{Component: "loader", Operation: "cartridge load", Err: err}
	}
	app.debugf("Cartridge %s: %s", name, cart)
	return app.place(image{name: name, origin: cartridge.PRGStart, data: view})
}

// place replaces memory with img and resets the CPU into it.
func (app *Application) place(img image) error {
	app.memory.Clear()
	if app.config.Emulation.PowerUpPattern {
		app.memory.FillPowerUpPattern()
	}
	if err := app.memory.LoadProgram(img.origin, img.data); err != nil {
		return &ApplicationError{Component: "loader", Operation: "program load", Err: err}
	}
	for _, seg := range img.setup {
		if err := app.memory.LoadHex(seg.Origin, seg.Hex); err != nil {
			return &ApplicationError{Component: "loader", Operation: "program load", Err: err}
		}
	}
	if entry, ok := app.config.Entry(); ok {
		app.memory.SetVector(memory.ResetVector, entry)
	} else if img.setVector {
		app.memory.SetVector(memory.ResetVector, img.start)
	}

	app.program = img.name
	app.origin = img.origin
	app.code = append([]byte(nil), img.data...)
	app.loaded = true
	if img.straight {
		app.emulator.SetProgramEnd(img.origin + uint16(len(img.data)))
	} else {
		app.emulator.ClearProgramEnd()
	}

	app.Reset()
	app.debugf("Loaded %s: %d bytes at $%04X, PC=$%04X", img.name, len(img.data), img.origin, app.cpu.PC)
	return nil
}

// Run executes the loaded program under the configured limits.
func (app *Application) Run(ctx context.Context) (RunResult, error) {
	if !app.loaded {
		return RunResult{}, &ApplicationError{Component: "emulator", Operation: "run",
			Err: errors.New("no program loaded")}
	}

	app.debugf("Starting at $%04X (max %d steps)", app.cpu.PC, app.config.Emulation.MaxSteps)
	result, err := app.emulator.Run(ctx)
	app.debugf("Stopped after %d steps, %d cycles: %s", result.Steps, result.Cycles, result.Reason)

	if app.config.Debug.DumpState {
		app.DumpState(app.logger.Writer())
	}
	return result, err
}

// Disassemble writes a listing of the loaded program. Undocumented opcodes
// are listed as data.
func (app *Application) Disassemble(w io.Writer) error {
	if !app.loaded {
		return errors.New("no program loaded")
	}
	if len(app.code) == 0 {
		return errors.Errorf("no program image for %s: state files carry memory, not a listing", app.program)
	}
	lines, err := disasm.Disassemble(app.code, app.origin, disasm.Options{Lenient: true})
	if err != nil {
		return err
	}
	return disasm.Write(w, lines)
}

// machineDump is the layout DumpState prints.
type machineDump struct {
	Program  string
	CPU      cpu.State
	Flags    string
	PCRegion string
	Vectors  vectors
	ZeroPage []byte
	Stack    []byte
	Stats    EmulatorStats
}

type vectors struct {
	NMI, Reset, IRQ uint16
}

// DumpState pretty-prints registers, zero page and the live part of the
// stack.
func (app *Application) DumpState(w io.Writer) {
	image := app.memory.Dump()
	state := app.cpu.Snapshot()

	dump := machineDump{
		Program:  app.program,
		CPU:      state,
		Flags:    cpu.FlagsString(state.P),
		PCRegion: memory.Region(state.PC),
		Vectors: vectors{
			NMI:   app.memory.ReadWord(memory.NMIVector),
			Reset: app.memory.ReadWord(memory.ResetVector),
			IRQ:   app.memory.ReadWord(memory.IRQVector),
		},
		ZeroPage: image[memory.ZeroPageStart : memory.ZeroPageEnd+1],
		Stack:    image[memory.StackStart+int(state.SP)+1 : memory.StackEnd+1],
		Stats:    app.emulator.GetStats(),
	}
	spew.Fdump(w, dump)
}

// SaveState saves the machine to a numbered slot
func (app *Application) SaveState(slot int) error {
	if !app.loaded {
		return errors.New("no program loaded")
	}
	return app.states.SaveState(app.cpu, app.memory, slot, app.program)
}

// LoadState restores the machine from a numbered slot
func (app *Application) LoadState(slot int) error {
	if !app.loaded {
		return errors.New("no program loaded")
	}
	return app.states.LoadState(app.cpu, app.memory, slot, app.program)
}

// ExportState writes the machine to a file
func (app *Application) ExportState(path string) error {
	return app.states.ExportState(app.cpu, app.memory, path, app.program)
}

// ImportState restores the machine from a file written by ExportState.
// The file's program becomes the loaded program.
func (app *Application) ImportState(path string) error {
	program, err := app.states.ImportState(app.cpu, app.memory, path, "")
	if err != nil {
		return err
	}
	app.program = program
	app.origin = 0
	app.code = nil
	app.loaded = true
	app.emulator.ClearProgramEnd()
	app.emulator.Reset()
	app.debugf("Imported state for %s, PC=$%04X", app.program, app.cpu.PC)
	return nil
}

// Reset resets the CPU through the reset vector and clears run counters.
func (app *Application) Reset() {
	app.cpu.Reset()
	app.emulator.Reset()
}

// GetCPU returns the processor
func (app *Application) GetCPU() *cpu.CPU {
	return app.cpu
}

// GetMemory returns the address space
func (app *Application) GetMemory() *memory.Memory {
	return app.memory
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetStats returns emulator totals since the last reset
func (app *Application) GetStats() EmulatorStats {
	return app.emulator.GetStats()
}

// GetProgram returns the name of the loaded program
func (app *Application) GetProgram() string {
	return app.program
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	app.debugf("Cleaning up application resources...")

	var lastErr error
	if app.logFile != nil {
		app.logger.SetOutput(os.Stderr)
		if err := app.logFile.Close(); err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] Log file cleanup error: %v", err)
		}
		app.logFile = nil
	}
	return lastErr
}
