// Package main implements the nescore command: a 6502 program runner,
// tracer and disassembler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nescore/internal/app"
	"nescore/internal/cpu"
	"nescore/internal/disasm"
	"nescore/internal/programs"
	"nescore/internal/version"
)

// options mirrors the command line.
type options struct {
	configFile  string
	hex         string
	file        string
	sample      string
	origin      string
	entry       string
	steps       int
	cycles      uint64
	trace       bool
	disasm      bool
	lenient     bool
	skipIllegal bool
	decimal     bool
	dump        bool
	verbose     bool
	saveSlot    int
	loadSlot    int
	exportPath  string
	importPath  string
	listSamples bool
	version     bool
	help        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, map[string]bool, error) {
	o := &options{}
	fs.StringVar(&o.configFile, "config", "", "Path to configuration file (created with defaults if missing)")
	fs.StringVar(&o.hex, "hex", "", "Machine code as hex text, e.g. \"A9 01 8D 00 02\"")
	fs.StringVar(&o.file, "file", "", "Raw binary program image or iNES ROM")
	fs.StringVar(&o.sample, "sample", "", "Built-in sample program (see -samples)")
	fs.StringVar(&o.origin, "org", "", "Load address, e.g. 0x0600 or $C000")
	fs.StringVar(&o.entry, "entry", "", "Start address written to the reset vector (default: load address, or the ROM's own vector)")
	fs.IntVar(&o.steps, "steps", 0, "Maximum instructions to execute")
	fs.Uint64Var(&o.cycles, "cycles", 0, "Maximum cycles to execute (0 = unlimited)")
	fs.BoolVar(&o.trace, "trace", false, "Log every executed instruction")
	fs.BoolVar(&o.disasm, "disasm", false, "Disassemble instead of running; extra arguments are files")
	fs.BoolVar(&o.lenient, "lenient", false, "List undocumented opcodes as data when disassembling files")
	fs.BoolVar(&o.skipIllegal, "skip-illegal", false, "Skip undocumented opcodes instead of halting")
	fs.BoolVar(&o.decimal, "decimal", false, "Enable BCD arithmetic while the D flag is set")
	fs.BoolVar(&o.dump, "dump", false, "Dump machine state after the run")
	fs.BoolVar(&o.verbose, "v", false, "Enable application debug logging")
	fs.IntVar(&o.saveSlot, "save-state", -1, "Save the machine to this slot after the run")
	fs.IntVar(&o.loadSlot, "load-state", -1, "Restore the machine from this slot before the run")
	fs.StringVar(&o.exportPath, "export", "", "Write the machine state to this file after the run")
	fs.StringVar(&o.importPath, "import", "", "Restore the machine state from this file instead of loading a program")
	fs.BoolVar(&o.listSamples, "samples", false, "List built-in sample programs")
	fs.BoolVar(&o.version, "version", false, "Show version information")
	fs.BoolVar(&o.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// applyFlags overrides configuration values with the flags given on the
// command line. Naming a program source on the command line replaces any
// source from the config file.
func applyFlags(config *app.Config, o *options, set map[string]bool) error {
	if set["hex"] || set["file"] || set["sample"] {
		config.Program.Hex, config.Program.File, config.Program.Sample = o.hex, o.file, o.sample
	}
	if set["org"] {
		config.Program.Origin = o.origin
	}
	if set["entry"] {
		config.Program.Entry = o.entry
	}
	if set["steps"] {
		config.Emulation.MaxSteps = o.steps
	}
	if set["cycles"] {
		config.Emulation.MaxCycles = o.cycles
	}
	if set["skip-illegal"] {
		config.Emulation.IllegalOpcode = app.IllegalHalt
		if o.skipIllegal {
			config.Emulation.IllegalOpcode = app.IllegalSkip
		}
	}
	if set["decimal"] {
		config.Emulation.DecimalMode = o.decimal
	}
	if set["trace"] {
		config.Debug.Trace = o.trace
	}
	if set["dump"] {
		config.Debug.DumpState = o.dump
	}
	if set["v"] {
		config.Debug.EnableLogging = o.verbose
	}
	return config.Validate()
}

// checkOptions rejects flag combinations that cannot be honoured together.
func checkOptions(o *options) error {
	if o.disasm && o.importPath != "" {
		return errors.New("-disasm cannot list an imported state; disassemble the program instead")
	}
	return nil
}

func main() {
	o, set, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := checkOptions(o); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	switch {
	case o.help:
		printUsage()
		return
	case o.version:
		printVersion()
		return
	case o.listSamples:
		printSamples()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.disasm && flag.NArg() > 0 {
		if err := disassembleFiles(ctx, o, flag.Args()); err != nil {
			log.Fatalf("Disassembly failed: %v", err)
		}
		return
	}

	config := app.NewConfig()
	if o.configFile != "" {
		if err := config.LoadFromFile(o.configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if err := applyFlags(config, o, set); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	application, err := app.NewApplicationWithConfig(config)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	if o.importPath != "" {
		err = application.ImportState(o.importPath)
	} else {
		err = application.LoadProgram()
	}
	if err != nil {
		log.Fatalf("Failed to load program: %v", err)
	}

	if o.disasm {
		if err := application.Disassemble(os.Stdout); err != nil {
			log.Fatalf("Disassembly failed: %v", err)
		}
		return
	}

	if o.loadSlot >= 0 {
		if err := application.LoadState(o.loadSlot); err != nil {
			log.Fatalf("Failed to load state: %v", err)
		}
	}

	if err := run(ctx, application, o); err != nil {
		application.Cleanup()
		log.Fatalf("Run failed: %v", err)
	}
}

// run executes the loaded program, prints a summary and saves state when
// asked. The state is saved even when the run stopped on an error.
func run(ctx context.Context, application *app.Application, o *options) error {
	result, runErr := application.Run(ctx)
	printSummary(application, result)

	if o.saveSlot >= 0 {
		if err := application.SaveState(o.saveSlot); err != nil {
			return err
		}
		fmt.Printf("Saved state to slot %d\n", o.saveSlot)
	}
	if o.exportPath != "" {
		if err := application.ExportState(o.exportPath); err != nil {
			return err
		}
		fmt.Printf("Exported state to %s\n", o.exportPath)
	}

	if errors.Is(runErr, context.Canceled) {
		fmt.Println("Interrupted")
		return nil
	}
	return runErr
}

func printSummary(application *app.Application, result app.RunResult) {
	s := result.State
	fmt.Printf("%s: stopped (%s) after %d instructions, %d cycles",
		application.GetProgram(), result.Reason, result.Steps, result.Cycles)
	if result.Skipped > 0 {
		fmt.Printf(", %d undocumented opcodes skipped", result.Skipped)
	}
	fmt.Println()
	fmt.Printf("  PC=$%04X A=$%02X X=$%02X Y=$%02X SP=$%02X P=%s\n",
		s.PC, s.A, s.X, s.Y, s.SP, cpu.FlagsString(s.P))
	if top := application.GetStats().TopMnemonics(5); len(top) > 0 {
		fmt.Printf("  most executed: %v\n", top)
	}
}

func disassembleFiles(ctx context.Context, o *options, paths []string) error {
	origin := uint16(programs.DefaultOrigin)
	if o.origin != "" {
		var err error
		if origin, err = app.ParseAddress(o.origin); err != nil {
			return err
		}
	}

	listings, err := disasm.DisassembleFiles(ctx, paths, origin, disasm.Options{Lenient: o.lenient})
	if err != nil {
		return err
	}
	for i, listing := range listings {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("; %s\n", listing.Path)
		if err := disasm.Write(os.Stdout, listing.Lines); err != nil {
			return err
		}
	}
	return nil
}

func printSamples() {
	for _, name := range programs.Names() {
		p, _ := programs.Lookup(name)
		fmt.Printf("  %-8s $%04X  %s\n", p.Name, p.Origin, p.Description)
	}
}

func printVersion() {
	version.PrintBuildInfo(os.Stdout)
}

func printUsage() {
	fmt.Println("nescore - 6502 decode and timing core")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nescore -sample <name> [options]      # Run a built-in sample")
	fmt.Println("  nescore -hex \"<bytes>\" [options]      # Run inline machine code")
	fmt.Println("  nescore -file <image> [options]       # Run a raw binary image")
	fmt.Println("  nescore -disasm [-lenient] <files...> # Disassemble files")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  nescore -sample hello -trace")
	fmt.Println("  nescore -hex \"F8 A9 09 18 69 02\" -decimal -steps 4 -dump")
	fmt.Println("  nescore -file prog.bin -org '$C000' -skip-illegal -save-state 1")
	fmt.Println("  nescore -file nestest.nes -entry '$C000' -trace -steps 5000")
	fmt.Println("  nescore -disasm -org 0x8000 a.bin b.bin")
	fmt.Println()
	fmt.Println("SAMPLES:")
	printSamples()
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Printf("  Config file: %s (with -config)\n", app.GetDefaultConfigPath())
	fmt.Println("  Save States: ./states/")
}
