package main

import (
	"flag"
	"io"
	"testing"

	"nescore/internal/app"
)

func parse(t *testing.T, args ...string) (*options, map[string]bool) {
	t.Helper()
	fs := flag.NewFlagSet("nescore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o, set, err := parseFlags(fs, args)
	if err != nil {
		t.Fatalf("parseFlags(%v): %v", args, err)
	}
	return o, set
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(*testing.T, *app.Config)
	}{
		{
			name: "defaults untouched",
			args: nil,
			check: func(t *testing.T, c *app.Config) {
				if c.Emulation.IllegalOpcode != app.IllegalHalt || c.Debug.Trace || c.Origin() != 0x0600 ||
					c.Program.Sample != "stack" {
					t.Errorf("config changed: %+v", c)
				}
			},
		},
		{
			name: "run options",
			args: []string{"-sample", "adc", "-steps", "8", "-decimal", "-skip-illegal", "-trace", "-cycles", "100"},
			check: func(t *testing.T, c *app.Config) {
				e := c.Emulation
				if c.Program.Sample != "adc" || e.MaxSteps != 8 || !e.DecimalMode ||
					e.IllegalOpcode != app.IllegalSkip || e.MaxCycles != 100 || !c.Debug.Trace {
					t.Errorf("config = %+v", c)
				}
			},
		},
		{
			name: "program source replaces config source",
			args: []string{"-hex", "EA", "-org", "$C000", "-entry", "C001"},
			check: func(t *testing.T, c *app.Config) {
				entry, ok := c.Entry()
				if c.Program.Hex != "EA" || c.Program.Sample != "" || c.Origin() != 0xC000 || !ok || entry != 0xC001 {
					t.Errorf("program = %+v", c.Program)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := app.NewConfig()
			config.Program.Sample = "stack"
			o, set := parse(t, test.args...)
			if err := applyFlags(config, o, set); err != nil {
				t.Fatalf("applyFlags: %v", err)
			}
			test.check(t, config)
		})
	}
}

func TestApplyFlagsInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"-org", "0x12345"},
		{"-sample", "missing"},
		{"-entry", "nowhere"},
	} {
		o, set := parse(t, args...)
		if err := applyFlags(app.NewConfig(), o, set); err == nil {
			t.Errorf("applyFlags accepted %v", args)
		}
	}
}

func TestParseFlagsArgs(t *testing.T) {
	fs := flag.NewFlagSet("nescore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o, set, err := parseFlags(fs, []string{"-disasm", "-lenient", "a.bin", "b.bin"})
	if err != nil {
		t.Fatal(err)
	}
	if !o.disasm || !o.lenient || !set["disasm"] || set["trace"] {
		t.Errorf("options = %+v set = %v", o, set)
	}
	if fs.NArg() != 2 || fs.Arg(1) != "b.bin" {
		t.Errorf("args = %v", fs.Args())
	}
	if o.saveSlot != -1 || o.loadSlot != -1 {
		t.Errorf("slot defaults = %d, %d", o.saveSlot, o.loadSlot)
	}
}

func TestCheckOptions(t *testing.T) {
	o, _ := parse(t, "-import", "machine.json", "-disasm")
	if err := checkOptions(o); err == nil {
		t.Error("accepted -disasm with -import")
	}
	for _, args := range [][]string{
		{"-import", "machine.json"},
		{"-sample", "hello", "-disasm"},
	} {
		o, _ := parse(t, args...)
		if err := checkOptions(o); err != nil {
			t.Errorf("%v: %v", args, err)
		}
	}
}
