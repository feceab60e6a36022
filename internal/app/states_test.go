package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"nescore/internal/cpu"
	"nescore/internal/memory"
)

func newStateFixture(t *testing.T) (*StateManager, *cpu.CPU, *memory.Memory) {
	t.Helper()
	mem := memory.New()
	if err := mem.LoadHex(0x0600, "A9 8C 48 E8 C8"); err != nil {
		t.Fatal(err)
	}
	mem.SetVector(memory.ResetVector, 0x0600)
	c := cpu.New(mem)
	c.Reset()
	for i := 0; i < 4; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatal(err)
		}
	}
	return NewStateManager(filepath.Join(t.TempDir(), "states")), c, mem
}

func TestSaveLoadSlot(t *testing.T) {
	sm, c, mem := newStateFixture(t)
	want := c.Snapshot()

	if sm.HasSaveState(3, "stack") {
		t.Fatal("slot 3 used before saving")
	}
	if err := sm.SaveState(c, mem, 3, "stack"); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if !sm.HasSaveState(3, "stack") {
		t.Fatal("slot 3 empty after saving")
	}

	// Clobber the machine, then restore
	mem.Clear()
	c.Reset()
	c.SetDecimalMode(true)

	if err := sm.LoadState(c, mem, 3, "stack"); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got := c.Snapshot(); got != want {
		t.Errorf("restored state differs:\n%s", spew.Sdump(want, got))
	}
	if c.DecimalMode() {
		t.Error("decimal mode not restored")
	}
	if mem.Read(0x01FD) != 0x8C || mem.Read(0x0600) != 0xA9 {
		t.Error("memory image not restored")
	}
}

func TestSlotErrors(t *testing.T) {
	sm, c, mem := newStateFixture(t)

	for _, slot := range []int{-1, 10} {
		if err := sm.SaveState(c, mem, slot, "stack"); err == nil {
			t.Errorf("SaveState accepted slot %d", slot)
		}
	}
	if err := sm.LoadState(c, mem, 0, "stack"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("LoadState on empty slot: %v", err)
	}

	if err := sm.SaveState(c, mem, 0, "stack"); err != nil {
		t.Fatal(err)
	}
	if err := sm.LoadState(c, mem, 0, "hello"); err == nil {
		t.Error("loaded a slot saved for another program")
	}
	if err := sm.DeleteState(0, "stack"); err != nil {
		t.Fatalf("DeleteState: %v", err)
	}
	if err := sm.DeleteState(0, "stack"); err == nil {
		t.Error("deleted an empty slot")
	}
}

func TestSlotInfo(t *testing.T) {
	sm, c, mem := newStateFixture(t)
	sm.SetMaxSlots(4)
	sm.SetMaxSlots(0)
	if sm.GetMaxSlots() != 4 {
		t.Fatalf("max slots = %d", sm.GetMaxSlots())
	}

	if err := sm.SaveState(c, mem, 2, "/tmp/prog.bin"); err != nil {
		t.Fatal(err)
	}
	info := sm.GetSlotInfo("/tmp/prog.bin")
	if len(info) != 4 {
		t.Fatalf("got %d slots", len(info))
	}
	for i, slot := range info {
		if slot.Used != (i == 2) {
			t.Errorf("slot %d used = %v", i, slot.Used)
		}
	}
	used := info[2]
	if used.Program != "/tmp/prog.bin" || !strings.HasPrefix(used.Description, "Slot 2 ") {
		t.Errorf("slot info = %+v", used)
	}
	if filepath.Base(used.FilePath) != "prog_slot_2.state" || filepath.Dir(used.FilePath) != sm.GetSaveDirectory() {
		t.Errorf("slot file = %q", used.FilePath)
	}
}

func TestExportImport(t *testing.T) {
	sm, c, mem := newStateFixture(t)
	want := c.Snapshot()
	path := filepath.Join(t.TempDir(), "export", "machine.json")

	if err := sm.ExportState(c, mem, path, "stack"); err != nil {
		t.Fatalf("ExportState: %v", err)
	}

	fresh := memory.New()
	other := cpu.New(fresh)
	program, err := sm.ImportState(other, fresh, path, "")
	if err != nil {
		t.Fatalf("ImportState: %v", err)
	}
	if program != "stack" {
		t.Errorf("program = %q", program)
	}
	if got := other.Snapshot(); got != want {
		t.Errorf("imported state differs:\n%s", spew.Sdump(want, got))
	}

	if _, err := sm.ImportState(other, fresh, path, "hello"); err == nil {
		t.Error("imported a state saved for another program")
	}
}

func TestImportRejectsTamperedState(t *testing.T) {
	sm, c, mem := newStateFixture(t)
	path := filepath.Join(t.TempDir(), "machine.json")
	if err := sm.ExportState(c, mem, path, "stack"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*SaveState)
		want   string
	}{
		{"checksum", func(s *SaveState) { s.Memory[0x0600] ^= 0xFF }, "checksum"},
		{"size", func(s *SaveState) { s.Memory = s.Memory[:0x100] }, "memory image"},
		{"version", func(s *SaveState) { s.Version = "0.1" }, "version"},
		{"missing version", func(s *SaveState) { s.Version = "" }, "missing version"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			state, err := sm.loadFromFile(path)
			if err != nil {
				t.Fatal(err)
			}
			test.mutate(state)
			data, err := json.Marshal(state)
			if err != nil {
				t.Fatal(err)
			}
			tampered := filepath.Join(t.TempDir(), "tampered.json")
			if err := os.WriteFile(tampered, data, 0644); err != nil {
				t.Fatal(err)
			}

			before := c.Snapshot()
			_, err = sm.ImportState(c, mem, tampered, "")
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Fatalf("error = %v, want %q", err, test.want)
			}
			if c.Snapshot() != before {
				t.Error("CPU changed by a rejected state")
			}
		})
	}
}

func TestApplicationStateSlots(t *testing.T) {
	app, _ := newTestApp(t, func(c *Config) {
		c.Program.Sample = "stack"
		c.Emulation.MaxSteps = 4
		c.Emulation.StopOnStall = false
	})
	if err := app.SaveState(0); err == nil {
		t.Error("SaveState without a program should fail")
	}
	if err := app.LoadProgram(); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	saved := app.GetCPU().Snapshot()
	if err := app.SaveState(1); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	app.Reset()
	if err := app.LoadState(1); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if app.GetCPU().Snapshot() != saved {
		t.Errorf("state after LoadState = %+v, want %+v", app.GetCPU().Snapshot(), saved)
	}

	path := filepath.Join(t.TempDir(), "stack.json")
	if err := app.ExportState(path); err != nil {
		t.Fatal(err)
	}
	other, _ := newTestApp(t, nil)
	if err := other.ImportState(path); err != nil {
		t.Fatalf("ImportState: %v", err)
	}
	if other.GetProgram() != "stack" || other.GetCPU().Snapshot() != saved {
		t.Errorf("imported program %q state %+v", other.GetProgram(), other.GetCPU().Snapshot())
	}
}
