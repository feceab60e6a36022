package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/cpu"
	"nescore/internal/memory"
)

const stateVersion = "1.0"

// StateManager manages save states
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool
}

// SaveState is a snapshot of the CPU registers and the whole address
// space. Memory is stored base64 encoded by encoding/json.
type SaveState struct {
	// Metadata
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Program     string    `json:"program"`
	Checksum    string    `json:"checksum"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`

	CPU         cpu.State `json:"cpu"`
	DecimalMode bool      `json:"decimal_mode"`
	Memory      []byte    `json:"memory"`
}

// StateSlotInfo contains information about a save state slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	Program     string    `json:"program"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// NewStateManager creates a new state manager
func NewStateManager(saveDirectory string) *StateManager {
	return &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      10,
	}
}

// initialize creates the save directory on first use.
func (sm *StateManager) initialize() error {
	if sm.initialized {
		return nil
	}
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return errors.Wrap(err, "failed to create save directory")
	}
	sm.initialized = true
	return nil
}

// capture builds a save state from a running machine.
func (sm *StateManager) capture(c *cpu.CPU, mem *memory.Memory, program string) *SaveState {
	image := mem.Dump()
	return &SaveState{
		Version:     stateVersion,
		Timestamp:   time.Now(),
		Program:     program,
		Checksum:    checksum(image),
		CPU:         c.Snapshot(),
		DecimalMode: c.DecimalMode(),
		Memory:      image,
	}
}

// SaveState saves the machine to a slot
func (sm *StateManager) SaveState(c *cpu.CPU, mem *memory.Memory, slot int, program string) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}
	if err := sm.initialize(); err != nil {
		return err
	}

	state := sm.capture(c, mem, program)
	state.SlotNumber = slot
	state.Description = fmt.Sprintf("Slot %d %s", slot, state.Timestamp.Format("2006-01-02 15:04:05"))

	return errors.WithMessagef(sm.saveToFile(state, sm.getSlotFilePath(slot, program)),
		"failed to save state to slot %d", slot)
}

// LoadState restores the machine from a slot
func (sm *StateManager) LoadState(c *cpu.CPU, mem *memory.Memory, slot int, program string) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, program)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.Errorf("save state not found in slot %d", slot)
	}

	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return errors.WithMessagef(err, "failed to load state from slot %d", slot)
	}
	if err := sm.validateSaveState(state, program); err != nil {
		return errors.WithMessage(err, "invalid save state")
	}
	return sm.restoreState(c, mem, state)
}

// ExportState writes the machine to a specific file
func (sm *StateManager) ExportState(c *cpu.CPU, mem *memory.Memory, filePath string, program string) error {
	state := sm.capture(c, mem, program)
	state.SlotNumber = -1
	state.Description = fmt.Sprintf("Export %s", state.Timestamp.Format("2006-01-02 15:04:05"))
	return sm.saveToFile(state, filePath)
}

// ImportState restores the machine from a specific file and returns the
// program it was saved for. An empty program name accepts a state saved
// for any program.
func (sm *StateManager) ImportState(c *cpu.CPU, mem *memory.Memory, filePath string, program string) (string, error) {
	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return "", errors.WithMessage(err, "failed to import state")
	}
	if program == "" {
		program = state.Program
	}
	if err := sm.validateSaveState(state, program); err != nil {
		return "", errors.WithMessage(err, "invalid imported state")
	}
	return state.Program, sm.restoreState(c, mem, state)
}

func (sm *StateManager) saveToFile(state *SaveState, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}

func (sm *StateManager) loadFromFile(filePath string) (*SaveState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal state")
	}
	return &state, nil
}

// validateSaveState checks a loaded state before anything is restored.
func (sm *StateManager) validateSaveState(state *SaveState, program string) error {
	if state.Version == "" {
		return errors.New("missing version information")
	}
	if state.Version != stateVersion {
		return errors.Errorf("unsupported state version %q", state.Version)
	}
	if state.Program != program {
		return errors.Errorf("save state is for program %q, not %q", state.Program, program)
	}
	if len(state.Memory) != memory.Size {
		return errors.Errorf("memory image is %d bytes, want %d", len(state.Memory), memory.Size)
	}
	if state.Checksum != checksum(state.Memory) {
		return errors.New("memory checksum mismatch")
	}
	return nil
}

func (sm *StateManager) restoreState(c *cpu.CPU, mem *memory.Memory, state *SaveState) error {
	if err := mem.LoadImage(state.Memory); err != nil {
		return errors.WithMessage(err, "failed to restore state")
	}
	c.Restore(state.CPU)
	c.SetDecimalMode(state.DecimalMode)
	return nil
}

func (sm *StateManager) checkSlot(slot int) error {
	if slot < 0 || slot >= sm.maxSlots {
		return errors.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	return nil
}

// getSlotFilePath generates the file path for a save slot
func (sm *StateManager) getSlotFilePath(slot int, program string) string {
	name := filepath.Base(program)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." {
		name = "program"
	}
	return filepath.Join(sm.saveDirectory, fmt.Sprintf("%s_slot_%d.state", name, slot))
}

func checksum(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// GetSlotInfo returns information about all save slots
func (sm *StateManager) GetSlotInfo(program string) []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := range slots {
		info := StateSlotInfo{SlotNumber: i}

		filePath := sm.getSlotFilePath(i, program)
		if stat, err := os.Stat(filePath); err == nil {
			info.Used = true
			info.FilePath = filePath
			info.FileSize = stat.Size()
			info.Timestamp = stat.ModTime()

			if state, err := sm.loadFromFile(filePath); err == nil {
				info.Program = state.Program
				info.Description = state.Description
				info.Timestamp = state.Timestamp
			}
		}

		slots[i] = info
	}

	return slots
}

// DeleteState deletes a save state from a slot
func (sm *StateManager) DeleteState(slot int, program string) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, program)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.Errorf("save state not found in slot %d", slot)
	}
	return errors.Wrap(os.Remove(filePath), "failed to delete save state")
}

// HasSaveState checks if a save state exists in a slot
func (sm *StateManager) HasSaveState(slot int, program string) bool {
	if sm.checkSlot(slot) != nil {
		return false
	}
	_, err := os.Stat(sm.getSlotFilePath(slot, program))
	return err == nil
}

// GetMaxSlots returns the maximum number of save slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// SetMaxSlots sets the maximum number of save slots
func (sm *StateManager) SetMaxSlots(slots int) {
	if slots > 0 {
		sm.maxSlots = slots
	}
}

// GetSaveDirectory returns the save directory path
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}
