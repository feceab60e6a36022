// Package app wires the 6502 core, memory and disassembler into a
// configurable program runner.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"nescore/internal/programs"
)

// Illegal opcode policies
const (
	IllegalHalt = "halt"
	IllegalSkip = "skip"
)

const (
	defaultMaxSteps = 100000
	defaultOrigin   = "0x0600"
)

// Config holds all application configuration
type Config struct {
	Program   ProgramConfig   `json:"program"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// ProgramConfig selects the program to run. At most one of Hex, File and
// Sample may be set.
type ProgramConfig struct {
	Origin         string `json:"origin"` // load address, "0x0600" or "$0600"
	Hex            string `json:"hex"`    // inline machine code, "A9 01 8D 00 02"
	File           string `json:"file"`   // raw binary image
	Sample         string `json:"sample"` // name of a built-in sample
	Entry          string `json:"entry"`  // reset vector override, empty for origin
	SetResetVector bool   `json:"set_reset_vector"`
}

// EmulationConfig contains execution limits and core options
type EmulationConfig struct {
	MaxSteps       int    `json:"max_steps"`
	MaxCycles      uint64 `json:"max_cycles"`     // 0 means unlimited
	IllegalOpcode  string `json:"illegal_opcode"` // "halt" or "skip"
	DecimalMode    bool   `json:"decimal_mode"`
	StopOnStall    bool   `json:"stop_on_stall"`
	PowerUpPattern bool   `json:"power_up_pattern"`
}

// DebugConfig contains tracing and diagnostic options
type DebugConfig struct {
	Trace         bool   `json:"trace"`
	DumpState     bool   `json:"dump_state"`
	EnableLogging bool   `json:"enable_logging"`
	LogFile       string `json:"log_file"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	States string `json:"states"`
	Config string `json:"config"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Program: ProgramConfig{
			Origin:         defaultOrigin,
			SetResetVector: true,
		},
		Emulation: EmulationConfig{
			MaxSteps:      defaultMaxSteps,
			IllegalOpcode: IllegalHalt,
			StopOnStall:   true,
		},
		Paths: PathsConfig{
			States: "./states",
			Config: "./config",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}

	if err := json.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, "failed to parse config file")
	}

	if err := c.validate(); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// validate rejects values the runner cannot honour and clamps the rest
// back to defaults.
func (c *Config) validate() error {
	if c.Program.Origin == "" {
		c.Program.Origin = defaultOrigin
	}
	if _, err := ParseAddress(c.Program.Origin); err != nil {
		return &ConfigError{Field: "program.origin", Value: c.Program.Origin, Err: err}
	}

	if c.Program.Entry != "" {
		if _, err := ParseAddress(c.Program.Entry); err != nil {
			return &ConfigError{Field: "program.entry", Value: c.Program.Entry, Err: err}
		}
	}

	sources := 0
	for _, s := range []string{c.Program.Hex, c.Program.File, c.Program.Sample} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return &ConfigError{Field: "program", Value: sources,
			Err: errors.New("only one of hex, file and sample may be set")}
	}
	if c.Program.Sample != "" {
		if _, err := programs.Lookup(c.Program.Sample); err != nil {
			return &ConfigError{Field: "program.sample", Value: c.Program.Sample, Err: err}
		}
	}

	if c.Emulation.MaxSteps <= 0 {
		c.Emulation.MaxSteps = defaultMaxSteps
	}

	switch strings.ToLower(c.Emulation.IllegalOpcode) {
	case "":
		c.Emulation.IllegalOpcode = IllegalHalt
	case IllegalHalt, IllegalSkip:
		c.Emulation.IllegalOpcode = strings.ToLower(c.Emulation.IllegalOpcode)
	default:
		return &ConfigError{Field: "emulation.illegal_opcode", Value: c.Emulation.IllegalOpcode,
			Err: errors.Errorf("must be %q or %q", IllegalHalt, IllegalSkip)}
	}

	return nil
}

// Validate checks the configuration after it was changed in code, for
// example from command-line flags.
func (c *Config) Validate() error {
	return c.validate()
}

// Origin returns the parsed program load address.
func (c *Config) Origin() uint16 {
	origin, err := ParseAddress(c.Program.Origin)
	if err != nil {
		origin, _ = ParseAddress(defaultOrigin)
	}
	return origin
}

// Entry returns the configured reset vector override, if any.
func (c *Config) Entry() (uint16, bool) {
	if c.Program.Entry == "" {
		return 0, false
	}
	entry, err := ParseAddress(c.Program.Entry)
	return entry, err == nil
}

// ParseAddress parses a 16-bit hex address written as "0x8000", "$8000"
// or "8000".
func ParseAddress(s string) (uint16, error) {
	digits := strings.TrimSpace(s)
	digits = strings.TrimPrefix(digits, "$")
	digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")
	if digits == "" {
		return 0, errors.Errorf("empty address %q", s)
	}
	value, err := strconv.ParseUint(digits, 16, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "address %q", s)
	}
	return uint16(value), nil
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(GetDefaultConfigDir(), "nescore.json")
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	return "./config"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
