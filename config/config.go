// Package config loads and saves the emulator's TOML configuration file,
// giving spec.md §6's defaults a durable on-disk form.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/rv32im/emulator/vm"
)

// Config represents the emulator configuration.
type Config struct {
	// Memory settings
	Memory struct {
		SizeBytes uint32 `toml:"size_bytes"`
		InitialPC uint32 `toml:"initial_pc"`
	} `toml:"memory"`

	// HostOS settings
	HostOS struct {
		Address           string `toml:"address"`
		CallDeadlineMS    int    `toml:"call_deadline_ms"`
		PipeQueueCapacity int    `toml:"pipe_queue_capacity"`
		DescriptorStart   int32  `toml:"descriptor_start"`
	} `toml:"hostos"`

	// Execution settings
	Execution struct {
		MaxCycles   uint64 `toml:"max_cycles"`
		EnableStats bool   `toml:"enable_stats"`
	} `toml:"execution"`

	// Debugger settings
	Debugger struct {
		HistorySize    int  `toml:"history_size"`
		AutoSaveBreaks bool `toml:"auto_save_breakpoints"`
		ShowRegisters  bool `toml:"show_registers"`
	} `toml:"debugger"`

	// Trace settings
	Trace struct {
		OutputFile string `toml:"output_file"`
		MaxEntries int    `toml:"max_entries"`
	} `toml:"trace"`
}

// DefaultConfig returns a configuration with default values, mirroring
// vm.DefaultConfig() and vm.DefaultMaxCycles.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Memory.SizeBytes = vm.DefaultMemSize
	cfg.Memory.InitialPC = vm.DefaultInitialPC

	cfg.HostOS.Address = ""
	cfg.HostOS.CallDeadlineMS = vm.DefaultHostCallDeadlineMS
	cfg.HostOS.PipeQueueCapacity = vm.DefaultPipeQueueCapacity
	cfg.HostOS.DescriptorStart = vm.DefaultDescriptorStart

	cfg.Execution.MaxCycles = vm.DefaultMaxCycles
	cfg.Execution.EnableStats = false

	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.AutoSaveBreaks = true
	cfg.Debugger.ShowRegisters = true

	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.MaxEntries = 100000

	return cfg
}

// VMConfig converts the loaded TOML sections into a vm.Config.
func (c *Config) VMConfig() vm.Config {
	return vm.Config{
		MemSize:            c.Memory.SizeBytes,
		HostCallDeadlineMS: c.HostOS.CallDeadlineMS,
		PipeQueueCapacity:  c.HostOS.PipeQueueCapacity,
		InitialPC:          c.Memory.InitialPC,
		DescriptorStart:    c.HostOS.DescriptorStart,
	}
}

// GetLogPath returns the platform-specific log directory path, used as the
// default location for trace/statistics output files.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "rv32im-emu", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "rv32im-emu", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "rv32im-emu")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "rv32im-emu")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file is
// not an error: the defaults are returned as-is.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %q: %w", path, err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("config: failed to create directory %q: %w", dir, err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("config: failed to create %q: %w", path, err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}

	return nil
}
