package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32im/emulator/vm"
)

func TestDefaultConfigMatchesVMDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint32(vm.DefaultMemSize), cfg.Memory.SizeBytes)
	assert.Equal(t, uint32(vm.DefaultInitialPC), cfg.Memory.InitialPC)
	assert.Equal(t, vm.DefaultHostCallDeadlineMS, cfg.HostOS.CallDeadlineMS)
	assert.Equal(t, vm.DefaultPipeQueueCapacity, cfg.HostOS.PipeQueueCapacity)
	assert.Equal(t, int32(vm.DefaultDescriptorStart), cfg.HostOS.DescriptorStart)
	assert.EqualValues(t, vm.DefaultMaxCycles, cfg.Execution.MaxCycles)
	assert.True(t, cfg.Debugger.ShowRegisters)
}

func TestVMConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.SizeBytes = 8192
	cfg.HostOS.DescriptorStart = 10

	vmCfg := cfg.VMConfig()
	assert.Equal(t, uint32(8192), vmCfg.MemSize)
	assert.Equal(t, int32(10), vmCfg.DescriptorStart)
}

func TestGetConfigPathEndsWithConfigToml(t *testing.T) {
	path := GetConfigPath()
	require.NotEmpty(t, path)
	assert.Equal(t, "config.toml", filepath.Base(path))
}

func TestGetLogPathNonEmpty(t *testing.T) {
	path := GetLogPath()
	assert.NotEmpty(t, path)
	if runtime.GOOS == "darwin" || runtime.GOOS == "linux" {
		assert.Equal(t, "logs", filepath.Base(path))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Execution.MaxCycles = 5_000_000
	cfg.Execution.EnableStats = true
	cfg.Debugger.HistorySize = 500
	cfg.HostOS.Address = "127.0.0.1:7000"

	require.NoError(t, cfg.SaveTo(configPath))
	require.FileExists(t, configPath)

	loaded, err := LoadFrom(configPath)
	require.NoError(t, err)

	assert.EqualValues(t, 5_000_000, loaded.Execution.MaxCycles)
	assert.True(t, loaded.Execution.EnableStats)
	assert.Equal(t, 500, loaded.Debugger.HistorySize)
	assert.Equal(t, "127.0.0.1:7000", loaded.HostOS.Address)
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	require.NoError(t, err)
	assert.EqualValues(t, vm.DefaultMaxCycles, cfg.Execution.MaxCycles)
}

func TestLoadInvalidTOMLFails(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[execution]
max_cycles = "not a number"
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidTOML), 0644))

	_, err := LoadFrom(configPath)
	assert.Error(t, err)
}

func TestSaveCreatesMissingDirectories(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.SaveTo(configPath))
	assert.FileExists(t, configPath)
}
