package service

import "github.com/rv32im/emulator/vm"

// RegisterState is a snapshot of the full RV32IM register file plus PC,
// retargeted from the teacher's 16-register+CPSR shape to spec.md §3's
// 32 general-purpose registers and no flags.
type RegisterState struct {
	Registers [32]uint32
	PC        uint32
	Cycles    uint64
}

// BreakpointInfo represents a breakpoint for UI display
type BreakpointInfo struct {
	Address   uint32 `json:"address"`
	Enabled   bool   `json:"enabled"`
	Condition string `json:"condition"` // Expression that must evaluate to true
}

// WatchpointInfo represents a watchpoint for UI display
type WatchpointInfo struct {
	ID         int    `json:"id"`
	Address    uint32 `json:"address"`
	IsRegister bool   `json:"isRegister"`
	Register   int    `json:"register,omitempty"`
	Type       string `json:"type"` // "read", "write", "readwrite"
	Enabled    bool   `json:"enabled"`
}

// ExecutionState represents the current state of execution
type ExecutionState string

const (
	StateRunning    ExecutionState = "running"
	StateHalted     ExecutionState = "halted"
	StateBreakpoint ExecutionState = "breakpoint"
	StateError      ExecutionState = "error"
)

// VMStateToExecution converts vm.ExecutionState to service.ExecutionState
func VMStateToExecution(state vm.ExecutionState) ExecutionState {
	switch state {
	case vm.StateRunning:
		return StateRunning
	case vm.StateHalted:
		return StateHalted
	case vm.StateBreakpoint:
		return StateBreakpoint
	case vm.StateError:
		return StateError
	default:
		return StateHalted
	}
}

// DisassemblyLine represents one fetched instruction word. There is no
// mnemonic decoder anywhere in this module (see vm/decoder.go), so callers
// only ever see the raw opcode and whatever symbol happens to land there.
type DisassemblyLine struct {
	Address uint32 `json:"address"`
	Opcode  uint32 `json:"opcode"`
	Symbol  string `json:"symbol"` // Symbol at this address, if any
}

// StackEntry represents a single stack location
type StackEntry struct {
	Address uint32 `json:"address"`
	Value   uint32 `json:"value"`
	Symbol  string `json:"symbol"` // If value points to a symbol
}
