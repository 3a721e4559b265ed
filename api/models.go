package api

import (
	"time"

	"github.com/rv32im/emulator/service"
	"github.com/rv32im/emulator/vm"
)

// SessionCreateRequest represents a request to create a new session
type SessionCreateRequest struct {
	MemorySize        uint32 `json:"memorySize,omitempty"`        // Memory size in bytes (default: vm.DefaultMemSize)
	HostCallDeadlineMS int   `json:"hostCallDeadlineMs,omitempty"` // HostOS call timeout in milliseconds
	PipeQueueCapacity int    `json:"pipeQueueCapacity,omitempty"`  // HostOS pipe queue depth
	WithStdin         bool   `json:"withStdin,omitempty"`          // If true, wire a pipe to HostOS fd 0 so SendInput works
}

// SessionCreateResponse represents the response from creating a session
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse represents the current status of a session
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	PC        uint32 `json:"pc"`
	Cycles    uint64 `json:"cycles"`
	Error     string `json:"error,omitempty"`
}

// LoadProgramRequest represents a request to load a program into a session.
// Exactly one of Hex or ManifestPath+Name must be set, per spec.md §4.G's
// two loading paths (a raw hex string, or a named entry in a YAML manifest).
type LoadProgramRequest struct {
	Hex  string `json:"hex,omitempty"`  // Raw hex-encoded program bytes
	Base uint32 `json:"base,omitempty"` // Load address for Hex
	Entry uint32 `json:"entry,omitempty"` // Initial PC; defaults to Base

	ManifestPath string `json:"manifestPath,omitempty"` // Path to a loader.Manifest YAML file
	Name         string `json:"name,omitempty"`         // Program name within the manifest

	Symbol string `json:"symbol,omitempty"` // Optional label recorded for Entry, for Hex loads
}

// LoadProgramResponse represents the response from loading a program
type LoadProgramResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Symbols map[string]uint32 `json:"symbols,omitempty"`
}

// RegistersResponse represents the current register state: all 32 RV32IM
// general-purpose registers plus PC and cycle count. There is no flags
// register in this architecture, unlike the teacher's CPSR.
type RegistersResponse struct {
	X      [32]uint32 `json:"x"`
	PC     uint32     `json:"pc"`
	Cycles uint64     `json:"cycles"`
}

// MemoryRequest represents a request for memory data
type MemoryRequest struct {
	Address uint32 `json:"address"`
	Length  uint32 `json:"length"`
}

// MemoryResponse represents memory data
type MemoryResponse struct {
	Address uint32 `json:"address"`
	Data    []byte `json:"data"`
	Length  uint32 `json:"length"`
}

// DisassemblyRequest represents a request for raw instruction words
type DisassemblyRequest struct {
	Address uint32 `json:"address"`
	Count   uint32 `json:"count"`
}

// DisassemblyResponse represents fetched instruction words
type DisassemblyResponse struct {
	Instructions []InstructionInfo `json:"instructions"`
}

// InstructionInfo represents one fetched instruction word. There is no
// mnemonic decoder in this module, so callers get the raw opcode and
// whatever symbol lands on that address.
type InstructionInfo struct {
	Address uint32 `json:"address"`
	Opcode  uint32 `json:"opcode"`
	Symbol  string `json:"symbol,omitempty"`
}

// StackRequest represents a request for a window of stack memory
type StackRequest struct {
	Offset int `json:"offset"` // Offset from SP, in words
	Count  int `json:"count"`
}

// StackResponse represents a window of stack memory
type StackResponse struct {
	Entries []service.StackEntry `json:"entries"`
}

// BreakpointRequest represents a request to add/remove a breakpoint
type BreakpointRequest struct {
	Address uint32 `json:"address"`
}

// BreakpointsResponse represents a list of breakpoints
type BreakpointsResponse struct {
	Breakpoints []service.BreakpointInfo `json:"breakpoints"`
}

// WatchpointRequest represents a request to add a watchpoint. Exactly one
// of Address or Register (by x0-x31 index) must be set.
type WatchpointRequest struct {
	Address    uint32 `json:"address,omitempty"`
	IsRegister bool   `json:"isRegister,omitempty"`
	Register   int    `json:"register,omitempty"`
	Type       string `json:"type,omitempty"` // "read", "write", "readwrite" (default)
}

// WatchpointResponse represents a single created watchpoint
type WatchpointResponse struct {
	ID int `json:"id"`
}

// WatchpointsResponse represents a list of watchpoints
type WatchpointsResponse struct {
	Watchpoints []service.WatchpointInfo `json:"watchpoints"`
}

// StdinRequest represents a request to send stdin data
type StdinRequest struct {
	Data string `json:"data"`
}

// CommandRequest represents a debugger command string (as typed in the CLI)
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse represents a debugger command's text output
type CommandResponse struct {
	Output string `json:"output"`
}

// EvaluateRequest represents an expression to evaluate
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse represents an evaluated expression's result
type EvaluateResponse struct {
	Value uint32 `json:"value"`
}

// StatisticsResponse mirrors vm.Statistics's trimmed counter set (spec.md's
// Non-goals exclude exact cycle-accurate timing, so this reports coarse
// instruction-class counts and approximate throughput, not cycle traces).
type StatisticsResponse struct {
	InstructionsExecuted uint64  `json:"instructionsExecuted"`
	LoadsExecuted        uint64  `json:"loadsExecuted"`
	StoresExecuted       uint64  `json:"storesExecuted"`
	BranchesTaken        uint64  `json:"branchesTaken"`
	BranchesNotTaken     uint64  `json:"branchesNotTaken"`
	ECallsExecuted       uint64  `json:"ecallsExecuted"`
	InstructionsPerSec   float64 `json:"instructionsPerSec"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event represents a WebSocket event
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StateEvent represents a state change event
type StateEvent struct {
	State     string     `json:"state"`
	PC        uint32     `json:"pc"`
	Registers [32]uint32 `json:"registers"`
	Cycles    uint64     `json:"cycles"`
}

// OutputEvent represents console output
type OutputEvent struct {
	Stream  string `json:"stream"`  // "stdout" or "stderr"
	Content string `json:"content"` // Output content
}

// FrameEvent represents a VRAM snapshot published by the DRAW syscall
type FrameEvent struct {
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionEvent represents execution events like breakpoints
type ExecutionEvent struct {
	Event   string `json:"event"` // "breakpoint_hit", "error", "halted"
	Address uint32 `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message,omitempty"`
}

// ToRegisterResponse converts service.RegisterState to API response
func ToRegisterResponse(regs *service.RegisterState) *RegistersResponse {
	return &RegistersResponse{
		X:      regs.Registers,
		PC:     regs.PC,
		Cycles: regs.Cycles,
	}
}

// ToInstructionInfo converts service.DisassemblyLine to API response
func ToInstructionInfo(line *service.DisassemblyLine) InstructionInfo {
	return InstructionInfo{
		Address: line.Address,
		Opcode:  line.Opcode,
		Symbol:  line.Symbol,
	}
}

// ToStatisticsResponse converts vm.Statistics to API response
func ToStatisticsResponse(stats *vm.Statistics) StatisticsResponse {
	return StatisticsResponse{
		InstructionsExecuted: stats.InstructionsExecuted,
		LoadsExecuted:        stats.LoadsExecuted,
		StoresExecuted:       stats.StoresExecuted,
		BranchesTaken:        stats.BranchesTaken,
		BranchesNotTaken:     stats.BranchesNotTaken,
		ECallsExecuted:       stats.ECallsExecuted,
		InstructionsPerSec:   stats.InstructionsPerSecond(),
	}
}
